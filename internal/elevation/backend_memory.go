package elevation

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/authelia/authelia-sub004/pkg/secrets"
)

const defaultCodeDigits = 8

type record struct {
	elevationID string
	deleteID    string
	digest      string
	expiresAt   time.Time
	invalidated bool
}

// MemoryBackend issues codes locally and stores only their bcrypt digests.
// Intended for development and tests; delivery is a pluggable callback
// standing in for the real out-of-band channel.
type MemoryBackend struct {
	mu      sync.Mutex
	records map[string]*record

	ttl                  time.Duration
	requiresSecondFactor bool
	canSkipSecondFactor  bool
	deliver              func(code string)
	now                  func() time.Time
}

// MemoryOption configures a MemoryBackend.
type MemoryOption func(*MemoryBackend)

// WithDelivery sets the out-of-band delivery channel for issued codes.
func WithDelivery(deliver func(code string)) MemoryOption {
	return func(b *MemoryBackend) { b.deliver = deliver }
}

// WithSecondFactorPolicy controls the gating flags stamped on issued
// elevations.
func WithSecondFactorPolicy(required, canSkip bool) MemoryOption {
	return func(b *MemoryBackend) {
		b.requiresSecondFactor = required
		b.canSkipSecondFactor = canSkip
	}
}

func WithClock(now func() time.Time) MemoryOption {
	return func(b *MemoryBackend) { b.now = now }
}

func NewMemoryBackend(ttl time.Duration, opts ...MemoryOption) *MemoryBackend {
	b := &MemoryBackend{
		records: make(map[string]*record),
		ttl:     ttl,
		deliver: func(string) {},
		now:     time.Now,
	}

	for _, opt := range opts {
		opt(b)
	}

	return b
}

func (b *MemoryBackend) Generate(_ context.Context) (*Elevation, error) {
	code, err := secrets.GenerateCode(defaultCodeDigits)
	if err != nil {
		return nil, err
	}

	digest, err := secrets.Hash(code)
	if err != nil {
		return nil, err
	}

	deleteID, err := secrets.GenerateToken()
	if err != nil {
		return nil, err
	}

	rec := &record{
		elevationID: uuid.NewString(),
		deleteID:    deleteID,
		digest:      digest,
		expiresAt:   b.now().Add(b.ttl),
	}

	b.mu.Lock()
	b.records[rec.elevationID] = rec
	b.mu.Unlock()

	b.deliver(code)

	return &Elevation{
		ID:                   rec.elevationID,
		DeleteID:             rec.deleteID,
		ExpiresAt:            rec.expiresAt,
		RequiresSecondFactor: b.requiresSecondFactor,
		CanSkipSecondFactor:  b.canSkipSecondFactor,
	}, nil
}

// Verify redeems the code against any live record, consuming the record on a
// match. Expired or invalidated records never match.
func (b *MemoryBackend) Verify(_ context.Context, code string) (bool, error) {
	b.mu.Lock()
	candidates := make([]*record, 0, len(b.records))
	now := b.now()
	for _, rec := range b.records {
		if rec.invalidated || !now.Before(rec.expiresAt) {
			continue
		}
		candidates = append(candidates, rec)
	}
	b.mu.Unlock()

	for _, rec := range candidates {
		ok, err := secrets.Verify(code, rec.digest)
		if err != nil {
			return false, err
		}
		if !ok {
			continue
		}

		b.mu.Lock()
		consumed := !rec.invalidated
		delete(b.records, rec.elevationID)
		b.mu.Unlock()

		return consumed, nil
	}

	return false, nil
}

func (b *MemoryBackend) Invalidate(_ context.Context, deleteID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, rec := range b.records {
		if rec.deleteID == deleteID {
			rec.invalidated = true
		}
	}
	return nil
}
