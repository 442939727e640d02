package preferences

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "github.com/authelia/authelia-sub004/pkg/domain-errors"
)

func newRedisStore(t *testing.T) *RedisStore {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})

	return NewRedisStore(rdb)
}

func TestParseMethod(t *testing.T) {
	for _, raw := range []string{"webauthn", "totp", "mobile_push"} {
		method, err := ParseMethod(raw)
		require.NoError(t, err)
		assert.Equal(t, Method(raw), method)
	}

	_, err := ParseMethod("carrier_pigeon")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func runStoreContract(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	_, err := store.Get(ctx, "john")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))

	var seen []Method
	store.Subscribe(func(userID string, method Method) {
		assert.Equal(t, "john", userID)
		seen = append(seen, method)
	})

	require.NoError(t, store.Set(ctx, "john", MethodTOTP))
	require.NoError(t, store.Set(ctx, "john", MethodWebAuthn))

	method, err := store.Get(ctx, "john")
	require.NoError(t, err)
	assert.Equal(t, MethodWebAuthn, method)

	// Every Set reached the subscriber, in order.
	assert.Equal(t, []Method{MethodTOTP, MethodWebAuthn}, seen)

	err = store.Set(ctx, "john", Method("smoke_signals"))
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	assert.Len(t, seen, 2)
}

func TestInMemoryStore(t *testing.T) {
	runStoreContract(t, NewInMemoryStore())
}

func TestRedisStore(t *testing.T) {
	runStoreContract(t, newRedisStore(t))
}
