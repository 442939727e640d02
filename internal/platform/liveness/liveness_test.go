package liveness

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenLifecycle(t *testing.T) {
	tok := NewToken()
	assert.True(t, tok.Live())

	tok.Cancel()
	assert.False(t, tok.Live())

	// Cancel is idempotent and never resurrects the token.
	tok.Cancel()
	assert.False(t, tok.Live())
}

func TestNilTokenIsLive(t *testing.T) {
	var tok *Token
	assert.True(t, tok.Live())
	assert.NotPanics(t, func() { tok.Cancel() })
}

func TestConcurrentCancel(t *testing.T) {
	tok := NewToken()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tok.Cancel()
		}()
	}
	wg.Wait()

	assert.False(t, tok.Live())
}
