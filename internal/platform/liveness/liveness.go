// Package liveness provides the cancellation token ceremony controllers use
// to detect that their owning scope has been torn down.
//
// There is no way to abort an in-flight platform ceremony or network call, so
// "cancellation" here means ignoring a late result: every continuation after a
// suspension point must check the token before committing state or invoking a
// callback. A token is marked cancelled exactly once, when the owning scope
// ends, and never becomes live again.
package liveness

import "sync/atomic"

// Token is the liveness flag owned by an invoking scope.
// The zero value is live.
type Token struct {
	cancelled atomic.Bool
}

// NewToken returns a live token.
func NewToken() *Token {
	return &Token{}
}

// Cancel marks the owning scope as torn down. Idempotent.
func (t *Token) Cancel() {
	if t == nil {
		return
	}
	t.cancelled.Store(true)
}

// Live reports whether the owning scope still exists. A nil token is treated
// as live so library callers that do not care about teardown can pass nil.
func (t *Token) Live() bool {
	if t == nil {
		return true
	}
	return !t.cancelled.Load()
}
