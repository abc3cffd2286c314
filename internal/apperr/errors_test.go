package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	wrapped := fmt.Errorf("catalog: %w", NotFound("Agency"))

	assert.Equal(t, KindNotFound, KindOf(wrapped))
	assert.True(t, Is(wrapped, KindNotFound))
	assert.False(t, Is(wrapped, KindConflict))
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
}

func TestUpstreamKeepsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Upstream("payment processor failed", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "connection refused", err.Details)
	assert.False(t, err.Unavailable)
	assert.True(t, Unavailable("billing not configured").Unavailable)
}

func TestAs(t *testing.T) {
	ae, ok := As(fmt.Errorf("x: %w", Validation("bad %s", "stars")))
	assert.True(t, ok)
	assert.Equal(t, "bad stars", ae.Message)

	_, ok = As(errors.New("plain"))
	assert.False(t, ok)
}
