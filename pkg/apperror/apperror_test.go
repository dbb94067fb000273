package apperror

import (
	"fmt"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestIsMatchesByKind(t *testing.T) {
	err := Newf(KindNotFound, "conversation %s not found", "abc")

	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrValidation))
}

func TestIsThroughWrapping(t *testing.T) {
	err := fmt.Errorf("append: %w", New(KindBackendRejected, "no_results"))

	assert.True(t, errors.Is(err, ErrBackendRejected))
	assert.Equal(t, KindBackendRejected, KindOf(err))
	assert.Equal(t, "no_results", Message(err))
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(KindNetworkFailure, cause, "answering service unreachable")

	assert.Equal(t, "answering service unreachable: connection refused", err.Error())
	assert.True(t, errors.Is(err, cause))
}

func TestWithStatusCopies(t *testing.T) {
	withStatus := ErrBackendRejected.WithStatus(503)

	assert.Equal(t, 503, withStatus.Status)
	assert.Equal(t, 0, ErrBackendRejected.Status)
}

func TestIsPrecondition(t *testing.T) {
	assert.True(t, IsPrecondition(ErrEmptyPrompt))
	assert.True(t, IsPrecondition(ErrConversationBusy))
	assert.False(t, IsPrecondition(ErrNetworkFailure))
	assert.False(t, IsPrecondition(errors.New("plain")))
}
