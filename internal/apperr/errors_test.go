package apperr

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMatchesKindAndCause(t *testing.T) {
	cause := context.DeadlineExceeded
	err := Transient("decide", cause)

	assert.ErrorIs(t, err, ErrTransientExternal)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "decide: transient external error: context deadline exceeded", err.Error())
}

func TestWrappedErrorKeepsKind(t *testing.T) {
	err := fmt.Errorf("commit: %w", NotFoundf("like_post", "post %q", "p-1"))

	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, ErrNotFound, KindOf(err))

	var appErr *Error
	assert.True(t, errors.As(err, &appErr))
	assert.Equal(t, "like_post", appErr.Op)
}

func TestIsFatal(t *testing.T) {
	assert.True(t, IsFatal(StoreUnavailable("create_post", errors.New("connection refused"))))
	assert.False(t, IsFatal(Validationf("parse", "bad")))
	assert.False(t, IsFatal(nil))
	assert.Nil(t, KindOf(errors.New("plain")))
}

func TestErrorWithoutCause(t *testing.T) {
	err := Configuration("lookup", nil)
	assert.Equal(t, "lookup: configuration error", err.Error())
	assert.ErrorIs(t, err, ErrConfiguration)
}
