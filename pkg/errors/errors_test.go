package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCloneKeepsIdentityForIs(t *testing.T) {
	err := Clone(ErrSeatsFull, "CS101 is full")
	assert.True(t, errors.Is(err, ErrSeatsFull))
	assert.False(t, errors.Is(err, ErrLocked))
	assert.Equal(t, "CS101 is full", err.Message)
	assert.Equal(t, http.StatusConflict, err.Status)
}

func TestWrapIsMatchedThroughFmtWrapping(t *testing.T) {
	cause := fmt.Errorf("redis down")
	err := fmt.Errorf("flush: %w", Wrap(cause, ErrPersistence.Code, ErrPersistence.Status, "failed"))
	assert.True(t, errors.Is(err, ErrPersistence))
	assert.True(t, errors.Is(err, cause))
}

func TestFromErrorDefaultsToInternal(t *testing.T) {
	appErr := FromError(fmt.Errorf("boom"))
	assert.Equal(t, ErrInternal.Code, appErr.Code)
	assert.Equal(t, http.StatusInternalServerError, appErr.Status)
	assert.Nil(t, FromError(nil))
}
