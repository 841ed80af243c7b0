package persistence

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDraftError_WrapsSentinel(t *testing.T) {
	err := NewDraftError("Delete", "wf-1", ErrDraftNotFound)

	require.ErrorIs(t, err, ErrDraftNotFound)
	assert.True(t, IsDraftNotFound(err))
	assert.Contains(t, err.Error(), "Delete")
	assert.Contains(t, err.Error(), "wf-1")
}

func TestIsDraftNotFound_OtherError(t *testing.T) {
	assert.False(t, IsDraftNotFound(errors.New("boom")))
	assert.False(t, IsDraftNotFound(nil))
}
