package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(cause, CodeConnectivity, "directory ping failed")

	require.Error(t, err)
	assert.ErrorIs(t, err, cause)
	assert.True(t, HasCode(err, CodeConnectivity))
	assert.Contains(t, err.Error(), "connection refused")
}

func TestWrapNilReturnsNil(t *testing.T) {
	assert.NoError(t, Wrap(nil, CodeInternal, "ignored"))
}

func TestHasCodeSeesThroughFmtWrapping(t *testing.T) {
	err := New(CodeNotFound, "identity missing")
	wrapped := fmt.Errorf("processing alice@old.com: %w", err)

	assert.True(t, HasCode(wrapped, CodeNotFound))
	assert.False(t, HasCode(wrapped, CodeMutation))
}

func TestCodeOfDefaultsToInternal(t *testing.T) {
	assert.Equal(t, CodeInternal, CodeOf(errors.New("plain")))
	assert.Equal(t, CodeValidation, CodeOf(New(CodeValidation, "bad domain")))
}

func TestIsFatal(t *testing.T) {
	assert.True(t, IsFatal(New(CodeValidation, "missing new domain")))
	assert.True(t, IsFatal(New(CodeConnectivity, "auth failed")))
	assert.False(t, IsFatal(New(CodeNotFound, "no mailbox")))
	assert.False(t, IsFatal(New(CodeMutation, "apply failed")))
	assert.False(t, IsFatal(New(CodeMalformedAddress, "no @")))
}
