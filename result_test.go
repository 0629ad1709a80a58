package miniav

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodeString(t *testing.T) {
	assert.Equal(t, "success", CodeOK.String())
	assert.Equal(t, "device not found", CodeDeviceNotFound.String())
	assert.Equal(t, "cancelled by user", CodeUserCancelled.String())

	// Unrecognized codes degrade to the unknown description instead of
	// an empty string.
	assert.Equal(t, CodeUnknown.String(), Code(9999).String())
	assert.Equal(t, CodeTimeout.String(), ErrorString(CodeTimeout))
}

func TestErrorSentinelMatching(t *testing.T) {
	err := Errorf(CodeDeviceNotFound, "no camera %q", "cam:7")

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDeviceNotFound))
	assert.False(t, errors.Is(err, ErrDeviceBusy))
	assert.Contains(t, err.Error(), `no camera "cam:7"`)
}

func TestWrapErrorPreservesChain(t *testing.T) {
	inner := errors.New("dbus: connection refused")
	err := WrapError(CodePortalFailed, inner)

	assert.True(t, errors.Is(err, ErrPortalFailed))
	assert.True(t, errors.Is(err, inner))
	assert.Contains(t, err.Error(), "connection refused")
}

func TestWrapErrorThroughFmtChain(t *testing.T) {
	err := fmt.Errorf("configure display: %w", Errorf(CodeUserCancelled, "chooser dismissed"))

	assert.True(t, errors.Is(err, ErrUserCancelled))
	assert.Equal(t, CodeUserCancelled, CodeOf(err))
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, CodeOK, CodeOf(nil))
	assert.Equal(t, CodeNotRunning, CodeOf(Errorf(CodeNotRunning, "idle")))

	// Errors from outside the package downgrade to unknown.
	assert.Equal(t, CodeUnknown, CodeOf(errors.New("plain failure")))
}
