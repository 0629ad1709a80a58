package portal

import (
	"strings"
	"testing"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStreams(t *testing.T) {
	// Shape of a real Start response: a(ua{sv}).
	raw := []any{
		[]any{
			uint32(68),
			map[string]dbus.Variant{
				"position": dbus.MakeVariant([]any{int32(0), int32(0)}),
				"size":     dbus.MakeVariant([]any{int32(1920), int32(1080)}),
			},
		},
		[]any{
			uint32(69),
			map[string]dbus.Variant{},
		},
	}

	streams, err := parseStreams(raw)
	require.NoError(t, err)
	require.Len(t, streams, 2)

	assert.Equal(t, uint32(68), streams[0].NodeID)
	assert.Equal(t, [2]int32{1920, 1080}, streams[0].Size)
	assert.Equal(t, uint32(69), streams[1].NodeID)
	assert.Equal(t, [2]int32{0, 0}, streams[1].Size)
}

func TestParseStreamsSkipsMalformedEntries(t *testing.T) {
	raw := []any{
		[]any{uint32(7)}, // too short, dropped
		"not a stream",   // wrong shape, dropped
		[]any{uint32(8), map[string]dbus.Variant{}},
	}

	streams, err := parseStreams(raw)
	require.NoError(t, err)
	require.Len(t, streams, 1)
	assert.Equal(t, uint32(8), streams[0].NodeID)
}

func TestParseStreamsRejectsWrongType(t *testing.T) {
	_, err := parseStreams(uint32(42))
	var typeErr *UnexpectedTypeError
	require.ErrorAs(t, err, &typeErr)
	assert.Contains(t, typeErr.Error(), "streams")
}

func TestParseInt32Pair(t *testing.T) {
	pair, ok := parseInt32Pair([]any{int32(-3), int32(9)})
	require.True(t, ok)
	assert.Equal(t, [2]int32{-3, 9}, pair)

	_, ok = parseInt32Pair([]any{int32(1)})
	assert.False(t, ok)
	_, ok = parseInt32Pair([]any{"1", "2"})
	assert.False(t, ok)
	_, ok = parseInt32Pair(nil)
	assert.False(t, ok)
}

func TestNewToken(t *testing.T) {
	a, b := newToken(), newToken()
	assert.NotEqual(t, a, b)
	assert.True(t, strings.HasPrefix(a, "miniav"))
	assert.NotContains(t, a, "-", "dashes are not valid in D-Bus path elements")
}
