package wire

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResponseRoundTrip(t *testing.T) {
	data, err := EncodeResponse(OK(KeyID, uint32(4), "reply", "pong"))
	require.NoError(t, err)

	r, err := DecodeResponse(data)
	require.NoError(t, err)
	assert.Equal(t, StatusOkay, r.Status())
	assert.True(t, r.OK())
	assert.Equal(t, "pong", r.String("reply"))

	id, ok := r.Uint(KeyID)
	require.True(t, ok)
	assert.Equal(t, uint64(4), id)
}

func TestEncodeResponse_RequiresStatus(t *testing.T) {
	_, err := EncodeResponse(Response{"reply": "pong"})
	assert.Error(t, err)
}

func TestDecodeResponse_MissingStatusBecomesError(t *testing.T) {
	data, err := Marshal(map[string]any{"reply": "pong"})
	require.NoError(t, err)

	r, err := DecodeResponse(data)
	require.NoError(t, err)
	assert.Equal(t, StatusError, r.Status())
	assert.Equal(t, "response missing status", r.ErrorMessage())
	assert.Equal(t, "pong", r.String("reply"))
}

func TestDecodeResponse_NotAMap(t *testing.T) {
	data, err := Marshal(42)
	require.NoError(t, err)

	_, err = DecodeResponse(data)
	assert.True(t, errors.Is(err, ErrMalformed), "got %v", err)

	_, err = DecodeResponse([]byte{0xff, 0x00})
	assert.True(t, errors.Is(err, ErrMalformed), "got %v", err)
}

func TestDecodeResponse_NestedMap(t *testing.T) {
	data, err := EncodeResponse(OK("info", map[string]any{"name": "aio-1"}))
	require.NoError(t, err)

	r, err := DecodeResponse(data)
	require.NoError(t, err)
	nested, ok := r.Get("info").(map[string]any)
	require.True(t, ok, "nested map type = %T", r.Get("info"))
	assert.Equal(t, "aio-1", nested["name"])
}

func TestErrorf(t *testing.T) {
	r := Errorf("unknown command %q", "reboot")
	assert.Equal(t, StatusError, r.Status())
	assert.False(t, r.OK())
	assert.Equal(t, `unknown command "reboot"`, r.ErrorMessage())
}

func TestNewResponse_IgnoresNonStringKeys(t *testing.T) {
	r := NewResponse(StatusDenied, 1, "x", "detail", "bad token", "dangling")
	assert.Equal(t, StatusDenied, r.Status())
	assert.Equal(t, "bad token", r.String(KeyDetail))
	assert.Len(t, r, 2)
}

func TestResponseSummary(t *testing.T) {
	r := OK("b", 2, "a", "x")
	assert.Equal(t, []string{"status", "a", "b"}, r.Keys())
	assert.Equal(t, "status=OKAY a=x b=2", r.Summary())
}
