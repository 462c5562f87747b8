package wire

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProbeRoundTrip(t *testing.T) {
	data, err := EncodeProbe(NewProbe("nonce-1", "aio*", false))
	require.NoError(t, err)

	p, err := DecodeProbe(data)
	require.NoError(t, err)
	assert.Equal(t, "nonce-1", p.ID)
	assert.Equal(t, "aio*", p.Pattern)
	assert.True(t, p.Fold)
	assert.Equal(t, Version, p.Version)
}

func TestEncodeProbe_RequiresID(t *testing.T) {
	_, err := EncodeProbe(NewProbe("", "aio*", true))
	assert.Error(t, err)
}

func TestDecodeProbe_RejectsAnnouncement(t *testing.T) {
	data, err := EncodeAnnouncement(NewAnnouncement("n", "aio-1", "127.0.0.1", 4000))
	require.NoError(t, err)

	_, err = DecodeProbe(data)
	assert.True(t, errors.Is(err, ErrUnexpectedKind), "got %v", err)
}

func TestDecodeProbe_Garbage(t *testing.T) {
	_, err := DecodeProbe([]byte("not cbor at all"))
	assert.True(t, errors.Is(err, ErrMalformed), "got %v", err)
}

func TestAnnouncementValidation(t *testing.T) {
	_, err := EncodeAnnouncement(NewAnnouncement("n", "aio-1", "", 0))
	assert.Error(t, err, "port 0 must be rejected")

	// Hand-built datagram with an out-of-range port.
	data, err := Marshal(map[string]any{"kind": "announce", "v": 1, "id": "n", "name": "x", "port": 70000})
	require.NoError(t, err)
	_, err = DecodeAnnouncement(data)
	assert.True(t, errors.Is(err, ErrMalformed), "got %v", err)
}

func TestAnnouncementRoundTrip_EmptyHost(t *testing.T) {
	data, err := EncodeAnnouncement(NewAnnouncement("n", "aio-1", "", 4000))
	require.NoError(t, err)

	a, err := DecodeAnnouncement(data)
	require.NoError(t, err)
	assert.Equal(t, "", a.Host)
	assert.Equal(t, 4000, a.Port)
	assert.Equal(t, "aio-1", a.Name)
}

func TestRequestValidate(t *testing.T) {
	tests := []struct {
		name    string
		req     Request
		wantErr bool
	}{
		{"connect", Request{Op: OpConnect, Token: "t"}, false},
		{"connect without token is still well formed", Request{Op: OpConnect}, false},
		{"disconnect", Request{Op: OpDisconnect}, false},
		{"command", Request{Op: OpCommand, Command: "ping"}, false},
		{"command without text", Request{Op: OpCommand}, true},
		{"missing op", Request{}, true},
		{"unknown op", Request{Op: "reboot"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDecodeRequest_Invalid(t *testing.T) {
	data, err := Marshal(map[string]any{"op": "command", "id": 3})
	require.NoError(t, err)

	_, err = DecodeRequest(data)
	assert.True(t, errors.Is(err, ErrMalformed), "got %v", err)
}

func TestRequestRoundTrip(t *testing.T) {
	data, err := EncodeRequest(&Request{Op: OpCommand, ID: 7, Command: "auth secret"})
	require.NoError(t, err)

	r, err := DecodeRequest(data)
	require.NoError(t, err)
	assert.Equal(t, OpCommand, r.Op)
	assert.Equal(t, uint32(7), r.ID)
	assert.Equal(t, "auth secret", r.Command)
}
