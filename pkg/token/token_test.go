package token

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignVerify(t *testing.T) {
	s := NewSigner([]byte("key"))

	signed := s.Sign("0190c5d0-7a4e-7000-8000-000000000001")
	payload, err := s.Verify(signed)
	require.NoError(t, err)
	assert.Equal(t, "0190c5d0-7a4e-7000-8000-000000000001", payload)
}

func TestVerifyRejectsTampering(t *testing.T) {
	s := NewSigner([]byte("key"))
	signed := s.Sign("session-a")

	_, err := s.Verify("session-b" + signed[len("session-a"):])
	assert.ErrorIs(t, err, ErrMalformed)

	_, err = NewSigner([]byte("other")).Verify(signed)
	assert.ErrorIs(t, err, ErrMalformed)

	for _, bad := range []string{"", "nodot", ".sig", "payload.!!!"} {
		_, err = s.Verify(bad)
		assert.ErrorIs(t, err, ErrMalformed, bad)
	}
}
