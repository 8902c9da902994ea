package token

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRefreshToken_Length(t *testing.T) {
	tok, err := NewRefreshToken()
	require.NoError(t, err)
	assert.Len(t, tok, 64)
}

func TestNewActionToken_Unique(t *testing.T) {
	a, err := NewActionToken()
	require.NoError(t, err)
	b, err := NewActionToken()
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestHash_StableAndDistinct(t *testing.T) {
	assert.Equal(t, Hash("abc"), Hash("abc"))
	assert.NotEqual(t, Hash("abc"), Hash("abd"))
	assert.Len(t, Hash("abc"), 64)
}

func TestNewOTP_SixDigits(t *testing.T) {
	re := regexp.MustCompile(`^\d{6}$`)
	for i := 0; i < 50; i++ {
		otp, err := NewOTP()
		require.NoError(t, err)
		assert.Regexp(t, re, otp)
	}
}
