package helpers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestJWTRoundTrip(t *testing.T) {
	m := NewJWTManager("access-secret", "refresh-secret", time.Minute, time.Hour)

	token, exp, err := m.GenerateAccessToken("u1")
	assert.NoError(t, err)
	assert.True(t, exp.After(time.Now()))

	claims, err := m.ParseAccessToken(token)
	assert.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
}

func TestJWTWrongSecretRejected(t *testing.T) {
	m := NewJWTManager("access-secret", "refresh-secret", time.Minute, time.Hour)
	other := NewJWTManager("different", "different", time.Minute, time.Hour)

	token, _, err := m.GenerateAccessToken("u1")
	assert.NoError(t, err)

	_, err = other.ParseAccessToken(token)
	assert.Error(t, err)
}

func TestJWTRefreshTokenNotValidAsAccess(t *testing.T) {
	m := NewJWTManager("access-secret", "refresh-secret", time.Minute, time.Hour)

	token, _, err := m.GenerateRefreshToken("u1")
	assert.NoError(t, err)

	_, err = m.ParseAccessToken(token)
	assert.Error(t, err)
}

func TestJWTExpiredRejected(t *testing.T) {
	m := NewJWTManager("access-secret", "refresh-secret", -time.Minute, time.Hour)

	token, _, err := m.GenerateAccessToken("u1")
	assert.NoError(t, err)

	_, err = m.ParseAccessToken(token)
	assert.Error(t, err)
}

func TestGenOTPCode(t *testing.T) {
	code, err := GenOTPCode()
	assert.NoError(t, err)
	assert.Len(t, code, 6)
	for _, c := range code {
		assert.True(t, c >= '0' && c <= '9')
	}
}
