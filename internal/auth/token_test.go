package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hongminglow/expense-tracker-be/internal/models"
)

func testUser() models.User {
	return models.User{ID: "google-42", Email: "ada@example.com", Name: "Ada"}
}

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("secret", "expense-tracker", time.Hour)

	raw, err := tm.Generate(testUser())
	require.NoError(t, err)

	claims, err := tm.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "google-42", claims.Subject)
	assert.Equal(t, "ada@example.com", claims.Email)
	assert.Equal(t, "Ada", claims.Name)
	assert.Equal(t, "expense-tracker", claims.Issuer)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt.Time, 5*time.Second)
}

func TestTokenParseRejects(t *testing.T) {
	tm := NewTokenManager("secret", "expense-tracker", time.Hour)
	valid, err := tm.Generate(testUser())
	require.NoError(t, err)

	otherSecret, err := NewTokenManager("other", "expense-tracker", time.Hour).Generate(testUser())
	require.NoError(t, err)

	otherIssuer, err := NewTokenManager("secret", "someone-else", time.Hour).Generate(testUser())
	require.NoError(t, err)

	expiredManager := NewTokenManager("secret", "expense-tracker", time.Minute)
	expiredManager.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expired, err := expiredManager.Generate(testUser())
	require.NoError(t, err)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Issuer:    "expense-tracker",
		Subject:   "google-42",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	noSubject, err := tm.Generate(models.User{Email: "x@example.com"})
	require.NoError(t, err)

	tests := map[string]string{
		"garbage":       "not-a-token",
		"tampered":      valid + "x",
		"wrong secret":  otherSecret,
		"wrong issuer":  otherIssuer,
		"expired":       expired,
		"alg none":      unsigned,
		"empty subject": noSubject,
	}
	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := tm.Parse(raw)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}
