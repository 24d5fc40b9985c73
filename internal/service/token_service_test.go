package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/study-planner-api/pkg/errors"
)

func TestTokenServiceRoundTrip(t *testing.T) {
	svc := NewTokenService(TokenConfig{Secret: "secret", Issuer: "study-assistant"})

	token, err := svc.IssueToken("user-1", "a@example.com", time.Hour)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "a@example.com", claims.Email)
}

func TestTokenServiceExpired(t *testing.T) {
	svc := NewTokenService(TokenConfig{Secret: "secret"})
	svc.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, err := svc.IssueToken("user-1", "", time.Hour)
	require.NoError(t, err)

	svc.now = time.Now
	_, err = svc.ValidateToken(token)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrTokenExpired.Code, appErrors.FromError(err).Code)
}

func TestTokenServiceRejectsWrongSecretAndIssuer(t *testing.T) {
	issuer := NewTokenService(TokenConfig{Secret: "other", Issuer: "elsewhere"})
	token, err := issuer.IssueToken("user-1", "", time.Hour)
	require.NoError(t, err)

	_, err = NewTokenService(TokenConfig{Secret: "secret"}).ValidateToken(token)
	assert.Equal(t, appErrors.ErrInvalidToken.Code, appErrors.FromError(err).Code)

	_, err = NewTokenService(TokenConfig{Secret: "other", Issuer: "study-assistant"}).ValidateToken(token)
	assert.Equal(t, appErrors.ErrInvalidToken.Code, appErrors.FromError(err).Code)
}

func TestTokenServiceFallsBackToSubject(t *testing.T) {
	svc := NewTokenService(TokenConfig{Secret: "secret"})
	raw := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "user-7",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	token, err := raw.SignedString([]byte("secret"))
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-7", claims.UserID)
}

func TestTokenServiceRejectsOtherAlgorithms(t *testing.T) {
	svc := NewTokenService(TokenConfig{Secret: "secret"})
	raw := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.MapClaims{"user_id": "user-1"})
	token, err := raw.SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	assert.Error(t, err)
}
