package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-for-unit-tests"

func newHS256Validator(t *testing.T) *JWTValidator {
	t.Helper()
	v, err := NewJWTValidator(JWTConfig{
		SigningMethod: "HS256",
		SecretKey:     testSecret,
		Issuer:        "homedash-backend",
		Audience:      []string{"homedash-api"},
	})
	require.NoError(t, err)
	return v
}

func signToken(t *testing.T, claims Claims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func validClaims() Claims {
	return Claims{
		UserID: "user123",
		Email:  "user@example.com",
		Roles:  []string{"user"},
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "homedash-backend",
			Audience:  jwt.ClaimStrings{"homedash-api"},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
}

func TestValidateToken_Success(t *testing.T) {
	v := newHS256Validator(t)
	tokenString := signToken(t, validClaims())

	claims, err := v.ValidateToken(tokenString)

	require.NoError(t, err)
	assert.Equal(t, "user123", claims.UserID)
	assert.Equal(t, "user@example.com", claims.Email)
}

func TestValidateToken_StripsBearerPrefix(t *testing.T) {
	v := newHS256Validator(t)
	tokenString := signToken(t, validClaims())

	claims, err := v.ValidateToken("Bearer " + tokenString)

	require.NoError(t, err)
	assert.Equal(t, "user123", claims.UserID)
}

func TestValidateToken_Expired(t *testing.T) {
	v := newHS256Validator(t)
	claims := validClaims()
	claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Hour))

	_, err := v.ValidateToken(signToken(t, claims))

	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestValidateToken_WrongIssuer(t *testing.T) {
	v := newHS256Validator(t)
	claims := validClaims()
	claims.Issuer = "someone-else"

	_, err := v.ValidateToken(signToken(t, claims))

	assert.ErrorIs(t, err, ErrInvalidClaims)
}

func TestValidateToken_WrongAudience(t *testing.T) {
	v := newHS256Validator(t)
	claims := validClaims()
	claims.Audience = jwt.ClaimStrings{"other-api"}

	_, err := v.ValidateToken(signToken(t, claims))

	assert.ErrorIs(t, err, ErrInvalidClaims)
}

func TestValidateToken_MissingUserID(t *testing.T) {
	v := newHS256Validator(t)
	claims := validClaims()
	claims.UserID = ""

	_, err := v.ValidateToken(signToken(t, claims))

	assert.ErrorIs(t, err, ErrInvalidClaims)
}

func TestValidateToken_WrongSecret(t *testing.T) {
	v := newHS256Validator(t)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, validClaims())
	signed, err := token.SignedString([]byte("a-different-secret"))
	require.NoError(t, err)

	_, err = v.ValidateToken(signed)

	assert.Error(t, err)
}

func TestValidateToken_Empty(t *testing.T) {
	v := newHS256Validator(t)

	_, err := v.ValidateToken("")

	assert.ErrorIs(t, err, ErrMissingToken)
}

func TestNewJWTValidator_RequiresKeyMaterial(t *testing.T) {
	_, err := NewJWTValidator(JWTConfig{SigningMethod: "HS256"})
	assert.Error(t, err)

	_, err = NewJWTValidator(JWTConfig{SigningMethod: "RS256"})
	assert.Error(t, err)

	_, err = NewJWTValidator(JWTConfig{SigningMethod: "ES256", SecretKey: "x"})
	assert.Error(t, err)
}

func TestUserContext_RoundTrip(t *testing.T) {
	ctx := SetUserInContext(context.Background(), &UserContext{UserID: "user123"})

	user, err := GetUserFromContext(ctx)

	require.NoError(t, err)
	assert.Equal(t, "user123", user.UserID)
}

func TestUserContext_Absent(t *testing.T) {
	_, err := GetUserFromContext(context.Background())
	assert.Error(t, err)
}
