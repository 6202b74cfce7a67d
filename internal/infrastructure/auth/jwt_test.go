package auth

import (
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orris-inc/payrecon/internal/shared/authorization"
)

const testSecret = "test-secret-at-least-16"

func TestJWTService_RoundTrip(t *testing.T) {
	svc := NewJWTService(testSecret, "payrecon", 15)

	token, err := svc.Generate(42, authorization.RoleFinance)
	require.NoError(t, err)

	claims, err := svc.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, authorization.RoleFinance, claims.Role)
	assert.Equal(t, "42", claims.Subject)
}

func TestJWTService_RejectsForeignTokens(t *testing.T) {
	svc := NewJWTService(testSecret, "payrecon", 15)

	other, err := NewJWTService("another-secret-value", "payrecon", 15).Generate(1, authorization.RoleAdmin)
	require.NoError(t, err)
	_, err = svc.Verify(other)
	assert.ErrorIs(t, err, ErrInvalidToken)

	wrongIssuer, err := NewJWTService(testSecret, "someone-else", 15).Generate(1, authorization.RoleAdmin)
	require.NoError(t, err)
	_, err = svc.Verify(wrongIssuer)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = svc.Verify("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTService_RejectsNoneAlgorithm(t *testing.T) {
	svc := NewJWTService(testSecret, "payrecon", 15)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{
		UserID:           1,
		Role:             authorization.RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{Issuer: "payrecon"},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = svc.Verify(unsigned)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTService_RejectsUnknownRole(t *testing.T) {
	svc := NewJWTService(testSecret, "payrecon", 15)
	_, err := svc.Generate(1, authorization.UserRole("root"))
	assert.Error(t, err)
}
