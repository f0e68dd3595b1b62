package auth

import (
	"testing"
	"time"

	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/erp/fulfillment/internal/infrastructure/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestJWTService() *JWTService {
	return NewJWTService(config.JWTConfig{
		Secret: "test-secret-key-for-jwt-testing-only",
		Issuer: "test-issuer",
	})
}

func TestValidateAccessToken_RoundTrip(t *testing.T) {
	svc := newTestJWTService()
	actor := shared.NewActor(uuid.New(), shared.RoleFulfiller, "shipment:dispatch")

	token, err := svc.Issue(actor, "alice", time.Hour)
	require.NoError(t, err)

	claims, err := svc.ValidateAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Username)

	got, err := claims.Actor()
	require.NoError(t, err)
	assert.Equal(t, actor.ID, got.ID)
	assert.Equal(t, shared.RoleFulfiller, got.Role)
	assert.True(t, got.HasPermission("shipment:dispatch"))
}

func TestValidateAccessToken_Expired(t *testing.T) {
	svc := newTestJWTService()
	token, err := svc.Issue(shared.NewActor(uuid.New(), shared.RoleAdmin), "", -time.Minute)
	require.NoError(t, err)

	_, err = svc.ValidateAccessToken(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestValidateAccessToken_WrongSecret(t *testing.T) {
	token, err := newTestJWTService().Issue(shared.NewActor(uuid.New(), shared.RoleAdmin), "", time.Hour)
	require.NoError(t, err)

	other := NewJWTService(config.JWTConfig{Secret: "another-secret-entirely-xxxxxxxxxxx", Issuer: "test-issuer"})
	_, err = other.ValidateAccessToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateAccessToken_WrongIssuer(t *testing.T) {
	token, err := newTestJWTService().Issue(shared.NewActor(uuid.New(), shared.RoleAdmin), "", time.Hour)
	require.NoError(t, err)

	other := NewJWTService(config.JWTConfig{Secret: "test-secret-key-for-jwt-testing-only", Issuer: "elsewhere"})
	_, err = other.ValidateAccessToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateAccessToken_Garbage(t *testing.T) {
	_, err := newTestJWTService().ValidateAccessToken("not.a.jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateAccessToken_MissingUserID(t *testing.T) {
	svc := newTestJWTService()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "test-issuer",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Role: "admin",
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(svc.secret)
	require.NoError(t, err)

	_, err = svc.ValidateAccessToken(token)
	assert.ErrorIs(t, err, ErrMissingUserID)
}

func TestClaims_Actor(t *testing.T) {
	t.Run("rejects unknown role", func(t *testing.T) {
		c := &Claims{UserID: uuid.New().String(), Role: "superuser"}
		_, err := c.Actor()
		assert.ErrorIs(t, err, ErrInvalidRole)
	})

	t.Run("rejects system role from token", func(t *testing.T) {
		c := &Claims{UserID: uuid.New().String(), Role: "system"}
		_, err := c.Actor()
		assert.ErrorIs(t, err, ErrInvalidRole)
	})

	t.Run("rejects malformed user id", func(t *testing.T) {
		c := &Claims{UserID: "abc", Role: "admin"}
		_, err := c.Actor()
		assert.ErrorIs(t, err, ErrInvalidClaims)
	})
}
