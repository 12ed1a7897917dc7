package jwt

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-access-secret-key-for-testing-purposes"

func TestNewService(t *testing.T) {
	service := NewService(testSecret, time.Hour)

	assert.NotNil(t, service)
	assert.Equal(t, []byte(testSecret), service.secret)
	assert.Equal(t, time.Hour, service.expiry)
}

func TestGenerateAccessToken(t *testing.T) {
	service := NewService(testSecret, time.Hour)
	userID := uuid.New()

	token, err := service.GenerateAccessToken(userID, "renter@example.com", "RENTER")
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	claims, err := service.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, "renter@example.com", claims.Email)
	assert.Equal(t, "RENTER", claims.Role)
	assert.Equal(t, userID.String(), claims.Subject)
}

func TestValidate(t *testing.T) {
	service := NewService(testSecret, time.Hour)
	userID := uuid.New()

	t.Run("Wrong secret", func(t *testing.T) {
		other := NewService("another-secret-entirely", time.Hour)
		token, err := other.GenerateAccessToken(userID, "a@example.com", "MATE")
		require.NoError(t, err)

		_, err = service.Validate(token)
		assert.Error(t, err)
		assert.NotErrorIs(t, err, ErrTokenExpired)
	})

	t.Run("Expired", func(t *testing.T) {
		past := NewService(testSecret, time.Hour)
		past.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
		token, err := past.GenerateAccessToken(userID, "a@example.com", "MATE")
		require.NoError(t, err)

		_, err = service.Validate(token)
		assert.ErrorIs(t, err, ErrTokenExpired)
	})

	t.Run("Garbage", func(t *testing.T) {
		_, err := service.Validate("not.a.token")
		assert.Error(t, err)
	})

	t.Run("Unsigned algorithm", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
			UserID: userID,
			Role:   "MATE",
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    issuer,
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		})
		tokenString, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = service.Validate(tokenString)
		assert.Error(t, err)
	})

	t.Run("Missing user id", func(t *testing.T) {
		token, err := service.GenerateAccessToken(uuid.Nil, "a@example.com", "MATE")
		require.NoError(t, err)

		_, err = service.Validate(token)
		assert.Error(t, err)
	})
}

func TestGetTokenExpiry(t *testing.T) {
	service := NewService(testSecret, time.Hour)
	fixed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	service.now = func() time.Time { return fixed }

	token, err := service.GenerateAccessToken(uuid.New(), "a@example.com", "RENTER")
	require.NoError(t, err)

	expiry, err := service.GetTokenExpiry(token)
	require.NoError(t, err)
	assert.True(t, expiry.Equal(fixed.Add(time.Hour)))

	_, err = service.GetTokenExpiry("garbage")
	assert.Error(t, err)
}
