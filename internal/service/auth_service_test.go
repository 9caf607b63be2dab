package service

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/aims-registration-api/internal/models"
	"github.com/noah-isme/aims-registration-api/internal/repository"
	"github.com/noah-isme/aims-registration-api/internal/seed"
	appErrors "github.com/noah-isme/aims-registration-api/pkg/errors"
)

func newAuthServiceForTest(t *testing.T) *AuthService {
	t.Helper()
	repo, err := repository.NewUserRepository([]seed.RosterEntry{
		{User: models.User{ID: "STU-1", Email: "student@aims.edu", FullName: "Test Student", Role: models.RoleStudent, Active: true}, Password: "student123"},
		{User: models.User{ID: "STU-X", Email: "inactive@aims.edu", Role: models.RoleStudent, Active: false}, Password: "student123"},
	}, bcrypt.MinCost)
	require.NoError(t, err)
	return NewAuthService(repo, nil, nil, AuthConfig{AccessTokenSecret: "secret", AccessTokenExpiry: time.Hour, Issuer: "aims"})
}

func TestLoginIssuesValidToken(t *testing.T) {
	svc := newAuthServiceForTest(t)

	resp, err := svc.Login(context.Background(), models.LoginRequest{Email: "student@aims.edu", Password: "student123"})
	require.NoError(t, err)
	assert.Equal(t, "STU-1", resp.User.ID)
	assert.EqualValues(t, 3600, resp.ExpiresIn)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "STU-1", claims.UserID)
	assert.Equal(t, models.RoleStudent, claims.Role)
}

func TestLoginFailures(t *testing.T) {
	svc := newAuthServiceForTest(t)
	ctx := context.Background()

	_, err := svc.Login(ctx, models.LoginRequest{Email: "student@aims.edu", Password: "wrong"})
	assert.ErrorIs(t, err, appErrors.ErrInvalidCredentials)

	_, err = svc.Login(ctx, models.LoginRequest{Email: "nobody@aims.edu", Password: "student123"})
	assert.ErrorIs(t, err, appErrors.ErrInvalidCredentials)

	_, err = svc.Login(ctx, models.LoginRequest{Email: "inactive@aims.edu", Password: "student123"})
	assert.ErrorIs(t, err, appErrors.ErrInactiveAccount)

	_, err = svc.Login(ctx, models.LoginRequest{Email: "not-an-email", Password: "x"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestValidateTokenRejects(t *testing.T) {
	svc := newAuthServiceForTest(t)
	resp, err := svc.Login(context.Background(), models.LoginRequest{Email: "student@aims.edu", Password: "student123"})
	require.NoError(t, err)

	svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = svc.ValidateToken(resp.AccessToken)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
	svc.now = time.Now

	other := NewAuthService(nil, nil, nil, AuthConfig{AccessTokenSecret: "different", Issuer: "aims"})
	_, err = other.ValidateToken(resp.AccessToken)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, &models.JWTClaims{UserID: "STU-1"})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = svc.ValidateToken(unsigned)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
}

func TestMe(t *testing.T) {
	svc := newAuthServiceForTest(t)
	info, err := svc.Me(context.Background(), "STU-1")
	require.NoError(t, err)
	assert.Equal(t, "Test Student", info.FullName)
}
