package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quickdesk/helpdesk-service/internal/config"
	"github.com/quickdesk/helpdesk-service/internal/domain"
)

func newAuthFixture() (*AuthService, *fakeUserRepo) {
	users := newFakeUserRepo()
	svc := NewAuthService(config.AuthConfig{
		JWTSecret:             "test-secret",
		AccessTokenTTLMinutes: 15,
		BcryptCost:            4,
	}, users)
	return svc, users
}

func TestRegisterDefaultsToEndUser(t *testing.T) {
	svc, _ := newAuthFixture()

	result, err := svc.Register(context.Background(), RegisterInput{
		Name:     "Alice",
		Email:    "Alice@Example.com",
		Password: "hunter22",
	})
	require.NoError(t, err)

	assert.Equal(t, domain.RoleEndUser, result.User.Role)
	assert.Equal(t, "alice@example.com", result.User.Email)
	assert.NotEmpty(t, result.Token)
	assert.False(t, result.ExpiresAt.IsZero())

	claims, err := svc.TokenManager().ParseToken(result.Token)
	require.NoError(t, err)
	assert.Equal(t, result.User.ID, claims.UserID)
	assert.Equal(t, domain.RoleEndUser, claims.Role)
}

func TestRegisterValidation(t *testing.T) {
	svc, _ := newAuthFixture()
	ctx := context.Background()

	cases := []struct {
		name  string
		input RegisterInput
	}{
		{"missing name", RegisterInput{Email: "a@b.com", Password: "hunter22"}},
		{"bad email", RegisterInput{Name: "Alice", Email: "not-an-email", Password: "hunter22"}},
		{"short password", RegisterInput{Name: "Alice", Email: "a@b.com", Password: "abc"}},
		{"bad role", RegisterInput{Name: "Alice", Email: "a@b.com", Password: "hunter22", Role: "superuser"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Register(ctx, tc.input)
			assert.Equal(t, "VALIDATION_FAILED", errCode(t, err))
		})
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _ := newAuthFixture()
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{Name: "Alice", Email: "alice@example.com", Password: "hunter22"})
	require.NoError(t, err)

	_, err = svc.Register(ctx, RegisterInput{Name: "Impostor", Email: "ALICE@example.com", Password: "hunter22"})
	assert.Equal(t, "CONFLICT", errCode(t, err))
}

func TestLogin(t *testing.T) {
	svc, users := newAuthFixture()
	ctx := context.Background()

	registered, err := svc.Register(ctx, RegisterInput{Name: "Alice", Email: "alice@example.com", Password: "hunter22"})
	require.NoError(t, err)

	result, err := svc.Login(ctx, "alice@example.com", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, registered.User.ID, result.User.ID)

	_, err = svc.Login(ctx, "alice@example.com", "wrong")
	assert.Equal(t, "UNAUTHORIZED", errCode(t, err))

	_, err = svc.Login(ctx, "nobody@example.com", "hunter22")
	assert.Equal(t, "UNAUTHORIZED", errCode(t, err))

	users.mu.Lock()
	users.users[registered.User.ID].IsActive = false
	users.mu.Unlock()

	_, err = svc.Login(ctx, "alice@example.com", "hunter22")
	assert.Equal(t, "UNAUTHORIZED", errCode(t, err))
}
