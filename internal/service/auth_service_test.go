package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/config"
	"github.com/spec-kit/helpdesk/internal/domain"
)

func newAuthFixture() (*AuthService, *fakeUserRepo) {
	users := newFakeUserRepo()
	svc := NewAuthService(AuthDependencies{
		Users:  users,
		Tokens: auth.NewTokenManager("test-secret", 60),
		Config: config.AuthConfig{BcryptCost: 4},
		Logger: zap.NewNop(),
	})
	return svc, users
}

func TestRegisterAndLogin(t *testing.T) {
	svc, _ := newAuthFixture()

	registered, err := svc.Register(context.Background(), "Casey", "Casey@Customer.Example.com", "hunter2hunter2")
	require.NoError(t, err)
	assert.NotEmpty(t, registered.Token)
	assert.Equal(t, domain.RoleEndUser, registered.User.Role)
	assert.Equal(t, "casey@customer.example.com", registered.User.Email)

	logged, err := svc.Login(context.Background(), "casey@customer.example.com", "hunter2hunter2")
	require.NoError(t, err)
	assert.Equal(t, registered.User.ID, logged.User.ID)
	assert.NotEmpty(t, logged.Token)
}

func TestRegisterRejectsShortPassword(t *testing.T) {
	svc, _ := newAuthFixture()

	_, err := svc.Register(context.Background(), "Casey", "casey@customer.example.com", "short")
	require.Error(t, err)
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	svc, _ := newAuthFixture()

	_, err := svc.Register(context.Background(), "Casey", "casey@customer.example.com", "hunter2hunter2")
	require.NoError(t, err)
	_, err = svc.Register(context.Background(), "Other", "casey@customer.example.com", "hunter2hunter2")
	require.Error(t, err)
}

func TestLoginRejectsBadPassword(t *testing.T) {
	svc, _ := newAuthFixture()

	_, err := svc.Register(context.Background(), "Casey", "casey@customer.example.com", "hunter2hunter2")
	require.NoError(t, err)

	_, err = svc.Login(context.Background(), "casey@customer.example.com", "wrong-password")
	require.Error(t, err)
}

func TestLoginRejectsUnknownUser(t *testing.T) {
	svc, _ := newAuthFixture()

	_, err := svc.Login(context.Background(), "nobody@example.com", "whatever123")
	require.Error(t, err)
}

func TestLoginRejectsSuspendedAccount(t *testing.T) {
	svc, users := newAuthFixture()

	registered, err := svc.Register(context.Background(), "Casey", "casey@customer.example.com", "hunter2hunter2")
	require.NoError(t, err)

	registered.User.Status = domain.UserStatusSuspended
	require.NoError(t, users.Update(context.Background(), registered.User))

	_, err = svc.Login(context.Background(), "casey@customer.example.com", "hunter2hunter2")
	require.Error(t, err)
}
