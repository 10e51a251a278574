// Copyright (c) 2026 Folio. All rights reserved.
// Author: dev@readfolio.app

package auth_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/readfolio/api/internal/platform/apperr"
	"github.com/readfolio/api/internal/platform/sec"
	"github.com/readfolio/api/internal/users/auth"
)

// fakeUserRepository is an in-memory UserRepository.
type fakeUserRepository struct {
	users   map[string]*auth.User // keyed by id
	deleted map[string]bool
}

func newFakeUserRepository() *fakeUserRepository {
	return &fakeUserRepository{users: map[string]*auth.User{}, deleted: map[string]bool{}}
}

func (f *fakeUserRepository) FindByID(_ context.Context, id string) (*auth.User, error) {
	if u, ok := f.users[id]; ok && !f.deleted[id] {
		return u, nil
	}
	return nil, apperr.NotFound("User")
}

func (f *fakeUserRepository) FindByEmail(_ context.Context, email string) (*auth.User, error) {
	for _, u := range f.users {
		if u.Email == email && !f.deleted[u.ID] {
			return u, nil
		}
	}
	return nil, apperr.NotFound("User")
}

func (f *fakeUserRepository) FindByUsername(_ context.Context, username string) (*auth.User, error) {
	for _, u := range f.users {
		if u.Username == username && !f.deleted[u.ID] {
			return u, nil
		}
	}
	return nil, apperr.NotFound("User")
}

func (f *fakeUserRepository) Create(_ context.Context, user *auth.User) error {
	f.users[user.ID] = user
	return nil
}

func (f *fakeUserRepository) SoftDelete(_ context.Context, id string) error {
	if _, ok := f.users[id]; !ok {
		return apperr.NotFound("User")
	}
	f.deleted[id] = true
	return nil
}

// fakeRefreshTokenRepository is an in-memory RefreshTokenRepository.
type fakeRefreshTokenRepository struct {
	tokens map[string]string // token hash -> user id
}

func (f *fakeRefreshTokenRepository) Set(_ context.Context, tokenHash, userID string, _ time.Duration) error {
	f.tokens[tokenHash] = userID
	return nil
}

func (f *fakeRefreshTokenRepository) Get(_ context.Context, tokenHash string) (string, error) {
	if userID, ok := f.tokens[tokenHash]; ok {
		return userID, nil
	}
	return "", apperr.NotFound("Refresh token")
}

func (f *fakeRefreshTokenRepository) Delete(_ context.Context, tokenHash string) error {
	delete(f.tokens, tokenHash)
	return nil
}

// fakeProvisioner records profile provisioning and can be told to fail.
type fakeProvisioner struct {
	provisioned []string
	fail        bool
}

func (f *fakeProvisioner) Provision(_ context.Context, userID string) error {
	if f.fail {
		return apperr.Internal(assert.AnError)
	}
	f.provisioned = append(f.provisioned, userID)
	return nil
}

// fakeTokenProvider issues predictable access tokens.
type fakeTokenProvider struct{}

func (fakeTokenProvider) GenerateAccessToken(userID, username, role string, _ time.Duration) (string, error) {
	return "access-" + userID, nil
}

type testEnv struct {
	service     *auth.Service
	users       *fakeUserRepository
	tokens      *fakeRefreshTokenRepository
	provisioner *fakeProvisioner
}

func newTestEnv() *testEnv {
	users := newFakeUserRepository()
	tokens := &fakeRefreshTokenRepository{tokens: map[string]string{}}
	provisioner := &fakeProvisioner{}

	service := auth.NewService(users, tokens, provisioner, fakeTokenProvider{}, slog.Default())
	return &testEnv{service: service, users: users, tokens: tokens, provisioner: provisioner}
}

/*
TestService_Register verifies enrollment, hashing, and profile provisioning.
*/
func TestService_Register(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	user, err := env.service.Register(ctx, auth.RegisterInput{
		Username: "ana",
		Email:    "ana@readfolio.app",
		Password: "s3cret-enough",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, user.ID)
	assert.Equal(t, sec.RoleMember, user.Role)

	// Plain-text password is never stored.
	assert.NotEqual(t, "s3cret-enough", user.PasswordHash)
	assert.True(t, sec.CheckPasswordHash("s3cret-enough", user.PasswordHash))

	// The reading profile exists before the first session.
	assert.Equal(t, []string{user.ID}, env.provisioner.provisioned)
}

/*
TestService_Register_Conflicts verifies duplicate identity rejection.
*/
func TestService_Register_Conflicts(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	_, err := env.service.Register(ctx, auth.RegisterInput{
		Username: "ana", Email: "ana@readfolio.app", Password: "s3cret-enough",
	})
	require.NoError(t, err)

	_, err = env.service.Register(ctx, auth.RegisterInput{
		Username: "other", Email: "ana@readfolio.app", Password: "s3cret-enough",
	})
	assert.Equal(t, "CONFLICT", apperr.As(err).Code)

	_, err = env.service.Register(ctx, auth.RegisterInput{
		Username: "ana", Email: "other@readfolio.app", Password: "s3cret-enough",
	})
	assert.Equal(t, "CONFLICT", apperr.As(err).Code)
}

/*
TestService_Register_ProvisionFailure verifies the compensating soft delete:
a failed profile write must not leave a usable half-created account behind.
*/
func TestService_Register_ProvisionFailure(t *testing.T) {
	env := newTestEnv()
	env.provisioner.fail = true

	_, err := env.service.Register(context.Background(), auth.RegisterInput{
		Username: "ana", Email: "ana@readfolio.app", Password: "s3cret-enough",
	})
	require.Error(t, err)

	_, err = env.users.FindByUsername(context.Background(), "ana")
	assert.Equal(t, "NOT_FOUND", apperr.As(err).Code)
}

/*
TestService_Login verifies credential checks and token issuance.
*/
func TestService_Login(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	registered, err := env.service.Register(ctx, auth.RegisterInput{
		Username: "ana", Email: "ana@readfolio.app", Password: "s3cret-enough",
	})
	require.NoError(t, err)

	t.Run("by_email", func(t *testing.T) {
		session, err := env.service.Login(ctx, auth.LoginInput{Login: "ana@readfolio.app", Password: "s3cret-enough"})
		require.NoError(t, err)
		assert.Equal(t, "access-"+registered.ID, session.AccessToken)
		assert.NotEmpty(t, session.RefreshToken)
	})

	t.Run("by_username", func(t *testing.T) {
		_, err := env.service.Login(ctx, auth.LoginInput{Login: "ana", Password: "s3cret-enough"})
		require.NoError(t, err)
	})

	t.Run("wrong_password", func(t *testing.T) {
		_, err := env.service.Login(ctx, auth.LoginInput{Login: "ana", Password: "wrong"})
		assert.Equal(t, "UNAUTHORIZED", apperr.As(err).Code)
	})

	t.Run("unknown_user", func(t *testing.T) {
		_, err := env.service.Login(ctx, auth.LoginInput{Login: "nobody", Password: "whatever"})
		assert.Equal(t, "UNAUTHORIZED", apperr.As(err).Code)
	})
}

/*
TestService_RefreshSession verifies refresh token rotation: the old token is
consumed and can never be replayed.
*/
func TestService_RefreshSession(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	_, err := env.service.Register(ctx, auth.RegisterInput{
		Username: "ana", Email: "ana@readfolio.app", Password: "s3cret-enough",
	})
	require.NoError(t, err)

	session, err := env.service.Login(ctx, auth.LoginInput{Login: "ana", Password: "s3cret-enough"})
	require.NoError(t, err)

	rotated, err := env.service.RefreshSession(ctx, session.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, session.RefreshToken, rotated.RefreshToken)

	// Replaying the consumed token fails closed.
	_, err = env.service.RefreshSession(ctx, session.RefreshToken)
	assert.Equal(t, "UNAUTHORIZED", apperr.As(err).Code)
}

/*
TestService_Logout verifies revocation and idempotency.
*/
func TestService_Logout(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	_, err := env.service.Register(ctx, auth.RegisterInput{
		Username: "ana", Email: "ana@readfolio.app", Password: "s3cret-enough",
	})
	require.NoError(t, err)

	session, err := env.service.Login(ctx, auth.LoginInput{Login: "ana", Password: "s3cret-enough"})
	require.NoError(t, err)

	require.NoError(t, env.service.Logout(ctx, session.RefreshToken))

	_, err = env.service.RefreshSession(ctx, session.RefreshToken)
	assert.Equal(t, "UNAUTHORIZED", apperr.As(err).Code)

	// Logging out twice is fine.
	require.NoError(t, env.service.Logout(ctx, session.RefreshToken))
}
