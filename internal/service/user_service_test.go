package service

import (
	"context"
	"testing"
	"time"

	"accessctl/internal/model"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var testJWTSecret = []byte("test_secret")

func newTestUserService() (UserService, *fakeUserRepo, *fakeAuditRepo) {
	repo := newFakeUserRepo()
	audit := &fakeAuditRepo{}
	svc := NewUserService(repo, audit, fakeTxManager{}, testJWTSecret)
	return svc, repo, audit
}

type fakeUserRepo struct {
	users  map[uuid.UUID]*model.User
	tokens map[string]*model.RefreshToken
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		users:  make(map[uuid.UUID]*model.User),
		tokens: make(map[string]*model.RefreshToken),
	}
}

func (f *fakeUserRepo) Create(_ context.Context, user *model.User) error {
	user.ID = uuid.New()
	f.users[user.ID] = user
	return nil
}

func (f *fakeUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, gorm.ErrRecordNotFound
	}
	if u, ok := f.users[parsed]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeUserRepo) GetByUsername(_ context.Context, username string) (*model.User, error) {
	for _, u := range f.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeUserRepo) List(_ context.Context, _, _ int) ([]model.User, int64, error) {
	res := make([]model.User, 0, len(f.users))
	for _, u := range f.users {
		res = append(res, *u)
	}
	return res, int64(len(res)), nil
}

func (f *fakeUserRepo) Update(_ context.Context, user *model.User) error {
	f.users[user.ID] = user
	return nil
}

func (f *fakeUserRepo) Delete(_ context.Context, id string) error {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return gorm.ErrRecordNotFound
	}
	delete(f.users, parsed)
	return nil
}

func (f *fakeUserRepo) SaveRefreshToken(_ context.Context, token *model.RefreshToken) error {
	f.tokens[token.Token] = token
	return nil
}

func (f *fakeUserRepo) GetRefreshToken(_ context.Context, token string) (*model.RefreshToken, error) {
	if rt, ok := f.tokens[token]; ok {
		clone := *rt
		if u, ok := f.users[rt.UserID]; ok {
			clone.User = *u
		}
		return &clone, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeUserRepo) DeleteRefreshToken(_ context.Context, token string) error {
	delete(f.tokens, token)
	return nil
}

func seedUser(t *testing.T, repo *fakeUserRepo, email, password, role string, active bool) *model.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	user := &model.User{
		Username: email,
		Email:    email,
		Password: string(hash),
		Role:     role,
		IsActive: active,
	}
	require.NoError(t, repo.Create(context.Background(), user))
	return user
}

func TestLoginIssuesTokenPair(t *testing.T) {
	svc, repo, _ := newTestUserService()
	user := seedUser(t, repo, "admin@example.com", "secret123", model.RoleAdmin, true)

	tokens, err := svc.Login(context.Background(), LoginUserRequest{
		Email:    "admin@example.com",
		Password: "secret123",
	})
	require.NoError(t, err)
	require.NotEmpty(t, tokens.Token)
	require.NotEmpty(t, tokens.RefreshToken)

	// Access token carries the subject and role claims the guard checks
	parsed, err := jwt.Parse(tokens.Token, func(_ *jwt.Token) (interface{}, error) {
		return testJWTSecret, nil
	})
	require.NoError(t, err)
	claims := parsed.Claims.(jwt.MapClaims)
	assert.Equal(t, user.ID.String(), claims["sub"])
	assert.Equal(t, model.RoleAdmin, claims["role"])

	// Refresh token persisted server-side
	_, ok := repo.tokens[tokens.RefreshToken]
	assert.True(t, ok)
}

func TestLoginRejections(t *testing.T) {
	svc, repo, _ := newTestUserService()
	seedUser(t, repo, "admin@example.com", "secret123", model.RoleAdmin, true)
	seedUser(t, repo, "gone@example.com", "secret123", model.RoleAdmin, false)

	cases := []struct {
		name  string
		email string
		pass  string
	}{
		{"unknown email", "nobody@example.com", "secret123"},
		{"wrong password", "admin@example.com", "wrong"},
		{"disabled account", "gone@example.com", "secret123"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Login(context.Background(), LoginUserRequest{Email: tc.email, Password: tc.pass})
			assert.Error(t, err)
		})
	}
}

func TestRefreshRotatesToken(t *testing.T) {
	svc, repo, _ := newTestUserService()
	seedUser(t, repo, "admin@example.com", "secret123", model.RoleAdmin, true)

	first, err := svc.Login(context.Background(), LoginUserRequest{
		Email:    "admin@example.com",
		Password: "secret123",
	})
	require.NoError(t, err)

	second, err := svc.Refresh(context.Background(), RefreshTokenRequest{RefreshToken: first.RefreshToken})
	require.NoError(t, err)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)

	// The used token is revoked: replaying it fails
	_, err = svc.Refresh(context.Background(), RefreshTokenRequest{RefreshToken: first.RefreshToken})
	assert.Error(t, err)
}

func TestRefreshExpiredToken(t *testing.T) {
	svc, repo, _ := newTestUserService()
	user := seedUser(t, repo, "admin@example.com", "secret123", model.RoleAdmin, true)

	stale := &model.RefreshToken{
		UserID:    user.ID,
		Token:     uuid.NewString(),
		ExpiresAt: time.Now().Add(-time.Minute),
	}
	require.NoError(t, repo.SaveRefreshToken(context.Background(), stale))

	_, err := svc.Refresh(context.Background(), RefreshTokenRequest{RefreshToken: stale.Token})
	assert.Error(t, err)

	// Expired token is cleaned up
	_, ok := repo.tokens[stale.Token]
	assert.False(t, ok)
}

func TestCreateUserValidation(t *testing.T) {
	svc, repo, _ := newTestUserService()
	seedUser(t, repo, "taken@example.com", "secret123", model.RoleAdmin, true)

	cases := []struct {
		name string
		req  CreateUserRequest
	}{
		{"bad role", CreateUserRequest{Username: "u", Email: "u@example.com", Password: "secret123", Role: "root"}},
		{"bad email", CreateUserRequest{Username: "u", Email: "not-an-email", Password: "secret123", Role: model.RoleViewer}},
		{"duplicate username", CreateUserRequest{Username: "taken@example.com", Email: "new@example.com", Password: "secret123", Role: model.RoleViewer}},
		{"duplicate email", CreateUserRequest{Username: "fresh", Email: "taken@example.com", Password: "secret123", Role: model.RoleViewer}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateUser(context.Background(), "", tc.req)
			assert.Error(t, err)
		})
	}
}

func TestCreateUserHashesPassword(t *testing.T) {
	svc, repo, _ := newTestUserService()

	resp, err := svc.CreateUser(context.Background(), "", CreateUserRequest{
		Username: "viewer",
		Email:    "viewer@example.com",
		Password: "secret123",
		Role:     model.RoleViewer,
	})
	require.NoError(t, err)
	assert.True(t, resp.IsActive)

	stored := repo.users[resp.ID]
	require.NotNil(t, stored)
	assert.NotEqual(t, "secret123", stored.Password)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.Password), []byte("secret123")))
}

func TestUpdateUserRoleAndStatus(t *testing.T) {
	svc, repo, _ := newTestUserService()
	user := seedUser(t, repo, "admin@example.com", "secret123", model.RoleAdmin, true)

	inactive := false
	resp, err := svc.UpdateUser(context.Background(), "", user.ID.String(), UpdateUserRequest{
		Role:     model.RoleViewer,
		IsActive: &inactive,
	})
	require.NoError(t, err)
	assert.Equal(t, model.RoleViewer, resp.Role)
	assert.False(t, resp.IsActive)

	_, err = svc.UpdateUser(context.Background(), "", user.ID.String(), UpdateUserRequest{Role: "root"})
	assert.Error(t, err)
}

func TestUserMutationsAudited(t *testing.T) {
	svc, repo, audit := newTestUserService()
	ctx := context.Background()
	actor := seedUser(t, repo, "root@example.com", "secret123", model.RoleSuperAdmin, true)

	created, err := svc.CreateUser(ctx, actor.ID.String(), CreateUserRequest{
		Username: "viewer",
		Email:    "viewer@example.com",
		Password: "secret123",
		Role:     model.RoleViewer,
	})
	require.NoError(t, err)

	_, err = svc.UpdateUser(ctx, actor.ID.String(), created.ID.String(), UpdateUserRequest{Role: model.RoleAdmin})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteUser(ctx, actor.ID.String(), created.ID.String()))

	require.Len(t, audit.entries, 3)
	actions := []string{audit.entries[0].Action, audit.entries[1].Action, audit.entries[2].Action}
	assert.Equal(t, []string{model.ActionCreateUser, model.ActionUpdateUser, model.ActionDeleteUser}, actions)

	for _, entry := range audit.entries {
		require.NotNil(t, entry.UserID)
		assert.Equal(t, actor.ID, *entry.UserID)
		assert.Equal(t, created.ID.String(), entry.EntityID)
		assert.Equal(t, "viewer", entry.EntityName)
		// The password hash never lands in the audit trail
		assert.NotContains(t, entry.Details, "password")
		assert.NotContains(t, entry.Details, "$2a$")
	}
}

func TestDeleteUserNotFound(t *testing.T) {
	svc, _, audit := newTestUserService()

	err := svc.DeleteUser(context.Background(), "", uuid.NewString())
	assert.Error(t, err)
	assert.Empty(t, audit.entries)
}
