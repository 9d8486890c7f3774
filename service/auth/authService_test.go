// service/auth/auth_service_test.go
package authsvc

import (
	"context"
	"errors"
	"testing"

	"libcirc/model"
	"libcirc/util/hash"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

type mockRepo struct {
	byEmailFn func(ctx context.Context, email string) (*model.User, error)
	createFn  func(ctx context.Context, u *model.User) error
}

func (m *mockRepo) ByEmail(ctx context.Context, email string) (*model.User, error) {
	if m.byEmailFn == nil {
		return nil, errors.New("no rows")
	}
	return m.byEmailFn(ctx, email)
}

func (m *mockRepo) Create(ctx context.Context, u *model.User) error {
	if m.createFn == nil {
		return nil
	}
	return m.createFn(ctx, u)
}

func mustHash(t *testing.T, plain string) string {
	t.Helper()

	h, err := hash.HashPassword(plain)
	require.NoError(t, err)
	return h
}

// --- tests ---

func TestRegister_Success(t *testing.T) {
	ctx := context.Background()
	m := &mockRepo{
		createFn: func(ctx context.Context, u *model.User) error {
			u.ID = 42
			return nil
		},
	}
	svc := New(m)

	req := model.RegisterReq{
		FirstName: "Ada",
		LastName:  "Lovelace",
		Email:     "ada@example.com",
		Username:  "ada",
		Password:  "supersecret",
	}

	u, tok, err := svc.Register(ctx, req, "test-secret")
	require.NoError(t, err)
	require.NotNil(t, u)
	require.NotEmpty(t, tok)
	require.Equal(t, int64(42), u.ID)
	require.Equal(t, model.RoleMember, u.Role)
	require.NotEmpty(t, u.PasswordHash)
	require.NotEqual(t, req.Password, u.PasswordHash)
}

func TestRegister_EmailTaken(t *testing.T) {
	ctx := context.Background()
	m := &mockRepo{
		createFn: func(ctx context.Context, u *model.User) error {
			return &pgconn.PgError{
				Code:           "23505",
				ConstraintName: "users_email_key",
			}
		},
	}
	svc := New(m)

	_, _, err := svc.Register(ctx, model.RegisterReq{
		Email:    "taken@example.com",
		Username: "somebody",
		Password: "123456",
	}, "test-secret")
	require.ErrorIs(t, err, ErrEmailTaken)
}

func TestRegister_UsernameTaken(t *testing.T) {
	ctx := context.Background()
	m := &mockRepo{
		createFn: func(ctx context.Context, u *model.User) error {
			return &pgconn.PgError{
				Code:           "23505",
				ConstraintName: "users_username_key",
			}
		},
	}
	svc := New(m)

	_, _, err := svc.Register(ctx, model.RegisterReq{
		Email:    "ok@example.com",
		Username: "taken",
		Password: "123456",
	}, "test-secret")
	require.ErrorIs(t, err, ErrUsernameTaken)
}

func TestRegister_CreateError(t *testing.T) {
	ctx := context.Background()
	m := &mockRepo{
		createFn: func(ctx context.Context, u *model.User) error {
			return errors.New("db down")
		},
	}
	svc := New(m)

	_, _, err := svc.Register(ctx, model.RegisterReq{
		Email:    "ok@example.com",
		Username: "ok",
		Password: "123456",
	}, "test-secret")
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrEmailTaken)
	require.NotErrorIs(t, err, ErrUsernameTaken)
}

func TestLogin_Success(t *testing.T) {
	ctx := context.Background()
	pw := "supersecret"
	hashed := mustHash(t, pw)

	m := &mockRepo{
		byEmailFn: func(ctx context.Context, email string) (*model.User, error) {
			return &model.User{
				ID:           7,
				Email:        "ada@example.com",
				Username:     "ada",
				Role:         model.RoleMember,
				PasswordHash: hashed,
			}, nil
		},
	}
	svc := New(m)

	u, tok, err := svc.Login(ctx, model.LoginReq{
		Email:    "Ada@Example.com",
		Password: pw,
	}, "test-secret")
	require.NoError(t, err)
	require.NotNil(t, u)
	require.NotEmpty(t, tok)
	require.Equal(t, int64(7), u.ID)
}

func TestLogin_UserNotFound(t *testing.T) {
	ctx := context.Background()
	svc := New(&mockRepo{})

	_, _, err := svc.Login(ctx, model.LoginReq{
		Email:    "missing@example.com",
		Password: "whatever",
	}, "test-secret")
	require.ErrorIs(t, err, ErrInvalidCreds)
}

func TestLogin_WrongPassword(t *testing.T) {
	ctx := context.Background()
	hashed := mustHash(t, "correct-password")

	m := &mockRepo{
		byEmailFn: func(ctx context.Context, email string) (*model.User, error) {
			return &model.User{ID: 7, PasswordHash: hashed}, nil
		},
	}
	svc := New(m)

	_, _, err := svc.Login(ctx, model.LoginReq{
		Email:    "ada@example.com",
		Password: "not-the-password",
	}, "test-secret")
	require.ErrorIs(t, err, ErrInvalidCreds)
}
