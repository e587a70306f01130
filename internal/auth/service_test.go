package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/scholaris/scholaris/internal/shared"
)

type stubRepo struct {
	users map[string]*User
}

func (s *stubRepo) FindByEmail(ctx context.Context, email string) (*User, error) {
	u, ok := s.users[email]
	if !ok {
		return nil, shared.ErrInvalidCredentials
	}
	return u, nil
}

func hash(t *testing.T, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

func TestAuthenticate(t *testing.T) {
	repo := &stubRepo{users: map[string]*User{
		"amina@school.test":  {ID: 1, Name: "Amina", Email: "amina@school.test", PasswordHash: hash(t, "correct horse"), IsActive: true},
		"closed@school.test": {ID: 2, Name: "Closed", Email: "closed@school.test", PasswordHash: hash(t, "whatever"), IsActive: false},
	}}
	svc := NewService(repo)
	ctx := context.Background()

	user, err := svc.Authenticate(ctx, "amina@school.test", "correct horse")
	require.NoError(t, err)
	require.Equal(t, int64(1), user.ID)

	_, err = svc.Authenticate(ctx, "amina@school.test", "wrong password")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)

	_, err = svc.Authenticate(ctx, "nobody@school.test", "correct horse")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)

	// Inactive accounts report the same error as bad passwords.
	_, err = svc.Authenticate(ctx, "closed@school.test", "whatever")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
}
