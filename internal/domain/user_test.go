package domain

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUser(t *testing.T) {
	user, err := NewUser("  Test@Example.com ", "longenoughpassword")
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, user.ID)
	assert.Equal(t, "test@example.com", user.Email)
	assert.Equal(t, "longenoughpassword", user.Password)
	assert.False(t, user.CreatedAt.IsZero())
	assert.Equal(t, user.CreatedAt, user.UpdatedAt)
}

func TestUserValidate(t *testing.T) {
	valid := func() *User {
		return &User{ID: uuid.New(), Email: "a@example.com", HashedPassword: "$2a$10$hash"}
	}

	tests := []struct {
		name    string
		mutate  func(u *User)
		wantErr error
	}{
		{"valid stored user", func(u *User) {}, nil},
		{"missing id", func(u *User) { u.ID = uuid.Nil }, ErrEmptyUserID},
		{"missing email", func(u *User) { u.Email = "" }, ErrEmptyEmail},
		{"malformed email", func(u *User) { u.Email = "not-an-email" }, ErrInvalidEmail},
		{"display name email", func(u *User) { u.Email = "Bob <bob@example.com>" }, ErrInvalidEmail},
		{"short password", func(u *User) { u.Password = "short" }, ErrPasswordTooShort},
		{"long password", func(u *User) { u.Password = strings.Repeat("x", 73) }, ErrPasswordTooLong},
		{"no password at all", func(u *User) { u.HashedPassword = "" }, ErrEmptyPassword},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := valid()
			tt.mutate(u)
			err := u.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
			assert.True(t, errors.Is(err, ErrValidation), "every validation error wraps ErrValidation")
		})
	}
}
