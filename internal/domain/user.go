package domain

import (
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
)

// User validation errors.
var (
	ErrEmptyUserID      = errors.New("user ID cannot be empty")
	ErrEmptyEmail       = errors.New("email cannot be empty")
	ErrPasswordTooShort = errors.New("password must be at least 12 characters long")
	ErrPasswordTooLong  = errors.New("password must be at most 72 characters long")
	ErrEmptyPassword    = errors.New("password cannot be empty")
)

// Password length bounds, in bytes.
const (
	MinPasswordLength = 12
	// bcrypt ignores input past 72 bytes.
	MaxPasswordLength = 72
)

// User represents a registered user who owns generations.
type User struct {
	ID             uuid.UUID `json:"id"`
	Email          string    `json:"email"`
	Password       string    `json:"-"` // Plaintext password, used temporarily during registration
	HashedPassword string    `json:"-"` // Never expose password hash in JSON
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// NewUser creates a new User with the given email and plaintext password.
// Emails are normalized to lower case. The caller is responsible for hashing
// the password before the user is stored.
func NewUser(email, password string) (*User, error) {
	now := time.Now().UTC()
	user := &User{
		ID:        uuid.New(),
		Email:     strings.ToLower(strings.TrimSpace(email)),
		Password:  password,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := user.Validate(); err != nil {
		return nil, err
	}

	return user, nil
}

// Validate checks if the User has valid data.
func (u *User) Validate() error {
	if u.ID == uuid.Nil {
		return NewValidationError("id", "must be set", ErrEmptyUserID)
	}

	if u.Email == "" {
		return NewValidationError("email", "is required", ErrEmptyEmail)
	}
	if addr, err := mail.ParseAddress(u.Email); err != nil || addr.Address != u.Email {
		return NewValidationError("email", "is malformed", ErrInvalidEmail)
	}

	// A plaintext password is only present during registration; stored users
	// carry the hash instead.
	switch {
	case u.Password != "" && len(u.Password) < MinPasswordLength:
		return NewValidationError("password", "is too short", ErrPasswordTooShort)
	case u.Password != "" && len(u.Password) > MaxPasswordLength:
		return NewValidationError("password", "is too long", ErrPasswordTooLong)
	case u.Password == "" && u.HashedPassword == "":
		return NewValidationError("password", "is required", ErrEmptyPassword)
	}

	return nil
}
