package oneblog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// AvailableOperations tells the verification form which actions an email may use.
// Both false means the account exists but can only sign in through the federated provider.
type AvailableOperations struct {
	Login    bool `json:"login"`
	Register bool `json:"register"`
}

// Classify decides which of register, password login or federated-only login
// applies to email.
func Classify(ctx context.Context, users UserStore, email string) (AvailableOperations, error) {
	user, err := users.GetUserByEmail(ctx, NormalizeEmail(email))
	if errors.Is(err, ErrUserNotFound) {
		return AvailableOperations{Register: true}, nil
	}
	if err != nil {
		return AvailableOperations{}, err
	}
	return AvailableOperations{Login: user.HasPassword()}, nil
}

// NormalizeEmail is applied to every email before it is stored or looked up
func NormalizeEmail(email string) string {
	return strings.TrimSpace(email)
}

// Credentials represents what the verification form submits
type Credentials struct {
	Email    string
	Username string
	Password string
}

// CredentialsValidator validates an email/password pair and returns the user
type CredentialsValidator func(ctx context.Context, email, password string) (*User, error)

// CreateUserFunc creates a new password account
type CreateUserFunc func(ctx context.Context, creds *Credentials) (*User, error)

// EnsureFederatedUserFunc resolves the account for a provider identity, creating it if needed
type EnsureFederatedUserFunc func(ctx context.Context, email, name string) (*User, error)

var ErrInvalidCredentials = errors.New("invalid credentials")

// NewCreateUserFunc creates a CreateUserFunc backed by users
func NewCreateUserFunc(users UserStore) CreateUserFunc {
	return func(ctx context.Context, creds *Credentials) (*User, error) {
		email := NormalizeEmail(creds.Email)
		if email == "" || creds.Password == "" {
			return nil, fmt.Errorf("email and password required")
		}
		if len(email) > MaxEmailLength {
			return nil, fmt.Errorf("email must be at most %d characters", MaxEmailLength)
		}
		if len([]rune(creds.Username)) > MaxUsernameLength {
			return nil, fmt.Errorf("username must be at most %d characters", MaxUsernameLength)
		}

		passwordHash, err := GeneratePasswordHash(creds.Password)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}

		user := &User{
			Email:        email,
			Username:     creds.Username,
			PasswordHash: passwordHash,
		}
		if err := users.CreateUser(ctx, user); err != nil {
			return nil, fmt.Errorf("failed to create user: %w", err)
		}
		slog.InfoContext(ctx, "created local user", "email", email)
		return user, nil
	}
}

// NewCredentialsValidator creates a CredentialsValidator backed by users.
// Accounts without a password hash never validate.
func NewCredentialsValidator(users UserStore) CredentialsValidator {
	return func(ctx context.Context, email, password string) (*User, error) {
		user, err := users.GetUserByEmail(ctx, NormalizeEmail(email))
		if err != nil {
			if errors.Is(err, ErrUserNotFound) {
				return nil, ErrInvalidCredentials
			}
			return nil, err
		}
		if !user.HasPassword() || !CheckPasswordHash(user.PasswordHash, password) {
			return nil, ErrInvalidCredentials
		}
		return user, nil
	}
}

// NewEnsureFederatedUserFunc creates an EnsureFederatedUserFunc backed by users.
//
// An unseen email gets a new account with no password and the provider's name as
// both username and auth username. An existing account is returned unchanged.
func NewEnsureFederatedUserFunc(users UserStore) EnsureFederatedUserFunc {
	return func(ctx context.Context, email, name string) (*User, error) {
		email = NormalizeEmail(email)
		if email == "" {
			return nil, fmt.Errorf("identity provider did not return an email")
		}
		user, err := users.GetUserByEmail(ctx, email)
		if err == nil {
			return user, nil
		}
		if !errors.Is(err, ErrUserNotFound) {
			return nil, err
		}

		name = truncateRunes(name, MaxUsernameLength)
		user = &User{
			Email:        email,
			Username:     name,
			AuthUsername: name,
		}
		if err := users.CreateUser(ctx, user); err != nil {
			if errors.Is(err, ErrUserExists) {
				// another login for the same email won the insert
				return users.GetUserByEmail(ctx, email)
			}
			return nil, fmt.Errorf("failed to create user: %w", err)
		}
		slog.InfoContext(ctx, "created federated user", "email", email)
		return user, nil
	}
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
