package oneblog

import (
	"context"
	"errors"
	"time"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrUserExists   = errors.New("user already registered")
	ErrPostNotFound = errors.New("post not found")
)

// User is a blog account keyed by email.
//
// PasswordHash is empty for accounts that were only ever created through a
// federated login; such accounts cannot use the password form.
type User struct {
	Email        string `json:"email"`
	Username     string `json:"username"`
	PasswordHash string `json:"-"`
	AuthUsername string `json:"auth_username"` // display name reported by the identity provider
}

func (u *User) Id() string { return u.Email }

// HasPassword reports whether the account can log in with a password.
func (u *User) HasPassword() bool { return u != nil && u.PasswordHash != "" }

// Post is a blog entry. Posts carry no authorship link.
type Post struct {
	Id        int64     `json:"id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// Column bounds for posts and users.
const (
	MaxTitleLength        = 50
	MaxBodyLength         = 300
	MaxEmailLength        = 160
	MaxUsernameLength     = 40
	MaxPasswordHashLength = 200
)

// UserStore manages blog accounts
type UserStore interface {
	// GetUserByEmail returns ErrUserNotFound if no account exists for email
	GetUserByEmail(ctx context.Context, email string) (*User, error)

	// CreateUser inserts a new account. Returns ErrUserExists if the email is taken.
	CreateUser(ctx context.Context, user *User) error
}

// PostStore manages blog posts
type PostStore interface {
	// ListPosts returns all posts in insertion order
	ListPosts(ctx context.Context) ([]*Post, error)

	// GetPost returns ErrPostNotFound if there is no post with the id
	GetPost(ctx context.Context, id int64) (*Post, error)

	// CreatePost inserts post and assigns its Id
	CreatePost(ctx context.Context, post *Post) error

	// UpdatePost overwrites title and body of an existing post
	UpdatePost(ctx context.Context, post *Post) error

	// DeletePost removes the post with the id
	DeletePost(ctx context.Context, id int64) error
}
