//go:build !wasm
// +build !wasm

package gorm

import (
	"time"

	ob "github.com/panyam/oneblog"
)

// UserModel is the GORM model for users
type UserModel struct {
	Email        string    `gorm:"primaryKey;size:160"`
	Username     string    `gorm:"size:40;not null"`
	PasswordHash string    `gorm:"size:200;not null;default:''"`
	AuthUsername string    `gorm:"size:40;not null;default:''"`
	CreatedAt    time.Time `gorm:"autoCreateTime"`
}

func (UserModel) TableName() string {
	return "users"
}

func (m *UserModel) ToUser() *ob.User {
	return &ob.User{
		Email:        m.Email,
		Username:     m.Username,
		PasswordHash: m.PasswordHash,
		AuthUsername: m.AuthUsername,
	}
}

func UserToModel(u *ob.User) *UserModel {
	return &UserModel{
		Email:        u.Email,
		Username:     u.Username,
		PasswordHash: u.PasswordHash,
		AuthUsername: u.AuthUsername,
	}
}

// PostModel is the GORM model for posts.
// CreatedAt is set by the caller so it carries the blog's timezone.
type PostModel struct {
	ID        int64     `gorm:"primaryKey;autoIncrement"`
	Title     string    `gorm:"size:50;not null"`
	Body      string    `gorm:"size:300;not null"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime:false"`
}

func (PostModel) TableName() string {
	return "posts"
}

func (m *PostModel) ToPost() *ob.Post {
	return &ob.Post{
		Id:        m.ID,
		Title:     m.Title,
		Body:      m.Body,
		CreatedAt: m.CreatedAt,
	}
}

func PostToModel(p *ob.Post) *PostModel {
	return &PostModel{
		ID:        p.Id,
		Title:     p.Title,
		Body:      p.Body,
		CreatedAt: p.CreatedAt,
	}
}
