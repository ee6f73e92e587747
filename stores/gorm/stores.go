//go:build !wasm
// +build !wasm

package gorm

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	ob "github.com/panyam/oneblog"
)

// NewLogger routes GORM's logging through the standard logger, reporting slow
// queries and errors only.
func NewLogger(level logger.LogLevel) logger.Interface {
	return logger.New(log.New(os.Stderr, "\r\n", log.LstdFlags), logger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  level,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})
}

// Open connects to the database named by driver ("sqlite" or "postgres") and
// migrates the blog tables.
func Open(driver, dsn string, gormLogger logger.Interface) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case "", "sqlite":
		dialector = sqlite.Open(sqliteDSN(dsn))
	case "postgres":
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         gormLogger,
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return db, nil
}

func sqliteDSN(path string) string {
	if strings.Contains(path, "_pragma=") {
		return path
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

// AutoMigrate runs database migrations for all blog tables
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&UserModel{},
		&PostModel{},
	)
}

// =============================================================================
// UserStore
// =============================================================================

// UserStore implements ob.UserStore using GORM
type UserStore struct {
	db *gorm.DB
}

func NewUserStore(db *gorm.DB) *UserStore {
	return &UserStore{db: db}
}

func (s *UserStore) GetUserByEmail(ctx context.Context, email string) (*ob.User, error) {
	var model UserModel
	if err := s.db.WithContext(ctx).First(&model, "email = ?", email).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ob.ErrUserNotFound
		}
		return nil, err
	}
	return model.ToUser(), nil
}

func (s *UserStore) CreateUser(ctx context.Context, user *ob.User) error {
	model := UserToModel(user)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&UserModel{}).Where("email = ?", user.Email).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ob.ErrUserExists
		}
		return tx.Create(model).Error
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ob.ErrUserExists
	}
	return err
}

// =============================================================================
// PostStore
// =============================================================================

// PostStore implements ob.PostStore using GORM
type PostStore struct {
	db *gorm.DB
}

func NewPostStore(db *gorm.DB) *PostStore {
	return &PostStore{db: db}
}

func (s *PostStore) ListPosts(ctx context.Context) ([]*ob.Post, error) {
	var models []PostModel
	if err := s.db.WithContext(ctx).Order("id asc").Find(&models).Error; err != nil {
		return nil, err
	}
	posts := make([]*ob.Post, len(models))
	for i, m := range models {
		posts[i] = m.ToPost()
	}
	return posts, nil
}

func (s *PostStore) GetPost(ctx context.Context, id int64) (*ob.Post, error) {
	var model PostModel
	if err := s.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ob.ErrPostNotFound
		}
		return nil, err
	}
	return model.ToPost(), nil
}

func (s *PostStore) CreatePost(ctx context.Context, post *ob.Post) error {
	model := PostToModel(post)
	model.ID = 0
	if err := s.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	post.Id = model.ID
	return nil
}

func (s *PostStore) UpdatePost(ctx context.Context, post *ob.Post) error {
	result := s.db.WithContext(ctx).Model(&PostModel{}).
		Where("id = ?", post.Id).
		Updates(map[string]any{"title": post.Title, "body": post.Body})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ob.ErrPostNotFound
	}
	return nil
}

func (s *PostStore) DeletePost(ctx context.Context, id int64) error {
	result := s.db.WithContext(ctx).Delete(&PostModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ob.ErrPostNotFound
	}
	return nil
}
