package sqlitestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/most4f4/chowhub/internal/session/app"
	"github.com/most4f4/chowhub/internal/session/domain"
)

// sessionRecord is the single remembered session. The user is stored as
// serialized JSON, mirroring how the browser client kept it.
type sessionRecord struct {
	ID        uint `gorm:"primaryKey"`
	Token     string
	UserJSON  string
	UpdatedAt time.Time
}

func (sessionRecord) TableName() string { return "sessions" }

// Store persists the session in a local sqlite file, the localStorage
// analog for "remember me".
type Store struct {
	db *gorm.DB
}

func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("create state dir: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open state db: %w", err)
	}
	if err := db.AutoMigrate(&sessionRecord{}); err != nil {
		return nil, fmt.Errorf("migrate state db: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Load(ctx context.Context) (domain.Session, error) {
	var rec sessionRecord
	err := s.db.WithContext(ctx).First(&rec, 1).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Session{}, app.ErrNoSession
		}
		return domain.Session{}, fmt.Errorf("load session: %w", err)
	}

	var user domain.User
	if rec.UserJSON != "" {
		if err := json.Unmarshal([]byte(rec.UserJSON), &user); err != nil {
			return domain.Session{}, fmt.Errorf("decode stored user: %w", err)
		}
	}
	return domain.Session{Token: rec.Token, User: user}, nil
}

func (s *Store) Save(ctx context.Context, sess domain.Session) error {
	raw, err := json.Marshal(sess.User)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}

	rec := sessionRecord{ID: 1, Token: sess.Token, UserJSON: string(raw)}
	if err := s.db.WithContext(ctx).Save(&rec).Error; err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (s *Store) Clear(ctx context.Context) error {
	err := s.db.WithContext(ctx).Delete(&sessionRecord{}, 1).Error
	if err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}
