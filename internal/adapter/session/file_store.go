package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/Yess-prog/PI-myBank-app/internal/domain"
)

// FileStore keeps the login session in a JSON file readable only by its owner
type FileStore struct {
	Path   string
	Logger *zap.Logger

	// now is replaced in tests
	now func() time.Time
	mu  sync.RWMutex
}

// NewFileStore creates a new FileStore instance
func NewFileStore(path string, logger *zap.Logger) *FileStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileStore{Path: path, Logger: logger, now: time.Now}
}

// clock and logger let a zero-value FileStore{Path: p} work like one from NewFileStore
func (s *FileStore) clock() time.Time {
	if s.now == nil {
		return time.Now()
	}
	return s.now()
}

func (s *FileStore) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}

// Save writes record, replacing any previous session
func (s *FileStore) Save(ctx context.Context, record domain.SessionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.Path), 0o700); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}

	tmp := s.Path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write session: %w", err)
	}
	if err := os.Rename(tmp, s.Path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to write session: %w", err)
	}

	s.logger().Debug("session saved", zap.String("user_id", record.UserID))
	return nil
}

// Load returns the stored record, or nil when nobody is logged in
func (s *FileStore) Load(ctx context.Context) (*domain.SessionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session: %w", err)
	}

	var record domain.SessionRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	return &record, nil
}

// Clear removes the stored session. Clearing an absent session is not an error.
func (s *FileStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

// CurrentToken returns the stored bearer token.
// A JWT whose exp claim has passed is reported as absent; opaque tokens are returned as is.
func (s *FileStore) CurrentToken(ctx context.Context) (domain.Token, bool) {
	record, err := s.Load(ctx)
	if err != nil {
		s.logger().Warn("session unreadable", zap.Error(err))
		return "", false
	}
	if record == nil || record.Token == "" {
		return "", false
	}

	if expiresAt, ok := tokenExpiry(string(record.Token)); ok && !s.clock().Before(expiresAt) {
		s.logger().Info("session token expired", zap.Time("expires_at", expiresAt))
		return "", false
	}
	return record.Token, true
}

// UserID returns the id saved at login
func (s *FileStore) UserID(ctx context.Context) (string, bool) {
	record, err := s.Load(ctx)
	if err != nil || record == nil || record.UserID == "" {
		return "", false
	}
	return record.UserID, true
}

// tokenExpiry reads the exp claim without verifying the signature;
// the client has no key to verify with and the backend remains the arbiter.
func tokenExpiry(token string) (time.Time, bool) {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}
