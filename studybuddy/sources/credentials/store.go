// Package credentials persists user records as a single JSON file that is
// read and rewritten as a whole on every operation.
package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"studybuddy/studybuddy/types"
	"studybuddy/studybuddy/utils/logging"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type Store struct {
	path string
	cost int
	mu   sync.Mutex
}

type Option func(*Store)

// WithBcryptCost overrides bcrypt.DefaultCost. Tests use bcrypt.MinCost.
func WithBcryptCost(cost int) Option {
	return func(s *Store) { s.cost = cost }
}

func NewStore(path string, opts ...Option) *Store {
	s := &Store{path: path, cost: bcrypt.DefaultCost}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load reads the whole mapping. A missing file is an empty mapping; corrupt
// contents are reported as ErrStorageParse.
func (s *Store) Load() (map[string]types.UserRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *Store) load() (map[string]types.UserRecord, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]types.UserRecord{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}
	users := map[string]types.UserRecord{}
	if err := json.Unmarshal(data, &users); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", types.ErrStorageParse, s.path, err)
	}
	for name, rec := range users {
		rec.Username = name
		users[name] = rec
	}
	return users, nil
}

// Save overwrites the file with the entire mapping.
func (s *Store) Save(users map[string]types.UserRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(users)
}

func (s *Store) save(users map[string]types.UserRecord) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create credentials dir: %w", err)
	}
	data, err := json.MarshalIndent(users, "", "    ")
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write credentials: %w", err)
	}
	return os.Rename(tmp, s.path)
}

// Authenticate checks username and password. Legacy SHA-256 hashes are
// accepted and replaced with bcrypt on success.
func (s *Store) Authenticate(ctx context.Context, username, password string) (*types.UserRecord, error) {
	username = strings.TrimSpace(username)

	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.load()
	if err != nil {
		return nil, err
	}
	rec, ok := users[username]
	if !ok {
		return nil, types.ErrAuthenticationFailure
	}
	match, legacy := checkPassword(rec.PasswordHash, password)
	if !match {
		return nil, types.ErrAuthenticationFailure
	}
	if legacy {
		if hash, err := hashPassword(password, s.cost); err == nil {
			rec.PasswordHash = hash
			users[username] = rec
			if err := s.save(users); err != nil {
				logging.ErrorLogger.Error("password hash upgrade failed", zap.String("username", username), zap.Error(err))
			} else {
				logging.AppLogger.Info("upgraded legacy password hash", zap.String("username", username))
			}
		}
	}
	return &rec, nil
}

// Register inserts a new user and persists the mapping.
func (s *Store) Register(ctx context.Context, username, password, mobile string) (*types.UserRecord, error) {
	username = strings.TrimSpace(username)
	mobile = strings.TrimSpace(mobile)
	if username == "" || password == "" || mobile == "" {
		return nil, fmt.Errorf("%w: please fill in all fields", types.ErrInvalidInput)
	}
	if err := types.ValidateUsername(username); err != nil {
		return nil, err
	}
	if len(password) > maxPasswordBytes {
		return nil, fmt.Errorf("%w: password must be at most %d bytes", types.ErrInvalidInput, maxPasswordBytes)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.load()
	if err != nil {
		return nil, err
	}
	if _, exists := users[username]; exists {
		return nil, types.ErrDuplicateUser
	}
	hash, err := hashPassword(password, s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	rec := types.UserRecord{Username: username, PasswordHash: hash, MobileNumber: mobile}
	users[username] = rec
	if err := s.save(users); err != nil {
		return nil, err
	}
	return &rec, nil
}
