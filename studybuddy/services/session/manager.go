package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"studybuddy/studybuddy/services/themes"
	"studybuddy/studybuddy/sources/credentials"
	"studybuddy/studybuddy/sources/sessions"
	"studybuddy/studybuddy/sources/transcripts"
	"studybuddy/studybuddy/types"
	"studybuddy/studybuddy/utils/logging"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const maxResyncAttempts = 3

type State string

const (
	StateLoggedOut    State = "logged_out"
	StateNoActiveChat State = "logged_in_no_active_chat"
	StateActiveChat   State = "logged_in_active_chat"
)

// Claims ties a token to one session record. Logging out deletes the record,
// which invalidates the token even before exp.
type Claims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// Login is the result of a successful login or registration.
type Login struct {
	Token     string
	ExpiresAt time.Time
	Session   *sessions.SessionData
}

type Manager struct {
	creds       *credentials.Store
	transcripts *transcripts.Store
	store       sessions.Store
	secret      []byte
	ttl         time.Duration
	now         func() time.Time
}

type Option func(*Manager)

func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

func NewManager(creds *credentials.Store, tr *transcripts.Store, store sessions.Store, secret []byte, ttl time.Duration, opts ...Option) (*Manager, error) {
	if len(secret) == 0 {
		return nil, fmt.Errorf("%w: empty token secret", types.ErrConfiguration)
	}
	m := &Manager{
		creds:       creds,
		transcripts: tr,
		store:       store,
		secret:      secret,
		ttl:         ttl,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

func (m *Manager) Login(ctx context.Context, username, password string) (*Login, error) {
	rec, err := m.creds.Authenticate(ctx, username, password)
	if err != nil {
		return nil, err
	}
	return m.issue(ctx, rec.Username)
}

// Register creates the account and logs it in.
func (m *Manager) Register(ctx context.Context, username, password, mobile string) (*Login, error) {
	rec, err := m.creds.Register(ctx, username, password, mobile)
	if err != nil {
		return nil, err
	}
	return m.issue(ctx, rec.Username)
}

func (m *Manager) issue(ctx context.Context, username string) (*Login, error) {
	sess := &sessions.SessionData{
		ID:       uuid.NewString(),
		Username: username,
		Theme:    themes.Default,
	}
	if err := m.store.Create(ctx, sess); err != nil {
		return nil, err
	}

	expiresAt := m.now().Add(m.ttl)
	claims := Claims{
		SessionID: sess.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(m.now()),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		_ = m.store.Delete(ctx, sess.ID)
		return nil, err
	}

	logging.AppLogger.Info("session started", zap.String("username", username), zap.String("session_id", sess.ID))
	return &Login{Token: token, ExpiresAt: expiresAt, Session: sess}, nil
}

// Resolve maps a bearer token to its live session. Any invalid, expired or
// logged-out token yields ErrSessionExpired.
func (m *Manager) Resolve(ctx context.Context, token string) (*sessions.SessionData, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		return m.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(m.now), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrSessionExpired, err)
	}

	sess, err := m.store.Get(ctx, claims.SessionID)
	if err != nil {
		return nil, err
	}
	if sess == nil || sess.Username != claims.Subject {
		return nil, types.ErrSessionExpired
	}
	return sess, nil
}

// Logout deletes the session. Messages not yet persisted are discarded.
func (m *Manager) Logout(ctx context.Context, sess *sessions.SessionData) error {
	if err := m.store.Delete(ctx, sess.ID); err != nil {
		return err
	}
	logging.AppLogger.Info("session ended", zap.String("username", sess.Username), zap.String("session_id", sess.ID))
	return nil
}

func StateOf(sess *sessions.SessionData) State {
	switch {
	case sess == nil:
		return StateLoggedOut
	case sess.ActiveConversation == "":
		return StateNoActiveChat
	default:
		return StateActiveChat
	}
}

func (m *Manager) ListConversations(ctx context.Context, sess *sessions.SessionData) ([]string, error) {
	return m.transcripts.ListConversations(sess.Username)
}

// NewConversation creates a transcript and makes it active.
func (m *Manager) NewConversation(ctx context.Context, sess *sessions.SessionData) (string, error) {
	id, err := m.transcripts.CreateConversation(sess.Username)
	if err != nil {
		return "", err
	}
	m.activate(sess, id)
	if err := m.Save(ctx, sess); err != nil {
		return "", err
	}
	return id, nil
}

// OpenConversation makes an existing transcript active and returns its messages.
func (m *Manager) OpenConversation(ctx context.Context, sess *sessions.SessionData, id string) ([]types.Message, error) {
	if err := transcripts.ValidateID(id); err != nil {
		return nil, err
	}
	if !m.transcripts.Exists(sess.Username, id) {
		return nil, fmt.Errorf("%w: conversation %s", types.ErrNotFound, id)
	}
	m.activate(sess, id)
	if err := m.Save(ctx, sess); err != nil {
		return nil, err
	}
	return sess.Messages, nil
}

func (m *Manager) activate(sess *sessions.SessionData, id string) {
	if sess.Persisted < len(sess.Messages) {
		logging.AppLogger.Info("discarding unsaved messages",
			zap.String("session_id", sess.ID), zap.Int("count", len(sess.Messages)-sess.Persisted))
	}
	msgs := m.transcripts.LoadConversation(sess.Username, id)
	sess.ActiveConversation = id
	sess.Messages = msgs
	sess.Persisted = len(msgs)
}

// DeleteConversation removes a transcript. Deleting the active one leaves the
// session with no active conversation.
func (m *Manager) DeleteConversation(ctx context.Context, sess *sessions.SessionData, id string) error {
	if err := m.transcripts.DeleteConversation(sess.Username, id); err != nil {
		return err
	}
	if sess.ActiveConversation != id {
		return nil
	}
	sess.ActiveConversation = ""
	sess.Messages = nil
	sess.Persisted = 0
	return m.Save(ctx, sess)
}

func (m *Manager) SetTheme(ctx context.Context, sess *sessions.SessionData, theme string) error {
	if err := themes.Validate(theme); err != nil {
		return err
	}
	sess.Theme = theme
	return m.Save(ctx, sess)
}

// Resync recovers from a conflicting save after a chat turn was already
// written to disk. It takes the stored copy of the session, rebuilds the
// conversation's messages from disk if it is still active, and saves again.
func (m *Manager) Resync(ctx context.Context, sess *sessions.SessionData, conversation string) error {
	for attempt := 0; attempt < maxResyncAttempts; attempt++ {
		latest, err := m.store.Get(ctx, sess.ID)
		if err != nil {
			return err
		}
		if latest == nil {
			return types.ErrSessionExpired
		}
		if latest.ActiveConversation == conversation {
			msgs := m.transcripts.LoadConversation(latest.Username, conversation)
			latest.Messages = msgs
			latest.Persisted = len(msgs)
		}
		*sess = *latest
		err = m.Save(ctx, sess)
		if !errors.Is(err, types.ErrVersionConflict) {
			return err
		}
	}
	return types.ErrVersionConflict
}

// Save writes the session back, failing with ErrVersionConflict if another
// request saved it first and ErrSessionExpired if it is gone.
func (m *Manager) Save(ctx context.Context, sess *sessions.SessionData) error {
	err := m.store.Update(ctx, sess)
	if errors.Is(err, types.ErrNotFound) {
		return types.ErrSessionExpired
	}
	return err
}
