package controllers

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"studybuddy/studybuddy/services/calendar"
	"studybuddy/studybuddy/services/llm"
	"studybuddy/studybuddy/services/session"
	"studybuddy/studybuddy/sources/credentials"
	"studybuddy/studybuddy/sources/sessions"
	"studybuddy/studybuddy/sources/transcripts"
	"studybuddy/studybuddy/types"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// fakeLLM replies with its queue in order; an error entry fails that call.
type fakeLLM struct {
	mu      sync.Mutex
	replies []any
	seen    [][]types.Message
	chunks  []string
	// during runs inside every model call, before the reply is returned.
	during func()
}

func (f *fakeLLM) Name() string { return "fake" }

func (f *fakeLLM) next(req llm.ChatRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seen = append(f.seen, append([]types.Message(nil), req.Messages...))
	if len(f.replies) == 0 {
		return "", errors.New("no reply queued")
	}
	r := f.replies[0]
	f.replies = f.replies[1:]
	if err, ok := r.(error); ok {
		return "", err
	}
	return r.(string), nil
}

func (f *fakeLLM) Run(ctx context.Context, req llm.ChatRequest) (string, error) {
	if f.during != nil {
		f.during()
	}
	return f.next(req)
}

func (f *fakeLLM) RunStream(ctx context.Context, req llm.ChatRequest) (<-chan llm.Chunk, error) {
	if f.during != nil {
		f.during()
	}
	reply, err := f.next(req)
	ch := make(chan llm.Chunk, len(f.chunks)+2)
	for _, c := range f.chunks {
		ch <- llm.Chunk{Content: c}
	}
	if err != nil {
		ch <- llm.Chunk{Err: err}
	} else if len(f.chunks) == 0 {
		ch <- llm.Chunk{Content: reply}
	}
	close(ch)
	return ch, nil
}

func (f *fakeLLM) lastRequest() []types.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.seen[len(f.seen)-1]
}

type fakeCalendar struct {
	events []calendar.Event
	err    error
}

func (f *fakeCalendar) InsertEvent(ctx context.Context, ev calendar.Event) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.events = append(f.events, ev)
	return "evt-1", nil
}

type fakeArchive struct {
	keys map[string][]byte
}

func (f *fakeArchive) UploadTranscript(ctx context.Context, username, id string, data []byte) (string, error) {
	if f.keys == nil {
		f.keys = map[string][]byte{}
	}
	key := "transcripts/" + username + "/" + id
	f.keys[key] = data
	return key, nil
}

type testEnv struct {
	mgr *session.Manager
	tr  *transcripts.Store
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	creds := credentials.NewStore(filepath.Join(dir, "users.json"), credentials.WithBcryptCost(bcrypt.MinCost))
	tr := transcripts.NewStore(filepath.Join(dir, "chats"))
	mgr, err := session.NewManager(creds, tr, sessions.NewMemoryStore(time.Hour, nil), []byte("secret"), time.Hour)
	require.NoError(t, err)
	return &testEnv{mgr: mgr, tr: tr}
}

func (e *testEnv) login(t *testing.T, user string) *sessions.SessionData {
	t.Helper()
	l, err := e.mgr.Register(context.Background(), user, "pw", "555")
	require.NoError(t, err)
	return l.Session
}
