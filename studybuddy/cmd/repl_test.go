package main

import (
	"bufio"
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"studybuddy/studybuddy/controllers"
	"studybuddy/studybuddy/services/llm"
	"studybuddy/studybuddy/services/persona"
	"studybuddy/studybuddy/services/session"
	"studybuddy/studybuddy/sources/credentials"
	"studybuddy/studybuddy/sources/sessions"
	"studybuddy/studybuddy/sources/transcripts"
	"studybuddy/studybuddy/utils/color"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type cannedLLM struct{ reply string }

func (c cannedLLM) Name() string { return "canned" }

func (c cannedLLM) Run(ctx context.Context, req llm.ChatRequest) (string, error) {
	return c.reply, nil
}

func (c cannedLLM) RunStream(ctx context.Context, req llm.ChatRequest) (<-chan llm.Chunk, error) {
	ch := make(chan llm.Chunk, 1)
	ch <- llm.Chunk{Content: c.reply}
	close(ch)
	return ch, nil
}

func newTestCLI(t *testing.T, input string) (*cli, *transcripts.Store, *bytes.Buffer) {
	t.Helper()
	color.Disable()
	dir := t.TempDir()
	tr := transcripts.NewStore(filepath.Join(dir, "chats"))
	creds := credentials.NewStore(filepath.Join(dir, "users.json"), credentials.WithBcryptCost(bcrypt.MinCost))
	mgr, err := session.NewManager(creds, tr, sessions.NewMemoryStore(time.Hour, nil), []byte("k"), time.Hour)
	require.NoError(t, err)
	_, err = mgr.Register(context.Background(), "alice", "pw", "555")
	require.NoError(t, err)

	model := cannedLLM{reply: "Mitochondria make ATP."}
	out := &bytes.Buffer{}
	return &cli{
		in:        bufio.NewReader(strings.NewReader(input)),
		out:       out,
		mgr:       mgr,
		chat:      controllers.NewChatController(mgr, tr, model, nil, 0),
		companion: controllers.NewCompanionController(mgr, model, persona.Default(), 0),
		password:  func() (string, error) { return "pw", nil },
		render:    func(s string) string { return s + "\n" },
	}, tr, out
}

func TestRunChat_NewConversationAndTurn(t *testing.T) {
	c, tr, out := newTestCLI(t, "alice\nhello\n/new\nwhat do mitochondria do?\n/list\n/quit\n")

	require.NoError(t, c.runChat(context.Background()))

	text := out.String()
	assert.Contains(t, text, "Welcome back, alice!")
	assert.Contains(t, text, "no active conversation", "chatting before /new is rejected")
	assert.Contains(t, text, "StudyBuddy:\nMitochondria make ATP.")
	assert.Contains(t, text, "  1. ")

	ids, err := tr.ListConversations("alice")
	require.NoError(t, err)
	require.Len(t, ids, 1)
	assert.Len(t, tr.LoadConversation("alice", ids[0]), 2)
}

func TestRunChat_BadLogin(t *testing.T) {
	c, _, _ := newTestCLI(t, "mallory\n")
	assert.Error(t, c.runChat(context.Background()))
}

func TestRunChat_EOFEndsQuietly(t *testing.T) {
	c, _, _ := newTestCLI(t, "alice\n")
	assert.NoError(t, c.runChat(context.Background()))
}

func TestRunCompanion(t *testing.T) {
	c, tr, out := newTestCLI(t, "alice\nI'm anxious about finals\n/reset\n/quit\n")

	require.NoError(t, c.runCompanion(context.Background()))

	text := out.String()
	assert.Equal(t, 2, strings.Count(text, "Hello! I'm Pebble"), "welcome shown at start and after reset")
	assert.Contains(t, text, "Pebble:\nMitochondria make ATP.")

	ids, err := tr.ListConversations("alice")
	require.NoError(t, err)
	assert.Empty(t, ids, "companion chats are never written to disk")
}

func TestPick(t *testing.T) {
	list := []string{"chat_20240101_090000.json", "chat_20240102_090000.json"}
	assert.Equal(t, list[1], pick(list, "2"))
	assert.Equal(t, "chat_20240301_090000.json", pick(list, "chat_20240301_090000.json"))
	assert.Equal(t, "3", pick(list, "3"))
}
