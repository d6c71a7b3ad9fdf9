package transcripts

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"studybuddy/studybuddy/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestStore(t *testing.T) (*Store, *fakeClock, string) {
	t.Helper()
	dir := t.TempDir()
	clock := &fakeClock{t: time.Date(2024, 1, 1, 9, 0, 0, 0, time.Local)}
	return NewStore(dir, WithClock(clock.now)), clock, dir
}

func msg(role, content string) types.Message {
	return types.Message{Role: role, Content: content}
}

func TestCreateConversation_IDAndListing(t *testing.T) {
	s, clock, dir := newTestStore(t)

	id, err := s.CreateConversation("alice")
	require.NoError(t, err)
	assert.Equal(t, "chat_20240101_090000.json", id)

	info, err := os.Stat(filepath.Join(dir, "alice", id))
	require.NoError(t, err, "conversation must exist on disk with zero messages")
	assert.Zero(t, info.Size())

	clock.advance(90 * time.Second)
	newer, err := s.CreateConversation("alice")
	require.NoError(t, err)

	ids, err := s.ListConversations("alice")
	require.NoError(t, err)
	assert.Equal(t, []string{newer, id}, ids)
	assert.Empty(t, s.LoadConversation("alice", newer))
}

func TestCreateConversation_SameSecondReusesOnlyEmpty(t *testing.T) {
	s, _, _ := newTestStore(t)
	id, err := s.CreateConversation("alice")
	require.NoError(t, err)

	again, err := s.CreateConversation("alice")
	require.NoError(t, err)
	assert.Equal(t, id, again, "an untouched transcript is reused")

	require.NoError(t, s.Append("alice", id, msg(types.RoleUser, "hi")))
	fresh, err := s.CreateConversation("alice")
	require.NoError(t, err)
	assert.NotEqual(t, id, fresh)
	assert.Empty(t, s.LoadConversation("alice", fresh))
	assert.Len(t, s.LoadConversation("alice", id), 1, "existing transcript is left alone")

	ids, err := s.ListConversations("alice")
	require.NoError(t, err)
	assert.Equal(t, []string{fresh, id}, ids, "the later second sorts first")
}

func TestListConversations_UnknownUserIsEmpty(t *testing.T) {
	s, _, dir := newTestStore(t)
	ids, err := s.ListConversations("nobody")
	require.NoError(t, err)
	assert.Empty(t, ids)

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "bob"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bob", "notes.txt"), []byte("x"), 0o644))
	ids, err = s.ListConversations("bob")
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestAppendAndSave_RoundTrip(t *testing.T) {
	s, _, _ := newTestStore(t)
	id, err := s.CreateConversation("alice")
	require.NoError(t, err)

	want := []types.Message{msg(types.RoleUser, "hi")}
	require.NoError(t, s.AppendAndSave("alice", id, want))
	assert.Equal(t, want, s.LoadConversation("alice", id))

	want = append(want, msg(types.RoleAssistant, "hello! <b>&</b>"), msg(types.RoleUser, "line1\nline2"))
	require.NoError(t, s.AppendAndSave("alice", id, want))
	assert.Equal(t, want, s.LoadConversation("alice", id))

	require.NoError(t, s.AppendAndSave("alice", id, want[:1]))
	assert.Equal(t, want[:1], s.LoadConversation("alice", id), "full rewrite, not an append")
}

func TestAppend_AddsOnlyNewRecords(t *testing.T) {
	s, _, dir := newTestStore(t)
	id, err := s.CreateConversation("alice")
	require.NoError(t, err)

	require.NoError(t, s.Append("alice", id, msg(types.RoleUser, "q1"), msg(types.RoleAssistant, "a1")))
	require.NoError(t, s.Append("alice", id, msg(types.RoleUser, "q2"), msg(types.RoleAssistant, "a2")))
	require.NoError(t, s.Append("alice", id))

	got := s.LoadConversation("alice", id)
	assert.Equal(t, []types.Message{
		msg(types.RoleUser, "q1"), msg(types.RoleAssistant, "a1"),
		msg(types.RoleUser, "q2"), msg(types.RoleAssistant, "a2"),
	}, got)

	raw, err := os.ReadFile(filepath.Join(dir, "alice", id))
	require.NoError(t, err)
	assert.Equal(t, 4, strings.Count(string(raw), "\n"))
}

func TestLoadConversation_LegacyArrayFormats(t *testing.T) {
	s, _, dir := newTestStore(t)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "alice"), 0o755))
	legacy := `[
    {"role": "user", "parts": "what is osmosis?"},
    {"role": "assistant", "parts": ["Osmosis is", "diffusion of water."]},
    {"role": "model", "parts": [{"text": "anything else?"}]}
]`
	id := "chat_20231231_235959.json"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "alice", id), []byte(legacy), 0o644))

	got := s.LoadConversation("alice", id)
	assert.Equal(t, []types.Message{
		msg(types.RoleUser, "what is osmosis?"),
		msg(types.RoleAssistant, "Osmosis is\ndiffusion of water."),
		msg(types.RoleAssistant, "anything else?"),
	}, got)

	require.NoError(t, s.Append("alice", id, msg(types.RoleUser, "no thanks")))
	got = s.LoadConversation("alice", id)
	require.Len(t, got, 4)
	assert.Equal(t, "what is osmosis?", got[0].Content)
	assert.Equal(t, "no thanks", got[3].Content)

	raw, err := os.ReadFile(filepath.Join(dir, "alice", id))
	require.NoError(t, err)
	assert.False(t, strings.HasPrefix(string(raw), "["), "converted to line format")
}

func TestLoadConversation_SilentRecovery(t *testing.T) {
	s, _, dir := newTestStore(t)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "alice"), 0o755))

	assert.Empty(t, s.LoadConversation("alice", "chat_20240101_090000.json"), "missing file")
	assert.Empty(t, s.LoadConversation("alice", "../../etc/passwd"), "invalid id")

	id := "chat_20240102_090000.json"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "alice", id), []byte("[{broken"), 0o644))
	assert.Empty(t, s.LoadConversation("alice", id))

	id = "chat_20240103_090000.json"
	body := "{\"role\":\"user\",\"content\":\"a\"}\nnot json\n{\"role\":\"assistant\",\"content\":\"b\"}\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "alice", id), []byte(body), 0o644))
	assert.Empty(t, s.LoadConversation("alice", id), "corrupt middle line")
}

func TestTornFinalLine(t *testing.T) {
	s, _, dir := newTestStore(t)
	id, err := s.CreateConversation("alice")
	require.NoError(t, err)
	require.NoError(t, s.Append("alice", id, msg(types.RoleUser, "q1"), msg(types.RoleAssistant, "a1")))

	p := filepath.Join(dir, "alice", id)
	f, err := os.OpenFile(p, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString(`{"role":"user","cont`)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	assert.Len(t, s.LoadConversation("alice", id), 2, "torn tail dropped on read")

	require.NoError(t, s.Append("alice", id, msg(types.RoleUser, "q2")))
	got := s.LoadConversation("alice", id)
	assert.Equal(t, []types.Message{msg(types.RoleUser, "q1"), msg(types.RoleAssistant, "a1"), msg(types.RoleUser, "q2")}, got)
}

func TestAppend_UnterminatedCompleteRecordIsKept(t *testing.T) {
	s, _, dir := newTestStore(t)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "alice"), 0o755))
	id := "chat_20240104_090000.json"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "alice", id), []byte(`{"role":"user","content":"kept"}`), 0o644))

	require.NoError(t, s.Append("alice", id, msg(types.RoleAssistant, "reply")))
	assert.Equal(t, []types.Message{msg(types.RoleUser, "kept"), msg(types.RoleAssistant, "reply")}, s.LoadConversation("alice", id))
}

func TestHiddenFlagRoundTrip(t *testing.T) {
	s, _, _ := newTestStore(t)
	id, err := s.CreateConversation("alice")
	require.NoError(t, err)
	want := []types.Message{{Role: types.RoleUser, Content: "persona", Hidden: true}, msg(types.RoleAssistant, "hi")}
	require.NoError(t, s.Append("alice", id, want...))
	assert.Equal(t, want, s.LoadConversation("alice", id))
}

func TestDeleteConversation(t *testing.T) {
	s, _, _ := newTestStore(t)
	id, err := s.CreateConversation("alice")
	require.NoError(t, err)
	assert.True(t, s.Exists("alice", id))

	require.NoError(t, s.DeleteConversation("alice", id))
	assert.False(t, s.Exists("alice", id))
	ids, err := s.ListConversations("alice")
	require.NoError(t, err)
	assert.NotContains(t, ids, id)

	assert.NoError(t, s.DeleteConversation("alice", id), "absent id is a no-op")
	assert.NoError(t, s.DeleteConversation("ghost", "chat_19990101_000000.json"))
	assert.ErrorIs(t, s.DeleteConversation("alice", "../users.json"), types.ErrInvalidInput)
}

func TestPathValidation(t *testing.T) {
	s, _, _ := newTestStore(t)
	_, err := s.CreateConversation("../alice")
	assert.ErrorIs(t, err, types.ErrInvalidInput)
	_, err = s.ListConversations("a/b")
	assert.ErrorIs(t, err, types.ErrInvalidInput)
	assert.ErrorIs(t, s.Append("alice", "chat_1.json", msg(types.RoleUser, "x")), types.ErrInvalidInput)
}

func TestReadRaw(t *testing.T) {
	s, _, _ := newTestStore(t)
	_, err := s.ReadRaw("alice", "chat_20240101_090000.json")
	assert.ErrorIs(t, err, types.ErrNotFound)

	id, err := s.CreateConversation("alice")
	require.NoError(t, err)
	require.NoError(t, s.Append("alice", id, msg(types.RoleUser, "hi")))
	b, err := s.ReadRaw("alice", id)
	require.NoError(t, err)
	assert.Equal(t, "{\"role\":\"user\",\"content\":\"hi\"}\n", string(b))
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "20240101 at 090000", DisplayName("chat_20240101_090000.json"))
}
