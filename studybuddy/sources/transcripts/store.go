// Package transcripts stores one file per conversation under a directory per
// user: <base>/<username>/chat_<YYYYMMDD_HHMMSS>.json.
//
// Files are written one JSON message per line so a turn appends two lines
// instead of rewriting the conversation. Files holding a single JSON array
// (the older layout) are still read, and are converted on the first append.
package transcripts

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"studybuddy/studybuddy/types"
	"studybuddy/studybuddy/utils/logging"

	"go.uber.org/zap"
)

const idLayout = "20060102_150405"

// maxCreateAttempts bounds how many later seconds CreateConversation tries.
const maxCreateAttempts = 60

var idPattern = regexp.MustCompile(`^chat_\d{8}_\d{6}\.json$`)

type Store struct {
	baseDir string
	now     func() time.Time
	mu      sync.Mutex
}

type Option func(*Store)

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func NewStore(baseDir string, opts ...Option) *Store {
	s := &Store{baseDir: baseDir, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ValidateID rejects anything that is not a generated conversation id.
func ValidateID(id string) error {
	if !idPattern.MatchString(id) {
		return fmt.Errorf("%w: bad conversation id %q", types.ErrInvalidInput, id)
	}
	return nil
}

// DisplayName turns chat_20240101_090000.json into "20240101 at 090000".
func DisplayName(id string) string {
	name := strings.TrimSuffix(strings.TrimPrefix(id, "chat_"), ".json")
	return strings.Replace(name, "_", " at ", 1)
}

func (s *Store) userDir(username string) (string, error) {
	if err := types.ValidateUsername(username); err != nil {
		return "", err
	}
	return filepath.Join(s.baseDir, username), nil
}

func (s *Store) path(username, id string) (string, error) {
	dir, err := s.userDir(username)
	if err != nil {
		return "", err
	}
	if err := ValidateID(id); err != nil {
		return "", err
	}
	return filepath.Join(dir, id), nil
}

// ListConversations returns the user's conversation ids, newest first.
func (s *Store) ListConversations(username string) ([]string, error) {
	dir, err := s.userDir(username)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && idPattern.MatchString(e.Name()) {
			ids = append(ids, e.Name())
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(ids)))
	return ids, nil
}

// CreateConversation creates an empty transcript named after the current
// second. If that second's transcript already exists and is still empty its
// id is returned; if it already has messages the next free second is used.
func (s *Store) CreateConversation(username string) (string, error) {
	dir, err := s.userDir(username)
	if err != nil {
		return "", err
	}
	at := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create chat dir: %w", err)
	}
	for i := 0; i < maxCreateAttempts; i++ {
		id := "chat_" + at.Add(time.Duration(i)*time.Second).Format(idLayout) + ".json"
		p := filepath.Join(dir, id)
		f, err := os.OpenFile(p, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			return id, f.Close()
		}
		if !errors.Is(err, os.ErrExist) {
			return "", fmt.Errorf("create conversation: %w", err)
		}
		if info, err := os.Stat(p); err == nil && info.Size() == 0 {
			return id, nil
		}
	}
	return "", fmt.Errorf("%w: no free conversation id near %s", types.ErrVersionConflict, at.Format(idLayout))
}

// Exists reports whether the conversation file is present.
func (s *Store) Exists(username, id string) bool {
	p, err := s.path(username, id)
	if err != nil {
		return false
	}
	_, err = os.Stat(p)
	return err == nil
}

// LoadConversation returns the stored messages. Missing or unreadable files
// yield an empty transcript.
func (s *Store) LoadConversation(username, id string) []types.Message {
	p, err := s.path(username, id)
	if err != nil {
		logging.AppLogger.Warn("load conversation rejected", zap.String("username", username), zap.String("id", id), zap.Error(err))
		return []types.Message{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	msgs, err := readTranscript(p)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logging.AppLogger.Warn("unreadable transcript, returning empty", zap.String("path", p), zap.Error(err))
		}
		return []types.Message{}
	}
	return msgs
}

// AppendAndSave replaces the transcript with the full message sequence.
func (s *Store) AppendAndSave(username, id string, messages []types.Message) error {
	p, err := s.path(username, id)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return rewrite(p, messages)
}

// Append adds messages to the end of the transcript, creating it if needed.
func (s *Store) Append(username, id string, messages ...types.Message) error {
	p, err := s.path(username, id)
	if err != nil {
		return err
	}
	if len(messages) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("create chat dir: %w", err)
	}

	legacy, err := isArrayFile(p)
	if err != nil {
		return err
	}
	if legacy {
		prior, err := readTranscript(p)
		if err != nil {
			return fmt.Errorf("convert transcript %s: %w", p, err)
		}
		return rewrite(p, append(prior, messages...))
	}

	f, err := os.OpenFile(p, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return fmt.Errorf("open transcript: %w", err)
	}
	defer f.Close()

	end, err := f.Seek(0, io.SeekEnd)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if end > 0 {
		last := make([]byte, 1)
		if _, err := f.ReadAt(last, end-1); err != nil {
			return err
		}
		if last[0] != '\n' {
			terminate, err := repairTail(f, end, p)
			if err != nil {
				return err
			}
			if terminate {
				buf.WriteByte('\n')
			}
		}
	}
	if err := encodeLines(&buf, messages); err != nil {
		return err
	}
	if _, err := f.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("append transcript: %w", err)
	}
	return f.Sync()
}

// DeleteConversation removes the transcript; absent files are not an error.
func (s *Store) DeleteConversation(username, id string) error {
	p, err := s.path(username, id)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete conversation: %w", err)
	}
	return nil
}

// ReadRaw returns the file bytes as stored, for export.
func (s *Store) ReadRaw(username, id string) ([]byte, error) {
	p, err := s.path(username, id)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	b, err := os.ReadFile(p)
	if errors.Is(err, os.ErrNotExist) {
		return nil, types.ErrNotFound
	}
	return b, err
}

// repairTail handles a file whose last byte is not a newline. A complete final
// record only needs terminating; a torn one (interrupted write) is cut off so
// it does not end up in the middle of the log.
func repairTail(f *os.File, end int64, p string) (terminate bool, err error) {
	data := make([]byte, end)
	if _, err := f.ReadAt(data, 0); err != nil {
		return false, err
	}
	cut := bytes.LastIndexByte(data, '\n') + 1
	var r record
	if json.Unmarshal(data[cut:], &r) == nil {
		if _, err := r.message(); err == nil {
			return true, nil
		}
	}
	logging.AppLogger.Warn("truncating torn transcript line", zap.String("path", p), zap.Int("bytes", len(data)-cut))
	if err := f.Truncate(int64(cut)); err != nil {
		return false, err
	}
	_, err = f.Seek(int64(cut), io.SeekStart)
	return false, err
}

func rewrite(p string, messages []types.Message) error {
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("create chat dir: %w", err)
	}
	var buf bytes.Buffer
	if err := encodeLines(&buf, messages); err != nil {
		return err
	}
	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write transcript: %w", err)
	}
	return os.Rename(tmp, p)
}

func encodeLines(w io.Writer, messages []types.Message) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for _, m := range messages {
		if err := enc.Encode(m); err != nil {
			return err
		}
	}
	return nil
}

func isArrayFile(p string) (bool, error) {
	f, err := os.Open(p)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	defer f.Close()
	r := bufio.NewReader(f)
	for {
		b, err := r.ReadByte()
		if err == io.EOF {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		switch b {
		case ' ', '\t', '\r', '\n':
			continue
		case '[':
			return true, nil
		default:
			return false, nil
		}
	}
}

func readTranscript(p string) ([]types.Message, error) {
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, err
	}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return []types.Message{}, nil
	}
	if trimmed[0] == '[' {
		return decodeArray(trimmed)
	}
	return decodeLines(trimmed, p)
}

func decodeArray(data []byte) ([]types.Message, error) {
	var recs []record
	if err := json.Unmarshal(data, &recs); err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrStorageParse, err)
	}
	msgs := make([]types.Message, 0, len(recs))
	for _, r := range recs {
		m, err := r.message()
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, nil
}

func decodeLines(data []byte, p string) ([]types.Message, error) {
	lines := bytes.Split(data, []byte("\n"))
	msgs := make([]types.Message, 0, len(lines))
	for i, line := range lines {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		var r record
		err := json.Unmarshal(line, &r)
		var m types.Message
		if err == nil {
			m, err = r.message()
		}
		if err != nil {
			if i == len(lines)-1 {
				logging.AppLogger.Warn("dropping torn final transcript line", zap.String("path", p), zap.Error(err))
				break
			}
			return nil, fmt.Errorf("%w: line %d: %v", types.ErrStorageParse, i+1, err)
		}
		msgs = append(msgs, m)
	}
	return msgs, nil
}

// record accepts both {role, content} and the older {role, parts} shape,
// where parts is a string, a list of strings or a list of {text} objects.
type record struct {
	Role    string          `json:"role"`
	Content string          `json:"content"`
	Parts   json.RawMessage `json:"parts"`
	Hidden  bool            `json:"hidden"`
}

func (r record) message() (types.Message, error) {
	role := r.Role
	if role == "model" {
		role = types.RoleAssistant
	}
	if role != types.RoleUser && role != types.RoleAssistant {
		return types.Message{}, fmt.Errorf("%w: unknown role %q", types.ErrStorageParse, r.Role)
	}
	content := r.Content
	if content == "" && len(r.Parts) > 0 {
		text, err := partsText(r.Parts)
		if err != nil {
			return types.Message{}, err
		}
		content = text
	}
	return types.Message{Role: role, Content: content, Hidden: r.Hidden}, nil
}

func partsText(raw json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return strings.Join(list, "\n"), nil
	}
	var objs []struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(raw, &objs); err != nil {
		return "", fmt.Errorf("%w: parts: %v", types.ErrStorageParse, err)
	}
	texts := make([]string, 0, len(objs))
	for _, o := range objs {
		texts = append(texts, o.Text)
	}
	return strings.Join(texts, "\n"), nil
}
