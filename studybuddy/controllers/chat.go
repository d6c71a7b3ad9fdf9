package controllers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"studybuddy/studybuddy/services/llm"
	"studybuddy/studybuddy/services/session"
	"studybuddy/studybuddy/sources/sessions"
	"studybuddy/studybuddy/sources/transcripts"
	"studybuddy/studybuddy/types"
	apitypes "studybuddy/studybuddy/utils/types"
	"studybuddy/studybuddy/utils/logging"

	"go.uber.org/zap"
)

// Archiver uploads a raw transcript and returns the object key.
type Archiver interface {
	UploadTranscript(ctx context.Context, username, conversationID string, data []byte) (string, error)
}

// ChatController runs study-assistant turns against the active conversation.
// llm and archive may be nil when not configured; the affected operations
// then fail with ErrConfiguration.
type ChatController struct {
	sessions    *session.Manager
	transcripts *transcripts.Store
	llm         llm.Client
	archive     Archiver
	timeout     time.Duration
}

func NewChatController(mgr *session.Manager, tr *transcripts.Store, client llm.Client, archive Archiver, timeout time.Duration) *ChatController {
	return &ChatController{
		sessions:    mgr,
		transcripts: tr,
		llm:         client,
		archive:     archive,
		timeout:     timeout,
	}
}

func (c *ChatController) ListConversations(ctx context.Context, sess *sessions.SessionData) ([]apitypes.ConversationSummary, error) {
	ids, err := c.sessions.ListConversations(ctx, sess)
	if err != nil {
		return nil, err
	}
	out := make([]apitypes.ConversationSummary, len(ids))
	for i, id := range ids {
		out[i] = apitypes.ConversationSummary{ID: id, DisplayName: transcripts.DisplayName(id)}
	}
	return out, nil
}

func (c *ChatController) NewConversation(ctx context.Context, sess *sessions.SessionData) (string, error) {
	return c.sessions.NewConversation(ctx, sess)
}

func (c *ChatController) OpenConversation(ctx context.Context, sess *sessions.SessionData, id string) ([]types.Message, error) {
	msgs, err := c.sessions.OpenConversation(ctx, sess, id)
	if err != nil {
		return nil, err
	}
	return types.Visible(msgs), nil
}

func (c *ChatController) DeleteConversation(ctx context.Context, sess *sessions.SessionData, id string) error {
	return c.sessions.DeleteConversation(ctx, sess, id)
}

// Messages is the in-memory transcript of the active conversation, including
// a user message whose reply failed.
func (c *ChatController) Messages(sess *sessions.SessionData) []types.Message {
	return types.Visible(sess.Messages)
}

// SendTurn appends the user's message, asks the model with the full history
// and persists both messages once the reply arrives. On a model failure the
// transcript on disk is unchanged and the user message stays pending in the
// session until the next successful turn.
func (c *ChatController) SendTurn(ctx context.Context, sess *sessions.SessionData, text string) (string, error) {
	if err := c.begin(ctx, sess, text); err != nil {
		return "", err
	}
	reply, err := runModel(ctx, c.llm, c.timeout, sess.Messages)
	if err != nil {
		return "", err
	}
	return reply, c.commit(ctx, sess, reply)
}

// SendTurnStream is SendTurn with the reply delivered through onChunk. The
// turn is persisted only after the stream completes without error.
func (c *ChatController) SendTurnStream(ctx context.Context, sess *sessions.SessionData, text string, onChunk func(string) error) (string, error) {
	if err := c.begin(ctx, sess, text); err != nil {
		return "", err
	}
	reply, err := streamModel(ctx, c.llm, c.timeout, sess.Messages, onChunk)
	if err != nil {
		return "", err
	}
	return reply, c.commit(ctx, sess, reply)
}

func (c *ChatController) begin(ctx context.Context, sess *sessions.SessionData, text string) error {
	if c.llm == nil {
		return fmt.Errorf("%w: no language model configured", types.ErrConfiguration)
	}
	if sess.ActiveConversation == "" {
		return types.ErrNoActiveConversation
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return fmt.Errorf("%w: message is empty", types.ErrInvalidInput)
	}

	sess.Messages = append(sess.Messages, types.Message{Role: types.RoleUser, Content: text})
	return c.sessions.Save(ctx, sess)
}

func (c *ChatController) commit(ctx context.Context, sess *sessions.SessionData, reply string) error {
	defer logging.LogDuration(ctx, "chat_commit_turn")()
	ctx = context.WithoutCancel(ctx)

	sess.Messages = append(sess.Messages, types.Message{Role: types.RoleAssistant, Content: reply})
	pending := sess.Messages[sess.Persisted:]
	if err := c.transcripts.Append(sess.Username, sess.ActiveConversation, pending...); err != nil {
		logging.ErrorLogger.Error("transcript append failed",
			zap.String("username", sess.Username), zap.String("conversation", sess.ActiveConversation), zap.Error(err))
		return err
	}
	sess.Persisted = len(sess.Messages)
	err := c.sessions.Save(ctx, sess)
	if !errors.Is(err, types.ErrVersionConflict) {
		return err
	}
	// Another request saved the session while the model was running. The turn
	// is already on disk, so adopt the stored session instead of failing.
	logging.AppLogger.Info("session changed during turn, resyncing",
		zap.String("session_id", sess.ID), zap.String("conversation", sess.ActiveConversation))
	return c.sessions.Resync(ctx, sess, sess.ActiveConversation)
}

// ExportConversation uploads the stored transcript and returns its key.
func (c *ChatController) ExportConversation(ctx context.Context, sess *sessions.SessionData, id string) (string, error) {
	if c.archive == nil {
		return "", fmt.Errorf("%w: transcript export is not configured", types.ErrConfiguration)
	}
	data, err := c.transcripts.ReadRaw(sess.Username, id)
	if err != nil {
		return "", err
	}
	key, err := c.archive.UploadTranscript(ctx, sess.Username, id, data)
	if err != nil {
		return "", err
	}
	logging.AppLogger.Info("transcript exported", zap.String("username", sess.Username), zap.String("key", key))
	return key, nil
}
