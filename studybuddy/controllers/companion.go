package controllers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"studybuddy/studybuddy/services/llm"
	"studybuddy/studybuddy/services/persona"
	"studybuddy/studybuddy/services/session"
	"studybuddy/studybuddy/sources/sessions"
	"studybuddy/studybuddy/types"
)

// CompanionController is the wellbeing chat. Its history lives only in the
// session and is never written to disk.
type CompanionController struct {
	sessions *session.Manager
	llm      llm.Client
	persona  persona.Persona
	timeout  time.Duration
}

func NewCompanionController(mgr *session.Manager, client llm.Client, p persona.Persona, timeout time.Duration) *CompanionController {
	return &CompanionController{sessions: mgr, llm: client, persona: p, timeout: timeout}
}

func (c *CompanionController) Persona() persona.Persona { return c.persona }

// Start seeds the hidden instruction and the welcome on first use and returns
// the visible history.
func (c *CompanionController) Start(ctx context.Context, sess *sessions.SessionData) ([]types.Message, error) {
	if len(sess.Companion) == 0 {
		sess.Companion = c.persona.Seed()
		if err := c.sessions.Save(ctx, sess); err != nil {
			return nil, err
		}
	}
	return types.Visible(sess.Companion), nil
}

func (c *CompanionController) SendTurn(ctx context.Context, sess *sessions.SessionData, text string) (string, error) {
	if c.llm == nil {
		return "", fmt.Errorf("%w: no language model configured", types.ErrConfiguration)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("%w: message is empty", types.ErrInvalidInput)
	}

	if len(sess.Companion) == 0 {
		sess.Companion = c.persona.Seed()
	}
	sess.Companion = append(sess.Companion, types.Message{Role: types.RoleUser, Content: text})
	if err := c.sessions.Save(ctx, sess); err != nil {
		return "", err
	}

	reply, err := runModel(ctx, c.llm, c.timeout, sess.Companion)
	if err != nil {
		return "", err
	}

	sess.Companion = append(sess.Companion, types.Message{Role: types.RoleAssistant, Content: reply})
	return reply, c.sessions.Save(context.WithoutCancel(ctx), sess)
}

func (c *CompanionController) Reset(ctx context.Context, sess *sessions.SessionData) error {
	sess.Companion = nil
	return c.sessions.Save(ctx, sess)
}
