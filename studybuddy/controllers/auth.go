package controllers

import (
	"context"

	"studybuddy/studybuddy/services/session"
	"studybuddy/studybuddy/sources/sessions"
	apitypes "studybuddy/studybuddy/utils/types"
)

type AuthController struct {
	sessions *session.Manager
}

func NewAuthController(mgr *session.Manager) *AuthController {
	return &AuthController{sessions: mgr}
}

func (c *AuthController) Register(ctx context.Context, req apitypes.RegisterRequest) (*apitypes.LoginResponse, error) {
	login, err := c.sessions.Register(ctx, req.Username, req.Password, req.MobileNumber)
	if err != nil {
		return nil, err
	}
	return loginResponse(login), nil
}

func (c *AuthController) Login(ctx context.Context, req apitypes.LoginRequest) (*apitypes.LoginResponse, error) {
	login, err := c.sessions.Login(ctx, req.Username, req.Password)
	if err != nil {
		return nil, err
	}
	return loginResponse(login), nil
}

func (c *AuthController) Logout(ctx context.Context, sess *sessions.SessionData) error {
	return c.sessions.Logout(ctx, sess)
}

func (c *AuthController) View(sess *sessions.SessionData) apitypes.SessionView {
	return apitypes.SessionView{
		Username:           sess.Username,
		State:              string(session.StateOf(sess)),
		ActiveConversation: sess.ActiveConversation,
		Theme:              sess.Theme,
		ExpiresAt:          sess.ExpiresAt,
	}
}

func (c *AuthController) SetTheme(ctx context.Context, sess *sessions.SessionData, theme string) error {
	return c.sessions.SetTheme(ctx, sess, theme)
}

func loginResponse(l *session.Login) *apitypes.LoginResponse {
	return &apitypes.LoginResponse{Token: l.Token, ExpiresAt: l.ExpiresAt, Username: l.Session.Username}
}
