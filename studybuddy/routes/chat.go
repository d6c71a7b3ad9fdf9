package routes

import (
	"context"
	"errors"
	"net/http"

	"studybuddy/studybuddy/controllers"
	"studybuddy/studybuddy/middlewares"
	"studybuddy/studybuddy/services/session"
	"studybuddy/studybuddy/types"
	apitypes "studybuddy/studybuddy/utils/types"
	"studybuddy/studybuddy/utils/logging"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func ChatRoutes(ctrl *controllers.ChatController, mgr *session.Manager) chi.Router {
	r := chi.NewRouter()
	r.Group(func(gr chi.Router) {
		gr.Use(middlewares.AuthMiddleware(mgr))

		gr.Get("/conversations", handleJSON(func(r *http.Request) (any, int, error) {
			list, err := ctrl.ListConversations(r.Context(), currentSession(r))
			if err != nil {
				return nil, 0, err
			}
			return list, http.StatusOK, nil
		}))

		gr.Post("/conversations", handleJSON(func(r *http.Request) (any, int, error) {
			id, err := ctrl.NewConversation(r.Context(), currentSession(r))
			if err != nil {
				return nil, 0, err
			}
			return apitypes.ConversationCreated{ID: id}, http.StatusCreated, nil
		}))

		// GET opens the conversation and makes it active.
		gr.Get("/conversations/{id}", handleJSON(func(r *http.Request) (any, int, error) {
			msgs, err := ctrl.OpenConversation(r.Context(), currentSession(r), chi.URLParam(r, "id"))
			if err != nil {
				return nil, 0, err
			}
			return msgs, http.StatusOK, nil
		}))

		gr.Delete("/conversations/{id}", handleJSON(func(r *http.Request) (any, int, error) {
			if err := ctrl.DeleteConversation(r.Context(), currentSession(r), chi.URLParam(r, "id")); err != nil {
				return nil, 0, err
			}
			return nil, http.StatusNoContent, nil
		}))

		gr.Post("/conversations/{id}/export", handleJSON(func(r *http.Request) (any, int, error) {
			key, err := ctrl.ExportConversation(r.Context(), currentSession(r), chi.URLParam(r, "id"))
			if err != nil {
				return nil, 0, err
			}
			return apitypes.ExportResponse{Key: key}, http.StatusOK, nil
		}))

		gr.Get("/messages", handleJSON(func(r *http.Request) (any, int, error) {
			return ctrl.Messages(currentSession(r)), http.StatusOK, nil
		}))

		gr.Post("/messages", handleJSON(func(r *http.Request) (any, int, error) {
			var req apitypes.ChatRequest
			if err := decode(r, &req); err != nil {
				return nil, 0, err
			}
			reply, err := ctrl.SendTurn(r.Context(), currentSession(r), req.Content)
			if err != nil {
				return nil, 0, err
			}
			return apitypes.ChatReply{Reply: reply}, http.StatusOK, nil
		}))
	})

	// Browsers cannot set headers on a websocket upgrade, so the socket
	// authenticates with the token in its first frame.
	r.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusInternalError, "internal error")

		ctx := r.Context()
		var input apitypes.StreamRequest
		if err := wsjson.Read(ctx, conn, &input); err != nil {
			conn.Close(websocket.StatusUnsupportedData, "expected a json frame")
			return
		}

		sess, err := mgr.Resolve(ctx, input.Token)
		if err != nil {
			_ = wsjson.Write(ctx, conn, apitypes.StreamFrame{Type: "error", Error: "invalid token"})
			conn.Close(websocket.StatusPolicyViolation, "invalid token")
			return
		}

		reply, err := ctrl.SendTurnStream(ctx, sess, input.Content, func(chunk string) error {
			return wsjson.Write(ctx, conn, apitypes.StreamFrame{Type: "chunk", Content: chunk})
		})
		if err != nil {
			logging.AppLogger.Info("stream turn failed", zap.String("username", sess.Username), zap.Error(err))
			writeCtx := context.WithoutCancel(ctx)
			_ = wsjson.Write(writeCtx, conn, apitypes.StreamFrame{Type: "error", Error: streamErrorText(err)})
			conn.Close(websocket.StatusNormalClosure, "")
			return
		}
		_ = wsjson.Write(ctx, conn, apitypes.StreamFrame{Type: "done", Content: reply})
		conn.Close(websocket.StatusNormalClosure, "")
	})
	return r
}

func streamErrorText(err error) string {
	if statusFor(err) == http.StatusInternalServerError && !errors.Is(err, types.ErrStorageParse) {
		return "internal error"
	}
	return err.Error()
}
