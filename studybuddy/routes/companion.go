package routes

import (
	"net/http"

	"studybuddy/studybuddy/controllers"
	"studybuddy/studybuddy/middlewares"
	"studybuddy/studybuddy/services/session"
	apitypes "studybuddy/studybuddy/utils/types"

	"github.com/go-chi/chi/v5"
)

func CompanionRoutes(ctrl *controllers.CompanionController, mgr *session.Manager) chi.Router {
	r := chi.NewRouter()
	r.Use(middlewares.AuthMiddleware(mgr))

	r.Get("/", handleJSON(func(r *http.Request) (any, int, error) {
		msgs, err := ctrl.Start(r.Context(), currentSession(r))
		if err != nil {
			return nil, 0, err
		}
		return msgs, http.StatusOK, nil
	}))

	r.Post("/messages", handleJSON(func(r *http.Request) (any, int, error) {
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

	r.Delete("/", handleJSON(func(r *http.Request) (any, int, error) {
		if err := ctrl.Reset(r.Context(), currentSession(r)); err != nil {
			return nil, 0, err
		}
		return nil, http.StatusNoContent, nil
	}))
	return r
}
