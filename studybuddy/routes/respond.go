package routes

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"studybuddy/studybuddy/middlewares"
	"studybuddy/studybuddy/sources/sessions"
	"studybuddy/studybuddy/types"
	"studybuddy/studybuddy/utils/logging"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

// handleJSON writes res as JSON with status, or maps err to its status.
func handleJSON(handler func(r *http.Request) (any, int, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, status, err := handler(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if status == http.StatusNoContent {
			w.WriteHeader(status)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(res)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		logging.ErrorLogger.Error("request failed",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("path", r.URL.Path),
			zap.Error(err))
		msg = "internal error"
	}
	http.Error(w, msg, status)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, types.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, types.ErrAuthenticationFailure), errors.Is(err, types.ErrSessionExpired):
		return http.StatusUnauthorized
	case errors.Is(err, types.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, types.ErrDuplicateUser),
		errors.Is(err, types.ErrNoActiveConversation),
		errors.Is(err, types.ErrVersionConflict):
		return http.StatusConflict
	case errors.Is(err, types.ErrExternalService):
		return http.StatusBadGateway
	case errors.Is(err, types.ErrConfiguration):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", types.ErrInvalidInput, err)
	}
	return nil
}

func currentSession(r *http.Request) *sessions.SessionData {
	return middlewares.SessionFrom(r.Context())
}
