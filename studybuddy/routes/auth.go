package routes

import (
	"net/http"

	"studybuddy/studybuddy/controllers"
	"studybuddy/studybuddy/middlewares"
	"studybuddy/studybuddy/services/session"
	"studybuddy/studybuddy/services/themes"
	apitypes "studybuddy/studybuddy/utils/types"

	"github.com/go-chi/chi/v5"
)

func AuthRoutes(ctrl *controllers.AuthController, mgr *session.Manager, limiter *middlewares.RateLimiter) chi.Router {
	r := chi.NewRouter()

	r.Group(func(gr chi.Router) {
		gr.Use(limiter.Middleware)

		gr.Post("/register", handleJSON(func(r *http.Request) (any, int, error) {
			var req apitypes.RegisterRequest
			if err := decode(r, &req); err != nil {
				return nil, 0, err
			}
			resp, err := ctrl.Register(r.Context(), req)
			if err != nil {
				return nil, 0, err
			}
			return resp, http.StatusCreated, nil
		}))

		gr.Post("/login", handleJSON(func(r *http.Request) (any, int, error) {
			var req apitypes.LoginRequest
			if err := decode(r, &req); err != nil {
				return nil, 0, err
			}
			resp, err := ctrl.Login(r.Context(), req)
			if err != nil {
				return nil, 0, err
			}
			return resp, http.StatusOK, nil
		}))
	})

	r.With(middlewares.AuthMiddleware(mgr)).Post("/logout", handleJSON(func(r *http.Request) (any, int, error) {
		if err := ctrl.Logout(r.Context(), currentSession(r)); err != nil {
			return nil, 0, err
		}
		return nil, http.StatusNoContent, nil
	}))
	return r
}

// SessionRoutes exposes the caller's session state and theme choice.
func SessionRoutes(ctrl *controllers.AuthController, mgr *session.Manager) chi.Router {
	r := chi.NewRouter()
	r.Use(middlewares.AuthMiddleware(mgr))

	r.Get("/", handleJSON(func(r *http.Request) (any, int, error) {
		return ctrl.View(currentSession(r)), http.StatusOK, nil
	}))

	r.Put("/theme", handleJSON(func(r *http.Request) (any, int, error) {
		var req apitypes.ThemeRequest
		if err := decode(r, &req); err != nil {
			return nil, 0, err
		}
		sess := currentSession(r)
		if err := ctrl.SetTheme(r.Context(), sess, req.Theme); err != nil {
			return nil, 0, err
		}
		return ctrl.View(sess), http.StatusOK, nil
	}))
	return r
}

func ThemeRoutes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", handleJSON(func(r *http.Request) (any, int, error) {
		return themes.All(), http.StatusOK, nil
	}))
	return r
}
