package routes

import (
	"net/http"

	"studybuddy/studybuddy/controllers"
	"studybuddy/studybuddy/middlewares"
	"studybuddy/studybuddy/services/session"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server holds everything the HTTP surface is mounted on.
type Server struct {
	Manager   *session.Manager
	Limiter   *middlewares.RateLimiter
	Auth      *controllers.AuthController
	Chat      *controllers.ChatController
	Companion *controllers.CompanionController
	Planner   *controllers.PlannerController
	Health    *controllers.HealthController
}

// NewRouter mounts every area. Model calls can outlast a fixed handler
// deadline, so there is no Timeout middleware; the LLM client carries its own.
func NewRouter(s Server) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middlewares.RequestLogger)
	r.Use(middleware.Recoverer)

	r.Mount("/health", HealthRoutes(s.Health))
	r.Mount("/auth", AuthRoutes(s.Auth, s.Manager, s.Limiter))
	r.Mount("/session", SessionRoutes(s.Auth, s.Manager))
	r.Mount("/themes", ThemeRoutes())
	r.Mount("/chat", ChatRoutes(s.Chat, s.Manager))
	r.Mount("/companion", CompanionRoutes(s.Companion, s.Manager))
	r.Mount("/planner", PlannerRoutes(s.Planner, s.Manager))
	return r
}
