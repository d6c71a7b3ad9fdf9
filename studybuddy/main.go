package main

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"studybuddy/studybuddy/config"
	"studybuddy/studybuddy/controllers"
	"studybuddy/studybuddy/middlewares"
	"studybuddy/studybuddy/routes"
	"studybuddy/studybuddy/services/calendar"
	"studybuddy/studybuddy/services/llm"
	"studybuddy/studybuddy/services/persona"
	"studybuddy/studybuddy/services/session"
	"studybuddy/studybuddy/sources/credentials"
	"studybuddy/studybuddy/sources/psql"
	"studybuddy/studybuddy/sources/psql/dao"
	"studybuddy/studybuddy/sources/sessions"
	"studybuddy/studybuddy/sources/storage"
	"studybuddy/studybuddy/sources/transcripts"
	"studybuddy/studybuddy/utils/logging"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	cfg, cfgErr := config.LoadConfig()
	logging.InitLogger(cfg.LogDir)
	defer logging.Sync()
	if cfgErr != nil {
		logging.ErrorLogger.Fatal("invalid configuration", zap.Error(cfgErr))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	store, err := newSessionStore(ctx, cfg)
	if err != nil {
		logging.ErrorLogger.Fatal("session store error", zap.Error(err))
	}
	defer store.Close()

	creds := credentials.NewStore(cfg.UsersFile)
	tr := transcripts.NewStore(cfg.ChatsDir)
	mgr, err := session.NewManager(creds, tr, store, jwtSecret(cfg), cfg.SessionTTL)
	if err != nil {
		logging.ErrorLogger.Fatal("session manager error", zap.Error(err))
	}

	features := controllers.Features{Sessions: cfg.SessionStore}

	// Each optional integration that fails to come up disables only itself.
	var model llm.Client
	if c, err := llm.NewClient(cfg); err != nil {
		logging.AppLogger.Warn("chat disabled", zap.Error(err))
	} else {
		model = c
		features.LLM = true
		features.Provider = c.Name()
	}

	p, err := persona.Load(cfg.PersonaFile)
	if err != nil {
		logging.ErrorLogger.Fatal("persona error", zap.Error(err))
	}

	db, err := psql.NewDatabase(ctx, cfg)
	if err != nil {
		logging.ErrorLogger.Fatal("database connection error", zap.Error(err))
	}
	defer db.Close()

	var events calendar.EventWriter
	if w, err := calendar.NewGoogleWriter(ctx, cfg.CalendarCredentialsFile, cfg.CalendarID, cfg.CalendarTimeZone); err != nil {
		logging.AppLogger.Warn("calendar sync disabled", zap.Error(err))
	} else {
		events = w
		features.Calendar = true
	}

	var archive controllers.Archiver
	if m, err := storage.NewMinIOClient(ctx, cfg); err != nil {
		logging.AppLogger.Warn("transcript export disabled", zap.Error(err))
	} else {
		archive = m
		features.Export = true
	}

	handler := routes.NewRouter(routes.Server{
		Manager:   mgr,
		Limiter:   middlewares.NewRateLimiter(cfg.LoginRate, cfg.LoginBurst),
		Auth:      controllers.NewAuthController(mgr),
		Chat:      controllers.NewChatController(mgr, tr, model, archive, cfg.LLMTimeout),
		Companion: controllers.NewCompanionController(mgr, model, p, cfg.LLMTimeout),
		Planner:   controllers.NewPlannerController(dao.NewStudyTaskDAO(db.DB), events),
		Health:    controllers.NewHealthController(features),
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logging.AppLogger.Info("listening", zap.String("addr", cfg.Addr), zap.Any("features", features))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.ErrorLogger.Fatal("server listen error", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.ErrorLogger.Error("server shutdown error", zap.Error(err))
	}
	logging.AppLogger.Info("server shutdown complete")
}

func newSessionStore(ctx context.Context, cfg config.Config) (sessions.Store, error) {
	opts := []sessions.StoreOption{sessions.WithTTL(cfg.SessionTTL)}
	if cfg.SessionStore == string(sessions.StoreTypeRedis) {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, fmt.Errorf("redis %s: %w", cfg.RedisAddr, err)
		}
		opts = append(opts, sessions.WithRedisClient(client))
	}
	return sessions.NewStore(sessions.StoreType(cfg.SessionStore), opts...)
}

// jwtSecret falls back to a random per-process key, which logs everyone out
// on restart.
func jwtSecret(cfg config.Config) []byte {
	if cfg.JWTSecret != "" {
		return []byte(cfg.JWTSecret)
	}
	logging.AppLogger.Warn("JWT_SECRET not set, using a random key for this process")
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		logging.ErrorLogger.Fatal("generate jwt secret", zap.Error(err))
	}
	return secret
}
