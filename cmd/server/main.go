// backend/cmd/server/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"gorm.io/gorm"

	"lesson-system/internal/auth"
	"lesson-system/internal/config"
	"lesson-system/internal/lesson"
	"lesson-system/internal/question"
	"lesson-system/internal/response"
	"lesson-system/pkg/cache"
	"lesson-system/pkg/database"
	"lesson-system/pkg/logger"
	"lesson-system/pkg/websocket"
)

func main() {
	bootLog, err := logger.New(os.Getenv("LOG_MODE"))
	if err != nil {
		panic(err)
	}

	cfg, err := config.Load(bootLog.Warn)
	if err != nil {
		bootLog.Fatal("failed to load configuration", "error", err)
	}

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		bootLog.Fatal("failed to build logger", "error", err)
	}
	defer log.Sync()

	db, err := openDatabase(cfg.DB)
	if err != nil {
		log.Fatal("failed to connect to database", "driver", cfg.DB.Driver, "error", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatal("failed to migrate database", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	counts := countCache(ctx, cfg.RedisAddr, log)

	hub := websocket.NewHub(log, cfg.CORSOrigins)
	go hub.Run(ctx)

	issuer := auth.NewTokenIssuer(cfg.JWTSecret, cfg.AccessTokenTTL)
	if cfg.JWTSecret == "" {
		log.Warn("JWT_SECRET is not set; login and refresh will fail")
	}
	authService := auth.NewService(auth.NewRepository(db), issuer, cfg.RefreshTokenTTL, log)
	authHandler := auth.NewHandler(authService, log)

	questions := question.NewRepository(db)
	lessonService := lesson.NewService(
		lesson.NewRepository(db),
		question.NewSampler(questions),
		questions,
		counts,
		cfg.SampleCountCacheTTL,
		hub,
		log,
	)
	lessonHandler := lesson.NewHandler(lessonService, log)

	router := mux.NewRouter()
	router.Use(requestID, accessLog(log))
	router.HandleFunc("/healthz", healthz(db)).Methods(http.MethodGet)
	router.HandleFunc("/ws", hub.ServeWS(issuer.Parse))

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/auth/register", authHandler.Register).Methods(http.MethodPost)
	api.HandleFunc("/auth/login", authHandler.Login).Methods(http.MethodPost)
	api.HandleFunc("/auth/refresh", authHandler.Refresh).Methods(http.MethodPost)
	api.HandleFunc("/auth/logout", authHandler.Logout).Methods(http.MethodPost)
	lessonHandler.RegisterRoutes(api, auth.JWTMiddleware(issuer, log))

	corsMiddleware := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Requested-With", requestIDHeader},
		ExposedHeaders:   []string{"Content-Length", requestIDHeader},
		AllowCredentials: true,
		MaxAge:           300,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           corsMiddleware.Handler(router),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("server starting", "addr", cfg.HTTPAddr, "db_driver", cfg.DB.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("failed to start server", "error", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", "error", err)
	}
	if closer, ok := counts.(interface{ Close() error }); ok {
		_ = closer.Close()
	}
	log.Info("server shutdown gracefully")
}

func openDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	if cfg.Driver == "sqlite" {
		return database.NewSQLiteDB(cfg.SQLitePath, false)
	}
	return database.NewPostgresDB(&database.Config{
		Host:     cfg.Host,
		Port:     cfg.Port,
		User:     cfg.User,
		Password: cfg.Password,
		DBName:   cfg.Name,
		SSLMode:  cfg.SSLMode,
	})
}

// countCache prefers Redis and falls back to process memory when Redis is
// not configured or not reachable at boot.
func countCache(ctx context.Context, addr string, log *logger.Logger) cache.CountCache {
	if addr == "" {
		log.Info("REDIS_ADDR not set, using in-memory count cache")
		return cache.NewMemoryCache()
	}
	redisCache := cache.NewRedisCache(addr)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := redisCache.Ping(pingCtx); err != nil {
		log.Warn("redis unreachable, using in-memory count cache", "addr", addr, "error", err)
		_ = redisCache.Close()
		return cache.NewMemoryCache()
	}
	return redisCache
}

func healthz(db *gorm.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(r.Context())
		}
		if err != nil {
			response.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
		response.OK(w, map[string]string{"status": "ok"})
	}
}
