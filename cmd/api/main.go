package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"collegeerp/internal/api"
	"collegeerp/internal/attendance"
	"collegeerp/internal/config"
	"collegeerp/internal/directory"
	"collegeerp/internal/httpmiddleware"
	"collegeerp/internal/logger"
	"collegeerp/internal/metrics"
	"collegeerp/internal/queue"
	"collegeerp/internal/session"
	"collegeerp/internal/store"
	"collegeerp/internal/worker"
)

func main() {
	cfg := config.Load()
	log := logger.New("erp-api", cfg.Env, cfg.LogLevel)

	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("http server failed")
	}
}

func runHTTP(cfg config.App, log zerolog.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rounding, err := directory.ParseRounding(cfg.SummaryRounding)
	if err != nil {
		return err
	}

	dir, creds, err := openDirectory(ctx, cfg, rounding)
	if err != nil {
		return err
	}
	log.Info().
		Str("source", cfg.FixtureSource).
		Int("users", len(dir.Users())).
		Str("rounding", string(rounding)).
		Msg("directory loaded")

	var redisClient *store.Redis
	if cfg.SessionBackend == "redis" || cfg.QueueBackend == "redis" {
		redisClient = store.NewRedis(cfg.RedisAddr)
		defer redisClient.Close()
	}

	sessionTTL := cfg.SessionTTL
	if sessionTTL <= 0 {
		sessionTTL = cfg.AccessTTL
	}
	var sessions session.Store
	if cfg.SessionBackend == "redis" {
		sessions = session.NewRedisStore(redisClient.Client, sessionTTL)
	} else {
		sessions = session.NewMemoryStore(sessionTTL)
	}

	m := metrics.New(prometheus.DefaultRegisterer)

	var q queue.Queue
	if cfg.QueueBackend == "redis" {
		q = queue.NewRedisQueue(redisClient.Client, cfg.QueueKey)
	} else {
		mem := queue.NewInMemory(64)
		q = mem
		go func() {
			if err := worker.Run(ctx, mem, m, log.With().Str("component", "worker").Logger()); err != nil {
				log.Error().Err(err).Msg("in-process worker failed")
			}
		}()
	}

	att := attendance.NewService(dir, cfg.QRTTL, cfg.ScanDedupWindow)
	h := api.NewHandler(dir, session.NewResolver(dir, creds, sessions), att, q, m, log, api.TokenConfig{
		Issuer:       cfg.JWTIssuer,
		SigningKey:   cfg.JWTSigningKey,
		TTL:          cfg.AccessTTL,
		SecureCookie: cfg.Production(),
	})

	r := gin.New()
	if err := r.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return err
	}
	r.Use(gin.Recovery())
	r.Use(logger.Gin(log, "/healthz", "/metrics"))
	r.Use(httpmiddleware.CORS(cfg.CORSOrigins))
	r.Use(securityHeaders())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/healthz", func(c *gin.Context) {
		resp := gin.H{"status": "ok", "sessions": cfg.SessionBackend, "queue": cfg.QueueBackend}
		status := http.StatusOK
		if redisClient != nil {
			healthy := redisClient.Healthy(c.Request.Context())
			resp["redis"] = healthy
			if !healthy {
				status = http.StatusServiceUnavailable
				resp["status"] = "degraded"
			}
		}
		c.JSON(status, resp)
	})

	loginLimiter := httpmiddleware.NewTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin, httpmiddleware.ClientIP)
	h.RegisterRoutes(r, loginLimiter.Middleware())

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.HTTPPort).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")

	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("server forced shutdown")
	}

	log.Info().Msg("server exited")
	return nil
}

// openDirectory loads the fixture from the configured source. The Postgres
// pool is closed again once the fixture is in memory.
func openDirectory(ctx context.Context, cfg config.App, rounding directory.Rounding) (*directory.Directory, []directory.Credential, error) {
	opts := []directory.Option{directory.WithRounding(rounding)}
	if cfg.FixtureSource != "postgres" {
		return directory.Open(ctx, directory.StaticSource{Fixture: directory.Seed()}, opts...)
	}

	db, err := store.NewDB(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	defer db.Close()
	return directory.Open(ctx, store.PostgresSource{DB: db.Client}, opts...)
}

// Security headers middleware
func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Header("Cache-Control", "no-store")

		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}
