package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"quizhub-api/internal/app"
	"quizhub-api/internal/auth"
	"quizhub-api/internal/config"
	"quizhub-api/internal/infra/memory"
	"quizhub-api/internal/infra/postgres"
	infraredis "quizhub-api/internal/infra/redis"
	"quizhub-api/internal/logging"
	"quizhub-api/internal/metrics"
	transport "quizhub-api/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	log := logging.New("quizhub-api")

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var store app.Store = memory.NewStore()
	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
		store = postgres.NewStore(pool)
	}

	var rankedSource app.LeaderboardSource = store
	if cfg.Redis.Addr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		ttl := config.TTLDuration(cfg.Leaderboard.TTL, 30*time.Second)
		rankedSource = infraredis.NewLeaderboardCache(redisClient, store, ttl)
	}

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	codec := auth.NewTokenCodec(cfg.Auth.Secret, nil)
	gate := auth.NewGate(codec)

	streakService := app.NewStreakService(store, m, nil)
	userService := app.NewUserService(store, codec, streakService, nil)
	questionService := app.NewQuestionService(store, nil)
	scoringService := app.NewScoringService(store, store, m, nil)
	leaderboardService := app.NewLeaderboardService(rankedSource, log)
	statsService := app.NewStatsService(store, nil)

	handler := transport.NewHandler(gate, userService, questionService, scoringService, streakService, leaderboardService, statsService, log)
	wsHandler := transport.NewWSHandler(leaderboardService, log)

	mux := http.NewServeMux()
	handler.Register(mux)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/ws/leaderboard", wsHandler.ServeWS)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.WithField("port", finalPort).Info("starting quizhub api")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("server stopped")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info("shutting down server...")
	case <-ctx.Done():
		log.Info("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
