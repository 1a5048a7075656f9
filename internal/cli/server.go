package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"quiz-progression-service/internal/app"
	"quiz-progression-service/internal/config"
	"quiz-progression-service/internal/daily"
	"quiz-progression-service/internal/domain"
	"quiz-progression-service/internal/infra/memory"
	pgstore "quiz-progression-service/internal/infra/postgres"
	redisstore "quiz-progression-service/internal/infra/redis"
	transport "quiz-progression-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the progression server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
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

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 10*time.Minute)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
	}

	var ledger app.AttemptLedger
	var catalog app.QuestionCatalog
	if pool != nil {
		ledger = pgstore.NewAttemptLedger(pool, cfg.Ledger.MaxRetries)
		pgCatalog := pgstore.NewCatalog(pool)
		catalog = pgCatalog
		if redisClient != nil {
			catalogTTL := config.TTLDuration(cfg.Catalog.TTL, 10*time.Minute)
			catalog = redisstore.NewCatalogCache(redisClient, pgCatalog, catalogTTL)
		}
	} else {
		// No Postgres configured: run fully in memory with demo content.
		ledger = memory.NewAttemptLedger()
		catalog = memory.NewCatalog(sampleQuestions())
	}

	var sessions app.SessionRepository
	if redisClient != nil {
		sessions = redisstore.NewSessionStore(redisClient, redisTTL)
	} else {
		sessions = memory.NewSessionStore()
	}

	selector := daily.NewSelector(catalog, daily.Config{
		UTCOffsetHours: cfg.Daily.UTCOffsetHours,
		ResetHour:      cfg.Daily.ResetHour,
		Salt:           cfg.Daily.Salt,
	})
	service := app.NewProgressionService(ledger, catalog, selector, sessions)
	wsHandler := transport.NewWSHandler(service)
	restHandler := transport.NewRESTHandler(service)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)
	mux.HandleFunc("/attempts", restHandler.SubmitAttempt)
	mux.HandleFunc("/daily", restHandler.DailyQuestion)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting progression service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// sampleQuestions provides minimal demo content for redis/postgres-less runs.
func sampleQuestions() []domain.Question {
	return []domain.Question{
		{
			ID: 1, Number: 1, Text: "What is 2 + 2?",
			OptionA: "3", OptionB: "4", OptionC: "5", OptionD: "22",
			CorrectOption: "B", Difficulty: domain.DifficultyEasy, IsActive: true,
		},
		{
			ID: 2, Number: 2, Text: "Which planet is known as the Red Planet?",
			OptionA: "Venus", OptionB: "Jupiter", OptionC: "Mars", OptionD: "Saturn",
			CorrectOption: "C", Difficulty: domain.DifficultyMedium, IsActive: true,
		},
		{
			ID: 3, Number: 3, Text: "What is the time complexity of binary search?",
			OptionA: "O(n)", OptionB: "O(n log n)", OptionC: "O(1)", OptionD: "O(log n)",
			CorrectOption: "D", Difficulty: domain.DifficultyHard, IsActive: true,
		},
	}
}
