package cli

import (
	"context"
	"log"
	"net/http"
	"time"

	"quizwhiz-service/internal/app"
	"quizwhiz-service/internal/config"
	"quizwhiz-service/internal/domain"
	"quizwhiz-service/internal/event"
	"quizwhiz-service/internal/infra/memory"
	pgstore "quizwhiz-service/internal/infra/postgres"
	redisstore "quizwhiz-service/internal/infra/redis"
	transport "quizwhiz-service/internal/transport/http"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

// quizCache is a quiz repository whose entries can be dropped after a republish.
type quizCache interface {
	app.QuizRepository
	transport.QuizCache
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var (
		store   transport.QuizCatalog = memory.NewStaticQuizLoader(sampleQuizzes())
		opts    []app.Option
		history transport.HistoryReader
	)

	if cfg.Postgres.URL != "" {
		db := openBunDB(cfg.Postgres.URL)
		defer db.Close()
		if err := migrateDB(ctx, db); err != nil {
			return err
		}
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()

		store = pgstore.NewQuizLoader(pool)
		results := pgstore.NewResultStore(db)
		opts = append(opts, app.WithResultStore(results))
		history = results
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
	}
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 10*time.Minute)
	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)

	var quizRepo quizCache
	var sessions app.SessionRepository
	if redisClient != nil {
		quizRepo = redisstore.NewQuizRepository(redisClient, store, quizTTL)
		sessions = redisstore.NewSessionStore(redisClient, redisTTL)
	} else {
		quizRepo = memory.NewQuizRepository(store, quizTTL)
		sessions = memory.NewSessionStore()
	}

	publisher, err := event.NewPublisher(cfg.RabbitMQ.URL)
	if err != nil {
		return err
	}
	defer publisher.Close()
	opts = append(opts, app.WithEventPublisher(publisher))

	service := app.NewQuizService(sessions, quizRepo, opts...)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      transport.NewRouter(service, transport.Stores{Quizzes: store, Cache: quizRepo, History: history}),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Printf("starting quiz service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
		log.Println("shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// sampleQuizzes seeds the in-memory store when no database is configured.
func sampleQuizzes() map[string]domain.Quiz {
	return map[string]domain.Quiz{
		"demo": {
			ID:    "demo",
			Code:  "DEMO42",
			Title: "Warmup",
			Questions: []domain.Question{
				{
					ID:                 "q1",
					Prompt:             "What is 2 + 2?",
					Options:            []string{"3", "4", "5", "22"},
					CorrectOptionIndex: 1,
					Points:             1,
				},
				{
					ID:                 "q2",
					Prompt:             "Which planet is the largest?",
					Options:            []string{"Mars", "Jupiter", "Venus", "Earth"},
					CorrectOptionIndex: 1,
					Points:             2,
				},
			},
		},
	}
}
