package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"school-test-bot/internal/config"
	"school-test-bot/internal/content"
	"school-test-bot/internal/domain"
	"school-test-bot/internal/flow"
	"school-test-bot/internal/infra/memory"
	pginfra "school-test-bot/internal/infra/postgres"
	redisinfra "school-test-bot/internal/infra/redis"
	"school-test-bot/internal/quiz"
	transport "school-test-bot/internal/transport/http"
)

const defaultContentBaseURL = "https://garickbox.github.io/test/test/"

// NewServeCmd builds the CLI subcommand to start the bot server.
func NewServeCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the test bot server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	zerolog.TimeFieldFormat = time.RFC3339
	log := zerolog.New(os.Stdout).With().Timestamp().Logger()

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

	var redisClient *goredis.Client
	if cfg.Redis.Addr != "" {
		redisClient = goredis.NewClient(&goredis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	baseURL := cfg.Content.BaseURL
	if baseURL == "" {
		baseURL = defaultContentBaseURL
	}
	var loader memory.TestLoader = content.NewHTTPLoader(baseURL, log)
	if redisClient != nil {
		// Shared Redis layer under the per-process memoizing cache.
		loader = redisinfra.NewTestCache(redisClient, loader, config.Duration(cfg.Redis.TTL, 0))
	}
	testCache := memory.NewTestCache(loader)

	gateway := transport.NewGateway(log)
	tracker := quiz.NewTracker(gateway, log)
	store := memory.NewSessionStore(tracker)
	engine := quiz.NewEngine(store, log)

	var roster flow.Roster = memory.NewRoster(sampleStudents())
	if pool != nil {
		roster = pginfra.NewRoster(pool)
	}

	var sink flow.ResultSink = flow.NewLogSink(log)
	if pool != nil {
		sink = pginfra.NewResultStore(pool, log)
	}

	timing := flow.DefaultTiming()
	timing.TempMessage = config.Duration(cfg.Timing.TempMessage, timing.TempMessage)
	timing.AnswerFeedback = config.Duration(cfg.Timing.AnswerFeedback, timing.AnswerFeedback)
	timing.QuestionTransition = config.Duration(cfg.Timing.QuestionTransition, timing.QuestionTransition)
	timing.FinalResult = config.Duration(cfg.Timing.FinalResult, timing.FinalResult)

	coordinator := flow.NewCoordinator(flow.Deps{
		Engine:    engine,
		Tracker:   tracker,
		Tests:     testCache,
		Catalog:   content.DefaultCatalog(),
		Roster:    roster,
		Sink:      sink,
		Transport: gateway,
		Timing:    timing,
		Website:   cfg.Content.Website,
		Log:       log,
	})
	gateway.Bind(coordinator)

	reaperCtx, stopReaper := context.WithCancel(ctx)
	defer stopReaper()
	reaper := quiz.NewReaper(store,
		config.Duration(cfg.Quiz.SessionTimeout, 30*time.Minute),
		config.Duration(cfg.Quiz.ReapInterval, 5*time.Minute),
		log)
	go reaper.Start(reaperCtx)

	adminHandler := transport.NewAdminHandler(engine, coordinator, testCache)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", gateway.ServeWS)
	mux.HandleFunc("/admin/stats", adminHandler.Stats)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("starting school test bot")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stop:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
	case <-ctx.Done():
		log.Info().Msg("context canceled, shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// sampleStudents seeds the in-memory roster when no database is configured;
// swap in the Postgres roster for production.
func sampleStudents() []domain.Student {
	return []domain.Student{
		{ID: 1, LastName: "Иванов", FirstName: "Иван", Class: "7"},
		{ID: 2, LastName: "Петрова", FirstName: "Мария", Class: "7"},
		{ID: 3, LastName: "Сидоров", FirstName: "Алексей", Class: "8"},
		{ID: 4, LastName: "Кузнецова", FirstName: "Анна", Class: "9"},
		{ID: 5, LastName: "Смирнов", FirstName: "Дмитрий", Class: "10"},
		{ID: 6, LastName: "Волкова", FirstName: "Екатерина", Class: "11"},
	}
}
