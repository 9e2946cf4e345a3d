package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jonboulle/clockwork"
	"github.com/sethvargo/go-retry"

	httpadapter "caseguard/internal/adapters/http"
	pg "caseguard/internal/adapters/postgres"
	"caseguard/internal/config"
	"caseguard/internal/logger"
	enfsvc "caseguard/internal/services/enforcement"
	issuesvc "caseguard/internal/services/issues"
)

func main() {
	cfg, err := config.Load()
	log := logger.New(cfg)
	if err != nil {
		log.Warn().Err(err).Msg("config")
	}
	if cfg.DatabaseURL == "" {
		log.Fatal().Msg("DATABASE_URL is required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The database can come up after us; retry the initial connect.
	var db *pg.DB
	backoff := retry.WithMaxDuration(30*time.Second, retry.NewExponential(500*time.Millisecond))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		var cerr error
		db, cerr = pg.Connect(ctx, cfg.DatabaseURL, log)
		if cerr != nil {
			return retry.RetryableError(cerr)
		}
		return nil
	})
	if err != nil {
		log.Fatal().Err(err).Msg("db connect failed")
	}
	defer db.Close()

	if cfg.MigrateOnStart {
		if err := db.Migrate(ctx); err != nil {
			log.Fatal().Err(err).Msg("migrations failed")
		}
	}

	clock := clockwork.NewRealClock()
	issues := issuesvc.New(&db.Store, clock, log)
	enforcement := enfsvc.New(db, clock, log)

	srv := httpadapter.New(issues, enforcement, log)
	r := chi.NewRouter()
	r.Mount("/", srv.Routes())

	errCh := make(chan error, 1)
	go func() { errCh <- http.ListenAndServe(cfg.ListenAddr, r) }()
	log.Info().Str("addr", cfg.ListenAddr).Msg("listening")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
		cancel()
		time.Sleep(300 * time.Millisecond)
	case err := <-errCh:
		log.Fatal().Err(err).Msg("server error")
	}
}
