package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"snaplister/internal/config"
	"snaplister/internal/llm"
	"snaplister/internal/server"
	"snaplister/internal/session"
	"snaplister/internal/storage"
)

const shutdownTimeout = 10 * time.Second

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	config.LoadEnvFile()

	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	// Create context that cancels on SIGINT or SIGTERM
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, err := storage.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize history store")
	}
	defer store.Close()
	log.Info().Str("dbPath", cfg.DBPath).Msg("history store initialized")

	generator, err := llm.NewGeminiGenerator(ctx, cfg.GeminiAPIKey)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize gemini generator")
	}
	log.Info().Msg("gemini generator initialized")

	manager := session.NewManager(generator, store)
	app := server.NewApp(manager, log.Logger)

	srv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: server.NewRouter(app),
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("addr", cfg.ListenAddr).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("shutdown with error")
	} else {
		log.Info().Msg("shutdown complete")
	}
}
