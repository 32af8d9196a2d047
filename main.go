package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/backsoul/trivia/pkg/handlers"
	"github.com/backsoul/trivia/pkg/models"
	"github.com/backsoul/trivia/pkg/notify"
	"github.com/backsoul/trivia/pkg/redis"
	"github.com/backsoul/trivia/pkg/services"
	"github.com/backsoul/trivia/pkg/websocket"
	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/valyala/fasthttp"
)

const (
	releaseVersion = "1.0.0"

	shutdownTimeout = 5 * time.Second
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	// Load .env file if it exists
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	cfg := &Config{}
	cobra.CheckErr(newCmd(cfg).Execute())
}

// ServeGame wires the game session to the HTTP surface and blocks until shutdown.
func ServeGame(ctx context.Context, cfg *Config) error {
	if cfg.verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	log.Info().Str("version", releaseVersion).Msg("🚀 starting trivia server")

	questions, err := loadQuestions(cfg.questions)
	if err != nil {
		return err
	}

	hub := websocket.NewHub()
	sinks := notify.Fanout{hub}

	var health handlers.HealthChecker
	if cfg.redisAddr != "" {
		log.Info().Str("addr", cfg.redisAddr).Msg("🔌 connecting to Redis")
		redisClient, err := redis.NewRedisClient(ctx, cfg.redisAddr, cfg.redisPassword, cfg.redisDB)
		if err != nil {
			return err
		}
		defer redisClient.Close()
		sinks = append(sinks, redisClient.Publisher())
		health = redisClient
	}

	broadcaster := notify.NewBroadcaster(sinks, notify.WithDelays(cfg.playerDelay, cfg.adminDelay))
	engine := services.NewGameEngine(services.NewQuestionBank(questions), models.DefaultSettings(), broadcaster)

	displays := newDisplays(hub, clockwork.NewRealClock(), cancel)
	router := handlers.NewRouter(
		handlers.NewAdminHandler(engine, displays, cfg.adminPassword),
		handlers.NewPlayerHandler(engine, displays, cfg.adminPassword),
		hub,
		health,
		cfg.webDir,
	)

	server := &fasthttp.Server{
		Handler: router.Handle,
		Name:    "Trivia Server",
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		hub.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		_ = broadcaster.Run(ctx)
	}()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe(cfg.addr())
	}()

	log.Info().
		Str("addr", cfg.addr()).
		Int("questions", len(questions)).
		Msg("🎮 trivia server listening")
	log.Info().Msgf("📱 Player display: http://localhost:%d/", cfg.port)
	log.Info().Msgf("🎛️  Admin console:  http://localhost:%d/admin", cfg.port)

	select {
	case <-ctx.Done():
	case err := <-errCh:
		cancel()
		wg.Wait()
		return fmt.Errorf("serve %s: %w", cfg.addr(), err)
	}

	log.Info().Msg("🔄 shutting down")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()
	if err := server.ShutdownWithContext(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("server shutdown incomplete")
	}
	wg.Wait()

	log.Info().Msg("👋 bye")
	return nil
}

func loadQuestions(path string) ([]models.Question, error) {
	if path == "" {
		questions, err := services.DefaultQuestions()
		if err != nil {
			return nil, fmt.Errorf("load default questions: %w", err)
		}
		log.Info().Int("count", len(questions)).Msg("📚 using built-in question bank")
		return questions, nil
	}

	questions, err := services.LoadQuestionsFromFile(path)
	if err != nil {
		return nil, fmt.Errorf("load questions from %s: %w", path, err)
	}
	log.Info().Int("count", len(questions)).Msg("✅ question bank loaded")
	return questions, nil
}
