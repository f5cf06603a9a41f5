package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/go-relay-server/access"
	"github.com/jrsteele09/go-relay-server/access/redisrepo"
	"github.com/jrsteele09/go-relay-server/approval"
	"github.com/jrsteele09/go-relay-server/auth"
	"github.com/jrsteele09/go-relay-server/bot/telegram"
	"github.com/jrsteele09/go-relay-server/completion"
	"github.com/jrsteele09/go-relay-server/events"
	"github.com/jrsteele09/go-relay-server/internal/config"
	"github.com/jrsteele09/go-relay-server/server"
	"github.com/jrsteele09/go-relay-server/sessions"
	"github.com/jrsteele09/go-relay-server/token"
	"github.com/jrsteele09/go-relay-server/tracing"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

func main() {
	var configFile string

	rootCmd := &cobra.Command{
		Use:           "relay-server",
		Short:         "Hosts per-user chat bots that relay messages to a completion API",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if configFile == "" {
				configFile = os.Getenv("CONFIG_FILE")
			}
			if configFile != "" {
				if err := config.LoadFile(configFile); err != nil {
					return errors.Wrap(err, "load config")
				}
			}
			return run(cmd.Context())
		},
	}
	rootCmd.Flags().StringVar(&configFile, "config", "", "YAML config file; environment variables take precedence")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.Error().Err(err).Msg("server stopped with error")
		os.Exit(1)
	}
	log.Info().Msg("server stopped")
}

func run(ctx context.Context) (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("recovered from panic")
			returnError = errors.New("panic recovered")
		}
	}()

	c := config.New()
	setupLogging(c)
	if err := c.Validate(); err != nil {
		return err
	}
	displayAppname(c.GetAppName())

	if err := telegram.UseLogger(log.Logger); err != nil {
		return errors.Wrap(err, "telegram logger")
	}

	shutdownTracing, err := tracing.Init(c.GetAppName(), c.GetTraceOutput())
	if err != nil {
		return errors.Wrap(err, "tracing")
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			log.Warn().Err(err).Msg("tracing shutdown")
		}
	}()

	adminBot, err := telegram.Dial(ctx, c.GetMasterBotToken(), telegram.WithPollTimeout(c.GetBotPollTimeout()))
	if err != nil {
		return errors.Wrap(err, "admin bot")
	}
	defer adminBot.Close()
	log.Info().Str("bot", adminBot.Username()).Msg("admin bot connected")

	accessRepo, closeRepo, err := openAccessRepo(ctx, c)
	if err != nil {
		return err
	}
	defer closeRepo()

	bus := events.NewBus(log.Logger)
	defer bus.Close()

	registry, err := access.NewRegistry(accessRepo, approval.NewNotifier(adminBot, c.GetAdminChatID()),
		access.WithPublisher(bus),
		access.WithLogger(log.Logger),
	)
	if err != nil {
		return err
	}
	channel := approval.NewChannel(registry, adminBot, approval.WithLogger(log.Logger))
	listener := approval.NewListener(adminBot, channel, c.GetAdminChatID())

	manager := sessions.NewManager(ctx, sessions.NewInMemoryRepo(),
		telegram.NewDialer(telegram.WithPollTimeout(c.GetBotPollTimeout())),
		completion.NewOpenAIFactory(c.GetCompletionBaseURL(), c.GetCompletionModel()),
		sessions.WithStopTimeout(c.GetSessionStopTimeout()),
		sessions.WithCompletionTimeout(c.GetCompletionTimeout()),
		sessions.WithLogger(log.Logger),
	)
	defer manager.StopAll()

	logouts := token.NewMemoryLogoutList()
	issuer := token.NewIssuer(token.NewHMACSigner(token.DeriveSessionKey(c.GetMasterBotToken())), c.GetSessionTokenExpiry(),
		token.WithLogoutList(logouts),
	)

	handler, err := server.New(c, server.Deps{
		Verifier: auth.NewVerifier([]byte(c.GetMasterBotToken()), auth.WithMaxAge(c.GetMaxLoginAge())),
		Access:   registry,
		Sessions: manager,
		Tokens:   issuer,
		Status:   bus,
	})
	if err != nil {
		return err
	}
	httpServer := &http.Server{Addr: c.GetPort(), Handler: handler, ReadHeaderTimeout: 10 * time.Second}

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		return listenAndServe(httpServer)
	})
	eg.Go(func() error {
		return listener.Run(egCtx)
	})
	eg.Go(func() error {
		pruneLogouts(egCtx, logouts)
		return nil
	})
	eg.Go(func() error {
		<-egCtx.Done()
		return shutdown(httpServer)
	})

	if err := eg.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func setupLogging(c config.Config) {
	level, err := zerolog.ParseLevel(c.GetLogLevel())
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if c.GetEnv() == "DEV" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly})
	}
}

// openAccessRepo uses Redis when REDIS_ADDR is set, otherwise an in-memory store that forgets on restart.
func openAccessRepo(ctx context.Context, c config.Config) (access.Repo, func(), error) {
	if c.GetRedisAddr() == "" {
		log.Warn().Msg("REDIS_ADDR not set, access requests are kept in memory")
		return access.NewInMemoryRepo(), func() {}, nil
	}
	repo, err := redisrepo.Dial(ctx, c.GetRedisAddr(), c.GetRedisPassword(), c.GetRedisDB(), c.GetRedisPrefix())
	if err != nil {
		return nil, nil, errors.Wrap(err, "access store")
	}
	return repo, func() { _ = repo.Close() }, nil
}

func pruneLogouts(ctx context.Context, logouts *token.MemoryLogoutList) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := logouts.Prune(now); n > 0 {
				log.Debug().Int("pruned", n).Msg("expired logouts dropped")
			}
		}
	}
}

func listenAndServe(server *http.Server) error {
	log.Info().Msgf("Server listening on %s", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
