package cli

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/polybot/internal/bot"
	"github.com/roach88/polybot/internal/config"
	"github.com/roach88/polybot/internal/engine"
	"github.com/roach88/polybot/internal/server"
	"github.com/roach88/polybot/internal/session"
	"github.com/roach88/polybot/internal/telegram"
)

// retryInitial is the first backoff interval for Bot API calls.
const retryInitial = 500 * time.Millisecond

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Addr      string
	Backend   string
	NoWebhook bool
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the bot behind a Telegram webhook",
		Long: `Run the bot: register the webhook with Telegram, accept updates over
HTTP and process them one at a time.

The bot token and public url come from the config file or the
environment (POLYBOT_TELEGRAM_TOKEN / TELEGRAM_TOKEN and
POLYBOT_TELEGRAM_APP_URL / TELEGRAM_APP_URL). SIGINT or SIGTERM stops
accepting updates, finishes queued ones and exits.

Examples:
  polybot serve
  polybot serve --addr :8080 --session-backend sqlite
  polybot serve --config polybot.yaml --no-webhook`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", ":8443", "listen address")
	cmd.Flags().StringVar(&opts.Backend, "session-backend", "memory", "session cache (memory|sqlite)")
	cmd.Flags().BoolVar(&opts.NoWebhook, "no-webhook", false, "do not register the webhook with Telegram")

	return cmd
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	cfg, err := opts.loadConfig(cmd, map[string]string{
		"server.addr":     "addr",
		"session.backend": "session-backend",
	})
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeConfig, err.Error(), nil)
	}

	var problems []string
	for _, verr := range cfg.ValidateServe() {
		if opts.NoWebhook && verr.Code == config.ErrMissingAppURL {
			continue
		}
		problems = append(problems, verr.Error())
	}
	if len(problems) > 0 {
		return f.FailList(ExitCommandError, ErrCodeConfig, "invalid configuration", problems)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := Serve(ctx, cfg, !opts.NoWebhook); err != nil {
		return f.Fail(ExitFailure, ErrCodeServe, err.Error(), nil)
	}
	return nil
}

// Serve runs the webhook server and the dispatch loop until ctx is done.
// Queued messages are processed before it returns.
func Serve(ctx context.Context, cfg *config.Config, registerWebhook bool) error {
	sessions, err := session.Open(cfg.Session.Backend)
	if err != nil {
		return err
	}
	defer sessions.Close()

	client := telegram.NewClient(cfg.Telegram.Token,
		telegram.WithBaseURL(cfg.Telegram.APIURL),
		telegram.WithHTTPClient(&http.Client{Timeout: cfg.Telegram.Timeout}),
		telegram.WithRetries(cfg.Telegram.MaxRetries, retryInitial),
	)
	transport := telegram.NewTransport(client, cfg.Output.MaxDownloadBytes, cfg.Output.JPEGQuality)

	b := bot.New(transport, sessions, bot.WithTimeout(cfg.Session.Timeout))
	hash := b.Grammar().Hash()
	slog.Info("grammar loaded", "hash", hash, "effects", len(b.Grammar().Names()))

	eng := engine.New(b, engine.UUIDv7Generator{})
	srv := server.New(&server.Config{
		Addr:         cfg.Server.Addr,
		Token:        cfg.Telegram.Token,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, eng, sessions, hash)

	if registerWebhook {
		me, err := client.GetMe(ctx)
		if err != nil {
			return fmt.Errorf("get bot identity: %w", err)
		}
		if err := client.SetWebhook(ctx, cfg.WebhookURL()); err != nil {
			return fmt.Errorf("set webhook: %w", err)
		}
		slog.Info("webhook registered", "bot", me.Username, "app_url", cfg.Telegram.AppURL)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		// Stop drains the queue; cancelling would drop queued messages.
		return eng.Run(context.WithoutCancel(gctx))
	})
	g.Go(srv.Start)
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.WriteTimeout)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		eng.Stop()
		return err
	})

	return g.Wait()
}
