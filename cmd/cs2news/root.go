package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/shanehull/cs2news/internal/ai"
	"github.com/shanehull/cs2news/internal/bot"
	"github.com/shanehull/cs2news/internal/config"
	"github.com/shanehull/cs2news/internal/extract"
	"github.com/shanehull/cs2news/internal/history"
	"github.com/shanehull/cs2news/internal/logger"
	"github.com/shanehull/cs2news/internal/notify"
)

type flags struct {
	configFile string
	statePath  string
	dryRun     bool
	parallel   bool
	debug      bool
}

func newRootCommand(out io.Writer) *cobra.Command {
	var f flags

	cmd := &cobra.Command{
		Use:   "cs2news",
		Short: "Relay the latest Counter-Strike 2 updates and news to Discord",
		Long: `cs2news checks the Counter-Strike 2 update and news pages once, and posts
any entry it has not posted before to a Discord webhook. Run it from cron or
a systemd timer.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), f, out)
		},
	}

	cmd.Flags().StringVarP(&f.configFile, "config", "c", "", "YAML config file (optional)")
	cmd.Flags().StringVar(&f.statePath, "state", "", "history file, overrides CS2NEWS_STATE_FILE")
	cmd.Flags().BoolVar(&f.dryRun, "dry-run", false, "extract and check history without posting")
	cmd.Flags().BoolVarP(&f.parallel, "parallel", "p", false, "process sources concurrently")
	cmd.Flags().BoolVar(&f.debug, "debug", false, "debug logging in console format")

	return cmd
}

func run(ctx context.Context, f flags, out io.Writer) error {
	cfg, err := config.Load(f.configFile)
	if err != nil {
		return err
	}
	if f.statePath != "" {
		cfg.State.Path = f.statePath
	}
	if f.parallel {
		cfg.Parallel = true
	}
	if f.debug {
		cfg.LogLevel = "debug"
	}

	log := logger.New(cfg.LogLevel, f.debug)
	defer func() { _ = log.Sync() }()

	sources, err := cfg.ExtractSources()
	if err != nil {
		return err
	}

	// A store that cannot be opened fails every source instead of the
	// process, so the run report still shows what happened.
	store, err := openStore(ctx, cfg, log)
	if err != nil {
		log.Error("history store unavailable", logger.Error(err))
		store = history.Unavailable{Err: err}
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Warn("failed to close history store", logger.Error(err))
		}
	}()

	browser := extract.NewBrowserFetcher(cfg.Extract.ChromePath)
	browser.NoSandbox = cfg.Extract.ChromeNoSandbox

	ext := extract.New(log,
		extract.WithFetcher(extract.RenderBrowser, browser),
		extract.WithRetry(cfg.Extract.MaxAttempts, cfg.Extract.RetryDelay),
	)

	b := bot.New(bot.Options{
		Sources:  sources,
		Parallel: cfg.Parallel,
		DryRun:   f.dryRun,
	}, ext, store, buildNotifier(ctx, cfg, log), log)

	log.Info("starting run",
		logger.Int("sources", len(sources)),
		logger.Bool("parallel", cfg.Parallel),
		logger.Bool("dry_run", f.dryRun),
	)

	notify.ReportRun(out, b.Run(ctx))
	return nil
}

func openStore(ctx context.Context, cfg *config.Config, log logger.Logger) (history.Store, error) {
	retention := cfg.State.Retention()

	if cfg.State.Backend == config.BackendRedis {
		store, err := history.DialRedis(ctx, cfg.State.RedisAddr, cfg.State.RedisPassword,
			cfg.State.RedisDB, cfg.State.RedisKey, retention)
		if err != nil {
			return nil, err
		}
		log.Info("using redis history", logger.String("addr", cfg.State.RedisAddr))
		return store, nil
	}

	store, err := history.OpenFile(cfg.State.Path, retention, log)
	if err != nil {
		return nil, fmt.Errorf("failed to open history file: %w", err)
	}
	return store, nil
}

// buildNotifier wires the webhook with the optional condenser and email
// mirror. Both extras are skipped, with a log line, when misconfigured.
func buildNotifier(ctx context.Context, cfg *config.Config, log logger.Logger) bot.Notifier {
	opts := []notify.WebhookOption{notify.WithUsername(cfg.WebhookUsername)}

	if cfg.Gemini.APIKey != "" {
		condenser, err := ai.NewCondenser(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model)
		if err != nil {
			log.Warn("summary condensing disabled", logger.Error(err))
		} else {
			opts = append(opts, notify.WithCondenser(condenser))
		}
	}

	var n bot.Notifier = notify.NewWebhook(cfg.WebhookURL, log, opts...)

	email := notify.EmailConfig{
		SMTPServer: cfg.SMTP.Server,
		SMTPPort:   cfg.SMTP.Port,
		SMTPUser:   cfg.SMTP.User,
		SMTPPass:   cfg.SMTP.Pass,
		FromEmail:  cfg.SMTP.From,
		ToEmail:    cfg.SMTP.To,
	}
	if email.Enabled() {
		n = notify.NewMirror(n, notify.NewEmailSender(email), log)
	}

	return n
}
