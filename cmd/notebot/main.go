package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kamomai/notebot/internal/api"
	"github.com/kamomai/notebot/internal/config"
	"github.com/kamomai/notebot/internal/discord"
	"github.com/kamomai/notebot/internal/llm"
	"github.com/kamomai/notebot/internal/logger"
	"github.com/kamomai/notebot/internal/metrics"
	"github.com/kamomai/notebot/internal/misskey"
	"github.com/kamomai/notebot/internal/publish"
	"github.com/kamomai/notebot/internal/rss"
	"github.com/kamomai/notebot/internal/scheduler"
	"github.com/kamomai/notebot/internal/summary"
)

const fragmentRule = "\n-----\n"

type server interface {
	Start(ctx context.Context, addr string) error
}

type assembler interface {
	Assemble(ctx context.Context, prompt string) ([]string, error)
}

type discordClient interface {
	Open() error
	Close() error
	Ready() bool
	ChannelMessages(ctx context.Context, channelID string, limit int, after time.Time) ([]discord.Message, error)
}

type scheduleRunner interface {
	Run(ctx context.Context) error
}

var (
	loadConfig = func() (config.Config, error) {
		cfg := config.Load()
		return cfg, cfg.Validate()
	}
	newLogger   = logger.New
	newProvider = func(ctx context.Context, cfg config.Config) (llm.Provider, error) {
		return llm.NewGeminiProvider(ctx, llm.GeminiConfig{
			ProjectID: cfg.ProjectID,
			Region:    cfg.Region,
			Model:     cfg.GenAIModel,
		})
	}
	newAssembler = func(provider llm.Provider, opts ...llm.AssemblerOption) assembler {
		return llm.NewAssembler(provider, opts...)
	}
	newPoster = func(cfg config.Config) publish.PostFunc {
		return misskey.NewClient(misskey.Config{
			Host:       cfg.MisskeyHost,
			Token:      cfg.MisskeyToken,
			Visibility: cfg.MisskeyVisibility,
			BaseURL:    cfg.MisskeyBaseURL,
			Timeout:    cfg.PostTimeout(),
		}).Post
	}
	newDiscord = func(token string) (discordClient, error) {
		return discord.NewClient(token)
	}
	newServer = func(summaries api.Summarizer, opts ...api.Option) server {
		return api.NewServer(summaries, opts...)
	}
	newScheduler = func(expr string, job scheduler.Job, log *logger.Logger) (scheduleRunner, error) {
		return scheduler.New(expr, "discord-summary", job, log)
	}
	notifyContext           = signal.NotifyContext
	stdin         io.Reader = os.Stdin
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "notebot",
		Short: "Grounded AI answers posted to Misskey as reply chains",
		Long: `notebot generates grounded answers with Gemini and posts them to Misskey.

Run without a subcommand to start the HTTP server.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
	root.AddCommand(newServeCmd(), newAskCmd())
	return root
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server and the optional summary schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

func newAskCmd() *cobra.Command {
	var publishChain bool
	cmd := &cobra.Command{
		Use:   "ask [prompt...]",
		Short: "Assemble an answer for one prompt",
		Long: `Assemble an answer for one prompt and print its fragments.

The prompt is read from stdin when no arguments are given.
Use --publish to post the fragments to Misskey as a reply chain.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAsk(cmd.Context(), args, publishChain, cmd.OutOrStdout())
		},
	}
	cmd.Flags().BoolVarP(&publishChain, "publish", "p", false, "post the fragments to Misskey")
	return cmd
}

func runServe(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log, err := newLogger(cfg.LogMode)
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, cancel := notifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	m := metrics.New()
	provider, err := newProvider(ctx, cfg)
	if err != nil {
		return err
	}
	pipeline := newAssembler(provider, llm.WithLogger(log), llm.WithMetrics(m))

	summaryOpts := []summary.Option{summary.WithLogger(log), summary.WithMetrics(m)}
	apiOpts := []api.Option{api.WithLogger(log), api.WithMetrics(m)}

	if token := strings.TrimSpace(cfg.DiscordBotToken); token != "" {
		dc, err := newDiscord(token)
		if err != nil {
			return err
		}
		if err := dc.Open(); err != nil {
			return fmt.Errorf("open discord session: %w", err)
		}
		defer dc.Close()
		summaryOpts = append(summaryOpts, summary.WithMessages(dc))
		apiOpts = append(apiOpts, api.WithMessages(dc), api.WithReadiness(dc))
	} else {
		log.Warn("DISCORD_BOT_TOKEN is not set; discord routes are disabled")
	}

	if len(cfg.RSSURLs) > 0 {
		feeds := rss.NewFetcher(cfg.RSSURLs, cfg.RSSTimeout())
		summaryOpts = append(summaryOpts, summary.WithFeeds(feeds))
		apiOpts = append(apiOpts, api.WithFeeds(feeds))
	}

	service := summary.NewService(pipeline, newPoster(cfg), summary.Config{
		ChannelID:    cfg.DiscordChannelID,
		HistoryLimit: cfg.DiscordHistoryLimit,
		Window:       cfg.SummaryWindow(),
	}, summaryOpts...)

	if expr := strings.TrimSpace(cfg.SummaryCron); expr != "" {
		sched, err := newScheduler(expr, func(ctx context.Context) error {
			_, err := service.SummarizeDiscord(ctx)
			return err
		}, log)
		if err != nil {
			return err
		}
		go func() {
			if err := sched.Run(ctx); err != nil {
				log.Error("scheduler stopped with error", "error", err)
			}
		}()
		log.Info("summary schedule enabled", "cron", expr)
	}

	addr := fmt.Sprintf(":%s", cfg.Port)
	log.Info("notebot listening", "addr", addr)
	return newServer(service, apiOpts...).Start(ctx, addr)
}

func runAsk(parent context.Context, args []string, publishChain bool, out io.Writer) error {
	if parent == nil {
		parent = context.Background()
	}
	prompt := strings.TrimSpace(strings.Join(args, " "))
	if prompt == "" {
		raw, err := io.ReadAll(stdin)
		if err != nil {
			return fmt.Errorf("read prompt: %w", err)
		}
		prompt = strings.TrimSpace(string(raw))
	}
	if prompt == "" {
		return errors.New("prompt is required")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log, err := newLogger(cfg.LogMode)
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, cancel := notifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	provider, err := newProvider(ctx, cfg)
	if err != nil {
		return err
	}
	fragments, err := newAssembler(provider, llm.WithLogger(log)).Assemble(ctx, prompt)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintln(out, strings.Join(fragments, fragmentRule)); err != nil {
		return err
	}
	if !publishChain {
		return nil
	}

	ids, err := publish.PublishChain(ctx, fragments, newPoster(cfg))
	if len(ids) > 0 {
		fmt.Fprintf(out, "posted notes: %s\n", strings.Join(ids, ", "))
	}
	return err
}
