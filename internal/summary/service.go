package summary

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kamomai/notebot/internal/discord"
	"github.com/kamomai/notebot/internal/logger"
	"github.com/kamomai/notebot/internal/metrics"
	"github.com/kamomai/notebot/internal/publish"
	"github.com/kamomai/notebot/internal/rss"
)

const (
	SourceDiscord = "discord"
	SourceRSS     = "rss"
	SourcePrompt  = "prompt"

	defaultWindow = time.Hour
)

var (
	ErrDiscordNotConfigured = errors.New("discord channel is not configured")
	ErrFeedsNotConfigured   = errors.New("rss feeds are not configured")
)

type Assembler interface {
	Assemble(ctx context.Context, prompt string) ([]string, error)
}

type MessageSource interface {
	ChannelMessages(ctx context.Context, channelID string, limit int, after time.Time) ([]discord.Message, error)
}

type FeedSource interface {
	Entries(ctx context.Context) ([]rss.Entry, error)
}

type Result struct {
	Source    string   `json:"source"`
	Prompt    string   `json:"prompt"`
	Fragments []string `json:"fragments"`
	NoteIDs   []string `json:"note_ids"`
}

type Config struct {
	ChannelID    string
	HistoryLimit int
	Window       time.Duration
}

type Option func(*Service)

func WithMessages(source MessageSource) Option {
	return func(s *Service) {
		s.messages = source
	}
}

func WithFeeds(source FeedSource) Option {
	return func(s *Service) {
		s.feeds = source
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func WithLogger(l *logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// Service turns collected prompts into published reply chains. Only one
// batch runs at a time; callers queue on the lock.
type Service struct {
	assembler Assembler
	post      publish.PostFunc
	messages  MessageSource
	feeds     FeedSource
	cfg       Config
	now       func() time.Time
	logger    *logger.Logger
	metrics   *metrics.Metrics

	mu sync.Mutex
}

func NewService(assembler Assembler, post publish.PostFunc, cfg Config, opts ...Option) *Service {
	if cfg.Window <= 0 {
		cfg.Window = defaultWindow
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = discord.DefaultHistoryLimit
	}
	s := &Service{
		assembler: assembler,
		post:      post,
		cfg:       cfg,
		now:       time.Now,
		logger:    logger.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SummarizeDiscord publishes one chain per non-blank message posted to the
// configured channel within the summary window.
func (s *Service) SummarizeDiscord(ctx context.Context) ([]Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.messages == nil || strings.TrimSpace(s.cfg.ChannelID) == "" {
		return nil, ErrDiscordNotConfigured
	}
	log := s.logger.With("trace_id", uuid.NewString(), "source", SourceDiscord)

	after := s.now().Add(-s.cfg.Window)
	messages, err := s.messages.ChannelMessages(ctx, s.cfg.ChannelID, s.cfg.HistoryLimit, after)
	if err != nil {
		log.Error("failed to fetch channel messages", "channel_id", s.cfg.ChannelID, "error", err)
		return nil, err
	}

	prompts := make([]string, 0, len(messages))
	for _, message := range messages {
		prompt := strings.TrimSpace(message.Content)
		if prompt == "" {
			continue
		}
		prompts = append(prompts, prompt)
	}
	log.Info("summarizing channel messages", "fetched", len(messages), "prompts", len(prompts))
	return s.runBatch(ctx, log, SourceDiscord, prompts)
}

// SummarizeFeeds publishes one chain per feed entry published within the
// summary window, using the entry link as the prompt. Undated entries are
// skipped.
func (s *Service) SummarizeFeeds(ctx context.Context) ([]Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.feeds == nil {
		return nil, ErrFeedsNotConfigured
	}
	log := s.logger.With("trace_id", uuid.NewString(), "source", SourceRSS)

	entries, err := s.feeds.Entries(ctx)
	if err != nil {
		log.Error("failed to fetch feed entries", "error", err)
		return nil, err
	}

	after := s.now().Add(-s.cfg.Window)
	prompts := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.Link == "" || entry.Published == nil || !entry.Published.After(after) {
			continue
		}
		prompts = append(prompts, entry.Link)
	}
	log.Info("summarizing feed entries", "fetched", len(entries), "prompts", len(prompts))
	return s.runBatch(ctx, log, SourceRSS, prompts)
}

// SummarizePrompt assembles and publishes a single prompt.
func (s *Service) SummarizePrompt(ctx context.Context, prompt string) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	log := s.logger.With("trace_id", uuid.NewString(), "source", SourcePrompt)
	result, err := s.summarize(ctx, log, SourcePrompt, prompt)
	s.recordOutcome(SourcePrompt, err)
	return result, err
}

func (s *Service) runBatch(ctx context.Context, log *logger.Logger, source string, prompts []string) ([]Result, error) {
	results := make([]Result, 0, len(prompts))
	for i, prompt := range prompts {
		result, err := s.summarize(ctx, log, source, prompt)
		s.recordOutcome(source, err)
		if err != nil {
			log.Error("batch stopped", "index", i, "completed", len(results), "error", err)
			return results, err
		}
		results = append(results, result)
	}
	return results, nil
}

func (s *Service) summarize(ctx context.Context, log *logger.Logger, source string, prompt string) (Result, error) {
	result := Result{Source: source, Prompt: prompt}

	fragments, err := s.assembler.Assemble(ctx, prompt)
	if err != nil {
		return result, err
	}
	result.Fragments = fragments

	ids, err := publish.PublishChain(ctx, fragments, s.post)
	result.NoteIDs = ids
	for range ids {
		s.metrics.IncNotePosted()
	}
	if err != nil {
		s.metrics.IncNoteFailed()
		return result, err
	}
	log.Debug("published reply chain", "fragments", len(fragments), "note_ids", ids)
	return result, nil
}

func (s *Service) recordOutcome(source string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	s.metrics.IncSummary(source, status)
}
