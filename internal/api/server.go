package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"github.com/kamomai/notebot/internal/discord"
	"github.com/kamomai/notebot/internal/logger"
	"github.com/kamomai/notebot/internal/metrics"
	"github.com/kamomai/notebot/internal/summary"
)

type Summarizer interface {
	SummarizeDiscord(ctx context.Context) ([]summary.Result, error)
	SummarizeFeeds(ctx context.Context) ([]summary.Result, error)
}

type MessageReader interface {
	ChannelMessages(ctx context.Context, channelID string, limit int, after time.Time) ([]discord.Message, error)
}

type FeedReader interface {
	EntryURLs(ctx context.Context) ([]string, error)
}

// ReadinessChecker is satisfied by the Discord client.
type ReadinessChecker interface {
	Ready() bool
}

type Server struct {
	summaries Summarizer
	messages  MessageReader
	feeds     FeedReader
	readiness ReadinessChecker
	metrics   *metrics.Metrics
	logger    *logger.Logger
	validate  *validator.Validate
}

type Option func(*Server)

func WithMessages(messages MessageReader) Option {
	return func(s *Server) {
		s.messages = messages
	}
}

func WithFeeds(feeds FeedReader) Option {
	return func(s *Server) {
		s.feeds = feeds
	}
}

func WithReadiness(readiness ReadinessChecker) Option {
	return func(s *Server) {
		s.readiness = readiness
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

func WithLogger(l *logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

func NewServer(summaries Summarizer, opts ...Option) *Server {
	s := &Server{
		summaries: summaries,
		logger:    logger.NewNop(),
		validate:  validator.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(quietRequestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/", s.root)
	r.Get("/health", s.health)
	r.Get("/ready", s.ready)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	r.Get("/misskey/summary", s.discordSummary)
	r.Get("/channel/{channelID}/messages", s.channelMessages)
	r.Get("/rss/entries", s.rssEntries)
	r.Get("/rss/summary", s.rssSummary)

	return r
}

func quietRequestLogger(next http.Handler) http.Handler {
	logged := middleware.Logger(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if shouldSuppressRequestLog(r.Method, r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}
		logged.ServeHTTP(w, r)
	})
}

func shouldSuppressRequestLog(method string, path string) bool {
	if method != http.MethodGet {
		return false
	}
	switch strings.TrimSpace(path) {
	case "/health", "/ready", "/metrics":
		return true
	default:
		return false
	}
}

type errorResponse struct {
	Detail string `json:"detail"`
}

func (s *Server) root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"message": "notebot is running"})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

type subsystemStatus struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type readinessResponse struct {
	Status     string                     `json:"status"`
	Subsystems map[string]subsystemStatus `json:"subsystems"`
}

func (s *Server) ready(w http.ResponseWriter, r *http.Request) {
	subsystems := map[string]subsystemStatus{}
	overall := http.StatusOK

	switch {
	case s.readiness == nil:
		subsystems["discord"] = subsystemStatus{Status: "skipped"}
	case s.readiness.Ready():
		subsystems["discord"] = subsystemStatus{Status: "ok"}
	default:
		subsystems["discord"] = subsystemStatus{Status: "error", Error: discord.ErrNotReady.Error()}
		overall = http.StatusServiceUnavailable
	}

	status := "ok"
	if overall != http.StatusOK {
		status = "degraded"
	}
	writeJSONStatus(w, readinessResponse{Status: status, Subsystems: subsystems}, overall)
}

// Summary batches outlive the request so a client that hangs up does not cut
// a reply chain short.
func (s *Server) discordSummary(w http.ResponseWriter, r *http.Request) {
	results, err := s.summaries.SummarizeDiscord(context.WithoutCancel(r.Context()))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, results)
}

func (s *Server) rssSummary(w http.ResponseWriter, r *http.Request) {
	results, err := s.summaries.SummarizeFeeds(context.WithoutCancel(r.Context()))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, results)
}

func (s *Server) channelMessages(w http.ResponseWriter, r *http.Request) {
	if s.messages == nil {
		s.writeError(w, r, discord.ErrNotReady)
		return
	}
	channelID := chi.URLParam(r, "channelID")
	if err := s.validate.Var(channelID, "required,numeric"); err != nil {
		writeJSONStatus(w, errorResponse{Detail: "channel id must be numeric"}, http.StatusBadRequest)
		return
	}

	limit := discord.DefaultHistoryLimit
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeJSONStatus(w, errorResponse{Detail: "limit must be a positive integer"}, http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	messages, err := s.messages.ChannelMessages(r.Context(), channelID, limit, time.Time{})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, messages)
}

func (s *Server) rssEntries(w http.ResponseWriter, r *http.Request) {
	if s.feeds == nil {
		s.writeError(w, r, summary.ErrFeedsNotConfigured)
		return
	}
	urls, err := s.feeds.EntryURLs(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, urls)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "path", r.URL.Path, "request_id", middleware.GetReqID(r.Context()), "error", err)
	}
	writeJSONStatus(w, errorResponse{Detail: err.Error()}, status)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, discord.ErrNotReady),
		errors.Is(err, summary.ErrDiscordNotConfigured),
		errors.Is(err, summary.ErrFeedsNotConfigured):
		return http.StatusServiceUnavailable
	case errors.Is(err, discord.ErrChannelNotFound):
		return http.StatusNotFound
	case errors.Is(err, discord.ErrNotTextChannel):
		return http.StatusBadRequest
	case errors.Is(err, discord.ErrForbidden):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, value any) {
	writeJSONStatus(w, value, http.StatusOK)
}

func writeJSONStatus(w http.ResponseWriter, value any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(value)
}

func (s *Server) Start(ctx context.Context, addr string) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		_ = server.Shutdown(context.Background())
	}()
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
