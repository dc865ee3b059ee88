package api

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/kamomai/notebot/internal/discord"
	"github.com/kamomai/notebot/internal/summary"
)

type MockSummarizer struct {
	mock.Mock
}

func (m *MockSummarizer) SummarizeDiscord(ctx context.Context) ([]summary.Result, error) {
	args := m.Called(ctx)
	var result []summary.Result
	if value := args.Get(0); value != nil {
		result = value.([]summary.Result)
	}
	return result, args.Error(1)
}

func (m *MockSummarizer) SummarizeFeeds(ctx context.Context) ([]summary.Result, error) {
	args := m.Called(ctx)
	var result []summary.Result
	if value := args.Get(0); value != nil {
		result = value.([]summary.Result)
	}
	return result, args.Error(1)
}

type MockMessageReader struct {
	mock.Mock
}

func (m *MockMessageReader) ChannelMessages(ctx context.Context, channelID string, limit int, after time.Time) ([]discord.Message, error) {
	args := m.Called(ctx, channelID, limit, after)
	var result []discord.Message
	if value := args.Get(0); value != nil {
		result = value.([]discord.Message)
	}
	return result, args.Error(1)
}

type MockFeedReader struct {
	mock.Mock
}

func (m *MockFeedReader) EntryURLs(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	var result []string
	if value := args.Get(0); value != nil {
		result = value.([]string)
	}
	return result, args.Error(1)
}

type staticReadiness bool

func (r staticReadiness) Ready() bool {
	return bool(r)
}

func newTestServer(t *testing.T, summaries Summarizer, opts ...Option) *httptest.Server {
	t.Helper()
	server := NewServer(summaries, opts...)
	ts := httptest.NewServer(server.Router())
	t.Cleanup(ts.Close)
	return ts
}
