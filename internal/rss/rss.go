package rss

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
)

const defaultTimeout = 30 * time.Second

type Entry struct {
	Title     string     `json:"title"`
	Link      string     `json:"link"`
	Published *time.Time `json:"published,omitempty"`
	FeedURL   string     `json:"feed_url"`
}

// Fetcher reads a fixed list of feeds in order.
type Fetcher struct {
	urls    []string
	timeout time.Duration
	parser  *gofeed.Parser
}

func NewFetcher(urls []string, timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	cleaned := make([]string, 0, len(urls))
	for _, url := range urls {
		if trimmed := strings.TrimSpace(url); trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	parser := gofeed.NewParser()
	parser.Client = &http.Client{Timeout: timeout}
	return &Fetcher{urls: cleaned, timeout: timeout, parser: parser}
}

func (f *Fetcher) URLs() []string {
	return append([]string(nil), f.urls...)
}

// Entries fetches every feed and flattens their items, keeping feed order
// and item order within each feed. Any feed failure aborts the fetch.
func (f *Fetcher) Entries(ctx context.Context) ([]Entry, error) {
	entries := []Entry{}
	for _, url := range f.urls {
		reqCtx, cancel := context.WithTimeout(ctx, f.timeout)
		feed, err := f.parser.ParseURLWithContext(url, reqCtx)
		cancel()
		if err != nil {
			return nil, fmt.Errorf("failed to fetch/parse feed %s: %w", url, err)
		}
		for _, item := range feed.Items {
			if item == nil {
				continue
			}
			entries = append(entries, Entry{
				Title:     item.Title,
				Link:      itemLink(item),
				Published: itemTime(item),
				FeedURL:   url,
			})
		}
	}
	return entries, nil
}

// EntryURLs returns the link of every entry that has one.
func (f *Fetcher) EntryURLs(ctx context.Context) ([]string, error) {
	entries, err := f.Entries(ctx)
	if err != nil {
		return nil, err
	}
	urls := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.Link != "" {
			urls = append(urls, entry.Link)
		}
	}
	return urls, nil
}

func itemLink(item *gofeed.Item) string {
	if link := strings.TrimSpace(item.Link); link != "" {
		return link
	}
	if len(item.Links) > 0 {
		return strings.TrimSpace(item.Links[0])
	}
	return ""
}

func itemTime(item *gofeed.Item) *time.Time {
	if item.PublishedParsed != nil {
		return item.PublishedParsed
	}
	return item.UpdatedParsed
}
