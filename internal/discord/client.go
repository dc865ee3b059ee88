package discord

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/bwmarrin/discordgo"
)

const (
	DefaultHistoryLimit = 100
	// maxPageSize is the most messages Discord returns per history request.
	maxPageSize = 100
	// discordEpoch is 2015-01-01T00:00:00Z in milliseconds.
	discordEpoch = 1420070400000
)

type Message struct {
	ID         string    `json:"id"`
	Content    string    `json:"content"`
	AuthorName string    `json:"author_name"`
	AuthorID   string    `json:"author_id"`
	CreatedAt  time.Time `json:"created_at"`
}

type channelAPI interface {
	Channel(channelID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	ChannelMessages(channelID string, limit int, beforeID, afterID, aroundID string, options ...discordgo.RequestOption) ([]*discordgo.Message, error)
}

// Client reads channel history through a bot session. It reports ErrNotReady
// until the gateway has sent Ready and after a disconnect.
type Client struct {
	session *discordgo.Session
	api     channelAPI
	ready   atomic.Bool
}

func NewClient(token string) (*Client, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsMessageContent

	c := &Client{session: session, api: session}
	session.AddHandler(func(_ *discordgo.Session, _ *discordgo.Ready) {
		c.ready.Store(true)
	})
	session.AddHandler(func(_ *discordgo.Session, _ *discordgo.Resumed) {
		c.ready.Store(true)
	})
	session.AddHandler(func(_ *discordgo.Session, _ *discordgo.Disconnect) {
		c.ready.Store(false)
	})
	return c, nil
}

// Open connects to the gateway. Readiness flips once Ready arrives.
func (c *Client) Open() error {
	if c.session == nil {
		return ErrNotReady
	}
	return c.session.Open()
}

func (c *Client) Close() error {
	c.ready.Store(false)
	if c.session == nil {
		return nil
	}
	return c.session.Close()
}

func (c *Client) Ready() bool {
	return c != nil && c.ready.Load()
}

// ChannelMessages returns up to limit messages from a guild text channel,
// oldest first. A zero after disables the cutoff; otherwise only messages
// created after it are returned.
func (c *Client) ChannelMessages(ctx context.Context, channelID string, limit int, after time.Time) ([]Message, error) {
	if !c.Ready() {
		return nil, ErrNotReady
	}
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	channel, err := c.api.Channel(channelID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, mapRESTError(channelID, err)
	}
	if channel == nil {
		return nil, fmt.Errorf("%w: %s", ErrChannelNotFound, channelID)
	}
	if channel.Type != discordgo.ChannelTypeGuildText && channel.Type != discordgo.ChannelTypeGuildNews {
		return nil, fmt.Errorf("%w: %s", ErrNotTextChannel, channelID)
	}

	var raw []*discordgo.Message
	if after.IsZero() {
		raw, err = c.pageBackward(ctx, channelID, limit)
	} else {
		raw, err = c.pageForward(ctx, channelID, limit, after)
	}
	if err != nil {
		return nil, mapRESTError(channelID, err)
	}

	messages := make([]Message, 0, len(raw))
	for _, m := range raw {
		if m == nil {
			continue
		}
		if !after.IsZero() && !m.Timestamp.After(after) {
			continue
		}
		messages = append(messages, toMessage(m))
	}
	sort.SliceStable(messages, func(i, j int) bool {
		return snowflakeLess(messages[i].ID, messages[j].ID)
	})
	return messages, nil
}

// pageBackward walks history from the newest message.
func (c *Client) pageBackward(ctx context.Context, channelID string, limit int) ([]*discordgo.Message, error) {
	var collected []*discordgo.Message
	beforeID := ""
	for len(collected) < limit {
		size := min(limit-len(collected), maxPageSize)
		page, err := c.api.ChannelMessages(channelID, size, beforeID, "", "", discordgo.WithContext(ctx))
		if err != nil {
			return nil, err
		}
		collected = append(collected, page...)
		if len(page) < size {
			break
		}
		beforeID = oldestID(page)
	}
	return collected, nil
}

// pageForward walks history from the cutoff towards the present.
func (c *Client) pageForward(ctx context.Context, channelID string, limit int, after time.Time) ([]*discordgo.Message, error) {
	var collected []*discordgo.Message
	afterID := snowflakeAt(after)
	for len(collected) < limit {
		size := min(limit-len(collected), maxPageSize)
		page, err := c.api.ChannelMessages(channelID, size, "", afterID, "", discordgo.WithContext(ctx))
		if err != nil {
			return nil, err
		}
		collected = append(collected, page...)
		if len(page) < size {
			break
		}
		afterID = newestID(page)
	}
	return collected, nil
}

func toMessage(m *discordgo.Message) Message {
	msg := Message{
		ID:        m.ID,
		Content:   m.Content,
		CreatedAt: m.Timestamp,
	}
	if m.Author != nil {
		msg.AuthorName = m.Author.Username
		msg.AuthorID = m.Author.ID
	}
	return msg
}

func mapRESTError(channelID string, err error) error {
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) && restErr.Response != nil {
		switch restErr.Response.StatusCode {
		case http.StatusNotFound:
			return fmt.Errorf("%w: %s", ErrChannelNotFound, channelID)
		case http.StatusForbidden:
			return fmt.Errorf("%w: %s", ErrForbidden, channelID)
		}
	}
	return fmt.Errorf("fetch messages from channel %s: %w", channelID, err)
}

func snowflakeAt(t time.Time) string {
	ms := t.UnixMilli() - discordEpoch
	if ms < 0 {
		ms = 0
	}
	return strconv.FormatUint(uint64(ms)<<22, 10)
}

func snowflakeLess(a string, b string) bool {
	ai, aerr := strconv.ParseUint(a, 10, 64)
	bi, berr := strconv.ParseUint(b, 10, 64)
	if aerr != nil || berr != nil {
		return a < b
	}
	return ai < bi
}

func oldestID(page []*discordgo.Message) string {
	id := ""
	for _, m := range page {
		if m != nil && (id == "" || snowflakeLess(m.ID, id)) {
			id = m.ID
		}
	}
	return id
}

func newestID(page []*discordgo.Message) string {
	id := ""
	for _, m := range page {
		if m != nil && (id == "" || snowflakeLess(id, m.ID)) {
			id = m.ID
		}
	}
	return id
}
