package misskey

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	defaultVisibility = "followers"
	defaultTimeout    = 5 * time.Second
)

var ErrMissingNoteID = errors.New("misskey response did not include a created note id")

// StatusError is returned when notes/create answers with anything but 200.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("misskey rejected note: status=%d body=%s", e.StatusCode, e.Body)
}

type Config struct {
	Host       string
	Token      string
	Visibility string
	// BaseURL overrides https://{Host}/api.
	BaseURL string
	Timeout time.Duration
}

type Client struct {
	http       *resty.Client
	token      string
	visibility string
}

type createNoteRequest struct {
	I          string `json:"i"`
	Visibility string `json:"visibility"`
	Text       string `json:"text"`
	ReplyID    string `json:"replyId,omitempty"`
}

type createNoteResponse struct {
	CreatedNote struct {
		ID string `json:"id"`
	} `json:"createdNote"`
}

func NewClient(cfg Config) *Client {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = fmt.Sprintf("https://%s/api", strings.TrimSpace(cfg.Host))
	}
	visibility := strings.TrimSpace(cfg.Visibility)
	if visibility == "" {
		visibility = defaultVisibility
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json")

	return &Client{
		http:       httpClient,
		token:      cfg.Token,
		visibility: visibility,
	}
}

// CreateNote posts text as a new note, as a reply when replyID is set, and
// returns the created note id.
func (c *Client) CreateNote(ctx context.Context, text string, replyID string) (string, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(createNoteRequest{
			I:          c.token,
			Visibility: c.visibility,
			Text:       text,
			ReplyID:    replyID,
		}).
		Post("/notes/create")
	if err != nil {
		return "", fmt.Errorf("misskey notes/create: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return "", &StatusError{StatusCode: resp.StatusCode(), Body: strings.TrimSpace(resp.String())}
	}

	var created createNoteResponse
	if err := json.Unmarshal(resp.Body(), &created); err != nil {
		return "", fmt.Errorf("decode misskey response: %w", err)
	}
	if created.CreatedNote.ID == "" {
		return "", ErrMissingNoteID
	}
	return created.CreatedNote.ID, nil
}

// Post has the publish.PostFunc signature.
func (c *Client) Post(ctx context.Context, body string, replyID string) (string, error) {
	return c.CreateNote(ctx, body, replyID)
}
