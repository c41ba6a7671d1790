// Package telegram sends notifications to a Telegram chat through the Bot API.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/gabapcia/depositwatch/internal/deposittrack"
)

// DefaultAPIURL is the public Bot API endpoint.
const DefaultAPIURL = "https://api.telegram.org"

// ErrSendFailed is returned when the Bot API rejects a message.
var ErrSendFailed = errors.New("telegram: message not sent")

type config struct {
	apiURL string
}

// Option configures the notifier.
type Option func(*config)

// WithAPIURL points the notifier at another Bot API server.
func WithAPIURL(url string) Option {
	return func(c *config) {
		if url != "" {
			c.apiURL = strings.TrimRight(url, "/")
		}
	}
}

type notifier struct {
	httpClient *http.Client
	endpoint   string
	chatID     string
}

var _ deposittrack.Notifier = (*notifier)(nil)

// NewNotifier returns a Notifier posting to chatID as the bot identified by token.
func NewNotifier(httpClient *http.Client, token, chatID string, opts ...Option) *notifier {
	cfg := config{apiURL: DefaultAPIURL}
	for _, opt := range opts {
		opt(&cfg)
	}

	return &notifier{
		httpClient: httpClient,
		endpoint:   fmt.Sprintf("%s/bot%s/sendMessage", cfg.apiURL, token),
		chatID:     chatID,
	}
}

type sendMessageRequest struct {
	ChatID string `json:"chat_id"`
	Text   string `json:"text"`
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code"`
	Description string `json:"description"`
}

// Notify implements deposittrack.Notifier.
func (n *notifier) Notify(ctx context.Context, message string) error {
	body, err := json.Marshal(sendMessageRequest{ChatID: n.chatID, Text: message})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSendFailed, stripURL(err))
	}
	defer res.Body.Close()

	var data apiResponse
	if err := json.NewDecoder(res.Body).Decode(&data); err != nil {
		return fmt.Errorf("%w: status %d", ErrSendFailed, res.StatusCode)
	}

	if !data.OK {
		return fmt.Errorf("%w: [%d] %s", ErrSendFailed, data.ErrorCode, data.Description)
	}
	return nil
}

// stripURL drops the request URL, which embeds the bot token, from transport errors.
func stripURL(err error) error {
	for {
		var urlErr *url.Error
		if !errors.As(err, &urlErr) {
			return err
		}
		err = urlErr.Err
	}
}
