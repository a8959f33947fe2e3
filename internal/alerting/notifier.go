package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const defaultTelegramBase = "https://api.telegram.org"

// Notification carries one panel alert to an external channel.
type Notification struct {
	At        time.Time
	Message   string
	Contract  string
	Account   string
	SessionID string
}

// Notifier defines an alert delivery channel.
type Notifier interface {
	Notify(ctx context.Context, notification Notification) error
}

type sendMessageRequest struct {
	ChatID              string `json:"chat_id"`
	Text                string `json:"text"`
	DisableWebPreview   bool   `json:"disable_web_page_preview"`
	DisableNotification bool   `json:"disable_notification,omitempty"`
}

type botResponse struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code"`
	Description string `json:"description"`
}

// TelegramNotifier posts alerts to a chat through the Bot API sendMessage call.
type TelegramNotifier struct {
	endpoint string
	chatID   string
	http     *http.Client
	logger   zerolog.Logger
}

// NewTelegramNotifier builds a notifier for one chat. An empty baseURL targets
// the public Bot API.
func NewTelegramNotifier(botToken, chatID, baseURL string, timeout time.Duration, logger zerolog.Logger) *TelegramNotifier {
	if baseURL == "" {
		baseURL = defaultTelegramBase
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &TelegramNotifier{
		endpoint: strings.TrimRight(baseURL, "/") + "/bot" + botToken + "/sendMessage",
		chatID:   chatID,
		http:     &http.Client{Timeout: timeout},
		logger:   logger.With().Str("component", "alert_telegram").Logger(),
	}
}

// Notify delivers note. A non-2xx status or ok=false is an error carrying the
// API description when one is returned.
func (n *TelegramNotifier) Notify(ctx context.Context, note Notification) error {
	body, err := json.Marshal(sendMessageRequest{
		ChatID:            n.chatID,
		Text:              renderMessage(note),
		DisableWebPreview: true,
	})
	if err != nil {
		return fmt.Errorf("encode sendMessage: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build sendMessage request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.http.Do(req)
	if err != nil {
		return fmt.Errorf("sendMessage: %w", err)
	}
	defer resp.Body.Close()

	var reply botResponse
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	decodeErr := json.Unmarshal(raw, &reply)

	switch {
	case resp.StatusCode/100 != 2:
		if decodeErr == nil && reply.Description != "" {
			return fmt.Errorf("sendMessage: status %d: %s", resp.StatusCode, reply.Description)
		}
		return fmt.Errorf("sendMessage: status %d", resp.StatusCode)
	case decodeErr == nil && !reply.OK:
		return fmt.Errorf("sendMessage rejected (code %d): %s", reply.ErrorCode, reply.Description)
	}

	n.logger.Debug().Str("session_id", note.SessionID).Msg("alert delivered")
	return nil
}

// renderMessage lays the alert out as plain text lines, optional lines
// omitted when empty.
func renderMessage(note Notification) string {
	lines := []string{"[Oracle Panel] " + note.Message}
	for _, kv := range [][2]string{
		{"Contract", note.Contract},
		{"Account", note.Account},
		{"Session", note.SessionID},
	} {
		if kv[1] != "" {
			lines = append(lines, kv[0]+": "+kv[1])
		}
	}
	if !note.At.IsZero() {
		lines = append(lines, "At: "+note.At.UTC().Format(time.RFC3339)+" UTC")
	}
	return strings.Join(lines, "\n")
}

var _ Notifier = (*TelegramNotifier)(nil)
