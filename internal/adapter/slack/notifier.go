// Package slack delivers phishing alerts to a Slack incoming webhook as
// Block Kit messages.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Strob0t/MailWarden/internal/port/notifier"
)

const (
	providerName = "slack"
	// Slack rejects header blocks longer than this.
	maxHeaderLen  = 150
	clientTimeout = 10 * time.Second
)

// Notifier sends alerts to Slack via incoming webhook.
type Notifier struct {
	webhookURL string
	httpClient *http.Client
}

// NewNotifier creates a Slack notifier with the given webhook URL.
func NewNotifier(webhookURL string) *Notifier {
	return &Notifier{
		webhookURL: webhookURL,
		httpClient: &http.Client{Timeout: clientTimeout},
	}
}

func (n *Notifier) Name() string { return providerName }

func (n *Notifier) Capabilities() notifier.Capabilities {
	return notifier.Capabilities{RichFormatting: true}
}

type slackMessage struct {
	Text   string       `json:"text"`
	Blocks []slackBlock `json:"blocks"`
}

type slackBlock struct {
	Type     string      `json:"type"`
	Text     *slackText  `json:"text,omitempty"`
	Elements []slackText `json:"elements,omitempty"`
}

type slackText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func (n *Notifier) Send(ctx context.Context, notification notifier.Notification) error {
	if n.webhookURL == "" {
		return notifier.ErrNotConfigured
	}

	body, err := json.Marshal(buildMessage(notification))
	if err != nil {
		return fmt.Errorf("slack marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("slack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req) //nolint:gosec // webhook URL from trusted config
	if err != nil {
		return fmt.Errorf("slack send: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("slack API %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

func buildMessage(notification notifier.Notification) slackMessage {
	header := truncate(levelTag(notification.Level)+" "+notification.Title, maxHeaderLen)
	msg := slackMessage{
		// Fallback text for push notifications and clients without blocks.
		Text: header,
		Blocks: []slackBlock{
			{Type: "header", Text: &slackText{Type: "plain_text", Text: header}},
			{Type: "section", Text: &slackText{Type: "mrkdwn", Text: notification.Message}},
		},
	}
	if notification.Source != "" {
		msg.Blocks = append(msg.Blocks, slackBlock{
			Type:     "context",
			Elements: []slackText{{Type: "mrkdwn", Text: "_Source: " + notification.Source + "_"}},
		})
	}
	return msg
}

func levelTag(level string) string {
	switch level {
	case notifier.LevelError:
		return "[CRITICAL]"
	case notifier.LevelWarning:
		return "[WARN]"
	default:
		return "[INFO]"
	}
}

func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit-3]) + "..."
}
