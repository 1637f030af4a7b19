// Package discord delivers phishing alerts to a Discord webhook as embeds.
package discord

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
	providerName = "discord"
	// Discord caps embed descriptions at 4096 characters.
	maxDescriptionLen = 4096
	clientTimeout     = 10 * time.Second
)

// Notifier sends alerts to Discord via webhook.
type Notifier struct {
	webhookURL string
	username   string
	httpClient *http.Client
}

// NewNotifier creates a Discord notifier. An empty username keeps the
// webhook's own name.
func NewNotifier(webhookURL, username string) *Notifier {
	return &Notifier{
		webhookURL: webhookURL,
		username:   username,
		httpClient: &http.Client{Timeout: clientTimeout},
	}
}

func (n *Notifier) Name() string { return providerName }

func (n *Notifier) Capabilities() notifier.Capabilities {
	return notifier.Capabilities{RichFormatting: true}
}

type webhookPayload struct {
	Username string  `json:"username,omitempty"`
	Embeds   []embed `json:"embeds"`
}

type embed struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Color       int     `json:"color"`
	Footer      *footer `json:"footer,omitempty"`
}

type footer struct {
	Text string `json:"text"`
}

func (n *Notifier) Send(ctx context.Context, notification notifier.Notification) error {
	if n.webhookURL == "" {
		return notifier.ErrNotConfigured
	}

	e := embed{
		Title:       notification.Title,
		Description: clip(notification.Message, maxDescriptionLen),
		Color:       levelColor(notification.Level),
	}
	if notification.Source != "" {
		e.Footer = &footer{Text: "Source: " + notification.Source}
	}

	body, err := json.Marshal(webhookPayload{Username: n.username, Embeds: []embed{e}})
	if err != nil {
		return fmt.Errorf("discord marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("discord request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req) //nolint:gosec // webhook URL from trusted config
	if err != nil {
		return fmt.Errorf("discord send: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	// 204 on success
	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("discord API %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

func levelColor(level string) int {
	switch level {
	case notifier.LevelError:
		return 0xE74C3C // red
	case notifier.LevelWarning:
		return 0xF39C12 // orange
	default:
		return 0x3498DB // blue
	}
}

func clip(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit])
}
