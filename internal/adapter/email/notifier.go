// Package email delivers phishing alerts over SMTP.
package email

import (
	"context"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/Strob0t/MailWarden/internal/port/notifier"
)

const providerName = "email"

// SMTPConfig holds the configuration for SMTP connections.
type SMTPConfig struct {
	Host       string
	Port       int
	From       string
	Username   string // defaults to From
	Password   string
	Recipients []string
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Notifier sends alert mails via SMTP.
type Notifier struct {
	cfg      SMTPConfig
	sendMail sendFunc
	now      func() time.Time
}

// NewNotifier creates a new email notifier.
func NewNotifier(cfg SMTPConfig) *Notifier {
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	return &Notifier{cfg: cfg, sendMail: smtp.SendMail, now: time.Now}
}

func (n *Notifier) Name() string { return providerName }

func (n *Notifier) Capabilities() notifier.Capabilities { return notifier.Capabilities{} }

// Send mails the notification to its recipients, or to the configured
// recipients when the notification names none. net/smtp has no context
// support, so ctx is only checked before dialing.
func (n *Notifier) Send(ctx context.Context, notification notifier.Notification) error {
	if n.cfg.Host == "" || n.cfg.From == "" {
		return notifier.ErrNotConfigured
	}
	to := notification.Recipients
	if len(to) == 0 {
		to = n.cfg.Recipients
	}
	if len(to) == 0 {
		return fmt.Errorf("email: no recipients: %w", notifier.ErrNotConfigured)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	var auth smtp.Auth
	if n.cfg.Password != "" {
		user := n.cfg.Username
		if user == "" {
			user = n.cfg.From
		}
		auth = smtp.PlainAuth("", user, n.cfg.Password, n.cfg.Host)
	}

	addr := net.JoinHostPort(n.cfg.Host, strconv.Itoa(n.cfg.Port))
	if err := n.sendMail(addr, auth, n.cfg.From, to, n.buildMessage(to, notification)); err != nil {
		return fmt.Errorf("email send: %w", err)
	}
	return nil
}

func (n *Notifier) buildMessage(to []string, notification notifier.Notification) []byte {
	var b strings.Builder
	header := func(k, v string) { fmt.Fprintf(&b, "%s: %s\r\n", k, v) }
	header("From", n.cfg.From)
	header("To", strings.Join(to, ", "))
	header("Subject", mime.QEncoding.Encode("utf-8", subjectLine(notification)))
	header("Date", n.now().Format(time.RFC1123Z))
	header("MIME-Version", "1.0")
	header("Content-Type", "text/plain; charset=UTF-8")
	if notification.Level == notifier.LevelError {
		header("X-Priority", "1")
	}
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(notification.Message, "\n", "\r\n"))
	if notification.Source != "" {
		b.WriteString("\r\n\r\n-- \r\nSource: " + notification.Source + "\r\n")
	}
	return []byte(b.String())
}

func subjectLine(notification notifier.Notification) string {
	// Header injection guard: the title may embed an attacker-chosen subject.
	title := strings.NewReplacer("\r", " ", "\n", " ").Replace(notification.Title)
	switch notification.Level {
	case notifier.LevelError:
		return "[CRITICAL] " + title
	case notifier.LevelWarning:
		return "[WARNING] " + title
	default:
		return title
	}
}
