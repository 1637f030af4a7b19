package main

import (
	"fmt"
	"log/slog"
	"slices"

	// Alert channels register themselves with the notifier registry.
	_ "github.com/Strob0t/MailWarden/internal/adapter/discord"
	_ "github.com/Strob0t/MailWarden/internal/adapter/email"
	_ "github.com/Strob0t/MailWarden/internal/adapter/slack"
	"github.com/Strob0t/MailWarden/internal/config"
	"github.com/Strob0t/MailWarden/internal/domain/assessment"
	"github.com/Strob0t/MailWarden/internal/port/notifier"
	"github.com/Strob0t/MailWarden/internal/service"
)

// newAlerts builds the alert service from the enabled channels. It also
// warns about channels the policy routes alerts to that are not set up.
func newAlerts(cfg config.Alerts, policy assessment.Policy, log *slog.Logger) (*service.AlertService, error) {
	var notifiers []notifier.Notifier
	for name, settings := range cfg.Channels(policy.Actions.AlertRecipients) {
		n, err := notifier.New(name, settings)
		if err != nil {
			return nil, fmt.Errorf("alert channel %s: %w", name, err)
		}
		notifiers = append(notifiers, n)
	}

	alerts := service.NewAlertService(notifiers, log)
	alerts.SetTimeout(cfg.Timeout)

	enabled := alerts.Channels()
	for _, ch := range slices.Concat(policy.Actions.CriticalAlertChannels, policy.Actions.HighAlertChannels) {
		if !slices.Contains(enabled, ch) {
			log.Warn("alert channel referenced by policy is not configured", "channel", ch)
		}
	}
	log.Info("alert channels", "enabled", enabled, "available", notifier.Available())
	return alerts, nil
}
