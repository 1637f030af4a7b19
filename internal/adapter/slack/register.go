package slack

import "github.com/Strob0t/MailWarden/internal/port/notifier"

func init() {
	notifier.Register(providerName, func(config map[string]string) (notifier.Notifier, error) {
		if config["webhook_url"] == "" {
			return nil, notifier.ErrNotConfigured
		}
		return NewNotifier(config["webhook_url"]), nil
	})
}
