package email

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Strob0t/MailWarden/internal/port/notifier"
)

func init() {
	notifier.Register(providerName, func(config map[string]string) (notifier.Notifier, error) {
		if config["host"] == "" || config["from"] == "" {
			return nil, notifier.ErrNotConfigured
		}
		cfg := SMTPConfig{
			Host:     config["host"],
			From:     config["from"],
			Username: config["username"],
			Password: config["password"],
		}
		if p := config["port"]; p != "" {
			port, err := strconv.Atoi(p)
			if err != nil {
				return nil, fmt.Errorf("email: invalid port %q: %w", p, err)
			}
			cfg.Port = port
		}
		for _, r := range strings.Split(config["recipients"], ",") {
			if r = strings.TrimSpace(r); r != "" {
				cfg.Recipients = append(cfg.Recipients, r)
			}
		}
		return NewNotifier(cfg), nil
	})
}
