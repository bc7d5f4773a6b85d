package config

import (
	"fmt"
	"strings"
	"time"
)

type TelegramConfig struct {
	// Token is the bot API token used for sendMessage. Empty disables outbound delivery.
	Token string `koanf:"token"`
	// WebhookSecret is the path segment the webhook is exposed under.
	WebhookSecret string        `koanf:"webhooksecret"`
	APIURL        string        `koanf:"apiurl"`
	Timeout       time.Duration `koanf:"timeout"`
}

const defaultTelegramAPIURL = "https://api.telegram.org"

// String returns a string representation of the Telegram configuration with secrets masked.
func (c *TelegramConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- Telegram ---\n")
	b.WriteString(fmt.Sprintf("  token: %s\n", maskSecret(c.Token)))
	b.WriteString(fmt.Sprintf("  webhooksecret: %s\n", maskSecret(c.WebhookSecret)))
	b.WriteString(fmt.Sprintf("  apiurl: %s\n", c.APIURL))
	b.WriteString(fmt.Sprintf("  timeout: %s\n", c.Timeout))
	return b.String()
}

func (c *TelegramConfig) Validate() error {
	if c.WebhookSecret == "" {
		return fmt.Errorf("telegram webhook secret is not configured")
	}
	if strings.Contains(c.WebhookSecret, "/") {
		return fmt.Errorf("telegram webhook secret must be a single path segment")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("telegram timeout is not configured")
	}
	if c.APIURL == "" {
		c.APIURL = defaultTelegramAPIURL
	}
	return nil
}

func maskSecret(s string) string {
	if s == "" {
		return "<not configured>"
	}
	return "****"
}
