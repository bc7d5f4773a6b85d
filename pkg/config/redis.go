package config

import (
	"fmt"
	"strings"
	"time"
)

type RedisConfig struct {
	URL        string        `koanf:"url"`
	KeyPrefix  string        `koanf:"keyprefix"`
	Timeout    time.Duration `koanf:"timeout"`
	SessionTTL time.Duration `koanf:"sessionttl"`
	Lock       struct {
		TTL          time.Duration `koanf:"ttl"`
		Wait         time.Duration `koanf:"wait"`
		PollInterval time.Duration `koanf:"pollinterval"`
	} `koanf:"lock"`
}

// String returns a string representation of the Redis configuration.
func (c *RedisConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- Redis ---\n")
	b.WriteString(fmt.Sprintf("  url: %s\n", MaskURL(c.URL)))
	b.WriteString(fmt.Sprintf("  keyprefix: %s\n", c.KeyPrefix))
	b.WriteString(fmt.Sprintf("  timeout: %s\n", c.Timeout))
	b.WriteString(fmt.Sprintf("  sessionttl: %s\n", c.SessionTTL))
	b.WriteString(fmt.Sprintf("  lock.ttl: %s\n", c.Lock.TTL))
	b.WriteString(fmt.Sprintf("  lock.wait: %s\n", c.Lock.Wait))
	b.WriteString(fmt.Sprintf("  lock.pollinterval: %s\n", c.Lock.PollInterval))
	return b.String()
}

func (c *RedisConfig) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("redis URL is not configured")
	}
	if !strings.HasPrefix(c.URL, "redis://") && !strings.HasPrefix(c.URL, "rediss://") {
		return fmt.Errorf("redis URL must start with 'redis://' or 'rediss://'")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("redis timeout is not configured")
	}
	if c.SessionTTL < 0 {
		return fmt.Errorf("redis session TTL must not be negative")
	}
	if c.Lock.TTL <= 0 {
		return fmt.Errorf("redis lock TTL is not configured")
	}
	if c.Lock.Wait <= 0 {
		return fmt.Errorf("redis lock wait is not configured")
	}
	if c.Lock.PollInterval <= 0 {
		return fmt.Errorf("redis lock poll interval is not configured")
	}
	if c.KeyPrefix == "" {
		c.KeyPrefix = "orderbot"
	}
	return nil
}
