package config

import (
	"fmt"
	"strings"
	"time"
)

// RateLimitConfig bounds how many messages a single user may send.
type RateLimitConfig struct {
	Enabled   bool          `koanf:"enabled"`
	PerSecond float64       `koanf:"persecond"`
	Burst     int           `koanf:"burst"`
	IdleTTL   time.Duration `koanf:"idlettl"`
}

// String returns a string representation of the RateLimitConfig.
func (c *RateLimitConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- Rate limit ---\n")
	b.WriteString(fmt.Sprintf("  enabled: %t\n", c.Enabled))
	b.WriteString(fmt.Sprintf("  persecond: %g\n", c.PerSecond))
	b.WriteString(fmt.Sprintf("  burst: %d\n", c.Burst))
	b.WriteString(fmt.Sprintf("  idlettl: %s\n", c.IdleTTL))
	return b.String()
}

func (c *RateLimitConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.PerSecond <= 0 {
		return fmt.Errorf("rate limit persecond must be greater than 0")
	}
	if c.Burst <= 0 {
		return fmt.Errorf("rate limit burst must be greater than 0")
	}
	if c.IdleTTL <= 0 {
		c.IdleTTL = 10 * time.Minute
	}
	return nil
}
