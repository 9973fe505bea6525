package scheduler

import (
	"time"
)

// Config controls job timeouts and lock naming. Sweep intervals come from the billing policy.
type Config struct {
	JobTimeout time.Duration
	LockPrefix string
}

func DefaultConfig() Config {
	return Config{
		JobTimeout: 30 * time.Second,
		LockPrefix: "billingcore:scheduler:",
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.JobTimeout <= 0 {
		c.JobTimeout = defaults.JobTimeout
	}
	if c.LockPrefix == "" {
		c.LockPrefix = defaults.LockPrefix
	}
	return c
}
