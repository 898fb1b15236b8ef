// internal/workers/search/search-listings/config.go
package searchlistings

import (
	"time"

	"rental-search/internal/common/config"
)

type Config struct {
	Timeout time.Duration
	// DefaultMode applies when a job carries no mode.
	DefaultMode string
}

func NewConfig(wcfg config.WorkerConfig) *Config {
	timeout := config.GetDuration(wcfg.Timeout)
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Config{Timeout: timeout, DefaultMode: ModeHybrid}
}
