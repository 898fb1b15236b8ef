// internal/workers/search/rank-apartments/config.go
package rankapartments

import (
	"time"

	"rental-search/internal/common/config"
)

type Config struct {
	Timeout time.Duration
	// MaxCandidates rejects oversized jobs; zero disables the check.
	MaxCandidates int
}

func NewConfig(wcfg config.WorkerConfig) *Config {
	timeout := config.GetDuration(wcfg.Timeout)
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Config{Timeout: timeout, MaxCandidates: 500}
}
