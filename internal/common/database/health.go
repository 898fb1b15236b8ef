// internal/common/database/health.go
package database

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// Pinger is implemented by every backing-service client in this package.
type Pinger interface {
	Ping(ctx context.Context) error
}

// CheckAll pings every named dependency and reports all failures together.
func CheckAll(ctx context.Context, deps map[string]Pinger) error {
	var failed []string
	for name, dep := range deps {
		if dep == nil {
			continue
		}
		if err := dep.Ping(ctx); err != nil {
			failed = append(failed, fmt.Sprintf("%s: %v", name, err))
		}
	}
	if len(failed) == 0 {
		return nil
	}
	sort.Strings(failed)
	return fmt.Errorf("unhealthy dependencies: %s", strings.Join(failed, "; "))
}
