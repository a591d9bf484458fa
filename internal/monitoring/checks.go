package monitoring

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/chirp-social/chirp/internal/realtime"
)

const defaultProbeTimeout = 2 * time.Second

// Pinger represents the minimal interface required to probe a cache backend.
type Pinger interface {
	Ping(ctx context.Context) error
}

// DatabaseCheck returns a readiness probe that pings the database handle.
func DatabaseCheck(db *gorm.DB, timeout time.Duration) Check {
	return NewCheck("database", func(ctx context.Context) ProbeResult {
		start := time.Now()
		if db == nil {
			return ProbeResult{
				Status:   StatusDown,
				Details:  "database not configured",
				Duration: time.Since(start),
			}
		}

		sqlDB, err := db.DB()
		if err != nil {
			return ResultFromError("database", err, time.Since(start))
		}

		probeCtx, cancel := context.WithTimeout(ctx, chooseTimeout(timeout))
		defer cancel()

		if err := sqlDB.PingContext(probeCtx); err != nil {
			return ResultFromError("database", err, time.Since(start))
		}

		return ProbeResult{Status: StatusUp, Duration: time.Since(start)}
	})
}

// RedisCheck returns a readiness probe for the Redis cache. When Redis is
// disabled the probe reports StatusUp with a descriptive message; when it is
// enabled but unreachable the probe reports StatusDegraded because rate
// limiting falls back to the database store.
func RedisCheck(client Pinger, enabled bool, timeout time.Duration) Check {
	return NewCheck("redis", func(ctx context.Context) ProbeResult {
		start := time.Now()
		if !enabled {
			return ProbeResult{
				Status:   StatusUp,
				Details:  "redis disabled",
				Duration: time.Since(start),
			}
		}
		if client == nil {
			return ProbeResult{
				Status:   StatusDegraded,
				Details:  "redis unavailable",
				Duration: time.Since(start),
			}
		}

		probeCtx, cancel := context.WithTimeout(ctx, chooseTimeout(timeout))
		defer cancel()

		if err := client.Ping(probeCtx); err != nil {
			return ResultFromError("redis", err, time.Since(start))
		}

		return ProbeResult{Status: StatusUp, Duration: time.Since(start)}
	})
}

// RealtimeCheck reports how many users currently hold open websocket
// connections through the presence registry.
func RealtimeCheck(registry realtime.Registry) Check {
	return NewCheck("realtime", func(ctx context.Context) ProbeResult {
		start := time.Now()
		if registry == nil {
			return ProbeResult{
				Status:   StatusDegraded,
				Details:  "presence registry unavailable",
				Duration: time.Since(start),
			}
		}

		online := len(registry.Online())
		return ProbeResult{
			Status:   StatusUp,
			Details:  fmt.Sprintf("%d users online", online),
			Duration: time.Since(start),
		}
	})
}

func chooseTimeout(provided time.Duration) time.Duration {
	if provided <= 0 {
		return defaultProbeTimeout
	}
	return provided
}
