package remote

import (
	"context"
	"log/slog"
	"time"
)

// StatusCallback is invoked on every connectivity transition.
type StatusCallback func(online bool)

// WatchConnectivity polls the provider's health probe at the given
// interval until ctx is cancelled, calling cb on each transition between
// connected and disconnected. The first probe result is always reported
// so the caller starts from a known state.
func WatchConnectivity(ctx context.Context, p Provider, interval time.Duration, logger *slog.Logger, cb StatusCallback) {
	if interval <= 0 {
		interval = 15 * time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	known := false
	online := false

	probe := func() {
		err := p.Ping(ctx)
		now := err == nil
		if known && now == online {
			return
		}
		known = true
		online = now
		if online {
			logger.Info("remote: connected")
		} else {
			logger.Warn("remote: disconnected", slog.String("error", err.Error()))
		}
		if cb != nil {
			cb(online)
		}
	}

	probe()
	for {
		select {
		case <-ctx.Done():
			logger.Info("remote: connectivity watcher stopped")
			return
		case <-ticker.C:
			probe()
		}
	}
}
