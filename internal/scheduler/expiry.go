// Package scheduler runs the periodic conversation expiry job.
package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/elicheradice/support-platform/internal/service"
	"github.com/elicheradice/support-platform/pkg/logger"
)

// Expiry resolves conversations whose last activity is older than the
// configured age.
type Expiry struct {
	conversations *service.ConversationService
	logger        *logger.Logger

	// graceDelay postpones the first run so expiry does not contend
	// with startup work.
	graceDelay time.Duration
	interval   time.Duration
	maxAge     time.Duration
}

// NewExpiry creates the expiry job.
func NewExpiry(conversations *service.ConversationService, graceDelay, interval, maxAge time.Duration, log *logger.Logger) *Expiry {
	return &Expiry{
		conversations: conversations,
		logger:        log,
		graceDelay:    graceDelay,
		interval:      interval,
		maxAge:        maxAge,
	}
}

// Run executes sweeps until ctx is cancelled: one after the grace
// delay, then one per interval. A failed sweep is logged and the next
// tick retries; stale conversations are harmless in the meantime.
func (e *Expiry) Run(ctx context.Context) {
	select {
	case <-time.After(e.graceDelay):
	case <-ctx.Done():
		return
	}

	e.sweep(ctx)

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			e.sweep(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (e *Expiry) sweep(ctx context.Context) {
	expired, err := e.conversations.ExpireStale(ctx, e.maxAge)
	if err != nil {
		e.logger.Error("expiry sweep failed", zap.Error(err))
		return
	}
	if expired > 0 {
		e.logger.Info("expired stale conversations", zap.Int("count", expired))
	}
}
