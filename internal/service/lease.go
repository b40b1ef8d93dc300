package service

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Locker is a named, expiring lease store (pkg/redis.Client in production).
type Locker interface {
	AcquireLease(ctx context.Context, name, holder string, ttl time.Duration) (bool, error)
	ReleaseLease(ctx context.Context, name, holder string) error
}

// LeaseGuard lets one process at a time run a pipeline. It narrows overlap between
// scheduled runs; the reminder ledger's unique index stays the hard guarantee, so an
// unreachable lease store lets the run proceed.
type LeaseGuard struct {
	locker Locker
	ttl    time.Duration
	holder string
	logger *zap.Logger
}

// NewLeaseGuard creates a LeaseGuard with a per-process holder token.
func NewLeaseGuard(locker Locker, ttl time.Duration, logger *zap.Logger) *LeaseGuard {
	host, _ := os.Hostname()
	return &LeaseGuard{
		locker: locker,
		ttl:    ttl,
		holder: fmt.Sprintf("%s-%d-%s", host, os.Getpid(), uuid.NewString()[:8]),
		logger: logger,
	}
}

// Acquire takes the pipeline lease. ok is false only when another holder owns it. The
// returned release is always safe to call. A nil guard always grants.
func (g *LeaseGuard) Acquire(ctx context.Context, pipeline string) (release func(), ok bool) {
	noop := func() {}
	if g == nil || g.locker == nil {
		return noop, true
	}

	acquired, err := g.locker.AcquireLease(ctx, pipeline, g.holder, g.ttl)
	if err != nil {
		g.logger.Warn("lease unavailable, running without it", zap.String("pipeline", pipeline), zap.Error(err))
		return noop, true
	}
	if !acquired {
		g.logger.Info("lease held by another runner", zap.String("pipeline", pipeline))
		return noop, false
	}

	return func() {
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		if err := g.locker.ReleaseLease(releaseCtx, pipeline, g.holder); err != nil {
			g.logger.Warn("lease release failed", zap.String("pipeline", pipeline), zap.Error(err))
		}
	}, true
}
