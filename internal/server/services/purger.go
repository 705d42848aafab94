package services

import (
	"context"
	"time"

	"github.com/dmitrijs2005/jwtkeeper/internal/logging"
	"github.com/dmitrijs2005/jwtkeeper/internal/server/archive"
	"github.com/dmitrijs2005/jwtkeeper/internal/server/metrics"
	"github.com/dmitrijs2005/jwtkeeper/internal/server/repositories/allowlist"
)

// Purger periodically deletes expired allowlist rows. Expired rows are
// already rejected by the revocation check, so purging only reclaims
// storage. Each removed batch can be archived first.
type Purger struct {
	store    allowlist.Repository
	archiver archive.Archiver
	interval time.Duration
	logger   logging.Logger
	metrics  metrics.Recorder
	now      func() time.Time
}

// NewPurger builds a purger; archiver may be nil.
func NewPurger(store allowlist.Repository, archiver archive.Archiver, interval time.Duration, logger logging.Logger, rec metrics.Recorder) *Purger {
	if rec == nil {
		rec = metrics.NewNoopMetrics()
	}
	return &Purger{
		store:    store,
		archiver: archiver,
		interval: interval,
		logger:   logger.With("module", "purger"),
		metrics:  rec,
		now:      time.Now,
	}
}

// PurgeOnce removes rows that expired at or before now and returns how
// many were removed. Archive failures are logged, not returned.
func (p *Purger) PurgeOnce(ctx context.Context) (int, error) {
	now := p.now()

	purged, err := p.store.PurgeExpired(ctx, now)
	if err != nil {
		return 0, err
	}
	if len(purged) == 0 {
		return 0, nil
	}

	if p.archiver != nil {
		key, err := p.archiver.Archive(ctx, purged, now)
		if err != nil {
			p.logger.Error(ctx, "archive purged tokens failed", "count", len(purged), "error", err)
		} else {
			p.logger.Debug(ctx, "purged tokens archived", "key", key)
		}
	}

	p.metrics.RecordTokensPurged(len(purged))
	p.logger.Info(ctx, "expired tokens purged", "count", len(purged))
	return len(purged), nil
}

// Run purges every interval until ctx is done. A non-positive interval
// disables purging.
func (p *Purger) Run(ctx context.Context) {
	if p.interval <= 0 {
		return
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := p.PurgeOnce(ctx); err != nil && ctx.Err() == nil {
				p.logger.Warn(ctx, "purge failed", "error", err)
			}
		}
	}
}
