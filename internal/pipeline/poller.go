package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/mateeyas/calebmateo-filesync/internal/store"
)

const (
	DefaultPollInterval = 20 * time.Second
	DefaultPollCeiling  = 2 * time.Minute
)

// Poller watches pending Stream transcodes until each one is ready or its
// time ceiling elapses.
type Poller struct {
	cf       StatusChecker
	store    Store
	logger   *slog.Logger
	interval time.Duration
	ceiling  time.Duration
}

func NewPoller(cf StatusChecker, st Store, logger *slog.Logger, interval, ceiling time.Duration) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if ceiling <= 0 {
		ceiling = DefaultPollCeiling
	}
	return &Poller{cf: cf, store: st, logger: logger, interval: interval, ceiling: ceiling}
}

// PollAll runs one independent poll chain per file, all concurrently, and
// returns once every chain has reached a terminal state. Each chain touches
// a disjoint row, so no coordination is needed beyond the WaitGroup.
func (p *Poller) PollAll(ctx context.Context, files []store.File) {
	var wg sync.WaitGroup
	for _, f := range files {
		if !f.CloudflareID.Valid || f.CloudflareID.String == "" {
			p.logger.Warn("pending file has no cloudflare id, skipping poll", "file_id", f.ID)
			continue
		}
		wg.Add(1)
		go func(f store.File) {
			defer wg.Done()
			p.pollOne(ctx, f)
		}(f)
	}
	wg.Wait()
}

// pollOne checks the transcode state at a fixed interval. Reaching the
// ceiling is a silent give-up, not a failure: the row stays pending and a
// later cycle picks it up again. Transient errors obey the same ceiling.
func (p *Poller) pollOne(ctx context.Context, f store.File) {
	start := time.Now()
	mediaID := f.CloudflareID.String

	for {
		if elapsed := time.Since(start); elapsed >= p.ceiling {
			p.logger.Info("transcode not ready before ceiling, giving up",
				"file_id", f.ID, "cloudflare_id", mediaID, "elapsed", elapsed.String())
			return
		}

		state, err := p.cf.ProcessingState(ctx, mediaID)
		switch {
		case err != nil:
			p.logger.Warn("transcode status check failed",
				"file_id", f.ID, "cloudflare_id", mediaID, "error", err.Error())
		case state.Ready():
			if err := p.store.MarkReady(ctx, f.ID, state.Thumbnail); err != nil {
				p.logger.Error("failed to persist ready status",
					"file_id", f.ID, "error", err.Error())
				return
			}
			p.logger.Info("transcode complete",
				"file_id", f.ID, "cloudflare_id", mediaID, "thumbnail", state.Thumbnail)
			return
		default:
			p.logger.Debug("transcode still processing",
				"file_id", f.ID, "cloudflare_id", mediaID, "state", state.State)
		}

		timer := time.NewTimer(p.interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}
