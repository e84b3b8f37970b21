package pipeline

import (
	"context"
	"fmt"
	"log/slog"
)

// Coordinator runs one full sync cycle.
type Coordinator struct {
	store      Store
	dispatcher *Dispatcher
	poller     *Poller
	notifier   Notifier
	logger     *slog.Logger
}

func NewCoordinator(st Store, dispatcher *Dispatcher, poller *Poller, notifier Notifier, logger *slog.Logger) *Coordinator {
	return &Coordinator{
		store:      st,
		dispatcher: dispatcher,
		poller:     poller,
		notifier:   notifier,
		logger:     logger,
	}
}

// RunCycle queries the backlog, dispatches each file sequentially, emails
// recipients when anything was uploaded, then polls pending transcodes.
// Only failures to reach the database abort the cycle; one file's failure
// never stops the rest.
func (c *Coordinator) RunCycle(ctx context.Context) error {
	c.logger.Info("checking for new files to process")

	files, err := c.store.PendingFiles(ctx)
	if err != nil {
		return fmt.Errorf("query pending files: %w", err)
	}

	dispatched := 0
	for _, f := range files {
		outcome, err := c.dispatcher.Dispatch(ctx, f)
		if err != nil {
			c.logger.Error("file processing failed",
				"file_id", f.ID, "error", err.Error())
			continue
		}
		if outcome.Skipped {
			continue
		}
		dispatched++
	}

	if dispatched > 0 {
		c.notify(ctx, dispatched)
	}

	pending, err := c.store.PendingTranscodes(ctx)
	if err != nil {
		return fmt.Errorf("query pending transcodes: %w", err)
	}
	if len(pending) > 0 {
		c.logger.Info("waiting for pending transcodes", "count", len(pending))
		c.poller.PollAll(ctx, pending)
	}

	c.logger.Info("cycle complete",
		"examined", len(files), "dispatched", dispatched, "polled", len(pending))
	return nil
}

// notify is best effort: a broken notification path is logged, never fatal.
func (c *Coordinator) notify(ctx context.Context, fileCount int) {
	recipients, err := c.store.Recipients(ctx)
	if err != nil {
		c.logger.Error("failed to load recipients", "error", err.Error())
		return
	}
	if len(recipients) == 0 {
		c.logger.Info("no recipients registered, skipping notification")
		return
	}

	stats, err := c.store.UploaderStats(ctx)
	if err != nil {
		c.logger.Warn("failed to load uploader stats, sending without them", "error", err.Error())
		stats = nil
	}

	summary, err := c.notifier.SendNewFiles(ctx, recipients, fileCount, stats)
	if err != nil {
		c.logger.Error("notification batch failed", "error", err.Error())
		return
	}
	c.logger.Info("notification batch sent",
		"recipients", len(recipients), "sent", summary.Sent, "failed", summary.Failed)
}
