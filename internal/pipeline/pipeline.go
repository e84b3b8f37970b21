// Package pipeline is the orchestration core of the sync job: it dispatches
// pending files to Cloudflare, waits for video transcodes, and triggers the
// notification email.
package pipeline

import (
	"context"

	"github.com/mateeyas/calebmateo-filesync/internal/cloudflare"
	"github.com/mateeyas/calebmateo-filesync/internal/mailer"
	"github.com/mateeyas/calebmateo-filesync/internal/store"
)

// ObjectStore fetches raw file bytes from object storage.
type ObjectStore interface {
	Fetch(ctx context.Context, path string) ([]byte, error)
}

// Uploader pushes assets to the hosting service.
type Uploader interface {
	UploadImage(ctx context.Context, id, fileName string, data []byte, mimeType string, meta cloudflare.Metadata) (string, error)
	UploadVideo(ctx context.Context, id, fileName string, data []byte, mimeType string, meta cloudflare.Metadata) (string, error)
}

// StatusChecker reports transcode progress for uploaded videos.
type StatusChecker interface {
	ProcessingState(ctx context.Context, mediaID string) (cloudflare.ProcessingState, error)
}

// Store is the slice of the database layer the pipeline touches.
type Store interface {
	PendingFiles(ctx context.Context) ([]store.File, error)
	PendingTranscodes(ctx context.Context) ([]store.File, error)
	MarkUploaded(ctx context.Context, id, cloudflareID string, status store.Status) error
	MarkReady(ctx context.Context, id, thumbnail string) error
	Recipients(ctx context.Context) ([]store.Recipient, error)
	UploaderStats(ctx context.Context) ([]store.UploaderStats, error)
}

// Notifier sends the new-files email batch.
type Notifier interface {
	SendNewFiles(ctx context.Context, recipients []store.Recipient, fileCount int, stats []store.UploaderStats) (mailer.Summary, error)
}
