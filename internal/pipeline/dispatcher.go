package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/mateeyas/calebmateo-filesync/internal/cloudflare"
	"github.com/mateeyas/calebmateo-filesync/internal/retry"
	"github.com/mateeyas/calebmateo-filesync/internal/store"
)

// pathPrefix is prepended to the stored path before fetching from Spaces.
const pathPrefix = "files/"

// unknownValue is the placeholder written for absent metadata fields.
// Consumers of the persisted metadata expect this literal, not absence.
const unknownValue = "Unknown"

// Outcome is the result of dispatching one file.
type Outcome struct {
	FileID       string
	CloudflareID string
	Status       store.Status
	Skipped      bool
}

type Dispatcher struct {
	objects ObjectStore
	cf      Uploader
	store   Store
	logger  *slog.Logger
	retry   retry.Options
}

func NewDispatcher(objects ObjectStore, cf Uploader, st Store, logger *slog.Logger, retryOpts retry.Options) *Dispatcher {
	if retryOpts.Logger == nil {
		retryOpts.Logger = logger
	}
	return &Dispatcher{
		objects: objects,
		cf:      cf,
		store:   st,
		logger:  logger,
		retry:   retryOpts,
	}
}

// Dispatch fetches one file's bytes and routes them to the matching upload
// operation. Skips (missing path, unsupported type) return a Skipped
// outcome and no error; upload and persistence failures are returned to the
// caller, which decides whether they abort the cycle.
func (d *Dispatcher) Dispatch(ctx context.Context, f store.File) (Outcome, error) {
	if strings.TrimSpace(f.Path) == "" {
		d.logger.Error("path is missing, skipping file", "file_id", f.ID)
		return Outcome{FileID: f.ID, Skipped: true}, nil
	}

	kind := f.Kind()
	if kind == store.KindUnsupported {
		d.logger.Info("skipping unsupported file type",
			"file_id", f.ID, "file_type", f.FileType)
		return Outcome{FileID: f.ID, Skipped: true}, nil
	}

	fullPath := pathPrefix + f.Path
	d.logger.Info("processing file", "file_id", f.ID, "path", fullPath, "kind", string(kind))

	// A fetch failure is a single external call gone wrong, not an upload
	// hiccup; it is not retried here.
	data, err := d.objects.Fetch(ctx, fullPath)
	if err != nil {
		return Outcome{}, fmt.Errorf("fetch %s: %w", fullPath, err)
	}

	meta := metadataFor(f)

	var (
		cloudflareID string
		status       store.Status
	)
	switch kind {
	case store.KindImage:
		cloudflareID, err = retry.Do(ctx, func() (string, error) {
			return d.cf.UploadImage(ctx, f.ID, f.FileName, data, f.FileType, meta)
		}, d.retry)
		status = store.StatusReady
	case store.KindVideo:
		cloudflareID, err = retry.Do(ctx, func() (string, error) {
			return d.cf.UploadVideo(ctx, f.ID, f.FileName, data, f.FileType, meta)
		}, d.retry)
		status = store.StatusPending
	}
	if err != nil {
		return Outcome{}, fmt.Errorf("upload %s %s: %w", kind, f.ID, err)
	}

	if err := d.store.MarkUploaded(ctx, f.ID, cloudflareID, status); err != nil {
		return Outcome{}, err
	}

	d.logger.Info("file processed successfully",
		"file_id", f.ID, "cloudflare_id", cloudflareID, "status", string(status))
	return Outcome{FileID: f.ID, CloudflareID: cloudflareID, Status: status}, nil
}

func metadataFor(f store.File) cloudflare.Metadata {
	meta := cloudflare.Metadata{
		OriginalFileName: unknownValue,
		DateTaken:        unknownValue,
		GPSLatitude:      unknownValue,
		GPSLongitude:     unknownValue,
	}
	if f.FileName != "" {
		meta.OriginalFileName = f.FileName
	}
	if f.DateTaken.Valid {
		meta.DateTaken = f.DateTaken.Time.UTC().Format(time.RFC3339)
	}
	if f.GPSLatitude.Valid {
		meta.GPSLatitude = strconv.FormatFloat(f.GPSLatitude.Float64, 'f', -1, 64)
	}
	if f.GPSLongitude.Valid {
		meta.GPSLongitude = strconv.FormatFloat(f.GPSLongitude.Float64, 'f', -1, 64)
	}
	return meta
}
