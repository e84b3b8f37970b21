package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

type Status string

const (
	StatusPending Status = "pending"
	StatusReady   Status = "ready"
)

type Kind string

const (
	KindImage       Kind = "image"
	KindVideo       Kind = "video"
	KindUnsupported Kind = "unsupported"
)

// File is one row of the "File" table awaiting a copy to Cloudflare.
type File struct {
	ID           string          `db:"id"`
	FileName     string          `db:"fileName"`
	FileType     string          `db:"fileType"`
	Path         string          `db:"path"`
	DateTaken    sql.NullTime    `db:"dateTaken"`
	GPSLatitude  sql.NullFloat64 `db:"gpsLatitude"`
	GPSLongitude sql.NullFloat64 `db:"gpsLongitude"`
	UserID       sql.NullString  `db:"userId"`
	Copied       bool            `db:"copiedToCloudflare"`
	CloudflareID sql.NullString  `db:"cloudflareId"`
	Status       sql.NullString  `db:"status"`
	Thumbnail    sql.NullString  `db:"thumbnail"`
	CreatedAt    time.Time       `db:"createdAt"`
}

// Kind classifies the file by its MIME prefix. Anything that is not an
// image or a video is never dispatched.
func (f File) Kind() Kind {
	switch {
	case strings.HasPrefix(f.FileType, "image/"):
		return KindImage
	case strings.HasPrefix(f.FileType, "video/"):
		return KindVideo
	default:
		return KindUnsupported
	}
}

type Recipient struct {
	Email string `db:"email"`
	Name  string `db:"name"`
}

// UploaderStats is one row of the notification leaderboard.
type UploaderStats struct {
	Name    string `db:"name"`
	Last7   int    `db:"last7"`
	Last30  int    `db:"last30"`
	Last365 int    `db:"last365"`
}

type Store struct {
	db *sqlx.DB
}

func Open(databaseURL string) (*Store, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

const fileColumns = `id, "fileName", "fileType", "path", "dateTaken", "gpsLatitude", "gpsLongitude",
	"userId", "copiedToCloudflare", "cloudflareId", "status", "thumbnail", "createdAt"`

// PendingFiles returns every file that has not been copied to Cloudflare yet.
func (s *Store) PendingFiles(ctx context.Context) ([]File, error) {
	var files []File
	err := s.db.SelectContext(ctx, &files,
		`SELECT `+fileColumns+` FROM "File" WHERE "copiedToCloudflare" = FALSE ORDER BY "createdAt"`)
	if err != nil {
		return nil, fmt.Errorf("select pending files: %w", err)
	}
	return files, nil
}

// PendingTranscodes returns videos uploaded to Stream that have not been
// reported ready yet.
func (s *Store) PendingTranscodes(ctx context.Context) ([]File, error) {
	var files []File
	err := s.db.SelectContext(ctx, &files,
		`SELECT `+fileColumns+` FROM "File" WHERE "status" = $1`, StatusPending)
	if err != nil {
		return nil, fmt.Errorf("select pending transcodes: %w", err)
	}
	return files, nil
}

func (s *Store) MarkUploaded(ctx context.Context, id, cloudflareID string, status Status) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE "File" SET "copiedToCloudflare" = TRUE, "cloudflareId" = $1, "status" = $2 WHERE id = $3`,
		cloudflareID, status, id)
	if err != nil {
		return fmt.Errorf("mark uploaded %s: %w", id, err)
	}
	return nil
}

func (s *Store) MarkReady(ctx context.Context, id, thumbnail string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE "File" SET "status" = $1, "thumbnail" = $2 WHERE id = $3`,
		StatusReady, thumbnail, id)
	if err != nil {
		return fmt.Errorf("mark ready %s: %w", id, err)
	}
	return nil
}

// Recipients returns everyone who gets the new-files notification.
func (s *Store) Recipients(ctx context.Context) ([]Recipient, error) {
	var recipients []Recipient
	err := s.db.SelectContext(ctx, &recipients,
		`SELECT "email", "name" FROM "User" WHERE "email" IS NOT NULL ORDER BY "name"`)
	if err != nil {
		return nil, fmt.Errorf("select recipients: %w", err)
	}
	return recipients, nil
}

// UploaderStats counts uploads per user over 7/30/365 day windows.
func (s *Store) UploaderStats(ctx context.Context) ([]UploaderStats, error) {
	var stats []UploaderStats
	err := s.db.SelectContext(ctx, &stats, `
		SELECT u."name" AS name,
		       COUNT(*) FILTER (WHERE f."createdAt" > NOW() - INTERVAL '7 days')   AS last7,
		       COUNT(*) FILTER (WHERE f."createdAt" > NOW() - INTERVAL '30 days')  AS last30,
		       COUNT(*) FILTER (WHERE f."createdAt" > NOW() - INTERVAL '365 days') AS last365
		FROM "File" f
		JOIN "User" u ON u.id = f."userId"
		GROUP BY u."name"
		ORDER BY last365 DESC, u."name"`)
	if err != nil {
		return nil, fmt.Errorf("select uploader stats: %w", err)
	}
	return stats, nil
}

// InsertLog writes one structured log record. Callers must treat failures
// as non-fatal.
func (s *Store) InsertLog(ctx context.Context, level, message, metadata string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO "Log" ("level", "message", "metadata", "timestamp") VALUES ($1, $2, $3, NOW())`,
		level, message, metadata)
	return err
}
