package pipeline

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/mateeyas/calebmateo-filesync/internal/cloudflare"
	"github.com/mateeyas/calebmateo-filesync/internal/mailer"
	"github.com/mateeyas/calebmateo-filesync/internal/store"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type uploadMark struct {
	id           string
	cloudflareID string
	status       store.Status
}

type readyMark struct {
	id        string
	thumbnail string
}

type fakeStore struct {
	mu sync.Mutex

	pendingFiles      []store.File
	pendingFilesErr   error
	pendingTranscodes []store.File
	recipients        []store.Recipient
	stats             []store.UploaderStats

	uploaded []uploadMark
	ready    []readyMark
}

func (s *fakeStore) PendingFiles(context.Context) ([]store.File, error) {
	return s.pendingFiles, s.pendingFilesErr
}

func (s *fakeStore) PendingTranscodes(context.Context) ([]store.File, error) {
	return s.pendingTranscodes, nil
}

func (s *fakeStore) MarkUploaded(_ context.Context, id, cloudflareID string, status store.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uploaded = append(s.uploaded, uploadMark{id: id, cloudflareID: cloudflareID, status: status})
	return nil
}

func (s *fakeStore) MarkReady(_ context.Context, id, thumbnail string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ready = append(s.ready, readyMark{id: id, thumbnail: thumbnail})
	return nil
}

func (s *fakeStore) Recipients(context.Context) ([]store.Recipient, error) {
	return s.recipients, nil
}

func (s *fakeStore) UploaderStats(context.Context) ([]store.UploaderStats, error) {
	return s.stats, nil
}

func (s *fakeStore) readyMarks() []readyMark {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]readyMark{}, s.ready...)
}

type fakeObjects struct {
	mu      sync.Mutex
	data    []byte
	err     error
	fetched []string
}

func (o *fakeObjects) Fetch(_ context.Context, path string) ([]byte, error) {
	o.mu.Lock()
	o.fetched = append(o.fetched, path)
	o.mu.Unlock()
	if o.err != nil {
		return nil, o.err
	}
	return o.data, nil
}

type uploadCall struct {
	id       string
	fileName string
	mimeType string
	meta     cloudflare.Metadata
	video    bool
}

// fakeUploader returns ids from the result map, or errs for ids listed
// there. errsOnce makes the first n attempts for an id fail before
// succeeding, to exercise the retry path.
type fakeUploader struct {
	mu       sync.Mutex
	calls    []uploadCall
	result   map[string]string
	errs     map[string]error
	errsOnce map[string]int
}

func (u *fakeUploader) upload(id, fileName, mimeType string, meta cloudflare.Metadata, video bool) (string, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.calls = append(u.calls, uploadCall{id: id, fileName: fileName, mimeType: mimeType, meta: meta, video: video})
	if n, ok := u.errsOnce[id]; ok {
		if n > 0 {
			u.errsOnce[id] = n - 1
			return "", u.errs[id]
		}
		return u.result[id], nil
	}
	if err, ok := u.errs[id]; ok {
		return "", err
	}
	return u.result[id], nil
}

func (u *fakeUploader) UploadImage(_ context.Context, id, fileName string, _ []byte, mimeType string, meta cloudflare.Metadata) (string, error) {
	return u.upload(id, fileName, mimeType, meta, false)
}

func (u *fakeUploader) UploadVideo(_ context.Context, id, fileName string, _ []byte, mimeType string, meta cloudflare.Metadata) (string, error) {
	return u.upload(id, fileName, mimeType, meta, true)
}

func (u *fakeUploader) callCount() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.calls)
}

type stateStep struct {
	state cloudflare.ProcessingState
	err   error
}

type fakeChecker struct {
	mu    sync.Mutex
	steps map[string][]stateStep
	calls map[string]int
}

func (c *fakeChecker) ProcessingState(_ context.Context, mediaID string) (cloudflare.ProcessingState, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.calls == nil {
		c.calls = make(map[string]int)
	}
	n := c.calls[mediaID]
	c.calls[mediaID] = n + 1

	steps := c.steps[mediaID]
	if len(steps) == 0 {
		return cloudflare.ProcessingState{}, nil
	}
	if n >= len(steps) {
		// Keep returning the last configured answer.
		n = len(steps) - 1
	}
	return steps[n].state, steps[n].err
}

func (c *fakeChecker) callsFor(mediaID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[mediaID]
}

type notifyCall struct {
	recipients []store.Recipient
	fileCount  int
	stats      []store.UploaderStats
}

type fakeNotifier struct {
	mu    sync.Mutex
	calls []notifyCall
	err   error
}

func (n *fakeNotifier) SendNewFiles(_ context.Context, recipients []store.Recipient, fileCount int, stats []store.UploaderStats) (mailer.Summary, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, notifyCall{recipients: recipients, fileCount: fileCount, stats: stats})
	if n.err != nil {
		return mailer.Summary{Failed: len(recipients)}, n.err
	}
	return mailer.Summary{Sent: len(recipients)}, nil
}
