package cloudflare

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	tus "github.com/eventials/go-tus"
)

// streamChunkSize is the resumable-upload chunk size. Stream requires at
// least 5 MiB per chunk.
const streamChunkSize = 50 * 1024 * 1024

// UploadVideo pushes the file to Cloudflare Stream over the tus resumable
// protocol and returns the assigned media uid. Progress events surface as
// debug logs while the upload runs.
func (c *Client) UploadVideo(ctx context.Context, id, fileName string, data []byte, mimeType string, meta Metadata) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.uploadTimeout)
	defer cancel()

	header := make(http.Header)
	header.Set("Authorization", "Bearer "+c.apiToken)

	endpoint := fmt.Sprintf("%s/accounts/%s/stream", c.baseURL, c.accountID)
	client, err := tus.NewClient(endpoint, &tus.Config{
		ChunkSize:  streamChunkSize,
		Resume:     false,
		Header:     header,
		HttpClient: c.uploadHTTP,
	})
	if err != nil {
		return "", fmt.Errorf("stream client: %w", err)
	}

	metadata := map[string]string{
		"name":     id,
		"filetype": mimeType,
	}
	for k, v := range meta.fields() {
		metadata[k] = v
	}
	upload := tus.NewUploadFromBytes(data)
	upload.Metadata = metadata

	uploader, err := client.CreateUpload(upload)
	if err != nil {
		return "", wrapTusError(fmt.Errorf("create stream upload %s: %w", id, err))
	}

	progress := make(chan tus.Upload, 8)
	uploader.NotifyUploadProgress(progress)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case u := <-progress:
				c.logger.Debug("stream upload progress",
					"file_id", id,
					"percent", u.Progress(),
					"offset", u.Offset(),
					"size", u.Size())
			case <-done:
				return
			}
		}
	}()

	err = uploader.Upload()
	close(done)
	if err != nil {
		return "", wrapTusError(fmt.Errorf("stream upload %s: %w", id, err))
	}

	uid, err := mediaIDFromURL(uploader.Url())
	if err != nil {
		return "", fmt.Errorf("stream upload %s: %w", id, err)
	}

	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("stream upload %s: %w", id, err)
	}
	return uid, nil
}

// wrapTusError lifts the status code out of tus client errors so the retry
// executor can see it.
func wrapTusError(err error) error {
	var ce tus.ClientError
	if errors.As(err, &ce) {
		return &APIError{StatusCode: ce.Code, Message: strings.TrimSpace(string(ce.Body))}
	}
	return err
}

// mediaIDFromURL extracts the media uid from the upload location, dropping
// any query string the API appends.
func mediaIDFromURL(location string) (string, error) {
	parsed, err := url.Parse(location)
	if err != nil {
		return "", fmt.Errorf("parse upload location: %w", err)
	}
	segments := strings.Split(strings.TrimSuffix(parsed.Path, "/"), "/")
	uid := segments[len(segments)-1]
	if uid == "" {
		return "", fmt.Errorf("upload location %q has no media id", location)
	}
	return uid, nil
}
