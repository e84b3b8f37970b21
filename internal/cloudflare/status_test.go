package cloudflare

import (
	"context"
	"io"
	"net/http"
	"testing"
)

func TestProcessingStateReady(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/accounts/acct-1/stream/media-1" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{
			"success": true,
			"result": {
				"status": {"state": "ready"},
				"thumbnail": "https://videodelivery.net/media-1/thumbnails/thumbnail.jpg"
			}
		}`)
	})

	state, err := c.ProcessingState(context.Background(), "media-1")
	if err != nil {
		t.Fatalf("ProcessingState returned error: %v", err)
	}
	if !state.Ready() {
		t.Errorf("expected ready state, got %+v", state)
	}
	if state.Thumbnail != "https://videodelivery.net/media-1/thumbnails/thumbnail.jpg" {
		t.Errorf("unexpected thumbnail %q", state.Thumbnail)
	}
}

func TestProcessingStateInProgressIsNotReady(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"success":true,"result":{"status":{"state":"inprogress"},"thumbnail":""}}`)
	})

	state, err := c.ProcessingState(context.Background(), "media-1")
	if err != nil {
		t.Fatalf("ProcessingState returned error: %v", err)
	}
	if state.Ready() {
		t.Errorf("inprogress state must not be ready: %+v", state)
	}
}

func TestProcessingStateReadyWithoutThumbnailIsNotReady(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"success":true,"result":{"status":{"state":"ready"},"thumbnail":""}}`)
	})

	state, err := c.ProcessingState(context.Background(), "media-1")
	if err != nil {
		t.Fatalf("ProcessingState returned error: %v", err)
	}
	if state.Ready() {
		t.Error("ready without a thumbnail must not count as ready")
	}
}

func TestProcessingStateUpstreamError(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	if _, err := c.ProcessingState(context.Background(), "media-1"); err == nil {
		t.Fatal("expected error for 502 response")
	}
}
