package cloudflare

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// StateReady is the Stream processing state that marks a transcode done.
const StateReady = "ready"

// ProcessingState is the slice of the Stream video details the poller needs.
type ProcessingState struct {
	Success   bool
	State     string
	Thumbnail string
}

// Ready reports whether the video finished transcoding and has a thumbnail.
func (s ProcessingState) Ready() bool {
	return s.Success && s.State == StateReady && s.Thumbnail != ""
}

type streamDetailsResponse struct {
	Success bool `json:"success"`
	Result  struct {
		Status struct {
			State string `json:"state"`
		} `json:"status"`
		Thumbnail string `json:"thumbnail"`
	} `json:"result"`
	Errors []apiMessage `json:"errors"`
}

// ProcessingState fetches the transcode state of one Stream video.
func (c *Client) ProcessingState(ctx context.Context, mediaID string) (ProcessingState, error) {
	url := fmt.Sprintf("%s/accounts/%s/stream/%s", c.baseURL, c.accountID, mediaID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return ProcessingState{}, fmt.Errorf("build status request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiToken)

	resp, err := c.statusHTTP.Do(req)
	if err != nil {
		return ProcessingState{}, fmt.Errorf("query stream status %s: %w", mediaID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return ProcessingState{}, newAPIError(resp)
	}

	var out streamDetailsResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return ProcessingState{}, fmt.Errorf("decode stream status %s: %w", mediaID, err)
	}
	return ProcessingState{
		Success:   out.Success,
		State:     out.Result.Status.State,
		Thumbnail: out.Result.Thumbnail,
	}, nil
}
