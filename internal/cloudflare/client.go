// Package cloudflare talks to the Cloudflare Images and Stream APIs.
package cloudflare

import (
	"log/slog"
	"net/http"
	"time"
)

const defaultBaseURL = "https://api.cloudflare.com/client/v4"

// projectName tags every uploaded asset's metadata.
const projectName = "calebmateo"

type Client struct {
	baseURL       string
	accountID     string
	apiToken      string
	statusHTTP    *http.Client
	uploadHTTP    *http.Client
	uploadTimeout time.Duration
	logger        *slog.Logger
}

func New(accountID, apiToken string, statusTimeout, uploadTimeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		baseURL:       defaultBaseURL,
		accountID:     accountID,
		apiToken:      apiToken,
		statusHTTP:    &http.Client{Timeout: statusTimeout},
		uploadHTTP:    &http.Client{Timeout: uploadTimeout},
		uploadTimeout: uploadTimeout,
		logger:        logger,
	}
}

// Metadata travels with every upload. The dispatcher fills absent fields
// with the literal "Unknown" before calling in; that placeholder is part of
// the persisted metadata contract.
type Metadata struct {
	OriginalFileName string
	DateTaken        string
	GPSLatitude      string
	GPSLongitude     string
}

func (m Metadata) fields() map[string]string {
	return map[string]string{
		"project":          projectName,
		"originalFileName": m.OriginalFileName,
		"dateTaken":        m.DateTaken,
		"gpsLatitude":      m.GPSLatitude,
		"gpsLongitude":     m.GPSLongitude,
	}
}
