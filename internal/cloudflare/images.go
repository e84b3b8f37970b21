package cloudflare

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
)

type apiMessage struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type imagesResponse struct {
	Success bool `json:"success"`
	Result  struct {
		ID string `json:"id"`
	} `json:"result"`
	Errors []apiMessage `json:"errors"`
}

// UploadImage pushes the file to Cloudflare Images and returns the assigned
// image id. The multipart file part is named after the file's database id,
// matching how assets are looked up later.
func (c *Client) UploadImage(ctx context.Context, id, fileName string, data []byte, mimeType string, meta Metadata) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.uploadTimeout)
	defer cancel()

	var body bytes.Buffer
	form := multipart.NewWriter(&body)

	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, id))
	header.Set("Content-Type", mimeType)
	part, err := form.CreatePart(header)
	if err != nil {
		return "", fmt.Errorf("build image form: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return "", fmt.Errorf("build image form: %w", err)
	}

	encoded, err := json.Marshal(meta.fields())
	if err != nil {
		return "", fmt.Errorf("encode image metadata: %w", err)
	}
	if err := form.WriteField("metadata", string(encoded)); err != nil {
		return "", fmt.Errorf("build image form: %w", err)
	}
	if err := form.Close(); err != nil {
		return "", fmt.Errorf("build image form: %w", err)
	}

	url := fmt.Sprintf("%s/accounts/%s/images/v1", c.baseURL, c.accountID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return "", fmt.Errorf("build image request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiToken)
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := c.uploadHTTP.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload image %s: %w", id, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", newAPIError(resp)
	}

	var out imagesResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode image response: %w", err)
	}
	if !out.Success {
		return "", fmt.Errorf("image upload rejected: %s", joinAPIErrors(out.Errors))
	}
	return out.Result.ID, nil
}

func joinAPIErrors(errs []apiMessage) string {
	if len(errs) == 0 {
		return "no error detail"
	}
	parts := make([]string, 0, len(errs))
	for _, e := range errs {
		parts = append(parts, fmt.Sprintf("%d %s", e.Code, e.Message))
	}
	return strings.Join(parts, "; ")
}
