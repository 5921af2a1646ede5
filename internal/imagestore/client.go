/**
 * Image hosting client
 *
 * Uploads the original dashboard screenshot to the external image
 * hosting collaborator so the snapshot can link back to its source
 * capture. Upload failures are non-fatal: the snapshot is persisted
 * without an image reference.
 */

package imagestore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"time"
)

// Client handles communication with the image hosting service.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// UploadRequest is one screenshot to store.
type UploadRequest struct {
	Image    []byte
	Filename string
	SourceID string // snapshot ID the image belongs to
}

// UploadResponse is the hosting service's reply.
type UploadResponse struct {
	Success bool   `json:"success"`
	URL     string `json:"url,omitempty"`
	Error   string `json:"error,omitempty"`
}

// NewClient creates a new image hosting client.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// HealthCheck verifies the hosting service is reachable.
func (c *Client) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to create health check request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("image host health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("image host health check returned status %d: %s", resp.StatusCode, string(body))
	}

	return nil
}

// Upload stores a screenshot and returns its hosted URL.
func (c *Client) Upload(ctx context.Context, req *UploadRequest) (string, error) {
	if len(req.Image) == 0 {
		return "", fmt.Errorf("image buffer is required")
	}
	if req.Filename == "" {
		return "", fmt.Errorf("filename is required")
	}

	log.Printf("[imagestore] Uploading screenshot: filename=%s, size=%d bytes, sourceId=%s",
		req.Filename, len(req.Image), req.SourceID)

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", req.Filename)
	if err != nil {
		return "", fmt.Errorf("failed to create form file part: %w", err)
	}
	if _, err := part.Write(req.Image); err != nil {
		return "", fmt.Errorf("failed to write file data to form: %w", err)
	}
	if err := writer.WriteField("source_id", req.SourceID); err != nil {
		return "", fmt.Errorf("failed to write source_id field: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize multipart form: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/api/images/upload", &body)
	if err != nil {
		return "", fmt.Errorf("failed to create upload request: %w", err)
	}
	httpReq.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("upload request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read upload response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("upload returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var uploadResp UploadResponse
	if err := json.Unmarshal(respBody, &uploadResp); err != nil {
		return "", fmt.Errorf("failed to decode upload response: %w", err)
	}
	if !uploadResp.Success || uploadResp.URL == "" {
		return "", fmt.Errorf("upload rejected: %s", uploadResp.Error)
	}

	return uploadResp.URL, nil
}
