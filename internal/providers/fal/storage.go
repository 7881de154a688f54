package fal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"vidsound/internal/storage"
)

type initiateUploadRequest struct {
	ContentType string `json:"content_type"`
	FileName    string `json:"file_name"`
}

type initiateUploadResponse struct {
	UploadURL string `json:"upload_url"`
	FileURL   string `json:"file_url"`
}

// Upload stores the asset on the fal CDN and returns its public URL. It is a
// two step exchange: reserve a signed upload URL, then PUT the bytes there.
func (c *Client) Upload(ctx context.Context, asset storage.Asset) (string, error) {
	if len(asset.Data) == 0 {
		return "", storage.ErrEmptyAsset
	}
	contentType := asset.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	body, err := json.Marshal(initiateUploadRequest{
		ContentType: contentType,
		FileName:    storage.CleanFileName(asset.Name),
	})
	if err != nil {
		return "", fmt.Errorf("fal: encode upload request: %w", err)
	}

	var initiated initiateUploadResponse
	endpoint := c.restBaseURL + "/storage/upload/initiate?storage_type=fal-cdn-v3"
	if err := c.doJSON(ctx, http.MethodPost, endpoint, body, &initiated); err != nil {
		return "", err
	}
	if initiated.UploadURL == "" || initiated.FileURL == "" {
		return "", errors.New("fal: upload initiation returned no urls")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, initiated.UploadURL, bytes.NewReader(asset.Data))
	if err != nil {
		return "", fmt.Errorf("fal: build upload request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.ContentLength = int64(len(asset.Data))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fal: upload: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		return "", &APIError{StatusCode: resp.StatusCode, Body: raw}
	}
	_, _ = io.Copy(io.Discard, resp.Body)

	c.logger.Debug().
		Str("file_name", asset.Name).
		Int("bytes", len(asset.Data)).
		Str("url", initiated.FileURL).
		Msg("fal: asset uploaded")
	return initiated.FileURL, nil
}

var _ storage.AssetStore = (*Client)(nil)
