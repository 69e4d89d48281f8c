package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"time"

	"github.com/yourusername/ytdl-relay/api/handlers"
	"github.com/yourusername/ytdl-relay/internal/domain"
)

// apiClient talks to a running ytdl-relay server
type apiClient struct {
	baseURL string
	http    *http.Client
}

func newAPIClient(baseURL string) *apiClient {
	// No client timeout: downloads are unbounded. Callers pass contexts.
	return &apiClient{baseURL: baseURL, http: &http.Client{}}
}

// apiError is a non-2xx response decoded from the server's error body
type apiError struct {
	StatusCode int
	Body       handlers.ErrorResponse
}

func (e *apiError) Error() string {
	if e.Body.Error == "" {
		return fmt.Sprintf("server returned %d", e.StatusCode)
	}
	return fmt.Sprintf("%s: %s", e.Body.Error, e.Body.Message)
}

func (c *apiClient) get(ctx context.Context, path string, query url.Values) (*http.Response, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		apiErr := &apiError{StatusCode: resp.StatusCode}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr.Body)
		return nil, apiErr
	}
	return resp, nil
}

func (c *apiClient) getJSON(ctx context.Context, path string, query url.Values, v any) error {
	resp, err := c.get(ctx, path, query)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return json.NewDecoder(resp.Body).Decode(v)
}

// Validate calls GET /validate
func (c *apiClient) Validate(ctx context.Context, sourceURL string) (*handlers.ValidateResponse, error) {
	var out handlers.ValidateResponse
	if err := c.getJSON(ctx, "/validate", url.Values{"url": {sourceURL}}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Progress calls GET /progress
func (c *apiClient) Progress(ctx context.Context, id string) (domain.Snapshot, error) {
	var snap domain.Snapshot
	err := c.getJSON(ctx, "/progress", url.Values{"id": {id}}, &snap)
	return snap, err
}

// download is an open GET /download response
type download struct {
	SessionID string
	Filename  string
	Size      int64 // -1 when unknown
	Body      io.ReadCloser
}

// Download calls GET /download and returns once the headers are in
func (c *apiClient) Download(ctx context.Context, sourceURL, encoding string) (*download, error) {
	query := url.Values{"url": {sourceURL}}
	if encoding != "" {
		query.Set("encoding", encoding)
	}
	resp, err := c.get(ctx, "/download", query)
	if err != nil {
		return nil, err
	}

	filename := "video.bin"
	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil && params["filename"] != "" {
		filename = params["filename"]
	}

	return &download{
		SessionID: resp.Header.Get("X-Session-Id"),
		Filename:  filename,
		Size:      resp.ContentLength,
		Body:      resp.Body,
	}, nil
}

// Healthy reports whether the server answers /health
func (c *apiClient) Healthy(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()

	resp, err := c.get(ctx, "/health", nil)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return true
}
