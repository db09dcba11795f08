// Package catalog talks to the material category service.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

const categoryPath = "/api/material_categories/get"

// maxBodySize caps catalog responses.
const maxBodySize = 8 << 20

var ErrBodyTooLarge = errors.New("catalog response exceeds size limit")

// StatusError is returned for non-2xx catalog responses.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP error! status: %d", e.StatusCode)
}

type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	// MaxBodySize bounds the response body; larger bodies fail with
	// ErrBodyTooLarge.
	MaxBodySize int64
}

func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		BaseURL:     strings.TrimRight(baseURL, "/"),
		HTTPClient:  httpClient,
		MaxBodySize: maxBodySize,
	}
}

// Fetch returns the raw category document for categoryCode.
func (c *Client) Fetch(ctx context.Context, categoryCode string) ([]byte, error) {
	u := fmt.Sprintf("%s%s?id=%s", c.BaseURL, categoryPath, url.QueryEscape(categoryCode))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	limit := c.MaxBodySize
	if limit <= 0 {
		limit = maxBodySize
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	if int64(len(body)) > limit {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrBodyTooLarge, limit)
	}
	return body, nil
}
