// Package rest implements the HTTP client for the record backend. Every
// screen in the admin UI reads and writes its collection through this client.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"finadmin/internal/schema"
)

var (
	ErrNotFound   = errors.New("record not found")
	ErrBadRequest = errors.New("backend rejected the request")
)

// StatusError reports an unexpected HTTP status from the backend.
type StatusError struct {
	Method string
	URL    string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: unexpected status %d: %s", e.Method, e.URL, e.Status, e.Body)
}

// Client talks JSON over HTTP to the record backend.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a client for the backend at baseURL.
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

// List fetches every record in a collection.
func (c *Client) List(ctx context.Context, collection string) ([]schema.Record, error) {
	var records []schema.Record
	if err := c.do(ctx, http.MethodGet, c.collectionURL(collection), nil, &records); err != nil {
		return nil, fmt.Errorf("listing %s: %w", collection, err)
	}
	return records, nil
}

// Create stores a new record and returns it as the backend saved it,
// including the assigned id.
func (c *Client) Create(ctx context.Context, collection string, record schema.Record) (schema.Record, error) {
	var saved schema.Record
	if err := c.do(ctx, http.MethodPost, c.collectionURL(collection), record, &saved); err != nil {
		return nil, fmt.Errorf("creating record in %s: %w", collection, err)
	}
	return saved, nil
}

// Update replaces the record with the given id and returns the saved version.
func (c *Client) Update(ctx context.Context, collection, id string, record schema.Record) (schema.Record, error) {
	var saved schema.Record
	if err := c.do(ctx, http.MethodPut, c.recordURL(collection, id), record, &saved); err != nil {
		return nil, fmt.Errorf("updating record %s in %s: %w", id, collection, err)
	}
	return saved, nil
}

// Delete removes the record with the given id.
func (c *Client) Delete(ctx context.Context, collection, id string) error {
	if err := c.do(ctx, http.MethodDelete, c.recordURL(collection, id), nil, nil); err != nil {
		return fmt.Errorf("deleting record %s from %s: %w", id, collection, err)
	}
	return nil
}

func (c *Client) collectionURL(collection string) string {
	return fmt.Sprintf("%s/api/%s", c.baseURL, url.PathEscape(collection))
}

func (c *Client) recordURL(collection, id string) string {
	return fmt.Sprintf("%s/api/%s/%s", c.baseURL, url.PathEscape(collection), url.PathEscape(id))
}

func (c *Client) do(ctx context.Context, method, reqURL string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reader)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("calling backend: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode == http.StatusBadRequest:
		return fmt.Errorf("%w: %s", ErrBadRequest, readBody(resp.Body))
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return &StatusError{Method: method, URL: reqURL, Status: resp.StatusCode, Body: readBody(resp.Body)}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

func readBody(r io.Reader) string {
	b, err := io.ReadAll(io.LimitReader(r, 512))
	if err != nil {
		return ""
	}
	return string(bytes.TrimSpace(b))
}
