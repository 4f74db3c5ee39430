package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/miralcamp/camposync/internal/models"
)

// Client defines the contract for communicating with the farm-operations
// backend.
type Client interface {
	// FetchReference retrieves one full reference collection.
	FetchReference(ctx context.Context, collection string) ([]*models.ReferenceRecord, error)
	// CreateRecord POSTs a queued payload to the endpoint for its record
	// type. clientRef is sent as an idempotency key so redelivery after a
	// lost acknowledgement does not duplicate the record server-side.
	CreateRecord(ctx context.Context, rt models.RecordType, payload json.RawMessage, clientRef string) error
	// Health probes server reachability without authentication.
	Health(ctx context.Context) error
}

// TokenSource yields the current bearer token; an empty string means no
// credential is available.
type TokenSource interface {
	Token() string
}

// HTTPClient implements Client over HTTP with bearer-token auth.
type HTTPClient struct {
	baseURL    string
	tokens     TokenSource
	httpClient *http.Client
}

// NewHTTPClient creates an HTTP-based API client.
func NewHTTPClient(baseURL string, tokens TokenSource) *HTTPClient {
	return &HTTPClient{
		baseURL:    baseURL,
		tokens:     tokens,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *HTTPClient) apiURL(path string) string {
	return fmt.Sprintf("%s/api%s", c.baseURL, path)
}

func (c *HTTPClient) do(ctx context.Context, method, url string, body io.Reader, headers map[string]string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	if token := c.tokens.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}

	return resp, nil
}

// FetchReference retrieves one reference collection, unwrapping the
// {collection: [...]} envelope.
func (c *HTTPClient) FetchReference(ctx context.Context, collection string) ([]*models.ReferenceRecord, error) {
	resp, err := c.do(ctx, "GET", c.apiURL("/"+collection), nil, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", collection, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, decodeError(resp)
	}

	var envelope collectionEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("decode %s response: %w", collection, err)
	}

	raw, ok := envelope[collection]
	if !ok {
		return nil, fmt.Errorf("response missing %q collection", collection)
	}

	records := make([]*models.ReferenceRecord, 0, len(raw))
	for _, body := range raw {
		rec, err := models.ParseReferenceRecord(body)
		if err != nil {
			return nil, fmt.Errorf("collection %s: %w", collection, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// CreateRecord POSTs one queued payload. Any 2xx response is acceptance.
func (c *HTTPClient) CreateRecord(ctx context.Context, rt models.RecordType, payload json.RawMessage, clientRef string) error {
	endpoint, ok := rt.Endpoint()
	if !ok {
		return fmt.Errorf("no endpoint for record type %q", rt)
	}

	headers := map[string]string{"Content-Type": "application/json"}
	if clientRef != "" {
		headers["Idempotency-Key"] = clientRef
	}

	resp, err := c.do(ctx, "POST", c.apiURL("/"+endpoint), bytes.NewReader(payload), headers)
	if err != nil {
		return fmt.Errorf("create %s: %w", rt, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}

	return nil
}

// Health probes the server's health endpoint.
func (c *HTTPClient) Health(ctx context.Context) error {
	resp, err := c.do(ctx, "GET", c.apiURL("/health"), nil, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}
	return nil
}

// APIError represents a structured error from the server.
type APIError struct {
	Status int
	Detail string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error (%d): %s", e.Status, e.Detail)
}

func decodeError(resp *http.Response) error {
	var errResp ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err != nil || errResp.Detail == "" {
		return &APIError{
			Status: resp.StatusCode,
			Detail: fmt.Sprintf("HTTP %d", resp.StatusCode),
		}
	}

	return &APIError{
		Status: resp.StatusCode,
		Detail: errResp.Detail,
	}
}
