package syncer

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/xerrors"
)

const (
	DefaultTimeout = 30 * time.Second
	maxErrorBody   = 512
)

// Transport delivers one encoded batch to the collector.
type Transport interface {
	Send(ctx context.Context, body []byte) error
}

// HTTPTransport posts batches with a bearer token.
type HTTPTransport struct {
	url        string
	token      string
	httpClient *http.Client
}

// NewHTTPTransport builds a transport. A zero timeout uses DefaultTimeout;
// requests are never left unbounded.
func NewHTTPTransport(url, token string, timeout time.Duration) *HTTPTransport {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &HTTPTransport{
		url:   url,
		token: token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Send succeeds only on HTTP 200.
func (t *HTTPTransport) Send(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, bytes.NewReader(body))
	if err != nil {
		return &TransportError{Err: xerrors.Errorf("build request: %w", err)}
	}
	req.Header.Set("Authorization", "Bearer "+t.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return &TransportError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &RejectedError{StatusCode: resp.StatusCode, Body: string(bytes.TrimSpace(snippet))}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
