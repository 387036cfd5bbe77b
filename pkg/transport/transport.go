// Package transport executes request descriptors over HTTP.
//
// Basic auth is applied from the credentials carried by the request. Signed
// requests are signed with the transport's Signer; see Signer for the
// canonical string and headers.
package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/leapstack-labs/leapconnect/pkg/core"
)

// maxBodySize caps how much of a response body is read.
const maxBodySize = 32 << 20

// DefaultUserAgent is sent when Config.UserAgent is empty.
const DefaultUserAgent = "leapconnect"

// ErrNoSigner is returned for signed requests on a transport without a Signer.
var ErrNoSigner = errors.New("request requires HMAC signing but no signer is configured")

// Transport executes a request descriptor and returns the raw response.
// Implementations must honor context cancellation.
type Transport interface {
	Execute(ctx context.Context, req *core.Request) (*core.Response, error)
}

// StatusError is returned for responses outside the 2xx range.
// The response is returned alongside it.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("remote returned %d %s", e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("remote returned %d %s: %s", e.Status, http.StatusText(e.Status), e.Body)
}

// Config holds HTTP transport configuration.
type Config struct {
	// Client is the HTTP client to use (optional, http.DefaultClient if nil)
	Client *http.Client
	// Signer signs requests whose auth decision is Signed (optional)
	Signer *Signer
	// UserAgent overrides DefaultUserAgent
	UserAgent string
	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
}

// HTTPTransport is the net/http implementation of Transport.
type HTTPTransport struct {
	client    *http.Client
	signer    *Signer
	userAgent string
	logger    *slog.Logger
}

// New creates an HTTP transport.
func New(cfg Config) *HTTPTransport {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	client := cfg.Client
	if client == nil {
		client = http.DefaultClient
	}
	ua := cfg.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}
	return &HTTPTransport{
		client:    client,
		signer:    cfg.Signer,
		userAgent: ua,
		logger:    logger,
	}
}

// Execute sends the request. Non-2xx responses yield a *StatusError together
// with the response.
func (t *HTTPTransport) Execute(ctx context.Context, req *core.Request) (*core.Response, error) {
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, bytes.NewReader(req.Body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("User-Agent", t.userAgent)
	if req.Accept != "" {
		httpReq.Header.Set("Accept", req.Accept)
	}
	if req.ContentType != "" {
		httpReq.Header.Set("Content-Type", req.ContentType)
	}

	if err := t.authenticate(httpReq, req); err != nil {
		return nil, err
	}

	start := time.Now()
	httpResp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", req.Method, httpReq.URL.Redacted(), err)
	}
	defer func() { _ = httpResp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(httpResp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	t.logger.Debug("http request completed",
		slog.String("method", req.Method),
		slog.String("url", httpReq.URL.Redacted()),
		slog.Int("status", httpResp.StatusCode),
		slog.Duration("duration", time.Since(start)))

	resp := &core.Response{
		Status: httpResp.StatusCode,
		Header: httpResp.Header,
		Body:   body,
	}
	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		return resp, &StatusError{Status: httpResp.StatusCode, Body: snippet(body)}
	}
	return resp, nil
}

func (t *HTTPTransport) authenticate(httpReq *http.Request, req *core.Request) error {
	switch req.Auth.Kind {
	case core.AuthBasic:
		if req.Auth.Credentials == nil {
			return errors.New("basic auth requested without credentials")
		}
		httpReq.SetBasicAuth(req.Auth.Credentials.Username, req.Auth.Credentials.Password)
		return nil
	case core.AuthSigned:
		if t.signer == nil {
			return ErrNoSigner
		}
		return t.signer.Sign(httpReq, req.Body)
	case "":
		return nil
	default:
		return fmt.Errorf("unknown auth kind %q", req.Auth.Kind)
	}
}

func snippet(body []byte) string {
	const limit = 512
	s := string(bytes.TrimSpace(body))
	if len(s) > limit {
		return s[:limit] + "..."
	}
	return s
}
