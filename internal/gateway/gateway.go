package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/phrazzld/card-service/internal/platform/logger"
)

// maxBodyBytes bounds how much of a response body is read.
const maxBodyBytes = 1 << 20

// NewHTTPClient returns a pooled client suitable for long-lived use.
func NewHTTPClient(timeout time.Duration) *http.Client {
	client := cleanhttp.DefaultPooledClient()
	client.Timeout = timeout
	return client
}

// Gateway performs HTTP calls guarded by per-target circuit breakers.
type Gateway struct {
	client   *http.Client
	breakers *BreakerRegistry
	logger   *slog.Logger
}

// New creates a Gateway. A nil client gets a pooled client with no timeout
// and a nil registry gets one with default settings.
// If logger is nil, a default logger will be used.
func New(client *http.Client, breakers *BreakerRegistry, logger *slog.Logger) *Gateway {
	if client == nil {
		client = cleanhttp.DefaultPooledClient()
	}
	if logger == nil {
		logger = slog.Default()
	}
	if breakers == nil {
		breakers = NewBreakerRegistry(BreakerSettings{}, logger)
	}
	return &Gateway{
		client:   client,
		breakers: breakers,
		logger:   logger.With(slog.String("component", "gateway")),
	}
}

// Breakers returns the registry the gateway reports to.
func (g *Gateway) Breakers() *BreakerRegistry {
	return g.breakers
}

// FetchOne issues a GET to url and decodes a single JSON object.
func FetchOne[T any](ctx context.Context, g *Gateway, target, url string) (T, error) {
	var out T
	err := g.do(ctx, target, http.MethodGet, url, nil, func(body []byte) error {
		return json.Unmarshal(body, &out)
	})
	return out, err
}

// FetchMany issues a GET to url and decodes a JSON array. An empty body or
// a JSON null yields an empty slice.
func FetchMany[T any](ctx context.Context, g *Gateway, target, url string) ([]T, error) {
	out := make([]T, 0)
	err := g.do(ctx, target, http.MethodGet, url, nil, func(body []byte) error {
		if len(bytes.TrimSpace(body)) == 0 {
			return nil
		}
		return json.Unmarshal(body, &out)
	})
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = make([]T, 0)
	}
	return out, nil
}

// Post sends payload as JSON to url and decodes the response object.
func Post[T any](ctx context.Context, g *Gateway, target, url string, payload any) (T, error) {
	var out T

	encoded, err := json.Marshal(payload)
	if err != nil {
		opErr := &OperationError{Target: target, URL: url, Cause: CauseEncode, Err: err}
		g.logFailure(ctx, opErr)
		return out, opErr
	}

	err = g.do(ctx, target, http.MethodPost, url, encoded, func(body []byte) error {
		if len(bytes.TrimSpace(body)) == 0 {
			return nil
		}
		return json.Unmarshal(body, &out)
	})
	return out, err
}

// do runs one request through target's breaker. The 2xx body is handed to
// decode inside the breaker, so an undecodable body counts as a failure.
func (g *Gateway) do(ctx context.Context, target, method, url string, payload []byte, decode func([]byte) error) error {
	cb := g.breakers.For(target)
	start := time.Now()

	body, err := cb.Execute(func() ([]byte, error) {
		body, err := g.roundTrip(ctx, target, method, url, payload)
		if err != nil {
			return nil, err
		}
		if err := decode(body); err != nil {
			return nil, &OperationError{Target: target, URL: url, Cause: CauseDecode, Err: err}
		}
		return body, nil
	})
	if err != nil {
		var opErr *OperationError
		if !errors.As(err, &opErr) {
			// gobreaker refused the call without running it: open, or
			// half-open with its trial quota used up.
			opErr = &OperationError{Target: target, URL: url, Cause: CauseBreakerOpen, Err: err}
		}
		g.logFailure(ctx, opErr)
		return opErr
	}

	logger.FromContextOrDefault(ctx, g.logger).Info("request succeeded",
		slog.String("target", target),
		slog.String("method", method),
		slog.String("url", url),
		slog.Int("bytes", len(body)),
		slog.Duration("duration", time.Since(start)))
	return nil
}

func (g *Gateway) roundTrip(ctx context.Context, target, method, url string, payload []byte) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, &OperationError{Target: target, URL: url, Cause: CauseEncode, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, &OperationError{Target: target, URL: url, Cause: transportCause(ctx, err), Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &OperationError{Target: target, URL: url, Cause: transportCause(ctx, err), Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &OperationError{
			Target:     target,
			URL:        url,
			Cause:      CauseStatus,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected status %d: %s", resp.StatusCode, snippet(body)),
		}
	}
	return body, nil
}

func (g *Gateway) logFailure(ctx context.Context, err *OperationError) {
	attrs := []any{
		slog.String("target", err.Target),
		slog.String("url", err.URL),
		slog.String("cause", string(err.Cause)),
	}
	if err.StatusCode != 0 {
		attrs = append(attrs, slog.Int("status", err.StatusCode))
	}
	if err.Err != nil {
		attrs = append(attrs, slog.String("error", err.Err.Error()))
	}
	logger.FromContextOrDefault(ctx, g.logger).Error("request failed", attrs...)
}

func transportCause(ctx context.Context, err error) Cause {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return CauseTimeout
	}
	var timeout interface{ Timeout() bool }
	if errors.As(err, &timeout) && timeout.Timeout() {
		return CauseTimeout
	}
	return CauseTransport
}

func snippet(body []byte) string {
	const limit = 200
	s := string(bytes.TrimSpace(body))
	if len(s) > limit {
		return s[:limit] + "..."
	}
	return s
}
