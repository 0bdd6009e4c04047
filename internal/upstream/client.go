// Package upstream implements the clients the aggregator uses to reach the
// movie-info and review services. Every call resolves to an Outcome; server
// errors and transport failures are retried according to a retry.Policy.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Clark-Hu/reactive-movies/internal/retry"
)

const maxResponseBody = 1 << 20 // 1 MiB

// Options configures an upstream client.
type Options struct {
	Timeout time.Duration
	Retry   retry.Policy
	Logger  *log.Logger
}

// Client holds the HTTP plumbing shared by the typed clients.
type Client struct {
	name    string
	baseURL *url.URL
	client  *http.Client
	stream  *http.Client
	policy  retry.Policy
	logger  *log.Logger
}

func newClient(name, baseURL string, opts Options) (*Client, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	parsed, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse %s url: %w", name, err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("%s url must be absolute, got %q", name, baseURL)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   timeout,
		ResponseHeaderTimeout: timeout,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConnsPerHost:   16,
	}

	policy := opts.Retry
	if policy.OnRetry == nil {
		maxRetries := policy.MaxRetries
		policy.OnRetry = func(n int, delay time.Duration) {
			logger.Printf("%s: retry %d/%d in %s", name, n, maxRetries, delay)
		}
	}

	return &Client{
		name:    name,
		baseURL: parsed,
		client:  &http.Client{Timeout: timeout, Transport: transport},
		// Feeds stay open indefinitely, so only the dial and header timeouts apply.
		stream: &http.Client{Transport: transport},
		policy: policy,
		logger: logger,
	}, nil
}

type decodeOptions[T any] struct {
	// onNotFound overrides the default 404 classification.
	onNotFound func() Outcome[T]
	// allowEmpty accepts an empty 2xx body as the zero value.
	allowEmpty bool
}

// fetch issues GET endpoint under the retry policy. The error is non-nil only
// when ctx ends; exhausted transport failures become a 502 ServerError.
func fetch[T any](ctx context.Context, c *Client, endpoint string, opts decodeOptions[T]) (Outcome[T], error) {
	out, err := retry.Do(ctx, c.policy, Retryable[T], func(ctx context.Context) (Outcome[T], error) {
		return attempt(ctx, c, endpoint, opts)
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Outcome[T]{}, ctxErr
		}
		c.logger.Printf("%s: giving up on %s: %v", c.name, endpoint, err)
		return ServerFailure[T](http.StatusBadGateway, fmt.Sprintf("%s service unavailable", c.name)), nil
	}
	if out.Kind != Success {
		c.logger.Printf("%s: %s %d for %s", c.name, out.Kind, out.StatusCode, endpoint)
	}
	return out, nil
}

func attempt[T any](ctx context.Context, c *Client, endpoint string, opts decodeOptions[T]) (Outcome[T], error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Outcome[T]{}, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return Outcome[T]{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return Outcome[T]{}, fmt.Errorf("read %s response: %w", c.name, err)
	}
	return classify(c.name, resp.StatusCode, body, opts), nil
}

func classify[T any](service string, status int, body []byte, opts decodeOptions[T]) Outcome[T] {
	switch {
	case status >= 200 && status < 300:
		var value T
		if len(bytes.TrimSpace(body)) == 0 {
			if opts.allowEmpty {
				return Succeeded(value)
			}
			return ServerFailure[T](http.StatusBadGateway, fmt.Sprintf("%s service returned an empty body", service))
		}
		if err := json.Unmarshal(body, &value); err != nil {
			return ServerFailure[T](http.StatusBadGateway, fmt.Sprintf("decode %s response: %v", service, err))
		}
		return Succeeded(value)
	case status == http.StatusNotFound && opts.onNotFound != nil:
		return opts.onNotFound()
	case status >= 400 && status < 500:
		return ClientFailure[T](status, string(body))
	default:
		return ServerFailure[T](status, string(body))
	}
}
