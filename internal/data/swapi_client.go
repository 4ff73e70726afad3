package data

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"StarPort/internal/biz"

	"github.com/go-kratos/kratos/v2/log"
	"golang.org/x/net/proxy"
)

const userAgent = "StarPort/1.0"

// upstreamResponse is a received upstream response: final status plus the
// decoded JSON body (nil when the body was not a JSON object).
type upstreamResponse struct {
	status int
	body   map[string]any
}

// resilientClient executes upstream GET requests with a per-call timeout,
// bounded retry, and circuit breaker protection. Retry absorbs transient
// glitches (connection failures and 5xx, each retried up to retryTimes);
// the breaker protects against sustained outages, which retry alone would
// amplify by multiplying load on a dead dependency.
type resilientClient struct {
	httpClient *http.Client
	baseURL    string
	retryTimes int
	retrySleep time.Duration
	breaker    *CircuitBreakerStore
	logger     *log.Helper
}

// newResilientClient builds the client. proxyURL optionally routes upstream
// traffic through a socks5:// or http:// proxy.
func newResilientClient(
	baseURL string,
	timeout time.Duration,
	retryTimes int,
	retrySleep time.Duration,
	proxyURL string,
	breaker *CircuitBreakerStore,
	logger log.Logger,
) (*resilientClient, error) {
	httpClient, err := createHTTPClient(proxyURL, timeout)
	if err != nil {
		return nil, err
	}

	return &resilientClient{
		httpClient: httpClient,
		baseURL:    baseURL,
		retryTimes: retryTimes,
		retrySleep: retrySleep,
		breaker:    breaker,
		logger:     log.NewHelper(logger),
	}, nil
}

// ExecuteGet performs one logical GET against the upstream:
//
//  1. Consult the circuit breaker; an open circuit rejects before any
//     network activity.
//  2. Run the retry loop.
//  3. Validate the final response (designated not-found status, then any
//     status >= 400).
//  4. Record the final disposition against the breaker. Only connection
//     failures, status >= 500, and malformed responses (status <= 100
//     bucket) count as circuit failures; ordinary 4xx and the designated
//     not-found status do not.
//
// notFoundStatus < 0 disables not-found detection.
func (c *resilientClient) ExecuteGet(ctx context.Context, path string, query url.Values, circuitKey string, notFoundStatus int) (*upstreamResponse, error) {
	if err := c.breaker.Check(ctx, circuitKey); err != nil {
		return nil, err
	}

	resp, err := c.requestWithRetry(ctx, c.baseURL+path, query)
	if err == nil {
		err = validateResponse(resp, notFoundStatus)
	}

	if err != nil {
		if shouldRecordFailure(err) {
			if recordErr := c.breaker.RecordFailure(ctx, circuitKey); recordErr != nil {
				c.logger.Warnw("msg", "failed to record circuit failure", "circuit", circuitKey, "error", recordErr)
			}
		}
		return nil, err
	}

	if err := c.breaker.RecordSuccess(ctx, circuitKey); err != nil {
		c.logger.Warnw("msg", "failed to record circuit success", "circuit", circuitKey, "error", err)
	}

	return resp, nil
}

// Get performs a plain GET with no retry and no circuit breaker. Used by the
// related-resource resolver, where individual failures are absorbed.
func (c *resilientClient) Get(ctx context.Context, fullURL string) (*upstreamResponse, error) {
	return c.doRequest(ctx, fullURL, nil)
}

// transportError marks a connection-level failure (DNS, refused, timeout)
// as opposed to a received response that represents an error.
type transportError struct {
	cause error
}

func (e *transportError) Error() string {
	return fmt.Sprintf("connection failed: %v", e.cause)
}

func (e *transportError) Unwrap() error {
	return e.cause
}

// requestWithRetry runs attempts 0..retryTimes. Connection failures and
// server errors (>= 500) retry while attempts remain; any other outcome
// returns immediately. Retries do not count toward the circuit on their
// own, only the final disposition does.
func (c *resilientClient) requestWithRetry(ctx context.Context, fullURL string, query url.Values) (*upstreamResponse, error) {
	var lastErr error

	for attempt := 0; attempt <= c.retryTimes; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(c.retrySleep):
			case <-ctx.Done():
				return nil, &transportError{cause: ctx.Err()}
			}
		}

		resp, err := c.doRequest(ctx, fullURL, query)
		if err != nil {
			lastErr = err
			if attempt < c.retryTimes {
				c.logger.Debugw("msg", "retrying after connection failure",
					"url", fullURL,
					"attempt", attempt+1,
					"error", err)
				continue
			}
			return nil, err
		}

		if resp.status >= http.StatusInternalServerError && attempt < c.retryTimes {
			c.logger.Debugw("msg", "retrying after server error",
				"url", fullURL,
				"attempt", attempt+1,
				"status", resp.status)
			continue
		}

		return resp, nil
	}

	return nil, lastErr
}

// doRequest performs a single attempt and decodes the JSON body. A received
// but undecodable body yields status 0, which falls in the circuit-failure
// bucket.
func (c *resilientClient) doRequest(ctx context.Context, fullURL string, query url.Values) (*upstreamResponse, error) {
	if len(query) > 0 {
		fullURL = fullURL + "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, &transportError{cause: err}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &transportError{cause: err}
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, &transportError{cause: err}
	}

	resp := &upstreamResponse{status: httpResp.StatusCode}
	if len(raw) > 0 {
		var body map[string]any
		if err := json.Unmarshal(raw, &body); err == nil {
			resp.body = body
		}
	}

	return resp, nil
}

// notFoundError marks a response with the designated not-found status. The
// gateway maps it to *biz.NotFoundError with resource context; it never
// counts as a circuit failure.
type notFoundError struct {
	status int
}

func (e *notFoundError) Error() string {
	return fmt.Sprintf("resource not found (HTTP %d)", e.status)
}

// validateResponse turns a received response into the typed error the
// caller maps to a domain error. The designated not-found status is
// distinguishable from generic failure; a successful status with an
// unparseable body counts as malformed (status 0).
func validateResponse(resp *upstreamResponse, notFoundStatus int) error {
	if notFoundStatus >= 0 && resp.status == notFoundStatus {
		return &notFoundError{status: notFoundStatus}
	}

	if resp.status >= http.StatusBadRequest {
		return &biz.RequestFailedError{Status: resp.status}
	}

	if resp.body == nil {
		return &biz.RequestFailedError{Status: 0}
	}

	return nil
}

// shouldRecordFailure decides whether a failure counts against the circuit:
// connection-level failures, server errors (>= 500), and malformed or
// invalid statuses (<= 100). Client errors, including the designated
// not-found status, do not trip the breaker.
func shouldRecordFailure(err error) bool {
	var te *transportError
	if errors.As(err, &te) {
		return true
	}

	var rf *biz.RequestFailedError
	if errors.As(err, &rf) {
		return rf.Status >= http.StatusInternalServerError || rf.Status <= 100
	}

	return false
}

// createHTTPClient builds the underlying HTTP client with optional proxy
// support (socks5 or http/https).
func createHTTPClient(proxyURL string, timeout time.Duration) (*http.Client, error) {
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	if proxyURL != "" {
		parsed, err := url.Parse(proxyURL)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy URL: %w", err)
		}

		switch parsed.Scheme {
		case "socks5", "socks5h":
			dialer, err := createSOCKS5Dialer(parsed)
			if err != nil {
				return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
			}
			transport.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
				return dialer.Dial(network, addr)
			}

		case "http", "https":
			transport.Proxy = func(req *http.Request) (*url.URL, error) {
				return parsed, nil
			}

		default:
			return nil, fmt.Errorf("unsupported proxy scheme: %s (supported: socks5, http, https)", parsed.Scheme)
		}
	}

	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}, nil
}

func createSOCKS5Dialer(parsed *url.URL) (proxy.Dialer, error) {
	var auth *proxy.Auth
	if parsed.User != nil {
		password, _ := parsed.User.Password()
		auth = &proxy.Auth{
			User:     parsed.User.Username(),
			Password: password,
		}
	}

	return proxy.SOCKS5("tcp", parsed.Host, auth, proxy.Direct)
}
