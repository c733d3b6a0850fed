package telegram

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"path"
	"syscall"
	"time"
)

const (
	defaultClientTimeout = 30 * time.Second
	defaultDialTimeout   = 5 * time.Second
	defaultRetryAttempts = 3
	defaultRetryBackoff  = 2 * time.Second
)

// BuildHTTPClient returns the Bot API client. timeout bounds a whole request,
// long-poll waits included; <= 0 -> 30s. Connection level failures of
// read-only calls are retried before telebot sees them.
func BuildHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = defaultClientTimeout
	}
	base := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: defaultDialTimeout, KeepAlive: 30 * time.Second}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          32,
		MaxIdleConnsPerHost:   8,
		IdleConnTimeout:       30 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: time.Second,
	}
	return &http.Client{
		Timeout: timeout,
		Transport: &retryTransport{
			base:     base,
			attempts: defaultRetryAttempts,
			backoff:  defaultRetryBackoff,
		},
	}
}

// readOnlyMethods are the Bot API calls that change nothing on Telegram's
// side. Every other call is sent once.
var readOnlyMethods = map[string]bool{
	"getUpdates":     true,
	"getMe":          true,
	"getWebhookInfo": true,
}

// retryTransport repeats a read-only request whose connection failed before
// a response arrived.
type retryTransport struct {
	base     http.RoundTripper
	attempts int
	backoff  time.Duration
}

func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.base.RoundTrip(req)
	if !retryable(req) {
		return resp, err
	}
	for attempt := 1; err != nil && attempt < t.attempts && connectionFailure(err); attempt++ {
		if werr := wait(req, t.backoff*time.Duration(attempt)); werr != nil {
			return nil, werr
		}
		retry := req.Clone(req.Context())
		if req.GetBody != nil {
			if retry.Body, err = req.GetBody(); err != nil {
				return nil, err
			}
		}
		resp, err = t.base.RoundTrip(retry)
	}
	return resp, err
}

func retryable(req *http.Request) bool {
	if !readOnlyMethods[path.Base(req.URL.Path)] {
		return false
	}
	return req.Body == nil || req.Body == http.NoBody || req.GetBody != nil
}

func wait(req *http.Request, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-req.Context().Done():
		return req.Context().Err()
	case <-timer.C:
		return nil
	}
}

// connectionFailure reports dial errors, resets and timeouts. Errors of the
// request's own context are final.
func connectionFailure(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
