// Package gate sends batch request bodies to the Stitch import API.
package gate

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/cperrin88/gostitch/internal/logger"
	"github.com/cperrin88/gostitch/internal/version"
	"github.com/cperrin88/gostitch/pkg/errors"
)

// maxTries bounds send attempts, counting the first one.
const maxTries = 8

// Client posts batches to the gate, retrying transient failures.
type Client struct {
	client    *http.Client
	url       string
	token     string
	userAgent string

	newBackOff func() backoff.BackOff
}

// NewClient creates a gate client. When verifySSL is false the transport
// accepts any certificate; that exists for proxied test setups only.
func NewClient(gateURL, token string, timeout time.Duration, verifySSL bool) *Client {
	httpClient := &http.Client{Timeout: timeout}
	if !verifySSL {
		// clone so proxy and dialer settings of the default transport
		// survive the TLS override
		transport := http.DefaultTransport.(*http.Transport).Clone()
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec
		httpClient.Transport = transport
	}

	return &Client{
		client:     httpClient,
		url:        gateURL,
		token:      token,
		userAgent:  "gostitch/" + version.Number,
		newBackOff: defaultBackOff,
	}
}

func defaultBackOff() backoff.BackOff {
	return backoff.NewExponentialBackOff()
}

// Send posts the given body to the gate, retrying on transient errors.
// Responses with 4xx status are permanent failures and are not retried.
func (c *Client) Send(ctx context.Context, body []byte) error {
	operation := func() error {
		return c.post(ctx, body)
	}

	notify := func(err error, wait time.Duration) {
		logger.Infof("Error sending data to Stitch. Sleeping %s before trying again: %v", wait, err)
	}

	bo := backoff.WithContext(backoff.WithMaxRetries(c.newBackOff(), maxTries-1), ctx)
	return backoff.RetryNotify(operation, bo, notify)
}

// Check verifies that the gate is reachable with the configured credentials.
func (c *Client) Check(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, http.NoBody)
	if err != nil {
		return errors.Wrap(err, "failed to create request")
	}
	c.setHeaders(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return errors.Wrap(errors.ErrGateUnreachable, err.Error())
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= http.StatusInternalServerError {
		return errors.Wrapf(errors.ErrGateUnreachable, "gate returned HTTP %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return backoff.Permanent(errors.Wrap(err, "failed to create request"))
	}
	c.setHeaders(req)

	resp, err := c.client.Do(req)
	if err != nil {
		// Transport errors are usually long and gross; log the detail,
		// keep the returned error short.
		logger.Errorf("request to gate failed: %v", err)
		return errors.ErrGateUnreachable
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	rejection := errors.Wrapf(errors.ErrGateRejected, "HTTP %d: %s",
		resp.StatusCode, responseMessage(resp))
	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		return backoff.Permanent(rejection)
	}
	return rejection
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
}

// responseMessage extracts the human-oriented message from an error response.
// The gate puts it in a "message" or "error" field of a JSON body; anything
// unparseable falls back to the raw body.
func responseMessage(resp *http.Response) string {
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil || len(raw) == 0 {
		return resp.Status
	}

	var parsed map[string]interface{}
	if err := json.Unmarshal(raw, &parsed); err == nil {
		if msg, ok := parsed["message"].(string); ok {
			return msg
		}
		if msg, ok := parsed["error"].(string); ok {
			return msg
		}
	}
	return fmt.Sprintf("%s: %s", resp.Status, raw)
}
