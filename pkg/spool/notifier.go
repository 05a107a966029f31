package spool

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/cperrin88/gostitch/internal/logger"
	"github.com/cperrin88/gostitch/pkg/errors"
)

const notifyMaxTries = 8

// HTTPNotifier posts spool notifications to the pipeline.
type HTTPNotifier struct {
	client *http.Client
	url    string
	token  string

	newBackOff func() backoff.BackOff
}

// NewHTTPNotifier builds a notifier for the given spool notification URL.
func NewHTTPNotifier(url, token string, timeout time.Duration) *HTTPNotifier {
	return &HTTPNotifier{
		client:     &http.Client{Timeout: timeout},
		url:        url,
		token:      token,
		newBackOff: func() backoff.BackOff { return backoff.NewExponentialBackOff() },
	}
}

// Notify posts the notification, retrying transient failures. A 4xx answer
// is final: the notification was understood and refused.
func (n *HTTPNotifier) Notify(ctx context.Context, notification *Notification) error {
	body, err := json.Marshal(notification)
	if err != nil {
		return errors.Wrap(err, "failed to encode spool notification")
	}

	op := func() error {
		return n.post(ctx, body)
	}
	notify := func(err error, wait time.Duration) {
		logger.Warnf("Error notifying spool. Sleeping %s before trying again: %v", wait, err)
	}

	return backoff.RetryNotify(op, backoff.WithContext(backoff.WithMaxRetries(n.newBackOff(), notifyMaxTries-1), ctx), notify)
}

func (n *HTTPNotifier) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return backoff.Permanent(errors.Wrap(err, "failed to build spool notification request"))
	}
	req.Header.Set("Authorization", "Bearer "+n.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return errors.Wrapf(errors.ErrSpoolNotify, "%v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode < 300:
		return nil
	case resp.StatusCode < 500:
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
		return backoff.Permanent(errors.Wrapf(errors.ErrSpoolNotify, "spool returned %s: %s", resp.Status, raw))
	default:
		return fmt.Errorf("spool returned %s", resp.Status)
	}
}
