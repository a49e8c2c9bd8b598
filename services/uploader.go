package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	// transferAttempts bounds the retry loop for one object transfer
	transferAttempts = 3
	// transferBackoff is the initial delay before the first retry
	transferBackoff = time.Second
	// transferTimeout bounds one transfer attempt
	transferTimeout = 60 * time.Second
	// immutableCacheControl marks uploaded objects as never changing
	immutableCacheControl = "public, max-age=31536000, immutable"
)

// Uploader performs the direct binary transfer to a presigned object-store
// URL with bounded retry
type Uploader struct {
	client         *http.Client
	maxAttempts    uint64
	initialBackoff time.Duration
	attemptTimeout time.Duration
}

// NewUploader creates an uploader with the standard retry policy:
// up to 3 attempts, exponential backoff starting at 1s, 60s per attempt
func NewUploader() *Uploader {
	return &Uploader{
		client:         &http.Client{},
		maxAttempts:    transferAttempts,
		initialBackoff: transferBackoff,
		attemptTimeout: transferTimeout,
	}
}

// NewUploaderWithPolicy creates an uploader with a custom retry policy
// (primarily for testing)
func NewUploaderWithPolicy(client *http.Client, maxAttempts uint64, initialBackoff, attemptTimeout time.Duration) *Uploader {
	if client == nil {
		client = &http.Client{}
	}
	return &Uploader{
		client:         client,
		maxAttempts:    maxAttempts,
		initialBackoff: initialBackoff,
		attemptTimeout: attemptTimeout,
	}
}

// Transfer PUTs the given bytes to a presigned upload URL. A timed-out
// attempt surfaces as a TimeoutError, any other failure as a
// TransportError; both are retried until the attempt budget is exhausted.
func (u *Uploader) Transfer(ctx context.Context, uploadURL, contentType string, data []byte) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = u.initialBackoff

	operation := func() error {
		return u.attempt(ctx, uploadURL, contentType, data)
	}

	return backoff.Retry(operation,
		backoff.WithContext(backoff.WithMaxRetries(policy, u.maxAttempts-1), ctx))
}

func (u *Uploader) attempt(ctx context.Context, uploadURL, contentType string, data []byte) error {
	attemptCtx, cancel := context.WithTimeout(ctx, u.attemptTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodPut, uploadURL, bytes.NewReader(data))
	if err != nil {
		return backoff.Permanent(&TransportError{Message: "failed to build upload request", Err: err})
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Cache-Control", immutableCacheControl)
	req.ContentLength = int64(len(data))

	resp, err := u.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || attemptCtx.Err() == context.DeadlineExceeded {
			return &TimeoutError{Message: "upload attempt timed out", Err: err}
		}
		return &TransportError{Message: "upload request failed", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &TransportError{Message: fmt.Sprintf("upload rejected with status %d", resp.StatusCode)}
	}
	return nil
}
