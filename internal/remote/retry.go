package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"time"

	"github.com/smelek/gallerysync/internal/models"
	"github.com/smelek/gallerysync/internal/relay"
)

// RetryConfig configures retry behavior for transient errors.
type RetryConfig struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	JitterFraction float64 // 0.0 to 1.0
}

// DefaultRetryConfig returns sensible retry defaults.
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxRetries:     3,
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     30 * time.Second,
		JitterFraction: 0.25,
	}
}

// RetryClient wraps a Client with automatic retry on transient errors.
// Reads and idempotent deletes retry; order commits, item creates, uploads,
// and redesigns do NOT — a failed commit surfaces a notice and the user
// re-issues the action.
type RetryClient struct {
	inner  Client
	config *RetryConfig
}

// NewRetryClient creates a RetryClient that wraps the given Client.
func NewRetryClient(inner Client, cfg *RetryConfig) *RetryClient {
	if cfg == nil {
		cfg = DefaultRetryConfig()
	}
	return &RetryClient{inner: inner, config: cfg}
}

// isTransient returns true for errors that are worth retrying.
func isTransient(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status >= 500 || apiErr.Status == http.StatusTooManyRequests
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return true // network errors are transient
}

// backoff computes the delay for the given attempt with jitter.
func (rc *RetryClient) backoff(attempt int) time.Duration {
	base := float64(rc.config.InitialBackoff) * math.Pow(2, float64(attempt))
	if base > float64(rc.config.MaxBackoff) {
		base = float64(rc.config.MaxBackoff)
	}
	jitter := base * rc.config.JitterFraction * (rand.Float64()*2 - 1)
	d := time.Duration(base + jitter)
	if d < 0 {
		d = 0
	}
	return d
}

// sleep waits for the given duration or until the context is cancelled.
func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// retry executes fn with retry logic. Only retries transient errors.
func (rc *RetryClient) retry(ctx context.Context, operation string, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt <= rc.config.MaxRetries; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !isTransient(lastErr) {
			return lastErr
		}
		if attempt < rc.config.MaxRetries {
			d := rc.backoff(attempt)
			if err := sleep(ctx, d); err != nil {
				return fmt.Errorf("%s: %w (retry cancelled)", operation, lastErr)
			}
		}
	}
	return fmt.Errorf("%s: %w (after %d retries)", operation, lastErr, rc.config.MaxRetries)
}

func (rc *RetryClient) GetOrder(ctx context.Context, galleryKey string) (rec *models.OrderRecord, err error) {
	err = rc.retry(ctx, "get order", func() error {
		rec, err = rc.inner.GetOrder(ctx, galleryKey)
		return err
	})
	return
}

// PutOrder is not retried: the commit is last-writer-wins, and a stale
// retried write could overwrite a newer order.
func (rc *RetryClient) PutOrder(ctx context.Context, galleryKey string, order []string) error {
	return rc.inner.PutOrder(ctx, galleryKey, order)
}

func (rc *RetryClient) ListItems(ctx context.Context, galleryKey string) (items []models.GalleryItem, err error) {
	err = rc.retry(ctx, "list items", func() error {
		items, err = rc.inner.ListItems(ctx, galleryKey)
		return err
	})
	return
}

// AddItem is not retried: a retried create could duplicate the item.
func (rc *RetryClient) AddItem(ctx context.Context, galleryKey string, req *ItemCreateRequest) (*models.GalleryItem, error) {
	return rc.inner.AddItem(ctx, galleryKey, req)
}

func (rc *RetryClient) RemoveItem(ctx context.Context, galleryKey, id string) error {
	return rc.retry(ctx, "remove item", func() error {
		return rc.inner.RemoveItem(ctx, galleryKey, id)
	})
}

func (rc *RetryClient) SetItemPhases(ctx context.Context, galleryKey, id string, isBefore, isAfter bool) error {
	return rc.retry(ctx, "set item phases", func() error {
		return rc.inner.SetItemPhases(ctx, galleryKey, id, isBefore, isAfter)
	})
}

// UploadMedia is not retried with a raw reader (consumed on first attempt).
// Callers should buffer if they need retry.
func (rc *RetryClient) UploadMedia(ctx context.Context, galleryKey, filename string, r io.Reader) (*MediaUploadResponse, error) {
	return rc.inner.UploadMedia(ctx, galleryKey, filename, r)
}

// Redesign is not retried: the upstream call is expensive and rate-limited.
func (rc *RetryClient) Redesign(ctx context.Context, req *relay.Request) (*relay.Response, error) {
	return rc.inner.Redesign(ctx, req)
}

func (rc *RetryClient) Identity(ctx context.Context) (resp *IdentityResponse, err error) {
	err = rc.retry(ctx, "identity", func() error {
		resp, err = rc.inner.Identity(ctx)
		return err
	})
	return
}
