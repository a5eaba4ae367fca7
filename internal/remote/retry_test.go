package remote

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smelek/gallerysync/internal/models"
	"github.com/smelek/gallerysync/internal/relay"
)

// flakyClient fails a fixed number of times before succeeding.
type flakyClient struct {
	failures  int
	attempts  int
	putCalls  int
	failWith  error
	orderResp *models.OrderRecord
}

func (f *flakyClient) GetOrder(context.Context, string) (*models.OrderRecord, error) {
	f.attempts++
	if f.attempts <= f.failures {
		return nil, f.failWith
	}
	return f.orderResp, nil
}

func (f *flakyClient) PutOrder(context.Context, string, []string) error {
	f.putCalls++
	return f.failWith
}

func (f *flakyClient) ListItems(context.Context, string) ([]models.GalleryItem, error) {
	return nil, nil
}

func (f *flakyClient) AddItem(context.Context, string, *ItemCreateRequest) (*models.GalleryItem, error) {
	return nil, nil
}

func (f *flakyClient) RemoveItem(context.Context, string, string) error { return nil }

func (f *flakyClient) SetItemPhases(context.Context, string, string, bool, bool) error { return nil }

func (f *flakyClient) UploadMedia(context.Context, string, string, io.Reader) (*MediaUploadResponse, error) {
	return nil, nil
}

func (f *flakyClient) Redesign(context.Context, *relay.Request) (*relay.Response, error) {
	return nil, nil
}

func (f *flakyClient) Identity(context.Context) (*IdentityResponse, error) { return nil, nil }

func fastRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxRetries:     3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
		JitterFraction: 0,
	}
}

func TestRetry_TransientErrorRecovered(t *testing.T) {
	inner := &flakyClient{
		failures:  2,
		failWith:  &APIError{Status: 503, Code: "unavailable"},
		orderResp: &models.OrderRecord{GalleryKey: "g", Order: []string{"A"}},
	}
	rc := NewRetryClient(inner, fastRetryConfig())

	rec, err := rc.GetOrder(context.Background(), "g")
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, rec.Order)
	assert.Equal(t, 3, inner.attempts)
}

func TestRetry_NonTransientNotRetried(t *testing.T) {
	inner := &flakyClient{
		failures: 10,
		failWith: &APIError{Status: 403, Code: "forbidden"},
	}
	rc := NewRetryClient(inner, fastRetryConfig())

	_, err := rc.GetOrder(context.Background(), "g")
	require.Error(t, err)
	assert.Equal(t, 1, inner.attempts)
}

func TestRetry_GivesUpAfterMaxRetries(t *testing.T) {
	inner := &flakyClient{
		failures: 10,
		failWith: &APIError{Status: 500, Code: "internal_error"},
	}
	rc := NewRetryClient(inner, fastRetryConfig())

	_, err := rc.GetOrder(context.Background(), "g")
	require.Error(t, err)
	assert.Equal(t, 4, inner.attempts) // initial + 3 retries
}

func TestRetry_PutOrderNeverRetried(t *testing.T) {
	inner := &flakyClient{failWith: &APIError{Status: 500, Code: "internal_error"}}
	rc := NewRetryClient(inner, fastRetryConfig())

	err := rc.PutOrder(context.Background(), "g", []string{"A"})
	require.Error(t, err)
	assert.Equal(t, 1, inner.putCalls)
}
