package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/smelek/gallerysync/internal/gallery"
	"github.com/smelek/gallerysync/internal/models"
	"github.com/smelek/gallerysync/internal/relay"
)

// Client is the contract for communicating with a gallery-server.
type Client interface {
	GetOrder(ctx context.Context, galleryKey string) (*models.OrderRecord, error)
	PutOrder(ctx context.Context, galleryKey string, order []string) error

	ListItems(ctx context.Context, galleryKey string) ([]models.GalleryItem, error)
	AddItem(ctx context.Context, galleryKey string, req *ItemCreateRequest) (*models.GalleryItem, error)
	RemoveItem(ctx context.Context, galleryKey, id string) error
	SetItemPhases(ctx context.Context, galleryKey, id string, isBefore, isAfter bool) error

	UploadMedia(ctx context.Context, galleryKey, filename string, r io.Reader) (*MediaUploadResponse, error)
	Redesign(ctx context.Context, req *relay.Request) (*relay.Response, error)
	Identity(ctx context.Context) (*IdentityResponse, error)
}

// HTTPClient implements Client over HTTP.
type HTTPClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewHTTPClient creates an HTTP-based gallery-server client.
func NewHTTPClient(baseURL, token string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{},
	}
}

func (c *HTTPClient) galleryURL(galleryKey, path string) string {
	return fmt.Sprintf("%s/api/v1/galleries/%s%s", c.baseURL, galleryKey, path)
}

func (c *HTTPClient) do(ctx context.Context, method, url string, body io.Reader, headers map[string]string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.token)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	return resp, nil
}

func (c *HTTPClient) doJSON(ctx context.Context, method, url string, reqBody, respBody interface{}) error {
	var body io.Reader
	headers := map[string]string{"Content-Type": "application/json"}

	if reqBody != nil {
		data, err := json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	resp, err := c.do(ctx, method, url, body, headers)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}

	if respBody != nil {
		if err := json.NewDecoder(resp.Body).Decode(respBody); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// decodeError turns an error response into an APIError.
func decodeError(resp *http.Response) error {
	var envelope struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err := json.Unmarshal(data, &envelope); err != nil {
		return &APIError{Status: resp.StatusCode, Code: "unknown", Message: strings.TrimSpace(string(data))}
	}
	return &APIError{Status: resp.StatusCode, Code: envelope.Error, Message: envelope.Message}
}

// GetOrder fetches the persisted order for a gallery key. A 404 maps to
// gallery.ErrOrderNotFound so the engine's fallback path applies.
func (c *HTTPClient) GetOrder(ctx context.Context, galleryKey string) (*models.OrderRecord, error) {
	var rec models.OrderRecord
	err := c.doJSON(ctx, "GET", c.galleryURL(galleryKey, "/order"), nil, &rec)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.NotFound() {
			return nil, gallery.ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	return &rec, nil
}

// PutOrder commits a new order with overwrite semantics.
func (c *HTTPClient) PutOrder(ctx context.Context, galleryKey string, order []string) error {
	req := &OrderUpdateRequest{Order: order}
	if err := c.doJSON(ctx, "PUT", c.galleryURL(galleryKey, "/order"), req, nil); err != nil {
		return fmt.Errorf("put order: %w", err)
	}
	return nil
}

// UpsertOrder adapts PutOrder to the engine's OrderStore contract. The
// actor and timestamp are assigned server-side and ignored here.
func (c *HTTPClient) UpsertOrder(ctx context.Context, galleryKey string, order []string, _ string, _ time.Time) error {
	return c.PutOrder(ctx, galleryKey, order)
}

// ListItems fetches a gallery's catalog items.
func (c *HTTPClient) ListItems(ctx context.Context, galleryKey string) ([]models.GalleryItem, error) {
	var resp ItemListResponse
	if err := c.doJSON(ctx, "GET", c.galleryURL(galleryKey, "/items"), nil, &resp); err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	return resp.Items, nil
}

// AddItem adds a catalog item.
func (c *HTTPClient) AddItem(ctx context.Context, galleryKey string, req *ItemCreateRequest) (*models.GalleryItem, error) {
	var item models.GalleryItem
	if err := c.doJSON(ctx, "POST", c.galleryURL(galleryKey, "/items"), req, &item); err != nil {
		return nil, fmt.Errorf("add item: %w", err)
	}
	return &item, nil
}

// RemoveItem deletes a catalog item.
func (c *HTTPClient) RemoveItem(ctx context.Context, galleryKey, id string) error {
	if err := c.doJSON(ctx, "DELETE", c.galleryURL(galleryKey, "/items/"+id), nil, nil); err != nil {
		return fmt.Errorf("remove item: %w", err)
	}
	return nil
}

// SetItemPhases updates an item's before/after flags.
func (c *HTTPClient) SetItemPhases(ctx context.Context, galleryKey, id string, isBefore, isAfter bool) error {
	req := &ItemPhaseRequest{IsBefore: isBefore, IsAfter: isAfter}
	if err := c.doJSON(ctx, "PATCH", c.galleryURL(galleryKey, "/items/"+id), req, nil); err != nil {
		return fmt.Errorf("set item phases: %w", err)
	}
	return nil
}

// UploadMedia uploads a media file and returns its public URL.
func (c *HTTPClient) UploadMedia(ctx context.Context, galleryKey, filename string, r io.Reader) (*MediaUploadResponse, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filepath.Base(filename))
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, fmt.Errorf("buffer upload: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	resp, err := c.do(ctx, "POST", c.galleryURL(galleryKey, "/media"), &buf,
		map[string]string{"Content-Type": mw.FormDataContentType()})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, decodeError(resp)
	}

	var out MediaUploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &out, nil
}

// Redesign submits a redesign request through the server relay.
func (c *HTTPClient) Redesign(ctx context.Context, req *relay.Request) (*relay.Response, error) {
	var resp relay.Response
	if err := c.doJSON(ctx, "POST", c.baseURL+"/api/v1/redesign", req, &resp); err != nil {
		return nil, fmt.Errorf("redesign: %w", err)
	}
	return &resp, nil
}

// Identity resolves the calling token's identity and admin capability.
func (c *HTTPClient) Identity(ctx context.Context) (*IdentityResponse, error) {
	var resp IdentityResponse
	if err := c.doJSON(ctx, "GET", c.baseURL+"/api/v1/me", nil, &resp); err != nil {
		return nil, fmt.Errorf("identity: %w", err)
	}
	return &resp, nil
}
