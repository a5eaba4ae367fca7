// Package remote defines the API types and HTTP client for talking to a
// gallery-server.
package remote

import (
	"fmt"
	"net/http"

	"github.com/smelek/gallerysync/internal/models"
)

// OrderUpdateRequest commits a new gallery order. The server assigns the
// actor and timestamp; the write overwrites any previous order.
type OrderUpdateRequest struct {
	Order []string `json:"order"`
}

// ItemCreateRequest adds an item to a gallery's catalog.
type ItemCreateRequest struct {
	ID       string `json:"id,omitempty"`
	URL      string `json:"url"`
	IsBefore bool   `json:"is_before,omitempty"`
	IsAfter  bool   `json:"is_after,omitempty"`
}

// ItemPhaseRequest updates an item's before/after flags.
type ItemPhaseRequest struct {
	IsBefore bool `json:"is_before"`
	IsAfter  bool `json:"is_after"`
}

// ItemListResponse is a gallery's catalog.
type ItemListResponse struct {
	Items []models.GalleryItem `json:"items"`
}

// MediaUploadResponse describes a stored media file.
type MediaUploadResponse struct {
	Path string `json:"path"`
	URL  string `json:"url"`
}

// IdentityResponse is the resolved identity of the calling token.
type IdentityResponse struct {
	UserID  string `json:"user_id"`
	IsAdmin bool   `json:"is_admin"`
}

// TokenCreateRequest mints an API token for a user (admin API).
type TokenCreateRequest struct {
	UserID string `json:"user_id"`
	Desc   string `json:"description,omitempty"`
}

// TokenCreateResponse returns the raw token exactly once.
type TokenCreateResponse struct {
	Token  string `json:"token"`
	ID     string `json:"id"`
	UserID string `json:"user_id"`
}

// RoleRequest grants or revokes a role (admin API).
type RoleRequest struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

// APIError is a non-2xx response from the gallery server.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("server returned %d (%s): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("server returned %d (%s)", e.Status, e.Code)
}

// NotFound reports whether the server answered 404.
func (e *APIError) NotFound() bool { return e.Status == http.StatusNotFound }
