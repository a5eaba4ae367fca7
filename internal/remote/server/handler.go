package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path"
	"regexp"
	"time"

	"github.com/smelek/gallerysync/internal/gallery"
	"github.com/smelek/gallerysync/internal/models"
	"github.com/smelek/gallerysync/internal/relay"
	"github.com/smelek/gallerysync/internal/remote"
	"github.com/smelek/gallerysync/internal/remote/mediastore"
	"github.com/smelek/gallerysync/internal/store"
)

// OrderStore persists gallery display orders. Writes are last-writer-wins.
type OrderStore interface {
	GetOrder(ctx context.Context, galleryKey string) (*models.OrderRecord, error)
	UpsertOrder(ctx context.Context, galleryKey string, order []string, actor string, at time.Time) error
}

// ItemCatalog is the gallery item membership store.
type ItemCatalog interface {
	ListItems(ctx context.Context, galleryKey string) ([]models.GalleryItem, error)
	AddItem(ctx context.Context, item *models.GalleryItem) error
	DeleteItem(ctx context.Context, galleryKey, id string) error
	SetPhases(ctx context.Context, galleryKey, id string, isBefore, isAfter bool) error
}

// TokenStore manages API tokens (admin surface plus last-used stamping).
type TokenStore interface {
	CreateToken(userID, desc string) (rawToken string, info *store.TokenInfo, err error)
	ListTokens() ([]*store.TokenInfo, error)
	DeleteToken(id string) error
	UpdateTokenLastUsed(id string) error
}

// RoleStore manages role assignments (admin surface).
type RoleStore interface {
	GrantRole(userID, role string) error
	RevokeRole(userID, role string) error
	ListRoles() ([]models.RoleAssignment, error)
}

// Redesigner forwards a validated redesign request to the AI gateway.
type Redesigner interface {
	Redesign(ctx context.Context, req relay.Request) (*relay.Response, error)
}

// Deps bundles the server's storage and upstream dependencies.
type Deps struct {
	Orders  OrderStore
	Catalog ItemCatalog
	Media   mediastore.MediaStore
	Gate    IdentityResolver
	Tokens  TokenStore
	Roles   RoleStore
	Relay   Redesigner // nil disables the redesign endpoint
}

// ServerConfig holds configurable limits for the server.
type ServerConfig struct {
	MaxRequestBody    int64  // bytes, for JSON endpoints
	MaxMediaSize      int64  // bytes, for media uploads
	RequestsPerMinute int    // per-token rate limit
	AdminToken        string // for admin endpoints
	PublicBaseURL     string // prefix for served media URLs
}

// DefaultServerConfig returns reasonable defaults. The JSON body limit must
// leave room for a data-URL image in a redesign request.
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		MaxRequestBody:    16 * 1024 * 1024, // 16MB
		MaxMediaSize:      64 * 1024 * 1024, // 64MB
		RequestsPerMinute: 300,
	}
}

// Handler creates the HTTP handler with all routes and middleware.
// The returned cleanup function stops background goroutines and should be
// called on server shutdown.
func Handler(deps *Deps, cfg *ServerConfig, logger *slog.Logger) (http.Handler, func()) {
	if cfg == nil {
		cfg = DefaultServerConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}

	rl := newRateLimiter(cfg.RequestsPerMinute)
	auth := authMiddleware(deps.Gate, deps.Tokens, logger)

	// Wrap a handler with auth + rate limit. Reads stay public; the resolved
	// identity still rides the context for rate-limit keying.
	// applyMiddleware reverses the list, so the first item runs outermost.
	// Execution order: auth -> rl -> handler
	withAuth := func(h http.HandlerFunc) http.Handler {
		return applyMiddleware(h, auth, rl.middleware)
	}
	// Execution order: auth -> requireUser -> rl -> handler
	withUser := func(h http.HandlerFunc) http.Handler {
		return applyMiddleware(h, auth, requireUser, rl.middleware)
	}
	// Execution order: auth -> requireAdmin -> rl -> handler
	withAdmin := func(h http.HandlerFunc) http.Handler {
		return applyMiddleware(h, auth, requireAdmin, rl.middleware)
	}

	mux := http.NewServeMux()

	// Health endpoints (no auth)
	mux.HandleFunc("GET /healthz", handleHealthz)
	mux.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		if _, err := deps.Tokens.ListTokens(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("not ready: token store unavailable"))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// Admin endpoints
	if cfg.AdminToken != "" {
		adminMux := http.NewServeMux()
		adminMux.HandleFunc("POST /admin/tokens", makeAdminCreateTokenHandler(deps.Tokens, logger))
		adminMux.HandleFunc("GET /admin/tokens", makeAdminListTokensHandler(deps.Tokens, logger))
		adminMux.HandleFunc("DELETE /admin/tokens/{id}", makeAdminDeleteTokenHandler(deps.Tokens, logger))
		adminMux.HandleFunc("POST /admin/roles", makeAdminGrantRoleHandler(deps.Roles, logger))
		adminMux.HandleFunc("GET /admin/roles", makeAdminListRolesHandler(deps.Roles, logger))
		adminMux.HandleFunc("DELETE /admin/roles/{user}/{role}", makeAdminRevokeRoleHandler(deps.Roles, logger))
		mux.Handle("/admin/", adminAuth(cfg.AdminToken, adminMux))
	}

	// Orders
	mux.Handle("GET /api/v1/galleries/{key}/order", withAuth(makeGalleryHandler(handleGetOrder(deps))))
	mux.Handle("PUT /api/v1/galleries/{key}/order", withAdmin(makeGalleryHandler(handlePutOrder(deps, cfg))))

	// Items
	mux.Handle("GET /api/v1/galleries/{key}/items", withAuth(makeGalleryHandler(handleListItems(deps))))
	mux.Handle("POST /api/v1/galleries/{key}/items", withAdmin(makeGalleryHandler(handleAddItem(deps, cfg))))
	mux.Handle("DELETE /api/v1/galleries/{key}/items/{id}", withAdmin(makeGalleryHandler(handleDeleteItem(deps, logger))))
	mux.Handle("PATCH /api/v1/galleries/{key}/items/{id}", withAdmin(makeGalleryHandler(handleSetItemPhases(deps, cfg))))

	// Media
	mux.Handle("POST /api/v1/galleries/{key}/media", withAdmin(makeGalleryHandler(handleUploadMedia(deps, cfg))))
	mux.HandleFunc("GET /media/{key}/{name}", handleServeMedia(deps))

	// Redesign relay
	if deps.Relay != nil {
		mux.Handle("POST /api/v1/redesign", withUser(handleRedesign(deps, cfg, logger)))
	}

	// Identity
	mux.Handle("GET /api/v1/me", withAuth(handleIdentity))

	// Apply global middleware
	handler := applyMiddleware(mux,
		recoveryMiddleware(logger),
		loggingMiddleware(logger),
		requestIDMiddleware,
	)

	cleanup := func() {
		rl.Stop()
	}

	return handler, cleanup
}

// applyMiddleware applies middleware in reverse order so the first in the list runs first.
func applyMiddleware(h http.Handler, mws ...func(http.Handler) http.Handler) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

var validGalleryKey = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]*$`)

// makeGalleryHandler validates the gallery key before calling the handler.
func makeGalleryHandler(fn http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := r.PathValue("key")
		if !validGalleryKey.MatchString(key) {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error":   "bad_request",
				"message": fmt.Sprintf("invalid gallery key '%s'", key),
			})
			return
		}
		fn(w, r)
	}
}

// --- Order Handlers ---

func handleGetOrder(deps *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := r.PathValue("key")

		rec, err := deps.Orders.GetOrder(r.Context(), key)
		if err != nil {
			if errors.Is(err, gallery.ErrOrderNotFound) {
				writeJSON(w, http.StatusNotFound, map[string]string{
					"error":   "not_found",
					"message": fmt.Sprintf("no saved order for gallery '%s'", key),
				})
				return
			}
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal_error", "message": err.Error()})
			return
		}

		writeJSON(w, http.StatusOK, rec)
	}
}

func handlePutOrder(deps *Deps, cfg *ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := r.PathValue("key")

		var req remote.OrderUpdateRequest
		if err := readJSON(r, cfg.MaxRequestBody, &req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad_request", "message": err.Error()})
			return
		}
		if req.Order == nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad_request", "message": "order is required"})
			return
		}

		rec := models.OrderRecord{
			GalleryKey: key,
			Order:      req.Order,
			UpdatedAt:  time.Now().UTC(),
			UpdatedBy:  identityFrom(r).UserID,
		}
		if err := deps.Orders.UpsertOrder(r.Context(), key, rec.Order, rec.UpdatedBy, rec.UpdatedAt); err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal_error", "message": err.Error()})
			return
		}

		writeJSON(w, http.StatusOK, &rec)
	}
}

// --- Item Handlers ---

func handleListItems(deps *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := deps.Catalog.ListItems(r.Context(), r.PathValue("key"))
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal_error", "message": err.Error()})
			return
		}
		if items == nil {
			items = []models.GalleryItem{}
		}

		writeJSON(w, http.StatusOK, &remote.ItemListResponse{Items: items})
	}
}

func handleAddItem(deps *Deps, cfg *ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := r.PathValue("key")

		var req remote.ItemCreateRequest
		if err := readJSON(r, cfg.MaxRequestBody, &req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad_request", "message": err.Error()})
			return
		}
		if req.URL == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad_request", "message": "url is required"})
			return
		}

		item := models.GalleryItem{
			ID:         req.ID,
			GalleryKey: key,
			URL:        req.URL,
			IsBefore:   req.IsBefore,
			IsAfter:    req.IsAfter,
		}
		if err := deps.Catalog.AddItem(r.Context(), &item); err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal_error", "message": err.Error()})
			return
		}

		writeJSON(w, http.StatusCreated, &item)
	}
}

func handleDeleteItem(deps *Deps, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := r.PathValue("key")
		id := r.PathValue("id")

		if err := deps.Catalog.DeleteItem(r.Context(), key, id); err != nil {
			if errors.Is(err, store.ErrItemNotFound) {
				writeJSON(w, http.StatusNotFound, map[string]string{"error": "not_found", "message": "item not found"})
				return
			}
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal_error", "message": err.Error()})
			return
		}

		// Drop the item from any persisted order so stale identifiers do not
		// accumulate. Best effort: the item itself is already gone.
		if err := removeFromOrder(r.Context(), deps.Orders, key, id, identityFrom(r).UserID); err != nil {
			logger.Warn("failed to remove deleted item from order", "error", err, "gallery", key, "item", id)
		}

		w.WriteHeader(http.StatusOK)
	}
}

func removeFromOrder(ctx context.Context, orders OrderStore, galleryKey, id, actor string) error {
	rec, err := orders.GetOrder(ctx, galleryKey)
	if errors.Is(err, gallery.ErrOrderNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	trimmed := make([]string, 0, len(rec.Order))
	for _, existing := range rec.Order {
		if existing != id {
			trimmed = append(trimmed, existing)
		}
	}
	if len(trimmed) == len(rec.Order) {
		return nil
	}
	return orders.UpsertOrder(ctx, galleryKey, trimmed, actor, time.Now().UTC())
}

func handleSetItemPhases(deps *Deps, cfg *ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := r.PathValue("key")
		id := r.PathValue("id")

		var req remote.ItemPhaseRequest
		if err := readJSON(r, cfg.MaxRequestBody, &req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad_request", "message": err.Error()})
			return
		}

		if err := deps.Catalog.SetPhases(r.Context(), key, id, req.IsBefore, req.IsAfter); err != nil {
			if errors.Is(err, store.ErrItemNotFound) {
				writeJSON(w, http.StatusNotFound, map[string]string{"error": "not_found", "message": "item not found"})
				return
			}
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal_error", "message": err.Error()})
			return
		}

		w.WriteHeader(http.StatusOK)
	}
}

// --- Media Handlers ---

func handleUploadMedia(deps *Deps, cfg *ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := r.PathValue("key")

		r.Body = http.MaxBytesReader(w, r.Body, cfg.MaxMediaSize)
		file, header, err := r.FormFile("file")
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad_request", "message": "multipart 'file' field required"})
			return
		}
		defer file.Close()

		storedPath, err := deps.Media.Put(r.Context(), key, header.Filename, file)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad_request", "message": err.Error()})
			return
		}

		writeJSON(w, http.StatusCreated, &remote.MediaUploadResponse{
			Path: storedPath,
			URL:  cfg.PublicBaseURL + "/media/" + storedPath,
		})
	}
}

func handleServeMedia(deps *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := r.PathValue("name")
		storedPath := path.Join(r.PathValue("key"), name)

		rc, err := deps.Media.Open(r.Context(), storedPath)
		if err != nil {
			if errors.Is(err, mediastore.ErrMediaNotFound) {
				writeJSON(w, http.StatusNotFound, map[string]string{"error": "not_found", "message": "media not found"})
				return
			}
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal_error", "message": err.Error()})
			return
		}
		defer rc.Close()

		w.Header().Set("Content-Type", mediastore.ContentType(name))
		w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
		w.WriteHeader(http.StatusOK)
		io.Copy(w, rc)
	}
}

// --- Redesign Handler ---

func handleRedesign(deps *Deps, cfg *ServerConfig, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req relay.Request
		if err := readJSON(r, cfg.MaxRequestBody, &req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad_request", "message": err.Error()})
			return
		}

		resp, err := deps.Relay.Redesign(r.Context(), req)
		if err != nil {
			var vErr *relay.ValidationError
			if errors.As(err, &vErr) {
				writeJSON(w, http.StatusBadRequest, map[string]string{
					"error":   "validation_failed",
					"message": vErr.Error(),
				})
				return
			}

			var uErr *relay.UpstreamError
			if errors.As(err, &uErr) {
				switch {
				case uErr.RateLimited():
					writeJSON(w, http.StatusTooManyRequests, map[string]string{
						"error":   "rate_limited",
						"message": "AI gateway rate limit exceeded, try again later",
					})
					return
				case uErr.QuotaExhausted():
					writeJSON(w, http.StatusPaymentRequired, map[string]string{
						"error":   "quota_exhausted",
						"message": "AI gateway quota exhausted",
					})
					return
				}
			}

			reqID, _ := r.Context().Value(contextKeyRequestID).(string)
			logger.Error("redesign failed", "error", err, "request_id", reqID)
			writeJSON(w, http.StatusInternalServerError, map[string]string{
				"error":   "internal_error",
				"message": "redesign failed",
			})
			return
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

// --- Identity Handler ---

func handleIdentity(w http.ResponseWriter, r *http.Request) {
	ident := identityFrom(r)
	writeJSON(w, http.StatusOK, &remote.IdentityResponse{
		UserID:  ident.UserID,
		IsAdmin: ident.IsAdmin,
	})
}

// --- Health Handlers ---

func handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// --- Helpers ---

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func readJSON(r *http.Request, maxSize int64, v interface{}) error {
	limited := io.LimitReader(r.Body, maxSize)
	if err := json.NewDecoder(limited).Decode(v); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return nil
}
