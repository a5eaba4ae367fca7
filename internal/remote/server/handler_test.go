package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smelek/gallerysync/internal/auth"
	"github.com/smelek/gallerysync/internal/models"
	"github.com/smelek/gallerysync/internal/relay"
	"github.com/smelek/gallerysync/internal/remote"
	"github.com/smelek/gallerysync/internal/remote/mediastore"
	"github.com/smelek/gallerysync/internal/store"
)

// stubRelay implements Redesigner with a canned outcome. Validation still
// runs so the 400 mapping can be exercised.
type stubRelay struct {
	resp *relay.Response
	err  error
}

func (s *stubRelay) Redesign(_ context.Context, req relay.Request) (*relay.Response, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if s.err != nil {
		return nil, s.err
	}
	return s.resp, nil
}

type testEnv struct {
	server *httptest.Server
	store  *store.Store
	relay  *stubRelay

	adminToken  string // bearer token with the admin role
	viewerToken string // bearer token without roles
}

func newTestServer(t *testing.T) *testEnv {
	t.Helper()

	tmpDir := t.TempDir()

	st, err := store.New(filepath.Join(tmpDir, "gallery.db"))
	require.NoError(t, err)
	require.NoError(t, st.Initialize())
	t.Cleanup(func() { st.Close() })

	catalog, err := store.NewCatalog(filepath.Join(tmpDir, "catalog.db"))
	require.NoError(t, err)
	require.NoError(t, catalog.Initialize())
	t.Cleanup(func() { catalog.Close() })

	media, err := mediastore.NewFSStore(filepath.Join(tmpDir, "media"))
	require.NoError(t, err)

	adminToken, _, err := st.CreateToken("alice", "test admin")
	require.NoError(t, err)
	require.NoError(t, st.GrantRole("alice", store.AdminRole))

	viewerToken, _, err := st.CreateToken("bob", "test viewer")
	require.NoError(t, err)

	rel := &stubRelay{resp: &relay.Response{ImageURL: "data:image/png;base64,xyz", Description: "A room"}}

	deps := &Deps{
		Orders:  st,
		Catalog: catalog,
		Media:   media,
		Gate:    auth.NewGate(st, st),
		Tokens:  st,
		Roles:   st,
		Relay:   rel,
	}
	cfg := DefaultServerConfig()
	cfg.AdminToken = "super-secret-admin"
	cfg.PublicBaseURL = "http://gallery.test"

	handler, cleanup := Handler(deps, cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	t.Cleanup(cleanup)

	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	return &testEnv{
		server:      ts,
		store:       st,
		relay:       rel,
		adminToken:  adminToken,
		viewerToken: viewerToken,
	}
}

func doJSON(t *testing.T, method, url, token string, body interface{}) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func TestPutOrder_RequiresAuth(t *testing.T) {
	env := newTestServer(t)

	resp := doJSON(t, "PUT", env.server.URL+"/api/v1/galleries/portfolio-main/order", "",
		&remote.OrderUpdateRequest{Order: []string{"A"}})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestPutOrder_RequiresAdminRole(t *testing.T) {
	env := newTestServer(t)

	resp := doJSON(t, "PUT", env.server.URL+"/api/v1/galleries/portfolio-main/order", env.viewerToken,
		&remote.OrderUpdateRequest{Order: []string{"A"}})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestOrderRoundTrip(t *testing.T) {
	env := newTestServer(t)
	url := env.server.URL + "/api/v1/galleries/portfolio-main/order"

	// No order saved yet
	resp := doJSON(t, "GET", url, "", nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// Admin commits an order
	resp = doJSON(t, "PUT", url, env.adminToken, &remote.OrderUpdateRequest{Order: []string{"B", "A", "C"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var committed models.OrderRecord
	decodeBody(t, resp, &committed)
	assert.Equal(t, "alice", committed.UpdatedBy)

	// Anyone can read it back
	resp = doJSON(t, "GET", url, "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var rec models.OrderRecord
	decodeBody(t, resp, &rec)
	assert.Equal(t, []string{"B", "A", "C"}, rec.Order)
	assert.Equal(t, "portfolio-main", rec.GalleryKey)
}

func TestPutOrder_Overwrites(t *testing.T) {
	env := newTestServer(t)
	url := env.server.URL + "/api/v1/galleries/portfolio-main/order"

	resp := doJSON(t, "PUT", url, env.adminToken, &remote.OrderUpdateRequest{Order: []string{"A", "B"}})
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, "PUT", url, env.adminToken, &remote.OrderUpdateRequest{Order: []string{"B", "A"}})
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, "GET", url, "", nil)
	var rec models.OrderRecord
	decodeBody(t, resp, &rec)
	assert.Equal(t, []string{"B", "A"}, rec.Order)
}

func TestItemLifecycle(t *testing.T) {
	env := newTestServer(t)
	base := env.server.URL + "/api/v1/galleries/portfolio-main"

	// Add
	resp := doJSON(t, "POST", base+"/items", env.adminToken,
		&remote.ItemCreateRequest{URL: "/media/portfolio-main/1-aaaa.jpg", IsBefore: true})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var item models.GalleryItem
	decodeBody(t, resp, &item)
	require.NotEmpty(t, item.ID)
	assert.True(t, item.IsBefore)

	// List (public)
	resp = doJSON(t, "GET", base+"/items", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list remote.ItemListResponse
	decodeBody(t, resp, &list)
	require.Len(t, list.Items, 1)
	assert.Equal(t, item.ID, list.Items[0].ID)

	// Patch phases
	resp = doJSON(t, "PATCH", base+"/items/"+item.ID, env.adminToken,
		&remote.ItemPhaseRequest{IsBefore: false, IsAfter: true})
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var patched remote.ItemListResponse
	resp = doJSON(t, "GET", base+"/items", "", nil)
	decodeBody(t, resp, &patched)
	require.Len(t, patched.Items, 1)
	assert.False(t, patched.Items[0].IsBefore)
	assert.True(t, patched.Items[0].IsAfter)

	// Delete
	resp = doJSON(t, "DELETE", base+"/items/"+item.ID, env.adminToken, nil)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, "DELETE", base+"/items/"+item.ID, env.adminToken, nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDeleteItem_RemovedFromOrder(t *testing.T) {
	env := newTestServer(t)
	base := env.server.URL + "/api/v1/galleries/portfolio-main"

	resp := doJSON(t, "POST", base+"/items", env.adminToken, &remote.ItemCreateRequest{ID: "B", URL: "/b.jpg"})
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = doJSON(t, "PUT", base+"/order", env.adminToken, &remote.OrderUpdateRequest{Order: []string{"A", "B", "C"}})
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, "DELETE", base+"/items/B", env.adminToken, nil)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, "GET", base+"/order", "", nil)
	var rec models.OrderRecord
	decodeBody(t, resp, &rec)
	assert.Equal(t, []string{"A", "C"}, rec.Order)
}

func TestMediaUploadAndServe(t *testing.T) {
	env := newTestServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "kitchen.jpg")
	require.NoError(t, err)
	_, err = part.Write([]byte("jpeg-bytes"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req, err := http.NewRequest("POST", env.server.URL+"/api/v1/galleries/portfolio-main/media", &buf)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+env.adminToken)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var uploaded remote.MediaUploadResponse
	decodeBody(t, resp, &uploaded)
	assert.True(t, strings.HasPrefix(uploaded.Path, "portfolio-main/"))
	assert.Equal(t, "http://gallery.test/media/"+uploaded.Path, uploaded.URL)

	// Serve it back without auth
	resp, err = http.Get(env.server.URL + "/media/" + uploaded.Path)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/jpeg", resp.Header.Get("Content-Type"))
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "jpeg-bytes", string(data))
}

func TestRedesign_ValidationRejected(t *testing.T) {
	env := newTestServer(t)

	resp := doJSON(t, "POST", env.server.URL+"/api/v1/redesign", env.viewerToken,
		&relay.Request{ImageBase64: "data:image/jpeg;base64,abc", Style: "Cyberpunk"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var envl map[string]string
	decodeBody(t, resp, &envl)
	assert.Equal(t, "validation_failed", envl["error"])
}

func TestRedesign_RequiresAuth(t *testing.T) {
	env := newTestServer(t)

	resp := doJSON(t, "POST", env.server.URL+"/api/v1/redesign", "",
		&relay.Request{ImageBase64: "data:image/jpeg;base64,abc", Style: "Art Deco"})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRedesign_UpstreamErrorsMapped(t *testing.T) {
	env := newTestServer(t)
	validReq := &relay.Request{ImageBase64: "data:image/jpeg;base64,abc", Style: "Art Deco"}

	env.relay.err = &relay.UpstreamError{Status: http.StatusTooManyRequests}
	resp := doJSON(t, "POST", env.server.URL+"/api/v1/redesign", env.viewerToken, validReq)
	resp.Body.Close()
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)

	env.relay.err = &relay.UpstreamError{Status: http.StatusPaymentRequired}
	resp = doJSON(t, "POST", env.server.URL+"/api/v1/redesign", env.viewerToken, validReq)
	resp.Body.Close()
	assert.Equal(t, http.StatusPaymentRequired, resp.StatusCode)

	env.relay.err = fmt.Errorf("gateway exploded")
	resp = doJSON(t, "POST", env.server.URL+"/api/v1/redesign", env.viewerToken, validReq)
	resp.Body.Close()
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestRedesign_Success(t *testing.T) {
	env := newTestServer(t)

	resp := doJSON(t, "POST", env.server.URL+"/api/v1/redesign", env.viewerToken,
		&relay.Request{ImageBase64: "data:image/jpeg;base64,abc", Style: "Art Deco"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out relay.Response
	decodeBody(t, resp, &out)
	assert.Equal(t, "data:image/png;base64,xyz", out.ImageURL)
	assert.Equal(t, "A room", out.Description)
}

func TestIdentity(t *testing.T) {
	env := newTestServer(t)
	url := env.server.URL + "/api/v1/me"

	resp := doJSON(t, "GET", url, "", nil)
	var ident remote.IdentityResponse
	decodeBody(t, resp, &ident)
	assert.Empty(t, ident.UserID)
	assert.False(t, ident.IsAdmin)

	resp = doJSON(t, "GET", url, env.adminToken, nil)
	decodeBody(t, resp, &ident)
	assert.Equal(t, "alice", ident.UserID)
	assert.True(t, ident.IsAdmin)

	resp = doJSON(t, "GET", url, env.viewerToken, nil)
	decodeBody(t, resp, &ident)
	assert.Equal(t, "bob", ident.UserID)
	assert.False(t, ident.IsAdmin)
}

func TestAdminEndpoints(t *testing.T) {
	env := newTestServer(t)

	// Wrong admin token
	resp := doJSON(t, "GET", env.server.URL+"/admin/tokens", "wrong", nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// Mint a token for a new user and grant the admin role
	resp = doJSON(t, "POST", env.server.URL+"/admin/tokens", "super-secret-admin",
		&remote.TokenCreateRequest{UserID: "carol", Desc: "via admin api"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created remote.TokenCreateResponse
	decodeBody(t, resp, &created)
	require.NotEmpty(t, created.Token)
	assert.Equal(t, "carol", created.UserID)

	resp = doJSON(t, "POST", env.server.URL+"/admin/roles", "super-secret-admin",
		&remote.RoleRequest{UserID: "carol", Role: store.AdminRole})
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	// The minted token now carries admin capability
	resp = doJSON(t, "GET", env.server.URL+"/api/v1/me", created.Token, nil)
	var ident remote.IdentityResponse
	decodeBody(t, resp, &ident)
	assert.True(t, ident.IsAdmin)

	// Revoking the role drops the capability
	resp = doJSON(t, "DELETE", env.server.URL+"/admin/roles/carol/"+store.AdminRole, "super-secret-admin", nil)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, "GET", env.server.URL+"/api/v1/me", created.Token, nil)
	decodeBody(t, resp, &ident)
	assert.False(t, ident.IsAdmin)

	// Delete the token entirely
	resp = doJSON(t, "DELETE", env.server.URL+"/admin/tokens/"+created.ID, "super-secret-admin", nil)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, "GET", env.server.URL+"/api/v1/me", created.Token, nil)
	decodeBody(t, resp, &ident)
	assert.Empty(t, ident.UserID)
}

func TestInvalidGalleryKeyRejected(t *testing.T) {
	env := newTestServer(t)

	resp := doJSON(t, "GET", env.server.URL+"/api/v1/galleries/..%2Fescape/items", "", nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHealthEndpoints(t *testing.T) {
	env := newTestServer(t)

	resp, err := http.Get(env.server.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(env.server.URL + "/readyz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
