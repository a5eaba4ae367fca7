package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/smelek/gallerysync/internal/models"
)

// AdminClient communicates with the gallery-server admin API.
// It is distinct from HTTPClient: it authenticates with the static admin
// token and does not implement Client.
type AdminClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewAdminClient creates an admin API client. Warns if baseURL uses http://.
func NewAdminClient(baseURL, token string) *AdminClient {
	if strings.HasPrefix(baseURL, "http://") {
		fmt.Fprintf(os.Stderr, "warning: sending credentials over unencrypted HTTP connection\n")
	}
	return &AdminClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// AdminTokenInfo is one entry in the GET /admin/tokens response.
type AdminTokenInfo struct {
	ID          string `json:"id"`
	UserID      string `json:"user_id"`
	Description string `json:"description,omitempty"`
}

func (c *AdminClient) do(ctx context.Context, method, url string, body io.Reader, headers map[string]string) (*http.Response, error) {
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

func (c *AdminClient) doJSON(ctx context.Context, method, url string, reqBody, respBody interface{}) error {
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

// CreateToken calls POST /admin/tokens and returns the newly created token.
// The raw token value is only available in the response — it is never stored
// by the server.
func (c *AdminClient) CreateToken(ctx context.Context, userID, desc string) (*TokenCreateResponse, error) {
	req := &TokenCreateRequest{UserID: userID, Desc: desc}
	var resp TokenCreateResponse
	if err := c.doJSON(ctx, "POST", c.baseURL+"/admin/tokens", req, &resp); err != nil {
		return nil, fmt.Errorf("create token: %w", err)
	}
	return &resp, nil
}

// ListTokens calls GET /admin/tokens and returns all token metadata.
// Raw token values are never returned.
func (c *AdminClient) ListTokens(ctx context.Context) ([]AdminTokenInfo, error) {
	var tokens []AdminTokenInfo
	if err := c.doJSON(ctx, "GET", c.baseURL+"/admin/tokens", nil, &tokens); err != nil {
		return nil, fmt.Errorf("list tokens: %w", err)
	}
	return tokens, nil
}

// DeleteToken calls DELETE /admin/tokens/{id}.
func (c *AdminClient) DeleteToken(ctx context.Context, id string) error {
	resp, err := c.do(ctx, "DELETE", c.baseURL+"/admin/tokens/"+id, nil, nil)
	if err != nil {
		return fmt.Errorf("delete token: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("delete token: %w", decodeError(resp))
	}
	return nil
}

// GrantRole calls POST /admin/roles.
func (c *AdminClient) GrantRole(ctx context.Context, userID, role string) error {
	req := &RoleRequest{UserID: userID, Role: role}
	if err := c.doJSON(ctx, "POST", c.baseURL+"/admin/roles", req, nil); err != nil {
		return fmt.Errorf("grant role: %w", err)
	}
	return nil
}

// RevokeRole calls DELETE /admin/roles/{user}/{role}.
func (c *AdminClient) RevokeRole(ctx context.Context, userID, role string) error {
	resp, err := c.do(ctx, "DELETE", c.baseURL+"/admin/roles/"+userID+"/"+role, nil, nil)
	if err != nil {
		return fmt.Errorf("revoke role: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("revoke role: %w", decodeError(resp))
	}
	return nil
}

// ListRoles calls GET /admin/roles and returns all role assignments.
func (c *AdminClient) ListRoles(ctx context.Context) ([]models.RoleAssignment, error) {
	var roles []models.RoleAssignment
	if err := c.doJSON(ctx, "GET", c.baseURL+"/admin/roles", nil, &roles); err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	return roles, nil
}
