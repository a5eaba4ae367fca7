package server

import (
	"crypto/subtle"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/smelek/gallerysync/internal/remote"
)

// adminAuth guards the /admin surface with a static token, compared in
// constant time.
func adminAuth(adminToken string, next http.Handler) http.Handler {
	expected := "Bearer " + adminToken
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		if subtle.ConstantTimeCompare([]byte(auth), []byte(expected)) != 1 {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "auth_failed", "message": "invalid admin token"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// --- Token Handlers ---

func makeAdminCreateTokenHandler(tokens TokenStore, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req remote.TokenCreateRequest
		if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad_request", "message": "invalid JSON"})
			return
		}
		if req.UserID == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad_request", "message": "user_id is required"})
			return
		}

		rawToken, info, err := tokens.CreateToken(req.UserID, req.Desc)
		if err != nil {
			logger.Error("create token", "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal_error", "message": err.Error()})
			return
		}

		writeJSON(w, http.StatusCreated, &remote.TokenCreateResponse{
			Token:  rawToken,
			ID:     info.ID,
			UserID: info.UserID,
		})
	}
}

func makeAdminListTokensHandler(tokens TokenStore, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := tokens.ListTokens()
		if err != nil {
			logger.Error("list tokens", "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal_error", "message": err.Error()})
			return
		}

		// Return metadata only — no hashes
		type tokenEntry struct {
			ID          string `json:"id"`
			UserID      string `json:"user_id"`
			Description string `json:"description,omitempty"`
		}
		entries := make([]tokenEntry, len(list))
		for i, t := range list {
			entries[i] = tokenEntry{
				ID:          t.ID,
				UserID:      t.UserID,
				Description: t.Desc,
			}
		}

		writeJSON(w, http.StatusOK, entries)
	}
}

func makeAdminDeleteTokenHandler(tokens TokenStore, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		if id == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad_request", "message": "token ID required"})
			return
		}

		if err := tokens.DeleteToken(id); err != nil {
			logger.Error("delete token", "error", err, "token_id", id)
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "not_found", "message": err.Error()})
			return
		}

		w.WriteHeader(http.StatusOK)
	}
}

// --- Role Handlers ---

func makeAdminGrantRoleHandler(roles RoleStore, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req remote.RoleRequest
		if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad_request", "message": "invalid JSON"})
			return
		}
		if req.UserID == "" || req.Role == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad_request", "message": "user_id and role are required"})
			return
		}

		if err := roles.GrantRole(req.UserID, req.Role); err != nil {
			logger.Error("grant role", "error", err, "user_id", req.UserID, "role", req.Role)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal_error", "message": err.Error()})
			return
		}

		w.WriteHeader(http.StatusCreated)
	}
}

func makeAdminRevokeRoleHandler(roles RoleStore, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := r.PathValue("user")
		role := r.PathValue("role")
		if userID == "" || role == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad_request", "message": "user and role required"})
			return
		}

		if err := roles.RevokeRole(userID, role); err != nil {
			logger.Error("revoke role", "error", err, "user_id", userID, "role", role)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal_error", "message": err.Error()})
			return
		}

		w.WriteHeader(http.StatusOK)
	}
}

func makeAdminListRolesHandler(roles RoleStore, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := roles.ListRoles()
		if err != nil {
			logger.Error("list roles", "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal_error", "message": err.Error()})
			return
		}

		writeJSON(w, http.StatusOK, list)
	}
}
