// Package store provides bbolt-based persistence for gallery orders, user
// roles, and API tokens, plus the SQLite gallery item catalog.
// Orders are keyed records with overwrite semantics: there is no
// optimistic-lock token, the last writer to complete wins.
package store

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"

	"github.com/smelek/gallerysync/internal/gallery"
	"github.com/smelek/gallerysync/internal/models"
)

// Bucket names.
var (
	bucketOrders = []byte("orders")
	bucketRoles  = []byte("roles")
	bucketTokens = []byte("tokens")
	bucketKV     = []byte("kv")
)

// AdminRole is the role name that grants gallery write access.
const AdminRole = "admin"

// Store represents the bbolt database store.
type Store struct {
	db *bolt.DB
}

// New opens or creates a bbolt database at the given path.
func New(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Initialize creates all required buckets.
func (s *Store) Initialize() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		buckets := [][]byte{
			bucketOrders,
			bucketRoles,
			bucketTokens,
			bucketKV,
		}
		for _, name := range buckets {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("create bucket %s: %w", name, err)
			}
		}
		return nil
	})
}

// GetOrder returns the persisted order record for a gallery key, or
// gallery.ErrOrderNotFound when none was ever saved. The stored record is
// parsed and validated rather than trusted.
func (s *Store) GetOrder(_ context.Context, galleryKey string) (*models.OrderRecord, error) {
	var raw []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketOrders)
		if b == nil {
			return nil
		}
		if v := b.Get([]byte(galleryKey)); v != nil {
			raw = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("get order %s: %w", galleryKey, err)
	}
	if raw == nil {
		return nil, gallery.ErrOrderNotFound
	}

	var rec models.OrderRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("parse order record %s: %w", galleryKey, err)
	}
	if rec.GalleryKey == "" {
		rec.GalleryKey = galleryKey
	}
	if rec.GalleryKey != galleryKey {
		return nil, fmt.Errorf("order record %s carries key %q", galleryKey, rec.GalleryKey)
	}
	if rec.Order == nil {
		rec.Order = []string{}
	}
	return &rec, nil
}

// UpsertOrder writes the order record for a gallery key, overwriting any
// previous record.
func (s *Store) UpsertOrder(_ context.Context, galleryKey string, order []string, actor string, at time.Time) error {
	if galleryKey == "" {
		return fmt.Errorf("upsert order: gallery key is required")
	}
	rec := models.OrderRecord{
		GalleryKey: galleryKey,
		Order:      append([]string(nil), order...),
		UpdatedAt:  at,
		UpdatedBy:  actor,
	}
	data, err := json.Marshal(&rec)
	if err != nil {
		return fmt.Errorf("marshal order record: %w", err)
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketOrders)
		if b == nil {
			return fmt.Errorf("orders bucket missing")
		}
		return b.Put([]byte(galleryKey), data)
	})
}

// DeleteOrder removes the persisted order for a gallery key. Deleting an
// absent order is a no-op.
func (s *Store) DeleteOrder(_ context.Context, galleryKey string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketOrders)
		if b == nil {
			return nil
		}
		return b.Delete([]byte(galleryKey))
	})
}

// ListOrderKeys returns all gallery keys with a persisted order.
func (s *Store) ListOrderKeys(_ context.Context) ([]string, error) {
	var keys []string
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketOrders)
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, _ []byte) error {
			keys = append(keys, string(k))
			return nil
		})
	})
	return keys, err
}

// GrantRole assigns a role to a user.
func (s *Store) GrantRole(userID, role string) error {
	if userID == "" || role == "" {
		return fmt.Errorf("grant role: user id and role are required")
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketRoles)
		if b == nil {
			return fmt.Errorf("roles bucket missing")
		}
		return b.Put(roleKey(userID, role), []byte(time.Now().UTC().Format(time.RFC3339)))
	})
}

// RevokeRole removes a role from a user.
func (s *Store) RevokeRole(userID, role string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketRoles)
		if b == nil {
			return nil
		}
		return b.Delete(roleKey(userID, role))
	})
}

// HasRole reports whether the user holds the role.
func (s *Store) HasRole(userID, role string) (bool, error) {
	var found bool
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketRoles)
		if b == nil {
			return nil
		}
		found = b.Get(roleKey(userID, role)) != nil
		return nil
	})
	return found, err
}

// ListRoles returns all role assignments.
func (s *Store) ListRoles() ([]models.RoleAssignment, error) {
	var out []models.RoleAssignment
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketRoles)
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, _ []byte) error {
			userID, role, ok := splitRoleKey(k)
			if ok {
				out = append(out, models.RoleAssignment{UserID: userID, Role: role})
			}
			return nil
		})
	})
	return out, err
}

func roleKey(userID, role string) []byte {
	return []byte(userID + "\x00" + role)
}

func splitRoleKey(k []byte) (userID, role string, ok bool) {
	for i, c := range k {
		if c == 0 {
			return string(k[:i]), string(k[i+1:]), true
		}
	}
	return "", "", false
}

// TokenInfo is the stored metadata for an API token. Only the SHA-256 hash
// of the raw token is kept.
type TokenInfo struct {
	ID         string    `json:"id"`
	TokenHash  string    `json:"token_hash"`
	UserID     string    `json:"user_id"`
	Desc       string    `json:"description,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	LastUsedAt time.Time `json:"last_used_at,omitempty"`
}

// HashToken returns the SHA-256 hex digest of a raw token string.
func HashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

// CreateToken mints a new token for a user and returns the raw token, which
// is never stored.
func (s *Store) CreateToken(userID, desc string) (string, *TokenInfo, error) {
	if userID == "" {
		return "", nil, fmt.Errorf("create token: user id is required")
	}

	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", nil, fmt.Errorf("generate token: %w", err)
	}
	raw := hex.EncodeToString(buf)

	info := &TokenInfo{
		ID:        uuid.New().String(),
		TokenHash: HashToken(raw),
		UserID:    userID,
		Desc:      desc,
		CreatedAt: time.Now().UTC(),
	}
	data, err := json.Marshal(info)
	if err != nil {
		return "", nil, fmt.Errorf("marshal token: %w", err)
	}

	err = s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketTokens)
		if b == nil {
			return fmt.Errorf("tokens bucket missing")
		}
		return b.Put([]byte(info.TokenHash), data)
	})
	if err != nil {
		return "", nil, err
	}
	return raw, info, nil
}

// GetTokenByHash looks up a token by its SHA-256 hash. Returns (nil, nil)
// when no token matches.
func (s *Store) GetTokenByHash(hash string) (*TokenInfo, error) {
	var raw []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketTokens)
		if b == nil {
			return nil
		}
		if v := b.Get([]byte(hash)); v != nil {
			raw = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil || raw == nil {
		return nil, err
	}

	var info TokenInfo
	if err := json.Unmarshal(raw, &info); err != nil {
		return nil, fmt.Errorf("parse token record: %w", err)
	}
	return &info, nil
}

// UpdateTokenLastUsed stamps the token's last_used_at.
func (s *Store) UpdateTokenLastUsed(id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketTokens)
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			var info TokenInfo
			if err := json.Unmarshal(v, &info); err != nil || info.ID != id {
				return nil
			}
			info.LastUsedAt = time.Now().UTC()
			data, err := json.Marshal(&info)
			if err != nil {
				return err
			}
			return b.Put(k, data)
		})
	})
}

// ListTokens returns all token records.
func (s *Store) ListTokens() ([]*TokenInfo, error) {
	var out []*TokenInfo
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketTokens)
		if b == nil {
			return nil
		}
		return b.ForEach(func(_, v []byte) error {
			var info TokenInfo
			if err := json.Unmarshal(v, &info); err != nil {
				return nil
			}
			out = append(out, &info)
			return nil
		})
	})
	return out, err
}

// DeleteToken removes a token by ID.
func (s *Store) DeleteToken(id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketTokens)
		if b == nil {
			return nil
		}
		var target []byte
		err := b.ForEach(func(k, v []byte) error {
			var info TokenInfo
			if err := json.Unmarshal(v, &info); err == nil && info.ID == id {
				target = append([]byte(nil), k...)
			}
			return nil
		})
		if err != nil {
			return err
		}
		if target == nil {
			return fmt.Errorf("token %s not found", id)
		}
		return b.Delete(target)
	})
}

// GetValue gets a value from the key-value bucket.
func (s *Store) GetValue(key string) (string, error) {
	var val string
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketKV)
		if b == nil {
			return nil
		}
		if v := b.Get([]byte(key)); v != nil {
			val = string(v)
		}
		return nil
	})
	return val, err
}

// SetValue sets a value in the key-value bucket.
func (s *Store) SetValue(key, value string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketKV)
		if b == nil {
			return fmt.Errorf("kv bucket missing")
		}
		return b.Put([]byte(key), []byte(value))
	})
}
