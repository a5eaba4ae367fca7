package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/smelek/gallerysync/internal/models"
)

// ErrItemNotFound is returned when a catalog item does not exist.
var ErrItemNotFound = fmt.Errorf("gallery item not found")

// Catalog is the SQLite-backed gallery item catalog. It is the source of
// truth for item membership; display order lives in the order store.
type Catalog struct {
	db *sql.DB
}

// NewCatalog opens a catalog database connection.
func NewCatalog(dbPath string) (*Catalog, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return &Catalog{db: db}, nil
}

// Close closes the database connection.
func (c *Catalog) Close() error {
	return c.db.Close()
}

// Initialize creates the catalog schema.
func (c *Catalog) Initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS gallery_items (
		id TEXT PRIMARY KEY,
		gallery_key TEXT NOT NULL,
		url TEXT NOT NULL,
		is_before BOOLEAN DEFAULT FALSE,
		is_after BOOLEAN DEFAULT FALSE,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_items_gallery ON gallery_items(gallery_key, created_at);
	`

	if _, err := c.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// ListItems returns a gallery's items in creation order. This is the
// defaultItems input to the sync engine; it carries membership, not display
// order.
func (c *Catalog) ListItems(ctx context.Context, galleryKey string) ([]models.GalleryItem, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT id, gallery_key, url, is_before, is_after, created_at
		FROM gallery_items
		WHERE gallery_key = ?
		ORDER BY created_at, id`, galleryKey)
	if err != nil {
		return nil, fmt.Errorf("list items for %s: %w", galleryKey, err)
	}
	defer rows.Close()

	var items []models.GalleryItem
	for rows.Next() {
		var it models.GalleryItem
		var created string
		if err := rows.Scan(&it.ID, &it.GalleryKey, &it.URL, &it.IsBefore, &it.IsAfter, &created); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		it.CreatedAt = parseTimestamp(created)
		items = append(items, it)
	}
	return items, rows.Err()
}

// GetItem returns one item by gallery key and ID.
func (c *Catalog) GetItem(ctx context.Context, galleryKey, id string) (*models.GalleryItem, error) {
	var it models.GalleryItem
	var created string
	err := c.db.QueryRowContext(ctx, `
		SELECT id, gallery_key, url, is_before, is_after, created_at
		FROM gallery_items
		WHERE gallery_key = ? AND id = ?`, galleryKey, id).
		Scan(&it.ID, &it.GalleryKey, &it.URL, &it.IsBefore, &it.IsAfter, &created)
	if err == sql.ErrNoRows {
		return nil, ErrItemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get item %s/%s: %w", galleryKey, id, err)
	}
	it.CreatedAt = parseTimestamp(created)
	return &it, nil
}

// AddItem inserts a new item. A missing ID is filled with a fresh UUID.
func (c *Catalog) AddItem(ctx context.Context, item *models.GalleryItem) error {
	if item.GalleryKey == "" {
		return fmt.Errorf("add item: gallery key is required")
	}
	if item.URL == "" {
		return fmt.Errorf("add item: url is required")
	}
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}

	_, err := c.db.ExecContext(ctx, `
		INSERT INTO gallery_items (id, gallery_key, url, is_before, is_after, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		item.ID, item.GalleryKey, item.URL, item.IsBefore, item.IsAfter,
		item.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("insert item %s: %w", item.ID, err)
	}
	return nil
}

// DeleteItem removes an item.
func (c *Catalog) DeleteItem(ctx context.Context, galleryKey, id string) error {
	res, err := c.db.ExecContext(ctx,
		`DELETE FROM gallery_items WHERE gallery_key = ? AND id = ?`, galleryKey, id)
	if err != nil {
		return fmt.Errorf("delete item %s/%s: %w", galleryKey, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrItemNotFound
	}
	return nil
}

// SetPhases updates an item's before/after flags.
func (c *Catalog) SetPhases(ctx context.Context, galleryKey, id string, isBefore, isAfter bool) error {
	res, err := c.db.ExecContext(ctx, `
		UPDATE gallery_items SET is_before = ?, is_after = ?
		WHERE gallery_key = ? AND id = ?`, isBefore, isAfter, galleryKey, id)
	if err != nil {
		return fmt.Errorf("update item %s/%s: %w", galleryKey, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrItemNotFound
	}
	return nil
}

// ListGalleryKeys returns the distinct gallery keys present in the catalog.
func (c *Catalog) ListGalleryKeys(ctx context.Context) ([]string, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT DISTINCT gallery_key FROM gallery_items ORDER BY gallery_key`)
	if err != nil {
		return nil, fmt.Errorf("list gallery keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// parseTimestamp parses a timestamp string from SQLite in various formats.
func parseTimestamp(s string) time.Time {
	formats := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02 15:04:05.999999999-07:00",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05Z",
	}
	for _, f := range formats {
		if t, err := time.Parse(f, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
