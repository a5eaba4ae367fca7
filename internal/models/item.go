package models

import "time"

// GalleryItem is one entry in a gallery: an image, a video, or a special
// non-media slot identified by a sentinel URL. The ID is stable and unique
// within a gallery; URLs may repeat.
type GalleryItem struct {
	ID         string    `json:"id"`
	GalleryKey string    `json:"gallery_key,omitempty"`
	URL        string    `json:"url"`
	// The phase flags are PATCH-able and always serialized: a false flag on
	// the wire must be distinguishable from an absent one.
	IsBefore  bool      `json:"is_before"`
	IsAfter   bool      `json:"is_after"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// Identity returns the ordering identity of the item.
func (i GalleryItem) Identity() string {
	return i.ID
}
