package models

import "time"

// OrderRecord is the persisted ordering for one gallery key.
// Overwrite semantics: the last writer to complete wins; there is no
// optimistic-lock token on the record.
type OrderRecord struct {
	GalleryKey string    `json:"gallery_key"`
	Order      []string  `json:"order"`
	UpdatedAt  time.Time `json:"updated_at"`
	UpdatedBy  string    `json:"updated_by,omitempty"`
}

// PortfolioKey is the synthetic gallery key used to store the global
// ordering of projects on the portfolio page. It is an ordinary key as far
// as the order store is concerned.
const PortfolioKey = "portfolio-main"
