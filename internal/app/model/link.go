package model

import "time"

// LinkRecord is the single persisted entity: one shortened link.
//
// The JSON tags are the on-disk contract. The whole record set is stored as
// one JSON array under a fixed key, so renaming a tag silently orphans every
// record written before the rename.
type LinkRecord struct {
	ID          string     `json:"id"`
	OriginalURL string     `json:"originalUrl"`
	ShortCode   string     `json:"shortCode"`
	ShortURL    string     `json:"shortUrl"`
	CustomCode  string     `json:"customDomain,omitempty"`
	Password    string     `json:"password,omitempty"`
	ExpiryDate  *time.Time `json:"expiryDate,omitempty"`
	Category    string     `json:"category,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	Clicks      int64      `json:"clicks"`
}

// ExportRecord is the read-only snapshot shape emitted by the export
// operation. It deliberately carries no password or expiry data.
type ExportRecord struct {
	ShortURL    string    `json:"shortUrl"`
	OriginalURL string    `json:"originalUrl"`
	Clicks      int64     `json:"clicks"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Theme preference values persisted alongside the record set.
const (
	ThemeLight = "light"
	ThemeDark  = "dark"
)
