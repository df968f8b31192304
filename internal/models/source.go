package models

import "time"

// Source kinds (§9's polymorphic source fetcher variants).
const (
	SourceKindHTTPIndex     = "http-index"
	SourceKindSourceHosting = "source-hosting"
)

// SourceRegistration is one configured marketplace catalog source.
type SourceRegistration struct {
	SourceID      string     `json:"sourceId"`
	Name          string     `json:"name"`
	URL           string     `json:"url"`
	Kind          string     `json:"kind"`
	Enabled       bool       `json:"enabled"`
	Priority      int        `json:"priority"`
	IsDefault     bool       `json:"isDefault"`
	LastFetchedAt *time.Time `json:"lastFetchedAt,omitempty"`
	LastError     string     `json:"lastError,omitempty"`
}

// CatalogEntry is one plugin as seen in an aggregated marketplace catalog.
type CatalogEntry struct {
	SourceID    string    `json:"sourceId"`
	Manifest    Manifest  `json:"manifest"`
	Downloads   int       `json:"downloads,omitempty"`
	Rating      float64   `json:"rating,omitempty"`
	Verified    bool      `json:"verified"`
	Featured    bool      `json:"featured"`
	PublishedAt time.Time `json:"publishedAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// CatalogFilter narrows a marketplace list query.
type CatalogFilter struct {
	Category string
	Verified *bool
	Featured *bool
	Search   string
}

// HTTPIndexDocument is the wire shape of an http-index source's catalog file.
type HTTPIndexDocument struct {
	Version  string `json:"version"`
	Registry struct {
		Name string `json:"name"`
	} `json:"registry"`
	Plugins []CatalogEntry `json:"plugins"`
}

// CategoryCount is one row of the categoriesWithCounts() query.
type CategoryCount struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}
