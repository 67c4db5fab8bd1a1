package igdb

import "time"

// Credential is a bearer token issued by the identity endpoint.
type Credential struct {
	Token     string
	ExpiresAt time.Time
}

// Valid reports whether the credential can still be used at now.
func (c Credential) Valid(now time.Time) bool {
	return c.Token != "" && now.Before(c.ExpiresAt)
}

// CatalogItem is a single record of a named catalog collection such as
// keywords. Items are immutable once fetched.
type CatalogItem struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// Game is the projection of an upstream game record returned by searches.
type Game struct {
	ID               int64   `json:"id"`
	Name             string  `json:"name"`
	Cover            int64   `json:"cover,omitempty"`
	Genres           []int64 `json:"genres,omitempty"`
	Summary          string  `json:"summary,omitempty"`
	Rating           float64 `json:"rating,omitempty"`
	FirstReleaseDate int64   `json:"first_release_date,omitempty"`
	Platforms        []int64 `json:"platforms,omitempty"`
	LanguageSupports []int64 `json:"language_supports,omitempty"`
}
