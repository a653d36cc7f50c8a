// Package catalog wraps the third-party music catalog's search and lookup
// API behind a stable interface. All calls are paced by a shared rate
// limiter and authorized through a cached client-credentials token.
package catalog

import "fmt"

// ServiceName identifies the catalog in errors and logs.
const ServiceName = "spotify"

// Image is one artist image descriptor, largest first in candidate order.
type Image struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

// Candidate is a catalog artist as returned by search or lookup.
type Candidate struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Images     []Image  `json:"images"`
	Followers  int      `json:"followers"`
	Popularity int      `json:"popularity"`
	ProfileURL string   `json:"profile_url"`
	Genres     []string `json:"genres,omitempty"`
}

// ImageURL returns the candidate's preferred (first) image URL, or "".
func (c *Candidate) ImageURL() string {
	if len(c.Images) == 0 {
		return ""
	}
	return c.Images[0].URL
}

// Album is one catalog release (album or single).
type Album struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	ReleaseDate string  `json:"release_date"`
	AlbumType   string  `json:"album_type"`
	Images      []Image `json:"images"`
	ProfileURL  string  `json:"profile_url"`
	TotalTracks int     `json:"total_tracks"`
}

// ImageURL returns the album's preferred (first) image URL, or "".
func (a *Album) ImageURL() string {
	if len(a.Images) == 0 {
		return ""
	}
	return a.Images[0].URL
}

// AuthError indicates the client-credentials exchange failed. It is fatal
// to an entire sync run, never to a single row.
type AuthError struct {
	Status int
	Cause  error
}

func (e *AuthError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s authentication failed: %v", ServiceName, e.Cause)
	}
	return fmt.Sprintf("%s authentication failed: status %d", ServiceName, e.Status)
}

func (e *AuthError) Unwrap() error { return e.Cause }

// APIError indicates a non-"not found" failure from the catalog API.
// It carries the HTTP status and service name for logging, and is fatal
// only to the row being processed.
type APIError struct {
	Service string
	Status  int
	Cause   error
}

func (e *APIError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s API error: %v", e.Service, e.Cause)
	}
	return fmt.Sprintf("%s API error: status %d", e.Service, e.Status)
}

func (e *APIError) Unwrap() error { return e.Cause }

// ErrNotFound indicates the catalog has no entity for the requested ID.
// It is a normal lookup outcome, distinct from APIError.
type ErrNotFound struct {
	ID string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s: artist %s not found", ServiceName, e.ID)
}
