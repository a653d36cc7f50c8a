// Package roster stores the label's artist roster and its catalog linkage.
package roster

import "time"

// Artist represents one signed or prospective artist on the roster.
// CatalogID is empty until the artist has been matched against the music
// catalog; once set it is authoritative and excludes the artist from
// new-artist sync runs.
type Artist struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	ImageURL       string    `json:"image_url,omitempty"`
	CatalogID      string    `json:"catalog_id,omitempty"`
	CatalogURL     string    `json:"catalog_url,omitempty"`
	AppleMusicURL  string    `json:"apple_music_url,omitempty"`
	InstagramURL   string    `json:"instagram_url,omitempty"`
	LatestRelease  *Release  `json:"latest_release,omitempty"`
	ReleaseRecency string    `json:"release_recency,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Release describes an artist's most recent catalog release.
type Release struct {
	Date     string `json:"date"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	ImageURL string `json:"image_url,omitempty"`
	URL      string `json:"url,omitempty"`
}

// Release recency buckets, derived from days since the latest release.
const (
	RecencyNew      = "new"       // within 30 days
	RecencyRecent   = "recent"    // within 90 days
	RecencyThisYear = "this_year" // within 365 days
	RecencyOlder    = "older"
)

// Recency buckets a release date into a coarse freshness label.
// Returns "" when the artist has no known release.
func Recency(releaseDate string, now time.Time) string {
	if releaseDate == "" {
		return ""
	}
	d, err := parseReleaseDate(releaseDate)
	if err != nil {
		return ""
	}
	days := int(now.Sub(d).Hours() / 24)
	switch {
	case days <= 30:
		return RecencyNew
	case days <= 90:
		return RecencyRecent
	case days <= 365:
		return RecencyThisYear
	default:
		return RecencyOlder
	}
}

// parseReleaseDate accepts the catalog's release date precisions:
// full date, year-month, or bare year.
func parseReleaseDate(s string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02", "2006-01", "2006"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Parse("2006-01-02", s)
}
