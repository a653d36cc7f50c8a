package submission

import (
	"fmt"
	"net/mail"
	"net/url"
	"regexp"
	"strings"
)

// Genres selectable on the demo form.
var validGenres = map[string]bool{
	"afro-house":    true,
	"deep-house":    true,
	"organic-house": true,
	"melodic-house": true,
	"downtempo":     true,
	"electronica":   true,
	"experimental":  true,
	"other":         true,
}

var instagramHandleRe = regexp.MustCompile(`^[a-zA-Z0-9._]+$`)

// ValidationError collects per-field validation failures.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid submission: %d field(s)", len(e.Fields))
}

func (e *ValidationError) add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	if _, exists := e.Fields[field]; !exists {
		e.Fields[field] = msg
	}
}

// Input is an incoming demo submission before validation.
type Input struct {
	FirstName         string   `json:"first_name"`
	LastName          string   `json:"last_name"`
	Email             string   `json:"email"`
	ArtistName        string   `json:"artist_name"`
	TrackTitle        string   `json:"track_title"`
	Genres            []string `json:"genres"`
	InstagramHandle   string   `json:"instagram_handle,omitempty"`
	CatalogProfileURL string   `json:"catalog_profile_url,omitempty"`
	AdditionalInfo    string   `json:"additional_info,omitempty"`
	BPM               int      `json:"bpm,omitempty"`
}

// Validate normalizes the input in place and returns a *ValidationError
// listing every failed field, or nil when the input is acceptable.
// Normalization: fields are trimmed, the email lowercased, and a leading @
// stripped from the instagram handle.
func (in *Input) Validate() error {
	var verr ValidationError

	in.FirstName = strings.TrimSpace(in.FirstName)
	if in.FirstName == "" {
		verr.add("first_name", "first name is required")
	} else if len(in.FirstName) > 50 {
		verr.add("first_name", "first name must be less than 50 characters")
	}

	in.LastName = strings.TrimSpace(in.LastName)
	if in.LastName == "" {
		verr.add("last_name", "last name is required")
	} else if len(in.LastName) > 50 {
		verr.add("last_name", "last name must be less than 50 characters")
	}

	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if in.Email == "" {
		verr.add("email", "email is required")
	} else if len(in.Email) > 255 {
		verr.add("email", "email must be less than 255 characters")
	} else if _, err := mail.ParseAddress(in.Email); err != nil {
		verr.add("email", "email address is invalid")
	}

	in.ArtistName = strings.TrimSpace(in.ArtistName)
	if in.ArtistName == "" {
		verr.add("artist_name", "artist name is required")
	} else if len(in.ArtistName) > 100 {
		verr.add("artist_name", "artist name must be less than 100 characters")
	}

	in.TrackTitle = strings.TrimSpace(in.TrackTitle)
	if in.TrackTitle == "" {
		verr.add("track_title", "track title is required")
	} else if len(in.TrackTitle) > 200 {
		verr.add("track_title", "track title must be less than 200 characters")
	}

	switch {
	case len(in.Genres) == 0:
		verr.add("genres", "at least one genre must be selected")
	case len(in.Genres) > 5:
		verr.add("genres", "maximum 5 genres allowed")
	default:
		for _, g := range in.Genres {
			if !validGenres[g] {
				verr.add("genres", fmt.Sprintf("unknown genre %q", g))
			}
		}
	}

	in.InstagramHandle = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(in.InstagramHandle), "@"))
	if in.InstagramHandle != "" {
		if len(in.InstagramHandle) > 30 {
			verr.add("instagram_handle", "instagram handle must be at most 30 characters")
		} else if !instagramHandleRe.MatchString(in.InstagramHandle) {
			verr.add("instagram_handle", "instagram handle contains invalid characters")
		}
	}

	in.CatalogProfileURL = strings.TrimSpace(in.CatalogProfileURL)
	if in.CatalogProfileURL != "" {
		u, err := url.Parse(in.CatalogProfileURL)
		if err != nil || u.Scheme == "" || u.Host == "" || !strings.Contains(u.Host, "spotify.com") {
			verr.add("catalog_profile_url", "must be a valid spotify.com URL")
		}
	}

	in.AdditionalInfo = strings.TrimSpace(in.AdditionalInfo)
	if len(in.AdditionalInfo) > 1000 {
		verr.add("additional_info", "additional info must be less than 1000 characters")
	}

	if in.BPM != 0 && (in.BPM < 60 || in.BPM > 200) {
		verr.add("bpm", "bpm must be between 60 and 200")
	}

	if len(verr.Fields) > 0 {
		return &verr
	}
	return nil
}
