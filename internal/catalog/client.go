package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/time/rate"
)

const searchLimit = 20

// Client issues search and lookup requests against the catalog API.
// Requests are throttled by a shared rate limiter and authorized via the
// token source. Results are never cached locally; runs are admin-triggered
// and paced, so every call hits the network.
type Client struct {
	client  *http.Client
	tokens  *TokenSource
	limiter *rate.Limiter
	logger  *slog.Logger
	baseURL string
}

// NewClient creates a catalog client with the default request pacing
// (5 requests per second, burst of 1).
func NewClient(tokens *TokenSource, logger *slog.Logger, baseURL string) *Client {
	return &Client{
		client:  &http.Client{Timeout: 10 * time.Second},
		tokens:  tokens,
		limiter: rate.NewLimiter(5, 1),
		logger:  logger.With(slog.String("service", ServiceName)),
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// searchResponse is the catalog's search payload.
type searchResponse struct {
	Artists struct {
		Items []artistResult `json:"items"`
	} `json:"artists"`
}

// artistResult is the catalog's artist object shape.
type artistResult struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Images    []Image `json:"images"`
	Followers struct {
		Total int `json:"total"`
	} `json:"followers"`
	Popularity   int `json:"popularity"`
	ExternalURLs struct {
		Spotify string `json:"spotify"`
	} `json:"external_urls"`
	Genres []string `json:"genres"`
}

func (r *artistResult) toCandidate() Candidate {
	return Candidate{
		ID:         r.ID,
		Name:       r.Name,
		Images:     r.Images,
		Followers:  r.Followers.Total,
		Popularity: r.Popularity,
		ProfileURL: r.ExternalURLs.Spotify,
		Genres:     r.Genres,
	}
}

// SearchArtist searches the catalog for artists matching name. It issues
// several query variants - the trimmed name, the quoted exact phrase, and
// the name with punctuation stripped - merges the results, and de-duplicates
// by catalog ID preserving discovery order. An empty result set is a valid
// response, not an error.
func (c *Client) SearchArtist(ctx context.Context, name string) ([]Candidate, error) {
	var candidates []Candidate
	seen := make(map[string]bool)

	for _, query := range searchVariants(name) {
		items, err := c.search(ctx, query)
		if err != nil {
			return nil, err
		}
		for _, item := range items {
			if seen[item.ID] {
				continue
			}
			seen[item.ID] = true
			candidates = append(candidates, item.toCandidate())
		}
	}

	c.logger.Debug("artist search completed",
		slog.String("query", name),
		slog.Int("candidates", len(candidates)))

	return candidates, nil
}

// searchVariants builds the ordered query variants for a name. Duplicate
// variants (e.g. a name with no punctuation) are collapsed.
func searchVariants(name string) []string {
	trimmed := strings.TrimSpace(name)
	variants := []string{trimmed, `"` + trimmed + `"`}
	if stripped := stripPunctuation(trimmed); stripped != "" && stripped != trimmed {
		variants = append(variants, stripped)
	}
	return variants
}

// stripPunctuation removes everything except letters, digits, underscores
// and spaces.
func stripPunctuation(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || unicode.IsSpace(r) {
			return r
		}
		return -1
	}, s)
}

func (c *Client) search(ctx context.Context, query string) ([]artistResult, error) {
	params := url.Values{
		"q":     {query},
		"type":  {"artist"},
		"limit": {strconv.Itoa(searchLimit)},
	}

	body, err := c.doRequest(ctx, c.baseURL+"/search?"+params.Encode())
	if err != nil {
		return nil, err
	}

	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &APIError{Service: ServiceName, Cause: fmt.Errorf("parsing search response: %w", err)}
	}
	return resp.Artists.Items, nil
}

// GetArtist fetches a single catalog artist by ID. A "not found" response
// returns *ErrNotFound, distinct from transport or API failures.
func (c *Client) GetArtist(ctx context.Context, id string) (*Candidate, error) {
	body, err := c.doRequest(ctx, c.baseURL+"/artists/"+url.PathEscape(id))
	if err != nil {
		var nf *ErrNotFound
		if errors.As(err, &nf) {
			return nil, &ErrNotFound{ID: id}
		}
		return nil, err
	}

	var result artistResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, &APIError{Service: ServiceName, Cause: fmt.Errorf("parsing artist response: %w", err)}
	}

	cand := result.toCandidate()
	return &cand, nil
}

// albumsResponse is the catalog's album listing payload.
type albumsResponse struct {
	Items []struct {
		ID           string  `json:"id"`
		Name         string  `json:"name"`
		ReleaseDate  string  `json:"release_date"`
		AlbumType    string  `json:"album_type"`
		Images       []Image `json:"images"`
		ExternalURLs struct {
			Spotify string `json:"spotify"`
		} `json:"external_urls"`
		TotalTracks int `json:"total_tracks"`
	} `json:"items"`
}

// GetArtistAlbums fetches an artist's albums and singles, newest first as
// returned by the catalog. A "not found" response returns *ErrNotFound.
func (c *Client) GetArtistAlbums(ctx context.Context, id string, limit int) ([]Album, error) {
	if limit <= 0 {
		limit = 20
	}
	params := url.Values{
		"include_groups": {"album,single"},
		"market":         {"US"},
		"limit":          {strconv.Itoa(limit)},
	}

	body, err := c.doRequest(ctx, c.baseURL+"/artists/"+url.PathEscape(id)+"/albums?"+params.Encode())
	if err != nil {
		var nf *ErrNotFound
		if errors.As(err, &nf) {
			return nil, &ErrNotFound{ID: id}
		}
		return nil, err
	}

	var resp albumsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &APIError{Service: ServiceName, Cause: fmt.Errorf("parsing albums response: %w", err)}
	}

	albums := make([]Album, 0, len(resp.Items))
	for _, item := range resp.Items {
		albums = append(albums, Album{
			ID:          item.ID,
			Name:        item.Name,
			ReleaseDate: item.ReleaseDate,
			AlbumType:   item.AlbumType,
			Images:      item.Images,
			ProfileURL:  item.ExternalURLs.Spotify,
			TotalTracks: item.TotalTracks,
		})
	}
	return albums, nil
}

// doRequest waits for the rate limiter, attaches a bearer token, executes a
// GET request, and returns the response body. Status mapping: 200 passes
// through, 404 becomes *ErrNotFound, anything else becomes *APIError.
func (c *Client) doRequest(ctx context.Context, reqURL string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &APIError{Service: ServiceName, Cause: fmt.Errorf("rate limiter: %w", err)}
	}

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, &APIError{Service: ServiceName, Cause: err}
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &APIError{Service: ServiceName, Cause: err}
	}
	defer resp.Body.Close() //nolint:errcheck

	switch resp.StatusCode {
	case http.StatusOK:
		// continue
	case http.StatusNotFound:
		return nil, &ErrNotFound{ID: reqURL}
	default:
		return nil, &APIError{Service: ServiceName, Status: resp.StatusCode}
	}

	return io.ReadAll(io.LimitReader(resp.Body, 1*1024*1024))
}
