package catalog

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
)

func loadFixture(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile("testdata/" + name)
	if err != nil {
		t.Fatalf("loading fixture %s: %v", name, err)
	}
	return data
}

// newAPIServer serves both the token endpoint and the catalog API so a
// single base URL can back the client under test.
func newAPIServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/token" {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"access_token":"test-token","token_type":"Bearer","expires_in":3600}`))
			return
		}

		if r.Header.Get("Authorization") != "Bearer test-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")

		switch {
		case r.URL.Path == "/search":
			query := r.URL.Query().Get("q")
			if strings.Contains(query, "nobody") {
				w.Write([]byte(`{"artists":{"items":[]}}`))
				return
			}
			w.Write(loadFixture(t, "search_nora.json"))

		case r.URL.Path == "/artists/5NGO30tJxFlKixkPSgXcFE/albums":
			w.Write(loadFixture(t, "albums_nora.json"))

		case strings.HasPrefix(r.URL.Path, "/artists/"):
			id := strings.TrimPrefix(r.URL.Path, "/artists/")
			switch id {
			case "gone-id":
				w.WriteHeader(http.StatusNotFound)
			case "broken-id":
				w.WriteHeader(http.StatusServiceUnavailable)
			default:
				w.Write(loadFixture(t, "artist_nora.json"))
			}

		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	tokens := NewTokenSource(baseURL+"/token", "id", "secret")
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	return NewClient(tokens, logger, baseURL)
}

func TestSearchArtist(t *testing.T) {
	srv := newAPIServer(t)
	defer srv.Close()
	c := newTestClient(t, srv.URL)

	candidates, err := c.SearchArtist(context.Background(), "Nora En Pure")
	if err != nil {
		t.Fatalf("SearchArtist: %v", err)
	}
	// All variants return the same fixture; de-duplication by ID collapses
	// them to the two distinct artists.
	if len(candidates) != 2 {
		t.Fatalf("expected 2 deduplicated candidates, got %d", len(candidates))
	}

	first := candidates[0]
	if first.ID != "5NGO30tJxFlKixkPSgXcFE" {
		t.Errorf("unexpected first candidate id: %s", first.ID)
	}
	if first.Name != "Nora En Pure" {
		t.Errorf("unexpected first candidate name: %s", first.Name)
	}
	if first.Followers != 712843 {
		t.Errorf("unexpected follower count: %d", first.Followers)
	}
	if first.Popularity != 65 {
		t.Errorf("unexpected popularity: %d", first.Popularity)
	}
	if first.ImageURL() == "" {
		t.Error("expected an image URL")
	}
	if first.ProfileURL != "https://open.spotify.com/artist/5NGO30tJxFlKixkPSgXcFE" {
		t.Errorf("unexpected profile url: %s", first.ProfileURL)
	}
}

func TestSearchArtistNoResults(t *testing.T) {
	srv := newAPIServer(t)
	defer srv.Close()
	c := newTestClient(t, srv.URL)

	candidates, err := c.SearchArtist(context.Background(), "nobody knows this name")
	if err != nil {
		t.Fatalf("SearchArtist: %v", err)
	}
	if len(candidates) != 0 {
		t.Fatalf("expected empty result set, got %d", len(candidates))
	}
}

func TestGetArtist(t *testing.T) {
	srv := newAPIServer(t)
	defer srv.Close()
	c := newTestClient(t, srv.URL)

	cand, err := c.GetArtist(context.Background(), "5NGO30tJxFlKixkPSgXcFE")
	if err != nil {
		t.Fatalf("GetArtist: %v", err)
	}
	if cand.Name != "Nora En Pure" {
		t.Errorf("unexpected name: %s", cand.Name)
	}
	if len(cand.Genres) != 2 {
		t.Errorf("expected 2 genres, got %v", cand.Genres)
	}
}

func TestGetArtistNotFound(t *testing.T) {
	srv := newAPIServer(t)
	defer srv.Close()
	c := newTestClient(t, srv.URL)

	_, err := c.GetArtist(context.Background(), "gone-id")
	var nf *ErrNotFound
	if !errors.As(err, &nf) {
		t.Fatalf("expected *ErrNotFound, got %v", err)
	}
	if nf.ID != "gone-id" {
		t.Errorf("expected not-found id gone-id, got %s", nf.ID)
	}
}

func TestGetArtistServerError(t *testing.T) {
	srv := newAPIServer(t)
	defer srv.Close()
	c := newTestClient(t, srv.URL)

	_, err := c.GetArtist(context.Background(), "broken-id")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %v", err)
	}
	if apiErr.Status != http.StatusServiceUnavailable {
		t.Errorf("expected status 503, got %d", apiErr.Status)
	}
	if apiErr.Service != ServiceName {
		t.Errorf("expected service %s, got %s", ServiceName, apiErr.Service)
	}
}

func TestGetArtistAlbums(t *testing.T) {
	srv := newAPIServer(t)
	defer srv.Close()
	c := newTestClient(t, srv.URL)

	albums, err := c.GetArtistAlbums(context.Background(), "5NGO30tJxFlKixkPSgXcFE", 20)
	if err != nil {
		t.Fatalf("GetArtistAlbums: %v", err)
	}
	if len(albums) != 2 {
		t.Fatalf("expected 2 albums, got %d", len(albums))
	}
	if albums[0].Name != "Come With Me" || albums[0].AlbumType != "single" {
		t.Errorf("unexpected first album: %+v", albums[0])
	}
	if albums[0].ReleaseDate != "2026-06-12" {
		t.Errorf("unexpected release date: %s", albums[0].ReleaseDate)
	}
	if albums[1].ImageURL() != "" {
		t.Errorf("expected no image for second album, got %s", albums[1].ImageURL())
	}
}

func TestSearchVariants(t *testing.T) {
	vs := searchVariants(" Nora En Pure ")
	if len(vs) != 2 {
		t.Fatalf("expected 2 variants for a punctuation-free name, got %v", vs)
	}
	if vs[0] != "Nora En Pure" || vs[1] != `"Nora En Pure"` {
		t.Errorf("unexpected variants: %v", vs)
	}

	vs = searchVariants("M.A.N.D.Y.")
	if len(vs) != 3 {
		t.Fatalf("expected 3 variants for a punctuated name, got %v", vs)
	}
	if vs[2] != "MANDY" {
		t.Errorf("expected punctuation-stripped variant MANDY, got %q", vs[2])
	}
}

func TestAuthFailurePropagates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/token" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()
	c := newTestClient(t, srv.URL)

	_, err := c.SearchArtist(context.Background(), "anyone")
	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected *AuthError, got %v", err)
	}
}
