package catalogsync

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/backlinefm/backline/internal/catalog"
	"github.com/backlinefm/backline/internal/roster"
)

type matchWrite struct {
	id, catalogID, catalogURL, imageURL string
}

type fakeStore struct {
	missing []roster.Artist
	linked  []roster.Artist
	listErr error

	matchWrites   []matchWrite
	dataWrites    []string
	releaseWrites map[string]*roster.Release
	writeErr      map[string]error
}

func (s *fakeStore) ListMissingCatalogID(context.Context) ([]roster.Artist, error) {
	return s.missing, s.listErr
}

func (s *fakeStore) ListWithCatalogID(context.Context) ([]roster.Artist, error) {
	return s.linked, s.listErr
}

func (s *fakeStore) UpdateCatalogMatch(_ context.Context, id, catalogID, catalogURL, imageURL string) error {
	if err := s.writeErr[id]; err != nil {
		return err
	}
	s.matchWrites = append(s.matchWrites, matchWrite{id, catalogID, catalogURL, imageURL})
	return nil
}

func (s *fakeStore) UpdateCatalogData(_ context.Context, id, _, _ string) error {
	if err := s.writeErr[id]; err != nil {
		return err
	}
	s.dataWrites = append(s.dataWrites, id)
	return nil
}

func (s *fakeStore) UpdateLatestRelease(_ context.Context, id string, rel *roster.Release) error {
	if err := s.writeErr[id]; err != nil {
		return err
	}
	if s.releaseWrites == nil {
		s.releaseWrites = make(map[string]*roster.Release)
	}
	s.releaseWrites[id] = rel
	return nil
}

type fakeClient struct {
	searchResults map[string][]catalog.Candidate
	searchErr     map[string]error
	artists       map[string]*catalog.Candidate
	albums        map[string][]catalog.Album
	lookupErr     map[string]error
}

func (c *fakeClient) SearchArtist(_ context.Context, name string) ([]catalog.Candidate, error) {
	if err := c.searchErr[name]; err != nil {
		return nil, err
	}
	return c.searchResults[name], nil
}

func (c *fakeClient) GetArtist(_ context.Context, id string) (*catalog.Candidate, error) {
	if err := c.lookupErr[id]; err != nil {
		return nil, err
	}
	if a, ok := c.artists[id]; ok {
		return a, nil
	}
	return nil, &catalog.ErrNotFound{ID: id}
}

func (c *fakeClient) GetArtistAlbums(_ context.Context, id string, _ int) ([]catalog.Album, error) {
	if err := c.lookupErr[id]; err != nil {
		return nil, err
	}
	return c.albums[id], nil
}

func newOrchestrator(store *fakeStore, client *fakeClient) *Orchestrator {
	o := NewOrchestrator(store, client, slog.New(slog.NewTextHandler(io.Discard, nil)), time.Millisecond)
	o.SetSleep(func(context.Context, time.Duration) error { return nil })
	return o
}

func strongCandidate(id, name string) catalog.Candidate {
	return catalog.Candidate{
		ID:         id,
		Name:       name,
		Popularity: 70,
		Genres:     []string{"deep house"},
		Images:     []catalog.Image{{URL: "https://img.example/" + id, Width: 640, Height: 640}},
		ProfileURL: "https://open.spotify.com/artist/" + id,
	}
}

func TestRunModeNewAppliesHighConfidenceMatch(t *testing.T) {
	store := &fakeStore{missing: []roster.Artist{{ID: "art-1", Name: "Nora En Pure"}}}
	client := &fakeClient{searchResults: map[string][]catalog.Candidate{
		"Nora En Pure": {strongCandidate("cat-1", "Nora En Pure")},
	}}

	res, err := newOrchestrator(store, client).Run(context.Background(), ModeNew)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if res.Updated != 1 || res.Failed != 0 || res.Skipped != 0 {
		t.Errorf("counters = updated %d skipped %d failed %d", res.Updated, res.Skipped, res.Failed)
	}
	if len(store.matchWrites) != 1 {
		t.Fatalf("match writes = %d, want 1", len(store.matchWrites))
	}
	w := store.matchWrites[0]
	if w.id != "art-1" || w.catalogID != "cat-1" {
		t.Errorf("wrote %+v", w)
	}
	if w.imageURL != "https://img.example/cat-1" {
		t.Errorf("image = %q", w.imageURL)
	}
	if res.Outcomes[0].Status != StatusUpdated || res.Outcomes[0].CatalogID != "cat-1" {
		t.Errorf("outcome = %+v", res.Outcomes[0])
	}
}

func TestRunModeNewMediumConfidenceRetainsCandidate(t *testing.T) {
	// Partial name match only: 60 points, medium tier, no write.
	store := &fakeStore{missing: []roster.Artist{{ID: "art-1", Name: "Marsh"}}}
	client := &fakeClient{searchResults: map[string][]catalog.Candidate{
		"Marsh": {{ID: "cat-9", Name: "Marsh & Friends"}},
	}}

	res, err := newOrchestrator(store, client).Run(context.Background(), ModeNew)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(store.matchWrites) != 0 {
		t.Errorf("medium confidence must not write, got %+v", store.matchWrites)
	}
	out := res.Outcomes[0]
	if out.Status != StatusNotFound {
		t.Errorf("status = %q, want %q", out.Status, StatusNotFound)
	}
	if out.Candidate == nil || out.Candidate.ID != "cat-9" {
		t.Errorf("candidate snapshot missing: %+v", out.Candidate)
	}
	if res.Failed != 1 || res.Skipped != 0 {
		t.Errorf("counters = skipped %d failed %d, want failed 1", res.Skipped, res.Failed)
	}
}

func TestRunModeNewNoResults(t *testing.T) {
	store := &fakeStore{missing: []roster.Artist{{ID: "art-1", Name: "Obscurity"}}}
	client := &fakeClient{}

	res, err := newOrchestrator(store, client).Run(context.Background(), ModeNew)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	out := res.Outcomes[0]
	if out.Status != StatusNotFound {
		t.Errorf("status = %q, want %q", out.Status, StatusNotFound)
	}
	if len(out.Reasons) != 1 || out.Reasons[0] != "No results found" {
		t.Errorf("reasons = %v", out.Reasons)
	}
}

func TestRunModeNewRowFailureContained(t *testing.T) {
	store := &fakeStore{missing: []roster.Artist{
		{ID: "art-1", Name: "Adana Twins"},
		{ID: "art-2", Name: "Broken"},
		{ID: "art-3", Name: "Zimmer"},
	}}
	client := &fakeClient{
		searchResults: map[string][]catalog.Candidate{
			"Adana Twins": {strongCandidate("cat-1", "Adana Twins")},
			"Zimmer":      {strongCandidate("cat-3", "Zimmer")},
		},
		searchErr: map[string]error{
			"Broken": &catalog.APIError{Service: catalog.ServiceName, Status: 503},
		},
	}

	res, err := newOrchestrator(store, client).Run(context.Background(), ModeNew)
	if err != nil {
		t.Fatalf("row failures must not abort the run: %v", err)
	}

	if res.Total != 3 || res.Updated != 2 || res.Failed != 1 {
		t.Errorf("counters = %+v", res)
	}
	if res.Outcomes[1].Status != StatusError || res.Outcomes[1].Error == "" {
		t.Errorf("failed outcome = %+v", res.Outcomes[1])
	}
	// The row after the failure was still processed.
	if res.Outcomes[2].Status != StatusUpdated {
		t.Errorf("third outcome = %+v", res.Outcomes[2])
	}
}

func TestRunAuthFailureAbortsRun(t *testing.T) {
	store := &fakeStore{missing: []roster.Artist{
		{ID: "art-1", Name: "First"},
		{ID: "art-2", Name: "Second"},
	}}
	client := &fakeClient{searchErr: map[string]error{
		"First":  &catalog.AuthError{Status: 401},
		"Second": &catalog.AuthError{Status: 401},
	}}

	res, err := newOrchestrator(store, client).Run(context.Background(), ModeNew)

	var authErr *catalog.AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("err = %v, want *catalog.AuthError", err)
	}
	if len(res.Outcomes) != 1 {
		t.Errorf("run should stop at the first auth failure, got %d outcomes", len(res.Outcomes))
	}
}

func TestRunRosterReadFailureAbortsRun(t *testing.T) {
	store := &fakeStore{listErr: errors.New("disk gone")}

	_, err := newOrchestrator(store, &fakeClient{}).Run(context.Background(), ModeNew)
	if err == nil {
		t.Fatal("expected run-level error")
	}
}

func TestRunModeRefresh(t *testing.T) {
	store := &fakeStore{linked: []roster.Artist{
		{ID: "art-1", Name: "Nora En Pure", CatalogID: "cat-1"},
		{ID: "art-2", Name: "Gone", CatalogID: "cat-gone"},
	}}
	fresh := strongCandidate("cat-1", "Nora En Pure")
	client := &fakeClient{artists: map[string]*catalog.Candidate{"cat-1": &fresh}}

	res, err := newOrchestrator(store, client).Run(context.Background(), ModeRefresh)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if res.Updated != 1 || res.Failed != 1 || res.Skipped != 0 {
		t.Errorf("counters = updated %d skipped %d failed %d", res.Updated, res.Skipped, res.Failed)
	}
	if len(store.dataWrites) != 1 || store.dataWrites[0] != "art-1" {
		t.Errorf("data writes = %v", store.dataWrites)
	}
	if res.Outcomes[1].Status != StatusNotFound {
		t.Errorf("vanished artist outcome = %+v", res.Outcomes[1])
	}
}

func TestRunUnknownMode(t *testing.T) {
	_, err := newOrchestrator(&fakeStore{}, &fakeClient{}).Run(context.Background(), Mode("bogus"))
	if err == nil {
		t.Fatal("expected error for unknown mode")
	}
}

func TestRunContextCancellation(t *testing.T) {
	store := &fakeStore{missing: []roster.Artist{
		{ID: "art-1", Name: "First"},
		{ID: "art-2", Name: "Second"},
	}}
	client := &fakeClient{searchResults: map[string][]catalog.Candidate{
		"First":  {strongCandidate("cat-1", "First")},
		"Second": {strongCandidate("cat-2", "Second")},
	}}

	ctx, cancel := context.WithCancel(context.Background())
	o := NewOrchestrator(store, client, slog.New(slog.NewTextHandler(io.Discard, nil)), time.Millisecond)
	o.SetSleep(func(ctx context.Context, _ time.Duration) error {
		cancel()
		return ctx.Err()
	})

	res, err := o.Run(ctx, ModeNew)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if len(res.Outcomes) != 1 {
		t.Errorf("outcomes = %d, want 1 before cancellation", len(res.Outcomes))
	}
}

func TestSyncReleasesPicksLatest(t *testing.T) {
	store := &fakeStore{linked: []roster.Artist{
		{ID: "art-1", Name: "Nora En Pure", CatalogID: "cat-1"},
	}}
	client := &fakeClient{albums: map[string][]catalog.Album{
		"cat-1": {
			{ID: "alb-1", Name: "Older EP", ReleaseDate: "2024-03-01", AlbumType: "single"},
			{ID: "alb-2", Name: "Fresh Cut", ReleaseDate: "2025-06-20", AlbumType: "single",
				Images:     []catalog.Image{{URL: "https://img.example/alb-2"}},
				ProfileURL: "https://open.spotify.com/album/alb-2"},
			{ID: "alb-3", Name: "Year Only", ReleaseDate: "2023"},
		},
	}}

	res, err := newOrchestrator(store, client).SyncReleases(context.Background())
	if err != nil {
		t.Fatalf("SyncReleases: %v", err)
	}

	if res.Updated != 1 {
		t.Fatalf("updated = %d, want 1", res.Updated)
	}
	rel := store.releaseWrites["art-1"]
	if rel == nil {
		t.Fatal("no release recorded")
	}
	if rel.Name != "Fresh Cut" || rel.Date != "2025-06-20" || rel.Type != "single" {
		t.Errorf("release = %+v", rel)
	}
	if rel.ImageURL != "https://img.example/alb-2" {
		t.Errorf("release image = %q", rel.ImageURL)
	}
}

func TestSyncReleasesNoAlbums(t *testing.T) {
	store := &fakeStore{linked: []roster.Artist{
		{ID: "art-1", Name: "Quiet", CatalogID: "cat-1"},
	}}
	client := &fakeClient{albums: map[string][]catalog.Album{"cat-1": nil}}

	res, err := newOrchestrator(store, client).SyncReleases(context.Background())
	if err != nil {
		t.Fatalf("SyncReleases: %v", err)
	}
	if res.Failed != 1 || res.Skipped != 0 || store.releaseWrites != nil {
		t.Errorf("counters = skipped %d failed %d, writes = %v", res.Skipped, res.Failed, store.releaseWrites)
	}
}
