// Package catalogsync drives the roster-to-catalog reconciliation runs.
// Runs are strictly sequential: one roster row at a time with a pacing
// delay between rows, so a large roster never bursts the catalog API.
package catalogsync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/backlinefm/backline/internal/catalog"
	"github.com/backlinefm/backline/internal/match"
	"github.com/backlinefm/backline/internal/roster"
)

// Mode selects which roster rows a run processes.
type Mode string

// Run modes.
const (
	// ModeNew matches roster artists that have no catalog linkage yet.
	ModeNew Mode = "new_artists"
	// ModeRefresh re-fetches presentation data for already-linked artists.
	ModeRefresh Mode = "refresh"
)

// Per-row outcome statuses.
const (
	StatusUpdated  = "updated"
	StatusNotFound = "not_found"
	StatusError    = "error"
)

// defaultRowDelay paces sequential rows when no delay is configured.
const defaultRowDelay = 150 * time.Millisecond

// Store is the roster persistence surface a run needs.
type Store interface {
	ListMissingCatalogID(ctx context.Context) ([]roster.Artist, error)
	ListWithCatalogID(ctx context.Context) ([]roster.Artist, error)
	UpdateCatalogMatch(ctx context.Context, id, catalogID, catalogURL, imageURL string) error
	UpdateCatalogData(ctx context.Context, id, catalogURL, imageURL string) error
	UpdateLatestRelease(ctx context.Context, id string, rel *roster.Release) error
}

// CatalogClient is the catalog API surface a run needs.
type CatalogClient interface {
	SearchArtist(ctx context.Context, name string) ([]catalog.Candidate, error)
	GetArtist(ctx context.Context, id string) (*catalog.Candidate, error)
	GetArtistAlbums(ctx context.Context, id string, limit int) ([]catalog.Album, error)
}

// Outcome records what happened to one roster row during a run.
type Outcome struct {
	ArtistID   string             `json:"artist_id"`
	ArtistName string             `json:"artist_name"`
	Status     string             `json:"status"`
	CatalogID  string             `json:"catalog_id,omitempty"`
	Confidence match.Confidence   `json:"confidence,omitempty"`
	Score      int                `json:"score,omitempty"`
	Reasons    []string           `json:"reasons,omitempty"`
	Candidate  *catalog.Candidate `json:"candidate,omitempty"`
	Error      string             `json:"error,omitempty"`

	// err keeps the original error so the run loop can classify it.
	err error
}

// Result summarizes a completed run. Outcomes are in processing order.
// Failed counts every row that produced no write, not_found included;
// Skipped is reserved for rows excluded before processing.
type Result struct {
	Mode     Mode      `json:"mode"`
	Total    int       `json:"total"`
	Updated  int       `json:"updated"`
	Skipped  int       `json:"skipped"`
	Failed   int       `json:"failed"`
	Outcomes []Outcome `json:"outcomes"`
}

// Orchestrator runs catalog sync passes over the roster.
type Orchestrator struct {
	store    Store
	client   CatalogClient
	logger   *slog.Logger
	rowDelay time.Duration
	sleep    func(context.Context, time.Duration) error
}

// NewOrchestrator creates an orchestrator with the given pacing delay.
// A non-positive delay falls back to the default.
func NewOrchestrator(store Store, client CatalogClient, logger *slog.Logger, rowDelay time.Duration) *Orchestrator {
	if rowDelay <= 0 {
		rowDelay = defaultRowDelay
	}
	return &Orchestrator{
		store:    store,
		client:   client,
		logger:   logger,
		rowDelay: rowDelay,
		sleep:    sleepCtx,
	}
}

// SetSleep overrides the inter-row sleep. Tests use this to run instantly.
func (o *Orchestrator) SetSleep(fn func(context.Context, time.Duration) error) {
	o.sleep = fn
}

// Run executes one sync pass in the given mode. Authentication failures and
// the initial roster read abort the whole run; any other per-row failure is
// recorded and the run continues with the next row.
func (o *Orchestrator) Run(ctx context.Context, mode Mode) (*Result, error) {
	var (
		artists []roster.Artist
		err     error
	)
	switch mode {
	case ModeNew:
		artists, err = o.store.ListMissingCatalogID(ctx)
	case ModeRefresh:
		artists, err = o.store.ListWithCatalogID(ctx)
	default:
		return nil, fmt.Errorf("unknown sync mode %q", mode)
	}
	if err != nil {
		return nil, fmt.Errorf("reading roster for %s sync: %w", mode, err)
	}

	result := &Result{Mode: mode, Total: len(artists)}
	o.logger.Info("catalog sync started", "mode", mode, "artists", len(artists))

	for i, artist := range artists {
		if i > 0 {
			if err := o.sleep(ctx, o.rowDelay); err != nil {
				return result, err
			}
		}
		if err := ctx.Err(); err != nil {
			return result, err
		}

		var outcome Outcome
		switch mode {
		case ModeNew:
			outcome = o.matchArtist(ctx, artist)
		case ModeRefresh:
			outcome = o.refreshArtist(ctx, artist)
		}

		var authErr *catalog.AuthError
		if outcome.Status == StatusError && errors.As(outcome.err, &authErr) {
			// Credentials are broken; every remaining row would fail the
			// same way. Abort the run.
			result.Outcomes = append(result.Outcomes, outcome)
			result.Failed++
			return result, authErr
		}

		switch outcome.Status {
		case StatusUpdated:
			result.Updated++
		case StatusNotFound, StatusError:
			result.Failed++
		}
		result.Outcomes = append(result.Outcomes, outcome)
	}

	o.logger.Info("catalog sync finished",
		"mode", mode,
		"total", result.Total,
		"updated", result.Updated,
		"skipped", result.Skipped,
		"failed", result.Failed)
	return result, nil
}

// matchArtist searches the catalog for one unlinked artist and applies the
// best match when confidence is high. Medium confidence keeps the candidate
// in the outcome for manual review but writes nothing.
func (o *Orchestrator) matchArtist(ctx context.Context, artist roster.Artist) Outcome {
	outcome := Outcome{ArtistID: artist.ID, ArtistName: artist.Name}

	candidates, err := o.client.SearchArtist(ctx, artist.Name)
	if err != nil {
		o.logger.Error("catalog search failed", "artist", artist.Name, "error", err)
		outcome.Status = StatusError
		outcome.Error = err.Error()
		outcome.err = err
		return outcome
	}

	res := match.Evaluate(artist.Name, candidates)
	outcome.Confidence = res.Confidence
	outcome.Score = res.Value
	outcome.Reasons = res.Reasons

	if res.Best == nil || res.Confidence == match.ConfidenceLow {
		outcome.Status = StatusNotFound
		return outcome
	}

	best := res.Best.Candidate
	if res.Confidence == match.ConfidenceMedium {
		// Not confident enough to link automatically; surface the
		// candidate so an operator can decide.
		o.logger.Info("ambiguous catalog match",
			"artist", artist.Name, "candidate", best.Name, "score", res.Value)
		outcome.Status = StatusNotFound
		outcome.Candidate = &best
		return outcome
	}

	if err := o.store.UpdateCatalogMatch(ctx, artist.ID, best.ID, best.ProfileURL, best.ImageURL()); err != nil {
		o.logger.Error("recording catalog match failed", "artist", artist.Name, "error", err)
		outcome.Status = StatusError
		outcome.Error = err.Error()
		outcome.err = err
		return outcome
	}

	o.logger.Info("catalog match applied",
		"artist", artist.Name, "catalog_id", best.ID, "score", res.Value)
	outcome.Status = StatusUpdated
	outcome.CatalogID = best.ID
	outcome.Candidate = &best
	return outcome
}

// refreshArtist re-fetches one linked artist by catalog ID and overwrites
// the stored image and profile URL with current values.
func (o *Orchestrator) refreshArtist(ctx context.Context, artist roster.Artist) Outcome {
	outcome := Outcome{ArtistID: artist.ID, ArtistName: artist.Name, CatalogID: artist.CatalogID}

	cand, err := o.client.GetArtist(ctx, artist.CatalogID)
	if err != nil {
		var nf *catalog.ErrNotFound
		if errors.As(err, &nf) {
			// The linked entity no longer exists in the catalog.
			o.logger.Warn("linked catalog artist gone",
				"artist", artist.Name, "catalog_id", artist.CatalogID)
			outcome.Status = StatusNotFound
			return outcome
		}
		o.logger.Error("catalog lookup failed", "artist", artist.Name, "error", err)
		outcome.Status = StatusError
		outcome.Error = err.Error()
		outcome.err = err
		return outcome
	}

	if err := o.store.UpdateCatalogData(ctx, artist.ID, cand.ProfileURL, cand.ImageURL()); err != nil {
		o.logger.Error("refreshing catalog data failed", "artist", artist.Name, "error", err)
		outcome.Status = StatusError
		outcome.Error = err.Error()
		outcome.err = err
		return outcome
	}

	outcome.Status = StatusUpdated
	return outcome
}

// SyncReleases fetches each linked artist's latest release and records it
// on the roster row. Uses the same sequencing and error containment as Run.
func (o *Orchestrator) SyncReleases(ctx context.Context) (*Result, error) {
	artists, err := o.store.ListWithCatalogID(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading roster for release sync: %w", err)
	}

	result := &Result{Mode: "releases", Total: len(artists)}
	o.logger.Info("release sync started", "artists", len(artists))

	for i, artist := range artists {
		if i > 0 {
			if err := o.sleep(ctx, o.rowDelay); err != nil {
				return result, err
			}
		}
		if err := ctx.Err(); err != nil {
			return result, err
		}

		outcome := o.syncArtistReleases(ctx, artist)

		var authErr *catalog.AuthError
		if outcome.Status == StatusError && errors.As(outcome.err, &authErr) {
			result.Outcomes = append(result.Outcomes, outcome)
			result.Failed++
			return result, authErr
		}

		switch outcome.Status {
		case StatusUpdated:
			result.Updated++
		case StatusNotFound, StatusError:
			result.Failed++
		}
		result.Outcomes = append(result.Outcomes, outcome)
	}

	o.logger.Info("release sync finished",
		"total", result.Total,
		"updated", result.Updated,
		"skipped", result.Skipped,
		"failed", result.Failed)
	return result, nil
}

func (o *Orchestrator) syncArtistReleases(ctx context.Context, artist roster.Artist) Outcome {
	outcome := Outcome{ArtistID: artist.ID, ArtistName: artist.Name, CatalogID: artist.CatalogID}

	albums, err := o.client.GetArtistAlbums(ctx, artist.CatalogID, 10)
	if err != nil {
		var nf *catalog.ErrNotFound
		if errors.As(err, &nf) {
			outcome.Status = StatusNotFound
			return outcome
		}
		o.logger.Error("fetching releases failed", "artist", artist.Name, "error", err)
		outcome.Status = StatusError
		outcome.Error = err.Error()
		outcome.err = err
		return outcome
	}

	latest := latestRelease(albums)
	if latest == nil {
		outcome.Status = StatusNotFound
		return outcome
	}

	rel := &roster.Release{
		Date:     latest.ReleaseDate,
		Name:     latest.Name,
		Type:     latest.AlbumType,
		ImageURL: latest.ImageURL(),
		URL:      latest.ProfileURL,
	}
	if err := o.store.UpdateLatestRelease(ctx, artist.ID, rel); err != nil {
		o.logger.Error("recording latest release failed", "artist", artist.Name, "error", err)
		outcome.Status = StatusError
		outcome.Error = err.Error()
		outcome.err = err
		return outcome
	}

	o.logger.Info("latest release recorded",
		"artist", artist.Name, "release", latest.Name, "date", latest.ReleaseDate)
	outcome.Status = StatusUpdated
	return outcome
}

// latestRelease picks the album with the lexically greatest release date.
// Catalog dates are zero-padded (YYYY, YYYY-MM or YYYY-MM-DD), so string
// comparison orders them correctly.
func latestRelease(albums []catalog.Album) *catalog.Album {
	var latest *catalog.Album
	for i := range albums {
		if albums[i].ReleaseDate == "" {
			continue
		}
		if latest == nil || albums[i].ReleaseDate > latest.ReleaseDate {
			latest = &albums[i]
		}
	}
	return latest
}

// sleepCtx sleeps for d or returns early with the context's error.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
