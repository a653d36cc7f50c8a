// Package stats aggregates the admin dashboard counters. Each counter is
// collected independently; a failing query zeroes that one counter and the
// dashboard still renders.
package stats

import (
	"context"
	"log/slog"
	"time"
)

// Dashboard is the admin overview payload.
type Dashboard struct {
	PendingSubmissions   int       `json:"pending_submissions"`
	TotalArtists         int       `json:"total_artists"`
	SubmissionsLast7Days int       `json:"submissions_last_7_days"`
	SubmissionsThisMonth int       `json:"submissions_this_month"`
	ArtistsUnmatched     int       `json:"artists_unmatched"`
	PlaylistCount        int       `json:"playlist_count"`
	GeneratedAt          time.Time `json:"generated_at"`
}

// RosterCounter exposes the roster counts the dashboard needs.
type RosterCounter interface {
	Count(ctx context.Context) (int, error)
	CountMissingCatalogID(ctx context.Context) (int, error)
}

// SubmissionCounter exposes the submission counts the dashboard needs.
type SubmissionCounter interface {
	CountByStatus(ctx context.Context, status string) (int, error)
	CountSince(ctx context.Context, t time.Time) (int, error)
}

// PlaylistCounter exposes the playlist count the dashboard needs.
type PlaylistCounter interface {
	Count(ctx context.Context) (int, error)
}

// Service collects dashboard statistics.
type Service struct {
	roster      RosterCounter
	submissions SubmissionCounter
	playlists   PlaylistCounter
	logger      *slog.Logger
	now         func() time.Time
}

// NewService creates a stats service.
func NewService(roster RosterCounter, submissions SubmissionCounter, playlists PlaylistCounter, logger *slog.Logger) *Service {
	return &Service{
		roster:      roster,
		submissions: submissions,
		playlists:   playlists,
		logger:      logger,
		now:         time.Now,
	}
}

// SetClock overrides the time source for tests.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// Dashboard collects all counters. Individual failures are logged and the
// affected counter stays zero.
func (s *Service) Dashboard(ctx context.Context) *Dashboard {
	now := s.now().UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	d := &Dashboard{GeneratedAt: now}
	d.PendingSubmissions = s.collect("pending_submissions", func() (int, error) {
		return s.submissions.CountByStatus(ctx, "pending")
	})
	d.TotalArtists = s.collect("total_artists", func() (int, error) {
		return s.roster.Count(ctx)
	})
	d.SubmissionsLast7Days = s.collect("submissions_last_7_days", func() (int, error) {
		return s.submissions.CountSince(ctx, now.AddDate(0, 0, -7))
	})
	d.SubmissionsThisMonth = s.collect("submissions_this_month", func() (int, error) {
		return s.submissions.CountSince(ctx, monthStart)
	})
	d.ArtistsUnmatched = s.collect("artists_unmatched", func() (int, error) {
		return s.roster.CountMissingCatalogID(ctx)
	})
	d.PlaylistCount = s.collect("playlist_count", func() (int, error) {
		return s.playlists.Count(ctx)
	})
	return d
}

func (s *Service) collect(name string, fn func() (int, error)) int {
	n, err := fn()
	if err != nil {
		s.logger.Error("dashboard stat failed", "stat", name, "error", err)
		return 0
	}
	return n
}
