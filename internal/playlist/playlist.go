// Package playlist stores the label's curated playlists and assembles the
// public showcase view.
package playlist

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a playlist does not exist.
var ErrNotFound = errors.New("playlist not found")

// Playlist is one curated playlist.
type Playlist struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CuratorNote string    `json:"curator_note"`
	Followers   int       `json:"followers"`
	TrackCount  int       `json:"track_count"`
	ImageURL    string    `json:"image_url,omitempty"`
	CatalogURL  string    `json:"catalog_url,omitempty"`
	IsHero      bool      `json:"is_hero"`
	Position    int       `json:"position"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Showcase is the public playlist page payload: one hero playlist plus the
// supporting list in curated order.
type Showcase struct {
	Hero           *Playlist  `json:"hero,omitempty"`
	Supporting     []Playlist `json:"supporting"`
	TotalFollowers int        `json:"total_followers"`
	PlaylistCount  int        `json:"playlist_count"`
}

// Service provides playlist data operations.
type Service struct {
	db *sql.DB
}

// NewService creates a playlist service.
func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

const playlistColumns = `id, name, description, curator_note, followers, track_count,
	image_url, catalog_url, is_hero, position, updated_at`

// Upsert inserts or replaces a playlist. A missing ID means insert.
// Marking a playlist as hero demotes any previous hero.
func (s *Service) Upsert(ctx context.Context, p *Playlist) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	p.UpdatedAt = now

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting playlist upsert: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if p.IsHero {
		if _, err := tx.ExecContext(ctx,
			`UPDATE playlists SET is_hero = 0 WHERE id != ?`, p.ID); err != nil {
			return fmt.Errorf("demoting previous hero: %w", err)
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO playlists (
			id, name, description, curator_note, followers, track_count,
			image_url, catalog_url, is_hero, position, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			curator_note = excluded.curator_note,
			followers = excluded.followers,
			track_count = excluded.track_count,
			image_url = excluded.image_url,
			catalog_url = excluded.catalog_url,
			is_hero = excluded.is_hero,
			position = excluded.position,
			updated_at = excluded.updated_at
	`,
		p.ID, p.Name, p.Description, p.CuratorNote, p.Followers, p.TrackCount,
		nullIfEmpty(p.ImageURL), nullIfEmpty(p.CatalogURL), boolToInt(p.IsHero),
		p.Position, now.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("upserting playlist: %w", err)
	}
	return tx.Commit()
}

// GetByID retrieves one playlist.
func (s *Service) GetByID(ctx context.Context, id string) (*Playlist, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+playlistColumns+` FROM playlists WHERE id = ?`, id)
	p, err := scanPlaylist(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting playlist: %w", err)
	}
	return p, nil
}

// Delete removes a playlist.
func (s *Service) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM playlists WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting playlist: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns all playlists in curated order, hero first.
func (s *Service) List(ctx context.Context) ([]Playlist, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+playlistColumns+` FROM playlists
		ORDER BY is_hero DESC, position ASC, name COLLATE NOCASE ASC`)
	if err != nil {
		return nil, fmt.Errorf("listing playlists: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var playlists []Playlist
	for rows.Next() {
		p, err := scanPlaylist(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning playlist: %w", err)
		}
		playlists = append(playlists, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating playlists: %w", err)
	}
	return playlists, nil
}

// GetShowcase assembles the public playlist page payload.
func (s *Service) GetShowcase(ctx context.Context) (*Showcase, error) {
	playlists, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	showcase := &Showcase{
		Supporting:    []Playlist{},
		PlaylistCount: len(playlists),
	}
	for i := range playlists {
		showcase.TotalFollowers += playlists[i].Followers
		if playlists[i].IsHero && showcase.Hero == nil {
			showcase.Hero = &playlists[i]
			continue
		}
		showcase.Supporting = append(showcase.Supporting, playlists[i])
	}
	return showcase, nil
}

// Count returns the number of stored playlists.
func (s *Service) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM playlists`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting playlists: %w", err)
	}
	return n, nil
}

func scanPlaylist(row interface{ Scan(...any) error }) (*Playlist, error) {
	var p Playlist
	var imageURL, catalogURL sql.NullString
	var isHero int
	var updatedAt string

	err := row.Scan(
		&p.ID, &p.Name, &p.Description, &p.CuratorNote, &p.Followers, &p.TrackCount,
		&imageURL, &catalogURL, &isHero, &p.Position, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	p.ImageURL = imageURL.String
	p.CatalogURL = catalogURL.String
	p.IsHero = isHero != 0
	if t, err := time.Parse(time.RFC3339, updatedAt); err == nil {
		p.UpdatedAt = t
	}
	return &p, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
