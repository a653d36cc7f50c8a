package roster

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// artistColumns is the ordered list of columns for SELECT queries.
const artistColumns = `id, name, image_url, catalog_id, catalog_url,
	apple_music_url, instagram_url,
	latest_release_date, latest_release_name, latest_release_type,
	latest_release_image, latest_release_url,
	created_at, updated_at`

// ErrNotFound is returned when a roster artist does not exist.
var ErrNotFound = errors.New("artist not found")

// Service provides roster artist data operations.
type Service struct {
	db *sql.DB
}

// NewService creates a roster service.
func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

// Create inserts a new roster artist.
func (s *Service) Create(ctx context.Context, a *Artist) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	a.CreatedAt = now
	a.UpdatedAt = now

	var rel Release
	if a.LatestRelease != nil {
		rel = *a.LatestRelease
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO artists (
			id, name, image_url, catalog_id, catalog_url,
			apple_music_url, instagram_url,
			latest_release_date, latest_release_name, latest_release_type,
			latest_release_image, latest_release_url,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		a.ID, a.Name, nullIfEmpty(a.ImageURL), nullIfEmpty(a.CatalogID), nullIfEmpty(a.CatalogURL),
		nullIfEmpty(a.AppleMusicURL), nullIfEmpty(a.InstagramURL),
		nullIfEmpty(rel.Date), nullIfEmpty(rel.Name), nullIfEmpty(rel.Type),
		nullIfEmpty(rel.ImageURL), nullIfEmpty(rel.URL),
		now.Format(time.RFC3339), now.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("creating artist: %w", err)
	}
	return nil
}

// GetByID retrieves a roster artist by primary key.
func (s *Service) GetByID(ctx context.Context, id string) (*Artist, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+artistColumns+` FROM artists WHERE id = ?`, id)
	a, err := scanArtist(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting artist by id: %w", err)
	}
	return a, nil
}

// Update replaces the editable fields of a roster artist.
func (s *Service) Update(ctx context.Context, a *Artist) error {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		UPDATE artists SET
			name = ?, image_url = ?, catalog_id = ?, catalog_url = ?,
			apple_music_url = ?, instagram_url = ?, updated_at = ?
		WHERE id = ?
	`,
		a.Name, nullIfEmpty(a.ImageURL), nullIfEmpty(a.CatalogID), nullIfEmpty(a.CatalogURL),
		nullIfEmpty(a.AppleMusicURL), nullIfEmpty(a.InstagramURL), now.Format(time.RFC3339),
		a.ID,
	)
	if err != nil {
		return fmt.Errorf("updating artist: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	a.UpdatedAt = now
	return nil
}

// Delete removes a roster artist.
func (s *Service) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM artists WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting artist: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListParams controls roster listing.
type ListParams struct {
	Sort   string // "name" or "recent"
	Filter string // "all", "recent" (6 months), "active" (1 year)
}

// Validate normalizes list parameters to known values.
func (p *ListParams) Validate() {
	switch p.Sort {
	case "name", "recent":
	default:
		p.Sort = "name"
	}
	switch p.Filter {
	case "all", "recent", "active":
	default:
		p.Filter = "all"
	}
}

// List returns roster artists with release recency annotations.
func (s *Service) List(ctx context.Context, params ListParams) ([]Artist, error) {
	params.Validate()

	query := `SELECT ` + artistColumns + ` FROM artists`
	var args []any

	now := time.Now().UTC()
	switch params.Filter {
	case "recent":
		query += ` WHERE latest_release_date >= ?`
		args = append(args, now.AddDate(0, -6, 0).Format("2006-01-02"))
	case "active":
		query += ` WHERE latest_release_date >= ?`
		args = append(args, now.AddDate(-1, 0, 0).Format("2006-01-02"))
	}

	if params.Sort == "recent" {
		query += ` ORDER BY latest_release_date IS NULL, latest_release_date DESC, name COLLATE NOCASE ASC`
	} else {
		query += ` ORDER BY name COLLATE NOCASE ASC`
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing artists: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	artists, err := collectArtists(rows)
	if err != nil {
		return nil, err
	}
	for i := range artists {
		if artists[i].LatestRelease != nil {
			artists[i].ReleaseRecency = Recency(artists[i].LatestRelease.Date, now)
		}
	}
	return artists, nil
}

// ListMissingCatalogID returns artists with no catalog linkage, name ascending.
// This is the input set for a new-artist sync run.
func (s *Service) ListMissingCatalogID(ctx context.Context) ([]Artist, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+artistColumns+` FROM artists
		WHERE catalog_id IS NULL
		ORDER BY name COLLATE NOCASE ASC`)
	if err != nil {
		return nil, fmt.Errorf("listing unmatched artists: %w", err)
	}
	defer rows.Close() //nolint:errcheck
	return collectArtists(rows)
}

// ListWithCatalogID returns artists already linked to the catalog, name ascending.
// This is the input set for a refresh sync run.
func (s *Service) ListWithCatalogID(ctx context.Context) ([]Artist, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+artistColumns+` FROM artists
		WHERE catalog_id IS NOT NULL
		ORDER BY name COLLATE NOCASE ASC`)
	if err != nil {
		return nil, fmt.Errorf("listing matched artists: %w", err)
	}
	defer rows.Close() //nolint:errcheck
	return collectArtists(rows)
}

// Count returns the total number of roster artists.
func (s *Service) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM artists`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting artists: %w", err)
	}
	return n, nil
}

// CountMissingCatalogID returns the number of artists without catalog linkage.
func (s *Service) CountMissingCatalogID(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM artists WHERE catalog_id IS NULL`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting unmatched artists: %w", err)
	}
	return n, nil
}

// UpdateCatalogMatch records a newly accepted catalog match. The image URL is
// written only when the row has none; an existing image is never overwritten
// by a match.
func (s *Service) UpdateCatalogMatch(ctx context.Context, id, catalogID, catalogURL, imageURL string) error {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.ExecContext(ctx, `
		UPDATE artists SET
			catalog_id = ?,
			catalog_url = ?,
			image_url = COALESCE(image_url, ?),
			updated_at = ?
		WHERE id = ?
	`, catalogID, nullIfEmpty(catalogURL), nullIfEmpty(imageURL), now, id)
	if err != nil {
		return fmt.Errorf("recording catalog match: %w", err)
	}
	return nil
}

// UpdateCatalogData overwrites the catalog-derived presentation fields with
// fresh data. Refresh runs always replace the stored image and profile URL.
func (s *Service) UpdateCatalogData(ctx context.Context, id, catalogURL, imageURL string) error {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.ExecContext(ctx, `
		UPDATE artists SET
			catalog_url = ?,
			image_url = ?,
			updated_at = ?
		WHERE id = ?
	`, nullIfEmpty(catalogURL), nullIfEmpty(imageURL), now, id)
	if err != nil {
		return fmt.Errorf("refreshing catalog data: %w", err)
	}
	return nil
}

// UpdateLatestRelease records an artist's most recent catalog release.
func (s *Service) UpdateLatestRelease(ctx context.Context, id string, rel *Release) error {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.ExecContext(ctx, `
		UPDATE artists SET
			latest_release_date = ?,
			latest_release_name = ?,
			latest_release_type = ?,
			latest_release_image = ?,
			latest_release_url = ?,
			updated_at = ?
		WHERE id = ?
	`,
		nullIfEmpty(rel.Date), nullIfEmpty(rel.Name), nullIfEmpty(rel.Type),
		nullIfEmpty(rel.ImageURL), nullIfEmpty(rel.URL), now, id)
	if err != nil {
		return fmt.Errorf("recording latest release: %w", err)
	}
	return nil
}

// collectArtists drains a result set into a slice.
func collectArtists(rows *sql.Rows) ([]Artist, error) {
	var artists []Artist
	for rows.Next() {
		a, err := scanArtist(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning artist: %w", err)
		}
		artists = append(artists, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating artists: %w", err)
	}
	return artists, nil
}

// scanArtist scans a database row into an Artist struct.
func scanArtist(row interface{ Scan(...any) error }) (*Artist, error) {
	var a Artist
	var imageURL, catalogID, catalogURL, appleMusicURL, instagramURL sql.NullString
	var relDate, relName, relType, relImage, relURL sql.NullString
	var createdAt, updatedAt string

	err := row.Scan(
		&a.ID, &a.Name, &imageURL, &catalogID, &catalogURL,
		&appleMusicURL, &instagramURL,
		&relDate, &relName, &relType, &relImage, &relURL,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	a.ImageURL = imageURL.String
	a.CatalogID = catalogID.String
	a.CatalogURL = catalogURL.String
	a.AppleMusicURL = appleMusicURL.String
	a.InstagramURL = instagramURL.String

	if relDate.Valid || relName.Valid {
		a.LatestRelease = &Release{
			Date:     relDate.String,
			Name:     relName.String,
			Type:     relType.String,
			ImageURL: relImage.String,
			URL:      relURL.String,
		}
	}

	if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
		a.CreatedAt = t
	}
	if t, err := time.Parse(time.RFC3339, updatedAt); err == nil {
		a.UpdatedAt = t
	}

	return &a, nil
}

// nullIfEmpty maps empty strings to SQL NULL so partial indexes and
// COALESCE-based writes behave.
func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
