// Package submission handles demo submission intake and review.
package submission

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Review statuses a submission moves through.
const (
	StatusPending   = "pending"
	StatusReviewing = "reviewing"
	StatusApproved  = "approved"
	StatusRejected  = "rejected"
)

// Lookup and conflict errors.
var (
	ErrNotFound  = errors.New("submission not found")
	ErrDuplicate = errors.New("a submission for this email and track already exists")
)

// Submission is a stored demo submission.
type Submission struct {
	ID                string    `json:"id"`
	FirstName         string    `json:"first_name"`
	LastName          string    `json:"last_name"`
	Email             string    `json:"email"`
	ArtistName        string    `json:"artist_name"`
	TrackTitle        string    `json:"track_title"`
	Genres            []string  `json:"genres"`
	InstagramHandle   string    `json:"instagram_handle,omitempty"`
	CatalogProfileURL string    `json:"catalog_profile_url,omitempty"`
	AdditionalInfo    string    `json:"additional_info,omitempty"`
	BPM               int       `json:"bpm,omitempty"`
	Status            string    `json:"status"`
	SubmittedAt       time.Time `json:"submitted_at"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// ValidStatus reports whether s is a known review status.
func ValidStatus(s string) bool {
	switch s {
	case StatusPending, StatusReviewing, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// Service provides submission data operations.
type Service struct {
	db *sql.DB
}

// NewService creates a submission service.
func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

const submissionColumns = `id, first_name, last_name, email, artist_name, track_title,
	genres, instagram_handle, catalog_profile_url, additional_info, bpm,
	status, submitted_at, created_at, updated_at`

// Create validates and stores a new submission. A repeat submission of the
// same track by the same email returns ErrDuplicate.
func (s *Service) Create(ctx context.Context, in *Input) (*Submission, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	sub := &Submission{
		ID:                uuid.New().String(),
		FirstName:         in.FirstName,
		LastName:          in.LastName,
		Email:             in.Email,
		ArtistName:        in.ArtistName,
		TrackTitle:        in.TrackTitle,
		Genres:            in.Genres,
		InstagramHandle:   in.InstagramHandle,
		CatalogProfileURL: in.CatalogProfileURL,
		AdditionalInfo:    in.AdditionalInfo,
		BPM:               in.BPM,
		Status:            StatusPending,
		SubmittedAt:       now,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO submissions (
			id, first_name, last_name, email, artist_name, track_title,
			genres, instagram_handle, catalog_profile_url, additional_info, bpm,
			status, submitted_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		sub.ID, sub.FirstName, sub.LastName, sub.Email, sub.ArtistName, sub.TrackTitle,
		strings.Join(sub.Genres, ","), nullIfEmpty(sub.InstagramHandle),
		nullIfEmpty(sub.CatalogProfileURL), nullIfEmpty(sub.AdditionalInfo), nullIfZero(sub.BPM),
		sub.Status, now.Format(time.RFC3339), now.Format(time.RFC3339), now.Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("creating submission: %w", err)
	}
	return sub, nil
}

// GetByID retrieves one submission.
func (s *Service) GetByID(ctx context.Context, id string) (*Submission, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+submissionColumns+` FROM submissions WHERE id = ?`, id)
	sub, err := scanSubmission(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting submission: %w", err)
	}
	return sub, nil
}

// List returns submissions newest first, optionally filtered by status.
func (s *Service) List(ctx context.Context, status string) ([]Submission, error) {
	query := `SELECT ` + submissionColumns + ` FROM submissions`
	var args []any
	if status != "" {
		if !ValidStatus(status) {
			return nil, fmt.Errorf("unknown status %q", status)
		}
		query += ` WHERE status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY submitted_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing submissions: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var subs []Submission
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning submission: %w", err)
		}
		subs = append(subs, *sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating submissions: %w", err)
	}
	return subs, nil
}

// UpdateStatus moves a submission to a new review status.
func (s *Service) UpdateStatus(ctx context.Context, id, status string) error {
	if !ValidStatus(status) {
		return fmt.Errorf("unknown status %q", status)
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE submissions SET status = ?, updated_at = ? WHERE id = ?
	`, status, time.Now().UTC().Format(time.RFC3339), id)
	if err != nil {
		return fmt.Errorf("updating submission status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a submission.
func (s *Service) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM submissions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting submission: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// CountByStatus returns the number of submissions in the given status.
func (s *Service) CountByStatus(ctx context.Context, status string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM submissions WHERE status = ?`, status).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting submissions: %w", err)
	}
	return n, nil
}

// CountSince returns the number of submissions received at or after t.
func (s *Service) CountSince(ctx context.Context, t time.Time) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM submissions WHERE submitted_at >= ?`,
		t.UTC().Format(time.RFC3339)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting submissions: %w", err)
	}
	return n, nil
}

func scanSubmission(row interface{ Scan(...any) error }) (*Submission, error) {
	var sub Submission
	var genres string
	var instagram, profileURL, info sql.NullString
	var bpm sql.NullInt64
	var submittedAt, createdAt, updatedAt string

	err := row.Scan(
		&sub.ID, &sub.FirstName, &sub.LastName, &sub.Email, &sub.ArtistName, &sub.TrackTitle,
		&genres, &instagram, &profileURL, &info, &bpm,
		&sub.Status, &submittedAt, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if genres != "" {
		sub.Genres = strings.Split(genres, ",")
	}
	sub.InstagramHandle = instagram.String
	sub.CatalogProfileURL = profileURL.String
	sub.AdditionalInfo = info.String
	sub.BPM = int(bpm.Int64)

	if t, err := time.Parse(time.RFC3339, submittedAt); err == nil {
		sub.SubmittedAt = t
	}
	if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
		sub.CreatedAt = t
	}
	if t, err := time.Parse(time.RFC3339, updatedAt); err == nil {
		sub.UpdatedAt = t
	}
	return &sub, nil
}

// isUniqueViolation detects the driver's unique constraint error without
// binding to driver-specific error types.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullIfZero(n int) any {
	if n == 0 {
		return nil
	}
	return n
}
