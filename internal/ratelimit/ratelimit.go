// Package ratelimit meters sensitive operations with a database-backed
// sliding window, so limits survive restarts and apply across replicas
// sharing the database. Storage failures fail open: a broken limiter must
// never take the protected endpoint down with it.
package ratelimit

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Operation names a metered action.
type Operation string

// Metered operations.
const (
	OpDemoSubmission Operation = "demo_submission"
	OpAdminSync      Operation = "admin_sync"
	OpLogin          Operation = "login_attempt"
)

// Limit is the window policy for one operation.
type Limit struct {
	Max    int
	Window time.Duration
}

// limits maps each operation to its policy. Unknown operations are allowed.
var limits = map[Operation]Limit{
	OpDemoSubmission: {Max: 3, Window: time.Hour},
	OpAdminSync:      {Max: 2, Window: 5 * time.Minute},
	OpLogin:          {Max: 5, Window: 15 * time.Minute},
}

// retentionAge is how long attempt rows are kept before cleanup.
const retentionAge = 24 * time.Hour

// Decision is the outcome of a rate limit check.
type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// Service records and checks operation attempts.
type Service struct {
	db     *sql.DB
	logger *slog.Logger
	now    func() time.Time
}

// NewService creates a rate limit service.
func NewService(db *sql.DB, logger *slog.Logger) *Service {
	return &Service{db: db, logger: logger, now: time.Now}
}

// SetClock overrides the time source for tests.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// Check reports whether identifier may perform op right now. It does not
// record an attempt. Storage errors are logged and the check passes.
func (s *Service) Check(ctx context.Context, identifier string, op Operation) Decision {
	limit, ok := limits[op]
	if !ok {
		return Decision{Allowed: true}
	}

	now := s.now().UTC()
	windowStart := now.Add(-limit.Window)

	var count int
	var oldest sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), MIN(attempted_at) FROM rate_limit_attempts
		WHERE identifier = ? AND operation = ? AND attempted_at >= ?
	`, identifier, string(op), windowStart.Format(time.RFC3339)).Scan(&count, &oldest)
	if err != nil {
		s.logger.Error("rate limit check failed, allowing request",
			"operation", op, "error", err)
		return Decision{Allowed: true, Remaining: limit.Max}
	}

	if count >= limit.Max {
		retry := limit.Window
		if oldest.Valid {
			if t, perr := time.Parse(time.RFC3339, oldest.String); perr == nil {
				retry = t.Add(limit.Window).Sub(now)
			}
		}
		if retry < 0 {
			retry = 0
		}
		return Decision{Allowed: false, RetryAfter: retry}
	}
	return Decision{Allowed: true, Remaining: limit.Max - count}
}

// Record stores one attempt. Metadata is optional free-form context, such
// as a submission email or sync mode. Storage errors are logged only.
func (s *Service) Record(ctx context.Context, identifier string, op Operation, metadata string) {
	now := s.now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO rate_limit_attempts (id, identifier, operation, attempted_at, metadata)
		VALUES (?, ?, ?, ?, ?)
	`, uuid.New().String(), identifier, string(op), now.Format(time.RFC3339), nullIfEmpty(metadata))
	if err != nil {
		s.logger.Error("recording rate limit attempt failed",
			"operation", op, "error", err)
	}
}

// Allow combines Check and Record: if the attempt is allowed it is also
// counted. Callers that only want to count successful actions use Check
// and Record separately.
func (s *Service) Allow(ctx context.Context, identifier string, op Operation, metadata string) Decision {
	d := s.Check(ctx, identifier, op)
	if d.Allowed {
		s.Record(ctx, identifier, op, metadata)
	}
	return d
}

// Cleanup deletes attempt rows older than the retention age and returns
// the number removed.
func (s *Service) Cleanup(ctx context.Context) (int64, error) {
	cutoff := s.now().UTC().Add(-retentionAge)
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM rate_limit_attempts WHERE attempted_at < ?`,
		cutoff.Format(time.RFC3339))
	if err != nil {
		return 0, fmt.Errorf("cleaning rate limit attempts: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
