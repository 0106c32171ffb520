package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Speak-Craft/backend/internal/domain/challenge"
	"github.com/Speak-Craft/backend/internal/domain/session"
	"github.com/Speak-Craft/backend/internal/domain/shared"
)

// SessionRepository implements session.Repository on PostgreSQL. Raw metrics
// are stored as JSONB so the schema survives new metric fields without
// migrations.
type SessionRepository struct {
	conn *Connection
}

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(conn *Connection) *SessionRepository {
	return &SessionRepository{conn: conn}
}

const sessionColumns = `id, user_id, domain, level_number, metrics, score, passed, finalized, created_at, updated_at`

// Save implements session.Repository.
func (r *SessionRepository) Save(ctx context.Context, record *session.Record) error {
	metrics, err := json.Marshal(record.Metrics)
	if err != nil {
		return fmt.Errorf("postgres: failed to encode session metrics: %w", err)
	}

	query := `
		INSERT INTO session_records
			(id, user_id, domain, level_number, metrics, score, passed, finalized, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err = r.conn.Exec(ctx, query,
		record.ID,
		record.UserID.String(),
		record.Domain.String(),
		record.LevelNumber,
		metrics,
		record.Score.Float64(),
		record.Passed,
		record.Finalized,
		record.CreatedAt,
		record.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.ErrAlreadyExists
		}
		return fmt.Errorf("postgres: failed to save session record: %w", err)
	}
	return nil
}

// Update implements session.Repository.
func (r *SessionRepository) Update(ctx context.Context, record *session.Record) error {
	metrics, err := json.Marshal(record.Metrics)
	if err != nil {
		return fmt.Errorf("postgres: failed to encode session metrics: %w", err)
	}

	query := `
		UPDATE session_records
		SET level_number = $2,
		    metrics = $3,
		    score = $4,
		    passed = $5,
		    finalized = $6,
		    updated_at = $7
		WHERE id = $1
	`

	tag, err := r.conn.Exec(ctx, query,
		record.ID,
		record.LevelNumber,
		metrics,
		record.Score.Float64(),
		record.Passed,
		record.Finalized,
		record.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: failed to update session record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrSessionNotFound
	}
	return nil
}

// FindActive implements session.Repository.
func (r *SessionRepository) FindActive(ctx context.Context, userID shared.UserID, domain challenge.Domain) (*session.Record, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM session_records
		WHERE user_id = $1 AND domain = $2 AND NOT finalized
		ORDER BY created_at DESC
		LIMIT 1
	`, sessionColumns)

	record, err := scanRecord(r.conn.QueryRow(ctx, query, userID.String(), domain.String()))
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrSessionNotFound
		}
		return nil, fmt.Errorf("postgres: failed to load active session: %w", err)
	}
	return record, nil
}

// ListAllByUser implements session.Repository.
func (r *SessionRepository) ListAllByUser(ctx context.Context, userID shared.UserID, domain challenge.Domain) ([]*session.Record, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM session_records
		WHERE user_id = $1 AND domain = $2
		ORDER BY created_at DESC
	`, sessionColumns)

	rows, err := r.conn.Query(ctx, query, userID.String(), domain.String())
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to list session records: %w", err)
	}
	defer rows.Close()

	return collectRecords(rows)
}

// ListByUser implements session.Repository.
func (r *SessionRepository) ListByUser(ctx context.Context, userID shared.UserID, domain challenge.Domain, page shared.Pagination) ([]*session.Record, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM session_records
		WHERE user_id = $1 AND domain = $2
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`, sessionColumns)

	rows, err := r.conn.Query(ctx, query, userID.String(), domain.String(), page.Limit(), page.Offset())
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to list session records: %w", err)
	}
	defer rows.Close()

	return collectRecords(rows)
}

// CountByUser implements session.Repository.
func (r *SessionRepository) CountByUser(ctx context.Context, userID shared.UserID, domain challenge.Domain) (int, error) {
	query := `SELECT COUNT(*) FROM session_records WHERE user_id = $1 AND domain = $2`

	var count int
	if err := r.conn.QueryRow(ctx, query, userID.String(), domain.String()).Scan(&count); err != nil {
		return 0, fmt.Errorf("postgres: failed to count session records: %w", err)
	}
	return count, nil
}

// ListPassedByDomain implements session.Repository. Records come back in
// arrival order so leaderboard tie-breaking stays deterministic.
func (r *SessionRepository) ListPassedByDomain(ctx context.Context, domain challenge.Domain) ([]*session.Record, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM session_records
		WHERE domain = $1 AND passed
		ORDER BY created_at ASC, id ASC
	`, sessionColumns)

	rows, err := r.conn.Query(ctx, query, domain.String())
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to list passed records: %w", err)
	}
	defer rows.Close()

	return collectRecords(rows)
}

// ActiveDays implements session.Repository.
func (r *SessionRepository) ActiveDays(ctx context.Context, userID shared.UserID, domain challenge.Domain) ([]time.Time, error) {
	query := `
		SELECT DISTINCT (created_at AT TIME ZONE 'UTC')::date AS day
		FROM session_records
		WHERE user_id = $1 AND domain = $2
		ORDER BY day ASC
	`

	rows, err := r.conn.Query(ctx, query, userID.String(), domain.String())
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to list active days: %w", err)
	}
	defer rows.Close()

	var days []time.Time
	for rows.Next() {
		var day time.Time
		if err := rows.Scan(&day); err != nil {
			return nil, fmt.Errorf("postgres: failed to scan active day: %w", err)
		}
		days = append(days, day.UTC())
	}
	return days, rows.Err()
}

func collectRecords(rows interface {
	Next() bool
	Err() error
	Scan(dest ...interface{}) error
}) ([]*session.Record, error) {
	var records []*session.Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: failed to scan session record: %w", err)
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

func scanRecord(row rowScanner) (*session.Record, error) {
	var (
		record  session.Record
		userID  string
		domain  string
		metrics []byte
		score   float64
	)

	err := row.Scan(
		&record.ID,
		&userID,
		&domain,
		&record.LevelNumber,
		&metrics,
		&score,
		&record.Passed,
		&record.Finalized,
		&record.CreatedAt,
		&record.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(metrics) > 0 {
		if err := json.Unmarshal(metrics, &record.Metrics); err != nil {
			return nil, fmt.Errorf("malformed metrics payload: %w", err)
		}
	}

	record.UserID = shared.UserID(userID)
	record.Domain = challenge.Domain(domain)
	record.Score = shared.Score(score)
	return &record, nil
}
