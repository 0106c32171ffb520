package postgres

import (
	"context"
	"fmt"

	"github.com/Speak-Craft/backend/internal/domain/challenge"
	"github.com/Speak-Craft/backend/internal/domain/progression"
	"github.com/Speak-Craft/backend/internal/domain/shared"
)

// ProgressionRepository implements progression.Repository on PostgreSQL.
// Optimistic locking rides on the version column: every save is a compare
// and swap against the version the caller loaded.
type ProgressionRepository struct {
	conn *Connection
}

// NewProgressionRepository creates a new ProgressionRepository.
func NewProgressionRepository(conn *Connection) *ProgressionRepository {
	return &ProgressionRepository{conn: conn}
}

const progressionColumns = `user_id, domain, current_level, completed_levels, badges, version, created_at, updated_at`

// Find implements progression.Repository.
func (r *ProgressionRepository) Find(ctx context.Context, userID shared.UserID, domain challenge.Domain) (*progression.State, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM progression_states
		WHERE user_id = $1 AND domain = $2
	`, progressionColumns)

	state, err := scanState(r.conn.QueryRow(ctx, query, userID.String(), domain.String()))
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrProgressionNotFound
		}
		return nil, fmt.Errorf("postgres: failed to load progression state: %w", err)
	}
	return state, nil
}

// Create implements progression.Repository.
func (r *ProgressionRepository) Create(ctx context.Context, state *progression.State) error {
	query := `
		INSERT INTO progression_states
			(user_id, domain, current_level, completed_levels, badges, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, 1, $6, $7)
	`

	_, err := r.conn.Exec(ctx, query,
		state.UserID.String(),
		state.Domain.String(),
		state.CurrentLevel,
		intsToArray(state.CompletedLevels),
		textArray(state.Badges),
		state.CreatedAt,
		state.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.ErrAlreadyExists
		}
		return fmt.Errorf("postgres: failed to create progression state: %w", err)
	}

	state.Version = 1
	return nil
}

// Save implements progression.Repository. The update is conditioned on the
// version the caller loaded; zero affected rows means a concurrent writer
// won the race.
func (r *ProgressionRepository) Save(ctx context.Context, state *progression.State) error {
	query := `
		UPDATE progression_states
		SET current_level = $3,
		    completed_levels = $4,
		    badges = $5,
		    version = version + 1,
		    updated_at = $6
		WHERE user_id = $1 AND domain = $2 AND version = $7
	`

	tag, err := r.conn.Exec(ctx, query,
		state.UserID.String(),
		state.Domain.String(),
		state.CurrentLevel,
		intsToArray(state.CompletedLevels),
		textArray(state.Badges),
		state.UpdatedAt,
		state.Version,
	)
	if err != nil {
		return fmt.Errorf("postgres: failed to save progression state: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrOptimisticLock
	}

	state.Version++
	return nil
}

// FindAllByUsers implements progression.Repository.
func (r *ProgressionRepository) FindAllByUsers(ctx context.Context, userIDs []shared.UserID, domain challenge.Domain) (map[shared.UserID]*progression.State, error) {
	if len(userIDs) == 0 {
		return map[shared.UserID]*progression.State{}, nil
	}

	ids := make([]string, len(userIDs))
	for i, id := range userIDs {
		ids[i] = id.String()
	}

	query := fmt.Sprintf(`
		SELECT %s FROM progression_states
		WHERE user_id = ANY($1) AND domain = $2
	`, progressionColumns)

	rows, err := r.conn.Query(ctx, query, ids, domain.String())
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to load progression states: %w", err)
	}
	defer rows.Close()

	found := make(map[shared.UserID]*progression.State)
	for rows.Next() {
		state, err := scanState(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: failed to scan progression state: %w", err)
		}
		found[state.UserID] = state
	}
	return found, rows.Err()
}

// rowScanner abstracts pgx.Row and pgx.Rows for shared scan code.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanState(row rowScanner) (*progression.State, error) {
	var (
		userID          string
		domainName      string
		completedLevels []int32
		badges          []string
		state           progression.State
	)

	err := row.Scan(
		&userID,
		&domainName,
		&state.CurrentLevel,
		&completedLevels,
		&badges,
		&state.Version,
		&state.CreatedAt,
		&state.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	state.UserID = shared.UserID(userID)
	state.Domain = challenge.Domain(domainName)
	state.CompletedLevels = arrayToInts(completedLevels)
	state.Badges = badges

	if err := state.CheckInvariant(); err != nil {
		return nil, err
	}
	return &state, nil
}

func intsToArray(levels []int) []int32 {
	out := make([]int32, len(levels))
	for i, v := range levels {
		out[i] = int32(v)
	}
	return out
}

func arrayToInts(levels []int32) []int {
	if len(levels) == 0 {
		return nil
	}
	out := make([]int, len(levels))
	for i, v := range levels {
		out[i] = int(v)
	}
	return out
}

// textArray keeps empty badge sets as empty arrays rather than NULL.
func textArray(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
