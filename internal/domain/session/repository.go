package session

import (
	"context"
	"time"

	"github.com/Speak-Craft/backend/internal/domain/challenge"
	"github.com/Speak-Craft/backend/internal/domain/shared"
)

// Repository persists session records.
type Repository interface {
	// Save appends a new session record.
	Save(ctx context.Context, record *Record) error

	// Update rewrites an amendable record (loudness in-progress sessions).
	Update(ctx context.Context, record *Record) error

	// FindActive returns the unfinalized in-progress record for a
	// (user, domain), or shared.ErrNotFound when none exists.
	FindActive(ctx context.Context, userID shared.UserID, domain challenge.Domain) (*Record, error)

	// ListAllByUser returns every record of a user in a domain, newest
	// first, for summary statistics.
	ListAllByUser(ctx context.Context, userID shared.UserID, domain challenge.Domain) ([]*Record, error)

	// ListByUser returns a user's records for a domain, newest first.
	ListByUser(ctx context.Context, userID shared.UserID, domain challenge.Domain, page shared.Pagination) ([]*Record, error)

	// CountByUser returns how many records a user has in a domain.
	CountByUser(ctx context.Context, userID shared.UserID, domain challenge.Domain) (int, error)

	// ListPassedByDomain returns every passed record of a domain in
	// arrival order, for leaderboard aggregation.
	ListPassedByDomain(ctx context.Context, domain challenge.Domain) ([]*Record, error)

	// ActiveDays returns the distinct UTC days on which the user
	// submitted sessions in a domain, ascending.
	ActiveDays(ctx context.Context, userID shared.UserID, domain challenge.Domain) ([]time.Time, error)
}
