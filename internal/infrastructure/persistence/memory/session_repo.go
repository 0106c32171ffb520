package memory

import (
	"context"
	"sync"
	"time"

	"github.com/Speak-Craft/backend/internal/domain/challenge"
	"github.com/Speak-Craft/backend/internal/domain/session"
	"github.com/Speak-Craft/backend/internal/domain/shared"
	"github.com/Speak-Craft/backend/pkg/timeutil"
)

// SessionRepository is an in-memory session.Repository.
type SessionRepository struct {
	mu      sync.RWMutex
	records []*session.Record
}

// NewSessionRepository creates an empty in-memory session store.
func NewSessionRepository() *SessionRepository {
	return &SessionRepository{}
}

// Save implements session.Repository.
func (r *SessionRepository) Save(ctx context.Context, record *session.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.records = append(r.records, cloneRecord(record))
	return nil
}

// Update implements session.Repository.
func (r *SessionRepository) Update(ctx context.Context, record *session.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, stored := range r.records {
		if stored.ID == record.ID {
			r.records[i] = cloneRecord(record)
			return nil
		}
	}
	return shared.ErrSessionNotFound
}

// FindActive implements session.Repository.
func (r *SessionRepository) FindActive(ctx context.Context, userID shared.UserID, domain challenge.Domain) (*session.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for i := len(r.records) - 1; i >= 0; i-- {
		rec := r.records[i]
		if rec.UserID == userID && rec.Domain == domain && !rec.Finalized {
			return cloneRecord(rec), nil
		}
	}
	return nil, shared.ErrSessionNotFound
}

// ListAllByUser implements session.Repository.
func (r *SessionRepository) ListAllByUser(ctx context.Context, userID shared.UserID, domain challenge.Domain) ([]*session.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.listByUserLocked(userID, domain), nil
}

// ListByUser implements session.Repository.
func (r *SessionRepository) ListByUser(ctx context.Context, userID shared.UserID, domain challenge.Domain, page shared.Pagination) ([]*session.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := r.listByUserLocked(userID, domain)

	offset := page.Offset()
	if offset >= len(matched) {
		return nil, nil
	}
	end := offset + page.Limit()
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], nil
}

// CountByUser implements session.Repository.
func (r *SessionRepository) CountByUser(ctx context.Context, userID shared.UserID, domain challenge.Domain) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, rec := range r.records {
		if rec.UserID == userID && rec.Domain == domain {
			count++
		}
	}
	return count, nil
}

// ListPassedByDomain implements session.Repository.
func (r *SessionRepository) ListPassedByDomain(ctx context.Context, domain challenge.Domain) ([]*session.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []*session.Record
	for _, rec := range r.records {
		if rec.Domain == domain && rec.Passed {
			matched = append(matched, cloneRecord(rec))
		}
	}
	return matched, nil
}

// ActiveDays implements session.Repository.
func (r *SessionRepository) ActiveDays(ctx context.Context, userID shared.UserID, domain challenge.Domain) ([]time.Time, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var stamps []time.Time
	for _, rec := range r.records {
		if rec.UserID == userID && rec.Domain == domain {
			stamps = append(stamps, rec.CreatedAt)
		}
	}
	return timeutil.UniqueDays(stamps), nil
}

func (r *SessionRepository) listByUserLocked(userID shared.UserID, domain challenge.Domain) []*session.Record {
	var matched []*session.Record
	for i := len(r.records) - 1; i >= 0; i-- {
		rec := r.records[i]
		if rec.UserID == userID && rec.Domain == domain {
			matched = append(matched, cloneRecord(rec))
		}
	}
	return matched
}

func cloneRecord(rec *session.Record) *session.Record {
	c := *rec
	return &c
}
