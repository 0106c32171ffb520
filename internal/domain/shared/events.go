// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages.
package shared

import (
	"time"
)

// EventType represents the type of domain event.
type EventType string

// Domain event types emitted by the progression engine.
const (
	// Session events
	EventSessionSubmitted EventType = "session.submitted"
	EventSessionAmended   EventType = "session.amended"

	// Progression events
	EventLevelCompleted  EventType = "progression.level_completed"
	EventDomainCompleted EventType = "progression.domain_completed"

	// Badge events
	EventBadgeAwarded EventType = "badge.awarded"

	// Leaderboard events
	EventLeaderboardInvalidated EventType = "leaderboard.invalidated"
)

// Event is the base interface for all domain events.
type Event interface {
	// EventType returns the type of the event.
	EventType() EventType

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// AggregateID returns the ID of the aggregate that produced this event.
	AggregateID() string

	// Payload returns the event data as a map for serialization.
	Payload() map[string]interface{}
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	Type        EventType `json:"type"`
	Timestamp   time.Time `json:"timestamp"`
	AggregateId string    `json:"aggregate_id"`
	Version     int       `json:"version"`
}

// EventType implements Event interface.
func (e BaseEvent) EventType() EventType {
	return e.Type
}

// OccurredAt implements Event interface.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID implements Event interface.
func (e BaseEvent) AggregateID() string {
	return e.AggregateId
}

// NewBaseEvent creates a new base event.
func NewBaseEvent(eventType EventType, aggregateID string) BaseEvent {
	return BaseEvent{
		Type:        eventType,
		Timestamp:   time.Now().UTC(),
		AggregateId: aggregateID,
		Version:     1,
	}
}

// SessionSubmittedEvent is emitted after a practice session is recorded.
type SessionSubmittedEvent struct {
	BaseEvent
	UserID      string  `json:"user_id"`
	Domain      string  `json:"domain"`
	LevelNumber int     `json:"level_number"`
	Passed      bool    `json:"passed"`
	Score       float64 `json:"score"`
}

// Payload implements Event interface.
func (e SessionSubmittedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":      e.UserID,
		"domain":       e.Domain,
		"level_number": e.LevelNumber,
		"passed":       e.Passed,
		"score":        e.Score,
	}
}

// NewSessionSubmittedEvent creates a new SessionSubmittedEvent.
func NewSessionSubmittedEvent(userID, domain string, level int, passed bool, score float64) SessionSubmittedEvent {
	return SessionSubmittedEvent{
		BaseEvent:   NewBaseEvent(EventSessionSubmitted, userID),
		UserID:      userID,
		Domain:      domain,
		LevelNumber: level,
		Passed:      passed,
		Score:       score,
	}
}

// LevelCompletedEvent is emitted when a user passes their current level.
type LevelCompletedEvent struct {
	BaseEvent
	UserID      string `json:"user_id"`
	Domain      string `json:"domain"`
	LevelNumber int    `json:"level_number"`
	NextLevel   int    `json:"next_level"`
	AllComplete bool   `json:"all_complete"`
}

// Payload implements Event interface.
func (e LevelCompletedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":      e.UserID,
		"domain":       e.Domain,
		"level_number": e.LevelNumber,
		"next_level":   e.NextLevel,
		"all_complete": e.AllComplete,
	}
}

// NewLevelCompletedEvent creates a new LevelCompletedEvent.
func NewLevelCompletedEvent(userID, domain string, level, next int, allComplete bool) LevelCompletedEvent {
	return LevelCompletedEvent{
		BaseEvent:   NewBaseEvent(EventLevelCompleted, userID),
		UserID:      userID,
		Domain:      domain,
		LevelNumber: level,
		NextLevel:   next,
		AllComplete: allComplete,
	}
}

// DomainCompletedEvent is emitted when the last level of a domain is passed.
type DomainCompletedEvent struct {
	BaseEvent
	UserID string `json:"user_id"`
	Domain string `json:"domain"`
}

// Payload implements Event interface.
func (e DomainCompletedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id": e.UserID,
		"domain":  e.Domain,
	}
}

// NewDomainCompletedEvent creates a new DomainCompletedEvent.
func NewDomainCompletedEvent(userID, domain string) DomainCompletedEvent {
	return DomainCompletedEvent{
		BaseEvent: NewBaseEvent(EventDomainCompleted, userID),
		UserID:    userID,
		Domain:    domain,
	}
}

// BadgeAwardedEvent is emitted when new badges are added to a user's set.
type BadgeAwardedEvent struct {
	BaseEvent
	UserID string   `json:"user_id"`
	Domain string   `json:"domain"`
	Badges []string `json:"badges"`
}

// Payload implements Event interface.
func (e BadgeAwardedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id": e.UserID,
		"domain":  e.Domain,
		"badges":  e.Badges,
	}
}

// NewBadgeAwardedEvent creates a new BadgeAwardedEvent.
func NewBadgeAwardedEvent(userID, domain string, badges []string) BadgeAwardedEvent {
	return BadgeAwardedEvent{
		BaseEvent: NewBaseEvent(EventBadgeAwarded, userID),
		UserID:    userID,
		Domain:    domain,
		Badges:    badges,
	}
}

// LeaderboardInvalidatedEvent signals that cached rankings for a domain are stale.
type LeaderboardInvalidatedEvent struct {
	BaseEvent
	Domain string `json:"domain"`
}

// Payload implements Event interface.
func (e LeaderboardInvalidatedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"domain": e.Domain,
	}
}

// NewLeaderboardInvalidatedEvent creates a new LeaderboardInvalidatedEvent.
func NewLeaderboardInvalidatedEvent(domain string) LeaderboardInvalidatedEvent {
	return LeaderboardInvalidatedEvent{
		BaseEvent: NewBaseEvent(EventLeaderboardInvalidated, domain),
		Domain:    domain,
	}
}

// EventHandler is a function that handles an event.
type EventHandler func(event Event) error

// EventPublisher defines the interface for publishing events.
type EventPublisher interface {
	// Publish sends an event to subscribers.
	Publish(event Event) error
}

// EventSubscriber defines the interface for subscribing to events.
type EventSubscriber interface {
	// Subscribe registers a handler for an event type.
	Subscribe(eventType EventType, handler EventHandler) error

	// SubscribeAll registers a handler for all events.
	SubscribeAll(handler EventHandler) error
}

// EventBus combines publishing and subscribing.
type EventBus interface {
	EventPublisher
	EventSubscriber
}
