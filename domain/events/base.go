package events

import (
	"time"
)

// SourceBackend identifies this service as the event source on the bus.
const SourceBackend = "atlas.backend"

// DomainEvent is the base interface for all domain events
// Events represent something that has happened in the past
type DomainEvent interface {
	GetAggregateID() string
	GetEventType() string
	GetTimestamp() time.Time
	GetVersion() int
}

// BaseEvent provides common event fields
type BaseEvent struct {
	AggregateID string    `json:"aggregate_id"`
	EventType   string    `json:"event_type"`
	Timestamp   time.Time `json:"timestamp"`
	Version     int       `json:"version"`
}

func (e BaseEvent) GetAggregateID() string  { return e.AggregateID }
func (e BaseEvent) GetEventType() string    { return e.EventType }
func (e BaseEvent) GetTimestamp() time.Time { return e.Timestamp }
func (e BaseEvent) GetVersion() int         { return e.Version }

// Model events

// ModelCreated is raised when a new model is created
type ModelCreated struct {
	BaseEvent
	ModelID  string `json:"model_id"`
	UserID   string `json:"user_id"`
	Name     string `json:"name"`
	Notation string `json:"notation"`
}

// ModelDeleted is raised when a model is deleted
type ModelDeleted struct {
	BaseEvent
	ModelID string `json:"model_id"`
	UserID  string `json:"user_id"`
}

// Element events

// ElementAdded is raised when an element is added to a model
type ElementAdded struct {
	BaseEvent
	ModelID     string `json:"model_id"`
	ElementID   string `json:"element_id"`
	ElementType string `json:"element_type"`
	Layer       string `json:"layer"`
}

// ElementUpdated is raised when an element's fields change
type ElementUpdated struct {
	BaseEvent
	ModelID   string `json:"model_id"`
	ElementID string `json:"element_id"`
}

// ElementRemoved is raised when an element is removed from a model
type ElementRemoved struct {
	BaseEvent
	ModelID   string `json:"model_id"`
	ElementID string `json:"element_id"`
}

// Relationship events

// RelationshipAdded is raised when a relationship is added to a model
type RelationshipAdded struct {
	BaseEvent
	ModelID          string `json:"model_id"`
	RelationshipID   string `json:"relationship_id"`
	RelationshipType string `json:"relationship_type"`
	SourceID         string `json:"source_id"`
	TargetID         string `json:"target_id"`
}

// RelationshipRemoved is raised when a relationship is removed
type RelationshipRemoved struct {
	BaseEvent
	ModelID        string `json:"model_id"`
	RelationshipID string `json:"relationship_id"`
}

// Analysis events

// ImpactAssessed is raised by the impact scanner after a structural
// change, listing the elements that depend on the changed one
type ImpactAssessed struct {
	BaseEvent
	ModelID     string   `json:"model_id"`
	TriggerID   string   `json:"trigger_id"`
	TriggerType string   `json:"trigger_type"`
	ImpactedIDs []string `json:"impacted_ids"`
}
