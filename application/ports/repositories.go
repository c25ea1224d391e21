package ports

import (
	"context"

	"atlas-backend/domain/events"
	"atlas-backend/domain/model"
)

// ModelRepository defines the interface for model persistence
// This is a port in hexagonal architecture - the domain doesn't know
// about the implementation
type ModelRepository interface {
	// Save persists a model with its elements and relationships
	Save(ctx context.Context, m *model.Model) error

	// GetByID retrieves a fully loaded model by its ID
	GetByID(ctx context.Context, id model.ModelID) (*model.Model, error)

	// GetByUserID retrieves all models for a user (metadata only)
	GetByUserID(ctx context.Context, userID string) ([]*model.Model, error)

	// SaveElement persists a single element of a model
	SaveElement(ctx context.Context, modelID model.ModelID, el *model.Element) error

	// DeleteElement removes an element and its relationships
	DeleteElement(ctx context.Context, modelID model.ModelID, id model.ElementID) error

	// SaveRelationship persists a single relationship of a model
	SaveRelationship(ctx context.Context, modelID model.ModelID, rel *model.Relationship) error

	// DeleteRelationship removes a relationship
	DeleteRelationship(ctx context.Context, modelID model.ModelID, id model.RelationshipID) error

	// Delete removes a model and everything it contains
	Delete(ctx context.Context, id model.ModelID) error
}

// EventPublisher sends domain events to external consumers
type EventPublisher interface {
	// Publish sends a single event
	Publish(ctx context.Context, event events.DomainEvent) error

	// PublishBatch sends multiple events
	PublishBatch(ctx context.Context, events []events.DomainEvent) error
}

// EventBus is the publishing side of the eventing infrastructure
type EventBus interface {
	EventPublisher
}

// Notifier pushes explorer-facing notifications to connected clients
type Notifier interface {
	// NotifyModelChanged tells every client watching a model to refresh
	NotifyModelChanged(ctx context.Context, modelID string, changeType string) error
}

// Cache defines the interface for caching
type Cache interface {
	// Get retrieves a value from cache
	Get(ctx context.Context, key string) (interface{}, bool)

	// Set stores a value in cache with TTL in seconds
	Set(ctx context.Context, key string, value interface{}, ttl int) error

	// DeletePrefix removes every key under the given prefix
	DeletePrefix(ctx context.Context, prefix string) error
}
