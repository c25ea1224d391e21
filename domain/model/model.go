package model

import (
	"errors"
	"time"

	"atlas-backend/domain/events"

	"github.com/google/uuid"
)

// ModelID represents a unique model identifier
type ModelID string

// NewModelID creates a new random ModelID
func NewModelID() ModelID {
	return ModelID(uuid.New().String())
}

// String returns the string representation
func (id ModelID) String() string {
	return string(id)
}

// Model is the aggregate root for an architecture model.
// It owns the elements and relationships and keeps the relationship
// collection in insertion order so that every structure derived from it
// (in particular the analysis graph) is deterministic.
type Model struct {
	id            ModelID
	userID        string
	name          string
	notation      string
	elements      map[ElementID]*Element
	relationships map[RelationshipID]*Relationship
	relOrder      []RelationshipID
	createdAt     time.Time
	updatedAt     time.Time
	version       int
	events        []events.DomainEvent
}

// NewModel creates a new model aggregate with a generated ID
func NewModel(userID, name, notation string) (*Model, error) {
	return NewModelWithID(NewModelID(), userID, name, notation)
}

// NewModelWithID creates a new model aggregate under a caller-chosen ID.
// The HTTP layer generates IDs up front so create responses can return
// them without reading the command result back.
func NewModelWithID(id ModelID, userID, name, notation string) (*Model, error) {
	if id == "" {
		return nil, errors.New("model ID required")
	}
	if userID == "" {
		return nil, errors.New("userID required")
	}
	if name == "" {
		return nil, errors.New("model name required")
	}
	if notation == "" {
		notation = "archimate"
	}

	now := time.Now()
	m := &Model{
		id:            id,
		userID:        userID,
		name:          name,
		notation:      notation,
		elements:      make(map[ElementID]*Element),
		relationships: make(map[RelationshipID]*Relationship),
		relOrder:      []RelationshipID{},
		createdAt:     now,
		updatedAt:     now,
		version:       1,
		events:        []events.DomainEvent{},
	}

	m.addEvent(events.ModelCreated{
		BaseEvent: events.BaseEvent{
			AggregateID: m.id.String(),
			EventType:   "model.created",
			Timestamp:   now,
			Version:     1,
		},
		ModelID:  m.id.String(),
		UserID:   userID,
		Name:     name,
		Notation: notation,
	})

	return m, nil
}

// ReconstructModel recreates a model from stored data
func ReconstructModel(id, userID, name, notation, createdAt, updatedAt string) (*Model, error) {
	if id == "" || userID == "" || name == "" {
		return nil, errors.New("required fields missing for model reconstruction")
	}
	if notation == "" {
		notation = "archimate"
	}

	created, _ := time.Parse(time.RFC3339, createdAt)
	updated, _ := time.Parse(time.RFC3339, updatedAt)

	return &Model{
		id:            ModelID(id),
		userID:        userID,
		name:          name,
		notation:      notation,
		elements:      make(map[ElementID]*Element),
		relationships: make(map[RelationshipID]*Relationship),
		relOrder:      []RelationshipID{},
		createdAt:     created,
		updatedAt:     updated,
		version:       1,
		events:        []events.DomainEvent{},
	}, nil
}

// ID returns the model's unique identifier
func (m *Model) ID() ModelID {
	return m.id
}

// UserID returns the owner's ID
func (m *Model) UserID() string {
	return m.userID
}

// Name returns the model's name
func (m *Model) Name() string {
	return m.name
}

// Notation returns the model's notation ("archimate", "uml", "bpmn")
func (m *Model) Notation() string {
	return m.notation
}

// CreatedAt returns when the model was created
func (m *Model) CreatedAt() time.Time {
	return m.createdAt
}

// UpdatedAt returns when the model was last updated
func (m *Model) UpdatedAt() time.Time {
	return m.updatedAt
}

// Version returns the aggregate version
func (m *Model) Version() int {
	return m.version
}

// AddElement adds an element to the model
func (m *Model) AddElement(el *Element) error {
	if el == nil {
		return errors.New("element cannot be nil")
	}
	if _, exists := m.elements[el.ID]; exists {
		return errors.New("element already exists in model")
	}

	const maxElements = 10000
	if len(m.elements) >= maxElements {
		return errors.New("maximum elements reached")
	}

	m.elements[el.ID] = el
	m.touch()

	m.addEvent(events.ElementAdded{
		BaseEvent: events.BaseEvent{
			AggregateID: m.id.String(),
			EventType:   "model.element_added",
			Timestamp:   m.updatedAt,
			Version:     1,
		},
		ModelID:     m.id.String(),
		ElementID:   el.ID.String(),
		ElementType: el.Type,
		Layer:       string(el.Layer),
	})

	return nil
}

// UpdateElement replaces the mutable fields of an existing element
func (m *Model) UpdateElement(id ElementID, name, elementType string, layer Layer, properties map[string]string) error {
	el, exists := m.elements[id]
	if !exists {
		return errors.New("element not found")
	}

	if name != "" {
		el.Name = name
	}
	if elementType != "" {
		el.Type = elementType
	}
	if layer != "" {
		el.Layer = layer
	}
	if properties != nil {
		el.Properties = properties
	}
	m.touch()

	m.addEvent(events.ElementUpdated{
		BaseEvent: events.BaseEvent{
			AggregateID: m.id.String(),
			EventType:   "model.element_updated",
			Timestamp:   m.updatedAt,
			Version:     1,
		},
		ModelID:   m.id.String(),
		ElementID: id.String(),
	})

	return nil
}

// RemoveElement removes an element and every relationship touching it
func (m *Model) RemoveElement(id ElementID) error {
	if _, exists := m.elements[id]; !exists {
		return errors.New("element not found")
	}

	kept := m.relOrder[:0]
	for _, relID := range m.relOrder {
		rel := m.relationships[relID]
		if rel.SourceID == id || rel.TargetID == id {
			delete(m.relationships, relID)
			continue
		}
		kept = append(kept, relID)
	}
	m.relOrder = kept

	delete(m.elements, id)
	m.touch()

	m.addEvent(events.ElementRemoved{
		BaseEvent: events.BaseEvent{
			AggregateID: m.id.String(),
			EventType:   "model.element_removed",
			Timestamp:   m.updatedAt,
			Version:     1,
		},
		ModelID:   m.id.String(),
		ElementID: id.String(),
	})

	return nil
}

// AddRelationship adds a relationship between two existing elements
func (m *Model) AddRelationship(rel *Relationship) error {
	if rel == nil {
		return errors.New("relationship cannot be nil")
	}
	if _, exists := m.relationships[rel.ID]; exists {
		return errors.New("relationship already exists in model")
	}
	if _, ok := m.elements[rel.SourceID]; !ok {
		return errors.New("source element must exist in model")
	}
	if _, ok := m.elements[rel.TargetID]; !ok {
		return errors.New("target element must exist in model")
	}

	const maxRelationships = 50000
	if len(m.relationships) >= maxRelationships {
		return errors.New("maximum relationships reached")
	}

	m.relationships[rel.ID] = rel
	m.relOrder = append(m.relOrder, rel.ID)
	m.touch()

	m.addEvent(events.RelationshipAdded{
		BaseEvent: events.BaseEvent{
			AggregateID: m.id.String(),
			EventType:   "model.relationship_added",
			Timestamp:   m.updatedAt,
			Version:     1,
		},
		ModelID:          m.id.String(),
		RelationshipID:   rel.ID.String(),
		RelationshipType: rel.Type,
		SourceID:         rel.SourceID.String(),
		TargetID:         rel.TargetID.String(),
	})

	return nil
}

// RestoreRelationship inserts a relationship loaded from storage without
// endpoint checks or events. A model can be edited concurrently with
// analysis, so stored relationships may reference elements that are gone;
// the analysis graph builder skips those.
func (m *Model) RestoreRelationship(rel *Relationship) {
	if rel == nil {
		return
	}
	if _, exists := m.relationships[rel.ID]; exists {
		return
	}
	m.relationships[rel.ID] = rel
	m.relOrder = append(m.relOrder, rel.ID)
}

// RestoreElement inserts an element loaded from storage without events
func (m *Model) RestoreElement(el *Element) {
	if el == nil {
		return
	}
	m.elements[el.ID] = el
}

// RemoveRelationship removes a relationship from the model
func (m *Model) RemoveRelationship(id RelationshipID) error {
	if _, exists := m.relationships[id]; !exists {
		return errors.New("relationship not found")
	}

	delete(m.relationships, id)
	for i, relID := range m.relOrder {
		if relID == id {
			m.relOrder = append(m.relOrder[:i], m.relOrder[i+1:]...)
			break
		}
	}
	m.touch()

	m.addEvent(events.RelationshipRemoved{
		BaseEvent: events.BaseEvent{
			AggregateID: m.id.String(),
			EventType:   "model.relationship_removed",
			Timestamp:   m.updatedAt,
			Version:     1,
		},
		ModelID:        m.id.String(),
		RelationshipID: id.String(),
	})

	return nil
}

// Element retrieves an element by ID
func (m *Model) Element(id ElementID) (*Element, bool) {
	el, ok := m.elements[id]
	return el, ok
}

// HasElement checks if an element exists in the model
func (m *Model) HasElement(id ElementID) bool {
	_, ok := m.elements[id]
	return ok
}

// Relationship retrieves a relationship by ID
func (m *Model) Relationship(id RelationshipID) (*Relationship, bool) {
	rel, ok := m.relationships[id]
	return rel, ok
}

// Elements returns all elements in the model
func (m *Model) Elements() []*Element {
	els := make([]*Element, 0, len(m.elements))
	for _, el := range m.elements {
		els = append(els, el)
	}
	return els
}

// Relationships returns all relationships in insertion order
func (m *Model) Relationships() []*Relationship {
	rels := make([]*Relationship, 0, len(m.relOrder))
	for _, id := range m.relOrder {
		rels = append(rels, m.relationships[id])
	}
	return rels
}

// ElementCount returns the number of elements
func (m *Model) ElementCount() int {
	return len(m.elements)
}

// RelationshipCount returns the number of relationships
func (m *Model) RelationshipCount() int {
	return len(m.relationships)
}

// Validate ensures model invariants
func (m *Model) Validate() error {
	if len(m.relOrder) != len(m.relationships) {
		return errors.New("relationship order out of sync")
	}
	for _, id := range m.relOrder {
		if _, ok := m.relationships[id]; !ok {
			return errors.New("relationship order references unknown relationship")
		}
	}
	return nil
}

// MarkDeleted records the model's deletion so the event reaches
// downstream consumers before the rows disappear
func (m *Model) MarkDeleted() {
	m.addEvent(events.ModelDeleted{
		BaseEvent: events.BaseEvent{
			AggregateID: m.id.String(),
			EventType:   "model.deleted",
			Timestamp:   time.Now(),
			Version:     m.version,
		},
		ModelID: m.id.String(),
		UserID:  m.userID,
	})
}

// GetUncommittedEvents returns all uncommitted domain events
func (m *Model) GetUncommittedEvents() []events.DomainEvent {
	out := make([]events.DomainEvent, len(m.events))
	copy(out, m.events)
	return out
}

// MarkEventsAsCommitted clears all uncommitted events
func (m *Model) MarkEventsAsCommitted() {
	m.events = []events.DomainEvent{}
}

func (m *Model) addEvent(event events.DomainEvent) {
	m.events = append(m.events, event)
}

func (m *Model) touch() {
	m.updatedAt = time.Now()
	m.version++
}
