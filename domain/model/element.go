package model

import (
	"errors"

	"github.com/google/uuid"
)

// ElementID is a value object identifying a model element
type ElementID string

// NewElementID creates a new random ElementID
func NewElementID() ElementID {
	return ElementID(uuid.New().String())
}

// String returns the string representation
func (id ElementID) String() string {
	return string(id)
}

// IsZero checks if the ElementID is the zero value
func (id ElementID) IsZero() bool {
	return id == ""
}

// Layer identifies the architectural layer an element belongs to
type Layer string

const (
	LayerStrategy       Layer = "strategy"
	LayerBusiness       Layer = "business"
	LayerApplication    Layer = "application"
	LayerTechnology     Layer = "technology"
	LayerPhysical       Layer = "physical"
	LayerMotivation     Layer = "motivation"
	LayerImplementation Layer = "implementation"
)

// Element is a model element (an ArchiMate/UML/BPMN node)
// Graph-specific state never lives on the element itself; traversal
// metadata belongs to the analysis structures built from it.
type Element struct {
	ID         ElementID
	Name       string
	Type       string
	Layer      Layer
	Properties map[string]string
}

// NewElement creates a new element with a generated ID
func NewElement(name, elementType string, layer Layer) (*Element, error) {
	if name == "" {
		return nil, errors.New("element name required")
	}
	if elementType == "" {
		return nil, errors.New("element type required")
	}
	return &Element{
		ID:         NewElementID(),
		Name:       name,
		Type:       elementType,
		Layer:      layer,
		Properties: map[string]string{},
	}, nil
}
