package queries

import (
	"errors"
)

// GetModelQuery represents a query for full model data for rendering
type GetModelQuery struct {
	UserID  string `json:"user_id"`
	ModelID string `json:"model_id"`
}

// Validate validates the query
func (q GetModelQuery) Validate() error {
	if q.UserID == "" {
		return errors.New("userID is required")
	}
	if q.ModelID == "" {
		return errors.New("modelID is required")
	}
	return nil
}

// ModelElement is the transport shape of an element
type ModelElement struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	Type       string            `json:"type"`
	Layer      string            `json:"layer"`
	Properties map[string]string `json:"properties,omitempty"`
}

// ModelRelationship is the transport shape of a relationship
type ModelRelationship struct {
	ID       string                 `json:"id"`
	Type     string                 `json:"type"`
	SourceID string                 `json:"source_id"`
	TargetID string                 `json:"target_id"`
	Attrs    map[string]interface{} `json:"attrs,omitempty"`
}

// ModelStats contains model statistics
type ModelStats struct {
	ElementCount      int `json:"element_count"`
	RelationshipCount int `json:"relationship_count"`
}

// GetModelResult represents the complete model data. Checksum is the
// content fingerprint handlers surface as an ETag.
type GetModelResult struct {
	ID            string              `json:"id"`
	Name          string              `json:"name"`
	Notation      string              `json:"notation"`
	Checksum      string              `json:"checksum,omitempty"`
	Elements      []ModelElement      `json:"elements"`
	Relationships []ModelRelationship `json:"relationships"`
	Stats         ModelStats          `json:"stats"`
}

// ListModelsQuery represents a query for a user's models
type ListModelsQuery struct {
	UserID string `json:"user_id"`
}

// Validate validates the query
func (q ListModelsQuery) Validate() error {
	if q.UserID == "" {
		return errors.New("userID is required")
	}
	return nil
}

// ModelSummary is one entry of a model listing
type ModelSummary struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Notation  string `json:"notation"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// ListModelsResult represents the model listing
type ListModelsResult struct {
	Models []ModelSummary `json:"models"`
}
