package queries

import (
	"errors"
)

// FindPathQuery represents a shortest-path query between two elements
type FindPathQuery struct {
	UserID            string   `json:"user_id"`
	ModelID           string   `json:"model_id"`
	SourceID          string   `json:"source_id"`
	TargetID          string   `json:"target_id"`
	Direction         string   `json:"direction,omitempty"`
	RelationshipTypes []string `json:"relationship_types,omitempty"`
	MaxHops           int      `json:"max_hops,omitempty"`
}

// Validate validates the query
func (q FindPathQuery) Validate() error {
	if q.UserID == "" {
		return errors.New("userID is required")
	}
	if q.ModelID == "" {
		return errors.New("modelID is required")
	}
	if q.SourceID == "" || q.TargetID == "" {
		return errors.New("source and target element IDs are required")
	}
	return nil
}

// CacheScope scopes cached results to the queried model so writes to it
// can invalidate them
func (q FindPathQuery) CacheScope() string {
	return "model:" + q.ModelID
}

// FindPathResult represents a shortest-path answer. Path is nil when the
// target is unreachable within the hop bound.
type FindPathResult struct {
	Path  []string `json:"path"`
	Found bool     `json:"found"`
	Hops  int      `json:"hops"`
}
