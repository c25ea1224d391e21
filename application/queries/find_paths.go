package queries

import (
	"errors"
)

// FindPathsQuery represents a k-shortest-paths query between two elements
type FindPathsQuery struct {
	UserID            string   `json:"user_id"`
	ModelID           string   `json:"model_id"`
	SourceID          string   `json:"source_id"`
	TargetID          string   `json:"target_id"`
	Direction         string   `json:"direction,omitempty"`
	RelationshipTypes []string `json:"relationship_types,omitempty"`
	MaxHops           int      `json:"max_hops,omitempty"`
	K                 int      `json:"k,omitempty"`
}

// Validate validates the query
func (q FindPathsQuery) Validate() error {
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
func (q FindPathsQuery) CacheScope() string {
	return "model:" + q.ModelID
}

// FindPathsResult represents the loopless paths found, ordered by
// non-decreasing length
type FindPathsResult struct {
	Paths [][]string `json:"paths"`
}
