package versioning

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"atlas-backend/domain/model"
)

// ModelVersion captures a point-in-time fingerprint of a model. The
// checksum is deterministic, so two models with the same content in the
// same insertion order hash identically; it doubles as an ETag for
// conditional HTTP reads.
type ModelVersion struct {
	ModelID           string    `json:"model_id"`
	Version           int       `json:"version"`
	Checksum          string    `json:"checksum"`
	ElementCount      int       `json:"element_count"`
	RelationshipCount int       `json:"relationship_count"`
	CreatedAt         time.Time `json:"created_at"`
	CreatedBy         string    `json:"created_by"`
}

// NewModelVersion fingerprints the current state of a model
func NewModelVersion(m *model.Model, userID string) (*ModelVersion, error) {
	if m == nil {
		return nil, fmt.Errorf("model cannot be nil")
	}

	checksum, err := Checksum(m)
	if err != nil {
		return nil, fmt.Errorf("failed to calculate checksum: %w", err)
	}

	return &ModelVersion{
		ModelID:           m.ID().String(),
		Version:           m.Version(),
		Checksum:          checksum,
		ElementCount:      m.ElementCount(),
		RelationshipCount: m.RelationshipCount(),
		CreatedAt:         time.Now(),
		CreatedBy:         userID,
	}, nil
}

type checksumElement struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	Type       string            `json:"type"`
	Layer      string            `json:"layer"`
	Properties map[string]string `json:"properties,omitempty"`
}

type checksumRelationship struct {
	ID       string                 `json:"id"`
	Type     string                 `json:"type"`
	SourceID string                 `json:"source_id"`
	TargetID string                 `json:"target_id"`
	Attrs    map[string]interface{} `json:"attrs,omitempty"`
}

// Checksum computes a SHA-256 fingerprint of a model's content.
// Elements are sorted by id and relationships taken in insertion order,
// so the result does not depend on map iteration.
func Checksum(m *model.Model) (string, error) {
	elements := m.Elements()
	els := make([]checksumElement, 0, len(elements))
	for _, el := range elements {
		els = append(els, checksumElement{
			ID:         el.ID.String(),
			Name:       el.Name,
			Type:       el.Type,
			Layer:      string(el.Layer),
			Properties: el.Properties,
		})
	}
	sort.Slice(els, func(i, j int) bool { return els[i].ID < els[j].ID })

	relationships := m.Relationships()
	rels := make([]checksumRelationship, 0, len(relationships))
	for _, rel := range relationships {
		rels = append(rels, checksumRelationship{
			ID:       rel.ID.String(),
			Type:     rel.Type,
			SourceID: rel.SourceID.String(),
			TargetID: rel.TargetID.String(),
			Attrs:    rel.Attrs,
		})
	}

	data := struct {
		ID            string                 `json:"id"`
		Notation      string                 `json:"notation"`
		Elements      []checksumElement      `json:"elements"`
		Relationships []checksumRelationship `json:"relationships"`
	}{
		ID:            m.ID().String(),
		Notation:      m.Notation(),
		Elements:      els,
		Relationships: rels,
	}

	jsonData, err := json.Marshal(data)
	if err != nil {
		return "", err
	}

	hash := sha256.Sum256(jsonData)
	return hex.EncodeToString(hash[:]), nil
}

// Diff summarizes the distance between two fingerprints of the same model
type Diff struct {
	FromVersion        int           `json:"from_version"`
	ToVersion          int           `json:"to_version"`
	ElementsDelta      int           `json:"elements_delta"`
	RelationshipsDelta int           `json:"relationships_delta"`
	ContentChanged     bool          `json:"content_changed"`
	TimeDiff           time.Duration `json:"time_diff"`
}

// Compare reports what changed between two versions of one model
func Compare(v1, v2 *ModelVersion) (*Diff, error) {
	if v1 == nil || v2 == nil {
		return nil, fmt.Errorf("versions cannot be nil")
	}
	if v1.ModelID != v2.ModelID {
		return nil, fmt.Errorf("versions belong to different models")
	}

	return &Diff{
		FromVersion:        v1.Version,
		ToVersion:          v2.Version,
		ElementsDelta:      v2.ElementCount - v1.ElementCount,
		RelationshipsDelta: v2.RelationshipCount - v1.RelationshipCount,
		ContentChanged:     v1.Checksum != v2.Checksum,
		TimeDiff:           v2.CreatedAt.Sub(v1.CreatedAt),
	}, nil
}
