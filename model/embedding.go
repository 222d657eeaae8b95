package model

import "github.com/google/uuid"

type EntityKind string

const (
	EntityKindProject     EntityKind = "project"
	EntityKindContributor EntityKind = "contributor"
	EntityKindCause       EntityKind = "cause"
)

// Embedding is the outcome of embedding one entity. A failed item is marked
// Missing; its Vector is a zero placeholder and must not be used as a point.
type Embedding struct {
	ID      uuid.UUID  `json:"id"`
	Kind    EntityKind `json:"kind"`
	Vector  []float32  `json:"vector"`
	Model   string     `json:"model"`
	Missing bool       `json:"missing"`
	Err     error      `json:"-"`
}

// IsMissing reports whether the embedding failed and must be excluded.
func (e Embedding) IsMissing() bool {
	return e.Missing || len(e.Vector) == 0
}

// Similarity is a candidate scored against a query vector.
type Similarity struct {
	ID    uuid.UUID `json:"id"`
	Score float64   `json:"score"`
}

// CauseMatch is a cause ranked against a contributor profile.
type CauseMatch struct {
	Cause *Cause  `json:"cause"`
	Score float64 `json:"score"`
}
