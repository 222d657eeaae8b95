package model

import (
	"time"

	"github.com/google/uuid"
)

type ReductionMethod string

const (
	ReductionScaled   ReductionMethod = "scaled"
	ReductionCentered ReductionMethod = "centered"
	ReductionRandom   ReductionMethod = "random"
)

// Projection is the cached PCA position of one project inside one scope.
// A nil ScopeID is the global scope.
type Projection struct {
	ScopeID      *uuid.UUID      `json:"scope_id,omitempty"`
	ProjectID    uuid.UUID       `json:"project_id"`
	Components   []float64       `json:"components"`
	Variance     []float64       `json:"variance"`
	X            float64         `json:"x"`
	Y            float64         `json:"y"`
	Z            float64         `json:"z"`
	IsOutlier    bool            `json:"is_outlier"`
	Method       ReductionMethod `json:"method"`
	ModelVersion string          `json:"model_version"`
	CreatedAt    time.Time       `json:"created_at"`
}

// VisualNode is what the presentation layer draws for one project.
type VisualNode struct {
	ID          uuid.UUID  `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Stars       int        `json:"stars"`
	Languages   []string   `json:"languages"`
	Topics      []string   `json:"topics"`
	X           float64    `json:"x"`
	Y           float64    `json:"y"`
	Z           float64    `json:"z"`
	Size        float64    `json:"size"`
	Color       string     `json:"color"`
	CauseID     *uuid.UUID `json:"cause_id,omitempty"`
	CauseName   string     `json:"cause_name,omitempty"`
	IsOutlier   bool       `json:"is_outlier"`
}
