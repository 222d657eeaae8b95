package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/siherrmann/causemap/helper"
)

type Maturity string

const (
	MaturityEmerging Maturity = "emerging"
	MaturityGrowing  Maturity = "growing"
	MaturityMature   Maturity = "mature"
)

type LabelSource string

const (
	LabelSourceMetadata LabelSource = "metadata"
	LabelSourceLLM      LabelSource = "llm"
	LabelSourceFallback LabelSource = "fallback"
)

// Cause is a labeled cluster of projects. Level 0 causes are top-level,
// level 1 causes are subcauses pointing to their parent.
type Cause struct {
	ID          uuid.UUID     `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Keywords    []string      `json:"keywords"`
	Color       string        `json:"color"`
	Level       int           `json:"level"`
	ParentID    *uuid.UUID    `json:"parent_id,omitempty"`
	ProjectIDs  []uuid.UUID   `json:"project_ids"`
	Centroid    []float64     `json:"centroid,omitempty"`
	Confidence  float64       `json:"confidence"`
	Size        int           `json:"size"`
	Metadata    CauseMetadata `json:"metadata"`
	CreatedAt   time.Time     `json:"created_at"`
}

// CauseMetadata is the aggregate view of a cause's member projects.
// It is stored as JSONB.
type CauseMetadata struct {
	AvgStars        float64     `json:"avg_stars"`
	TopLanguages    []string    `json:"top_languages,omitempty"`
	TopTopics       []string    `json:"top_topics,omitempty"`
	Maturity        Maturity    `json:"maturity"`
	GeographicScope string      `json:"geographic_scope"`
	ImpactScore     float64     `json:"impact_score,omitempty"`
	Urgency         string      `json:"urgency,omitempty"`
	Tractability    string      `json:"tractability,omitempty"`
	LabelSource     LabelSource `json:"label_source"`
}

// Value implements the driver.Valuer interface for database storage
func (m CauseMetadata) Value() (driver.Value, error) {
	return json.Marshal(m)
}

// Scan implements the sql.Scanner interface for database retrieval
func (m *CauseMetadata) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*m = CauseMetadata{}
		return nil
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	default:
		return helper.NewError("cause metadata assertion", errors.New("type assertion to []byte failed"))
	}
}
