package model

import (
	"time"

	"github.com/google/uuid"
)

type DiscoveryMethod string

const (
	DiscoveryMethodEmbedding DiscoveryMethod = "embedding"
	DiscoveryMethodMetadata  DiscoveryMethod = "metadata"
)

// DiscoveryResult is the output of one discovery run.
type DiscoveryResult struct {
	Causes      []*Cause                `json:"causes"`
	Assignments map[uuid.UUID]uuid.UUID `json:"assignments"`
	Unclustered []uuid.UUID             `json:"unclustered"`
	Silhouette  float64                 `json:"silhouette"`
	Method      DiscoveryMethod         `json:"method"`
	Population  int                     `json:"population"`
	Skipped     int                     `json:"skipped"`
	Reason      string                  `json:"reason,omitempty"`
	Duration    time.Duration           `json:"duration"`
}

// TopLevel returns the level 0 causes.
func (r *DiscoveryResult) TopLevel() []*Cause {
	var causes []*Cause
	for _, c := range r.Causes {
		if c.Level == 0 {
			causes = append(causes, c)
		}
	}
	return causes
}

// Children returns the subcauses of parent.
func (r *DiscoveryResult) Children(parent uuid.UUID) []*Cause {
	var causes []*Cause
	for _, c := range r.Causes {
		if c.ParentID != nil && *c.ParentID == parent {
			causes = append(causes, c)
		}
	}
	return causes
}
