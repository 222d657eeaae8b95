package model

import (
	"time"

	"github.com/google/uuid"
)

// Project is an open-source project as ingested from the repository host.
type Project struct {
	ID             uuid.UUID  `json:"id"`
	Name           string     `json:"name"`
	Description    string     `json:"description"`
	URL            string     `json:"url"`
	Platform       string     `json:"platform"`
	Stars          int        `json:"stars"`
	Forks          int        `json:"forks"`
	Languages      []string   `json:"languages"`
	Topics         []string   `json:"topics"`
	Tags           []string   `json:"tags"`
	Embedding      []float32  `json:"embedding,omitempty"`
	EmbeddingModel string     `json:"embedding_model,omitempty"`
	CauseID        *uuid.UUID `json:"cause_id,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`

	// Similarity is only set by similarity searches.
	Similarity *float64 `json:"similarity,omitempty"`
}

// HasEmbedding reports whether the project carries an embedding vector.
func (p *Project) HasEmbedding() bool {
	return len(p.Embedding) > 0
}

// Contributor is a person contributing to one or more projects.
type Contributor struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Bio      string    `json:"bio,omitempty"`
	Location string    `json:"location,omitempty"`
	Skills   []string  `json:"skills,omitempty"`
	Causes   []string  `json:"causes,omitempty"`
}
