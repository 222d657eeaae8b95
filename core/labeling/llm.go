package labeling

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"

	"github.com/siherrmann/causemap/helper"
	"github.com/siherrmann/causemap/model"
)

// ModelLabel is the JSON reply expected from the language model.
type ModelLabel struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Keywords    []string `json:"keywords"`
	Confidence  *float64 `json:"confidence"`
}

func (l *Labeler) fromLanguageModel(ctx context.Context, req Request, metadata *model.Cause) (*model.Cause, error) {
	sample := Sample(req.Projects, l.config.SampleSize, l.config.TopPopularShare)
	prompt := BuildPrompt(req, sample, metadata.Keywords)

	reply, err := l.complete(ctx, prompt)
	if err != nil {
		return nil, helper.NewError("complete label prompt", err)
	}

	label, err := ParseLabel(reply)
	if err != nil {
		return nil, helper.NewError("parse label reply", err)
	}

	cause := *metadata
	cause.Name = strings.TrimSpace(label.Name)
	if d := strings.TrimSpace(label.Description); d != "" {
		cause.Description = d
	}
	if keywords := cleanKeywords(label.Keywords); len(keywords) > 0 {
		cause.Keywords = keywords
	}
	cause.Confidence = l.config.LLMConfidence
	if label.Confidence != nil {
		cause.Confidence = math.Max(0, math.Min(1, *label.Confidence))
	}
	cause.Metadata.LabelSource = model.LabelSourceLLM

	l.log.Debug("Labeled cause with language model",
		slog.String("name", cause.Name),
		slog.Int("sample", len(sample)),
	)
	return &cause, nil
}

// Sample picks up to size representative projects: the most popular share of
// the sample by stars, then projects spread evenly over the rest.
func Sample(projects []*model.Project, size int, popularShare float64) []*model.Project {
	sorted := append([]*model.Project(nil), projects...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Stars > sorted[j].Stars
	})
	if size <= 0 || len(sorted) <= size {
		return sorted
	}

	popular := int(float64(size) * popularShare)
	sample := append([]*model.Project(nil), sorted[:popular]...)

	rest := sorted[popular:]
	remaining := size - popular
	stride := float64(len(rest)) / float64(remaining)
	for i := 0; i < remaining; i++ {
		sample = append(sample, rest[int(float64(i)*stride)])
	}
	return sample
}

// BuildPrompt asks for a JSON label of the cluster described by sample.
func BuildPrompt(req Request, sample []*model.Project, keywords []string) string {
	var b strings.Builder

	b.WriteString("You are analyzing a group of open-source projects that were clustered together by semantic similarity.\n")
	b.WriteString("Identify the social-impact cause these projects have in common.\n")
	if req.Level > 0 {
		b.WriteString("The group is a subcause of a broader cause, so the name should be specific.\n")
	}

	fmt.Fprintf(&b, "\nProjects (%d in the group, %d shown):\n", len(req.Projects), len(sample))
	for i, p := range sample {
		fmt.Fprintf(&b, "%d. %s (%d stars)\n", i+1, p.Name, p.Stars)
		if p.Description != "" {
			fmt.Fprintf(&b, "   Description: %s\n", p.Description)
		}
		if len(p.Topics) > 0 {
			fmt.Fprintf(&b, "   Topics: %s\n", strings.Join(p.Topics, ", "))
		}
		if len(p.Languages) > 0 {
			fmt.Fprintf(&b, "   Languages: %s\n", strings.Join(p.Languages, ", "))
		}
	}

	if len(keywords) > 0 {
		fmt.Fprintf(&b, "\nFrequent keywords: %s\n", strings.Join(keywords, ", "))
	}

	b.WriteString("\nRespond with only a JSON object of this form:\n")
	b.WriteString(`{"name": "2-4 word cause name", "description": "one or two sentences", "keywords": ["keyword"], "confidence": 0.8}`)
	b.WriteString("\nconfidence is a number between 0 and 1.\n")

	return b.String()
}

// ParseLabel extracts the JSON object from a language model reply, tolerating
// code fences and surrounding prose.
func ParseLabel(reply string) (*ModelLabel, error) {
	start := strings.Index(reply, "{")
	end := strings.LastIndex(reply, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("%w: no JSON object in reply", helper.ErrMalformedResponse)
	}

	var label ModelLabel
	if err := json.Unmarshal([]byte(reply[start:end+1]), &label); err != nil {
		return nil, fmt.Errorf("%w: %v", helper.ErrMalformedResponse, err)
	}
	if strings.TrimSpace(label.Name) == "" {
		return nil, fmt.Errorf("%w: reply has no name", helper.ErrMalformedResponse)
	}

	return &label, nil
}

// cleanKeywords normalizes model keywords and drops blanks and duplicates.
func cleanKeywords(raw []string) []string {
	seen := make(map[string]bool, len(raw))
	var keywords []string
	for _, k := range raw {
		term := normalizeTerm(k)
		if term == "" || seen[term] {
			continue
		}
		seen[term] = true
		keywords = append(keywords, term)
	}
	return keywords
}
