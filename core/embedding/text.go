package embedding

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/siherrmann/causemap/model"
)

// ProjectText builds the canonical text of a project: labeled lines for name,
// description, platform, popularity and tag lists. Empty fields are left out.
func ProjectText(p *model.Project) string {
	lines := []string{"Project: " + p.Name}
	if p.Description != "" {
		lines = append(lines, "Description: "+p.Description)
	}
	if p.Platform != "" {
		lines = append(lines, "Platform: "+p.Platform)
	}
	lines = append(lines,
		fmt.Sprintf("Stars: %d", p.Stars),
		fmt.Sprintf("Forks: %d", p.Forks),
	)
	if len(p.Languages) > 0 {
		lines = append(lines, "Languages: "+strings.Join(p.Languages, ", "))
	}
	if len(p.Topics) > 0 {
		lines = append(lines, "Topics: "+strings.Join(p.Topics, ", "))
	}
	if len(p.Tags) > 0 {
		lines = append(lines, "Tags: "+strings.Join(p.Tags, ", "))
	}
	return strings.Join(lines, "\n")
}

func ContributorText(c *model.Contributor) string {
	lines := []string{
		"Contributor: " + orDefault(c.Name, "Unknown"),
		"Bio: " + orDefault(c.Bio, "No bio available"),
		"Location: " + orDefault(c.Location, "Unknown"),
	}
	if len(c.Skills) > 0 {
		lines = append(lines, "Skills: "+strings.Join(c.Skills, ", "))
	}
	if len(c.Causes) > 0 {
		lines = append(lines, "Causes: "+strings.Join(c.Causes, ", "))
	}
	return strings.Join(lines, "\n")
}

func CauseText(c *model.Cause) string {
	lines := []string{"Cause: " + c.Name}
	if c.Description != "" {
		lines = append(lines, "Description: "+c.Description)
	}
	if c.Metadata.ImpactScore > 0 {
		lines = append(lines, "Impact Score: "+strconv.FormatFloat(c.Metadata.ImpactScore, 'f', -1, 64))
	}
	if len(c.Keywords) > 0 {
		lines = append(lines, "Keywords: "+strings.Join(c.Keywords, ", "))
	}
	if c.Metadata.Urgency != "" {
		lines = append(lines, "Urgency: "+c.Metadata.Urgency)
	}
	if c.Metadata.Tractability != "" {
		lines = append(lines, "Tractability: "+c.Metadata.Tractability)
	}
	lines = append(lines, "Geographic Scope: "+orDefault(c.Metadata.GeographicScope, "global"))
	return strings.Join(lines, "\n")
}

func ProjectItems(projects []*model.Project) []Item {
	items := make([]Item, 0, len(projects))
	for _, p := range projects {
		items = append(items, Item{ID: p.ID, Kind: model.EntityKindProject, Text: ProjectText(p)})
	}
	return items
}

func ContributorItems(contributors []*model.Contributor) []Item {
	items := make([]Item, 0, len(contributors))
	for _, c := range contributors {
		items = append(items, Item{ID: c.ID, Kind: model.EntityKindContributor, Text: ContributorText(c)})
	}
	return items
}

func CauseItems(causes []*model.Cause) []Item {
	items := make([]Item, 0, len(causes))
	for _, c := range causes {
		items = append(items, Item{ID: c.ID, Kind: model.EntityKindCause, Text: CauseText(c)})
	}
	return items
}

func orDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
