package labeling

import (
	"fmt"
	"sort"
	"strings"

	"github.com/siherrmann/causemap/model"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// FromMetadata labels a cluster from the topic and tag frequencies of its
// members. Generic technology terms and terms of two characters or less are
// ignored.
func (l *Labeler) FromMetadata(req Request) *model.Cause {
	cause := newCause(req)
	cause.Metadata = l.Aggregate(req.Projects)

	terms := l.RankTerms(req.Projects)
	if len(terms) == 0 {
		cause.Name = fmt.Sprintf("Cause Area %d", req.Index+1)
		cause.Description = "Projects grouped together by similarity."
		cause.Keywords = []string{}
		cause.Confidence = l.config.FallbackConfidence
		cause.Metadata.Maturity = model.MaturityEmerging
		cause.Metadata.LabelSource = model.LabelSourceFallback
		return cause
	}

	keywords := terms[:min(l.config.KeywordCount, len(terms))]
	cause.Keywords = keywords
	cause.Name = causeName(keywords, req.Level)
	cause.Description = fmt.Sprintf("Projects focused on %s.", joinNatural(keywords[:min(3, len(keywords))]))
	cause.Confidence = l.config.MetadataConfidence
	cause.Metadata.LabelSource = model.LabelSourceMetadata
	return cause
}

// RankTerms returns the usable topic and tag terms, most frequent first and
// alphabetical among equals.
func (l *Labeler) RankTerms(projects []*model.Project) []string {
	counts := map[string]int{}
	for _, p := range projects {
		for _, list := range [][]string{p.Topics, p.Tags} {
			for _, raw := range list {
				term := normalizeTerm(raw)
				if len(term) <= 2 || l.stoplist[term] {
					continue
				}
				counts[term]++
			}
		}
	}
	return rank(counts)
}

// Aggregate summarizes the members of a cluster.
func (l *Labeler) Aggregate(projects []*model.Project) model.CauseMetadata {
	metadata := model.CauseMetadata{
		Maturity:        model.MaturityGrowing,
		GeographicScope: "global",
	}
	if len(projects) == 0 {
		return metadata
	}

	stars := 0
	languages := map[string]int{}
	topics := map[string]int{}
	for _, p := range projects {
		stars += p.Stars
		for _, lang := range p.Languages {
			languages[lang]++
		}
		for _, topic := range p.Topics {
			topics[normalizeTerm(topic)]++
		}
	}

	metadata.AvgStars = float64(stars) / float64(len(projects))
	metadata.TopLanguages = top(rank(languages), 5)
	metadata.TopTopics = top(rank(topics), 5)
	if metadata.AvgStars > l.config.MatureStars {
		metadata.Maturity = model.MaturityMature
	}
	return metadata
}

func causeName(keywords []string, level int) string {
	switch {
	case level == 0:
		return title(keywords[0])
	case len(keywords) == 1:
		return title(keywords[0] + " technology")
	default:
		return title(keywords[0] + " " + keywords[1])
	}
}

// a Caser keeps state, so each call gets its own
func title(s string) string {
	return cases.Title(language.English).String(s)
}

func normalizeTerm(term string) string {
	term = strings.ToLower(strings.TrimSpace(term))
	return strings.NewReplacer("-", " ", "_", " ").Replace(term)
}

func rank(counts map[string]int) []string {
	terms := make([]string, 0, len(counts))
	for term := range counts {
		if term != "" {
			terms = append(terms, term)
		}
	}
	sort.Slice(terms, func(i, j int) bool {
		if counts[terms[i]] != counts[terms[j]] {
			return counts[terms[i]] > counts[terms[j]]
		}
		return terms[i] < terms[j]
	})
	return terms
}

func top(terms []string, n int) []string {
	return terms[:min(n, len(terms))]
}

func joinNatural(terms []string) string {
	switch len(terms) {
	case 0:
		return ""
	case 1:
		return terms[0]
	default:
		return strings.Join(terms[:len(terms)-1], ", ") + " and " + terms[len(terms)-1]
	}
}
