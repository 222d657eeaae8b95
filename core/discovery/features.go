package discovery

import (
	"math"
	"strings"

	"github.com/siherrmann/causemap/model"
)

// Domains are the keyword flags appended to metadata features.
var Domains = []string{"health", "climate", "education", "ai", "finance", "government"}

// MetadataFeatures turns project metadata into small numeric vectors for
// populations too small to cluster on embeddings: log-scaled stars and forks,
// language and topic counts, and one flag per domain found in topics or tags.
func MetadataFeatures(projects []*model.Project) [][]float64 {
	features := make([][]float64, len(projects))
	for i, p := range projects {
		f := make([]float64, 0, 4+len(Domains))
		f = append(f,
			math.Log10(float64(max(p.Stars, 0))+1)/5,
			math.Log10(float64(max(p.Forks, 0))+1)/5,
			float64(len(p.Languages))/10,
			float64(len(p.Topics))/10,
		)
		for _, domain := range Domains {
			if mentions(p.Topics, domain) || mentions(p.Tags, domain) {
				f = append(f, 1)
			} else {
				f = append(f, 0)
			}
		}
		features[i] = f
	}
	return features
}

func mentions(terms []string, domain string) bool {
	for _, term := range terms {
		if strings.Contains(strings.ToLower(term), domain) {
			return true
		}
	}
	return false
}
