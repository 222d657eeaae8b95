package clustering

import (
	"sort"

	"github.com/siherrmann/causemap/model"
)

// ShouldSubcluster reports whether a top-level cluster is large enough to be
// split into up to subK subclusters of at least minMembers each, with room to spare.
func ShouldSubcluster(size, minMembers, subK int) bool {
	return size > minMembers*2*subK
}

// Subcluster clusters only the given members of vectors. Member indices and
// assignments in the result refer to vectors; indices outside members stay -1.
func Subcluster(vectors [][]float64, members []int, config model.ClusterConfig) (*Result, error) {
	subset := make([][]float64, len(members))
	for i, m := range members {
		subset[i] = vectors[m]
	}

	local, err := Cluster(subset, config)
	if err != nil {
		return nil, err
	}

	result := &Result{
		K:           local.K,
		Assignments: unassigned(len(vectors)),
		Silhouette:  local.Silhouette,
		Iterations:  local.Iterations,
	}
	for _, group := range local.Groups {
		mapped := Group{Index: group.Index, Centroid: group.Centroid, Members: make([]int, len(group.Members))}
		for i, idx := range group.Members {
			mapped.Members[i] = members[idx]
			result.Assignments[members[idx]] = group.Index
		}
		result.Groups = append(result.Groups, mapped)
	}
	for _, idx := range local.Unclustered {
		result.Unclustered = append(result.Unclustered, members[idx])
	}
	sort.Ints(result.Unclustered)

	return result, nil
}
