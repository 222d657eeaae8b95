package model

import "time"

// EmbeddingConfig controls canonical text handling and batch pacing.
type EmbeddingConfig struct {
	Model            string        `json:"model"`
	Dimension        int           `json:"dimension"`
	MaxTextLength    int           `json:"max_text_length"`
	BatchSize        int           `json:"batch_size"`
	BatchConcurrency int           `json:"batch_concurrency"`
	BatchDelay       time.Duration `json:"batch_delay"`
}

// DefaultEmbeddingConfig returns the settings for text-embedding-3-small
// with one second between batches of ten.
func DefaultEmbeddingConfig() EmbeddingConfig {
	return EmbeddingConfig{
		Model:            "text-embedding-3-small",
		Dimension:        1536,
		MaxTextLength:    6000,
		BatchSize:        10,
		BatchConcurrency: 3,
		BatchDelay:       time.Second,
	}
}

// ReducerConfig controls the PCA reduction and the display layout derived from it.
type ReducerConfig struct {
	TargetDimensions    int     `json:"target_dimensions"`
	StorageWidth        int     `json:"storage_width"`
	Scale               bool    `json:"scale"`
	ZeroVarianceEpsilon float64 `json:"zero_variance_epsilon"`
	VisualRange         float64 `json:"visual_range"`
	DefaultSpread       float64 `json:"default_spread"`
	Seed                uint64  `json:"seed"`
}

func DefaultReducerConfig() ReducerConfig {
	return ReducerConfig{
		TargetDimensions:    3,
		StorageWidth:        16,
		Scale:               true,
		ZeroVarianceEpsilon: 1e-10,
		VisualRange:         200,
		DefaultSpread:       50,
		Seed:                42,
	}
}

// OutlierConfig holds the IQR multiplier and the dampening applied to flagged points.
type OutlierConfig struct {
	IQRMultiplier float64 `json:"iqr_multiplier"`
	Dampening     float64 `json:"dampening"`
}

func DefaultOutlierConfig() OutlierConfig {
	return OutlierConfig{
		IQRMultiplier: 2.5,
		Dampening:     0.3,
	}
}

// ClusterConfig bounds k-means.
type ClusterConfig struct {
	MaxK          int    `json:"max_k"`
	MinMembers    int    `json:"min_members"`
	MaxIterations int    `json:"max_iterations"`
	Seed          uint64 `json:"seed"`
}

func DefaultClusterConfig() ClusterConfig {
	return ClusterConfig{
		MaxK:          8,
		MinMembers:    5,
		MaxIterations: 100,
		Seed:          42,
	}
}

// LabelerConfig controls both labeling paths.
type LabelerConfig struct {
	MetadataConfidence float64  `json:"metadata_confidence"`
	FallbackConfidence float64  `json:"fallback_confidence"`
	LLMConfidence      float64  `json:"llm_confidence"`
	LLMSizeThreshold   int      `json:"llm_size_threshold"`
	SampleSize         int      `json:"sample_size"`
	TopPopularShare    float64  `json:"top_popular_share"`
	Concurrency        int      `json:"concurrency"`
	KeywordCount       int      `json:"keyword_count"`
	MatureStars        float64  `json:"mature_stars"`
	Stoplist           []string `json:"stoplist"`
}

// DefaultStoplist holds generic technology terms that say nothing about a cause.
var DefaultStoplist = []string{
	"js", "css", "api", "web", "app", "javascript", "python",
	"react", "nodejs", "open", "source", "typescript", "library",
}

func DefaultLabelerConfig() LabelerConfig {
	return LabelerConfig{
		MetadataConfidence: 0.6,
		FallbackConfidence: 0.3,
		LLMConfidence:      0.8,
		LLMSizeThreshold:   10,
		SampleSize:         8,
		TopPopularShare:    0.6,
		Concurrency:        3,
		KeywordCount:       5,
		MatureStars:        1000,
		Stoplist:           DefaultStoplist,
	}
}

// DiscoveryConfig controls the hierarchical discovery run.
type DiscoveryConfig struct {
	MaxTopLevel       int    `json:"max_top_level"`
	MaxSubLevel       int    `json:"max_sub_level"`
	MinMembers        int    `json:"min_members"`
	LoadBatchSize     int    `json:"load_batch_size"`
	ClusterDimensions int    `json:"cluster_dimensions"`
	TopIterations     int    `json:"top_iterations"`
	SubIterations     int    `json:"sub_iterations"`
	FallbackK         int    `json:"fallback_k"`
	FallbackMembers   int    `json:"fallback_members"`
	EnableSubclusters bool   `json:"enable_subclusters"`
	Seed              uint64 `json:"seed"`
}

func DefaultDiscoveryConfig() DiscoveryConfig {
	return DiscoveryConfig{
		MaxTopLevel:       8,
		MaxSubLevel:       3,
		MinMembers:        5,
		LoadBatchSize:     1000,
		ClusterDimensions: 50,
		TopIterations:     50,
		SubIterations:     30,
		FallbackK:         6,
		FallbackMembers:   2,
		EnableSubclusters: true,
		Seed:              42,
	}
}

// DotSizeConfig maps popularity to a log-scaled dot size.
type DotSizeConfig struct {
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Scale float64 `json:"scale"`
}

func DefaultDotSizeConfig() DotSizeConfig {
	return DotSizeConfig{
		Min:   4,
		Max:   20,
		Scale: 3,
	}
}

// QueryConfig represents configuration for a similarity query
type QueryConfig struct {
	TopK                int     `json:"top_k"`
	SimilarityThreshold float64 `json:"similarity_threshold,omitempty"`
}

// DefaultQueryConfig returns the settings used for related-project lookups.
func DefaultQueryConfig() QueryConfig {
	return QueryConfig{
		TopK:                10,
		SimilarityThreshold: 0.5,
	}
}
