package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/siherrmann/causemap"
	"github.com/siherrmann/causemap/database"
	"github.com/siherrmann/causemap/helper"
	"github.com/siherrmann/causemap/model"
	"github.com/spf13/cobra"
)

var (
	EmbedLimit = 500
	CauseID    string
	IndexType  = "hnsw"
	IndexM     int
	IndexEf    int
	IndexLists int
	TopK       = 10
	Threshold  = 0.5
	Pretty     bool
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Fatal(err)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "causemap",
		Short:         "Discover the causes open-source projects work on",
		Long:          "Embeds projects, clusters them into a two level hierarchy of labeled causes and caches 3D projections for visualization",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().BoolVarP(&Pretty, "pretty", "p", false, "Indent JSON output")

	rootCmd.AddCommand(
		newEmbedCmd(),
		newDiscoverCmd(),
		newProjectCmd(),
		newCausesCmd(),
		newSimilarCmd(),
		newIndexCmd(),
	)

	return rootCmd
}

func newEmbedCmd() *cobra.Command {
	embedCmd := &cobra.Command{
		Use:   "embed",
		Short: "Embed projects without an embedding",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCauseMap(func(ctx context.Context, c *causemap.CauseMap) error {
				embedded, missing, err := c.EmbedProjects(ctx, EmbedLimit)
				if err != nil {
					return err
				}
				return printJSON(map[string]int{"embedded": embedded, "missing": missing})
			})
		},
	}

	embedCmd.Flags().IntVarP(&EmbedLimit, "limit", "l", EmbedLimit, "Maximum number of projects to embed")

	return embedCmd
}

func newDiscoverCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "discover",
		Short: "Discover and store causes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCauseMap(func(ctx context.Context, c *causemap.CauseMap) error {
				result, err := c.DiscoverCauses(ctx)
				if err != nil {
					return err
				}
				return printJSON(map[string]interface{}{
					"population":  result.Population,
					"skipped":     result.Skipped,
					"causes":      len(result.Causes),
					"top_level":   len(result.TopLevel()),
					"unclustered": len(result.Unclustered),
					"silhouette":  result.Silhouette,
					"method":      result.Method,
					"reason":      result.Reason,
					"duration":    result.Duration.String(),
				})
			})
		},
	}
}

func newProjectCmd() *cobra.Command {
	projectCmd := &cobra.Command{
		Use:   "project",
		Short: "Compute and cache the 3D projection of a scope",
		Long:  "Computes the projection of all embedded projects, or of one cause and its subcauses with --cause",
		RunE: func(cmd *cobra.Command, args []string) error {
			scopeID, err := parseScope(CauseID)
			if err != nil {
				return err
			}

			return withCauseMap(func(ctx context.Context, c *causemap.CauseMap) error {
				projected, reason, err := c.ComputeProjections(ctx, scopeID)
				if err != nil {
					return err
				}
				return printJSON(map[string]interface{}{"projected": projected, "skipped": reason})
			})
		},
	}

	projectCmd.Flags().StringVarP(&CauseID, "cause", "c", "", "Cause ID to project, empty for the global scope")

	return projectCmd
}

func newCausesCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "causes",
		Aliases: []string{"ls"},
		Short:   "List stored causes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCauseMap(func(ctx context.Context, c *causemap.CauseMap) error {
				causes, err := c.Causes.SelectAllCauses(ctx)
				if err != nil {
					return err
				}
				for _, cause := range causes {
					cause.Centroid = nil
				}
				return printJSON(causes)
			})
		},
	}
}

func newSimilarCmd() *cobra.Command {
	similarCmd := &cobra.Command{
		Use:   "similar <project-id>",
		Short: "List the projects most similar to a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			projectID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid project id %q: %w", args[0], err)
			}

			return withCauseMap(func(ctx context.Context, c *causemap.CauseMap) error {
				projects, err := c.SimilarProjects(ctx, projectID, &model.QueryConfig{TopK: TopK, SimilarityThreshold: Threshold})
				if err != nil {
					return err
				}
				for _, p := range projects {
					p.Embedding = nil
				}
				return printJSON(projects)
			})
		},
	}

	similarCmd.Flags().IntVarP(&TopK, "top", "k", TopK, "Number of projects to return")
	similarCmd.Flags().Float64VarP(&Threshold, "threshold", "s", Threshold, "Minimum cosine similarity")

	return similarCmd
}

func newIndexCmd() *cobra.Command {
	indexCmd := &cobra.Command{
		Use:   "index",
		Short: "Rebuild the project embedding index",
		RunE: func(cmd *cobra.Command, args []string) error {
			indexType, err := database.ParseIndexType(IndexType)
			if err != nil {
				return err
			}
			params := database.IndexParams{M: IndexM, EfConstruction: IndexEf, Lists: IndexLists}

			return withCauseMap(func(ctx context.Context, c *causemap.CauseMap) error {
				return c.ChangeIndexType(ctx, indexType, params)
			})
		},
	}

	indexCmd.Flags().StringVarP(&IndexType, "type", "t", IndexType, "Index type, hnsw or ivfflat")
	indexCmd.Flags().IntVar(&IndexM, "m", 0, "HNSW connections per layer, 0 for the default")
	indexCmd.Flags().IntVar(&IndexEf, "ef-construction", 0, "HNSW candidate list size, 0 for the default")
	indexCmd.Flags().IntVar(&IndexLists, "lists", 0, "IVFFlat list count, 0 to derive it from the table size")

	return indexCmd
}

// withCauseMap runs fn with a CauseMap built from the environment. SIGINT and
// SIGTERM cancel the context.
func withCauseMap(fn func(ctx context.Context, c *causemap.CauseMap) error) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbConfig, err := helper.NewDatabaseConfiguration()
	if err != nil {
		return err
	}
	serviceConfig, err := helper.NewServiceConfiguration()
	if err != nil {
		return err
	}

	c, err := causemap.NewCauseMap(dbConfig, serviceConfig)
	if err != nil {
		return err
	}
	defer func() {
		if err := c.Close(); err != nil {
			log.Printf("close: %v", err)
		}
	}()

	return fn(ctx, c)
}

func parseScope(value string) (*uuid.UUID, error) {
	if value == "" {
		return nil, nil
	}
	id, err := uuid.Parse(value)
	if err != nil {
		return nil, fmt.Errorf("invalid cause id %q: %w", value, err)
	}
	return &id, nil
}

func printJSON(v interface{}) error {
	encoder := json.NewEncoder(os.Stdout)
	if Pretty {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(v)
}
