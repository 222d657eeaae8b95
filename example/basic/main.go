package main

import (
	"context"
	"fmt"
	"log"

	"github.com/siherrmann/causemap"
	"github.com/siherrmann/causemap/core/discovery"
	"github.com/siherrmann/causemap/helper"
	"github.com/siherrmann/causemap/model"
)

var sampleProjects = []*model.Project{
	{Name: "openmrs-core", Description: "Open source medical record system for low resource settings", Stars: 1500, Forks: 3700, Languages: []string{"Java"}, Topics: []string{"health", "emr"}},
	{Name: "dhis2-core", Description: "Health information management platform used by ministries of health", Stars: 300, Forks: 350, Languages: []string{"Java"}, Topics: []string{"health", "data"}},
	{Name: "commcare-hq", Description: "Mobile data collection for community health workers", Stars: 500, Forks: 200, Languages: []string{"Python"}, Topics: []string{"health", "mobile"}},
	{Name: "bahmni-core", Description: "Hospital management system built on OpenMRS", Stars: 60, Forks: 180, Languages: []string{"Java"}, Topics: []string{"health", "hospital"}},
	{Name: "covid-sim", Description: "Individual based epidemic simulation model", Stars: 1200, Forks: 250, Languages: []string{"C++"}, Topics: []string{"health", "epidemiology"}},
	{Name: "openlmis", Description: "Electronic logistics system for health commodity supply chains", Stars: 40, Forks: 30, Languages: []string{"Java"}, Topics: []string{"health", "supply-chain"}},
	{Name: "climate-tracker", Description: "Track greenhouse gas emissions of countries over time", Stars: 800, Forks: 120, Languages: []string{"Python"}, Topics: []string{"climate", "emissions"}},
	{Name: "carbon-calculator", Description: "Estimate the carbon footprint of cloud workloads", Stars: 900, Forks: 90, Languages: []string{"TypeScript"}, Topics: []string{"climate", "carbon"}},
	{Name: "open-climate-fix", Description: "Solar power nowcasting to reduce grid emissions", Stars: 400, Forks: 60, Languages: []string{"Python"}, Topics: []string{"climate", "energy"}},
	{Name: "pvlib", Description: "Simulate the performance of photovoltaic energy systems", Stars: 1100, Forks: 900, Languages: []string{"Python"}, Topics: []string{"climate", "solar"}},
	{Name: "openclimategis", Description: "Geospatial tools for climate model output", Stars: 70, Forks: 20, Languages: []string{"Python"}, Topics: []string{"climate", "gis"}},
	{Name: "wind-toolkit", Description: "Wind resource data for renewable energy planning", Stars: 90, Forks: 40, Languages: []string{"Python"}, Topics: []string{"climate", "wind"}},
}

func main() {
	ctx := context.Background()

	// Start a test PostgreSQL container
	teardown, dbPort, err := helper.MustStartPostgresContainer()
	if err != nil {
		log.Fatalf("Failed to start PostgreSQL container: %v", err)
	}
	defer teardown(context.Background())

	// Create database configuration using the container port
	dbConfig := &helper.DatabaseConfiguration{
		Host:     "localhost",
		Port:     dbPort,
		Database: "database",
		Username: "user",
		Password: "password",
		Schema:   "public",
		SSLMode:  "disable",
	}

	// Local sentence embeddings and metadata-only labels, no external services
	serviceConfig := &helper.ServiceConfiguration{
		EmbeddingProvider:  helper.ProviderHugot,
		EmbeddingModel:     "sentence-transformers/all-MiniLM-L6-v2",
		EmbeddingDimension: 384,
		LLMProvider:        helper.ProviderNone,
	}

	c, err := causemap.NewCauseMap(dbConfig, serviceConfig)
	if err != nil {
		log.Fatalf("Failed to create cause map: %v", err)
	}
	defer c.Close()

	// The sample is small, allow tiny clusters
	discoveryConfig := model.DefaultDiscoveryConfig()
	discoveryConfig.MaxTopLevel = 3
	discoveryConfig.MaxSubLevel = 2
	discoveryConfig.MinMembers = 2
	discoveryConfig.ClusterDimensions = 8
	c.Discoverer = discovery.NewDiscoverer(c.Projects, c.Labeler, discoveryConfig, model.DefaultReducerConfig(), model.DefaultOutlierConfig(), nil)

	for _, p := range sampleProjects {
		p.Platform = "github"
		if err := c.Projects.InsertProject(ctx, p); err != nil {
			log.Fatalf("Failed to insert project %s: %v", p.Name, err)
		}
	}

	fmt.Println("Embedding projects...")
	embedded, missing, err := c.EmbedProjects(ctx, len(sampleProjects))
	if err != nil {
		log.Fatalf("Failed to embed projects: %v", err)
	}
	fmt.Printf("Embedded %d projects, %d missing\n", embedded, missing)

	fmt.Println("\nDiscovering causes...")
	result, err := c.DiscoverCauses(ctx)
	if err != nil {
		log.Fatalf("Failed to discover causes: %v", err)
	}
	fmt.Printf("Found %d causes (silhouette %.3f, method %s)\n", len(result.Causes), result.Silhouette, result.Method)
	for _, cause := range result.TopLevel() {
		fmt.Printf("- %s (%d projects)\n", cause.Name, cause.Size)
		for _, sub := range result.Children(cause.ID) {
			fmt.Printf("    - %s (%d projects)\n", sub.Name, sub.Size)
		}
	}

	projected, reason, err := c.ComputeProjections(ctx, nil)
	if err != nil {
		log.Fatalf("Failed to compute projections: %v", err)
	}
	if reason != "" {
		fmt.Printf("\nProjection skipped: %s\n", reason)
	} else {
		fmt.Printf("\nProjected %d projects into 3D\n", projected)
	}

	config := model.DefaultQueryConfig()
	config.TopK = 3
	config.SimilarityThreshold = 0.0

	fmt.Printf("\nProjects similar to %s:\n", sampleProjects[0].Name)
	similar, err := c.SimilarProjects(ctx, sampleProjects[0].ID, &config)
	if err != nil {
		log.Fatalf("Failed to find similar projects: %v", err)
	}
	for i, p := range similar {
		fmt.Printf("%d. %s (%.4f)\n", i+1, p.Name, *p.Similarity)
	}

	fmt.Println("\nBasic example completed successfully!")
}
