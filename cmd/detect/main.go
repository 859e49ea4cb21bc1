// Command detect runs the weekly narrative-detection pipeline over one or
// more trailing 7-day windows.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"news-narratives/internal/database"
	"news-narratives/internal/llm"
	"news-narratives/internal/services"

	"github.com/joho/godotenv"
)

func main() {
	weeks := flag.Int("weeks", 1, "Number of trailing weeks to analyze")
	clustersPerWeek := flag.Int("clusters-per-week", 8, "Number of clusters per week")
	minSources := flag.Int("min-sources", 3, "Minimum unique sources required")
	minItems := flag.Int("min-items", 5, "Minimum items per cluster")
	coherenceThreshold := flag.Float64("coherence-threshold", 0.5, "Minimum coherence score")
	itemKind := flag.String("item-kind", "articles", "Clustering granularity: articles or statements")
	language := flag.String("language", "uk", "Language profile for content compression")
	generateBrief := flag.Bool("generate-weekly-brief", false, "Generate a weekly narrative brief")
	flag.Parse()

	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	dbConfig := database.LoadConfig()
	if err := database.Connect(dbConfig); err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}
	defer database.Close()

	if err := database.Migrate(); err != nil {
		log.Fatalf("❌ Failed to run migrations: %v", err)
	}

	generator, err := llm.NewOpenAIGenerator()
	if err != nil {
		log.Fatalf("❌ Failed to initialize text generation: %v", err)
	}

	var cache llm.Cache
	if redisCache, err := llm.NewRedisCache(llm.DefaultCacheTTL); err != nil {
		log.Printf("⚠️  LLM cache unavailable (%v), every call will hit the API", err)
		cache = llm.NewMemoryCache(llm.DefaultCacheTTL)
	} else {
		defer redisCache.Close()
		cache = redisCache
	}

	namer := llm.NewClient(generator, cache)

	cfg := services.DefaultDetectorConfig()
	cfg.ClustersPerWeek = *clustersPerWeek
	cfg.MinSources = *minSources
	cfg.MinItems = *minItems
	cfg.CoherenceThreshold = *coherenceThreshold
	cfg.ItemKind = services.ItemKind(*itemKind)
	cfg.Language = *language

	detector := services.NewDetector(database.DB, namer, cfg)

	log.Printf("Cost-efficient clustering: %d weeks, %d clusters/week", *weeks, cfg.ClustersPerWeek)
	log.Printf("Quality filters: >=%d sources, >=%d items, coherence >=%.2f",
		cfg.MinSources, cfg.MinItems, cfg.CoherenceThreshold)

	ctx := context.Background()
	now := time.Now().Truncate(24 * time.Hour)

	totalNarratives := 0
	totalCalls := 0
	totalCost := 0.0

	// Newest week first, matching how operators usually re-run recent data
	for week := 0; week < *weeks; week++ {
		end := now.AddDate(0, 0, -7*week)
		start := end.AddDate(0, 0, -7)

		result, err := detector.ProcessWindow(ctx, start, end)
		if err != nil {
			log.Fatalf("❌ Window %s failed: %v", start.Format("2006-01-02"), err)
		}

		if *generateBrief && len(result.Narratives) > 0 {
			brief := namer.WeeklyBrief(ctx, result.Narratives)
			log.Printf("📋 Week %d brief: %s", week+1, brief)
		}

		usage := namer.Usage()
		totalNarratives += len(result.Narratives)
		totalCalls += usage.Calls
		totalCost += usage.CostUSD
		namer.ResetUsage()
	}

	log.Printf("✅ Completed! Created %d narratives using %d LLM calls (~$%.3f)",
		totalNarratives, totalCalls, totalCost)
}
