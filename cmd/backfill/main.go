// Command backfill processes a historical range of weeks through the
// narrative detector, with idempotent skipping and a dry-run planning mode.
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
	lookbackDays := flag.Int("lookback-days", 60, "How many days back to process")
	clustersPerWeek := flag.Int("clusters-per-week", 6, "Clusters per week (reduced for historical data)")
	minSources := flag.Int("min-sources", 3, "Minimum sources per narrative")
	minItems := flag.Int("min-items", 5, "Minimum items per cluster")
	coherenceThreshold := flag.Float64("coherence-threshold", 0.5, "Minimum coherence threshold")
	itemKind := flag.String("item-kind", "articles", "Clustering granularity: articles or statements")
	language := flag.String("language", "uk", "Language profile for content compression")
	skipExisting := flag.Bool("skip-existing", false, "Skip weeks that already have timeline events")
	dryRun := flag.Bool("dry-run", false, "Show the processing plan and cost estimate without running")
	generateBrief := flag.Bool("generate-weekly-brief", false, "Generate a brief per processed week")
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

	var namer *llm.Client
	if *dryRun {
		// Planning never calls the text-generation service
		namer = llm.NewClient(nil, nil)
	} else {
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
		namer = llm.NewClient(generator, cache)
	}

	cfg := services.DefaultDetectorConfig()
	cfg.ClustersPerWeek = *clustersPerWeek
	cfg.MinSources = *minSources
	cfg.MinItems = *minItems
	cfg.CoherenceThreshold = *coherenceThreshold
	cfg.ItemKind = services.ItemKind(*itemKind)
	cfg.Language = *language

	detector := services.NewDetector(database.DB, namer, cfg)
	backfill := services.NewBackfill(database.DB, detector, namer, services.BackfillConfig{
		LookbackDays:  *lookbackDays,
		SkipExisting:  *skipExisting,
		GenerateBrief: *generateBrief,
	})

	now := time.Now()
	log.Printf("📅 Historical processing: past %d days", *lookbackDays)

	plans, err := backfill.Plan(now)
	if err != nil {
		log.Fatalf("❌ Failed to build processing plan: %v", err)
	}
	log.Printf("Will process %d weeks", len(plans))

	if len(plans) > 0 {
		log.Println("📋 Processing plan:")
		for i, plan := range plans {
			if i == 5 {
				log.Printf("  ... and %d more weeks", len(plans)-5)
				break
			}
			log.Printf("  %d. %s - %s: %d items, %d sources",
				i+1, plan.Start.Format("2006-01-02"), plan.End.Format("2006-01-02"),
				plan.EmbeddedItems, plan.UniqueSources)
		}
	}

	estimate := backfill.EstimateCost(len(plans))
	log.Println("💰 Cost estimate:")
	log.Printf("  • Weeks: %d", estimate.Weeks)
	log.Printf("  • Expected clusters: %d", estimate.EstimatedClusters)
	log.Printf("  • LLM calls: %d naming + %d briefs", estimate.NamingCalls, estimate.BriefCalls)
	log.Printf("  • Estimated cost: $%.3f", estimate.TotalCostUSD)

	if *dryRun {
		log.Println("🔍 Dry run completed - no processing performed")
		return
	}

	log.Println("🚀 Starting historical processing...")

	summary, err := backfill.Run(context.Background(), now)
	if err != nil {
		log.Fatalf("❌ Backfill failed: %v", err)
	}

	log.Println("📊 Historical processing complete!")
	log.Printf("✅ Weeks processed: %d", summary.WeeksProcessed)
	log.Printf("⏭️  Weeks skipped: %d", summary.WeeksSkipped)
	log.Printf("📰 Narratives created: %d", summary.NarrativesCreated)
	log.Printf("🤖 LLM calls made: %d", summary.LLMCalls)
	log.Printf("💵 Total cost: $%.3f", summary.TotalCostUSD)

	if summary.NarrativesCreated > 0 {
		log.Printf("📈 Cost per narrative: $%.4f",
			summary.TotalCostUSD/float64(summary.NarrativesCreated))
	}
}
