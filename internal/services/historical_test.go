package services

import (
	"context"
	"testing"
	"time"

	"news-narratives/internal/models"

	"github.com/google/uuid"
)

var backfillNow = time.Date(2024, 5, 15, 0, 0, 0, 0, time.UTC)

func TestWeekBoundaries(t *testing.T) {
	db := setupTestDB(t)
	detector := NewDetector(db, newTestNamer(&queueGenerator{names: []string{"Unused"}}), testDetectorConfig())

	t.Run("Exact multiple of seven", func(t *testing.T) {
		b := NewBackfill(db, detector, detector.namer, BackfillConfig{LookbackDays: 21})
		weeks := b.WeekBoundaries(backfillNow)

		if len(weeks) != 3 {
			t.Fatalf("Expected 3 weeks, got %d", len(weeks))
		}
		if !weeks[0][0].Equal(backfillNow.AddDate(0, 0, -21)) {
			t.Errorf("Expected oldest week first, got start %v", weeks[0][0])
		}
		for i, week := range weeks {
			if !week[1].Equal(week[0].AddDate(0, 0, 7)) {
				t.Errorf("Week %d is not 7 days: %v - %v", i, week[0], week[1])
			}
			if i > 0 && !week[0].Equal(weeks[i-1][1]) {
				t.Errorf("Week %d not contiguous with previous", i)
			}
		}
		if !weeks[2][1].Equal(backfillNow) {
			t.Errorf("Expected final week to end at now, got %v", weeks[2][1])
		}
	})

	t.Run("Trailing partial week", func(t *testing.T) {
		b := NewBackfill(db, detector, detector.namer, BackfillConfig{LookbackDays: 10})
		weeks := b.WeekBoundaries(backfillNow)

		if len(weeks) != 2 {
			t.Fatalf("Expected 2 weeks, got %d", len(weeks))
		}
		if got := weeks[1][1].Sub(weeks[1][0]); got != 3*24*time.Hour {
			t.Errorf("Expected 3-day final window, got %v", got)
		}
	})
}

func TestEstimateCost(t *testing.T) {
	db := setupTestDB(t)
	cfg := testDetectorConfig() // 3 clusters per week
	detector := NewDetector(db, newTestNamer(&queueGenerator{names: []string{"Unused"}}), cfg)

	t.Run("Naming only", func(t *testing.T) {
		b := NewBackfill(db, detector, detector.namer, BackfillConfig{LookbackDays: 28})
		estimate := b.EstimateCost(4)

		if estimate.EstimatedClusters != 12 {
			t.Errorf("Expected 12 clusters, got %d", estimate.EstimatedClusters)
		}
		if estimate.NamingCalls != 12 || estimate.BriefCalls != 0 {
			t.Errorf("Expected 12 naming and 0 brief calls, got %d/%d", estimate.NamingCalls, estimate.BriefCalls)
		}
		want := 12 * 0.0001
		if diff := estimate.TotalCostUSD - want; diff > 1e-9 || diff < -1e-9 {
			t.Errorf("Expected total $%.4f, got $%.4f", want, estimate.TotalCostUSD)
		}
	})

	t.Run("With briefs", func(t *testing.T) {
		b := NewBackfill(db, detector, detector.namer, BackfillConfig{LookbackDays: 28, GenerateBrief: true})
		estimate := b.EstimateCost(4)

		if estimate.BriefCalls != 4 {
			t.Errorf("Expected 4 brief calls, got %d", estimate.BriefCalls)
		}
		want := 12*0.0001 + 4*0.001
		if diff := estimate.TotalCostUSD - want; diff > 1e-9 || diff < -1e-9 {
			t.Errorf("Expected total $%.4f, got $%.4f", want, estimate.TotalCostUSD)
		}
	})
}

func TestPlanFiltersWeeks(t *testing.T) {
	db := setupTestDB(t)
	seedThreeGroups(t, db) // data only in [2024-05-08, 2024-05-15)

	detector := NewDetector(db, newTestNamer(&queueGenerator{names: []string{"Unused"}}), testDetectorConfig())
	b := NewBackfill(db, detector, detector.namer, BackfillConfig{LookbackDays: 14})

	plans, err := b.Plan(backfillNow)
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}

	if len(plans) != 1 {
		t.Fatalf("Expected 1 viable week, got %d", len(plans))
	}
	if plans[0].EmbeddedItems != 12 {
		t.Errorf("Expected 12 embedded items, got %d", plans[0].EmbeddedItems)
	}
	if plans[0].UniqueSources != 6 {
		t.Errorf("Expected 6 unique sources, got %d", plans[0].UniqueSources)
	}
}

func TestPlanSkipsProcessedWeeks(t *testing.T) {
	db := setupTestDB(t)
	seedThreeGroups(t, db)

	narrative := models.Narrative{ID: uuid.New(), Name: "Existing Story"}
	if err := db.Create(&narrative).Error; err != nil {
		t.Fatalf("Failed to seed narrative: %v", err)
	}
	event := models.TimelineEvent{
		ID:          uuid.New(),
		NarrativeID: narrative.ID,
		EventType:   models.EventEmergence,
		EventDate:   windowStart,
	}
	if err := db.Create(&event).Error; err != nil {
		t.Fatalf("Failed to seed timeline event: %v", err)
	}

	detector := NewDetector(db, newTestNamer(&queueGenerator{names: []string{"Unused"}}), testDetectorConfig())
	b := NewBackfill(db, detector, detector.namer, BackfillConfig{LookbackDays: 14, SkipExisting: true})

	plans, err := b.Plan(backfillNow)
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}
	if len(plans) != 0 {
		t.Errorf("Expected processed week to be excluded, got %d plans", len(plans))
	}
}

func TestRunProcessesViableWeeks(t *testing.T) {
	db := setupTestDB(t)
	seedThreeGroups(t, db) // one viable week out of two

	gen := &queueGenerator{names: []string{"Alpha Story", "Beta Story", "Gamma Story"}}
	namer := newTestNamer(gen)
	detector := NewDetector(db, namer, testDetectorConfig())
	b := NewBackfill(db, detector, namer, BackfillConfig{LookbackDays: 14})

	summary, err := b.Run(context.Background(), backfillNow)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if summary.WeeksProcessed != 1 {
		t.Errorf("Expected 1 week processed, got %d", summary.WeeksProcessed)
	}
	if summary.WeeksSkipped != 1 {
		t.Errorf("Expected 1 week skipped, got %d", summary.WeeksSkipped)
	}
	if summary.NarrativesCreated != 3 {
		t.Errorf("Expected 3 narratives created, got %d", summary.NarrativesCreated)
	}
	if summary.LLMCalls != 3 {
		t.Errorf("Expected 3 LLM calls, got %d", summary.LLMCalls)
	}
	if summary.TotalCostUSD <= 0 {
		t.Errorf("Expected positive cost, got %.6f", summary.TotalCostUSD)
	}
	if namer.Usage().Calls != 0 {
		t.Errorf("Expected usage counters reset after run, got %d calls", namer.Usage().Calls)
	}
}

func TestRunSkipExistingIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	seedThreeGroups(t, db)

	gen := &queueGenerator{names: []string{"Alpha Story", "Beta Story", "Gamma Story"}}
	namer := newTestNamer(gen)
	detector := NewDetector(db, namer, testDetectorConfig())
	b := NewBackfill(db, detector, namer, BackfillConfig{LookbackDays: 14, SkipExisting: true})
	ctx := context.Background()

	first, err := b.Run(ctx, backfillNow)
	if err != nil {
		t.Fatalf("First run failed: %v", err)
	}
	if first.WeeksProcessed != 1 {
		t.Fatalf("Expected 1 week processed, got %d", first.WeeksProcessed)
	}

	second, err := b.Run(ctx, backfillNow)
	if err != nil {
		t.Fatalf("Second run failed: %v", err)
	}
	if second.WeeksProcessed != 0 {
		t.Errorf("Expected no weeks processed on rerun, got %d", second.WeeksProcessed)
	}
	if second.WeeksSkipped != 2 {
		t.Errorf("Expected 2 weeks skipped on rerun, got %d", second.WeeksSkipped)
	}

	var clusterCount int64
	db.Model(&models.NarrativeCluster{}).Count(&clusterCount)
	if clusterCount != 3 {
		t.Errorf("Expected rerun to add no cluster rows, got %d", clusterCount)
	}
}

func TestCountEmbedded(t *testing.T) {
	db := setupTestDB(t)
	seedThreeGroups(t, db)

	// One article without an embedding must not count
	unembedded := models.Article{
		ID:            uuid.New(),
		Title:         "No embedding yet",
		URL:           "https://news.example/raw",
		Source:        "raw.ua",
		PublishedDate: windowStart.AddDate(0, 0, 1),
	}
	if err := db.Create(&unembedded).Error; err != nil {
		t.Fatalf("Failed to seed article: %v", err)
	}

	detector := NewDetector(db, newTestNamer(&queueGenerator{names: []string{"Unused"}}), testDetectorConfig())

	count, err := detector.CountEmbedded(windowStart, windowEnd)
	if err != nil {
		t.Fatalf("CountEmbedded failed: %v", err)
	}
	if count != 12 {
		t.Errorf("Expected 12 embedded articles, got %d", count)
	}

	sources, err := detector.CountUniqueSources(windowStart, windowEnd)
	if err != nil {
		t.Fatalf("CountUniqueSources failed: %v", err)
	}
	if sources != 7 {
		t.Errorf("Expected 7 distinct sources, got %d", sources)
	}
}
