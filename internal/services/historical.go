package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"news-narratives/internal/llm"
	"news-narratives/internal/models"

	"gorm.io/gorm"
)

// Per-call cost estimates used for backfill planning, matching the observed
// spend of the cheap and capable tiers.
const (
	estNamingCostPerCall = 0.0001
	estBriefCostPerCall  = 0.001
)

// BackfillConfig drives one historical processing run.
type BackfillConfig struct {
	LookbackDays  int
	SkipExisting  bool
	GenerateBrief bool
}

// WeekPlan describes one candidate window of a backfill.
type WeekPlan struct {
	Start, End    time.Time
	EmbeddedItems int64
	UniqueSources int64
}

// CostEstimate is the planning-time spend projection for a backfill.
type CostEstimate struct {
	Weeks             int
	EstimatedClusters int
	NamingCalls       int
	BriefCalls        int
	NamingCostUSD     float64
	BriefCostUSD      float64
	TotalCostUSD      float64
}

// BackfillSummary aggregates the outcome of a backfill run.
type BackfillSummary struct {
	WeeksProcessed    int
	WeeksSkipped      int
	NarrativesCreated int
	LLMCalls          int
	TotalCostUSD      float64
}

// Backfill sequences the weekly detector across a historical range. It does
// no clustering itself: it enumerates week boundaries, gates each on prior
// processing and data availability, and aggregates per-week counters.
type Backfill struct {
	db       *gorm.DB
	detector *Detector
	namer    *llm.Client
	cfg      BackfillConfig
}

// NewBackfill builds a historical batch orchestrator.
func NewBackfill(db *gorm.DB, detector *Detector, namer *llm.Client, cfg BackfillConfig) *Backfill {
	return &Backfill{db: db, detector: detector, namer: namer, cfg: cfg}
}

// WeekBoundaries partitions the lookback horizon before now into consecutive
// 7-day [start, end) windows, oldest first. The final window may be shorter.
func (b *Backfill) WeekBoundaries(now time.Time) [][2]time.Time {
	end := now.Truncate(24 * time.Hour)
	current := end.AddDate(0, 0, -b.cfg.LookbackDays)

	var weeks [][2]time.Time
	for current.Before(end) {
		weekEnd := current.AddDate(0, 0, 7)
		if weekEnd.After(end) {
			weekEnd = end
		}
		weeks = append(weeks, [2]time.Time{current, weekEnd})
		current = weekEnd
	}
	return weeks
}

// weekProcessed reports whether any timeline event already falls in the
// window, which marks it as handled by a previous run.
func (b *Backfill) weekProcessed(start, end time.Time) (bool, error) {
	var count int64
	err := b.db.Model(&models.TimelineEvent{}).
		Where("event_date >= ? AND event_date < ?", start, end).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("check processed week: %w", err)
	}
	return count > 0, nil
}

// Plan returns the windows a run would actually process, applying the
// skip-existing and minimum-viability gates without executing anything.
func (b *Backfill) Plan(now time.Time) ([]WeekPlan, error) {
	minViable := int64(b.detector.Config().ClustersPerWeek)

	var plans []WeekPlan
	for _, week := range b.WeekBoundaries(now) {
		start, end := week[0], week[1]

		if b.cfg.SkipExisting {
			processed, err := b.weekProcessed(start, end)
			if err != nil {
				return nil, err
			}
			if processed {
				continue
			}
		}

		embedded, err := b.detector.CountEmbedded(start, end)
		if err != nil {
			return nil, fmt.Errorf("count embedded items: %w", err)
		}
		if embedded < minViable {
			continue
		}

		sources, err := b.detector.CountUniqueSources(start, end)
		if err != nil {
			return nil, fmt.Errorf("count sources: %w", err)
		}

		plans = append(plans, WeekPlan{Start: start, End: end, EmbeddedItems: embedded, UniqueSources: sources})
	}
	return plans, nil
}

// EstimateCost projects the spend for processing the given number of weeks.
func (b *Backfill) EstimateCost(weeks int) CostEstimate {
	clusters := weeks * b.detector.Config().ClustersPerWeek
	briefs := 0
	if b.cfg.GenerateBrief {
		briefs = weeks
	}

	namingCost := float64(clusters) * estNamingCostPerCall
	briefCost := float64(briefs) * estBriefCostPerCall

	return CostEstimate{
		Weeks:             weeks,
		EstimatedClusters: clusters,
		NamingCalls:       clusters,
		BriefCalls:        briefs,
		NamingCostUSD:     namingCost,
		BriefCostUSD:      briefCost,
		TotalCostUSD:      namingCost + briefCost,
	}
}

// Run processes every viable week in chronological order, resetting the
// naming client's counters between windows so per-week usage can be
// aggregated. A window that fails keeps the run going; its error is logged
// and the week counts as skipped.
func (b *Backfill) Run(ctx context.Context, now time.Time) (*BackfillSummary, error) {
	weeks := b.WeekBoundaries(now)
	summary := &BackfillSummary{}
	minViable := int64(b.detector.Config().ClustersPerWeek)

	for i, week := range weeks {
		start, end := week[0], week[1]
		label := fmt.Sprintf("Week %d/%d: %s - %s", i+1, len(weeks),
			start.Format("2006-01-02"), end.Format("2006-01-02"))

		if b.cfg.SkipExisting {
			processed, err := b.weekProcessed(start, end)
			if err != nil {
				return nil, err
			}
			if processed {
				log.Printf("⏭️  %s - already processed, skipping", label)
				summary.WeeksSkipped++
				continue
			}
		}

		embedded, err := b.detector.CountEmbedded(start, end)
		if err != nil {
			return nil, fmt.Errorf("count embedded items: %w", err)
		}
		if embedded < minViable {
			log.Printf("⚠️  %s - insufficient items (%d), skipping", label, embedded)
			summary.WeeksSkipped++
			continue
		}

		log.Printf("🔄 %s - %d embedded items", label, embedded)

		result, err := b.detector.ProcessWindow(ctx, start, end)
		if err != nil {
			log.Printf("❌ %s - processing failed: %v", label, err)
			summary.WeeksSkipped++
			b.namer.ResetUsage()
			continue
		}

		if b.cfg.GenerateBrief && len(result.Narratives) > 0 {
			brief := b.namer.WeeklyBrief(ctx, result.Narratives)
			log.Printf("   📋 Brief: %s", truncate(brief, 100))
		}

		usage := b.namer.Usage()
		summary.WeeksProcessed++
		summary.NarrativesCreated += len(result.Narratives)
		summary.LLMCalls += usage.Calls
		summary.TotalCostUSD += usage.CostUSD

		// Fresh counters for the next window
		b.namer.ResetUsage()
	}

	return summary, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
