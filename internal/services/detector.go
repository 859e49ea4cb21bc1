// Package services wires the scoring, compression and naming stages into the
// weekly narrative-detection pipeline and its historical batch driver.
package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"news-narratives/internal/analysis"
	"news-narratives/internal/compress"
	"news-narratives/internal/llm"
	"news-narratives/internal/models"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// ItemKind selects the clustering granularity.
type ItemKind string

const (
	// KindArticles clusters whole articles.
	KindArticles ItemKind = "articles"
	// KindStatements clusters extracted statements, using the parent
	// article's source and publish date.
	KindStatements ItemKind = "statements"
)

// DetectorConfig holds the operator-facing knobs of one detection run.
type DetectorConfig struct {
	ClustersPerWeek    int
	MinSources         int
	MinItems           int
	CoherenceThreshold float64
	ItemKind           ItemKind
	Language           string
	Seed               int64

	MaxMedoids   int
	MaxSentences int
	MaxTerms     int
}

// DefaultDetectorConfig mirrors the defaults of the weekly batch job.
func DefaultDetectorConfig() DetectorConfig {
	return DetectorConfig{
		ClustersPerWeek:    8,
		MinSources:         3,
		MinItems:           5,
		CoherenceThreshold: 0.5,
		ItemKind:           KindArticles,
		Language:           "uk",
		Seed:               42,
		MaxMedoids:         3,
		MaxSentences:       6,
		MaxTerms:           12,
	}
}

// Detector runs the weekly clustering pipeline over one time window:
// load embedded items, k-means, quality gates, scoring, compression, naming
// and persistence.
type Detector struct {
	db         *gorm.DB
	namer      *llm.Client
	compressor *compress.Compressor
	cfg        DetectorConfig
}

// NewDetector builds a detector bound to a database and naming client.
func NewDetector(db *gorm.DB, namer *llm.Client, cfg DetectorConfig) *Detector {
	return &Detector{
		db:         db,
		namer:      namer,
		compressor: compress.New(cfg.Language),
		cfg:        cfg,
	}
}

// Config returns the detector's configuration.
func (d *Detector) Config() DetectorConfig {
	return d.cfg
}

// WindowResult summarizes one processed window.
type WindowResult struct {
	Start, End       time.Time
	Skipped          bool
	ItemsLoaded      int
	Narratives       []models.Narrative
	ClustersRejected int
	PersistFailures  int
}

// clusterItem is the generic clusterable unit: an article or a statement
// reduced to the fields the pipeline needs.
type clusterItem struct {
	articleID   uuid.UUID
	statementID uuid.UUID
	title       string
	content     string
	source      string
	url         string
	published   time.Time
	embedding   []float64
}

// ProcessWindow runs the full pipeline for [start, end). A window with fewer
// embedded items than the requested cluster count is skipped without side
// effects; clustering more clusters than points is undefined.
func (d *Detector) ProcessWindow(ctx context.Context, start, end time.Time) (*WindowResult, error) {
	result := &WindowResult{Start: start, End: end}

	log.Printf("Processing window: %s to %s", start.Format("2006-01-02"), end.Format("2006-01-02"))

	items, err := d.loadItems(start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", d.cfg.ItemKind, err)
	}
	result.ItemsLoaded = len(items)

	if len(items) < d.cfg.ClustersPerWeek {
		log.Printf("  Not enough embedded %s: %d < %d, skipping", d.cfg.ItemKind, len(items), d.cfg.ClustersPerWeek)
		result.Skipped = true
		return result, nil
	}

	log.Printf("  Found %d embedded %s", len(items), d.cfg.ItemKind)

	embeddings := make([][]float64, len(items))
	for i, item := range items {
		embeddings[i] = item.embedding
	}

	km, err := analysis.KMeans(embeddings, d.cfg.ClustersPerWeek, d.cfg.Seed)
	if err != nil {
		return nil, fmt.Errorf("clustering failed: %w", err)
	}

	for clusterID := 0; clusterID < d.cfg.ClustersPerWeek; clusterID++ {
		memberIdx := km.Members(clusterID)
		if len(memberIdx) == 0 {
			continue
		}

		members := make([]clusterItem, len(memberIdx))
		memberEmbeddings := make([][]float64, len(memberIdx))
		for i, idx := range memberIdx {
			members[i] = items[idx]
			memberEmbeddings[i] = embeddings[idx]
		}

		narrative, ok := d.processCluster(ctx, members, memberEmbeddings, km.Centroids[clusterID], start, clusterID, result)
		if ok {
			result.Narratives = append(result.Narratives, narrative)
		}
	}

	return result, nil
}

// processCluster applies the quality gates, scores, compresses, names and
// persists one cluster. Gates are checked in a fixed order; the first failing
// gate rejects the cluster.
func (d *Detector) processCluster(ctx context.Context, members []clusterItem, embeddings [][]float64, centroid []float64, windowStart time.Time, clusterID int, result *WindowResult) (models.Narrative, bool) {
	if len(members) < d.cfg.MinItems {
		result.ClustersRejected++
		return models.Narrative{}, false
	}

	sources := make([]string, len(members))
	uniqueSources := make(map[string]bool)
	uniqueDates := make(map[string]bool)
	for i, m := range members {
		sources[i] = m.source
		uniqueSources[m.source] = true
		uniqueDates[m.published.Format("2006-01-02")] = true
	}

	if len(uniqueSources) < d.cfg.MinSources {
		result.ClustersRejected++
		return models.Narrative{}, false
	}

	// A narrative has to span at least two calendar days; this guards
	// against same-day duplicate-source spam.
	if len(uniqueDates) < 2 {
		result.ClustersRejected++
		return models.Narrative{}, false
	}

	coherence := analysis.Coherence(embeddings)
	if coherence < d.cfg.CoherenceThreshold {
		result.ClustersRejected++
		return models.Narrative{}, false
	}

	diversity := analysis.SourceDiversity(sources)
	nearDupRate := analysis.NearDuplicateRate(embeddings)

	docs := make([]compress.Document, len(members))
	for i, m := range members {
		docs[i] = compress.Document{
			Title:         m.title,
			Content:       m.content,
			Source:        m.source,
			URL:           m.url,
			PublishedDate: m.published,
		}
	}
	compressed := d.compressor.Compress(docs, embeddings, compress.Options{
		MaxMedoids:   d.cfg.MaxMedoids,
		MaxSentences: d.cfg.MaxSentences,
		MaxTerms:     d.cfg.MaxTerms,
	})

	name := d.namer.NameCluster(ctx, compressed, windowStart, clusterID)

	narrative, err := d.persistCluster(members, centroid, persistedMetrics{
		name:            name,
		diversity:       diversity,
		coherence:       coherence,
		nearDupRate:     nearDupRate,
		uniqueSources:   len(uniqueSources),
		persistenceDays: len(uniqueDates),
		compression:     compressed.CompressionRatio,
	}, windowStart)
	if err != nil {
		log.Printf("❌ Failed to persist cluster %d (%s): %v", clusterID, name, err)
		result.PersistFailures++
		return models.Narrative{}, false
	}

	log.Printf("  ✓ %s: %d %s, %d sources, coherence %.3f",
		name, len(members), d.cfg.ItemKind, len(uniqueSources), coherence)

	return narrative, true
}

type persistedMetrics struct {
	name            string
	diversity       float64
	coherence       float64
	nearDupRate     float64
	uniqueSources   int
	persistenceDays int
	compression     float64
}

// persistCluster upserts the narrative by name, inserts the cluster row with
// its membership, and appends an emergence event for newly created
// narratives. Persistence is the final stage: nothing earlier writes, so a
// rejected or failed cluster leaves no rows behind.
func (d *Detector) persistCluster(members []clusterItem, centroid []float64, m persistedMetrics, windowStart time.Time) (models.Narrative, error) {
	description := fmt.Sprintf("Weekly narrative with %d %s from %d sources. Compression: %.1f%%",
		len(members), d.cfg.ItemKind, m.uniqueSources, m.compression*100)

	var narrative models.Narrative
	created := false

	err := d.db.Where("name = ?", m.name).First(&narrative).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		narrative = models.Narrative{
			ID:                   uuid.New(),
			Name:                 m.name,
			Description:          description,
			IsActive:             true,
			SourceDiversityScore: m.diversity,
			SupportCount:         len(members),
			UniqueSourcesCount:   m.uniqueSources,
			CoherenceScore:       m.coherence,
			NearDuplicateRate:    m.nearDupRate,
			PersistenceDays:      m.persistenceDays,
		}
		if err := d.db.Create(&narrative).Error; err != nil {
			return models.Narrative{}, fmt.Errorf("create narrative: %w", err)
		}
		created = true
	case err != nil:
		return models.Narrative{}, fmt.Errorf("lookup narrative: %w", err)
	default:
		// Existing name: overwrite the quality metrics with this run's values
		updates := map[string]interface{}{
			"description":            description,
			"source_diversity_score": m.diversity,
			"support_count":          len(members),
			"unique_sources_count":   m.uniqueSources,
			"coherence_score":        m.coherence,
			"near_duplicate_rate":    m.nearDupRate,
			"persistence_days":       m.persistenceDays,
		}
		if err := d.db.Model(&narrative).Updates(updates).Error; err != nil {
			return models.Narrative{}, fmt.Errorf("update narrative: %w", err)
		}
	}

	cluster := models.NarrativeCluster{
		ID:          uuid.New(),
		NarrativeID: narrative.ID,
		ClusterDate: windowStart,
		Centroid:    pq.Float64Array(centroid),
	}
	if err := d.db.Create(&cluster).Error; err != nil {
		return models.Narrative{}, fmt.Errorf("create cluster: %w", err)
	}

	if err := d.appendMembership(&cluster, members); err != nil {
		return models.Narrative{}, err
	}

	if created {
		event := models.TimelineEvent{
			ID:                uuid.New(),
			NarrativeID:       narrative.ID,
			EventType:         models.EventEmergence,
			Description:       fmt.Sprintf("Weekly narrative: %d %s, coherence %.3f", len(members), d.cfg.ItemKind, m.coherence),
			EventDate:         windowStart,
			SignificanceScore: m.coherence * m.diversity,
		}
		if err := d.db.Create(&event).Error; err != nil {
			return models.Narrative{}, fmt.Errorf("create timeline event: %w", err)
		}

		related := relatedArticleIDs(members, 5)
		if len(related) > 0 {
			var articles []models.Article
			if err := d.db.Where("id IN ?", related).Find(&articles).Error; err != nil {
				return models.Narrative{}, fmt.Errorf("load related articles: %w", err)
			}
			if err := d.db.Model(&event).Association("RelatedArticles").Append(&articles); err != nil {
				return models.Narrative{}, fmt.Errorf("link related articles: %w", err)
			}
		}
	}

	return narrative, nil
}

// appendMembership links the cluster row to its member articles or statements.
func (d *Detector) appendMembership(cluster *models.NarrativeCluster, members []clusterItem) error {
	if d.cfg.ItemKind == KindStatements {
		ids := make([]uuid.UUID, len(members))
		for i, m := range members {
			ids[i] = m.statementID
		}
		var statements []models.Statement
		if err := d.db.Where("id IN ?", ids).Find(&statements).Error; err != nil {
			return fmt.Errorf("load member statements: %w", err)
		}
		if err := d.db.Model(cluster).Association("Statements").Append(&statements); err != nil {
			return fmt.Errorf("link statements: %w", err)
		}
		return nil
	}

	ids := make([]uuid.UUID, len(members))
	for i, m := range members {
		ids[i] = m.articleID
	}
	var articles []models.Article
	if err := d.db.Where("id IN ?", ids).Find(&articles).Error; err != nil {
		return fmt.Errorf("load member articles: %w", err)
	}
	if err := d.db.Model(cluster).Association("Articles").Append(&articles); err != nil {
		return fmt.Errorf("link articles: %w", err)
	}
	return nil
}

// relatedArticleIDs returns up to max distinct parent article IDs.
func relatedArticleIDs(members []clusterItem, max int) []uuid.UUID {
	seen := make(map[uuid.UUID]bool)
	var ids []uuid.UUID
	for _, m := range members {
		if m.articleID == uuid.Nil || seen[m.articleID] {
			continue
		}
		seen[m.articleID] = true
		ids = append(ids, m.articleID)
		if len(ids) == max {
			break
		}
	}
	return ids
}

// CountEmbedded returns how many clusterable items with embeddings fall in
// the window. The batch orchestrator uses this for its viability gate.
func (d *Detector) CountEmbedded(start, end time.Time) (int64, error) {
	var count int64
	if d.cfg.ItemKind == KindStatements {
		err := d.db.Model(&models.Statement{}).
			Joins("JOIN articles ON articles.id = statements.article_id").
			Where("statements.embedding IS NOT NULL").
			Where("articles.published_date >= ? AND articles.published_date < ?", start, end).
			Count(&count).Error
		return count, err
	}

	err := d.db.Model(&models.Article{}).
		Where("embedding IS NOT NULL").
		Where("published_date >= ? AND published_date < ?", start, end).
		Count(&count).Error
	return count, err
}

// CountUniqueSources returns the number of distinct sources in the window.
func (d *Detector) CountUniqueSources(start, end time.Time) (int64, error) {
	var count int64
	err := d.db.Model(&models.Article{}).
		Where("published_date >= ? AND published_date < ?", start, end).
		Distinct("source").
		Count(&count).Error
	return count, err
}

// loadItems fetches the window's embedded items in a deterministic order so
// that re-running the same window re-clusters identically.
func (d *Detector) loadItems(start, end time.Time) ([]clusterItem, error) {
	if d.cfg.ItemKind == KindStatements {
		var statements []models.Statement
		err := d.db.Preload("Article").
			Joins("JOIN articles ON articles.id = statements.article_id").
			Where("statements.embedding IS NOT NULL").
			Where("articles.published_date >= ? AND articles.published_date < ?", start, end).
			Order("articles.published_date, statements.id").
			Find(&statements).Error
		if err != nil {
			return nil, err
		}

		items := make([]clusterItem, len(statements))
		for i, s := range statements {
			items[i] = clusterItem{
				articleID:   s.ArticleID,
				statementID: s.ID,
				title:       s.Article.Title,
				content:     s.FullStatement,
				source:      s.Article.Source,
				url:         s.Article.URL,
				published:   s.Article.PublishedDate,
				embedding:   s.Embedding,
			}
		}
		return items, nil
	}

	var articles []models.Article
	err := d.db.Where("embedding IS NOT NULL").
		Where("published_date >= ? AND published_date < ?", start, end).
		Order("published_date, url").
		Find(&articles).Error
	if err != nil {
		return nil, err
	}

	items := make([]clusterItem, len(articles))
	for i, a := range articles {
		items[i] = clusterItem{
			articleID: a.ID,
			title:     a.Title,
			content:   a.Content,
			source:    a.Source,
			url:       a.URL,
			published: a.PublishedDate,
			embedding: a.Embedding,
		}
	}
	return items, nil
}
