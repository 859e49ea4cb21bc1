package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Timeline event types
const (
	EventEmergence = "emergence"
	EventShift     = "shift"
	EventPeak      = "peak"
	EventDecline   = "decline"
)

// Narrative is a detected recurring theme. Name equality is the
// de-duplication key across runs: a cluster that names to an existing
// narrative overwrites its quality metrics instead of creating a new row.
type Narrative struct {
	ID          uuid.UUID `json:"id" db:"id" gorm:"primaryKey;type:uuid"`
	Name        string    `json:"name" db:"name" gorm:"type:varchar(200);uniqueIndex;not null"`
	Description string    `json:"description" db:"description" gorm:"type:text"`
	IsActive    bool      `json:"is_active" db:"is_active" gorm:"default:true"`

	// Quality metrics from the most recent cluster, not cumulative totals
	SourceDiversityScore float64 `json:"source_diversity_score" db:"source_diversity_score" gorm:"default:0.0"`
	SupportCount         int     `json:"support_count" db:"support_count" gorm:"default:0"`
	UniqueSourcesCount   int     `json:"unique_sources_count" db:"unique_sources_count" gorm:"default:0"`
	CoherenceScore       float64 `json:"coherence_score" db:"coherence_score" gorm:"default:0.0"`
	NearDuplicateRate    float64 `json:"near_duplicate_rate" db:"near_duplicate_rate" gorm:"default:0.0"`
	PersistenceDays      int     `json:"persistence_days" db:"persistence_days" gorm:"default:0"`

	CreatedAt time.Time `json:"created_at" db:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at" gorm:"autoUpdateTime"`
}

// TableName sets the table name for the Narrative model
func (Narrative) TableName() string {
	return "narratives"
}

// NarrativeCluster is one window's materialization of a narrative. Rows are
// insert-only; the centroid is the k-means centroid at creation time and is
// never recomputed.
type NarrativeCluster struct {
	ID          uuid.UUID `json:"id" db:"id" gorm:"primaryKey;type:uuid"`
	NarrativeID uuid.UUID `json:"narrative_id" db:"narrative_id" gorm:"type:uuid;index;not null"`
	Narrative   Narrative `json:"narrative,omitempty" gorm:"foreignKey:NarrativeID"`

	ClusterDate time.Time       `json:"cluster_date" db:"cluster_date" gorm:"index"`
	Centroid    pq.Float64Array `json:"centroid,omitempty" db:"centroid" gorm:"type:float8[]"`

	Articles   []Article   `json:"articles,omitempty" gorm:"many2many:narrative_cluster_articles"`
	Statements []Statement `json:"statements,omitempty" gorm:"many2many:narrative_cluster_statements"`

	CreatedAt time.Time `json:"created_at" db:"created_at" gorm:"autoCreateTime"`
}

// TableName sets the table name for the NarrativeCluster model
func (NarrativeCluster) TableName() string {
	return "narrative_clusters"
}

// TimelineEvent is an append-only log entry in a narrative's lifecycle.
// The detection pipeline only emits emergence events; shift, peak and
// decline are reserved for drift detection.
type TimelineEvent struct {
	ID          uuid.UUID `json:"id" db:"id" gorm:"primaryKey;type:uuid"`
	NarrativeID uuid.UUID `json:"narrative_id" db:"narrative_id" gorm:"type:uuid;index;not null"`
	Narrative   Narrative `json:"narrative,omitempty" gorm:"foreignKey:NarrativeID"`

	EventType         string    `json:"event_type" db:"event_type" gorm:"type:varchar(20);not null"`
	Description       string    `json:"description" db:"description" gorm:"type:text"`
	EventDate         time.Time `json:"event_date" db:"event_date" gorm:"index"`
	SignificanceScore float64   `json:"significance_score" db:"significance_score" gorm:"default:0.0"`

	RelatedArticles []Article `json:"related_articles,omitempty" gorm:"many2many:timeline_event_articles"`

	CreatedAt time.Time `json:"created_at" db:"created_at" gorm:"autoCreateTime"`
}

// TableName sets the table name for the TimelineEvent model
func (TimelineEvent) TableName() string {
	return "timeline_events"
}
