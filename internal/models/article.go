package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Article is one ingested news item. The ingestion job owns these rows;
// the detection pipeline only reads them.
type Article struct {
	ID            uuid.UUID `json:"id" db:"id" gorm:"primaryKey;type:uuid"`
	Title         string    `json:"title" db:"title" gorm:"type:varchar(500)"`
	Content       string    `json:"content" db:"content" gorm:"type:text"`
	URL           string    `json:"url" db:"url" gorm:"uniqueIndex;not null"`
	PublishedDate time.Time `json:"published_date" db:"published_date" gorm:"index"`
	Source        string    `json:"source" db:"source" gorm:"type:varchar(200);index"`

	// 768-dimension sentence embedding; null until the embedding job has run
	Embedding pq.Float64Array `json:"embedding,omitempty" db:"embedding" gorm:"type:float8[]"`

	CreatedAt time.Time `json:"created_at" db:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at" gorm:"autoUpdateTime"`
}

// TableName sets the table name for the Article model
func (Article) TableName() string {
	return "articles"
}

// Statement is a finer-grained claim extracted from an article. Statements
// are an alternative clustering granularity to whole articles.
type Statement struct {
	ID        uuid.UUID `json:"id" db:"id" gorm:"primaryKey;type:uuid"`
	ArticleID uuid.UUID `json:"article_id" db:"article_id" gorm:"type:uuid;index;not null"`
	Article   Article   `json:"article,omitempty" gorm:"foreignKey:ArticleID"`

	Actor         string `json:"actor" db:"actor" gorm:"type:varchar(200)"`
	Action        string `json:"action" db:"action" gorm:"type:varchar(500)"`
	Reason        string `json:"reason" db:"reason" gorm:"type:varchar(500)"`
	Consequence   string `json:"consequence" db:"consequence" gorm:"type:varchar(500)"`
	FullStatement string `json:"full_statement" db:"full_statement" gorm:"type:text"`

	// Extraction confidence in [0,1]
	ConfidenceScore float64         `json:"confidence_score" db:"confidence_score" gorm:"default:0.0"`
	Embedding       pq.Float64Array `json:"embedding,omitempty" db:"embedding" gorm:"type:float8[]"`

	CreatedAt time.Time `json:"created_at" db:"created_at" gorm:"autoCreateTime"`
}

// TableName sets the table name for the Statement model
func (Statement) TableName() string {
	return "statements"
}
