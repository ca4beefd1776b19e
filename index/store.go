// Package index provides the persistent embedding index (C5): a single
// SQLite table of (url, title, title embedding, body embeddings, summary)
// rows, scored against a query embedding via vector.EntryScore.
package index

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/woutermans/searchllama/vector"
)

// ErrIndex indicates an index store operation failed.
var ErrIndex = errors.New("index: error")

// document is the GORM row backing Store, matching spec §4.5's schema
// exactly: url PK, title, title_embedding BLOB, body_embedding_count INT,
// body_embeddings BLOB, summary.
type document struct {
	URL                string `gorm:"column:url;primaryKey"`
	Title              string `gorm:"column:title"`
	TitleEmbedding     []byte `gorm:"column:title_embedding"`
	BodyEmbeddingCount int    `gorm:"column:body_embedding_count"`
	BodyEmbeddings     []byte `gorm:"column:body_embeddings"`
	Summary            string `gorm:"column:summary"`
}

func (document) TableName() string { return "documents" }

// ScoredEntry is one row of a ScanScored result.
type ScoredEntry struct {
	URL         string
	Title       string
	Description string
	Score       float64
}

// Store is the C5 index store.
type Store struct {
	db *gorm.DB
}

// NewStore opens or creates the index database at db, migrating the
// documents table if needed. The table is static (unlike the teacher's
// per-task dynamic tables), so AutoMigrate is safe to use directly instead
// of the teacher's raw-SQL createTable workaround.
func NewStore(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(&document{}); err != nil {
		return nil, fmt.Errorf("%w: migrate documents table: %v", ErrIndex, err)
	}
	return &Store{db: db}, nil
}

// Upsert inserts or replaces all columns for url.
func (s *Store) Upsert(ctx context.Context, url, title, description string, titleEmb vector.Embedding, bodyEmbs []vector.Embedding) error {
	row := document{
		URL:                url,
		Title:              title,
		TitleEmbedding:     vector.Encode(titleEmb),
		BodyEmbeddingCount: len(bodyEmbs),
		BodyEmbeddings:     vector.EncodeConcat(bodyEmbs),
		Summary:            description,
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "url"}},
		DoUpdates: clause.AssignmentColumns([]string{"title", "title_embedding", "body_embedding_count", "body_embeddings", "summary"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("%w: upsert %q: %v", ErrIndex, url, err)
	}
	return nil
}

// ScanScored performs a full scan, scoring every row against q and
// dropping rows whose score is outside [-10,10] or whose blob sizes are
// inconsistent (corrupt), returning the survivors sorted descending by
// score.
func (s *Store) ScanScored(ctx context.Context, q vector.Embedding) ([]ScoredEntry, error) {
	var rows []document
	if err := s.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("%w: scan: %v", ErrIndex, err)
	}

	out := make([]ScoredEntry, 0, len(rows))
	for _, row := range rows {
		titleEmb, err := vector.Decode(row.TitleEmbedding)
		if err != nil {
			continue
		}
		bodyEmbs, err := vector.DecodeConcat(row.BodyEmbeddings, row.BodyEmbeddingCount)
		if err != nil {
			continue
		}

		score := vector.EntryScore(q, titleEmb, bodyEmbs)
		if !vector.InBounds(score) {
			continue
		}

		out = append(out, ScoredEntry{
			URL:         row.URL,
			Title:       row.Title,
			Description: row.Summary,
			Score:       score,
		})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out, nil
}
