package diskcache

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// cacheEntry is the GORM row backing SQLCache.
type cacheEntry struct {
	Key   string `gorm:"column:key;primaryKey"`
	Value []byte `gorm:"column:value"`
}

func (cacheEntry) TableName() string { return "cache_entries" }

// SQLCache is a Cache backed by a GORM database connection. It exists
// primarily so tests get deterministic, in-memory caching without relying
// on the filesystem, and so gorm.io/driver/sqlite is exercised a second way
// beyond the index store.
type SQLCache struct {
	db *gorm.DB
}

// NewSQLCache creates a SQLCache using db, migrating its table if needed.
func NewSQLCache(db *gorm.DB) (*SQLCache, error) {
	if err := db.AutoMigrate(&cacheEntry{}); err != nil {
		return nil, fmt.Errorf("%w: migrate cache table: %v", ErrCache, err)
	}
	return &SQLCache{db: db}, nil
}

// Get implements Cache.
func (c *SQLCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var entry cacheEntry
	err := c.db.WithContext(ctx).First(&entry, "key = ?", key).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("%w: get %q: %v", ErrCache, key, err)
	}
	return entry.Value, true, nil
}

// Put implements Cache. Insert-or-replace, matching the index store's
// upsert semantics (§4.5) for the same reason: a second writer for the
// same key should win outright rather than conflict.
func (c *SQLCache) Put(ctx context.Context, key string, value []byte) error {
	entry := cacheEntry{Key: key, Value: value}
	err := c.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value"}),
	}).Create(&entry).Error
	if err != nil {
		return fmt.Errorf("%w: put %q: %v", ErrCache, key, err)
	}
	return nil
}

var _ Cache = (*SQLCache)(nil)
