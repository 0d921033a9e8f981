package store

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// kvEntry is the single-table schema the SQL backend keeps every document in.
// Version implements the compare-and-swap Update requires; it only ever
// increases.
type kvEntry struct {
	Key     string `gorm:"column:entry_key;primaryKey;size:191"`
	Value   []byte `gorm:"column:entry_value;type:longblob"`
	Version int64  `gorm:"column:version;not null;default:1"`
}

func (kvEntry) TableName() string { return "kv_entries" }

// SQLStore implements Store on a relational table via GORM, mirroring the
// original deployment where the key-value primitive was a SQL table.
// Requires gorm.Config{TranslateError: true} so duplicate-key inserts surface
// as gorm.ErrDuplicatedKey.
type SQLStore struct {
	db *gorm.DB
}

// NewSQLStore migrates the kv_entries table and wraps the connection.
func NewSQLStore(db *gorm.DB) (*SQLStore, error) {
	if err := db.AutoMigrate(&kvEntry{}); err != nil {
		return nil, err
	}
	return &SQLStore{db: db}, nil
}

func (s *SQLStore) Get(ctx context.Context, key string) ([]byte, error) {
	var entry kvEntry
	err := s.db.WithContext(ctx).Where("entry_key = ?", key).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return entry.Value, nil
}

func (s *SQLStore) Set(ctx context.Context, key string, value []byte) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "entry_key"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"entry_value": value,
			"version":     gorm.Expr("version + 1"),
		}),
	}).Create(&kvEntry{Key: key, Value: value, Version: 1}).Error
}

func (s *SQLStore) Delete(ctx context.Context, key string) error {
	return s.db.WithContext(ctx).Where("entry_key = ?", key).Delete(&kvEntry{}).Error
}

func (s *SQLStore) CreateIfAbsent(ctx context.Context, key string, value []byte) (bool, error) {
	err := s.db.WithContext(ctx).Create(&kvEntry{Key: key, Value: value, Version: 1}).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *SQLStore) ScanByPrefix(ctx context.Context, prefix string) (map[string][]byte, error) {
	var entries []kvEntry
	pattern := escapeLike(prefix) + "%"
	if err := s.db.WithContext(ctx).Where("entry_key LIKE ?", pattern).Find(&entries).Error; err != nil {
		return nil, err
	}
	out := make(map[string][]byte, len(entries))
	for _, e := range entries {
		out[e.Key] = e.Value
	}
	return out, nil
}

func (s *SQLStore) Update(ctx context.Context, key string, fn UpdateFunc) ([]byte, error) {
	for attempt := 0; attempt < updateRetries; attempt++ {
		var entry kvEntry
		err := s.db.WithContext(ctx).Where("entry_key = ?", key).First(&entry).Error
		absent := errors.Is(err, gorm.ErrRecordNotFound)
		if err != nil && !absent {
			return nil, err
		}

		var old []byte
		if !absent {
			old = entry.Value
		}
		next, err := fn(old)
		if err != nil {
			return nil, err
		}
		if next == nil {
			return old, nil
		}

		if absent {
			created, err := s.CreateIfAbsent(ctx, key, next)
			if err != nil {
				return nil, err
			}
			if created {
				return next, nil
			}
			continue // another writer created the key first
		}

		res := s.db.WithContext(ctx).Model(&kvEntry{}).
			Where("entry_key = ? AND version = ?", key, entry.Version).
			Updates(map[string]interface{}{
				"entry_value": next,
				"version":     entry.Version + 1,
			})
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 1 {
			return next, nil
		}
		// version moved underneath us, re-read and retry
	}
	return nil, ErrConflict
}

// escapeLike neutralizes LIKE wildcards inside key prefixes; usernames may
// legally contain underscores.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
