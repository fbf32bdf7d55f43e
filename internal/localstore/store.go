package localstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Entry is one persisted key. The console keeps only a handful: the two
// tokens, the cached profile and the clinician notes.
type Entry struct {
	Key       string    `gorm:"column:entry_key;type:varchar(100);primaryKey"`
	Value     string    `gorm:"column:value;type:text;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Entry) TableName() string {
	return "local_entries"
}

// Store is the console's persistent key/value storage. Values pass through
// the Sealer on the way in and out.
type Store struct {
	db     *gorm.DB
	sealer Sealer
}

func New(db *gorm.DB, sealer Sealer) *Store {
	if sealer == nil {
		sealer = Plaintext{}
	}
	return &Store{db: db, sealer: sealer}
}

// Get returns the value under key and whether it exists.
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	var e Entry
	err := s.db.WithContext(ctx).Where("entry_key = ?", key).First(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("reading %q: %w", key, err)
	}

	plain, err := s.sealer.Open(e.Value)
	if err != nil {
		return "", false, fmt.Errorf("opening %q: %w", key, err)
	}
	return plain, true, nil
}

// Set writes value under key, replacing any previous value.
func (s *Store) Set(ctx context.Context, key, value string) error {
	sealed, err := s.sealer.Seal(value)
	if err != nil {
		return fmt.Errorf("sealing %q: %w", key, err)
	}

	e := Entry{Key: key, Value: sealed}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "entry_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&e).Error
	if err != nil {
		return fmt.Errorf("writing %q: %w", key, err)
	}
	return nil
}

// SetMany writes several keys in one transaction.
func (s *Store) SetMany(ctx context.Context, values map[string]string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inner := &Store{db: tx, sealer: s.sealer}
		for k, v := range values {
			if err := inner.Set(ctx, k, v); err != nil {
				return err
			}
		}
		return nil
	})
}

// Delete removes the given keys. Missing keys are not an error.
func (s *Store) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := s.db.WithContext(ctx).Where("entry_key IN ?", keys).Delete(&Entry{}).Error; err != nil {
		return fmt.Errorf("deleting %v: %w", keys, err)
	}
	return nil
}
