package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/driver/postgres"
	gormsqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
	_ "modernc.org/sqlite"

	"inigma/internal/domain"
)

var _ Store = (*SQLStore)(nil)

// secretRow is the relational shape of a secret. Version implements
// optimistic concurrency: conditional updates only apply when the version
// they read is still current, and the row count of the guarded UPDATE is
// the applied signal.
type secretRow struct {
	ID         string `gorm:"primaryKey;size:64"`
	Ciphertext string `gorm:"not null"`
	IV         string `gorm:"not null"`
	Salt       string `gorm:"not null"`
	TTL        int64  `gorm:"not null;index"`
	OwnerID    string `gorm:"not null;default:'';index"`
	CreatorID  string `gorm:"not null;default:'';index"`
	Label      string `gorm:"not null;default:''"`
	CreatedAt  int64  `gorm:"not null;index"`
	Version    int64  `gorm:"not null;default:1"`
}

func (secretRow) TableName() string { return "secrets" }

func toRow(s domain.Secret) secretRow {
	return secretRow{
		ID:         s.ID,
		Ciphertext: s.Ciphertext,
		IV:         s.IV,
		Salt:       s.Salt,
		TTL:        s.TTL,
		OwnerID:    s.OwnerID,
		CreatorID:  s.CreatorID,
		Label:      s.Label,
		CreatedAt:  s.CreatedAt,
	}
}

func (r secretRow) toSecret() domain.Secret {
	return domain.Secret{
		ID:         r.ID,
		Ciphertext: r.Ciphertext,
		IV:         r.IV,
		Salt:       r.Salt,
		TTL:        r.TTL,
		OwnerID:    r.OwnerID,
		CreatorID:  r.CreatorID,
		Label:      r.Label,
		CreatedAt:  r.CreatedAt,
	}
}

// SQLStore backs the engine with a relational database through GORM.
// Postgres DSNs select the pgx driver; anything else is treated as a
// SQLite path (modernc driver, no cgo).
type SQLStore struct {
	db *gorm.DB
}

func NewSQLStore(dsn string) (*SQLStore, error) {
	var dial gorm.Dialector
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		dial = postgres.Open(dsn)
	} else {
		dial = gormsqlite.Dialector{DriverName: "sqlite", DSN: dsn}
	}

	db, err := gorm.Open(dial, &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.AutoMigrate(&secretRow{}); err != nil {
		return nil, fmt.Errorf("migrating secrets table: %w", err)
	}
	return &SQLStore{db: db}, nil
}

func (s *SQLStore) Put(ctx context.Context, sec domain.Secret) error {
	row := toRow(sec)
	row.Version = 1
	tx := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(&row)
	if tx.Error != nil {
		return fmt.Errorf("storing secret %s: %w", sec.ID, tx.Error)
	}
	return nil
}

func (s *SQLStore) Get(ctx context.Context, id string) (domain.Secret, error) {
	var row secretRow
	err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.Secret{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Secret{}, fmt.Errorf("fetching secret %s: %w", id, err)
	}
	return row.toSecret(), nil
}

// ConditionalUpdate re-reads the row, checks the predicate, then issues an
// UPDATE guarded by the version it read. RowsAffected gives a trustworthy
// applied signal with no verify-after-write re-read; losing the version
// race retries the whole check.
func (s *SQLStore) ConditionalUpdate(ctx context.Context, id string, pred func(domain.Secret) bool, mutate func(*domain.Secret)) (bool, error) {
	for i := 0; i < condUpdateRetries; i++ {
		var row secretRow
		err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		if err != nil {
			return false, fmt.Errorf("fetching secret %s: %w", id, err)
		}

		sec := row.toSecret()
		if !pred(sec) {
			return false, nil
		}
		mutate(&sec)

		updated := toRow(sec)
		updated.Version = row.Version + 1
		tx := s.db.WithContext(ctx).Model(&secretRow{}).
			Where("id = ? AND version = ?", id, row.Version).
			Updates(map[string]any{
				"ciphertext": updated.Ciphertext,
				"iv":         updated.IV,
				"salt":       updated.Salt,
				"ttl":        updated.TTL,
				"owner_id":   updated.OwnerID,
				"label":      updated.Label,
				"version":    updated.Version,
			})
		if tx.Error != nil {
			return false, fmt.Errorf("conditional update of secret %s: %w", id, tx.Error)
		}
		if tx.RowsAffected > 0 {
			return true, nil
		}
		// version moved under us, re-check
	}
	return false, fmt.Errorf("conditional update of secret %s: too much contention", id)
}

func (s *SQLStore) Delete(ctx context.Context, id string) (bool, error) {
	tx := s.db.WithContext(ctx).Delete(&secretRow{}, "id = ?", id)
	if tx.Error != nil {
		return false, fmt.Errorf("deleting secret %s: %w", id, tx.Error)
	}
	return tx.RowsAffected > 0, nil
}

func (s *SQLStore) Scan(ctx context.Context, fn func(domain.Secret) error) error {
	var rows []secretRow
	res := s.db.WithContext(ctx).FindInBatches(&rows, 200, func(tx *gorm.DB, batch int) error {
		for _, row := range rows {
			if err := fn(row.toSecret()); err != nil {
				return err
			}
		}
		return nil
	})
	if res.Error != nil {
		return fmt.Errorf("scanning secrets: %w", res.Error)
	}
	return nil
}

func (s *SQLStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
