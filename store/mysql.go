package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cassette/config"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// kvRow is the GORM model backing the MySQL store: one row per key.
type kvRow struct {
	Key       string    `gorm:"primaryKey;size:191;column:k"`
	Value     string    `gorm:"type:longtext;column:v"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

// TableName keeps the table name explicit rather than derived.
func (kvRow) TableName() string {
	return "coordinator_state"
}

// MySQLStore persists collections in a single key-value table via GORM.
type MySQLStore struct {
	db *gorm.DB
}

// NewMySQLStore connects, configures the pool and migrates the KV table.
func NewMySQLStore(cfg *config.Config) (*MySQLStore, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName)

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database with GORM: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxIdleConns(2)
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&kvRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate coordinator_state table: %w", err)
	}
	return &MySQLStore{db: db}, nil
}

// Get returns the stored value for key, or absent.
func (s *MySQLStore) Get(ctx context.Context, key string) (string, bool, error) {
	var row kvRow
	err := s.db.WithContext(ctx).First(&row, "k = ?", key).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to get %s: %w", key, err)
	}
	return row.Value, true, nil
}

// Set upserts the value for key.
func (s *MySQLStore) Set(ctx context.Context, key, value string) error {
	row := kvRow{Key: key, Value: value, UpdatedAt: time.Now()}
	err := s.db.WithContext(ctx).Save(&row).Error
	if err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	return nil
}

// Remove deletes the row for key; absent keys are a no-op.
func (s *MySQLStore) Remove(ctx context.Context, key string) error {
	err := s.db.WithContext(ctx).Delete(&kvRow{}, "k = ?", key).Error
	if err != nil {
		return fmt.Errorf("failed to remove %s: %w", key, err)
	}
	return nil
}

// Close closes the underlying connection pool.
func (s *MySQLStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
