package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// descriptionModel is the SQL row for one cached description.
type descriptionModel struct {
	ContentHash string `gorm:"primaryKey;size:64"`
	Provider    string `gorm:"primaryKey;size:64"`
	Model       string `gorm:"primaryKey;size:128"`
	PromptHash  string `gorm:"primaryKey;size:64"`
	Text        string `gorm:"type:text"`
	GeneratedAt time.Time
}

func (descriptionModel) TableName() string { return "alt_text_cache" }

// SQLStore keeps records in a SQL database through gorm.
type SQLStore struct {
	db *gorm.DB
}

// OpenSQL opens a postgres or mysql store and migrates its table.
func OpenSQL(driver, dsn string) (*SQLStore, error) {
	var dialector gorm.Dialector
	switch driver {
	case "postgres":
		dialector = postgres.Open(dsn)
	case "mysql":
		dialector = mysql.New(mysql.Config{DSN: dsn, DefaultStringSize: 191})
	default:
		return nil, fmt.Errorf("unsupported sql driver %q", driver)
	}
	db, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}
	return NewSQLStore(db)
}

// NewSQLStore wraps an open database and migrates the cache table.
func NewSQLStore(db *gorm.DB) (*SQLStore, error) {
	if err := db.AutoMigrate(&descriptionModel{}); err != nil {
		return nil, fmt.Errorf("migrate cache table: %w", err)
	}
	return &SQLStore{db: db}, nil
}

func (s *SQLStore) Get(ctx context.Context, k Key) (Record, bool, error) {
	var row descriptionModel
	err := s.db.WithContext(ctx).
		Where("content_hash = ? AND provider = ? AND model = ? AND prompt_hash = ?",
			k.ContentHash, k.Provider, k.Model, k.PromptHash).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, err
	}
	return Record{Text: row.Text, GeneratedAt: row.GeneratedAt.UTC()}, true, nil
}

func (s *SQLStore) Put(ctx context.Context, k Key, rec Record) error {
	row := descriptionModel{
		ContentHash: k.ContentHash,
		Provider:    k.Provider,
		Model:       k.Model,
		PromptHash:  k.PromptHash,
		Text:        rec.Text,
		GeneratedAt: rec.GeneratedAt,
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error
}

func (s *SQLStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
