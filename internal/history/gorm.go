package history

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

// BlobModel is one persisted history blob.
type BlobModel struct {
	Name      string         `gorm:"primaryKey"`
	Value     datatypes.JSON `gorm:"not null"`
	UpdatedAt time.Time      `gorm:"not null"`
}

func (BlobModel) TableName() string { return "history_blobs" }

// GormBackend stores blobs in a SQL table via GORM.
type GormBackend struct {
	db *gorm.DB
}

// OpenGormBackend opens a postgres or sqlite database and migrates the
// blob table. dialect is "postgres" or "sqlite".
func OpenGormBackend(dialect, dsn string) (*GormBackend, error) {
	var dialector gorm.Dialector
	switch strings.ToLower(strings.TrimSpace(dialect)) {
	case "postgres", "postgresql":
		dialector = postgres.Open(dsn)
	case "sqlite", "sqlite3":
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unknown database dialect: %s", dialect)
	}
	gormLog := gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	db, err := gorm.Open(dialector, &gorm.Config{Logger: gormLog})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	return NewGormBackend(db)
}

// NewGormBackend uses an already opened database.
func NewGormBackend(db *gorm.DB) (*GormBackend, error) {
	if err := db.AutoMigrate(&BlobModel{}); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	return &GormBackend{db: db}, nil
}

func (b *GormBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var m BlobModel
	err := b.db.WithContext(ctx).Where("name = ?", key).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load history blob: %w", err)
	}
	return []byte(m.Value), true, nil
}

func (b *GormBackend) Put(ctx context.Context, key string, value []byte) error {
	m := BlobModel{Name: key, Value: datatypes.JSON(value), UpdatedAt: time.Now().UTC()}
	err := b.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&m).Error
	if err != nil {
		return fmt.Errorf("save history blob: %w", err)
	}
	return nil
}

func (b *GormBackend) Delete(ctx context.Context, key string) error {
	if err := b.db.WithContext(ctx).Where("name = ?", key).Delete(&BlobModel{}).Error; err != nil {
		return fmt.Errorf("delete history blob: %w", err)
	}
	return nil
}
