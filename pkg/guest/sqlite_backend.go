package guest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

// DBFileName is the database created inside the shopper data dir.
const DBFileName = "shopper.db"

type entry struct {
	Key       string    `gorm:"column:entry_key;primaryKey"`
	Value     []byte    `gorm:"column:value;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (entry) TableName() string {
	return "guest_entries"
}

// SQLiteBackend keeps guest state in a single-table SQLite database. Each
// Save is one upsert, so a crash never leaves a half-written value.
type SQLiteBackend struct {
	conn *gorm.DB
}

// NewSQLiteBackend opens (or creates) DBFileName inside dir.
func NewSQLiteBackend(dir string) (*SQLiteBackend, error) {
	if dir == "" {
		return nil, errors.New("guest: data dir is required")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return OpenSQLiteBackend(filepath.Join(dir, DBFileName) + "?_busy_timeout=5000")
}

// OpenSQLiteBackend opens a backend on an explicit DSN, e.g. an in-memory
// database in tests.
func OpenSQLiteBackend(dsn string) (*SQLiteBackend, error) {
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open guest db: %w", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		return nil, fmt.Errorf("guest db handle: %w", err)
	}
	// one CLI process, one writer
	sqlDB.SetMaxOpenConns(1)

	if err := conn.AutoMigrate(&entry{}); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("migrate guest db: %w", err)
	}
	return &SQLiteBackend{conn: conn}, nil
}

func (b *SQLiteBackend) Load(key string) ([]byte, error) {
	var row entry
	err := b.conn.Where("entry_key = ?", key).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", key, err)
	}
	return row.Value, nil
}

func (b *SQLiteBackend) Save(key string, data []byte) error {
	if key == "" {
		return errors.New("guest: key is required")
	}
	row := entry{Key: key, Value: append([]byte{}, data...)}
	err := b.conn.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "entry_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

func (b *SQLiteBackend) Delete(key string) error {
	if err := b.conn.Where("entry_key = ?", key).Delete(&entry{}).Error; err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// Close releases the database file.
func (b *SQLiteBackend) Close() error {
	sqlDB, err := b.conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
