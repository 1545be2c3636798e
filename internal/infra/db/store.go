package db

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"identiscope/internal/config"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Store struct {
	DB *gorm.DB
}

func NewStore(cfg config.Config, log *slog.Logger) (*Store, error) {
	gormCfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)}

	var (
		gdb *gorm.DB
		err error
	)
	switch strings.ToLower(cfg.DBDriver) {
	case "", "postgres":
		if cfg.PostgresDSN == "" {
			return nil, errors.New("POSTGRES_DSN is required")
		}
		gdb, err = gorm.Open(postgres.Open(cfg.PostgresDSN), gormCfg)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
	case "sqlite":
		path := cfg.SQLitePath
		if path == "" {
			path = "identiscope.db"
		}
		if log != nil {
			log.Info("using sqlite store", "path", path)
		}
		gdb, err = gorm.Open(sqlite.Open(path), gormCfg)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("db handle: %w", err)
	}
	if cfg.DBMaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.DBMaxOpenConns)
	}
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)

	return &Store{DB: gdb}, nil
}

// NewStoreFromDB wraps an already opened connection.
func NewStoreFromDB(gdb *gorm.DB) *Store {
	return &Store{DB: gdb}
}

// Migrate creates or updates the visits, deletion_requests and stats_cache tables.
func (s *Store) Migrate() error {
	if s == nil || s.DB == nil {
		return errDBUnavailable
	}
	return s.DB.AutoMigrate(&VisitModel{}, &DeletionRequestModel{}, &StatsCacheModel{})
}

func (s *Store) Close() error {
	if s == nil || s.DB == nil {
		return nil
	}
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
