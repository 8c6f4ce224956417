package database

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ManuelReschke/ScoreEngine/app/models"
	"github.com/ManuelReschke/ScoreEngine/internal/pkg/config"
	"github.com/gofiber/fiber/v2/log"
	"github.com/sethvargo/go-retry"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	db   *gorm.DB
	once sync.Once
)

// Open connects to MySQL, retrying with a constant backoff until the
// configured attempts are used up.
func Open(ctx context.Context, cfg config.Database, dev bool) (*gorm.DB, error) {
	gormCfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)}
	if dev {
		gormCfg.Logger = logger.Default.LogMode(logger.Info)
	}

	attempts := cfg.Attempts
	if attempts == 0 {
		attempts = 1
	}
	delay := cfg.RetryDelay
	if delay <= 0 {
		delay = time.Second
	}
	b := retry.WithMaxRetries(attempts-1, retry.NewConstant(delay))

	var conn *gorm.DB
	try := uint64(0)
	err := retry.Do(ctx, b, func(ctx context.Context) error {
		try++
		c, err := gorm.Open(mysql.New(mysql.Config{
			DSN:                       cfg.DSN(),
			DefaultStringSize:         256,
			DisableDatetimePrecision:  true,
			DontSupportRenameIndex:    true,
			DontSupportRenameColumn:   true,
			SkipInitializeWithVersion: false,
		}), gormCfg)
		if err == nil {
			err = pingDB(ctx, c)
		}
		if err != nil {
			log.Warnf("Failed to connect to database (try %d/%d): %v", try, attempts, err)
			return retry.RetryableError(err)
		}
		conn = c
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("database: connect: %w", err)
	}
	return conn, nil
}

func pingDB(ctx context.Context, c *gorm.DB) error {
	sqlDB, err := c.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// SetupDatabase opens the process-wide connection once. In dev the schema is
// auto-migrated; everywhere else cmd/migrate owns the schema.
func SetupDatabase(ctx context.Context, cfg *config.Config) {
	once.Do(func() {
		conn, err := Open(ctx, cfg.Database, cfg.IsDev())
		if err != nil {
			panic(err)
		}
		if cfg.IsDev() {
			if err := conn.AutoMigrate(models.All()...); err != nil {
				panic(err)
			}
		}
		db = conn
	})
}

// GetDB returns the process-wide handle. SetupDatabase must run first.
func GetDB() *gorm.DB {
	if db == nil {
		panic("database not initialized. Call SetupDatabase first.")
	}
	return db
}

// Ping checks the process-wide connection.
func Ping(ctx context.Context) error {
	if db == nil {
		return fmt.Errorf("database not initialized")
	}
	return pingDB(ctx, db)
}
