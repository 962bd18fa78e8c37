package sqlstore

import (
	"context"
	"fmt"

	"pricecollector/config"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Client struct {
	DB *gorm.DB
}

// NewClient opens a gorm connection for driver "postgres" or "sqlite".
func NewClient(driver, dsn string) (*Client, error) {
	var dialector gorm.Dialector
	switch driver {
	case "postgres":
		dialector = postgres.Open(dsn)
	case "sqlite":
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", driver, err)
	}

	return &Client{DB: db}, nil
}

// Open connects using the mirror settings, optionally creates the postgres
// database, and runs AutoMigrate.
func Open(cfg config.MirrorConfig, env string) (*Client, error) {
	dsn := cfg.DSN
	if cfg.Driver == "postgres" {
		if cfg.CreateDB {
			if err := CreateDatabase(cfg.Postgres); err != nil {
				return nil, fmt.Errorf("failed to create database: %w", err)
			}
		}
		if dsn == "" {
			dsn = cfg.Postgres.DSN(env)
		}
	}

	client, err := NewClient(cfg.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}

	if cfg.Driver == "postgres" {
		if err := client.configurePool(cfg.Postgres); err != nil {
			_ = client.Close()
			return nil, err
		}
	}

	if err := client.AutoMigratePriceRecord(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return client, nil
}

func (p *Client) configurePool(cfg config.PostgresConfig) error {
	db, err := p.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to retrieve raw DB: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	return nil
}

func (p *Client) AutoMigratePriceRecord() error {
	if err := p.DB.AutoMigrate(&PriceRecord{}); err != nil {
		return fmt.Errorf("auto-migrate price table: %w", err)
	}
	return nil
}

func (p *Client) IsHealthy(ctx context.Context) bool {
	db, err := p.DB.DB()
	if err != nil {
		return false
	}
	return db.PingContext(ctx) == nil
}

func (p *Client) Close() error {
	db, err := p.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to retrieve raw DB: %w", err)
	}
	return db.Close()
}
