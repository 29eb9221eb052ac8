package db

import (
	"fmt"
	"log/slog"
	"time"

	"Gin_postgres_redis_lending/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type DBConfig struct {
	Host     string
	User     string
	Password string
	Name     string
	Port     string
	SSLMode  string
	// URL, when set, wins over the discrete fields.
	URL string
}

func (c DBConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	ssl := c.SSLMode
	if ssl == "" {
		ssl = "disable"
	}
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		c.Host, c.User, c.Password, c.Name, c.Port, ssl,
	)
}

func ConnectDB(cfg DBConfig, log *slog.Logger) (*gorm.DB, error) {
	conn, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := Migrate(conn); err != nil {
		return nil, fmt.Errorf("failed to migrate models: %w", err)
	}
	log.Info("database connected", "host", cfg.Host, "name", cfg.Name)
	return conn, nil
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.User{},
		&models.Category{},
		&models.Item{},
		&models.ItemInstance{},
		&models.Borrow{},
		&models.BorrowLog{},
	); err != nil {
		return err
	}

	// one open borrow per instance
	if err := db.Exec(fmt.Sprintf(`
	  CREATE UNIQUE INDEX IF NOT EXISTS %s_one_open_per_instance
	  ON %s (item_instance_id)
	  WHERE item_instance_id IS NOT NULL AND status IN ('PENDING', 'ACTIVE', 'LATE');
	`, models.BorrowTable, models.BorrowTable)).Error; err != nil {
		return err
	}

	// overdue sweep and borrower dashboards
	if err := db.Exec(fmt.Sprintf(`
	  CREATE INDEX IF NOT EXISTS %s_open_due
	  ON %s (due_date)
	  WHERE status IN ('ACTIVE', 'LATE');
	`, models.BorrowTable, models.BorrowTable)).Error; err != nil {
		return err
	}

	return nil
}
