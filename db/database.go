package db

import (
	"fmt"
	"log"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	// pure-Go driver registered as "sqlite"
	_ "modernc.org/sqlite"
)

var DB *gorm.DB

// Driver names accepted by Initialize
const (
	DriverCGO    = "sqlite3" // mattn/go-sqlite3 through gorm.io/driver/sqlite
	DriverPureGo = "sqlite"  // modernc.org/sqlite
)

// Initialize opens the database in WAL mode. driver selects between the cgo
// and pure-Go sqlite implementations; empty means cgo.
func Initialize(dbPath, driver, environment string) error {
	conn, err := Open(dbPath, driver, environment)
	if err != nil {
		return err
	}
	DB = conn
	log.Printf("Database connection established (driver=%s, WAL mode enabled)", driverName(driver))
	return nil
}

// Open returns a new gorm handle without touching the package global.
func Open(dbPath, driver, environment string) (*gorm.DB, error) {
	logLevel := logger.Info
	if environment == "production" {
		logLevel = logger.Warn
	}
	if environment == "test" {
		logLevel = logger.Silent
	}

	var dialector gorm.Dialector
	switch driverName(driver) {
	case DriverPureGo:
		dialector = sqlite.New(sqlite.Config{
			DriverName: DriverPureGo,
			DSN:        dbPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)",
		})
	case DriverCGO:
		dialector = sqlite.Open(dbPath + "?_journal_mode=WAL&_busy_timeout=5000")
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	conn, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logLevel),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return conn, nil
}

func driverName(driver string) string {
	if driver == "" {
		return DriverCGO
	}
	return driver
}

// AutoMigrate runs database migrations for the provided models
func AutoMigrate(models ...interface{}) error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	if err := DB.AutoMigrate(models...); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	log.Println("Database migrations completed")
	return nil
}

// Close closes the database connection
func Close() error {
	if DB == nil {
		return nil
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}

	return sqlDB.Close()
}
