package database

import (
	"fmt"
	"time"

	"tubequiz/internal/config"
	"tubequiz/internal/logger"

	_ "github.com/godror/godror" // Oracle driver (cgo, ODPI-C)
	"github.com/jmoiron/sqlx"
	_ "github.com/sijms/go-ora/v2" // Oracle driver (pure Go)
	"go.uber.org/zap"
)

const (
	DriverGoOra  = "oracle"
	DriverGodror = "godror"
)

func init() {
	// Both drivers take positional :1, :2 placeholders; make sqlx aware of that
	// so Rebind and named queries produce Oracle-style binds.
	sqlx.BindDriver(DriverGoOra, sqlx.NAMED)
	sqlx.BindDriver(DriverGodror, sqlx.NAMED)
}

// NewSQLXOracleDB opens and pings the Oracle database with the configured driver.
func NewSQLXOracleDB(cfg *config.Config) (*sqlx.DB, error) {
	driver, dsn, err := driverAndDSN(cfg)
	if err != nil {
		return nil, err
	}

	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Oracle database: %w", err)
	}

	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping Oracle database: %w", err)
	}

	logger.Get().Info("Connected to Oracle database",
		zap.String("driver", driver),
		zap.String("host", cfg.DB.Host),
		zap.Int("port", cfg.DB.Port),
		zap.String("service", cfg.DB.DBName))
	return db, nil
}

func driverAndDSN(cfg *config.Config) (string, string, error) {
	switch cfg.DB.Driver {
	case "", DriverGoOra:
		return DriverGoOra, cfg.GetDSN(), nil
	case DriverGodror:
		return DriverGodror, cfg.GetGodrorDSN(), nil
	default:
		return "", "", fmt.Errorf("unsupported database driver %q", cfg.DB.Driver)
	}
}
