// Package database opens the state database and applies its migrations.
package database

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/at-ishikawa/lexipack/internal/config"
)

const (
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"
)

func init() {
	sqlx.BindDriver(DriverSQLite, sqlx.QUESTION)
}

// Open opens the state database selected by cfg.Driver.
func Open(cfg config.DatabaseConfig) (*sqlx.DB, error) {
	switch cfg.Driver {
	case DriverMySQL:
		return openMySQL(cfg)
	case DriverSQLite, "":
		return openSQLite(cfg)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

func openSQLite(cfg config.DatabaseConfig) (*sqlx.DB, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("database.path is required for the sqlite driver")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0755); err != nil {
		return nil, fmt.Errorf("os.MkdirAll(%s) > %w", filepath.Dir(cfg.Path), err)
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", filepath.ToSlash(cfg.Path))
	db, err := sqlx.Open(DriverSQLite, dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlx.Open(%s) > %w", cfg.Path, err)
	}
	// sqlite allows one writer at a time.
	db.SetMaxOpenConns(1)
	return db, nil
}

func openMySQL(cfg config.DatabaseConfig) (*sqlx.DB, error) {
	mysqlCfg := mysql.NewConfig()
	mysqlCfg.User = cfg.Username
	mysqlCfg.Passwd = cfg.Password
	mysqlCfg.Net = "tcp"
	mysqlCfg.Addr = fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	mysqlCfg.DBName = cfg.Database
	mysqlCfg.ParseTime = true
	mysqlCfg.MultiStatements = true
	if cfg.TLS {
		mysqlCfg.TLSConfig = "true"
	}
	if len(cfg.Params) > 0 {
		mysqlCfg.Params = cfg.Params
	}

	db, err := sqlx.Open(DriverMySQL, mysqlCfg.FormatDSN())
	if err != nil {
		return nil, fmt.Errorf("sqlx.Open() > %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Second)
	}

	return db, nil
}
