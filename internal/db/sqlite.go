package db

import (
	"database/sql"
	"fmt"

	"backend-driverlog/internal/config"

	_ "github.com/mattn/go-sqlite3"
)

// ConnectSQLite opens the local fallback database. SQLite works best with a
// single writer, so the pool is capped at one connection.
func ConnectSQLite(cfg config.Config) (*sql.DB, error) {
	connStr := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL", cfg.LocalDBPath)
	conn, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, err
	}
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)

	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return conn, nil
}
