package store

import (
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

var mysqlSchema = []string{`
CREATE TABLE IF NOT EXISTS users (
	id VARCHAR(36) PRIMARY KEY,
	chat_id VARCHAR(64) UNIQUE NOT NULL,
	created_at DATETIME NOT NULL
)`, `
CREATE TABLE IF NOT EXISTS mailboxes (
	id VARCHAR(36) PRIMARY KEY,
	user_id VARCHAR(36) NOT NULL,
	email VARCHAR(255) UNIQUE NOT NULL,
	password VARCHAR(255) NOT NULL,
	tag VARCHAR(255) NOT NULL DEFAULT '',
	frequency VARCHAR(16) NOT NULL DEFAULT 'daily',
	last_summary_sent DATETIME NOT NULL,
	next_summary_time DATETIME NOT NULL,
	CONSTRAINT fk_mailboxes_user FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE,
	INDEX idx_mailboxes_user (user_id),
	INDEX idx_mailboxes_next (next_summary_time)
)`}

// MySQLStore is the MySQL implementation of core.Store
type MySQLStore struct {
	sqlStore
}

// NewMySQLStore connects to MySQL with the given DSN and applies the
// schema. The DSN must include parseTime=true so DATETIME columns scan
// into time.Time.
func NewMySQLStore(dsn string, logger *zap.Logger) (*MySQLStore, error) {
	db, err := sqlx.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL connection: %w", err)
	}

	for _, stmt := range mysqlSchema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply schema: %w", err)
		}
	}

	return &MySQLStore{sqlStore{db: db, logger: logger}}, nil
}
