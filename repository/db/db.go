package db

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/diorder/diorder/constant"
	"github.com/diorder/diorder/utils/logger"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// ResetPolicy decides what happens when the stored schema version does not
// match constant.SchemaVersion. The default drops every collection and
// recreates it empty; swap it for a real migration when one exists.
type ResetPolicy func(conn *sqlx.DB) error

// Open opens or creates the embedded store file.
func Open(path string) (*sqlx.DB, error) {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", path)
	return sqlx.Connect("sqlite3", dsn)
}

// EnsureSchema checks the stored schema version and applies the default
// destructive reset policy on mismatch.
func EnsureSchema(conn *sqlx.DB) error {
	return EnsureSchemaWith(conn, DropAndRecreate)
}

// EnsureSchemaWith runs the given policy when the store is at a stale version.
// A fresh file (no version table) is treated as a mismatch.
func EnsureSchemaWith(conn *sqlx.DB, policy ResetPolicy) error {
	var version int
	err := conn.Get(&version, "SELECT version FROM "+constant.TableSchemaVersion+" LIMIT 1")
	if err == nil && version == constant.SchemaVersion {
		return nil
	}
	if err != nil && !errors.Is(err, sql.ErrNoRows) && !isMissingTable(err) {
		return err
	}

	if err != nil {
		logger.Warn("schema version unreadable, resetting local store",
			zap.String("reason", err.Error()),
			zap.Int("want", constant.SchemaVersion),
		)
	} else {
		logger.Warn("schema version mismatch, resetting local store",
			zap.Int("found", version),
			zap.Int("want", constant.SchemaVersion),
		)
	}
	return policy(conn)
}

// DropAndRecreate is the default ResetPolicy: destructive migration, no data
// carried across versions.
func DropAndRecreate(conn *sqlx.DB) error {
	drops := []string{
		"DROP TABLE IF EXISTS " + constant.TableCartLines,
		"DROP TABLE IF EXISTS " + constant.TableMenuCache,
		"DROP TABLE IF EXISTS " + constant.TableMerchantCache,
		"DROP TABLE IF EXISTS " + constant.TableSchemaVersion,
	}
	for _, q := range drops {
		if _, err := conn.Exec(q); err != nil {
			return err
		}
	}

	creates := []string{
		`CREATE TABLE ` + constant.TableSchemaVersion + ` (version INTEGER NOT NULL)`,
		`CREATE TABLE ` + constant.TableCartLines + ` (
			line_key TEXT PRIMARY KEY,
			merchant_id INTEGER NOT NULL,
			menu_item_id INTEGER NOT NULL,
			name TEXT NOT NULL,
			price INTEGER NOT NULL,
			image TEXT NOT NULL DEFAULT '',
			category TEXT NOT NULL DEFAULT '',
			quantity INTEGER NOT NULL,
			notes TEXT NOT NULL DEFAULT '',
			selected TEXT
		)`,
		`CREATE TABLE ` + constant.TableMenuCache + ` (
			id INTEGER PRIMARY KEY,
			merchant_id INTEGER NOT NULL,
			name TEXT NOT NULL,
			price INTEGER NOT NULL,
			image TEXT NOT NULL DEFAULT '',
			category TEXT NOT NULL DEFAULT '',
			options TEXT,
			active INTEGER NOT NULL DEFAULT 1,
			last_modified TIMESTAMP
		)`,
		`CREATE INDEX idx_menu_cache_merchant ON ` + constant.TableMenuCache + ` (merchant_id)`,
		`CREATE TABLE ` + constant.TableMerchantCache + ` (
			id INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			address TEXT NOT NULL DEFAULT '',
			logo TEXT NOT NULL DEFAULT '',
			open_time TEXT NOT NULL DEFAULT '',
			close_time TEXT NOT NULL DEFAULT '',
			last_modified TIMESTAMP
		)`,
	}
	for _, q := range creates {
		if _, err := conn.Exec(q); err != nil {
			return err
		}
	}

	if _, err := conn.Exec("INSERT INTO "+constant.TableSchemaVersion+" (version) VALUES (?)", constant.SchemaVersion); err != nil {
		return err
	}
	return nil
}

func isMissingTable(err error) bool {
	return err != nil && strings.Contains(err.Error(), "no such table")
}
