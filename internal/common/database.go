package common

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"
)

// Database wraps a single sqlite connection. Every user of the database
// goes through this one connection, so statements are serialised and
// writers never see SQLITE_BUSY from each other
type Database struct {
	db *sql.DB
}

// Open the sqlite file provided (":memory:" is valid) and apply the schema.
// Statements in the schema are executed in order
func CreateDatabase(filename string, schema []string) (Database, error) {
	db, err := sql.Open("sqlite3", filename)
	if err != nil {
		return Database{}, fmt.Errorf("opening database %s: %w", filename, err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		db.Close()
		return Database{}, fmt.Errorf("connecting to database %s: %w", filename, err)
	}

	pragmas := []string{"PRAGMA foreign_keys = ON", "PRAGMA busy_timeout = 5000"}
	for _, statement := range append(pragmas, schema...) {
		if _, err := db.Exec(statement); err != nil {
			db.Close()
			return Database{}, fmt.Errorf("initialising database %s: %w", filename, err)
		}
	}
	log.Info().Str("filename", filename).Msg("Database ready")

	return Database{db: db}, nil
}

func (database *Database) Close() error {
	if database.db == nil {
		return nil
	}
	return database.db.Close()
}

func (database *Database) DB() *sql.DB {
	return database.db
}

// Run the function inside a transaction, committing if it returns nil
func (database *Database) Transaction(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := database.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rollbackErr := tx.Rollback(); rollbackErr != nil {
			log.Error().Err(rollbackErr).Msg("Could not roll back transaction")
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Add the column to the table unless it is already there. Used to bring
// databases created by older versions up to date
func (database *Database) EnsureColumn(table string, column string, definition string) error {
	var exists bool
	err := database.db.QueryRow("SELECT EXISTS (SELECT 1 FROM pragma_table_info(?) WHERE name = ?)", table, column).Scan(&exists)
	if err != nil {
		return fmt.Errorf("inspecting table %s: %w", table, err)
	}
	if exists {
		return nil
	}
	if _, err := database.db.Exec(fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, column, definition)); err != nil {
		return fmt.Errorf("adding column %s to table %s: %w", column, table, err)
	}
	log.Info().Str("table", table).Str("column", column).Msg("Database column added")
	return nil
}

// Tell if the error returned by sqlite is a violation of a unique constraint
func IsUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrConstraint &&
			(sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique || sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey)
	}
	return false
}
