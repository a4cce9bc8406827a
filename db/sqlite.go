package db

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"slurm2sql/registry"
)

type sqliteStore struct {
	db *sql.DB
}

func openSqlite(target string) (Store, error) {
	db, err := sql.Open("sqlite", target)
	if err != nil {
		return nil, fmt.Errorf("Failed to open %s: %w", target, err)
	}
	// The sqlite driver multiplexes connections; an in-memory database exists per
	// connection, so pin a single one.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("Failed to open %s: %w", target, err)
	}
	return &sqliteStore{db}, nil
}

func sqliteType(t registry.SQLType) string {
	switch t {
	case registry.Int:
		return "INTEGER"
	case registry.Real:
		return "REAL"
	default:
		return "TEXT"
	}
}

func (s *sqliteStore) EnsureSchema(variant *registry.Variant) error {
	defs := make([]string, 0, len(variant.Columns))
	for _, col := range variant.Columns {
		def := `"` + col.Name + `" ` + sqliteType(col.Type)
		if col.Name == "JobIDSlurm" {
			def += " UNIQUE"
		}
		defs = append(defs, def)
	}
	_, err := s.db.Exec(fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s (%s)", JobTable, strings.Join(defs, ", ")))
	if err != nil {
		return fmt.Errorf("Failed to create %s: %w", JobTable, err)
	}
	_, err = s.db.Exec(fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s (key TEXT PRIMARY KEY, value INTEGER)", metaTable))
	if err != nil {
		return fmt.Errorf("Failed to create %s: %w", metaTable, err)
	}
	return nil
}

func (s *sqliteStore) InsertRows(variant *registry.Variant, rows []registry.Row) error {
	if len(rows) == 0 {
		return nil
	}
	names := variant.ColumnNames()
	q := fmt.Sprintf("INSERT OR REPLACE INTO %s (%s) VALUES (%s)",
		JobTable,
		`"`+strings.Join(names, `", "`)+`"`,
		strings.TrimSuffix(strings.Repeat("?,", len(names)), ","))

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	stmt, err := tx.Prepare(q)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, row := range rows {
		if _, err := stmt.Exec(columnValues(variant, row)...); err != nil {
			return fmt.Errorf("Failed to insert row: %w", err)
		}
	}
	return tx.Commit()
}

func (s *sqliteStore) GetLastTimestamp() (int64, bool, error) {
	var t int64
	err := s.db.QueryRow(
		fmt.Sprintf("SELECT value FROM %s WHERE key = ?", metaTable), watermarkKey).Scan(&t)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return t, true, nil
}

func (s *sqliteStore) SetLastTimestamp(t int64) error {
	_, err := s.db.Exec(fmt.Sprintf(
		"INSERT OR REPLACE INTO %s (key, value) VALUES (?, ?)", metaTable), watermarkKey, t)
	return err
}

// SQL exposes the underlying handle for ad-hoc queries.
func (s *sqliteStore) SQL() *sql.DB {
	return s.db
}

func (s *sqliteStore) Close() error {
	return s.db.Close()
}
