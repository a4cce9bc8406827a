package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5"

	"slurm2sql/registry"
)

// The pgx connection is not thread-safe; the daemon's status API may probe the watermark
// while a sync is writing, so serialize all use with a mutex.

type postgresStore struct {
	conn *pgx.Conn
	lock sync.Mutex
}

func openPostgres(databaseURI string) (Store, error) {
	conn, err := pgx.Connect(context.Background(), databaseURI)
	if err != nil {
		return nil, fmt.Errorf("Unable to connect to database: %w", err)
	}
	return &postgresStore{conn: conn}, nil
}

func postgresType(t registry.SQLType) string {
	switch t {
	case registry.Int:
		return "BIGINT"
	case registry.Real:
		return "DOUBLE PRECISION"
	default:
		return "TEXT"
	}
}

func (s *postgresStore) EnsureSchema(variant *registry.Variant) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	cx := context.Background()
	defs := make([]string, 0, len(variant.Columns))
	for _, col := range variant.Columns {
		def := `"` + col.Name + `" ` + postgresType(col.Type)
		if col.Name == "JobIDSlurm" {
			def += " UNIQUE"
		}
		defs = append(defs, def)
	}
	_, err := s.conn.Exec(cx, fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s (%s)", JobTable, strings.Join(defs, ", ")))
	if err != nil {
		return fmt.Errorf("Failed to create %s: %w", JobTable, err)
	}
	_, err = s.conn.Exec(cx, fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s (key TEXT PRIMARY KEY, value BIGINT)", metaTable))
	if err != nil {
		return fmt.Errorf("Failed to create %s: %w", metaTable, err)
	}
	return nil
}

func (s *postgresStore) InsertRows(variant *registry.Variant, rows []registry.Row) error {
	if len(rows) == 0 {
		return nil
	}
	s.lock.Lock()
	defer s.lock.Unlock()

	names := variant.ColumnNames()
	placeholders := make([]string, len(names))
	updates := make([]string, 0, len(names))
	for i, name := range names {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		if name != "JobIDSlurm" {
			updates = append(updates, fmt.Sprintf(`"%s" = excluded."%s"`, name, name))
		}
	}
	q := fmt.Sprintf(
		`INSERT INTO %s (%s) VALUES (%s) ON CONFLICT ("JobIDSlurm") DO UPDATE SET %s`,
		JobTable,
		`"`+strings.Join(names, `", "`)+`"`,
		strings.Join(placeholders, ", "),
		strings.Join(updates, ", "))

	cx := context.Background()
	tx, err := s.conn.Begin(cx)
	if err != nil {
		return err
	}
	defer tx.Rollback(cx)
	for _, row := range rows {
		if _, err := tx.Exec(cx, q, columnValues(variant, row)...); err != nil {
			return fmt.Errorf("Failed to insert row: %w", err)
		}
	}
	return tx.Commit(cx)
}

func (s *postgresStore) GetLastTimestamp() (int64, bool, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	var t int64
	err := s.conn.QueryRow(context.Background(),
		fmt.Sprintf("SELECT value FROM %s WHERE key = $1", metaTable), watermarkKey).Scan(&t)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return t, true, nil
}

func (s *postgresStore) SetLastTimestamp(t int64) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	_, err := s.conn.Exec(context.Background(), fmt.Sprintf(
		"INSERT INTO %s (key, value) VALUES ($1, $2) "+
			"ON CONFLICT (key) DO UPDATE SET value = excluded.value", metaTable),
		watermarkKey, t)
	return err
}

func (s *postgresStore) Close() error {
	return s.conn.Close(context.Background())
}
