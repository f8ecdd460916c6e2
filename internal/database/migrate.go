package database

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"
	"time"

	"tubequiz/internal/logger"

	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// golang-migrate ships no Oracle database driver, so the migration files are
// read through its iofs source driver and applied here over sqlx.
const (
	schemaTableExistsQuery = `SELECT COUNT(*) FROM user_tables WHERE table_name = 'SCHEMA_MIGRATIONS'`
	createSchemaTableQuery = `CREATE TABLE schema_migrations (version NUMBER(19) PRIMARY KEY, applied_at TIMESTAMP NOT NULL)`
	appliedVersionsQuery   = `SELECT version FROM schema_migrations ORDER BY version`
	insertVersionQuery     = `INSERT INTO schema_migrations (version, applied_at) VALUES (:1, :2)`
	deleteVersionQuery     = `DELETE FROM schema_migrations WHERE version = :1`
)

// Migrator applies numbered up/down SQL files to the database.
type Migrator struct {
	db  *sqlx.DB
	src source.Driver
}

// NewMigrator reads migrations from dir inside fsys.
func NewMigrator(db *sqlx.DB, fsys fs.FS, dir string) (*Migrator, error) {
	src, err := iofs.New(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open migration source: %w", err)
	}
	return &Migrator{db: db, src: src}, nil
}

// Close releases the migration source.
func (m *Migrator) Close() error {
	return m.src.Close()
}

// Up applies every migration that is not yet recorded and returns how many ran.
func (m *Migrator) Up(ctx context.Context) (int, error) {
	applied, err := m.appliedVersions(ctx)
	if err != nil {
		return 0, err
	}

	versions, err := m.versions()
	if err != nil {
		return 0, err
	}

	count := 0
	for _, v := range versions {
		if applied[v] {
			continue
		}
		r, name, err := m.src.ReadUp(v)
		if err != nil {
			return count, fmt.Errorf("failed to read up migration %d: %w", v, err)
		}
		if err := m.apply(ctx, v, name, r, true); err != nil {
			return count, err
		}
		count++
	}

	if count == 0 {
		logger.Get().Info("Database: no new migrations to apply")
	}
	return count, nil
}

// Down rolls back the last steps applied migrations, or all of them when steps <= 0.
func (m *Migrator) Down(ctx context.Context, steps int) (int, error) {
	applied, err := m.appliedVersions(ctx)
	if err != nil {
		return 0, err
	}

	versions, err := m.versions()
	if err != nil {
		return 0, err
	}

	count := 0
	for i := len(versions) - 1; i >= 0; i-- {
		if steps > 0 && count == steps {
			break
		}
		v := versions[i]
		if !applied[v] {
			continue
		}
		r, name, err := m.src.ReadDown(v)
		if err != nil {
			return count, fmt.Errorf("failed to read down migration %d: %w", v, err)
		}
		if err := m.apply(ctx, v, name, r, false); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

// versions lists every migration version in ascending order.
func (m *Migrator) versions() ([]uint, error) {
	var versions []uint
	v, err := m.src.First()
	for err == nil {
		versions = append(versions, v)
		v, err = m.src.Next(v)
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to list migrations: %w", err)
	}
	return versions, nil
}

func (m *Migrator) appliedVersions(ctx context.Context) (map[uint]bool, error) {
	var exists int
	if err := m.db.GetContext(ctx, &exists, schemaTableExistsQuery); err != nil {
		return nil, fmt.Errorf("failed to check schema_migrations: %w", err)
	}
	if exists == 0 {
		if _, err := m.db.ExecContext(ctx, createSchemaTableQuery); err != nil {
			return nil, fmt.Errorf("failed to create schema_migrations: %w", err)
		}
	}

	var rows []int64
	if err := m.db.SelectContext(ctx, &rows, appliedVersionsQuery); err != nil {
		return nil, fmt.Errorf("failed to read applied migrations: %w", err)
	}
	applied := make(map[uint]bool, len(rows))
	for _, v := range rows {
		applied[uint(v)] = true
	}
	return applied, nil
}

func (m *Migrator) apply(ctx context.Context, version uint, name string, r io.ReadCloser, up bool) error {
	defer r.Close()
	body, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read migration %s: %w", name, err)
	}

	tx, err := m.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin migration transaction: %w", err)
	}
	for _, stmt := range SplitStatements(string(body)) {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			tx.Rollback()
			return fmt.Errorf("could not execute migration %d (%s): %w", version, name, err)
		}
	}
	if up {
		_, err = tx.ExecContext(ctx, insertVersionQuery, int64(version), time.Now())
	} else {
		_, err = tx.ExecContext(ctx, deleteVersionQuery, int64(version))
	}
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to record migration %d: %w", version, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration %d: %w", version, err)
	}

	direction := "down"
	if up {
		direction = "up"
	}
	logger.Get().Info("Executed migration",
		zap.Uint("version", version),
		zap.String("name", name),
		zap.String("direction", direction))
	return nil
}

// SplitStatements breaks a migration file on ';' and drops blank statements.
// Oracle rejects a trailing semicolon on a single statement.
func SplitStatements(sql string) []string {
	var stmts []string
	for _, part := range strings.Split(sql, ";") {
		if s := strings.TrimSpace(part); s != "" {
			stmts = append(stmts, s)
		}
	}
	return stmts
}
