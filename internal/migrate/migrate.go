// Package migrate applies the embedded SQL migrations of the local state database.
package migrate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/emiliopalmerini/mlab/migrations"
)

var upPattern = regexp.MustCompile(`^(\d+)_(.+)\.up\.sql$`)

// Migration is one versioned schema change.
type Migration struct {
	Version int
	Name    string
	UpSQL   string
	DownSQL string
}

// Status describes where a database sits relative to the known migrations.
type Status struct {
	Current int
	Latest  int
	Dirty   bool
	Pending []Migration
}

// Migrator runs migrations read from an fs.FS against a database.
type Migrator struct {
	db     *sql.DB
	source fs.FS
	log    logrus.FieldLogger
}

// New returns a Migrator over the embedded migrations.
func New(db *sql.DB, log logrus.FieldLogger) *Migrator {
	return NewWithSource(db, migrations.FS, log)
}

func NewWithSource(db *sql.DB, source fs.FS, log logrus.FieldLogger) *Migrator {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Migrator{db: db, source: source, log: log}
}

// RunAll applies every pending migration using the embedded source.
func RunAll(ctx context.Context, db *sql.DB) error {
	_, err := New(db, nil).Up(ctx)
	return err
}

// Load reads the migration files sorted by version.
func (m *Migrator) Load() ([]Migration, error) {
	entries, err := fs.ReadDir(m.source, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations: %w", err)
	}

	var result []Migration
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		matches := upPattern.FindStringSubmatch(e.Name())
		if matches == nil {
			continue
		}
		version, err := strconv.Atoi(matches[1])
		if err != nil {
			return nil, fmt.Errorf("invalid migration version in %s: %w", e.Name(), err)
		}

		up, err := fs.ReadFile(m.source, e.Name())
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", e.Name(), err)
		}
		down, err := fs.ReadFile(m.source, fmt.Sprintf("%s_%s.down.sql", matches[1], matches[2]))
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read down migration for %d: %w", version, err)
		}

		result = append(result, Migration{
			Version: version,
			Name:    matches[2],
			UpSQL:   string(up),
			DownSQL: string(down),
		})
	}

	sort.Slice(result, func(i, j int) bool { return result[i].Version < result[j].Version })
	return result, nil
}

// Status reports the current version and the migrations not yet applied.
func (m *Migrator) Status(ctx context.Context) (*Status, error) {
	if err := m.ensureTable(ctx); err != nil {
		return nil, err
	}
	all, err := m.Load()
	if err != nil {
		return nil, err
	}
	current, dirty, err := m.currentVersion(ctx)
	if err != nil {
		return nil, err
	}

	st := &Status{Current: current, Dirty: dirty}
	for _, mig := range all {
		st.Latest = max(st.Latest, mig.Version)
		if mig.Version > current {
			st.Pending = append(st.Pending, mig)
		}
	}
	return st, nil
}

// Up applies every pending migration and returns how many ran.
func (m *Migrator) Up(ctx context.Context) (int, error) {
	return m.UpTo(ctx, 0)
}

// UpTo applies pending migrations up to and including target. A target of 0
// applies all of them.
func (m *Migrator) UpTo(ctx context.Context, target int) (int, error) {
	st, err := m.Status(ctx)
	if err != nil {
		return 0, err
	}
	if st.Dirty {
		return 0, fmt.Errorf("database is in dirty state at version %d", st.Current)
	}
	if target > st.Latest {
		return 0, fmt.Errorf("unknown target version %d, latest is %d", target, st.Latest)
	}

	applied := 0
	for _, mig := range st.Pending {
		if target > 0 && mig.Version > target {
			break
		}
		if err := m.apply(ctx, mig, true); err != nil {
			return applied, err
		}
		applied++
	}
	return applied, nil
}

// MigrateTo moves the database up or down to target.
func (m *Migrator) MigrateTo(ctx context.Context, target int) (int, error) {
	st, err := m.Status(ctx)
	if err != nil {
		return 0, err
	}
	if target < st.Current {
		return 0, m.DownTo(ctx, target)
	}
	if target == st.Current {
		return 0, nil
	}
	return m.UpTo(ctx, target)
}

// DownTo reverts applied migrations until the database is at target.
func (m *Migrator) DownTo(ctx context.Context, target int) error {
	if target < 0 {
		return fmt.Errorf("invalid target version %d", target)
	}
	all, err := m.Load()
	if err != nil {
		return err
	}
	if err := m.ensureTable(ctx); err != nil {
		return err
	}
	current, dirty, err := m.currentVersion(ctx)
	if err != nil {
		return err
	}
	if dirty {
		return fmt.Errorf("database is in dirty state at version %d", current)
	}

	for i := len(all) - 1; i >= 0; i-- {
		mig := all[i]
		if mig.Version > current {
			continue
		}
		if mig.Version <= target {
			break
		}
		if strings.TrimSpace(mig.DownSQL) == "" {
			return fmt.Errorf("no down migration for version %d", mig.Version)
		}
		if err := m.apply(ctx, mig, false); err != nil {
			return err
		}
	}
	return nil
}

func (m *Migrator) apply(ctx context.Context, mig Migration, up bool) error {
	direction, body, target := "up", mig.UpSQL, mig.Version
	if !up {
		direction, body, target = "down", mig.DownSQL, mig.Version-1
	}

	m.log.WithFields(logrus.Fields{
		"version":   mig.Version,
		"name":      mig.Name,
		"direction": direction,
	}).Info("applying migration")

	if err := m.setVersion(ctx, mig.Version, true); err != nil {
		return fmt.Errorf("failed to set dirty flag: %w", err)
	}
	for _, stmt := range splitStatements(body) {
		if _, err := m.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to execute migration %d %s: %w", mig.Version, direction, err)
		}
	}
	if err := m.setVersion(ctx, target, false); err != nil {
		return fmt.Errorf("failed to clear dirty flag: %w", err)
	}
	return nil
}

func (m *Migrator) ensureTable(ctx context.Context) error {
	_, err := m.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			dirty INTEGER NOT NULL DEFAULT 0
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}
	return nil
}

func (m *Migrator) currentVersion(ctx context.Context) (int, bool, error) {
	var version, dirty int
	err := m.db.QueryRowContext(ctx, `SELECT version, dirty FROM schema_migrations ORDER BY version DESC LIMIT 1`).Scan(&version, &dirty)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to get current version: %w", err)
	}
	return version, dirty == 1, nil
}

func (m *Migrator) setVersion(ctx context.Context, version int, dirty bool) error {
	if _, err := m.db.ExecContext(ctx, `DELETE FROM schema_migrations`); err != nil {
		return err
	}
	if version <= 0 {
		return nil
	}
	dirtyInt := 0
	if dirty {
		dirtyInt = 1
	}
	_, err := m.db.ExecContext(ctx, `INSERT INTO schema_migrations (version, dirty) VALUES (?, ?)`, version, dirtyInt)
	return err
}

// splitStatements splits on semicolons and drops blank statements.
func splitStatements(body string) []string {
	var out []string
	for _, stmt := range strings.Split(body, ";") {
		if stmt = strings.TrimSpace(stmt); stmt != "" {
			out = append(out, stmt)
		}
	}
	return out
}
