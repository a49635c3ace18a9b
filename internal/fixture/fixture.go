// Package fixture builds development and test copies of the climate dataset.
// Scripts are named with a 4-digit prefix for order: 0001_schema.sql,
// 0002_stations.sql, ...; applied versions are recorded in fixture_versions.
package fixture

import (
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"regexp"
	"sort"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed sql/*.sql
var sqlFS embed.FS

const (
	scriptsDir    = "sql"
	tableName     = "fixture_versions"
	schemaVersion = "0001"
)

var scriptFileRe = regexp.MustCompile(`^(\d{4})_(.+)\.sql$`)

type script struct {
	version string
	name    string
	body    string
}

// Run applies every embedded script that has not been applied yet, in version
// order: schema first, then station and measurement seed rows.
func Run(db *sql.DB) error {
	if err := ensureVersionsTable(db); err != nil {
		return fmt.Errorf("ensure versions table: %w", err)
	}
	applied, err := appliedVersions(db)
	if err != nil {
		return fmt.Errorf("list applied scripts: %w", err)
	}
	scripts, err := loadScripts()
	if err != nil {
		return err
	}
	for _, s := range scripts {
		if applied[s.version] {
			continue
		}
		if err := apply(db, s); err != nil {
			return fmt.Errorf("apply %s_%s.sql: %w", s.version, s.name, err)
		}
		slog.Debug("fixture applied", "version", s.version, "name", s.name)
	}
	return nil
}

// ApplySchema creates the empty station and measurement tables only.
func ApplySchema(db *sql.DB) error {
	scripts, err := loadScripts()
	if err != nil {
		return err
	}
	for _, s := range scripts {
		if s.version == schemaVersion {
			if _, err := db.Exec(s.body); err != nil {
				return fmt.Errorf("apply schema: %w", err)
			}
			return nil
		}
	}
	return fmt.Errorf("schema script %s not embedded", schemaVersion)
}

// Create writes a new database file at path. With seed it holds the sample
// dataset; without, only the empty tables.
func Create(path string, seed bool) error {
	conn, err := sql.Open("sqlite3", path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer func() {
		if closeErr := conn.Close(); closeErr != nil {
			slog.Error("fixture close", "error", closeErr)
		}
	}()
	if seed {
		return Run(conn)
	}
	return ApplySchema(conn)
}

func loadScripts() ([]script, error) {
	entries, err := fs.ReadDir(sqlFS, scriptsDir)
	if err != nil {
		return nil, fmt.Errorf("read scripts dir: %w", err)
	}
	var out []script
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		version, name, ok := parseScriptFilename(e.Name())
		if !ok {
			continue
		}
		body, err := fs.ReadFile(sqlFS, scriptsDir+"/"+e.Name())
		if err != nil {
			return nil, fmt.Errorf("read script %s: %w", e.Name(), err)
		}
		out = append(out, script{version: version, name: name, body: string(body)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].version < out[j].version })
	return out, nil
}

func ensureVersionsTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS ` + tableName + ` (
			version    TEXT PRIMARY KEY,
			name       TEXT NOT NULL,
			applied_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now'))
		)
	`)
	return err
}

func appliedVersions(db *sql.DB) (map[string]bool, error) {
	rows, err := db.Query("SELECT version FROM " + tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[string]bool)
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out[v] = true
	}
	return out, rows.Err()
}

func parseScriptFilename(filename string) (version, name string, ok bool) {
	m := scriptFileRe.FindStringSubmatch(filename)
	if m == nil {
		return "", "", false
	}
	return m[1], m[2], true
}

func apply(db *sql.DB, s script) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	if _, err := tx.Exec(s.body); err != nil {
		_ = tx.Rollback()
		return err
	}
	if _, err := tx.Exec(
		"INSERT INTO "+tableName+" (version, name) VALUES (?, ?)",
		s.version, s.name,
	); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
