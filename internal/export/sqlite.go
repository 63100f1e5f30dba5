package export

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sha1n/mcp-apidoc-server/internal/domain"

	_ "modernc.org/sqlite"
)

var baseSchema = []string{`CREATE TABLE api_endpoints (
	operation_id  TEXT PRIMARY KEY,
	method        TEXT NOT NULL,
	path          TEXT NOT NULL,
	summary       TEXT NOT NULL,
	description   TEXT NOT NULL,
	category      TEXT NOT NULL,
	quality_score REAL NOT NULL,
	data          TEXT NOT NULL
)`, `CREATE TABLE reports (
	name TEXT PRIMARY KEY,
	data TEXT NOT NULL
)`}

// KnowledgeTableName returns the database table holding a knowledge base.
func KnowledgeTableName(name string) string {
	return "kb_" + name
}

func (w *Writer) writeSQLite(ctx context.Context, b *Bundle) ([]string, error) {
	path := filepath.Join(w.dir, DatabaseFile)
	tempPath := path + ".tmp"
	_ = os.Remove(tempPath)

	if err := fillDatabase(ctx, tempPath, b); err != nil {
		_ = os.Remove(tempPath)
		return nil, err
	}
	if err := os.Rename(tempPath, path); err != nil {
		_ = os.Remove(tempPath)
		return nil, fmt.Errorf("failed to rename database: %w", err)
	}
	return []string{path}, nil
}

func fillDatabase(ctx context.Context, path string, b *Bundle) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = db.Close() }()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, ddl := range baseSchema {
		if _, err := tx.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	if err := insertEndpoints(ctx, tx, b.Endpoints); err != nil {
		return err
	}

	report, err := json.Marshal(b.Quality)
	if err != nil {
		return fmt.Errorf("failed to marshal quality report: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO reports (name, data) VALUES (?, ?)`, "quality", string(report)); err != nil {
		return fmt.Errorf("failed to insert quality report: %w", err)
	}

	for _, t := range b.Tables {
		if err := insertTable(ctx, tx, t); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func insertEndpoints(ctx context.Context, tx *sql.Tx, endpoints []domain.Endpoint) error {
	stmt, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO api_endpoints
		(operation_id, method, path, summary, description, category, quality_score, data)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare endpoint insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, e := range endpoints {
		data, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("failed to marshal endpoint %s: %w", e.OperationID, err)
		}
		if _, err := stmt.ExecContext(ctx, e.OperationID, e.Method, e.Path, e.Summary,
			e.Description, e.Category, e.QualityScore, string(data)); err != nil {
			return fmt.Errorf("failed to insert endpoint %s: %w", e.OperationID, err)
		}
	}
	return nil
}

func insertTable(ctx context.Context, tx *sql.Tx, t domain.Table) error {
	header := t.Header()
	quoted := make([]string, len(header))
	defs := make([]string, len(header))
	marks := make([]string, len(header))
	for i, col := range header {
		quoted[i] = quoteIdent(col)
		defs[i] = quoted[i] + " TEXT"
		marks[i] = "?"
	}
	defs[0] = quoted[0] + " TEXT PRIMARY KEY"
	table := quoteIdent(KnowledgeTableName(t.Name))

	if _, err := tx.ExecContext(ctx, fmt.Sprintf("CREATE TABLE %s (%s)", table, strings.Join(defs, ", "))); err != nil {
		return fmt.Errorf("failed to create table %s: %w", t.Name, err)
	}
	insert := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(quoted, ", "), strings.Join(marks, ", "))
	for _, r := range t.Records {
		row := t.Row(r)
		args := make([]any, len(row))
		for i, v := range row {
			args[i] = v
		}
		if _, err := tx.ExecContext(ctx, insert, args...); err != nil {
			return fmt.Errorf("failed to insert %s into %s: %w", r.ID, t.Name, err)
		}
	}
	return nil
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
