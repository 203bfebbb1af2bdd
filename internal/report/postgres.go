package report

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS sheet_redact_audit (
	run_id      TEXT        NOT NULL,
	image_id    TEXT        NOT NULL,
	input_path  TEXT        NOT NULL,
	output_path TEXT        NOT NULL,
	sheet       TEXT        NOT NULL,
	cell        TEXT        NOT NULL,
	status      TEXT        NOT NULL,
	patterns    TEXT[]      NOT NULL DEFAULT '{}',
	redactions  INTEGER     NOT NULL DEFAULT 0,
	error       TEXT,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (run_id, image_id)
)`

const insertSQL = `
INSERT INTO sheet_redact_audit (
	run_id, image_id, input_path, output_path, sheet, cell,
	status, patterns, redactions, error, created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NULLIF($10, ''), $11)
ON CONFLICT (run_id, image_id) DO NOTHING`

// PostgresSink stores one audit row per image. Only names and rectangles
// are stored, never recognized text.
type PostgresSink struct {
	db *sql.DB
}

// NewPostgresSink connects to the database at dsn.
func NewPostgresSink(ctx context.Context, dsn string) (*PostgresSink, error) {
	if dsn == "" {
		return nil, fmt.Errorf("database URL is required")
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &PostgresSink{db: db}, nil
}

// EnsureSchema creates the audit table if needed.
func (s *PostgresSink) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to create audit table: %w", err)
	}
	return nil
}

// Record inserts the report's images in one transaction.
func (s *PostgresSink) Record(ctx context.Context, r *Report) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, insertSQL)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, row := range auditRows(r) {
		_, err := stmt.ExecContext(ctx, row.runID, row.imageID, row.input, row.output,
			row.sheet, row.cell, row.status, pq.Array(row.patterns), row.redactions,
			row.err, r.Finished)
		if err != nil {
			return fmt.Errorf("failed to insert audit row %s: %w", row.imageID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit audit rows: %w", err)
	}
	return nil
}

func (s *PostgresSink) Close() error {
	return s.db.Close()
}

type auditRow struct {
	runID, imageID string
	input, output  string
	sheet, cell    string
	status         string
	patterns       []string
	redactions     int
	err            string
}

func auditRows(r *Report) []auditRow {
	rows := make([]auditRow, 0, len(r.Images))
	for _, img := range r.Images {
		var names []string
		seen := make(map[string]bool)
		for _, red := range img.Redactions {
			for _, p := range red.Patterns {
				if !seen[p] {
					seen[p] = true
					names = append(names, p)
				}
			}
		}
		if names == nil {
			names = []string{}
		}
		rows = append(rows, auditRow{
			runID:      r.RunID,
			imageID:    img.ImageID,
			input:      r.Input,
			output:     r.Output,
			sheet:      img.Sheet,
			cell:       img.Cell,
			status:     string(img.Status),
			patterns:   names,
			redactions: len(img.Redactions),
			err:        img.Error,
		})
	}
	return rows
}
