package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/cartography/internal/dynamics"
)

// Entry is one recorded epoch-file write.
type Entry struct {
	Seq           int64         `json:"seq"`
	ID            string        `json:"id"`
	OutputDir     string        `json:"output_dir"`
	Kind          dynamics.Kind `json:"kind"`
	Epoch         int           `json:"epoch"`
	Path          string        `json:"path"`
	RecordsAdded  int           `json:"records_added"`
	RecordsTotal  int           `json:"records_total"`
	ContentSHA256 string        `json:"content_sha256"`
}

// Filter narrows List results. Zero-value fields match everything.
type Filter struct {
	OutputDir string
	Kind      dynamics.Kind
	Epoch     *int
}

// Record appends a write event to the ledger. It implements dynamics.Recorder.
func (c *Catalog) Record(ctx context.Context, ev dynamics.WriteEvent) error {
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO epoch_writes
		(id, output_dir, kind, epoch, path, records_added, records_total, content_sha256)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		c.idGen.Generate(),
		ev.OutputDir,
		string(ev.Kind),
		ev.Epoch,
		ev.Path,
		ev.RecordsAdded,
		ev.RecordsTotal,
		ev.ContentSHA256,
	)
	if err != nil {
		return fmt.Errorf("record write: %w", err)
	}
	return nil
}

// List returns matching entries in write order.
// Returns an empty slice (not nil) when nothing matches.
func (c *Catalog) List(ctx context.Context, f Filter) ([]Entry, error) {
	var (
		where []string
		args  []any
	)
	if f.OutputDir != "" {
		where = append(where, "output_dir = ?")
		args = append(args, f.OutputDir)
	}
	if f.Kind != "" {
		where = append(where, "kind = ?")
		args = append(args, string(f.Kind))
	}
	if f.Epoch != nil {
		where = append(where, "epoch = ?")
		args = append(args, *f.Epoch)
	}

	query := `
		SELECT seq, id, output_dir, kind, epoch, path, records_added, records_total, content_sha256
		FROM epoch_writes`
	if len(where) > 0 {
		query += "\n\t\tWHERE " + strings.Join(where, " AND ")
	}
	query += "\n\t\tORDER BY seq ASC, id COLLATE BINARY ASC"

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query epoch writes: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate epoch writes: %w", err)
	}
	return entries, nil
}

// Latest returns the most recent write of one epoch file.
// The bool is false when the file has never been recorded.
func (c *Catalog) Latest(ctx context.Context, outputDir string, kind dynamics.Kind, epoch int) (Entry, bool, error) {
	row := c.db.QueryRowContext(ctx, `
		SELECT seq, id, output_dir, kind, epoch, path, records_added, records_total, content_sha256
		FROM epoch_writes
		WHERE output_dir = ? AND kind = ? AND epoch = ?
		ORDER BY seq DESC
		LIMIT 1
	`, outputDir, string(kind), epoch)

	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, err
	}
	return e, true, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (Entry, error) {
	var (
		e    Entry
		kind string
	)
	err := s.Scan(&e.Seq, &e.ID, &e.OutputDir, &kind, &e.Epoch, &e.Path,
		&e.RecordsAdded, &e.RecordsTotal, &e.ContentSHA256)
	if err != nil {
		return Entry{}, fmt.Errorf("scan epoch write: %w", err)
	}
	e.Kind = dynamics.Kind(kind)
	return e, nil
}
