package store

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/doug-martin/goqu/v9"

	"github.com/mesh-intelligence/tnr/pkg/types"
)

// BackupFile returns the JSONL file name holding table inside a backup
// directory.
func BackupFile(table string) string {
	return table + ".jsonl"
}

// Dump writes every table to dir, one JSONL file per table with one JSON
// object per row. Each file is replaced atomically. Returns the number of
// rows written per table.
func (b *Backend) Dump(ctx context.Context, dir string) (map[string]int, error) {
	db, err := b.conn()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating backup directory: %w", err)
	}

	counts := make(map[string]int, len(tableNames))
	for _, table := range tableNames {
		records, err := dumpTable(ctx, db, table)
		if err != nil {
			return nil, err
		}
		if err := writeJSONL(filepath.Join(dir, BackupFile(table)), records); err != nil {
			return nil, fmt.Errorf("writing %s backup: %w", table, err)
		}
		counts[table] = len(records)
	}
	return counts, nil
}

func dumpTable(ctx context.Context, db *sql.DB, table string) ([]json.RawMessage, error) {
	rows, err := db.QueryContext(ctx, "SELECT * FROM "+table)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", table, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("reading %s columns: %w", table, err)
	}
	records := []json.RawMessage{}
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scanning %s: %w", table, err)
		}
		obj := make(map[string]any, len(cols))
		for i, c := range cols {
			// MySQL returns text columns as bytes.
			if raw, ok := vals[i].([]byte); ok {
				obj[c] = string(raw)
				continue
			}
			obj[c] = vals[i]
		}
		data, err := json.Marshal(obj)
		if err != nil {
			return nil, fmt.Errorf("encoding %s row: %w", table, err)
		}
		records = append(records, data)
	}
	return records, rows.Err()
}

// Restore loads a backup written by Dump into an empty database, in one
// transaction. Tables without a backup file are left empty. Returns
// ErrNotEmpty if any table already holds rows.
func (b *Backend) Restore(ctx context.Context, dir string) (map[string]int, error) {
	db, err := b.conn()
	if err != nil {
		return nil, err
	}
	for _, table := range tableNames {
		var n int
		if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
			return nil, fmt.Errorf("counting %s: %w", table, err)
		}
		if n > 0 {
			return nil, fmt.Errorf("%w: table %s has %d rows", types.ErrNotEmpty, table, n)
		}
	}

	counts := make(map[string]int, len(tableNames))
	err = b.withTx(ctx, func(tx *sql.Tx) error {
		for _, table := range tableNames {
			records, err := readJSONL(filepath.Join(dir, BackupFile(table)))
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			if err != nil {
				return err
			}
			for _, rec := range records {
				row, err := decodeRecord(rec)
				if err != nil {
					return fmt.Errorf("decoding %s row: %w", table, err)
				}
				query, args, err := b.dialect.Insert(table).Rows(row).Prepared(true).ToSQL()
				if err != nil {
					return fmt.Errorf("building %s insert: %w", table, err)
				}
				if _, err := tx.ExecContext(ctx, query, args...); err != nil {
					return fmt.Errorf("restoring %s: %w", table, err)
				}
			}
			counts[table] = len(records)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return counts, nil
}

// decodeRecord turns a JSON object into an insertable record, keeping
// integers as int64.
func decodeRecord(rec json.RawMessage) (goqu.Record, error) {
	dec := json.NewDecoder(bytes.NewReader(rec))
	dec.UseNumber()
	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return nil, err
	}
	row := make(goqu.Record, len(obj))
	for k, v := range obj {
		if num, ok := v.(json.Number); ok {
			if i, err := num.Int64(); err == nil {
				row[k] = i
			} else if f, err := num.Float64(); err == nil {
				row[k] = f
			} else {
				return nil, fmt.Errorf("column %s: %w", k, err)
			}
			continue
		}
		row[k] = v
	}
	return row, nil
}
