package db

import (
	"context"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
)

// UpsertConfig defines the parameters for an upsert.
type UpsertConfig struct {
	Table        string   // target table, optionally schema-qualified
	Columns      []string // all columns being inserted
	ConflictKeys []string // columns forming the unique constraint
	UpdateCols   []string // columns to update on conflict; nil = all non-conflict columns
}

// Upsert writes rows with a single parameterized INSERT ... ON CONFLICT
// statement. It suits small registries; use ReplaceScoped for bulk data.
func Upsert(ctx context.Context, pool Pool, cfg UpsertConfig, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	if len(cfg.Columns) == 0 {
		return 0, eris.New("db: upsert: no columns specified")
	}
	if len(cfg.ConflictKeys) == 0 {
		return 0, eris.New("db: upsert: no conflict keys specified")
	}

	var (
		sb   strings.Builder
		args = make([]any, 0, len(rows)*len(cfg.Columns))
	)
	sb.WriteString("INSERT INTO ")
	sb.WriteString(sanitizeTable(cfg.Table))
	sb.WriteString(" (")
	sb.WriteString(quoteAndJoin(cfg.Columns))
	sb.WriteString(") VALUES ")
	for i, row := range rows {
		if len(row) != len(cfg.Columns) {
			return 0, eris.Errorf("db: upsert %s: row %d has %d values, want %d", cfg.Table, i, len(row), len(cfg.Columns))
		}
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(placeholders(len(args)+1, len(row)))
		args = append(args, row...)
	}
	sb.WriteString(" ON CONFLICT (")
	sb.WriteString(quoteAndJoin(cfg.ConflictKeys))
	sb.WriteString(") ")
	sb.WriteString(conflictAction(cfg))

	tag, err := pool.Exec(ctx, sb.String(), args...)
	if err != nil {
		return 0, eris.Wrapf(err, "db: upsert %s", cfg.Table)
	}
	return tag.RowsAffected(), nil
}

func conflictAction(cfg UpsertConfig) string {
	updateCols := cfg.UpdateCols
	if updateCols == nil {
		keys := make(map[string]bool, len(cfg.ConflictKeys))
		for _, k := range cfg.ConflictKeys {
			keys[k] = true
		}
		for _, c := range cfg.Columns {
			if !keys[c] {
				updateCols = append(updateCols, c)
			}
		}
	}
	if len(updateCols) == 0 {
		return "DO NOTHING"
	}
	set := make([]string, len(updateCols))
	for i, col := range updateCols {
		q := pgx.Identifier{col}.Sanitize()
		set[i] = q + " = EXCLUDED." + q
	}
	return "DO UPDATE SET " + strings.Join(set, ", ")
}

// placeholders renders ($start, ..., $start+n-1).
func placeholders(start, n int) string {
	ps := make([]string, n)
	for i := range ps {
		ps[i] = "$" + strconv.Itoa(start+i)
	}
	return "(" + strings.Join(ps, ", ") + ")"
}

// identifier splits a possibly schema-qualified table name.
func identifier(table string) pgx.Identifier {
	if schema, name, ok := strings.Cut(table, "."); ok {
		return pgx.Identifier{schema, name}
	}
	return pgx.Identifier{table}
}

func sanitizeTable(table string) string {
	return identifier(table).Sanitize()
}

func quoteAndJoin(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = pgx.Identifier{c}.Sanitize()
	}
	return strings.Join(quoted, ", ")
}
