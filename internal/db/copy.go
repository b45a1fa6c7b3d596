package db

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
)

// ReplaceScoped deletes every row of table matching scopeCol = scope and
// copies rows in, inside one transaction.
func ReplaceScoped(ctx context.Context, pool Pool, table, scopeCol string, scope any, columns []string, rows [][]any) (int64, error) {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return 0, eris.Wrapf(err, "db: replace %s: begin tx", table)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	del := "DELETE FROM " + sanitizeTable(table) + " WHERE " + pgx.Identifier{scopeCol}.Sanitize() + " = $1"
	if _, err := tx.Exec(ctx, del, scope); err != nil {
		return 0, eris.Wrapf(err, "db: replace %s: delete", table)
	}

	var n int64
	if len(rows) > 0 {
		n, err = tx.CopyFrom(ctx, identifier(table), columns, pgx.CopyFromRows(rows))
		if err != nil {
			return 0, eris.Wrapf(err, "db: replace %s: COPY", table)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, eris.Wrapf(err, "db: replace %s: commit tx", table)
	}
	return n, nil
}
