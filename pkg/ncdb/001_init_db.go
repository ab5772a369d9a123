package ncdb

import (
	"context"
	"strings"

	"github.com/jmoiron/sqlx"
)

func init() {
	migrate(up001, down001)
}

func up001(ctx context.Context, tx *sqlx.Tx) error {
	if _, err := tx.ExecContext(ctx, strings.ReplaceAll(`
		CREATE TABLE denylist (
			ip      TEXT PRIMARY KEY NOT NULL,
			reason  TEXT NOT NULL DEFAULT '',
			added   INTEGER NOT NULL
		) STRICT;
	`, `
		`, "\n")); err != nil {
		return err
	}
	return nil
}

func down001(ctx context.Context, tx *sqlx.Tx) error {
	_, err := tx.ExecContext(ctx, `DROP TABLE denylist`)
	return err
}
