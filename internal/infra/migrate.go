package infra

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

const qCreateSchemaMigrations = `--sql ee4d73ab-de52-4293-a774-66be8a69c1b7
create table if not exists schema_migrations (
    version    text primary key,
    applied_at timestamptz not null default now()
);
`

const qSelectMigration = `--sql 6c5cf1e8-a209-4b6c-869c-0be806bf9a84
select version from schema_migrations where version = $1::text;
`

const qInsertMigration = `--sql b4988fc3-225a-4937-8196-d5471f2d786a
insert into schema_migrations(version) values ($1::text);
`

// Migrate applies every embedded migration not yet recorded in
// schema_migrations, each in its own transaction and in file name order.
func Migrate(ctx context.Context, db TxRunner, logger Logger) (int, error) {
	return migrate(ctx, db, logger, migrationFS)
}

func migrate(ctx context.Context, db TxRunner, logger Logger, fsys fs.FS) (int, error) {
	if _, err := db.Exec(ctx, qCreateSchemaMigrations); err != nil {
		return 0, fmt.Errorf("migrate: create schema_migrations: %w", err)
	}
	files, err := fs.Glob(fsys, "migrations/*.sql")
	if err != nil {
		return 0, fmt.Errorf("migrate: list files: %w", err)
	}
	sort.Strings(files)

	applied := 0
	for _, file := range files {
		version := strings.TrimSuffix(strings.TrimPrefix(file, "migrations/"), ".sql")
		content, err := fs.ReadFile(fsys, file)
		if err != nil {
			return applied, fmt.Errorf("migrate: read %s: %w", file, err)
		}
		ran := false
		err = db.InTx(ctx, func(q SQLExecutor) error {
			var existing string
			err := q.QueryRow(ctx, qSelectMigration, version).Scan(&existing)
			if err == nil {
				return nil
			}
			if !errors.Is(err, pgx.ErrNoRows) {
				return err
			}
			if _, err := q.Exec(ctx, string(content)); err != nil {
				return err
			}
			if _, err := q.Exec(ctx, qInsertMigration, version); err != nil {
				return err
			}
			ran = true
			return nil
		})
		if err != nil {
			return applied, fmt.Errorf("migrate: apply %s: %w", version, err)
		}
		if ran {
			applied++
			logger.Info().Str("version", version).Msg("migration applied")
		}
	}
	return applied, nil
}
