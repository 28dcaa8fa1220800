// Package migrations embeds the SQL schema and applies it in version order.
package migrations

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

//go:embed *.sql
var files embed.FS

const upSuffix = ".up.sql"

// Versions lists the up migrations in apply order, e.g. "0001_init".
func Versions() ([]string, error) {
	names, err := fs.Glob(files, "*"+upSuffix)
	if err != nil {
		return nil, fmt.Errorf("list migrations: %w", err)
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("no migration files embedded")
	}
	sort.Strings(names)
	versions := make([]string, len(names))
	for i, name := range names {
		versions[i] = strings.TrimSuffix(name, upSuffix)
	}
	return versions, nil
}

// Apply runs every up migration not yet recorded in schema_migrations, each in its own
// transaction. It returns the versions it applied.
func Apply(ctx context.Context, pool *pgxpool.Pool, log *zap.Logger) ([]string, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if _, err := pool.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS schema_migrations (
            version    TEXT PRIMARY KEY,
            applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
        )`); err != nil {
		return nil, fmt.Errorf("create schema_migrations: %w", err)
	}

	versions, err := Versions()
	if err != nil {
		return nil, err
	}

	var applied []string
	for _, version := range versions {
		payload, err := files.ReadFile(version + upSuffix)
		if err != nil {
			return applied, fmt.Errorf("read migration %s: %w", version, err)
		}

		var ran bool
		err = pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
			tag, err := tx.Exec(ctx, `INSERT INTO schema_migrations (version) VALUES ($1) ON CONFLICT DO NOTHING`, version)
			if err != nil {
				return err
			}
			if tag.RowsAffected() == 0 {
				return nil
			}
			ran = true
			_, err = tx.Exec(ctx, string(payload))
			return err
		})
		if err != nil {
			return applied, fmt.Errorf("apply migration %s: %w", version, err)
		}
		if ran {
			log.Info("migration applied", zap.String("version", version))
			applied = append(applied, version)
		}
	}
	return applied, nil
}
