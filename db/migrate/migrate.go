package migrate

import (
	"context"
	"fmt"

	"entgo.io/ent/dialect"
	"entgo.io/ent/dialect/sql/schema"
)

// Create applies Tables to the database behind drv. On Postgres the pgvector
// extension is enabled first so the embedding column can be created.
func Create(ctx context.Context, drv dialect.Driver, opts ...schema.MigrateOption) error {
	if drv.Dialect() == dialect.Postgres {
		if err := drv.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector", []any{}, nil); err != nil {
			return fmt.Errorf("enable pgvector: %w", err)
		}
	}
	m, err := schema.NewMigrate(drv, opts...)
	if err != nil {
		return fmt.Errorf("ent/migrate: %w", err)
	}
	if err := m.Create(ctx, Tables...); err != nil {
		return fmt.Errorf("ent/migrate: create tables: %w", err)
	}
	return nil
}
