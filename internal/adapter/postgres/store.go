// Package postgres implements the maintenance storage contract on PostgreSQL.
// Every building is one schema; a tenant handle pins all of its queries to
// that schema, so no query can cross buildings by accident.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"buildingops/internal/maintenance"
	"buildingops/internal/platform/pg"
	"buildingops/internal/shared"
)

// Store is the tenant directory plus the factory for schema-scoped
// repositories.
type Store struct {
	pool   *pgxpool.Pool
	runner *pg.TxRunner
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool, runner: pg.NewTxRunner(pool)}
}

// WithinTx runs fn inside one transaction; the repositories pick it up from
// the callback's context via GetQuerier.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return s.runner.WithinTx(ctx, fn)
}

// Buildings lists all tenants from the global directory.
func (s *Store) Buildings(ctx context.Context) ([]maintenance.Building, error) {
	rows, err := s.runner.GetQuerier(ctx).Query(ctx,
		`SELECT id, name, schema_name FROM public.building ORDER BY name`)
	if err != nil {
		return nil, shared.Wrap(err, "list buildings")
	}
	defer rows.Close()

	var out []maintenance.Building
	for rows.Next() {
		var b maintenance.Building
		if err := rows.Scan(&b.ID, &b.Name, &b.Schema); err != nil {
			return nil, shared.Wrap(err, "scan building")
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, shared.Wrap(err, "list buildings")
	}
	return out, nil
}

// Tenant returns repositories pinned to one building's schema.
func (s *Store) Tenant(schema string) maintenance.Repos {
	t := &tenant{runner: s.runner, schema: schema}
	return maintenance.Repos{
		Schedules:     &scheduleRepo{t},
		Assets:        &assetRepo{t},
		Amenities:     &amenityRepo{t},
		Bookings:      &bookingRepo{t},
		Announcements: &announcementRepo{t},
		Histories:     &historyRepo{t},
	}
}

// tenant carries the schema and query access shared by one building's repos.
type tenant struct {
	runner *pg.TxRunner
	schema string
}

func (t *tenant) q(ctx context.Context) pg.Querier {
	return t.runner.GetQuerier(ctx)
}

// table renders a quoted schema-qualified table name.
func (t *tenant) table(name string) string {
	return pgx.Identifier{t.schema, name}.Sanitize()
}

func notFound(err error, format string, args ...any) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return shared.MarkKind(fmt.Errorf(format, args...), shared.KindNotFound)
	}
	return shared.Wrap(err, "query")
}
