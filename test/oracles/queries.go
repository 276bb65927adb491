package oracles

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Oracle struct {
	Name string
	SQL  string
}

// All lists the queries that must return no rows at any point in time.
func All() []Oracle {
	return []Oracle{
		{
			Name: "O1_live_slug_unique",
			SQL: `SELECT master_group, type, slug, COUNT(*) FROM masters
                  WHERE deleted_at IS NULL AND slug <> ''
                  GROUP BY master_group, type, slug HAVING COUNT(*) > 1`,
		},
		{
			Name: "O2_slug_normalized",
			SQL: `SELECT id, slug FROM masters
                  WHERE slug <> '' AND slug !~ '^[a-z0-9]+(-[a-z0-9]+)*$'`,
		},
		{
			Name: "O3_name_present",
			SQL:  `SELECT id FROM masters WHERE btrim(name) = ''`,
		},
		{
			Name: "O4_timestamps_ordered",
			SQL: `SELECT id, created_at, updated_at, deleted_at FROM masters
                  WHERE updated_at < created_at
                     OR (deleted_at IS NOT NULL AND deleted_at < created_at)`,
		},
		{
			Name: "O5_owner_stamped",
			SQL:  `SELECT id FROM masters WHERE user_id = '' OR user_type = ''`,
		},
		{
			Name: "O6_status_domain",
			SQL:  `SELECT id, status FROM masters WHERE status NOT IN ('show', 'hide')`,
		},
	}
}

// Run executes all oracles and returns the first failure (name and sample row text) or empty name if all pass.
func Run(ctx context.Context, pool *pgxpool.Pool) (string, string, error) {
	for _, o := range All() {
		rows, err := pool.Query(ctx, o.SQL)
		if err != nil {
			return o.Name, "", fmt.Errorf("oracle %s: %w", o.Name, err)
		}
		has := rows.Next()
		if has {
			vals, err := rows.Values()
			rows.Close()
			if err != nil {
				return o.Name, "", err
			}
			return o.Name, fmt.Sprintf("%v", vals), nil
		}
		rows.Close()
	}
	return "", "", nil
}
