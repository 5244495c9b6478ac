package store

import (
	"context"
	"fmt"

	"github.com/doug-martin/goqu/v9"

	"github.com/mesh-intelligence/tnr/pkg/types"
)

// loadValues runs a select returning (owner id, level_number, value_label)
// rows and groups them by owner.
func loadValues(ctx context.Context, q execer, ds *goqu.SelectDataset) (map[int64]types.AnalyticalValues, error) {
	query, args, err := ds.Prepared(true).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("building values query: %w", err)
	}
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("loading analytical values: %w", err)
	}
	defer rows.Close()

	out := map[int64]types.AnalyticalValues{}
	for rows.Next() {
		var (
			id    int64
			level int
			label string
		)
		if err := rows.Scan(&id, &level, &label); err != nil {
			return nil, fmt.Errorf("scanning analytical value: %w", err)
		}
		if out[id] == nil {
			out[id] = types.AnalyticalValues{}
		}
		out[id][types.LevelKey(level)] = label
	}
	return out, rows.Err()
}

// valuesOrEmpty never returns nil so JSON renders {}.
func valuesOrEmpty(v types.AnalyticalValues) types.AnalyticalValues {
	if v == nil {
		return types.AnalyticalValues{}
	}
	return v
}
