package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/doug-martin/goqu/v9"

	"github.com/mesh-intelligence/tnr/pkg/types"
)

// AxesTable manages the analytical axes of a project's Test Book.
type AxesTable struct {
	backend *Backend
}

// Save replaces every axis of the project in one transaction. Level
// numbers follow input order. Labels and values are trimmed, empty values
// are skipped, and an axis left without values aborts the whole save.
func (at *AxesTable) Save(ctx context.Context, projectID int64, inputs []types.AxisInput) error {
	if len(inputs) == 0 {
		return fmt.Errorf("%w: at least one axis is required", types.ErrInvalidAxes)
	}
	if _, err := at.backend.Projects().Get(ctx, projectID); err != nil {
		return err
	}

	return at.backend.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM test_book_axis_values WHERE axis_id IN (SELECT id FROM test_book_axes WHERE project_id = ?)",
			projectID,
		); err != nil {
			return fmt.Errorf("clearing axis values: %w", err)
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM test_book_axes WHERE project_id = ?", projectID); err != nil {
			return fmt.Errorf("clearing axes: %w", err)
		}

		for i, in := range inputs {
			level := i + 1
			label := strings.TrimSpace(in.Label)
			if label == "" {
				return fmt.Errorf("%w: axis %d has no label", types.ErrInvalidAxes, level)
			}
			res, err := tx.ExecContext(ctx,
				"INSERT INTO test_book_axes (project_id, level_number, label) VALUES (?, ?, ?)",
				projectID, level, label,
			)
			if err != nil {
				return fmt.Errorf("inserting axis %d: %w", level, err)
			}
			axisID, err := res.LastInsertId()
			if err != nil {
				return fmt.Errorf("reading axis id: %w", err)
			}

			order := 0
			for _, raw := range in.Values {
				value := strings.TrimSpace(raw)
				if value == "" {
					continue
				}
				order++
				if _, err := tx.ExecContext(ctx,
					"INSERT INTO test_book_axis_values (axis_id, value_label, sort_order) VALUES (?, ?, ?)",
					axisID, value, order,
				); err != nil {
					return fmt.Errorf("inserting value of axis %d: %w", level, err)
				}
			}
			if order == 0 {
				return fmt.Errorf("%w: axis %q has no values", types.ErrInvalidAxes, label)
			}
		}
		return nil
	})
}

// List returns the project's axes by level number, each with its values
// in sort order.
func (at *AxesTable) List(ctx context.Context, projectID int64) ([]*types.Axis, error) {
	rows, err := at.backend.query(ctx, at.backend.dialect.From("test_book_axes").
		Select("id", "project_id", "level_number", "label").
		Where(goqu.C("project_id").Eq(projectID)).
		Order(goqu.C("level_number").Asc()))
	if err != nil {
		return nil, fmt.Errorf("listing axes: %w", err)
	}
	axes := []*types.Axis{}
	byID := map[int64]*types.Axis{}
	for rows.Next() {
		a := &types.Axis{Values: []types.AxisValue{}}
		if err := rows.Scan(&a.ID, &a.ProjectID, &a.LevelNumber, &a.Label); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning axis: %w", err)
		}
		axes = append(axes, a)
		byID[a.ID] = a
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = at.backend.query(ctx, at.backend.dialect.From(goqu.T("test_book_axis_values").As("v")).
		Join(goqu.T("test_book_axes").As("a"), goqu.On(goqu.I("a.id").Eq(goqu.I("v.axis_id")))).
		Select(goqu.I("v.id"), goqu.I("v.axis_id"), goqu.I("v.value_label"), goqu.I("v.sort_order")).
		Where(goqu.I("a.project_id").Eq(projectID)).
		Order(goqu.I("v.axis_id").Asc(), goqu.I("v.sort_order").Asc()))
	if err != nil {
		return nil, fmt.Errorf("listing axis values: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var v types.AxisValue
		if err := rows.Scan(&v.ID, &v.AxisID, &v.ValueLabel, &v.SortOrder); err != nil {
			return nil, fmt.Errorf("scanning axis value: %w", err)
		}
		if a, ok := byID[v.AxisID]; ok {
			a.Values = append(a.Values, v)
		}
	}
	return axes, rows.Err()
}
