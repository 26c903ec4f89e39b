// Package features derives the model feature table from the clean customer table.
package features

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/churnlab/churnprep/internal/errors"
	"github.com/churnlab/churnprep/internal/logger"
	"github.com/churnlab/churnprep/internal/schema"
	"github.com/churnlab/churnprep/internal/table"
)

// Deriver runs feature builders and merges their groups.
type Deriver struct {
	builders []Builder
	log      logger.Logger
}

// NewDeriver returns a deriver for the standard feature groups.
func NewDeriver(log logger.Logger) *Deriver {
	return &Deriver{builders: Builders(), log: log}
}

// Derive runs every builder concurrently over clean and merges the groups
// onto the clean key order.
func (d *Deriver) Derive(ctx context.Context, clean *table.Table) (*table.Table, error) {
	groups := make([]*table.Table, len(d.builders))

	g, ctx := errgroup.WithContext(ctx)
	for i, b := range d.builders {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			start := time.Now()
			out, err := b.Build(clean)
			if err != nil {
				return err
			}
			groups[i] = out
			d.log.Debug("feature group built",
				logger.String("group", b.Name),
				logger.Int("rows", out.Len()),
				logger.Int("columns", len(out.Columns())-1),
				logger.Duration("elapsed", time.Since(start)))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	keys, err := clean.Select(schema.ColCustomerID)
	if err != nil {
		return nil, errors.New(err).
			Component("features").
			Category(errors.CategoryIntegrityViolation).
			Build()
	}

	names := make([]string, len(d.builders))
	for i, b := range d.builders {
		names[i] = b.Name
	}
	merged, err := Merge(keys, names, groups)
	if err != nil {
		return nil, err
	}

	d.log.Info("derived feature table",
		logger.Int("rows", merged.Len()),
		logger.Int("columns", len(merged.Columns())),
		logger.Int("groups", len(groups)))
	return merged, nil
}

// Merge left-joins every group onto base, one-to-one on customer_id. base
// fixes the row order. A duplicate key inside a group, or a non-key column
// present in two inputs, is an integrity violation. Keys a group lacks get
// null feature values.
func Merge(base *table.Table, names []string, groups []*table.Table) (*table.Table, error) {
	cols := base.Columns()
	seen := make(map[string]string, len(cols))
	for _, c := range cols {
		seen[c.Name] = "base"
	}

	indexes := make([]map[string]int, len(groups))
	for gi, grp := range groups {
		name := names[gi]
		if !grp.HasColumn(schema.ColCustomerID) {
			return nil, mergeError(fmt.Errorf("group %s has no %s column", name, schema.ColCustomerID), name)
		}
		for _, c := range grp.Columns() {
			if c.Name == schema.ColCustomerID {
				continue
			}
			if owner, dup := seen[c.Name]; dup {
				return nil, mergeError(fmt.Errorf("column %q produced by both %s and %s", c.Name, owner, name), name)
			}
			seen[c.Name] = name
			cols = append(cols, c)
		}

		idx := make(map[string]int, grp.Len())
		for i := 0; i < grp.Len(); i++ {
			key := grp.Get(i, schema.ColCustomerID)
			if key.IsNull() {
				continue
			}
			if _, dup := idx[key.Str()]; dup {
				return nil, mergeError(fmt.Errorf("group %s has duplicate key %q", name, key.Str()), name)
			}
			idx[key.Str()] = i
		}
		indexes[gi] = idx
	}

	out, err := table.New(cols...)
	if err != nil {
		return nil, mergeError(err, "base")
	}

	for i := 0; i < base.Len(); i++ {
		row := base.Row(i)
		key := base.Get(i, schema.ColCustomerID)
		for gi, grp := range groups {
			j, found := -1, false
			if !key.IsNull() {
				j, found = indexes[gi][key.Str()]
			}
			for _, c := range grp.Columns() {
				if c.Name == schema.ColCustomerID {
					continue
				}
				if found {
					row = append(row, grp.Get(j, c.Name))
				} else {
					row = append(row, table.Null(c.Kind))
				}
			}
		}
		if err := out.AppendRow(row...); err != nil {
			return nil, mergeError(err, "base")
		}
	}

	return out, nil
}

func mergeError(err error, group string) error {
	return errors.New(err).
		Component("features").
		Category(errors.CategoryIntegrityViolation).
		Context("operation", "merge").
		Context("group", group).
		Build()
}
