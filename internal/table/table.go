package table

import (
	"fmt"
	"slices"
)

// Column describes one named, typed column.
type Column struct {
	Name string `json:"name" yaml:"name"`
	Kind Kind   `json:"kind" yaml:"kind"`
}

// Table is an ordered set of columns and rows. Stages treat a Table as an immutable
// snapshot: transformations Clone first and return the new table.
type Table struct {
	cols  []Column
	index map[string]int
	rows  [][]Value
}

// New creates an empty table. Column names must be unique and non-empty.
func New(cols ...Column) (*Table, error) {
	t := &Table{
		cols:  make([]Column, 0, len(cols)),
		index: make(map[string]int, len(cols)),
	}
	for _, c := range cols {
		if c.Name == "" {
			return nil, fmt.Errorf("column name must not be empty")
		}
		if _, dup := t.index[c.Name]; dup {
			return nil, fmt.Errorf("duplicate column %q", c.Name)
		}
		t.index[c.Name] = len(t.cols)
		t.cols = append(t.cols, c)
	}
	return t, nil
}

// MustNew is New for fixed column sets.
func MustNew(cols ...Column) *Table {
	t, err := New(cols...)
	if err != nil {
		panic(err)
	}
	return t
}

// Columns returns the column definitions in order.
func (t *Table) Columns() []Column {
	return slices.Clone(t.cols)
}

// ColumnNames returns the column names in order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.cols))
	for i, c := range t.cols {
		names[i] = c.Name
	}
	return names
}

// Column returns the definition of name.
func (t *Table) Column(name string) (Column, bool) {
	i, ok := t.index[name]
	if !ok {
		return Column{}, false
	}
	return t.cols[i], true
}

// HasColumn reports whether name is a column of t.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.rows)
}

// AppendRow adds a row. Every value must match its column kind.
func (t *Table) AppendRow(values ...Value) error {
	if len(values) != len(t.cols) {
		return fmt.Errorf("row has %d values, table has %d columns", len(values), len(t.cols))
	}
	for i, v := range values {
		if v.kind != t.cols[i].Kind {
			return fmt.Errorf("column %q: value kind %s, column kind %s", t.cols[i].Name, v.kind, t.cols[i].Kind)
		}
	}
	t.rows = append(t.rows, slices.Clone(values))
	return nil
}

// Row returns a copy of row i.
func (t *Table) Row(i int) []Value {
	return slices.Clone(t.rows[i])
}

// Get returns the value of column name in row i.
func (t *Table) Get(i int, name string) Value {
	j, ok := t.index[name]
	if !ok {
		panic(fmt.Sprintf("table: unknown column %q", name))
	}
	return t.rows[i][j]
}

// Set replaces the value of column name in row i. Only call it on a table the caller owns.
func (t *Table) Set(i int, name string, v Value) error {
	j, ok := t.index[name]
	if !ok {
		return fmt.Errorf("unknown column %q", name)
	}
	if v.kind != t.cols[j].Kind {
		return fmt.Errorf("column %q: value kind %s, column kind %s", name, v.kind, t.cols[j].Kind)
	}
	t.rows[i][j] = v
	return nil
}

// Values returns the values of column name in row order.
func (t *Table) Values(name string) ([]Value, error) {
	j, ok := t.index[name]
	if !ok {
		return nil, fmt.Errorf("unknown column %q", name)
	}
	out := make([]Value, len(t.rows))
	for i, row := range t.rows {
		out[i] = row[j]
	}
	return out, nil
}

// Strings returns the values of a string column; nulls become "".
func (t *Table) Strings(name string) ([]string, error) {
	values, err := t.Values(name)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = v.s
	}
	return out, nil
}

// Clone returns a deep copy.
func (t *Table) Clone() *Table {
	c := MustNew(t.cols...)
	c.rows = make([][]Value, len(t.rows))
	for i, row := range t.rows {
		c.rows[i] = slices.Clone(row)
	}
	return c
}

// Select projects the named columns in the given order.
func (t *Table) Select(names ...string) (*Table, error) {
	cols := make([]Column, len(names))
	idx := make([]int, len(names))
	for k, name := range names {
		j, ok := t.index[name]
		if !ok {
			return nil, fmt.Errorf("unknown column %q", name)
		}
		cols[k] = t.cols[j]
		idx[k] = j
	}

	out, err := New(cols...)
	if err != nil {
		return nil, err
	}
	out.rows = make([][]Value, len(t.rows))
	for i, row := range t.rows {
		projected := make([]Value, len(idx))
		for k, j := range idx {
			projected[k] = row[j]
		}
		out.rows[i] = projected
	}
	return out, nil
}

// Drop returns a copy without the named columns. Unknown names are ignored.
func (t *Table) Drop(names ...string) *Table {
	keep := make([]string, 0, len(t.cols))
	for _, c := range t.cols {
		if !slices.Contains(names, c.Name) {
			keep = append(keep, c.Name)
		}
	}
	out, _ := t.Select(keep...)
	return out
}

// Take returns a copy holding the rows at the given indices, in that order.
func (t *Table) Take(indices []int) *Table {
	out := MustNew(t.cols...)
	out.rows = make([][]Value, len(indices))
	for k, i := range indices {
		out.rows[k] = slices.Clone(t.rows[i])
	}
	return out
}

// Equal reports whether both tables have identical columns and rows.
func (t *Table) Equal(o *Table) bool {
	if !slices.Equal(t.cols, o.cols) || len(t.rows) != len(o.rows) {
		return false
	}
	for i := range t.rows {
		for j := range t.rows[i] {
			if !t.rows[i][j].Equal(o.rows[i][j]) {
				return false
			}
		}
	}
	return true
}
