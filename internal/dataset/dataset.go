// Package dataset provides the in-memory table every analytics stage reads
// and produces: an ordered list of rows over a uniform, ordered column set.
package dataset

import (
	"encoding/json"
	"fmt"
)

// Dataset is an ordered sequence of rows sharing one column set.
// Row order is kept as inserted. Stages never modify a Dataset they did not
// create; they Clone first and mutate the copy.
type Dataset struct {
	columns []string
	index   map[string]int
	rows    [][]Value
}

// New returns an empty dataset with the given columns. Duplicate names are
// collapsed to their first occurrence.
func New(columns ...string) *Dataset {
	d := &Dataset{index: make(map[string]int, len(columns))}
	for _, c := range columns {
		if _, dup := d.index[c]; dup {
			continue
		}
		d.index[c] = len(d.columns)
		d.columns = append(d.columns, c)
	}
	return d
}

// Append adds a row. values must match the column count.
func (d *Dataset) Append(values ...Value) error {
	if len(values) != len(d.columns) {
		return fmt.Errorf("append row %d: got %d values for %d columns", len(d.rows), len(values), len(d.columns))
	}
	row := make([]Value, len(values))
	copy(row, values)
	d.rows = append(d.rows, row)
	return nil
}

// AppendMap adds a row from a column->value map; absent columns are null and
// unknown keys are rejected.
func (d *Dataset) AppendMap(m map[string]Value) error {
	row := make([]Value, len(d.columns))
	for k, v := range m {
		i, ok := d.index[k]
		if !ok {
			return fmt.Errorf("append row %d: unknown column %q", len(d.rows), k)
		}
		row[i] = v
	}
	d.rows = append(d.rows, row)
	return nil
}

func (d *Dataset) Len() int { return len(d.rows) }

// Columns returns a copy of the column names in order.
func (d *Dataset) Columns() []string {
	out := make([]string, len(d.columns))
	copy(out, d.columns)
	return out
}

func (d *Dataset) HasColumn(name string) bool {
	_, ok := d.index[name]
	return ok
}

// Get returns the cell at (row, col). Unknown columns read as null.
func (d *Dataset) Get(row int, col string) Value {
	i, ok := d.index[col]
	if !ok {
		return Null()
	}
	return d.rows[row][i]
}

// Set writes a cell. It panics on an unknown column; callers add columns
// with WithColumn first.
func (d *Dataset) Set(row int, col string, v Value) {
	i, ok := d.index[col]
	if !ok {
		panic(fmt.Sprintf("dataset: set unknown column %q", col))
	}
	d.rows[row][i] = v
}

// Row returns a copy of one row keyed by column name.
func (d *Dataset) Row(row int) map[string]Value {
	out := make(map[string]Value, len(d.columns))
	for i, c := range d.columns {
		out[c] = d.rows[row][i]
	}
	return out
}

// Clone returns a deep copy.
func (d *Dataset) Clone() *Dataset {
	out := New(d.columns...)
	out.rows = make([][]Value, len(d.rows))
	for i, r := range d.rows {
		cp := make([]Value, len(r))
		copy(cp, r)
		out.rows[i] = cp
	}
	return out
}

// WithColumn returns a clone that has the named column, appended as null when
// it did not exist.
func (d *Dataset) WithColumn(name string) *Dataset {
	out := d.Clone()
	if out.HasColumn(name) {
		return out
	}
	out.index[name] = len(out.columns)
	out.columns = append(out.columns, name)
	for i := range out.rows {
		out.rows[i] = append(out.rows[i], Null())
	}
	return out
}

// Select returns a new dataset holding copies of the given rows, in the order
// the indexes are listed.
func (d *Dataset) Select(indexes []int) *Dataset {
	out := New(d.columns...)
	out.rows = make([][]Value, 0, len(indexes))
	for _, i := range indexes {
		cp := make([]Value, len(d.rows[i]))
		copy(cp, d.rows[i])
		out.rows = append(out.rows, cp)
	}
	return out
}

// Filter returns the rows for which keep reports true, in original order.
func (d *Dataset) Filter(keep func(row int) bool) *Dataset {
	var idx []int
	for i := range d.rows {
		if keep(i) {
			idx = append(idx, i)
		}
	}
	return d.Select(idx)
}

// Floats returns the non-null numeric values of a column in row order.
func (d *Dataset) Floats(col string) []float64 {
	i, ok := d.index[col]
	if !ok {
		return nil
	}
	out := make([]float64, 0, len(d.rows))
	for _, r := range d.rows {
		if f, ok := r[i].Float(); ok {
			out = append(out, f)
		}
	}
	return out
}

// NullCount counts null cells in a column. Unknown columns count every row.
func (d *Dataset) NullCount(col string) int {
	i, ok := d.index[col]
	if !ok {
		return len(d.rows)
	}
	n := 0
	for _, r := range d.rows {
		if r[i].IsNull() {
			n++
		}
	}
	return n
}

// Records renders the dataset as a header plus string rows, in column order.
func (d *Dataset) Records() [][]string {
	out := make([][]string, 0, len(d.rows)+1)
	out = append(out, d.Columns())
	for _, r := range d.rows {
		rec := make([]string, len(r))
		for i, v := range r {
			rec[i] = v.String()
		}
		out = append(out, rec)
	}
	return out
}

// MarshalJSON encodes the dataset as {"columns": [...], "rows": [{...}]}.
func (d *Dataset) MarshalJSON() ([]byte, error) {
	rows := make([]map[string]Value, len(d.rows))
	for i := range d.rows {
		rows[i] = d.Row(i)
	}
	return json.Marshal(struct {
		Columns []string           `json:"columns"`
		Rows    []map[string]Value `json:"rows"`
	}{d.columns, rows})
}
