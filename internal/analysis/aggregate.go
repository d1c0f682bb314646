package analysis

import (
	"fmt"
	"sort"

	"github.com/mhan0505/student-management-system/internal/dataset"
	"github.com/mhan0505/student-management-system/internal/student"
)

// CountColumn names the per-group row count in summary tables.
const CountColumn = "n_students"

// DefaultSummaryColumns are averaged per group when none are configured.
func DefaultSummaryColumns() []string {
	return []string{student.ColGPA, student.ColCredits, student.ColBMI}
}

// SummaryRow aggregates one group.
type SummaryRow struct {
	Group string                   `json:"group"`
	Count int                      `json:"count"`
	Means map[string]dataset.Value `json:"means"`
}

// Summary is the per-group table, sorted by group key.
type Summary struct {
	GroupColumn string       `json:"group_column"`
	Columns     []string     `json:"columns"`
	Rows        []SummaryRow `json:"rows"`
}

// MeanColumn names the summary column holding the mean of col.
func MeanColumn(col string) string { return col + "_mean" }

// Dataset renders the summary as a table: group, n_students, <col>_mean...
func (s Summary) Dataset() *dataset.Dataset {
	cols := []string{s.GroupColumn, CountColumn}
	for _, c := range s.Columns {
		cols = append(cols, MeanColumn(c))
	}
	out := dataset.New(cols...)
	for _, r := range s.Rows {
		vals := []dataset.Value{dataset.Str(r.Group), dataset.Num(float64(r.Count))}
		for _, c := range s.Columns {
			vals = append(vals, r.Means[c])
		}
		_ = out.Append(vals...)
	}
	return out
}

// SummaryByGroup emits one row per non-null value of group with the row count
// and the mean of each column over that group's non-null values. A column
// absent from the dataset reports the group's row count instead of a mean.
func SummaryByGroup(d *dataset.Dataset, group string, columns ...string) (Summary, error) {
	if group == "" {
		group = student.ColMajor
	}
	if len(columns) == 0 {
		columns = DefaultSummaryColumns()
	}
	if !d.HasColumn(group) {
		return Summary{}, missing("summary", group)
	}
	keys, members := groupRows(d, group)
	sort.Strings(keys)

	s := Summary{GroupColumn: group, Columns: append([]string(nil), columns...)}
	for _, k := range keys {
		rows := members[k]
		sr := SummaryRow{Group: k, Count: len(rows), Means: make(map[string]dataset.Value, len(columns))}
		for _, c := range columns {
			if !d.HasColumn(c) {
				sr.Means[c] = dataset.Num(float64(len(rows)))
				continue
			}
			var vals []float64
			for _, row := range rows {
				if f, ok := d.Get(row, c).Float(); ok {
					vals = append(vals, f)
				}
			}
			sr.Means[c] = dataset.Num(mean(vals))
		}
		s.Rows = append(s.Rows, sr)
	}
	return s, nil
}

// groupRows returns group keys in order of first appearance and the row
// indexes of each group. Rows with a null key are skipped.
func groupRows(d *dataset.Dataset, group string) ([]string, map[string][]int) {
	var keys []string
	members := map[string][]int{}
	for row := 0; row < d.Len(); row++ {
		v := d.Get(row, group)
		if v.IsNull() {
			continue
		}
		k := v.String()
		if _, ok := members[k]; !ok {
			keys = append(keys, k)
		}
		members[k] = append(members[k], row)
	}
	return keys, members
}

// OrderKey is one sort key of a ranking.
type OrderKey struct {
	Column string `mapstructure:"column" yaml:"column" json:"column"`
	Desc   bool   `mapstructure:"desc" yaml:"desc" json:"desc"`
}

func (k OrderKey) String() string {
	if k.Desc {
		return k.Column + " desc"
	}
	return k.Column + " asc"
}

// DefaultRanking orders by gpa then credits, both descending.
func DefaultRanking() []OrderKey {
	return []OrderKey{{Column: student.ColGPA, Desc: true}, {Column: student.ColCredits, Desc: true}}
}

// TopKPerGroup keeps the k best rows of each group under the given ordering.
// Nulls rank last, ties fall through to the next key and then to original
// row order. Groups are emitted in ascending key order, each group's rows in
// ranking order.
func TopKPerGroup(d *dataset.Dataset, k int, group string, order ...OrderKey) (*dataset.Dataset, error) {
	if k < 1 {
		return nil, fmt.Errorf("top-k %d: %w", k, ErrInvalidK)
	}
	if group == "" {
		group = student.ColMajor
	}
	if len(order) == 0 {
		order = DefaultRanking()
	}
	if !d.HasColumn(group) {
		return nil, missing("top-k", group)
	}
	for _, o := range order {
		if !d.HasColumn(o.Column) {
			return nil, missing("top-k", o.Column)
		}
	}

	keys, members := groupRows(d, group)
	sort.Strings(keys)
	var picked []int
	for _, key := range keys {
		rows := append([]int(nil), members[key]...)
		sort.SliceStable(rows, func(i, j int) bool {
			return rankLess(d, rows[i], rows[j], order)
		})
		if len(rows) > k {
			rows = rows[:k]
		}
		picked = append(picked, rows...)
	}
	return d.Select(picked), nil
}

// rankLess reports whether row a ranks strictly before row b.
func rankLess(d *dataset.Dataset, a, b int, order []OrderKey) bool {
	for _, o := range order {
		c := compareValues(d.Get(a, o.Column), d.Get(b, o.Column))
		if c == 0 {
			continue
		}
		va, vb := d.Get(a, o.Column), d.Get(b, o.Column)
		if va.IsNull() || vb.IsNull() {
			// nulls last regardless of direction
			return vb.IsNull()
		}
		if o.Desc {
			return c > 0
		}
		return c < 0
	}
	return false
}

// compareValues orders numbers numerically, dates chronologically and
// everything else by text; null compares greater than any value.
func compareValues(a, b dataset.Value) int {
	switch {
	case a.IsNull() && b.IsNull():
		return 0
	case a.IsNull():
		return 1
	case b.IsNull():
		return -1
	}
	if fa, ok := a.Float(); ok {
		if fb, ok := b.Float(); ok {
			switch {
			case fa < fb:
				return -1
			case fa > fb:
				return 1
			}
			return 0
		}
	}
	if ta, ok := a.Time(); ok {
		if tb, ok := b.Time(); ok {
			return ta.Compare(tb)
		}
	}
	sa, sb := a.String(), b.String()
	switch {
	case sa < sb:
		return -1
	case sa > sb:
		return 1
	}
	return 0
}
