package analysis

import (
	"math"
	"sort"

	"github.com/mhan0505/student-management-system/internal/dataset"
)

// DefaultMultiplier is the conventional Tukey fence multiplier.
const DefaultMultiplier = 1.5

// Bounds are the IQR fences of one column for one multiplier.
type Bounds struct {
	Column     string  `json:"column"`
	Multiplier float64 `json:"multiplier"`
	N          int     `json:"n"` // non-null observations
	Q1         float64 `json:"q1"`
	Q3         float64 `json:"q3"`
	IQR        float64 `json:"iqr"`
	Lower      float64 `json:"lower"`
	Upper      float64 `json:"upper"`
}

// Defined reports whether the column had any observations to bound.
func (b Bounds) Defined() bool { return b.N > 0 }

// Outside reports whether v lies strictly outside the fences. Undefined
// bounds flag nothing.
func (b Bounds) Outside(v float64) bool {
	return b.Defined() && (v < b.Lower || v > b.Upper)
}

// Clamp limits v to the fences.
func (b Bounds) Clamp(v float64) float64 {
	if !b.Defined() {
		return v
	}
	return math.Min(math.Max(v, b.Lower), b.Upper)
}

// ComputeBounds derives Q1, Q3 and [Q1 - m*IQR, Q3 + m*IQR] from the non-null
// values of col. Bounds are recomputed on every call.
func ComputeBounds(d *dataset.Dataset, col string, m float64) (Bounds, error) {
	if !(m > 0) || math.IsInf(m, 0) {
		return Bounds{}, ErrInvalidMultiplier
	}
	if !d.HasColumn(col) {
		return Bounds{}, missing("outliers", col)
	}
	vals := d.Floats(col)
	b := Bounds{Column: col, Multiplier: m, N: len(vals)}
	if len(vals) == 0 {
		return b, nil
	}
	sort.Float64s(vals)
	b.Q1 = quantile(vals, 0.25)
	b.Q3 = quantile(vals, 0.75)
	b.IQR = b.Q3 - b.Q1
	b.Lower = b.Q1 - m*b.IQR
	b.Upper = b.Q3 + m*b.IQR
	return b, nil
}

// OutlierSet holds the rows flagged in one column.
type OutlierSet struct {
	Bounds  Bounds           `json:"bounds"`
	Indexes []int            `json:"indexes"` // row positions in the input dataset
	Rows    *dataset.Dataset `json:"rows"`
}

// Count is the number of flagged rows.
func (s OutlierSet) Count() int { return len(s.Indexes) }

// DetectOutliers returns the rows whose value in col is strictly outside the
// IQR fences, in original order. Null cells are never flagged.
func DetectOutliers(d *dataset.Dataset, col string, m float64) (OutlierSet, error) {
	b, err := ComputeBounds(d, col, m)
	if err != nil {
		return OutlierSet{}, err
	}
	idx := []int{}
	for row := 0; row < d.Len(); row++ {
		if f, ok := d.Get(row, col).Float(); ok && b.Outside(f) {
			idx = append(idx, row)
		}
	}
	return OutlierSet{Bounds: b, Indexes: idx, Rows: d.Select(idx)}, nil
}

// CapResult is the outcome of Winsorizing a column.
type CapResult struct {
	Dataset *dataset.Dataset
	Bounds  Bounds
	Below   int
	Above   int
}

// CapOutliers clamps every value of col to the IQR fences. Row count is
// unchanged.
func CapOutliers(d *dataset.Dataset, col string, m float64) (CapResult, error) {
	b, err := ComputeBounds(d, col, m)
	if err != nil {
		return CapResult{}, err
	}
	res := CapResult{Dataset: d.Clone(), Bounds: b}
	for row := 0; row < d.Len(); row++ {
		f, ok := d.Get(row, col).Float()
		if !ok || !b.Outside(f) {
			continue
		}
		if f < b.Lower {
			res.Below++
		} else {
			res.Above++
		}
		res.Dataset.Set(row, col, dataset.Num(b.Clamp(f)))
	}
	return res, nil
}

// RemoveResult is the outcome of dropping outlier rows.
type RemoveResult struct {
	Dataset *dataset.Dataset
	Bounds  Bounds
	Removed int
}

// RemoveOutliers drops every row whose value in col lies outside the IQR
// fences. Rows with a null value are kept.
func RemoveOutliers(d *dataset.Dataset, col string, m float64) (RemoveResult, error) {
	b, err := ComputeBounds(d, col, m)
	if err != nil {
		return RemoveResult{}, err
	}
	kept := d.Filter(func(row int) bool {
		f, ok := d.Get(row, col).Float()
		return !ok || !b.Outside(f)
	})
	return RemoveResult{Dataset: kept, Bounds: b, Removed: d.Len() - kept.Len()}, nil
}
