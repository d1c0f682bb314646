package analysis

import (
	"math"

	"github.com/mhan0505/student-management-system/internal/dataset"
	"github.com/mhan0505/student-management-system/internal/student"
)

// ZPrefix names the z-score column derived from a source column.
const ZPrefix = "z_"

// DefaultZScoreColumns are normalised when no columns are configured.
func DefaultZScoreColumns() []string {
	return []string{student.ColGPA, student.ColCredits, student.ColBMI, student.ColAge}
}

// AddZScores appends z_<col> = (value - mean) / std for every column, using
// the mean and sample standard deviation of the non-null values. When the
// standard deviation is zero or undefined every z_<col> is null.
func AddZScores(d *dataset.Dataset, columns ...string) (*dataset.Dataset, error) {
	if len(columns) == 0 {
		columns = DefaultZScoreColumns()
	}
	for _, c := range columns {
		if !d.HasColumn(c) {
			return nil, missing("zscore", c)
		}
	}
	out := d
	for _, c := range columns {
		zc := ZPrefix + c
		out = out.WithColumn(zc)
		mu, sd := meanStd(out.Floats(c))
		defined := !math.IsNaN(sd) && sd != 0
		for row := 0; row < out.Len(); row++ {
			f, ok := out.Get(row, c).Float()
			if !ok || !defined {
				out.Set(row, zc, dataset.Null())
				continue
			}
			out.Set(row, zc, dataset.Num((f-mu)/sd))
		}
	}
	return out, nil
}
