package analysis

import (
	"math"

	"github.com/mhan0505/student-management-system/internal/dataset"
	"github.com/mhan0505/student-management-system/internal/student"
)

// ImputeRule fills Column with the median of the rows sharing its GroupBy value.
type ImputeRule struct {
	Column  string `mapstructure:"column" yaml:"column" json:"column"`
	GroupBy string `mapstructure:"group_by" yaml:"group_by" json:"group_by"`
}

// DefaultImputeRules groups physical measurements by gender and academic
// ones by major.
func DefaultImputeRules() []ImputeRule {
	return []ImputeRule{
		{Column: student.ColHeightCM, GroupBy: student.ColGender},
		{Column: student.ColWeightKG, GroupBy: student.ColGender},
		{Column: student.ColGPA, GroupBy: student.ColMajor},
		{Column: student.ColCredits, GroupBy: student.ColMajor},
	}
}

// ImputationCount records how many values of a column were missing before
// imputation and how many of those were filled.
type ImputationCount struct {
	Column  string `json:"column"`
	GroupBy string `json:"group_by"`
	Missing int    `json:"missing"`
	Filled  int    `json:"filled"`
}

// ImputationReport lists one count per rule, in rule order.
type ImputationReport []ImputationCount

// Missing returns the pre-imputation null count for col.
func (r ImputationReport) Missing(col string) int {
	for _, c := range r {
		if c.Column == col {
			return c.Missing
		}
	}
	return 0
}

// TotalMissing sums the pre-imputation null counts.
func (r ImputationReport) TotalMissing() int {
	n := 0
	for _, c := range r {
		n += c.Missing
	}
	return n
}

// ImputeMissing replaces nulls with grouped medians. Medians come from the
// input dataset, so the order of rules does not matter. A row whose group
// value is null, or whose group has no observed values, is left null.
func ImputeMissing(d *dataset.Dataset, rules ...ImputeRule) (*dataset.Dataset, ImputationReport, error) {
	if len(rules) == 0 {
		rules = DefaultImputeRules()
	}
	for _, r := range rules {
		if !d.HasColumn(r.Column) {
			return nil, nil, missing("impute", r.Column)
		}
		if !d.HasColumn(r.GroupBy) {
			return nil, nil, missing("impute", r.GroupBy)
		}
	}

	rep := make(ImputationReport, len(rules))
	for i, r := range rules {
		rep[i] = ImputationCount{Column: r.Column, GroupBy: r.GroupBy, Missing: d.NullCount(r.Column)}
	}

	out := d.Clone()
	for i, r := range rules {
		medians := groupMedians(d, r.Column, r.GroupBy)
		for row := 0; row < d.Len(); row++ {
			if !d.Get(row, r.Column).IsNull() {
				continue
			}
			key := d.Get(row, r.GroupBy)
			if key.IsNull() {
				continue
			}
			m, ok := medians[key.String()]
			if !ok || math.IsNaN(m) {
				continue
			}
			out.Set(row, r.Column, dataset.Num(m))
			rep[i].Filled++
		}
	}
	return out, rep, nil
}

func groupMedians(d *dataset.Dataset, col, group string) map[string]float64 {
	vals := map[string][]float64{}
	for row := 0; row < d.Len(); row++ {
		key := d.Get(row, group)
		if key.IsNull() {
			continue
		}
		k := key.String()
		if _, ok := vals[k]; !ok {
			vals[k] = nil
		}
		if f, ok := d.Get(row, col).Float(); ok {
			vals[k] = append(vals[k], f)
		}
	}
	out := make(map[string]float64, len(vals))
	for k, v := range vals {
		out[k] = median(v)
	}
	return out
}
