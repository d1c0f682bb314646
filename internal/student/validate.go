package student

import (
	"errors"
	"fmt"
	"sort"

	"github.com/go-playground/validator/v10"

	"github.com/mhan0505/student-management-system/internal/dataset"
)

// Limits bounds the physical and academic fields of a record.
type Limits struct {
	MinGPA      float64 `mapstructure:"min_gpa" yaml:"min_gpa"`
	MaxGPA      float64 `mapstructure:"max_gpa" yaml:"max_gpa"`
	MinHeightCM float64 `mapstructure:"min_height_cm" yaml:"min_height_cm"`
	MaxHeightCM float64 `mapstructure:"max_height_cm" yaml:"max_height_cm"`
	MinWeightKG float64 `mapstructure:"min_weight_kg" yaml:"min_weight_kg"`
	MaxWeightKG float64 `mapstructure:"max_weight_kg" yaml:"max_weight_kg"`
}

// DefaultLimits mirrors the ranges the registration forms accept.
func DefaultLimits() Limits {
	return Limits{
		MinGPA: 0, MaxGPA: 4,
		MinHeightCM: 100, MaxHeightCM: 250,
		MinWeightKG: 30, MaxWeightKG: 200,
	}
}

// Tags reported for range violations.
const (
	TagGPARange    = "gpa_range"
	TagHeightRange = "height_range"
	TagWeightRange = "weight_range"
)

// RequiredColumns must be present in any table handed to the analytics.
var RequiredColumns = []string{ColID, ColFullName, ColMajor}

// Validator checks student records against struct tags and Limits.
type Validator struct {
	v      *validator.Validate
	limits Limits
}

// NewValidator builds a validator enforcing the given limits.
func NewValidator(l Limits) *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterStructValidation(func(sl validator.StructLevel) {
		s := sl.Current().Interface().(Student)
		if outside(s.GPA, l.MinGPA, l.MaxGPA) {
			sl.ReportError(s.GPA, ColGPA, "GPA", TagGPARange, fmt.Sprintf("%g-%g", l.MinGPA, l.MaxGPA))
		}
		if outside(s.HeightCM, l.MinHeightCM, l.MaxHeightCM) {
			sl.ReportError(s.HeightCM, ColHeightCM, "HeightCM", TagHeightRange, fmt.Sprintf("%g-%g", l.MinHeightCM, l.MaxHeightCM))
		}
		if outside(s.WeightKG, l.MinWeightKG, l.MaxWeightKG) {
			sl.ReportError(s.WeightKG, ColWeightKG, "WeightKG", TagWeightRange, fmt.Sprintf("%g-%g", l.MinWeightKG, l.MaxWeightKG))
		}
	}, Student{})
	return &Validator{v: v, limits: l}
}

func outside(f *float64, lo, hi float64) bool {
	return f != nil && (*f < lo || *f > hi)
}

// Validate returns validator.ValidationErrors when s breaks a rule.
func (val *Validator) Validate(s *Student) error {
	return val.v.Struct(s)
}

// Problems flattens a validation error into "field: tag" messages.
func Problems(err error) []string {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		if err != nil {
			return []string{err.Error()}
		}
		return nil
	}
	out := make([]string, 0, len(ve))
	for _, fe := range ve {
		if fe.Param() != "" {
			out = append(out, fmt.Sprintf("%s: %s %s", fe.Field(), fe.Tag(), fe.Param()))
		} else {
			out = append(out, fmt.Sprintf("%s: %s", fe.Field(), fe.Tag()))
		}
	}
	return out
}

// RowIssue lists the problems found on one row.
type RowIssue struct {
	Row       int      `json:"row"`
	StudentID string   `json:"student_id"`
	Problems  []string `json:"problems"`
}

// ValidationReport summarises a whole table.
type ValidationReport struct {
	TotalRows       int        `json:"total_rows"`
	InvalidGPA      int        `json:"invalid_gpa"`
	InvalidHeight   int        `json:"invalid_height"`
	InvalidWeight   int        `json:"invalid_weight"`
	InvalidGender   int        `json:"invalid_gender"`
	MissingRequired []string   `json:"missing_required_fields"`
	Issues          []RowIssue `json:"issues,omitempty"`
}

// OK reports whether the table passed every check.
func (r ValidationReport) OK() bool {
	return len(r.MissingRequired) == 0 && len(r.Issues) == 0
}

// ValidateDataset checks required columns and every row. Null gender is
// allowed; any other value outside {M, F} is counted.
func (val *Validator) ValidateDataset(d *dataset.Dataset) ValidationReport {
	rep := ValidationReport{TotalRows: d.Len()}
	for _, c := range RequiredColumns {
		if !d.HasColumn(c) {
			rep.MissingRequired = append(rep.MissingRequired, c)
		}
	}
	for i := 0; i < d.Len(); i++ {
		s, err := FromRow(d, i)
		if err != nil {
			continue
		}
		err = val.Validate(s)
		if err == nil {
			continue
		}
		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			for _, fe := range ve {
				switch fe.Tag() {
				case TagGPARange:
					rep.InvalidGPA++
				case TagHeightRange:
					rep.InvalidHeight++
				case TagWeightRange:
					rep.InvalidWeight++
				case "oneof":
					if fe.Field() == "Gender" {
						rep.InvalidGender++
					}
				}
			}
		}
		rep.Issues = append(rep.Issues, RowIssue{Row: i, StudentID: s.ID, Problems: Problems(err)})
	}
	return rep
}

// Duplicates returns the indexes of every row whose value in col occurs more
// than once, in row order. Null cells are ignored.
func Duplicates(d *dataset.Dataset, col string) []int {
	seen := map[string][]int{}
	for i := 0; i < d.Len(); i++ {
		v := d.Get(i, col)
		if v.IsNull() {
			continue
		}
		seen[v.String()] = append(seen[v.String()], i)
	}
	var out []int
	for _, idx := range seen {
		if len(idx) > 1 {
			out = append(out, idx...)
		}
	}
	sort.Ints(out)
	return out
}
