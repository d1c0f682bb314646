package analysis

import (
	"math"
	"time"

	"github.com/mhan0505/student-management-system/internal/dataset"
	"github.com/mhan0505/student-management-system/internal/student"
)

// DaysPerYear converts a day count into fractional years.
const DaysPerYear = 365.25

// AddBMI appends (or overwrites) the bmi column: weight_kg / (height_cm/100)^2.
// A null or zero input yields null.
func AddBMI(d *dataset.Dataset) (*dataset.Dataset, error) {
	for _, c := range []string{student.ColHeightCM, student.ColWeightKG} {
		if !d.HasColumn(c) {
			return nil, missing("bmi", c)
		}
	}
	out := d.WithColumn(student.ColBMI)
	for row := 0; row < out.Len(); row++ {
		out.Set(row, student.ColBMI, bmi(out.Get(row, student.ColHeightCM), out.Get(row, student.ColWeightKG)))
	}
	return out, nil
}

func bmi(height, weight dataset.Value) dataset.Value {
	h, okH := height.Float()
	w, okW := weight.Float()
	if !okH || !okW || h == 0 || w == 0 {
		return dataset.Null()
	}
	m := h / 100
	return dataset.Num(w / (m * m))
}

// DOBColumn resolves the date-of-birth column name used by d.
func DOBColumn(d *dataset.Dataset) (string, bool) {
	for _, c := range []string{student.ColDOB, student.ColDateOfBirth} {
		if d.HasColumn(c) {
			return c, true
		}
	}
	return "", false
}

// AddAge appends the age column in fractional years at ref:
// whole days between the date of birth and ref, divided by 365.25.
// The value is stored unrounded.
func AddAge(d *dataset.Dataset, ref time.Time) (*dataset.Dataset, error) {
	col, ok := DOBColumn(d)
	if !ok {
		return nil, missing("age", student.ColDOB)
	}
	refDay := dayStart(ref)
	out := d.WithColumn(student.ColAge)
	for row := 0; row < out.Len(); row++ {
		out.Set(row, student.ColAge, age(out.Get(row, col), refDay))
	}
	return out, nil
}

func age(dob dataset.Value, ref time.Time) dataset.Value {
	t, ok := dob.Time()
	if !ok {
		// dates that arrived as text (e.g. from a driver) are still accepted
		s, isText := dob.Text()
		if !isText {
			return dataset.Null()
		}
		if t, ok = dataset.ParseDate(s); !ok {
			return dataset.Null()
		}
	}
	days := math.Floor(ref.Sub(dayStart(t)).Hours() / 24)
	return dataset.Num(days / DaysPerYear)
}

func dayStart(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
