package analysis

import (
	"math"
	"testing"
	"time"

	"github.com/mhan0505/student-management-system/internal/dataset"
	"github.com/mhan0505/student-management-system/internal/student"
)

var nan = math.NaN()

type fixtureRow struct {
	id, gender, major string
	gpa, credits      float64
	height, weight    float64
	dob               string
}

var fixtureColumns = []string{
	student.ColID, student.ColGender, student.ColMajor, student.ColGPA, student.ColCredits,
	student.ColHeightCM, student.ColWeightKG, student.ColDOB,
}

// build turns fixture rows into a dataset; NaN and "" become null.
func build(t *testing.T, rows ...fixtureRow) *dataset.Dataset {
	t.Helper()
	d := dataset.New(fixtureColumns...)
	for _, r := range rows {
		dob := dataset.Null()
		if r.dob != "" {
			tm, err := time.Parse(dataset.DateLayout, r.dob)
			if err != nil {
				t.Fatalf("bad fixture dob %q: %v", r.dob, err)
			}
			dob = dataset.Date(tm)
		}
		if err := d.Append(text(r.id), text(r.gender), text(r.major),
			dataset.Num(r.gpa), dataset.Num(r.credits),
			dataset.Num(r.height), dataset.Num(r.weight), dob); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	return d
}

func text(s string) dataset.Value {
	if s == "" {
		return dataset.Null()
	}
	return dataset.Str(s)
}

// column builds a single numeric column dataset.
func column(t *testing.T, name string, vals ...float64) *dataset.Dataset {
	t.Helper()
	d := dataset.New(student.ColID, name)
	for i, v := range vals {
		if err := d.Append(dataset.Num(float64(i)), dataset.Num(v)); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	return d
}

func floatAt(t *testing.T, d *dataset.Dataset, row int, col string) float64 {
	t.Helper()
	f, ok := d.Get(row, col).Float()
	if !ok {
		t.Fatalf("row %d %s: expected number, got %v", row, col, d.Get(row, col))
	}
	return f
}

func almost(a, b, tol float64) bool { return math.Abs(a-b) <= tol }

// classroom is a small mixed fixture used across stage tests.
func classroom(t *testing.T) *dataset.Dataset {
	return build(t,
		fixtureRow{"S01", "M", "CS", 3.6, 120, 172, 68, "2003-04-12"},
		fixtureRow{"S02", "F", "CS", 2.9, 98, 160, 52, "2004-01-30"},
		fixtureRow{"S03", "F", "Math", 3.8, 130, 165, 55, "2002-11-02"},
		fixtureRow{"S04", "M", "Math", nan, 110, nan, 80, "2003-07-19"},
		fixtureRow{"S05", "M", "CS", 3.1, nan, 180, nan, "2004-09-09"},
		fixtureRow{"S06", "F", "Physics", 2.4, 90, 158, 49, "2005-02-14"},
		fixtureRow{"S07", "M", "Physics", 3.9, 140, 185, 140, "2001-12-01"},
		fixtureRow{"S08", "F", "Math", 3.0, 105, 162, 58, ""},
	)
}
