package analysis

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/mhan0505/student-management-system/internal/dataset"
	"github.com/mhan0505/student-management-system/internal/student"
)

func TestQuantileLinear(t *testing.T) {
	vals := []float64{1, 2, 3, 4}
	cases := []struct {
		q, want float64
	}{
		{0, 1}, {0.25, 1.75}, {0.5, 2.5}, {0.75, 3.25}, {1, 4},
	}
	for _, c := range cases {
		if got := quantile(vals, c.q); !almost(got, c.want, 1e-12) {
			t.Errorf("quantile(%v) = %v, want %v", c.q, got, c.want)
		}
	}
	if !math.IsNaN(quantile(nil, 0.5)) {
		t.Fatalf("empty quantile should be NaN")
	}
	if got := median([]float64{3.5, 2.0, 3.0}); got != 3.0 {
		t.Fatalf("median = %v", got)
	}
}

func TestImputeGroupedMedian(t *testing.T) {
	raw := build(t,
		fixtureRow{"1", "M", "CS", 2.0, 10, 170, 60, ""},
		fixtureRow{"2", "F", "CS", 3.0, 12, 160, 50, ""},
		fixtureRow{"3", "M", "CS", 3.5, nan, 180, 70, ""},
		fixtureRow{"4", "F", "CS", nan, 14, 150, 45, ""},
	)
	out, rep, err := ImputeMissing(raw)
	if err != nil {
		t.Fatalf("impute: %v", err)
	}
	if got := floatAt(t, out, 3, student.ColGPA); got != 3.0 {
		t.Fatalf("imputed gpa = %v, want 3.0", got)
	}
	if got := floatAt(t, out, 2, student.ColCredits); got != 12 {
		t.Fatalf("imputed credits = %v, want 12", got)
	}
	if rep.Missing(student.ColGPA) != 1 || rep.Missing(student.ColCredits) != 1 || rep.TotalMissing() != 2 {
		t.Fatalf("unexpected report: %+v", rep)
	}
	// input untouched
	if !raw.Get(3, student.ColGPA).IsNull() {
		t.Fatalf("input dataset was mutated")
	}
	if out.Len() != raw.Len() || len(out.Columns()) != len(raw.Columns()) {
		t.Fatalf("shape changed: %d/%d", out.Len(), len(out.Columns()))
	}
}

func TestImputeLeavesUnfillableNull(t *testing.T) {
	raw := build(t,
		fixtureRow{"1", "M", "Art", nan, 10, 170, 60, ""},
		fixtureRow{"2", "", "CS", 3.0, 12, nan, 50, ""},
		fixtureRow{"3", "F", "", nan, 12, 160, 50, ""},
	)
	out, rep, err := ImputeMissing(raw)
	if err != nil {
		t.Fatalf("impute: %v", err)
	}
	if !out.Get(0, student.ColGPA).IsNull() {
		t.Errorf("group without observations should stay null")
	}
	if !out.Get(1, student.ColHeightCM).IsNull() {
		t.Errorf("null group value should stay null")
	}
	if !out.Get(2, student.ColGPA).IsNull() {
		t.Errorf("null major should stay null")
	}
	for _, c := range rep {
		if c.Filled != 0 {
			t.Errorf("%s filled %d, want 0", c.Column, c.Filled)
		}
	}
	before := 0
	after := 0
	for _, c := range raw.Columns() {
		before += raw.NullCount(c)
		after += out.NullCount(c)
	}
	if after != before {
		t.Fatalf("null count changed from %d to %d", before, after)
	}
}

func TestImputeMissingColumn(t *testing.T) {
	d := column(t, student.ColGPA, 1, 2)
	_, _, err := ImputeMissing(d, ImputeRule{Column: student.ColGPA, GroupBy: student.ColMajor})
	var ce *ColumnError
	if !errors.As(err, &ce) || ce.Column != student.ColMajor || !errors.Is(err, ErrMissingColumn) {
		t.Fatalf("expected missing column error for major, got %v", err)
	}
}

func TestAddBMI(t *testing.T) {
	d := build(t,
		fixtureRow{"1", "F", "CS", 3, 10, 150, 50, ""},
		fixtureRow{"2", "F", "CS", 3, 10, 160, 55, ""},
		fixtureRow{"3", "M", "CS", 3, 10, 170, 65, ""},
		fixtureRow{"4", "M", "CS", 3, 10, 180, 90, ""},
		fixtureRow{"5", "M", "CS", 3, 10, 0, 90, ""},
		fixtureRow{"6", "M", "CS", 3, 10, 175, nan, ""},
	)
	out, err := AddBMI(d)
	if err != nil {
		t.Fatalf("bmi: %v", err)
	}
	want := []float64{22.22, 21.48, 22.49, 27.78}
	for i, w := range want {
		h := floatAt(t, d, i, student.ColHeightCM) / 100
		exact := floatAt(t, d, i, student.ColWeightKG) / (h * h)
		got := floatAt(t, out, i, student.ColBMI)
		if !almost(got, exact, 1e-9) || !almost(got, w, 0.005) {
			t.Errorf("row %d bmi = %v, want %v", i, got, w)
		}
	}
	for _, i := range []int{4, 5} {
		if !out.Get(i, student.ColBMI).IsNull() {
			t.Errorf("row %d bmi should be null", i)
		}
	}
	if d.HasColumn(student.ColBMI) {
		t.Fatalf("input gained bmi column")
	}
}

func TestAddAge(t *testing.T) {
	ref := time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC)
	d := build(t,
		fixtureRow{"1", "M", "CS", 3, 10, 170, 60, "2005-10-01"},
		fixtureRow{"2", "M", "CS", 3, 10, 170, 60, ""},
	)
	// text dates are accepted as well
	if err := d.Append(dataset.Str("3"), dataset.Str("F"), dataset.Str("CS"), dataset.Num(3), dataset.Num(10),
		dataset.Num(160), dataset.Num(50), dataset.Str("2000-01-01")); err != nil {
		t.Fatal(err)
	}
	out, err := AddAge(d, ref)
	if err != nil {
		t.Fatalf("age: %v", err)
	}
	days := math.Floor(ref.Sub(time.Date(2005, 10, 1, 0, 0, 0, 0, time.UTC)).Hours() / 24)
	if got := floatAt(t, out, 0, student.ColAge); !almost(got, days/DaysPerYear, 1e-12) {
		t.Errorf("age = %v, want %v", got, days/DaysPerYear)
	}
	if !out.Get(1, student.ColAge).IsNull() {
		t.Errorf("null dob should give null age")
	}
	if got := floatAt(t, out, 2, student.ColAge); got < 25.7 || got > 25.8 {
		t.Errorf("text dob age = %v", got)
	}

	if _, err := AddAge(column(t, "x", 1), ref); !errors.Is(err, ErrMissingColumn) {
		t.Fatalf("expected missing column, got %v", err)
	}
}

func TestAddZScores(t *testing.T) {
	d := column(t, student.ColGPA, 2.0, 2.5, 3.0, 3.5, nan, 4.0)
	out, err := AddZScores(d, student.ColGPA)
	if err != nil {
		t.Fatalf("zscore: %v", err)
	}
	z := out.Floats(ZPrefix + student.ColGPA)
	if len(z) != 5 {
		t.Fatalf("want 5 z values, got %d", len(z))
	}
	mu, sd := meanStd(z)
	if !almost(mu, 0, 1e-9) || !almost(sd, 1, 1e-9) {
		t.Fatalf("z mean %v sd %v", mu, sd)
	}
	if !out.Get(4, ZPrefix+student.ColGPA).IsNull() {
		t.Fatalf("null input should give null z")
	}
}

func TestAddZScoresDegenerate(t *testing.T) {
	for name, vals := range map[string][]float64{
		"constant": {3, 3, 3},
		"single":   {3, nan},
	} {
		t.Run(name, func(t *testing.T) {
			out, err := AddZScores(column(t, student.ColGPA, vals...), student.ColGPA)
			if err != nil {
				t.Fatalf("zscore: %v", err)
			}
			if n := out.NullCount(ZPrefix + student.ColGPA); n != out.Len() {
				t.Fatalf("expected all z null, %d of %d", n, out.Len())
			}
		})
	}
	if _, err := AddZScores(column(t, student.ColGPA, 1), "bmi"); !errors.Is(err, ErrMissingColumn) {
		t.Fatalf("expected missing column error, got %v", err)
	}
}
