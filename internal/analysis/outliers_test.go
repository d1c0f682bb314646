package analysis

import (
	"errors"
	"math"
	"testing"

	"github.com/mhan0505/student-management-system/internal/student"
)

func TestBMIOutlierScenario(t *testing.T) {
	d := build(t,
		fixtureRow{"1", "F", "CS", 3, 10, 150, 50, ""},
		fixtureRow{"2", "F", "CS", 3, 10, 160, 55, ""},
		fixtureRow{"3", "M", "CS", 3, 10, 170, 65, ""},
		fixtureRow{"4", "M", "CS", 3, 10, 180, 90, ""},
	)
	d, err := AddBMI(d)
	if err != nil {
		t.Fatal(err)
	}
	set, err := DetectOutliers(d, student.ColBMI, 1.5)
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	b := set.Bounds
	if b.N != 4 || !almost(b.IQR, b.Q3-b.Q1, 1e-12) || !almost(b.Upper, b.Q3+1.5*b.IQR, 1e-12) {
		t.Fatalf("inconsistent bounds %+v", b)
	}
	top := floatAt(t, d, 3, student.ColBMI)
	flagged := false
	for _, i := range set.Indexes {
		if i == 3 {
			flagged = true
		}
	}
	if flagged != (top > b.Upper) {
		t.Fatalf("27.78 flagged=%v but upper=%v", flagged, b.Upper)
	}
	if set.Rows.Len() != set.Count() {
		t.Fatalf("rows/indexes mismatch")
	}
}

func TestDetectPartitionsDataset(t *testing.T) {
	d := column(t, student.ColGPA, 1, 2, 2.5, 3, 3.1, 3.2, 9, -4, nan, 2.8)
	for _, m := range []float64{0.1, 0.5, 1.5, 3} {
		set, err := DetectOutliers(d, student.ColGPA, m)
		if err != nil {
			t.Fatalf("detect m=%v: %v", m, err)
		}
		inside := 0
		seen := map[int]bool{}
		for _, i := range set.Indexes {
			seen[i] = true
		}
		for row := 0; row < d.Len(); row++ {
			f, ok := d.Get(row, student.ColGPA).Float()
			out := ok && (f < set.Bounds.Lower || f > set.Bounds.Upper)
			if out != seen[row] {
				t.Fatalf("m=%v row %d classified %v, outside=%v", m, row, seen[row], out)
			}
			if !seen[row] {
				inside++
			}
		}
		if inside+set.Count() != d.Len() {
			t.Fatalf("m=%v partition broken: %d + %d != %d", m, inside, set.Count(), d.Len())
		}
		if seen[8] {
			t.Fatalf("null flagged as outlier")
		}
	}
}

func TestDetectMonotoneInMultiplier(t *testing.T) {
	d := column(t, student.ColGPA, 0.5, 1.9, 2.1, 2.4, 2.5, 2.7, 3.0, 3.3, 3.9, 8)
	prev := math.MaxInt
	for _, m := range []float64{0.01, 0.25, 0.5, 1, 1.5, 2, 3, 10} {
		set, err := DetectOutliers(d, student.ColGPA, m)
		if err != nil {
			t.Fatal(err)
		}
		if set.Count() > prev {
			t.Fatalf("m=%v flagged %d, more than %d at smaller m", m, set.Count(), prev)
		}
		prev = set.Count()
	}
}

func TestCapOutliersIdempotent(t *testing.T) {
	d := column(t, student.ColBMI, -50, 1, 2, 3, 4, 5, 6, 7, 8, 100)
	once, err := CapOutliers(d, student.ColBMI, 1.5)
	if err != nil {
		t.Fatalf("cap: %v", err)
	}
	if once.Below != 1 || once.Above != 1 {
		t.Fatalf("below=%d above=%d", once.Below, once.Above)
	}
	if got := floatAt(t, once.Dataset, 0, student.ColBMI); !almost(got, once.Bounds.Lower, 1e-12) {
		t.Fatalf("low value capped to %v, want %v", got, once.Bounds.Lower)
	}
	if got := floatAt(t, once.Dataset, 9, student.ColBMI); !almost(got, once.Bounds.Upper, 1e-12) {
		t.Fatalf("high value capped to %v, want %v", got, once.Bounds.Upper)
	}
	twice, err := CapOutliers(once.Dataset, student.ColBMI, 1.5)
	if err != nil {
		t.Fatal(err)
	}
	for row := 0; row < d.Len(); row++ {
		if !once.Dataset.Get(row, student.ColBMI).Equal(twice.Dataset.Get(row, student.ColBMI)) {
			t.Fatalf("row %d changed on second cap", row)
		}
	}
	if twice.Below+twice.Above != 0 {
		t.Fatalf("second cap touched %d values", twice.Below+twice.Above)
	}
	if floatAt(t, d, 9, student.ColBMI) != 100 {
		t.Fatalf("input mutated")
	}
}

func TestRemoveOutliers(t *testing.T) {
	d := column(t, student.ColGPA, 1, 2, 2.5, 3, nan, 3.2, 9, -4)
	res, err := RemoveOutliers(d, student.ColGPA, 1.5)
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if res.Dataset.Len() > d.Len() || res.Removed != d.Len()-res.Dataset.Len() {
		t.Fatalf("bad counts: removed %d, left %d", res.Removed, res.Dataset.Len())
	}
	if res.Removed != 2 {
		t.Fatalf("removed %d, want 2", res.Removed)
	}
	if res.Dataset.NullCount(student.ColGPA) != 1 {
		t.Fatalf("null row should be kept")
	}
	for _, f := range res.Dataset.Floats(student.ColGPA) {
		if res.Bounds.Outside(f) {
			t.Fatalf("%v left outside bounds", f)
		}
	}
}

func TestOutlierEdgeCases(t *testing.T) {
	d := column(t, student.ColGPA, 1, 2, 3)
	for _, m := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		if _, err := DetectOutliers(d, student.ColGPA, m); !errors.Is(err, ErrInvalidMultiplier) {
			t.Errorf("m=%v: expected ErrInvalidMultiplier, got %v", m, err)
		}
	}
	if _, err := CapOutliers(d, "height_cm", 1.5); !errors.Is(err, ErrMissingColumn) {
		t.Errorf("expected missing column, got %v", err)
	}

	empty := column(t, student.ColGPA, nan, nan)
	set, err := DetectOutliers(empty, student.ColGPA, 1.5)
	if err != nil || set.Count() != 0 || set.Bounds.Defined() {
		t.Fatalf("all-null column: %+v %v", set, err)
	}
	rr, err := RemoveOutliers(empty, student.ColGPA, 1.5)
	if err != nil || rr.Removed != 0 || rr.Dataset.Len() != 2 {
		t.Fatalf("remove on all-null: %+v %v", rr, err)
	}
}
