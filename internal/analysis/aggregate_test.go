package analysis

import (
	"errors"
	"strings"
	"testing"

	"github.com/mhan0505/student-management-system/internal/dataset"
	"github.com/mhan0505/student-management-system/internal/student"
)

func TestSummaryByGroup(t *testing.T) {
	d := build(t,
		fixtureRow{"1", "M", "Math", 3.0, 100, 170, 60, ""},
		fixtureRow{"2", "F", "CS", 2.0, 120, 160, 50, ""},
		fixtureRow{"3", "F", "CS", 4.0, nan, 165, 55, ""},
		fixtureRow{"4", "M", "", 1.0, 90, 175, 70, ""},
		fixtureRow{"5", "M", "Math", nan, nan, 180, 80, ""},
	)
	s, err := SummaryByGroup(d, student.ColMajor, student.ColGPA, student.ColCredits, student.ColBMI)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if len(s.Rows) != 2 || s.Rows[0].Group != "CS" || s.Rows[1].Group != "Math" {
		t.Fatalf("unexpected groups: %+v", s.Rows)
	}
	cs, mth := s.Rows[0], s.Rows[1]
	if cs.Count != 2 || mth.Count != 2 {
		t.Fatalf("counts %d %d", cs.Count, mth.Count)
	}
	if f, _ := cs.Means[student.ColGPA].Float(); f != 3.0 {
		t.Errorf("CS gpa mean %v", f)
	}
	if f, _ := cs.Means[student.ColCredits].Float(); f != 120 {
		t.Errorf("CS credits mean %v", f)
	}
	// bmi absent: falls back to the group row count
	if f, _ := mth.Means[student.ColBMI].Float(); f != 2 {
		t.Errorf("absent bmi column should report count, got %v", f)
	}

	tbl := s.Dataset()
	wantCols := []string{student.ColMajor, CountColumn, "gpa_mean", "credits_mean", "bmi_mean"}
	if strings.Join(tbl.Columns(), ",") != strings.Join(wantCols, ",") {
		t.Fatalf("summary columns %v", tbl.Columns())
	}
	if tbl.Len() != 2 {
		t.Fatalf("summary rows %d", tbl.Len())
	}

	if _, err := SummaryByGroup(d, "province"); !errors.Is(err, ErrMissingColumn) {
		t.Fatalf("expected missing column, got %v", err)
	}
}

func TestSummaryAllNullGroup(t *testing.T) {
	d := build(t, fixtureRow{"1", "M", "Art", nan, nan, 170, 60, ""})
	s, err := SummaryByGroup(d, student.ColMajor, student.ColGPA)
	if err != nil {
		t.Fatal(err)
	}
	if !s.Rows[0].Means[student.ColGPA].IsNull() {
		t.Fatalf("mean of no values should be null")
	}
}

func TestTopKPerGroup(t *testing.T) {
	d := build(t,
		fixtureRow{"a", "M", "Math", 3.2, 100, 170, 60, ""},
		fixtureRow{"b", "F", "CS", 3.9, 120, 160, 50, ""},
		fixtureRow{"c", "F", "CS", 3.9, 130, 165, 55, ""},
		fixtureRow{"d", "M", "Math", 3.8, 90, 175, 70, ""},
		fixtureRow{"e", "M", "CS", nan, 150, 180, 80, ""},
		fixtureRow{"f", "M", "Math", 3.8, 95, 180, 80, ""},
	)
	ids := func(out *dataset.Dataset) string {
		var s []string
		for i := 0; i < out.Len(); i++ {
			s = append(s, out.Get(i, student.ColID).String())
		}
		return strings.Join(s, ",")
	}

	out, err := TopKPerGroup(d, 1, student.ColMajor, OrderKey{Column: student.ColGPA, Desc: true})
	if err != nil {
		t.Fatalf("top-k: %v", err)
	}
	// CS before Math; ties on gpa keep original order
	if got := ids(out); got != "b,d" {
		t.Fatalf("k=1 got %s", got)
	}

	out, err = TopKPerGroup(d, 3, student.ColMajor)
	if err != nil {
		t.Fatal(err)
	}
	// default ranking gpa desc then credits desc; null gpa last
	if got := ids(out); got != "c,b,e,f,d,a" {
		t.Fatalf("k=3 got %s", got)
	}

	out, err = TopKPerGroup(d, 10, student.ColMajor, OrderKey{Column: student.ColGPA})
	if err != nil {
		t.Fatal(err)
	}
	if got := ids(out); got != "b,c,e,a,d,f" {
		t.Fatalf("ascending got %s", got)
	}

	if _, err := TopKPerGroup(d, 0, student.ColMajor); !errors.Is(err, ErrInvalidK) {
		t.Fatalf("expected ErrInvalidK, got %v", err)
	}
	if _, err := TopKPerGroup(d, 1, student.ColMajor, OrderKey{Column: "rank"}); !errors.Is(err, ErrMissingColumn) {
		t.Fatalf("expected missing column, got %v", err)
	}
}
