// Package student holds the student record model: column names, the typed
// schema used when reading raw tables, struct conversion and validation.
package student

import (
	"fmt"
	"time"

	"github.com/mhan0505/student-management-system/internal/dataset"
)

// Column names of the students table and of the derived analytics columns.
const (
	ColID             = "student_id"
	ColFullName       = "full_name"
	ColDOB            = "dob"
	ColDateOfBirth    = "date_of_birth"
	ColGender         = "gender"
	ColMajor          = "major"
	ColClassID        = "class_id"
	ColEmail          = "email"
	ColPhone          = "phone"
	ColGPA            = "gpa"
	ColCredits        = "credits"
	ColHeightCM       = "height_cm"
	ColWeightKG       = "weight_kg"
	ColProvince       = "province"
	ColEnrollmentDate = "enrollment_date"

	ColBMI = "bmi"
	ColAge = "age"
)

// Columns lists the stored columns in table order.
var Columns = []string{
	ColID, ColFullName, ColDOB, ColGender, ColMajor, ColClassID, ColEmail, ColPhone,
	ColGPA, ColCredits, ColHeightCM, ColWeightKG, ColProvince, ColEnrollmentDate,
}

// Schema returns the parse kinds for student columns.
func Schema() dataset.Schema {
	return dataset.Schema{
		ColGPA:            dataset.KindNumber,
		ColCredits:        dataset.KindNumber,
		ColHeightCM:       dataset.KindNumber,
		ColWeightKG:       dataset.KindNumber,
		ColDOB:            dataset.KindDate,
		ColDateOfBirth:    dataset.KindDate,
		ColEnrollmentDate: dataset.KindDate,
	}
}

// Student is one row of the students table. Numeric ranges are checked by
// Validator against its Limits.
type Student struct {
	ID             string     `json:"student_id" validate:"required"`
	FullName       string     `json:"full_name" validate:"required"`
	DOB            *time.Time `json:"dob,omitempty"`
	Gender         string     `json:"gender,omitempty" validate:"omitempty,oneof=M F"`
	Major          string     `json:"major" validate:"required"`
	ClassID        string     `json:"class_id,omitempty"`
	Email          string     `json:"email,omitempty" validate:"omitempty,email"`
	Phone          string     `json:"phone,omitempty"`
	GPA            *float64   `json:"gpa,omitempty"`
	Credits        *float64   `json:"credits,omitempty" validate:"omitempty,gte=0"`
	HeightCM       *float64   `json:"height_cm,omitempty"`
	WeightKG       *float64   `json:"weight_kg,omitempty"`
	Province       string     `json:"province,omitempty"`
	EnrollmentDate *time.Time `json:"enrollment_date,omitempty"`
}

// FromRow reads a student out of a dataset row. The date of birth is taken
// from "dob" or, failing that, "date_of_birth".
func FromRow(d *dataset.Dataset, row int) (*Student, error) {
	if row < 0 || row >= d.Len() {
		return nil, fmt.Errorf("row %d out of range [0,%d)", row, d.Len())
	}
	s := &Student{
		ID:       d.Get(row, ColID).String(),
		FullName: d.Get(row, ColFullName).String(),
		Gender:   d.Get(row, ColGender).String(),
		Major:    d.Get(row, ColMajor).String(),
		ClassID:  d.Get(row, ColClassID).String(),
		Email:    d.Get(row, ColEmail).String(),
		Phone:    d.Get(row, ColPhone).String(),
		Province: d.Get(row, ColProvince).String(),
		GPA:      floatPtr(d.Get(row, ColGPA)),
		Credits:  floatPtr(d.Get(row, ColCredits)),
		HeightCM: floatPtr(d.Get(row, ColHeightCM)),
		WeightKG: floatPtr(d.Get(row, ColWeightKG)),

		EnrollmentDate: timePtr(d.Get(row, ColEnrollmentDate)),
	}
	s.DOB = timePtr(d.Get(row, ColDOB))
	if s.DOB == nil {
		s.DOB = timePtr(d.Get(row, ColDateOfBirth))
	}
	return s, nil
}

// Values returns the student's cells in Columns order.
func (s *Student) Values() []dataset.Value {
	return []dataset.Value{
		textValue(s.ID), textValue(s.FullName), dateValue(s.DOB), textValue(s.Gender),
		textValue(s.Major), textValue(s.ClassID), textValue(s.Email), textValue(s.Phone),
		dataset.NumPtr(s.GPA), dataset.NumPtr(s.Credits), dataset.NumPtr(s.HeightCM),
		dataset.NumPtr(s.WeightKG), textValue(s.Province), dateValue(s.EnrollmentDate),
	}
}

// NewDataset builds a dataset with the table columns from students.
func NewDataset(students ...*Student) *dataset.Dataset {
	d := dataset.New(Columns...)
	for _, s := range students {
		// arity always matches Columns
		_ = d.Append(s.Values()...)
	}
	return d
}

func floatPtr(v dataset.Value) *float64 {
	f, ok := v.Float()
	if !ok {
		return nil
	}
	return &f
}

func timePtr(v dataset.Value) *time.Time {
	t, ok := v.Time()
	if !ok {
		return nil
	}
	return &t
}

func textValue(s string) dataset.Value {
	if s == "" {
		return dataset.Null()
	}
	return dataset.Str(s)
}

func dateValue(t *time.Time) dataset.Value {
	if t == nil {
		return dataset.Null()
	}
	return dataset.Date(*t)
}
