// Package repository is the only place that speaks SQL. Callers see students
// and datasets through the Repository interface.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/mhan0505/student-management-system/internal/dataset"
	"github.com/mhan0505/student-management-system/internal/student"
)

var (
	// ErrNotFound is returned when no student has the requested id.
	ErrNotFound = errors.New("student not found")
	// ErrExists is returned when inserting an id that is already stored.
	ErrExists = errors.New("student already exists")
)

// Repository is the data source collaborator of the analytics and session
// layers.
type Repository interface {
	FetchAll(ctx context.Context) (*dataset.Dataset, error)
	FetchByID(ctx context.Context, id string) (*student.Student, error)
	Insert(ctx context.Context, s *student.Student) error
	InsertMany(ctx context.Context, students []*student.Student) (int, error)
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)
	Majors(ctx context.Context) ([]string, error)
	Close() error
}

const table = "students"

// SQLRepository stores students in sqlite or postgres.
type SQLRepository struct {
	db     *sql.DB
	driver string
	log    *zap.SugaredLogger
}

// Open connects to the database and verifies the connection. driver is
// "sqlite" or "postgres".
func Open(ctx context.Context, driver, dsn string, log *zap.SugaredLogger) (*SQLRepository, error) {
	switch driver {
	case "sqlite", "postgres":
	default:
		return nil, fmt.Errorf("unsupported db driver %q", driver)
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if driver == "sqlite" {
		// one connection keeps :memory: databases shared and avoids SQLITE_BUSY
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	log.Debugw("database connected", "driver", driver)
	return &SQLRepository{db: db, driver: driver, log: log}, nil
}

// Migrate creates the students table when it does not exist.
func (r *SQLRepository) Migrate(ctx context.Context) error {
	floatType := "REAL"
	if r.driver == "postgres" {
		floatType = "DOUBLE PRECISION"
	}
	defs := make([]string, 0, len(student.Columns))
	for _, c := range student.Columns {
		switch c {
		case student.ColID:
			defs = append(defs, c+" TEXT PRIMARY KEY")
		case student.ColGPA, student.ColCredits, student.ColHeightCM, student.ColWeightKG:
			defs = append(defs, c+" "+floatType)
		default:
			defs = append(defs, c+" TEXT")
		}
	}
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS ` + table + ` (` + strings.Join(defs, ", ") + `)`,
		`CREATE INDEX IF NOT EXISTS idx_students_major ON ` + table + `(major)`,
	}
	for _, s := range stmts {
		if _, err := r.db.ExecContext(ctx, s); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func (r *SQLRepository) Close() error { return r.db.Close() }

// rebind rewrites ? placeholders as $n for postgres.
func (r *SQLRepository) rebind(q string) string {
	if r.driver != "postgres" {
		return q
	}
	var b strings.Builder
	n := 0
	for _, ch := range q {
		if ch == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(ch)
	}
	return b.String()
}

var selectAll = `SELECT ` + strings.Join(student.Columns, ", ") + ` FROM ` + table

// FetchAll returns every student as a typed dataset ordered by id.
func (r *SQLRepository) FetchAll(ctx context.Context) (*dataset.Dataset, error) {
	rows, err := r.db.QueryContext(ctx, selectAll+` ORDER BY `+student.ColID)
	if err != nil {
		return nil, fmt.Errorf("fetch all: %w", err)
	}
	defer rows.Close()

	d := dataset.New(student.Columns...)
	for rows.Next() {
		s, err := scanStudent(rows)
		if err != nil {
			return nil, fmt.Errorf("fetch all: %w", err)
		}
		if err := d.Append(s.Values()...); err != nil {
			return nil, err
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("fetch all: %w", err)
	}
	r.log.Debugw("fetched students", "rows", d.Len())
	return d, nil
}

// FetchByID returns one student or ErrNotFound.
func (r *SQLRepository) FetchByID(ctx context.Context, id string) (*student.Student, error) {
	row := r.db.QueryRowContext(ctx, r.rebind(selectAll+` WHERE `+student.ColID+` = ?`), id)
	s, err := scanStudent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", id, err)
	}
	return s, nil
}

func (r *SQLRepository) exists(ctx context.Context, q querier, id string) (bool, error) {
	var n int
	err := q.QueryRowContext(ctx, r.rebind(`SELECT COUNT(*) FROM `+table+` WHERE `+student.ColID+` = ?`), id).Scan(&n)
	return n > 0, err
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

var insertSQL = `INSERT INTO ` + table + ` (` + strings.Join(student.Columns, ", ") + `) VALUES (` +
	strings.TrimRight(strings.Repeat("?, ", len(student.Columns)), ", ") + `)`

func (r *SQLRepository) insert(ctx context.Context, q querier, s *student.Student) error {
	if s.ID == "" {
		return errors.New("insert: empty student id")
	}
	ok, err := r.exists(ctx, q, s.ID)
	if err != nil {
		return fmt.Errorf("insert %s: %w", s.ID, err)
	}
	if ok {
		return fmt.Errorf("%s: %w", s.ID, ErrExists)
	}
	if _, err := q.ExecContext(ctx, r.rebind(insertSQL), insertArgs(s)...); err != nil {
		return fmt.Errorf("insert %s: %w", s.ID, err)
	}
	return nil
}

// Insert stores a new student. An existing id yields ErrExists.
func (r *SQLRepository) Insert(ctx context.Context, s *student.Student) error {
	return r.insert(ctx, r.db, s)
}

// InsertMany stores students in one transaction; any failure rolls back all
// of them.
func (r *SQLRepository) InsertMany(ctx context.Context, students []*student.Student) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()
	for _, s := range students {
		if err := r.insert(ctx, tx, s); err != nil {
			return 0, err
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	r.log.Infow("students imported", "count", len(students))
	return len(students), nil
}

// Delete removes a student or returns ErrNotFound.
func (r *SQLRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, r.rebind(`DELETE FROM `+table+` WHERE `+student.ColID+` = ?`), id)
	if err != nil {
		return fmt.Errorf("delete %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	return nil
}

func (r *SQLRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+table).Scan(&n); err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	return n, nil
}

// Majors lists the distinct non-null majors in ascending order.
func (r *SQLRepository) Majors(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT major FROM `+table+` WHERE major IS NOT NULL ORDER BY major`)
	if err != nil {
		return nil, fmt.Errorf("majors: %w", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var m string
		if err := rows.Scan(&m); err != nil {
			return nil, fmt.Errorf("majors: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanStudent(sc scanner) (*student.Student, error) {
	var (
		id, name, dob, gender, major, class, email, phone, province, enrolled sql.NullString
		gpa, credits, height, weight                                          sql.NullFloat64
	)
	err := sc.Scan(&id, &name, &dob, &gender, &major, &class, &email, &phone,
		&gpa, &credits, &height, &weight, &province, &enrolled)
	if err != nil {
		return nil, err
	}
	return &student.Student{
		ID:             id.String,
		FullName:       name.String,
		DOB:            parseDate(dob),
		Gender:         gender.String,
		Major:          major.String,
		ClassID:        class.String,
		Email:          email.String,
		Phone:          phone.String,
		GPA:            nullFloat(gpa),
		Credits:        nullFloat(credits),
		HeightCM:       nullFloat(height),
		WeightKG:       nullFloat(weight),
		Province:       province.String,
		EnrollmentDate: parseDate(enrolled),
	}, nil
}

// insertArgs returns insert arguments in student.Columns order.
func insertArgs(s *student.Student) []any {
	return []any{
		nullText(s.ID), nullText(s.FullName), formatDate(s.DOB), nullText(s.Gender),
		nullText(s.Major), nullText(s.ClassID), nullText(s.Email), nullText(s.Phone),
		floatArg(s.GPA), floatArg(s.Credits), floatArg(s.HeightCM), floatArg(s.WeightKG),
		nullText(s.Province), formatDate(s.EnrollmentDate),
	}
}

func nullText(s string) sql.NullString { return sql.NullString{String: s, Valid: s != ""} }

func floatArg(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func nullFloat(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	f := n.Float64
	return &f
}

func formatDate(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.Format(dataset.DateLayout), Valid: true}
}

func parseDate(n sql.NullString) *time.Time {
	if !n.Valid {
		return nil
	}
	t, ok := dataset.ParseDate(strings.TrimSpace(n.String))
	if !ok {
		return nil
	}
	return &t
}
