package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/aicanvas/core"
	"github.com/trezcool/aicanvas/core/course"
)

const courseColumns = "c.id, c.name, c.professor_id, c.syllabus_path, c.syllabus_text, c.created_at"

type courseRow struct {
	ID           string      `db:"id"`
	Name         string      `db:"name"`
	ProfessorID  string      `db:"professor_id"`
	SyllabusPath null.String `db:"syllabus_path"`
	SyllabusText null.String `db:"syllabus_text"`
	CreatedAt    int64       `db:"created_at"`
}

func packCourse(c course.Course) courseRow {
	return courseRow{
		ID:           c.ID,
		Name:         c.Name,
		ProfessorID:  c.ProfessorID,
		SyllabusPath: c.SyllabusPath,
		SyllabusText: c.SyllabusText,
		CreatedAt:    toUnix(c.CreatedAt),
	}
}

func (r courseRow) unpack() course.Course {
	return course.Course{
		ID:           r.ID,
		Name:         r.Name,
		ProfessorID:  r.ProfessorID,
		SyllabusPath: r.SyllabusPath,
		SyllabusText: r.SyllabusText,
		CreatedAt:    fromUnix(r.CreatedAt),
	}
}

type courseRepository struct {
	baseRepository
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(exec core.DBExecutor) *courseRepository {
	return &courseRepository{baseRepository{exec: exec}}
}

func (repo courseRepository) CreateCourse(ctx context.Context, c course.Course, exec ...core.DBExecutor) (course.Course, error) {
	row := packCourse(c)
	_, err := sqlx.NamedExecContext(ctx, repo.getExec(exec), `
		INSERT INTO courses (id, name, professor_id, syllabus_path, syllabus_text, created_at)
		VALUES (:id, :name, :professor_id, :syllabus_path, :syllabus_text, :created_at)`, row)
	if err != nil {
		return course.Course{}, errors.Wrap(err, "inserting course")
	}
	return row.unpack(), nil
}

func (repo courseRepository) GetCourse(ctx context.Context, id string, exec ...core.DBExecutor) (course.Course, error) {
	var row courseRow
	err := repo.getExec(exec).GetContext(ctx, &row, "SELECT "+courseColumns+" FROM courses c WHERE c.id = ?", id)
	if err != nil {
		return course.Course{}, trapNoRowsErr(err, course.ErrNotFound, "finding course")
	}
	return row.unpack(), nil
}

func (repo courseRepository) QueryCourses(ctx context.Context, filter course.QueryFilter, exec ...core.DBExecutor) ([]course.Course, error) {
	var (
		query = "SELECT " + courseColumns + " FROM courses c"
		args  []interface{}
	)
	switch {
	case filter.ProfessorID != "":
		query += " WHERE c.professor_id = ?"
		args = append(args, filter.ProfessorID)
	case filter.StudentID != "":
		query += " JOIN course_enrollments e ON e.course_id = c.id WHERE e.student_id = ?"
		args = append(args, filter.StudentID)
	}
	query += " ORDER BY c.created_at DESC, c.rowid DESC"

	var rows []courseRow
	if err := repo.getExec(exec).SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "selecting courses")
	}
	courses := make([]course.Course, 0, len(rows))
	for _, r := range rows {
		courses = append(courses, r.unpack())
	}
	return courses, nil
}

type enrollmentRow struct {
	CourseID     string `db:"course_id"`
	StudentID    string `db:"student_id"`
	StudentEmail string `db:"student_email"`
	EnrolledAt   int64  `db:"enrolled_at"`
}

type enrollmentRepository struct {
	baseRepository
}

var _ course.EnrollmentRepository = (*enrollmentRepository)(nil) // interface compliance check

func NewEnrollmentRepository(exec core.DBExecutor) *enrollmentRepository {
	return &enrollmentRepository{baseRepository{exec: exec}}
}

func (repo enrollmentRepository) CreateEnrollment(ctx context.Context, e course.Enrollment, exec ...core.DBExecutor) error {
	_, err := repo.getExec(exec).ExecContext(ctx,
		"INSERT OR IGNORE INTO course_enrollments (course_id, student_id, enrolled_at) VALUES (?, ?, ?)",
		e.CourseID, e.StudentID, toUnix(e.EnrolledAt),
	)
	return errors.Wrap(err, "inserting enrollment")
}

func (repo enrollmentRepository) IsEnrolled(ctx context.Context, courseID, studentID string, exec ...core.DBExecutor) (bool, error) {
	var n int
	err := repo.getExec(exec).GetContext(ctx, &n,
		"SELECT COUNT(*) FROM course_enrollments WHERE course_id = ? AND student_id = ?", courseID, studentID)
	if err != nil {
		return false, errors.Wrap(err, "counting enrollments")
	}
	return n > 0, nil
}

func (repo enrollmentRepository) QueryEnrollments(ctx context.Context, courseID string, exec ...core.DBExecutor) ([]course.Enrollment, error) {
	var rows []enrollmentRow
	err := repo.getExec(exec).SelectContext(ctx, &rows, `
		SELECT e.course_id, e.student_id, u.email AS student_email, e.enrolled_at
		FROM course_enrollments e
		JOIN users u ON u.id = e.student_id
		WHERE e.course_id = ?
		ORDER BY e.enrolled_at, e.rowid`, courseID)
	if err != nil {
		return nil, errors.Wrap(err, "selecting enrollments")
	}
	enrollments := make([]course.Enrollment, 0, len(rows))
	for _, r := range rows {
		enrollments = append(enrollments, course.Enrollment{
			CourseID:     r.CourseID,
			StudentID:    r.StudentID,
			StudentEmail: r.StudentEmail,
			EnrolledAt:   fromUnix(r.EnrolledAt),
		})
	}
	return enrollments, nil
}
