package course

import (
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/aicanvas/core"
)

type Course struct {
	ID           string      `json:"id"`
	Name         string      `json:"name"`
	ProfessorID  string      `json:"professor_id"`
	SyllabusPath null.String `json:"-"`
	SyllabusText null.String `json:"-"`
	CreatedAt    time.Time   `json:"created_at"` // UTC
}

func (c Course) HasSyllabus() bool { return c.SyllabusPath.Valid }

type Enrollment struct {
	CourseID     string    `json:"course_id"`
	StudentID    string    `json:"student_id"`
	StudentEmail string    `json:"student_email"` // read-only
	EnrolledAt   time.Time `json:"enrolled_at"`   // UTC
}

type Material struct {
	ID         string    `json:"id"`
	CourseID   string    `json:"course_id"`
	Name       string    `json:"name"`
	FilePath   string    `json:"-"`
	UploadedAt time.Time `json:"uploaded_at"` // UTC
}

// Upload is a file submitted along with a course or a material.
type Upload struct {
	Filename string
	Content  []byte
}

// NewCourse contains information needed to create a new Course.
type NewCourse struct {
	Name          string   `form:"name" validate:"required,max=200"`
	StudentEmails []string `form:"studentEmails" validate:"emaillist"`
	Syllabus      *Upload  `form:"-"`
}

// Clean trims the name and normalizes the list of student emails.
func (nc *NewCourse) Clean() {
	nc.Name = core.CleanString(nc.Name)
	emails := make([]string, 0, len(nc.StudentEmails))
	seen := make(map[string]struct{}, len(nc.StudentEmails))
	for _, e := range nc.StudentEmails {
		e = core.CleanString(e, true /* lower */)
		if _, ok := seen[e]; e == "" || ok {
			continue
		}
		seen[e] = struct{}{}
		emails = append(emails, e)
	}
	nc.StudentEmails = emails
}

// QueryFilter scopes a course listing to the courses a professor owns or a student is enrolled in.
type QueryFilter struct {
	ProfessorID string
	StudentID   string
}

// Detail is a Course along with its materials. Students is only filled in for the owner.
type Detail struct {
	Course
	HasSyllabus bool         `json:"has_syllabus"`
	Materials   []Material   `json:"materials"`
	Students    []Enrollment `json:"students,omitempty"`
}
