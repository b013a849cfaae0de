package course

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/aicanvas/core"
	"github.com/trezcool/aicanvas/core/user"
)

var (
	// errors
	ErrNotFound  = errors.New("course not found")
	ErrForbidden = errors.New("only professors can create courses")
)

type (
	Repository interface {
		CreateCourse(ctx context.Context, c Course, exec ...core.DBExecutor) (Course, error)
		GetCourse(ctx context.Context, id string, exec ...core.DBExecutor) (Course, error)
		// QueryCourses returns the courses matching the filter, newest first.
		QueryCourses(ctx context.Context, filter QueryFilter, exec ...core.DBExecutor) ([]Course, error)
	}

	EnrollmentRepository interface {
		// CreateEnrollment is a no-op when the student is already enrolled.
		CreateEnrollment(ctx context.Context, e Enrollment, exec ...core.DBExecutor) error
		IsEnrolled(ctx context.Context, courseID, studentID string, exec ...core.DBExecutor) (bool, error)
		QueryEnrollments(ctx context.Context, courseID string, exec ...core.DBExecutor) ([]Enrollment, error)
	}

	MaterialRepository interface {
		CreateMaterial(ctx context.Context, m Material, exec ...core.DBExecutor) (Material, error)
		QueryMaterials(ctx context.Context, courseID string, exec ...core.DBExecutor) ([]Material, error)
	}

	// FileStore persists uploaded files and returns the path they can be read back from.
	FileStore interface {
		Save(ctx context.Context, key string, r io.Reader) (string, error)
		Delete(ctx context.Context, key string) error
	}

	// TextExtractor extracts the plain text of an uploaded document.
	TextExtractor interface {
		ExtractText(filename string, content []byte) (string, error)
	}

	Service struct {
		db           core.DB
		repo         Repository
		enrollRepo   EnrollmentRepository
		materialRepo MaterialRepository
		usrSvc       *user.Service
		files        FileStore
		extractor    TextExtractor
		logger       core.Logger
	}
)

func NewService(
	db core.DB,
	repo Repository,
	enrollRepo EnrollmentRepository,
	materialRepo MaterialRepository,
	usrSvc *user.Service,
	files FileStore,
	extractor TextExtractor,
	logger core.Logger,
) *Service {
	return &Service{
		db:           db,
		repo:         repo,
		enrollRepo:   enrollRepo,
		materialRepo: materialRepo,
		usrSvc:       usrSvc,
		files:        files,
		extractor:    extractor,
		logger:       logger,
	}
}

// Create creates a course owned by `prof` and enrolls every student email, creating missing students.
// The course, the new students and the enrollments are written in a single transaction.
func (svc *Service) Create(ctx context.Context, prof user.User, nc NewCourse) (Course, error) {
	if !prof.IsProfessor() {
		return Course{}, ErrForbidden
	}
	nc.Clean()

	crs := Course{
		ID:          uuid.New().String(),
		Name:        nc.Name,
		ProfessorID: prof.ID,
		CreatedAt:   time.Now().UTC(),
	}

	var syllabusKey string
	if nc.Syllabus != nil && len(nc.Syllabus.Content) > 0 {
		var err error
		if syllabusKey, err = svc.attachSyllabus(ctx, &crs, *nc.Syllabus); err != nil {
			return Course{}, err
		}
	}

	err := core.RunInTx(ctx, svc.db, func(exec core.DBExecutor) error {
		var err error
		if crs, err = svc.repo.CreateCourse(ctx, crs, exec); err != nil {
			return errors.Wrap(err, "creating course")
		}
		for _, email := range nc.StudentEmails {
			student, created, err := svc.usrSvc.GetOrCreate(ctx, email, user.RoleStudent, exec)
			if err != nil {
				return errors.Wrapf(err, "getting or creating student %s", email)
			}
			if created {
				svc.logger.Info(fmt.Sprintf("student created at enrollment: %s", student.Email))
			}
			enrollment := Enrollment{CourseID: crs.ID, StudentID: student.ID, EnrolledAt: crs.CreatedAt}
			if err = svc.enrollRepo.CreateEnrollment(ctx, enrollment, exec); err != nil {
				return errors.Wrapf(err, "enrolling %s", email)
			}
		}
		return nil
	})
	if err != nil {
		if syllabusKey != "" {
			svc.deleteFile(ctx, syllabusKey)
		}
		return Course{}, err
	}
	return crs, nil
}

// attachSyllabus stores the syllabus file, extracts its text and returns the file key.
// A syllabus whose text cannot be extracted is still kept; the chat then goes without it.
func (svc *Service) attachSyllabus(ctx context.Context, crs *Course, up Upload) (string, error) {
	key := path.Join(crs.ID, "syllabus"+fileExt(up.Filename, ".pdf"))
	fp, err := svc.files.Save(ctx, key, bytes.NewReader(up.Content))
	if err != nil {
		return "", errors.Wrap(err, "saving syllabus")
	}
	crs.SyllabusPath = null.StringFrom(fp)

	text, err := svc.extractor.ExtractText(up.Filename, up.Content)
	if err != nil {
		svc.logger.Warn(fmt.Sprintf("extracting syllabus text of course %s", crs.ID), err)
		return key, nil
	}
	text = strings.TrimSpace(text)
	crs.SyllabusText = null.NewString(text, text != "")
	return key, nil
}

// deleteFile removes a file whose row was never written.
func (svc *Service) deleteFile(ctx context.Context, key string) {
	if err := svc.files.Delete(context.WithoutCancel(ctx), key); err != nil {
		svc.logger.Error(fmt.Sprintf("deleting orphaned file %s", key), err)
	}
}

func (svc *Service) GetByID(ctx context.Context, id string) (Course, error) {
	return svc.repo.GetCourse(ctx, id)
}

// ListForUser lists the courses a professor owns or a student is enrolled in, newest first.
func (svc *Service) ListForUser(ctx context.Context, usr user.User) ([]Course, error) {
	var filter QueryFilter
	switch usr.Role {
	case user.RoleProfessor:
		filter.ProfessorID = usr.ID
	case user.RoleStudent:
		filter.StudentID = usr.ID
	default:
		return []Course{}, nil
	}
	return svc.repo.QueryCourses(ctx, filter)
}

// HasAccess reports whether `usr` may see and chat about a course:
// professors own it, students are enrolled in it.
func (svc *Service) HasAccess(ctx context.Context, usr user.User, courseID string) (bool, error) {
	switch usr.Role {
	case user.RoleProfessor:
		crs, err := svc.repo.GetCourse(ctx, courseID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return false, nil
			}
			return false, errors.Wrap(err, "getting course")
		}
		return crs.ProfessorID == usr.ID, nil
	case user.RoleStudent:
		ok, err := svc.enrollRepo.IsEnrolled(ctx, courseID, usr.ID)
		return ok, errors.Wrap(err, "checking enrollment")
	}
	return false, nil
}

// Get returns a course and its materials. Courses `usr` has no access to are reported as not found.
func (svc *Service) Get(ctx context.Context, usr user.User, courseID string) (Detail, error) {
	ok, err := svc.HasAccess(ctx, usr, courseID)
	if err != nil {
		return Detail{}, err
	}
	if !ok {
		return Detail{}, ErrNotFound
	}
	crs, err := svc.repo.GetCourse(ctx, courseID)
	if err != nil {
		return Detail{}, errors.Wrap(err, "getting course")
	}
	materials, err := svc.materialRepo.QueryMaterials(ctx, courseID)
	if err != nil {
		return Detail{}, errors.Wrap(err, "querying materials")
	}
	detail := Detail{Course: crs, HasSyllabus: crs.HasSyllabus(), Materials: materials}
	if crs.ProfessorID == usr.ID {
		if detail.Students, err = svc.Students(ctx, courseID); err != nil {
			return Detail{}, err
		}
	}
	return detail, nil
}

// Students lists the enrollments of a course, in enrollment order.
func (svc *Service) Students(ctx context.Context, courseID string) ([]Enrollment, error) {
	enrollments, err := svc.enrollRepo.QueryEnrollments(ctx, courseID)
	return enrollments, errors.Wrap(err, "querying enrollments")
}

// AddMaterial stores a material file and attaches it to a course.
func (svc *Service) AddMaterial(ctx context.Context, courseID, name string, up Upload) (Material, error) {
	if _, err := svc.repo.GetCourse(ctx, courseID); err != nil {
		return Material{}, err
	}
	name = core.CleanString(name)
	if name == "" {
		name = up.Filename
	}

	id := uuid.New().String()
	key := path.Join(courseID, "materials", id+fileExt(up.Filename, ""))
	fp, err := svc.files.Save(ctx, key, bytes.NewReader(up.Content))
	if err != nil {
		return Material{}, errors.Wrap(err, "saving material")
	}

	m := Material{
		ID:         id,
		CourseID:   courseID,
		Name:       name,
		FilePath:   fp,
		UploadedAt: time.Now().UTC(),
	}
	if m, err = svc.materialRepo.CreateMaterial(ctx, m); err != nil {
		svc.deleteFile(ctx, key)
		return Material{}, errors.Wrap(err, "creating material")
	}
	return m, nil
}

// MaterialNames returns the names of a course's materials, oldest first.
func (svc *Service) MaterialNames(ctx context.Context, courseID string) ([]string, error) {
	materials, err := svc.materialRepo.QueryMaterials(ctx, courseID)
	if err != nil {
		return nil, errors.Wrap(err, "querying materials")
	}
	names := make([]string, 0, len(materials))
	for _, m := range materials {
		names = append(names, m.Name)
	}
	return names, nil
}

func fileExt(filename, fallback string) string {
	if ext := strings.ToLower(path.Ext(filename)); ext != "" {
		return ext
	}
	return fallback
}
