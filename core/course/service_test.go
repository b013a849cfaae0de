package course_test

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/aicanvas/core"
	"github.com/trezcool/aicanvas/core/course"
	"github.com/trezcool/aicanvas/core/user"
	sqlxrepos "github.com/trezcool/aicanvas/storage/database/sqlx"
	testutil "github.com/trezcool/aicanvas/tests"
)

type fileStoreMock struct {
	saved map[string][]byte
}

func (s *fileStoreMock) Delete(_ context.Context, key string) error {
	delete(s.saved, key)
	return nil
}

func (s *fileStoreMock) Save(_ context.Context, key string, r io.Reader) (string, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	s.saved[key] = b
	return "mem://" + key, nil
}

type extractorMock struct {
	err error
}

func (e extractorMock) ExtractText(_ string, content []byte) (string, error) {
	return string(content), e.err
}

type fixture struct {
	db     *sqlx.DB
	svc    *course.Service
	usrSvc *user.Service
	files  *fileStoreMock
}

func setup(t *testing.T, extractErr ...error) fixture {
	db := testutil.PrepareDB(t)
	usrSvc := user.NewService(sqlxrepos.NewUserRepository(db))
	files := &fileStoreMock{saved: make(map[string][]byte)}
	var ext extractorMock
	if len(extractErr) > 0 {
		ext.err = extractErr[0]
	}
	svc := course.NewService(
		db,
		sqlxrepos.NewCourseRepository(db),
		sqlxrepos.NewEnrollmentRepository(db),
		sqlxrepos.NewMaterialRepository(db),
		usrSvc,
		files,
		ext,
		testutil.Logger{},
	)
	return fixture{db: db, svc: svc, usrSvc: usrSvc, files: files}
}

func (f fixture) createUser(t *testing.T, email, role string) user.User {
	usr, err := f.usrSvc.Create(context.Background(), user.NewUser{Email: email, Role: role})
	require.NoError(t, err)
	return usr
}

func count(t *testing.T, db *sqlx.DB, table string) int {
	var n int
	require.NoError(t, db.Get(&n, "SELECT COUNT(*) FROM "+table))
	return n
}

func TestService_CreateForbiddenForStudents(t *testing.T) {
	f := setup(t)
	student := f.createUser(t, "s@x.com", user.RoleStudent)

	_, err := f.svc.Create(context.Background(), student, course.NewCourse{Name: "Algorithms"})
	assert.ErrorIs(t, err, course.ErrForbidden)
	assert.Equal(t, 0, count(t, f.db, "courses"))
}

func TestService_CreateEnrollsStudents(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	prof := f.createUser(t, "p@x.com", user.RoleProfessor)
	existing := f.createUser(t, "old@x.com", user.RoleStudent)

	crs, err := f.svc.Create(ctx, prof, course.NewCourse{
		Name:          " Algorithms ",
		StudentEmails: []string{"New@x.com", "old@x.com", "new@x.com", " "},
		Syllabus:      &course.Upload{Filename: "syllabus.PDF", Content: []byte("Sorting, graphs")},
	})
	require.NoError(t, err)
	assert.Equal(t, "Algorithms", crs.Name)
	assert.Equal(t, prof.ID, crs.ProfessorID)
	assert.Equal(t, "mem://"+crs.ID+"/syllabus.pdf", crs.SyllabusPath.String)
	assert.Equal(t, "Sorting, graphs", crs.SyllabusText.String)

	assert.Equal(t, 3, count(t, f.db, "users"), "exactly one new student")
	enrollments, err := f.svc.Students(ctx, crs.ID)
	require.NoError(t, err)
	require.Len(t, enrollments, 2)
	assert.ElementsMatch(t, []string{"new@x.com", "old@x.com"},
		[]string{enrollments[0].StudentEmail, enrollments[1].StudentEmail})

	detail, err := f.svc.Get(ctx, prof, crs.ID)
	require.NoError(t, err)
	assert.Equal(t, enrollments, detail.Students)
	detail, err = f.svc.Get(ctx, existing, crs.ID)
	require.NoError(t, err)
	assert.Nil(t, detail.Students)

	newStudent, err := f.usrSvc.GetByEmail(ctx, "new@x.com")
	require.NoError(t, err)
	assert.Equal(t, user.RoleStudent, newStudent.Role)

	for _, s := range []user.User{existing, newStudent} {
		ok, err := f.svc.HasAccess(ctx, s, crs.ID)
		require.NoError(t, err)
		assert.True(t, ok, s.Email)
	}
	ok, err := f.svc.HasAccess(ctx, prof, crs.ID)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestService_CreateKeepsSyllabusWithoutText(t *testing.T) {
	f := setup(t, errors.New("unreadable"))
	prof := f.createUser(t, "p@x.com", user.RoleProfessor)

	crs, err := f.svc.Create(context.Background(), prof, course.NewCourse{
		Name:     "Algorithms",
		Syllabus: &course.Upload{Filename: "scan", Content: []byte{0x1}},
	})
	require.NoError(t, err)
	assert.True(t, crs.HasSyllabus())
	assert.False(t, crs.SyllabusText.Valid)
	assert.Contains(t, f.files.saved, crs.ID+"/syllabus.pdf")
}

type failingEnrollments struct {
	course.EnrollmentRepository
	failAfter int
}

func (r *failingEnrollments) CreateEnrollment(ctx context.Context, e course.Enrollment, exec ...core.DBExecutor) error {
	if r.failAfter == 0 {
		return errors.New("disk full")
	}
	r.failAfter--
	return r.EnrollmentRepository.CreateEnrollment(ctx, e, exec...)
}

func TestService_CreateRollsBackOnFailure(t *testing.T) {
	f := setup(t)
	prof := f.createUser(t, "p@x.com", user.RoleProfessor)
	svc := course.NewService(
		f.db,
		sqlxrepos.NewCourseRepository(f.db),
		&failingEnrollments{EnrollmentRepository: sqlxrepos.NewEnrollmentRepository(f.db), failAfter: 1},
		sqlxrepos.NewMaterialRepository(f.db),
		f.usrSvc,
		f.files,
		extractorMock{},
		testutil.Logger{},
	)

	_, err := svc.Create(context.Background(), prof, course.NewCourse{
		Name:          "Algorithms",
		StudentEmails: []string{"s1@x.com", "s2@x.com"},
		Syllabus:      &course.Upload{Filename: "syllabus.pdf", Content: []byte("Sorting")},
	})
	assert.Error(t, err)
	assert.Equal(t, 0, count(t, f.db, "courses"))
	assert.Equal(t, 0, count(t, f.db, "course_enrollments"))
	assert.Equal(t, 1, count(t, f.db, "users"), "no student left behind")
	assert.Empty(t, f.files.saved, "syllabus file removed")
}

func TestService_ListForUser(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	p1 := f.createUser(t, "p1@x.com", user.RoleProfessor)
	p2 := f.createUser(t, "p2@x.com", user.RoleProfessor)

	c1, err := f.svc.Create(ctx, p1, course.NewCourse{Name: "Algorithms", StudentEmails: []string{"s@x.com"}})
	require.NoError(t, err)
	c2, err := f.svc.Create(ctx, p1, course.NewCourse{Name: "Compilers"})
	require.NoError(t, err)
	c3, err := f.svc.Create(ctx, p2, course.NewCourse{Name: "Databases", StudentEmails: []string{"s@x.com"}})
	require.NoError(t, err)

	courses, err := f.svc.ListForUser(ctx, p1)
	require.NoError(t, err)
	require.Len(t, courses, 2)
	assert.Equal(t, c2.ID, courses[0].ID)
	assert.Equal(t, c1.ID, courses[1].ID)

	student, err := f.usrSvc.GetByEmail(ctx, "s@x.com")
	require.NoError(t, err)
	courses, err = f.svc.ListForUser(ctx, student)
	require.NoError(t, err)
	require.Len(t, courses, 2)
	assert.Equal(t, c3.ID, courses[0].ID)
	assert.Equal(t, c1.ID, courses[1].ID)

	ok, err := f.svc.HasAccess(ctx, p2, c1.ID)
	require.NoError(t, err)
	assert.False(t, ok, "professors only see their own courses")

	_, err = f.svc.Get(ctx, p2, c1.ID)
	assert.ErrorIs(t, err, course.ErrNotFound)
}

func TestService_AddMaterial(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	prof := f.createUser(t, "p@x.com", user.RoleProfessor)
	crs, err := f.svc.Create(ctx, prof, course.NewCourse{Name: "Algorithms"})
	require.NoError(t, err)

	m, err := f.svc.AddMaterial(ctx, crs.ID, "", course.Upload{Filename: "week1.pdf", Content: []byte("x")})
	require.NoError(t, err)
	assert.Equal(t, "week1.pdf", m.Name)
	_, err = f.svc.AddMaterial(ctx, crs.ID, "Week 2 slides", course.Upload{Filename: "w2.pptx", Content: []byte("y")})
	require.NoError(t, err)

	names, err := f.svc.MaterialNames(ctx, crs.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"week1.pdf", "Week 2 slides"}, names)

	detail, err := f.svc.Get(ctx, prof, crs.ID)
	require.NoError(t, err)
	assert.False(t, detail.HasSyllabus)
	assert.Len(t, detail.Materials, 2)

	_, err = f.svc.AddMaterial(ctx, "missing", "x", course.Upload{Filename: "x.pdf"})
	assert.ErrorIs(t, err, course.ErrNotFound)
}

type failingMaterials struct {
	course.MaterialRepository
}

func (failingMaterials) CreateMaterial(context.Context, course.Material, ...core.DBExecutor) (course.Material, error) {
	return course.Material{}, errors.New("disk full")
}

func TestService_AddMaterialRemovesFileOnFailure(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	prof := f.createUser(t, "p@x.com", user.RoleProfessor)
	crs, err := f.svc.Create(ctx, prof, course.NewCourse{Name: "Algorithms"})
	require.NoError(t, err)

	svc := course.NewService(
		f.db,
		sqlxrepos.NewCourseRepository(f.db),
		sqlxrepos.NewEnrollmentRepository(f.db),
		failingMaterials{MaterialRepository: sqlxrepos.NewMaterialRepository(f.db)},
		f.usrSvc,
		f.files,
		extractorMock{},
		testutil.Logger{},
	)
	_, err = svc.AddMaterial(ctx, crs.ID, "Week 1", course.Upload{Filename: "w1.pdf", Content: []byte("x")})
	assert.Error(t, err)
	assert.Empty(t, f.files.saved)
	assert.Equal(t, 0, count(t, f.db, "materials"))
}
