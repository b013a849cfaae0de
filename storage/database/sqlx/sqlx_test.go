package sqlxrepos

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/aicanvas/core"
	"github.com/trezcool/aicanvas/core/auth"
	"github.com/trezcool/aicanvas/core/chat"
	"github.com/trezcool/aicanvas/core/course"
	"github.com/trezcool/aicanvas/core/user"
	testutil "github.com/trezcool/aicanvas/tests"
)

func TestUserRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(testutil.PrepareDB(t))

	usr := testutil.CreateUser(t, repo, "p@x.com", user.RoleProfessor)
	assert.NotEmpty(t, usr.ID)

	got, err := repo.GetUser(ctx, user.GetFilter{Email: "p@x.com"})
	require.NoError(t, err)
	assert.Equal(t, usr.ID, got.ID)
	assert.Equal(t, user.RoleProfessor, got.Role)
	assert.False(t, got.Name.Valid)

	_, err = repo.CreateUser(ctx, user.User{Email: "p@x.com", Role: user.RoleStudent})
	assert.ErrorIs(t, err, user.ErrEmailExists)

	_, err = repo.GetUser(ctx, user.GetFilter{ID: "missing"})
	assert.ErrorIs(t, err, user.ErrNotFound)
	_, err = repo.GetUser(ctx, user.GetFilter{})
	assert.ErrorIs(t, err, user.ErrNotFound)

	got.Name.SetValid("Prof")
	got, err = repo.UpdateUser(ctx, got)
	require.NoError(t, err)
	assert.Equal(t, "Prof", got.Name.String)

	_, err = repo.UpdateUser(ctx, user.User{ID: "missing"})
	assert.ErrorIs(t, err, user.ErrNotFound)
}

func TestMagicLinkRepository_ConsumeMagicLink(t *testing.T) {
	ctx := context.Background()
	db := testutil.PrepareDB(t)
	usr := testutil.CreateUser(t, NewUserRepository(db), "s@x.com", user.RoleStudent)
	repo := NewMagicLinkRepository(db)

	now := time.Now().UTC()
	require.NoError(t, repo.CreateMagicLink(ctx, auth.MagicLink{Token: "valid", UserID: usr.ID, ExpiresAt: now.Add(time.Hour), CreatedAt: now}))
	require.NoError(t, repo.CreateMagicLink(ctx, auth.MagicLink{Token: "expired", UserID: usr.ID, ExpiresAt: now.Add(-time.Second), CreatedAt: now}))

	userID, err := repo.ConsumeMagicLink(ctx, "valid", now)
	require.NoError(t, err)
	assert.Equal(t, usr.ID, userID)

	_, err = repo.ConsumeMagicLink(ctx, "valid", now)
	assert.ErrorIs(t, err, auth.ErrInvalidToken, "consumed twice")

	_, err = repo.ConsumeMagicLink(ctx, "expired", now)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
	link, err := repo.GetMagicLink(ctx, "expired")
	require.NoError(t, err)
	assert.False(t, link.Used, "expired links are left untouched")

	_, err = repo.ConsumeMagicLink(ctx, "unknown", now)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)

	link, err = repo.GetMagicLink(ctx, "valid")
	require.NoError(t, err)
	assert.True(t, link.Used)
	assert.True(t, link.ExpiresAt.Equal(now.Add(time.Hour)))
}

func TestMagicLinkRepository_ConcurrentConsume(t *testing.T) {
	ctx := context.Background()
	db := testutil.PrepareDB(t)
	repo := NewMagicLinkRepository(db)
	usr := testutil.CreateUser(t, NewUserRepository(db), "s@x.com", user.RoleStudent)

	now := time.Now().UTC()
	require.NoError(t, repo.CreateMagicLink(ctx, auth.MagicLink{Token: "tok", UserID: usr.ID, ExpiresAt: now.Add(time.Hour), CreatedAt: now}))

	const workers = 10
	var (
		wg        sync.WaitGroup
		successes int32
		failures  int32
	)
	start := make(chan struct{})
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			userID, err := repo.ConsumeMagicLink(ctx, "tok", now)
			switch {
			case err == nil && userID == usr.ID:
				atomic.AddInt32(&successes, 1)
			case errors.Is(err, auth.ErrInvalidToken):
				atomic.AddInt32(&failures, 1)
			default:
				t.Errorf("ConsumeMagicLink() = %q, %v", userID, err)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.EqualValues(t, 1, successes, "exactly one session")
	assert.EqualValues(t, workers-1, failures)
}

func TestCourseRepository_QueryCourses(t *testing.T) {
	ctx := context.Background()
	db := testutil.PrepareDB(t)
	usrRepo := NewUserRepository(db)
	repo := NewCourseRepository(db)
	enrollRepo := NewEnrollmentRepository(db)

	prof := testutil.CreateUser(t, usrRepo, "p@x.com", user.RoleProfessor)
	other := testutil.CreateUser(t, usrRepo, "q@x.com", user.RoleProfessor)
	student := testutil.CreateUser(t, usrRepo, "s@x.com", user.RoleStudent)

	now := time.Now().UTC()
	c1 := testutil.CreateCourse(t, repo, "Algorithms", prof.ID, now.Add(-2*time.Hour))
	c2 := testutil.CreateCourse(t, repo, "Compilers", prof.ID, now.Add(-time.Hour))
	c3 := testutil.CreateCourse(t, repo, "Databases", other.ID, now)

	for _, c := range []course.Course{c1, c3} {
		require.NoError(t, enrollRepo.CreateEnrollment(ctx, course.Enrollment{CourseID: c.ID, StudentID: student.ID, EnrolledAt: now}))
	}
	// enrolling twice is a no-op
	require.NoError(t, enrollRepo.CreateEnrollment(ctx, course.Enrollment{CourseID: c1.ID, StudentID: student.ID, EnrolledAt: now}))

	courses, err := repo.QueryCourses(ctx, course.QueryFilter{ProfessorID: prof.ID})
	require.NoError(t, err)
	assert.Equal(t, []string{c2.ID, c1.ID}, courseIDs(courses))

	courses, err = repo.QueryCourses(ctx, course.QueryFilter{StudentID: student.ID})
	require.NoError(t, err)
	assert.Equal(t, []string{c3.ID, c1.ID}, courseIDs(courses))

	ok, err := enrollRepo.IsEnrolled(ctx, c2.ID, student.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	enrollments, err := enrollRepo.QueryEnrollments(ctx, c1.ID)
	require.NoError(t, err)
	require.Len(t, enrollments, 1)
	assert.Equal(t, student.ID, enrollments[0].StudentID)
	assert.Equal(t, "s@x.com", enrollments[0].StudentEmail)

	_, err = repo.GetCourse(ctx, "missing")
	assert.ErrorIs(t, err, course.ErrNotFound)
}

func TestMaterialRepository(t *testing.T) {
	ctx := context.Background()
	db := testutil.PrepareDB(t)
	prof := testutil.CreateUser(t, NewUserRepository(db), "p@x.com", user.RoleProfessor)
	crs := testutil.CreateCourse(t, NewCourseRepository(db), "Algorithms", prof.ID)
	repo := NewMaterialRepository(db)

	now := time.Now().UTC()
	for _, name := range []string{"Week 1", "Week 2"} {
		_, err := repo.CreateMaterial(ctx, course.Material{ID: uuid.New().String(), CourseID: crs.ID, Name: name, FilePath: "x", UploadedAt: now})
		require.NoError(t, err)
	}

	materials, err := repo.QueryMaterials(ctx, crs.ID)
	require.NoError(t, err)
	require.Len(t, materials, 2)
	assert.Equal(t, "Week 1", materials[0].Name)
	assert.Equal(t, "Week 2", materials[1].Name)
}

func TestChatRepository_QueryRecentMessages(t *testing.T) {
	ctx := context.Background()
	db := testutil.PrepareDB(t)
	usrRepo := NewUserRepository(db)
	prof := testutil.CreateUser(t, usrRepo, "p@x.com", user.RoleProfessor)
	s1 := testutil.CreateUser(t, usrRepo, "s1@x.com", user.RoleStudent)
	s2 := testutil.CreateUser(t, usrRepo, "s2@x.com", user.RoleStudent)
	crs := testutil.CreateCourse(t, NewCourseRepository(db), "Algorithms", prof.ID)
	repo := NewChatRepository(db)

	base := time.Now().UTC()
	var msgs []chat.Message
	for i := 0; i < 12; i++ {
		// user and assistant turns of an exchange share a timestamp
		at := base.Add(time.Duration(i) * time.Second)
		msgs = append(msgs,
			chat.Message{ID: uuid.New().String(), CourseID: crs.ID, UserID: s1.ID, Role: chat.RoleUser, Content: "q", CreatedAt: at},
			chat.Message{ID: uuid.New().String(), CourseID: crs.ID, UserID: s1.ID, Role: chat.RoleAssistant, Content: "a", CreatedAt: at},
		)
	}
	err := core.RunInTx(ctx, db, func(exec core.DBExecutor) error {
		return repo.CreateMessages(ctx, msgs, exec)
	})
	require.NoError(t, err)

	recent, err := repo.QueryRecentMessages(ctx, crs.ID, s1.ID, chat.HistoryLimit)
	require.NoError(t, err)
	require.Len(t, recent, chat.HistoryLimit)
	assert.Equal(t, msgs[4].ID, recent[0].ID)
	assert.Equal(t, msgs[len(msgs)-1].ID, recent[len(recent)-1].ID)
	for i, m := range recent {
		if i%2 == 0 {
			assert.Equal(t, chat.RoleUser, m.Role)
		} else {
			assert.Equal(t, chat.RoleAssistant, m.Role)
		}
	}

	all, err := repo.QueryRecentMessages(ctx, crs.ID, s1.ID, 0)
	require.NoError(t, err)
	assert.Len(t, all, len(msgs))

	none, err := repo.QueryRecentMessages(ctx, crs.ID, s2.ID, chat.HistoryLimit)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func courseIDs(courses []course.Course) []string {
	ids := make([]string, 0, len(courses))
	for _, c := range courses {
		ids = append(ids, c.ID)
	}
	return ids
}
