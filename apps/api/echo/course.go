package echoapi

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/aicanvas/core"
	"github.com/trezcool/aicanvas/core/course"
)

var errUploadTooLarge = errors.New("upload too large")

type courseApi struct {
	conf     *core.Config
	svc      *course.Service
	validate *validator.Validate
}

func registerCourseAPI(g *echo.Group, session echo.MiddlewareFunc, deps ServerDeps) {
	api := courseApi{
		conf:     deps.Conf,
		svc:      deps.CourseSvc,
		validate: deps.Validate,
	}

	cg := g.Group("/courses", session)
	cg.POST("", api.create)
	cg.GET("", api.query)
	cg.GET("/:id", api.retrieve)
}

type (
	CreateCourseResponse struct {
		Success  bool   `json:"success"`
		CourseID string `json:"courseId"`
	}

	CourseListItem struct {
		ID        string    `json:"id"`
		Name      string    `json:"name"`
		CreatedAt time.Time `json:"created_at"`
	}

	CourseListResponse struct {
		Courses []CourseListItem `json:"courses"`
	}
)

func (api *courseApi) create(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	if !usr.IsProfessor() {
		return errHttpForbidden
	}

	data := course.NewCourse{
		Name:          ctx.FormValue("name"),
		StudentEmails: core.SplitList(ctx.FormValue("studentEmails"), ",", true /* lower */),
	}
	if data.Syllabus, err = api.readUpload(ctx, "syllabus"); err != nil {
		return err
	}
	data.Clean()
	if err = api.validate.Struct(data); err != nil {
		return err
	}

	crs, err := api.svc.Create(ctx.Request().Context(), usr, data)
	if err != nil {
		if errors.Is(err, course.ErrForbidden) {
			return err
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to create course").SetInternal(err)
	}
	return ctx.JSON(http.StatusOK, CreateCourseResponse{Success: true, CourseID: crs.ID})
}

// readUpload reads an optional multipart file. A missing file yields nil.
func (api *courseApi) readUpload(ctx echo.Context, field string) (*course.Upload, error) {
	fh, err := ctx.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "reading %s file", field)
	}
	if fh.Size > api.conf.Uploads.MaxSize {
		return nil, core.NewValidationError(errUploadTooLarge, core.FieldError{
			Field: field,
			Error: fmt.Sprintf("file must not exceed %d bytes", api.conf.Uploads.MaxSize),
		})
	}
	content, err := readMultipartFile(fh)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s file", field)
	}
	return &course.Upload{Filename: fh.Filename, Content: content}, nil
}

func readMultipartFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func (api *courseApi) query(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	courses, err := api.svc.ListForUser(ctx.Request().Context(), usr)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to get courses").SetInternal(err)
	}

	resp := CourseListResponse{Courses: make([]CourseListItem, 0, len(courses))}
	for _, c := range courses {
		resp.Courses = append(resp.Courses, CourseListItem{ID: c.ID, Name: c.Name, CreatedAt: c.CreatedAt})
	}
	return ctx.JSON(http.StatusOK, resp)
}

func (api *courseApi) retrieve(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	detail, err := api.svc.Get(ctx.Request().Context(), usr, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting course")
	}
	return ctx.JSON(http.StatusOK, detail)
}
