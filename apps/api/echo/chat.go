package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/aicanvas/core/chat"
	"github.com/trezcool/aicanvas/core/course"
)

const msgChatFailed = "Failed to process chat"

type chatApi struct {
	svc       *chat.Service
	courseSvc *course.Service
	validate  *validator.Validate
	metrics   *metrics
}

func registerChatAPI(g *echo.Group, session echo.MiddlewareFunc, deps ServerDeps, m *metrics) {
	api := chatApi{
		svc:       deps.ChatSvc,
		courseSvc: deps.CourseSvc,
		validate:  deps.Validate,
		metrics:   m,
	}

	cg := g.Group("/chat", session)
	cg.POST("", api.send)
	cg.GET("", api.history)
}

type (
	ChatResponse struct {
		Response string `json:"response"`
	}

	ChatHistoryResponse struct {
		Messages []chat.Message `json:"messages"`
	}
)

// checkAccess fails with 403 unless the context user owns or is enrolled in the course.
func (api *chatApi) checkAccess(ctx echo.Context, courseID string) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	ok, err := api.courseSvc.HasAccess(ctx.Request().Context(), usr, courseID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, msgChatFailed).SetInternal(err)
	}
	if !ok {
		return errHttpForbidden
	}
	return nil
}

func (api *chatApi) send(ctx echo.Context) error {
	var data chat.SendRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SendRequest")
	}
	if err := api.validate.Struct(data); err != nil {
		return err
	}
	if err := api.checkAccess(ctx, data.CourseID); err != nil {
		return err
	}

	usr, _ := getContextUser(ctx)
	reply, err := api.svc.Send(ctx.Request().Context(), data.CourseID, usr.ID, data.Message)
	if err != nil {
		api.metrics.chatTurns.WithLabelValues("failed").Inc()
		return echo.NewHTTPError(http.StatusInternalServerError, msgChatFailed).SetInternal(err)
	}
	api.metrics.chatTurns.WithLabelValues("ok").Inc()
	return ctx.JSON(http.StatusOK, ChatResponse{Response: reply})
}

func (api *chatApi) history(ctx echo.Context) error {
	courseID := ctx.QueryParam("courseId")
	if courseID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "courseId is required")
	}
	if err := api.checkAccess(ctx, courseID); err != nil {
		return err
	}

	usr, _ := getContextUser(ctx)
	msgs, err := api.svc.History(ctx.Request().Context(), courseID, usr.ID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, msgChatFailed).SetInternal(err)
	}
	return ctx.JSON(http.StatusOK, ChatHistoryResponse{Messages: msgs})
}
