package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/ujuzi/core"
	"github.com/trezcool/ujuzi/core/account"
	"github.com/trezcool/ujuzi/core/course"
	"github.com/trezcool/ujuzi/core/progress"
)

type adminApi struct {
	accountSvc  *account.Service
	courseSvc   *course.Service
	progressSvc *progress.Service
	sessions    *core.SessionStore
}

func registerAdminAPI(g *echo.Group, jwt, session echo.MiddlewareFunc, deps *ServerDeps) {
	api := adminApi{
		accountSvc:  deps.AccountSvc,
		courseSvc:   deps.CourseSvc,
		progressSvc: deps.ProgressSvc,
		sessions:    deps.Sessions,
	}

	admin := adminMiddleware()
	g.GET("/admin/stats", api.stats, jwt, session, admin)

	sg := g.Group("/students", jwt, session, admin)
	sg.GET("", api.studentQuery)
	sg.DELETE("/:id", api.studentDelete)
}

// Handlers

func (api *adminApi) stats(ctx echo.Context) error {
	rctx := ctx.Request().Context()

	students, err := api.accountSvc.CountStudents(rctx)
	if err != nil {
		return errors.Wrap(err, "counting students")
	}
	total, active, err := api.courseSvc.CountCourses(rctx)
	if err != nil {
		return errors.Wrap(err, "counting courses")
	}
	enrolled, err := api.progressSvc.CountEnrolledStudents(rctx)
	if err != nil {
		return errors.Wrap(err, "counting enrolled students")
	}

	return ctx.JSON(http.StatusOK, StatsResponse{
		Students:         students,
		Courses:          total,
		ActiveCourses:    active,
		EnrolledStudents: enrolled,
	})
}

func (api *adminApi) studentQuery(ctx echo.Context) error {
	students, err := api.accountSvc.QueryAllStudents(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying students")
	}
	if students == nil {
		students = []account.Student{}
	}
	return ctx.JSON(http.StatusOK, students)
}

func (api *adminApi) studentDelete(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	if err = api.accountSvc.DeleteStudent(ctx.Request().Context(), id); err != nil {
		return err
	}
	api.sessions.InvalidateAccount(id, string(account.RoleStudent))
	return ctx.NoContent(http.StatusNoContent)
}

type StatsResponse struct {
	Students         int `json:"students"`
	Courses          int `json:"courses"`
	ActiveCourses    int `json:"active_courses"`
	EnrolledStudents int `json:"enrolled_students"`
}
