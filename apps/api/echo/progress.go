package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/ujuzi/core/course"
	"github.com/trezcool/ujuzi/core/progress"
)

type progressApi struct {
	svc      *progress.Service
	validate *validator.Validate
}

func registerProgressAPI(g *echo.Group, jwt, session echo.MiddlewareFunc, deps *ServerDeps) {
	api := progressApi{
		svc:      deps.ProgressSvc,
		validate: deps.Validate,
	}

	g.POST("/enrollments", api.enroll, jwt, session, studentMiddleware())

	mg := g.Group("/me", jwt, session, studentMiddleware())
	mg.GET("/courses", api.myCourses)
	mg.GET("/progress", api.myProgress)
	mg.PUT("/progress", api.setProgress)
	mg.GET("/courses/:id/readiness", api.courseReadiness)
}

// Handlers

func (api *progressApi) enroll(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data EnrollRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to EnrollRequest")
	}
	if err = api.validate.Struct(&data); err != nil {
		return err
	}

	if err = api.svc.Enroll(ctx.Request().Context(), claims.AccountID(), data.CourseID); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusCreated)
}

func (api *progressApi) myCourses(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	overview, err := api.svc.StudentOverview(ctx.Request().Context(), claims.AccountID())
	if err != nil {
		return errors.Wrap(err, "assembling overview")
	}
	courses := make([]CourseSummary, 0, len(overview))
	for _, cp := range overview {
		courses = append(courses, CourseSummary{
			Course:            cp.Course,
			Readiness:         cp.Readiness,
			CompletionPercent: cp.CompletionPercent,
		})
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (api *progressApi) myProgress(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	overview, err := api.svc.StudentOverview(ctx.Request().Context(), claims.AccountID())
	if err != nil {
		return errors.Wrap(err, "assembling overview")
	}
	if overview == nil {
		overview = []progress.CourseProgress{}
	}
	return ctx.JSON(http.StatusOK, overview)
}

func (api *progressApi) setProgress(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data SetProgressRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SetProgressRequest")
	}
	if err = api.validate.Struct(&data); err != nil {
		return err
	}

	if err = api.svc.SetStatus(ctx.Request().Context(), claims.AccountID(), data.MaterialID, data.Status); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *progressApi) courseReadiness(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	courseID, err := pathID(ctx)
	if err != nil {
		return err
	}

	cp, err := api.svc.CourseProgress(ctx.Request().Context(), claims.AccountID(), courseID)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, ReadinessResponse{
		CourseID:          cp.Course.ID,
		Readiness:         cp.Readiness,
		CompletionPercent: cp.CompletionPercent,
	})
}

type (
	EnrollRequest struct {
		CourseID int `json:"course_id" validate:"required"`
	}

	SetProgressRequest struct {
		MaterialID int    `json:"material_id" validate:"required"`
		Status     string `json:"status" validate:"required"`
	}

	CourseSummary struct {
		Course            course.Course `json:"course"`
		Readiness         float64       `json:"readiness"`
		CompletionPercent int           `json:"completion_percent"`
	}

	ReadinessResponse struct {
		CourseID          int     `json:"course_id"`
		Readiness         float64 `json:"readiness"`
		CompletionPercent int     `json:"completion_percent"`
	}
)
