package echoapi

import (
	"io"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/ujuzi/core"
	"github.com/trezcool/ujuzi/core/account"
	"github.com/trezcool/ujuzi/core/course"
	"github.com/trezcool/ujuzi/core/progress"
)

type courseApi struct {
	svc       *course.Service
	progSvc   *progress.Service
	uploadSvc core.UploadService
	validate  *validator.Validate
	logger    core.Logger
}

func registerCourseAPI(g *echo.Group, jwt, session echo.MiddlewareFunc, deps *ServerDeps) {
	api := courseApi{
		svc:       deps.CourseSvc,
		progSvc:   deps.ProgressSvc,
		uploadSvc: deps.UploadSvc,
		validate:  deps.Validate,
		logger:    deps.Logger,
	}

	cg := g.Group("/courses", jwt, session)
	cg.GET("", api.query)
	cg.POST("", api.create, adminMiddleware())
	cg.GET("/:id", api.retrieve)
	cg.POST("/:id/status", api.toggleStatus, adminMiddleware())
	cg.DELETE("/:id", api.destroy, adminMiddleware())
	cg.GET("/:id/students", api.students, adminMiddleware())
	cg.GET("/:id/materials", api.materials)
	cg.POST("/:id/materials", api.createMaterial, adminMiddleware())

	mg := g.Group("/materials", jwt, session, adminMiddleware())
	mg.PUT("/:id", api.updateMaterial)
	mg.DELETE("/:id", api.destroyMaterial)
}

// Handlers

func (api *courseApi) query(ctx echo.Context) error {
	courses, err := api.svc.QueryAll(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying courses")
	}
	if courses == nil {
		courses = []course.Course{}
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (api *courseApi) create(ctx echo.Context) error {
	var data course.NewCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCourse")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	c, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating course")
	}
	return ctx.JSON(http.StatusCreated, c)
}

func (api *courseApi) retrieve(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	c, err := api.svc.GetByID(ctx.Request().Context(), id)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *courseApi) toggleStatus(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	c, err := api.svc.ToggleStatus(ctx.Request().Context(), id)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *courseApi) destroy(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.DeleteCourse(ctx.Request().Context(), id); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *courseApi) students(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	students, err := api.progSvc.EnrolledStudents(ctx.Request().Context(), id)
	if err != nil {
		return err
	}
	if students == nil {
		students = []account.Student{}
	}
	return ctx.JSON(http.StatusOK, students)
}

func (api *courseApi) materials(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	if _, err = api.svc.GetByID(ctx.Request().Context(), id); err != nil {
		return err
	}
	materials, err := api.svc.Materials(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "querying materials")
	}
	if materials == nil {
		materials = []course.Material{}
	}
	return ctx.JSON(http.StatusOK, materials)
}

// createMaterial accepts multipart/form-data, decoded by the in-house
// decoder rather than echo's form binding so the single-attachment and
// permissive-part rules apply.
func (api *courseApi) createMaterial(ctx echo.Context) error {
	courseID, err := pathID(ctx)
	if err != nil {
		return err
	}

	nm, upload, err := api.bindMaterialForm(ctx)
	if err != nil {
		return err
	}
	if err = nm.Validate(api.validate); err != nil {
		return err
	}
	if upload != nil {
		ref, err := api.uploadSvc.Save(upload.Filename, upload.Data)
		if err != nil {
			return errors.Wrap(err, "saving upload")
		}
		nm.Resource = ref
	}

	m, err := api.svc.CreateMaterial(ctx.Request().Context(), courseID, *nm)
	if err != nil {
		// a rejected write must not leave the stored file behind
		if upload != nil {
			_ = api.uploadSvc.Remove(nm.Resource)
		}
		return err
	}

	// seed Not Started rows for everyone already enrolled; the material is
	// committed at this point, so a seeding failure only gets logged and the
	// next Enroll call backfills the missing rows
	if err = api.progSvc.MaterialAdded(ctx.Request().Context(), m.CourseID, m.ID); err != nil {
		api.logger.Error("seeding progress rows", err)
	}
	return ctx.JSON(http.StatusCreated, m)
}

func (api *courseApi) updateMaterial(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}

	nm, upload, err := api.bindMaterialForm(ctx)
	if err != nil {
		return err
	}
	if err = nm.Validate(api.validate); err != nil {
		return err
	}
	if upload != nil {
		ref, err := api.uploadSvc.Save(upload.Filename, upload.Data)
		if err != nil {
			return errors.Wrap(err, "saving upload")
		}
		nm.Resource = ref
	}

	m, err := api.svc.UpdateMaterial(ctx.Request().Context(), id, *nm)
	if err != nil {
		if upload != nil {
			_ = api.uploadSvc.Remove(nm.Resource)
		}
		return err
	}
	return ctx.JSON(http.StatusOK, m)
}

func (api *courseApi) destroyMaterial(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.DeleteMaterial(ctx.Request().Context(), id); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

// bindMaterialForm decodes the request's multipart body into a NewMaterial
// plus an optional attachment.
func (api *courseApi) bindMaterialForm(ctx echo.Context) (*course.NewMaterial, *core.FileUpload, error) {
	boundary, err := core.BoundaryFromContentType(ctx.Request().Header.Get(echo.HeaderContentType))
	if err != nil {
		return nil, nil, err
	}
	body, err := io.ReadAll(ctx.Request().Body)
	if err != nil {
		return nil, nil, errors.Wrap(err, "reading request body")
	}

	form := core.DecodeFormData(body, boundary)
	nm := &course.NewMaterial{
		Title:    form.Get("title"),
		Kind:     form.Get("kind"),
		Resource: form.Get("resource"),
		Weight:   form.GetInt("weight", 0),
	}
	if form.HasFile() {
		return nm, form.File, nil
	}
	return nm, nil, nil
}

func pathID(ctx echo.Context) (int, error) {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		return 0, errHttpNotFound
	}
	return id, nil
}
