package course

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pkg/errors"

	"github.com/trezcool/ujuzi/core"
)

var (
	// errors
	ErrNotFound         = errors.New("course not found")
	ErrMaterialNotFound = errors.New("material not found")
	ErrWeightExceeded   = errors.New("total weight cannot exceed 100 percent")
)

type (
	Repository interface {
		// courses
		CreateCourse(ctx context.Context, c Course) (Course, error)
		QueryAllCourses(ctx context.Context) ([]Course, error)
		GetCourseByID(ctx context.Context, id int) (Course, error)
		UpdateCourseStatus(ctx context.Context, id int, status string) (int, error)
		CountCourses(ctx context.Context) (total, active int, err error)

		// materials
		CreateMaterial(ctx context.Context, m Material, exec ...core.DBExecutor) (Material, error)
		UpdateMaterial(ctx context.Context, m Material, exec ...core.DBExecutor) (int, error)
		GetMaterialByID(ctx context.Context, id int) (Material, error)
		MaterialsByCourseID(ctx context.Context, courseID int, exec ...core.DBExecutor) ([]Material, error)
		TotalWeight(ctx context.Context, courseID int) (int, error)

		// cascade steps; children before parents
		DeleteCourseProgress(ctx context.Context, courseID int, exec ...core.DBExecutor) (int, error)
		DeleteCourseMaterials(ctx context.Context, courseID int, exec ...core.DBExecutor) (int, error)
		DeleteCourseEnrollments(ctx context.Context, courseID int, exec ...core.DBExecutor) (int, error)
		DeleteCourseByID(ctx context.Context, courseID int, exec ...core.DBExecutor) (int, error)
		DeleteMaterialProgress(ctx context.Context, materialID int, exec ...core.DBExecutor) (int, error)
		DeleteMaterialByID(ctx context.Context, materialID int, exec ...core.DBExecutor) (int, error)
	}

	Service struct {
		db   core.DB
		repo Repository
	}
)

func NewService(db core.DB, repo Repository) *Service {
	return &Service{db: db, repo: repo}
}

func (svc *Service) Create(ctx context.Context, nc NewCourse) (Course, error) {
	c := Course{
		Name:     nc.Name,
		ImageRef: nc.ImageRef,
		Status:   StatusActive,
	}
	return svc.repo.CreateCourse(ctx, c)
}

func (svc *Service) QueryAll(ctx context.Context) ([]Course, error) {
	return svc.repo.QueryAllCourses(ctx)
}

func (svc *Service) GetByID(ctx context.Context, id int) (Course, error) {
	return svc.repo.GetCourseByID(ctx, id)
}

// ToggleStatus flips a course between active and inactive.
func (svc *Service) ToggleStatus(ctx context.Context, id int) (Course, error) {
	c, err := svc.repo.GetCourseByID(ctx, id)
	if err != nil {
		return Course{}, err
	}
	status := StatusActive
	if c.Active() {
		status = StatusInactive
	}
	if _, err = svc.repo.UpdateCourseStatus(ctx, id, status); err != nil {
		return Course{}, errors.Wrap(err, "updating course status")
	}
	c.Status = status
	return c, nil
}

func (svc *Service) CountCourses(ctx context.Context) (total, active int, err error) {
	return svc.repo.CountCourses(ctx)
}

func (svc *Service) Materials(ctx context.Context, courseID int) ([]Material, error) {
	return svc.repo.MaterialsByCourseID(ctx, courseID)
}

func (svc *Service) GetMaterial(ctx context.Context, id int) (Material, error) {
	return svc.repo.GetMaterialByID(ctx, id)
}

func (svc *Service) TotalWeight(ctx context.Context, courseID int) (int, error) {
	return svc.repo.TotalWeight(ctx, courseID)
}

// CanAcceptWeight reports whether a material carrying `candidate` weight may
// be written to the course, excluding `excludeID` from the current sum when
// an existing material is being edited.
func (svc *Service) CanAcceptWeight(ctx context.Context, courseID, candidate, excludeID int) (WeightCheck, error) {
	materials, err := svc.repo.MaterialsByCourseID(ctx, courseID)
	if err != nil {
		return WeightCheck{}, errors.Wrap(err, "querying course materials")
	}
	return CheckWeight(materials, candidate, excludeID), nil
}

// CreateMaterial runs the weight-gated insert. The admission check cannot be
// a schema constraint (the edit case excludes the current row from the sum),
// so check-then-write races are closed by running both inside one
// serializable transaction.
func (svc *Service) CreateMaterial(ctx context.Context, courseID int, nm NewMaterial) (Material, error) {
	if _, err := svc.repo.GetCourseByID(ctx, courseID); err != nil {
		return Material{}, err
	}

	m := Material{
		CourseID: courseID,
		Title:    nm.Title,
		Kind:     nm.Kind,
		Resource: nm.Resource,
		Weight:   nm.Weight,
	}

	tx, err := svc.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return Material{}, errors.Wrap(err, "beginning transaction")
	}

	materials, err := svc.repo.MaterialsByCourseID(ctx, courseID, tx)
	if err != nil {
		_ = tx.Rollback()
		return Material{}, errors.Wrap(err, "querying course materials")
	}
	if check := CheckWeight(materials, nm.Weight, 0); !check.OK {
		_ = tx.Rollback()
		return Material{}, weightError(check)
	}

	m, err = svc.repo.CreateMaterial(ctx, m, tx)
	if err != nil {
		_ = tx.Rollback()
		return Material{}, errors.Wrap(err, "creating material")
	}
	if err = tx.Commit(); err != nil {
		return Material{}, errors.Wrap(err, "committing transaction")
	}
	return m, nil
}

// UpdateMaterial rewrites an existing material, re-running the weight check
// with the edited row excluded from the current sum.
func (svc *Service) UpdateMaterial(ctx context.Context, id int, nm NewMaterial) (Material, error) {
	orig, err := svc.repo.GetMaterialByID(ctx, id)
	if err != nil {
		return Material{}, err
	}

	m := Material{
		ID:       id,
		CourseID: orig.CourseID,
		Title:    nm.Title,
		Kind:     nm.Kind,
		Resource: nm.Resource,
		Weight:   nm.Weight,
	}
	if m.Resource == "" {
		m.Resource = orig.Resource // keep the stored upload when none was sent
	}

	tx, err := svc.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return Material{}, errors.Wrap(err, "beginning transaction")
	}

	materials, err := svc.repo.MaterialsByCourseID(ctx, orig.CourseID, tx)
	if err != nil {
		_ = tx.Rollback()
		return Material{}, errors.Wrap(err, "querying course materials")
	}
	if check := CheckWeight(materials, nm.Weight, id); !check.OK {
		_ = tx.Rollback()
		return Material{}, weightError(check)
	}

	n, err := svc.repo.UpdateMaterial(ctx, m, tx)
	if err != nil {
		_ = tx.Rollback()
		return Material{}, errors.Wrap(err, "updating material")
	}
	if n == 0 {
		_ = tx.Rollback()
		return Material{}, ErrMaterialNotFound
	}
	if err = tx.Commit(); err != nil {
		return Material{}, errors.Wrap(err, "committing transaction")
	}
	return m, nil
}

// DeleteCourse removes a course and everything hanging off it in one
// transaction: progress rows (via the course's materials), then materials,
// then enrollments, then the course itself.
func (svc *Service) DeleteCourse(ctx context.Context, id int) error {
	tx, err := svc.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}

	if _, err = svc.repo.DeleteCourseProgress(ctx, id, tx); err != nil {
		_ = tx.Rollback()
		return errors.Wrap(err, "deleting course progress")
	}
	if _, err = svc.repo.DeleteCourseMaterials(ctx, id, tx); err != nil {
		_ = tx.Rollback()
		return errors.Wrap(err, "deleting course materials")
	}
	if _, err = svc.repo.DeleteCourseEnrollments(ctx, id, tx); err != nil {
		_ = tx.Rollback()
		return errors.Wrap(err, "deleting course enrollments")
	}
	n, err := svc.repo.DeleteCourseByID(ctx, id, tx)
	if err != nil {
		_ = tx.Rollback()
		return errors.Wrap(err, "deleting course")
	}
	if n == 0 {
		_ = tx.Rollback()
		return ErrNotFound
	}

	if err = tx.Commit(); err != nil {
		return errors.Wrap(err, "committing transaction")
	}
	return nil
}

// DeleteMaterial removes a material and its progress rows atomically.
// Enrollments are course-level and stay untouched.
func (svc *Service) DeleteMaterial(ctx context.Context, id int) error {
	tx, err := svc.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}

	if _, err = svc.repo.DeleteMaterialProgress(ctx, id, tx); err != nil {
		_ = tx.Rollback()
		return errors.Wrap(err, "deleting material progress")
	}
	n, err := svc.repo.DeleteMaterialByID(ctx, id, tx)
	if err != nil {
		_ = tx.Rollback()
		return errors.Wrap(err, "deleting material")
	}
	if n == 0 {
		_ = tx.Rollback()
		return ErrMaterialNotFound
	}

	if err = tx.Commit(); err != nil {
		return errors.Wrap(err, "committing transaction")
	}
	return nil
}

func weightError(check WeightCheck) error {
	return core.NewValidationError(ErrWeightExceeded, core.FieldError{
		Field: "weight",
		Error: fmt.Sprintf(
			"total weight cannot exceed 100 percent: current total %d, attempted %d",
			check.CurrentTotal, check.Attempted,
		),
	})
}
