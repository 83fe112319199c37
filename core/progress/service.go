package progress

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/ujuzi/core"
	"github.com/trezcool/ujuzi/core/account"
	"github.com/trezcool/ujuzi/core/course"
)

var (
	// errors
	ErrNotFound  = errors.New("progress not found")
	ErrBadStatus = errors.New("unknown progress status")
)

type (
	Repository interface {
		// enrollments
		IsEnrolled(ctx context.Context, studentID, courseID int, exec ...core.DBExecutor) (bool, error)
		CreateEnrollment(ctx context.Context, e Enrollment, exec ...core.DBExecutor) (Enrollment, error)
		EnrolledCourseIDs(ctx context.Context, studentID int) ([]int, error)
		EnrolledStudentIDs(ctx context.Context, courseID int, exec ...core.DBExecutor) ([]int, error)
		EnrolledStudents(ctx context.Context, courseID int) ([]account.Student, error)
		CountEnrolledStudents(ctx context.Context) (int, error)

		// progress rows
		HasProgress(ctx context.Context, studentID, materialID int, exec ...core.DBExecutor) (bool, error)
		CreateProgress(ctx context.Context, p Progress, exec ...core.DBExecutor) (Progress, error)
		SetStatus(ctx context.Context, studentID, materialID int, status string) (int, error)
		StatusesByStudentAndCourse(ctx context.Context, studentID, courseID int) (map[int]string, error)
	}

	// CourseDirectory is the slice of the course repository this service
	// reads from.
	CourseDirectory interface {
		GetCourseByID(ctx context.Context, id int) (course.Course, error)
		MaterialsByCourseID(ctx context.Context, courseID int, exec ...core.DBExecutor) ([]course.Material, error)
	}

	Service struct {
		db      core.DB
		repo    Repository
		courses CourseDirectory
	}
)

func NewService(db core.DB, repo Repository, courses CourseDirectory) *Service {
	return &Service{db: db, repo: repo, courses: courses}
}

// Enroll registers the student on the course and seeds a StatusNotStarted
// row for every material the student has no row for yet. Calling it again
// changes nothing; materials added since the last call still get seeded.
func (svc *Service) Enroll(ctx context.Context, studentID, courseID int) error {
	if _, err := svc.courses.GetCourseByID(ctx, courseID); err != nil {
		return err
	}

	tx, err := svc.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}

	enrolled, err := svc.repo.IsEnrolled(ctx, studentID, courseID, tx)
	if err != nil {
		_ = tx.Rollback()
		return errors.Wrap(err, "checking enrollment")
	}
	if !enrolled {
		if _, err = svc.repo.CreateEnrollment(ctx, Enrollment{StudentID: studentID, CourseID: courseID}, tx); err != nil {
			_ = tx.Rollback()
			return errors.Wrap(err, "creating enrollment")
		}
	}

	materials, err := svc.courses.MaterialsByCourseID(ctx, courseID, tx)
	if err != nil {
		_ = tx.Rollback()
		return errors.Wrap(err, "querying course materials")
	}
	for _, m := range materials {
		if err = svc.seedProgress(ctx, studentID, m.ID, tx); err != nil {
			_ = tx.Rollback()
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return errors.Wrap(err, "committing transaction")
	}
	return nil
}

// MaterialAdded seeds a StatusNotStarted row for every student already
// enrolled on the course the new material belongs to.
func (svc *Service) MaterialAdded(ctx context.Context, courseID, materialID int) error {
	tx, err := svc.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}

	studentIDs, err := svc.repo.EnrolledStudentIDs(ctx, courseID, tx)
	if err != nil {
		_ = tx.Rollback()
		return errors.Wrap(err, "querying enrolled students")
	}
	for _, sid := range studentIDs {
		if err = svc.seedProgress(ctx, sid, materialID, tx); err != nil {
			_ = tx.Rollback()
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return errors.Wrap(err, "committing transaction")
	}
	return nil
}

func (svc *Service) seedProgress(ctx context.Context, studentID, materialID int, exec ...core.DBExecutor) error {
	ok, err := svc.repo.HasProgress(ctx, studentID, materialID, exec...)
	if err != nil {
		return errors.Wrap(err, "checking progress row")
	}
	if ok {
		return nil
	}
	p := Progress{StudentID: studentID, MaterialID: materialID, Status: StatusNotStarted}
	if _, err = svc.repo.CreateProgress(ctx, p, exec...); err != nil {
		return errors.Wrap(err, "seeding progress row")
	}
	return nil
}

// SetStatus writes the student's status on a material. The status is read
// case-insensitively but stored canonically.
func (svc *Service) SetStatus(ctx context.Context, studentID, materialID int, status string) error {
	canonical, ok := NormalizeStatus(status)
	if !ok {
		return core.NewValidationError(ErrBadStatus, core.FieldError{Field: "status", Error: ErrBadStatus.Error()})
	}
	n, err := svc.repo.SetStatus(ctx, studentID, materialID, canonical)
	if err != nil {
		return errors.Wrap(err, "updating progress status")
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// CourseProgress assembles the student's standing in one course.
func (svc *Service) CourseProgress(ctx context.Context, studentID, courseID int) (CourseProgress, error) {
	c, err := svc.courses.GetCourseByID(ctx, courseID)
	if err != nil {
		return CourseProgress{}, err
	}
	materials, err := svc.courses.MaterialsByCourseID(ctx, courseID)
	if err != nil {
		return CourseProgress{}, errors.Wrap(err, "querying course materials")
	}
	statuses, err := svc.repo.StatusesByStudentAndCourse(ctx, studentID, courseID)
	if err != nil {
		return CourseProgress{}, errors.Wrap(err, "querying progress statuses")
	}

	completedIDs := make(map[int]bool, len(statuses))
	var completed int
	breakdown := make([]MaterialProgress, 0, len(materials))
	for _, m := range materials {
		status, ok := statuses[m.ID]
		if !ok {
			status = StatusNotStarted
		}
		if strings.EqualFold(status, StatusCompleted) {
			completedIDs[m.ID] = true
			completed++
		}
		breakdown = append(breakdown, MaterialProgress{Material: m, Status: status})
	}

	return CourseProgress{
		Course:            c,
		Readiness:         course.Readiness(materials, completedIDs),
		CompletionPercent: course.CompletionPercent(len(materials), completed),
		Materials:         breakdown,
	}, nil
}

// StudentOverview reports the student's standing in every enrolled course.
func (svc *Service) StudentOverview(ctx context.Context, studentID int) ([]CourseProgress, error) {
	courseIDs, err := svc.repo.EnrolledCourseIDs(ctx, studentID)
	if err != nil {
		return nil, errors.Wrap(err, "querying enrollments")
	}
	overview := make([]CourseProgress, 0, len(courseIDs))
	for _, cid := range courseIDs {
		cp, err := svc.CourseProgress(ctx, studentID, cid)
		if err != nil {
			return nil, err
		}
		overview = append(overview, cp)
	}
	return overview, nil
}

func (svc *Service) EnrolledStudents(ctx context.Context, courseID int) ([]account.Student, error) {
	if _, err := svc.courses.GetCourseByID(ctx, courseID); err != nil {
		return nil, err
	}
	return svc.repo.EnrolledStudents(ctx, courseID)
}

// CountEnrolledStudents counts students with at least one enrollment.
func (svc *Service) CountEnrolledStudents(ctx context.Context) (int, error) {
	return svc.repo.CountEnrolledStudents(ctx)
}
