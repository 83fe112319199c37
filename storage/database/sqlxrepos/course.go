package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/ujuzi/core"
	"github.com/trezcool/ujuzi/core/course"
)

type courseRepository struct {
	db *sqlx.DB
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *sqlx.DB) *courseRepository {
	return &courseRepository{db: db}
}

type courseRow struct {
	ID       int         `db:"id"`
	Name     string      `db:"name"`
	ImageRef null.String `db:"image_ref"`
	Status   string      `db:"status"`
}

func (r courseRow) toCourse() course.Course {
	return course.Course{
		ID:       r.ID,
		Name:     r.Name,
		ImageRef: r.ImageRef.String,
		Status:   r.Status,
	}
}

type materialRow struct {
	ID       int    `db:"id"`
	CourseID int    `db:"course_id"`
	Title    string `db:"title"`
	Kind     string `db:"kind"`
	Resource string `db:"resource"`
	Weight   int    `db:"weight"`
}

func (r materialRow) toMaterial() course.Material {
	return course.Material(r)
}

// trapNoRowsErr maps psql "no rows" err to course.ErrNotFound
func (repo courseRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return course.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo courseRepository) CreateCourse(ctx context.Context, c course.Course) (course.Course, error) {
	q := `INSERT INTO course (name, image_ref, status) VALUES ($1, $2, $3) RETURNING id`
	imageRef := null.NewString(c.ImageRef, c.ImageRef != "")
	if err := repo.db.QueryRowxContext(ctx, q, c.Name, imageRef, c.Status).Scan(&c.ID); err != nil {
		return course.Course{}, errors.Wrap(err, "inserting course")
	}
	return c, nil
}

func (repo courseRepository) QueryAllCourses(ctx context.Context) ([]course.Course, error) {
	var rows []courseRow
	q := `SELECT id, name, image_ref, status FROM course ORDER BY name, id`
	if err := repo.db.SelectContext(ctx, &rows, q); err != nil {
		return nil, errors.Wrap(err, "querying courses")
	}
	courses := make([]course.Course, 0, len(rows))
	for _, r := range rows {
		courses = append(courses, r.toCourse())
	}
	return courses, nil
}

func (repo courseRepository) GetCourseByID(ctx context.Context, id int) (course.Course, error) {
	var r courseRow
	q := `SELECT id, name, image_ref, status FROM course WHERE id = $1`
	if err := repo.db.GetContext(ctx, &r, q, id); err != nil {
		return course.Course{}, repo.trapNoRowsErr(err, "getting course")
	}
	return r.toCourse(), nil
}

func (repo courseRepository) UpdateCourseStatus(ctx context.Context, id int, status string) (int, error) {
	res, err := repo.db.ExecContext(ctx, `UPDATE course SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return 0, errors.Wrap(err, "updating course status")
	}
	return rowsAffected(res), nil
}

func (repo courseRepository) CountCourses(ctx context.Context) (total, active int, err error) {
	q := `SELECT COUNT(*), COUNT(*) FILTER (WHERE status = $1) FROM course`
	if err = repo.db.QueryRowxContext(ctx, q, course.StatusActive).Scan(&total, &active); err != nil {
		return 0, 0, errors.Wrap(err, "counting courses")
	}
	return total, active, nil
}

func (repo courseRepository) CreateMaterial(ctx context.Context, m course.Material, exec ...core.DBExecutor) (course.Material, error) {
	q := `INSERT INTO material (course_id, title, kind, resource, weight) VALUES ($1, $2, $3, $4, $5) RETURNING id`
	err := getExec(repo.db, exec).
		QueryRowxContext(ctx, q, m.CourseID, m.Title, m.Kind, m.Resource, m.Weight).
		Scan(&m.ID)
	if err != nil {
		return course.Material{}, errors.Wrap(err, "inserting material")
	}
	return m, nil
}

func (repo courseRepository) UpdateMaterial(ctx context.Context, m course.Material, exec ...core.DBExecutor) (int, error) {
	q := `UPDATE material SET title = $2, kind = $3, resource = $4, weight = $5 WHERE id = $1`
	res, err := getExec(repo.db, exec).ExecContext(ctx, q, m.ID, m.Title, m.Kind, m.Resource, m.Weight)
	if err != nil {
		return 0, errors.Wrap(err, "updating material")
	}
	return rowsAffected(res), nil
}

func (repo courseRepository) GetMaterialByID(ctx context.Context, id int) (course.Material, error) {
	var r materialRow
	q := `SELECT id, course_id, title, kind, resource, weight FROM material WHERE id = $1`
	if err := repo.db.GetContext(ctx, &r, q, id); err != nil {
		if err == sql.ErrNoRows {
			return course.Material{}, course.ErrMaterialNotFound
		}
		return course.Material{}, errors.Wrap(err, "getting material")
	}
	return r.toMaterial(), nil
}

func (repo courseRepository) MaterialsByCourseID(ctx context.Context, courseID int, exec ...core.DBExecutor) ([]course.Material, error) {
	var rows []materialRow
	q := `SELECT id, course_id, title, kind, resource, weight FROM material WHERE course_id = $1 ORDER BY id`
	if err := sqlx.SelectContext(ctx, getExec(repo.db, exec), &rows, q, courseID); err != nil {
		return nil, errors.Wrap(err, "querying materials")
	}
	materials := make([]course.Material, 0, len(rows))
	for _, r := range rows {
		materials = append(materials, r.toMaterial())
	}
	return materials, nil
}

func (repo courseRepository) TotalWeight(ctx context.Context, courseID int) (int, error) {
	var total int
	q := `SELECT COALESCE(SUM(weight), 0) FROM material WHERE course_id = $1`
	if err := repo.db.GetContext(ctx, &total, q, courseID); err != nil {
		return 0, errors.Wrap(err, "summing material weights")
	}
	return total, nil
}

func (repo courseRepository) DeleteCourseProgress(ctx context.Context, courseID int, exec ...core.DBExecutor) (int, error) {
	q := `DELETE FROM student_progress WHERE material_id IN (SELECT id FROM material WHERE course_id = $1)`
	res, err := getExec(repo.db, exec).ExecContext(ctx, q, courseID)
	if err != nil {
		return 0, errors.Wrap(err, "deleting course progress")
	}
	return rowsAffected(res), nil
}

func (repo courseRepository) DeleteCourseMaterials(ctx context.Context, courseID int, exec ...core.DBExecutor) (int, error) {
	res, err := getExec(repo.db, exec).ExecContext(ctx, `DELETE FROM material WHERE course_id = $1`, courseID)
	if err != nil {
		return 0, errors.Wrap(err, "deleting course materials")
	}
	return rowsAffected(res), nil
}

func (repo courseRepository) DeleteCourseEnrollments(ctx context.Context, courseID int, exec ...core.DBExecutor) (int, error) {
	res, err := getExec(repo.db, exec).ExecContext(ctx, `DELETE FROM enrollment WHERE course_id = $1`, courseID)
	if err != nil {
		return 0, errors.Wrap(err, "deleting course enrollments")
	}
	return rowsAffected(res), nil
}

func (repo courseRepository) DeleteCourseByID(ctx context.Context, courseID int, exec ...core.DBExecutor) (int, error) {
	res, err := getExec(repo.db, exec).ExecContext(ctx, `DELETE FROM course WHERE id = $1`, courseID)
	if err != nil {
		return 0, errors.Wrap(err, "deleting course")
	}
	return rowsAffected(res), nil
}

func (repo courseRepository) DeleteMaterialProgress(ctx context.Context, materialID int, exec ...core.DBExecutor) (int, error) {
	res, err := getExec(repo.db, exec).ExecContext(ctx, `DELETE FROM student_progress WHERE material_id = $1`, materialID)
	if err != nil {
		return 0, errors.Wrap(err, "deleting material progress")
	}
	return rowsAffected(res), nil
}

func (repo courseRepository) DeleteMaterialByID(ctx context.Context, materialID int, exec ...core.DBExecutor) (int, error) {
	res, err := getExec(repo.db, exec).ExecContext(ctx, `DELETE FROM material WHERE id = $1`, materialID)
	if err != nil {
		return 0, errors.Wrap(err, "deleting material")
	}
	return rowsAffected(res), nil
}
