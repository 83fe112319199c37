package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/ujuzi/core"
	"github.com/trezcool/ujuzi/core/account"
	"github.com/trezcool/ujuzi/core/progress"
)

type progressRepository struct {
	db *sqlx.DB
}

var _ progress.Repository = (*progressRepository)(nil) // interface compliance check

func NewProgressRepository(db *sqlx.DB) *progressRepository {
	return &progressRepository{db: db}
}

func (repo progressRepository) IsEnrolled(ctx context.Context, studentID, courseID int, exec ...core.DBExecutor) (bool, error) {
	q := `SELECT EXISTS (SELECT 1 FROM enrollment WHERE student_id = $1 AND course_id = $2)`
	var enrolled bool
	err := getExec(repo.db, exec).QueryRowxContext(ctx, q, studentID, courseID).Scan(&enrolled)
	if err != nil {
		return false, errors.Wrap(err, "checking enrollment")
	}
	return enrolled, nil
}

func (repo progressRepository) CreateEnrollment(ctx context.Context, e progress.Enrollment, exec ...core.DBExecutor) (progress.Enrollment, error) {
	q := `INSERT INTO enrollment (student_id, course_id) VALUES ($1, $2) RETURNING id`
	err := getExec(repo.db, exec).QueryRowxContext(ctx, q, e.StudentID, e.CourseID).Scan(&e.ID)
	if err != nil {
		return progress.Enrollment{}, errors.Wrap(err, "inserting enrollment")
	}
	return e, nil
}

func (repo progressRepository) EnrolledCourseIDs(ctx context.Context, studentID int) ([]int, error) {
	var ids []int
	q := `SELECT course_id FROM enrollment WHERE student_id = $1 ORDER BY course_id`
	if err := repo.db.SelectContext(ctx, &ids, q, studentID); err != nil {
		return nil, errors.Wrap(err, "querying enrolled courses")
	}
	return ids, nil
}

func (repo progressRepository) EnrolledStudentIDs(ctx context.Context, courseID int, exec ...core.DBExecutor) ([]int, error) {
	var ids []int
	q := `SELECT student_id FROM enrollment WHERE course_id = $1 ORDER BY student_id`
	if err := sqlx.SelectContext(ctx, getExec(repo.db, exec), &ids, q, courseID); err != nil {
		return nil, errors.Wrap(err, "querying enrolled students")
	}
	return ids, nil
}

func (repo progressRepository) EnrolledStudents(ctx context.Context, courseID int) ([]account.Student, error) {
	var rows []studentRow
	q := `SELECT s.id, s.name, s.email, s.password_hash, s.created_at, s.last_login
		FROM student s JOIN enrollment e ON e.student_id = s.id
		WHERE e.course_id = $1 ORDER BY s.name, s.id`
	if err := repo.db.SelectContext(ctx, &rows, q, courseID); err != nil {
		return nil, errors.Wrap(err, "querying enrolled students")
	}
	students := make([]account.Student, 0, len(rows))
	for _, r := range rows {
		students = append(students, r.toStudent())
	}
	return students, nil
}

func (repo progressRepository) CountEnrolledStudents(ctx context.Context) (int, error) {
	var n int
	if err := repo.db.GetContext(ctx, &n, `SELECT COUNT(DISTINCT student_id) FROM enrollment`); err != nil {
		return 0, errors.Wrap(err, "counting enrolled students")
	}
	return n, nil
}

func (repo progressRepository) HasProgress(ctx context.Context, studentID, materialID int, exec ...core.DBExecutor) (bool, error) {
	q := `SELECT EXISTS (SELECT 1 FROM student_progress WHERE student_id = $1 AND material_id = $2)`
	var exists bool
	err := getExec(repo.db, exec).QueryRowxContext(ctx, q, studentID, materialID).Scan(&exists)
	if err != nil {
		return false, errors.Wrap(err, "checking progress row")
	}
	return exists, nil
}

func (repo progressRepository) CreateProgress(ctx context.Context, p progress.Progress, exec ...core.DBExecutor) (progress.Progress, error) {
	q := `INSERT INTO student_progress (student_id, material_id, status) VALUES ($1, $2, $3) RETURNING id`
	err := getExec(repo.db, exec).QueryRowxContext(ctx, q, p.StudentID, p.MaterialID, p.Status).Scan(&p.ID)
	if err != nil {
		return progress.Progress{}, errors.Wrap(err, "inserting progress row")
	}
	return p, nil
}

func (repo progressRepository) SetStatus(ctx context.Context, studentID, materialID int, status string) (int, error) {
	q := `UPDATE student_progress SET status = $3 WHERE student_id = $1 AND material_id = $2`
	res, err := repo.db.ExecContext(ctx, q, studentID, materialID, status)
	if err != nil {
		return 0, errors.Wrap(err, "updating progress status")
	}
	return rowsAffected(res), nil
}

func (repo progressRepository) StatusesByStudentAndCourse(ctx context.Context, studentID, courseID int) (map[int]string, error) {
	q := `SELECT sp.material_id, sp.status
		FROM student_progress sp JOIN material m ON m.id = sp.material_id
		WHERE sp.student_id = $1 AND m.course_id = $2`
	rows, err := repo.db.QueryxContext(ctx, q, studentID, courseID)
	if err != nil {
		return nil, errors.Wrap(err, "querying progress statuses")
	}
	defer func() { _ = rows.Close() }()

	statuses := make(map[int]string)
	for rows.Next() {
		var materialID int
		var status string
		if err = rows.Scan(&materialID, &status); err != nil {
			return nil, errors.Wrap(err, "querying progress statuses")
		}
		statuses[materialID] = status
	}
	if err = rows.Err(); err != nil {
		return nil, errors.Wrap(err, "querying progress statuses")
	}
	return statuses, nil
}
