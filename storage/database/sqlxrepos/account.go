package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/ujuzi/core"
	"github.com/trezcool/ujuzi/core/account"
)

type accountRepository struct {
	db *sqlx.DB
}

var _ account.Repository = (*accountRepository)(nil) // interface compliance check

func NewAccountRepository(db *sqlx.DB) *accountRepository {
	return &accountRepository{db: db}
}

type studentRow struct {
	ID           int       `db:"id"`
	Name         string    `db:"name"`
	Email        string    `db:"email"`
	PasswordHash []byte    `db:"password_hash"`
	CreatedAt    time.Time `db:"created_at"`
	LastLogin    null.Time `db:"last_login"`
}

func (r studentRow) toStudent() account.Student {
	return account.Student{
		ID:           r.ID,
		Name:         r.Name,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		CreatedAt:    r.CreatedAt,
		LastLogin:    r.LastLogin.Time,
	}
}

// trapNoRowsErr maps psql "no rows" err to account.ErrNotFound
func (repo accountRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return account.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo accountRepository) CheckStudentEmailUniqueness(ctx context.Context, email string, excluded ...account.Student) error {
	q := `SELECT EXISTS (SELECT 1 FROM student WHERE email = $1`
	args := []interface{}{email}
	if len(excluded) > 0 {
		q += ` AND id != ALL($2)`
		ids := make([]int64, 0, len(excluded))
		for _, st := range excluded {
			ids = append(ids, int64(st.ID))
		}
		args = append(args, pq.Int64Array(ids))
	}
	q += `)`

	var exists bool
	if err := repo.db.GetContext(ctx, &exists, q, args...); err != nil {
		return errors.Wrap(err, "checking email uniqueness")
	}
	if exists {
		return account.ErrEmailExists
	}
	return nil
}

func (repo accountRepository) CreateStudent(ctx context.Context, st account.Student, exec ...core.DBExecutor) (account.Student, error) {
	q := `INSERT INTO student (name, email, password_hash, created_at) VALUES ($1, $2, $3, $4) RETURNING id`
	err := getExec(repo.db, exec).
		QueryRowxContext(ctx, q, st.Name, st.Email, st.PasswordHash, st.CreatedAt).
		Scan(&st.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return account.Student{}, account.ErrEmailExists
		}
		return account.Student{}, errors.Wrap(err, "inserting student")
	}
	return st, nil
}

func (repo accountRepository) QueryAllStudents(ctx context.Context) ([]account.Student, error) {
	var rows []studentRow
	q := `SELECT id, name, email, password_hash, created_at, last_login FROM student ORDER BY name, id`
	if err := repo.db.SelectContext(ctx, &rows, q); err != nil {
		return nil, errors.Wrap(err, "querying students")
	}
	students := make([]account.Student, 0, len(rows))
	for _, r := range rows {
		students = append(students, r.toStudent())
	}
	return students, nil
}

func (repo accountRepository) GetStudentByID(ctx context.Context, id int) (account.Student, error) {
	var r studentRow
	q := `SELECT id, name, email, password_hash, created_at, last_login FROM student WHERE id = $1`
	if err := repo.db.GetContext(ctx, &r, q, id); err != nil {
		return account.Student{}, repo.trapNoRowsErr(err, "getting student")
	}
	return r.toStudent(), nil
}

func (repo accountRepository) GetStudentByEmail(ctx context.Context, email string) (account.Student, error) {
	var r studentRow
	q := `SELECT id, name, email, password_hash, created_at, last_login FROM student WHERE email = $1`
	if err := repo.db.GetContext(ctx, &r, q, email); err != nil {
		return account.Student{}, repo.trapNoRowsErr(err, "getting student")
	}
	return r.toStudent(), nil
}

func (repo accountRepository) SetStudentLastLogin(ctx context.Context, id int, t time.Time) error {
	if _, err := repo.db.ExecContext(ctx, `UPDATE student SET last_login = $2 WHERE id = $1`, id, t); err != nil {
		return errors.Wrap(err, "updating last login")
	}
	return nil
}

func (repo accountRepository) CountStudents(ctx context.Context) (int, error) {
	var n int
	if err := repo.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM student`); err != nil {
		return 0, errors.Wrap(err, "counting students")
	}
	return n, nil
}

func (repo accountRepository) DeleteStudentProgress(ctx context.Context, studentID int, exec ...core.DBExecutor) (int, error) {
	res, err := getExec(repo.db, exec).ExecContext(ctx, `DELETE FROM student_progress WHERE student_id = $1`, studentID)
	if err != nil {
		return 0, errors.Wrap(err, "deleting student progress")
	}
	return rowsAffected(res), nil
}

func (repo accountRepository) DeleteStudentEnrollments(ctx context.Context, studentID int, exec ...core.DBExecutor) (int, error) {
	res, err := getExec(repo.db, exec).ExecContext(ctx, `DELETE FROM enrollment WHERE student_id = $1`, studentID)
	if err != nil {
		return 0, errors.Wrap(err, "deleting student enrollments")
	}
	return rowsAffected(res), nil
}

func (repo accountRepository) DeleteStudentByID(ctx context.Context, studentID int, exec ...core.DBExecutor) (int, error) {
	res, err := getExec(repo.db, exec).ExecContext(ctx, `DELETE FROM student WHERE id = $1`, studentID)
	if err != nil {
		return 0, errors.Wrap(err, "deleting student")
	}
	return rowsAffected(res), nil
}

func (repo accountRepository) GetAdminByUsername(ctx context.Context, username string) (account.Admin, error) {
	var adm account.Admin
	q := `SELECT id, username, password_hash FROM admin WHERE username = $1`
	err := repo.db.QueryRowxContext(ctx, q, username).Scan(&adm.ID, &adm.Username, &adm.PasswordHash)
	if err != nil {
		return account.Admin{}, repo.trapNoRowsErr(err, "getting admin")
	}
	return adm, nil
}

func (repo accountRepository) CreateAdmin(ctx context.Context, adm account.Admin) (account.Admin, error) {
	q := `INSERT INTO admin (username, password_hash) VALUES ($1, $2) RETURNING id`
	if err := repo.db.QueryRowxContext(ctx, q, adm.Username, adm.PasswordHash).Scan(&adm.ID); err != nil {
		return account.Admin{}, errors.Wrap(err, "inserting admin")
	}
	return adm, nil
}
