package account

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/ujuzi/core"
)

var (
	// errors
	ErrNotFound    = errors.New("account not found")
	ErrEmailExists = errors.New("a student with this email already exists")
)

type (
	Repository interface {
		// students
		CheckStudentEmailUniqueness(ctx context.Context, email string, excluded ...Student) error
		CreateStudent(ctx context.Context, st Student, exec ...core.DBExecutor) (Student, error)
		QueryAllStudents(ctx context.Context) ([]Student, error)
		GetStudentByID(ctx context.Context, id int) (Student, error)
		GetStudentByEmail(ctx context.Context, email string) (Student, error)
		SetStudentLastLogin(ctx context.Context, id int, t time.Time) error
		CountStudents(ctx context.Context) (int, error)
		DeleteStudentProgress(ctx context.Context, studentID int, exec ...core.DBExecutor) (int, error)
		DeleteStudentEnrollments(ctx context.Context, studentID int, exec ...core.DBExecutor) (int, error)
		DeleteStudentByID(ctx context.Context, studentID int, exec ...core.DBExecutor) (int, error)

		// admins
		GetAdminByUsername(ctx context.Context, username string) (Admin, error)
		CreateAdmin(ctx context.Context, adm Admin) (Admin, error)
	}

	Service struct {
		db      core.DB
		repo    Repository
		mailSvc core.EmailService
		conf    *core.Config
	}
)

func NewService(db core.DB, repo Repository, mailSvc core.EmailService, conf *core.Config) *Service {
	return &Service{db: db, repo: repo, mailSvc: mailSvc, conf: conf}
}

func (svc *Service) CheckEmailUniqueness(email string) error {
	if err := svc.repo.CheckStudentEmailUniqueness(context.Background(), email); err != nil {
		if errors.Cause(err) == ErrEmailExists {
			return core.NewValidationError(err, core.FieldError{Field: "email", Error: err.Error()})
		}
		return err
	}
	return nil
}

// Register creates a new Student account and sends them a welcome email.
func (svc *Service) Register(ctx context.Context, ns NewStudent) (Student, error) {
	st := Student{
		Name:      ns.Name,
		Email:     ns.Email,
		CreatedAt: time.Now().UTC(),
	}
	if err := st.SetPassword(ns.Password); err != nil {
		return Student{}, errors.Wrap(err, "hashing password")
	}

	st, err := svc.repo.CreateStudent(ctx, st)
	if err != nil {
		return Student{}, errors.Wrap(err, "creating student")
	}

	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:      []mail.Address{{Name: st.Name, Address: st.Email}},
		Subject: "Welcome!",
		BodyStr: fmt.Sprintf(
			"Hi %s,\n\nYour %s account is ready. Log in and enroll in a course to start tracking your readiness.",
			st.Name, svc.conf.AppName,
		),
	})
	return st, nil
}

// AuthenticateStudent checks a student's credentials and stamps their last
// login on success.
func (svc *Service) AuthenticateStudent(ctx context.Context, email, pwd string) (Student, error) {
	st, err := svc.repo.GetStudentByEmail(ctx, core.CleanString(email, true /* lower */))
	if err != nil {
		return Student{}, err
	}
	if err = st.CheckPassword(pwd); err != nil {
		return Student{}, ErrNotFound
	}

	now := time.Now().UTC()
	if err = svc.repo.SetStudentLastLogin(ctx, st.ID, now); err != nil {
		return Student{}, errors.Wrap(err, "setting lastLogin")
	}
	st.LastLogin = now
	return st, nil
}

func (svc *Service) AuthenticateAdmin(ctx context.Context, username, pwd string) (Admin, error) {
	adm, err := svc.repo.GetAdminByUsername(ctx, core.CleanString(username, true /* lower */))
	if err != nil {
		return Admin{}, err
	}
	if err = adm.CheckPassword(pwd); err != nil {
		return Admin{}, ErrNotFound
	}
	return adm, nil
}

func (svc *Service) QueryAllStudents(ctx context.Context) ([]Student, error) {
	return svc.repo.QueryAllStudents(ctx)
}

func (svc *Service) GetStudentByID(ctx context.Context, id int) (Student, error) {
	return svc.repo.GetStudentByID(ctx, id)
}

func (svc *Service) CountStudents(ctx context.Context) (int, error) {
	return svc.repo.CountStudents(ctx)
}

// DeleteStudent removes a student together with their enrollment and progress
// rows in a single transaction, children first. A mid-sequence failure rolls
// everything back; the student is then reported as not deleted.
func (svc *Service) DeleteStudent(ctx context.Context, id int) error {
	tx, err := svc.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}

	if _, err = svc.repo.DeleteStudentProgress(ctx, id, tx); err != nil {
		_ = tx.Rollback()
		return errors.Wrap(err, "deleting student progress")
	}
	if _, err = svc.repo.DeleteStudentEnrollments(ctx, id, tx); err != nil {
		_ = tx.Rollback()
		return errors.Wrap(err, "deleting student enrollments")
	}
	n, err := svc.repo.DeleteStudentByID(ctx, id, tx)
	if err != nil {
		_ = tx.Rollback()
		return errors.Wrap(err, "deleting student")
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

// EnsureAdmin creates the admin account if it does not exist yet.
func (svc *Service) EnsureAdmin(ctx context.Context, username, pwd string) (Admin, error) {
	username = core.CleanString(username, true /* lower */)

	adm, err := svc.repo.GetAdminByUsername(ctx, username)
	if err == nil {
		return adm, nil
	}
	if errors.Cause(err) != ErrNotFound {
		return Admin{}, err
	}

	adm = Admin{Username: username}
	if err = adm.SetPassword(pwd); err != nil {
		return Admin{}, errors.Wrap(err, "hashing password")
	}
	return svc.repo.CreateAdmin(ctx, adm)
}
