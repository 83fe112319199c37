package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/trezcool/ujuzi/core"
	"github.com/trezcool/ujuzi/core/account"
)

type accountRepository struct {
	db *DB
}

var _ account.Repository = (*accountRepository)(nil) // interface compliance check

func NewAccountRepository(db *DB) *accountRepository {
	return &accountRepository{db: db}
}

func (repo *accountRepository) CheckStudentEmailUniqueness(ctx context.Context, email string, excluded ...account.Student) error {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, st := range repo.db.students {
		if st.Email != email {
			continue
		}
		isExcluded := false
		for _, ex := range excluded {
			if ex.ID == st.ID {
				isExcluded = true
				break
			}
		}
		if !isExcluded {
			return account.ErrEmailExists
		}
	}
	return nil
}

func (repo *accountRepository) CreateStudent(ctx context.Context, st account.Student, exec ...core.DBExecutor) (account.Student, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, existing := range repo.db.students {
		if existing.Email == st.Email {
			return account.Student{}, account.ErrEmailExists
		}
	}
	st.ID = repo.db.nextPK()
	repo.db.students[st.ID] = &st
	return st, nil
}

func (repo *accountRepository) QueryAllStudents(ctx context.Context) ([]account.Student, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	students := make([]account.Student, 0, len(repo.db.students))
	for _, st := range repo.db.students {
		students = append(students, *st)
	}
	sort.Slice(students, func(i, j int) bool { return students[i].ID < students[j].ID })
	return students, nil
}

func (repo *accountRepository) GetStudentByID(ctx context.Context, id int) (account.Student, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if st, ok := repo.db.students[id]; ok {
		return *st, nil
	}
	return account.Student{}, account.ErrNotFound
}

func (repo *accountRepository) GetStudentByEmail(ctx context.Context, email string) (account.Student, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, st := range repo.db.students {
		if st.Email == email {
			return *st, nil
		}
	}
	return account.Student{}, account.ErrNotFound
}

func (repo *accountRepository) SetStudentLastLogin(ctx context.Context, id int, t time.Time) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if st, ok := repo.db.students[id]; ok {
		st.LastLogin = t
	}
	return nil
}

func (repo *accountRepository) CountStudents(ctx context.Context) (int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return len(repo.db.students), nil
}

func (repo *accountRepository) DeleteStudentProgress(ctx context.Context, studentID int, exec ...core.DBExecutor) (int, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	var n int
	for id, p := range repo.db.progress {
		if p.StudentID == studentID {
			delete(repo.db.progress, id)
			n++
		}
	}
	return n, nil
}

func (repo *accountRepository) DeleteStudentEnrollments(ctx context.Context, studentID int, exec ...core.DBExecutor) (int, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	var n int
	for id, e := range repo.db.enrollments {
		if e.StudentID == studentID {
			delete(repo.db.enrollments, id)
			n++
		}
	}
	return n, nil
}

func (repo *accountRepository) DeleteStudentByID(ctx context.Context, studentID int, exec ...core.DBExecutor) (int, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.students[studentID]; !ok {
		return 0, nil
	}
	delete(repo.db.students, studentID)
	return 1, nil
}

func (repo *accountRepository) GetAdminByUsername(ctx context.Context, username string) (account.Admin, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, adm := range repo.db.admins {
		if adm.Username == username {
			return *adm, nil
		}
	}
	return account.Admin{}, account.ErrNotFound
}

func (repo *accountRepository) CreateAdmin(ctx context.Context, adm account.Admin) (account.Admin, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	adm.ID = repo.db.nextPK()
	repo.db.admins[adm.ID] = &adm
	return adm, nil
}
