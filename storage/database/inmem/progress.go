package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/ujuzi/core"
	"github.com/trezcool/ujuzi/core/account"
	"github.com/trezcool/ujuzi/core/progress"
)

type progressRepository struct {
	db *DB
}

var _ progress.Repository = (*progressRepository)(nil) // interface compliance check

func NewProgressRepository(db *DB) *progressRepository {
	return &progressRepository{db: db}
}

func (repo *progressRepository) IsEnrolled(ctx context.Context, studentID, courseID int, exec ...core.DBExecutor) (bool, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, e := range repo.db.enrollments {
		if e.StudentID == studentID && e.CourseID == courseID {
			return true, nil
		}
	}
	return false, nil
}

func (repo *progressRepository) CreateEnrollment(ctx context.Context, e progress.Enrollment, exec ...core.DBExecutor) (progress.Enrollment, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	e.ID = repo.db.nextPK()
	repo.db.enrollments[e.ID] = &e
	return e, nil
}

func (repo *progressRepository) EnrolledCourseIDs(ctx context.Context, studentID int) ([]int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var ids []int
	for _, e := range repo.db.enrollments {
		if e.StudentID == studentID {
			ids = append(ids, e.CourseID)
		}
	}
	sort.Ints(ids)
	return ids, nil
}

func (repo *progressRepository) EnrolledStudentIDs(ctx context.Context, courseID int, exec ...core.DBExecutor) ([]int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var ids []int
	for _, e := range repo.db.enrollments {
		if e.CourseID == courseID {
			ids = append(ids, e.StudentID)
		}
	}
	sort.Ints(ids)
	return ids, nil
}

func (repo *progressRepository) EnrolledStudents(ctx context.Context, courseID int) ([]account.Student, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var students []account.Student
	for _, e := range repo.db.enrollments {
		if e.CourseID != courseID {
			continue
		}
		if st, ok := repo.db.students[e.StudentID]; ok {
			students = append(students, *st)
		}
	}
	sort.Slice(students, func(i, j int) bool { return students[i].ID < students[j].ID })
	return students, nil
}

func (repo *progressRepository) CountEnrolledStudents(ctx context.Context) (int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	seen := make(map[int]bool)
	for _, e := range repo.db.enrollments {
		seen[e.StudentID] = true
	}
	return len(seen), nil
}

func (repo *progressRepository) HasProgress(ctx context.Context, studentID, materialID int, exec ...core.DBExecutor) (bool, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, p := range repo.db.progress {
		if p.StudentID == studentID && p.MaterialID == materialID {
			return true, nil
		}
	}
	return false, nil
}

func (repo *progressRepository) CreateProgress(ctx context.Context, p progress.Progress, exec ...core.DBExecutor) (progress.Progress, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	p.ID = repo.db.nextPK()
	repo.db.progress[p.ID] = &p
	return p, nil
}

func (repo *progressRepository) SetStatus(ctx context.Context, studentID, materialID int, status string) (int, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, p := range repo.db.progress {
		if p.StudentID == studentID && p.MaterialID == materialID {
			p.Status = status
			return 1, nil
		}
	}
	return 0, nil
}

func (repo *progressRepository) StatusesByStudentAndCourse(ctx context.Context, studentID, courseID int) (map[int]string, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	statuses := make(map[int]string)
	for _, p := range repo.db.progress {
		if p.StudentID != studentID {
			continue
		}
		if m, ok := repo.db.materials[p.MaterialID]; ok && m.CourseID == courseID {
			statuses[p.MaterialID] = p.Status
		}
	}
	return statuses, nil
}
