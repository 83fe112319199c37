package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/ujuzi/core"
	"github.com/trezcool/ujuzi/core/course"
)

type courseRepository struct {
	db *DB
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *DB) *courseRepository {
	return &courseRepository{db: db}
}

func (repo *courseRepository) CreateCourse(ctx context.Context, c course.Course) (course.Course, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	c.ID = repo.db.nextPK()
	repo.db.courses[c.ID] = &c
	return c, nil
}

func (repo *courseRepository) QueryAllCourses(ctx context.Context) ([]course.Course, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	courses := make([]course.Course, 0, len(repo.db.courses))
	for _, c := range repo.db.courses {
		courses = append(courses, *c)
	}
	sort.Slice(courses, func(i, j int) bool { return courses[i].ID < courses[j].ID })
	return courses, nil
}

func (repo *courseRepository) GetCourseByID(ctx context.Context, id int) (course.Course, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if c, ok := repo.db.courses[id]; ok {
		return *c, nil
	}
	return course.Course{}, course.ErrNotFound
}

func (repo *courseRepository) UpdateCourseStatus(ctx context.Context, id int, status string) (int, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	c, ok := repo.db.courses[id]
	if !ok {
		return 0, nil
	}
	c.Status = status
	return 1, nil
}

func (repo *courseRepository) CountCourses(ctx context.Context) (total, active int, err error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, c := range repo.db.courses {
		total++
		if c.Active() {
			active++
		}
	}
	return total, active, nil
}

func (repo *courseRepository) CreateMaterial(ctx context.Context, m course.Material, exec ...core.DBExecutor) (course.Material, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	m.ID = repo.db.nextPK()
	repo.db.materials[m.ID] = &m
	return m, nil
}

func (repo *courseRepository) UpdateMaterial(ctx context.Context, m course.Material, exec ...core.DBExecutor) (int, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.materials[m.ID]
	if !ok {
		return 0, nil
	}
	m.CourseID = orig.CourseID
	repo.db.materials[m.ID] = &m
	return 1, nil
}

func (repo *courseRepository) GetMaterialByID(ctx context.Context, id int) (course.Material, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if m, ok := repo.db.materials[id]; ok {
		return *m, nil
	}
	return course.Material{}, course.ErrMaterialNotFound
}

func (repo *courseRepository) MaterialsByCourseID(ctx context.Context, courseID int, exec ...core.DBExecutor) ([]course.Material, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var materials []course.Material
	for _, m := range repo.db.materials {
		if m.CourseID == courseID {
			materials = append(materials, *m)
		}
	}
	sort.Slice(materials, func(i, j int) bool { return materials[i].ID < materials[j].ID })
	return materials, nil
}

func (repo *courseRepository) TotalWeight(ctx context.Context, courseID int) (int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var total int
	for _, m := range repo.db.materials {
		if m.CourseID == courseID {
			total += m.Weight
		}
	}
	return total, nil
}

func (repo *courseRepository) DeleteCourseProgress(ctx context.Context, courseID int, exec ...core.DBExecutor) (int, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	var n int
	for id, p := range repo.db.progress {
		if m, ok := repo.db.materials[p.MaterialID]; ok && m.CourseID == courseID {
			delete(repo.db.progress, id)
			n++
		}
	}
	return n, nil
}

func (repo *courseRepository) DeleteCourseMaterials(ctx context.Context, courseID int, exec ...core.DBExecutor) (int, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	var n int
	for id, m := range repo.db.materials {
		if m.CourseID == courseID {
			delete(repo.db.materials, id)
			n++
		}
	}
	return n, nil
}

func (repo *courseRepository) DeleteCourseEnrollments(ctx context.Context, courseID int, exec ...core.DBExecutor) (int, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	var n int
	for id, e := range repo.db.enrollments {
		if e.CourseID == courseID {
			delete(repo.db.enrollments, id)
			n++
		}
	}
	return n, nil
}

func (repo *courseRepository) DeleteCourseByID(ctx context.Context, courseID int, exec ...core.DBExecutor) (int, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.courses[courseID]; !ok {
		return 0, nil
	}
	delete(repo.db.courses, courseID)
	return 1, nil
}

func (repo *courseRepository) DeleteMaterialProgress(ctx context.Context, materialID int, exec ...core.DBExecutor) (int, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	var n int
	for id, p := range repo.db.progress {
		if p.MaterialID == materialID {
			delete(repo.db.progress, id)
			n++
		}
	}
	return n, nil
}

func (repo *courseRepository) DeleteMaterialByID(ctx context.Context, materialID int, exec ...core.DBExecutor) (int, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.materials[materialID]; !ok {
		return 0, nil
	}
	delete(repo.db.materials, materialID)
	return 1, nil
}
