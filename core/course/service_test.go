package course_test

import (
	"context"
	"strings"
	"testing"

	"github.com/pkg/errors"

	"github.com/trezcool/ujuzi/core"
	"github.com/trezcool/ujuzi/core/course"
	"github.com/trezcool/ujuzi/core/progress"
	inmemdb "github.com/trezcool/ujuzi/storage/database/inmem"
)

type courseFixture struct {
	db       *inmemdb.DB
	repo     course.Repository
	progRepo progress.Repository
	svc      *course.Service
}

func newCourseFixture(t *testing.T) *courseFixture {
	t.Helper()
	db, err := inmemdb.Open()
	if err != nil {
		t.Fatalf("opening db: %v", err)
	}
	repo := inmemdb.NewCourseRepository(db)
	return &courseFixture{
		db:       db,
		repo:     repo,
		progRepo: inmemdb.NewProgressRepository(db),
		svc:      course.NewService(db, repo),
	}
}

func (f *courseFixture) createCourse(t *testing.T, name string) course.Course {
	t.Helper()
	c, err := f.svc.Create(context.Background(), course.NewCourse{Name: name})
	if err != nil {
		t.Fatalf("creating course: %v", err)
	}
	return c
}

func TestService_CreateMaterial(t *testing.T) {
	ctx := context.Background()
	f := newCourseFixture(t)
	c := f.createCourse(t, "Go Basics")

	newMat := func(title string, weight int) course.NewMaterial {
		return course.NewMaterial{Title: title, Kind: course.KindText, Weight: weight}
	}

	m1, err := f.svc.CreateMaterial(ctx, c.ID, newMat("Syntax", 40))
	if err != nil {
		t.Fatalf("CreateMaterial() failed: %v", err)
	}
	if m1.CourseID != c.ID {
		t.Errorf("material course = %d; expected %d", m1.CourseID, c.ID)
	}

	// exact fit is allowed
	if _, err = f.svc.CreateMaterial(ctx, c.ID, newMat("Concurrency", 60)); err != nil {
		t.Fatalf("CreateMaterial() failed: %v", err)
	}

	t.Run("budget exhausted", func(t *testing.T) {
		_, err := f.svc.CreateMaterial(ctx, c.ID, newMat("Extras", 10))
		vErr, ok := err.(*core.ValidationError)
		if !ok {
			t.Fatalf("CreateMaterial() error = %v; expected a validation error", err)
		}
		want := "current total 100, attempted 10"
		if len(vErr.Fields) != 1 || !strings.Contains(vErr.Fields[0].Error, want) {
			t.Errorf("validation fields = %+v; expected message containing %q", vErr.Fields, want)
		}

		total, err := f.svc.TotalWeight(ctx, c.ID)
		if err != nil {
			t.Fatalf("TotalWeight() failed: %v", err)
		}
		if total != 100 {
			t.Errorf("total weight = %d after rejected insert; expected 100", total)
		}
	})

	t.Run("zero weight always fits", func(t *testing.T) {
		if _, err := f.svc.CreateMaterial(ctx, c.ID, newMat("Optional reading", 0)); err != nil {
			t.Errorf("CreateMaterial() failed: %v", err)
		}
	})

	t.Run("unknown course", func(t *testing.T) {
		if _, err := f.svc.CreateMaterial(ctx, 999, newMat("Orphan", 10)); err != course.ErrNotFound {
			t.Errorf("CreateMaterial() error = %v; expected %v", err, course.ErrNotFound)
		}
	})
}

func TestService_UpdateMaterial(t *testing.T) {
	ctx := context.Background()
	f := newCourseFixture(t)
	c := f.createCourse(t, "Go Basics")

	m1, err := f.svc.CreateMaterial(ctx, c.ID, course.NewMaterial{Title: "Syntax", Kind: course.KindText, Weight: 40})
	if err != nil {
		t.Fatalf("CreateMaterial() failed: %v", err)
	}
	if _, err = f.svc.CreateMaterial(ctx, c.ID, course.NewMaterial{Title: "Concurrency", Kind: course.KindText, Weight: 60}); err != nil {
		t.Fatalf("CreateMaterial() failed: %v", err)
	}

	t.Run("own weight excluded from the check", func(t *testing.T) {
		// 40 -> 35 passes even though the course sits at 100
		got, err := f.svc.UpdateMaterial(ctx, m1.ID, course.NewMaterial{Title: "Syntax", Kind: course.KindText, Weight: 35})
		if err != nil {
			t.Fatalf("UpdateMaterial() failed: %v", err)
		}
		if got.Weight != 35 {
			t.Errorf("weight = %d; expected 35", got.Weight)
		}
	})

	t.Run("raise past the budget", func(t *testing.T) {
		_, err := f.svc.UpdateMaterial(ctx, m1.ID, course.NewMaterial{Title: "Syntax", Kind: course.KindText, Weight: 45})
		vErr, ok := err.(*core.ValidationError)
		if !ok {
			t.Fatalf("UpdateMaterial() error = %v; expected a validation error", err)
		}
		want := "current total 60, attempted 45"
		if len(vErr.Fields) != 1 || !strings.Contains(vErr.Fields[0].Error, want) {
			t.Errorf("validation fields = %+v; expected message containing %q", vErr.Fields, want)
		}
	})

	t.Run("empty resource keeps the stored one", func(t *testing.T) {
		stored, err := f.svc.UpdateMaterial(ctx, m1.ID, course.NewMaterial{Title: "Syntax", Kind: course.KindFile, Resource: "abc_notes.pdf", Weight: 35})
		if err != nil {
			t.Fatalf("UpdateMaterial() failed: %v", err)
		}
		if stored.Resource != "abc_notes.pdf" {
			t.Fatalf("resource = %q; expected abc_notes.pdf", stored.Resource)
		}

		stored, err = f.svc.UpdateMaterial(ctx, m1.ID, course.NewMaterial{Title: "Syntax v2", Kind: course.KindFile, Weight: 35})
		if err != nil {
			t.Fatalf("UpdateMaterial() failed: %v", err)
		}
		if stored.Resource != "abc_notes.pdf" {
			t.Errorf("resource = %q; expected the stored upload to survive", stored.Resource)
		}
	})

	t.Run("unknown material", func(t *testing.T) {
		_, err := f.svc.UpdateMaterial(ctx, 999, course.NewMaterial{Title: "Ghost", Kind: course.KindText, Weight: 1})
		if err != course.ErrMaterialNotFound {
			t.Errorf("UpdateMaterial() error = %v; expected %v", err, course.ErrMaterialNotFound)
		}
	})
}

func TestService_ToggleStatus(t *testing.T) {
	ctx := context.Background()
	f := newCourseFixture(t)
	c := f.createCourse(t, "Go Basics")

	toggled, err := f.svc.ToggleStatus(ctx, c.ID)
	if err != nil {
		t.Fatalf("ToggleStatus() failed: %v", err)
	}
	if toggled.Status != course.StatusInactive {
		t.Errorf("status = %q; expected %q", toggled.Status, course.StatusInactive)
	}

	toggled, err = f.svc.ToggleStatus(ctx, c.ID)
	if err != nil {
		t.Fatalf("ToggleStatus() failed: %v", err)
	}
	if toggled.Status != course.StatusActive {
		t.Errorf("status = %q; expected %q", toggled.Status, course.StatusActive)
	}

	if _, err = f.svc.ToggleStatus(ctx, 999); err != course.ErrNotFound {
		t.Errorf("ToggleStatus() error = %v; expected %v", err, course.ErrNotFound)
	}
}

func TestService_DeleteCourse(t *testing.T) {
	ctx := context.Background()
	f := newCourseFixture(t)
	c := f.createCourse(t, "Go Basics")
	m, err := f.svc.CreateMaterial(ctx, c.ID, course.NewMaterial{Title: "Syntax", Kind: course.KindText, Weight: 40})
	if err != nil {
		t.Fatalf("CreateMaterial() failed: %v", err)
	}

	studentID := 100
	if _, err = f.progRepo.CreateEnrollment(ctx, progress.Enrollment{StudentID: studentID, CourseID: c.ID}); err != nil {
		t.Fatalf("creating enrollment: %v", err)
	}
	if _, err = f.progRepo.CreateProgress(ctx, progress.Progress{StudentID: studentID, MaterialID: m.ID, Status: progress.StatusNotStarted}); err != nil {
		t.Fatalf("creating progress row: %v", err)
	}

	if err = f.svc.DeleteCourse(ctx, c.ID); err != nil {
		t.Fatalf("DeleteCourse() failed: %v", err)
	}

	if _, err = f.svc.GetByID(ctx, c.ID); err != course.ErrNotFound {
		t.Errorf("GetByID() error = %v; expected %v", err, course.ErrNotFound)
	}
	if _, err = f.svc.GetMaterial(ctx, m.ID); err != course.ErrMaterialNotFound {
		t.Errorf("GetMaterial() error = %v; expected %v", err, course.ErrMaterialNotFound)
	}
	enrolled, err := f.progRepo.IsEnrolled(ctx, studentID, c.ID)
	if err != nil {
		t.Fatalf("checking enrollment: %v", err)
	}
	if enrolled {
		t.Error("enrollment survived the course delete")
	}
	hasProgress, err := f.progRepo.HasProgress(ctx, studentID, m.ID)
	if err != nil {
		t.Fatalf("checking progress: %v", err)
	}
	if hasProgress {
		t.Error("progress row survived the course delete")
	}

	t.Run("unknown course", func(t *testing.T) {
		if err := f.svc.DeleteCourse(ctx, c.ID); err != course.ErrNotFound {
			t.Errorf("DeleteCourse() error = %v; expected %v", err, course.ErrNotFound)
		}
	})
}

// failingCourseRepo fails a single cascade step to exercise the rollback path.
type failingCourseRepo struct {
	course.Repository
}

func (repo failingCourseRepo) DeleteCourseEnrollments(ctx context.Context, courseID int, exec ...core.DBExecutor) (int, error) {
	return 0, errors.New("connection reset")
}

func TestService_DeleteCourse_rollsBackOnFailure(t *testing.T) {
	ctx := context.Background()
	f := newCourseFixture(t)
	c := f.createCourse(t, "Go Basics")
	m, err := f.svc.CreateMaterial(ctx, c.ID, course.NewMaterial{Title: "Syntax", Kind: course.KindText, Weight: 40})
	if err != nil {
		t.Fatalf("CreateMaterial() failed: %v", err)
	}
	studentID := 100
	if _, err = f.progRepo.CreateProgress(ctx, progress.Progress{StudentID: studentID, MaterialID: m.ID, Status: progress.StatusNotStarted}); err != nil {
		t.Fatalf("creating progress row: %v", err)
	}

	svc := course.NewService(f.db, failingCourseRepo{Repository: f.repo})
	if err = svc.DeleteCourse(ctx, c.ID); err == nil {
		t.Fatal("DeleteCourse() succeeded; expected the injected failure")
	}

	// earlier cascade steps must be undone
	if _, err = f.svc.GetMaterial(ctx, m.ID); err != nil {
		t.Errorf("GetMaterial() error = %v; material must survive the aborted delete", err)
	}
	hasProgress, err := f.progRepo.HasProgress(ctx, studentID, m.ID)
	if err != nil {
		t.Fatalf("checking progress: %v", err)
	}
	if !hasProgress {
		t.Error("progress row lost in the aborted delete")
	}
}

func TestService_DeleteMaterial(t *testing.T) {
	ctx := context.Background()
	f := newCourseFixture(t)
	c := f.createCourse(t, "Go Basics")
	m, err := f.svc.CreateMaterial(ctx, c.ID, course.NewMaterial{Title: "Syntax", Kind: course.KindText, Weight: 40})
	if err != nil {
		t.Fatalf("CreateMaterial() failed: %v", err)
	}

	studentID := 100
	if _, err = f.progRepo.CreateEnrollment(ctx, progress.Enrollment{StudentID: studentID, CourseID: c.ID}); err != nil {
		t.Fatalf("creating enrollment: %v", err)
	}
	if _, err = f.progRepo.CreateProgress(ctx, progress.Progress{StudentID: studentID, MaterialID: m.ID, Status: progress.StatusNotStarted}); err != nil {
		t.Fatalf("creating progress row: %v", err)
	}

	if err = f.svc.DeleteMaterial(ctx, m.ID); err != nil {
		t.Fatalf("DeleteMaterial() failed: %v", err)
	}

	if _, err = f.svc.GetMaterial(ctx, m.ID); err != course.ErrMaterialNotFound {
		t.Errorf("GetMaterial() error = %v; expected %v", err, course.ErrMaterialNotFound)
	}
	hasProgress, err := f.progRepo.HasProgress(ctx, studentID, m.ID)
	if err != nil {
		t.Fatalf("checking progress: %v", err)
	}
	if hasProgress {
		t.Error("progress row survived the material delete")
	}

	// the enrollment is course-level and stays
	enrolled, err := f.progRepo.IsEnrolled(ctx, studentID, c.ID)
	if err != nil {
		t.Fatalf("checking enrollment: %v", err)
	}
	if !enrolled {
		t.Error("enrollment removed by a material delete")
	}

	t.Run("unknown material", func(t *testing.T) {
		if err := f.svc.DeleteMaterial(ctx, m.ID); err != course.ErrMaterialNotFound {
			t.Errorf("DeleteMaterial() error = %v; expected %v", err, course.ErrMaterialNotFound)
		}
	})
}
