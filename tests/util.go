package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/trezcool/ujuzi/core/account"
	"github.com/trezcool/ujuzi/core/course"
	"github.com/trezcool/ujuzi/core/progress"
)

func CreateStudent(t *testing.T, repo account.Repository, name, email, pwd string) account.Student {
	t.Helper()

	st := account.Student{
		Name:      name,
		Email:     email,
		CreatedAt: time.Now().UTC(),
	}
	if pwd != "" {
		if err := st.SetPassword(pwd); err != nil {
			t.Fatalf("CreateStudent() failed: %v", err)
		}
	}
	st, err := repo.CreateStudent(context.Background(), st)
	if err != nil {
		t.Fatalf("CreateStudent() failed: %v", err)
	}
	return st
}

func CreateAdmin(t *testing.T, repo account.Repository, username, pwd string) account.Admin {
	t.Helper()

	adm := account.Admin{Username: username}
	if err := adm.SetPassword(pwd); err != nil {
		t.Fatalf("CreateAdmin() failed: %v", err)
	}
	adm, err := repo.CreateAdmin(context.Background(), adm)
	if err != nil {
		t.Fatalf("CreateAdmin() failed: %v", err)
	}
	return adm
}

func CreateCourse(t *testing.T, repo course.Repository, name string) course.Course {
	t.Helper()

	c, err := repo.CreateCourse(context.Background(), course.Course{Name: name, Status: course.StatusActive})
	if err != nil {
		t.Fatalf("CreateCourse() failed: %v", err)
	}
	return c
}

func CreateMaterial(t *testing.T, repo course.Repository, courseID int, title, kind string, weight int) course.Material {
	t.Helper()

	m, err := repo.CreateMaterial(context.Background(), course.Material{
		CourseID: courseID,
		Title:    title,
		Kind:     kind,
		Weight:   weight,
	})
	if err != nil {
		t.Fatalf("CreateMaterial() failed: %v", err)
	}
	return m
}

// Enroll enrolls via the service so progress rows get seeded the same way
// the API does it.
func Enroll(t *testing.T, svc *progress.Service, studentID, courseID int) {
	t.Helper()

	if err := svc.Enroll(context.Background(), studentID, courseID); err != nil {
		t.Fatalf("Enroll() failed: %v", err)
	}
}
