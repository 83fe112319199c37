package echoapi_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	echoapi "github.com/trezcool/ujuzi/apps/api/echo"
	"github.com/trezcool/ujuzi/core/course"
	"github.com/trezcool/ujuzi/core/progress"
	testutil "github.com/trezcool/ujuzi/tests"
)

func Test_progressApi_enroll(t *testing.T) {
	ta := newTestApp(t)

	student := testutil.CreateStudent(t, ta.accountRepo, "Asha", "asha@test.test", "s3cr3t!")
	admin := testutil.CreateAdmin(t, ta.accountRepo, "root", "adm1n!!")
	token := ta.getStudentToken(t, student)

	c := testutil.CreateCourse(t, ta.courseRepo, "Algebra")
	testutil.CreateMaterial(t, ta.courseRepo, c.ID, "Ch 1", course.KindText, 40)
	testutil.CreateMaterial(t, ta.courseRepo, c.ID, "Ch 2", course.KindText, 60)

	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Students only", token: ta.getAdminToken(t, admin), wantCode: http.StatusForbidden,
			body:     marchallObj(t, echoapi.EnrollRequest{CourseID: c.ID}),
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "required fields", token: token, wantCode: http.StatusBadRequest,
			body:     marchallObj(t, echoapi.EnrollRequest{}),
			wantData: marchallObj(t, map[string]string{"course_id": "this field is required"}),
		},
		{
			name: "unknown course", token: token, wantCode: http.StatusNotFound,
			body:     marchallObj(t, echoapi.EnrollRequest{CourseID: 404}),
			wantData: marchallObj(t, httpErr{Error: "course not found"}),
		},
		{name: "enrolled", token: token, wantCode: http.StatusCreated, body: marchallObj(t, echoapi.EnrollRequest{CourseID: c.ID})},
		{name: "enrolling twice is a no-op", token: token, wantCode: http.StatusCreated, body: marchallObj(t, echoapi.EnrollRequest{CourseID: c.ID})},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/enrollments"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			ta.app.ServeHTTP(rec, req)

			if tt.wantCode == http.StatusCreated {
				if rec.Code != tt.wantCode {
					t.Fatalf("failed! code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}

	// seeded rows for every material
	statuses, err := ta.progressRepo.StatusesByStudentAndCourse(context.Background(), student.ID, c.ID)
	if err != nil {
		t.Fatalf("StatusesByStudentAndCourse(): %v", err)
	}
	if len(statuses) != 2 {
		t.Errorf("len(statuses) = %d; want 2", len(statuses))
	}
	for id, st := range statuses {
		if st != progress.StatusNotStarted {
			t.Errorf("statuses[%d] = %q; want %q", id, st, progress.StatusNotStarted)
		}
	}
}

func Test_progressApi_setProgress(t *testing.T) {
	ta := newTestApp(t)

	student := testutil.CreateStudent(t, ta.accountRepo, "Asha", "asha@test.test", "s3cr3t!")
	token := ta.getStudentToken(t, student)

	c := testutil.CreateCourse(t, ta.courseRepo, "Algebra")
	m := testutil.CreateMaterial(t, ta.courseRepo, c.ID, "Ch 1", course.KindText, 40)
	testutil.CreateMaterial(t, ta.courseRepo, c.ID, "Ch 2", course.KindText, 60)
	testutil.Enroll(t, ta.progressSvc, student.ID, c.ID)

	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "required fields", token: token, wantCode: http.StatusBadRequest,
			body: marchallObj(t, echoapi.SetProgressRequest{}),
			wantData: marchallObj(t, map[string]string{
				"material_id": "this field is required",
				"status":      "this field is required",
			}),
		},
		{
			name: "unknown status", token: token, wantCode: http.StatusBadRequest,
			body:     marchallObj(t, echoapi.SetProgressRequest{MaterialID: m.ID, Status: "Done-ish"}),
			wantData: marchallObj(t, map[string]string{"status": "unknown progress status"}),
		},
		{
			name: "unknown material", token: token, wantCode: http.StatusNotFound,
			body:     marchallObj(t, echoapi.SetProgressRequest{MaterialID: 404, Status: progress.StatusCompleted}),
			wantData: marchallObj(t, httpErr{Error: "progress not found"}),
		},
		{
			name: "completed", token: token, wantCode: http.StatusNoContent,
			body: marchallObj(t, echoapi.SetProgressRequest{MaterialID: m.ID, Status: "completed"}),
		},
		{
			name: "back to not started", token: token, wantCode: http.StatusNoContent,
			body: marchallObj(t, echoapi.SetProgressRequest{MaterialID: m.ID, Status: "NOT STARTED"}),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodPut
		tt.path = "/v1/me/progress"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			ta.app.ServeHTTP(rec, req)

			if tt.wantCode == http.StatusNoContent {
				if rec.Code != tt.wantCode {
					t.Fatalf("failed! code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_progressApi_courseReadiness(t *testing.T) {
	ta := newTestApp(t)

	student := testutil.CreateStudent(t, ta.accountRepo, "Asha", "asha@test.test", "s3cr3t!")
	token := ta.getStudentToken(t, student)

	c := testutil.CreateCourse(t, ta.courseRepo, "Algebra")
	m1 := testutil.CreateMaterial(t, ta.courseRepo, c.ID, "Ch 1", course.KindText, 40)
	m2 := testutil.CreateMaterial(t, ta.courseRepo, c.ID, "Ch 2", course.KindText, 60)
	testutil.Enroll(t, ta.progressSvc, student.ID, c.ID)

	path := fmt.Sprintf("/v1/me/courses/%d/readiness", c.ID)

	getReadiness := func(t *testing.T) echoapi.ReadinessResponse {
		req, rec := newAuthRequest(http.MethodGet, path, token)
		ta.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; want %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
		}
		var resp echoapi.ReadinessResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("json.Unmarshal(): %v", err)
		}
		return resp
	}

	complete := func(t *testing.T, materialID int) {
		body := marchallObj(t, echoapi.SetProgressRequest{MaterialID: materialID, Status: progress.StatusCompleted})
		req, rec := newAuthRequest(http.MethodPut, "/v1/me/progress", token, body)
		ta.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("code = %v; want %v; body %s", rec.Code, http.StatusNoContent, rec.Body.String())
		}
	}

	if resp := getReadiness(t); resp.Readiness != 0 || resp.CompletionPercent != 0 {
		t.Errorf("fresh enrollment: %+v", resp)
	}

	complete(t, m1.ID)
	if resp := getReadiness(t); resp.Readiness != 40 || resp.CompletionPercent != 50 {
		t.Errorf("after first material: %+v", resp)
	}

	complete(t, m2.ID)
	if resp := getReadiness(t); resp.Readiness != 100 || resp.CompletionPercent != 100 {
		t.Errorf("after all materials: %+v", resp)
	}

	t.Run("unknown course", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/me/courses/404/readiness", token)
		ta.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusNotFound {
			t.Errorf("code = %v; want %v", rec.Code, http.StatusNotFound)
		}
	})
}

func Test_progressApi_myCourses(t *testing.T) {
	ta := newTestApp(t)

	student := testutil.CreateStudent(t, ta.accountRepo, "Asha", "asha@test.test", "s3cr3t!")
	token := ta.getStudentToken(t, student)

	algebra := testutil.CreateCourse(t, ta.courseRepo, "Algebra")
	biology := testutil.CreateCourse(t, ta.courseRepo, "Biology")
	testutil.CreateCourse(t, ta.courseRepo, "Chemistry") // not enrolled
	testutil.CreateMaterial(t, ta.courseRepo, algebra.ID, "Ch 1", course.KindText, 100)
	testutil.Enroll(t, ta.progressSvc, student.ID, algebra.ID)
	testutil.Enroll(t, ta.progressSvc, student.ID, biology.ID)

	req, rec := newAuthRequest(http.MethodGet, "/v1/me/courses", token)
	ta.app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %v; want %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
	}

	var courses []echoapi.CourseSummary
	if err := json.Unmarshal(rec.Body.Bytes(), &courses); err != nil {
		t.Fatalf("json.Unmarshal(): %v", err)
	}
	ids := make([]int, 0, len(courses))
	for _, cs := range courses {
		ids = append(ids, cs.Course.ID)
	}
	assert.ElementsMatch(t, []int{algebra.ID, biology.ID}, ids)
}
