package progress

import (
	"strings"

	"github.com/trezcool/ujuzi/core/course"
)

// Progress statuses. Reads are case-insensitive but rows only ever hold
// these canonical spellings.
const (
	StatusNotStarted = "Not Started"
	StatusCompleted  = "Completed"
)

// NormalizeStatus maps a caller-supplied status to its canonical spelling.
func NormalizeStatus(s string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case strings.ToLower(StatusNotStarted):
		return StatusNotStarted, true
	case strings.ToLower(StatusCompleted):
		return StatusCompleted, true
	}
	return "", false
}

// Enrollment ties a student to a course. The (student, course) pair is
// unique; re-enrolling is a no-op.
type Enrollment struct {
	ID        int `json:"id"`
	StudentID int `json:"student_id"`
	CourseID  int `json:"course_id"`
}

// Progress is one student's status on one material. Rows are seeded at
// StatusNotStarted on enrollment and whenever a material is added to an
// enrolled course.
type Progress struct {
	ID         int    `json:"id"`
	StudentID  int    `json:"student_id"`
	MaterialID int    `json:"material_id"`
	Status     string `json:"status"`
}

// Completed reports whether the row is completed. The comparison ignores
// case; rows written by other tools may not carry the canonical spelling.
func (p Progress) Completed() bool { return strings.EqualFold(p.Status, StatusCompleted) }

// MaterialProgress pairs a material with the student's status on it.
type MaterialProgress struct {
	Material course.Material `json:"material"`
	Status   string          `json:"status"`
}

// CourseProgress is a student's standing in one course: the weighted
// readiness score, the count-based completion percentage and the
// per-material breakdown.
type CourseProgress struct {
	Course            course.Course      `json:"course"`
	Readiness         float64            `json:"readiness"`
	CompletionPercent int                `json:"completion_percent"`
	Materials         []MaterialProgress `json:"materials"`
}
