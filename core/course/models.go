package course

import (
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/ujuzi/core"
)

// Course statuses
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

// Material kinds
const (
	KindText  = "TEXT"
	KindLink  = "LINK"
	KindFile  = "FILE"
	KindImage = "IMAGE"
)

// MaxTotalWeight caps the sum of material weights per course.
const MaxTotalWeight = 100

var Kinds = []string{KindText, KindLink, KindFile, KindImage}

type Course struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	ImageRef string `json:"image_ref,omitempty"`
	Status   string `json:"status"`
}

func (c Course) Active() bool { return c.Status == StatusActive }

type Material struct {
	ID       int    `json:"id"`
	CourseID int    `json:"course_id"`
	Title    string `json:"title"`
	Kind     string `json:"kind"`
	// Resource is inline text for TEXT, a URL for LINK and an upload
	// reference for FILE/IMAGE.
	Resource string `json:"resource"`
	Weight   int    `json:"weight"`
}

// NewCourse contains information needed to create a new Course.
type NewCourse struct {
	Name     string `json:"name" validate:"required"`
	ImageRef string `json:"image_ref"`
}

func (nc *NewCourse) Validate(validate *validator.Validate) error {
	nc.Name = core.CleanString(nc.Name)
	return validate.Struct(nc)
}

// NewMaterial defines a weight-gated material create/update payload.
type NewMaterial struct {
	Title    string `json:"title" validate:"required"`
	Kind     string `json:"kind" validate:"required,materialkind"`
	Resource string `json:"resource"`
	Weight   int    `json:"weight" validate:"min=0,max=100"`
}

func (nm *NewMaterial) Validate(validate *validator.Validate) error {
	nm.Title = core.CleanString(nm.Title)
	nm.Resource = core.CleanString(nm.Resource)
	return validate.Struct(nm)
}
