package course

import (
	"encoding/json"

	"github.com/trezcool/elimu/core"
)

// Unit types
const (
	UnitLecture = "lecture"
	UnitSeminar = "seminar"
	UnitTest    = "test"
)

var unitTypes = []string{UnitLecture, UnitSeminar, UnitTest}

// unitTypeOrder fixes the display order of units within a block.
var unitTypeOrder = map[string]int{UnitLecture: 0, UnitSeminar: 1, UnitTest: 2}

func init() {
	core.RegisterEnumValidation("unittype", "must be one of: lecture, seminar, test", unitTypes...)
}

type (
	Course struct {
		ID          string `json:"course_id"`
		Name        string `json:"name"`
		Description string `json:"description,omitempty"`
		LectorID    string `json:"lector_id"`
	}

	// Group links a student cohort to a course section and its seminarist.
	Group struct {
		GroupID      string `json:"group_id"`
		CourseID     string `json:"course_id"`
		SeminaristID string `json:"seminarist_id"`
	}

	Block struct {
		ID       string `json:"block_id"`
		CourseID string `json:"course_id"`
		Name     string `json:"name"`
	}

	Unit struct {
		ID       int    `json:"unit_id"`
		BlockID  string `json:"block_id"`
		CourseID string `json:"course_id"`
		Name     string `json:"name"`
		Type     string `json:"type"`
		Content  string `json:"content"` // opaque: text, or {"test_id": …} for test units
	}
)

// UnitContent is the tagged union behind Unit.Content: test units reference a
// test, all other units carry plain text.
type UnitContent struct {
	TestID string `json:"test_id,omitempty"`
	Text   string `json:"-"`
}

// ParseContent decodes a unit's opaque content field.
func (u Unit) ParseContent() UnitContent {
	if u.Type == UnitTest {
		var uc UnitContent
		if err := json.Unmarshal([]byte(u.Content), &uc); err == nil {
			return uc
		}
	}
	return UnitContent{Text: u.Content}
}

// TestID returns the referenced test id for test units, or "".
func (u Unit) TestID() string {
	return u.ParseContent().TestID
}

func (uc UnitContent) serialize() (string, error) {
	if uc.TestID != "" {
		raw, err := json.Marshal(uc)
		return string(raw), err
	}
	return uc.Text, nil
}

type NewGroup struct {
	GroupID      string `json:"group_id" validate:"required"`
	SeminaristID string `json:"seminarist_id" validate:"required"`
}

// NewCourse contains information needed to create a new Course.
type NewCourse struct {
	Name        string     `json:"name" validate:"required,min=3,max=100"`
	Description string     `json:"description" validate:"omitempty,max=500"`
	LectorID    string     `json:"lector_id" validate:"required"`
	Groups      []NewGroup `json:"groups" validate:"required,dive"`
}

func (nc *NewCourse) Validate() error {
	nc.Name = core.CleanString(nc.Name)
	nc.Description = core.CleanString(nc.Description)
	return core.Validate.Struct(nc)
}

// UpdateCourse defines what may be modified on an existing Course.
// LectorID and Groups may only be set by the lecturer or an admin.
type UpdateCourse struct {
	Name        string     `json:"name" validate:"omitempty,min=3,max=100"`
	Description string     `json:"description" validate:"omitempty,max=500"`
	LectorID    string     `json:"lector_id"`
	Groups      []NewGroup `json:"groups" validate:"omitempty,dive"`
}

func (uc *UpdateCourse) Validate() error {
	uc.Name = core.CleanString(uc.Name)
	uc.Description = core.CleanString(uc.Description)
	return core.Validate.Struct(uc)
}

type NewBlock struct {
	Name string `json:"name" validate:"required,min=3,max=100"`
}

func (nb *NewBlock) Validate() error {
	nb.Name = core.CleanString(nb.Name)
	return core.Validate.Struct(nb)
}

// NewUnit carries the tagged content union: test units must reference a test id,
// all other types carry text.
type NewUnit struct {
	Name   string `json:"name" validate:"required,min=1,max=255"`
	Type   string `json:"type" validate:"required,unittype"`
	Text   string `json:"text"`
	TestID string `json:"test_id"`
}

func (nu *NewUnit) Validate() error {
	nu.Name = core.CleanString(nu.Name)
	nu.TestID = core.CleanString(nu.TestID)
	if err := core.Validate.Struct(nu); err != nil {
		return err
	}
	if nu.Type == UnitTest {
		if nu.TestID == "" {
			return core.NewValidationError(nil, core.FieldError{Field: "test_id", Error: "required for test units"})
		}
	} else if nu.Text == "" {
		return core.NewValidationError(nil, core.FieldError{Field: "text", Error: "required for non-test units"})
	}
	return nil
}

func (nu NewUnit) content() (string, error) {
	if nu.Type == UnitTest {
		return UnitContent{TestID: nu.TestID}.serialize()
	}
	return nu.Text, nil
}

// QueryFilter paginates and searches course/student listings.
type QueryFilter struct {
	Search string `query:"search"`
	Limit  int    `query:"limit"`
	Offset int    `query:"offset"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	if qf.Limit <= 0 {
		qf.Limit = 20
	} else if qf.Limit > 100 {
		qf.Limit = 100
	}
	if qf.Offset < 0 {
		qf.Offset = 0
	}
}

// Read models

type TeacherInfo struct {
	ID        string `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type CourseInfo struct {
	Course
	Lector     TeacherInfo  `json:"lector"`
	Seminarist *TeacherInfo `json:"seminarist,omitempty"` // the student's own section
}

type UnitSummary struct {
	ID   int    `json:"unit_id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

type BlockDetails struct {
	ID    string        `json:"block_id"`
	Name  string        `json:"name"`
	Units []UnitSummary `json:"units"`
}

type CourseDetails struct {
	ID          string        `json:"course_id"`
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
	Lector      TeacherInfo   `json:"lector"`
	Seminarist  *TeacherInfo  `json:"seminarist,omitempty"`  // student view
	Seminarists []TeacherInfo `json:"seminarists,omitempty"` // admin/teacher view
	Blocks      []BlockDetails `json:"blocks"`
}

type UnitDetails struct {
	Name    string      `json:"name"`
	Type    string      `json:"type"`
	Content interface{} `json:"content"`
}
