// Package sop implements the Student Opinion Poll: end-of-term survey
// submissions and their aggregation into per-question answer distributions.
package sop

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/trezcool/elimu/core"
)

// Block types: which part of the course a survey block rates.
const (
	BlockCourse     = "course"
	BlockLecturer   = "lecturer"
	BlockSeminarist = "seminarist"
)

// Answer kinds
const (
	AnswerRating = "rating"
	AnswerText   = "text"
)

var blockTypes = []string{BlockCourse, BlockLecturer, BlockSeminarist}

func init() {
	core.RegisterEnumValidation("blocktype", "must be one of: course, lecturer, seminarist", blockTypes...)
}

// teacherBlock tells whether a block type targets a specific teacher.
func teacherBlock(blockType string) bool {
	return blockType == BlockLecturer || blockType == BlockSeminarist
}

type (
	// Set is one submission event by a user; at most one live Set per user.
	Set struct {
		ID           int       `json:"set_id"`
		UserID       string    `json:"user_id"`
		CreationTime time.Time `json:"creation_time"` // UTC
	}

	// SetBlock holds the answers for one block-type/course/teacher combination
	// within a submission, as an opaque serialized payload.
	SetBlock struct {
		SetID    int    `json:"set_id"`
		CourseID string `json:"course_id"`
		Type     string `json:"type"`
		UserID   string `json:"user_id"`
		Content  string `json:"content"`
	}

	// BlockContent is the payload serialized into SetBlock.Content.
	BlockContent struct {
		TeacherID        string `json:"teacher_id,omitempty"`
		QuestionsAnswers []QA   `json:"questions_answers"`
	}

	// QA is one answered question; Answer is a number for rating entries and a
	// string for text entries.
	QA struct {
		Question string          `json:"question"`
		Type     string          `json:"type"`
		Answer   json.RawMessage `json:"answer"`
	}
)

// Rating returns the numeric answer value of a rating entry.
func (qa QA) Rating() (int, bool) {
	if qa.Type != AnswerRating {
		return 0, false
	}
	v, err := strconv.Atoi(string(qa.Answer))
	if err != nil {
		return 0, false
	}
	return v, true
}

// Text returns the free-text answer of a text entry.
func (qa QA) Text() (string, bool) {
	if qa.Type != AnswerText {
		return "", false
	}
	var s string
	if err := json.Unmarshal(qa.Answer, &s); err != nil {
		return "", false
	}
	return s, true
}

// Submission is one user's full survey: answers per course, per block type.
type (
	Submission struct {
		Courses []CourseSubmission `json:"courses" validate:"required,dive"`
	}

	CourseSubmission struct {
		CourseID string            `json:"course_id" validate:"required"`
		Blocks   []BlockSubmission `json:"blocks" validate:"required,dive"`
	}

	BlockSubmission struct {
		BlockType        string `json:"block_type" validate:"required,blocktype"`
		TeacherID        string `json:"teacher_id"`
		QuestionsAnswers []QA   `json:"questions_answers" validate:"required"`
	}
)

func (s *Submission) Validate() error {
	if err := core.Validate.Struct(s); err != nil {
		return err
	}
	for _, crs := range s.Courses {
		for _, blk := range crs.Blocks {
			if teacherBlock(blk.BlockType) && blk.TeacherID == "" {
				return core.NewValidationError(nil,
					core.FieldError{Field: "teacher_id", Error: "required for lecturer and seminarist blocks"})
			}
		}
	}
	return nil
}

// Aggregation read models

type (
	AnswerCount struct {
		Answer int `json:"answer"`
		Count  int `json:"count"`
	}

	QuestionResult struct {
		Question string        `json:"question"`
		Answers  []AnswerCount `json:"answers"`
	}

	Comment struct {
		Question string `json:"question"`
		Answer   string `json:"answer"`
	}

	// Results is an aggregate over a selection of SetBlocks: a rating
	// distribution per question plus the verbatim free-text comments.
	Results struct {
		Questions []QuestionResult `json:"questions"`
		Comments  []Comment        `json:"text_comments"`
	}

	TeacherResults struct {
		TeacherID string `json:"teacher_id"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
		Results   Results `json:"results"`
	}

	CourseResults struct {
		CourseResults Results          `json:"course_results"`
		Lector        TeacherResults   `json:"lector"`
		Seminarists   []TeacherResults `json:"seminarists"`
	}
)
