package quiz

import (
	"time"

	"github.com/trezcool/elimu/core"
)

// Question types
const (
	QuestionSingleChoice = "one_of"
	QuestionMultiChoice  = "many"
	QuestionText         = "text"
	QuestionCustom       = "custom"
)

var questionTypes = []string{QuestionSingleChoice, QuestionMultiChoice, QuestionText, QuestionCustom}

func init() {
	core.RegisterEnumValidation("qtype", "must be one of: one_of, many, text, custom", questionTypes...)
}

// isChoice reports whether a question type is auto-gradable by answer-set comparison.
func isChoice(qtype string) bool {
	return qtype == QuestionSingleChoice || qtype == QuestionMultiChoice
}

type (
	Question struct {
		ID      int      `json:"id" validate:"required"`
		Text    string   `json:"text" validate:"required,min=5,max=500"`
		Type    string   `json:"type" validate:"required,qtype"`
		Answers []string `json:"answers"` // choice options; empty for text/custom
	}

	// Answer is one submitted or correct answer: the set of chosen values for
	// choice questions, or the free text for custom questions.
	Answer struct {
		ID     int      `json:"id" validate:"required"`
		Answer []string `json:"answer" validate:"required"`
	}

	Test struct {
		ID        string     `json:"test_id"`
		Questions []Question `json:"questions"`
		Answers   []Answer   `json:"-"` // correct answers, never serialized out
		Deadline  *time.Time `json:"deadline,omitempty"`
	}

	// Result is the outcome for one question: a correctness flag for choice
	// questions, the verbatim submission for custom ones.
	Result struct {
		ID      int      `json:"id"`
		IsRight *bool    `json:"is_right,omitempty"`
		Answer  []string `json:"answer,omitempty"`
	}

	TestResult struct {
		UserID  string   `json:"user_id"`
		TestID  string   `json:"test_id"`
		Results []Result `json:"results"`
	}
)

// NewTest contains information needed to author a new Test.
type NewTest struct {
	Questions []Question `json:"questions" validate:"required,dive"`
	Answers   []Answer   `json:"answers" validate:"required,dive"`
	Deadline  *time.Time `json:"deadline"`
}

func (nt *NewTest) Validate() error {
	if err := core.Validate.Struct(nt); err != nil {
		return err
	}
	if nt.Deadline != nil && nt.Deadline.Before(time.Now()) {
		return core.NewValidationError(nil, core.FieldError{Field: "deadline", Error: "must be in the future"})
	}
	answered := make(map[int]bool, len(nt.Answers))
	for _, ans := range nt.Answers {
		answered[ans.ID] = true
	}
	for _, q := range nt.Questions {
		if isChoice(q.Type) && !answered[q.ID] {
			return core.NewValidationError(nil, core.FieldError{Field: "answers", Error: "missing correct answer for a choice question"})
		}
	}
	return nil
}

// Submission is a student's answer sheet for a test.
type Submission struct {
	Answers []Answer `json:"answers" validate:"required,dive"`
}

func (s *Submission) Validate() error {
	return core.Validate.Struct(s)
}

// TestView is what a student sees before submitting: questions without
// correctness information.
type TestView struct {
	Deadline  *time.Time `json:"deadline"`
	Questions []Question `json:"questions"`
}
