// Package testutil provides shared fixture helpers for package tests.
package testutil

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/elimu/core/course"
	"github.com/trezcool/elimu/core/quiz"
	"github.com/trezcool/elimu/core/sop"
	"github.com/trezcool/elimu/core/user"
)

func CreateUser(
	t *testing.T,
	repo user.Repository,
	first, last, email, pwd, role, groupID string,
) user.User {
	t.Helper()

	usr := user.User{
		ID:        uuid.New().String(),
		Email:     email,
		FirstName: first,
		LastName:  last,
		Role:      role,
		GroupID:   groupID,
		CreatedAt: time.Now().UTC(),
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

func CreateCourse(
	t *testing.T,
	repo course.Repository,
	name, lectorID string,
	groups ...course.Group,
) course.Course {
	t.Helper()

	crs := course.Course{
		ID:       uuid.New().String(),
		Name:     name,
		LectorID: lectorID,
	}
	for i := range groups {
		groups[i].CourseID = crs.ID
	}
	crs, err := repo.CreateCourse(crs, groups)
	if err != nil {
		t.Fatalf("CreateCourse() failed: %v", err)
	}
	return crs
}

func CreateBlock(t *testing.T, repo course.Repository, courseID, name string) course.Block {
	t.Helper()

	blk, err := repo.CreateBlock(course.Block{
		ID:       uuid.New().String(),
		CourseID: courseID,
		Name:     name,
	})
	if err != nil {
		t.Fatalf("CreateBlock() failed: %v", err)
	}
	return blk
}

func CreateUnit(t *testing.T, repo course.Repository, blk course.Block, name, typ, content string) course.Unit {
	t.Helper()

	unit, err := repo.CreateUnit(course.Unit{
		BlockID:  blk.ID,
		CourseID: blk.CourseID,
		Name:     name,
		Type:     typ,
		Content:  content,
	})
	if err != nil {
		t.Fatalf("CreateUnit() failed: %v", err)
	}
	return unit
}

func CreateTest(t *testing.T, repo quiz.Repository, questions []quiz.Question, answers []quiz.Answer, deadline *time.Time) quiz.Test {
	t.Helper()

	test, err := repo.CreateTest(quiz.Test{
		ID:        uuid.New().String(),
		Questions: questions,
		Answers:   answers,
		Deadline:  deadline,
	})
	if err != nil {
		t.Fatalf("CreateTest() failed: %v", err)
	}
	return test
}

// TestUnitContent builds the content payload linking a unit to a test.
func TestUnitContent(testID string) string {
	return fmt.Sprintf(`{"test_id":%q}`, testID)
}

// SOPBlockContent builds a SetBlock content document.
func SOPBlockContent(t *testing.T, teacherID string, qas []sop.QA) string {
	t.Helper()

	raw, err := json.Marshal(sop.BlockContent{TeacherID: teacherID, QuestionsAnswers: qas})
	if err != nil {
		t.Fatalf("SOPBlockContent() failed: %v", err)
	}
	return string(raw)
}

// RatingQA builds a numeric-rating question-answer entry.
func RatingQA(t *testing.T, question string, rating int) sop.QA {
	t.Helper()
	return sop.QA{
		Question: question,
		Type:     sop.AnswerRating,
		Answer:   json.RawMessage(fmt.Sprintf("%d", rating)),
	}
}

// TextQA builds a free-text question-answer entry.
func TextQA(t *testing.T, question, text string) sop.QA {
	t.Helper()

	raw, err := json.Marshal(text)
	if err != nil {
		t.Fatalf("TextQA() failed: %v", err)
	}
	return sop.QA{Question: question, Type: sop.AnswerText, Answer: raw}
}
