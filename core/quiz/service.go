package quiz

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/course"
	"github.com/trezcool/elimu/core/user"
)

var (
	NowFunc = time.Now // mockable

	// errors
	ErrNotFound         = errors.New("test not found")
	ErrResultNotFound   = errors.New("test results not found")
	ErrAlreadyCompleted = errors.New("test already completed")
)

type (
	Repository interface {
		CreateTest(t Test) (Test, error)
		GetTest(id string) (Test, error)
		GetTestResult(userID, testID string) (TestResult, error)
		// CreateTestResult maps a (user_id, test_id) unique violation to
		// ErrAlreadyCompleted: the constraint, not the pre-check, is the guarantee.
		CreateTestResult(tr TestResult) (TestResult, error)
		UpdateTestResult(tr TestResult) (TestResult, error)
	}

	Service struct {
		repo   Repository
		access *course.Access
	}
)

func NewService(repo Repository, access *course.Access) *Service {
	return &Service{repo: repo, access: access}
}

// Create authors a new test. Teacher only (role-checked at the API edge).
func (svc *Service) Create(nt NewTest) (Test, error) {
	t := Test{
		ID:        uuid.New().String(),
		Questions: nt.Questions,
		Answers:   nt.Answers,
		Deadline:  nt.Deadline,
	}
	t, err := svc.repo.CreateTest(t)
	if err != nil {
		return Test{}, errors.Wrap(err, "creating test")
	}
	return t, nil
}

// GetForUser returns the actor's stored results if they already submitted,
// otherwise the test's questions (sans correct answers) and deadline.
func (svc *Service) GetForUser(actor user.User, testID string) (*TestView, *TestResult, error) {
	if err := svc.access.CanAccessTest(actor, testID); err != nil {
		return nil, nil, err
	}
	if tr, err := svc.repo.GetTestResult(actor.ID, testID); err == nil {
		return nil, &tr, nil
	} else if errors.Cause(err) != ErrResultNotFound {
		return nil, nil, errors.Wrap(err, "finding test result")
	}

	t, err := svc.repo.GetTest(testID)
	if err != nil {
		return nil, nil, err
	}
	questions := make([]Question, 0, len(t.Questions))
	for _, q := range t.Questions {
		if q.Answers == nil {
			q.Answers = []string{}
		}
		questions = append(questions, q)
	}
	return &TestView{Deadline: t.Deadline, Questions: questions}, nil, nil
}

// Submit grades a student's answer sheet and persists it.
// Choice questions compare answer sets, order-independent; custom questions are
// stored verbatim for manual review, with no correctness flag.
func (svc *Service) Submit(actor user.User, testID string, sub Submission) (TestResult, error) {
	if err := svc.access.CanAccessTest(actor, testID); err != nil {
		return TestResult{}, err
	}
	t, err := svc.repo.GetTest(testID)
	if err != nil {
		return TestResult{}, err
	}
	if t.Deadline != nil && NowFunc().After(*t.Deadline) {
		return TestResult{}, core.NewValidationError(
			fmt.Errorf("the deadline for this test has passed (%s)", t.Deadline.Format(time.RFC1123)))
	}
	if _, err = svc.repo.GetTestResult(actor.ID, testID); err == nil {
		return TestResult{}, core.NewValidationError(ErrAlreadyCompleted)
	} else if errors.Cause(err) != ErrResultNotFound {
		return TestResult{}, errors.Wrap(err, "finding test result")
	}

	tr := TestResult{
		UserID:  actor.ID,
		TestID:  testID,
		Results: grade(t, sub.Answers),
	}
	if tr, err = svc.repo.CreateTestResult(tr); err != nil {
		if errors.Cause(err) == ErrAlreadyCompleted { // lost the race
			return TestResult{}, core.NewValidationError(ErrAlreadyCompleted)
		}
		return TestResult{}, errors.Wrap(err, "saving test result")
	}
	return tr, nil
}

func grade(t Test, submitted []Answer) []Result {
	qtypes := make(map[int]string, len(t.Questions))
	for _, q := range t.Questions {
		qtypes[q.ID] = q.Type
	}
	correct := make(map[int][]string, len(t.Answers))
	for _, ans := range t.Answers {
		correct[ans.ID] = ans.Answer
	}

	results := make([]Result, 0, len(submitted))
	for _, ans := range submitted {
		if qtype, ok := qtypes[ans.ID]; ok && !isChoice(qtype) {
			// free-text answers are kept verbatim, never auto-graded
			results = append(results, Result{ID: ans.ID, Answer: ans.Answer})
			continue
		}
		right := setsEqual(ans.Answer, correct[ans.ID])
		results = append(results, Result{ID: ans.ID, IsRight: &right})
	}
	return results
}

// setsEqual compares two answer slices as sets: order and duplicates are irrelevant.
func setsEqual(a, b []string) bool {
	as := make(map[string]bool, len(a))
	for _, v := range a {
		as[v] = true
	}
	bs := make(map[string]bool, len(b))
	for _, v := range b {
		bs[v] = true
	}
	if len(as) != len(bs) {
		return false
	}
	for v := range as {
		if !bs[v] {
			return false
		}
	}
	return true
}

// StudentResults returns a student's stored results for a teacher's review.
func (svc *Service) StudentResults(actor user.User, testID, studentID string) (TestResult, error) {
	if !actor.IsTeacher() && !actor.IsAdmin() {
		return TestResult{}, core.ErrPermissionDenied
	}
	if err := svc.access.CanAccessTest(actor, testID); err != nil {
		return TestResult{}, err
	}
	tr, err := svc.repo.GetTestResult(studentID, testID)
	if err != nil {
		return TestResult{}, err
	}
	return tr, nil
}

// OverrideResults overwrites a student's stored result list outright.
// This is the only update path for results; teacher only.
func (svc *Service) OverrideResults(actor user.User, testID, studentID string, results []Result) (TestResult, error) {
	if !actor.IsTeacher() {
		return TestResult{}, core.ErrPermissionDenied
	}
	if err := svc.access.CanAccessTest(actor, testID); err != nil {
		return TestResult{}, err
	}
	tr, err := svc.repo.GetTestResult(studentID, testID)
	if err != nil {
		return TestResult{}, err
	}
	tr.Results = results
	if tr, err = svc.repo.UpdateTestResult(tr); err != nil {
		return TestResult{}, errors.Wrap(err, "overriding test result")
	}
	return tr, nil
}
