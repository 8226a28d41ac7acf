package sqlxrepos

import (
	"database/sql"
	"encoding/json"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/elimu/core/quiz"
)

// testRow stores questions and answers as opaque JSON documents; their shape
// only matters to the quiz package.
type testRow struct {
	ID        string    `db:"test_id"`
	Questions string    `db:"questions"`
	Answers   string    `db:"answers"`
	Deadline  null.Time `db:"deadline"`
}

func (r testRow) unpack() (quiz.Test, error) {
	t := quiz.Test{ID: r.ID}
	if err := json.Unmarshal([]byte(r.Questions), &t.Questions); err != nil {
		return quiz.Test{}, errors.Wrap(err, "decoding test questions")
	}
	if err := json.Unmarshal([]byte(r.Answers), &t.Answers); err != nil {
		return quiz.Test{}, errors.Wrap(err, "decoding test answers")
	}
	if r.Deadline.Valid {
		deadline := r.Deadline.Time
		t.Deadline = &deadline
	}
	return t, nil
}

func packTest(t quiz.Test) (testRow, error) {
	questions, err := json.Marshal(t.Questions)
	if err != nil {
		return testRow{}, errors.Wrap(err, "encoding test questions")
	}
	answers, err := json.Marshal(t.Answers)
	if err != nil {
		return testRow{}, errors.Wrap(err, "encoding test answers")
	}
	row := testRow{ID: t.ID, Questions: string(questions), Answers: string(answers)}
	if t.Deadline != nil {
		row.Deadline = null.TimeFrom(t.Deadline.UTC())
	}
	return row, nil
}

type testResultRow struct {
	UserID  string `db:"user_id"`
	TestID  string `db:"test_id"`
	Results string `db:"results"`
}

func (r testResultRow) unpack() (quiz.TestResult, error) {
	tr := quiz.TestResult{UserID: r.UserID, TestID: r.TestID}
	if err := json.Unmarshal([]byte(r.Results), &tr.Results); err != nil {
		return quiz.TestResult{}, errors.Wrap(err, "decoding test results")
	}
	return tr, nil
}

func packTestResult(tr quiz.TestResult) (testResultRow, error) {
	results, err := json.Marshal(tr.Results)
	if err != nil {
		return testResultRow{}, errors.Wrap(err, "encoding test results")
	}
	return testResultRow{UserID: tr.UserID, TestID: tr.TestID, Results: string(results)}, nil
}

type quizRepository struct {
	db *sqlx.DB
}

var _ quiz.Repository = (*quizRepository)(nil) // interface compliance check

func NewQuizRepository(db *sqlx.DB) *quizRepository {
	return &quizRepository{db: db}
}

func (repo quizRepository) CreateTest(t quiz.Test) (quiz.Test, error) {
	row, err := packTest(t)
	if err != nil {
		return quiz.Test{}, err
	}
	_, err = repo.db.NamedExec(
		`INSERT INTO tests (test_id, questions, answers, deadline)
		 VALUES (:test_id, :questions, :answers, :deadline)`, row)
	if err != nil {
		return quiz.Test{}, errors.Wrap(err, "inserting test")
	}
	return t, nil
}

func (repo quizRepository) GetTest(id string) (quiz.Test, error) {
	var row testRow
	if err := repo.db.Get(&row, "SELECT * FROM tests WHERE test_id = $1", id); err != nil {
		if err == sql.ErrNoRows {
			return quiz.Test{}, quiz.ErrNotFound
		}
		return quiz.Test{}, errors.Wrap(err, "getting test")
	}
	return row.unpack()
}

func (repo quizRepository) GetTestResult(userID, testID string) (quiz.TestResult, error) {
	var row testResultRow
	err := repo.db.Get(&row, "SELECT * FROM test_results WHERE user_id = $1 AND test_id = $2", userID, testID)
	if err != nil {
		if err == sql.ErrNoRows {
			return quiz.TestResult{}, quiz.ErrResultNotFound
		}
		return quiz.TestResult{}, errors.Wrap(err, "getting test result")
	}
	return row.unpack()
}

func (repo quizRepository) CreateTestResult(tr quiz.TestResult) (quiz.TestResult, error) {
	row, err := packTestResult(tr)
	if err != nil {
		return quiz.TestResult{}, err
	}
	_, err = repo.db.NamedExec(
		`INSERT INTO test_results (user_id, test_id, results)
		 VALUES (:user_id, :test_id, :results)`, row)
	if err != nil {
		if isUniqueViolation(err) {
			return quiz.TestResult{}, quiz.ErrAlreadyCompleted
		}
		return quiz.TestResult{}, errors.Wrap(err, "inserting test result")
	}
	return tr, nil
}

func (repo quizRepository) UpdateTestResult(tr quiz.TestResult) (quiz.TestResult, error) {
	row, err := packTestResult(tr)
	if err != nil {
		return quiz.TestResult{}, err
	}
	res, err := repo.db.NamedExec(
		"UPDATE test_results SET results = :results WHERE user_id = :user_id AND test_id = :test_id", row)
	if err != nil {
		return quiz.TestResult{}, errors.Wrap(err, "updating test result")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return quiz.TestResult{}, quiz.ErrResultNotFound
	}
	return tr, nil
}
