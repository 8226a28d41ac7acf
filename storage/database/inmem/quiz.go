package inmemdb

import (
	"github.com/trezcool/elimu/core/quiz"
)

type quizRepository struct {
	db *DB
}

var _ quiz.Repository = (*quizRepository)(nil)

func NewQuizRepository(db *DB) *quizRepository {
	return &quizRepository{db: db}
}

func resultKey(userID, testID string) string {
	return userID + "/" + testID
}

func (repo *quizRepository) CreateTest(t quiz.Test) (quiz.Test, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	repo.db.tests[t.ID] = &t
	return t, nil
}

func (repo *quizRepository) GetTest(id string) (quiz.Test, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if t, ok := repo.db.tests[id]; ok {
		return *t, nil
	}
	return quiz.Test{}, quiz.ErrNotFound
}

func (repo *quizRepository) GetTestResult(userID, testID string) (quiz.TestResult, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if tr, ok := repo.db.testResults[resultKey(userID, testID)]; ok {
		return *tr, nil
	}
	return quiz.TestResult{}, quiz.ErrResultNotFound
}

func (repo *quizRepository) CreateTestResult(tr quiz.TestResult) (quiz.TestResult, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	key := resultKey(tr.UserID, tr.TestID)
	if _, ok := repo.db.testResults[key]; ok {
		return quiz.TestResult{}, quiz.ErrAlreadyCompleted
	}
	repo.db.testResults[key] = &tr
	return tr, nil
}

func (repo *quizRepository) UpdateTestResult(tr quiz.TestResult) (quiz.TestResult, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	key := resultKey(tr.UserID, tr.TestID)
	if _, ok := repo.db.testResults[key]; !ok {
		return quiz.TestResult{}, quiz.ErrResultNotFound
	}
	repo.db.testResults[key] = &tr
	return tr, nil
}
