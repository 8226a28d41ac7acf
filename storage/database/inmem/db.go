// Package inmemdb provides in-memory repositories backing the API test suite.
package inmemdb

import (
	"sync"

	"github.com/trezcool/elimu/core/auth"
	"github.com/trezcool/elimu/core/course"
	"github.com/trezcool/elimu/core/quiz"
	"github.com/trezcool/elimu/core/sop"
	"github.com/trezcool/elimu/core/user"
)

type DB struct {
	mutex sync.RWMutex

	users         map[string]*user.User         // keyed by user ID
	refreshTokens map[string]*auth.RefreshToken // keyed by token
	courses       map[string]*course.Course
	groups        []course.Group
	blocks        map[string]*course.Block
	units         map[int]*course.Unit
	tests         map[string]*quiz.Test
	testResults   map[string]*quiz.TestResult // keyed by userID+"/"+testID
	sets          map[int]*sop.Set
	setBlocks     []sop.SetBlock

	unitPK int
	setPK  int
}

func NewDB() *DB {
	db := &DB{}
	db.reset()
	return db
}

func (db *DB) reset() {
	db.users = make(map[string]*user.User)
	db.refreshTokens = make(map[string]*auth.RefreshToken)
	db.courses = make(map[string]*course.Course)
	db.groups = nil
	db.blocks = make(map[string]*course.Block)
	db.units = make(map[int]*course.Unit)
	db.tests = make(map[string]*quiz.Test)
	db.testResults = make(map[string]*quiz.TestResult)
	db.sets = make(map[int]*sop.Set)
	db.setBlocks = nil
	db.unitPK = 0
	db.setPK = 0
}

// Reset drops all stored data. Test suites call it between cases.
func (db *DB) Reset() {
	db.mutex.Lock()
	defer db.mutex.Unlock()
	db.reset()
}
