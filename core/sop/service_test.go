package sop_test

import (
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/course"
	"github.com/trezcool/elimu/core/sop"
	"github.com/trezcool/elimu/core/user"
	inmemdb "github.com/trezcool/elimu/storage/database/inmem"
	testutil "github.com/trezcool/elimu/tests"
)

type fixture struct {
	svc  *sop.Service
	repo sop.Repository

	lector     user.User
	seminarist user.User
	student    user.User
	student2   user.User
	crs        course.Course
}

func setup(t *testing.T) *fixture {
	t.Helper()

	db := inmemdb.NewDB()
	usrRepo := inmemdb.NewUserRepository(db)
	crsRepo := inmemdb.NewCourseRepository(db)
	repo := inmemdb.NewSopRepository(db)

	f := &fixture{
		svc:        sop.NewService(repo, crsRepo, usrRepo),
		repo:       repo,
		lector:     testutil.CreateUser(t, usrRepo, "Grace", "Hopper", "grace@uni.edu", "", user.RoleTeacher, ""),
		seminarist: testutil.CreateUser(t, usrRepo, "Alan", "Turing", "alan@uni.edu", "", user.RoleTeacher, ""),
		student:    testutil.CreateUser(t, usrRepo, "Ada", "Lovelace", "ada@uni.edu", "", user.RoleStudent, "G1"),
		student2:   testutil.CreateUser(t, usrRepo, "Edsger", "Dijkstra", "edsger@uni.edu", "", user.RoleStudent, "G1"),
	}
	f.crs = testutil.CreateCourse(t, crsRepo, "Compilers", f.lector.ID,
		course.Group{GroupID: "G1", SeminaristID: f.seminarist.ID})
	return f
}

func (f *fixture) submission(t *testing.T, rating int, comment string) sop.Submission {
	t.Helper()

	return sop.Submission{Courses: []sop.CourseSubmission{{
		CourseID: f.crs.ID,
		Blocks: []sop.BlockSubmission{
			{
				BlockType: sop.BlockCourse,
				QuestionsAnswers: []sop.QA{
					testutil.RatingQA(t, "How useful was the course?", rating),
					testutil.TextQA(t, "Any comments?", comment),
				},
			},
			{
				BlockType: sop.BlockLecturer,
				TeacherID: f.lector.ID,
				QuestionsAnswers: []sop.QA{
					testutil.RatingQA(t, "Rate the lecturer", rating),
				},
			},
			{
				BlockType: sop.BlockSeminarist,
				TeacherID: f.seminarist.ID,
				QuestionsAnswers: []sop.QA{
					testutil.RatingQA(t, "Rate the seminarist", rating),
				},
			},
		},
	}}}
}

func Test_Service_Submit_and_replace_window(t *testing.T) {
	f := setup(t)

	assert.NoError(t, f.svc.Submit(f.student, f.submission(t, 5, "great")))

	// a second submission inside the window is a conflict
	err := f.svc.Submit(f.student, f.submission(t, 4, "meh"))
	var cErr *core.ConflictError
	assert.True(t, errors.As(err, &cErr))

	// after the window it fully replaces the previous one
	sop.NowFunc = func() time.Time { return time.Now().Add(core.Conf.SOPResubmitWindow + time.Hour) }
	defer func() { sop.NowFunc = time.Now }()

	assert.NoError(t, f.svc.Submit(f.student, f.submission(t, 2, "changed my mind")))

	blocks, err := f.repo.QuerySetBlocks(f.crs.ID, sop.BlockCourse, "")
	assert.NoError(t, err)
	assert.Len(t, blocks, 1, "old submission must be gone")

	results := sop.Aggregate(blocks)
	assert.Equal(t, []sop.AnswerCount{{Answer: 2, Count: 1}}, results.Questions[0].Answers)
	assert.Equal(t, "changed my mind", results.Comments[0].Answer)
}

func Test_Aggregate_distributions_sorted_ascending(t *testing.T) {
	f := setup(t)

	assert.NoError(t, f.svc.Submit(f.student, f.submission(t, 5, "great")))
	assert.NoError(t, f.svc.Submit(f.student2, f.submission(t, 3, "fine")))

	blocks, err := f.repo.QuerySetBlocks(f.crs.ID, sop.BlockCourse, "")
	assert.NoError(t, err)

	results := sop.Aggregate(blocks)
	assert.Equal(t, "How useful was the course?", results.Questions[0].Question)
	assert.Equal(t, []sop.AnswerCount{{Answer: 3, Count: 1}, {Answer: 5, Count: 1}}, results.Questions[0].Answers)
	assert.ElementsMatch(t, []sop.Comment{
		{Question: "Any comments?", Answer: "great"},
		{Question: "Any comments?", Answer: "fine"},
	}, results.Comments)
}

func Test_Aggregate_skips_unparseable_blocks(t *testing.T) {
	blocks := []sop.SetBlock{
		{Content: "{not json"},
		{Content: testutil.SOPBlockContent(t, "", []sop.QA{testutil.RatingQA(t, "Q", 4)})},
	}
	results := sop.Aggregate(blocks)
	assert.Len(t, results.Questions, 1)
	assert.Equal(t, []sop.AnswerCount{{Answer: 4, Count: 1}}, results.Questions[0].Answers)
}

func Test_Service_TeacherResultsFor(t *testing.T) {
	f := setup(t)

	assert.NoError(t, f.svc.Submit(f.student, f.submission(t, 5, "great")))

	results, err := f.svc.TeacherResultsFor(f.lector.ID)
	assert.NoError(t, err)
	assert.Len(t, results.Questions, 1)
	assert.Equal(t, "Rate the lecturer", results.Questions[0].Question)

	_, err = f.svc.TeacherResultsFor("unknown-teacher")
	assert.Equal(t, sop.ErrNoResults, errors.Cause(err))
}

func Test_Service_CourseResultsFor(t *testing.T) {
	f := setup(t)

	assert.NoError(t, f.svc.Submit(f.student, f.submission(t, 5, "great")))

	results, err := f.svc.CourseResultsFor(f.crs.ID)
	assert.NoError(t, err)

	assert.Len(t, results.CourseResults.Questions, 1)
	assert.Equal(t, f.lector.ID, results.Lector.TeacherID)
	assert.Equal(t, "Grace", results.Lector.FirstName)
	assert.Len(t, results.Lector.Results.Questions, 1)
	assert.Len(t, results.Seminarists, 1)
	assert.Equal(t, f.seminarist.ID, results.Seminarists[0].TeacherID)
}
