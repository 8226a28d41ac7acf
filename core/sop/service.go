package sop

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/course"
	"github.com/trezcool/elimu/core/user"
)

var (
	NowFunc = time.Now // mockable

	// errors
	ErrRecentSubmission = errors.New("you have already filled out the current version of the survey")
	ErrNoResults        = errors.New("no survey results found")
)

type (
	Repository interface {
		// GetLatestSet returns the user's most recent Set, core.ErrNotFound when none.
		GetLatestSet(userID string) (Set, error)
		// ReplaceUserSets atomically deletes the user's previous Sets/SetBlocks
		// and stores the new submission.
		ReplaceUserSets(set Set, blocks []SetBlock) error
		// QuerySetBlocks selects blocks by type, optionally restricted to a
		// course (courseID != "") and to a teacher (content match on teacherID).
		QuerySetBlocks(courseID, blockType, teacherID string) ([]SetBlock, error)
	}

	Service struct {
		repo    Repository
		courses course.Repository
		users   user.Repository
	}
)

func NewService(repo Repository, courses course.Repository, users user.Repository) *Service {
	return &Service{repo: repo, courses: courses, users: users}
}

// Submit stores a user's survey. A submission within the configured window is
// rejected; a later one fully replaces the previous Sets/SetBlocks.
func (svc *Service) Submit(usr user.User, sub Submission) error {
	now := NowFunc().UTC()
	if last, err := svc.repo.GetLatestSet(usr.ID); err == nil {
		if now.Sub(last.CreationTime) < core.Conf.SOPResubmitWindow {
			return core.NewConflictError(ErrRecentSubmission)
		}
	} else if errors.Cause(err) != core.ErrNotFound {
		return errors.Wrap(err, "finding last submission")
	}

	set := Set{UserID: usr.ID, CreationTime: now}
	var blocks []SetBlock
	for _, crs := range sub.Courses {
		for _, blk := range crs.Blocks {
			content, err := json.Marshal(BlockContent{
				TeacherID:        blk.TeacherID,
				QuestionsAnswers: blk.QuestionsAnswers,
			})
			if err != nil {
				return errors.Wrap(err, "serializing block content")
			}
			blocks = append(blocks, SetBlock{
				CourseID: crs.CourseID,
				Type:     blk.BlockType,
				UserID:   usr.ID,
				Content:  string(content),
			})
		}
	}
	if err := svc.repo.ReplaceUserSets(set, blocks); err != nil {
		return errors.Wrap(err, "storing submission")
	}
	return nil
}

// aggregate fetches and folds the SetBlocks matching course/blockType/teacher.
// Blocks whose content fails to parse are skipped: aggregation is best-effort
// over partially corrupt data.
func (svc *Service) aggregate(courseID, blockType, teacherID string) (Results, error) {
	if !teacherBlock(blockType) {
		teacherID = ""
	}
	blocks, err := svc.repo.QuerySetBlocks(courseID, blockType, teacherID)
	if err != nil {
		return Results{}, errors.Wrap(err, "querying survey blocks")
	}
	return Aggregate(blocks), nil
}

// Aggregate folds SetBlocks into per-question rating distributions and a flat
// list of verbatim text comments. Distributions are sorted ascending by answer
// value and questions are emitted in first-seen order, so the output is
// invariant to submission order.
func Aggregate(blocks []SetBlock) Results {
	counts := make(map[string]map[int]int)
	var questions []string
	comments := []Comment{}

	for _, blk := range blocks {
		var content BlockContent
		if err := json.Unmarshal([]byte(blk.Content), &content); err != nil {
			continue
		}
		for _, qa := range content.QuestionsAnswers {
			if text, ok := qa.Text(); ok {
				comments = append(comments, Comment{Question: qa.Question, Answer: text})
				continue
			}
			rating, ok := qa.Rating()
			if !ok {
				continue
			}
			if _, seen := counts[qa.Question]; !seen {
				counts[qa.Question] = make(map[int]int)
				questions = append(questions, qa.Question)
			}
			counts[qa.Question][rating]++
		}
	}

	results := Results{Questions: []QuestionResult{}, Comments: comments}
	for _, q := range questions {
		dist := make([]AnswerCount, 0, len(counts[q]))
		for answer, count := range counts[q] {
			dist = append(dist, AnswerCount{Answer: answer, Count: count})
		}
		sort.Slice(dist, func(i, j int) bool { return dist[i].Answer < dist[j].Answer })
		results.Questions = append(results.Questions, QuestionResult{Question: q, Answers: dist})
	}
	return results
}

// TeacherResultsFor aggregates every lecturer/seminarist block rating the given
// teacher, across courses.
func (svc *Service) TeacherResultsFor(teacherID string) (Results, error) {
	lect, err := svc.aggregate("", BlockLecturer, teacherID)
	if err != nil {
		return Results{}, err
	}
	sem, err := svc.aggregate("", BlockSeminarist, teacherID)
	if err != nil {
		return Results{}, err
	}
	merged := Results{
		Questions: append(lect.Questions, sem.Questions...),
		Comments:  append(lect.Comments, sem.Comments...),
	}
	if len(merged.Questions) == 0 && len(merged.Comments) == 0 {
		return Results{}, ErrNoResults
	}
	return merged, nil
}

func (svc *Service) teacherResults(courseID, blockType, teacherID string) (TeacherResults, error) {
	res, err := svc.aggregate(courseID, blockType, teacherID)
	if err != nil {
		return TeacherResults{}, err
	}
	tr := TeacherResults{TeacherID: teacherID, Results: res}
	if usr, err := svc.users.GetUserByID(teacherID); err == nil {
		tr.FirstName = usr.FirstName
		tr.LastName = usr.LastName
	}
	return tr, nil
}

// CourseResultsFor aggregates a course's survey: the course blocks, the
// lecturer's blocks and each seminarist's blocks.
func (svc *Service) CourseResultsFor(courseID string) (CourseResults, error) {
	crs, err := svc.courses.GetCourse(courseID)
	if err != nil {
		return CourseResults{}, err
	}

	courseRes, err := svc.aggregate(courseID, BlockCourse, "")
	if err != nil {
		return CourseResults{}, err
	}
	lector, err := svc.teacherResults(courseID, BlockLecturer, crs.LectorID)
	if err != nil {
		return CourseResults{}, err
	}

	groups, err := svc.courses.QueryCourseGroups(courseID)
	if err != nil {
		return CourseResults{}, errors.Wrap(err, "querying course groups")
	}
	seminarists := []TeacherResults{}
	seen := make(map[string]bool, len(groups))
	for _, g := range groups {
		if seen[g.SeminaristID] {
			continue
		}
		seen[g.SeminaristID] = true
		sem, err := svc.teacherResults(courseID, BlockSeminarist, g.SeminaristID)
		if err != nil {
			return CourseResults{}, err
		}
		seminarists = append(seminarists, sem)
	}

	return CourseResults{
		CourseResults: courseRes,
		Lector:        lector,
		Seminarists:   seminarists,
	}, nil
}
