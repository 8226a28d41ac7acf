package inmemdb

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/course"
	"github.com/trezcool/elimu/core/user"
)

type courseRepository struct {
	db *DB
}

var _ course.Repository = (*courseRepository)(nil)

func NewCourseRepository(db *DB) *courseRepository {
	return &courseRepository{db: db}
}

func matchesSearch(search string, fields ...string) bool {
	if search == "" {
		return true
	}
	for _, f := range fields {
		if core.ContainsFold(f, search) {
			return true
		}
	}
	return false
}

func paginateCourses(courses []course.Course, filter course.QueryFilter) ([]course.Course, int) {
	sort.Slice(courses, func(i, j int) bool { return courses[i].Name < courses[j].Name })
	total := len(courses)
	if filter.Offset >= total {
		return []course.Course{}, total
	}
	end := filter.Offset + filter.Limit
	if end > total {
		end = total
	}
	return courses[filter.Offset:end], total
}

func (repo *courseRepository) CreateCourse(crs course.Course, groups []course.Group) (course.Course, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	repo.db.courses[crs.ID] = &crs
	repo.db.groups = append(repo.db.groups, groups...)
	return crs, nil
}

func (repo *courseRepository) GetCourse(id string) (course.Course, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if crs, ok := repo.db.courses[id]; ok {
		return *crs, nil
	}
	return course.Course{}, core.ErrNotFound
}

func (repo *courseRepository) UpdateCourse(crs course.Course) (course.Course, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.courses[crs.ID]; !ok {
		return course.Course{}, core.ErrNotFound
	}
	repo.db.courses[crs.ID] = &crs
	return crs, nil
}

func (repo *courseRepository) ReplaceGroups(courseID string, groups []course.Group) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	kept := repo.db.groups[:0]
	for _, g := range repo.db.groups {
		if g.CourseID != courseID {
			kept = append(kept, g)
		}
	}
	repo.db.groups = append(kept, groups...)
	return nil
}

func (repo *courseRepository) QueryCourseGroups(courseID string) ([]course.Group, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	groups := []course.Group{}
	for _, g := range repo.db.groups {
		if g.CourseID == courseID {
			groups = append(groups, g)
		}
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].GroupID < groups[j].GroupID })
	return groups, nil
}

func (repo *courseRepository) QueryCourses(filter course.QueryFilter) ([]course.Course, int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	matched := []course.Course{}
	for _, crs := range repo.db.courses {
		if matchesSearch(filter.Search, crs.Name, crs.Description) {
			matched = append(matched, *crs)
		}
	}
	page, total := paginateCourses(matched, filter)
	return page, total, nil
}

func (repo *courseRepository) QueryStudentCourses(studentID string, filter course.QueryFilter) ([]course.Course, []course.Group, int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	usr, ok := repo.db.users[studentID]
	if !ok {
		return nil, nil, 0, user.ErrNotFound
	}

	groups := []course.Group{}
	matched := []course.Course{}
	for _, g := range repo.db.groups {
		if g.GroupID != usr.GroupID {
			continue
		}
		groups = append(groups, g)
		if crs, ok := repo.db.courses[g.CourseID]; ok {
			if matchesSearch(filter.Search, crs.Name, crs.Description) {
				matched = append(matched, *crs)
			}
		}
	}
	page, total := paginateCourses(matched, filter)
	return page, groups, total, nil
}

func (repo *courseRepository) QueryTaughtCourses(teacherID string) ([]course.Course, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	seen := make(map[string]bool)
	courses := []course.Course{}
	for _, crs := range repo.db.courses {
		if crs.LectorID == teacherID {
			seen[crs.ID] = true
			courses = append(courses, *crs)
		}
	}
	for _, g := range repo.db.groups {
		if g.SeminaristID != teacherID || seen[g.CourseID] {
			continue
		}
		if crs, ok := repo.db.courses[g.CourseID]; ok {
			seen[crs.ID] = true
			courses = append(courses, *crs)
		}
	}
	sort.Slice(courses, func(i, j int) bool { return courses[i].Name < courses[j].Name })
	return courses, nil
}

func (repo *courseRepository) QueryCourseStudents(courseID string, filter course.QueryFilter) ([]user.User, int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	courseGroups := make(map[string]bool)
	for _, g := range repo.db.groups {
		if g.CourseID == courseID {
			courseGroups[g.GroupID] = true
		}
	}

	matched := []user.User{}
	for _, usr := range repo.db.users {
		if usr.Role != user.RoleStudent || !courseGroups[usr.GroupID] {
			continue
		}
		if matchesSearch(filter.Search, usr.FirstName, usr.LastName, usr.Email) {
			matched = append(matched, *usr)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].LastName != matched[j].LastName {
			return matched[i].LastName < matched[j].LastName
		}
		return matched[i].FirstName < matched[j].FirstName
	})

	total := len(matched)
	if filter.Offset >= total {
		return []user.User{}, total, nil
	}
	end := filter.Offset + filter.Limit
	if end > total {
		end = total
	}
	return matched[filter.Offset:end], total, nil
}

func (repo *courseRepository) GroupInCourse(groupID, courseID string) (bool, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, g := range repo.db.groups {
		if g.GroupID == groupID && g.CourseID == courseID {
			return true, nil
		}
	}
	return false, nil
}

func (repo *courseRepository) SeminaristOfCourse(userID, courseID string) (bool, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, g := range repo.db.groups {
		if g.SeminaristID == userID && g.CourseID == courseID {
			return true, nil
		}
	}
	return false, nil
}

func (repo *courseRepository) CreateBlock(blk course.Block) (course.Block, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	repo.db.blocks[blk.ID] = &blk
	return blk, nil
}

func (repo *courseRepository) GetBlock(id string) (course.Block, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if blk, ok := repo.db.blocks[id]; ok {
		return *blk, nil
	}
	return course.Block{}, core.ErrNotFound
}

func (repo *courseRepository) UpdateBlock(blk course.Block) (course.Block, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.blocks[blk.ID]; !ok {
		return course.Block{}, core.ErrNotFound
	}
	repo.db.blocks[blk.ID] = &blk
	return blk, nil
}

func (repo *courseRepository) QueryCourseBlocks(courseID string) ([]course.Block, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	blocks := []course.Block{}
	for _, blk := range repo.db.blocks {
		if blk.CourseID == courseID {
			blocks = append(blocks, *blk)
		}
	}
	sort.Slice(blocks, func(i, j int) bool { return blocks[i].ID < blocks[j].ID })
	return blocks, nil
}

func (repo *courseRepository) CreateUnit(unit course.Unit) (course.Unit, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, u := range repo.db.units {
		if u.BlockID == unit.BlockID && u.CourseID == unit.CourseID && u.Name == unit.Name {
			return course.Unit{}, core.NewConflictError(errors.New("a unit with this name already exists in this block"))
		}
	}
	repo.db.unitPK++
	unit.ID = repo.db.unitPK
	repo.db.units[unit.ID] = &unit
	return unit, nil
}

func (repo *courseRepository) GetUnit(id int) (course.Unit, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if unit, ok := repo.db.units[id]; ok {
		return *unit, nil
	}
	return course.Unit{}, core.ErrNotFound
}

func (repo *courseRepository) UpdateUnit(unit course.Unit) (course.Unit, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.units[unit.ID]; !ok {
		return course.Unit{}, core.ErrNotFound
	}
	for _, u := range repo.db.units {
		if u.ID != unit.ID && u.BlockID == unit.BlockID && u.CourseID == unit.CourseID && u.Name == unit.Name {
			return course.Unit{}, core.NewConflictError(errors.New("a unit with this name already exists in this block"))
		}
	}
	repo.db.units[unit.ID] = &unit
	return unit, nil
}

func (repo *courseRepository) QueryBlockUnits(blockID string) ([]course.Unit, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	units := []course.Unit{}
	for _, unit := range repo.db.units {
		if unit.BlockID == blockID {
			units = append(units, *unit)
		}
	}
	sort.Slice(units, func(i, j int) bool { return units[i].Name < units[j].Name })
	return units, nil
}

func (repo *courseRepository) FindTestUnit(testID string) (course.Unit, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, unit := range repo.db.units {
		if unit.Type == course.UnitTest && unit.ParseContent().TestID == testID {
			return *unit, nil
		}
	}
	return course.Unit{}, core.ErrNotFound
}
