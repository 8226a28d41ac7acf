package course

import (
	"sort"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/user"
)

type (
	Repository interface {
		CreateCourse(crs Course, groups []Group) (Course, error)
		GetCourse(id string) (Course, error)
		UpdateCourse(crs Course) (Course, error)
		ReplaceGroups(courseID string, groups []Group) error
		QueryCourseGroups(courseID string) ([]Group, error)
		// QueryCourses applies Search (case-insensitive, name or description)
		// and pagination; it returns the page and the unpaginated total.
		QueryCourses(filter QueryFilter) ([]Course, int, error)
		// QueryStudentCourses restricts QueryCourses to courses linked to the
		// student's group; the Group for that student is returned alongside.
		QueryStudentCourses(studentID string, filter QueryFilter) ([]Course, []Group, int, error)
		QueryTaughtCourses(teacherID string) ([]Course, error)
		QueryCourseStudents(courseID string, filter QueryFilter) ([]user.User, int, error)
		GroupInCourse(groupID, courseID string) (bool, error)
		SeminaristOfCourse(userID, courseID string) (bool, error)

		CreateBlock(blk Block) (Block, error)
		GetBlock(id string) (Block, error)
		UpdateBlock(blk Block) (Block, error)
		QueryCourseBlocks(courseID string) ([]Block, error)

		CreateUnit(unit Unit) (Unit, error)
		GetUnit(id int) (Unit, error)
		UpdateUnit(unit Unit) (Unit, error)
		QueryBlockUnits(blockID string) ([]Unit, error)
		// FindTestUnit finds the test-type unit whose content references the test id.
		FindTestUnit(testID string) (Unit, error)
	}

	Service struct {
		repo   Repository
		users  user.Repository
		access *Access
	}
)

func NewService(repo Repository, users user.Repository) *Service {
	return &Service{repo: repo, users: users, access: NewAccess(repo)}
}

// Access exposes the evaluator for other services (quiz, sop, handlers).
func (svc *Service) Access() *Access { return svc.access }

func (svc *Service) teacherInfo(id string) TeacherInfo {
	info := TeacherInfo{ID: id}
	if usr, err := svc.users.GetUserByID(id); err == nil {
		info.FirstName = usr.FirstName
		info.LastName = usr.LastName
	}
	return info
}

// Create creates a course with its group links. Admin only (checked at the API
// edge: course creation carries no relationship to evaluate).
func (svc *Service) Create(nc NewCourse) (CourseInfo, error) {
	if _, err := svc.users.GetUserByID(nc.LectorID); err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return CourseInfo{}, core.NewValidationError(nil, core.FieldError{Field: "lector_id", Error: "unknown user"})
		}
		return CourseInfo{}, errors.Wrap(err, "finding lector")
	}

	crs := Course{
		ID:          uuid.New().String(),
		Name:        nc.Name,
		Description: nc.Description,
		LectorID:    nc.LectorID,
	}
	groups := make([]Group, 0, len(nc.Groups))
	for _, g := range nc.Groups {
		groups = append(groups, Group{GroupID: g.GroupID, CourseID: crs.ID, SeminaristID: g.SeminaristID})
	}

	crs, err := svc.repo.CreateCourse(crs, groups)
	if err != nil {
		return CourseInfo{}, errors.Wrap(err, "creating course")
	}
	return CourseInfo{Course: crs, Lector: svc.teacherInfo(crs.LectorID)}, nil
}

// Update applies a partial update after evaluating the actor's rights.
func (svc *Service) Update(actor user.User, courseID string, uc UpdateCourse) (Course, error) {
	if err := svc.access.CanUpdateCourse(actor, courseID, uc); err != nil {
		return Course{}, err
	}
	crs, err := svc.repo.GetCourse(courseID)
	if err != nil {
		return Course{}, err
	}
	if uc.Name != "" {
		crs.Name = uc.Name
	}
	if uc.Description != "" {
		crs.Description = uc.Description
	}
	if uc.LectorID != "" {
		crs.LectorID = uc.LectorID
	}
	if crs, err = svc.repo.UpdateCourse(crs); err != nil {
		return Course{}, errors.Wrap(err, "updating course")
	}
	if uc.Groups != nil {
		groups := make([]Group, 0, len(uc.Groups))
		for _, g := range uc.Groups {
			groups = append(groups, Group{GroupID: g.GroupID, CourseID: courseID, SeminaristID: g.SeminaristID})
		}
		if err = svc.repo.ReplaceGroups(courseID, groups); err != nil {
			return Course{}, errors.Wrap(err, "replacing course groups")
		}
	}
	return crs, nil
}

// QueryAll lists all courses; admin listing.
func (svc *Service) QueryAll(filter QueryFilter) ([]CourseInfo, int, error) {
	courses, total, err := svc.repo.QueryCourses(filter)
	if err != nil {
		return nil, 0, errors.Wrap(err, "querying courses")
	}
	infos := make([]CourseInfo, 0, len(courses))
	for _, crs := range courses {
		infos = append(infos, CourseInfo{Course: crs, Lector: svc.teacherInfo(crs.LectorID)})
	}
	return infos, total, nil
}

// QueryForStudent lists the courses linked to the student's group, with the
// student's own seminarist attached.
func (svc *Service) QueryForStudent(studentID string, filter QueryFilter) ([]CourseInfo, int, error) {
	courses, groups, total, err := svc.repo.QueryStudentCourses(studentID, filter)
	if err != nil {
		return nil, 0, errors.Wrap(err, "querying student courses")
	}
	semByCourse := make(map[string]string, len(groups))
	for _, g := range groups {
		semByCourse[g.CourseID] = g.SeminaristID
	}
	infos := make([]CourseInfo, 0, len(courses))
	for _, crs := range courses {
		info := CourseInfo{Course: crs, Lector: svc.teacherInfo(crs.LectorID)}
		if semID, ok := semByCourse[crs.ID]; ok {
			sem := svc.teacherInfo(semID)
			info.Seminarist = &sem
		}
		infos = append(infos, info)
	}
	return infos, total, nil
}

// QueryTaught lists the courses a teacher lectures or runs seminars for.
func (svc *Service) QueryTaught(teacherID string) ([]CourseInfo, error) {
	courses, err := svc.repo.QueryTaughtCourses(teacherID)
	if err != nil {
		return nil, errors.Wrap(err, "querying taught courses")
	}
	infos := make([]CourseInfo, 0, len(courses))
	for _, crs := range courses {
		infos = append(infos, CourseInfo{Course: crs, Lector: svc.teacherInfo(crs.LectorID)})
	}
	return infos, nil
}

// Details assembles the full course view (blocks and unit summaries) for the
// actor. Students see their own seminarist; admins and teachers see them all.
func (svc *Service) Details(actor user.User, courseID string) (CourseDetails, error) {
	if err := svc.access.CanReadCourse(actor, courseID); err != nil {
		return CourseDetails{}, err
	}
	crs, err := svc.repo.GetCourse(courseID)
	if err != nil {
		return CourseDetails{}, err
	}

	details := CourseDetails{
		ID:          crs.ID,
		Name:        crs.Name,
		Description: crs.Description,
		Lector:      svc.teacherInfo(crs.LectorID),
		Blocks:      []BlockDetails{},
	}

	groups, err := svc.repo.QueryCourseGroups(courseID)
	if err != nil {
		return CourseDetails{}, errors.Wrap(err, "querying course groups")
	}
	if actor.IsStudent() {
		for _, g := range groups {
			if g.GroupID == actor.GroupID {
				sem := svc.teacherInfo(g.SeminaristID)
				details.Seminarist = &sem
				break
			}
		}
	} else {
		seen := make(map[string]bool, len(groups))
		for _, g := range groups {
			if !seen[g.SeminaristID] {
				seen[g.SeminaristID] = true
				details.Seminarists = append(details.Seminarists, svc.teacherInfo(g.SeminaristID))
			}
		}
	}

	blocks, err := svc.repo.QueryCourseBlocks(courseID)
	if err != nil {
		return CourseDetails{}, errors.Wrap(err, "querying course blocks")
	}
	sort.Slice(blocks, func(i, j int) bool { return blocks[i].ID < blocks[j].ID })
	for _, blk := range blocks {
		units, err := svc.repo.QueryBlockUnits(blk.ID)
		if err != nil {
			return CourseDetails{}, errors.Wrap(err, "querying block units")
		}
		details.Blocks = append(details.Blocks, BlockDetails{
			ID:    blk.ID,
			Name:  blk.Name,
			Units: unitSummaries(units),
		})
	}
	return details, nil
}

// unitSummaries orders units lecture < seminar < test, then by name.
func unitSummaries(units []Unit) []UnitSummary {
	sort.Slice(units, func(i, j int) bool {
		if unitTypeOrder[units[i].Type] != unitTypeOrder[units[j].Type] {
			return unitTypeOrder[units[i].Type] < unitTypeOrder[units[j].Type]
		}
		return units[i].Name < units[j].Name
	})
	summaries := make([]UnitSummary, 0, len(units))
	for _, u := range units {
		summaries = append(summaries, UnitSummary{ID: u.ID, Name: u.Name, Type: u.Type})
	}
	return summaries
}

// Students returns the paginated roster of a course (admins and course teachers).
func (svc *Service) Students(actor user.User, courseID string, filter QueryFilter) ([]user.User, int, error) {
	if !actor.IsAdmin() {
		if !actor.IsTeacher() {
			return nil, 0, core.ErrPermissionDenied
		}
		if err := svc.access.CanManageContent(actor, courseID); err != nil {
			return nil, 0, err
		}
	} else if _, err := svc.repo.GetCourse(courseID); err != nil {
		return nil, 0, err
	}
	students, total, err := svc.repo.QueryCourseStudents(courseID, filter)
	if err != nil {
		return nil, 0, errors.Wrap(err, "querying course students")
	}
	return students, total, nil
}

// CreateBlock adds a content block to a course.
func (svc *Service) CreateBlock(actor user.User, courseID string, nb NewBlock) (Block, error) {
	if err := svc.access.CanManageContent(actor, courseID); err != nil {
		return Block{}, err
	}
	blk := Block{ID: uuid.New().String(), CourseID: courseID, Name: nb.Name}
	blk, err := svc.repo.CreateBlock(blk)
	if err != nil {
		return Block{}, errors.Wrap(err, "creating block")
	}
	return blk, nil
}

// GetBlock returns a block and its unit summaries.
func (svc *Service) GetBlock(actor user.User, blockID string) (BlockDetails, error) {
	blk, err := svc.repo.GetBlock(blockID)
	if err != nil {
		return BlockDetails{}, err
	}
	if err = svc.access.CanReadCourse(actor, blk.CourseID); err != nil {
		return BlockDetails{}, err
	}
	units, err := svc.repo.QueryBlockUnits(blockID)
	if err != nil {
		return BlockDetails{}, errors.Wrap(err, "querying block units")
	}
	return BlockDetails{ID: blk.ID, Name: blk.Name, Units: unitSummaries(units)}, nil
}

// UpdateBlock renames a block.
func (svc *Service) UpdateBlock(actor user.User, blockID string, nb NewBlock) (Block, error) {
	blk, err := svc.repo.GetBlock(blockID)
	if err != nil {
		return Block{}, err
	}
	if err = svc.access.CanManageContent(actor, blk.CourseID); err != nil {
		return Block{}, err
	}
	blk.Name = nb.Name
	if blk, err = svc.repo.UpdateBlock(blk); err != nil {
		return Block{}, errors.Wrap(err, "updating block")
	}
	return blk, nil
}

// CreateUnit adds a unit to a block.
func (svc *Service) CreateUnit(actor user.User, blockID string, nu NewUnit) (Unit, error) {
	blk, err := svc.repo.GetBlock(blockID)
	if err != nil {
		return Unit{}, err
	}
	if err = svc.access.CanManageContent(actor, blk.CourseID); err != nil {
		return Unit{}, err
	}
	content, err := nu.content()
	if err != nil {
		return Unit{}, errors.Wrap(err, "serializing unit content")
	}
	unit := Unit{
		BlockID:  blk.ID,
		CourseID: blk.CourseID,
		Name:     nu.Name,
		Type:     nu.Type,
		Content:  content,
	}
	if unit, err = svc.repo.CreateUnit(unit); err != nil {
		return Unit{}, errors.Wrap(err, "creating unit")
	}
	return unit, nil
}

// GetUnit returns a unit's details; test unit content is returned parsed.
func (svc *Service) GetUnit(actor user.User, unitID int) (UnitDetails, error) {
	unit, err := svc.access.CanReadUnit(actor, unitID)
	if err != nil {
		return UnitDetails{}, err
	}
	details := UnitDetails{Name: unit.Name, Type: unit.Type}
	if unit.Type == UnitTest {
		details.Content = unit.ParseContent()
	} else {
		details.Content = unit.Content
	}
	return details, nil
}

// UpdateUnit replaces a unit's name/type/content.
func (svc *Service) UpdateUnit(actor user.User, unitID int, nu NewUnit) (Unit, error) {
	unit, err := svc.repo.GetUnit(unitID)
	if err != nil {
		return Unit{}, err
	}
	if err = svc.access.CanManageContent(actor, unit.CourseID); err != nil {
		return Unit{}, err
	}
	content, err := nu.content()
	if err != nil {
		return Unit{}, errors.Wrap(err, "serializing unit content")
	}
	unit.Name = nu.Name
	unit.Type = nu.Type
	unit.Content = content
	if unit, err = svc.repo.UpdateUnit(unit); err != nil {
		return Unit{}, errors.Wrap(err, "updating unit")
	}
	return unit, nil
}
