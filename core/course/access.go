package course

import (
	"github.com/pkg/errors"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/user"
)

// Access decides whether an actor may perform an action on a course resource.
// Every denial is a typed error, never a bare bool: core.ErrPermissionDenied
// maps to 403 and core.ErrNotFound to 404 at the API edge.
type Access struct {
	repo Repository
}

func NewAccess(repo Repository) *Access {
	return &Access{repo: repo}
}

// isCourseTeacher reports whether the actor is the course's lecturer or the
// seminarist of one of its groups.
func (a *Access) isCourseTeacher(actor user.User, courseID string) (bool, error) {
	crs, err := a.repo.GetCourse(courseID)
	if err != nil {
		return false, err
	}
	if crs.LectorID == actor.ID {
		return true, nil
	}
	ok, err := a.repo.SeminaristOfCourse(actor.ID, courseID)
	if err != nil {
		return false, errors.Wrap(err, "checking seminarist relationship")
	}
	return ok, nil
}

// CanUpdateCourse checks name/description/group edits on a course.
// Reassigning the lecturer or reseating all groups is restricted further
// (admin or current lecturer only).
func (a *Access) CanUpdateCourse(actor user.User, courseID string, uc UpdateCourse) error {
	crs, err := a.repo.GetCourse(courseID)
	if err != nil {
		return err
	}
	if actor.IsAdmin() {
		return nil
	}
	if !actor.IsTeacher() {
		return core.ErrPermissionDenied
	}
	ok, err := a.isCourseTeacher(actor, courseID)
	if err != nil {
		return err
	}
	if !ok {
		return core.ErrPermissionDenied
	}
	// lecturer reassignment and full group reseat need the lecturer themselves
	if uc.LectorID != "" && uc.LectorID != crs.LectorID && crs.LectorID != actor.ID {
		return core.ErrPermissionDenied
	}
	if uc.Groups != nil && crs.LectorID != actor.ID {
		return core.ErrPermissionDenied
	}
	return nil
}

// CanManageContent checks block/unit creation and edits under a course.
// Admins are deliberately denied: content belongs to the teaching staff.
func (a *Access) CanManageContent(actor user.User, courseID string) error {
	if !actor.IsTeacher() {
		return core.ErrPermissionDenied
	}
	ok, err := a.isCourseTeacher(actor, courseID)
	if err != nil {
		return err
	}
	if !ok {
		return core.ErrPermissionDenied
	}
	return nil
}

// CanReadCourse checks read access to a course and its blocks/units.
func (a *Access) CanReadCourse(actor user.User, courseID string) error {
	if actor.IsAdmin() {
		return nil
	}
	if actor.IsTeacher() {
		ok, err := a.isCourseTeacher(actor, courseID)
		if err != nil {
			return err
		}
		if !ok {
			return core.ErrPermissionDenied
		}
		return nil
	}
	if actor.GroupID == "" {
		return core.ErrPermissionDenied
	}
	ok, err := a.repo.GroupInCourse(actor.GroupID, courseID)
	if err != nil {
		return errors.Wrap(err, "checking group membership")
	}
	if !ok {
		return core.ErrPermissionDenied
	}
	return nil
}

// CanReadUnit checks read access to a single unit.
func (a *Access) CanReadUnit(actor user.User, unitID int) (Unit, error) {
	unit, err := a.repo.GetUnit(unitID)
	if err != nil {
		return Unit{}, err
	}
	if err = a.CanReadCourse(actor, unit.CourseID); err != nil {
		return Unit{}, err
	}
	return unit, nil
}

// CanAccessTest resolves the course owning a test (by scanning test units
// referencing it) and applies the course read rules. Admins bypass.
func (a *Access) CanAccessTest(actor user.User, testID string) error {
	if actor.IsAdmin() {
		return nil
	}
	unit, err := a.repo.FindTestUnit(testID)
	if err != nil {
		if errors.Cause(err) == core.ErrNotFound {
			return core.ErrPermissionDenied
		}
		return errors.Wrap(err, "resolving test unit")
	}
	return a.CanReadCourse(actor, unit.CourseID)
}

// CanViewCourseSOP checks access to a course's aggregated survey results:
// only the course's lecturer or an admin.
func (a *Access) CanViewCourseSOP(actor user.User, courseID string) error {
	crs, err := a.repo.GetCourse(courseID)
	if err != nil {
		return err
	}
	if actor.IsAdmin() || crs.LectorID == actor.ID {
		return nil
	}
	return core.ErrPermissionDenied
}
