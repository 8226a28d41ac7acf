package course_test

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/course"
	"github.com/trezcool/elimu/core/user"
	inmemdb "github.com/trezcool/elimu/storage/database/inmem"
	testutil "github.com/trezcool/elimu/tests"
)

type accessFixture struct {
	access  *course.Access
	crsRepo course.Repository

	admin      user.User
	lector     user.User
	seminarist user.User
	outsider   user.User // teacher with no relation to the course
	student    user.User // in group G1
	student2   user.User // in group G2, outside the course
	crs        course.Course
}

func setupAccess(t *testing.T) *accessFixture {
	t.Helper()

	db := inmemdb.NewDB()
	usrRepo := inmemdb.NewUserRepository(db)
	crsRepo := inmemdb.NewCourseRepository(db)

	f := &accessFixture{
		access:     course.NewAccess(crsRepo),
		crsRepo:    crsRepo,
		admin:      testutil.CreateUser(t, usrRepo, "Root", "Admin", "admin@uni.edu", "", user.RoleAdmin, ""),
		lector:     testutil.CreateUser(t, usrRepo, "Grace", "Hopper", "grace@uni.edu", "", user.RoleTeacher, ""),
		seminarist: testutil.CreateUser(t, usrRepo, "Alan", "Turing", "alan@uni.edu", "", user.RoleTeacher, ""),
		outsider:   testutil.CreateUser(t, usrRepo, "John", "Backus", "john@uni.edu", "", user.RoleTeacher, ""),
		student:    testutil.CreateUser(t, usrRepo, "Ada", "Lovelace", "ada@uni.edu", "", user.RoleStudent, "G1"),
		student2:   testutil.CreateUser(t, usrRepo, "Edsger", "Dijkstra", "edsger@uni.edu", "", user.RoleStudent, "G2"),
	}
	f.crs = testutil.CreateCourse(t, crsRepo, "Compilers", f.lector.ID,
		course.Group{GroupID: "G1", SeminaristID: f.seminarist.ID})
	return f
}

func Test_Access_CanManageContent(t *testing.T) {
	f := setupAccess(t)

	assert.NoError(t, f.access.CanManageContent(f.lector, f.crs.ID))
	assert.NoError(t, f.access.CanManageContent(f.seminarist, f.crs.ID))

	// content belongs to the teaching staff, not admins
	assert.Equal(t, core.ErrPermissionDenied, errors.Cause(f.access.CanManageContent(f.admin, f.crs.ID)))
	assert.Equal(t, core.ErrPermissionDenied, errors.Cause(f.access.CanManageContent(f.outsider, f.crs.ID)))
	assert.Equal(t, core.ErrPermissionDenied, errors.Cause(f.access.CanManageContent(f.student, f.crs.ID)))
}

func Test_Access_CanReadCourse(t *testing.T) {
	f := setupAccess(t)

	assert.NoError(t, f.access.CanReadCourse(f.admin, f.crs.ID))
	assert.NoError(t, f.access.CanReadCourse(f.lector, f.crs.ID))
	assert.NoError(t, f.access.CanReadCourse(f.seminarist, f.crs.ID))
	assert.NoError(t, f.access.CanReadCourse(f.student, f.crs.ID))

	assert.Equal(t, core.ErrPermissionDenied, errors.Cause(f.access.CanReadCourse(f.outsider, f.crs.ID)))
	assert.Equal(t, core.ErrPermissionDenied, errors.Cause(f.access.CanReadCourse(f.student2, f.crs.ID)))

	ungrouped := f.student
	ungrouped.GroupID = ""
	assert.Equal(t, core.ErrPermissionDenied, errors.Cause(f.access.CanReadCourse(ungrouped, f.crs.ID)))
}

func Test_Access_CanUpdateCourse(t *testing.T) {
	f := setupAccess(t)

	rename := course.UpdateCourse{Name: "Compilers II"}
	assert.NoError(t, f.access.CanUpdateCourse(f.admin, f.crs.ID, rename))
	assert.NoError(t, f.access.CanUpdateCourse(f.lector, f.crs.ID, rename))
	assert.NoError(t, f.access.CanUpdateCourse(f.seminarist, f.crs.ID, rename))
	assert.Equal(t, core.ErrPermissionDenied, errors.Cause(f.access.CanUpdateCourse(f.outsider, f.crs.ID, rename)))
	assert.Equal(t, core.ErrPermissionDenied, errors.Cause(f.access.CanUpdateCourse(f.student, f.crs.ID, rename)))

	// reassigning the lecturer or reseating groups is for the lecturer only
	reassign := course.UpdateCourse{LectorID: f.outsider.ID}
	assert.NoError(t, f.access.CanUpdateCourse(f.lector, f.crs.ID, reassign))
	assert.Equal(t, core.ErrPermissionDenied, errors.Cause(f.access.CanUpdateCourse(f.seminarist, f.crs.ID, reassign)))

	reseat := course.UpdateCourse{Groups: []course.NewGroup{{GroupID: "G2", SeminaristID: f.outsider.ID}}}
	assert.NoError(t, f.access.CanUpdateCourse(f.lector, f.crs.ID, reseat))
	assert.Equal(t, core.ErrPermissionDenied, errors.Cause(f.access.CanUpdateCourse(f.seminarist, f.crs.ID, reseat)))

	err := f.access.CanUpdateCourse(f.admin, "nope", rename)
	assert.Equal(t, core.ErrNotFound, errors.Cause(err))
}

func Test_Access_CanAccessTest(t *testing.T) {
	f := setupAccess(t)

	blk := testutil.CreateBlock(t, f.crsRepo, f.crs.ID, "Parsing")
	testutil.CreateUnit(t, f.crsRepo, blk, "Midterm", course.UnitTest, testutil.TestUnitContent("test-1"))

	assert.NoError(t, f.access.CanAccessTest(f.student, "test-1"))
	assert.NoError(t, f.access.CanAccessTest(f.lector, "test-1"))
	assert.NoError(t, f.access.CanAccessTest(f.admin, "test-1"))
	assert.Equal(t, core.ErrPermissionDenied, errors.Cause(f.access.CanAccessTest(f.student2, "test-1")))

	// a test linked to no unit is invisible to non-admins
	assert.Equal(t, core.ErrPermissionDenied, errors.Cause(f.access.CanAccessTest(f.student, "unlinked")))
	assert.NoError(t, f.access.CanAccessTest(f.admin, "unlinked"))
}

func Test_Access_CanViewCourseSOP(t *testing.T) {
	f := setupAccess(t)

	assert.NoError(t, f.access.CanViewCourseSOP(f.admin, f.crs.ID))
	assert.NoError(t, f.access.CanViewCourseSOP(f.lector, f.crs.ID))

	assert.Equal(t, core.ErrPermissionDenied, errors.Cause(f.access.CanViewCourseSOP(f.seminarist, f.crs.ID)))
	assert.Equal(t, core.ErrPermissionDenied, errors.Cause(f.access.CanViewCourseSOP(f.student, f.crs.ID)))
}
