package sqlxrepos

import (
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/course"
	"github.com/trezcool/elimu/core/user"
)

type courseRow struct {
	ID          string      `db:"course_id"`
	Name        string      `db:"name"`
	Description null.String `db:"description"`
	LectorID    string      `db:"lector_id"`
}

func (r courseRow) unpack() course.Course {
	return course.Course{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description.String,
		LectorID:    r.LectorID,
	}
}

func packCourse(crs course.Course) courseRow {
	return courseRow{
		ID:          crs.ID,
		Name:        crs.Name,
		Description: null.NewString(crs.Description, crs.Description != ""),
		LectorID:    crs.LectorID,
	}
}

type groupRow struct {
	GroupID      string `db:"group_id"`
	CourseID     string `db:"course_id"`
	SeminaristID string `db:"seminarist_id"`
}

type blockRow struct {
	ID       string `db:"block_id"`
	CourseID string `db:"course_id"`
	Name     string `db:"name"`
}

type unitRow struct {
	ID       int    `db:"unit_id"`
	BlockID  string `db:"block_id"`
	CourseID string `db:"course_id"`
	Name     string `db:"name"`
	Type     string `db:"type"`
	Content  string `db:"content"`
}

type courseRepository struct {
	db *sqlx.DB
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *sqlx.DB) *courseRepository {
	return &courseRepository{db: db}
}

func (repo courseRepository) insertGroups(tx *sqlx.Tx, courseID string, groups []course.Group) error {
	for _, g := range groups {
		_, err := tx.NamedExec(
			`INSERT INTO groups (group_id, course_id, seminarist_id)
			 VALUES (:group_id, :course_id, :seminarist_id)`,
			groupRow{GroupID: g.GroupID, CourseID: courseID, SeminaristID: g.SeminaristID})
		if err != nil {
			return errors.Wrap(err, "inserting group")
		}
	}
	return nil
}

func (repo courseRepository) CreateCourse(crs course.Course, groups []course.Group) (course.Course, error) {
	tx, err := repo.db.Beginx()
	if err != nil {
		return course.Course{}, errors.Wrap(err, "beginning transaction")
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.NamedExec(
		`INSERT INTO courses (course_id, name, description, lector_id)
		 VALUES (:course_id, :name, :description, :lector_id)`, packCourse(crs))
	if err != nil {
		return course.Course{}, errors.Wrap(err, "inserting course")
	}
	if err = repo.insertGroups(tx, crs.ID, groups); err != nil {
		return course.Course{}, err
	}
	if err = tx.Commit(); err != nil {
		return course.Course{}, errors.Wrap(err, "committing course")
	}
	return crs, nil
}

func (repo courseRepository) GetCourse(id string) (course.Course, error) {
	var row courseRow
	if err := repo.db.Get(&row, "SELECT * FROM courses WHERE course_id = $1", id); err != nil {
		if err == sql.ErrNoRows {
			return course.Course{}, core.ErrNotFound
		}
		return course.Course{}, errors.Wrap(err, "getting course")
	}
	return row.unpack(), nil
}

func (repo courseRepository) UpdateCourse(crs course.Course) (course.Course, error) {
	res, err := repo.db.NamedExec(
		`UPDATE courses SET name = :name, description = :description, lector_id = :lector_id
		 WHERE course_id = :course_id`, packCourse(crs))
	if err != nil {
		return course.Course{}, errors.Wrap(err, "updating course")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return course.Course{}, core.ErrNotFound
	}
	return crs, nil
}

func (repo courseRepository) ReplaceGroups(courseID string, groups []course.Group) error {
	tx, err := repo.db.Beginx()
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	defer func() { _ = tx.Rollback() }()

	if _, err = tx.Exec("DELETE FROM groups WHERE course_id = $1", courseID); err != nil {
		return errors.Wrap(err, "deleting groups")
	}
	if err = repo.insertGroups(tx, courseID, groups); err != nil {
		return err
	}
	return errors.Wrap(tx.Commit(), "committing groups")
}

func (repo courseRepository) QueryCourseGroups(courseID string) ([]course.Group, error) {
	var rows []groupRow
	err := repo.db.Select(&rows, "SELECT * FROM groups WHERE course_id = $1 ORDER BY group_id", courseID)
	if err != nil {
		return nil, errors.Wrap(err, "querying course groups")
	}
	groups := make([]course.Group, 0, len(rows))
	for _, r := range rows {
		groups = append(groups, course.Group(r))
	}
	return groups, nil
}

func (repo courseRepository) queryCourses(where string, filter course.QueryFilter, args ...interface{}) ([]course.Course, int, error) {
	cond := "TRUE"
	if where != "" {
		cond = where
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		n := len(args)
		cond += fmt.Sprintf(" AND (name ILIKE $%d OR description ILIKE $%d)", n, n)
	}

	var total int
	err := repo.db.Get(&total, "SELECT COUNT(*) FROM courses WHERE "+cond, args...)
	if err != nil {
		return nil, 0, errors.Wrap(err, "counting courses")
	}

	args = append(args, filter.Limit, filter.Offset)
	n := len(args)
	var rows []courseRow
	err = repo.db.Select(&rows,
		fmt.Sprintf("SELECT * FROM courses WHERE %s ORDER BY name LIMIT $%d OFFSET $%d", cond, n-1, n),
		args...)
	if err != nil {
		return nil, 0, errors.Wrap(err, "querying courses")
	}

	courses := make([]course.Course, 0, len(rows))
	for _, r := range rows {
		courses = append(courses, r.unpack())
	}
	return courses, total, nil
}

func (repo courseRepository) QueryCourses(filter course.QueryFilter) ([]course.Course, int, error) {
	return repo.queryCourses("", filter)
}

func (repo courseRepository) QueryStudentCourses(studentID string, filter course.QueryFilter) ([]course.Course, []course.Group, int, error) {
	courses, total, err := repo.queryCourses(
		`course_id IN (
			SELECT g.course_id FROM groups g
			JOIN users u ON u.group_id = g.group_id
			WHERE u.user_id = $1
		 )`, filter, studentID)
	if err != nil {
		return nil, nil, 0, err
	}

	var rows []groupRow
	err = repo.db.Select(&rows,
		`SELECT g.* FROM groups g
		 JOIN users u ON u.group_id = g.group_id
		 WHERE u.user_id = $1`, studentID)
	if err != nil {
		return nil, nil, 0, errors.Wrap(err, "querying student groups")
	}
	groups := make([]course.Group, 0, len(rows))
	for _, r := range rows {
		groups = append(groups, course.Group(r))
	}
	return courses, groups, total, nil
}

func (repo courseRepository) QueryTaughtCourses(teacherID string) ([]course.Course, error) {
	var rows []courseRow
	err := repo.db.Select(&rows,
		`SELECT DISTINCT c.* FROM courses c
		 LEFT JOIN groups g ON g.course_id = c.course_id
		 WHERE c.lector_id = $1 OR g.seminarist_id = $1
		 ORDER BY c.name`, teacherID)
	if err != nil {
		return nil, errors.Wrap(err, "querying taught courses")
	}
	courses := make([]course.Course, 0, len(rows))
	for _, r := range rows {
		courses = append(courses, r.unpack())
	}
	return courses, nil
}

func (repo courseRepository) QueryCourseStudents(courseID string, filter course.QueryFilter) ([]user.User, int, error) {
	cond := `u.role = 'student' AND u.group_id IN (SELECT group_id FROM groups WHERE course_id = $1)`
	args := []interface{}{courseID}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		n := len(args)
		cond += fmt.Sprintf(" AND (u.first_name ILIKE $%d OR u.last_name ILIKE $%d OR u.email ILIKE $%d)", n, n, n)
	}

	var total int
	err := repo.db.Get(&total, "SELECT COUNT(*) FROM users u WHERE "+cond, args...)
	if err != nil {
		return nil, 0, errors.Wrap(err, "counting course students")
	}

	args = append(args, filter.Limit, filter.Offset)
	n := len(args)
	var rows []userRow
	err = repo.db.Select(&rows,
		fmt.Sprintf("SELECT u.* FROM users u WHERE %s ORDER BY u.last_name, u.first_name LIMIT $%d OFFSET $%d", cond, n-1, n),
		args...)
	if err != nil {
		return nil, 0, errors.Wrap(err, "querying course students")
	}

	students := make([]user.User, 0, len(rows))
	for _, r := range rows {
		students = append(students, r.unpack())
	}
	return students, total, nil
}

func (repo courseRepository) GroupInCourse(groupID, courseID string) (bool, error) {
	var exists bool
	err := repo.db.Get(&exists,
		"SELECT EXISTS (SELECT 1 FROM groups WHERE group_id = $1 AND course_id = $2)", groupID, courseID)
	if err != nil {
		return false, errors.Wrap(err, "checking group membership")
	}
	return exists, nil
}

func (repo courseRepository) SeminaristOfCourse(userID, courseID string) (bool, error) {
	var exists bool
	err := repo.db.Get(&exists,
		"SELECT EXISTS (SELECT 1 FROM groups WHERE seminarist_id = $1 AND course_id = $2)", userID, courseID)
	if err != nil {
		return false, errors.Wrap(err, "checking seminarist")
	}
	return exists, nil
}

func (repo courseRepository) CreateBlock(blk course.Block) (course.Block, error) {
	_, err := repo.db.NamedExec(
		"INSERT INTO blocks (block_id, course_id, name) VALUES (:block_id, :course_id, :name)",
		blockRow(blk))
	if err != nil {
		return course.Block{}, errors.Wrap(err, "inserting block")
	}
	return blk, nil
}

func (repo courseRepository) GetBlock(id string) (course.Block, error) {
	var row blockRow
	if err := repo.db.Get(&row, "SELECT * FROM blocks WHERE block_id = $1", id); err != nil {
		if err == sql.ErrNoRows {
			return course.Block{}, core.ErrNotFound
		}
		return course.Block{}, errors.Wrap(err, "getting block")
	}
	return course.Block(row), nil
}

func (repo courseRepository) UpdateBlock(blk course.Block) (course.Block, error) {
	res, err := repo.db.NamedExec("UPDATE blocks SET name = :name WHERE block_id = :block_id", blockRow(blk))
	if err != nil {
		return course.Block{}, errors.Wrap(err, "updating block")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return course.Block{}, core.ErrNotFound
	}
	return blk, nil
}

func (repo courseRepository) QueryCourseBlocks(courseID string) ([]course.Block, error) {
	var rows []blockRow
	err := repo.db.Select(&rows, "SELECT * FROM blocks WHERE course_id = $1 ORDER BY block_id", courseID)
	if err != nil {
		return nil, errors.Wrap(err, "querying course blocks")
	}
	blocks := make([]course.Block, 0, len(rows))
	for _, r := range rows {
		blocks = append(blocks, course.Block(r))
	}
	return blocks, nil
}

func (repo courseRepository) CreateUnit(unit course.Unit) (course.Unit, error) {
	row := unitRow(unit)
	err := repo.db.QueryRowx(
		`INSERT INTO units (block_id, course_id, name, type, content)
		 VALUES ($1, $2, $3, $4, $5) RETURNING unit_id`,
		row.BlockID, row.CourseID, row.Name, row.Type, row.Content).Scan(&unit.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return course.Unit{}, core.NewConflictError(errors.New("a unit with this name already exists in this block"))
		}
		return course.Unit{}, errors.Wrap(err, "inserting unit")
	}
	return unit, nil
}

func (repo courseRepository) GetUnit(id int) (course.Unit, error) {
	var row unitRow
	if err := repo.db.Get(&row, "SELECT * FROM units WHERE unit_id = $1", id); err != nil {
		if err == sql.ErrNoRows {
			return course.Unit{}, core.ErrNotFound
		}
		return course.Unit{}, errors.Wrap(err, "getting unit")
	}
	return course.Unit(row), nil
}

func (repo courseRepository) UpdateUnit(unit course.Unit) (course.Unit, error) {
	res, err := repo.db.NamedExec(
		"UPDATE units SET name = :name, type = :type, content = :content WHERE unit_id = :unit_id",
		unitRow(unit))
	if err != nil {
		if isUniqueViolation(err) {
			return course.Unit{}, core.NewConflictError(errors.New("a unit with this name already exists in this block"))
		}
		return course.Unit{}, errors.Wrap(err, "updating unit")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return course.Unit{}, core.ErrNotFound
	}
	return unit, nil
}

func (repo courseRepository) QueryBlockUnits(blockID string) ([]course.Unit, error) {
	var rows []unitRow
	err := repo.db.Select(&rows, "SELECT * FROM units WHERE block_id = $1 ORDER BY name", blockID)
	if err != nil {
		return nil, errors.Wrap(err, "querying block units")
	}
	units := make([]course.Unit, 0, len(rows))
	for _, r := range rows {
		units = append(units, course.Unit(r))
	}
	return units, nil
}

func (repo courseRepository) FindTestUnit(testID string) (course.Unit, error) {
	var row unitRow
	err := repo.db.Get(&row,
		"SELECT * FROM units WHERE type = 'test' AND content::jsonb->>'test_id' = $1", testID)
	if err != nil {
		if err == sql.ErrNoRows {
			return course.Unit{}, core.ErrNotFound
		}
		return course.Unit{}, errors.Wrap(err, "finding test unit")
	}
	return course.Unit(row), nil
}
