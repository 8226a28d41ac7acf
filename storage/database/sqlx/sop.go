package sqlxrepos

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/sop"
)

type setRow struct {
	ID           int       `db:"set_id"`
	UserID       string    `db:"user_id"`
	CreationTime time.Time `db:"creation_time"`
}

type setBlockRow struct {
	SetID    int    `db:"set_id"`
	CourseID string `db:"course_id"`
	Type     string `db:"type"`
	UserID   string `db:"user_id"`
	Content  string `db:"content"`
}

type sopRepository struct {
	db *sqlx.DB
}

var _ sop.Repository = (*sopRepository)(nil) // interface compliance check

func NewSopRepository(db *sqlx.DB) *sopRepository {
	return &sopRepository{db: db}
}

func (repo sopRepository) GetLatestSet(userID string) (sop.Set, error) {
	var row setRow
	err := repo.db.Get(&row,
		"SELECT * FROM sets WHERE user_id = $1 ORDER BY creation_time DESC LIMIT 1", userID)
	if err != nil {
		if err == sql.ErrNoRows {
			return sop.Set{}, core.ErrNotFound
		}
		return sop.Set{}, errors.Wrap(err, "getting latest set")
	}
	return sop.Set(row), nil
}

// ReplaceUserSets drops the user's previous submission and stores the new one
// in a single transaction. sets_blocks rows cascade with their set.
func (repo sopRepository) ReplaceUserSets(set sop.Set, blocks []sop.SetBlock) error {
	tx, err := repo.db.Beginx()
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	defer func() { _ = tx.Rollback() }()

	if _, err = tx.Exec("DELETE FROM sets WHERE user_id = $1", set.UserID); err != nil {
		return errors.Wrap(err, "deleting previous sets")
	}

	var setID int
	err = tx.QueryRowx(
		"INSERT INTO sets (user_id, creation_time) VALUES ($1, $2) RETURNING set_id",
		set.UserID, set.CreationTime).Scan(&setID)
	if err != nil {
		return errors.Wrap(err, "inserting set")
	}

	for _, blk := range blocks {
		_, err = tx.NamedExec(
			`INSERT INTO sets_blocks (set_id, course_id, type, user_id, content)
			 VALUES (:set_id, :course_id, :type, :user_id, :content)`,
			setBlockRow{
				SetID:    setID,
				CourseID: blk.CourseID,
				Type:     blk.Type,
				UserID:   blk.UserID,
				Content:  blk.Content,
			})
		if err != nil {
			return errors.Wrap(err, "inserting set block")
		}
	}
	return errors.Wrap(tx.Commit(), "committing submission")
}

func (repo sopRepository) QuerySetBlocks(courseID, blockType, teacherID string) ([]sop.SetBlock, error) {
	query := "SELECT * FROM sets_blocks WHERE type = $1"
	args := []interface{}{blockType}
	if courseID != "" {
		args = append(args, courseID)
		query += " AND course_id = $2"
	}
	if teacherID != "" {
		args = append(args, teacherID)
		query += fmt.Sprintf(" AND content::jsonb->>'teacher_id' = $%d", len(args))
	}

	var rows []setBlockRow
	if err := repo.db.Select(&rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying set blocks")
	}
	blocks := make([]sop.SetBlock, 0, len(rows))
	for _, r := range rows {
		blocks = append(blocks, sop.SetBlock(r))
	}
	return blocks, nil
}
