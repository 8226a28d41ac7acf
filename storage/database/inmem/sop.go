package inmemdb

import (
	"encoding/json"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/sop"
)

type sopRepository struct {
	db *DB
}

var _ sop.Repository = (*sopRepository)(nil)

func NewSopRepository(db *DB) *sopRepository {
	return &sopRepository{db: db}
}

func (repo *sopRepository) GetLatestSet(userID string) (sop.Set, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var latest *sop.Set
	for _, set := range repo.db.sets {
		if set.UserID != userID {
			continue
		}
		if latest == nil || set.CreationTime.After(latest.CreationTime) {
			latest = set
		}
	}
	if latest == nil {
		return sop.Set{}, core.ErrNotFound
	}
	return *latest, nil
}

func (repo *sopRepository) ReplaceUserSets(set sop.Set, blocks []sop.SetBlock) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for id, s := range repo.db.sets {
		if s.UserID == set.UserID {
			delete(repo.db.sets, id)
		}
	}
	kept := repo.db.setBlocks[:0]
	for _, blk := range repo.db.setBlocks {
		if blk.UserID != set.UserID {
			kept = append(kept, blk)
		}
	}
	repo.db.setBlocks = kept

	repo.db.setPK++
	set.ID = repo.db.setPK
	repo.db.sets[set.ID] = &set
	for _, blk := range blocks {
		blk.SetID = set.ID
		repo.db.setBlocks = append(repo.db.setBlocks, blk)
	}
	return nil
}

func (repo *sopRepository) QuerySetBlocks(courseID, blockType, teacherID string) ([]sop.SetBlock, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	blocks := []sop.SetBlock{}
	for _, blk := range repo.db.setBlocks {
		if blk.Type != blockType {
			continue
		}
		if courseID != "" && blk.CourseID != courseID {
			continue
		}
		if teacherID != "" {
			var content sop.BlockContent
			if err := json.Unmarshal([]byte(blk.Content), &content); err != nil {
				continue
			}
			if content.TeacherID != teacherID {
				continue
			}
		}
		blocks = append(blocks, blk)
	}
	return blocks, nil
}
