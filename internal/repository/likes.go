package repository

import (
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// likeTarget names the counter table and join table of a likeable entity.
type likeTarget struct {
	entity    string
	counter   interface{} // model holding the likes column
	join      interface{} // model of the (entity, email) join table
	keyColumn string      // join table column referencing the entity
}

// toggleLike flips the join row for (id, email) inside tx and keeps the
// counter in step. A removed row decrements with a floor at zero; a new row
// increments only when the insert actually happened.
func toggleLike(tx *gorm.DB, target likeTarget, id uint, email string, row interface{}) (likes int, liked bool, err error) {
	var current struct{ Likes int }
	if err := tx.Model(target.counter).Select("likes").Where("id = ?", id).Take(&current).Error; err != nil {
		return 0, false, translateError(err, target.entity, id)
	}

	removed := tx.Where(target.keyColumn+" = ? AND email = ?", id, email).Delete(target.join)
	if removed.Error != nil {
		return 0, false, fmt.Errorf("failed to remove %s like: %w", target.entity, removed.Error)
	}

	if removed.RowsAffected > 0 {
		err := tx.Model(target.counter).Where("id = ?", id).
			UpdateColumn("likes", clampedDecrement("likes")).Error
		if err != nil {
			return 0, false, fmt.Errorf("failed to decrement %s likes: %w", target.entity, err)
		}
	} else {
		added := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(row)
		if added.Error != nil {
			return 0, false, fmt.Errorf("failed to add %s like: %w", target.entity, added.Error)
		}
		if added.RowsAffected > 0 {
			err := tx.Model(target.counter).Where("id = ?", id).
				UpdateColumn("likes", increment("likes", 1)).Error
			if err != nil {
				return 0, false, fmt.Errorf("failed to increment %s likes: %w", target.entity, err)
			}
		}
		liked = true
	}

	if err := tx.Model(target.counter).Select("likes").Where("id = ?", id).Take(&current).Error; err != nil {
		return 0, false, translateError(err, target.entity, id)
	}
	return current.Likes, liked, nil
}
