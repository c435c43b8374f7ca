package score

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/emilythestrangee/designarena/backend/internal/models"
)

// Apply adds d to the user's stats inside tx, creating the row on the user's
// first scored action. Callers run it in the same transaction as the activity
// that caused it.
func Apply(ctx context.Context, tx *gorm.DB, userID int, d Delta) (models.UserStats, error) {
	stats, err := lockStats(ctx, tx, userID)
	if err != nil {
		return models.UserStats{}, err
	}

	ApplyDelta(&stats, d)

	if err := saveStats(ctx, tx, &stats); err != nil {
		return models.UserStats{}, err
	}
	return stats, nil
}

// Recompute resets the stored score from the stored counters.
func Recompute(ctx context.Context, db *gorm.DB, userID int) (models.UserStats, error) {
	var stats models.UserStats
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		stats, err = lockStats(ctx, tx, userID)
		if err != nil {
			return err
		}
		Refresh(&stats)
		return saveStats(ctx, tx, &stats)
	})
	return stats, err
}

// Rebuild recounts a user's activity from the source tables and overwrites
// their stats row.
func Rebuild(ctx context.Context, db *gorm.DB, userID int) (models.UserStats, error) {
	var stats models.UserStats
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		stats, err = lockStats(ctx, tx, userID)
		if err != nil {
			return err
		}

		var solutions, comments, given, received int64
		if err := tx.Model(&models.Solution{}).Where("author_id = ?", userID).Count(&solutions).Error; err != nil {
			return fmt.Errorf("failed to count solutions: %w", err)
		}
		if err := tx.Model(&models.Comment{}).Where("author_id = ?", userID).Count(&comments).Error; err != nil {
			return fmt.Errorf("failed to count comments: %w", err)
		}
		if err := tx.Model(&models.Vote{}).Where("user_id = ? AND vote_type = ?", userID, "upvote").Count(&given).Error; err != nil {
			return fmt.Errorf("failed to count upvotes given: %w", err)
		}
		err = tx.Table("votes").
			Joins("LEFT JOIN challenges ON votes.challenge_id = challenges.id").
			Joins("LEFT JOIN solutions ON votes.solution_id = solutions.id").
			Joins("LEFT JOIN comments ON votes.comment_id = comments.id").
			Where("votes.vote_type = ?", "upvote").
			Where("COALESCE(challenges.author_id, solutions.author_id, comments.author_id) = ?", userID).
			Count(&received).Error
		if err != nil {
			return fmt.Errorf("failed to count upvotes received: %w", err)
		}

		stats.SolutionsCount = int(solutions)
		stats.CommentsCount = int(comments)
		stats.UpvotesGiven = int(given)
		stats.UpvotesReceived = int(received)
		Refresh(&stats)
		return saveStats(ctx, tx, &stats)
	})
	return stats, err
}

// RebuildAll runs Rebuild for every user and returns how many rows it wrote.
func RebuildAll(ctx context.Context, db *gorm.DB) (int, error) {
	var ids []int
	if err := db.WithContext(ctx).Model(&models.User{}).Order("id").Pluck("id", &ids).Error; err != nil {
		return 0, fmt.Errorf("failed to list users: %w", err)
	}
	for i, id := range ids {
		if _, err := Rebuild(ctx, db, id); err != nil {
			return i, fmt.Errorf("failed to rebuild stats for user %d: %w", id, err)
		}
	}
	return len(ids), nil
}

func lockStats(ctx context.Context, tx *gorm.DB, userID int) (models.UserStats, error) {
	seed := models.UserStats{UserID: userID, UpdatedAt: time.Now().UTC()}
	if err := tx.WithContext(ctx).Omit("User").Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
		return models.UserStats{}, fmt.Errorf("failed to create stats for user %d: %w", userID, err)
	}

	var stats models.UserStats
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ?", userID).
		Take(&stats).Error
	if err != nil {
		return models.UserStats{}, fmt.Errorf("failed to load stats for user %d: %w", userID, err)
	}
	return stats, nil
}

func saveStats(ctx context.Context, tx *gorm.DB, s *models.UserStats) error {
	s.UpdatedAt = time.Now().UTC()
	err := tx.WithContext(ctx).Model(&models.UserStats{}).
		Where("user_id = ?", s.UserID).
		Updates(map[string]interface{}{
			"score":            s.Score,
			"solutions_count":  s.SolutionsCount,
			"comments_count":   s.CommentsCount,
			"upvotes_given":    s.UpvotesGiven,
			"upvotes_received": s.UpvotesReceived,
			"updated_at":       s.UpdatedAt,
		}).Error
	if err != nil {
		return fmt.Errorf("failed to save stats for user %d: %w", s.UserID, err)
	}
	return nil
}
