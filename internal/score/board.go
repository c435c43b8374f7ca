package score

import (
	"context"
	"errors"
	"fmt"
	"log"

	"gorm.io/gorm"

	"github.com/emilythestrangee/designarena/backend/internal/models"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// ErrNoStats is returned when a user has never performed a scored action.
var ErrNoStats = errors.New("user has no stats")

// Entry is one leaderboard row.
type Entry struct {
	Rank            int    `json:"rank"`
	UserID          int    `json:"userId"`
	Username        string `json:"username,omitempty"`
	Score           int    `json:"score"`
	SolutionsCount  int    `json:"solutionsCount"`
	CommentsCount   int    `json:"commentsCount"`
	UpvotesReceived int    `json:"upvotesReceived"`
}

// Source reads ranked stats from storage.
type Source interface {
	TopStats(ctx context.Context, n int) ([]Entry, error)
	UserStats(ctx context.Context, userID int) (models.UserStats, error)
}

// Cache holds the top MaxLimit leaderboard entries.
type Cache interface {
	Load(ctx context.Context) ([]Entry, bool, error)
	Store(ctx context.Context, entries []Entry) error
	Invalidate(ctx context.Context) error
}

// Board serves leaderboard reads, caching the ranked list when a Cache is
// configured.
type Board struct {
	source Source
	cache  Cache
}

func NewBoard(source Source, cache Cache) *Board {
	return &Board{source: source, cache: cache}
}

// Top returns up to limit entries in rank order.
func (b *Board) Top(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	if b.cache != nil {
		entries, ok, err := b.cache.Load(ctx)
		if err != nil {
			log.Printf("leaderboard cache read failed: %v", err)
		} else if ok {
			return truncate(entries, limit), nil
		}
	}

	entries, err := b.source.TopStats(ctx, MaxLimit)
	if err != nil {
		return nil, err
	}
	for i := range entries {
		entries[i].Rank = i + 1
	}

	if b.cache != nil {
		if err := b.cache.Store(ctx, entries); err != nil {
			log.Printf("leaderboard cache write failed: %v", err)
		}
	}

	return truncate(entries, limit), nil
}

// Stats returns a single user's stats row.
func (b *Board) Stats(ctx context.Context, userID int) (models.UserStats, error) {
	return b.source.UserStats(ctx, userID)
}

// Invalidate drops the cached ranking after a score changes.
func (b *Board) Invalidate(ctx context.Context) {
	if b.cache == nil {
		return
	}
	if err := b.cache.Invalidate(ctx); err != nil {
		log.Printf("leaderboard cache invalidation failed: %v", err)
	}
}

func truncate(entries []Entry, limit int) []Entry {
	if len(entries) > limit {
		return entries[:limit]
	}
	return entries
}

// GormSource reads stats from the user_stats table.
type GormSource struct {
	db *gorm.DB
}

func NewGormSource(db *gorm.DB) *GormSource {
	return &GormSource{db: db}
}

func (s *GormSource) TopStats(ctx context.Context, n int) ([]Entry, error) {
	var entries []Entry
	err := s.db.WithContext(ctx).
		Table("user_stats").
		Select("user_stats.user_id, users.username, user_stats.score, user_stats.solutions_count, user_stats.comments_count, user_stats.upvotes_received").
		Joins("JOIN users ON users.id = user_stats.user_id").
		Order("user_stats.score DESC, user_stats.solutions_count DESC, user_stats.user_id ASC").
		Limit(n).
		Scan(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load leaderboard: %w", err)
	}
	if entries == nil {
		entries = []Entry{}
	}
	return entries, nil
}

func (s *GormSource) UserStats(ctx context.Context, userID int) (models.UserStats, error) {
	var stats models.UserStats
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Take(&stats).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.UserStats{}, ErrNoStats
	}
	if err != nil {
		return models.UserStats{}, fmt.Errorf("failed to load stats for user %d: %w", userID, err)
	}
	return stats, nil
}
