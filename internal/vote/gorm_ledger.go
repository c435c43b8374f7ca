package vote

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/emilythestrangee/designarena/backend/internal/models"
	"github.com/emilythestrangee/designarena/backend/internal/score"
)

// GormLedger stores votes in the votes table and counters on the target
// rows. The polymorphic Target becomes one of three nullable foreign keys
// only here.
type GormLedger struct {
	db *gorm.DB
}

func NewGormLedger(db *gorm.DB) *GormLedger {
	return &GormLedger{db: db}
}

func (l *GormLedger) Atomically(ctx context.Context, fn func(tx Tx) error) error {
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTx{db: tx})
	})
	return classify(err)
}

func (l *GormLedger) FindVote(ctx context.Context, userID int, t Target) (*Record, error) {
	r, err := findVote(l.db.WithContext(ctx), userID, t)
	return r, classify(err)
}

type gormTx struct {
	db *gorm.DB
}

func (tx *gormTx) LockSubject(ctx context.Context, t Target) (Subject, error) {
	var row struct {
		ID             int
		AuthorID       int
		UpvotesCount   int
		DownvotesCount int
	}
	err := tx.db.WithContext(ctx).
		Model(model(t.Kind)).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("id, author_id, upvotes_count, downvotes_count").
		Where("id = ?", t.ID).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Subject{}, fmt.Errorf("%w: %s", ErrNotFound, t)
	}
	if err != nil {
		return Subject{}, fmt.Errorf("failed to lock %s: %w", t, err)
	}
	return Subject{
		Target:   t,
		AuthorID: row.AuthorID,
		Counts:   Counts{Upvotes: row.UpvotesCount, Downvotes: row.DownvotesCount},
	}, nil
}

func (tx *gormTx) UserExists(ctx context.Context, userID int) (bool, error) {
	var n int64
	if err := tx.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Count(&n).Error; err != nil {
		return false, fmt.Errorf("failed to look up user %d: %w", userID, err)
	}
	return n > 0, nil
}

func (tx *gormTx) FindVote(ctx context.Context, userID int, t Target) (*Record, error) {
	return findVote(tx.db.WithContext(ctx), userID, t)
}

func (tx *gormTx) InsertVote(ctx context.Context, r *Record) error {
	row := toModel(r)
	if err := tx.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("failed to insert vote on %s: %w", r.Target, err)
	}
	r.ID = row.ID
	return nil
}

func (tx *gormTx) UpdateDirection(ctx context.Context, id int, d Direction) error {
	err := tx.db.WithContext(ctx).Model(&models.Vote{}).Where("id = ?", id).Update("vote_type", string(d)).Error
	if err != nil {
		return fmt.Errorf("failed to switch vote %d: %w", id, err)
	}
	return nil
}

func (tx *gormTx) DeleteVote(ctx context.Context, id int) error {
	if err := tx.db.WithContext(ctx).Delete(&models.Vote{}, id).Error; err != nil {
		return fmt.Errorf("failed to delete vote %d: %w", id, err)
	}
	return nil
}

func (tx *gormTx) AdjustCounts(ctx context.Context, t Target, up, down int) (Counts, error) {
	err := tx.db.WithContext(ctx).
		Model(model(t.Kind)).
		Where("id = ?", t.ID).
		Updates(map[string]interface{}{
			"upvotes_count":   gorm.Expr("GREATEST(upvotes_count + ?, 0)", up),
			"downvotes_count": gorm.Expr("GREATEST(downvotes_count + ?, 0)", down),
		}).Error
	if err != nil {
		return Counts{}, fmt.Errorf("failed to adjust counters on %s: %w", t, err)
	}

	var row struct {
		UpvotesCount   int
		DownvotesCount int
	}
	err = tx.db.WithContext(ctx).
		Model(model(t.Kind)).
		Select("upvotes_count, downvotes_count").
		Where("id = ?", t.ID).
		Take(&row).Error
	if err != nil {
		return Counts{}, fmt.Errorf("failed to read counters on %s: %w", t, err)
	}
	return Counts{Upvotes: row.UpvotesCount, Downvotes: row.DownvotesCount}, nil
}

func (tx *gormTx) ApplyStats(ctx context.Context, userID int, d score.Delta) error {
	_, err := score.Apply(ctx, tx.db, userID, d)
	return err
}

func findVote(db *gorm.DB, userID int, t Target) (*Record, error) {
	var row models.Vote
	err := db.Where("user_id = ?", userID).Where(column(t.Kind)+" = ?", t.ID).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up vote on %s: %w", t, err)
	}
	return fromModel(row), nil
}

func model(k Kind) interface{} {
	switch k {
	case KindChallenge:
		return &models.Challenge{}
	case KindSolution:
		return &models.Solution{}
	default:
		return &models.Comment{}
	}
}

func column(k Kind) string {
	switch k {
	case KindChallenge:
		return "challenge_id"
	case KindSolution:
		return "solution_id"
	default:
		return "comment_id"
	}
}

func toModel(r *Record) models.Vote {
	id := r.Target.ID
	row := models.Vote{
		UserID:    r.UserID,
		VoteType:  string(r.Direction),
		CreatedAt: r.CreatedAt,
	}
	switch r.Target.Kind {
	case KindChallenge:
		row.ChallengeID = &id
	case KindSolution:
		row.SolutionID = &id
	case KindComment:
		row.CommentID = &id
	}
	return row
}

func fromModel(row models.Vote) *Record {
	r := &Record{
		ID:        row.ID,
		UserID:    row.UserID,
		Direction: Direction(row.VoteType),
		CreatedAt: row.CreatedAt,
	}
	switch {
	case row.ChallengeID != nil:
		r.Target = Challenge(*row.ChallengeID)
	case row.SolutionID != nil:
		r.Target = Solution(*row.SolutionID)
	case row.CommentID != nil:
		r.Target = Comment(*row.CommentID)
	}
	return r
}

// Postgres error codes treated as retryable conflicts.
const (
	pgUniqueViolation      = "23505"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgLockNotAvailable     = "55P03"
)

func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrConflict) {
		return err
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: %v", ErrConflict, err)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation, pgSerializationFailure, pgDeadlockDetected, pgLockNotAvailable:
			return fmt.Errorf("%w: %v", ErrConflict, err)
		}
	}
	return err
}
