package models

import "time"

// Challenge is a proposed system-design problem.
type Challenge struct {
	ID             int       `gorm:"primaryKey" json:"id"`
	Title          string    `gorm:"not null" json:"title"`
	Description    string    `json:"description"`
	Difficulty     string    `gorm:"size:16" json:"difficulty"`
	AuthorID       int       `gorm:"not null;index" json:"author_id"`
	Author         User      `gorm:"foreignKey:AuthorID" json:"author"`
	UpvotesCount   int       `gorm:"not null;default:0;check:challenges_upvotes_nonneg,upvotes_count >= 0" json:"upvotesCount"`
	DownvotesCount int       `gorm:"not null;default:0;check:challenges_downvotes_nonneg,downvotes_count >= 0" json:"downvotesCount"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type CreateChallengeRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	Difficulty  string `json:"difficulty" binding:"omitempty,oneof=easy medium hard"`
}
