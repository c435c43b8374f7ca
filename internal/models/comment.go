package models

import "time"

type Comment struct {
	ID             int       `gorm:"primaryKey" json:"id"`
	Body           string    `gorm:"not null" json:"body"`
	AuthorID       int       `gorm:"not null;index" json:"author_id"`
	User           User      `gorm:"foreignKey:AuthorID" json:"user"`
	SolutionID     int       `gorm:"not null;index" json:"solution_id"`
	UpvotesCount   int       `gorm:"not null;default:0;check:comments_upvotes_nonneg,upvotes_count >= 0" json:"upvotesCount"`
	DownvotesCount int       `gorm:"not null;default:0;check:comments_downvotes_nonneg,downvotes_count >= 0" json:"downvotesCount"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type CreateCommentRequest struct {
	Body string `json:"body" binding:"required"`
}
