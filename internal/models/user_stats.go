package models

import "time"

// UserStats is the leaderboard read model. Score is derived from the counters
// by the score package and is never written by hand.
type UserStats struct {
	UserID          int       `gorm:"primaryKey;autoIncrement:false" json:"userId"`
	User            User      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Score           int       `gorm:"not null;default:0;index" json:"score"`
	SolutionsCount  int       `gorm:"not null;default:0" json:"solutionsCount"`
	CommentsCount   int       `gorm:"not null;default:0" json:"commentsCount"`
	UpvotesGiven    int       `gorm:"not null;default:0" json:"upvotesGiven"`
	UpvotesReceived int       `gorm:"not null;default:0" json:"upvotesReceived"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

func (UserStats) TableName() string {
	return "user_stats"
}
