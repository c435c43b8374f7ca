package models

import (
	"encoding/json"
	"time"
)

// Solution is a diagrammed answer to a challenge. Diagram is stored as the
// editor's opaque JSON document.
type Solution struct {
	ID             int             `gorm:"primaryKey" json:"id"`
	ChallengeID    int             `gorm:"not null;index" json:"challenge_id"`
	Challenge      Challenge       `gorm:"foreignKey:ChallengeID" json:"-"`
	Title          string          `gorm:"not null" json:"title"`
	Description    string          `json:"description"`
	Diagram        json.RawMessage `gorm:"type:jsonb" json:"diagram,omitempty"`
	AuthorID       int             `gorm:"not null;index" json:"author_id"`
	Author         User            `gorm:"foreignKey:AuthorID" json:"author"`
	UpvotesCount   int             `gorm:"not null;default:0;check:solutions_upvotes_nonneg,upvotes_count >= 0" json:"upvotesCount"`
	DownvotesCount int             `gorm:"not null;default:0;check:solutions_downvotes_nonneg,downvotes_count >= 0" json:"downvotesCount"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

type CreateSolutionRequest struct {
	Title       string          `json:"title" binding:"required"`
	Description string          `json:"description"`
	Diagram     json.RawMessage `json:"diagram"`
}
