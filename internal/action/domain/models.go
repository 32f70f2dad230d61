// Package domain holds the school improvement actions tracked in the product.
// Only completion counts are read here.
package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Status string

const (
	StatusOpen       Status = "open"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

type Action struct {
	ID          snowflake.ID `gorm:"primaryKey"`
	OrgID       snowflake.ID `gorm:"not null;index"`
	Title       string       `gorm:"type:text;not null"`
	Status      Status       `gorm:"type:text;not null;default:open"`
	CompletedAt *time.Time
	CreatedAt   time.Time `gorm:"not null"`
}

func (Action) TableName() string { return "actions" }

type Counts struct {
	Total     int64
	Completed int64
}

// CompletionRate is completed/total as a percentage; zero when there are no actions.
func (c Counts) CompletionRate() float64 {
	return float64(c.Completed) / float64(max(c.Total, 1)) * 100
}

type Repository interface {
	CountByOrg(ctx context.Context, db *gorm.DB, orgID snowflake.ID) (Counts, error)
}
