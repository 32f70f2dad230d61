// Package domain defines customer health records and the scoring rules that
// produce them.
package domain

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

type Status string

const (
	StatusHealthy  Status = "healthy"
	StatusNeutral  Status = "neutral"
	StatusAtRisk   Status = "at_risk"
	StatusCritical Status = "critical"
)

func (s Status) Valid() bool {
	switch s {
	case StatusHealthy, StatusNeutral, StatusAtRisk, StatusCritical:
		return true
	default:
		return false
	}
}

// NeedsAttention is true for at_risk and critical customers.
func (s Status) NeedsAttention() bool {
	return s == StatusAtRisk || s == StatusCritical
}

// CustomerHealth is the latest score for one organization. Each computation
// overwrites the previous row.
type CustomerHealth struct {
	OrgID             snowflake.ID `gorm:"primaryKey;autoIncrement:false" json:"organization_id"`
	OrganizationName  string       `gorm:"->;-:migration" json:"organization_name,omitempty"`
	HealthScore       int          `gorm:"not null" json:"health_score"`
	HealthStatus      Status       `gorm:"type:text;not null;index" json:"health_status"`
	EngagementScore   int          `gorm:"not null" json:"engagement_score"`
	AdoptionScore     int          `gorm:"not null" json:"adoption_score"`
	ValueScore        int          `gorm:"not null" json:"value_score"`
	RiskFlags         RiskFlags    `gorm:"not null" json:"risk_flags"`
	DaysActive        int          `gorm:"not null" json:"days_active"`
	DaysSinceLogin    *int         `json:"days_since_login"`
	ActiveUserPercent float64      `gorm:"not null" json:"active_user_percent"`
	CompletionRate    float64      `gorm:"not null" json:"completion_rate"`
	FeaturesUsed      int          `gorm:"not null" json:"features_used"`
	CalculatedAt      time.Time    `gorm:"not null" json:"calculated_at"`
	UpdatedAt         time.Time    `gorm:"not null" json:"updated_at"`
}

func (CustomerHealth) TableName() string { return "customer_health" }

// RiskFlags is stored as text[] on postgres.
type RiskFlags []string

func (RiskFlags) GormDataType() string { return "risk_flags" }

func (RiskFlags) GormDBDataType(db *gorm.DB, _ *schema.Field) string {
	if db.Dialector.Name() == "postgres" {
		return "text[]"
	}
	return "text"
}

func (f RiskFlags) Value() (driver.Value, error) {
	if f == nil {
		return "{}", nil
	}
	return pq.StringArray(f).Value()
}

func (f *RiskFlags) Scan(src any) error {
	var arr pq.StringArray
	if err := arr.Scan(src); err != nil {
		return err
	}
	*f = RiskFlags(arr)
	return nil
}

func (f RiskFlags) MarshalJSON() ([]byte, error) {
	if f == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(f))
}

// SweepItem is one organization's outcome within a sweep.
type SweepItem struct {
	OrganizationID snowflake.ID `json:"organization_id"`
	HealthScore    *int         `json:"health_score,omitempty"`
	HealthStatus   Status       `json:"health_status,omitempty"`
	Error          string       `json:"error,omitempty"`
}

type SweepResult struct {
	Success   bool        `json:"success"`
	Processed int         `json:"processed"`
	Failed    int         `json:"failed"`
	Results   []SweepItem `json:"results"`
}

type Repository interface {
	Upsert(ctx context.Context, db *gorm.DB, record *CustomerHealth) error
	FindByOrgID(ctx context.Context, db *gorm.DB, orgID snowflake.ID) (*CustomerHealth, error)
	List(ctx context.Context, db *gorm.DB, status *Status) ([]CustomerHealth, error)
	ListOrganizationsWithActiveSubscription(ctx context.Context, db *gorm.DB) ([]snowflake.ID, error)
}

type Service interface {
	ComputeOrganization(ctx context.Context, orgID snowflake.ID) (*CustomerHealth, error)
	Sweep(ctx context.Context) (*SweepResult, error)
	Get(ctx context.Context, orgID snowflake.ID) (*CustomerHealth, error)
	List(ctx context.Context, status string) ([]CustomerHealth, error)
}

var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidStatus       = errors.New("invalid_health_status")
	ErrNotFound            = errors.New("customer_health_not_found")
	ErrSweepInProgress     = errors.New("health_sweep_in_progress")
)
