// Package domain contains persistence models for the organization service.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type OrganizationType string

const (
	OrganizationTypeSchool         OrganizationType = "school"
	OrganizationTypeTrust          OrganizationType = "trust"
	OrganizationTypeLocalAuthority OrganizationType = "local_authority"
)

func (t OrganizationType) Valid() bool {
	switch t {
	case OrganizationTypeSchool, OrganizationTypeTrust, OrganizationTypeLocalAuthority:
		return true
	default:
		return false
	}
}

// Organization is a customer: a single school, a multi-academy trust or a local authority.
type Organization struct {
	ID        snowflake.ID     `gorm:"primaryKey" json:"id"`
	Name      string           `gorm:"type:text;not null" json:"name"`
	Slug      string           `gorm:"type:text;not null;uniqueIndex:ux_organizations_slug" json:"slug"`
	Type      OrganizationType `gorm:"type:text;not null;default:school" json:"type"`
	CreatedAt time.Time        `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time        `gorm:"not null" json:"updated_at"`
}

func (Organization) TableName() string { return "organizations" }

// OrganizationMember is a staff user belonging to an organization. Member
// counts drive the active-user percentage in health scoring.
type OrganizationMember struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	OrgID     snowflake.ID `gorm:"not null;index;uniqueIndex:ux_org_user,priority:1" json:"org_id"`
	UserID    snowflake.ID `gorm:"not null;uniqueIndex:ux_org_user,priority:2" json:"user_id"`
	Role      string       `gorm:"type:text;not null" json:"role"`
	CreatedAt time.Time    `gorm:"not null" json:"created_at"`
}

func (OrganizationMember) TableName() string { return "organization_members" }
