package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, org *Organization) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Organization, error)
	SlugExists(ctx context.Context, db *gorm.DB, slug string) (bool, error)
	AddMember(ctx context.Context, db *gorm.DB, member *OrganizationMember) error
	CountMembers(ctx context.Context, db *gorm.DB, orgID snowflake.ID) (int64, error)
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Organization, error)
	Get(ctx context.Context, id snowflake.ID) (*Organization, error)
	AddMember(ctx context.Context, orgID, userID snowflake.ID, role string) error
}

type CreateRequest struct {
	Name string           `json:"name"`
	Type OrganizationType `json:"type"`
}

var (
	ErrInvalidName         = errors.New("invalid_name")
	ErrInvalidType         = errors.New("invalid_organization_type")
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidUser         = errors.New("invalid_user")
	ErrNotFound            = errors.New("organization_not_found")
)
