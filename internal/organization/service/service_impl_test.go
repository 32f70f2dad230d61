package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/schoolgle/schoolgle/internal/clock"
	"github.com/schoolgle/schoolgle/internal/organization/domain"
	"github.com/schoolgle/schoolgle/internal/organization/repository"
	"github.com/schoolgle/schoolgle/pkg/db/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestService(t *testing.T) domain.Service {
	t.Helper()
	db := dbtest.Open(t, &domain.Organization{}, &domain.OrganizationMember{})
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	return NewService(ServiceParam{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clock.NewFakeClock(time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)),
		Repo:  repository.Provide(),
	})
}

func TestCreateAssignsUniqueSlugs(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	first, err := svc.Create(ctx, domain.CreateRequest{Name: "St Mary Primary School"})
	require.NoError(t, err)
	assert.Equal(t, "st-mary-primary-school", first.Slug)
	assert.Equal(t, domain.OrganizationTypeSchool, first.Type)

	second, err := svc.Create(ctx, domain.CreateRequest{Name: "St Mary Primary School", Type: domain.OrganizationTypeTrust})
	require.NoError(t, err)
	assert.Equal(t, "st-mary-primary-school-2", second.Slug)

	got, err := svc.Get(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrganizationTypeTrust, got.Type)
}

func TestCreateValidates(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, domain.CreateRequest{Name: "  "})
	assert.ErrorIs(t, err, domain.ErrInvalidName)
	_, err = svc.Create(ctx, domain.CreateRequest{Name: "X", Type: "college"})
	assert.ErrorIs(t, err, domain.ErrInvalidType)
}

func TestGetUnknown(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.Get(context.Background(), snowflake.ID(999))
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAddMember(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	org, err := svc.Create(ctx, domain.CreateRequest{Name: "Oakfield Academy"})
	require.NoError(t, err)
	require.NoError(t, svc.AddMember(ctx, org.ID, snowflake.ID(10), ""))
	assert.ErrorIs(t, svc.AddMember(ctx, snowflake.ID(12345), snowflake.ID(10), "member"), domain.ErrNotFound)
	assert.ErrorIs(t, svc.AddMember(ctx, org.ID, 0, "member"), domain.ErrInvalidUser)
}
