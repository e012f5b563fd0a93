package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/paybook/internal/organization/domain"
	"github.com/smallbiznis/paybook/internal/organization/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type orgFixture struct {
	db   *gorm.DB
	node *snowflake.Node
	svc  domain.Service
}

func newOrgFixture(t *testing.T) *orgFixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Organization{}, &domain.OrganizationMember{}))

	node, err := snowflake.NewNode(5)
	require.NoError(t, err)

	return &orgFixture{
		db:   db,
		node: node,
		svc:  NewService(db, repository.NewRepository(db), node),
	}
}

func TestCreateOrganizationMakesCreatorOwner(t *testing.T) {
	f := newOrgFixture(t)
	userID := f.node.Generate()

	resp, err := f.svc.Create(context.Background(), userID, domain.CreateOrganizationRequest{
		Name: "Sharma Traders",
	})
	require.NoError(t, err)
	assert.Equal(t, "Sharma Traders", resp.Name)
	assert.Equal(t, "sharma-traders", resp.Slug)
	assert.Equal(t, userID.String(), resp.OwnerID)

	orgID, err := snowflake.ParseString(resp.ID)
	require.NoError(t, err)

	members, err := f.svc.ListMembers(context.Background(), orgID)
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, domain.RoleOwner, members[0].Role)
	assert.Equal(t, userID.String(), members[0].UserID)
}

func TestCreateOrganizationValidation(t *testing.T) {
	f := newOrgFixture(t)

	_, err := f.svc.Create(context.Background(), 0, domain.CreateOrganizationRequest{Name: "X"})
	assert.ErrorIs(t, err, domain.ErrInvalidUser)

	_, err = f.svc.Create(context.Background(), f.node.Generate(), domain.CreateOrganizationRequest{Name: "   "})
	assert.ErrorIs(t, err, domain.ErrInvalidName)
}

func TestAddMemberRolesAndDuplicates(t *testing.T) {
	f := newOrgFixture(t)
	ownerID := f.node.Generate()

	resp, err := f.svc.Create(context.Background(), ownerID, domain.CreateOrganizationRequest{Name: "Sharma Traders"})
	require.NoError(t, err)
	orgID, err := snowflake.ParseString(resp.ID)
	require.NoError(t, err)

	staffID := f.node.Generate()
	member, err := f.svc.AddMember(context.Background(), orgID, domain.AddMemberRequest{
		UserID: staffID.String(),
		Role:   domain.RoleStaff,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleStaff, member.Role)

	_, err = f.svc.AddMember(context.Background(), orgID, domain.AddMemberRequest{
		UserID: staffID.String(),
		Role:   domain.RoleAccounts,
	})
	assert.ErrorIs(t, err, domain.ErrMemberExists)

	_, err = f.svc.AddMember(context.Background(), orgID, domain.AddMemberRequest{
		UserID: f.node.Generate().String(),
		Role:   domain.Role("superuser"),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidRole)

	_, err = f.svc.AddMember(context.Background(), f.node.Generate(), domain.AddMemberRequest{
		UserID: f.node.Generate().String(),
		Role:   domain.RoleStaff,
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRemoveMemberProtectsOwner(t *testing.T) {
	f := newOrgFixture(t)
	ownerID := f.node.Generate()

	resp, err := f.svc.Create(context.Background(), ownerID, domain.CreateOrganizationRequest{Name: "Sharma Traders"})
	require.NoError(t, err)
	orgID, err := snowflake.ParseString(resp.ID)
	require.NoError(t, err)

	staffID := f.node.Generate()
	_, err = f.svc.AddMember(context.Background(), orgID, domain.AddMemberRequest{
		UserID: staffID.String(),
		Role:   domain.RoleStaff,
	})
	require.NoError(t, err)

	assert.ErrorIs(t, f.svc.RemoveMember(context.Background(), orgID, ownerID), domain.ErrCannotRemoveOwner)

	require.NoError(t, f.svc.RemoveMember(context.Background(), orgID, staffID))
	assert.ErrorIs(t, f.svc.RemoveMember(context.Background(), orgID, staffID), domain.ErrMemberNotFound)
}

func TestListOrganizationsByUserCarriesRole(t *testing.T) {
	f := newOrgFixture(t)
	ownerID := f.node.Generate()
	staffID := f.node.Generate()

	first, err := f.svc.Create(context.Background(), ownerID, domain.CreateOrganizationRequest{Name: "First Shop"})
	require.NoError(t, err)
	firstID, err := snowflake.ParseString(first.ID)
	require.NoError(t, err)

	_, err = f.svc.Create(context.Background(), staffID, domain.CreateOrganizationRequest{Name: "Second Shop"})
	require.NoError(t, err)

	_, err = f.svc.AddMember(context.Background(), firstID, domain.AddMemberRequest{
		UserID: staffID.String(),
		Role:   domain.RoleAccounts,
	})
	require.NoError(t, err)

	items, err := f.svc.ListOrganizationsByUser(context.Background(), staffID)
	require.NoError(t, err)
	require.Len(t, items, 2)

	roles := map[string]domain.Role{}
	for _, item := range items {
		roles[item.Name] = item.Role
	}
	assert.Equal(t, domain.RoleAccounts, roles["First Shop"])
	assert.Equal(t, domain.RoleOwner, roles["Second Shop"])
}
