package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/savingsapp/groupservice/internal/clock"
	"github.com/savingsapp/groupservice/internal/group/domain"
	"github.com/savingsapp/groupservice/internal/group/repository"
	"github.com/savingsapp/groupservice/internal/identity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Group{}))
	return db
}

func newTestService(t *testing.T, db *gorm.DB, clk clock.Clock) domain.Service {
	t.Helper()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	return New(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clk,
		Repo:  repository.Provide(),
	})
}

func asUser(userID string) context.Context {
	return identity.WithUserID(context.Background(), userID)
}

func createTestGroup(t *testing.T, svc domain.Service, organizerID string, maxMembers int) domain.Group {
	t.Helper()
	group, err := svc.Create(asUser(organizerID), domain.CreateGroupRequest{
		Name:                    "Village Savings Circle",
		Description:             "Monthly rotating pool",
		ContributionAmountCents: 50_00,
		Currency:                "USD",
		CycleDurationMonths:     1,
		MaxMembers:              maxMembers,
	})
	require.NoError(t, err)
	return group
}

// approveMember walks a user through request + approval.
func approveMember(t *testing.T, svc domain.Service, groupID, organizerID, userID, userName string) domain.Group {
	t.Helper()
	_, err := svc.RequestJoin(asUser(userID), domain.RequestJoinRequest{GroupID: groupID, UserName: userName})
	require.NoError(t, err)
	group, err := svc.RespondToJoin(asUser(organizerID), domain.RespondToJoinRequest{
		GroupID:  groupID,
		UserID:   userID,
		Approved: true,
	})
	require.NoError(t, err)
	return group
}

func TestCreateGroup(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	svc := newTestService(t, setupTestDB(t), clock.NewFakeClock(now))

	group := createTestGroup(t, svc, "user-1", 5)

	assert.Equal(t, domain.GroupStatusOpen, group.Status)
	assert.Equal(t, 0, group.CurrentCycle)
	assert.Equal(t, 5, group.TotalCycles)
	assert.Equal(t, "user-1", group.OrganizerID)
	assert.Equal(t, "USD", group.Currency)
	assert.True(t, group.CreatedAt.Equal(now))

	require.Len(t, group.Members, 1)
	assert.Equal(t, "user-1", group.Members[0].UserID)
	assert.Equal(t, domain.MemberStatusActive, group.Members[0].Status)
	assert.Empty(t, group.Members[0].CyclesReceived)
	assert.Empty(t, group.PendingMemberIDs)
}

func TestCreateGroupRequiresCaller(t *testing.T) {
	svc := newTestService(t, setupTestDB(t), clock.NewFakeClock(time.Now()))

	_, err := svc.Create(context.Background(), domain.CreateGroupRequest{
		Name:                    "No caller",
		ContributionAmountCents: 10_00,
		Currency:                "USD",
		CycleDurationMonths:     1,
		MaxMembers:              2,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidCaller)
}

func TestGetGroup(t *testing.T) {
	svc := newTestService(t, setupTestDB(t), clock.NewFakeClock(time.Now()))
	created := createTestGroup(t, svc, "user-1", 3)

	got, err := svc.Get(context.Background(), created.ID.String())
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, created.Name, got.Name)

	_, err = svc.Get(context.Background(), "123456789012345678")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.Get(context.Background(), "not-a-snowflake")
	assert.ErrorIs(t, err, domain.ErrInvalidID)
}

func TestListByOrganizer(t *testing.T) {
	svc := newTestService(t, setupTestDB(t), clock.NewFakeClock(time.Now()))
	createTestGroup(t, svc, "user-1", 3)
	createTestGroup(t, svc, "user-1", 4)
	createTestGroup(t, svc, "user-2", 3)

	mine, err := svc.ListByOrganizer(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	all, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestUpdateGroupPatchSemantics(t *testing.T) {
	svc := newTestService(t, setupTestDB(t), clock.NewFakeClock(time.Now()))
	created := createTestGroup(t, svc, "user-1", 3)

	newName := "Neighborhood Pool"
	updated, err := svc.Update(asUser("user-1"), created.ID.String(), domain.UpdateGroupRequest{
		Name: &newName,
	})
	require.NoError(t, err)

	assert.Equal(t, "Neighborhood Pool", updated.Name)
	// Absent fields stay untouched.
	assert.Equal(t, created.Description, updated.Description)
	assert.Equal(t, created.ContributionAmountCents, updated.ContributionAmountCents)
	assert.Equal(t, created.Currency, updated.Currency)
	assert.Equal(t, created.CycleDurationMonths, updated.CycleDurationMonths)
}

func TestUpdateGroupAuthorization(t *testing.T) {
	svc := newTestService(t, setupTestDB(t), clock.NewFakeClock(time.Now()))
	created := createTestGroup(t, svc, "user-1", 3)

	name := "Hijacked"
	_, err := svc.Update(asUser("user-2"), created.ID.String(), domain.UpdateGroupRequest{Name: &name})
	assert.ErrorIs(t, err, domain.ErrNotOrganizer)
}

func TestUpdateActiveGroupRejected(t *testing.T) {
	svc := newTestService(t, setupTestDB(t), clock.NewFakeClock(time.Now()))
	created := createTestGroup(t, svc, "user-1", 2)
	approveMember(t, svc, created.ID.String(), "user-1", "user-2", "")

	_, err := svc.AssignNextRecipient(asUser("user-1"), created.ID.String())
	require.NoError(t, err)

	name := "Too late"
	_, err = svc.Update(asUser("user-1"), created.ID.String(), domain.UpdateGroupRequest{Name: &name})
	assert.ErrorIs(t, err, domain.ErrGroupNotUpdatable)
}

func TestDeleteGroup(t *testing.T) {
	svc := newTestService(t, setupTestDB(t), clock.NewFakeClock(time.Now()))
	created := createTestGroup(t, svc, "user-1", 3)

	require.NoError(t, svc.Delete(asUser("user-1"), created.ID.String()))

	_, err := svc.Get(context.Background(), created.ID.String())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDeleteActiveGroupRejected(t *testing.T) {
	svc := newTestService(t, setupTestDB(t), clock.NewFakeClock(time.Now()))
	created := createTestGroup(t, svc, "user-1", 2)
	approveMember(t, svc, created.ID.String(), "user-1", "user-2", "")

	_, err := svc.AssignNextRecipient(asUser("user-1"), created.ID.String())
	require.NoError(t, err)

	err = svc.Delete(asUser("user-1"), created.ID.String())
	assert.ErrorIs(t, err, domain.ErrGroupActive)

	err = svc.Delete(asUser("user-2"), created.ID.String())
	assert.ErrorIs(t, err, domain.ErrNotOrganizer)
}

func TestRequestJoin(t *testing.T) {
	svc := newTestService(t, setupTestDB(t), clock.NewFakeClock(time.Now()))
	created := createTestGroup(t, svc, "user-1", 3)

	group, err := svc.RequestJoin(asUser("user-2"), domain.RequestJoinRequest{
		GroupID:  created.ID.String(),
		UserName: "Dana",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"user-2"}, []string(group.PendingMemberIDs))
	assert.Len(t, group.Members, 1)

	_, err = svc.RequestJoin(asUser("user-2"), domain.RequestJoinRequest{GroupID: created.ID.String()})
	assert.ErrorIs(t, err, domain.ErrAlreadyPending)

	_, err = svc.RequestJoin(asUser("user-1"), domain.RequestJoinRequest{GroupID: created.ID.String()})
	assert.ErrorIs(t, err, domain.ErrAlreadyMember)
}

func TestRequestJoinFullGroup(t *testing.T) {
	svc := newTestService(t, setupTestDB(t), clock.NewFakeClock(time.Now()))
	created := createTestGroup(t, svc, "user-1", 2)
	approveMember(t, svc, created.ID.String(), "user-1", "user-2", "")

	_, err := svc.RequestJoin(asUser("user-3"), domain.RequestJoinRequest{GroupID: created.ID.String()})
	assert.ErrorIs(t, err, domain.ErrGroupFull)
}

func TestRequestJoinNonOpenGroup(t *testing.T) {
	svc := newTestService(t, setupTestDB(t), clock.NewFakeClock(time.Now()))
	created := createTestGroup(t, svc, "user-1", 3)

	_, err := svc.Close(asUser("user-1"), created.ID.String())
	require.NoError(t, err)

	_, err = svc.RequestJoin(asUser("user-2"), domain.RequestJoinRequest{GroupID: created.ID.String()})
	assert.ErrorIs(t, err, domain.ErrNotAcceptingMembers)
}

func TestRespondToJoinApproved(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	svc := newTestService(t, setupTestDB(t), clock.NewFakeClock(now))
	created := createTestGroup(t, svc, "user-1", 3)

	group := approveMember(t, svc, created.ID.String(), "user-1", "user-2", "Dana")

	assert.Empty(t, group.PendingMemberIDs)
	require.Len(t, group.Members, 2)
	assert.Equal(t, "user-2", group.Members[1].UserID)
	assert.Equal(t, "Dana", group.Members[1].Name)
	assert.Equal(t, domain.MemberStatusActive, group.Members[1].Status)
}

func TestRespondToJoinRejected(t *testing.T) {
	svc := newTestService(t, setupTestDB(t), clock.NewFakeClock(time.Now()))
	created := createTestGroup(t, svc, "user-1", 3)

	_, err := svc.RequestJoin(asUser("user-2"), domain.RequestJoinRequest{GroupID: created.ID.String()})
	require.NoError(t, err)

	group, err := svc.RespondToJoin(asUser("user-1"), domain.RespondToJoinRequest{
		GroupID:  created.ID.String(),
		UserID:   "user-2",
		Approved: false,
	})
	require.NoError(t, err)

	assert.Empty(t, group.PendingMemberIDs)
	assert.Len(t, group.Members, 1)

	// The rejection is final: responding again finds nothing pending.
	_, err = svc.RespondToJoin(asUser("user-1"), domain.RespondToJoinRequest{
		GroupID:  created.ID.String(),
		UserID:   "user-2",
		Approved: true,
	})
	assert.ErrorIs(t, err, domain.ErrNoPendingRequest)
}

func TestRespondToJoinAuthorization(t *testing.T) {
	svc := newTestService(t, setupTestDB(t), clock.NewFakeClock(time.Now()))
	created := createTestGroup(t, svc, "user-1", 3)

	_, err := svc.RequestJoin(asUser("user-2"), domain.RequestJoinRequest{GroupID: created.ID.String()})
	require.NoError(t, err)

	_, err = svc.RespondToJoin(asUser("user-2"), domain.RespondToJoinRequest{
		GroupID:  created.ID.String(),
		UserID:   "user-2",
		Approved: true,
	})
	assert.ErrorIs(t, err, domain.ErrNotOrganizer)
}

func TestRespondToJoinCapacityRace(t *testing.T) {
	svc := newTestService(t, setupTestDB(t), clock.NewFakeClock(time.Now()))
	created := createTestGroup(t, svc, "user-1", 2)

	// Two requests land while one slot remains.
	_, err := svc.RequestJoin(asUser("user-2"), domain.RequestJoinRequest{GroupID: created.ID.String()})
	require.NoError(t, err)
	_, err = svc.RequestJoin(asUser("user-3"), domain.RequestJoinRequest{GroupID: created.ID.String()})
	require.NoError(t, err)

	_, err = svc.RespondToJoin(asUser("user-1"), domain.RespondToJoinRequest{
		GroupID:  created.ID.String(),
		UserID:   "user-2",
		Approved: true,
	})
	require.NoError(t, err)

	// Capacity filled between request and response.
	_, err = svc.RespondToJoin(asUser("user-1"), domain.RespondToJoinRequest{
		GroupID:  created.ID.String(),
		UserID:   "user-3",
		Approved: true,
	})
	assert.ErrorIs(t, err, domain.ErrGroupFull)
}

func TestCloseGroup(t *testing.T) {
	svc := newTestService(t, setupTestDB(t), clock.NewFakeClock(time.Now()))
	created := createTestGroup(t, svc, "user-1", 3)

	group, err := svc.Close(asUser("user-1"), created.ID.String())
	require.NoError(t, err)
	assert.Equal(t, domain.GroupStatusClosed, group.Status)

	// CLOSED is terminal.
	_, err = svc.Close(asUser("user-1"), created.ID.String())
	assert.ErrorIs(t, err, domain.ErrGroupCompleted)
}

func TestCloseActiveGroup(t *testing.T) {
	svc := newTestService(t, setupTestDB(t), clock.NewFakeClock(time.Now()))
	created := createTestGroup(t, svc, "user-1", 2)
	approveMember(t, svc, created.ID.String(), "user-1", "user-2", "")

	_, err := svc.AssignNextRecipient(asUser("user-1"), created.ID.String())
	require.NoError(t, err)

	group, err := svc.Close(asUser("user-1"), created.ID.String())
	require.NoError(t, err)
	assert.Equal(t, domain.GroupStatusClosed, group.Status)
}

func TestCapacityInvariantHolds(t *testing.T) {
	svc := newTestService(t, setupTestDB(t), clock.NewFakeClock(time.Now()))
	created := createTestGroup(t, svc, "user-1", 3)

	approveMember(t, svc, created.ID.String(), "user-1", "user-2", "")
	group := approveMember(t, svc, created.ID.String(), "user-1", "user-3", "")
	assert.Len(t, group.Members, 3)

	_, err := svc.RequestJoin(asUser("user-4"), domain.RequestJoinRequest{GroupID: created.ID.String()})
	assert.ErrorIs(t, err, domain.ErrGroupFull)

	got, err := svc.Get(context.Background(), created.ID.String())
	require.NoError(t, err)
	assert.LessOrEqual(t, len(got.Members), got.MaxMembers)
}
