package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/palmmar/prommis/internal/apperror"
	"github.com/palmmar/prommis/internal/model"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(":memory:")
	if err != nil {
		t.Fatalf("New(:memory:) error = %v", err)
	}
	t.Cleanup(func() { db.Close() })

	for _, u := range []model.User{
		{ID: "anna", DisplayName: "Anna Lindqvist"},
		{ID: "bob", DisplayName: "Bob Berg"},
		{ID: "carol", DisplayName: "Carol Åberg"},
	} {
		user := u
		if err := db.Users().Upsert(context.Background(), &user); err != nil {
			t.Fatalf("seeding user %s: %v", u.ID, err)
		}
	}
	return db
}

func createGroup(t *testing.T, db *DB, ownerID, name string) *model.Group {
	t.Helper()
	group := &model.Group{Name: name, OwnerID: ownerID}
	if err := db.Groups().Create(context.Background(), group); err != nil {
		t.Fatalf("creating group: %v", err)
	}
	return group
}

func createInvitation(t *testing.T, db *DB, groupID, token string, expiresAt time.Time) *model.Invitation {
	t.Helper()
	invite := &model.Invitation{
		GroupID:     groupID,
		Token:       token,
		CreatedByID: "anna",
		ExpiresAt:   expiresAt,
	}
	if err := db.Invitations().Create(context.Background(), invite); err != nil {
		t.Fatalf("creating invitation: %v", err)
	}
	return invite
}

func TestUserUpsert_PreservesCreatedAt(t *testing.T) {
	db := newTestDB(t)

	first, err := db.Users().GetByID(context.Background(), "anna")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}

	renamed := &model.User{ID: "anna", DisplayName: "Anna L"}
	if err := db.Users().Upsert(context.Background(), renamed); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	if !renamed.CreatedAt.Equal(first.CreatedAt) {
		t.Errorf("CreatedAt changed on re-upsert: %v -> %v", first.CreatedAt, renamed.CreatedAt)
	}

	after, _ := db.Users().GetByID(context.Background(), "anna")
	if after.DisplayName != "Anna L" {
		t.Errorf("DisplayName = %q, want refreshed %q", after.DisplayName, "Anna L")
	}
}

func TestGroupCreate_OwnerMembershipAtomic(t *testing.T) {
	db := newTestDB(t)
	group := createGroup(t, db, "anna", "Walkers")

	ms, err := db.Memberships().GetByGroupAndUser(context.Background(), group.ID, "anna")
	if err != nil {
		t.Fatalf("owner membership missing: %v", err)
	}
	if ms.Role != model.RoleOwner {
		t.Errorf("role = %q, want %q", ms.Role, model.RoleOwner)
	}
}

func TestInvitationCreate_DuplicateTokenConflicts(t *testing.T) {
	db := newTestDB(t)
	group := createGroup(t, db, "anna", "Walkers")
	expiry := time.Now().Add(time.Hour)

	createInvitation(t, db, group.ID, "tok-1", expiry)

	dup := &model.Invitation{
		GroupID:     group.ID,
		Token:       "tok-1",
		CreatedByID: "anna",
		ExpiresAt:   expiry,
	}
	err := db.Invitations().Create(context.Background(), dup)
	if !errors.Is(err, apperror.ErrConflict) {
		t.Errorf("error = %v, want ErrConflict", err)
	}
}

func TestInvitationAccept_SingleUse(t *testing.T) {
	db := newTestDB(t)
	group := createGroup(t, db, "anna", "Walkers")
	now := time.Now().UTC()
	invite := createInvitation(t, db, group.ID, "tok-1", now.Add(time.Hour))

	if err := db.Invitations().Accept(context.Background(), invite.ID, "bob", now); err != nil {
		t.Fatalf("Accept() error = %v", err)
	}

	// The membership was created and the token marked used.
	if _, err := db.Memberships().GetByGroupAndUser(context.Background(), group.ID, "bob"); err != nil {
		t.Fatalf("membership missing after accept: %v", err)
	}
	used, _ := db.Invitations().GetByToken(context.Background(), "tok-1")
	if used.UsedAt == nil {
		t.Error("UsedAt should be set after accept")
	}
	if used.AcceptedByID == nil || *used.AcceptedByID != "bob" {
		t.Errorf("AcceptedByID = %v, want bob", used.AcceptedByID)
	}

	// The second taker loses.
	err := db.Invitations().Accept(context.Background(), invite.ID, "carol", now)
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("second accept error = %v, want ErrNotFound", err)
	}
	if _, err := db.Memberships().GetByGroupAndUser(context.Background(), group.ID, "carol"); !errors.Is(err, apperror.ErrNotFound) {
		t.Error("loser must not gain a membership")
	}
}

func TestInvitationAccept_Expired(t *testing.T) {
	db := newTestDB(t)
	group := createGroup(t, db, "anna", "Walkers")
	now := time.Now().UTC()
	invite := createInvitation(t, db, group.ID, "tok-1", now.Add(-time.Minute))

	err := db.Invitations().Accept(context.Background(), invite.ID, "bob", now)
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestInvitationAccept_ExistingMemberKeepsOneMembership(t *testing.T) {
	db := newTestDB(t)
	group := createGroup(t, db, "anna", "Walkers")
	now := time.Now().UTC()

	first := createInvitation(t, db, group.ID, "tok-1", now.Add(time.Hour))
	if err := db.Invitations().Accept(context.Background(), first.ID, "bob", now); err != nil {
		t.Fatalf("Accept() error = %v", err)
	}

	second := createInvitation(t, db, group.ID, "tok-2", now.Add(time.Hour))
	if err := db.Invitations().Accept(context.Background(), second.ID, "bob", now); err != nil {
		t.Fatalf("Accept() by existing member error = %v", err)
	}

	members, err := db.Memberships().ListByGroup(context.Background(), group.ID)
	if err != nil {
		t.Fatalf("ListByGroup() error = %v", err)
	}
	if len(members) != 2 {
		t.Errorf("members = %d, want 2 (anna + bob once)", len(members))
	}

	// Even the no-op accept burns the token.
	burned, _ := db.Invitations().GetByToken(context.Background(), "tok-2")
	if burned.UsedAt == nil {
		t.Error("token should be used even when no membership was created")
	}
}

func TestListActive_FiltersUsedAndExpired(t *testing.T) {
	db := newTestDB(t)
	group := createGroup(t, db, "anna", "Walkers")
	now := time.Now().UTC()

	createInvitation(t, db, group.ID, "fresh", now.Add(time.Hour))
	createInvitation(t, db, group.ID, "expired", now.Add(-time.Hour))
	used := createInvitation(t, db, group.ID, "used", now.Add(time.Hour))
	if err := db.Invitations().Accept(context.Background(), used.ID, "bob", now); err != nil {
		t.Fatalf("Accept() error = %v", err)
	}

	active, err := db.Invitations().ListActive(context.Background(), group.ID, now)
	if err != nil {
		t.Fatalf("ListActive() error = %v", err)
	}
	if len(active) != 1 {
		t.Fatalf("active = %d, want 1", len(active))
	}
	if active[0].Token != "fresh" {
		t.Errorf("active token = %q, want %q", active[0].Token, "fresh")
	}
}

func TestTransferOwnership_FlipsBothRolesAndOwnerID(t *testing.T) {
	db := newTestDB(t)
	group := createGroup(t, db, "anna", "Walkers")
	now := time.Now().UTC()
	invite := createInvitation(t, db, group.ID, "tok-1", now.Add(time.Hour))
	if err := db.Invitations().Accept(context.Background(), invite.ID, "bob", now); err != nil {
		t.Fatalf("Accept() error = %v", err)
	}

	if err := db.Groups().TransferOwnership(context.Background(), group.ID, "anna", "bob"); err != nil {
		t.Fatalf("TransferOwnership() error = %v", err)
	}

	updated, _ := db.Groups().GetByID(context.Background(), group.ID)
	if updated.OwnerID != "bob" {
		t.Errorf("owner_id = %q, want bob", updated.OwnerID)
	}
	bobMs, _ := db.Memberships().GetByGroupAndUser(context.Background(), group.ID, "bob")
	if bobMs.Role != model.RoleOwner {
		t.Errorf("bob role = %q, want owner", bobMs.Role)
	}
	annaMs, _ := db.Memberships().GetByGroupAndUser(context.Background(), group.ID, "anna")
	if annaMs.Role != model.RoleMember {
		t.Errorf("anna role = %q, want member", annaMs.Role)
	}
}

func TestTransferOwnership_NonMemberTargetAborts(t *testing.T) {
	db := newTestDB(t)
	group := createGroup(t, db, "anna", "Walkers")

	err := db.Groups().TransferOwnership(context.Background(), group.ID, "anna", "bob")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}

	// The aborted transfer left everything untouched.
	updated, _ := db.Groups().GetByID(context.Background(), group.ID)
	if updated.OwnerID != "anna" {
		t.Errorf("owner_id = %q, want unchanged anna", updated.OwnerID)
	}
	annaMs, _ := db.Memberships().GetByGroupAndUser(context.Background(), group.ID, "anna")
	if annaMs.Role != model.RoleOwner {
		t.Errorf("anna role = %q, want unchanged owner", annaMs.Role)
	}
}

func TestGroupDelete_Cascades(t *testing.T) {
	db := newTestDB(t)
	group := createGroup(t, db, "anna", "Walkers")
	createInvitation(t, db, group.ID, "tok-1", time.Now().Add(time.Hour))

	if err := db.Groups().Delete(context.Background(), group.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	if _, err := db.Memberships().GetByGroupAndUser(context.Background(), group.ID, "anna"); !errors.Is(err, apperror.ErrNotFound) {
		t.Error("membership should cascade with the group")
	}
	if _, err := db.Invitations().GetByToken(context.Background(), "tok-1"); !errors.Is(err, apperror.ErrNotFound) {
		t.Error("invitation should cascade with the group")
	}
}

func TestUserDelete_BlockedWhileOwningGroups(t *testing.T) {
	db := newTestDB(t)
	createGroup(t, db, "anna", "Walkers")

	// owner_id carries no cascade: the owner must hand over or delete the
	// group first.
	if err := db.Users().Delete(context.Background(), "anna"); err == nil {
		t.Error("deleting a group owner should fail on the foreign key")
	}
}

func TestStepEntry_DateNormalizedToDay(t *testing.T) {
	db := newTestDB(t)

	entry := &model.StepEntry{
		UserID: "anna",
		Date:   time.Date(2025, time.April, 7, 18, 45, 12, 0, time.UTC),
		Steps:  8000,
	}
	if err := db.StepEntries().Create(context.Background(), entry); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := db.StepEntries().GetByID(context.Background(), entry.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	want := time.Date(2025, time.April, 7, 0, 0, 0, 0, time.UTC)
	if !got.Date.Equal(want) {
		t.Errorf("Date = %v, want midnight UTC %v", got.Date, want)
	}
}

func TestListForGroupInRange_FollowsCurrentMembers(t *testing.T) {
	db := newTestDB(t)
	group := createGroup(t, db, "anna", "Walkers")
	now := time.Now().UTC()
	invite := createInvitation(t, db, group.ID, "tok-1", now.Add(time.Hour))
	if err := db.Invitations().Accept(context.Background(), invite.ID, "bob", now); err != nil {
		t.Fatalf("Accept() error = %v", err)
	}

	day := time.Date(2025, time.April, 7, 0, 0, 0, 0, time.UTC)
	for _, e := range []model.StepEntry{
		{UserID: "anna", Date: day, Steps: 1000},
		{UserID: "bob", Date: day, Steps: 2000},
		{UserID: "carol", Date: day, Steps: 50000}, // not a member
		{UserID: "anna", Date: day.AddDate(0, 0, 10), Steps: 700}, // outside range
	} {
		entry := e
		if err := db.StepEntries().Create(context.Background(), &entry); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	entries, err := db.StepEntries().ListForGroupInRange(context.Background(), group.ID, day, day.AddDate(0, 0, 6))
	if err != nil {
		t.Fatalf("ListForGroupInRange() error = %v", err)
	}
	total := 0
	for _, e := range entries {
		total += e.Steps
	}
	if total != 3000 {
		t.Errorf("total = %d, want 3000 (members only, in range)", total)
	}

	// Remove bob: his entries drop out of the join immediately.
	if err := db.Memberships().Remove(context.Background(), group.ID, "bob"); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	entries, _ = db.StepEntries().ListForGroupInRange(context.Background(), group.ID, day, day.AddDate(0, 0, 6))
	total = 0
	for _, e := range entries {
		total += e.Steps
	}
	if total != 1000 {
		t.Errorf("total = %d after removal, want 1000", total)
	}
}

func TestListByGroup_OwnerFirst(t *testing.T) {
	db := newTestDB(t)
	group := createGroup(t, db, "bob", "Walkers")
	now := time.Now().UTC()
	invite := createInvitation(t, db, group.ID, "tok-1", now.Add(time.Hour))
	if err := db.Invitations().Accept(context.Background(), invite.ID, "anna", now); err != nil {
		t.Fatalf("Accept() error = %v", err)
	}

	members, err := db.Memberships().ListByGroup(context.Background(), group.ID)
	if err != nil {
		t.Fatalf("ListByGroup() error = %v", err)
	}
	if len(members) != 2 {
		t.Fatalf("members = %d, want 2", len(members))
	}
	// Bob owns the group, so he sorts first despite "Anna" < "Bob".
	if members[0].UserID != "bob" {
		t.Errorf("first member = %q, want owner bob", members[0].UserID)
	}
}
