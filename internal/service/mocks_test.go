package service

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"testing"
	"time"

	"github.com/palmmar/prommis/internal/apperror"
	"github.com/palmmar/prommis/internal/model"
	"github.com/palmmar/prommis/internal/repository"
	"github.com/palmmar/prommis/internal/stats"
)

// memStore is an in-memory stand-in for the sqlite repositories. One store
// implements all the repository interfaces so related records stay
// consistent across them, the way the shared database does.
type memStore struct {
	groups      map[string]*model.Group
	memberships map[string]*model.Membership
	invitations map[string]*model.Invitation
	entries     map[string]*model.StepEntry
	names       map[string]string // user id -> display name
	nextID      int
}

func newMemStore() *memStore {
	return &memStore{
		groups:      make(map[string]*model.Group),
		memberships: make(map[string]*model.Membership),
		invitations: make(map[string]*model.Invitation),
		entries:     make(map[string]*model.StepEntry),
		names:       make(map[string]string),
	}
}

func (m *memStore) id(prefix string) string {
	m.nextID++
	return fmt.Sprintf("%s-%d", prefix, m.nextID)
}

// --- GroupRepository ---

func (m *memStore) Create(_ context.Context, group *model.Group) error {
	group.ID = m.id("group")
	stored := *group
	m.groups[group.ID] = &stored
	ms := &model.Membership{
		ID:      m.id("ms"),
		GroupID: group.ID,
		UserID:  group.OwnerID,
		Role:    model.RoleOwner,
	}
	m.memberships[ms.ID] = ms
	return nil
}

func (m *memStore) GetByID(_ context.Context, id string) (*model.Group, error) {
	group, ok := m.groups[id]
	if !ok {
		return nil, apperror.NotFound("group", id)
	}
	result := *group
	return &result, nil
}

func (m *memStore) ListForUser(_ context.Context, userID string) ([]repository.GroupOverview, error) {
	overviews := []repository.GroupOverview{}
	for _, ms := range m.memberships {
		if ms.UserID != userID {
			continue
		}
		overviews = append(overviews, m.overview(ms.GroupID))
	}
	sort.Slice(overviews, func(i, j int) bool { return overviews[i].Name < overviews[j].Name })
	return overviews, nil
}

func (m *memStore) ListAll(_ context.Context) ([]repository.GroupOverview, error) {
	overviews := []repository.GroupOverview{}
	for id := range m.groups {
		overviews = append(overviews, m.overview(id))
	}
	sort.Slice(overviews, func(i, j int) bool { return overviews[i].Name < overviews[j].Name })
	return overviews, nil
}

func (m *memStore) overview(groupID string) repository.GroupOverview {
	group := m.groups[groupID]
	count := 0
	for _, ms := range m.memberships {
		if ms.GroupID == groupID {
			count++
		}
	}
	return repository.GroupOverview{
		GroupID:     group.ID,
		Name:        group.Name,
		OwnerName:   m.names[group.OwnerID],
		MemberCount: count,
	}
}

func (m *memStore) TransferOwnership(_ context.Context, groupID, currentOwnerID, newOwnerID string) error {
	group, ok := m.groups[groupID]
	if !ok {
		return apperror.NotFound("group", groupID)
	}
	newMs := m.findMembership(groupID, newOwnerID)
	if newMs == nil {
		return apperror.NotFound("membership", newOwnerID)
	}
	newMs.Role = model.RoleOwner
	group.OwnerID = newOwnerID
	if currentOwnerID != newOwnerID {
		if oldMs := m.findMembership(groupID, currentOwnerID); oldMs != nil {
			oldMs.Role = model.RoleMember
		}
	}
	return nil
}

func (m *memStore) Delete(_ context.Context, id string) error {
	if _, ok := m.groups[id]; !ok {
		return apperror.NotFound("group", id)
	}
	delete(m.groups, id)
	return nil
}

// --- MembershipRepository ---

func (m *memStore) GetByGroupAndUser(_ context.Context, groupID, userID string) (*model.Membership, error) {
	ms := m.findMembership(groupID, userID)
	if ms == nil {
		return nil, apperror.NotFound("membership", userID)
	}
	result := *ms
	return &result, nil
}

func (m *memStore) ListByGroup(_ context.Context, groupID string) ([]repository.Member, error) {
	members := []repository.Member{}
	for _, ms := range m.memberships {
		if ms.GroupID != groupID {
			continue
		}
		members = append(members, repository.Member{
			Membership:  *ms,
			DisplayName: m.names[ms.UserID],
		})
	}
	sort.Slice(members, func(i, j int) bool {
		if members[i].Role != members[j].Role {
			return members[i].Role == model.RoleOwner
		}
		return members[i].DisplayName < members[j].DisplayName
	})
	return members, nil
}

func (m *memStore) Remove(_ context.Context, groupID, userID string) error {
	for id, ms := range m.memberships {
		if ms.GroupID == groupID && ms.UserID == userID {
			delete(m.memberships, id)
			return nil
		}
	}
	return apperror.NotFound("membership", userID)
}

func (m *memStore) findMembership(groupID, userID string) *model.Membership {
	for _, ms := range m.memberships {
		if ms.GroupID == groupID && ms.UserID == userID {
			return ms
		}
	}
	return nil
}

// addMember enrolls a user directly, bypassing the invitation flow.
func (m *memStore) addMember(groupID, userID string, role model.Role) {
	ms := &model.Membership{
		ID:      m.id("ms"),
		GroupID: groupID,
		UserID:  userID,
		Role:    role,
	}
	m.memberships[ms.ID] = ms
}

// --- InvitationRepository ---

func (m *memStore) CreateInvitation(_ context.Context, invite *model.Invitation) error {
	for _, existing := range m.invitations {
		if existing.Token == invite.Token {
			return apperror.Conflict("invitation", invite.Token)
		}
	}
	invite.ID = m.id("invite")
	stored := *invite
	m.invitations[invite.ID] = &stored
	return nil
}

func (m *memStore) GetByToken(_ context.Context, token string) (*model.Invitation, error) {
	for _, invite := range m.invitations {
		if invite.Token == token {
			result := *invite
			return &result, nil
		}
	}
	return nil, apperror.NotFound("invitation", token)
}

func (m *memStore) ListActive(_ context.Context, groupID string, now time.Time) ([]model.Invitation, error) {
	invites := []model.Invitation{}
	for _, invite := range m.invitations {
		if invite.GroupID == groupID && invite.IsActive(now) {
			invites = append(invites, *invite)
		}
	}
	sort.Slice(invites, func(i, j int) bool { return invites[i].CreatedAt.After(invites[j].CreatedAt) })
	return invites, nil
}

func (m *memStore) Accept(_ context.Context, invitationID, userID string, now time.Time) error {
	invite, ok := m.invitations[invitationID]
	if !ok || !invite.IsActive(now) {
		return apperror.NotFound("invitation", invitationID)
	}
	used := now
	invite.UsedAt = &used
	invite.AcceptedByID = &userID
	if m.findMembership(invite.GroupID, userID) == nil {
		m.addMember(invite.GroupID, userID, model.RoleMember)
	}
	return nil
}

// --- StepEntryRepository ---

func (m *memStore) CreateStepEntry(_ context.Context, entry *model.StepEntry) error {
	entry.ID = m.id("entry")
	entry.Date = model.Day(entry.Date)
	stored := *entry
	m.entries[entry.ID] = &stored
	return nil
}

func (m *memStore) GetStepEntryByID(_ context.Context, id string) (*model.StepEntry, error) {
	entry, ok := m.entries[id]
	if !ok {
		return nil, apperror.NotFound("step entry", id)
	}
	result := *entry
	return &result, nil
}

func (m *memStore) ListForUserOnDay(_ context.Context, userID string, day time.Time) ([]model.StepEntry, error) {
	day = model.Day(day)
	entries := []model.StepEntry{}
	for _, entry := range m.entries {
		if entry.UserID == userID && entry.Date.Equal(day) {
			entries = append(entries, *entry)
		}
	}
	return entries, nil
}

func (m *memStore) ListForUserInRange(_ context.Context, userID string, from, to time.Time) ([]model.StepEntry, error) {
	entries := []model.StepEntry{}
	for _, entry := range m.entries {
		if entry.UserID == userID && inRange(entry.Date, from, to) {
			entries = append(entries, *entry)
		}
	}
	return entries, nil
}

func (m *memStore) ListForGroupInRange(_ context.Context, groupID string, from, to time.Time) ([]model.StepEntry, error) {
	entries := []model.StepEntry{}
	for _, entry := range m.entries {
		if m.findMembership(groupID, entry.UserID) != nil && inRange(entry.Date, from, to) {
			entries = append(entries, *entry)
		}
	}
	return entries, nil
}

func (m *memStore) UpdateStepEntry(_ context.Context, entry *model.StepEntry) error {
	stored, ok := m.entries[entry.ID]
	if !ok {
		return apperror.NotFound("step entry", entry.ID)
	}
	stored.Steps = entry.Steps
	return nil
}

func (m *memStore) DeleteStepEntry(_ context.Context, id string) error {
	if _, ok := m.entries[id]; !ok {
		return apperror.NotFound("step entry", id)
	}
	delete(m.entries, id)
	return nil
}

func inRange(day, from, to time.Time) bool {
	day = model.Day(day)
	return !day.Before(model.Day(from)) && !day.After(model.Day(to))
}

// Adapters so one memStore satisfies interfaces with colliding method
// names (Create, GetByID, Delete exist on more than one interface).

type memGroups struct{ *memStore }

type memInvites struct{ *memStore }

func (m memInvites) Create(ctx context.Context, invite *model.Invitation) error {
	return m.CreateInvitation(ctx, invite)
}

type memEntries struct{ *memStore }

func (m memEntries) Create(ctx context.Context, entry *model.StepEntry) error {
	return m.CreateStepEntry(ctx, entry)
}

func (m memEntries) GetByID(ctx context.Context, id string) (*model.StepEntry, error) {
	return m.GetStepEntryByID(ctx, id)
}

func (m memEntries) Update(ctx context.Context, entry *model.StepEntry) error {
	return m.UpdateStepEntry(ctx, entry)
}

func (m memEntries) Delete(ctx context.Context, id string) error {
	return m.DeleteStepEntry(ctx, id)
}

var (
	_ repository.GroupRepository      = memGroups{}
	_ repository.MembershipRepository = (*memStore)(nil)
	_ repository.InvitationRepository = memInvites{}
	_ repository.StepEntryRepository  = memEntries{}
)

// --- fixture ---

// testTime is the fixed "now" every service under test runs at:
// Sunday 2025-04-13, mid-day UTC.
var testTime = time.Date(2025, time.April, 13, 12, 0, 0, 0, time.UTC)

type fixture struct {
	store   *memStore
	groups  *GroupService
	invites *InviteService
	steps   *StepService
	stats   *StatsService
}

// englishLabels keeps chart label assertions locale-independent.
type englishLabels struct{}

func (englishLabels) WeekdayLabel(t time.Time) string { return t.Format("Mon 2/1") }
func (englishLabels) DayLabel(t time.Time) string     { return fmt.Sprintf("%d", t.Day()) }
func (englishLabels) MonthLabel(t time.Time) string   { return t.Format("Jan 2006") }

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := newMemStore()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	clock := func() time.Time { return testTime }

	statsService := NewStatsService(memEntries{store}, englishLabels{})
	statsService.now = clock

	groupService := NewGroupService(memGroups{store}, store, memInvites{store}, statsService, logger)
	groupService.now = clock

	inviteService := NewInviteService(memGroups{store}, store, memInvites{store}, logger)
	inviteService.now = clock

	stepService := NewStepService(memEntries{store}, logger)
	stepService.now = clock

	return &fixture{
		store:   store,
		groups:  groupService,
		invites: inviteService,
		steps:   stepService,
		stats:   statsService,
	}
}

// mustCreateGroup seeds a group owned by ownerID.
func (f *fixture) mustCreateGroup(t *testing.T, ownerID, name string) *model.Group {
	t.Helper()
	group, err := f.groups.Create(context.Background(), ownerID, name)
	if err != nil {
		t.Fatalf("setup: Create() error = %v", err)
	}
	return group
}

var _ stats.LabelFormatter = englishLabels{}
