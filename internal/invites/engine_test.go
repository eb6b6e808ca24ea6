package invites

import (
	"path/filepath"
	"testing"

	"discord-invite-tracker/internal/models"
	"discord-invite-tracker/internal/store"

	"go.uber.org/zap"
)

type fakePlatform struct {
	listing       []RemoteInvite
	listErr       error
	members       map[string]*MemberInfo
	notifications []string
	notifyErr     error
}

func (p *fakePlatform) GuildInvites(guildID string) ([]RemoteInvite, error) {
	if p.listErr != nil {
		return nil, p.listErr
	}
	return p.listing, nil
}

func (p *fakePlatform) Member(guildID, userID string) (*MemberInfo, error) {
	return p.members[userID], nil
}

func (p *fakePlatform) NotifyOwner(guildID, text string) error {
	if p.notifyErr != nil {
		return p.notifyErr
	}
	p.notifications = append(p.notifications, text)
	return nil
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	dir := t.TempDir()
	return store.New(filepath.Join(dir, "invite_data.json"), filepath.Join(dir, "invites.json"), zap.NewNop())
}

func newTestEngine(t *testing.T, st *store.Store) (*Engine, *fakePlatform) {
	t.Helper()
	p := &fakePlatform{members: map[string]*MemberInfo{}}
	return New(st, p, zap.NewNop()), p
}

func inviter() *MemberInfo {
	return &MemberInfo{ID: "100", Username: "alice", DisplayName: "Alice"}
}

func recruit(id string) MemberInfo {
	return MemberInfo{ID: id, Username: "user" + id, DisplayName: "User " + id}
}

func TestInviteCreateIdempotent(t *testing.T) {
	e, _ := newTestEngine(t, newTestStore(t))

	inv := RemoteInvite{Code: "ABC123", InviterID: "100", InviterUsername: "alice", InviterDisplayName: "Alice"}
	e.HandleInviteCreate("g1", inv)
	e.HandleInviteCreate("g1", inv)

	if len(e.registry) != 1 {
		t.Fatalf("Expected 1 registry entry, got %d", len(e.registry))
	}
	rec := e.ledger["100"]
	if rec == nil {
		t.Fatal("Inviter record not created")
	}
	if len(rec.ActiveInvites) != 1 {
		t.Fatalf("Expected 1 active invite, got %d", len(rec.ActiveInvites))
	}
	if uses := rec.ActiveInvites["ABC123"]; uses != 0 {
		t.Errorf("Expected 0 uses on fresh invite, got %d", uses)
	}
}

func TestInviteCreateAnonymous(t *testing.T) {
	e, _ := newTestEngine(t, newTestStore(t))

	e.HandleInviteCreate("g1", RemoteInvite{Code: "NOBODY"})

	if len(e.registry) != 0 {
		t.Errorf("Anonymous invite should not reach the registry, got %d entries", len(e.registry))
	}
	if len(e.ledger) != 0 {
		t.Errorf("Anonymous invite should not create ledger records, got %d", len(e.ledger))
	}
}

func TestJoinAttributionEndToEnd(t *testing.T) {
	e, p := newTestEngine(t, newTestStore(t))
	p.members["100"] = inviter()

	p.listing = []RemoteInvite{{Code: "X1", Uses: 0, InviterID: "100", InviterUsername: "alice", InviterDisplayName: "Alice"}}
	e.Initialize("g1")

	p.listing = []RemoteInvite{{Code: "X1", Uses: 1, InviterID: "100", InviterUsername: "alice", InviterDisplayName: "Alice"}}
	e.HandleMemberJoin("g1", recruit("200"))

	rec := e.ledger["100"]
	if rec == nil {
		t.Fatal("Inviter record missing")
	}
	if rec.SuccessfulInvites != 1 {
		t.Errorf("Expected 1 successful invite, got %d", rec.SuccessfulInvites)
	}
	if len(rec.RecruitmentLedger) != 1 {
		t.Fatalf("Expected 1 recruitment entry, got %d", len(rec.RecruitmentLedger))
	}
	entry := rec.RecruitmentLedger[0]
	if entry.UserID != "200" || entry.InviteCode != "X1" {
		t.Errorf("Unexpected recruitment entry: %+v", entry)
	}
	if rec.ActiveInvites["X1"] != 1 {
		t.Errorf("Expected active_invites[X1]=1, got %d", rec.ActiveInvites["X1"])
	}
	if delta := e.cache.Observe("g1", "X1", 1); delta != 0 {
		t.Errorf("Cache should have advanced to 1, observed delta %d", delta)
	}
	if e.registry[0].Uses != 1 {
		t.Errorf("Registry uses should track remote, got %d", e.registry[0].Uses)
	}
}

func TestDuplicateJoinNotDoubleCounted(t *testing.T) {
	e, p := newTestEngine(t, newTestStore(t))
	p.members["100"] = inviter()

	p.listing = []RemoteInvite{{Code: "X1", Uses: 0, InviterID: "100"}}
	e.Initialize("g1")

	p.listing = []RemoteInvite{{Code: "X1", Uses: 1, InviterID: "100"}}
	e.HandleMemberJoin("g1", recruit("200"))

	// Same join delivered again with a further use observed.
	p.listing = []RemoteInvite{{Code: "X1", Uses: 2, InviterID: "100"}}
	e.HandleMemberJoin("g1", recruit("200"))

	rec := e.ledger["100"]
	if rec.SuccessfulInvites != 1 {
		t.Errorf("Duplicate delivery must not double count, got %d", rec.SuccessfulInvites)
	}
	if len(rec.RecruitmentLedger) != 1 {
		t.Errorf("Expected 1 recruitment entry, got %d", len(rec.RecruitmentLedger))
	}
}

func TestRecruitUniqueAcrossInviters(t *testing.T) {
	e, p := newTestEngine(t, newTestStore(t))
	p.members["100"] = inviter()
	p.members["101"] = &MemberInfo{ID: "101", Username: "bob", DisplayName: "Bob"}

	p.listing = []RemoteInvite{
		{Code: "A1", Uses: 0, InviterID: "100"},
		{Code: "B1", Uses: 0, InviterID: "101"},
	}
	e.Initialize("g1")

	p.listing = []RemoteInvite{
		{Code: "A1", Uses: 1, InviterID: "100"},
		{Code: "B1", Uses: 0, InviterID: "101"},
	}
	e.HandleMemberJoin("g1", recruit("200"))

	// The same user later shows up behind bob's invite delta.
	p.listing = []RemoteInvite{
		{Code: "A1", Uses: 1, InviterID: "100"},
		{Code: "B1", Uses: 1, InviterID: "101"},
	}
	e.HandleMemberJoin("g1", recruit("200"))

	total := 0
	for _, rec := range e.ledger {
		for _, entry := range rec.RecruitmentLedger {
			if entry.UserID == "200" {
				total++
			}
		}
	}
	if total != 1 {
		t.Errorf("User 200 recruited %d times system-wide, want 1", total)
	}
	if e.ledger["101"].SuccessfulInvites != 0 {
		t.Errorf("Second inviter must not be credited, got %d", e.ledger["101"].SuccessfulInvites)
	}
}

func TestMilestoneFiresOnceAtThreshold(t *testing.T) {
	st := newTestStore(t)

	seeded := models.NewInviterRecord("alice", "Alice")
	seeded.SuccessfulInvites = 4
	for i := 0; i < 4; i++ {
		seeded.RecruitmentLedger = append(seeded.RecruitmentLedger, models.RecruitmentEntry{
			UserID: string(rune('a' + i)),
		})
	}
	st.SaveLedger(models.Ledger{"100": seeded})
	st.SaveRegistry(models.Registry{{Code: "X1", InviterID: "100"}})

	e, p := newTestEngine(t, st)
	p.members["100"] = inviter()

	p.listing = []RemoteInvite{{Code: "X1", Uses: 0, InviterID: "100"}}
	e.cache.Rebuild("g1", p.listing)

	p.listing = []RemoteInvite{{Code: "X1", Uses: 1, InviterID: "100"}}
	e.HandleMemberJoin("g1", recruit("200"))

	if len(p.notifications) != 1 {
		t.Fatalf("Expected exactly 1 milestone notification, got %d", len(p.notifications))
	}

	p.listing = []RemoteInvite{{Code: "X1", Uses: 2, InviterID: "100"}}
	e.HandleMemberJoin("g1", recruit("201"))

	if len(p.notifications) != 1 {
		t.Errorf("Count 6 must not fire a milestone, got %d notifications", len(p.notifications))
	}
	if e.ledger["100"].SuccessfulInvites != 6 {
		t.Errorf("Expected count 6, got %d", e.ledger["100"].SuccessfulInvites)
	}
}

func TestValidatePrunesStaleCodes(t *testing.T) {
	st := newTestStore(t)

	seeded := models.NewInviterRecord("alice", "Alice")
	seeded.ActiveInvites["ABC123"] = 3
	st.SaveLedger(models.Ledger{"100": seeded})

	e, p := newTestEngine(t, st)
	p.listing = nil
	e.Initialize("g1")

	if len(e.ledger["100"].ActiveInvites) != 0 {
		t.Errorf("Stale code not pruned: %v", e.ledger["100"].ActiveInvites)
	}

	// The pruned ledger must be on disk, not only in memory.
	reloaded := st.LoadLedger()
	if len(reloaded["100"].ActiveInvites) != 0 {
		t.Errorf("Pruned ledger not persisted: %v", reloaded["100"].ActiveInvites)
	}
}

func TestDeleteResolvesInviterBeforeRegistryRemoval(t *testing.T) {
	e, p := newTestEngine(t, newTestStore(t))
	p.members["100"] = inviter()

	p.listing = []RemoteInvite{{Code: "X1", Uses: 0, InviterID: "100", InviterUsername: "alice"}}
	e.Initialize("g1")

	e.HandleInviteDelete("g1", "X1")

	if _, ok := e.ledger["100"].ActiveInvites["X1"]; ok {
		t.Error("Active invite not removed on delete")
	}
	if e.findInvite("X1") != nil {
		t.Error("Registry entry not removed on delete")
	}
	if delta := e.cache.Observe("g1", "X1", 1); delta != 1 {
		t.Errorf("Cache entry should be forgotten, observed delta %d", delta)
	}
}

func TestDeleteUnknownCodeIsNoop(t *testing.T) {
	e, _ := newTestEngine(t, newTestStore(t))
	e.HandleInviteDelete("g1", "GHOST")
	if len(e.registry) != 0 || len(e.ledger) != 0 {
		t.Error("Deleting an unknown code must not mutate state")
	}
}

func TestJoinSkippedWhenInviterGone(t *testing.T) {
	e, p := newTestEngine(t, newTestStore(t))
	// Inviter 100 is not a member anymore.

	p.listing = []RemoteInvite{{Code: "X1", Uses: 0, InviterID: "100"}}
	e.Initialize("g1")

	p.listing = []RemoteInvite{{Code: "X1", Uses: 1, InviterID: "100"}}
	e.HandleMemberJoin("g1", recruit("200"))

	if e.ledger["100"].SuccessfulInvites != 0 {
		t.Errorf("Departed inviter must not be credited, got %d", e.ledger["100"].SuccessfulInvites)
	}
	// The cache still advances so the same use is not reconsidered.
	if delta := e.cache.Observe("g1", "X1", 1); delta != 0 {
		t.Errorf("Cache must advance on skipped attribution, observed delta %d", delta)
	}
}

func TestPermissionErrorAbortsQuietly(t *testing.T) {
	e, p := newTestEngine(t, newTestStore(t))
	p.listErr = ErrPermission

	e.Initialize("g1")
	e.HandleMemberJoin("g1", recruit("200"))

	if len(e.ledger) != 0 || len(e.registry) != 0 {
		t.Error("Permission failure must leave state untouched")
	}
}

func TestMemberUpdatePropagatesDisplayName(t *testing.T) {
	e, p := newTestEngine(t, newTestStore(t))
	p.members["100"] = inviter()

	p.listing = []RemoteInvite{{Code: "X1", Uses: 0, InviterID: "100"}}
	e.Initialize("g1")
	p.listing = []RemoteInvite{{Code: "X1", Uses: 1, InviterID: "100"}}
	e.HandleMemberJoin("g1", recruit("200"))

	e.HandleMemberUpdate(MemberInfo{ID: "200", Username: "user200", DisplayName: "Renamed"})

	entry := e.ledger["100"].RecruitmentLedger[0]
	if entry.DisplayName != "Renamed" {
		t.Errorf("Recruitment entry display name not propagated: %q", entry.DisplayName)
	}
}

func TestLeaderboardOrderAndTies(t *testing.T) {
	st := newTestStore(t)
	ledger := models.Ledger{}

	add := func(id string, successful, active int) {
		rec := models.NewInviterRecord("u"+id, "U"+id)
		rec.SuccessfulInvites = successful
		for i := 0; i < successful; i++ {
			rec.RecruitmentLedger = append(rec.RecruitmentLedger, models.RecruitmentEntry{UserID: id + "-" + string(rune('a'+i))})
		}
		for i := 0; i < active; i++ {
			rec.ActiveInvites["c"+id+string(rune('a'+i))] = 0
		}
		ledger[id] = rec
	}
	add("300", 3, 0)
	add("100", 5, 1)
	add("200", 3, 2)
	add("400", 0, 0) // filtered out

	st.SaveLedger(ledger)
	e, _ := newTestEngine(t, st)

	entries := e.Leaderboard("g1", 10)
	if len(entries) != 3 {
		t.Fatalf("Expected 3 entries, got %d", len(entries))
	}
	got := []string{entries[0].UserID, entries[1].UserID, entries[2].UserID}
	want := []string{"100", "200", "300"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Leaderboard order %v, want %v", got, want)
		}
	}

	if limited := e.Leaderboard("g1", 2); len(limited) != 2 {
		t.Errorf("Limit 2 returned %d entries", len(limited))
	}
}

func TestNormalizeRepairsRecords(t *testing.T) {
	e, _ := newTestEngine(t, newTestStore(t))
	e.ledger["100"] = &models.InviterRecord{
		SuccessfulInvites: 0,
		RecruitmentLedger: []models.RecruitmentEntry{{UserID: "200"}},
	}

	e.Normalize()

	rec := e.ledger["100"]
	if rec.Username != "Unknown" || rec.DisplayName != "Unknown" {
		t.Errorf("Defaults not filled: %q / %q", rec.Username, rec.DisplayName)
	}
	if rec.ActiveInvites == nil {
		t.Error("Active invites map not materialized")
	}
	if rec.SuccessfulInvites != 1 {
		t.Errorf("Counter not repaired to ledger length, got %d", rec.SuccessfulInvites)
	}
	if e.recruits["200"] != "100" {
		t.Error("Recruit index not rebuilt")
	}
}
