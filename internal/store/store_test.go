package store

import (
	"os"
	"path/filepath"
	"testing"

	"discord-invite-tracker/internal/models"

	"go.uber.org/zap"
)

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	dir := t.TempDir()
	s := New(filepath.Join(dir, "invite_data.json"), filepath.Join(dir, "invites.json"), zap.NewNop())
	return s, dir
}

func TestLoadMissingFilesDefaultsEmpty(t *testing.T) {
	s, _ := newTestStore(t)

	if ledger := s.LoadLedger(); len(ledger) != 0 {
		t.Errorf("Expected empty ledger, got %d records", len(ledger))
	}
	if registry := s.LoadRegistry(); len(registry) != 0 {
		t.Errorf("Expected empty registry, got %d records", len(registry))
	}
}

func TestLoadCorruptContentDefaultsEmpty(t *testing.T) {
	s, dir := newTestStore(t)

	os.WriteFile(filepath.Join(dir, "invite_data.json"), []byte("{not json"), 0o644)
	os.WriteFile(filepath.Join(dir, "invites.json"), []byte("garbage"), 0o644)

	if ledger := s.LoadLedger(); len(ledger) != 0 {
		t.Errorf("Corrupt ledger should load empty, got %d records", len(ledger))
	}
	if registry := s.LoadRegistry(); len(registry) != 0 {
		t.Errorf("Corrupt registry should load empty, got %d records", len(registry))
	}
}

func TestSaveLoadRoundtrip(t *testing.T) {
	s, _ := newTestStore(t)

	rec := models.NewInviterRecord("alice", "Alice")
	rec.ActiveInvites["X1"] = 2
	rec.SuccessfulInvites = 1
	rec.RecruitmentLedger = append(rec.RecruitmentLedger, models.RecruitmentEntry{
		UserID:         "200",
		Username:       "bob",
		DisplayName:    "Bob",
		InitiationDate: models.Timestamp(),
		InviteCode:     "X1",
	})
	s.SaveLedger(models.Ledger{"100": rec})
	s.SaveRegistry(models.Registry{{Code: "X1", InviterID: "100", Uses: 2}})

	ledger := s.LoadLedger()
	got := ledger["100"]
	if got == nil {
		t.Fatal("Record lost in roundtrip")
	}
	if got.ActiveInvites["X1"] != 2 || got.SuccessfulInvites != 1 {
		t.Errorf("Record fields lost: %+v", got)
	}
	if len(got.RecruitmentLedger) != 1 || got.RecruitmentLedger[0].InviteCode != "X1" {
		t.Errorf("Recruitment ledger lost: %+v", got.RecruitmentLedger)
	}

	registry := s.LoadRegistry()
	if len(registry) != 1 || registry[0].Code != "X1" || registry[0].Uses != 2 {
		t.Errorf("Registry lost in roundtrip: %+v", registry)
	}
}

func TestLedgerSalvageKeepsGoodRecords(t *testing.T) {
	s, dir := newTestStore(t)

	// A drifted variant: one sound record, one with the wrong shape.
	doc := `{
	  "100": {"username": "alice", "display_name": "Alice", "active_invites": {"X1": 1}, "successful_invites": 1, "recruitment_ledger": []},
	  "101": {"username": "bob", "active_invites": "not-a-map"}
	}`
	os.WriteFile(filepath.Join(dir, "invite_data.json"), []byte(doc), 0o644)

	ledger := s.LoadLedger()
	if ledger["100"] == nil {
		t.Fatal("Sound record dropped during salvage")
	}
	if ledger["100"].ActiveInvites["X1"] != 1 {
		t.Errorf("Salvaged record lost data: %+v", ledger["100"])
	}
	if _, ok := ledger["101"]; ok {
		t.Error("Malformed record should be dropped")
	}
}

func TestLoadCanonicalizesDriftedCounter(t *testing.T) {
	s, dir := newTestStore(t)

	doc := `{"100": {"username": "alice", "successful_invites": 0,
	  "recruitment_ledger": [{"user_id": "200", "username": "bob"}]}}`
	os.WriteFile(filepath.Join(dir, "invite_data.json"), []byte(doc), 0o644)

	ledger := s.LoadLedger()
	if ledger["100"].SuccessfulInvites != 1 {
		t.Errorf("Counter not repaired to ledger length, got %d", ledger["100"].SuccessfulInvites)
	}
	if ledger["100"].DisplayName != "alice" {
		t.Errorf("Display name default not applied, got %q", ledger["100"].DisplayName)
	}
}

func TestSaveLeavesNoTempFile(t *testing.T) {
	s, dir := newTestStore(t)
	s.SaveLedger(models.Ledger{})

	if _, err := os.Stat(filepath.Join(dir, "invite_data.json")); err != nil {
		t.Fatalf("Document not written: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "invite_data.json.tmp")); !os.IsNotExist(err) {
		t.Error("Temp file left behind after commit")
	}
}
