package storage

import (
	"fmt"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// TestMigrationsIdempotent runs Open twice on the same database and verifies
// the schema_version count stays correct (migration not re-applied).
func TestMigrationsIdempotent(t *testing.T) {
	dir := t.TempDir()

	s1, err := Open(dir)
	if err != nil {
		t.Fatalf("first Open failed: %v", err)
	}

	v1, err := s1.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}
	s1.Close()

	s2, err := Open(dir)
	if err != nil {
		t.Fatalf("second Open failed: %v", err)
	}
	defer s2.Close()

	v2, err := s2.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}

	if len(v1) != len(v2) {
		t.Errorf("migration count changed: %d -> %d", len(v1), len(v2))
	}
}

// TestMigrationsOrdered verifies migrations are applied in ascending numeric order.
func TestMigrationsOrdered(t *testing.T) {
	s := openTestStore(t)

	versions, err := s.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}

	if len(versions) != 2 {
		t.Fatalf("applied migrations = %v, want 2", versions)
	}

	for i := 1; i < len(versions); i++ {
		if versions[i] <= versions[i-1] {
			t.Errorf("migrations not in ascending order: %v", versions)
			break
		}
	}
}

func TestIndexesExist(t *testing.T) {
	s := openTestStore(t)

	indexes := []string{"idx_review_decisions_item", "idx_review_decisions_decided", "idx_notifications_created"}
	for _, idx := range indexes {
		var count int
		err := s.db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='index' AND name=?", idx).Scan(&count)
		if err != nil {
			t.Fatalf("querying sqlite_master for %q: %v", idx, err)
		}
		if count != 1 {
			t.Errorf("index %q not found in sqlite_master", idx)
		}
	}
}

func TestParseMigrationVersion(t *testing.T) {
	v, err := parseMigrationVersion("002_notifications.sql")
	if err != nil || v != 2 {
		t.Errorf("parseMigrationVersion = %d, %v", v, err)
	}
	if _, err := parseMigrationVersion("notifications.sql"); err == nil {
		t.Error("expected error for unnumbered file")
	}
}

func TestSaveAndListDecisions(t *testing.T) {
	s := openTestStore(t)

	base := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	for j := 0; j < 6; j++ {
		d := ReviewDecision{
			ID:        fmt.Sprintf("dec-%02d", j),
			ItemID:    fmt.Sprintf("VAL-%03d", j%3),
			RFPID:     "RFP-2024-001",
			Decision:  "approved",
			Reviewer:  "asha",
			DecidedAt: base.Add(time.Duration(j) * time.Minute),
		}
		if j%2 == 1 {
			d.Decision = "rejected"
			d.Reason = "spec mismatch"
		}
		if err := s.SaveDecision(d); err != nil {
			t.Fatalf("SaveDecision %d: %v", j, err)
		}
	}

	got, err := s.ListDecisions(4, 0)
	if err != nil {
		t.Fatalf("ListDecisions: %v", err)
	}
	if len(got) != 4 {
		t.Fatalf("got %d decisions, want 4", len(got))
	}
	if got[0].ID != "dec-05" {
		t.Errorf("first = %s, want dec-05", got[0].ID)
	}
	for k := 1; k < len(got); k++ {
		if got[k].DecidedAt.After(got[k-1].DecidedAt) {
			t.Errorf("not in descending order at %d", k)
		}
	}
	if got[0].Reason != "spec mismatch" || got[0].Decision != "rejected" {
		t.Errorf("first decision = %+v", got[0])
	}
	if !got[0].DecidedAt.Equal(base.Add(5 * time.Minute)) {
		t.Errorf("DecidedAt = %v", got[0].DecidedAt)
	}

	page2, err := s.ListDecisions(4, 4)
	if err != nil {
		t.Fatalf("ListDecisions page 2: %v", err)
	}
	if len(page2) != 2 {
		t.Errorf("page 2 = %d, want 2", len(page2))
	}

	item, err := s.DecisionsForItem("VAL-001")
	if err != nil {
		t.Fatalf("DecisionsForItem: %v", err)
	}
	if len(item) != 2 || item[0].ID != "dec-01" || item[1].ID != "dec-04" {
		t.Errorf("item history = %+v", item)
	}
}

func TestSaveDecisionRejectsUnknownDecision(t *testing.T) {
	s := openTestStore(t)
	err := s.SaveDecision(ReviewDecision{
		ID:        "bad",
		ItemID:    "VAL-001",
		RFPID:     "RFP-2024-001",
		Decision:  "pending",
		DecidedAt: time.Now(),
	})
	if err == nil {
		t.Fatal("expected check constraint failure")
	}
}

func TestSaveDecisionDuplicateID(t *testing.T) {
	s := openTestStore(t)
	d := ReviewDecision{ID: "dup", ItemID: "VAL-001", RFPID: "RFP-2024-001", Decision: "approved", DecidedAt: time.Now()}
	if err := s.SaveDecision(d); err != nil {
		t.Fatalf("SaveDecision: %v", err)
	}
	if err := s.SaveDecision(d); err == nil {
		t.Fatal("expected primary key violation")
	}
}

func TestNotifications(t *testing.T) {
	s := openTestStore(t)

	base := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	if err := s.SaveNotification(Notification{ID: "n1", Title: "Item Approved", Message: "a", CreatedAt: base}); err != nil {
		t.Fatalf("SaveNotification: %v", err)
	}
	if err := s.SaveNotification(Notification{ID: "n2", Title: "Item Rejected", Message: "b", Variant: "destructive", CreatedAt: base.Add(time.Second)}); err != nil {
		t.Fatalf("SaveNotification: %v", err)
	}

	got, err := s.ListNotifications(10, 0)
	if err != nil {
		t.Fatalf("ListNotifications: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d, want 2", len(got))
	}
	if got[0].ID != "n2" || got[0].Variant != "destructive" {
		t.Errorf("first = %+v", got[0])
	}
	if got[1].Variant != "default" {
		t.Errorf("default variant = %q", got[1].Variant)
	}
}

func TestEmptyLists(t *testing.T) {
	s := openTestStore(t)
	d, err := s.ListDecisions(10, 0)
	if err != nil || len(d) != 0 {
		t.Errorf("ListDecisions = %v, %v", d, err)
	}
	n, err := s.ListNotifications(10, 0)
	if err != nil || len(n) != 0 {
		t.Errorf("ListNotifications = %v, %v", n, err)
	}
}

func TestLoadMigrationsOrdered(t *testing.T) {
	ms, err := loadMigrations(migrationsFS)
	if err != nil {
		t.Fatalf("loadMigrations: %v", err)
	}
	if len(ms) != 2 {
		t.Fatalf("got %d migrations, want 2", len(ms))
	}
	if ms[0].version != 1 || ms[0].name != "001_review_decisions" {
		t.Errorf("first migration = %d %q", ms[0].version, ms[0].name)
	}
	if ms[1].version != 2 {
		t.Errorf("second migration version = %d, want 2", ms[1].version)
	}
}
