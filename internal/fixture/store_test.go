package fixture

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kalambet/rfpdesk/internal/model"
)

var testNow = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

func defaultStore(t *testing.T) *Store {
	t.Helper()
	ds, err := Default(testNow)
	if err != nil {
		t.Fatalf("Default: %v", err)
	}
	return NewStore(ds)
}

func TestDefaultSeedCounts(t *testing.T) {
	ds, err := Default(testNow)
	if err != nil {
		t.Fatalf("Default: %v", err)
	}

	counts := map[string][2]int{
		"rfps":       {len(ds.RFPs), 8},
		"agents":     {len(ds.Agents), 4},
		"validation": {len(ds.ValidationItems), 4},
		"sku":        {len(ds.SKUMatches), 4},
		"pricing":    {len(ds.Pricing), 3},
		"documents":  {len(ds.Documents), 4},
		"alerts":     {len(ds.Alerts), 4},
		"activity":   {len(ds.Activity), 4},
	}
	for name, c := range counts {
		if c[0] != c[1] {
			t.Errorf("%s: got %d records, want %d", name, c[0], c[1])
		}
	}
	if ds.Benchmarks.AvgResponseDays != 8.5 || ds.Benchmarks.WinRate != 67 {
		t.Errorf("benchmarks = %+v", ds.Benchmarks)
	}
}

func TestDefaultSeedResolvesRelativeDates(t *testing.T) {
	ds, err := Default(testNow)
	if err != nil {
		t.Fatalf("Default: %v", err)
	}

	first := ds.RFPs[0]
	if first.ID != "RFP-2024-001" {
		t.Fatalf("first RFP = %s", first.ID)
	}
	if want := testNow.Add(5 * 24 * time.Hour); !first.Deadline.Equal(want) {
		t.Errorf("Deadline = %v, want %v", first.Deadline, want)
	}
	if want := testNow.Add(-10 * 24 * time.Hour); !first.CreatedAt.Equal(want) {
		t.Errorf("CreatedAt = %v, want %v", first.CreatedAt, want)
	}
	if !first.LastUpdated.Equal(testNow) {
		t.Errorf("LastUpdated = %v, want %v", first.LastUpdated, testNow)
	}
	if !first.EstimatedValue.Equal(decimal.NewFromInt(45000000)) {
		t.Errorf("EstimatedValue = %s", first.EstimatedValue)
	}
	if first.MarginRange != (model.MarginRange{12, 18}) {
		t.Errorf("MarginRange = %v", first.MarginRange)
	}

	sales := ds.Agents[1]
	if want := testNow.Add(-time.Duration(0.1 * float64(24*time.Hour))); !sales.LastActionTime.Equal(want) {
		t.Errorf("LastActionTime = %v, want %v", sales.LastActionTime, want)
	}
	if len(ds.Agents[0].Warnings) != 0 || ds.Agents[0].Warnings == nil {
		t.Errorf("orchestrator warnings = %#v, want empty non-nil", ds.Agents[0].Warnings)
	}
}

func TestLoadRejectsBrokenInvariants(t *testing.T) {
	tests := []struct {
		name string
		seed string
		want string
	}{
		{
			name: "inverted margin",
			seed: `
rfps:
  - id: R1
    current_stage: ingestion
    estimated_value: 10
    margin_range: [20, 10]
`,
			want: "margin range",
		},
		{
			name: "updated before created",
			seed: `
rfps:
  - id: R1
    current_stage: ingestion
    estimated_value: 10
    margin_range: [1, 2]
    created_days_ago: 1
    updated_days_ago: 3
`,
			want: "last updated before created",
		},
		{
			name: "dangling rfp reference",
			seed: `
validation_items:
  - id: V1
    rfp_id: NOPE
    status: pending
    agent_confidence: 50
`,
			want: "unknown rfp",
		},
		{
			name: "pricing mismatch",
			seed: `
pricing:
  - line_item: cable
    base_cost: 100
    rm_surcharge: 10
    margin: 5
    final_price: 120
`,
			want: "does not equal",
		},
		{
			name: "unknown client type",
			seed: `
rfps:
  - id: R1
    client_type: NGO
    urgency: low
    current_stage: ingestion
    estimated_value: 10
    margin_range: [1, 2]
`,
			want: "unknown client type \"NGO\"",
		},
		{
			name: "unknown urgency",
			seed: `
rfps:
  - id: R1
    client_type: PSU
    urgency: urgent
    current_stage: ingestion
    estimated_value: 10
    margin_range: [1, 2]
`,
			want: "unknown urgency \"urgent\"",
		},
		{
			name: "unknown agent type",
			seed: `
agents:
  - type: marketing
    completion_percent: 10
    confidence_score: 10
`,
			want: "agent \"marketing\": unknown type",
		},
		{
			name: "unknown item type",
			seed: `
rfps:
  - id: R1
    client_type: PSU
    urgency: low
    current_stage: ingestion
    estimated_value: 10
    margin_range: [1, 2]
validation_items:
  - id: V1
    rfp_id: R1
    item_type: legal
    status: pending
    agent_confidence: 50
`,
			want: "unknown item type \"legal\"",
		},
		{
			name: "unknown document type",
			seed: `
documents:
  - id: D1
    type: memo
    status: draft
    format: pdf
    version: 1
`,
			want: "unknown type \"memo\"",
		},
		{
			name: "unknown document status",
			seed: `
documents:
  - id: D1
    type: boq
    status: archived
    format: pdf
    version: 1
`,
			want: "unknown status \"archived\"",
		},
		{
			name: "unknown document format",
			seed: `
documents:
  - id: D1
    type: boq
    status: draft
    format: docx
    version: 1
`,
			want: "unknown format \"docx\"",
		},
		{
			name: "unknown alert type",
			seed: `
alerts:
  - id: A1
    type: fatal
    title: boom
`,
			want: "alert A1: unknown type \"fatal\"",
		},
		{
			name: "deadline offset out of range",
			seed: `
rfps:
  - id: R1
    client_type: PSU
    urgency: low
    current_stage: ingestion
    estimated_value: 10
    margin_range: [1, 2]
    deadline_in_days: 1000000
`,
			want: "line 9: day offset 1000000 out of range",
		},
		{
			name: "negative offset out of range",
			seed: `
activity:
  - id: ACT-1
    days_ago: -40000
`,
			want: "day offset -40000 out of range",
		},
		{
			name: "unknown field",
			seed: `
rfps:
  - id: R1
    colour: blue
`,
			want: "decoding seed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(strings.NewReader(tt.seed), testNow)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %q, want it to contain %q", err.Error(), tt.want)
			}
		})
	}
}

func TestLoadAcceptsOffsetAtBound(t *testing.T) {
	seed := `
rfps:
  - id: R1
    client_type: Government
    urgency: medium
    current_stage: submitted
    estimated_value: 10
    margin_range: [1, 2]
    deadline_in_days: 36500
`
	ds, err := Load(strings.NewReader(seed), testNow)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !ds.RFPs[0].Deadline.After(testNow) {
		t.Errorf("deadline %v should be after %v", ds.RFPs[0].Deadline, testNow)
	}
}

func TestLoadEmptySeed(t *testing.T) {
	ds, err := Load(strings.NewReader(""), testNow)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(ds.RFPs) != 0 {
		t.Errorf("got %d RFPs, want 0", len(ds.RFPs))
	}
}

func TestApplyValidationReplacesRecord(t *testing.T) {
	s := defaultStore(t)

	got, err := s.ApplyValidation("VAL-002", func(v model.ValidationItem) (model.ValidationItem, error) {
		return v.WithStatus(model.ValidationApproved), nil
	})
	if err != nil {
		t.Fatalf("ApplyValidation: %v", err)
	}
	if got.Status != model.ValidationApproved {
		t.Errorf("returned status = %s", got.Status)
	}

	stored, err := s.ValidationItem("VAL-002")
	if err != nil {
		t.Fatalf("ValidationItem: %v", err)
	}
	if stored.Status != model.ValidationApproved {
		t.Errorf("stored status = %s", stored.Status)
	}
}

func TestApplyValidationErrorLeavesRecord(t *testing.T) {
	s := defaultStore(t)
	boom := errors.New("boom")

	_, err := s.ApplyValidation("VAL-001", func(v model.ValidationItem) (model.ValidationItem, error) {
		return v.WithStatus(model.ValidationRejected), boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("error = %v, want boom", err)
	}

	stored, _ := s.ValidationItem("VAL-001")
	if stored.Status != model.ValidationPending {
		t.Errorf("status = %s, want pending", stored.Status)
	}
}

func TestApplyValidationNotFound(t *testing.T) {
	s := defaultStore(t)
	called := false
	_, err := s.ApplyValidation("VAL-999", func(v model.ValidationItem) (model.ValidationItem, error) {
		called = true
		return v, nil
	})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
	if called {
		t.Error("transition func called for missing item")
	}
}

func TestApplyValidationRejectsIDChange(t *testing.T) {
	s := defaultStore(t)
	_, err := s.ApplyValidation("VAL-001", func(v model.ValidationItem) (model.ValidationItem, error) {
		v.ID = "VAL-XXX"
		return v, nil
	})
	if err == nil {
		t.Fatal("expected error when transition changes id")
	}
	if _, err := s.ValidationItem("VAL-001"); err != nil {
		t.Errorf("VAL-001 lost: %v", err)
	}
}

func TestReadsReturnCopies(t *testing.T) {
	s := defaultStore(t)

	items := s.ValidationItems()
	items[0].Status = model.ValidationRejected

	agents := s.Agents()
	agents[1].Warnings[0] = "changed"

	if v, _ := s.ValidationItem(items[0].ID); v.Status != model.ValidationPending {
		t.Error("mutating ValidationItems result changed the store")
	}
	if s.Agents()[1].Warnings[0] == "changed" {
		t.Error("mutating Agents warnings changed the store")
	}
}

func TestActivityNewestFirst(t *testing.T) {
	s := defaultStore(t)

	s.AppendActivity(model.ActivityLog{
		ID:        "ACT-NEW",
		RFPID:     "RFP-2024-003",
		Action:    "Validation item approved",
		Actor:     "reviewer",
		Timestamp: testNow.Add(time.Minute),
	})

	all := s.Activity()
	if all[0].ID != "ACT-NEW" {
		t.Errorf("first entry = %s, want ACT-NEW", all[0].ID)
	}
	for i := 1; i < len(all); i++ {
		if all[i].Timestamp.After(all[i-1].Timestamp) {
			t.Fatalf("not descending at %d", i)
		}
	}

	for1 := s.ActivityFor("RFP-2024-001")
	if len(for1) != 4 {
		t.Errorf("ActivityFor(RFP-2024-001) = %d entries, want 4", len(for1))
	}
	if for1[0].ID != "ACT-001" || for1[3].ID != "ACT-004" {
		t.Errorf("order = %s..%s", for1[0].ID, for1[3].ID)
	}
}

func findAlert(s *Store, id string) []model.Alert {
	var found []model.Alert
	for _, a := range s.Alerts() {
		if a.ID == id {
			found = append(found, a)
		}
	}
	return found
}

func TestUpsertAlert(t *testing.T) {
	s := defaultStore(t)

	alert := model.Alert{ID: "ALT-X", Type: model.AlertWarning, Title: "one", CreatedAt: testNow}
	if !s.UpsertAlert(alert) {
		t.Error("first upsert should report new")
	}
	alert.Title = "two"
	alert.CreatedAt = testNow.Add(time.Hour)
	if s.UpsertAlert(alert) {
		t.Error("second upsert should report existing")
	}

	found := findAlert(s, "ALT-X")
	if len(found) != 1 || found[0].Title != "two" || !found[0].CreatedAt.Equal(testNow) {
		t.Errorf("alerts with ALT-X = %+v", found)
	}

	// A type change counts as raised and takes the new timestamp.
	alert.Type = model.AlertError
	if !s.UpsertAlert(alert) {
		t.Error("upsert with a new type should report raised")
	}
	if found := findAlert(s, "ALT-X"); !found[0].CreatedAt.Equal(testNow.Add(time.Hour)) {
		t.Errorf("CreatedAt = %v", found[0].CreatedAt)
	}
}

func TestResolveAlert(t *testing.T) {
	s := defaultStore(t)
	before := len(s.Alerts())
	s.UpsertAlert(model.Alert{ID: "ALT-X", Type: model.AlertError, Title: "open", CreatedAt: testNow})

	if !s.ResolveAlert("ALT-X", "closed", "all clear") {
		t.Error("ResolveAlert should report an open alert")
	}
	if s.ResolveAlert("ALT-X", "closed", "all clear") {
		t.Error("resolving twice should report nothing to resolve")
	}
	if s.ResolveAlert("missing", "closed", "") {
		t.Error("unknown id should report false")
	}

	found := findAlert(s, "ALT-X")
	if len(found) != 1 {
		t.Fatalf("alerts with ALT-X = %+v", found)
	}
	if found[0].Type != model.AlertInfo || found[0].Title != "closed" || found[0].Description != "all clear" {
		t.Errorf("resolved alert = %+v", found[0])
	}
	if got := len(s.Alerts()); got != before+1 {
		t.Errorf("alerts = %d, want %d (nothing deleted)", got, before+1)
	}
}

func TestRFPLookup(t *testing.T) {
	s := defaultStore(t)
	if _, err := s.RFP("RFP-2024-007"); err != nil {
		t.Errorf("RFP: %v", err)
	}
	if _, err := s.RFP("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
	if _, err := s.Document("DOC-003"); err != nil {
		t.Errorf("Document: %v", err)
	}
}
