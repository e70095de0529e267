package analytics

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/kalambet/rfpdesk/internal/fixture"
	"github.com/kalambet/rfpdesk/internal/model"
)

func TestBuildDashboard(t *testing.T) {
	ds, err := fixture.Default(now)
	if err != nil {
		t.Fatalf("Default: %v", err)
	}

	d := BuildDashboard(ds.RFPs, ds.ValidationItems, ds.Benchmarks, now, 5)

	k := d.KPIs
	if k.TotalActiveRFPs != 8 {
		t.Errorf("TotalActiveRFPs = %d, want 8", k.TotalActiveRFPs)
	}
	if k.RFPsNearDeadline != 2 {
		t.Errorf("RFPsNearDeadline = %d, want 2", k.RFPsNearDeadline)
	}
	if k.ApprovalPendingCount != 4 {
		t.Errorf("ApprovalPendingCount = %d, want 4", k.ApprovalPendingCount)
	}
	if k.AvgResponseDays != 8.5 || k.WinRate != 67 {
		t.Errorf("benchmarks = %v / %v", k.AvgResponseDays, k.WinRate)
	}
	if !k.TotalPipelineValue.Equal(decimal.NewFromInt(395000000)) {
		t.Errorf("TotalPipelineValue = %s", k.TotalPipelineValue)
	}
	if len(d.StatusDistribution) != len(model.Stages) {
		t.Errorf("distribution buckets = %d", len(d.StatusDistribution))
	}
	if len(d.UrgentRFPs) != 1 {
		t.Errorf("urgent = %d, want 1", len(d.UrgentRFPs))
	}
}

func TestBuildDashboardEmpty(t *testing.T) {
	d := BuildDashboard(nil, nil, model.Benchmarks{}, now, 5)
	if d.UrgentRFPs == nil {
		t.Error("urgent list should be empty, not nil")
	}
	if d.KPIs.TotalActiveRFPs != 0 || !d.KPIs.TotalPipelineValue.IsZero() {
		t.Errorf("kpis = %+v", d.KPIs)
	}
}

func TestSumPricing(t *testing.T) {
	ds, err := fixture.Default(now)
	if err != nil {
		t.Fatalf("Default: %v", err)
	}
	totals := SumPricing(ds.Pricing)

	want := PricingTotals{
		BaseCost:    decimal.NewFromInt(7550000),
		RMSurcharge: decimal.NewFromInt(716000),
		Margin:      decimal.NewFromInt(1239900),
		FinalPrice:  decimal.NewFromInt(9505900),
	}
	if !totals.BaseCost.Equal(want.BaseCost) || !totals.RMSurcharge.Equal(want.RMSurcharge) ||
		!totals.Margin.Equal(want.Margin) || !totals.FinalPrice.Equal(want.FinalPrice) {
		t.Errorf("totals = %+v, want %+v", totals, want)
	}
	if m := PricingMismatches(ds.Pricing); len(m) != 0 {
		t.Errorf("mismatches = %v", m)
	}
}

func TestPricingMismatches(t *testing.T) {
	rows := []model.PricingBreakdown{
		{LineItem: "ok", BaseCost: decimal.NewFromInt(10), RMSurcharge: decimal.NewFromInt(1), Margin: decimal.NewFromInt(2), FinalPrice: decimal.NewFromInt(13)},
		{LineItem: "off", BaseCost: decimal.NewFromInt(10), RMSurcharge: decimal.NewFromInt(1), Margin: decimal.NewFromInt(2), FinalPrice: decimal.NewFromInt(14)},
	}
	m := PricingMismatches(rows)
	if len(m) != 1 || m[0] != "off" {
		t.Errorf("mismatches = %v", m)
	}
}

func TestDocuments(t *testing.T) {
	ds, err := fixture.Default(now)
	if err != nil {
		t.Fatalf("Default: %v", err)
	}

	stats := CountDocuments(ds.Documents)
	if stats.ByType[model.DocCompliance] != 1 || stats.ByType[model.DocBOQ] != 1 {
		t.Errorf("by type = %v", stats.ByType)
	}
	if stats.ByStatus[model.DocFinal] != 1 || stats.ByStatus[model.DocDraft] != 1 || stats.ByStatus[model.DocApproved] != 2 {
		t.Errorf("by status = %v", stats.ByStatus)
	}

	if got := FilterDocuments(ds.Documents, "rfp-2024-001", ""); len(got) != 2 {
		t.Errorf("filter by rfp = %d, want 2", len(got))
	}
	if got := FilterDocuments(ds.Documents, "", model.DocDeviation); len(got) != 1 || got[0].ID != "DOC-003" {
		t.Errorf("filter by type = %+v", got)
	}
	if got := FilterDocuments(ds.Documents, "boq", model.DocCompliance); len(got) != 0 {
		t.Errorf("mismatched filter = %+v", got)
	}
}
