package analytics

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kalambet/rfpdesk/internal/model"
)

// KPIs are the headline figures of the dashboard.
type KPIs struct {
	TotalActiveRFPs      int             `json:"total_active_rfps"`
	RFPsNearDeadline     int             `json:"rfps_near_deadline"`
	AvgResponseDays      float64         `json:"avg_response_days"`
	ApprovalPendingCount int             `json:"approval_pending_count"`
	WinRate              float64         `json:"win_rate"`
	TotalPipelineValue   decimal.Decimal `json:"total_pipeline_value"`
}

type Dashboard struct {
	KPIs               KPIs         `json:"kpis"`
	StatusDistribution []StageCount `json:"status_distribution"`
	UrgentRFPs         []model.RFP  `json:"urgent_rfps"`
}

// BuildDashboard computes the dashboard from one consistent view of the records.
func BuildDashboard(rfps []model.RFP, items []model.ValidationItem, bench model.Benchmarks, now time.Time, urgentLimit int) Dashboard {
	urgent := UrgentRFPs(rfps, now, urgentLimit)
	if urgent == nil {
		urgent = []model.RFP{}
	}
	return Dashboard{
		KPIs: KPIs{
			TotalActiveRFPs:      len(rfps),
			RFPsNearDeadline:     NearDeadlineCount(rfps, now),
			AvgResponseDays:      bench.AvgResponseDays,
			ApprovalPendingCount: ApprovalPendingCount(items),
			WinRate:              bench.WinRate,
			TotalPipelineValue:   TotalPipelineValue(rfps),
		},
		StatusDistribution: StatusDistribution(rfps),
		UrgentRFPs:         urgent,
	}
}

type PricingTotals struct {
	BaseCost    decimal.Decimal `json:"base_cost"`
	RMSurcharge decimal.Decimal `json:"rm_surcharge"`
	Margin      decimal.Decimal `json:"margin"`
	FinalPrice  decimal.Decimal `json:"final_price"`
}

func SumPricing(rows []model.PricingBreakdown) PricingTotals {
	t := PricingTotals{
		BaseCost:    decimal.Zero,
		RMSurcharge: decimal.Zero,
		Margin:      decimal.Zero,
		FinalPrice:  decimal.Zero,
	}
	for _, r := range rows {
		t.BaseCost = t.BaseCost.Add(r.BaseCost)
		t.RMSurcharge = t.RMSurcharge.Add(r.RMSurcharge)
		t.Margin = t.Margin.Add(r.Margin)
		t.FinalPrice = t.FinalPrice.Add(r.FinalPrice)
	}
	return t
}

// PricingMismatches returns the line items whose final price is not the sum
// of base cost, surcharge and margin.
func PricingMismatches(rows []model.PricingBreakdown) []string {
	var out []string
	for _, r := range rows {
		if !r.Consistent() {
			out = append(out, r.LineItem)
		}
	}
	return out
}

type DocumentStats struct {
	ByType   map[model.DocumentType]int   `json:"by_type"`
	ByStatus map[model.DocumentStatus]int `json:"by_status"`
}

func CountDocuments(docs []model.Document) DocumentStats {
	s := DocumentStats{
		ByType:   map[model.DocumentType]int{},
		ByStatus: map[model.DocumentStatus]int{},
	}
	for _, d := range docs {
		s.ByType[d.Type]++
		s.ByStatus[d.Status]++
	}
	return s
}

// FilterDocuments keeps documents whose name or RFP id contains query (case
// insensitive) and, when typ is non-empty, of that type.
func FilterDocuments(docs []model.Document, query string, typ model.DocumentType) []model.Document {
	q := strings.ToLower(strings.TrimSpace(query))
	var out []model.Document
	for _, d := range docs {
		if typ != "" && d.Type != typ {
			continue
		}
		if q != "" &&
			!strings.Contains(strings.ToLower(d.Name), q) &&
			!strings.Contains(strings.ToLower(d.RFPID), q) {
			continue
		}
		out = append(out, d)
	}
	return out
}
