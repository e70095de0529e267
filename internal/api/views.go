package api

import (
	"time"

	"github.com/kalambet/rfpdesk/internal/analytics"
	"github.com/kalambet/rfpdesk/internal/fixture"
	"github.com/kalambet/rfpdesk/internal/format"
	"github.com/kalambet/rfpdesk/internal/model"
	"github.com/kalambet/rfpdesk/internal/review"
	"github.com/kalambet/rfpdesk/internal/storage"
)

// RFPView is an RFP with the figures a client needs to render it.
type RFPView struct {
	model.RFP
	DaysUntil       int           `json:"days_until"`
	UrgencyBucket   model.Urgency `json:"urgency_bucket"`
	StageLabel      string        `json:"stage_label"`
	Progress        int           `json:"progress"`
	ValueDisplay    string        `json:"value_display"`
	DeadlineDisplay string        `json:"deadline_display"`
}

func newRFPView(r model.RFP, now time.Time, sla analytics.SLAThresholds) RFPView {
	days := analytics.DaysUntil(r.Deadline, now)
	return RFPView{
		RFP:             r,
		DaysUntil:       days,
		UrgencyBucket:   analytics.UrgencyFor(days, sla),
		StageLabel:      r.CurrentStage.Label(),
		Progress:        r.CurrentStage.Progress(),
		ValueDisplay:    format.Currency(r.EstimatedValue),
		DeadlineDisplay: format.Date(r.Deadline),
	}
}

func rfpViews(rfps []model.RFP, now time.Time, sla analytics.SLAThresholds) []RFPView {
	out := make([]RFPView, 0, len(rfps))
	for _, r := range rfps {
		out = append(out, newRFPView(r, now, sla))
	}
	return out
}

type DashboardView struct {
	KPIs                 analytics.KPIs         `json:"kpis"`
	PipelineValueDisplay string                 `json:"pipeline_value_display"`
	StatusDistribution   []analytics.StageCount `json:"status_distribution"`
	UrgentRFPs           []RFPView              `json:"urgent_rfps"`
	GeneratedAt          time.Time              `json:"generated_at"`
}

func buildDashboard(records *fixture.Store, now time.Time, urgentLimit int, sla analytics.SLAThresholds) DashboardView {
	snap := records.Snapshot()
	d := analytics.BuildDashboard(snap.RFPs, snap.ValidationItems, snap.Benchmarks, now, urgentLimit)
	return DashboardView{
		KPIs:                 d.KPIs,
		PipelineValueDisplay: format.Currency(d.KPIs.TotalPipelineValue),
		StatusDistribution:   d.StatusDistribution,
		UrgentRFPs:           rfpViews(d.UrgentRFPs, now, sla),
		GeneratedAt:          now.UTC(),
	}
}

type RFPList struct {
	RFPs         []RFPView                 `json:"rfps"`
	Summary      analytics.PipelineSummary `json:"summary"`
	ValueDisplay string                    `json:"value_display"`
}

func buildRFPList(records *fixture.Store, query string, stage model.Stage, now time.Time, sla analytics.SLAThresholds) RFPList {
	filtered := analytics.FilterRFPs(records.RFPs(), query, stage)
	summary := analytics.Summarize(filtered, now)
	return RFPList{
		RFPs:         rfpViews(filtered, now, sla),
		Summary:      summary,
		ValueDisplay: format.Currency(summary.TotalValue),
	}
}

type RFPDetail struct {
	RFP      RFPView             `json:"rfp"`
	Activity []model.ActivityLog `json:"activity"`
	Items    []ItemView          `json:"validation_items"`
}

type AgentView struct {
	model.AgentStatus
	ConfidenceBand model.Band `json:"confidence_band"`
	LastAction     string     `json:"last_action"`
}

type ItemView struct {
	model.ValidationItem
	StatusLabel    string     `json:"status_label"`
	ConfidenceBand model.Band `json:"confidence_band"`
}

func itemViews(items []model.ValidationItem) []ItemView {
	out := make([]ItemView, 0, len(items))
	for _, it := range items {
		out = append(out, ItemView{
			ValidationItem: it,
			StatusLabel:    it.Status.Label(),
			ConfidenceBand: model.ItemConfidenceBand(it.AgentConfidence),
		})
	}
	return out
}

type QueueView struct {
	Summary  review.Summary `json:"summary"`
	Pending  []ItemView     `json:"pending"`
	Approved []ItemView     `json:"approved"`
	Rejected []ItemView     `json:"rejected"`
}

func newQueueView(q review.Queue) QueueView {
	return QueueView{
		Summary:  q.Summary(),
		Pending:  itemViews(q.Pending),
		Approved: itemViews(q.Approved),
		Rejected: itemViews(q.Rejected),
	}
}

type PricingView struct {
	Rows          []model.PricingBreakdown `json:"rows"`
	Totals        analytics.PricingTotals  `json:"totals"`
	TotalsDisplay string                   `json:"totals_display"`
	Mismatches    []string                 `json:"mismatches"`
}

type DocumentView struct {
	model.Document
	FileName    string `json:"file_name"`
	StatusLabel string `json:"status_label"`
}

type DocumentList struct {
	Documents []DocumentView          `json:"documents"`
	Stats     analytics.DocumentStats `json:"stats"`
}

func documentViews(docs []model.Document) []DocumentView {
	out := make([]DocumentView, 0, len(docs))
	for _, d := range docs {
		out = append(out, DocumentView{Document: d, FileName: d.FileName(), StatusLabel: d.Status.Label()})
	}
	return out
}

type DownloadView struct {
	Document     DocumentView         `json:"document"`
	Notification storage.Notification `json:"notification"`
}
