// Package analytics derives dashboard figures from pipeline records.
//
// Every function is pure: the current time is always passed in, nothing is
// cached, and inputs are never modified.
package analytics

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kalambet/rfpdesk/internal/model"
)

// NearDeadlineDays is the day count at or below which an RFP is near its deadline.
const NearDeadlineDays = 7

// DaysUntil returns the number of whole days from now to deadline, rounded
// up. Deadlines more than a day in the past give negative values.
func DaysUntil(deadline, now time.Time) int {
	days := math.Ceil(float64(deadline.Sub(now)) / float64(24*time.Hour))
	return int(days)
}

// NearDeadline reports whether a day count falls within NearDeadlineDays.
func NearDeadline(days int) bool {
	return days <= NearDeadlineDays
}

// NearDeadlineCount counts RFPs whose deadline is within NearDeadlineDays,
// whatever their stage.
func NearDeadlineCount(rfps []model.RFP, now time.Time) int {
	n := 0
	for _, r := range rfps {
		if NearDeadline(DaysUntil(r.Deadline, now)) {
			n++
		}
	}
	return n
}

// TotalPipelineValue sums the estimated value of rfps.
func TotalPipelineValue(rfps []model.RFP) decimal.Decimal {
	total := decimal.Zero
	for _, r := range rfps {
		total = total.Add(r.EstimatedValue)
	}
	return total
}

// ApprovalPendingCount counts validation items still awaiting review.
func ApprovalPendingCount(items []model.ValidationItem) int {
	n := 0
	for _, v := range items {
		if v.Status == model.ValidationPending {
			n++
		}
	}
	return n
}

type StageCount struct {
	Stage model.Stage `json:"stage"`
	Label string      `json:"label"`
	Count int         `json:"count"`
}

// StatusDistribution counts RFPs per stage. Every stage is present, in
// model.Stages order, including stages with no RFPs.
func StatusDistribution(rfps []model.RFP) []StageCount {
	counts := make(map[model.Stage]int, len(model.Stages))
	for _, r := range rfps {
		counts[r.CurrentStage]++
	}
	out := make([]StageCount, 0, len(model.Stages))
	for _, s := range model.Stages {
		out = append(out, StageCount{Stage: s, Label: s.Label(), Count: counts[s]})
	}
	return out
}

// UrgentRFPs returns RFPs near their deadline that have not been submitted,
// soonest deadline first. A positive limit caps the result.
func UrgentRFPs(rfps []model.RFP, now time.Time, limit int) []model.RFP {
	var out []model.RFP
	for _, r := range rfps {
		if r.CurrentStage == model.StageSubmitted {
			continue
		}
		if NearDeadline(DaysUntil(r.Deadline, now)) {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Deadline.Before(out[j].Deadline)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// SLAThresholds are the day counts at or below which an RFP falls into an
// urgency bucket.
type SLAThresholds struct {
	CriticalDays int
	HighDays     int
	MediumDays   int
}

// DefaultSLA mirrors the default settings of the review desk.
var DefaultSLA = SLAThresholds{CriticalDays: 3, HighDays: 7, MediumDays: 14}

// UrgencyFor buckets a day count into an urgency level.
func UrgencyFor(days int, sla SLAThresholds) model.Urgency {
	switch {
	case days <= sla.CriticalDays:
		return model.UrgencyCritical
	case days <= sla.HighDays:
		return model.UrgencyHigh
	case days <= sla.MediumDays:
		return model.UrgencyMedium
	}
	return model.UrgencyLow
}

// FilterRFPs keeps RFPs whose id, client or title contains query (case
// insensitive) and, when stage is non-empty, that sit in that stage.
func FilterRFPs(rfps []model.RFP, query string, stage model.Stage) []model.RFP {
	q := strings.ToLower(strings.TrimSpace(query))
	var out []model.RFP
	for _, r := range rfps {
		if stage != "" && r.CurrentStage != stage {
			continue
		}
		if q != "" &&
			!strings.Contains(strings.ToLower(r.ID), q) &&
			!strings.Contains(strings.ToLower(r.ClientName), q) &&
			!strings.Contains(strings.ToLower(r.Title), q) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// PipelineSummary is the footer of the RFP list.
type PipelineSummary struct {
	Count        int             `json:"count"`
	NearDeadline int             `json:"near_deadline"`
	InReview     int             `json:"in_review"`
	TotalValue   decimal.Decimal `json:"total_value"`
}

func Summarize(rfps []model.RFP, now time.Time) PipelineSummary {
	s := PipelineSummary{
		Count:        len(rfps),
		NearDeadline: NearDeadlineCount(rfps, now),
		TotalValue:   TotalPipelineValue(rfps),
	}
	for _, r := range rfps {
		if r.CurrentStage == model.StageValidation || r.CurrentStage == model.StageHumanReview {
			s.InReview++
		}
	}
	return s
}
