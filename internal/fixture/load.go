package fixture

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/kalambet/rfpdesk/internal/model"
)

//go:embed seed.yaml
var defaultSeed []byte

// Dataset is the full set of pipeline records held by a Store.
type Dataset struct {
	RFPs            []model.RFP
	Agents          []model.AgentStatus
	ValidationItems []model.ValidationItem
	SKUMatches      []model.SKUMatch
	Pricing         []model.PricingBreakdown
	Documents       []model.Document
	Alerts          []model.Alert
	Activity        []model.ActivityLog
	Benchmarks      model.Benchmarks
}

// amount decodes a YAML scalar into an exact decimal.
type amount struct {
	decimal.Decimal
}

func (a *amount) UnmarshalYAML(value *yaml.Node) error {
	d, err := decimal.NewFromString(value.Value)
	if err != nil {
		return fmt.Errorf("line %d: invalid amount %q: %w", value.Line, value.Value, err)
	}
	a.Decimal = d
	return nil
}

// maxDayOffset bounds relative dates in a seed to roughly a century either
// side of the load time.
const maxDayOffset = 36500

// dayOffset is a relative date in days, decoded with a range check so the
// resolved time.Duration cannot overflow.
type dayOffset float64

func (d *dayOffset) UnmarshalYAML(value *yaml.Node) error {
	var f float64
	if err := value.Decode(&f); err != nil {
		return err
	}
	if math.IsNaN(f) || math.Abs(f) > maxDayOffset {
		return fmt.Errorf("line %d: day offset %s out of range (max %d)", value.Line, value.Value, maxDayOffset)
	}
	*d = dayOffset(f)
	return nil
}

type seedFile struct {
	Benchmarks struct {
		AvgResponseDays float64 `yaml:"avg_response_days"`
		WinRate         float64 `yaml:"win_rate"`
	} `yaml:"benchmarks"`
	RFPs []struct {
		ID             string     `yaml:"id"`
		ClientName     string     `yaml:"client_name"`
		ClientType     string     `yaml:"client_type"`
		Title          string     `yaml:"title"`
		DeadlineInDays dayOffset  `yaml:"deadline_in_days"`
		CurrentStage   string     `yaml:"current_stage"`
		AssignedOwner  string     `yaml:"assigned_owner"`
		EstimatedValue amount     `yaml:"estimated_value"`
		MarginRange    [2]float64 `yaml:"margin_range"`
		BOQLineCount   int        `yaml:"boq_line_count"`
		CreatedDaysAgo dayOffset  `yaml:"created_days_ago"`
		UpdatedDaysAgo dayOffset  `yaml:"updated_days_ago"`
		Urgency        string     `yaml:"urgency"`
	} `yaml:"rfps"`
	Agents []struct {
		Type              string    `yaml:"type"`
		Name              string    `yaml:"name"`
		CurrentTask       string    `yaml:"current_task"`
		CompletionPercent int       `yaml:"completion_percent"`
		LastActionDaysAgo dayOffset `yaml:"last_action_days_ago"`
		ConfidenceScore   int       `yaml:"confidence_score"`
		Warnings          []string  `yaml:"warnings"`
		IsActive          bool      `yaml:"is_active"`
	} `yaml:"agents"`
	ValidationItems []struct {
		ID              string    `yaml:"id"`
		RFPID           string    `yaml:"rfp_id"`
		ItemType        string    `yaml:"item_type"`
		Description     string    `yaml:"description"`
		ReasonFlagged   string    `yaml:"reason_flagged"`
		AgentConfidence int       `yaml:"agent_confidence"`
		Status          string    `yaml:"status"`
		CreatedDaysAgo  dayOffset `yaml:"created_days_ago"`
	} `yaml:"validation_items"`
	SKUMatches []struct {
		RFPLineItem     string `yaml:"rfp_line_item"`
		ProposedSKU     string `yaml:"proposed_sku"`
		MatchPercentage int    `yaml:"match_percentage"`
		Assumptions     string `yaml:"assumptions"`
	} `yaml:"sku_matches"`
	Pricing []struct {
		LineItem    string `yaml:"line_item"`
		BaseCost    amount `yaml:"base_cost"`
		RMSurcharge amount `yaml:"rm_surcharge"`
		Margin      amount `yaml:"margin"`
		FinalPrice  amount `yaml:"final_price"`
	} `yaml:"pricing"`
	Documents []struct {
		ID             string    `yaml:"id"`
		RFPID          string    `yaml:"rfp_id"`
		Name           string    `yaml:"name"`
		Type           string    `yaml:"type"`
		Status         string    `yaml:"status"`
		Version        int       `yaml:"version"`
		CreatedDaysAgo dayOffset `yaml:"created_days_ago"`
		Format         string    `yaml:"format"`
	} `yaml:"documents"`
	Alerts []struct {
		ID             string    `yaml:"id"`
		Type           string    `yaml:"type"`
		Title          string    `yaml:"title"`
		Description    string    `yaml:"description"`
		RFPID          string    `yaml:"rfp_id"`
		CreatedDaysAgo dayOffset `yaml:"created_days_ago"`
	} `yaml:"alerts"`
	Activity []struct {
		ID      string    `yaml:"id"`
		RFPID   string    `yaml:"rfp_id"`
		Action  string    `yaml:"action"`
		Actor   string    `yaml:"actor"`
		DaysAgo dayOffset `yaml:"days_ago"`
		Details string    `yaml:"details"`
	} `yaml:"activity"`
}

// Default returns the built-in pipeline dataset with dates resolved against now.
func Default(now time.Time) (Dataset, error) {
	return Load(bytes.NewReader(defaultSeed), now)
}

// Load parses a YAML seed and resolves its relative dates against now.
// The returned dataset has passed Validate.
func Load(r io.Reader, now time.Time) (Dataset, error) {
	var seed seedFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&seed); err != nil && !errors.Is(err, io.EOF) {
		return Dataset{}, fmt.Errorf("decoding seed: %w", err)
	}

	at := func(days dayOffset) time.Time {
		return now.Add(time.Duration(float64(days) * float64(24*time.Hour)))
	}

	var ds Dataset
	ds.Benchmarks = model.Benchmarks{
		AvgResponseDays: seed.Benchmarks.AvgResponseDays,
		WinRate:         seed.Benchmarks.WinRate,
	}
	for _, r := range seed.RFPs {
		ds.RFPs = append(ds.RFPs, model.RFP{
			ID:             r.ID,
			ClientName:     r.ClientName,
			ClientType:     model.ClientType(r.ClientType),
			Title:          r.Title,
			Deadline:       at(r.DeadlineInDays),
			CurrentStage:   model.Stage(r.CurrentStage),
			AssignedOwner:  r.AssignedOwner,
			EstimatedValue: r.EstimatedValue.Decimal,
			MarginRange:    model.MarginRange(r.MarginRange),
			BOQLineCount:   r.BOQLineCount,
			CreatedAt:      at(-r.CreatedDaysAgo),
			LastUpdated:    at(-r.UpdatedDaysAgo),
			Urgency:        model.Urgency(r.Urgency),
		})
	}
	for _, a := range seed.Agents {
		warnings := a.Warnings
		if warnings == nil {
			warnings = []string{}
		}
		ds.Agents = append(ds.Agents, model.AgentStatus{
			Type:              model.AgentType(a.Type),
			Name:              a.Name,
			CurrentTask:       a.CurrentTask,
			CompletionPercent: a.CompletionPercent,
			LastActionTime:    at(-a.LastActionDaysAgo),
			ConfidenceScore:   a.ConfidenceScore,
			Warnings:          warnings,
			IsActive:          a.IsActive,
		})
	}
	for _, v := range seed.ValidationItems {
		ds.ValidationItems = append(ds.ValidationItems, model.ValidationItem{
			ID:              v.ID,
			RFPID:           v.RFPID,
			ItemType:        model.ItemType(v.ItemType),
			Description:     v.Description,
			ReasonFlagged:   v.ReasonFlagged,
			AgentConfidence: v.AgentConfidence,
			Status:          model.ValidationStatus(v.Status),
			CreatedAt:       at(-v.CreatedDaysAgo),
		})
	}
	for _, m := range seed.SKUMatches {
		ds.SKUMatches = append(ds.SKUMatches, model.SKUMatch(m))
	}
	for _, p := range seed.Pricing {
		ds.Pricing = append(ds.Pricing, model.PricingBreakdown{
			LineItem:    p.LineItem,
			BaseCost:    p.BaseCost.Decimal,
			RMSurcharge: p.RMSurcharge.Decimal,
			Margin:      p.Margin.Decimal,
			FinalPrice:  p.FinalPrice.Decimal,
		})
	}
	for _, d := range seed.Documents {
		ds.Documents = append(ds.Documents, model.Document{
			ID:        d.ID,
			RFPID:     d.RFPID,
			Name:      d.Name,
			Type:      model.DocumentType(d.Type),
			Status:    model.DocumentStatus(d.Status),
			Version:   d.Version,
			CreatedAt: at(-d.CreatedDaysAgo),
			Format:    model.DocumentFormat(d.Format),
		})
	}
	for _, a := range seed.Alerts {
		ds.Alerts = append(ds.Alerts, model.Alert{
			ID:          a.ID,
			Type:        model.AlertType(a.Type),
			Title:       a.Title,
			Description: a.Description,
			RFPID:       a.RFPID,
			CreatedAt:   at(-a.CreatedDaysAgo),
		})
	}
	for _, a := range seed.Activity {
		ds.Activity = append(ds.Activity, model.ActivityLog{
			ID:        a.ID,
			RFPID:     a.RFPID,
			Action:    a.Action,
			Actor:     a.Actor,
			Timestamp: at(-a.DaysAgo),
			Details:   a.Details,
		})
	}

	if err := ds.Validate(); err != nil {
		return Dataset{}, err
	}
	return ds, nil
}

// Validate checks the record invariants of the dataset.
func (ds Dataset) Validate() error {
	var errs []error
	rfps := make(map[string]bool, len(ds.RFPs))

	for _, r := range ds.RFPs {
		if r.ID == "" {
			errs = append(errs, errors.New("rfp with empty id"))
			continue
		}
		if rfps[r.ID] {
			errs = append(errs, fmt.Errorf("rfp %s: duplicate id", r.ID))
		}
		rfps[r.ID] = true
		if !r.CurrentStage.Valid() {
			errs = append(errs, fmt.Errorf("rfp %s: unknown stage %q", r.ID, r.CurrentStage))
		}
		if !r.ClientType.Valid() {
			errs = append(errs, fmt.Errorf("rfp %s: unknown client type %q", r.ID, r.ClientType))
		}
		if !r.Urgency.Valid() {
			errs = append(errs, fmt.Errorf("rfp %s: unknown urgency %q", r.ID, r.Urgency))
		}
		if r.MarginRange.Low() > r.MarginRange.High() {
			errs = append(errs, fmt.Errorf("rfp %s: margin range %v is inverted", r.ID, r.MarginRange))
		}
		if r.BOQLineCount < 0 {
			errs = append(errs, fmt.Errorf("rfp %s: negative boq line count", r.ID))
		}
		if r.LastUpdated.Before(r.CreatedAt) {
			errs = append(errs, fmt.Errorf("rfp %s: last updated before created", r.ID))
		}
	}

	for _, a := range ds.Agents {
		if !a.Type.Valid() {
			errs = append(errs, fmt.Errorf("agent %q: unknown type", a.Type))
		}
		if !percent(a.CompletionPercent) || !percent(a.ConfidenceScore) {
			errs = append(errs, fmt.Errorf("agent %s: percentage out of range", a.Type))
		}
	}

	items := make(map[string]bool, len(ds.ValidationItems))
	for _, v := range ds.ValidationItems {
		if items[v.ID] {
			errs = append(errs, fmt.Errorf("validation item %s: duplicate id", v.ID))
		}
		items[v.ID] = true
		if !rfps[v.RFPID] {
			errs = append(errs, fmt.Errorf("validation item %s: unknown rfp %q", v.ID, v.RFPID))
		}
		if !v.Status.Valid() {
			errs = append(errs, fmt.Errorf("validation item %s: unknown status %q", v.ID, v.Status))
		}
		if !v.ItemType.Valid() {
			errs = append(errs, fmt.Errorf("validation item %s: unknown item type %q", v.ID, v.ItemType))
		}
		if !percent(v.AgentConfidence) {
			errs = append(errs, fmt.Errorf("validation item %s: confidence out of range", v.ID))
		}
	}

	for _, m := range ds.SKUMatches {
		if !percent(m.MatchPercentage) {
			errs = append(errs, fmt.Errorf("sku match %s: percentage out of range", m.ProposedSKU))
		}
	}

	for _, p := range ds.Pricing {
		if !p.Consistent() {
			errs = append(errs, fmt.Errorf("pricing %q: final price %s does not equal base + surcharge + margin", p.LineItem, p.FinalPrice))
		}
	}

	for _, d := range ds.Documents {
		if d.Version < 1 {
			errs = append(errs, fmt.Errorf("document %s: version must be positive", d.ID))
		}
		if !d.Type.Valid() {
			errs = append(errs, fmt.Errorf("document %s: unknown type %q", d.ID, d.Type))
		}
		if !d.Status.Valid() {
			errs = append(errs, fmt.Errorf("document %s: unknown status %q", d.ID, d.Status))
		}
		if !d.Format.Valid() {
			errs = append(errs, fmt.Errorf("document %s: unknown format %q", d.ID, d.Format))
		}
	}

	for _, a := range ds.Alerts {
		if !a.Type.Valid() {
			errs = append(errs, fmt.Errorf("alert %s: unknown type %q", a.ID, a.Type))
		}
	}

	return errors.Join(errs...)
}

func percent(v int) bool {
	return v >= 0 && v <= 100
}
