// Package model defines the RFP pipeline records shared by the fixture
// store, the review workflow and the API.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type Stage string

const (
	StageIngestion       Stage = "ingestion"
	StageAgentProcessing Stage = "agent_processing"
	StageValidation      Stage = "validation"
	StageHumanReview     Stage = "human_review"
	StageApproved        Stage = "approved"
	StageSubmitted       Stage = "submitted"
	StageRejected        Stage = "rejected"
)

// Stages lists every pipeline stage in display order.
var Stages = []Stage{
	StageIngestion,
	StageAgentProcessing,
	StageValidation,
	StageHumanReview,
	StageApproved,
	StageSubmitted,
	StageRejected,
}

type ClientType string

const (
	ClientPSU        ClientType = "PSU"
	ClientLSTK       ClientType = "LSTK"
	ClientPrivate    ClientType = "Private"
	ClientGovernment ClientType = "Government"
)

type Urgency string

const (
	UrgencyLow      Urgency = "low"
	UrgencyMedium   Urgency = "medium"
	UrgencyHigh     Urgency = "high"
	UrgencyCritical Urgency = "critical"
)

// MarginRange is a [low, high] margin percentage pair.
type MarginRange [2]float64

func (m MarginRange) Low() float64  { return m[0] }
func (m MarginRange) High() float64 { return m[1] }

type RFP struct {
	ID             string          `json:"id"`
	ClientName     string          `json:"client_name"`
	ClientType     ClientType      `json:"client_type"`
	Title          string          `json:"title"`
	Deadline       time.Time       `json:"deadline"`
	CurrentStage   Stage           `json:"current_stage"`
	AssignedOwner  string          `json:"assigned_owner"`
	EstimatedValue decimal.Decimal `json:"estimated_value"`
	MarginRange    MarginRange     `json:"margin_range"`
	BOQLineCount   int             `json:"boq_line_count"`
	CreatedAt      time.Time       `json:"created_at"`
	LastUpdated    time.Time       `json:"last_updated"`
	Urgency        Urgency         `json:"urgency"`
}

type AgentType string

const (
	AgentOrchestrator AgentType = "orchestrator"
	AgentSales        AgentType = "sales"
	AgentTechnical    AgentType = "technical"
	AgentPricing      AgentType = "pricing"
)

type AgentStatus struct {
	Type              AgentType `json:"type"`
	Name              string    `json:"name"`
	CurrentTask       string    `json:"current_task"`
	CompletionPercent int       `json:"completion_percent"`
	LastActionTime    time.Time `json:"last_action_time"`
	ConfidenceScore   int       `json:"confidence_score"`
	Warnings          []string  `json:"warnings"`
	IsActive          bool      `json:"is_active"`
}

type ItemType string

const (
	ItemTechnical  ItemType = "technical"
	ItemPricing    ItemType = "pricing"
	ItemCompliance ItemType = "compliance"
)

type ValidationStatus string

const (
	ValidationPending  ValidationStatus = "pending"
	ValidationApproved ValidationStatus = "approved"
	ValidationRejected ValidationStatus = "rejected"
)

// CanTransition reports whether a validation item may move from s to next.
// Only pending items move, and only to a terminal state.
func (s ValidationStatus) CanTransition(next ValidationStatus) bool {
	return s == ValidationPending && (next == ValidationApproved || next == ValidationRejected)
}

type ValidationItem struct {
	ID              string           `json:"id"`
	RFPID           string           `json:"rfp_id"`
	ItemType        ItemType         `json:"item_type"`
	Description     string           `json:"description"`
	ReasonFlagged   string           `json:"reason_flagged"`
	AgentConfidence int              `json:"agent_confidence"`
	Status          ValidationStatus `json:"status"`
	CreatedAt       time.Time        `json:"created_at"`
}

// WithStatus returns a copy of the item carrying status s.
func (v ValidationItem) WithStatus(s ValidationStatus) ValidationItem {
	v.Status = s
	return v
}

type SKUMatch struct {
	RFPLineItem     string `json:"rfp_line_item"`
	ProposedSKU     string `json:"proposed_sku"`
	MatchPercentage int    `json:"match_percentage"`
	Assumptions     string `json:"assumptions"`
}

type PricingBreakdown struct {
	LineItem    string          `json:"line_item"`
	BaseCost    decimal.Decimal `json:"base_cost"`
	RMSurcharge decimal.Decimal `json:"rm_surcharge"`
	Margin      decimal.Decimal `json:"margin"`
	FinalPrice  decimal.Decimal `json:"final_price"`
}

// Consistent reports whether FinalPrice equals the sum of its components.
func (p PricingBreakdown) Consistent() bool {
	return p.BaseCost.Add(p.RMSurcharge).Add(p.Margin).Equal(p.FinalPrice)
}

type DocumentType string

const (
	DocCompliance  DocumentType = "compliance"
	DocBOQ         DocumentType = "boq"
	DocDeviation   DocumentType = "deviation"
	DocAssumptions DocumentType = "assumptions"
)

type DocumentStatus string

const (
	DocDraft    DocumentStatus = "draft"
	DocApproved DocumentStatus = "approved"
	DocFinal    DocumentStatus = "final"
)

type DocumentFormat string

const (
	FormatExcel DocumentFormat = "excel"
	FormatPDF   DocumentFormat = "pdf"
	FormatJSON  DocumentFormat = "json"
)

type Document struct {
	ID        string         `json:"id"`
	RFPID     string         `json:"rfp_id"`
	Name      string         `json:"name"`
	Type      DocumentType   `json:"type"`
	Status    DocumentStatus `json:"status"`
	Version   int            `json:"version"`
	CreatedAt time.Time      `json:"created_at"`
	Format    DocumentFormat `json:"format"`
}

// FileName is the name a download of the document is delivered under.
func (d Document) FileName() string {
	return d.Name + "." + string(d.Format)
}

type AlertType string

const (
	AlertWarning AlertType = "warning"
	AlertError   AlertType = "error"
	AlertInfo    AlertType = "info"
)

type Alert struct {
	ID          string    `json:"id"`
	Type        AlertType `json:"type"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	RFPID       string    `json:"rfp_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type ActivityLog struct {
	ID        string    `json:"id"`
	RFPID     string    `json:"rfp_id"`
	Action    string    `json:"action"`
	Actor     string    `json:"actor"`
	Timestamp time.Time `json:"timestamp"`
	Details   string    `json:"details,omitempty"`
}

// Benchmarks are reported pipeline figures that are not derived from the
// records themselves.
type Benchmarks struct {
	AvgResponseDays float64 `json:"avg_response_days"`
	WinRate         float64 `json:"win_rate"`
}
