package model

var stageLabels = map[Stage]string{
	StageIngestion:       "Ingestion",
	StageAgentProcessing: "Processing",
	StageValidation:      "Validation",
	StageHumanReview:     "Human Review",
	StageApproved:        "Approved",
	StageSubmitted:       "Submitted",
	StageRejected:        "Rejected",
}

var stageProgress = map[Stage]int{
	StageIngestion:       15,
	StageAgentProcessing: 35,
	StageValidation:      55,
	StageHumanReview:     75,
	StageApproved:        90,
	StageSubmitted:       100,
	StageRejected:        0,
}

// Label returns the display label of the stage.
func (s Stage) Label() string {
	if l, ok := stageLabels[s]; ok {
		return l
	}
	return string(s)
}

// Progress returns the pipeline completion percentage shown for the stage.
func (s Stage) Progress() int {
	return stageProgress[s]
}

// Valid reports whether s is a known stage.
func (s Stage) Valid() bool {
	_, ok := stageLabels[s]
	return ok
}

func (u Urgency) Label() string {
	switch u {
	case UrgencyLow:
		return "Low"
	case UrgencyMedium:
		return "Medium"
	case UrgencyHigh:
		return "High"
	case UrgencyCritical:
		return "Critical"
	}
	return string(u)
}

func (s ValidationStatus) Label() string {
	switch s {
	case ValidationPending:
		return "Pending"
	case ValidationApproved:
		return "Approved"
	case ValidationRejected:
		return "Rejected"
	}
	return string(s)
}

func (s DocumentStatus) Label() string {
	switch s {
	case DocDraft:
		return "Draft"
	case DocApproved:
		return "Approved"
	case DocFinal:
		return "Final"
	}
	return string(s)
}

func (c ClientType) Valid() bool {
	switch c {
	case ClientPSU, ClientLSTK, ClientPrivate, ClientGovernment:
		return true
	}
	return false
}

func (u Urgency) Valid() bool {
	switch u {
	case UrgencyLow, UrgencyMedium, UrgencyHigh, UrgencyCritical:
		return true
	}
	return false
}

func (a AgentType) Valid() bool {
	switch a {
	case AgentOrchestrator, AgentSales, AgentTechnical, AgentPricing:
		return true
	}
	return false
}

func (t ItemType) Valid() bool {
	switch t {
	case ItemTechnical, ItemPricing, ItemCompliance:
		return true
	}
	return false
}

func (s ValidationStatus) Valid() bool {
	switch s {
	case ValidationPending, ValidationApproved, ValidationRejected:
		return true
	}
	return false
}

func (t DocumentType) Valid() bool {
	switch t {
	case DocCompliance, DocBOQ, DocDeviation, DocAssumptions:
		return true
	}
	return false
}

func (s DocumentStatus) Valid() bool {
	switch s {
	case DocDraft, DocApproved, DocFinal:
		return true
	}
	return false
}

func (f DocumentFormat) Valid() bool {
	switch f {
	case FormatExcel, FormatPDF, FormatJSON:
		return true
	}
	return false
}

func (t AlertType) Valid() bool {
	switch t {
	case AlertWarning, AlertError, AlertInfo:
		return true
	}
	return false
}

// Band is a coarse quality bucket used to colour confidence values.
type Band string

const (
	BandSuccess Band = "success"
	BandDefault Band = "default"
	BandWarning Band = "warning"
	BandDanger  Band = "danger"
)

// AgentConfidenceBand buckets an agent's overall confidence score.
func AgentConfidenceBand(score int) Band {
	switch {
	case score >= 90:
		return BandSuccess
	case score >= 70:
		return BandDefault
	case score >= 50:
		return BandWarning
	}
	return BandDanger
}

// ItemConfidenceBand buckets the confidence an agent attached to a flagged item.
func ItemConfidenceBand(score int) Band {
	switch {
	case score >= 80:
		return BandSuccess
	case score >= 60:
		return BandWarning
	}
	return BandDanger
}
