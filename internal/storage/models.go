package storage

import "time"

// ReviewDecision is one approve or reject action on a validation item.
type ReviewDecision struct {
	ID        string    `json:"id"`
	ItemID    string    `json:"item_id"`
	RFPID     string    `json:"rfp_id"`
	Decision  string    `json:"decision"` // "approved", "rejected"
	Reason    string    `json:"reason,omitempty"`
	Reviewer  string    `json:"reviewer,omitempty"`
	DecidedAt time.Time `json:"decided_at"`
}

type Notification struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Variant   string    `json:"variant"` // "default", "destructive"
	CreatedAt time.Time `json:"created_at"`
}
