package event

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Event is a scheduled item on a trip. Votes and Payments are opaque JSON
// passed through unchanged; CostAssignments marks which members share Cost.
type Event struct {
	ID              string          `json:"id"`
	TripID          string          `json:"trip_id"`
	Creator         string          `json:"creator"`
	Title           string          `json:"title"`
	Start           string          `json:"start"`
	End             string          `json:"end"`
	Type            string          `json:"type"`
	Location        string          `json:"location"`
	Cost            decimal.Decimal `json:"cost"`
	Details         string          `json:"details"`
	Votes           json.RawMessage `json:"votes"`
	Payments        json.RawMessage `json:"payments"`
	CostAssignments map[string]bool `json:"cost_assignments"`
}

// ConflictGroup is a set of events whose time ranges overlap.
type ConflictGroup struct {
	Events    []Event `json:"events"`
	Start     string  `json:"start"`
	End       string  `json:"end"`
	LeadingID string  `json:"leading_id,omitempty"`
}

// CostShare is one member's portion of a single event's cost.
type CostShare struct {
	EventID string          `json:"event_id"`
	Title   string          `json:"title"`
	Share   decimal.Decimal `json:"share"`
	Paid    bool            `json:"paid"`
}

// MemberCost totals a member's shares across a trip.
type MemberCost struct {
	AccountID   string          `json:"account_id"`
	Total       decimal.Decimal `json:"total"`
	Paid        decimal.Decimal `json:"paid"`
	Outstanding decimal.Decimal `json:"outstanding"`
	Events      []CostShare     `json:"events"`
}
