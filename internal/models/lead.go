package models

import "time"

type LeadStatus string

const (
	LeadStatusNew     LeadStatus = "new"
	LeadStatusReplied LeadStatus = "replied"
	LeadStatusClosed  LeadStatus = "closed"
)

// CanTransitionTo reports whether a lead may move from s to next.
// Leads only move forward: new -> replied -> closed, or new -> closed.
func (s LeadStatus) CanTransitionTo(next LeadStatus) bool {
	switch s {
	case LeadStatusNew:
		return next == LeadStatusReplied || next == LeadStatusClosed
	case LeadStatusReplied:
		return next == LeadStatusClosed
	}
	return false
}

type LeadType string

const (
	LeadTypeAgency  LeadType = "agency"
	LeadTypeGeneral LeadType = "general"
)

// Lead is an enquiry from a prospective foster carer.
type Lead struct {
	Base       `bson:",inline"`
	AgencyID   string     `bson:"agency_id,omitempty" json:"agency_id,omitempty"`
	AgencyName string     `bson:"agency_name,omitempty" json:"agency_name,omitempty"`
	Type       LeadType   `bson:"type" json:"type"`
	Name       string     `bson:"name" json:"name"`
	Email      string     `bson:"email" json:"email"`
	Phone      string     `bson:"phone,omitempty" json:"phone,omitempty"`
	Message    string     `bson:"message" json:"message"`
	Status     LeadStatus `bson:"status" json:"status"`
	Notes      string     `bson:"notes,omitempty" json:"notes,omitempty"`
	CreatedAt  time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt  time.Time  `bson:"updated_at" json:"updated_at"`
}

// LeadInput is the public contact form payload.
type LeadInput struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Message string `json:"message"`
}

// LeadUpdate is the admin free-form edit. Status is not part of it.
type LeadUpdate struct {
	Name    *string `json:"name"`
	Email   *string `json:"email"`
	Phone   *string `json:"phone"`
	Message *string `json:"message"`
	Notes   *string `json:"notes"`
}

type LeadFilter struct {
	Status   LeadStatus
	Search   string
	AgencyID string
}

// NotificationResult reports the outcome of the fire-and-forget email enqueue.
type NotificationResult struct {
	Queued bool   `json:"queued"`
	Error  string `json:"error,omitempty"`
}
