package models

import (
	"time"
)

// AgencyStatus is the moderation state of an agency.
type AgencyStatus string

const (
	AgencyStatusPending  AgencyStatus = "pending"
	AgencyStatusApproved AgencyStatus = "approved"
	AgencyStatusRejected AgencyStatus = "rejected"
)

// AgencyType classifies the provider.
type AgencyType string

const (
	AgencyTypePrivate        AgencyType = "Private"
	AgencyTypeCharity        AgencyType = "Charity"
	AgencyTypeLocalAuthority AgencyType = "Local Authority"
)

// Valid reports whether t is one of the known agency types.
func (t AgencyType) Valid() bool {
	switch t {
	case AgencyTypePrivate, AgencyTypeCharity, AgencyTypeLocalAuthority:
		return true
	}
	return false
}

type AgencyLocation struct {
	Address  string `bson:"address" json:"address"`
	City     string `bson:"city" json:"city"`
	Region   string `bson:"region" json:"region"`
	Postcode string `bson:"postcode" json:"postcode"`
}

type AgencyContact struct {
	Email   string `bson:"email" json:"email"`
	Phone   string `bson:"phone" json:"phone"`
	Website string `bson:"website" json:"website"`
}

type AgencyMedia struct {
	Logo       string `bson:"logo" json:"logo"`
	CoverImage string `bson:"cover_image" json:"cover_image"`
}

// Subscription mirrors the billing state of an agency.
type Subscription struct {
	Plan                 string     `bson:"plan" json:"plan"`
	Status               string     `bson:"status" json:"status"`
	StripeCustomerID     string     `bson:"stripe_customer_id,omitempty" json:"stripe_customer_id,omitempty"`
	StripeSubscriptionID string     `bson:"stripe_subscription_id,omitempty" json:"stripe_subscription_id,omitempty"`
	ExpiresAt            *time.Time `bson:"expires_at,omitempty" json:"expires_at,omitempty"`
}

// Agency represents a fostering provider listed in the directory.
type Agency struct {
	Base            `bson:",inline"`
	Name            string         `bson:"name" json:"name"`
	Slug            string         `bson:"slug" json:"slug"`
	Description     string         `bson:"description" json:"description"`
	Type            AgencyType     `bson:"type" json:"type"`
	Accreditation   string         `bson:"accreditation" json:"accreditation"`
	Location        AgencyLocation `bson:"location" json:"location"`
	Contact         AgencyContact  `bson:"contact" json:"contact"`
	Media           AgencyMedia    `bson:"media" json:"media"`
	Services        []string       `bson:"services" json:"services"`
	Status          AgencyStatus   `bson:"status" json:"status"`
	RejectionReason string         `bson:"rejection_reason,omitempty" json:"rejection_reason,omitempty"`
	Featured        bool           `bson:"featured" json:"featured"`
	Verified        bool           `bson:"verified" json:"verified"`
	Recruiting      bool           `bson:"recruiting" json:"recruiting"`
	Rating          float64        `bson:"rating" json:"rating"`
	ReviewCount     int            `bson:"review_count" json:"review_count"`
	Reviews         []Review       `bson:"reviews" json:"reviews,omitempty"`
	OwnerID         string         `bson:"owner_id,omitempty" json:"owner_id,omitempty"`
	Subscription    Subscription   `bson:"subscription" json:"subscription"`
	CreatedAt       time.Time      `bson:"created_at" json:"created_at"`
	UpdatedAt       time.Time      `bson:"updated_at" json:"updated_at"`
	Deleted         bool           `bson:"deleted" json:"-"`
	DeletedAt       *time.Time     `bson:"deleted_at,omitempty" json:"-"`
}

// AgencyInput is the writable subset of an agency. Nil pointers are left untouched on update.
type AgencyInput struct {
	Name          *string         `json:"name"`
	Description   *string         `json:"description"`
	Type          *AgencyType     `json:"type"`
	Accreditation *string         `json:"accreditation"`
	Location      *AgencyLocation `json:"location"`
	Contact       *AgencyContact  `json:"contact"`
	Services      []string        `json:"services"`
	Recruiting    *bool           `json:"recruiting"`
}

// AgencyFilter narrows agency listings.
type AgencyFilter struct {
	Search   string
	Type     string
	Featured *bool
	Status   AgencyStatus
	OwnerID  string
	Sort     string // "", "rating", "name", "newest"
}

// Pagination is the paging block returned with list results.
type Pagination struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
	Pages int   `json:"pages"`
}

// NewPagination computes the page count for total items.
func NewPagination(page, limit int, total int64) Pagination {
	pages := 0
	if limit > 0 {
		pages = int((total + int64(limit) - 1) / int64(limit))
	}
	return Pagination{Page: page, Limit: limit, Total: total, Pages: pages}
}
