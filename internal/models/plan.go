package models

// PlanLimits caps what an agency may publish. -1 means unlimited.
type PlanLimits struct {
	Photos    int  `json:"photos"`
	Locations int  `json:"locations"`
	Featured  bool `json:"featured"`
}

// Plan is an entry of the fixed subscription catalog.
type Plan struct {
	ID       string     `json:"id"`
	Name     string     `json:"name"`
	Price    int        `json:"price"`
	Currency string     `json:"currency"`
	Interval string     `json:"interval"`
	Features []string   `json:"features"`
	Limits   PlanLimits `json:"limits"`
	PriceID  string     `json:"-"`
}

const (
	PlanFree       = "free"
	PlanBasic      = "basic"
	PlanPremium    = "premium"
	PlanEnterprise = "enterprise"
)

const (
	SubscriptionActive   = "active"
	SubscriptionInactive = "inactive"
	SubscriptionCanceled = "canceled"
	SubscriptionPastDue  = "past_due"
)
