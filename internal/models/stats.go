package models

// AdminStats is the dashboard summary for administrators.
type AdminStats struct {
	TotalAgencies    int64 `json:"totalAgencies"`
	PendingAgencies  int64 `json:"pendingAgencies"`
	FeaturedAgencies int64 `json:"featuredAgencies"`
	TotalUsers       int64 `json:"totalUsers"`
	TotalLeads       int64 `json:"totalLeads"`
	NewLeads         int64 `json:"newLeads"`
	TotalReviews     int64 `json:"totalReviews"`
}
