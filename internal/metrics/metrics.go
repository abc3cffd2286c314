package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fostercare_http_requests_total",
			Help: "HTTP requests by route and status code",
		},
		[]string{"method", "route", "status"},
	)

	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fostercare_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	LeadsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fostercare_leads_created_total",
			Help: "Leads captured from contact forms",
		},
		[]string{"type"},
	)

	LeadNotifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fostercare_lead_notifications_total",
			Help: "Lead notification enqueue outcomes",
		},
		[]string{"outcome"},
	)

	EmailsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fostercare_emails_sent_total",
			Help: "Emails handed to the sender by template and outcome",
		},
		[]string{"template", "outcome"},
	)

	TaskDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "fostercare_task_duration_seconds",
			Help: "Background task processing time",
		},
		[]string{"task_type"},
	)

	WebhookEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fostercare_billing_webhook_events_total",
			Help: "Billing webhook events by type and outcome",
		},
		[]string{"event_type", "outcome"},
	)
)
