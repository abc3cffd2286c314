package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/syed-c/foster-care-sub001/internal/apperr"
	"github.com/syed-c/foster-care-sub001/internal/config"
	"github.com/syed-c/foster-care-sub001/internal/db"
	"github.com/syed-c/foster-care-sub001/internal/metrics"
	"github.com/syed-c/foster-care-sub001/internal/models"
)

// subscriptionPeriod is how long a completed checkout is assumed to last before renewal events arrive.
const subscriptionPeriod = 30 * 24 * time.Hour

// IBillingService bridges agencies to the payment processor.
type IBillingService interface {
	Plans() []models.Plan
	ProvisionCustomer(ctx context.Context, agencyID, email string) (string, error)
	StartCheckout(ctx context.Context, agencyID, planID string) (string, error)
	OpenPortal(ctx context.Context, agencyID string) (string, error)
	HandleWebhook(ctx context.Context, payload []byte, signatureHeader string) error
}

type billingService struct {
	db            *mongo.Database
	cfg           *config.Config
	agencyService IAgencyService
	gateway       IStripeGateway
	plans         []models.Plan
	now           func() time.Time
}

// NewBillingService creates a new BillingService. gateway may be nil when billing is not configured.
func NewBillingService(database *mongo.Database, cfg *config.Config, agencyService IAgencyService, gateway IStripeGateway) IBillingService {
	return &billingService{
		db:            database,
		cfg:           cfg,
		agencyService: agencyService,
		gateway:       gateway,
		plans:         PlanCatalog(cfg.StripePriceIDs),
		now:           time.Now,
	}
}

// PlanCatalog returns the fixed subscription plans with their configured price ids.
func PlanCatalog(priceIDs map[string]string) []models.Plan {
	return []models.Plan{
		{
			ID: models.PlanFree, Name: "Free", Price: 0, Currency: "gbp", Interval: "month",
			Features: []string{"Basic listing", "Contact information", "Up to 3 photos", "Standard support"},
			Limits:   models.PlanLimits{Photos: 3, Locations: 1, Featured: false},
		},
		{
			ID: models.PlanBasic, Name: "Basic", Price: 29, Currency: "gbp", Interval: "month",
			Features: []string{"Enhanced listing", "Priority placement", "Up to 10 photos", "Multiple locations", "Email support"},
			Limits:   models.PlanLimits{Photos: 10, Locations: 3, Featured: false},
			PriceID:  priceIDs[models.PlanBasic],
		},
		{
			ID: models.PlanPremium, Name: "Premium", Price: 79, Currency: "gbp", Interval: "month",
			Features: []string{"Featured listing", "Top placement", "Unlimited photos", "Unlimited locations", "Analytics dashboard", "Priority support"},
			Limits:   models.PlanLimits{Photos: -1, Locations: -1, Featured: true},
			PriceID:  priceIDs[models.PlanPremium],
		},
		{
			ID: models.PlanEnterprise, Name: "Enterprise", Price: 199, Currency: "gbp", Interval: "month",
			Features: []string{"Everything in Premium", "Custom branding", "API access", "Dedicated account manager", "Custom integrations", "24/7 priority support"},
			Limits:   models.PlanLimits{Photos: -1, Locations: -1, Featured: true},
			PriceID:  priceIDs[models.PlanEnterprise],
		},
	}
}

func (s *billingService) Plans() []models.Plan {
	return s.plans
}

func (s *billingService) plan(id string) (models.Plan, bool) {
	for _, p := range s.plans {
		if p.ID == id {
			return p, true
		}
	}
	return models.Plan{}, false
}

func (s *billingService) requireGateway() error {
	if s.gateway == nil || !s.cfg.BillingConfigured() {
		return apperr.Unavailable("Billing is not configured")
	}
	return nil
}

func (s *billingService) setSubscription(ctx context.Context, filter bson.M, set bson.M) (int64, error) {
	set["updated_at"] = s.now().UTC()
	res, err := s.db.Collection(db.AgenciesCollection).UpdateMany(ctx, filter, bson.M{"$set": set})
	if err != nil {
		return 0, err
	}
	return res.MatchedCount, nil
}

// ProvisionCustomer creates the billing customer of an agency. An existing customer is returned as is.
func (s *billingService) ProvisionCustomer(ctx context.Context, agencyID, email string) (string, error) {
	if err := s.requireGateway(); err != nil {
		return "", err
	}
	agency, err := s.agencyService.Get(ctx, agencyID)
	if err != nil {
		return "", err
	}
	if agency.Subscription.StripeCustomerID != "" {
		return agency.Subscription.StripeCustomerID, nil
	}
	if email == "" {
		email = agency.Contact.Email
	}

	customerID, err := s.gateway.CreateCustomer(ctx, email, agency.Name, map[string]string{"agencyId": agency.ID}, "customer:"+agency.ID)
	if err != nil {
		return "", apperr.Upstream("Failed to create billing customer", err)
	}

	// Only the first writer stores its id. Stripe deduplicates by idempotency key.
	matched, err := s.setSubscription(ctx,
		bson.M{"_id": agency.ID, "subscription.stripe_customer_id": bson.M{"$in": bson.A{nil, ""}}},
		bson.M{"subscription.stripe_customer_id": customerID},
	)
	if err != nil {
		return "", fmt.Errorf("failed to store customer for agency %s: %w", agency.ID, err)
	}
	if matched == 0 {
		latest, err := s.agencyService.Get(ctx, agency.ID)
		if err != nil {
			return "", err
		}
		return latest.Subscription.StripeCustomerID, nil
	}
	return customerID, nil
}

func (s *billingService) StartCheckout(ctx context.Context, agencyID, planID string) (string, error) {
	plan, ok := s.plan(planID)
	if !ok || plan.ID == models.PlanFree {
		return "", apperr.Validation("Invalid plan %q", planID)
	}
	if plan.PriceID == "" {
		return "", apperr.Validation("Plan %q is not available for purchase", planID)
	}
	if err := s.requireGateway(); err != nil {
		return "", err
	}
	agency, err := s.agencyService.Get(ctx, agencyID)
	if err != nil {
		return "", err
	}
	if agency.Subscription.StripeCustomerID == "" {
		return "", apperr.Validation("Agency has no billing customer; provision one first")
	}

	url, err := s.gateway.CreateCheckoutSession(ctx, CheckoutRequest{
		CustomerID: agency.Subscription.StripeCustomerID,
		PriceID:    plan.PriceID,
		SuccessURL: s.cfg.PublicBaseURL + "/dashboard/subscription?success=true",
		CancelURL:  s.cfg.PublicBaseURL + "/dashboard/subscription?canceled=true",
		Metadata:   map[string]string{"agencyId": agency.ID, "planId": plan.ID},
	})
	if err != nil {
		return "", apperr.Upstream("Failed to create checkout session", err)
	}
	return url, nil
}

func (s *billingService) OpenPortal(ctx context.Context, agencyID string) (string, error) {
	if err := s.requireGateway(); err != nil {
		return "", err
	}
	agency, err := s.agencyService.Get(ctx, agencyID)
	if err != nil {
		return "", err
	}
	if agency.Subscription.StripeCustomerID == "" {
		return "", apperr.NotFound("Billing customer")
	}
	url, err := s.gateway.CreatePortalSession(ctx, agency.Subscription.StripeCustomerID, s.cfg.PublicBaseURL+"/dashboard/subscription")
	if err != nil {
		return "", apperr.Upstream("Failed to create portal session", err)
	}
	return url, nil
}

type stripeEventObject struct {
	ID           string            `json:"id"`
	Customer     string            `json:"customer"`
	Subscription string            `json:"subscription"`
	Status       string            `json:"status"`
	Metadata     map[string]string `json:"metadata"`
}

// MapSubscriptionStatus converts a Stripe subscription status to the stored one.
func MapSubscriptionStatus(status string) string {
	switch status {
	case "active", "trialing":
		return models.SubscriptionActive
	case "past_due", "unpaid":
		return models.SubscriptionPastDue
	case "canceled", "incomplete_expired":
		return models.SubscriptionCanceled
	default:
		return models.SubscriptionInactive
	}
}

// HandleWebhook verifies and applies a subscription event. Unknown event types are acknowledged.
func (s *billingService) HandleWebhook(ctx context.Context, payload []byte, signatureHeader string) error {
	if s.cfg.StripeWebhookSecret == "" {
		return apperr.Unavailable("Billing webhooks are not configured")
	}
	event, err := ConstructWebhookEvent(payload, signatureHeader, s.cfg.StripeWebhookSecret)
	if errors.Is(err, ErrInvalidSignature) {
		metrics.WebhookEvents.WithLabelValues("unknown", "rejected").Inc()
		return apperr.Validation("Invalid webhook signature")
	}
	if err != nil {
		return apperr.Validation("Invalid webhook payload")
	}
	var obj stripeEventObject
	if event.Data != nil && len(event.Data.Raw) > 0 {
		if err := json.Unmarshal(event.Data.Raw, &obj); err != nil {
			return apperr.Validation("Invalid webhook payload")
		}
	}

	eventType := string(event.Type)
	outcome := "applied"
	err = s.applyEvent(ctx, eventType, obj)
	switch {
	case errors.Is(err, errEventIgnored):
		outcome, err = "ignored", nil
	case err != nil:
		outcome = "failed"
		log.Printf("ERROR: webhook %s (%s) failed: %v", event.ID, eventType, err)
	}
	metrics.WebhookEvents.WithLabelValues(eventType, outcome).Inc()
	return err
}

var errEventIgnored = errors.New("event ignored")

func (s *billingService) applyEvent(ctx context.Context, eventType string, obj stripeEventObject) error {
	var (
		filter bson.M
		set    bson.M
	)
	switch eventType {
	case "checkout.session.completed":
		agencyID := obj.Metadata["agencyId"]
		planID := obj.Metadata["planId"]
		if _, ok := s.plan(planID); !ok || agencyID == "" {
			log.Printf("WARN: checkout session %s has no usable agency/plan metadata", obj.ID)
			return errEventIgnored
		}
		expires := s.now().UTC().Add(subscriptionPeriod)
		filter = bson.M{"_id": agencyID}
		set = bson.M{
			"subscription.plan":                   planID,
			"subscription.status":                 models.SubscriptionActive,
			"subscription.stripe_subscription_id": obj.Subscription,
			"subscription.expires_at":             expires,
		}
		if obj.Customer != "" {
			set["subscription.stripe_customer_id"] = obj.Customer
		}
	case "customer.subscription.updated":
		filter = subscriptionFilter(obj)
		set = bson.M{"subscription.status": MapSubscriptionStatus(obj.Status)}
		if planID := obj.Metadata["planId"]; planID != "" {
			if _, ok := s.plan(planID); ok {
				set["subscription.plan"] = planID
			}
		}
	case "customer.subscription.deleted":
		filter = subscriptionFilter(obj)
		set = bson.M{
			"subscription.plan":   models.PlanFree,
			"subscription.status": models.SubscriptionCanceled,
		}
	case "invoice.payment_failed":
		if obj.Customer == "" {
			return errEventIgnored
		}
		filter = bson.M{"subscription.stripe_customer_id": obj.Customer}
		set = bson.M{"subscription.status": models.SubscriptionPastDue}
	default:
		return errEventIgnored
	}
	if filter == nil {
		return errEventIgnored
	}

	matched, err := s.setSubscription(ctx, filter, set)
	if err != nil {
		return fmt.Errorf("failed to apply %s: %w", eventType, err)
	}
	if matched == 0 {
		log.Printf("WARN: %s matched no agency", eventType)
	}
	return nil
}

func subscriptionFilter(obj stripeEventObject) bson.M {
	var or bson.A
	if obj.ID != "" {
		or = append(or, bson.M{"subscription.stripe_subscription_id": obj.ID})
	}
	if id := strings.TrimSpace(obj.Metadata["agencyId"]); id != "" {
		or = append(or, bson.M{"_id": id})
	}
	if len(or) == 0 {
		return nil
	}
	return bson.M{"$or": or}
}
