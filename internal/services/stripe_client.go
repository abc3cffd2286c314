package services

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"
)

// WebhookTolerance is how old a signed webhook timestamp may be.
const WebhookTolerance = webhook.DefaultTolerance

// ErrInvalidSignature is returned when a webhook signature header does not verify.
var ErrInvalidSignature = errors.New("invalid_signature")

// CheckoutRequest describes a subscription checkout session.
type CheckoutRequest struct {
	CustomerID string
	PriceID    string
	SuccessURL string
	CancelURL  string
	Metadata   map[string]string
}

// IStripeGateway is the subset of the Stripe API used for billing.
type IStripeGateway interface {
	CreateCustomer(ctx context.Context, email, name string, metadata map[string]string, idempotencyKey string) (string, error)
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (string, error)
	CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error)
}

type stripeClient struct {
	api *client.API
}

// NewStripeClient creates a Stripe API client. baseURL overrides the API host and is
// empty in production.
func NewStripeClient(apiKey, baseURL string) IStripeGateway {
	backendConfig := &stripe.BackendConfig{
		HTTPClient:        &http.Client{Timeout: 12 * time.Second},
		MaxNetworkRetries: stripe.Int64(0),
		LeveledLogger:     &stripe.LeveledLogger{Level: stripe.LevelError},
	}
	if baseURL != "" {
		backendConfig.URL = stripe.String(baseURL)
	}
	backends := &stripe.Backends{
		API:     stripe.GetBackendWithConfig(stripe.APIBackend, backendConfig),
		Connect: stripe.GetBackendWithConfig(stripe.ConnectBackend, backendConfig),
		Uploads: stripe.GetBackendWithConfig(stripe.UploadsBackend, backendConfig),
	}
	return &stripeClient{api: client.New(strings.TrimSpace(apiKey), backends)}
}

func (c *stripeClient) CreateCustomer(ctx context.Context, email, name string, metadata map[string]string, idempotencyKey string) (string, error) {
	params := &stripe.CustomerParams{
		Email: stripe.String(email),
		Name:  stripe.String(name),
	}
	params.Context = ctx
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}
	if idempotencyKey != "" {
		params.SetIdempotencyKey(idempotencyKey)
	}
	cus, err := c.api.Customers.New(params)
	if err != nil {
		return "", stripeError(err)
	}
	return cus.ID, nil
}

func (c *stripeClient) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (string, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:     stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		Customer: stripe.String(req.CustomerID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{Price: stripe.String(req.PriceID), Quantity: stripe.Int64(1)},
		},
		SuccessURL:       stripe.String(req.SuccessURL),
		CancelURL:        stripe.String(req.CancelURL),
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{Metadata: map[string]string{}},
	}
	params.Context = ctx
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
		params.SubscriptionData.Metadata[k] = v
	}
	sess, err := c.api.CheckoutSessions.New(params)
	if err != nil {
		return "", stripeError(err)
	}
	if sess.URL == "" {
		return "", errors.New("stripe_response_invalid")
	}
	return sess.URL, nil
}

func (c *stripeClient) CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error) {
	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(customerID),
		ReturnURL: stripe.String(returnURL),
	}
	params.Context = ctx
	sess, err := c.api.BillingPortalSessions.New(params)
	if err != nil {
		return "", stripeError(err)
	}
	if sess.URL == "" {
		return "", errors.New("stripe_response_invalid")
	}
	return sess.URL, nil
}

// stripeError reduces an API error to its human readable message.
func stripeError(err error) error {
	var se *stripe.Error
	if errors.As(err, &se) && strings.TrimSpace(se.Msg) != "" {
		return errors.New(se.Msg)
	}
	return err
}

// ConstructWebhookEvent verifies a Stripe-Signature header against the raw payload and
// decodes the event. Signature failures are reported as ErrInvalidSignature.
func ConstructWebhookEvent(payload []byte, header, secret string) (stripe.Event, error) {
	event, err := webhook.ConstructEventWithOptions(payload, header, secret, webhook.ConstructEventOptions{
		Tolerance:                WebhookTolerance,
		IgnoreAPIVersionMismatch: true,
	})
	if err == nil {
		return event, nil
	}
	for _, sigErr := range []error{webhook.ErrNotSigned, webhook.ErrInvalidHeader, webhook.ErrNoValidSignature, webhook.ErrTooOld} {
		if errors.Is(err, sigErr) {
			return stripe.Event{}, ErrInvalidSignature
		}
	}
	return stripe.Event{}, err
}
