package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v76/webhook"

	"github.com/syed-c/foster-care-sub001/internal/apperr"
	"github.com/syed-c/foster-care-sub001/internal/config"
	"github.com/syed-c/foster-care-sub001/internal/models"
)

const testWebhookSecret = "whsec_test"

func signedHeader(payload []byte, ts time.Time, secret string) string {
	return webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    secret,
		Timestamp: ts,
	}).Header
}

func TestConstructWebhookEvent(t *testing.T) {
	payload := []byte(`{"id":"evt_1","type":"checkout.session.completed","data":{"object":{"id":"cs_1"}}}`)
	now := time.Now()

	event, err := ConstructWebhookEvent(payload, signedHeader(payload, now, testWebhookSecret), testWebhookSecret)
	require.NoError(t, err)
	assert.Equal(t, "evt_1", event.ID)
	assert.Equal(t, "checkout.session.completed", string(event.Type))
	assert.JSONEq(t, `{"id":"cs_1"}`, string(event.Data.Raw))

	_, err = ConstructWebhookEvent(payload, signedHeader(payload, now.Add(-time.Minute), testWebhookSecret), testWebhookSecret)
	assert.NoError(t, err)

	stale := signedHeader(payload, now.Add(-10*time.Minute), testWebhookSecret)
	_, err = ConstructWebhookEvent(payload, stale, testWebhookSecret)
	assert.ErrorIs(t, err, ErrInvalidSignature)

	tampered := signedHeader(payload, now, testWebhookSecret)
	_, err = ConstructWebhookEvent([]byte(`{"id":"evt_2"}`), tampered, testWebhookSecret)
	assert.ErrorIs(t, err, ErrInvalidSignature)

	_, err = ConstructWebhookEvent(payload, signedHeader(payload, now, "other"), testWebhookSecret)
	assert.ErrorIs(t, err, ErrInvalidSignature)

	_, err = ConstructWebhookEvent(payload, "garbage", testWebhookSecret)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestConstructWebhookEvent_BadJSONIsNotASignatureError(t *testing.T) {
	payload := []byte(`not json`)

	_, err := ConstructWebhookEvent(payload, signedHeader(payload, time.Now(), testWebhookSecret), testWebhookSecret)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidSignature)
}

func TestMapSubscriptionStatus(t *testing.T) {
	cases := map[string]string{
		"active":             models.SubscriptionActive,
		"trialing":           models.SubscriptionActive,
		"past_due":           models.SubscriptionPastDue,
		"unpaid":             models.SubscriptionPastDue,
		"canceled":           models.SubscriptionCanceled,
		"incomplete_expired": models.SubscriptionCanceled,
		"incomplete":         models.SubscriptionInactive,
		"":                   models.SubscriptionInactive,
	}
	for in, want := range cases {
		assert.Equal(t, want, MapSubscriptionStatus(in), in)
	}
}

func TestPlanCatalog(t *testing.T) {
	plans := PlanCatalog(map[string]string{models.PlanPremium: "price_premium"})

	require.Len(t, plans, 4)
	assert.Equal(t, models.PlanFree, plans[0].ID)
	assert.Equal(t, 0, plans[0].Price)
	assert.Empty(t, plans[0].PriceID)
	assert.Equal(t, "price_premium", plans[2].PriceID)
	assert.True(t, plans[2].Limits.Featured)
	assert.Equal(t, -1, plans[3].Limits.Photos)

	raw, err := json.Marshal(plans[2])
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "price_premium")
}

func TestStripeClient_CreateCustomer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/customers", r.URL.Path)
		assert.Equal(t, "Bearer sk_test", r.Header.Get("Authorization"))
		assert.Equal(t, "customer:a1", r.Header.Get("Idempotency-Key"))
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "owner@agency.org", r.PostForm.Get("email"))
		assert.Equal(t, "Bright Futures", r.PostForm.Get("name"))
		assert.Equal(t, "a1", r.PostForm.Get("metadata[agencyId]"))
		w.Write([]byte(`{"id":"cus_123","object":"customer"}`))
	}))
	defer srv.Close()

	client := NewStripeClient(" sk_test ", srv.URL+"/")
	id, err := client.CreateCustomer(context.Background(), "owner@agency.org", "Bright Futures", map[string]string{"agencyId": "a1"}, "customer:a1")

	require.NoError(t, err)
	assert.Equal(t, "cus_123", id)
}

func TestStripeClient_CheckoutAndPortal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		switch r.URL.Path {
		case "/v1/checkout/sessions":
			assert.Equal(t, "subscription", r.PostForm.Get("mode"))
			assert.Equal(t, "cus_1", r.PostForm.Get("customer"))
			assert.Equal(t, "price_basic", r.PostForm.Get("line_items[0][price]"))
			assert.Equal(t, "1", r.PostForm.Get("line_items[0][quantity]"))
			assert.Equal(t, "basic", r.PostForm.Get("subscription_data[metadata][planId]"))
			w.Write([]byte(`{"id":"cs_1","url":"https://checkout.example/cs_1"}`))
		case "/v1/billing_portal/sessions":
			assert.Equal(t, "https://site.example/dashboard", r.PostForm.Get("return_url"))
			w.Write([]byte(`{"id":"bps_1","url":"https://portal.example/bps_1"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	client := NewStripeClient("sk_test", srv.URL)
	url, err := client.CreateCheckoutSession(context.Background(), CheckoutRequest{
		CustomerID: "cus_1",
		PriceID:    "price_basic",
		SuccessURL: "https://site.example/ok",
		CancelURL:  "https://site.example/cancel",
		Metadata:   map[string]string{"planId": "basic"},
	})
	require.NoError(t, err)
	assert.Equal(t, "https://checkout.example/cs_1", url)

	url, err = client.CreatePortalSession(context.Background(), "cus_1", "https://site.example/dashboard")
	require.NoError(t, err)
	assert.Equal(t, "https://portal.example/bps_1", url)
}

func TestStripeClient_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/customers":
			w.WriteHeader(http.StatusPaymentRequired)
			w.Write([]byte(`{"error":{"type":"card_error","message":"Your card was declined."}}`))
		case "/v1/billing_portal/sessions":
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":{"type":"invalid_request_error","message":"No such customer: 'cus_1'"}}`))
		default:
			w.Write([]byte(`{}`))
		}
	}))
	defer srv.Close()
	client := NewStripeClient("sk_test", srv.URL)

	_, err := client.CreateCustomer(context.Background(), "a@b.c", "A", nil, "")
	require.Error(t, err)
	assert.Equal(t, "Your card was declined.", err.Error())

	_, err = client.CreatePortalSession(context.Background(), "cus_1", "https://x")
	require.Error(t, err)
	assert.Equal(t, "No such customer: 'cus_1'", err.Error())

	_, err = client.CreateCheckoutSession(context.Background(), CheckoutRequest{})
	require.Error(t, err)
	assert.Equal(t, "stripe_response_invalid", err.Error())
}

func billingConfig() *config.Config {
	return &config.Config{
		PublicBaseURL:       "https://site.example",
		StripeSecretKey:     "sk_test",
		StripeWebhookSecret: testWebhookSecret,
		StripePriceIDs:      map[string]string{models.PlanBasic: "price_basic"},
	}
}

func newTestBilling(cfg *config.Config, agencies IAgencyService, gw IStripeGateway, now time.Time) *billingService {
	svc := NewBillingService(nil, cfg, agencies, gw).(*billingService)
	svc.now = func() time.Time { return now }
	return svc
}

func TestBillingService_StartCheckoutValidation(t *testing.T) {
	ctx := context.Background()
	agencies := newFakeAgencies(&models.Agency{Base: models.Base{ID: "a1"}, Name: "A"})
	gw := new(mockGateway)
	svc := newTestBilling(billingConfig(), agencies, gw, time.Now())

	_, err := svc.StartCheckout(ctx, "a1", "gold")
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = svc.StartCheckout(ctx, "a1", models.PlanFree)
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = svc.StartCheckout(ctx, "a1", models.PlanPremium)
	assert.True(t, apperr.Is(err, apperr.KindValidation), "plan without a price id")

	_, err = svc.StartCheckout(ctx, "a1", models.PlanBasic)
	assert.True(t, apperr.Is(err, apperr.KindValidation), "agency without a customer")

	_, err = svc.StartCheckout(ctx, "missing", models.PlanBasic)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	gw.AssertNotCalled(t, "CreateCheckoutSession", mock.Anything, mock.Anything)
}

func TestBillingService_StartCheckout(t *testing.T) {
	agency := &models.Agency{Base: models.Base{ID: "a1"}, Name: "A", Subscription: models.Subscription{StripeCustomerID: "cus_1"}}
	gw := new(mockGateway)
	svc := newTestBilling(billingConfig(), newFakeAgencies(agency), gw, time.Now())

	gw.On("CreateCheckoutSession", mock.Anything, CheckoutRequest{
		CustomerID: "cus_1",
		PriceID:    "price_basic",
		SuccessURL: "https://site.example/dashboard/subscription?success=true",
		CancelURL:  "https://site.example/dashboard/subscription?canceled=true",
		Metadata:   map[string]string{"agencyId": "a1", "planId": models.PlanBasic},
	}).Return("https://checkout.example/cs_1", nil)

	url, err := svc.StartCheckout(context.Background(), "a1", models.PlanBasic)

	require.NoError(t, err)
	assert.Equal(t, "https://checkout.example/cs_1", url)
	gw.AssertExpectations(t)
}

func TestBillingService_NotConfigured(t *testing.T) {
	cfg := billingConfig()
	cfg.StripeSecretKey = ""
	agency := &models.Agency{Base: models.Base{ID: "a1"}, Subscription: models.Subscription{StripeCustomerID: "cus_1"}}
	svc := newTestBilling(cfg, newFakeAgencies(agency), nil, time.Now())

	_, err := svc.StartCheckout(context.Background(), "a1", models.PlanBasic)
	ae, ok := apperr.As(err)
	require.True(t, ok)
	assert.True(t, ae.Unavailable)

	_, err = svc.OpenPortal(context.Background(), "a1")
	ae, ok = apperr.As(err)
	require.True(t, ok)
	assert.True(t, ae.Unavailable)
}

func TestBillingService_ProvisionExistingCustomer(t *testing.T) {
	agency := &models.Agency{Base: models.Base{ID: "a1"}, Subscription: models.Subscription{StripeCustomerID: "cus_existing"}}
	gw := new(mockGateway)
	svc := newTestBilling(billingConfig(), newFakeAgencies(agency), gw, time.Now())

	id, err := svc.ProvisionCustomer(context.Background(), "a1", "")

	require.NoError(t, err)
	assert.Equal(t, "cus_existing", id)
	gw.AssertNotCalled(t, "CreateCustomer", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestBillingService_ProvisionGatewayFailure(t *testing.T) {
	agency := &models.Agency{Base: models.Base{ID: "a1"}, Name: "A", Contact: models.AgencyContact{Email: "info@a.org"}}
	gw := new(mockGateway)
	svc := newTestBilling(billingConfig(), newFakeAgencies(agency), gw, time.Now())
	gw.On("CreateCustomer", mock.Anything, "info@a.org", "A", map[string]string{"agencyId": "a1"}, "customer:a1").
		Return("", fmt.Errorf("timeout"))

	_, err := svc.ProvisionCustomer(context.Background(), "a1", "")

	assert.True(t, apperr.Is(err, apperr.KindUpstream))
	gw.AssertExpectations(t)
}

func TestBillingService_OpenPortal(t *testing.T) {
	ctx := context.Background()
	withCustomer := &models.Agency{Base: models.Base{ID: "a1"}, Subscription: models.Subscription{StripeCustomerID: "cus_1"}}
	without := &models.Agency{Base: models.Base{ID: "a2"}}
	gw := new(mockGateway)
	svc := newTestBilling(billingConfig(), newFakeAgencies(withCustomer, without), gw, time.Now())
	gw.On("CreatePortalSession", mock.Anything, "cus_1", "https://site.example/dashboard/subscription").
		Return("https://portal.example/1", nil)

	url, err := svc.OpenPortal(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, "https://portal.example/1", url)

	_, err = svc.OpenPortal(ctx, "a2")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestBillingService_HandleWebhookRejections(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	payload := []byte(`{"id":"evt_1","type":"customer.subscription.updated","data":{"object":{"id":"sub_1"}}}`)

	cfg := billingConfig()
	cfg.StripeWebhookSecret = ""
	err := newTestBilling(cfg, nil, nil, now).HandleWebhook(ctx, payload, signedHeader(payload, now, testWebhookSecret))
	ae, ok := apperr.As(err)
	require.True(t, ok)
	assert.True(t, ae.Unavailable)

	svc := newTestBilling(billingConfig(), nil, nil, now)
	err = svc.HandleWebhook(ctx, payload, signedHeader(payload, now.Add(-time.Hour), testWebhookSecret))
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	bad := []byte(`not json`)
	err = svc.HandleWebhook(ctx, bad, signedHeader(bad, now, testWebhookSecret))
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestBillingService_HandleWebhookIgnoredEvents(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	svc := newTestBilling(billingConfig(), nil, nil, now)

	payloads := [][]byte{
		[]byte(`{"id":"evt_1","type":"charge.refunded","data":{"object":{"id":"ch_1"}}}`),
		[]byte(`{"id":"evt_2","type":"checkout.session.completed","data":{"object":{"id":"cs_1","metadata":{}}}}`),
		[]byte(`{"id":"evt_3","type":"invoice.payment_failed","data":{"object":{"id":"in_1"}}}`),
		[]byte(`{"id":"evt_4","type":"customer.subscription.deleted","data":{"object":{}}}`),
	}
	for _, p := range payloads {
		assert.NoError(t, svc.HandleWebhook(ctx, p, signedHeader(p, now, testWebhookSecret)), string(p))
	}
}
