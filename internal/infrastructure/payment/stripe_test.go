package payment

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v76/webhook"

	"shape-forge-api/internal/config"
	"shape-forge-api/internal/domain/service"
)

func newStripeStub(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/checkout/sessions", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "payment", r.Form.Get("mode"))
		assert.Equal(t, "u1", r.Form.Get("client_reference_id"))
		assert.Equal(t, "500", r.Form.Get("metadata[credits]"))
		assert.Equal(t, "pro", r.Form.Get("metadata[pack_id]"))
		assert.Equal(t, "1", r.Form.Get("line_items[0][quantity]"))
		assert.Equal(t, "4500", r.Form.Get("line_items[0][price_data][unit_amount]"))
		assert.Equal(t, "true", r.Form.Get("allow_promotion_codes"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"cs_test_1","object":"checkout.session","url":"https://checkout.stripe.com/c/pay/cs_test_1","client_reference_id":"u1","payment_status":"unpaid","metadata":{"credits":"500"}}`))
	})
	mux.HandleFunc("/v1/checkout/sessions/cs_test_1", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"cs_test_1","object":"checkout.session","client_reference_id":"u1","payment_status":"paid","payment_intent":"pi_123","metadata":{"credits":"500"}}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestStripeGateway_CreateAndGet(t *testing.T) {
	srv := newStripeStub(t)
	g := NewStripeGateway(&config.StripeConfig{SecretKey: "sk_test_x", APIURL: srv.URL})

	sess, err := g.CreateCheckoutSession(context.Background(), service.CheckoutRequest{
		UserID:      "u1",
		PackID:      "pro",
		ProductName: "500 Credits",
		Credits:     500,
		UnitAmount:  4500,
		Currency:    "usd",
		SuccessURL:  "https://api.example/v1/checkout/complete?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:   "https://app.example/pricing",
	})
	require.NoError(t, err)
	assert.Equal(t, "cs_test_1", sess.ID)
	assert.Equal(t, "https://checkout.stripe.com/c/pay/cs_test_1", sess.URL)
	assert.False(t, sess.Paid)

	got, err := g.GetCheckoutSession(context.Background(), "cs_test_1")
	require.NoError(t, err)
	assert.True(t, got.Paid)
	assert.Equal(t, "pi_123", got.PaymentID)
	assert.Equal(t, "u1", got.UserID)
	assert.Equal(t, "500", got.Metadata["credits"])
}

const completedEvent = `{
  "id": "evt_1",
  "object": "event",
  "type": "checkout.session.completed",
  "data": {
    "object": {
      "id": "cs_test_1",
      "object": "checkout.session",
      "client_reference_id": "u1",
      "payment_status": "paid",
      "payment_intent": "pi_123",
      "metadata": {"credits": "100"}
    }
  }
}`

func TestStripeGateway_ParseWebhook(t *testing.T) {
	g := NewStripeGateway(&config.StripeConfig{SecretKey: "sk_test_x", WebhookSecret: "whsec_test"})

	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   []byte(completedEvent),
		Secret:    "whsec_test",
		Timestamp: time.Now(),
	})

	event, err := g.ParseWebhook([]byte(completedEvent), signed.Header)
	require.NoError(t, err)
	assert.Equal(t, "evt_1", event.ID)
	assert.Equal(t, service.EventCheckoutCompleted, event.Type)
	require.NotNil(t, event.Session)
	assert.True(t, event.Session.Paid)
	assert.Equal(t, "pi_123", event.Session.PaymentID)
	assert.Equal(t, "100", event.Session.Metadata["credits"])

	_, err = g.ParseWebhook([]byte(completedEvent), "t=1,v1=deadbeef")
	assert.ErrorIs(t, err, service.ErrInvalidSignature)
}

func TestStripeGateway_ParseWebhookAsyncPaymentSucceeded(t *testing.T) {
	g := NewStripeGateway(&config.StripeConfig{SecretKey: "sk_test_x", WebhookSecret: "whsec_test"})
	payload := strings.Replace(completedEvent, service.EventCheckoutCompleted, service.EventCheckoutAsyncPaymentSucceeded, 1)

	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   []byte(payload),
		Secret:    "whsec_test",
		Timestamp: time.Now(),
	})

	event, err := g.ParseWebhook([]byte(payload), signed.Header)
	require.NoError(t, err)
	assert.Equal(t, service.EventCheckoutAsyncPaymentSucceeded, event.Type)
	require.NotNil(t, event.Session)
	assert.True(t, event.Session.Paid)
	assert.Equal(t, "u1", event.Session.UserID)
}

func TestStripeGateway_ParseWebhookWithoutSecret(t *testing.T) {
	g := NewStripeGateway(&config.StripeConfig{SecretKey: "sk_test_x"})
	_, err := g.ParseWebhook([]byte(completedEvent), "sig")
	assert.Error(t, err)
}
