package payment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateCheckout(t *testing.T) {
	var gotBody map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/checkouts", r.URL.Path)
		assert.Equal(t, "creem_test_key", r.Header.Get("x-api-key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"sess_abc","url":"https://pay.example.test/sess_abc","status":"pending"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "creem_test_key")
	sess, err := c.CreateCheckout(context.Background(), CheckoutParams{
		ProductID:     "prod_monthly",
		CustomerEmail: "user@example.test",
		SuccessURL:    "https://app.example.test/payment/success",
		Metadata:      map[string]string{"userId": "u1", "planType": "monthly", "email": "user@example.test"},
	})
	require.NoError(t, err)

	assert.Equal(t, "sess_abc", sess.ID)
	assert.Equal(t, "https://pay.example.test/sess_abc", sess.RedirectURL)
	assert.Equal(t, "prod_monthly", gotBody["product_id"])
	assert.Equal(t, map[string]interface{}{"email": "user@example.test"}, gotBody["customer"])
	assert.Equal(t, "https://app.example.test/payment/success", gotBody["success_url"])
}

func TestCreateCheckoutNoAPIKey(t *testing.T) {
	c := NewClient("", "")
	_, err := c.CreateCheckout(context.Background(), CheckoutParams{})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestCreateCheckoutUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"message":"invalid product_id"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "key")
	_, err := c.CreateCheckout(context.Background(), CheckoutParams{ProductID: "bogus"})
	require.Error(t, err)

	var gwErr *GatewayError
	require.ErrorAs(t, err, &gwErr)
	assert.Equal(t, http.StatusBadRequest, gwErr.StatusCode)
	assert.Equal(t, "invalid product_id", gwErr.Message)
}

func TestGetCheckoutNormalizesFieldVariants(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{
			name: "snake_case",
			body: `{"checkout_id":"sess_1","checkout_url":"https://pay/x","payment_status":"paid","amount_total":900,"currency_code":"EUR","order_id":"ord_1","customer":{"id":"cust_1"},"metadata":{"user_id":"u1","plan_type":"yearly","email":"a@b.c"}}`,
		},
		{
			name: "camelCase",
			body: `{"id":"sess_1","checkoutUrl":"https://pay/x","status":"paid","total":900,"currency":"EUR","orderId":"ord_1","customerId":"cust_1","metadata":{"userId":"u1","planType":"yearly","email":"a@b.c"}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/v1/checkouts/sess_1", r.URL.Path)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := NewClient(srv.URL, "key")
			sess, err := c.GetCheckout(context.Background(), "sess_1")
			require.NoError(t, err)

			assert.Equal(t, "sess_1", sess.ID)
			assert.Equal(t, "https://pay/x", sess.RedirectURL)
			assert.Equal(t, "paid", sess.Status)
			assert.True(t, sess.Completed())
			assert.Equal(t, int64(900), sess.Amount)
			assert.Equal(t, "EUR", sess.Currency)
			assert.Equal(t, "ord_1", sess.OrderID)
			assert.Equal(t, "cust_1", sess.CustomerID)
			assert.Equal(t, SessionMetadata{UserID: "u1", PlanType: "yearly", Email: "a@b.c"}, sess.Metadata)
		})
	}
}

func TestCheckoutSessionCompleted(t *testing.T) {
	for _, status := range []string{"completed", "paid", "succeeded"} {
		assert.True(t, (&CheckoutSession{Status: status}).Completed(), status)
	}
	for _, status := range []string{"pending", "open", "expired", ""} {
		assert.False(t, (&CheckoutSession{Status: status}).Completed(), status)
	}
}
