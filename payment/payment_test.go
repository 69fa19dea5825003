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

func TestStripeCreateIntent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/payment_intents", r.URL.Path)
		assert.Equal(t, "Bearer sk_test", r.Header.Get("Authorization"))
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "79000", r.PostForm.Get("amount"))
		assert.Equal(t, "usd", r.PostForm.Get("currency"))
		assert.Equal(t, "Ecommerce", r.PostForm.Get("metadata[company]"))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":            "pi_1",
			"amount":        79000,
			"currency":      "usd",
			"status":        "requires_payment_method",
			"client_secret": "pi_1_secret_x",
		})
	}))
	defer srv.Close()

	intent, err := NewStripe(srv.URL, "sk_test").CreateIntent(context.Background(), 79000, "usd", map[string]string{"company": "Ecommerce"})
	require.NoError(t, err)
	assert.Equal(t, "pi_1", intent.ID)
	assert.Equal(t, "pi_1_secret_x", intent.ClientSecret)
	assert.Equal(t, int64(79000), intent.Amount)
}

func TestStripeGetIntent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/payment_intents/pi_9", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"pi_9","amount":141600,"currency":"usd","status":"succeeded"}`))
	}))
	defer srv.Close()

	intent, err := NewStripe(srv.URL, "sk_test").GetIntent(context.Background(), "pi_9")
	require.NoError(t, err)
	assert.Equal(t, StatusSucceeded, intent.Status)
	assert.Equal(t, int64(141600), intent.Amount)
}

func TestStripeSurfacesUpstreamMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"Amount must be at least $0.50 usd","type":"invalid_request_error"}}`))
	}))
	defer srv.Close()

	_, err := NewStripe(srv.URL, "sk_test").CreateIntent(context.Background(), 1, "usd", nil)
	assert.ErrorIs(t, err, ErrUpstream)
	assert.ErrorContains(t, err, "Amount must be at least $0.50 usd")
}
