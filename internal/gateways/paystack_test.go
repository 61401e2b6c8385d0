package gateway

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	client, err := NewClient(&Config{
		BaseURL:    baseURL,
		SecretKey:  "sk_test_secret",
		Timeout:    2 * time.Second,
		MaxRetries: 2,
		RetryDelay: 10 * time.Millisecond,
	})
	require.NoError(t, err)
	return client
}

func TestNewClient_Validation(t *testing.T) {
	t.Run("nil config", func(t *testing.T) {
		_, err := NewClient(nil)
		require.Error(t, err)
	})

	t.Run("missing base URL", func(t *testing.T) {
		_, err := NewClient(&Config{SecretKey: "sk"})
		require.Error(t, err)
	})

	t.Run("missing secret key", func(t *testing.T) {
		_, err := NewClient(&Config{BaseURL: "http://localhost"})
		require.Error(t, err)
	})
}

func TestClient_Initialize(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "POST", r.Method)
			assert.Equal(t, "/transaction/initialize", r.URL.Path)
			assert.Equal(t, "Bearer sk_test_secret", r.Header.Get("Authorization"))

			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"status":true,"message":"Authorization URL created","data":{"authorization_url":"https://checkout.example.com/abc","access_code":"abc","reference":"ref-123"}}`))
		}))
		defer server.Close()

		client := newTestClient(t, server.URL)
		resp, err := client.Initialize(context.Background(), &InitializeRequest{
			Email:  "buyer@example.com",
			Amount: 500000,
		})
		require.NoError(t, err)
		assert.Equal(t, "ref-123", resp.Reference)
		assert.Equal(t, "https://checkout.example.com/abc", resp.AuthorizationURL)
	})

	t.Run("provider refuses the request", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"status":false,"message":"Invalid amount"}`))
		}))
		defer server.Close()

		client := newTestClient(t, server.URL)
		_, err := client.Initialize(context.Background(), &InitializeRequest{
			Email:  "buyer@example.com",
			Amount: 0,
		})
		require.ErrorIs(t, err, ErrGatewayRejected)
	})

	t.Run("no retry on server error", func(t *testing.T) {
		var hits atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		client := newTestClient(t, server.URL)
		_, err := client.Initialize(context.Background(), &InitializeRequest{
			Email:  "buyer@example.com",
			Amount: 1000,
		})
		require.ErrorIs(t, err, ErrGatewayUnavailable)
		assert.Equal(t, int32(1), hits.Load())
	})
}

func TestClient_Verify(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "GET", r.Method)
			assert.Equal(t, "/transaction/verify/ref-123", r.URL.Path)

			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"status":true,"message":"Verification successful","data":{"reference":"ref-123","amount":500000,"status":"success","currency":"NGN","customer":{"email":"buyer@example.com"}}}`))
		}))
		defer server.Close()

		client := newTestClient(t, server.URL)
		data, err := client.Verify(context.Background(), "ref-123")
		require.NoError(t, err)
		assert.Equal(t, "ref-123", data.Reference)
		assert.Equal(t, int64(500000), data.Amount)
		assert.Equal(t, "success", data.Status)
		assert.Equal(t, "buyer@example.com", data.Customer.Email)
	})

	t.Run("unknown reference is not retried", func(t *testing.T) {
		var hits atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"status":false,"message":"Transaction reference not found"}`))
		}))
		defer server.Close()

		client := newTestClient(t, server.URL)
		_, err := client.Verify(context.Background(), "ref-missing")
		require.ErrorIs(t, err, ErrReferenceNotFound)
		assert.Equal(t, int32(1), hits.Load())
	})

	t.Run("transient failures are retried", func(t *testing.T) {
		var hits atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if hits.Add(1) < 3 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"status":true,"message":"ok","data":{"reference":"ref-retry","amount":1000,"status":"failed","customer":{"email":"buyer@example.com"}}}`))
		}))
		defer server.Close()

		client := newTestClient(t, server.URL)
		data, err := client.Verify(context.Background(), "ref-retry")
		require.NoError(t, err)
		assert.Equal(t, "failed", data.Status)
		assert.Equal(t, int32(3), hits.Load())
	})

	t.Run("exhausted retries surface unavailable", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer server.Close()

		client := newTestClient(t, server.URL)
		_, err := client.Verify(context.Background(), "ref-down")
		require.ErrorIs(t, err, ErrGatewayUnavailable)
	})
}
