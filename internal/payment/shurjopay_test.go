package payment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func newGatewayServer(t *testing.T, tokenCalls *int32) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()

	mux.HandleFunc("/api/get_token", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(tokenCalls, 1)

		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "merchant", body["username"])
		assert.Equal(t, "secret", body["password"])

		json.NewEncoder(w).Encode(tokenResponse{
			Token:     "tok-abc",
			StoreID:   1,
			ExpiresIn: 3600,
			TokenType: "Bearer",
		})
	})

	mux.HandleFunc("/api/secret-pay", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok-abc", r.Header.Get("Authorization"))

		var req initiateRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "tok-abc", req.Token)
		assert.Equal(t, 1, req.StoreID)
		assert.Equal(t, "SP", req.Prefix)
		assert.Equal(t, "https://shop.example.com/verify", req.ReturnURL)

		json.NewEncoder(w).Encode(InitiateResponse{
			SPOrderID:         "SP999",
			CustomerOrderID:   req.OrderID,
			TransactionStatus: "Initiated",
			CheckoutURL:       "https://gw.example.com/checkout/SP999",
			Amount:            req.Amount,
			Currency:          req.Currency,
		})
	})

	mux.HandleFunc("/api/verification", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok-abc", r.Header.Get("Authorization"))

		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		json.NewEncoder(w).Encode([]VerificationResult{{
			OrderID:           body["order_id"],
			BankStatus:        "Success",
			SPCode:            "1000",
			TransactionStatus: "Completed",
		}})
	})

	return httptest.NewServer(mux)
}

func newTestClient(srvURL string) *Client {
	return NewClient(ClientConfig{
		Endpoint:  srvURL,
		Username:  "merchant",
		Password:  "secret",
		Prefix:    "SP",
		ReturnURL: "https://shop.example.com/verify",
	}, zap.NewNop())
}

func TestClient_InitiateAndVerify(t *testing.T) {
	var tokenCalls int32
	srv := newGatewayServer(t, &tokenCalls)
	defer srv.Close()

	c := newTestClient(srv.URL)

	resp, err := c.Initiate(context.Background(), InitiatePayload{
		Amount:   1000,
		OrderID:  "ORD-ABC123",
		Currency: "BDT",
	})
	assert.NoError(t, err)
	assert.Equal(t, "SP999", resp.SPOrderID)
	assert.Equal(t, "Initiated", resp.TransactionStatus)

	results, err := c.Verify(context.Background(), "SP999")
	assert.NoError(t, err)
	assert.Len(t, results, 1)
	assert.Equal(t, "Success", results[0].BankStatus)

	//トークンはキャッシュされるので取得は一度だけ
	assert.Equal(t, int32(1), atomic.LoadInt32(&tokenCalls))
}

func TestClient_EmptyTokenIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(tokenResponse{Message: "invalid credentials"})
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)

	_, err := c.Initiate(context.Background(), InitiatePayload{OrderID: "ORD-1"})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "empty token")
}

func TestClient_NonOKStatusIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/get_token" {
			json.NewEncoder(w).Encode(tokenResponse{Token: "tok", StoreID: 1, ExpiresIn: 3600})
			return
		}
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)

	_, err := c.Verify(context.Background(), "SP1")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status")
}
