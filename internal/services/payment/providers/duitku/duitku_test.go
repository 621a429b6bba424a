package duitku

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(baseURL string) *Client {
	return NewClient(Config{
		MerchantCode: "D0001",
		APIKey:       "secret",
		BaseURL:      baseURL,
		CallbackURL:  "https://example.com/api/webhooks/payment",
		ReturnURL:    "https://example.com/return",
		ExpiryPeriod: 60,
	})
}

func TestCreateSignature(t *testing.T) {
	c := testClient("")
	// md5("D0001" + "PAY-TEST-1" + "100000" + "secret")
	assert.Equal(t, "02c59a801c395218a0935e582c86171e", c.CreateSignature("PAY-TEST-1", 100000))
}

func TestVerifyCallbackSignature(t *testing.T) {
	c := testClient("")
	// md5("D0001" + "100000" + "PAY-TEST-1" + "secret")
	valid := "c49facf4c73c9f570e160a502c50a42e"

	assert.True(t, c.VerifyCallbackSignature("100000", "PAY-TEST-1", valid))
	assert.False(t, c.VerifyCallbackSignature("100000", "PAY-TEST-1", "deadbeef"))
	assert.False(t, c.VerifyCallbackSignature("100001", "PAY-TEST-1", valid))
}

func TestCreateTransaction(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/merchant/v2/inquiry", r.URL.Path)

		var req CreateTransactionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "D0001", req.MerchantCode)
		assert.Equal(t, "PAY-TEST-1", req.MerchantOrderID)
		assert.Equal(t, int64(100000), req.PaymentAmount)
		assert.Equal(t, "02c59a801c395218a0935e582c86171e", req.Signature)

		json.NewEncoder(w).Encode(CreateTransactionResponse{
			StatusCode:    "00",
			StatusMessage: "SUCCESS",
			Reference:     "D0001REF123",
			PaymentURL:    "https://sandbox.duitku.com/pay/REF123",
		})
	}))
	defer server.Close()

	c := testClient(server.URL)
	resp, err := c.CreateTransaction("PAY-TEST-1", "Test payment", "user@example.com", "08123456789", "VC", 100000)
	require.NoError(t, err)
	assert.Equal(t, "D0001REF123", resp.Reference)
	assert.Equal(t, "https://sandbox.duitku.com/pay/REF123", resp.PaymentURL)
}

func TestCreateTransactionRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(CreateTransactionResponse{
			StatusCode:    "02",
			StatusMessage: "Invalid signature",
		})
	}))
	defer server.Close()

	c := testClient(server.URL)
	_, err := c.CreateTransaction("PAY-TEST-1", "Test payment", "user@example.com", "", "", 100000)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid signature")
}
