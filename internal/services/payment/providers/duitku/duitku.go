// Package duitku is a client for the Duitku payment gateway. Requests
// and callbacks are authenticated with MD5 signatures derived from the
// merchant code and API key, per the gateway's published scheme.
package duitku

import (
	"bytes"
	"crypto/md5"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

// ResultCodeSuccess is the callback result code for a settled payment
const ResultCodeSuccess = "00"

// Config holds the merchant credentials and endpoints
type Config struct {
	MerchantCode string
	APIKey       string
	BaseURL      string
	CallbackURL  string
	ReturnURL    string
	ExpiryPeriod int // minutes
}

// Client talks to the Duitku API
type Client struct {
	config Config
	http   *http.Client
}

// NewClient creates a Duitku client
func NewClient(config Config) *Client {
	return &Client{
		config: config,
		http:   &http.Client{Timeout: 10 * time.Second},
	}
}

// CreateTransactionRequest is the inquiry payload sent to the gateway
type CreateTransactionRequest struct {
	MerchantCode    string `json:"merchantCode"`
	PaymentAmount   int64  `json:"paymentAmount"`
	MerchantOrderID string `json:"merchantOrderId"`
	ProductDetails  string `json:"productDetails"`
	Email           string `json:"email"`
	PhoneNumber     string `json:"phoneNumber,omitempty"`
	PaymentMethod   string `json:"paymentMethod,omitempty"`
	ReturnURL       string `json:"returnUrl"`
	CallbackURL     string `json:"callbackUrl"`
	Signature       string `json:"signature"`
	ExpiryPeriod    int    `json:"expiryPeriod,omitempty"`
}

// CreateTransactionResponse is the gateway's inquiry reply
type CreateTransactionResponse struct {
	StatusCode    string `json:"statusCode"`
	StatusMessage string `json:"statusMessage"`
	Reference     string `json:"reference"`
	PaymentURL    string `json:"paymentUrl"`
	VANumber      string `json:"vaNumber,omitempty"`
	Amount        string `json:"amount,omitempty"`
}

func md5hex(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

// CreateSignature signs a transaction inquiry:
// md5(merchantCode + orderId + amount + apiKey)
func (c *Client) CreateSignature(orderID string, amount int64) string {
	return md5hex(c.config.MerchantCode + orderID + strconv.FormatInt(amount, 10) + c.config.APIKey)
}

// CallbackSignature computes the expected callback signature:
// md5(merchantCode + amount + merchantOrderId + apiKey)
func (c *Client) CallbackSignature(amount, merchantOrderID string) string {
	return md5hex(c.config.MerchantCode + amount + merchantOrderID + c.config.APIKey)
}

// VerifyCallbackSignature reports whether a callback's signature matches
// the expected value. The comparison is constant time.
func (c *Client) VerifyCallbackSignature(amount, merchantOrderID, signature string) bool {
	expected := c.CallbackSignature(amount, merchantOrderID)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(signature)) == 1
}

// CreateTransaction registers a payment with the gateway and returns
// the gateway reference and the URL the payer should be redirected to
func (c *Client) CreateTransaction(orderID, productDetails, email, phone, method string, amount int64) (*CreateTransactionResponse, error) {
	req := CreateTransactionRequest{
		MerchantCode:    c.config.MerchantCode,
		PaymentAmount:   amount,
		MerchantOrderID: orderID,
		ProductDetails:  productDetails,
		Email:           email,
		PhoneNumber:     phone,
		PaymentMethod:   method,
		ReturnURL:       c.config.ReturnURL,
		CallbackURL:     c.config.CallbackURL,
		Signature:       c.CreateSignature(orderID, amount),
		ExpiryPeriod:    c.config.ExpiryPeriod,
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshaling transaction request: %w", err)
	}

	httpReq, err := http.NewRequest(http.MethodPost, c.config.BaseURL+"/merchant/v2/inquiry", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building transaction request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("calling payment gateway: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading gateway response: %w", err)
	}

	var result CreateTransactionResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("decoding gateway response: %w", err)
	}

	if resp.StatusCode != http.StatusOK || result.StatusCode != ResultCodeSuccess {
		msg := result.StatusMessage
		if msg == "" {
			msg = string(respBody)
		}
		return nil, fmt.Errorf("gateway rejected transaction %s: %s", orderID, msg)
	}

	return &result, nil
}
