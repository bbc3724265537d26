package services

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

const mercadoPagoBaseURL = "https://api.mercadopago.com"

// MercadoPagoClient is a thin client for the pieces of the Mercado Pago
// REST API this site uses: checkout preferences and payment lookups.
type MercadoPagoClient struct {
	BaseURL     string
	AccessToken string
	HTTP        *http.Client
}

// NewMercadoPagoClient reads MERCADOPAGO_ACCESS_TOKEN from the
// environment. An empty token leaves the client disabled; the preference
// endpoint answers 503 in that case instead of failing at call time.
func NewMercadoPagoClient() *MercadoPagoClient {
	return &MercadoPagoClient{
		BaseURL:     mercadoPagoBaseURL,
		AccessToken: strings.TrimSpace(os.Getenv("MERCADOPAGO_ACCESS_TOKEN")),
		HTTP:        &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *MercadoPagoClient) Enabled() bool { return c.AccessToken != "" }

type PreferenceItem struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	Quantity   int     `json:"quantity"`
	UnitPrice  float64 `json:"unit_price"`
	CurrencyID string  `json:"currency_id"`
}

type PreferenceBackURLs struct {
	Success string `json:"success"`
	Failure string `json:"failure"`
	Pending string `json:"pending"`
}

type PreferenceRequest struct {
	Items             []PreferenceItem       `json:"items"`
	ExternalReference string                 `json:"external_reference,omitempty"`
	Metadata          map[string]interface{} `json:"metadata,omitempty"`
	BackURLs          *PreferenceBackURLs    `json:"back_urls,omitempty"`
	AutoReturn        string                 `json:"auto_return,omitempty"`
	NotificationURL   string                 `json:"notification_url,omitempty"`
}

type Preference struct {
	ID               string `json:"id"`
	InitPoint        string `json:"init_point"`
	SandboxInitPoint string `json:"sandbox_init_point"`
}

type PaymentMetadata struct {
	GiftID          string `json:"gift_id"`
	Type            string `json:"type"`
	EventType       string `json:"event_type"`
	ContributorName string `json:"contributor_name"`
}

type PaymentPayer struct {
	FirstName string `json:"first_name"`
	Email     string `json:"email"`
}

// Payment is the subset of the gateway's payment resource the webhook
// dispatch needs.
type Payment struct {
	ID                int64           `json:"id"`
	Status            string          `json:"status"`
	ExternalReference string          `json:"external_reference"`
	PreferenceID      string          `json:"preference_id"`
	TransactionAmount float64         `json:"transaction_amount"`
	Metadata          PaymentMetadata `json:"metadata"`
	Payer             PaymentPayer    `json:"payer"`
}

func (p *Payment) TransactionID() string {
	return fmt.Sprintf("%d", p.ID)
}

type paymentSearchResponse struct {
	Results []Payment `json:"results"`
}

func (c *MercadoPagoClient) CreatePreference(ctx context.Context, pref PreferenceRequest) (*Preference, error) {
	body, err := json.Marshal(pref)
	if err != nil {
		return nil, fmt.Errorf("cannot encode preference: %w", err)
	}

	var created Preference
	if err := c.do(ctx, http.MethodPost, "/checkout/preferences", body, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

func (c *MercadoPagoClient) GetPayment(ctx context.Context, id string) (*Payment, error) {
	var payment Payment
	if err := c.do(ctx, http.MethodGet, "/v1/payments/"+url.PathEscape(id), nil, &payment); err != nil {
		return nil, err
	}
	return &payment, nil
}

// SearchPaymentsByPreference lists the payments created from a checkout
// preference, used by the admin reconciliation pass.
func (c *MercadoPagoClient) SearchPaymentsByPreference(ctx context.Context, preferenceID string) ([]Payment, error) {
	path := "/v1/payments/search?preference_id=" + url.QueryEscape(preferenceID)
	var search paymentSearchResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &search); err != nil {
		return nil, err
	}
	return search.Results, nil
}

func (c *MercadoPagoClient) do(ctx context.Context, method, path string, body []byte, out interface{}) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("cannot build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.AccessToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("mercado pago HTTP error %d: %s", resp.StatusCode, string(respBody))
	}
	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("JSON parse error: %w", err)
		}
	}
	return nil
}

// VerifyWebhookSignature checks Mercado Pago's x-signature header
// (ts=...,v1=...) against the HMAC-SHA256 of the documented manifest
// "id:<data.id>;request-id:<x-request-id>;ts:<ts>;". An empty secret
// means verification is not configured and the caller decides whether
// to be permissive.
func VerifyWebhookSignature(xSignature, xRequestID, dataID, secret string) bool {
	if secret == "" || xSignature == "" {
		return false
	}

	var ts, v1 string
	for _, part := range strings.Split(xSignature, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "ts":
			ts = kv[1]
		case "v1":
			v1 = kv[1]
		}
	}
	if ts == "" || v1 == "" {
		return false
	}

	manifest := fmt.Sprintf("id:%s;request-id:%s;ts:%s;", strings.ToLower(dataID), xRequestID, ts)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(manifest))
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(v1))
}
