package services

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"wedding-backend/models"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// fakeGateway serves canned payment lookups the way the Mercado Pago
// API does.
func fakeGateway(t *testing.T, payments map[string]Payment) *MercadoPagoClient {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/payments/", func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Path[len("/v1/payments/"):]
		payment, ok := payments[id]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"message":"payment not found"}`)
			return
		}
		json.NewEncoder(w).Encode(payment)
	})
	mux.HandleFunc("/v1/payments/search", func(w http.ResponseWriter, r *http.Request) {
		prefID := r.URL.Query().Get("preference_id")
		var results []Payment
		for _, p := range payments {
			if p.PreferenceID == prefID {
				results = append(results, p)
			}
		}
		json.NewEncoder(w).Encode(paymentSearchResponse{Results: results})
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return &MercadoPagoClient{
		BaseURL:     server.URL,
		AccessToken: "test-token",
		HTTP:        server.Client(),
	}
}

func newPaymentService(t *testing.T, db *gorm.DB, payments map[string]Payment) *PaymentService {
	t.Helper()
	gifts := NewGiftService(db)
	honeymoon := NewHoneymoonService(db)
	return NewPaymentService(db, fakeGateway(t, payments), gifts, honeymoon, zerolog.Nop())
}

func webhookBody(t *testing.T, eventID, eventType string, dataID interface{}) []byte {
	t.Helper()
	body, err := json.Marshal(map[string]interface{}{
		"id":     eventID,
		"type":   eventType,
		"action": "payment.updated",
		"data":   map[string]interface{}{"id": dataID},
	})
	if err != nil {
		t.Fatalf("marshal webhook body: %v", err)
	}
	return body
}

func TestHandleWebhookApprovesHoneymoonContribution(t *testing.T) {
	t.Setenv("MERCADOPAGO_WEBHOOK_SECRET", "")
	db := newTestDB(t)
	createTestGoal(t, db, 1000, 0)

	svc := newPaymentService(t, db, map[string]Payment{
		"123": {
			ID:                123,
			Status:            "approved",
			ExternalReference: "cota_50",
			PreferenceID:      "pref-1",
			TransactionAmount: 50,
		},
	})

	if _, err := svc.Honeymoon.CreatePendingContribution(50, nil, "pref-1"); err != nil {
		t.Fatalf("CreatePendingContribution: %v", err)
	}

	body := webhookBody(t, "evt-1", "payment", 123)
	outcome, err := svc.HandleWebhook(t.Context(), body, "", "")
	if err != nil {
		t.Fatalf("HandleWebhook: %v", err)
	}
	if outcome != "success" {
		t.Fatalf("outcome = %q, want success", outcome)
	}

	progress, err := svc.Honeymoon.CalculateProgress()
	if err != nil {
		t.Fatalf("CalculateProgress: %v", err)
	}
	if progress.CurrentAmount != 50 {
		t.Fatalf("currentAmount = %v, want 50", progress.CurrentAmount)
	}

	// Replayed delivery must not double-count.
	if outcome, err = svc.HandleWebhook(t.Context(), body, "", ""); err != nil || outcome != "success" {
		t.Fatalf("replay: outcome=%q err=%v", outcome, err)
	}
	progress, _ = svc.Honeymoon.CalculateProgress()
	if progress.CurrentAmount != 50 {
		t.Fatalf("currentAmount after replay = %v, want 50", progress.CurrentAmount)
	}
}

func TestHandleWebhookCreatesContributionWithoutPendingRow(t *testing.T) {
	t.Setenv("MERCADOPAGO_WEBHOOK_SECRET", "")
	db := newTestDB(t)
	createTestGoal(t, db, 1000, 0)

	svc := newPaymentService(t, db, map[string]Payment{
		"777": {
			ID:                777,
			Status:            "approved",
			ExternalReference: "pix_livre",
			TransactionAmount: 35,
			Metadata:          PaymentMetadata{Type: "honeymoon", ContributorName: "Ana"},
		},
	})

	outcome, err := svc.HandleWebhook(t.Context(), webhookBody(t, "evt-2", "payment", 777), "", "")
	if err != nil || outcome != "success" {
		t.Fatalf("outcome=%q err=%v", outcome, err)
	}

	contribution, err := svc.Honeymoon.ContributionByTransactionID("777")
	if err != nil {
		t.Fatalf("ContributionByTransactionID: %v", err)
	}
	if contribution == nil || contribution.PaymentStatus != models.ContributionApproved {
		t.Fatal("contribution should exist and be approved")
	}
	if contribution.ContributorName == nil || *contribution.ContributorName != "Ana" {
		t.Fatal("contributor name should come from the payment metadata")
	}
}

func TestHandleWebhookRejectedPaymentDropsPendingRow(t *testing.T) {
	t.Setenv("MERCADOPAGO_WEBHOOK_SECRET", "")
	db := newTestDB(t)
	createTestGoal(t, db, 1000, 0)

	svc := newPaymentService(t, db, map[string]Payment{
		"500": {
			ID:                500,
			Status:            "rejected",
			ExternalReference: "cota_100",
			PreferenceID:      "pref-rej",
			TransactionAmount: 100,
		},
	})

	if _, err := svc.Honeymoon.CreatePendingContribution(100, nil, "pref-rej"); err != nil {
		t.Fatalf("CreatePendingContribution: %v", err)
	}

	outcome, err := svc.HandleWebhook(t.Context(), webhookBody(t, "evt-3", "payment", 500), "", "")
	if err != nil || outcome != "success" {
		t.Fatalf("outcome=%q err=%v", outcome, err)
	}

	pending, _ := svc.Honeymoon.PendingContributions()
	if len(pending) != 0 {
		t.Fatalf("got %d pending contributions, want 0", len(pending))
	}
}

func TestHandleWebhookMarksGiftPurchased(t *testing.T) {
	t.Setenv("MERCADOPAGO_WEBHOOK_SECRET", "")
	db := newTestDB(t)
	gift := createTestGift(t, db, models.EventChaPanela, "Kit assadeiras")

	svc := newPaymentService(t, db, map[string]Payment{
		"888": {
			ID:                888,
			Status:            "approved",
			ExternalReference: gift.ID,
			TransactionAmount: 150,
			Metadata: PaymentMetadata{
				GiftID:          gift.ID,
				Type:            "gift",
				EventType:       "cha-panela",
				ContributorName: "Carlos",
			},
		},
	})

	outcome, err := svc.HandleWebhook(t.Context(), webhookBody(t, "evt-4", "payment", 888), "", "")
	if err != nil || outcome != "success" {
		t.Fatalf("outcome=%q err=%v", outcome, err)
	}

	got := reloadGift(t, db, models.EventChaPanela, gift.ID)
	if !got.IsBought {
		t.Fatal("gift should be bought")
	}
	if got.PurchasedBy == nil || *got.PurchasedBy != "Carlos" {
		t.Fatal("purchased_by should come from the metadata")
	}
	if got.TransactionID == nil || *got.TransactionID != "888" {
		t.Fatal("transaction id not recorded")
	}
}

func TestHandleWebhookIgnoresNonPaymentEvents(t *testing.T) {
	t.Setenv("MERCADOPAGO_WEBHOOK_SECRET", "")
	db := newTestDB(t)
	svc := newPaymentService(t, db, nil)

	outcome, err := svc.HandleWebhook(t.Context(), webhookBody(t, "evt-5", "merchant_order", 1), "", "")
	if err != nil {
		t.Fatalf("HandleWebhook: %v", err)
	}
	if outcome != "ignored" {
		t.Fatalf("outcome = %q, want ignored", outcome)
	}
}

func TestHandleWebhookRejectsBadSignature(t *testing.T) {
	t.Setenv("MERCADOPAGO_WEBHOOK_SECRET", "s3cret")
	db := newTestDB(t)
	svc := newPaymentService(t, db, nil)

	body := webhookBody(t, "evt-6", "payment", 123)
	_, err := svc.HandleWebhook(t.Context(), body, "ts=1,v1=deadbeef", "req-1")
	if !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("got %v, want ErrInvalidSignature", err)
	}
}

func TestHandleWebhookAcceptsGoodSignature(t *testing.T) {
	t.Setenv("MERCADOPAGO_WEBHOOK_SECRET", "s3cret")
	db := newTestDB(t)
	svc := newPaymentService(t, db, nil)

	ts := "1700000000"
	requestID := "req-2"
	manifest := fmt.Sprintf("id:%s;request-id:%s;ts:%s;", "123", requestID, ts)
	mac := hmac.New(sha256.New, []byte("s3cret"))
	mac.Write([]byte(manifest))
	signature := fmt.Sprintf("ts=%s,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))

	// merchant_order events skip the payment fetch, so a valid
	// signature is enough to get the "ignored" outcome.
	body := webhookBody(t, "evt-7", "merchant_order", 123)
	outcome, err := svc.HandleWebhook(t.Context(), body, signature, requestID)
	if err != nil {
		t.Fatalf("HandleWebhook: %v", err)
	}
	if outcome != "ignored" {
		t.Fatalf("outcome = %q, want ignored", outcome)
	}
}

func TestApprovePending(t *testing.T) {
	t.Setenv("MERCADOPAGO_WEBHOOK_SECRET", "")
	db := newTestDB(t)
	createTestGoal(t, db, 1000, 0)

	svc := newPaymentService(t, db, map[string]Payment{
		"10": {ID: 10, Status: "approved", PreferenceID: "pref-paid", TransactionAmount: 40},
		"11": {ID: 11, Status: "rejected", PreferenceID: "pref-failed", TransactionAmount: 60},
	})

	for _, prefID := range []string{"pref-paid", "pref-failed", "pref-waiting"} {
		amount := 40.0
		if prefID == "pref-failed" {
			amount = 60
		}
		if _, err := svc.Honeymoon.CreatePendingContribution(amount, nil, prefID); err != nil {
			t.Fatalf("CreatePendingContribution(%s): %v", prefID, err)
		}
	}

	results, err := svc.ApprovePending(t.Context())
	if err != nil {
		t.Fatalf("ApprovePending: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}

	byStatus := map[string]int{}
	for _, r := range results {
		byStatus[r.Status]++
	}
	if byStatus["approved"] != 1 || byStatus["deleted"] != 1 || byStatus["still_pending"] != 1 {
		t.Fatalf("unexpected result statuses: %v", byStatus)
	}

	progress, _ := svc.Honeymoon.CalculateProgress()
	if progress.CurrentAmount != 40 {
		t.Fatalf("currentAmount = %v, want 40", progress.CurrentAmount)
	}
}

func TestStringifyID(t *testing.T) {
	cases := []struct {
		in   interface{}
		want string
	}{
		{nil, ""},
		{"abc", "abc"},
		{float64(12345678901), "12345678901"},
		{json.Number("42"), "42"},
	}
	for _, tc := range cases {
		if got := stringifyID(tc.in); got != tc.want {
			t.Errorf("stringifyID(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
