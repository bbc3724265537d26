package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"wedding-backend/models"
	"wedding-backend/utils"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const webhookProvider = "mercadopago"

// Payment statuses the gateway reports that we act on.
var terminalFailureStatuses = map[string]bool{
	"rejected":  true,
	"cancelled": true,
	"refunded":  true,
}

// PaymentService ties the Mercado Pago gateway to the gift registry and
// the honeymoon ledger: preference creation on the way out, webhook
// dispatch on the way in.
type PaymentService struct {
	DB        *gorm.DB
	Gateway   *MercadoPagoClient
	Gifts     *GiftService
	Honeymoon *HoneymoonService
	Log       zerolog.Logger
}

func NewPaymentService(db *gorm.DB, gateway *MercadoPagoClient, gifts *GiftService, honeymoon *HoneymoonService, log zerolog.Logger) *PaymentService {
	return &PaymentService{
		DB:        db,
		Gateway:   gateway,
		Gifts:     gifts,
		Honeymoon: honeymoon,
		Log:       log,
	}
}

// IsHoneymoonReference tells honeymoon contributions apart from physical
// gifts by the item id convention the frontend uses (cota_ for quota
// cards, pix_ for free-amount PIX contributions).
func IsHoneymoonReference(ref string) bool {
	return strings.HasPrefix(ref, "cota_") || strings.HasPrefix(ref, "pix_")
}

// PreferenceInput is what the checkout endpoint collects.
type PreferenceInput struct {
	Amount          float64
	Title           string
	GiftID          string
	ContributorName string
	EventType       string
}

// CreateCheckoutPreference builds the gateway preference and, for
// honeymoon items, records the speculative pending contribution keyed
// by the preference id.
func (s *PaymentService) CreateCheckoutPreference(ctx context.Context, in PreferenceInput) (*Preference, error) {
	isHoneymoon := IsHoneymoonReference(in.GiftID)

	kind := "gift"
	if isHoneymoon {
		kind = "honeymoon"
	}
	metadata := map[string]interface{}{
		"gift_id": in.GiftID,
		"type":    kind,
	}
	if in.ContributorName != "" {
		metadata["contributor_name"] = in.ContributorName
	}
	if in.EventType != "" {
		metadata["event_type"] = in.EventType
	}

	req := PreferenceRequest{
		Items: []PreferenceItem{{
			ID:         in.GiftID,
			Title:      in.Title,
			Quantity:   1,
			UnitPrice:  in.Amount,
			CurrencyID: "BRL",
		}},
		ExternalReference: in.GiftID,
		Metadata:          metadata,
	}

	// The gateway rejects localhost URLs, so back URLs and the webhook
	// address only go out when a public base URL is configured.
	baseURL := strings.TrimRight(utils.EnvOrDefault("PUBLIC_BASE_URL", ""), "/")
	if baseURL != "" && !strings.Contains(baseURL, "localhost") {
		req.BackURLs = &PreferenceBackURLs{
			Success: baseURL + "/casamento?payment=success",
			Failure: baseURL + "/casamento?payment=failure",
			Pending: baseURL + "/casamento?payment=pending",
		}
		req.AutoReturn = "approved"
		req.NotificationURL = baseURL + "/api/webhooks/mercadopago"
	}

	pref, err := s.Gateway.CreatePreference(ctx, req)
	if err != nil {
		return nil, err
	}

	if isHoneymoon {
		var name *string
		if in.ContributorName != "" {
			name = &in.ContributorName
		}
		if _, err := s.Honeymoon.CreatePendingContribution(in.Amount, name, pref.ID); err != nil {
			// Checkout still proceeds; the webhook's create-new fallback
			// covers a payment whose pending row never existed.
			s.Log.Warn().Err(err).Str("preference_id", pref.ID).
				Msg("could not record pending contribution")
		}
	}

	return pref, nil
}

type webhookNotification struct {
	ID     interface{} `json:"id"`
	Type   string      `json:"type"`
	Action string      `json:"action"`
	Data   struct {
		ID interface{} `json:"id"`
	} `json:"data"`
}

// HandleWebhook processes one gateway notification. The outcome string
// is what the controller echoes back; apart from a failed signature
// check the endpoint always answers 200, so failures land in the event
// log for manual follow-up instead of triggering gateway retries.
func (s *PaymentService) HandleWebhook(ctx context.Context, rawBody []byte, xSignature, xRequestID string) (string, error) {
	var notification webhookNotification
	if err := json.Unmarshal(rawBody, &notification); err != nil {
		s.Log.Error().Err(err).Msg("webhook payload is not valid JSON")
		return "error", nil
	}

	dataID := stringifyID(notification.Data.ID)

	secret := strings.TrimSpace(os.Getenv("MERCADOPAGO_WEBHOOK_SECRET"))
	signatureValid := secret != "" && VerifyWebhookSignature(xSignature, xRequestID, dataID, secret)

	event := s.recordEvent(&notification, dataID, rawBody, signatureValid)

	if secret != "" && !signatureValid {
		s.finishEvent(event, "invalid webhook signature")
		return "", ErrInvalidSignature
	}

	if notification.Type != "payment" {
		s.Log.Info().Str("type", notification.Type).Msg("ignoring non-payment webhook event")
		s.finishEvent(event, "")
		return "ignored", nil
	}

	if dataID == "" {
		s.finishEvent(event, "missing payment id in webhook payload")
		return "error", nil
	}

	payment, err := s.Gateway.GetPayment(ctx, dataID)
	if err != nil {
		s.Log.Error().Err(err).Str("payment_id", dataID).Msg("failed to fetch payment from gateway")
		s.finishEvent(event, err.Error())
		return "error", nil
	}

	if err := s.processPayment(payment); err != nil {
		s.Log.Error().Err(err).Str("payment_id", dataID).Msg("failed to process payment")
		s.finishEvent(event, err.Error())
		return "error", nil
	}

	s.finishEvent(event, "")
	return "success", nil
}

func (s *PaymentService) processPayment(payment *Payment) error {
	txID := payment.TransactionID()
	ref := payment.ExternalReference
	contributor := contributorName(payment)

	if IsHoneymoonReference(ref) || payment.Metadata.Type == "honeymoon" {
		return s.processHoneymoonPayment(payment, txID, contributor)
	}
	return s.processGiftPayment(payment, txID, contributor)
}

func (s *PaymentService) processHoneymoonPayment(payment *Payment, txID, contributor string) error {
	switch {
	case payment.Status == "approved":
		// First choice: confirm the pending row created at preference
		// time, so the speculative record and the confirmation stay one
		// and the same ledger entry.
		if payment.PreferenceID != "" {
			err := s.Honeymoon.ApproveContribution(payment.PreferenceID, txID)
			if err == nil {
				s.Log.Info().Str("preference_id", payment.PreferenceID).
					Float64("amount", payment.TransactionAmount).
					Msg("contribution approved via preference")
				return nil
			}
			if !errors.Is(err, ErrContributionNotFound) {
				return err
			}
		}

		// Replay of a payment processed before.
		existing, err := s.Honeymoon.ContributionByTransactionID(txID)
		if err != nil {
			return err
		}
		if existing != nil && existing.PaymentStatus == models.ContributionApproved {
			s.Log.Info().Str("transaction_id", txID).Msg("contribution already approved")
			return nil
		}

		// No pending row and no prior record: create the approved entry.
		var name *string
		if contributor != "" {
			name = &contributor
		}
		return s.Honeymoon.ProcessContribution(payment.TransactionAmount, txID, name)

	case terminalFailureStatuses[payment.Status]:
		if payment.PreferenceID != "" {
			return s.Honeymoon.DeletePendingContribution(payment.PreferenceID)
		}
		return nil

	default:
		s.Log.Info().Str("transaction_id", txID).Str("status", payment.Status).
			Msg("payment not processed")
		return nil
	}
}

func (s *PaymentService) processGiftPayment(payment *Payment, txID, contributor string) error {
	if payment.Status != "approved" {
		s.Log.Info().Str("transaction_id", txID).Str("status", payment.Status).
			Msg("gift payment not approved, skipping")
		return nil
	}
	if payment.ExternalReference == "" {
		s.Log.Warn().Str("transaction_id", txID).
			Msg("gift payment without external reference, skipping")
		return nil
	}

	tipo := models.EventCasamento
	if t, ok := models.NormalizeEventType(payment.Metadata.EventType); ok {
		tipo = t
	}

	err := s.Gifts.MarkAsPurchasedByTransaction(tipo, payment.ExternalReference, txID, contributor)
	if errors.Is(err, ErrGiftNotFound) {
		// Payment already happened; keep the 200 and leave the event log
		// for manual review instead of bouncing the gateway.
		s.Log.Error().Str("gift_id", payment.ExternalReference).Str("tipo", tipo.String()).
			Msg("paid gift not found in registry")
		return nil
	}
	return err
}

// PendingReview is one line of the admin reconciliation report.
type PendingReview struct {
	ContributionID string  `json:"id"`
	Status         string  `json:"status"`
	Amount         float64 `json:"amount,omitempty"`
	Reason         string  `json:"reason,omitempty"`
}

// ApprovePending re-checks every pending contribution against the
// gateway and approves or discards it. The manual backstop for webhook
// deliveries that never arrived.
func (s *PaymentService) ApprovePending(ctx context.Context) ([]PendingReview, error) {
	pending, err := s.Honeymoon.PendingContributions()
	if err != nil {
		return nil, err
	}

	results := make([]PendingReview, 0, len(pending))
	for _, contribution := range pending {
		if contribution.MercadoPagoPreferenceID == nil {
			results = append(results, PendingReview{
				ContributionID: contribution.ID,
				Status:         "skipped",
				Reason:         "no preference id",
			})
			continue
		}
		prefID := *contribution.MercadoPagoPreferenceID

		payments, err := s.Gateway.SearchPaymentsByPreference(ctx, prefID)
		if err != nil {
			s.Log.Error().Err(err).Str("preference_id", prefID).
				Msg("failed to search payments for pending contribution")
			results = append(results, PendingReview{
				ContributionID: contribution.ID,
				Status:         "error",
				Reason:         err.Error(),
			})
			continue
		}

		review := PendingReview{ContributionID: contribution.ID, Status: "still_pending"}
		for i := range payments {
			payment := &payments[i]
			if payment.Status == "approved" {
				if err := s.Honeymoon.ApproveContribution(prefID, payment.TransactionID()); err != nil {
					review.Status = "error"
					review.Reason = err.Error()
				} else {
					review.Status = "approved"
					review.Amount = contribution.Amount
				}
				break
			}
			if terminalFailureStatuses[payment.Status] {
				review.Status = "deleted"
				review.Reason = payment.Status
			}
		}
		if review.Status == "deleted" {
			if err := s.Honeymoon.DeletePendingContribution(prefID); err != nil {
				review.Status = "error"
				review.Reason = err.Error()
			}
		}
		results = append(results, review)
	}
	return results, nil
}

func (s *PaymentService) recordEvent(n *webhookNotification, dataID string, rawBody []byte, signatureValid bool) *models.PaymentWebhookEvent {
	providerEventID := stringifyID(n.ID)
	if providerEventID == "" {
		providerEventID = dataID
	}
	if providerEventID == "" {
		providerEventID = uuid.NewString()
	}

	eventType := n.Type
	if n.Action != "" {
		eventType = n.Type + ":" + n.Action
	}

	event := models.PaymentWebhookEvent{
		Provider:        webhookProvider,
		ProviderEventID: providerEventID,
		EventType:       eventType,
		Payload:         datatypes.JSON(rawBody),
		SignatureValid:  signatureValid,
	}
	// Replays collide on (provider, provider_event_id); keep the first
	// payload, processing continues either way.
	if err := s.DB.Clauses(clause.OnConflict{DoNothing: true}).Create(&event).Error; err != nil {
		s.Log.Warn().Err(err).Msg("could not record webhook event")
	}
	return &event
}

func (s *PaymentService) finishEvent(event *models.PaymentWebhookEvent, processingError string) {
	now := time.Now().UTC()
	err := s.DB.Model(&models.PaymentWebhookEvent{}).
		Where("provider = ? AND provider_event_id = ?", event.Provider, event.ProviderEventID).
		Updates(map[string]interface{}{
			"processed_at":     now,
			"processing_error": processingError,
		}).Error
	if err != nil {
		s.Log.Warn().Err(err).Msg("could not update webhook event")
	}
}

func contributorName(payment *Payment) string {
	if payment.Metadata.ContributorName != "" {
		return payment.Metadata.ContributorName
	}
	if payment.Payer.FirstName != "" {
		return payment.Payer.FirstName
	}
	return payment.Payer.Email
}

// stringifyID tolerates the gateway sending ids as numbers or strings.
func stringifyID(v interface{}) string {
	switch id := v.(type) {
	case nil:
		return ""
	case string:
		return id
	case float64:
		return fmt.Sprintf("%.0f", id)
	case json.Number:
		return id.String()
	default:
		return fmt.Sprintf("%v", id)
	}
}
