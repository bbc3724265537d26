package controllers

import (
	"errors"
	"net/http"

	"wedding-backend/models"
	"wedding-backend/services"
	"wedding-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

type CreatePreferenceRequest struct {
	Amount          float64 `json:"amount" binding:"required,gt=0"`
	Title           string  `json:"title" binding:"required"`
	GiftID          string  `json:"giftId" binding:"required"`
	ContributorName string  `json:"contributorName"`
	EventType       string  `json:"eventType"`
}

type PaymentController struct {
	Payments *services.PaymentService
	Cache    *utils.TagCache
	Log      zerolog.Logger
}

func NewPaymentController(payments *services.PaymentService, cache *utils.TagCache, log zerolog.Logger) *PaymentController {
	return &PaymentController{Payments: payments, Cache: cache, Log: log}
}

// CreatePreference opens a Mercado Pago checkout for a gift or a
// honeymoon contribution. 503 when no access token is configured.
func (ctl *PaymentController) CreatePreference(c *gin.Context) {
	if !ctl.Payments.Gateway.Enabled() {
		utils.JSONError(c, http.StatusServiceUnavailable, "Pagamentos não estão configurados")
		return
	}

	var req CreatePreferenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Dados inválidos: valor, título e identificador do item são obrigatórios")
		return
	}

	pref, err := ctl.Payments.CreateCheckoutPreference(c.Request.Context(), services.PreferenceInput{
		Amount:          req.Amount,
		Title:           req.Title,
		GiftID:          req.GiftID,
		ContributorName: req.ContributorName,
		EventType:       req.EventType,
	})
	if err != nil {
		ctl.Log.Error().Err(err).Str("gift_id", req.GiftID).Msg("failed to create checkout preference")
		utils.JSONError(c, http.StatusInternalServerError, "Erro ao criar preferência de pagamento")
		return
	}

	utils.JSONSuccess(c, http.StatusOK, gin.H{
		"preferenceId":     pref.ID,
		"initPoint":        pref.InitPoint,
		"sandboxInitPoint": pref.SandboxInitPoint,
	})
}

// Webhook receives Mercado Pago notifications. Apart from a bad
// signature (401, so the gateway retries) the answer is always 200;
// processing failures are recorded in the event log instead.
func (ctl *PaymentController) Webhook(c *gin.Context) {
	rawBody, err := c.GetRawData()
	if err != nil {
		ctl.Log.Error().Err(err).Msg("failed to read webhook body")
		c.JSON(http.StatusOK, gin.H{"status": "error"})
		return
	}

	outcome, err := ctl.Payments.HandleWebhook(
		c.Request.Context(),
		rawBody,
		c.GetHeader("x-signature"),
		c.GetHeader("x-request-id"),
	)
	if err != nil {
		if errors.Is(err, services.ErrInvalidSignature) {
			utils.JSONError(c, http.StatusUnauthorized, "Assinatura do webhook inválida")
			return
		}
		ctl.Log.Error().Err(err).Msg("webhook processing failed")
		c.JSON(http.StatusOK, gin.H{"status": "error"})
		return
	}

	if outcome == "success" {
		ctl.Cache.Invalidate(honeymoonCacheTag)
		ctl.Cache.Invalidate(giftsCacheTag(models.EventCasamento))
		ctl.Cache.Invalidate(giftsCacheTag(models.EventChaPanela))
	}

	c.JSON(http.StatusOK, gin.H{"status": outcome})
}
