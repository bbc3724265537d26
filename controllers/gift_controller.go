package controllers

import (
	"errors"
	"net/http"
	"time"

	"wedding-backend/models"
	"wedding-backend/services"
	"wedding-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// ---------------------------
// Payload / DTOs
// ---------------------------

type ReserveGiftRequest struct {
	GiftID string `json:"giftId" binding:"required"`
	Name   string `json:"name" binding:"required,min=3"`
	Phone  string `json:"phone" binding:"required,min=10"`
}

type GiftActionRequest struct {
	GiftID string `json:"giftId" binding:"required"`
	Code   string `json:"code" binding:"required,len=6"`
}

// giftView adds the derived status the frontend renders the card from.
type giftView struct {
	models.Gift
	Status models.GiftStatus `json:"status"`
}

// ---------------------------
// Controller
// ---------------------------

type GiftController struct {
	Gifts *services.GiftService
	Cache *utils.TagCache
	Log   zerolog.Logger
}

func NewGiftController(gifts *services.GiftService, cache *utils.TagCache, log zerolog.Logger) *GiftController {
	return &GiftController{Gifts: gifts, Cache: cache, Log: log}
}

func giftsCacheTag(tipo models.EventType) string { return "gifts-" + tipo.String() }

func eventTypeFromParam(c *gin.Context) (models.EventType, bool) {
	tipo, ok := models.NormalizeEventType(c.Param("tipo"))
	if !ok {
		utils.JSONError(c, http.StatusBadRequest, "Tipo de evento inválido")
		return "", false
	}
	return tipo, true
}

// GetGifts lists the registry for one event type, ordered for display.
// Responses are cached per event type and invalidated on every mutation.
func (ctl *GiftController) GetGifts(c *gin.Context) {
	tipo, ok := eventTypeFromParam(c)
	if !ok {
		return
	}

	cacheKey := "gifts:" + tipo.String()
	if cached, ok := ctl.Cache.Get(cacheKey); ok {
		utils.JSONSuccess(c, http.StatusOK, cached)
		return
	}

	gifts, err := ctl.Gifts.ListByEventType(tipo)
	if err != nil {
		ctl.Log.Error().Err(err).Str("tipo", tipo.String()).Msg("failed to list gifts")
		utils.JSONError(c, http.StatusInternalServerError, "Erro interno do servidor")
		return
	}

	now := time.Now().UTC()
	views := make([]giftView, 0, len(gifts))
	for _, gift := range gifts {
		views = append(views, giftView{Gift: gift, Status: gift.Status(now)})
	}

	ctl.Cache.Set(cacheKey, views, giftsCacheTag(tipo))
	utils.JSONSuccess(c, http.StatusOK, views)
}

// Reserve holds a gift and returns the one-time access code the guest
// needs to cancel or confirm later.
func (ctl *GiftController) Reserve(c *gin.Context) {
	tipo, ok := eventTypeFromParam(c)
	if !ok {
		return
	}

	var req ReserveGiftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Dados inválidos: nome (mín. 3 caracteres) e telefone (mín. 10 dígitos) são obrigatórios")
		return
	}

	code, err := ctl.Gifts.Reserve(tipo, req.GiftID, req.Name, req.Phone)
	if err != nil {
		ctl.giftError(c, err)
		return
	}

	ctl.Cache.Invalidate(giftsCacheTag(tipo))
	utils.JSONMessage(c, http.StatusOK, "Presente reservado com sucesso! Guarde o código de acesso.", gin.H{
		"code":         code,
		"expiresHours": int(utils.ReservationWindow.Hours()),
	})
}

// CancelReservation releases a gift when the access code matches.
func (ctl *GiftController) CancelReservation(c *gin.Context) {
	tipo, ok := eventTypeFromParam(c)
	if !ok {
		return
	}

	var req GiftActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Dados inválidos: código de 6 dígitos é obrigatório")
		return
	}

	if err := ctl.Gifts.CancelReservation(tipo, req.GiftID, req.Code); err != nil {
		ctl.giftError(c, err)
		return
	}

	ctl.Cache.Invalidate(giftsCacheTag(tipo))
	utils.JSONMessage(c, http.StatusOK, "Reserva cancelada com sucesso", nil)
}

// MarkPurchased confirms the purchase of a reserved gift.
func (ctl *GiftController) MarkPurchased(c *gin.Context) {
	tipo, ok := eventTypeFromParam(c)
	if !ok {
		return
	}

	var req GiftActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Dados inválidos: código de 6 dígitos é obrigatório")
		return
	}

	if err := ctl.Gifts.MarkAsPurchased(tipo, req.GiftID, req.Code); err != nil {
		ctl.giftError(c, err)
		return
	}

	ctl.Cache.Invalidate(giftsCacheTag(tipo))
	utils.JSONMessage(c, http.StatusOK, "Compra confirmada. Obrigado!", nil)
}

func (ctl *GiftController) giftError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrGiftNotFound):
		utils.JSONError(c, http.StatusNotFound, "Presente não encontrado")
	case errors.Is(err, services.ErrGiftNotAvailable):
		utils.JSONError(c, http.StatusBadRequest, "Este presente não está mais disponível")
	case errors.Is(err, services.ErrInvalidCode):
		utils.JSONError(c, http.StatusBadRequest, "Código de acesso inválido")
	case errors.Is(err, services.ErrGiftNotReserved):
		utils.JSONError(c, http.StatusBadRequest, "Este presente não está reservado")
	default:
		ctl.Log.Error().Err(err).Msg("gift operation failed")
		utils.JSONError(c, http.StatusInternalServerError, "Erro interno do servidor")
	}
}
