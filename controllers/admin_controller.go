package controllers

import (
	"crypto/subtle"
	"net/http"
	"os"
	"time"

	"wedding-backend/models"
	"wedding-backend/services"
	"wedding-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

type RevalidateRequest struct {
	Tag    string `json:"tag" binding:"required"`
	Secret string `json:"secret" binding:"required"`
}

// AdminController groups the manual maintenance endpoints: reservation
// cleanup, payment reconciliation and cache revalidation.
type AdminController struct {
	Gifts     *services.GiftService
	Honeymoon *services.HoneymoonService
	Payments  *services.PaymentService
	Cache     *utils.TagCache
	Log       zerolog.Logger
}

func NewAdminController(gifts *services.GiftService, honeymoon *services.HoneymoonService, payments *services.PaymentService, cache *utils.TagCache, log zerolog.Logger) *AdminController {
	return &AdminController{Gifts: gifts, Honeymoon: honeymoon, Payments: payments, Cache: cache, Log: log}
}

// ApprovePending re-checks every pending contribution against the
// gateway, the backstop for missed webhook deliveries.
func (ctl *AdminController) ApprovePending(c *gin.Context) {
	results, err := ctl.Payments.ApprovePending(c.Request.Context())
	if err != nil {
		ctl.Log.Error().Err(err).Msg("approve-pending pass failed")
		utils.JSONError(c, http.StatusInternalServerError, "Erro interno do servidor")
		return
	}

	ctl.Cache.Invalidate(honeymoonCacheTag)
	utils.JSONSuccess(c, http.StatusOK, gin.H{
		"processed": len(results),
		"results":   results,
	})
}

// ReleaseExpired frees every reservation whose 48h window has passed.
func (ctl *AdminController) ReleaseExpired(c *gin.Context) {
	released, err := ctl.Gifts.ReleaseExpired(time.Now().UTC())
	if err != nil {
		ctl.Log.Error().Err(err).Msg("release-expired pass failed")
		utils.JSONError(c, http.StatusInternalServerError, "Erro interno do servidor")
		return
	}

	if released > 0 {
		ctl.Cache.Invalidate(giftsCacheTag(models.EventCasamento))
		ctl.Cache.Invalidate(giftsCacheTag(models.EventChaPanela))
	}
	utils.JSONSuccess(c, http.StatusOK, gin.H{"released": released})
}

// Reconcile recomputes the goal amount from the ledger and purges stale
// pending rows.
func (ctl *AdminController) Reconcile(c *gin.Context) {
	result, err := ctl.Honeymoon.Reconcile(time.Now().UTC())
	if err != nil {
		ctl.Log.Error().Err(err).Msg("reconcile pass failed")
		utils.JSONError(c, http.StatusInternalServerError, "Erro interno do servidor")
		return
	}

	ctl.Cache.Invalidate(honeymoonCacheTag)
	utils.JSONSuccess(c, http.StatusOK, result)
}

// Revalidate drops every cached response carrying the tag. Guarded by
// its own shared secret so the frontend's deploy hook can call it
// without the admin header.
func (ctl *AdminController) Revalidate(c *gin.Context) {
	var req RevalidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Dados inválidos: tag e secret são obrigatórios")
		return
	}

	secret := os.Getenv("REVALIDATION_SECRET")
	if secret == "" || subtle.ConstantTimeCompare([]byte(req.Secret), []byte(secret)) != 1 {
		utils.JSONError(c, http.StatusUnauthorized, "Secret inválido")
		return
	}

	removed := ctl.Cache.Invalidate(req.Tag)
	utils.JSONMessage(c, http.StatusOK, "Cache revalidado", gin.H{
		"tag":     req.Tag,
		"removed": removed,
	})
}
