package controllers

import (
	"net/http"

	"wedding-backend/services"
	"wedding-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const honeymoonCacheTag = "honeymoon"

type HoneymoonController struct {
	Honeymoon *services.HoneymoonService
	Cache     *utils.TagCache
	Log       zerolog.Logger
}

func NewHoneymoonController(honeymoon *services.HoneymoonService, cache *utils.TagCache, log zerolog.Logger) *HoneymoonController {
	return &HoneymoonController{Honeymoon: honeymoon, Cache: cache, Log: log}
}

// Status returns the fundraising progress of the active goal. Without
// an active goal the payload is all zeroes with isActive=false.
func (ctl *HoneymoonController) Status(c *gin.Context) {
	const cacheKey = "honeymoon:status"
	if cached, ok := ctl.Cache.Get(cacheKey); ok {
		utils.JSONSuccess(c, http.StatusOK, cached)
		return
	}

	progress, err := ctl.Honeymoon.CalculateProgress()
	if err != nil {
		ctl.Log.Error().Err(err).Msg("failed to calculate honeymoon progress")
		utils.JSONError(c, http.StatusInternalServerError, "Erro interno do servidor")
		return
	}

	ctl.Cache.Set(cacheKey, progress, honeymoonCacheTag)
	utils.JSONSuccess(c, http.StatusOK, progress)
}
