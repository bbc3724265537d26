package controllers

import (
	"errors"
	"net/http"

	"wedding-backend/services"
	"wedding-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

type CreateRsvpRequest struct {
	NomeCompleto string  `json:"nomeCompleto" binding:"required,min=3"`
	Contato      string  `json:"contato" binding:"required,min=10"`
	Mensagem     *string `json:"mensagem" binding:"omitempty,max=500"`
}

type RsvpController struct {
	Rsvps *services.RsvpService
	Log   zerolog.Logger
}

func NewRsvpController(rsvps *services.RsvpService, log zerolog.Logger) *RsvpController {
	return &RsvpController{Rsvps: rsvps, Log: log}
}

// Create confirms attendance. A name that already confirmed for the
// same event type answers 409.
func (ctl *RsvpController) Create(c *gin.Context) {
	tipo, ok := eventTypeFromParam(c)
	if !ok {
		return
	}

	var req CreateRsvpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Dados inválidos: nome completo (mín. 3 caracteres) e contato (mín. 10 dígitos) são obrigatórios")
		return
	}

	rsvp, err := ctl.Rsvps.Create(tipo, req.NomeCompleto, req.Contato, req.Mensagem)
	if err != nil {
		if errors.Is(err, services.ErrDuplicateName) {
			utils.JSONError(c, http.StatusConflict, "Este nome já confirmou presença")
			return
		}
		ctl.Log.Error().Err(err).Str("tipo", tipo.String()).Msg("failed to create rsvp")
		utils.JSONError(c, http.StatusInternalServerError, "Erro interno do servidor")
		return
	}

	utils.JSONMessage(c, http.StatusCreated, "Presença confirmada com sucesso!", rsvp)
}

// List returns the confirmations for one event type, newest first.
func (ctl *RsvpController) List(c *gin.Context) {
	tipo, ok := eventTypeFromParam(c)
	if !ok {
		return
	}

	rsvps, err := ctl.Rsvps.ListByEventType(tipo)
	if err != nil {
		ctl.Log.Error().Err(err).Str("tipo", tipo.String()).Msg("failed to list rsvps")
		utils.JSONError(c, http.StatusInternalServerError, "Erro interno do servidor")
		return
	}
	utils.JSONSuccess(c, http.StatusOK, rsvps)
}
