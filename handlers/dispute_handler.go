package handlers

import (
	"errors"
	"net/http"

	"github.com/Dosada05/ranked-portal/models"
	"github.com/Dosada05/ranked-portal/repositories"
	"github.com/Dosada05/ranked-portal/services"
)

type DisputeHandler struct {
	arbitrationService services.ArbitrationService
}

func NewDisputeHandler(as services.ArbitrationService) *DisputeHandler {
	return &DisputeHandler{arbitrationService: as}
}

// ListDisputes godoc
// @Summary Очередь споров для модераторов
// @Tags disputes
// @Produce json
// @Param status query string false "pending | resolved"
// @Param tournament_id query int false "Tournament ID"
// @Param limit query int false "Limit" default(50)
// @Param offset query int false "Offset" default(0)
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} map[string]string "Нет прав модератора"
// @Security BearerAuth
// @Router /disputes [get]
func (h *DisputeHandler) ListDisputes(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	var filter repositories.ListDisputesFilter
	if statusStr := r.URL.Query().Get("status"); statusStr != "" {
		status := models.DisputeStatus(statusStr)
		if status != models.DisputeStatusPending && status != models.DisputeStatusResolved {
			badRequestResponse(w, r, errors.New("invalid status query parameter"))
			return
		}
		filter.Status = &status
	}
	tournamentID, err := queryInt(r, "tournament_id", 0)
	if err != nil || tournamentID < 0 {
		badRequestResponse(w, r, errors.New("invalid tournament_id query parameter"))
		return
	}
	if tournamentID > 0 {
		filter.TournamentID = &tournamentID
	}
	if filter.Limit, err = queryInt(r, "limit", 0); err != nil || filter.Limit < 0 {
		badRequestResponse(w, r, errors.New("invalid limit query parameter"))
		return
	}
	if filter.Offset, err = queryInt(r, "offset", 0); err != nil || filter.Offset < 0 {
		badRequestResponse(w, r, errors.New("invalid offset query parameter"))
		return
	}

	disputes, err := h.arbitrationService.ListDisputes(r.Context(), userID, filter)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"disputes": disputes}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// GetDispute godoc
// @Summary Получить спор
// @Tags disputes
// @Produce json
// @Param disputeID path int true "Dispute ID"
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} map[string]string "Нет прав модератора"
// @Failure 404 {object} map[string]string "Спор не найден"
// @Security BearerAuth
// @Router /disputes/{disputeID} [get]
func (h *DisputeHandler) GetDispute(w http.ResponseWriter, r *http.Request) {
	disputeID, err := getIDFromURL(r, "disputeID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	dispute, err := h.arbitrationService.GetDispute(r.Context(), userID, disputeID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"dispute": dispute}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ResolveDispute godoc
// @Summary Вынести решение по спору
// @Tags disputes
// @Accept json
// @Produce json
// @Param disputeID path int true "Dispute ID"
// @Param input body services.ResolveDisputeInput true "Решение"
// @Success 200 {object} services.DisputeResolutionResult
// @Failure 403 {object} map[string]string "Нет прав модератора"
// @Failure 409 {object} map[string]string "Спор уже решён"
// @Security BearerAuth
// @Router /disputes/{disputeID}/resolve [post]
func (h *DisputeHandler) ResolveDispute(w http.ResponseWriter, r *http.Request) {
	disputeID, err := getIDFromURL(r, "disputeID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	var input services.ResolveDisputeInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	result, err := h.arbitrationService.ResolveDispute(r.Context(), userID, disputeID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, result, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
