package handlers

import (
	"errors"
	"net/http"

	"github.com/Dosada05/ranked-portal/middleware"
	"github.com/Dosada05/ranked-portal/services"
)

const (
	defaultLeaderboardLimit = 20
	maxLeaderboardLimit     = 100
)

type RatingHandler struct {
	ratingService services.RatingService
}

func NewRatingHandler(rs services.RatingService) *RatingHandler {
	return &RatingHandler{ratingService: rs}
}

// GetRatingHistory godoc
// @Summary История рейтинга игрока
// @Tags players
// @Produce json
// @Param userID path int true "User ID"
// @Success 200 {object} services.RatingHistory
// @Failure 403 {object} map[string]string "История скрыта игроком"
// @Failure 404 {object} map[string]string "Игрок не найден"
// @Router /players/{userID}/rating-history [get]
func (h *RatingHandler) GetRatingHistory(w http.ResponseWriter, r *http.Request) {
	userID, err := getIDFromURL(r, "userID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	// Анонимный зритель видит только публичные истории
	viewerID := middleware.UserIDOrAnonymous(r.Context())

	history, err := h.ratingService.GetRatingHistory(r.Context(), viewerID, userID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, history, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Leaderboard godoc
// @Summary Таблица лидеров
// @Tags players
// @Produce json
// @Param limit query int false "Limit" default(20)
// @Param offset query int false "Offset" default(0)
// @Success 200 {object} map[string]interface{}
// @Router /players/leaderboard [get]
func (h *RatingHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", defaultLeaderboardLimit)
	if err != nil || limit <= 0 || limit > maxLeaderboardLimit {
		badRequestResponse(w, r, errors.New("invalid limit query parameter"))
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil || offset < 0 {
		badRequestResponse(w, r, errors.New("invalid offset query parameter"))
		return
	}

	ratings, err := h.ratingService.Leaderboard(r.Context(), limit, offset)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"leaderboard": ratings}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
