package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/Dosada05/ranked-portal/models"
	"github.com/Dosada05/ranked-portal/services"
)

type ChallengeHandler struct {
	challengeService services.ChallengeService
}

func NewChallengeHandler(cs services.ChallengeService) *ChallengeHandler {
	return &ChallengeHandler{challengeService: cs}
}

// CreateChallenge godoc
// @Summary Вызвать игрока на рейтинговую дуэль
// @Tags challenges
// @Accept json
// @Produce json
// @Param input body services.CreateChallengeInput true "Соперник"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} map[string]string "Нельзя вызвать себя"
// @Failure 404 {object} map[string]string "Соперник не найден"
// @Security BearerAuth
// @Router /challenges [post]
func (h *ChallengeHandler) CreateChallenge(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	var input services.CreateChallengeInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	challenge, err := h.challengeService.Create(r.Context(), userID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"challenge": challenge}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ListMyChallenges godoc
// @Summary Мои дуэли
// @Tags challenges
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /challenges [get]
func (h *ChallengeHandler) ListMyChallenges(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	challenges, err := h.challengeService.ListForUser(r.Context(), userID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"challenges": challenges}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// GetChallenge godoc
// @Summary Получить дуэль
// @Tags challenges
// @Produce json
// @Param challengeID path int true "Challenge ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string "Дуэль не найдена"
// @Router /challenges/{challengeID} [get]
func (h *ChallengeHandler) GetChallenge(w http.ResponseWriter, r *http.Request) {
	challengeID, err := getIDFromURL(r, "challengeID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	challenge, err := h.challengeService.Get(r.Context(), challengeID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"challenge": challenge}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// AcceptChallenge godoc
// @Summary Принять вызов
// @Tags challenges
// @Produce json
// @Param challengeID path int true "Challenge ID"
// @Success 200 {object} map[string]interface{}
// @Failure 409 {object} map[string]string "Вызов уже обработан"
// @Security BearerAuth
// @Router /challenges/{challengeID}/accept [post]
func (h *ChallengeHandler) AcceptChallenge(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, h.challengeService.Accept)
}

// DeclineChallenge godoc
// @Summary Отклонить вызов
// @Description Соперник отклоняет новый вызов; после сообщения результата отклонить его может вторая сторона, рейтинг не меняется
// @Tags challenges
// @Produce json
// @Param challengeID path int true "Challenge ID"
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} map[string]string "Нельзя отклонить свой результат"
// @Failure 409 {object} map[string]string "Вызов уже обработан"
// @Security BearerAuth
// @Router /challenges/{challengeID}/decline [post]
func (h *ChallengeHandler) DeclineChallenge(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, h.challengeService.Decline)
}

// ConfirmChallenge godoc
// @Summary Подтвердить результат дуэли
// @Tags challenges
// @Produce json
// @Param challengeID path int true "Challenge ID"
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} map[string]string "Нельзя подтвердить свой результат"
// @Security BearerAuth
// @Router /challenges/{challengeID}/confirm [post]
func (h *ChallengeHandler) ConfirmChallenge(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, h.challengeService.Confirm)
}

// ReportChallenge godoc
// @Summary Сообщить победителя дуэли
// @Tags challenges
// @Accept json
// @Produce json
// @Param challengeID path int true "Challenge ID"
// @Param input body services.ReportChallengeInput true "Победитель"
// @Success 200 {object} map[string]interface{}
// @Failure 409 {object} map[string]string "Результат уже сообщён"
// @Security BearerAuth
// @Router /challenges/{challengeID}/report [post]
func (h *ChallengeHandler) ReportChallenge(w http.ResponseWriter, r *http.Request) {
	var input services.ReportChallengeInput
	h.act(w, r, func(ctx context.Context, actorID, challengeID int) (*models.Challenge, error) {
		if err := readJSON(w, r, &input); err != nil {
			return nil, badRequestError{err}
		}
		return h.challengeService.Report(ctx, actorID, challengeID, input)
	})
}

// badRequestError marks a decoding failure raised inside act.
type badRequestError struct{ err error }

func (e badRequestError) Error() string { return e.err.Error() }

func (h *ChallengeHandler) act(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, actorID, challengeID int) (*models.Challenge, error)) {
	challengeID, err := getIDFromURL(r, "challengeID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	challenge, err := fn(r.Context(), userID, challengeID)
	if err != nil {
		var bre badRequestError
		if errors.As(err, &bre) {
			badRequestResponse(w, r, bre.err)
			return
		}
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"challenge": challenge}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
