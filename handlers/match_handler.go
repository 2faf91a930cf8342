package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/Dosada05/ranked-portal/services"
)

// evidenceFormOverhead is allowed on top of the file for multipart framing.
const evidenceFormOverhead = 1 << 20

type MatchHandler struct {
	matchService    services.MatchService
	evidenceService services.EvidenceService
	logger          *slog.Logger
}

func NewMatchHandler(ms services.MatchService, es services.EvidenceService, logger *slog.Logger) *MatchHandler {
	return &MatchHandler{
		matchService:    ms,
		evidenceService: es,
		logger:          logger,
	}
}

// GetMatch godoc
// @Summary Получить матч
// @Tags matches
// @Produce json
// @Param matchID path int true "Match ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string "Матч не найден"
// @Router /matches/{matchID} [get]
func (h *MatchHandler) GetMatch(w http.ResponseWriter, r *http.Request) {
	matchID, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	match, err := h.matchService.GetMatch(r.Context(), matchID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ReportResult godoc
// @Summary Сообщить результат матча
// @Tags matches
// @Accept json
// @Produce json
// @Param matchID path int true "Match ID"
// @Param input body services.ReportResultInput true "Результат"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]string "Некорректный счёт"
// @Failure 403 {object} map[string]string "Не участник матча"
// @Failure 409 {object} map[string]string "Результат уже сообщён или матч завершён"
// @Security BearerAuth
// @Router /matches/{matchID}/report [post]
func (h *MatchHandler) ReportResult(w http.ResponseWriter, r *http.Request) {
	matchID, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	var input services.ReportResultInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	match, err := h.matchService.ReportResult(r.Context(), userID, matchID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ConfirmResult godoc
// @Summary Подтвердить результат соперника
// @Tags matches
// @Produce json
// @Param matchID path int true "Match ID"
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} map[string]string "Нельзя подтвердить свой результат"
// @Failure 409 {object} map[string]string "Матч уже завершён или оспорен"
// @Security BearerAuth
// @Router /matches/{matchID}/confirm [post]
func (h *MatchHandler) ConfirmResult(w http.ResponseWriter, r *http.Request) {
	matchID, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	match, err := h.matchService.ConfirmResult(r.Context(), userID, matchID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// DisputeResult godoc
// @Summary Оспорить результат
// @Tags matches
// @Accept json
// @Produce json
// @Param matchID path int true "Match ID"
// @Param input body services.DisputeResultInput true "Причина"
// @Success 201 {object} map[string]interface{}
// @Failure 409 {object} map[string]string "Спор уже открыт"
// @Security BearerAuth
// @Router /matches/{matchID}/dispute [post]
func (h *MatchHandler) DisputeResult(w http.ResponseWriter, r *http.Request) {
	matchID, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	var input services.DisputeResultInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	dispute, err := h.matchService.DisputeResult(r.Context(), userID, matchID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"dispute": dispute}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// UploadEvidence godoc
// @Summary Загрузить доказательство результата
// @Tags matches
// @Accept multipart/form-data
// @Produce json
// @Param matchID path int true "Match ID"
// @Param file formData file true "Скриншот или видео"
// @Success 201 {object} map[string]interface{}
// @Failure 413 {object} map[string]string "Файл слишком большой"
// @Failure 415 {object} map[string]string "Неподдерживаемый тип файла"
// @Security BearerAuth
// @Router /matches/{matchID}/evidence [post]
func (h *MatchHandler) UploadEvidence(w http.ResponseWriter, r *http.Request) {
	matchID, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, services.MaxEvidenceSize+evidenceFormOverhead)
	if err := r.ParseMultipartForm(services.MaxEvidenceSize); err != nil {
		var maxBytesError *http.MaxBytesError
		if errors.As(err, &maxBytesError) {
			mapServiceErrorToHTTP(w, r, services.ErrEvidenceTooLarge)
			return
		}
		badRequestResponse(w, r, errors.New("invalid multipart form"))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		badRequestResponse(w, r, errors.New("form field \"file\" is required"))
		return
	}
	defer file.Close()

	upload, err := h.evidenceService.UploadEvidence(r.Context(), userID, matchID, file, header.Size, header.Header.Get("Content-Type"), header.Filename)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "evidence uploaded", slog.Int("match_id", matchID), slog.Int("user_id", userID), slog.String("key", upload.Key))
	if err := writeJSON(w, http.StatusCreated, jsonResponse{"evidence": upload}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
