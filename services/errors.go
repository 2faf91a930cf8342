package services

import (
	"errors"

	"github.com/Dosada05/ranked-portal/brackets"
	"github.com/Dosada05/ranked-portal/ledger"
	"github.com/Dosada05/ranked-portal/storage"
)

// Общие ошибки, используемые в разных сервисах и маппинге HTTP.
var (
	ErrValidationFailed   = errors.New("validation failed")
	ErrForbiddenOperation = errors.New("operation not allowed for the current user")

	ErrUserNotFound        = errors.New("user not found")
	ErrTournamentNotFound  = errors.New("tournament not found")
	ErrParticipantNotFound = errors.New("participant registration not found")
	ErrMatchNotFound       = errors.New("match not found")
	ErrDisputeNotFound     = errors.New("dispute not found")
	ErrChallengeNotFound   = errors.New("challenge not found")

	ErrRegistrationNotOpen               = errors.New("tournament registration is not open")
	ErrTournamentFull                    = errors.New("tournament registration is full")
	ErrRegistrationConflict              = errors.New("user is already registered for this tournament")
	ErrCheckInNotOpen                    = errors.New("tournament check-in is not open")
	ErrTournamentNotActive               = errors.New("tournament is not active")
	ErrTournamentInvalidStatusTransition = errors.New("invalid tournament status transition")
	ErrTournamentNameConflict            = errors.New("tournament name already exists")
	ErrNotEnoughParticipants             = brackets.ErrNotEnoughParticipants
	ErrByesNotAllowed                    = brackets.ErrByesNotAllowed

	// Match ledger outcomes.
	ErrInvalidTransition  = ledger.ErrInvalidTransition
	ErrInvalidScore       = ledger.ErrInvalidScore
	ErrNotAParticipant    = ledger.ErrNotAParticipant
	ErrSelfConfirmation   = ledger.ErrSelfConfirmation
	ErrAlreadyReported    = ledger.ErrAlreadyReported
	ErrAlreadyFinalized   = ledger.ErrAlreadyFinalized
	ErrDisputeAlreadyOpen = ledger.ErrDisputeAlreadyOpen

	ErrNotModerator           = errors.New("actor lacks the moderator capability")
	ErrDisputeAlreadyResolved = errors.New("dispute is already resolved")
	// ErrConcurrentUpdate means a row changed between read and write; the
	// caller should refetch.
	ErrConcurrentUpdate = errors.New("resource was modified concurrently")
	// ErrAdvancementConflict is a bracket integrity fault. It halts the
	// tournament's progression and must reach an operator.
	ErrAdvancementConflict = errors.New("bracket advancement conflict")

	ErrRatingHistoryPrivate = errors.New("rating history is private")
	ErrChallengeSelf        = errors.New("cannot challenge yourself")

	ErrEvidenceTooLarge    = errors.New("evidence file is too large")
	ErrEvidenceUnsupported = errors.New("evidence file type is not supported")
	ErrStorageDisabled     = storage.ErrStorageDisabled
)

var errorCodes = []struct {
	err  error
	code string
}{
	{ErrInvalidTransition, "invalid_transition"},
	{ErrInvalidScore, "invalid_score"},
	{ErrNotAParticipant, "not_a_participant"},
	{ErrSelfConfirmation, "self_confirmation"},
	{ErrAlreadyReported, "already_reported"},
	{ErrAlreadyFinalized, "already_finalized"},
	{ErrDisputeAlreadyOpen, "dispute_already_open"},
	{ErrNotModerator, "not_moderator"},
	{ErrDisputeAlreadyResolved, "dispute_already_resolved"},
	{ErrConcurrentUpdate, "concurrent_update"},
	{ErrAdvancementConflict, "advancement_conflict"},
	{ErrDisputeNotFound, "dispute_not_found"},
	{ErrMatchNotFound, "match_not_found"},
	{ErrTournamentNotFound, "tournament_not_found"},
	{ErrParticipantNotFound, "participant_not_found"},
	{ErrChallengeNotFound, "challenge_not_found"},
	{ErrUserNotFound, "user_not_found"},
	{ErrTournamentNotActive, "tournament_not_active"},
	{ErrTournamentInvalidStatusTransition, "invalid_status_transition"},
	{ErrRegistrationNotOpen, "registration_not_open"},
	{ErrTournamentFull, "tournament_full"},
	{ErrRegistrationConflict, "already_registered"},
	{ErrCheckInNotOpen, "check_in_not_open"},
	{ErrTournamentNameConflict, "tournament_name_conflict"},
	{ErrNotEnoughParticipants, "not_enough_participants"},
	{ErrByesNotAllowed, "byes_not_allowed"},
	{ErrRatingHistoryPrivate, "rating_history_private"},
	{ErrChallengeSelf, "challenge_self"},
	{ErrEvidenceTooLarge, "evidence_too_large"},
	{ErrEvidenceUnsupported, "evidence_unsupported"},
	{ErrStorageDisabled, "storage_disabled"},
	{ErrForbiddenOperation, "forbidden"},
	{ErrValidationFailed, "validation_failed"},
}

// ErrorCode returns a stable machine-readable code for err, or "internal".
func ErrorCode(err error) string {
	if err == nil {
		return "ok"
	}
	for _, ec := range errorCodes {
		if errors.Is(err, ec.err) {
			return ec.code
		}
	}
	return "internal"
}

// IsAuthorizationFailure reports whether err is a permission denial worth
// recording for abuse monitoring.
func IsAuthorizationFailure(err error) bool {
	return errors.Is(err, ErrNotAParticipant) ||
		errors.Is(err, ErrSelfConfirmation) ||
		errors.Is(err, ErrNotModerator)
}
