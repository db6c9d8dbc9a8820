package services

import (
	"errors"
	"fmt"

	"github.com/Dosada05/tournament-ladder/models"
	"github.com/Dosada05/tournament-ladder/repositories"
)

func isValidStatusTransition(current, next models.TournamentStatus) bool {
	if current == next {
		return true
	}
	allowedTransitions := map[models.TournamentStatus][]models.TournamentStatus{
		models.StatusRegistration: {models.StatusOngoing},
		models.StatusOngoing:      {models.StatusFinished},
		models.StatusFinished:     {},
	}
	for _, allowedNextStatus := range allowedTransitions[current] {
		if next == allowedNextStatus {
			return true
		}
	}
	return false
}

// handleRepositoryError translates repository sentinels into service errors. Anything it does
// not recognise is a storage failure.
func handleRepositoryError(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, repositories.ErrTournamentNotFound),
		errors.Is(err, repositories.ErrParticipantTournamentInvalid),
		errors.Is(err, repositories.ErrMatchTournamentInvalid):
		return ErrTournamentNotFound
	case errors.Is(err, repositories.ErrMatchNotFound):
		return ErrMatchNotFound
	case errors.Is(err, repositories.ErrUserNotFound),
		errors.Is(err, repositories.ErrParticipantUserInvalid),
		errors.Is(err, repositories.ErrTournamentInvalidOrg):
		return ErrUserNotFound
	case errors.Is(err, repositories.ErrParticipantConflict):
		return ErrAlreadyRegistered
	case errors.Is(err, repositories.ErrMatchNotPending):
		return ErrMatchNotPending
	}
	// Already classified by a nested call.
	var svcErr *serviceError
	if errors.As(err, &svcErr) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", ErrStorage, fmt.Sprintf(format, args...), err)
}

func intPtr(v int) *int {
	return &v
}
