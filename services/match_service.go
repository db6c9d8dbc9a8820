package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Dosada05/tournament-ladder/brackets"
	"github.com/Dosada05/tournament-ladder/models"
	"github.com/Dosada05/tournament-ladder/repositories"
	"github.com/Dosada05/tournament-ladder/storage"
)

type RecordMatchResultInput struct {
	Player1Score *int               `json:"player1_score"`
	Player2Score *int               `json:"player2_score"`
	Source       models.MatchSource `json:"source,omitempty"`
}

type MatchResult struct {
	Match *models.Match `json:"match"`
	// WinnerID is nil for a draw.
	WinnerID *int `json:"winner_id"`
	RoundOutcome
}

type MatchService interface {
	// RecordMatchResult finishes a pending match and runs the round decision for its round.
	RecordMatchResult(ctx context.Context, tournamentID, matchID int, input RecordMatchResultInput) (*MatchResult, error)
	// AdvanceRound re-runs the round decision for the tournament's current round, for when an
	// earlier advance failed after the result was stored.
	AdvanceRound(ctx context.Context, tournamentID, actorID int) (*RoundOutcome, error)
	ListMatches(ctx context.Context, tournamentID int, round *int) ([]*models.Match, error)
}

type matchService struct {
	txRunner       repositories.TxRunner
	tournamentRepo repositories.TournamentRepository
	matchRepo      repositories.MatchRepository
	locker         TournamentLocker
	rounds         *roundController
	logger         *slog.Logger
	now            func() time.Time
}

func NewMatchService(
	txRunner repositories.TxRunner,
	tournamentRepo repositories.TournamentRepository,
	participantRepo repositories.ParticipantRepository,
	matchRepo repositories.MatchRepository,
	locker TournamentLocker,
	archive *storage.ResultsArchive,
	policy brackets.RoundPolicy,
	logger *slog.Logger,
) MatchService {
	if logger == nil {
		logger = slog.Default()
	}
	now := time.Now
	return &matchService{
		txRunner:       txRunner,
		tournamentRepo: tournamentRepo,
		matchRepo:      matchRepo,
		locker:         locker,
		rounds: &roundController{
			txRunner:        txRunner,
			tournamentRepo:  tournamentRepo,
			participantRepo: participantRepo,
			matchRepo:       matchRepo,
			archive:         archive,
			policy:          policy,
			logger:          logger,
			now:             now,
		},
		logger: logger,
		now:    now,
	}
}

func validateResultInput(input *RecordMatchResultInput) error {
	if input.Player1Score == nil || input.Player2Score == nil {
		return ErrMissingScores
	}
	if *input.Player1Score < 0 || *input.Player2Score < 0 {
		return ErrNegativeScore
	}
	if input.Source == "" {
		input.Source = models.MatchSourceManual
	}
	if !input.Source.Valid() {
		return ErrInvalidMatchSource
	}
	return nil
}

func (s *matchService) RecordMatchResult(ctx context.Context, tournamentID, matchID int, input RecordMatchResultInput) (*MatchResult, error) {
	if err := validateResultInput(&input); err != nil {
		return nil, err
	}

	unlock := s.locker.Lock(tournamentID)
	defer unlock()

	var match *models.Match
	err := s.txRunner.RunInTx(ctx, func(exec repositories.SQLExecutor) error {
		// Row lock orders this write before any concurrent round decision.
		if _, err := s.tournamentRepo.GetByID(ctx, exec, tournamentID, true); err != nil {
			return handleRepositoryError(err, "load tournament %d", tournamentID)
		}

		var err error
		match, err = s.matchRepo.GetByID(ctx, exec, matchID, true)
		if err != nil {
			return handleRepositoryError(err, "load match %d", matchID)
		}
		if match.TournamentID != tournamentID {
			return ErrMatchNotFound
		}
		if match.Status != models.MatchStatusPending {
			return ErrMatchNotPending
		}

		applyResult(match, *input.Player1Score, *input.Player2Score, input.Source, s.now().UTC())
		if err := s.matchRepo.RecordResult(ctx, exec, match); err != nil {
			return handleRepositoryError(err, "record result of match %d", matchID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	result := &MatchResult{Match: match, WinnerID: match.WinnerID}
	outcome, err := s.rounds.completeRound(ctx, tournamentID, match.Round)
	if err != nil {
		s.logger.ErrorContext(ctx, "round advance failed after match result was stored",
			slog.Int("tournament_id", tournamentID),
			slog.Int("match_id", matchID),
			slog.Int("round", match.Round),
			slog.Any("error", err))
		return nil, fmt.Errorf("%w: %w", ErrRoundAdvanceFailed, err)
	}
	result.RoundOutcome = outcome
	return result, nil
}

// applyResult stamps scores and the winner; equal scores leave WinnerID nil.
func applyResult(match *models.Match, p1Score, p2Score int, source models.MatchSource, playedAt time.Time) {
	match.Player1Score = intPtr(p1Score)
	match.Player2Score = intPtr(p2Score)
	match.WinnerID = nil
	switch {
	case p1Score > p2Score:
		match.WinnerID = intPtr(match.Player1ID)
	case p2Score > p1Score && match.Player2ID != nil:
		match.WinnerID = intPtr(*match.Player2ID)
	}
	match.Status = models.MatchStatusFinished
	match.Source = source
	match.PlayedAt = &playedAt
}

func (s *matchService) AdvanceRound(ctx context.Context, tournamentID, actorID int) (*RoundOutcome, error) {
	unlock := s.locker.Lock(tournamentID)
	defer unlock()

	tournament, err := s.tournamentRepo.GetByID(ctx, nil, tournamentID, false)
	if err != nil {
		return nil, handleRepositoryError(err, "load tournament %d", tournamentID)
	}
	if tournament.OrganizerID != actorID {
		return nil, ErrOrganizerOnly
	}
	if tournament.IsFinished() {
		return &RoundOutcome{TournamentFinished: true, Round: tournament.CurrentRound}, nil
	}
	if tournament.Status != models.StatusOngoing {
		return nil, ErrTournamentNotOngoing
	}

	outcome, err := s.rounds.completeRound(ctx, tournamentID, tournament.CurrentRound)
	if err != nil {
		if errors.Is(err, ErrStorage) {
			s.logger.ErrorContext(ctx, "round advance retry failed",
				slog.Int("tournament_id", tournamentID), slog.Any("error", err))
			return nil, fmt.Errorf("%w: %w", ErrRoundAdvanceFailed, err)
		}
		return nil, err
	}
	return &outcome, nil
}

func (s *matchService) ListMatches(ctx context.Context, tournamentID int, round *int) ([]*models.Match, error) {
	if round != nil && *round < 1 {
		return nil, ErrInvalidRound
	}
	if _, err := s.tournamentRepo.GetByID(ctx, nil, tournamentID, false); err != nil {
		return nil, handleRepositoryError(err, "load tournament %d", tournamentID)
	}
	matches, err := s.matchRepo.ListByTournament(ctx, nil, tournamentID, round, nil)
	if err != nil {
		return nil, handleRepositoryError(err, "list matches of tournament %d", tournamentID)
	}
	return matches, nil
}
