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

var errRoundClaimLost = errors.New("round version claimed by another request")

// RoundOutcome reports what completing a round did. A zero value means the round is still open.
type RoundOutcome struct {
	NextRoundCreated   bool `json:"next_round_created"`
	TournamentFinished bool `json:"tournament_finished"`
	// Round is the tournament's current round after the decision.
	Round            int `json:"round"`
	NextRoundMatches int `json:"next_round_matches"`
}

// roundController decides, once per (tournament, round), whether a completed round finishes
// the tournament or produces the next one. Callers must hold the tournament's lock.
type roundController struct {
	txRunner        repositories.TxRunner
	tournamentRepo  repositories.TournamentRepository
	participantRepo repositories.ParticipantRepository
	matchRepo       repositories.MatchRepository
	archive         *storage.ResultsArchive
	policy          brackets.RoundPolicy
	logger          *slog.Logger
	now             func() time.Time
}

func (c *roundController) completeRound(ctx context.Context, tournamentID, round int) (RoundOutcome, error) {
	var outcome RoundOutcome
	finishedNow := false

	err := c.txRunner.RunInTx(ctx, func(exec repositories.SQLExecutor) error {
		outcome = RoundOutcome{}
		finishedNow = false

		tournament, err := c.tournamentRepo.GetByID(ctx, exec, tournamentID, true)
		if err != nil {
			return handleRepositoryError(err, "load tournament %d", tournamentID)
		}

		switch {
		case tournament.IsFinished():
			outcome = RoundOutcome{TournamentFinished: true, Round: tournament.CurrentRound}
			return nil
		case tournament.Status != models.StatusOngoing:
			return ErrTournamentNotOngoing
		case tournament.CurrentRound != round:
			// Another request already advanced past this round.
			current := tournament.CurrentRound
			existing, err := c.matchRepo.ListByTournament(ctx, exec, tournamentID, &current, nil)
			if err != nil {
				return handleRepositoryError(err, "list matches of round %d", current)
			}
			outcome = RoundOutcome{NextRoundCreated: true, Round: current, NextRoundMatches: len(existing)}
			return nil
		}

		pending, err := c.matchRepo.CountPending(ctx, exec, tournamentID, round)
		if err != nil {
			return handleRepositoryError(err, "count pending matches")
		}
		if pending > 0 {
			outcome = RoundOutcome{Round: round}
			return nil
		}

		participants, err := c.participantRepo.ListByTournament(ctx, exec, tournamentID)
		if err != nil {
			return handleRepositoryError(err, "list participants")
		}
		matches, err := c.matchRepo.ListByTournament(ctx, exec, tournamentID, nil, nil)
		if err != nil {
			return handleRepositoryError(err, "list matches")
		}
		standings := brackets.ComputeStandings(participants, matches)

		if c.policy.ShouldFinish(round, len(standings)) {
			if err := c.finish(ctx, exec, tournamentID, round, standings); err != nil {
				return err
			}
			outcome = RoundOutcome{TournamentFinished: true, Round: round}
			finishedNow = true
			return nil
		}

		created, err := c.advance(ctx, exec, tournamentID, round, standings)
		if err != nil {
			return err
		}
		outcome = RoundOutcome{NextRoundCreated: true, Round: round + 1, NextRoundMatches: created}
		return nil
	})
	if err != nil {
		return RoundOutcome{}, err
	}

	log := c.logger.With(slog.Int("tournament_id", tournamentID), slog.Int("round", round))
	switch {
	case finishedNow:
		log.InfoContext(ctx, "tournament finished")
		c.publishResults(ctx, tournamentID)
	case outcome.NextRoundCreated && outcome.Round == round+1:
		log.InfoContext(ctx, "round advanced", slog.Int("next_round_matches", outcome.NextRoundMatches))
	}
	return outcome, nil
}

func (c *roundController) finish(ctx context.Context, exec repositories.SQLExecutor, tournamentID, round int, standings []models.Standing) error {
	if len(standings) == 0 {
		return fmt.Errorf("%w: tournament %d has no standings to pick a winner from", ErrStorage, tournamentID)
	}
	winnerID := standings[0].UserID

	claimed, err := c.tournamentRepo.Finish(ctx, exec, tournamentID, round, winnerID, c.now().UTC())
	if err != nil {
		return handleRepositoryError(err, "finish tournament %d", tournamentID)
	}
	if !claimed {
		return fmt.Errorf("%w: finish round %d: %w", ErrStorage, round, errRoundClaimLost)
	}

	for _, s := range standings {
		status := models.ParticipantEliminated
		if s.UserID == winnerID {
			status = models.ParticipantWinner
		}
		if err := c.participantRepo.UpdateStatus(ctx, exec, tournamentID, s.UserID, status); err != nil {
			return handleRepositoryError(err, "update status of participant %d", s.UserID)
		}
	}
	return nil
}

func (c *roundController) advance(ctx context.Context, exec repositories.SQLExecutor, tournamentID, round int, standings []models.Standing) (int, error) {
	claimed, err := c.tournamentRepo.ClaimNextRound(ctx, exec, tournamentID, round)
	if err != nil {
		return 0, handleRepositoryError(err, "claim round %d", round+1)
	}
	if !claimed {
		return 0, fmt.Errorf("%w: advance from round %d: %w", ErrStorage, round, errRoundClaimLost)
	}

	nextRound := round + 1
	generator := brackets.GeneratorForRound(nextRound)
	matches, err := generator.GenerateBracket(ctx, brackets.GenerateBracketParams{
		TournamentID: tournamentID,
		Round:        nextRound,
		Standings:    standings,
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %s pairing for round %d: %w", ErrStorage, generator.GetName(), nextRound, err)
	}

	for _, m := range matches {
		if err := c.matchRepo.Create(ctx, exec, m); err != nil {
			return 0, handleRepositoryError(err, "create match of round %d", nextRound)
		}
	}
	return len(matches), nil
}

// resultsDocument is the archived snapshot of a finished tournament.
type resultsDocument struct {
	Tournament   *models.Tournament    `json:"tournament"`
	Participants []*models.Participant `json:"participants"`
	Standings    []models.Standing     `json:"standings"`
	Matches      []*models.Match       `json:"matches"`
	ArchivedAt   time.Time             `json:"archived_at"`
}

// publishResults uploads the final results. Failures are logged only; the tournament is
// already finished and the archive is a convenience copy.
func (c *roundController) publishResults(ctx context.Context, tournamentID int) {
	if c.archive == nil {
		return
	}
	log := c.logger.With(slog.Int("tournament_id", tournamentID))

	tournament, err := c.tournamentRepo.GetByID(ctx, nil, tournamentID, false)
	if err != nil {
		log.ErrorContext(ctx, "results archive: failed to load tournament", slog.Any("error", err))
		return
	}
	participants, err := c.participantRepo.ListByTournament(ctx, nil, tournamentID)
	if err != nil {
		log.ErrorContext(ctx, "results archive: failed to load participants", slog.Any("error", err))
		return
	}
	matches, err := c.matchRepo.ListByTournament(ctx, nil, tournamentID, nil, nil)
	if err != nil {
		log.ErrorContext(ctx, "results archive: failed to load matches", slog.Any("error", err))
		return
	}

	key, err := c.archive.Publish(ctx, tournamentID, resultsDocument{
		Tournament:   tournament,
		Participants: participants,
		Standings:    brackets.ComputeStandings(participants, matches),
		Matches:      matches,
		ArchivedAt:   c.now().UTC(),
	})
	if err != nil {
		log.ErrorContext(ctx, "results archive: upload failed", slog.Any("error", err))
		return
	}
	if err := c.tournamentRepo.UpdateResultsKey(ctx, tournamentID, &key); err != nil {
		log.ErrorContext(ctx, "results archive: failed to store key", slog.String("key", key), slog.Any("error", err))
		if rmErr := c.archive.Remove(ctx, key); rmErr != nil {
			log.WarnContext(ctx, "results archive: failed to remove orphaned object", slog.String("key", key), slog.Any("error", rmErr))
		}
		return
	}
	log.InfoContext(ctx, "results archived", slog.String("key", key))
}
