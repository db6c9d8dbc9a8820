package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Dosada05/tournament-ladder/brackets"
	"github.com/Dosada05/tournament-ladder/models"
	"github.com/Dosada05/tournament-ladder/repositories"
	"github.com/Dosada05/tournament-ladder/storage"
	"golang.org/x/sync/errgroup"
)

type CreateTournamentInput struct {
	Name       string `json:"name"`
	GameMode   string `json:"game_mode"`
	MaxPlayers int    `json:"max_players"`
}

type ListTournamentsInput struct {
	Status *models.TournamentStatus
	Limit  int
	Offset int
}

type TournamentService interface {
	CreateTournament(ctx context.Context, actorID int, input CreateTournamentInput) (*models.Tournament, error)
	GetTournament(ctx context.Context, tournamentID int) (*models.Tournament, error)
	ListTournaments(ctx context.Context, input ListTournamentsInput) ([]models.Tournament, error)
	RegisterParticipant(ctx context.Context, tournamentID, userID int) (*models.Participant, error)
	StartTournament(ctx context.Context, tournamentID, actorID int) (*models.Bracket, error)
	DeleteTournament(ctx context.Context, tournamentID, actorID int) error
	GetBracket(ctx context.Context, tournamentID int) (*models.Bracket, error)
	GetStandings(ctx context.Context, tournamentID int) ([]models.Standing, error)
}

type tournamentService struct {
	txRunner        repositories.TxRunner
	tournamentRepo  repositories.TournamentRepository
	participantRepo repositories.ParticipantRepository
	matchRepo       repositories.MatchRepository
	userRepo        repositories.UserRepository
	locker          TournamentLocker
	archive         *storage.ResultsArchive
	logger          *slog.Logger
	now             func() time.Time
}

func NewTournamentService(
	txRunner repositories.TxRunner,
	tournamentRepo repositories.TournamentRepository,
	participantRepo repositories.ParticipantRepository,
	matchRepo repositories.MatchRepository,
	userRepo repositories.UserRepository,
	locker TournamentLocker,
	archive *storage.ResultsArchive,
	logger *slog.Logger,
) TournamentService {
	if logger == nil {
		logger = slog.Default()
	}
	return &tournamentService{
		txRunner:        txRunner,
		tournamentRepo:  tournamentRepo,
		participantRepo: participantRepo,
		matchRepo:       matchRepo,
		userRepo:        userRepo,
		locker:          locker,
		archive:         archive,
		logger:          logger,
		now:             time.Now,
	}
}

func (s *tournamentService) CreateTournament(ctx context.Context, actorID int, input CreateTournamentInput) (*models.Tournament, error) {
	if actorID <= 0 {
		return nil, ErrActorRequired
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrTournamentNameRequired
	}
	if input.MaxPlayers < 2 {
		return nil, ErrInvalidMaxPlayers
	}

	tournament := &models.Tournament{
		Name:        name,
		GameMode:    strings.TrimSpace(input.GameMode),
		Status:      models.StatusRegistration,
		MaxPlayers:  input.MaxPlayers,
		OrganizerID: actorID,
	}

	err := s.txRunner.RunInTx(ctx, func(exec repositories.SQLExecutor) error {
		if _, err := s.userRepo.GetByID(ctx, exec, actorID); err != nil {
			return handleRepositoryError(err, "load user %d", actorID)
		}
		if err := s.tournamentRepo.Create(ctx, exec, tournament); err != nil {
			return handleRepositoryError(err, "create tournament")
		}
		creator := &models.Participant{
			TournamentID: tournament.ID,
			UserID:       actorID,
			Status:       models.ParticipantRegistered,
		}
		if err := s.participantRepo.Create(ctx, exec, creator); err != nil {
			return handleRepositoryError(err, "register creator of tournament %d", tournament.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "tournament created",
		slog.Int("tournament_id", tournament.ID), slog.Int("organizer_id", actorID))
	return tournament, nil
}

func (s *tournamentService) GetTournament(ctx context.Context, tournamentID int) (*models.Tournament, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, nil, tournamentID, false)
	if err != nil {
		return nil, handleRepositoryError(err, "load tournament %d", tournamentID)
	}
	tournament.ResultsURL = s.archive.URL(tournament.ResultsKey)
	return tournament, nil
}

func (s *tournamentService) ListTournaments(ctx context.Context, input ListTournamentsInput) ([]models.Tournament, error) {
	if input.Status != nil {
		switch *input.Status {
		case models.StatusRegistration, models.StatusOngoing, models.StatusFinished:
		default:
			return nil, fmt.Errorf("%w: unknown tournament status %q", ErrValidationFailed, *input.Status)
		}
	}
	if input.Limit < 0 || input.Offset < 0 {
		return nil, fmt.Errorf("%w: limit and offset must not be negative", ErrValidationFailed)
	}

	tournaments, err := s.tournamentRepo.List(ctx, repositories.ListTournamentsFilter{
		Status: input.Status,
		Limit:  input.Limit,
		Offset: input.Offset,
	})
	if err != nil {
		return nil, handleRepositoryError(err, "list tournaments")
	}
	for i := range tournaments {
		tournaments[i].ResultsURL = s.archive.URL(tournaments[i].ResultsKey)
	}
	return tournaments, nil
}

func (s *tournamentService) RegisterParticipant(ctx context.Context, tournamentID, userID int) (*models.Participant, error) {
	if userID <= 0 {
		return nil, ErrActorRequired
	}

	unlock := s.locker.Lock(tournamentID)
	defer unlock()

	var participant *models.Participant
	err := s.txRunner.RunInTx(ctx, func(exec repositories.SQLExecutor) error {
		tournament, err := s.tournamentRepo.GetByID(ctx, exec, tournamentID, true)
		if err != nil {
			return handleRepositoryError(err, "load tournament %d", tournamentID)
		}
		user, err := s.userRepo.GetByID(ctx, exec, userID)
		if err != nil {
			return handleRepositoryError(err, "load user %d", userID)
		}

		// Late registrants join with an empty record and are paired from the next round.
		if tournament.IsFinished() {
			return ErrTournamentFinished
		}

		_, err = s.participantRepo.FindByUserAndTournament(ctx, exec, userID, tournamentID)
		switch {
		case err == nil:
			return ErrAlreadyRegistered
		case !errors.Is(err, repositories.ErrParticipantNotFound):
			return handleRepositoryError(err, "check registration of user %d", userID)
		}

		count, err := s.participantRepo.CountByTournament(ctx, exec, tournamentID)
		if err != nil {
			return handleRepositoryError(err, "count participants")
		}
		if count >= tournament.MaxPlayers {
			return ErrTournamentFull
		}

		participant = &models.Participant{
			TournamentID: tournamentID,
			UserID:       userID,
			Status:       models.ParticipantRegistered,
			Nickname:     user.Nickname,
		}
		if err := s.participantRepo.Create(ctx, exec, participant); err != nil {
			return handleRepositoryError(err, "register user %d", userID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return participant, nil
}

func (s *tournamentService) StartTournament(ctx context.Context, tournamentID, actorID int) (*models.Bracket, error) {
	unlock := s.locker.Lock(tournamentID)
	defer unlock()

	err := s.txRunner.RunInTx(ctx, func(exec repositories.SQLExecutor) error {
		tournament, err := s.tournamentRepo.GetByID(ctx, exec, tournamentID, true)
		if err != nil {
			return handleRepositoryError(err, "load tournament %d", tournamentID)
		}
		if tournament.OrganizerID != actorID {
			return ErrOrganizerOnly
		}
		switch tournament.Status {
		case models.StatusFinished:
			return ErrTournamentFinished
		case models.StatusOngoing:
			return ErrTournamentStarted
		}
		if !isValidStatusTransition(tournament.Status, models.StatusOngoing) {
			return fmt.Errorf("%w: cannot start from status %q", ErrConflict, tournament.Status)
		}

		participants, err := s.participantRepo.ListByTournament(ctx, exec, tournamentID)
		if err != nil {
			return handleRepositoryError(err, "list participants")
		}
		if len(participants) < 2 {
			return ErrNotEnoughParticipants
		}

		if err := s.tournamentRepo.MarkOngoing(ctx, exec, tournamentID, s.now().UTC()); err != nil {
			if errors.Is(err, repositories.ErrTournamentStateChanged) {
				return ErrTournamentStarted
			}
			return handleRepositoryError(err, "start tournament %d", tournamentID)
		}

		generator := brackets.GeneratorForRound(1)
		matches, err := generator.GenerateBracket(ctx, brackets.GenerateBracketParams{
			TournamentID: tournamentID,
			Round:        1,
			Participants: participants,
		})
		if err != nil {
			if errors.Is(err, brackets.ErrNotEnoughParticipants) {
				return ErrNotEnoughParticipants
			}
			return fmt.Errorf("%w: %s pairing: %w", ErrStorage, generator.GetName(), err)
		}
		for _, m := range matches {
			if err := s.matchRepo.Create(ctx, exec, m); err != nil {
				return handleRepositoryError(err, "create round 1 match")
			}
		}
		s.logger.InfoContext(ctx, "tournament started",
			slog.Int("tournament_id", tournamentID),
			slog.Int("participants", len(participants)),
			slog.Int("matches", len(matches)))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetBracket(ctx, tournamentID)
}

func (s *tournamentService) DeleteTournament(ctx context.Context, tournamentID, actorID int) error {
	unlock := s.locker.Lock(tournamentID)
	defer unlock()

	var resultsKey *string
	err := s.txRunner.RunInTx(ctx, func(exec repositories.SQLExecutor) error {
		tournament, err := s.tournamentRepo.GetByID(ctx, exec, tournamentID, true)
		if err != nil {
			return handleRepositoryError(err, "load tournament %d", tournamentID)
		}
		if tournament.OrganizerID != actorID {
			return ErrOrganizerOnly
		}
		resultsKey = tournament.ResultsKey

		if err := s.matchRepo.DeleteByTournament(ctx, exec, tournamentID); err != nil {
			return handleRepositoryError(err, "delete matches")
		}
		if err := s.participantRepo.DeleteByTournament(ctx, exec, tournamentID); err != nil {
			return handleRepositoryError(err, "delete participants")
		}
		if err := s.tournamentRepo.Delete(ctx, exec, tournamentID); err != nil {
			return handleRepositoryError(err, "delete tournament %d", tournamentID)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if resultsKey != nil {
		if err := s.archive.Remove(ctx, *resultsKey); err != nil {
			s.logger.WarnContext(ctx, "failed to remove archived results of deleted tournament",
				slog.Int("tournament_id", tournamentID), slog.String("key", *resultsKey), slog.Any("error", err))
		}
	}
	s.logger.InfoContext(ctx, "tournament deleted", slog.Int("tournament_id", tournamentID))
	return nil
}

func (s *tournamentService) GetBracket(ctx context.Context, tournamentID int) (*models.Bracket, error) {
	var (
		tournament   *models.Tournament
		participants []*models.Participant
		matches      []*models.Match
		currentRound int
	)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		tournament, err = s.tournamentRepo.GetByID(gCtx, nil, tournamentID, false)
		return handleRepositoryError(err, "load tournament %d", tournamentID)
	})
	g.Go(func() error {
		var err error
		participants, err = s.participantRepo.ListByTournament(gCtx, nil, tournamentID)
		return handleRepositoryError(err, "list participants")
	})
	g.Go(func() error {
		var err error
		matches, err = s.matchRepo.ListByTournament(gCtx, nil, tournamentID, nil, nil)
		return handleRepositoryError(err, "list matches")
	})
	g.Go(func() error {
		var err error
		currentRound, err = s.matchRepo.MaxRound(gCtx, nil, tournamentID)
		return handleRepositoryError(err, "load current round")
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	tournament.ResultsURL = s.archive.URL(tournament.ResultsKey)

	currentMatches := make([]*models.Match, 0)
	for _, m := range matches {
		if m.Round == currentRound {
			currentMatches = append(currentMatches, m)
		}
	}

	return &models.Bracket{
		Tournament:     tournament,
		Participants:   participants,
		Standings:      brackets.ComputeStandings(participants, matches),
		CurrentRound:   currentRound,
		TotalRounds:    currentRound,
		CurrentMatches: currentMatches,
	}, nil
}

func (s *tournamentService) GetStandings(ctx context.Context, tournamentID int) ([]models.Standing, error) {
	if _, err := s.tournamentRepo.GetByID(ctx, nil, tournamentID, false); err != nil {
		return nil, handleRepositoryError(err, "load tournament %d", tournamentID)
	}
	participants, err := s.participantRepo.ListByTournament(ctx, nil, tournamentID)
	if err != nil {
		return nil, handleRepositoryError(err, "list participants")
	}
	matches, err := s.matchRepo.ListByTournament(ctx, nil, tournamentID, nil, nil)
	if err != nil {
		return nil, handleRepositoryError(err, "list matches")
	}
	return brackets.ComputeStandings(participants, matches), nil
}
