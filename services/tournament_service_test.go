package services

import (
	"context"
	"testing"
	"time"

	"github.com/Dosada05/tournament-ladder/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateTournament_RegistersCreator(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	tournament, err := env.tournaments.CreateTournament(ctx, playerA, CreateTournamentInput{
		Name: "  Friday Ladder ", GameMode: "duel", MaxPlayers: 4,
	})
	require.NoError(t, err)
	assert.Equal(t, "Friday Ladder", tournament.Name)
	assert.Equal(t, models.StatusRegistration, tournament.Status)
	assert.Equal(t, playerA, tournament.OrganizerID)
	assert.Nil(t, tournament.WinnerID)

	bracket, err := env.tournaments.GetBracket(ctx, tournament.ID)
	require.NoError(t, err)
	require.Len(t, bracket.Participants, 1)
	assert.Equal(t, playerA, bracket.Participants[0].UserID)
	assert.Equal(t, 0, bracket.CurrentRound)
	assert.Empty(t, bracket.CurrentMatches)
}

func TestCreateTournament_Validation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		actor   int
		input   CreateTournamentInput
		wantErr error
	}{
		{"no actor", 0, CreateTournamentInput{Name: "x", MaxPlayers: 4}, ErrActorRequired},
		{"blank name", playerA, CreateTournamentInput{Name: "   ", MaxPlayers: 4}, ErrTournamentNameRequired},
		{"too small", playerA, CreateTournamentInput{Name: "x", MaxPlayers: 1}, ErrInvalidMaxPlayers},
		{"unknown actor", 404, CreateTournamentInput{Name: "x", MaxPlayers: 4}, ErrUserNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.tournaments.CreateTournament(ctx, tt.actor, tt.input)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	list, err := env.tournaments.ListTournaments(ctx, ListTournamentsInput{})
	require.NoError(t, err)
	assert.Empty(t, list, "failed creates leave nothing behind")
}

func TestRegisterParticipant_Errors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	tournament, err := env.tournaments.CreateTournament(ctx, playerA, CreateTournamentInput{Name: "Duo", MaxPlayers: 2})
	require.NoError(t, err)

	_, err = env.tournaments.RegisterParticipant(ctx, 404, playerB)
	assert.ErrorIs(t, err, ErrTournamentNotFound)

	_, err = env.tournaments.RegisterParticipant(ctx, tournament.ID, 404)
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, err = env.tournaments.RegisterParticipant(ctx, tournament.ID, playerA)
	assert.ErrorIs(t, err, ErrAlreadyRegistered)
	assert.ErrorIs(t, err, ErrConflict)

	participant, err := env.tournaments.RegisterParticipant(ctx, tournament.ID, playerB)
	require.NoError(t, err)
	assert.Equal(t, "B", participant.Nickname)
	assert.Equal(t, models.ParticipantRegistered, participant.Status)

	_, err = env.tournaments.RegisterParticipant(ctx, tournament.ID, playerC)
	assert.ErrorIs(t, err, ErrTournamentFull)

	_, err = env.tournaments.StartTournament(ctx, tournament.ID, playerA)
	require.NoError(t, err)
	_, err = env.tournaments.RegisterParticipant(ctx, tournament.ID, playerC)
	assert.ErrorIs(t, err, ErrTournamentFull)

	match := env.roundMatches(t, tournament.ID, 1)[0]
	env.record(t, tournament.ID, match, 1, 0)
	_, err = env.tournaments.RegisterParticipant(ctx, tournament.ID, playerC)
	assert.ErrorIs(t, err, ErrTournamentFinished)
}

func TestRegisterParticipant_WhileOngoing(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	tournament := env.startTournament(t, playerA, playerB, playerC)

	late, err := env.tournaments.RegisterParticipant(ctx, tournament.ID, playerD)
	require.NoError(t, err)
	assert.Equal(t, models.ParticipantRegistered, late.Status)

	standings, err := env.tournaments.GetStandings(ctx, tournament.ID)
	require.NoError(t, err)
	require.Len(t, standings, 4)
	last := standings[len(standings)-1]
	assert.Equal(t, playerD, last.UserID)
	assert.Zero(t, last.Points)

	// Round 1 keeps its original pairings; C holds the bye.
	assert.Len(t, env.roundMatches(t, tournament.ID, 1), 2)

	result := env.record(t, tournament.ID, env.findMatch(t, tournament.ID, 1, playerA, playerB), 1, 0)
	assert.True(t, result.NextRoundCreated)

	assert.Equal(t, []pairing{
		{playerA, playerC, models.PhaseWinnersBracket},
		{playerB, playerD, models.PhaseLosersBracket},
	}, pairingsOf(env.roundMatches(t, tournament.ID, 2)))
}

func TestStartTournament(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	solo := env.createTournament(t, playerA)
	_, err := env.tournaments.StartTournament(ctx, solo.ID, playerA)
	assert.ErrorIs(t, err, ErrNotEnoughParticipants)

	tournament := env.createTournament(t, playerA, playerB, playerC, playerD)
	_, err = env.tournaments.StartTournament(ctx, tournament.ID, playerB)
	assert.ErrorIs(t, err, ErrOrganizerOnly)
	assert.ErrorIs(t, err, ErrForbiddenOperation)

	bracket, err := env.tournaments.StartTournament(ctx, tournament.ID, playerA)
	require.NoError(t, err)
	assert.Equal(t, models.StatusOngoing, bracket.Tournament.Status)
	assert.Equal(t, 1, bracket.Tournament.CurrentRound)
	assert.NotNil(t, bracket.Tournament.StartedAt)
	assert.Equal(t, 1, bracket.CurrentRound)
	assert.Equal(t, 1, bracket.TotalRounds)
	assert.Equal(t, []pairing{
		{playerA, playerB, models.PhaseRoundRobin},
		{playerC, playerD, models.PhaseRoundRobin},
	}, pairingsOf(bracket.CurrentMatches))

	_, err = env.tournaments.StartTournament(ctx, tournament.ID, playerA)
	assert.ErrorIs(t, err, ErrTournamentStarted)
}

func TestGetBracket_TracksLatestRound(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	tournament := env.startTournament(t, playerA, playerB, playerC, playerD)

	env.record(t, tournament.ID, env.findMatch(t, tournament.ID, 1, playerA, playerB), 1, 0)
	env.record(t, tournament.ID, env.findMatch(t, tournament.ID, 1, playerC, playerD), 1, 0)

	bracket, err := env.tournaments.GetBracket(ctx, tournament.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, bracket.CurrentRound)
	assert.Equal(t, 2, bracket.TotalRounds)
	require.Len(t, bracket.CurrentMatches, 2)
	for _, m := range bracket.CurrentMatches {
		assert.Equal(t, 2, m.Round)
		assert.Equal(t, models.MatchStatusPending, m.Status)
	}
	assert.Equal(t, []string{"A", "C", "B", "D"}, standingOrder(bracket.Standings))

	_, err = env.tournaments.GetBracket(ctx, 404)
	assert.ErrorIs(t, err, ErrTournamentNotFound)
}

func TestGetStandings_NotFound(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.tournaments.GetStandings(context.Background(), 404)
	assert.ErrorIs(t, err, ErrTournamentNotFound)
}

func TestDeleteTournament(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	tournament := env.startTournament(t, playerA, playerB, playerC)

	err := env.tournaments.DeleteTournament(ctx, tournament.ID, playerB)
	assert.ErrorIs(t, err, ErrOrganizerOnly)

	require.NoError(t, env.tournaments.DeleteTournament(ctx, tournament.ID, playerA))

	_, err = env.tournaments.GetTournament(ctx, tournament.ID)
	assert.ErrorIs(t, err, ErrTournamentNotFound)

	matches, err := env.store.Matches().ListByTournament(ctx, nil, tournament.ID, nil, nil)
	require.NoError(t, err)
	assert.Empty(t, matches)
	count, err := env.store.Participants().CountByTournament(ctx, nil, tournament.ID)
	require.NoError(t, err)
	assert.Zero(t, count)

	err = env.tournaments.DeleteTournament(ctx, tournament.ID, playerA)
	assert.ErrorIs(t, err, ErrTournamentNotFound)
}

func TestListTournaments(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.createTournament(t, playerA)
	env.startTournament(t, playerB, playerC)

	ongoing := models.StatusOngoing
	list, err := env.tournaments.ListTournaments(ctx, ListTournamentsInput{Status: &ongoing})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, playerB, list[0].OrganizerID)

	all, err := env.tournaments.ListTournaments(ctx, ListTournamentsInput{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, all, 1)

	bogus := models.TournamentStatus("paused")
	_, err = env.tournaments.ListTournaments(ctx, ListTournamentsInput{Status: &bogus})
	assert.ErrorIs(t, err, ErrValidationFailed)
}

func TestIsValidStatusTransition(t *testing.T) {
	assert.True(t, isValidStatusTransition(models.StatusRegistration, models.StatusOngoing))
	assert.True(t, isValidStatusTransition(models.StatusOngoing, models.StatusFinished))
	assert.False(t, isValidStatusTransition(models.StatusRegistration, models.StatusFinished))
	assert.False(t, isValidStatusTransition(models.StatusFinished, models.StatusOngoing))
	assert.False(t, isValidStatusTransition(models.StatusOngoing, models.StatusRegistration))
}

func TestTournamentLocks_ReleaseEntries(t *testing.T) {
	locks := newTournamentLocks()
	unlockA := locks.Lock(1)
	unlockB := locks.Lock(2)
	assert.Equal(t, 2, locks.size())

	acquired := make(chan struct{})
	go func() {
		unlock := locks.Lock(1)
		close(acquired)
		unlock()
	}()

	select {
	case <-acquired:
		t.Fatal("second holder acquired a held tournament lock")
	default:
	}

	unlockA()
	<-acquired
	unlockB()
	assert.Eventually(t, func() bool { return locks.size() == 0 }, time.Second, time.Millisecond)
}
