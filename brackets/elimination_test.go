package brackets

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dosada05/tournament-ladder/models"
)

func participantsFor(userIDs ...int) []*models.Participant {
	ps := make([]*models.Participant, len(userIDs))
	for i, id := range userIDs {
		ps[i] = &models.Participant{ID: 100 + i, TournamentID: 7, UserID: id}
	}
	return ps
}

func TestEliminationGenerator_EvenCount(t *testing.T) {
	g := NewEliminationGenerator()
	matches, err := g.GenerateBracket(context.Background(), GenerateBracketParams{
		TournamentID: 7,
		Round:        1,
		Participants: participantsFor(1, 2, 3, 4),
	})

	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, 1, matches[0].Player1ID)
	assert.Equal(t, 2, *matches[0].Player2ID)
	assert.Equal(t, 3, matches[1].Player1ID)
	assert.Equal(t, 4, *matches[1].Player2ID)
	for _, m := range matches {
		assert.Equal(t, 7, m.TournamentID)
		assert.Equal(t, 1, m.Round)
		assert.Equal(t, models.PhaseRoundRobin, m.Phase)
		assert.Equal(t, models.MatchStatusPending, m.Status)
		assert.Nil(t, m.Player1Score)
		assert.Nil(t, m.Player2Score)
		assert.Nil(t, m.WinnerID)
	}
}

func TestEliminationGenerator_OddCountGivesBye(t *testing.T) {
	g := NewEliminationGenerator()
	matches, err := g.GenerateBracket(context.Background(), GenerateBracketParams{
		TournamentID: 7,
		Round:        1,
		Participants: participantsFor(10, 20, 30, 40, 50),
	})

	require.NoError(t, err)
	require.Len(t, matches, 3)

	bye := matches[2]
	assert.True(t, bye.IsBye())
	assert.Equal(t, 50, bye.Player1ID)
	assert.Equal(t, models.MatchStatusFinished, bye.Status)
	require.NotNil(t, bye.WinnerID)
	assert.Equal(t, 50, *bye.WinnerID)
	assert.Equal(t, ByeWinnerScore, *bye.Player1Score)
	assert.Equal(t, ByeLoserScore, *bye.Player2Score)
	assert.NotNil(t, bye.PlayedAt)
}

func TestEliminationGenerator_MatchCounts(t *testing.T) {
	g := NewEliminationGenerator()
	for n := 2; n <= 17; n++ {
		ids := make([]int, n)
		for i := range ids {
			ids[i] = i + 1
		}
		matches, err := g.GenerateBracket(context.Background(), GenerateBracketParams{TournamentID: 1, Round: 1, Participants: participantsFor(ids...)})
		require.NoError(t, err)

		pending, byes := 0, 0
		for _, m := range matches {
			if m.IsBye() {
				byes++
				assert.Equal(t, n, *m.WinnerID, "bye must go to the last registered participant")
			} else {
				pending++
			}
		}
		assert.Equal(t, n/2, pending, "n=%d", n)
		assert.Equal(t, n%2, byes, "n=%d", n)
	}
}

func TestEliminationGenerator_NotEnoughParticipants(t *testing.T) {
	g := NewEliminationGenerator()
	_, err := g.GenerateBracket(context.Background(), GenerateBracketParams{Participants: participantsFor(1)})
	assert.ErrorIs(t, err, ErrNotEnoughParticipants)

	_, err = g.GenerateBracket(context.Background(), GenerateBracketParams{})
	assert.ErrorIs(t, err, ErrNotEnoughParticipants)
}

func TestGeneratorForRound(t *testing.T) {
	assert.Equal(t, "Elimination", GeneratorForRound(1).GetName())
	assert.Equal(t, "Ladder", GeneratorForRound(2).GetName())
	assert.Equal(t, "Ladder", GeneratorForRound(3).GetName())
}
