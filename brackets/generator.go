package brackets

import (
	"context"

	"github.com/Dosada05/tournament-ladder/models"
)

// GenerateBracketParams carries the inputs of one round generation.
// Elimination reads Participants, Ladder reads Standings.
type GenerateBracketParams struct {
	TournamentID int
	Round        int
	Participants []*models.Participant
	Standings    []models.Standing
}

type BracketGenerator interface {
	GenerateBracket(ctx context.Context, params GenerateBracketParams) ([]*models.Match, error)

	GetName() string
}

// GeneratorForRound picks the pairing strategy for a round number.
func GeneratorForRound(round int) BracketGenerator {
	if round <= 1 {
		return NewEliminationGenerator()
	}
	return NewLadderGenerator()
}

func newPendingMatch(params GenerateBracketParams, phase models.MatchPhase, p1, p2 int) *models.Match {
	return &models.Match{
		TournamentID: params.TournamentID,
		Player1ID:    p1,
		Player2ID:    &p2,
		Round:        params.Round,
		Phase:        phase,
		Status:       models.MatchStatusPending,
		Source:       models.MatchSourcePlayed,
	}
}
