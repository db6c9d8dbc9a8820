package brackets

import (
	"context"
	"errors"
	"time"

	"github.com/Dosada05/tournament-ladder/models"
)

var ErrNotEnoughParticipants = errors.New("not enough participants to generate a bracket (minimum 2)")

// Score awarded to the player receiving a bye.
const (
	ByeWinnerScore = 1
	ByeLoserScore  = 0
)

// EliminationGenerator builds the first round: participants are paired in registration order
// and an odd one out receives a bye that is recorded as an already finished win.
type EliminationGenerator struct {
	now func() time.Time
}

func NewEliminationGenerator() BracketGenerator {
	return &EliminationGenerator{now: time.Now}
}

func (g *EliminationGenerator) GetName() string {
	return "Elimination"
}

func (g *EliminationGenerator) GenerateBracket(ctx context.Context, params GenerateBracketParams) ([]*models.Match, error) {
	participants := params.Participants
	n := len(participants)
	if n < 2 {
		return nil, ErrNotEnoughParticipants
	}
	if params.Round == 0 {
		params.Round = 1
	}

	matches := make([]*models.Match, 0, n/2+1)
	for i := 0; i+1 < n; i += 2 {
		matches = append(matches, newPendingMatch(params, models.PhaseRoundRobin, participants[i].UserID, participants[i+1].UserID))
	}

	if n%2 == 1 {
		matches = append(matches, g.byeMatch(params, participants[n-1].UserID))
	}
	return matches, nil
}

func (g *EliminationGenerator) byeMatch(params GenerateBracketParams, userID int) *models.Match {
	winner := userID
	p1Score, p2Score := ByeWinnerScore, ByeLoserScore
	playedAt := g.now().UTC()
	return &models.Match{
		TournamentID: params.TournamentID,
		Player1ID:    userID,
		Player2ID:    nil,
		Player1Score: &p1Score,
		Player2Score: &p2Score,
		WinnerID:     &winner,
		Round:        params.Round,
		Phase:        models.PhaseRoundRobin,
		Status:       models.MatchStatusFinished,
		Source:       models.MatchSourceManual,
		PlayedAt:     &playedAt,
	}
}
