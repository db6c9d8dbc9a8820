package brackets

import (
	"context"

	"github.com/Dosada05/tournament-ladder/models"
)

// LadderGenerator pairs a round from the ranked standings. The top half plays inside the
// winners bracket, the bottom half inside the losers bracket. An odd winner out meets the best
// ranked loser in a crossover match; an odd loser out sits the round out.
type LadderGenerator struct{}

func NewLadderGenerator() BracketGenerator {
	return &LadderGenerator{}
}

func (g *LadderGenerator) GetName() string {
	return "Ladder"
}

func (g *LadderGenerator) GenerateBracket(ctx context.Context, params GenerateBracketParams) ([]*models.Match, error) {
	standings := params.Standings
	half := (len(standings) + 1) / 2
	winners := standings[:half]
	losers := standings[half:]

	matches := make([]*models.Match, 0, len(standings)/2)
	matches = append(matches, pairConsecutive(params, winners, models.PhaseWinnersBracket)...)

	var crossover *models.Match
	if len(winners)%2 == 1 && len(losers) > 0 {
		crossover = newPendingMatch(params, models.PhaseCrossover, winners[len(winners)-1].UserID, losers[0].UserID)
		losers = losers[1:]
	}

	matches = append(matches, pairConsecutive(params, losers, models.PhaseLosersBracket)...)
	if crossover != nil {
		matches = append(matches, crossover)
	}
	return matches, nil
}

// pairConsecutive pairs (s0,s1), (s2,s3), ... and leaves an odd last entry unpaired.
func pairConsecutive(params GenerateBracketParams, group []models.Standing, phase models.MatchPhase) []*models.Match {
	matches := make([]*models.Match, 0, len(group)/2)
	for i := 0; i+1 < len(group); i += 2 {
		matches = append(matches, newPendingMatch(params, phase, group[i].UserID, group[i+1].UserID))
	}
	return matches
}
