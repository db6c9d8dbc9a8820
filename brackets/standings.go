package brackets

import (
	"sort"

	"github.com/Dosada05/tournament-ladder/models"
)

// PointsPerWin is the number of standings points a win is worth.
const PointsPerWin = 3

// ComputeStandings ranks participants from the finished matches of a tournament.
//
// Order: points desc, total score desc, then the order of participants as given
// (registration order), so equal records rank deterministically. Ranks are 1..n with no
// shared places. Pending matches are ignored, which makes the result valid mid-round.
func ComputeStandings(participants []*models.Participant, matches []*models.Match) []models.Standing {
	standings := make([]models.Standing, len(participants))
	index := make(map[int]int, len(participants))
	for i, p := range participants {
		standings[i] = models.Standing{UserID: p.UserID, Username: p.DisplayName()}
		index[p.UserID] = i
	}

	credit := func(userID int, m *models.Match) {
		i, ok := index[userID]
		if !ok {
			return
		}
		s := &standings[i]
		s.TotalScore += m.ScoreOf(userID)
		if m.WinnerID == nil {
			return
		}
		if *m.WinnerID == userID {
			s.Wins++
		} else {
			s.Losses++
		}
	}

	for _, m := range matches {
		if m == nil || m.Status != models.MatchStatusFinished {
			continue
		}
		credit(m.Player1ID, m)
		if m.Player2ID != nil {
			credit(*m.Player2ID, m)
		}
	}

	for i := range standings {
		standings[i].Points = standings[i].Wins * PointsPerWin
	}

	sort.SliceStable(standings, func(i, j int) bool {
		if standings[i].Points != standings[j].Points {
			return standings[i].Points > standings[j].Points
		}
		return standings[i].TotalScore > standings[j].TotalScore
	})
	for i := range standings {
		standings[i].Rank = i + 1
	}
	return standings
}
