package models

// Bracket is the read projection of a tournament's progress. CurrentRound is the highest round
// with any match and TotalRounds mirrors it, since the number of rounds is only known afterwards.
type Bracket struct {
	Tournament     *Tournament    `json:"tournament"`
	Participants   []*Participant `json:"participants"`
	Standings      []Standing     `json:"standings"`
	CurrentRound   int            `json:"current_round"`
	TotalRounds    int            `json:"total_rounds"`
	CurrentMatches []*Match       `json:"current_matches"`
}
