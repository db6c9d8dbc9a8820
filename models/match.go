package models

import (
	"database/sql/driver"
	"fmt"
	"time"
)

type MatchStatus string

const (
	MatchStatusPending  MatchStatus = "pending"
	MatchStatusFinished MatchStatus = "finished"
)

// MatchSource tells how a result got in: reported by the game server or entered by hand.
type MatchSource string

const (
	MatchSourcePlayed MatchSource = "played"
	MatchSourceManual MatchSource = "manual"
)

func (s MatchSource) Valid() bool {
	return s == MatchSourcePlayed || s == MatchSourceManual
}

// MatchPhase labels which part of a round produced a match.
// The zero value is invalid; use ParsePhase or the constants.
type MatchPhase struct {
	tag string
}

var (
	PhaseRoundRobin     = MatchPhase{"round_robin"}
	PhaseWinnersBracket = MatchPhase{"winners_bracket"}
	PhaseLosersBracket  = MatchPhase{"losers_bracket"}
	PhaseCrossover      = MatchPhase{"crossover_match"}
)

var knownPhases = map[string]MatchPhase{
	PhaseRoundRobin.tag:     PhaseRoundRobin,
	PhaseWinnersBracket.tag: PhaseWinnersBracket,
	PhaseLosersBracket.tag:  PhaseLosersBracket,
	PhaseCrossover.tag:      PhaseCrossover,
}

// ParsePhase validates a stored or user supplied phase tag.
func ParsePhase(tag string) (MatchPhase, error) {
	phase, ok := knownPhases[tag]
	if !ok {
		return MatchPhase{}, fmt.Errorf("unknown match phase %q", tag)
	}
	return phase, nil
}

func (p MatchPhase) String() string {
	return p.tag
}

func (p MatchPhase) IsZero() bool {
	return p.tag == ""
}

func (p MatchPhase) MarshalText() ([]byte, error) {
	if p.IsZero() {
		return nil, fmt.Errorf("cannot marshal empty match phase")
	}
	return []byte(p.tag), nil
}

func (p *MatchPhase) UnmarshalText(text []byte) error {
	parsed, err := ParsePhase(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// Scan implements sql.Scanner so invalid tags never leave the repository layer.
func (p *MatchPhase) Scan(src any) error {
	switch v := src.(type) {
	case string:
		return p.UnmarshalText([]byte(v))
	case []byte:
		return p.UnmarshalText(v)
	default:
		return fmt.Errorf("cannot scan %T into MatchPhase", src)
	}
}

// Value implements driver.Valuer.
func (p MatchPhase) Value() (driver.Value, error) {
	if p.IsZero() {
		return nil, fmt.Errorf("cannot store empty match phase")
	}
	return p.tag, nil
}

type Match struct {
	ID           int         `json:"id" db:"id"`
	TournamentID int         `json:"tournament_id" db:"tournament_id"`
	Player1ID    int         `json:"player1_id" db:"player1_id"`
	Player2ID    *int        `json:"player2_id" db:"player2_id"` // nil only for a bye
	Player1Score *int        `json:"player1_score" db:"player1_score"`
	Player2Score *int        `json:"player2_score" db:"player2_score"`
	WinnerID     *int        `json:"winner_id" db:"winner_id"` // nil = draw or not played
	Round        int         `json:"round" db:"round"`
	Phase        MatchPhase  `json:"phase" db:"phase"`
	Status       MatchStatus `json:"status" db:"status"`
	Source       MatchSource `json:"source" db:"source"`
	PlayedAt     *time.Time  `json:"played_at,omitempty" db:"played_at"`
	CreatedAt    time.Time   `json:"created_at" db:"created_at"`
}

func (m *Match) IsBye() bool {
	return m.Player2ID == nil
}

// ScoreOf returns the score recorded for userID, 0 when unset or not a player.
func (m *Match) ScoreOf(userID int) int {
	switch {
	case m.Player1ID == userID:
		if m.Player1Score != nil {
			return *m.Player1Score
		}
	case m.Player2ID != nil && *m.Player2ID == userID:
		if m.Player2Score != nil {
			return *m.Player2Score
		}
	}
	return 0
}
