package models

import "time"

// TournamentStatus represents the lifecycle states stored in tournaments.status.
type TournamentStatus string

const (
	StatusRegistration TournamentStatus = "registration"
	StatusOngoing      TournamentStatus = "ongoing"
	StatusFinished     TournamentStatus = "finished"
)

// Tournament represents a tournament.
type Tournament struct {
	ID          int              `json:"id" db:"id"`
	Name        string           `json:"name" db:"name"`
	GameMode    string           `json:"game_mode" db:"game_mode"`
	Status      TournamentStatus `json:"status" db:"status"`
	MaxPlayers  int              `json:"max_players" db:"max_players"`
	OrganizerID int              `json:"organizer_id" db:"organizer_id"`
	WinnerID    *int             `json:"winner_id,omitempty" db:"winner_id"`
	// CurrentRound is the round version claimed by the last advance; 0 during registration.
	CurrentRound int        `json:"current_round" db:"current_round"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	StartedAt    *time.Time `json:"started_at,omitempty" db:"started_at"`
	FinishedAt   *time.Time `json:"finished_at,omitempty" db:"finished_at"`

	ResultsKey *string `json:"-" db:"results_key"`
	ResultsURL *string `json:"results_url,omitempty" db:"-"`
}

// IsFinished reports whether the tournament reached its terminal state.
func (t *Tournament) IsFinished() bool {
	return t.Status == StatusFinished
}
