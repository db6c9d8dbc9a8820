package models

import (
	"strconv"
	"time"
)

type ParticipantStatus string

const (
	ParticipantRegistered ParticipantStatus = "registered"
	ParticipantEliminated ParticipantStatus = "eliminated"
	ParticipantWinner     ParticipantStatus = "winner"
)

type Participant struct {
	ID           int               `json:"id" db:"id"`
	TournamentID int               `json:"tournament_id" db:"tournament_id"`
	UserID       int               `json:"user_id" db:"user_id"`
	Status       ParticipantStatus `json:"status" db:"status"`
	CreatedAt    time.Time         `json:"created_at" db:"created_at"`

	// Joined from users, not stored on the participant row.
	Nickname string `json:"nickname" db:"-"`
}

// DisplayName returns the name shown in standings.
func (p *Participant) DisplayName() string {
	if p.Nickname != "" {
		return p.Nickname
	}
	return "Player " + strconv.Itoa(p.UserID)
}
