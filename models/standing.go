package models

// Standing is derived from finished matches and never persisted.
type Standing struct {
	UserID     int    `json:"user_id"`
	Username   string `json:"username"`
	Wins       int    `json:"wins"`
	Losses     int    `json:"losses"`
	Points     int    `json:"points"`
	TotalScore int    `json:"total_score"`
	Rank       int    `json:"rank"`
}
