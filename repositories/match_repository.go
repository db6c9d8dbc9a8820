package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/Dosada05/tournament-ladder/models"
)

var (
	ErrMatchNotFound          = errors.New("match not found")
	ErrMatchNotPending        = errors.New("match is not pending")
	ErrMatchTournamentInvalid = errors.New("match tournament conflict or invalid")
	ErrMatchPlayerInvalid     = errors.New("match player conflict or invalid")
)

type MatchRepository interface {
	Create(ctx context.Context, exec SQLExecutor, match *models.Match) error
	GetByID(ctx context.Context, exec SQLExecutor, id int, forUpdate bool) (*models.Match, error)
	ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int, round *int, status *models.MatchStatus) ([]*models.Match, error)
	CountPending(ctx context.Context, exec SQLExecutor, tournamentID, round int) (int, error)
	// MaxRound returns the highest round with any match, 0 when none exist.
	MaxRound(ctx context.Context, exec SQLExecutor, tournamentID int) (int, error)
	// RecordResult stores scores, winner and played_at and flips a pending match to finished.
	// ErrMatchNotPending is returned when the match was already finished.
	RecordResult(ctx context.Context, exec SQLExecutor, match *models.Match) error
	DeleteByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) error
}

type postgresMatchRepository struct {
	db *sql.DB
}

func NewPostgresMatchRepository(db *sql.DB) MatchRepository {
	return &postgresMatchRepository{db: db}
}

func (r *postgresMatchRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const matchColumns = `
	id, tournament_id, player1_id, player2_id, player1_score, player2_score,
	winner_id, round, phase, status, source, played_at, created_at`

func scanMatch(row interface{ Scan(dest ...interface{}) error }, m *models.Match) error {
	return row.Scan(
		&m.ID, &m.TournamentID, &m.Player1ID, &m.Player2ID, &m.Player1Score, &m.Player2Score,
		&m.WinnerID, &m.Round, &m.Phase, &m.Status, &m.Source, &m.PlayedAt, &m.CreatedAt,
	)
}

func (r *postgresMatchRepository) Create(ctx context.Context, exec SQLExecutor, match *models.Match) error {
	query := `
		INSERT INTO matches
			(tournament_id, player1_id, player2_id, player1_score, player2_score,
			 winner_id, round, phase, status, source, played_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at`

	err := r.getExecutor(exec).QueryRowContext(ctx, query,
		match.TournamentID,
		match.Player1ID,
		match.Player2ID,
		match.Player1Score,
		match.Player2Score,
		match.WinnerID,
		match.Round,
		match.Phase,
		match.Status,
		match.Source,
		match.PlayedAt,
	).Scan(&match.ID, &match.CreatedAt)

	return r.handleMatchError(err)
}

func (r *postgresMatchRepository) GetByID(ctx context.Context, exec SQLExecutor, id int, lock bool) (*models.Match, error) {
	query := `SELECT` + matchColumns + ` FROM matches WHERE id = $1` + forUpdate(lock)

	match := &models.Match{}
	err := scanMatch(r.getExecutor(exec).QueryRowContext(ctx, query, id), match)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to scan match by id %d: %w", id, err)
	}
	return match, nil
}

func (r *postgresMatchRepository) ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int, roundFilter *int, statusFilter *models.MatchStatus) ([]*models.Match, error) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString(`SELECT` + matchColumns + ` FROM matches WHERE tournament_id = $1`)

	args := []interface{}{tournamentID}
	placeholderIndex := 2

	if roundFilter != nil {
		queryBuilder.WriteString(" AND round = $")
		queryBuilder.WriteString(strconv.Itoa(placeholderIndex))
		args = append(args, *roundFilter)
		placeholderIndex++
	}

	if statusFilter != nil {
		queryBuilder.WriteString(" AND status = $")
		queryBuilder.WriteString(strconv.Itoa(placeholderIndex))
		args = append(args, *statusFilter)
	}

	queryBuilder.WriteString(" ORDER BY round ASC, id ASC")

	rows, err := r.getExecutor(exec).QueryContext(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query matches for tournament %d: %w", tournamentID, err)
	}
	defer rows.Close()

	matches := make([]*models.Match, 0)
	for rows.Next() {
		var match models.Match
		if scanErr := scanMatch(rows, &match); scanErr != nil {
			return nil, fmt.Errorf("failed to scan match row: %w", scanErr)
		}
		matches = append(matches, &match)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during match rows iteration: %w", err)
	}
	return matches, nil
}

func (r *postgresMatchRepository) CountPending(ctx context.Context, exec SQLExecutor, tournamentID, round int) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM matches WHERE tournament_id = $1 AND round = $2 AND status = $3`
	err := r.getExecutor(exec).QueryRowContext(ctx, query, tournamentID, round, models.MatchStatusPending).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count pending matches for tournament %d round %d: %w", tournamentID, round, err)
	}
	return count, nil
}

func (r *postgresMatchRepository) MaxRound(ctx context.Context, exec SQLExecutor, tournamentID int) (int, error) {
	var round int
	query := `SELECT COALESCE(MAX(round), 0) FROM matches WHERE tournament_id = $1`
	if err := r.getExecutor(exec).QueryRowContext(ctx, query, tournamentID).Scan(&round); err != nil {
		return 0, fmt.Errorf("failed to get max round for tournament %d: %w", tournamentID, err)
	}
	return round, nil
}

func (r *postgresMatchRepository) RecordResult(ctx context.Context, exec SQLExecutor, match *models.Match) error {
	query := `
		UPDATE matches
		SET player1_score = $1, player2_score = $2, winner_id = $3, status = $4, source = $5, played_at = $6
		WHERE id = $7 AND status = $8`

	result, err := r.getExecutor(exec).ExecContext(ctx, query,
		match.Player1Score, match.Player2Score, match.WinnerID, models.MatchStatusFinished,
		match.Source, match.PlayedAt, match.ID, models.MatchStatusPending)
	if err != nil {
		return r.handleMatchError(err)
	}
	return checkAffectedRows(result, ErrMatchNotPending)
}

func (r *postgresMatchRepository) DeleteByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) error {
	query := `DELETE FROM matches WHERE tournament_id = $1`
	if _, err := r.getExecutor(exec).ExecContext(ctx, query, tournamentID); err != nil {
		return fmt.Errorf("failed to delete matches of tournament %d: %w", tournamentID, err)
	}
	return nil
}

func (r *postgresMatchRepository) handleMatchError(err error) error {
	if err == nil {
		return nil
	}
	if code, constraint, ok := pqErrorCode(err); ok && code == pqForeignKeyViolation {
		switch constraint {
		case "matches_tournament_id_fkey":
			return ErrMatchTournamentInvalid
		case "matches_player1_id_fkey", "matches_player2_id_fkey", "matches_winner_id_fkey":
			return ErrMatchPlayerInvalid
		}
	}
	return err
}
