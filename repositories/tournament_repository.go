package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Dosada05/tournament-ladder/models"
)

var (
	ErrTournamentNotFound     = errors.New("tournament not found")
	ErrTournamentInvalidOrg   = errors.New("invalid organizer reference")
	ErrTournamentStateChanged = errors.New("tournament state changed concurrently")
)

type ListTournamentsFilter struct {
	Status *models.TournamentStatus
	Limit  int
	Offset int
}

// TournamentRepository persists tournaments. Methods taking an exec run inside the caller's
// transaction when exec is non-nil.
type TournamentRepository interface {
	Create(ctx context.Context, exec SQLExecutor, tournament *models.Tournament) error
	GetByID(ctx context.Context, exec SQLExecutor, id int, forUpdate bool) (*models.Tournament, error)
	List(ctx context.Context, filter ListTournamentsFilter) ([]models.Tournament, error)
	// MarkOngoing moves a tournament from registration to ongoing with round 1 claimed.
	MarkOngoing(ctx context.Context, exec SQLExecutor, id int, startedAt time.Time) error
	// ClaimNextRound advances current_round from fromRound to fromRound+1. It returns false
	// when another request already moved the round version.
	ClaimNextRound(ctx context.Context, exec SQLExecutor, id int, fromRound int) (bool, error)
	// Finish marks an ongoing tournament at round as finished. False when already decided.
	Finish(ctx context.Context, exec SQLExecutor, id int, round int, winnerID int, finishedAt time.Time) (bool, error)
	UpdateResultsKey(ctx context.Context, id int, resultsKey *string) error
	Delete(ctx context.Context, exec SQLExecutor, id int) error
}

type postgresTournamentRepository struct {
	db *sql.DB
}

func NewPostgresTournamentRepository(db *sql.DB) TournamentRepository {
	return &postgresTournamentRepository{db: db}
}

func (r *postgresTournamentRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const tournamentColumns = `
	id, name, game_mode, status, max_players, organizer_id, winner_id,
	current_round, created_at, started_at, finished_at, results_key`

func scanTournament(row interface{ Scan(dest ...interface{}) error }, t *models.Tournament) error {
	return row.Scan(
		&t.ID, &t.Name, &t.GameMode, &t.Status, &t.MaxPlayers, &t.OrganizerID, &t.WinnerID,
		&t.CurrentRound, &t.CreatedAt, &t.StartedAt, &t.FinishedAt, &t.ResultsKey,
	)
}

func (r *postgresTournamentRepository) Create(ctx context.Context, exec SQLExecutor, t *models.Tournament) error {
	query := `
		INSERT INTO tournaments (name, game_mode, status, max_players, organizer_id, current_round)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	err := r.getExecutor(exec).QueryRowContext(ctx, query,
		t.Name, t.GameMode, t.Status, t.MaxPlayers, t.OrganizerID, t.CurrentRound,
	).Scan(&t.ID, &t.CreatedAt)

	return r.handleTournamentError(err)
}

func (r *postgresTournamentRepository) GetByID(ctx context.Context, exec SQLExecutor, id int, lock bool) (*models.Tournament, error) {
	query := `SELECT` + tournamentColumns + ` FROM tournaments WHERE id = $1` + forUpdate(lock)

	t := &models.Tournament{}
	err := scanTournament(r.getExecutor(exec).QueryRowContext(ctx, query, id), t)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to scan tournament by id %d: %w", id, err)
	}
	return t, nil
}

func (r *postgresTournamentRepository) List(ctx context.Context, filter ListTournamentsFilter) ([]models.Tournament, error) {
	query := `SELECT` + tournamentColumns + ` FROM tournaments WHERE 1=1`
	args := []interface{}{}
	argID := 1

	if filter.Status != nil {
		query += fmt.Sprintf(" AND status = $%d", argID)
		args = append(args, *filter.Status)
		argID++
	}

	query += " ORDER BY created_at DESC, id DESC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argID)
		args = append(args, filter.Limit)
		argID++
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argID)
		args = append(args, filter.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tournaments: %w", err)
	}
	defer rows.Close()

	tournaments := make([]models.Tournament, 0)
	for rows.Next() {
		var t models.Tournament
		if scanErr := scanTournament(rows, &t); scanErr != nil {
			return nil, fmt.Errorf("failed to scan tournament row: %w", scanErr)
		}
		tournaments = append(tournaments, t)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during tournament rows iteration: %w", err)
	}
	return tournaments, nil
}

func (r *postgresTournamentRepository) MarkOngoing(ctx context.Context, exec SQLExecutor, id int, startedAt time.Time) error {
	query := `
		UPDATE tournaments
		SET status = $1, current_round = 1, started_at = $2
		WHERE id = $3 AND status = $4`
	result, err := r.getExecutor(exec).ExecContext(ctx, query, models.StatusOngoing, startedAt, id, models.StatusRegistration)
	if err != nil {
		return fmt.Errorf("failed to mark tournament %d ongoing: %w", id, err)
	}
	return checkAffectedRows(result, ErrTournamentStateChanged)
}

func (r *postgresTournamentRepository) ClaimNextRound(ctx context.Context, exec SQLExecutor, id int, fromRound int) (bool, error) {
	query := `
		UPDATE tournaments
		SET current_round = current_round + 1
		WHERE id = $1 AND status = $2 AND current_round = $3`
	result, err := r.getExecutor(exec).ExecContext(ctx, query, id, models.StatusOngoing, fromRound)
	if err != nil {
		return false, fmt.Errorf("failed to claim round %d for tournament %d: %w", fromRound+1, id, err)
	}
	return affectedOne(result)
}

func (r *postgresTournamentRepository) Finish(ctx context.Context, exec SQLExecutor, id int, round int, winnerID int, finishedAt time.Time) (bool, error) {
	query := `
		UPDATE tournaments
		SET status = $1, winner_id = $2, finished_at = $3
		WHERE id = $4 AND status = $5 AND current_round = $6`
	result, err := r.getExecutor(exec).ExecContext(ctx, query,
		models.StatusFinished, winnerID, finishedAt, id, models.StatusOngoing, round)
	if err != nil {
		return false, fmt.Errorf("failed to finish tournament %d: %w", id, err)
	}
	return affectedOne(result)
}

func (r *postgresTournamentRepository) UpdateResultsKey(ctx context.Context, id int, resultsKey *string) error {
	query := `UPDATE tournaments SET results_key = $1 WHERE id = $2`
	result, err := r.db.ExecContext(ctx, query, resultsKey, id)
	if err != nil {
		return fmt.Errorf("failed to update tournament results key: %w", err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) Delete(ctx context.Context, exec SQLExecutor, id int) error {
	query := `DELETE FROM tournaments WHERE id = $1`
	result, err := r.getExecutor(exec).ExecContext(ctx, query, id)
	if err != nil {
		return r.handleTournamentError(err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) handleTournamentError(err error) error {
	if err == nil {
		return nil
	}
	if code, constraint, ok := pqErrorCode(err); ok {
		if code == pqForeignKeyViolation && constraint == "tournaments_organizer_id_fkey" {
			return ErrTournamentInvalidOrg
		}
	}
	return err
}
