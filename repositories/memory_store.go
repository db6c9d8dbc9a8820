package repositories

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Dosada05/tournament-ladder/models"
)

// MemoryStore keeps every table in process memory. It backs STORAGE_DRIVER=memory and the
// service tests. Transactions are serialized and rolled back by restoring a snapshot.
type MemoryStore struct {
	txMu sync.Mutex
	mu   sync.Mutex
	data memoryData
	now  func() time.Time
}

type memoryData struct {
	users        map[int]models.User
	tournaments  map[int]models.Tournament
	participants map[int]models.Participant
	matches      map[int]models.Match
	lastID       map[string]int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: memoryData{
			users:        make(map[int]models.User),
			tournaments:  make(map[int]models.Tournament),
			participants: make(map[int]models.Participant),
			matches:      make(map[int]models.Match),
			lastID:       make(map[string]int),
		},
		now: func() time.Time { return time.Now().UTC() },
	}
}

func (d memoryData) clone() memoryData {
	c := memoryData{
		users:        make(map[int]models.User, len(d.users)),
		tournaments:  make(map[int]models.Tournament, len(d.tournaments)),
		participants: make(map[int]models.Participant, len(d.participants)),
		matches:      make(map[int]models.Match, len(d.matches)),
		lastID:       make(map[string]int, len(d.lastID)),
	}
	for k, v := range d.users {
		c.users[k] = v
	}
	for k, v := range d.tournaments {
		c.tournaments[k] = v
	}
	for k, v := range d.participants {
		c.participants[k] = v
	}
	for k, v := range d.matches {
		c.matches[k] = v
	}
	for k, v := range d.lastID {
		c.lastID[k] = v
	}
	return c
}

func (d memoryData) nextID(table string) int {
	d.lastID[table]++
	return d.lastID[table]
}

func (s *MemoryStore) Users() UserRepository               { return memoryUsers{s} }
func (s *MemoryStore) Tournaments() TournamentRepository   { return memoryTournaments{s} }
func (s *MemoryStore) Participants() ParticipantRepository { return memoryParticipants{s} }
func (s *MemoryStore) Matches() MatchRepository            { return memoryMatches{s} }

// RunInTx ignores the executor contract: repository views passed a nil or non-nil exec
// behave the same. A failing fn restores the state captured before it ran.
func (s *MemoryStore) RunInTx(ctx context.Context, fn func(exec SQLExecutor) error) (txErr error) {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	snapshot := s.data.clone()
	s.mu.Unlock()

	defer func() {
		if p := recover(); p != nil {
			s.restore(snapshot)
			panic(p)
		} else if txErr != nil {
			s.restore(snapshot)
		}
	}()

	return fn(nil)
}

func (s *MemoryStore) restore(snapshot memoryData) {
	s.mu.Lock()
	s.data = snapshot
	s.mu.Unlock()
}

type memoryUsers struct{ s *MemoryStore }

func (r memoryUsers) Create(ctx context.Context, user *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.data.users {
		if user.Nickname != "" && u.Nickname == user.Nickname {
			return ErrUserNicknameConflict
		}
	}
	if user.ID == 0 {
		user.ID = r.s.data.nextID("users")
	} else if user.ID > r.s.data.lastID["users"] {
		r.s.data.lastID["users"] = user.ID
	}
	r.s.data.users[user.ID] = *user
	return nil
}

func (r memoryUsers) GetByID(ctx context.Context, _ SQLExecutor, id int) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.data.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return &u, nil
}

type memoryTournaments struct{ s *MemoryStore }

func (r memoryTournaments) Create(ctx context.Context, _ SQLExecutor, t *models.Tournament) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.data.users[t.OrganizerID]; !ok {
		return ErrTournamentInvalidOrg
	}
	t.ID = r.s.data.nextID("tournaments")
	t.CreatedAt = r.s.now()
	stored := *t
	stored.ResultsURL = nil
	r.s.data.tournaments[t.ID] = stored
	return nil
}

func (r memoryTournaments) GetByID(ctx context.Context, _ SQLExecutor, id int, _ bool) (*models.Tournament, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.data.tournaments[id]
	if !ok {
		return nil, ErrTournamentNotFound
	}
	return &t, nil
}

func (r memoryTournaments) List(ctx context.Context, filter ListTournamentsFilter) ([]models.Tournament, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	tournaments := make([]models.Tournament, 0, len(r.s.data.tournaments))
	for _, t := range r.s.data.tournaments {
		if filter.Status != nil && t.Status != *filter.Status {
			continue
		}
		tournaments = append(tournaments, t)
	}
	sort.Slice(tournaments, func(i, j int) bool { return tournaments[i].ID > tournaments[j].ID })

	if filter.Offset > 0 {
		if filter.Offset >= len(tournaments) {
			return []models.Tournament{}, nil
		}
		tournaments = tournaments[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(tournaments) {
		tournaments = tournaments[:filter.Limit]
	}
	return tournaments, nil
}

func (r memoryTournaments) MarkOngoing(ctx context.Context, _ SQLExecutor, id int, startedAt time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.data.tournaments[id]
	if !ok || t.Status != models.StatusRegistration {
		return ErrTournamentStateChanged
	}
	t.Status = models.StatusOngoing
	t.CurrentRound = 1
	t.StartedAt = &startedAt
	r.s.data.tournaments[id] = t
	return nil
}

func (r memoryTournaments) ClaimNextRound(ctx context.Context, _ SQLExecutor, id int, fromRound int) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.data.tournaments[id]
	if !ok || t.Status != models.StatusOngoing || t.CurrentRound != fromRound {
		return false, nil
	}
	t.CurrentRound = fromRound + 1
	r.s.data.tournaments[id] = t
	return true, nil
}

func (r memoryTournaments) Finish(ctx context.Context, _ SQLExecutor, id int, round int, winnerID int, finishedAt time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.data.tournaments[id]
	if !ok || t.Status != models.StatusOngoing || t.CurrentRound != round {
		return false, nil
	}
	t.Status = models.StatusFinished
	t.WinnerID = &winnerID
	t.FinishedAt = &finishedAt
	r.s.data.tournaments[id] = t
	return true, nil
}

func (r memoryTournaments) UpdateResultsKey(ctx context.Context, id int, resultsKey *string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.data.tournaments[id]
	if !ok {
		return ErrTournamentNotFound
	}
	t.ResultsKey = resultsKey
	r.s.data.tournaments[id] = t
	return nil
}

func (r memoryTournaments) Delete(ctx context.Context, _ SQLExecutor, id int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.data.tournaments[id]; !ok {
		return ErrTournamentNotFound
	}
	delete(r.s.data.tournaments, id)
	return nil
}

type memoryParticipants struct{ s *MemoryStore }

func (r memoryParticipants) Create(ctx context.Context, _ SQLExecutor, p *models.Participant) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.data.tournaments[p.TournamentID]; !ok {
		return ErrParticipantTournamentInvalid
	}
	if _, ok := r.s.data.users[p.UserID]; !ok {
		return ErrParticipantUserInvalid
	}
	for _, existing := range r.s.data.participants {
		if existing.TournamentID == p.TournamentID && existing.UserID == p.UserID {
			return ErrParticipantConflict
		}
	}
	p.ID = r.s.data.nextID("participants")
	p.CreatedAt = r.s.now()
	r.s.data.participants[p.ID] = *p
	return nil
}

func (r memoryParticipants) withNickname(p models.Participant) *models.Participant {
	if u, ok := r.s.data.users[p.UserID]; ok {
		p.Nickname = u.Nickname
	}
	return &p
}

func (r memoryParticipants) FindByUserAndTournament(ctx context.Context, _ SQLExecutor, userID, tournamentID int) (*models.Participant, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, p := range r.s.data.participants {
		if p.TournamentID == tournamentID && p.UserID == userID {
			return r.withNickname(p), nil
		}
	}
	return nil, ErrParticipantNotFound
}

func (r memoryParticipants) ListByTournament(ctx context.Context, _ SQLExecutor, tournamentID int) ([]*models.Participant, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	participants := make([]*models.Participant, 0)
	for _, p := range r.s.data.participants {
		if p.TournamentID == tournamentID {
			participants = append(participants, r.withNickname(p))
		}
	}
	sort.Slice(participants, func(i, j int) bool {
		if !participants[i].CreatedAt.Equal(participants[j].CreatedAt) {
			return participants[i].CreatedAt.Before(participants[j].CreatedAt)
		}
		return participants[i].ID < participants[j].ID
	})
	return participants, nil
}

func (r memoryParticipants) CountByTournament(ctx context.Context, _ SQLExecutor, tournamentID int) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	count := 0
	for _, p := range r.s.data.participants {
		if p.TournamentID == tournamentID {
			count++
		}
	}
	return count, nil
}

func (r memoryParticipants) UpdateStatus(ctx context.Context, _ SQLExecutor, tournamentID, userID int, status models.ParticipantStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, p := range r.s.data.participants {
		if p.TournamentID == tournamentID && p.UserID == userID {
			p.Status = status
			r.s.data.participants[id] = p
			return nil
		}
	}
	return ErrParticipantNotFound
}

func (r memoryParticipants) DeleteByTournament(ctx context.Context, _ SQLExecutor, tournamentID int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, p := range r.s.data.participants {
		if p.TournamentID == tournamentID {
			delete(r.s.data.participants, id)
		}
	}
	return nil
}

type memoryMatches struct{ s *MemoryStore }

func (r memoryMatches) Create(ctx context.Context, _ SQLExecutor, m *models.Match) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.data.tournaments[m.TournamentID]; !ok {
		return ErrMatchTournamentInvalid
	}
	if m.Phase.IsZero() {
		return fmt.Errorf("failed to create match: empty phase")
	}
	m.ID = r.s.data.nextID("matches")
	m.CreatedAt = r.s.now()
	r.s.data.matches[m.ID] = *m
	return nil
}

func (r memoryMatches) GetByID(ctx context.Context, _ SQLExecutor, id int, _ bool) (*models.Match, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.data.matches[id]
	if !ok {
		return nil, ErrMatchNotFound
	}
	return &m, nil
}

func (r memoryMatches) ListByTournament(ctx context.Context, _ SQLExecutor, tournamentID int, round *int, status *models.MatchStatus) ([]*models.Match, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	matches := make([]*models.Match, 0)
	for _, m := range r.s.data.matches {
		if m.TournamentID != tournamentID {
			continue
		}
		if round != nil && m.Round != *round {
			continue
		}
		if status != nil && m.Status != *status {
			continue
		}
		match := m
		matches = append(matches, &match)
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Round != matches[j].Round {
			return matches[i].Round < matches[j].Round
		}
		return matches[i].ID < matches[j].ID
	})
	return matches, nil
}

func (r memoryMatches) CountPending(ctx context.Context, _ SQLExecutor, tournamentID, round int) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	count := 0
	for _, m := range r.s.data.matches {
		if m.TournamentID == tournamentID && m.Round == round && m.Status == models.MatchStatusPending {
			count++
		}
	}
	return count, nil
}

func (r memoryMatches) MaxRound(ctx context.Context, _ SQLExecutor, tournamentID int) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	maxRound := 0
	for _, m := range r.s.data.matches {
		if m.TournamentID == tournamentID && m.Round > maxRound {
			maxRound = m.Round
		}
	}
	return maxRound, nil
}

func (r memoryMatches) RecordResult(ctx context.Context, _ SQLExecutor, m *models.Match) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.data.matches[m.ID]
	if !ok || stored.Status != models.MatchStatusPending {
		return ErrMatchNotPending
	}
	stored.Player1Score = m.Player1Score
	stored.Player2Score = m.Player2Score
	stored.WinnerID = m.WinnerID
	stored.Status = models.MatchStatusFinished
	stored.Source = m.Source
	stored.PlayedAt = m.PlayedAt
	r.s.data.matches[m.ID] = stored
	return nil
}

func (r memoryMatches) DeleteByTournament(ctx context.Context, _ SQLExecutor, tournamentID int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, m := range r.s.data.matches {
		if m.TournamentID == tournamentID {
			delete(r.s.data.matches, id)
		}
	}
	return nil
}
