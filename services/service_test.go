package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/Dosada05/tournament-ladder/brackets"
	"github.com/Dosada05/tournament-ladder/models"
	"github.com/Dosada05/tournament-ladder/repositories"
	"github.com/Dosada05/tournament-ladder/storage"
	"github.com/stretchr/testify/require"
)

// Player ids used across the service tests; nicknames are the letters.
const (
	playerA = iota + 1
	playerB
	playerC
	playerD
	playerE
	playerF
)

var nicknames = map[int]string{
	playerA: "A", playerB: "B", playerC: "C", playerD: "D", playerE: "E", playerF: "F",
}

type testEnv struct {
	store       *repositories.MemoryStore
	matches     *flakyMatchRepository
	uploader    *memoryUploader
	tournaments TournamentService
	results     MatchService
}

type envOption func(*envConfig)

type envConfig struct {
	locker   TournamentLocker
	archive  bool
	policy   brackets.RoundPolicy
	uploader *memoryUploader
}

func withLocker(l TournamentLocker) envOption { return func(c *envConfig) { c.locker = l } }
func withArchive() envOption                  { return func(c *envConfig) { c.archive = true } }

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()
	cfg := envConfig{locker: NewTournamentLocker(), policy: brackets.DefaultRoundPolicy()}
	for _, opt := range opts {
		opt(&cfg)
	}

	store := repositories.NewMemoryStore()
	for id, name := range nicknames {
		require.NoError(t, store.Users().Create(context.Background(), &models.User{ID: id, Nickname: name}))
	}

	env := &testEnv{
		store:   store,
		matches: &flakyMatchRepository{MatchRepository: store.Matches()},
	}
	var archive *storage.ResultsArchive
	if cfg.archive {
		env.uploader = newMemoryUploader()
		archive = storage.NewResultsArchive(env.uploader)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	env.tournaments = NewTournamentService(store, store.Tournaments(), store.Participants(), env.matches, store.Users(), cfg.locker, archive, logger)
	env.results = NewMatchService(store, store.Tournaments(), store.Participants(), env.matches, cfg.locker, archive, cfg.policy, logger)
	return env
}

// startTournament creates a tournament organised by the first player, registers the rest in
// order and starts it.
func (e *testEnv) startTournament(t *testing.T, players ...int) *models.Tournament {
	t.Helper()
	tournament := e.createTournament(t, players...)
	_, err := e.tournaments.StartTournament(context.Background(), tournament.ID, players[0])
	require.NoError(t, err)
	return tournament
}

func (e *testEnv) createTournament(t *testing.T, players ...int) *models.Tournament {
	t.Helper()
	ctx := context.Background()
	tournament, err := e.tournaments.CreateTournament(ctx, players[0], CreateTournamentInput{
		Name: "Weekend Cup", GameMode: "duel", MaxPlayers: 8,
	})
	require.NoError(t, err)
	for _, p := range players[1:] {
		_, err := e.tournaments.RegisterParticipant(ctx, tournament.ID, p)
		require.NoError(t, err)
	}
	return tournament
}

func (e *testEnv) roundMatches(t *testing.T, tournamentID, round int) []*models.Match {
	t.Helper()
	matches, err := e.results.ListMatches(context.Background(), tournamentID, &round)
	require.NoError(t, err)
	return matches
}

// findMatch returns the round's match between p1 and p2 in that order.
func (e *testEnv) findMatch(t *testing.T, tournamentID, round, p1, p2 int) *models.Match {
	t.Helper()
	for _, m := range e.roundMatches(t, tournamentID, round) {
		if m.Player1ID == p1 && m.Player2ID != nil && *m.Player2ID == p2 {
			return m
		}
	}
	t.Fatalf("no match %d vs %d in round %d", p1, p2, round)
	return nil
}

func (e *testEnv) record(t *testing.T, tournamentID int, match *models.Match, s1, s2 int) *MatchResult {
	t.Helper()
	result, err := e.results.RecordMatchResult(context.Background(), tournamentID, match.ID, scores(s1, s2))
	require.NoError(t, err)
	return result
}

func scores(s1, s2 int) RecordMatchResultInput {
	return RecordMatchResultInput{Player1Score: &s1, Player2Score: &s2, Source: models.MatchSourcePlayed}
}

type pairing struct {
	p1, p2 int
	phase  models.MatchPhase
}

func pairingsOf(matches []*models.Match) []pairing {
	out := make([]pairing, 0, len(matches))
	for _, m := range matches {
		p2 := 0
		if m.Player2ID != nil {
			p2 = *m.Player2ID
		}
		out = append(out, pairing{m.Player1ID, p2, m.Phase})
	}
	return out
}

func standingOrder(standings []models.Standing) []string {
	out := make([]string, len(standings))
	for i, s := range standings {
		out[i] = s.Username
	}
	return out
}

// flakyMatchRepository fails match creation while failCreate is set.
type flakyMatchRepository struct {
	repositories.MatchRepository
	mu         sync.Mutex
	failCreate bool
}

var errInjected = errors.New("injected storage failure")

func (r *flakyMatchRepository) setFailCreate(fail bool) {
	r.mu.Lock()
	r.failCreate = fail
	r.mu.Unlock()
}

func (r *flakyMatchRepository) Create(ctx context.Context, exec repositories.SQLExecutor, m *models.Match) error {
	r.mu.Lock()
	fail := r.failCreate
	r.mu.Unlock()
	if fail {
		return errInjected
	}
	return r.MatchRepository.Create(ctx, exec, m)
}

type noopLocker struct{}

func (noopLocker) Lock(int) func() { return func() {} }

type memoryUploader struct {
	mu      sync.Mutex
	objects map[string][]byte
	fail    bool
}

func newMemoryUploader() *memoryUploader {
	return &memoryUploader{objects: map[string][]byte{}}
}

func (u *memoryUploader) Upload(ctx context.Context, key, contentType string, reader io.Reader) (*storage.UploadResult, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.fail {
		return nil, errors.New("bucket unavailable")
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}
	u.objects[key] = body
	return &storage.UploadResult{Key: key, Location: u.GetPublicURL(key)}, nil
}

func (u *memoryUploader) Delete(ctx context.Context, key string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	delete(u.objects, key)
	return nil
}

func (u *memoryUploader) GetPublicURL(key string) string {
	return "https://results.example.com/" + key
}

func (u *memoryUploader) count() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.objects)
}
