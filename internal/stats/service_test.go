package stats

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"gamestats/internal/backend"
	"gamestats/internal/config"
	"gamestats/internal/counters"
	"gamestats/internal/db"
	"gamestats/internal/leaderboard"
	"gamestats/internal/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAdminKey = "s3cret"

// brokenBackend fails every call the way an unreachable database does.
type brokenBackend struct{}

func broken(op string) error {
	return fmt.Errorf("%w: %s: connection refused", backend.ErrUnavailable, op)
}

func (brokenBackend) Name() backend.Name { return backend.NameRelational }
func (brokenBackend) Load(context.Context) (*counters.Aggregate, error) {
	return nil, broken("load")
}
func (brokenBackend) Save(context.Context, *counters.Aggregate) error { return broken("save") }
func (brokenBackend) Apply(context.Context, counters.Event) (*counters.Aggregate, error) {
	return nil, broken("apply")
}
func (brokenBackend) RecordEvent(context.Context, counters.Event) error { return broken("event") }
func (brokenBackend) RecordSession(context.Context, session.Record) error { return broken("session") }
func (brokenBackend) Reset(context.Context) error { return broken("reset") }

type brokenBoard struct{}

func (brokenBoard) Get(context.Context, string) (*leaderboard.Record, error) {
	return nil, broken("get")
}
func (brokenBoard) Put(context.Context, leaderboard.Record) error { return broken("put") }
func (brokenBoard) List(context.Context, int) ([]leaderboard.Record, error) {
	return nil, broken("list")
}
func (brokenBoard) LevelDeathSummary(context.Context) (map[int]leaderboard.LevelDeathStat, error) {
	return nil, broken("summary")
}

// flakyBoard fails the next failPuts writes and otherwise passes through.
type flakyBoard struct {
	leaderboard.Store
	failPuts int
}

func (b *flakyBoard) Put(ctx context.Context, r leaderboard.Record) error {
	if b.failPuts > 0 {
		b.failPuts--
		return broken("put")
	}
	return b.Store.Put(ctx, r)
}

type recordingNotifier struct {
	mu     sync.Mutex
	boards []leaderboard.Board
}

func (n *recordingNotifier) LeaderboardChanged(b leaderboard.Board) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.boards = append(n.boards, b)
}

func fileDeps(t *testing.T) Deps {
	dir := t.TempDir()
	return Deps{
		File:      backend.NewFile(filepath.Join(dir, "server_stats.json")),
		FileBoard: leaderboard.NewFileStore(filepath.Join(dir, "leaderboard.json")),
		Auth:      NewKeyAuthorizer(testAdminKey),
		Settings:  Settings{Timeout: time.Second, CacheSize: 8, CacheTTL: time.Minute, DefaultLimit: 10, MaxLimit: 50},
	}
}

func sqliteDeps(t *testing.T) Deps {
	ctx := context.Background()
	database, err := db.Connect(ctx, "sqlite:"+filepath.Join(t.TempDir(), "stats.db"))
	require.NoError(t, err)
	require.NoError(t, database.Migrate(ctx))
	t.Cleanup(func() { database.Close() })

	d := fileDeps(t)
	d.Relational = backend.NewRelational(database)
	d.RelationalBoard = leaderboard.NewSQLStore(database)
	return d
}

func TestNew_State(t *testing.T) {
	assert.Equal(t, StateFileOnly, New(fileDeps(t)).State())
	assert.Equal(t, backend.NameFile, New(fileDeps(t)).Mode())

	s := New(sqliteDeps(t))
	assert.Equal(t, StateRelational, s.State())
	assert.Equal(t, backend.NameRelational, s.Mode())
}

func TestOpen_SettlesState(t *testing.T) {
	ctx := context.Background()
	base := config.Config{
		DataDir:                 t.TempDir(),
		StatsFile:               "server_stats.json",
		LeaderboardFile:         "leaderboard.json",
		BackendTimeout:          2 * time.Second,
		DefaultLeaderboardLimit: 10,
		MaxLeaderboardLimit:     100,
	}

	s := Open(ctx, base, nil)
	assert.Equal(t, StateFileOnly, s.State())
	require.NoError(t, s.Close())

	bad := base
	bad.DatabaseURL = "sqlite:" + filepath.Join(t.TempDir(), "missing", "dir", "stats.db")
	s = Open(ctx, bad, nil)
	assert.Equal(t, StateFileOnly, s.State())

	good := base
	good.DatabaseURL = "sqlite:" + filepath.Join(t.TempDir(), "stats.db")
	s = Open(ctx, good, nil)
	assert.Equal(t, StateRelational, s.State())
	require.NoError(t, s.RecordGameStart(ctx, "s1"))
	require.NoError(t, s.Close())
}

func TestRecordLevelComplete_CountsEveryCall(t *testing.T) {
	for name, deps := range map[string]Deps{"file": fileDeps(t), "relational": sqliteDeps(t)} {
		t.Run(name, func(t *testing.T) {
			s := New(deps)
			ctx := context.Background()
			for i := 0; i < 4; i++ {
				require.NoError(t, s.RecordLevelComplete(ctx, "s1", 6, i+1))
			}
			view, err := s.GetSummary(ctx)
			require.NoError(t, err)
			assert.False(t, view.Degraded)
			assert.Equal(t, 4, view.Stats.LevelStats[6])
			assert.Equal(t, 4, view.Stats.TotalLevelsCompleted)
		})
	}
}

func TestRecordLevelAttempt_InvalidInputChangesNothing(t *testing.T) {
	s := New(fileDeps(t))
	ctx := context.Background()

	err := s.RecordLevelAttempt(ctx, "s1", 11, 1)
	assert.ErrorIs(t, err, ErrValidation)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "level", verr.Field)

	assert.ErrorIs(t, s.RecordLevelAttempt(ctx, "", 1, 1), ErrValidation)
	assert.ErrorIs(t, s.RecordLevelComplete(ctx, "s1", 0, 1), ErrValidation)
	assert.ErrorIs(t, s.RecordGameStart(ctx, " "), ErrValidation)

	view, err := s.GetSummary(ctx)
	require.NoError(t, err)
	assert.Equal(t, counters.Default(), view.Stats)
}

func TestRelationalWrites_AreMirroredToFile(t *testing.T) {
	deps := sqliteDeps(t)
	s := New(deps)
	ctx := context.Background()

	id, err := s.RecordNewPlayer(ctx, session.Meta{UserAgent: "test"})
	require.NoError(t, err)
	require.NotEmpty(t, id)
	require.NoError(t, s.RecordGameStart(ctx, id))
	require.NoError(t, s.RecordKeyCollected(ctx, id))

	mirrored, err := deps.File.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, mirrored.TotalPlayers)
	assert.Equal(t, 1, mirrored.TotalGames)
	assert.Equal(t, 1, mirrored.TotalKeysCollected)

	_, err = s.RecordGameComplete(ctx, GameCompletion{SessionID: id, PlayerName: "ann", LevelDeaths: map[int]int{1: 2}})
	require.NoError(t, err)
	rec, err := deps.FileBoard.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 2, rec.TotalDeaths)
}

func TestBrokenDatabase_DegradesPerCall(t *testing.T) {
	deps := fileDeps(t)
	deps.Relational = brokenBackend{}
	deps.RelationalBoard = brokenBoard{}
	s := New(deps)
	ctx := context.Background()

	id, err := s.RecordNewPlayer(ctx, session.Meta{})
	require.NoError(t, err)
	require.NoError(t, s.RecordCEOPromotion(ctx, id))
	require.NoError(t, s.RecordLevelAttempt(ctx, id, 2, 1))

	assert.Equal(t, StateRelational, s.State(), "a failed call does not flip the state")

	view, err := s.GetSummary(ctx)
	require.NoError(t, err)
	assert.True(t, view.Degraded)
	assert.Equal(t, 1, view.Stats.TotalPlayers)
	assert.Equal(t, 1, view.Stats.TotalCEOPromotions)
	assert.Equal(t, 1, view.Stats.LevelAttempts[2])

	_, err = s.UpdatePlayerProgress(ctx, id, "", 1, 3, false)
	require.NoError(t, err)
	_, err = s.RecordGameComplete(ctx, GameCompletion{SessionID: id, PlayerName: "bo", LevelDeaths: map[int]int{1: 3, 2: 1}})
	require.NoError(t, err)

	board, err := s.GetLeaderboard(ctx, 0)
	require.NoError(t, err)
	assert.True(t, board.Degraded)
	require.Len(t, board.Leaderboard, 1)
	assert.Equal(t, 4, board.Leaderboard[0].TotalDeaths)
}

func TestGetAdminSummary(t *testing.T) {
	s := New(fileDeps(t))
	ctx := context.Background()
	require.NoError(t, s.RecordGameStart(ctx, "s1"))

	summary, err := s.GetAdminSummary(ctx, "wrong")
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Nil(t, summary)

	summary, err = s.GetAdminSummary(ctx, "")
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Nil(t, summary)

	_, err = s.RecordGameComplete(ctx, GameCompletion{SessionID: "s1", PlayerName: "cy", TotalDeaths: 4})
	require.NoError(t, err)

	summary, err = s.GetAdminSummary(ctx, testAdminKey)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.TotalGames)
	require.Len(t, summary.Leaderboard, 1)
	assert.Equal(t, "cy", summary.Leaderboard[0].PlayerName)
	assert.False(t, summary.Degraded)
}

func TestAdminAccessDisabledWithoutKey(t *testing.T) {
	deps := fileDeps(t)
	deps.Auth = NewKeyAuthorizer("")
	s := New(deps)
	_, err := s.GetAdminSummary(context.Background(), "")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestResetAll(t *testing.T) {
	for name, deps := range map[string]Deps{"file": fileDeps(t), "relational": sqliteDeps(t)} {
		t.Run(name, func(t *testing.T) {
			s := New(deps)
			ctx := context.Background()
			require.NoError(t, s.RecordLevelComplete(ctx, "s1", 1, 1))
			require.NoError(t, s.RecordGameStart(ctx, "s1"))

			assert.ErrorIs(t, s.ResetAll(ctx, "nope", ResetConfirmation), ErrUnauthorized)
			assert.ErrorIs(t, s.ResetAll(ctx, testAdminKey, ""), ErrValidation)

			view, err := s.GetSummary(ctx)
			require.NoError(t, err)
			require.Equal(t, 1, view.Stats.TotalGames)

			require.NoError(t, s.ResetAll(ctx, testAdminKey, ResetConfirmation))
			view, err = s.GetSummary(ctx)
			require.NoError(t, err)
			assert.Zero(t, view.Stats.TotalGames)
			assert.Zero(t, view.Stats.LevelStats[1])
			assert.Empty(t, view.Stats.DailyStats)

			fileView, err := deps.File.Load(ctx)
			require.NoError(t, err)
			assert.Zero(t, fileView.TotalGames)
		})
	}
}

func TestGetLeaderboard_CacheIsPurgedOnWrite(t *testing.T) {
	n := &recordingNotifier{}
	deps := fileDeps(t)
	deps.Notifier = n
	s := New(deps)
	ctx := context.Background()

	board, err := s.GetLeaderboard(ctx, 5)
	require.NoError(t, err)
	assert.Empty(t, board.Leaderboard)

	_, err = s.UpdatePlayerProgress(ctx, "s1", "dee", 1, 2, false)
	require.NoError(t, err)
	assert.Empty(t, n.boards, "unfinished runs are not published")

	_, err = s.RecordGameComplete(ctx, GameCompletion{SessionID: "s1", PlayerName: "dee", LevelDeaths: map[int]int{1: 2, 2: 5}})
	require.NoError(t, err)

	board, err = s.GetLeaderboard(ctx, 5)
	require.NoError(t, err)
	require.Len(t, board.Leaderboard, 1)
	assert.Equal(t, 7, board.Leaderboard[0].TotalDeaths)

	require.Len(t, n.boards, 1)
	assert.Len(t, n.boards[0].Leaderboard, 1)
}

func TestRecordGameComplete_Validation(t *testing.T) {
	s := New(fileDeps(t))
	ctx := context.Background()
	cases := []GameCompletion{
		{SessionID: "", PlayerName: "a"},
		{SessionID: "s1", PlayerName: "  "},
		{SessionID: "s1", PlayerName: "a", TotalDeaths: -1},
		{SessionID: "s1", PlayerName: "a", LevelDeaths: map[int]int{12: 1}},
		{SessionID: "s1", PlayerName: "a", LevelDeaths: map[int]int{1: -2}},
		{SessionID: "s1", PlayerName: "this name is certainly far too long to show"},
	}
	for _, gc := range cases {
		_, err := s.RecordGameComplete(ctx, gc)
		assert.ErrorIs(t, err, ErrValidation, "%+v", gc)
	}
}

func TestClampLimit(t *testing.T) {
	s := New(fileDeps(t))
	assert.Equal(t, 10, s.ClampLimit(0))
	assert.Equal(t, 10, s.ClampLimit(-3))
	assert.Equal(t, 7, s.ClampLimit(7))
	assert.Equal(t, 50, s.ClampLimit(500))
}

func TestKeyAuthorizer(t *testing.T) {
	a := NewKeyAuthorizer("k")
	assert.True(t, a.IsAuthorized("k"))
	assert.False(t, a.IsAuthorized("K"))
	assert.False(t, a.IsAuthorized(""))
	assert.False(t, NewKeyAuthorizer("").IsAuthorized(""))
}

func TestCompletionSavedOnlyToFileSurvivesLaterProgress(t *testing.T) {
	ctx := context.Background()
	deps := sqliteDeps(t)
	flaky := &flakyBoard{Store: deps.RelationalBoard}
	deps.RelationalBoard = flaky
	s := New(deps)

	_, err := s.UpdatePlayerProgress(ctx, "s1", "", 1, 2, false)
	require.NoError(t, err)

	flaky.failPuts = 1
	rec, err := s.RecordGameComplete(ctx, GameCompletion{SessionID: "s1", PlayerName: "ann", TotalDeaths: 2, LevelDeaths: map[int]int{1: 2}})
	require.NoError(t, err)
	require.True(t, rec.Completed)

	rec, err = s.UpdatePlayerProgress(ctx, "s1", "", 2, 9, false)
	require.NoError(t, err)
	assert.True(t, rec.Completed)
	assert.Equal(t, 2, rec.TotalDeaths)
	assert.Equal(t, map[int]int{1: 2}, rec.LevelDeaths)

	fromDB, err := flaky.Store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, fromDB.Completed)
	assert.Equal(t, "ann", fromDB.PlayerName)

	fromFile, err := deps.FileBoard.Get(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, fromFile.Completed)
	assert.Equal(t, 2, fromFile.TotalDeaths)

	view, err := s.GetLeaderboard(ctx, 10)
	require.NoError(t, err)
	assert.False(t, view.Degraded)
	require.Len(t, view.Leaderboard, 1)
	assert.Equal(t, "ann", view.Leaderboard[0].PlayerName)
	assert.Equal(t, 2, view.Leaderboard[0].TotalDeaths)
}
