package game

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thereayou/hotseat/internal/events"
	"github.com/thereayou/hotseat/internal/kv"
	"github.com/thereayou/hotseat/internal/models"
	"github.com/thereayou/hotseat/internal/rooms"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type harness struct {
	store  *rooms.Store
	engine *Engine
	events *events.Recorder
}

func identityShuffle(int, func(i, j int)) {}

func setup(t *testing.T, opts ...Option) *harness {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	rec := &events.Recorder{}
	store := rooms.NewStore(kv.New(rdb), rec, zerolog.Nop())
	opts = append([]Option{WithClock(func() time.Time { return testNow })}, opts...)
	engine := NewEngine(store, rec, zerolog.Nop(), opts...)
	store.HandleDepartures(engine)
	return &harness{store: store, engine: engine, events: rec}
}

// startedRoom creates a room with n players and starts the game. Player ids are
// returned in roster order, host first.
func (h *harness) startedRoom(t *testing.T, n int) (*models.Room, []string) {
	t.Helper()
	ctx := context.Background()
	room, hostID, err := h.store.CreateRoom(ctx, "Host", models.Settings{
		LobbyName: "Party", Rounds: 3, PlayerLimit: 8, TimeLimit: 60,
	})
	require.NoError(t, err)
	for i := 1; i < n; i++ {
		_, _, err := h.store.JoinRoom(ctx, room.JoinCode, fmt.Sprintf("Player %d", i))
		require.NoError(t, err)
		time.Sleep(time.Millisecond)
	}
	room, err = h.store.StartGame(ctx, room.ID)
	require.NoError(t, err)
	require.Equal(t, hostID, room.Players[0].ID)

	ids := make([]string, 0, n)
	for _, p := range room.Players {
		ids = append(ids, p.ID)
	}
	return room, ids
}

func (h *harness) submitAll(t *testing.T, roomID string, ids []string) *models.Room {
	t.Helper()
	var room *models.Room
	for i, id := range ids {
		var err error
		room, err = h.engine.SubmitPrompt(context.Background(), roomID, id, fmt.Sprintf("prompt %d", i))
		require.NoError(t, err)
	}
	return room
}

func (h *harness) reload(t *testing.T, roomID string) *models.Room {
	t.Helper()
	room, err := h.store.GetRoomByID(context.Background(), roomID)
	require.NoError(t, err)
	require.NotNil(t, room)
	return room
}

func score(room *models.Room, playerID string) int {
	p, ok := room.Player(playerID)
	if !ok {
		return -1
	}
	return p.Score
}

func TestSubmitPrompt_LastPromptStartsDefense(t *testing.T) {
	h := setup(t)
	ctx := context.Background()
	room, ids := h.startedRoom(t, 3)

	room, err := h.engine.SubmitPrompt(ctx, room.ID, ids[0], "  defend pineapple pizza ")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPromptEntry, room.Status)
	require.Len(t, room.GameState.Prompts, 1)
	assert.Equal(t, "defend pineapple pizza", room.GameState.Prompts[0].Text)
	assert.Equal(t, ids[0], room.GameState.Prompts[0].AuthorID)

	_, err = h.engine.SubmitPrompt(ctx, room.ID, ids[1], "second")
	require.NoError(t, err)
	room, err = h.engine.SubmitPrompt(ctx, room.ID, ids[2], "third")
	require.NoError(t, err)

	assert.Equal(t, models.StatusDefense, room.Status)
	gs := room.GameState
	require.NotNil(t, gs.CurrentTurn)
	assert.Equal(t, ids[0], gs.CurrentTurn.DefenderID)
	assert.Empty(t, gs.Votes)
	assert.Len(t, gs.Queue, 2)
	assert.Equal(t, 1, gs.Turn)
	require.NotNil(t, gs.Deadline)
	assert.Equal(t, testNow.Add(60*time.Second), *gs.Deadline)

	stored := h.reload(t, room.ID)
	assert.Equal(t, models.StatusDefense, stored.Status)
	assert.Equal(t, gs.CurrentTurn, stored.GameState.CurrentTurn)
	assert.Equal(t, models.StatusDefense, h.events.LastUpdated().Status)
}

func TestSubmitPrompt_Rejections(t *testing.T) {
	h := setup(t)
	ctx := context.Background()
	room, ids := h.startedRoom(t, 2)

	_, err := h.engine.SubmitPrompt(ctx, room.ID, ids[0], "   ")
	assert.ErrorIs(t, err, models.ErrValidation)

	_, err = h.engine.SubmitPrompt(ctx, room.ID, ids[0], strings.Repeat("x", MaxPromptLength+1))
	assert.ErrorIs(t, err, models.ErrValidation)

	_, err = h.engine.SubmitPrompt(ctx, room.ID, "ghost", "hello")
	assert.ErrorIs(t, err, models.ErrPlayerNotFound)

	_, err = h.engine.SubmitPrompt(ctx, "missing", ids[0], "hello")
	assert.ErrorIs(t, err, models.ErrRoomNotFound)

	_, err = h.engine.SubmitPrompt(ctx, room.ID, ids[0], "hello")
	require.NoError(t, err)
	_, err = h.engine.SubmitPrompt(ctx, room.ID, ids[0], "again")
	assert.ErrorIs(t, err, models.ErrAlreadySubmitted)
	assert.Len(t, h.reload(t, room.ID).GameState.Prompts, 1)

	lobby, _, err := h.store.CreateRoom(ctx, "Solo", models.Settings{LobbyName: "Quiet"})
	require.NoError(t, err)
	_, err = h.engine.SubmitPrompt(ctx, lobby.ID, lobby.Players[0].ID, "hello")
	assert.ErrorIs(t, err, models.ErrWrongPhase)
}

func TestBuildQueue_NoSelfDefense(t *testing.T) {
	for _, n := range []int{2, 3, 5, 8} {
		t.Run(fmt.Sprintf("identity/%d", n), func(t *testing.T) {
			h := setup(t, WithShuffle(identityShuffle))
			room, ids := h.startedRoom(t, n)
			room = h.submitAll(t, room.ID, ids)
			assertNoSelfDefense(t, room, n)
		})
	}

	h := setup(t)
	for i := 0; i < 20; i++ {
		room, ids := h.startedRoom(t, 4)
		room = h.submitAll(t, room.ID, ids)
		assertNoSelfDefense(t, room, 4)
	}
}

func assertNoSelfDefense(t *testing.T, room *models.Room, n int) {
	t.Helper()
	gs := room.GameState
	authors := map[string]string{}
	for _, p := range gs.Prompts {
		authors[p.ID] = p.AuthorID
	}

	turns := append([]models.TurnInfo{*gs.CurrentTurn}, gs.Queue...)
	require.Len(t, turns, n)
	used := map[string]bool{}
	for i, turn := range turns {
		assert.Equal(t, room.Players[i].ID, turn.DefenderID)
		assert.NotEqual(t, turn.DefenderID, authors[turn.PromptID], "player %d defends own prompt", i)
		assert.False(t, used[turn.PromptID], "prompt dealt twice")
		used[turn.PromptID] = true
	}
}

func TestEndTurn(t *testing.T) {
	h := setup(t)
	ctx := context.Background()
	room, ids := h.startedRoom(t, 3)

	ended, err := h.engine.EndTurn(ctx, room.ID)
	require.NoError(t, err)
	assert.False(t, ended, "prompt entry is not a defense")

	h.submitAll(t, room.ID, ids)

	ended, err = h.engine.EndTurn(ctx, room.ID)
	require.NoError(t, err)
	assert.True(t, ended)
	first := h.reload(t, room.ID)
	assert.Equal(t, models.StatusVoting, first.Status)
	assert.Nil(t, first.GameState.Deadline)

	h.events.Reset()
	ended, err = h.engine.EndTurn(ctx, room.ID)
	require.NoError(t, err)
	assert.False(t, ended)
	assert.Equal(t, first, h.reload(t, room.ID))
	assert.Empty(t, h.events.Updated())
}

func TestEndTurnIfCurrent_StaleTurn(t *testing.T) {
	h := setup(t)
	ctx := context.Background()
	room, ids := h.startedRoom(t, 2)
	h.submitAll(t, room.ID, ids)

	ended, err := h.engine.EndTurnIfCurrent(ctx, room.ID, 7)
	require.NoError(t, err)
	assert.False(t, ended)
	assert.Equal(t, models.StatusDefense, h.reload(t, room.ID).Status)

	ended, err = h.engine.EndTurnIfCurrent(ctx, room.ID, 1)
	require.NoError(t, err)
	assert.True(t, ended)
}

func TestSubmitVote_Tally(t *testing.T) {
	h := setup(t)
	ctx := context.Background()
	room, ids := h.startedRoom(t, 4)
	h.submitAll(t, room.ID, ids)
	_, err := h.engine.EndTurn(ctx, room.ID)
	require.NoError(t, err)

	defender := ids[0]
	room, err = h.engine.SubmitVote(ctx, room.ID, ids[1], 2)
	require.NoError(t, err)
	assert.Equal(t, models.StatusVoting, room.Status)
	room, err = h.engine.SubmitVote(ctx, room.ID, ids[2], 4)
	require.NoError(t, err)
	assert.Len(t, room.GameState.Votes, 2)
	assert.Equal(t, 0, score(room, defender))

	room, err = h.engine.SubmitVote(ctx, room.ID, ids[3], 1)
	require.NoError(t, err)

	assert.Equal(t, 7, score(room, defender))
	assert.Empty(t, room.GameState.Votes)
	assert.Equal(t, models.StatusDefense, room.Status)
	assert.Equal(t, ids[1], room.GameState.CurrentTurn.DefenderID)
	assert.Equal(t, 2, room.GameState.Turn)
	assert.Equal(t, 7, score(h.reload(t, room.ID), defender))
}

func TestSubmitVote_LastWriteWins(t *testing.T) {
	h := setup(t)
	ctx := context.Background()
	room, ids := h.startedRoom(t, 3)
	h.submitAll(t, room.ID, ids)
	_, err := h.engine.EndTurn(ctx, room.ID)
	require.NoError(t, err)

	_, err = h.engine.SubmitVote(ctx, room.ID, ids[1], 3)
	require.NoError(t, err)
	room, err = h.engine.SubmitVote(ctx, room.ID, ids[1], 9)
	require.NoError(t, err)
	assert.Equal(t, models.StatusVoting, room.Status, "a repeated vote is not a second voter")
	assert.Equal(t, map[string]int{ids[1]: 9}, room.GameState.Votes)

	room, err = h.engine.SubmitVote(ctx, room.ID, ids[2], 1)
	require.NoError(t, err)
	assert.Equal(t, 10, score(room, ids[0]))
}

func TestSubmitVote_Rejections(t *testing.T) {
	h := setup(t)
	ctx := context.Background()
	room, ids := h.startedRoom(t, 3)

	_, err := h.engine.SubmitVote(ctx, room.ID, ids[1], 5)
	assert.ErrorIs(t, err, models.ErrNotVoting)

	h.submitAll(t, room.ID, ids)
	_, err = h.engine.SubmitVote(ctx, room.ID, ids[1], 5)
	assert.ErrorIs(t, err, models.ErrNotVoting, "defense is not voting")

	_, err = h.engine.EndTurn(ctx, room.ID)
	require.NoError(t, err)

	_, err = h.engine.SubmitVote(ctx, room.ID, ids[0], 5)
	assert.ErrorIs(t, err, models.ErrDefenderCannotVote)

	for _, v := range []int{-1, MaxVote + 1} {
		_, err = h.engine.SubmitVote(ctx, room.ID, ids[1], v)
		assert.ErrorIs(t, err, models.ErrValidation)
	}

	_, err = h.engine.SubmitVote(ctx, room.ID, "ghost", 5)
	assert.ErrorIs(t, err, models.ErrPlayerNotFound)
	assert.Empty(t, h.reload(t, room.ID).GameState.Votes)
}

func TestSubmitVote_ConcurrentLastVotesTallyOnce(t *testing.T) {
	h := setup(t)
	ctx := context.Background()

	for round := 0; round < 10; round++ {
		room, ids := h.startedRoom(t, 4)
		h.submitAll(t, room.ID, ids)
		_, err := h.engine.EndTurn(ctx, room.ID)
		require.NoError(t, err)
		_, err = h.engine.SubmitVote(ctx, room.ID, ids[1], 3)
		require.NoError(t, err)

		var wg sync.WaitGroup
		errs := make([]error, 2)
		for i, voter := range ids[2:] {
			wg.Add(1)
			go func(i int, voter string) {
				defer wg.Done()
				_, errs[i] = h.engine.SubmitVote(ctx, room.ID, voter, 2)
			}(i, voter)
		}
		wg.Wait()
		require.NoError(t, errs[0])
		require.NoError(t, errs[1])

		final := h.reload(t, room.ID)
		assert.Equal(t, 7, score(final, ids[0]))
		assert.Equal(t, 2, final.GameState.Turn)
		assert.Equal(t, models.StatusDefense, final.Status)
		assert.Len(t, final.GameState.Queue, 2)
	}
}

type recorderSpy struct {
	mu    sync.Mutex
	rooms []*models.Room
}

func (r *recorderSpy) RecordResult(_ context.Context, room *models.Room) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rooms = append(r.rooms, room)
	return nil
}

func TestFullGame_ReachesResults(t *testing.T) {
	results := &recorderSpy{}
	h := setup(t, WithResultRecorder(results))
	ctx := context.Background()
	room, ids := h.startedRoom(t, 2)
	h.submitAll(t, room.ID, ids)

	_, err := h.engine.EndTurn(ctx, room.ID)
	require.NoError(t, err)
	_, err = h.engine.SubmitVote(ctx, room.ID, ids[1], 6)
	require.NoError(t, err)

	_, err = h.engine.EndTurn(ctx, room.ID)
	require.NoError(t, err)
	room, err = h.engine.SubmitVote(ctx, room.ID, ids[0], 4)
	require.NoError(t, err)

	assert.Equal(t, models.StatusResults, room.Status)
	assert.Nil(t, room.GameState.CurrentTurn)
	assert.Empty(t, room.GameState.Queue)
	assert.Equal(t, 6, score(room, ids[0]))
	assert.Equal(t, 4, score(room, ids[1]))

	require.Len(t, results.rooms, 1)
	assert.Equal(t, room.ID, results.rooms[0].ID)
	assert.Equal(t, models.StatusResults, h.events.LastUpdated().Status)
}

func TestResetGame(t *testing.T) {
	h := setup(t)
	ctx := context.Background()
	room, ids := h.startedRoom(t, 2)

	_, err := h.engine.ResetGame(ctx, room.ID)
	assert.ErrorIs(t, err, models.ErrWrongPhase)

	h.submitAll(t, room.ID, ids)
	for _, voter := range []string{ids[1], ids[0]} {
		_, err = h.engine.EndTurn(ctx, room.ID)
		require.NoError(t, err)
		_, err = h.engine.SubmitVote(ctx, room.ID, voter, 5)
		require.NoError(t, err)
	}
	require.Equal(t, models.StatusResults, h.reload(t, room.ID).Status)

	room, err = h.engine.ResetGame(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusLobby, room.Status)
	assert.Nil(t, room.GameState)
	for _, p := range room.Players {
		assert.Zero(t, p.Score)
	}

	stored := h.reload(t, room.ID)
	assert.Equal(t, models.StatusLobby, stored.Status)
	assert.Nil(t, stored.GameState)

	_, err = h.store.StartGame(ctx, room.ID)
	require.NoError(t, err, "a reset room can be played again")
}

func TestReconcile_DefenderLeaves(t *testing.T) {
	h := setup(t)
	ctx := context.Background()
	room, ids := h.startedRoom(t, 3)
	room = h.submitAll(t, room.ID, ids)
	require.Equal(t, ids[0], room.GameState.CurrentTurn.DefenderID)

	_, err := h.engine.EndTurn(ctx, room.ID)
	require.NoError(t, err)
	_, err = h.engine.SubmitVote(ctx, room.ID, ids[1], 4)
	require.NoError(t, err)
	_, err = h.engine.SubmitVote(ctx, room.ID, ids[2], 4)
	require.NoError(t, err)

	// Second turn belongs to ids[1]; they leave mid-defense.
	_, err = h.store.LeaveRoom(ctx, room.ID, ids[1])
	require.NoError(t, err)

	room = h.reload(t, room.ID)
	assert.Equal(t, models.StatusDefense, room.Status)
	assert.Equal(t, ids[2], room.GameState.CurrentTurn.DefenderID)
	assert.Equal(t, 3, room.GameState.Turn)
	assert.Empty(t, room.GameState.Queue)
}

func TestReconcile_LastVoterLeaves(t *testing.T) {
	h := setup(t)
	ctx := context.Background()
	room, ids := h.startedRoom(t, 4)
	h.submitAll(t, room.ID, ids)
	_, err := h.engine.EndTurn(ctx, room.ID)
	require.NoError(t, err)
	_, err = h.engine.SubmitVote(ctx, room.ID, ids[1], 3)
	require.NoError(t, err)
	_, err = h.engine.SubmitVote(ctx, room.ID, ids[2], 5)
	require.NoError(t, err)

	_, err = h.store.KickPlayer(ctx, room.ID, ids[3])
	require.NoError(t, err)

	room = h.reload(t, room.ID)
	assert.Equal(t, 8, score(room, ids[0]))
	assert.Equal(t, models.StatusDefense, room.Status)
	assert.Equal(t, ids[1], room.GameState.CurrentTurn.DefenderID)
}

func TestReconcile_KickCommitsTalliedTurnOnce(t *testing.T) {
	timers := newFakeScheduler()
	h := setup(t, WithTurnTimers(timers))
	ctx := context.Background()
	room, ids := h.startedRoom(t, 3)
	room = h.submitAll(t, room.ID, ids)
	require.Equal(t, ids[0], room.GameState.CurrentTurn.DefenderID)
	_, err := h.engine.EndTurn(ctx, room.ID)
	require.NoError(t, err)
	_, err = h.engine.SubmitVote(ctx, room.ID, ids[1], 4)
	require.NoError(t, err)
	require.NotContains(t, timers.scheduled, room.ID)

	h.events.Reset()
	got, err := h.store.KickPlayer(ctx, room.ID, ids[2])
	require.NoError(t, err)

	for _, r := range []*models.Room{got, h.reload(t, room.ID)} {
		assert.Equal(t, models.StatusDefense, r.Status)
		assert.Equal(t, 2, r.GameState.Turn)
		assert.Equal(t, ids[1], r.GameState.CurrentTurn.DefenderID)
		assert.Equal(t, 4, score(r, ids[0]))
		assert.Empty(t, r.GameState.Votes)
	}

	updated := h.events.Updated()
	require.Len(t, updated, 1, "one announcement per departure")
	assert.Equal(t, models.StatusDefense, updated[0].Status)
	assert.Equal(t, 2, updated[0].GameState.Turn)
	assert.Equal(t, 4, score(updated[0], ids[0]))
	assert.Contains(t, timers.scheduled, room.ID, "the new turn gets a deadline timer")
}

func TestReconcile_IntakeCompletesOnDeparture(t *testing.T) {
	h := setup(t)
	ctx := context.Background()
	room, ids := h.startedRoom(t, 3)
	_, err := h.engine.SubmitPrompt(ctx, room.ID, ids[0], "one")
	require.NoError(t, err)
	_, err = h.engine.SubmitPrompt(ctx, room.ID, ids[1], "two")
	require.NoError(t, err)

	_, err = h.store.LeaveRoom(ctx, room.ID, ids[2])
	require.NoError(t, err)

	room = h.reload(t, room.ID)
	assert.Equal(t, models.StatusDefense, room.Status)
	assert.Len(t, room.GameState.Queue, 1)
}

func TestReconcile_TooFewPlayersEndsGame(t *testing.T) {
	results := &recorderSpy{}
	h := setup(t, WithResultRecorder(results))
	ctx := context.Background()
	room, ids := h.startedRoom(t, 2)
	h.submitAll(t, room.ID, ids)

	_, err := h.store.LeaveRoom(ctx, room.ID, ids[1])
	require.NoError(t, err)

	room = h.reload(t, room.ID)
	assert.Equal(t, models.StatusResults, room.Status)
	assert.Len(t, results.rooms, 1)
}

func TestReconcile_NothingToDo(t *testing.T) {
	h := setup(t)
	ctx := context.Background()
	room, ids := h.startedRoom(t, 3)
	h.submitAll(t, room.ID, ids)
	before := h.reload(t, room.ID)

	h.events.Reset()
	got, err := h.engine.Reconcile(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, before, got)
	assert.Empty(t, h.events.Updated())

	got, err = h.engine.Reconcile(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, got)
}

type fakeScheduler struct {
	mu        sync.Mutex
	scheduled map[string]time.Time
	fires     map[string]func()
	cancelled []string
}

func newFakeScheduler() *fakeScheduler {
	return &fakeScheduler{scheduled: map[string]time.Time{}, fires: map[string]func(){}}
}

func (f *fakeScheduler) Schedule(roomID string, at time.Time, fire func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scheduled[roomID] = at
	f.fires[roomID] = fire
}

func (f *fakeScheduler) Cancel(roomID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.scheduled, roomID)
	delete(f.fires, roomID)
	f.cancelled = append(f.cancelled, roomID)
}

func (f *fakeScheduler) fire(roomID string) bool {
	f.mu.Lock()
	fn, ok := f.fires[roomID]
	f.mu.Unlock()
	if ok {
		fn()
	}
	return ok
}

func TestTurnDeadline_EndsDefense(t *testing.T) {
	timers := newFakeScheduler()
	h := setup(t, WithTurnTimers(timers))
	room, ids := h.startedRoom(t, 2)
	h.submitAll(t, room.ID, ids)

	assert.Equal(t, testNow.Add(60*time.Second), timers.scheduled[room.ID])
	require.True(t, timers.fire(room.ID))
	assert.Equal(t, models.StatusVoting, h.reload(t, room.ID).Status)
}

func TestTurnDeadline_StaleTimerIgnored(t *testing.T) {
	timers := newFakeScheduler()
	h := setup(t, WithTurnTimers(timers))
	ctx := context.Background()
	room, ids := h.startedRoom(t, 3)
	h.submitAll(t, room.ID, ids)

	timers.mu.Lock()
	stale := timers.fires[room.ID]
	timers.mu.Unlock()

	_, err := h.engine.EndTurn(ctx, room.ID)
	require.NoError(t, err)
	assert.Contains(t, timers.cancelled, room.ID)
	_, err = h.engine.SubmitVote(ctx, room.ID, ids[1], 1)
	require.NoError(t, err)
	_, err = h.engine.SubmitVote(ctx, room.ID, ids[2], 1)
	require.NoError(t, err)
	require.Equal(t, 2, h.reload(t, room.ID).GameState.Turn)

	stale()
	assert.Equal(t, models.StatusDefense, h.reload(t, room.ID).Status, "turn 1 timer must not end turn 2")
}
