// Package game runs prompt intake, defense turns, voting and scoring on top of
// the room store. Every transition is a single optimistic write so racing
// clients and server instances agree on one outcome.
package game

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/thereayou/hotseat/internal/events"
	"github.com/thereayou/hotseat/internal/models"
	"github.com/thereayou/hotseat/internal/rooms"
)

const (
	MaxPromptLength = 200
	MinVote         = 0
	MaxVote         = 10
)

// RoomStore is the part of rooms.Store the engine needs.
type RoomStore interface {
	GetRoomByID(ctx context.Context, id string) (*models.Room, error)
	Update(ctx context.Context, roomID string, fn func(room *models.Room) error) (*models.Room, error)
}

// ResultRecorder archives finished games.
type ResultRecorder interface {
	RecordResult(ctx context.Context, room *models.Room) error
}

// TurnScheduler runs fire once at the given time and replaces any earlier
// schedule for the same room.
type TurnScheduler interface {
	Schedule(roomID string, at time.Time, fire func())
	Cancel(roomID string)
}

type Engine struct {
	rooms    RoomStore
	notifier events.Notifier
	log      zerolog.Logger

	timers   TurnScheduler
	recorder ResultRecorder

	now     func() time.Time
	newID   func() string
	shuffle func(n int, swap func(i, j int))
}

type Option func(*Engine)

func WithTurnTimers(t TurnScheduler) Option {
	return func(e *Engine) { e.timers = t }
}

func WithResultRecorder(r ResultRecorder) Option {
	return func(e *Engine) { e.recorder = r }
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithShuffle replaces the random permutation used to deal prompts.
func WithShuffle(shuffle func(n int, swap func(i, j int))) Option {
	return func(e *Engine) { e.shuffle = shuffle }
}

func NewEngine(store RoomStore, notifier events.Notifier, log zerolog.Logger, opts ...Option) *Engine {
	var mu sync.Mutex
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	e := &Engine{
		rooms:    store,
		notifier: notifier,
		log:      log.With().Str("component", "game").Logger(),
		now:      time.Now,
		newID:    func() string { return uuid.NewString() },
		shuffle: func(n int, swap func(i, j int)) {
			mu.Lock()
			defer mu.Unlock()
			rng.Shuffle(n, swap)
		},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// transition records what a committed write did, for the side effects that
// follow it. It is reset on every attempt of an optimistic write.
type transition struct {
	turnStarted bool
	finished    bool
}

// SubmitPrompt adds the player's prompt. The last missing prompt closes intake,
// deals the turn queue and starts the first defense.
func (e *Engine) SubmitPrompt(ctx context.Context, roomID, playerID, text string) (*models.Room, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: prompt text required", models.ErrValidation)
	}
	if utf8.RuneCountInString(text) > MaxPromptLength {
		return nil, fmt.Errorf("%w: prompt longer than %d characters", models.ErrValidation, MaxPromptLength)
	}

	var tr transition
	room, err := e.rooms.Update(ctx, roomID, func(room *models.Room) error {
		tr = transition{}
		if room.Status != models.StatusPromptEntry {
			return models.ErrWrongPhase
		}
		if _, ok := room.Player(playerID); !ok {
			return models.ErrPlayerNotFound
		}
		gs := room.GameState
		if gs.HasSubmitted(playerID) {
			return models.ErrAlreadySubmitted
		}
		gs.Prompts = append(gs.Prompts, models.Prompt{ID: e.newID(), AuthorID: playerID, Text: text})
		e.closeIntakeIfComplete(room, &tr)
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.log.Debug().Str("room_id", roomID).Str("player_id", playerID).Msg("prompt submitted")
	e.committed(ctx, room, tr)
	return room, nil
}

// EndTurn moves a defense into voting. It reports false, without error, when
// the room is not in the defense phase.
func (e *Engine) EndTurn(ctx context.Context, roomID string) (bool, error) {
	return e.endTurn(ctx, roomID, 0)
}

// EndTurnIfCurrent is EndTurn restricted to a specific turn number, so a timer
// set for an earlier turn cannot cut a later one short.
func (e *Engine) EndTurnIfCurrent(ctx context.Context, roomID string, turn int) (bool, error) {
	return e.endTurn(ctx, roomID, turn)
}

func (e *Engine) endTurn(ctx context.Context, roomID string, turn int) (bool, error) {
	room, err := e.rooms.Update(ctx, roomID, func(room *models.Room) error {
		if room.Status != models.StatusDefense {
			return rooms.ErrNoop
		}
		if turn != 0 && room.GameState.Turn != turn {
			return rooms.ErrNoop
		}
		room.Status = models.StatusVoting
		room.GameState.Deadline = nil
		return nil
	})
	if errors.Is(err, rooms.ErrNoop) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if e.timers != nil {
		e.timers.Cancel(roomID)
	}
	e.log.Debug().Str("room_id", roomID).Int("turn", room.GameState.Turn).Msg("defense ended")
	e.announce(ctx, room)
	return true, nil
}

// SubmitVote records the player's vote for the current defender. The last
// missing vote tallies the turn and starts the next one.
func (e *Engine) SubmitVote(ctx context.Context, roomID, playerID string, value int) (*models.Room, error) {
	if value < MinVote || value > MaxVote {
		return nil, fmt.Errorf("%w: vote must be between %d and %d", models.ErrValidation, MinVote, MaxVote)
	}

	var tr transition
	room, err := e.rooms.Update(ctx, roomID, func(room *models.Room) error {
		tr = transition{}
		if room.Status != models.StatusVoting {
			return models.ErrNotVoting
		}
		if _, ok := room.Player(playerID); !ok {
			return models.ErrPlayerNotFound
		}
		gs := room.GameState
		if gs.CurrentTurn != nil && gs.CurrentTurn.DefenderID == playerID {
			return models.ErrDefenderCannotVote
		}
		gs.Votes[playerID] = value
		e.tallyIfComplete(room, &tr)
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.log.Debug().Str("room_id", roomID).Str("player_id", playerID).Msg("vote recorded")
	e.committed(ctx, room, tr)
	return room, nil
}

// ResetGame returns a finished room to the lobby with scores cleared.
func (e *Engine) ResetGame(ctx context.Context, roomID string) (*models.Room, error) {
	room, err := e.rooms.Update(ctx, roomID, func(room *models.Room) error {
		if room.Status != models.StatusResults {
			return models.ErrWrongPhase
		}
		room.Status = models.StatusLobby
		room.GameState = nil
		for i := range room.Players {
			room.Players[i].Score = 0
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.log.Info().Str("room_id", roomID).Msg("game reset")
	e.announce(ctx, room)
	return room, nil
}

// Reconcile re-evaluates a running game whose roster shrank: intake may now be
// complete, the defender may be gone, or the missing vote may have left.
func (e *Engine) Reconcile(ctx context.Context, roomID string) (*models.Room, error) {
	var tr transition
	room, err := e.rooms.Update(ctx, roomID, func(room *models.Room) error {
		tr = transition{}
		if !e.reconcile(room, &tr) {
			return rooms.ErrNoop
		}
		return nil
	})
	if errors.Is(err, rooms.ErrNoop) || errors.Is(err, models.ErrRoomNotFound) {
		return room, nil
	}
	if err != nil {
		return nil, err
	}

	e.log.Info().Str("room_id", roomID).Str("status", string(room.Status)).Msg("game reconciled")
	e.committed(ctx, room, tr)
	return room, nil
}

// ReconcileDeparture lets rooms.Store fold the game fix-up into the write that
// removes a player. The store announces the room; the returned function only
// runs the timer and archive effects.
func (e *Engine) ReconcileDeparture(room *models.Room) func(ctx context.Context, room *models.Room) {
	var tr transition
	if !e.reconcile(room, &tr) {
		return nil
	}
	return func(ctx context.Context, room *models.Room) {
		e.log.Info().Str("room_id", room.ID).Str("status", string(room.Status)).Msg("game reconciled after departure")
		e.sideEffects(ctx, room, tr)
	}
}

// reconcile reports whether it changed the room.
func (e *Engine) reconcile(room *models.Room, tr *transition) bool {
	if !room.Status.InGame() {
		return false
	}
	if len(room.Players) < rooms.MinPlayers {
		finish(room, tr)
		return true
	}

	changed := false
	switch room.Status {
	case models.StatusPromptEntry:
		changed = e.closeIntakeIfComplete(room, tr)
	case models.StatusDefense, models.StatusVoting:
		changed = dropAbsentDefenders(room)
		if turn := room.GameState.CurrentTurn; turn == nil || !present(room, turn.DefenderID) {
			e.startTurn(room, tr)
			changed = true
		} else if room.Status == models.StatusVoting {
			changed = e.tallyIfComplete(room, tr) || changed
		}
	}
	return changed
}

// closeIntakeIfComplete deals the queue and starts the first turn once every
// current player has a prompt in.
func (e *Engine) closeIntakeIfComplete(room *models.Room, tr *transition) bool {
	gs := room.GameState
	for _, p := range room.Players {
		if !gs.HasSubmitted(p.ID) {
			return false
		}
	}
	gs.Queue = e.buildQueue(room.Players, gs.Prompts)
	e.startTurn(room, tr)
	return true
}

// startTurn pops the next defender whose player is still here. With nothing left
// the game is over.
func (e *Engine) startTurn(room *models.Room, tr *transition) {
	gs := room.GameState
	gs.Votes = map[string]int{}
	for len(gs.Queue) > 0 {
		head := gs.Queue[0]
		gs.Queue = gs.Queue[1:]
		if !present(room, head.DefenderID) {
			continue
		}
		deadline := e.now().UTC().Add(time.Duration(room.Settings.TimeLimit) * time.Second)
		gs.CurrentTurn = &head
		gs.Turn++
		gs.Deadline = &deadline
		room.Status = models.StatusDefense
		tr.turnStarted = true
		return
	}
	finish(room, tr)
}

// tallyIfComplete adds the votes to the defender once every other player voted.
func (e *Engine) tallyIfComplete(room *models.Room, tr *transition) bool {
	gs := room.GameState
	if gs.CurrentTurn == nil {
		return false
	}
	defenderID := gs.CurrentTurn.DefenderID

	sum, voters := 0, 0
	for _, p := range room.Players {
		if p.ID == defenderID {
			continue
		}
		if v, ok := gs.Votes[p.ID]; ok {
			sum += v
			voters++
		}
	}
	if voters < len(room.Players)-1 {
		return false
	}

	if defender, ok := room.Player(defenderID); ok {
		defender.Score += sum
	}
	gs.Votes = map[string]int{}
	e.startTurn(room, tr)
	return true
}

func finish(room *models.Room, tr *transition) {
	gs := room.GameState
	gs.CurrentTurn = nil
	gs.Queue = []models.TurnInfo{}
	gs.Votes = map[string]int{}
	gs.Deadline = nil
	room.Status = models.StatusResults
	tr.finished = true
}

func dropAbsentDefenders(room *models.Room) bool {
	gs := room.GameState
	kept := gs.Queue[:0]
	for _, t := range gs.Queue {
		if present(room, t.DefenderID) {
			kept = append(kept, t)
		}
	}
	dropped := len(kept) != len(gs.Queue)
	gs.Queue = kept
	return dropped
}

func present(room *models.Room, playerID string) bool {
	_, ok := room.Player(playerID)
	return ok
}

// committed runs the side effects of a write that went through and announces it.
func (e *Engine) committed(ctx context.Context, room *models.Room, tr transition) {
	e.sideEffects(ctx, room, tr)
	e.announce(ctx, room)
}

func (e *Engine) sideEffects(ctx context.Context, room *models.Room, tr transition) {
	if tr.turnStarted && e.timers != nil && room.Status == models.StatusDefense {
		e.scheduleTurnEnd(room)
	}
	if tr.finished {
		if e.timers != nil {
			e.timers.Cancel(room.ID)
		}
		e.log.Info().Str("room_id", room.ID).Msg("game finished")
		e.record(ctx, room)
	}
}

func (e *Engine) scheduleTurnEnd(room *models.Room) {
	gs := room.GameState
	if gs.Deadline == nil {
		return
	}
	roomID, turn := room.ID, gs.Turn
	e.timers.Schedule(roomID, *gs.Deadline, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		ended, err := e.EndTurnIfCurrent(ctx, roomID, turn)
		switch {
		case errors.Is(err, models.ErrRoomNotFound):
		case err != nil:
			e.log.Error().Err(err).Str("room_id", roomID).Int("turn", turn).Msg("timed end of turn failed")
		case ended:
			e.log.Debug().Str("room_id", roomID).Int("turn", turn).Msg("defense timed out")
		}
	})
}

func (e *Engine) record(ctx context.Context, room *models.Room) {
	if e.recorder == nil {
		return
	}
	if err := e.recorder.RecordResult(ctx, room); err != nil {
		e.log.Warn().Err(err).Str("room_id", room.ID).Msg("failed to archive result")
	}
}

func (e *Engine) announce(ctx context.Context, room *models.Room) {
	if err := e.notifier.AnnounceRoomUpdated(ctx, room); err != nil {
		e.log.Warn().Err(err).Str("room_id", room.ID).Msg("room updated announcement failed")
	}
}
