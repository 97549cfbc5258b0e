package models

import "errors"

var (
	ErrValidation         = errors.New("validation failed")
	ErrDefenderCannotVote = errors.New("defender cannot vote on their own turn")

	ErrRoomNotFound   = errors.New("room not found")
	ErrPlayerNotFound = errors.New("player not found")

	ErrGameStarted      = errors.New("cannot join room: game already in progress")
	ErrWrongPhase       = errors.New("operation not allowed in the current phase")
	ErrNotVoting        = errors.New("room is not in the voting phase")
	ErrAlreadySubmitted = errors.New("prompt already submitted")
	ErrNotEnoughPlayers = errors.New("not enough players to start")

	ErrRoomFull = errors.New("cannot join room: player limit reached")

	ErrCorruptRoom   = errors.New("room metadata is corrupt")
	ErrContention    = errors.New("too many concurrent updates")
	ErrCodeExhausted = errors.New("could not reserve a join code")
)

// Kind groups errors the way callers report them.
type Kind int

const (
	KindStore Kind = iota
	KindValidation
	KindNotFound
	KindPhase
	KindCapacity
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindPhase:
		return "phase_conflict"
	case KindCapacity:
		return "capacity"
	default:
		return "store"
	}
}

// KindOf classifies err. Anything unrecognised is a store error.
func KindOf(err error) Kind {
	switch {
	case errors.Is(err, ErrValidation), errors.Is(err, ErrDefenderCannotVote):
		return KindValidation
	case errors.Is(err, ErrRoomNotFound), errors.Is(err, ErrPlayerNotFound):
		return KindNotFound
	case errors.Is(err, ErrGameStarted), errors.Is(err, ErrWrongPhase),
		errors.Is(err, ErrNotVoting), errors.Is(err, ErrAlreadySubmitted),
		errors.Is(err, ErrNotEnoughPlayers):
		return KindPhase
	case errors.Is(err, ErrRoomFull):
		return KindCapacity
	default:
		return KindStore
	}
}
