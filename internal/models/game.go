package models

import (
	"encoding/json"
	"fmt"
	"time"
)

type Prompt struct {
	ID       string `json:"id"`
	AuthorID string `json:"authorId"`
	Text     string `json:"text"`
}

// TurnInfo names who defends which prompt.
type TurnInfo struct {
	DefenderID string `json:"defenderId"`
	PromptID   string `json:"promptId"`
	PromptText string `json:"promptText"`
}

type GameState struct {
	Prompts     []Prompt       `json:"prompts"`
	Queue       []TurnInfo     `json:"queue"`
	Votes       map[string]int `json:"votes"`
	CurrentTurn *TurnInfo      `json:"currentTurn"`
	Turn        int            `json:"turn"`
	Deadline    *time.Time     `json:"deadline,omitempty"`
}

func NewGameState() *GameState {
	return &GameState{
		Prompts: []Prompt{},
		Queue:   []TurnInfo{},
		Votes:   map[string]int{},
	}
}

func (g *GameState) HasSubmitted(playerID string) bool {
	for _, p := range g.Prompts {
		if p.AuthorID == playerID {
			return true
		}
	}
	return false
}

// DecodeGameState parses the stored blob. An empty blob yields a nil state.
func DecodeGameState(raw string) (*GameState, error) {
	if raw == "" {
		return nil, nil
	}
	var gs GameState
	if err := json.Unmarshal([]byte(raw), &gs); err != nil {
		return nil, fmt.Errorf("decode game state: %w", err)
	}
	if gs.Prompts == nil {
		gs.Prompts = []Prompt{}
	}
	if gs.Queue == nil {
		gs.Queue = []TurnInfo{}
	}
	if gs.Votes == nil {
		gs.Votes = map[string]int{}
	}
	return &gs, nil
}

func EncodeGameState(gs *GameState) (string, error) {
	if gs == nil {
		return "", nil
	}
	data, err := json.Marshal(gs)
	if err != nil {
		return "", fmt.Errorf("encode game state: %w", err)
	}
	return string(data), nil
}
