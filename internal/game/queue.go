package game

import "github.com/thereayou/hotseat/internal/models"

// buildQueue deals one shuffled prompt to each player in roster order. A player
// dealt their own prompt is swapped with another position.
func (e *Engine) buildQueue(players []models.Player, prompts []models.Prompt) []models.TurnInfo {
	if len(prompts) == 0 {
		return []models.TurnInfo{}
	}
	shuffled := make([]models.Prompt, len(prompts))
	copy(shuffled, prompts)
	e.shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

	for i := range players {
		if i >= len(shuffled) || shuffled[i].AuthorID != players[i].ID {
			continue
		}
		for j := range shuffled {
			if j == i || shuffled[j].AuthorID == players[i].ID {
				continue
			}
			if j < len(players) && shuffled[i].AuthorID == players[j].ID {
				continue
			}
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
			break
		}
	}

	queue := make([]models.TurnInfo, 0, len(players))
	for i, p := range players {
		prompt := shuffled[i%len(shuffled)]
		queue = append(queue, models.TurnInfo{
			DefenderID: p.ID,
			PromptID:   prompt.ID,
			PromptText: prompt.Text,
		})
	}
	return queue
}
