package core

// positionScores maps a citation position to a visibility score per platform.
// Positions missing from a table score zero.
var positionScores = map[Platform]map[int]float64{
	PlatformChatGPT:    {1: 10, 2: 7, 3: 7, 4: 4, 5: 4},
	PlatformPerplexity: {1: 10, 2: 8, 3: 6, 4: 4, 5: 3},
	PlatformGoogleAI:   {1: 10, 2: 7, 3: 5, 4: 3, 5: 2},
	PlatformClaude:     {1: 10, 2: 7, 3: 6, 4: 4, 5: 3},
}

// ScoreForPosition returns the visibility score for a citation position.
func ScoreForPosition(platform Platform, position int) float64 {
	table, ok := positionScores[platform]
	if !ok {
		return 0
	}
	return table[position]
}

// MaxPosition caps extracted positions.
const MaxPosition = 10
