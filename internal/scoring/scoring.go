// Package scoring holds the pure arithmetic of the betting game: skip
// penalties, payouts, knowledge scores and persona classification.
package scoring

import (
	"math"

	"betting-assessment-service/internal/domain"
)

const (
	skipPenaltyRate = 0.05
	// HighConfidencePercent is the share of the balance at which a bet counts as high confidence.
	HighConfidencePercent = 40.0
	highKnowledgeAccuracy = 50.0
)

// SkipPenalty is 5% of coins rounded to the nearest multiple of ten.
func SkipPenalty(coins int) int {
	if coins <= 0 {
		return 0
	}
	return int(math.Round(float64(coins)*skipPenaltyRate/10)) * 10
}

// Payout is the full return (stake plus profit) of a winning wager, floored.
// Products beyond the int range saturate at math.MaxInt.
func Payout(amount int, multiplier float64) int {
	if amount <= 0 || !(multiplier > 0) {
		return 0
	}
	p := math.Floor(float64(amount) * multiplier)
	if p >= math.MaxInt {
		return math.MaxInt
	}
	return int(p)
}

// SaturatingAdd adds two non-negative balances, clamping at math.MaxInt.
func SaturatingAdd(a, b int) int {
	if b > math.MaxInt-a {
		return math.MaxInt
	}
	return a + b
}

// ConfidencePercent is the share of balance staked, 0 when nothing is at stake.
func ConfidencePercent(totalBet, coins int) float64 {
	if totalBet <= 0 || coins <= 0 {
		return 0
	}
	return float64(totalBet) / float64(coins) * 100
}

// Confidence classifies a bet by the share of balance staked.
func Confidence(percent float64) domain.ConfidenceLevel {
	if percent >= HighConfidencePercent {
		return domain.ConfidenceHigh
	}
	return domain.ConfidenceLow
}

// KnowledgeScore combines correctness and confidence into a 0-100 score.
func KnowledgeScore(responses []domain.Response, totalQuestions int) int {
	maxScore := totalQuestions * 3
	if maxScore <= 0 {
		return 0
	}
	score := 0
	for _, r := range responses {
		if !r.IsBet() {
			continue
		}
		high := r.ConfidenceLevel == domain.ConfidenceHigh
		switch {
		case r.Correct && high:
			score += 3
		case r.Correct:
			score++
		case high:
			score -= 2
		default:
			score--
		}
	}
	result := int(math.Round(float64(score) / float64(maxScore) * 100))
	if result < 0 {
		return 0
	}
	return result
}

// Persona is a cosmetic label derived from accuracy and confidence.
type Persona struct {
	Name    string `json:"name"`
	Emoji   string `json:"emoji"`
	Message string `json:"message"`
}

// personas is indexed by [highKnowledge][highConfidence].
var personas = [2][2]Persona{
	{
		{Name: "Netflix & Cram", Emoji: "📺", Message: "Running on coffee and vibes. Time to recharge and review those notes!"},
		{Name: "Main Character Syndrome", Emoji: "📸", Message: "Big bets, bigger dreams! Maybe hit the library before the next party?"},
	},
	{
		{Name: "Undercover Genius", Emoji: "🥸", Message: "Acing it while betting low? You're too humble - flex a little next time!"},
		{Name: "Campus Legend", Emoji: "🎓", Message: "You walked in, owned it, and walked out. Absolute main character energy!"},
	},
}

// ClassifyPersona looks up the persona quadrant for the given percentages.
func ClassifyPersona(accuracyPercent, avgConfidencePercent float64) Persona {
	return personas[boolIndex(accuracyPercent >= highKnowledgeAccuracy)][boolIndex(avgConfidencePercent >= HighConfidencePercent)]
}

func boolIndex(b bool) int {
	if b {
		return 1
	}
	return 0
}
