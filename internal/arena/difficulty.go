package arena

import "github.com/examforge/arena/internal/qbank"

// Recency weights over the newest three completed attempts.
var recencyWeights = [3]float64{0.5, 0.3, 0.2}

const defaultAvgTime = 60.0

// SelectNextDifficulty picks the difficulty for a student's next session
// from their most recent completed attempts, newest first. With no
// history it returns Medium. Two or more consecutive sub-40% attempts
// force Easy regardless of the weighted signals.
func SelectNextDifficulty(recent []Attempt) qbank.Difficulty {
	if len(recent) == 0 {
		return qbank.Medium
	}
	if len(recent) > len(recencyWeights) {
		recent = recent[:len(recencyWeights)]
	}

	var totalWeight, accuracy, speed float64
	for i, a := range recent {
		w := recencyWeights[i]
		avg := a.AvgTimePerQuestion
		if avg <= 0 {
			avg = defaultAvgTime
		}
		accuracy += a.AccuracyPercent * w
		speed += avg * w
		totalWeight += w
	}
	accuracy /= totalWeight
	speed /= totalWeight

	consecutiveFails := 0
	for _, a := range recent {
		if a.AccuracyPercent < 40 {
			consecutiveFails++
		} else {
			break
		}
	}
	if consecutiveFails >= 2 {
		return qbank.Easy
	}

	switch {
	case accuracy >= 85 && speed < 40:
		return qbank.Hard
	case accuracy >= 70 && speed < 50:
		if recent[0].DifficultyEnd == qbank.Medium {
			return qbank.Hard
		}
		return qbank.Medium
	case accuracy >= 50 && speed < 70:
		return qbank.Medium
	case accuracy < 40 || speed > 90:
		return qbank.Easy
	default:
		return qbank.Medium
	}
}
