package arena

import "math"

// Component weights of the readiness score.
const (
	readinessAccuracyWeight   = 0.50
	readinessDifficultyWeight = 0.25
	readinessSpeedWeight      = 0.15
	readinessPenaltyWeight    = 0.10
)

var difficultyValue = map[string]float64{
	"Easy":    30,
	"Medium":  60,
	"Hard":    90,
	"Extreme": 100,
}

// ComputeReadiness scores exam readiness from 0 to 100 over a student's
// completed attempts, newest first. No attempts means 0. Each component
// is itself 0..100 before weighting, and the final score is rounded to
// one decimal.
func ComputeReadiness(attempts []Attempt) float64 {
	if len(attempts) == 0 {
		return 0
	}

	// Accuracy, recency-weighted so the newest attempt counts most.
	var accSum, accWeight float64
	for i, a := range attempts {
		w := 1.0 / (1.0 + 0.3*float64(i))
		acc := 0.0
		if a.TotalQuestions > 0 {
			acc = float64(a.Score) / float64(a.TotalQuestions) * 100
		}
		accSum += acc * w
		accWeight += w
	}
	accuracyComponent := accSum / accWeight

	// Difficulty progression, averaged over the end difficulty of each
	// attempt. Unrated difficulties count as the midpoint.
	var diffSum float64
	for _, a := range attempts {
		d := string(a.DifficultyEnd)
		if d == "" {
			d = string(a.DifficultyStart)
		}
		v, ok := difficultyValue[d]
		if !ok {
			v = 50
		}
		diffSum += v
	}
	difficultyComponent := diffSum / float64(len(attempts))

	// Speed: faster than 90s per question scores higher, with a
	// consistency bonus when timings are available for 2+ attempts.
	var times []float64
	for _, a := range attempts {
		if a.AvgTimePerQuestion > 0 {
			times = append(times, a.AvgTimePerQuestion)
		}
	}
	speedComponent := 50.0
	if len(times) > 0 {
		var sum float64
		for _, t := range times {
			sum += t
		}
		mean := sum / float64(len(times))
		speedComponent = clamp((90-mean)/90*100, 0, 100)
		if len(times) >= 2 {
			var variance float64
			for _, t := range times {
				variance += (t - mean) * (t - mean)
			}
			stddev := math.Sqrt(variance / float64(len(times)))
			bonus := math.Max(0, math.Min(20, 20-stddev))
			speedComponent = math.Min(100, speedComponent+bonus)
		}
	}

	// Attempt penalty: the share of failed attempts drags readiness down.
	failed := 0
	for _, a := range attempts {
		acc := 0.0
		if a.TotalQuestions > 0 {
			acc = float64(a.Score) / float64(a.TotalQuestions) * 100
		}
		if acc < 40 {
			failed++
		}
	}
	penaltyComponent := (1 - float64(failed)/float64(len(attempts))) * 100

	score := accuracyComponent*readinessAccuracyWeight +
		difficultyComponent*readinessDifficultyWeight +
		speedComponent*readinessSpeedWeight +
		penaltyComponent*readinessPenaltyWeight
	return round1(clamp(score, 0, 100))
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
