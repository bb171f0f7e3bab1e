// Package predictor estimates exam outcomes from a student's attempt
// history and topic mastery.
package predictor

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/examforge/arena/internal/arena"
	"github.com/examforge/arena/internal/qbank"
)

// Trend labels.
const (
	TrendImproving = "improving"
	TrendStable    = "stable"
	TrendDeclining = "declining"
)

const (
	recencyDecay       = 0.3
	trendWindow        = 5
	trendSlopeBand     = 2.0
	trendAdjust        = 3.0
	weakTopicCutoff    = 60.0
	maxWeakTopics      = 5
	maxSuggestions     = 5
	highScoreBar       = 80.0
	highScoreRatioBar  = 0.6
	consistentStddev   = 5.0
	inconsistentStddev = 20.0
	// Consistency says nothing with fewer than three samples.
	consistencyMinSamples = 3
)

// Prediction is the outcome estimate for one exam and subject.
type Prediction struct {
	Exam            qbank.Exam `json:"exam"`
	Subject         string     `json:"subject"`
	PredictedScore  float64    `json:"predicted_score"`
	SelectionChance float64    `json:"selection_chance"`
	Trend           string     `json:"trend"`
	WeakTopics      []string   `json:"weak_topics"`
	Suggestions     []string   `json:"suggestions"`
	SampleSize      int        `json:"sample_size"`
}

// Service computes predictions from stored attempts and mastery.
type Service struct {
	store arena.Store
}

// NewService wraps store for prediction queries.
func NewService(store arena.Store) *Service {
	return &Service{store: store}
}

// Predict estimates the student's outcome. With no completed attempts
// it returns a zeroed prediction rather than an error.
func (s *Service) Predict(ctx context.Context, studentID string, exam qbank.Exam, subject string) (*Prediction, error) {
	attempts, err := s.store.RecentAttempts(ctx, studentID, exam, subject, 0)
	if err != nil {
		return nil, fmt.Errorf("loading attempts: %w", err)
	}
	mastery, err := s.store.MasteryForSubject(ctx, studentID, exam, subject)
	if err != nil {
		return nil, fmt.Errorf("loading mastery: %w", err)
	}

	// Attempts arrive newest first; scoring wants chronological order.
	scores := make([]float64, len(attempts))
	for i, a := range attempts {
		scores[len(attempts)-1-i] = a.AccuracyPercent
	}

	p := Compute(scores, mastery)
	p.Exam = exam
	p.Subject = subject
	return p, nil
}

// Compute builds a prediction from chronological accuracy percentages
// and the student's topic mastery.
func Compute(scores []float64, mastery []arena.TopicMastery) *Prediction {
	if len(scores) == 0 {
		return &Prediction{
			Trend:       TrendStable,
			Suggestions: []string{"Complete a few arena attempts to unlock your prediction."},
		}
	}

	predicted := weightedAverage(scores)
	trend := classifyTrend(scores)
	switch trend {
	case TrendImproving:
		predicted += trendAdjust
	case TrendDeclining:
		predicted -= trendAdjust
	}
	predicted = math.Max(0, math.Min(100, predicted))

	chance := baseChance(predicted)
	sd := stddev(scores)
	if len(scores) >= consistencyMinSamples {
		if sd < consistentStddev {
			chance += 5
		} else if sd > inconsistentStddev {
			chance -= 8
		}
	}
	if highScoreRatio(scores) > highScoreRatioBar {
		chance += 5
	}
	chance = math.Max(0, math.Min(100, chance))

	weak := weakTopics(mastery)
	return &Prediction{
		PredictedScore:  math.Round(predicted*10) / 10,
		SelectionChance: math.Round(chance*10) / 10,
		Trend:           trend,
		WeakTopics:      weak,
		Suggestions:     suggestions(trend, sd, weak),
		SampleSize:      len(scores),
	}
}

// weightedAverage decays exponentially so recent attempts dominate.
func weightedAverage(scores []float64) float64 {
	n := len(scores)
	var sum, weights float64
	for i, s := range scores {
		w := math.Exp(recencyDecay * float64(i-n+1))
		sum += s * w
		weights += w
	}
	return sum / weights
}

// classifyTrend fits a least-squares line through the last five scores.
func classifyTrend(scores []float64) string {
	window := scores
	if len(window) > trendWindow {
		window = window[len(window)-trendWindow:]
	}
	if len(window) < 2 {
		return TrendStable
	}

	n := float64(len(window))
	var sumX, sumY, sumXY, sumXX float64
	for i, y := range window {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}
	slope := (n*sumXY - sumX*sumY) / (n*sumXX - sumX*sumX)

	switch {
	case slope > trendSlopeBand:
		return TrendImproving
	case slope < -trendSlopeBand:
		return TrendDeclining
	default:
		return TrendStable
	}
}

func baseChance(predicted float64) float64 {
	switch {
	case predicted >= 90:
		return 92
	case predicted >= 80:
		return 75
	case predicted >= 70:
		return 50
	case predicted >= 60:
		return 30
	case predicted >= 50:
		return 15
	default:
		return 5
	}
}

func stddev(scores []float64) float64 {
	if len(scores) < 2 {
		return 0
	}
	var sum float64
	for _, s := range scores {
		sum += s
	}
	mean := sum / float64(len(scores))
	var variance float64
	for _, s := range scores {
		variance += (s - mean) * (s - mean)
	}
	return math.Sqrt(variance / float64(len(scores)))
}

func highScoreRatio(scores []float64) float64 {
	high := 0
	for _, s := range scores {
		if s >= highScoreBar {
			high++
		}
	}
	return float64(high) / float64(len(scores))
}

// weakTopics returns the lowest-mastery topics under the cutoff.
func weakTopics(mastery []arena.TopicMastery) []string {
	under := make([]arena.TopicMastery, 0, len(mastery))
	for _, m := range mastery {
		if m.MasteryScore < weakTopicCutoff {
			under = append(under, m)
		}
	}
	sort.SliceStable(under, func(i, j int) bool {
		return under[i].MasteryScore < under[j].MasteryScore
	})
	if len(under) > maxWeakTopics {
		under = under[:maxWeakTopics]
	}
	out := make([]string, len(under))
	for i, m := range under {
		out[i] = m.TopicTag
	}
	return out
}

func suggestions(trend string, sd float64, weak []string) []string {
	var out []string
	switch trend {
	case TrendDeclining:
		out = append(out, "Your recent scores are slipping. Slow down and review before the next attempt.")
	case TrendImproving:
		out = append(out, "You are trending up. Keep the current routine going.")
	}
	if sd > inconsistentStddev {
		out = append(out, "Your scores swing a lot. Fixed daily practice will steady them.")
	}
	for _, topic := range weak {
		if len(out) >= maxSuggestions {
			break
		}
		out = append(out, fmt.Sprintf("Drill %s with targeted practice questions.", topic))
	}
	if len(out) > maxSuggestions {
		out = out[:maxSuggestions]
	}
	return out
}
