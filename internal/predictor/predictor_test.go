package predictor_test

import (
	"context"
	"testing"

	"github.com/examforge/arena/internal/arena"
	"github.com/examforge/arena/internal/predictor"
	"github.com/examforge/arena/internal/qbank"
)

func TestCompute_NoHistory(t *testing.T) {
	p := predictor.Compute(nil, nil)
	if p.PredictedScore != 0 || p.SelectionChance != 0 {
		t.Errorf("empty history prediction = %v/%v, want zeros", p.PredictedScore, p.SelectionChance)
	}
	if p.Trend != predictor.TrendStable {
		t.Errorf("empty history trend = %q, want stable", p.Trend)
	}
	if len(p.Suggestions) == 0 {
		t.Error("empty history should still suggest next steps")
	}
}

func TestCompute_Trend(t *testing.T) {
	tests := []struct {
		name   string
		scores []float64
		want   string
	}{
		{"improving", []float64{50, 60, 70, 80, 90}, predictor.TrendImproving},
		{"declining", []float64{90, 80, 70, 60, 50}, predictor.TrendDeclining},
		{"flat", []float64{70, 71, 70, 69, 70}, predictor.TrendStable},
		{"single attempt", []float64{70}, predictor.TrendStable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if p := predictor.Compute(tt.scores, nil); p.Trend != tt.want {
				t.Errorf("trend = %q, want %q", p.Trend, tt.want)
			}
		})
	}
}

func TestCompute_RecentScoresDominate(t *testing.T) {
	recentStrong := predictor.Compute([]float64{40, 40, 40, 90, 90}, nil)
	recentWeak := predictor.Compute([]float64{90, 90, 40, 40, 40}, nil)
	if recentStrong.PredictedScore <= recentWeak.PredictedScore {
		t.Errorf("recent strong %v should beat recent weak %v",
			recentStrong.PredictedScore, recentWeak.PredictedScore)
	}
}

func TestCompute_ConsistencyAdjustsChance(t *testing.T) {
	steady := predictor.Compute([]float64{75, 76, 75, 74, 75}, nil)
	erratic := predictor.Compute([]float64{30, 95, 40, 99, 35}, nil)
	if steady.SelectionChance <= erratic.SelectionChance {
		t.Errorf("steady chance %v should beat erratic chance %v",
			steady.SelectionChance, erratic.SelectionChance)
	}
}

func TestCompute_ConsistencyNeedsThreeSamples(t *testing.T) {
	two := predictor.Compute([]float64{75, 75}, nil)
	three := predictor.Compute([]float64{75, 75, 75}, nil)
	if two.SelectionChance != 50 {
		t.Errorf("two-sample chance = %v, want the unadjusted 50", two.SelectionChance)
	}
	if three.SelectionChance != 55 {
		t.Errorf("three-sample chance = %v, want 55 with the consistency bonus", three.SelectionChance)
	}
}

func TestCompute_Bounds(t *testing.T) {
	cases := [][]float64{
		{100, 100, 100, 100, 100},
		{0, 0, 0},
		{100},
	}
	for _, scores := range cases {
		p := predictor.Compute(scores, nil)
		if p.PredictedScore < 0 || p.PredictedScore > 100 {
			t.Errorf("predicted score %v out of bounds for %v", p.PredictedScore, scores)
		}
		if p.SelectionChance < 0 || p.SelectionChance > 100 {
			t.Errorf("selection chance %v out of bounds for %v", p.SelectionChance, scores)
		}
	}
}

func TestCompute_WeakTopics(t *testing.T) {
	mastery := []arena.TopicMastery{
		{TopicTag: "Mechanics", MasteryScore: 30},
		{TopicTag: "Optics", MasteryScore: 55},
		{TopicTag: "Waves", MasteryScore: 85},
		{TopicTag: "Thermodynamics", MasteryScore: 10},
		{TopicTag: "Electrostatics", MasteryScore: 45},
		{TopicTag: "Gravitation", MasteryScore: 50},
		{TopicTag: "Magnetism", MasteryScore: 58},
	}
	p := predictor.Compute([]float64{70, 70}, mastery)
	if len(p.WeakTopics) != 5 {
		t.Fatalf("got %d weak topics, want 5", len(p.WeakTopics))
	}
	if p.WeakTopics[0] != "Thermodynamics" {
		t.Errorf("weakest topic = %q, want Thermodynamics", p.WeakTopics[0])
	}
	for _, topic := range p.WeakTopics {
		if topic == "Waves" {
			t.Error("mastered topic listed as weak")
		}
	}
	if len(p.Suggestions) > 5 {
		t.Errorf("got %d suggestions, want at most 5", len(p.Suggestions))
	}
}

func TestService_Predict(t *testing.T) {
	store := arena.NewMemoryStore()
	svc := predictor.NewService(store)
	ctx := context.Background()

	p, err := svc.Predict(ctx, "s1", qbank.ExamJEE, "Physics")
	if err != nil {
		t.Fatalf("Predict() error = %v", err)
	}
	if p.SampleSize != 0 {
		t.Errorf("sample size = %d, want 0", p.SampleSize)
	}
	if p.Exam != qbank.ExamJEE || p.Subject != "Physics" {
		t.Errorf("prediction scope = %s %s, want JEE Physics", p.Exam, p.Subject)
	}
}
