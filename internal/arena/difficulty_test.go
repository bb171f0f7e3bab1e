package arena_test

import (
	"testing"

	"github.com/examforge/arena/internal/arena"
	"github.com/examforge/arena/internal/qbank"
)

func attempt(accuracy, avgTime float64, diffEnd qbank.Difficulty) arena.Attempt {
	return arena.Attempt{
		AccuracyPercent:    accuracy,
		AvgTimePerQuestion: avgTime,
		DifficultyEnd:      diffEnd,
		Status:             arena.StatusCompleted,
	}
}

func TestSelectNextDifficulty(t *testing.T) {
	tests := []struct {
		name   string
		recent []arena.Attempt
		want   qbank.Difficulty
	}{
		{
			name:   "no history starts at medium",
			recent: nil,
			want:   qbank.Medium,
		},
		{
			name: "fast and accurate goes hard",
			recent: []arena.Attempt{
				attempt(90, 30, qbank.Hard),
				attempt(88, 35, qbank.Medium),
			},
			want: qbank.Hard,
		},
		{
			name: "two consecutive failures force easy",
			recent: []arena.Attempt{
				attempt(30, 30, qbank.Easy),
				attempt(35, 30, qbank.Easy),
				attempt(95, 20, qbank.Hard),
			},
			want: qbank.Easy,
		},
		{
			name: "single recent failure does not force easy",
			recent: []arena.Attempt{
				attempt(30, 40, qbank.Medium),
				attempt(80, 40, qbank.Medium),
				attempt(85, 40, qbank.Medium),
			},
			want: qbank.Medium,
		},
		{
			name: "good accuracy promotes past medium",
			recent: []arena.Attempt{
				attempt(75, 45, qbank.Medium),
				attempt(72, 45, qbank.Medium),
			},
			want: qbank.Hard,
		},
		{
			name: "good accuracy without medium history stays medium",
			recent: []arena.Attempt{
				attempt(75, 45, qbank.Easy),
				attempt(72, 45, qbank.Easy),
			},
			want: qbank.Medium,
		},
		{
			name: "slow pace drops to easy",
			recent: []arena.Attempt{
				attempt(60, 100, qbank.Medium),
				attempt(55, 95, qbank.Medium),
			},
			want: qbank.Easy,
		},
		{
			name: "moderate performance stays medium",
			recent: []arena.Attempt{
				attempt(60, 60, qbank.Medium),
			},
			want: qbank.Medium,
		},
		{
			name: "missing timings default to a medium pace",
			recent: []arena.Attempt{
				attempt(60, 0, qbank.Medium),
				attempt(55, 0, qbank.Medium),
			},
			want: qbank.Medium,
		},
		{
			name: "only the newest three attempts count",
			recent: []arena.Attempt{
				attempt(90, 30, qbank.Hard),
				attempt(90, 30, qbank.Hard),
				attempt(90, 30, qbank.Hard),
				attempt(10, 200, qbank.Easy),
			},
			want: qbank.Hard,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := arena.SelectNextDifficulty(tt.recent); got != tt.want {
				t.Errorf("SelectNextDifficulty() = %v, want %v", got, tt.want)
			}
		})
	}
}
