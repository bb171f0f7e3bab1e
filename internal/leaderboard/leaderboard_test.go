package leaderboard_test

import (
	"testing"
	"time"

	"github.com/examforge/arena/internal/leaderboard"
)

func TestComputeScores(t *testing.T) {
	now := time.Now()
	stats := []leaderboard.StudentStats{
		{StudentID: "s1", AvgScore: 60.2, QuizzesDone: 3, TotalCorrect: 18, TotalQuestions: 30},
		{StudentID: "s2", AvgScore: 85.5, QuizzesDone: 5, TotalCorrect: 43, TotalQuestions: 50},
		{StudentID: "s3", AvgScore: 70.0, QuizzesDone: 4, TotalCorrect: 28, TotalQuestions: 40},
	}

	scores := leaderboard.ComputeScores("class-1", stats, 5, now)
	if len(scores) != 3 {
		t.Fatalf("got %d scores, want 3", len(scores))
	}

	wantOrder := []string{"s2", "s3", "s1"}
	for i, want := range wantOrder {
		if scores[i].StudentID != want {
			t.Errorf("position %d = %s, want %s", i+1, scores[i].StudentID, want)
		}
		if scores[i].RankPosition != i+1 {
			t.Errorf("rank of %s = %d, want %d", scores[i].StudentID, scores[i].RankPosition, i+1)
		}
	}

	// s2: 85.5*0.6 + 100*0.25 + 86*0.15 = 51.3 + 25 + 12.9 = 89.2
	if scores[0].CompositeScore != 89.2 {
		t.Errorf("top composite = %v, want 89.2", scores[0].CompositeScore)
	}
	if scores[0].Efficiency != 86 {
		t.Errorf("top efficiency = %v, want 86", scores[0].Efficiency)
	}
}

func TestComputeScores_StableTies(t *testing.T) {
	stats := []leaderboard.StudentStats{
		{StudentID: "first", AvgScore: 80, QuizzesDone: 2, TotalCorrect: 16, TotalQuestions: 20},
		{StudentID: "second", AvgScore: 80, QuizzesDone: 2, TotalCorrect: 16, TotalQuestions: 20},
	}
	scores := leaderboard.ComputeScores("class-1", stats, 2, time.Now())
	if scores[0].StudentID != "first" || scores[1].StudentID != "second" {
		t.Errorf("tie broke input order: %s, %s", scores[0].StudentID, scores[1].StudentID)
	}
}

func TestComputeScores_CompletionCapped(t *testing.T) {
	// Submissions to since-deleted quizzes cannot push completion over 100.
	stats := []leaderboard.StudentStats{
		{StudentID: "s1", AvgScore: 50, QuizzesDone: 6, TotalCorrect: 30, TotalQuestions: 60},
	}
	scores := leaderboard.ComputeScores("class-1", stats, 4, time.Now())
	// 50*0.6 + 100*0.25 + 50*0.15 = 62.5
	if scores[0].CompositeScore != 62.5 {
		t.Errorf("composite = %v, want 62.5", scores[0].CompositeScore)
	}
}

func TestComputeScores_NoQuizzes(t *testing.T) {
	// A class with no quizzes yet grants no completion credit.
	stats := []leaderboard.StudentStats{
		{StudentID: "s1", AvgScore: 80, QuizzesDone: 1, TotalCorrect: 8, TotalQuestions: 10},
	}
	scores := leaderboard.ComputeScores("class-1", stats, 0, time.Now())
	// 80*0.6 + 0*0.25 + 80*0.15 = 60
	if scores[0].CompositeScore != 60 {
		t.Errorf("composite = %v, want 60", scores[0].CompositeScore)
	}
}

func TestMaskEmail(t *testing.T) {
	tests := []struct {
		email string
		want  string
	}{
		{"john@gmail.com", "j***@gmail.com"},
		{"a@x.com", "*@x.com"},
		{"ab@x.com", "a***@x.com"},
		{"no-at-sign", "no-at-sign"},
	}
	for _, tt := range tests {
		if got := leaderboard.MaskEmail(tt.email); got != tt.want {
			t.Errorf("MaskEmail(%q) = %q, want %q", tt.email, got, tt.want)
		}
	}
}

func TestBadge(t *testing.T) {
	if leaderboard.Badge(1) != "🥇" || leaderboard.Badge(2) != "🥈" || leaderboard.Badge(3) != "🥉" {
		t.Error("top three ranks missing medals")
	}
	if leaderboard.Badge(4) != "" {
		t.Errorf("Badge(4) = %q, want empty", leaderboard.Badge(4))
	}
}
