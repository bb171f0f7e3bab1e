// Package leaderboard maintains class and global standings computed
// from quiz submissions. Standings are fully recomputed per class, so a
// crash mid-write never leaves a half-ranked board.
package leaderboard

import (
	"math"
	"sort"
	"strings"
	"time"
)

// Composite score weights.
const (
	weightAvgScore   = 0.60
	weightCompletion = 0.25
	weightEfficiency = 0.15
)

// StudentStats is the per-student aggregate over a class's submissions.
type StudentStats struct {
	StudentID      string
	AvgScore       float64 // mean percentage over submissions
	QuizzesDone    int
	TotalCorrect   int
	TotalQuestions int
}

// Score is one stored leaderboard row.
type Score struct {
	StudentID      string    `json:"student_id"`
	ClassID        string    `json:"class_id"`
	AvgScore       float64   `json:"avg_score"`
	QuizzesDone    int       `json:"quizzes_done"`
	TotalCorrect   int       `json:"total_correct"`
	TotalQuestions int       `json:"total_questions"`
	Efficiency     float64   `json:"efficiency"`
	CompositeScore float64   `json:"composite_score"`
	RankPosition   int       `json:"rank_position"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Row is one display entry. Email is masked before it leaves the
// server.
type Row struct {
	RankPosition   int     `json:"rank_position"`
	StudentID      string  `json:"student_id"`
	StudentName    string  `json:"student_name"`
	MaskedEmail    string  `json:"masked_email"`
	AvgScore       float64 `json:"avg_score"`
	QuizzesDone    int     `json:"quizzes_done"`
	Efficiency     float64 `json:"efficiency"`
	CompositeScore float64 `json:"composite_score"`
	Badge          string  `json:"badge,omitempty"`
}

var rankBadges = map[int]string{1: "🥇", 2: "🥈", 3: "🥉"}

// ComputeScores turns raw per-student aggregates into ranked rows.
// Ordering is by composite score descending; equal scores keep their
// input order. Ranks are 1-based and assigned after the sort.
func ComputeScores(classID string, stats []StudentStats, totalQuizzes int, now time.Time) []Score {
	scores := make([]Score, 0, len(stats))
	for _, s := range stats {
		completion := 0.0
		if totalQuizzes > 0 {
			completion = math.Min(100, float64(s.QuizzesDone)/float64(totalQuizzes)*100)
		}
		efficiency := 0.0
		if s.TotalQuestions > 0 {
			efficiency = float64(s.TotalCorrect) / float64(s.TotalQuestions) * 100
		}
		composite := s.AvgScore*weightAvgScore + completion*weightCompletion + efficiency*weightEfficiency
		scores = append(scores, Score{
			StudentID:      s.StudentID,
			ClassID:        classID,
			AvgScore:       round1(s.AvgScore),
			QuizzesDone:    s.QuizzesDone,
			TotalCorrect:   s.TotalCorrect,
			TotalQuestions: s.TotalQuestions,
			Efficiency:     round1(efficiency),
			CompositeScore: round2(composite),
			UpdatedAt:      now,
		})
	}

	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].CompositeScore > scores[j].CompositeScore
	})
	for i := range scores {
		scores[i].RankPosition = i + 1
	}
	return scores
}

// MaskEmail hides the local part of an address. Single-character local
// parts are replaced entirely.
func MaskEmail(email string) string {
	at := strings.Index(email, "@")
	if at < 0 {
		return email
	}
	local, domain := email[:at], email[at:]
	if len(local) <= 1 {
		return "*" + domain
	}
	return local[:1] + "***" + domain
}

// Badge returns the medal for a rank position, or empty.
func Badge(rank int) string {
	return rankBadges[rank]
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }
func round2(v float64) float64 { return math.Round(v*100) / 100 }
