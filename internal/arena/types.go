// Package arena implements the adaptive engine behind the exam arena:
// attempt lifecycle, difficulty selection, readiness scoring, topic
// mastery, ranks and XP, and revision plan generation.
package arena

import (
	"errors"
	"time"

	"github.com/examforge/arena/internal/qbank"
)

// AttemptType classifies a quiz-taking session.
type AttemptType string

const (
	AttemptDaily AttemptType = "daily"
	AttemptMock  AttemptType = "mock"
	AttemptBoss  AttemptType = "boss_fight"
)

// Status is an attempt's lifecycle state. The only transition is
// ongoing -> completed, exactly once.
type Status string

const (
	StatusOngoing   Status = "ongoing"
	StatusCompleted Status = "completed"
)

// Validation errors returned by attempt operations.
var (
	ErrAttemptNotFound  = errors.New("attempt not found")
	ErrAttemptClosed    = errors.New("attempt already completed")
	ErrNoAnswers        = errors.New("no answers submitted")
	ErrAnswerMismatch   = errors.New("answer count does not match attempt questions")
	ErrUnknownQuestion  = errors.New("answer references unknown question")
	ErrMockLimitReached = errors.New("mock attempt limit reached for this exam and subject")
	ErrDailyAlreadyDone = errors.New("daily challenge already completed today")
	ErrBossLocked       = errors.New("boss fight unlocks after three mock attempts")
	ErrInvalidProfile   = errors.New("invalid exam or subject")
)

// Attempt is one quiz-taking session. Mutated only by submission.
type Attempt struct {
	ID                 string           `json:"id"`
	StudentID          string           `json:"student_id"`
	Exam               qbank.Exam       `json:"exam"`
	Subject            string           `json:"subject"`
	Type               AttemptType      `json:"type"`
	DifficultyStart    qbank.Difficulty `json:"difficulty_start"`
	DifficultyEnd      qbank.Difficulty `json:"difficulty_end,omitempty"`
	Status             Status           `json:"status"`
	Score              int              `json:"score"`
	TotalQuestions     int              `json:"total_questions"`
	AccuracyPercent    float64          `json:"accuracy_percent"`
	AvgTimePerQuestion float64          `json:"avg_time_per_question"`
	TimeTakenTotal     int              `json:"time_taken_total"`
	XPEarned           int              `json:"xp_earned"`
	QuestionIDs        []string         `json:"question_ids"`
	CurrentIndex       int              `json:"current_index"`
	Enriched           bool             `json:"enriched"`
	CreatedAt          time.Time        `json:"created_at"`
	UpdatedAt          time.Time        `json:"updated_at"`
}

// SubmittedAnswer is one answer in a submission payload.
type SubmittedAnswer struct {
	QuestionID     string `json:"question_id"`
	SelectedOption string `json:"selected_option"`
}

// AnswerRecord snapshots a graded answer. Question text is copied in so
// reviews survive later bank edits.
type AnswerRecord struct {
	AttemptID      string `json:"attempt_id"`
	QuestionID     string `json:"question_id"`
	SelectedOption string `json:"selected_option"`
	Correct        bool   `json:"correct"`
	QuestionText   string `json:"question_text"`
	CorrectOption  string `json:"correct_option"`
	Explanation    string `json:"explanation"`
	TopicTag       string `json:"topic_tag"`
}

// TopicMastery is the blended mastery estimate for one topic tag.
type TopicMastery struct {
	StudentID    string     `json:"student_id"`
	Exam         qbank.Exam `json:"exam"`
	Subject      string     `json:"subject"`
	TopicTag     string     `json:"topic_tag"`
	MasteryScore float64    `json:"mastery_score"` // 0..100
	WeakFlag     bool       `json:"weak_flag"`     // mastery < 50
	UpdatedAt    time.Time  `json:"updated_at"`
}

// RankStatus is a student's gamification state. XPTotal only grows;
// every change goes through the XP ledger.
type RankStatus struct {
	StudentID      string     `json:"student_id"`
	XPTotal        int64      `json:"xp_total"`
	StreakDays     int        `json:"streak_days"`
	RankName       string     `json:"rank_name"`
	ReadinessScore float64    `json:"readiness_score"`
	LastDailyDate  *time.Time `json:"last_daily_date,omitempty"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// XPEntry is one append-only XP ledger row.
type XPEntry struct {
	StudentID   string    `json:"student_id"`
	Amount      int       `json:"amount"`
	Source      string    `json:"source"` // "quiz" or "achievement"
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// Achievement is an unlocked badge.
type Achievement struct {
	StudentID   string    `json:"student_id"`
	Code        string    `json:"code"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Icon        string    `json:"icon"`
	UnlockedAt  time.Time `json:"unlocked_at"`
}

// AINote is a per-topic coaching note generated from a wrong answer.
type AINote struct {
	StudentID      string    `json:"student_id"`
	AttemptID      string    `json:"attempt_id"`
	TopicTag       string    `json:"topic_tag"`
	MistakeSummary string    `json:"mistake_summary"`
	QuickFix       string    `json:"quick_fix"`
	MemoryTrick    string    `json:"memory_trick"`
	CreatedAt      time.Time `json:"created_at"`
}

// PracticeQuestion is one targeted practice item inside a revision plan.
type PracticeQuestion struct {
	QuestionID  string            `json:"question_id"`
	Question    string            `json:"question"`
	Options     map[string]string `json:"options"`
	Correct     string            `json:"correct"`
	Explanation string            `json:"explanation"`
	Topic       string            `json:"topic"`
}

// TopicSuggestion prioritizes one weak topic inside a revision plan.
type TopicSuggestion struct {
	Topic        string `json:"topic"`
	MistakeCount int    `json:"mistake_count"`
	Priority     string `json:"priority"` // HIGH or MEDIUM
}

// RevisionPlan is the study plan generated after repeated or poor
// attempts. Created once per qualifying attempt, never updated.
type RevisionPlan struct {
	StudentID         string             `json:"student_id"`
	AttemptID         string             `json:"attempt_id"`
	Exam              qbank.Exam         `json:"exam"`
	Subject           string             `json:"subject"`
	MistakeSummary    string             `json:"mistake_summary"`
	RevisionNotes     string             `json:"revision_notes"`
	PracticeQuestions []PracticeQuestion `json:"practice_questions"`
	TopicSuggestions  []TopicSuggestion  `json:"topic_suggestions"`
	ReadinessBefore   float64            `json:"readiness_before"`
	CreatedAt         time.Time          `json:"created_at"`
}

// SubmissionResult is returned to the caller after a completed attempt.
// Enrichment failures never remove the score from this result.
type SubmissionResult struct {
	Attempt         *Attempt      `json:"attempt"`
	XPEarned        int           `json:"xp_earned"`
	RankName        string        `json:"rank_name"`
	ReadinessScore  float64       `json:"readiness_score"`
	NewAchievements []Achievement `json:"new_achievements,omitempty"`
}
