package arena

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/examforge/arena/internal/ai"
	"github.com/examforge/arena/internal/qbank"
)

// LeaderboardRefresher recomputes class standings after a student's
// submission changes their stats.
type LeaderboardRefresher interface {
	RecalculateForStudent(ctx context.Context, studentID string) error
}

// Engine drives the arena: session starts, grading, and the enrichment
// pipeline that updates mastery, readiness, rank, leaderboards and
// revision plans.
type Engine struct {
	store       Store
	bank        qbank.Store
	ai          ai.Client
	leaderboard LeaderboardRefresher
	logger      *slog.Logger
	now         func() time.Time
}

// EngineConfig carries Engine dependencies. Nil fields fall back to
// in-memory stores and no-ops so tests stay light.
type EngineConfig struct {
	Store       Store
	Bank        qbank.Store
	AI          ai.Client
	Leaderboard LeaderboardRefresher
	Logger      *slog.Logger
}

// NewEngine creates an Engine from cfg.
func NewEngine(cfg EngineConfig) *Engine {
	e := &Engine{
		store:       cfg.Store,
		bank:        cfg.Bank,
		ai:          cfg.AI,
		leaderboard: cfg.Leaderboard,
		logger:      cfg.Logger,
		now:         time.Now,
	}
	if e.store == nil {
		e.store = NewMemoryStore()
	}
	if e.bank == nil {
		e.bank = qbank.NewMemoryStore()
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	return e
}

// CompleteAttempt grades a submission, finalizes the attempt, then runs
// the enrichment pipeline. Grading and finalization must succeed;
// enrichment stages are fault isolated so a failed stage is logged and
// the submission still returns the student's score.
func (e *Engine) CompleteAttempt(ctx context.Context, attemptID string, answers []SubmittedAnswer) (*SubmissionResult, error) {
	attempt, err := e.store.GetAttempt(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	if attempt.Status == StatusCompleted {
		return nil, ErrAttemptClosed
	}
	if len(answers) == 0 {
		return nil, ErrNoAnswers
	}
	if len(answers) != attempt.TotalQuestions {
		return nil, ErrAnswerMismatch
	}

	records, score, err := e.grade(ctx, attempt, answers)
	if err != nil {
		return nil, err
	}

	// History before this attempt feeds the next difficulty and the
	// plan's readiness-before figure. Readiness only ever looks at the
	// last readinessWindow completed attempts.
	prior, err := e.store.RecentAttempts(ctx, attempt.StudentID, attempt.Exam, attempt.Subject, readinessWindow)
	if err != nil {
		return nil, fmt.Errorf("loading attempt history: %w", err)
	}
	readinessBefore := ComputeReadiness(prior)
	window := prior
	if len(window) > recentWindow {
		window = window[:recentWindow]
	}

	now := e.now()
	duration := int(now.Sub(attempt.CreatedAt).Seconds())
	if duration < 0 {
		duration = 0
	}
	attempt.Score = score
	attempt.AccuracyPercent = round1(float64(score) / float64(attempt.TotalQuestions) * 100)
	attempt.TimeTakenTotal = duration
	attempt.AvgTimePerQuestion = round1(float64(duration) / float64(attempt.TotalQuestions))
	attempt.XPEarned = QuizXP(score)
	attempt.DifficultyEnd = SelectNextDifficulty(window)
	attempt.Status = StatusCompleted
	attempt.CurrentIndex = attempt.TotalQuestions
	attempt.UpdatedAt = now

	if err := e.store.FinalizeAttempt(ctx, attempt); err != nil {
		return nil, fmt.Errorf("finalizing attempt: %w", err)
	}
	if err := e.store.AddAnswers(ctx, records); err != nil {
		return nil, fmt.Errorf("saving answers: %w", err)
	}

	result := &SubmissionResult{Attempt: attempt, XPEarned: attempt.XPEarned}

	won, err := e.store.MarkEnriched(ctx, attemptID)
	if err != nil {
		e.logger.Error("enrichment guard failed", "attempt_id", attemptID, "error", err)
		return result, nil
	}
	if !won {
		return result, nil
	}
	e.enrich(ctx, attempt, records, readinessBefore, result)
	return result, nil
}

// grade scores each answer against the bank. An answer for a question
// outside the attempt's set, or a second answer for the same question,
// is a validation error.
func (e *Engine) grade(ctx context.Context, attempt *Attempt, answers []SubmittedAnswer) ([]AnswerRecord, int, error) {
	inSet := make(map[string]bool, len(attempt.QuestionIDs))
	for _, id := range attempt.QuestionIDs {
		inSet[id] = true
	}

	records := make([]AnswerRecord, 0, len(answers))
	seen := make(map[string]bool, len(answers))
	score := 0
	for _, ans := range answers {
		if !inSet[ans.QuestionID] {
			return nil, 0, fmt.Errorf("%w: %s", ErrUnknownQuestion, ans.QuestionID)
		}
		if seen[ans.QuestionID] {
			return nil, 0, fmt.Errorf("%w: duplicate answer for question %s", ErrAnswerMismatch, ans.QuestionID)
		}
		seen[ans.QuestionID] = true
		q, err := e.bank.GetQuestion(ctx, ans.QuestionID)
		if err != nil {
			return nil, 0, fmt.Errorf("loading question %s: %w", ans.QuestionID, err)
		}
		correct := ans.SelectedOption == q.CorrectOption
		if correct {
			score++
		}
		records = append(records, AnswerRecord{
			AttemptID:      attempt.ID,
			QuestionID:     q.ID,
			SelectedOption: ans.SelectedOption,
			Correct:        correct,
			QuestionText:   q.Text,
			CorrectOption:  q.CorrectOption,
			Explanation:    q.Explanation,
			TopicTag:       q.TopicTag,
		})
	}
	return records, score, nil
}

// enrich runs the post-submission stages in dependency order: mastery
// first, then readiness, then rank, then leaderboards, then coaching
// output. Each stage failure is logged and the rest still run.
func (e *Engine) enrich(ctx context.Context, attempt *Attempt, records []AnswerRecord, readinessBefore float64, result *SubmissionResult) {
	if err := e.updateMastery(ctx, attempt, records); err != nil {
		e.logger.Error("mastery update failed", "attempt_id", attempt.ID, "error", err)
	}

	history, err := e.store.RecentAttempts(ctx, attempt.StudentID, attempt.Exam, attempt.Subject, readinessWindow)
	readiness := readinessBefore
	if err != nil {
		e.logger.Error("readiness recompute failed", "attempt_id", attempt.ID, "error", err)
	} else {
		readiness = ComputeReadiness(history)
	}
	result.ReadinessScore = readiness

	rank, err := e.updateRank(ctx, attempt, readiness)
	if err != nil {
		e.logger.Error("rank update failed", "attempt_id", attempt.ID, "error", err)
	} else {
		result.RankName = rank.RankName
		unlocked, err := e.awardAchievements(ctx, attempt, rank, len(history))
		if err != nil {
			e.logger.Error("achievement check failed", "attempt_id", attempt.ID, "error", err)
		} else {
			result.NewAchievements = unlocked
		}
	}

	if e.leaderboard != nil {
		if err := e.leaderboard.RecalculateForStudent(ctx, attempt.StudentID); err != nil {
			e.logger.Error("leaderboard refresh failed", "student_id", attempt.StudentID, "error", err)
		}
	}

	if err := e.generateCoaching(ctx, attempt, records, readinessBefore); err != nil {
		e.logger.Error("revision plan generation failed", "attempt_id", attempt.ID, "error", err)
	}
}

// updateMastery blends this attempt's per-topic accuracy into stored
// mastery. Each touched topic is written exactly once.
func (e *Engine) updateMastery(ctx context.Context, attempt *Attempt, records []AnswerRecord) error {
	for topic, outcome := range topicBreakdown(records) {
		existing, err := e.store.GetMastery(ctx, attempt.StudentID, attempt.Exam, attempt.Subject, topic)
		if err != nil {
			return fmt.Errorf("loading mastery for %s: %w", topic, err)
		}
		var prev *float64
		if existing != nil {
			prev = &existing.MasteryScore
		}
		blended := BlendMastery(outcome.Accuracy(), prev)
		m := TopicMastery{
			StudentID:    attempt.StudentID,
			Exam:         attempt.Exam,
			Subject:      attempt.Subject,
			TopicTag:     topic,
			MasteryScore: blended,
			WeakFlag:     blended < weakThreshold,
			UpdatedAt:    e.now(),
		}
		if err := e.store.UpsertMastery(ctx, m); err != nil {
			return fmt.Errorf("saving mastery for %s: %w", topic, err)
		}
	}
	return nil
}

// updateRank appends the quiz XP, advances the streak at most once per
// calendar day, and recomputes the rank tier.
func (e *Engine) updateRank(ctx context.Context, attempt *Attempt, readiness float64) (*RankStatus, error) {
	rank, err := e.store.GetRankStatus(ctx, attempt.StudentID)
	if err != nil {
		return nil, fmt.Errorf("loading rank status: %w", err)
	}
	now := e.now()
	if rank == nil {
		rank = &RankStatus{StudentID: attempt.StudentID, RankName: RankBronze}
	}

	if err := e.store.AppendXP(ctx, XPEntry{
		StudentID:   attempt.StudentID,
		Amount:      attempt.XPEarned,
		Source:      "quiz",
		Description: fmt.Sprintf("%s attempt in %s %s", attempt.Type, attempt.Exam, attempt.Subject),
		CreatedAt:   now,
	}); err != nil {
		return nil, fmt.Errorf("appending xp: %w", err)
	}
	rank.XPTotal += int64(attempt.XPEarned)

	today := dayOf(now)
	switch {
	case rank.LastDailyDate == nil:
		rank.StreakDays = 1
	case dayOf(*rank.LastDailyDate).Equal(today):
		// Streak already counted today.
	case dayOf(*rank.LastDailyDate).Equal(today.AddDate(0, 0, -1)):
		rank.StreakDays++
	default:
		rank.StreakDays = 1
	}
	rank.LastDailyDate = &today

	rank.RankName = ComputeRank(rank.XPTotal, attempt.AccuracyPercent, rank.StreakDays)
	rank.ReadinessScore = readiness
	rank.UpdatedAt = now

	if err := e.store.SaveRankStatus(ctx, rank); err != nil {
		return nil, fmt.Errorf("saving rank status: %w", err)
	}
	return rank, nil
}

// awardAchievements unlocks newly earned badges, each paying a flat XP
// bonus through the ledger.
func (e *Engine) awardAchievements(ctx context.Context, attempt *Attempt, rank *RankStatus, totalAttempts int) ([]Achievement, error) {
	owned, err := e.store.ListAchievements(ctx, attempt.StudentID)
	if err != nil {
		return nil, fmt.Errorf("listing achievements: %w", err)
	}
	ownedCodes := make(map[string]bool, len(owned))
	for _, a := range owned {
		ownedCodes[a.Code] = true
	}

	stats := achievementStats{
		TotalAttempts:  totalAttempts,
		Attempt:        attempt,
		StreakDays:     rank.StreakDays,
		Level:          Level(rank.XPTotal),
		RankName:       rank.RankName,
		PerfectScore:   attempt.Score == attempt.TotalQuestions,
		AvgTimePerQ:    attempt.AvgTimePerQuestion,
		TotalQuestions: attempt.TotalQuestions,
	}

	var unlocked []Achievement
	for _, def := range newlyUnlocked(stats, ownedCodes) {
		a := Achievement{
			StudentID:   attempt.StudentID,
			Code:        def.Code,
			Title:       def.Title,
			Description: def.Description,
			Icon:        def.Icon,
			UnlockedAt:  e.now(),
		}
		if err := e.store.AddAchievement(ctx, a); err != nil {
			return unlocked, fmt.Errorf("saving achievement %s: %w", def.Code, err)
		}
		if err := e.store.AppendXP(ctx, XPEntry{
			StudentID:   attempt.StudentID,
			Amount:      achievementXP,
			Source:      "achievement",
			Description: def.Title,
			CreatedAt:   e.now(),
		}); err != nil {
			return unlocked, fmt.Errorf("appending achievement xp: %w", err)
		}
		rank.XPTotal += achievementXP
		unlocked = append(unlocked, a)
	}
	if len(unlocked) > 0 {
		rank.RankName = ComputeRank(rank.XPTotal, attempt.AccuracyPercent, rank.StreakDays)
		rank.UpdatedAt = e.now()
		if err := e.store.SaveRankStatus(ctx, rank); err != nil {
			return unlocked, fmt.Errorf("saving rank after achievements: %w", err)
		}
	}
	return unlocked, nil
}

// Readiness returns the student's current readiness score for an exam
// and subject.
func (e *Engine) Readiness(ctx context.Context, studentID string, exam qbank.Exam, subject string) (float64, error) {
	if err := validateProfile(exam, subject); err != nil {
		return 0, err
	}
	attempts, err := e.store.RecentAttempts(ctx, studentID, exam, subject, readinessWindow)
	if err != nil {
		return 0, fmt.Errorf("loading attempts: %w", err)
	}
	return ComputeReadiness(attempts), nil
}

// Profile returns the student's rank status, creating a zeroed Bronze
// row view for students with no history.
func (e *Engine) Profile(ctx context.Context, studentID string) (*RankStatus, error) {
	rank, err := e.store.GetRankStatus(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("loading rank status: %w", err)
	}
	if rank == nil {
		rank = &RankStatus{StudentID: studentID, RankName: RankBronze}
	}
	return rank, nil
}

// LatestRevisionPlan returns the student's newest plan, or nil.
func (e *Engine) LatestRevisionPlan(ctx context.Context, studentID string) (*RevisionPlan, error) {
	return e.store.LatestPlan(ctx, studentID)
}
