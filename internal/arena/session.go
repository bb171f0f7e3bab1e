package arena

import (
	"context"
	"fmt"
	"time"

	"github.com/examforge/arena/internal/qbank"
)

// Session sizing and gating rules.
const (
	sessionSize       = 10
	dailyWeakTarget   = 4
	mockWeakTarget    = 5
	mockLimit         = 3
	bossUnlockMocks   = 3
	recentWindow      = 3
	readinessWindow   = 10
	DailyTimeLimitSec = 600
	MockTimeLimitSec  = 900
)

// StartDaily opens the student's daily challenge for an exam and
// subject. At most one daily attempt per calendar day.
func (e *Engine) StartDaily(ctx context.Context, studentID string, exam qbank.Exam, subject string) (*Attempt, []qbank.Question, error) {
	if err := validateProfile(exam, subject); err != nil {
		return nil, nil, err
	}
	done, err := e.store.DailyDoneOn(ctx, studentID, e.now())
	if err != nil {
		return nil, nil, fmt.Errorf("checking daily gate: %w", err)
	}
	if done {
		return nil, nil, ErrDailyAlreadyDone
	}
	return e.startAttempt(ctx, studentID, exam, subject, AttemptDaily, dailyWeakTarget)
}

// StartMock opens a full mock test. Each student gets three mocks per
// exam and subject.
func (e *Engine) StartMock(ctx context.Context, studentID string, exam qbank.Exam, subject string) (*Attempt, []qbank.Question, error) {
	if err := validateProfile(exam, subject); err != nil {
		return nil, nil, err
	}
	mocks, err := e.store.CountAttempts(ctx, studentID, exam, subject, AttemptMock)
	if err != nil {
		return nil, nil, fmt.Errorf("counting mock attempts: %w", err)
	}
	if mocks >= mockLimit {
		return nil, nil, ErrMockLimitReached
	}
	return e.startAttempt(ctx, studentID, exam, subject, AttemptMock, mockWeakTarget)
}

// StartBossFight opens a boss fight, a Hard-only session that unlocks
// after three completed mocks.
func (e *Engine) StartBossFight(ctx context.Context, studentID string, exam qbank.Exam, subject string) (*Attempt, []qbank.Question, error) {
	if err := validateProfile(exam, subject); err != nil {
		return nil, nil, err
	}
	mocks, err := e.store.CountAttempts(ctx, studentID, exam, subject, AttemptMock)
	if err != nil {
		return nil, nil, fmt.Errorf("counting mock attempts: %w", err)
	}
	if mocks < bossUnlockMocks {
		return nil, nil, ErrBossLocked
	}

	questions, err := e.bank.FetchQuestions(ctx, exam, subject,
		qbank.Filter{Difficulty: qbank.Hard}, sessionSize, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("selecting boss questions: %w", err)
	}
	return e.createAttempt(ctx, studentID, exam, subject, AttemptBoss, qbank.Hard, questions)
}

func validateProfile(exam qbank.Exam, subject string) error {
	if !exam.Valid() || !qbank.ValidSubject(exam, subject) {
		return ErrInvalidProfile
	}
	return nil
}

// startAttempt assembles a session: weak-topic questions first, then a
// fill at the adaptive difficulty, then anything to reach a full set.
func (e *Engine) startAttempt(ctx context.Context, studentID string, exam qbank.Exam, subject string, typ AttemptType, weakTarget int) (*Attempt, []qbank.Question, error) {
	recent, err := e.store.RecentAttempts(ctx, studentID, exam, subject, recentWindow)
	if err != nil {
		return nil, nil, fmt.Errorf("loading recent attempts: %w", err)
	}
	difficulty := SelectNextDifficulty(recent)

	weakTopics, err := e.store.WeakTopics(ctx, studentID, exam, subject)
	if err != nil {
		return nil, nil, fmt.Errorf("loading weak topics: %w", err)
	}

	var questions []qbank.Question
	if len(weakTopics) > 0 {
		weak, err := e.bank.FetchQuestions(ctx, exam, subject,
			qbank.Filter{Topics: weakTopics, Difficulty: difficulty}, weakTarget, nil)
		if err != nil {
			return nil, nil, fmt.Errorf("selecting weak-topic questions: %w", err)
		}
		questions = weak
	}

	if len(questions) < sessionSize {
		fill, err := e.bank.FetchQuestions(ctx, exam, subject,
			qbank.Filter{Difficulty: difficulty}, sessionSize-len(questions), questionIDs(questions))
		if err != nil {
			return nil, nil, fmt.Errorf("selecting questions: %w", err)
		}
		questions = append(questions, fill...)
	}
	if len(questions) < sessionSize {
		// The bank may be thin at this difficulty. Fill from any level
		// rather than serving a short session.
		fill, err := e.bank.FetchQuestions(ctx, exam, subject,
			qbank.Filter{}, sessionSize-len(questions), questionIDs(questions))
		if err != nil {
			return nil, nil, fmt.Errorf("selecting fallback questions: %w", err)
		}
		questions = append(questions, fill...)
	}
	if len(questions) == 0 {
		return nil, nil, fmt.Errorf("no questions available for %s %s", exam, subject)
	}

	return e.createAttempt(ctx, studentID, exam, subject, typ, difficulty, questions)
}

func (e *Engine) createAttempt(ctx context.Context, studentID string, exam qbank.Exam, subject string, typ AttemptType, difficulty qbank.Difficulty, questions []qbank.Question) (*Attempt, []qbank.Question, error) {
	now := e.now()
	attempt := &Attempt{
		ID:              qbank.NewID(),
		StudentID:       studentID,
		Exam:            exam,
		Subject:         subject,
		Type:            typ,
		DifficultyStart: difficulty,
		Status:          StatusOngoing,
		TotalQuestions:  len(questions),
		QuestionIDs:     questionIDs(questions),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := e.store.CreateAttempt(ctx, attempt); err != nil {
		return nil, nil, fmt.Errorf("creating attempt: %w", err)
	}
	return attempt, questions, nil
}

// TimeLimit returns the session time limit in seconds for a type.
func TimeLimit(typ AttemptType) int {
	if typ == AttemptDaily {
		return DailyTimeLimitSec
	}
	return MockTimeLimitSec
}

func questionIDs(qs []qbank.Question) []string {
	out := make([]string, len(qs))
	for i, q := range qs {
		out[i] = q.ID
	}
	return out
}

func dayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
