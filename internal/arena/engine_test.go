package arena_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/examforge/arena/internal/arena"
	"github.com/examforge/arena/internal/qbank"
)

const (
	testStudent = "student-1"
	testSubject = "Physics"
)

// seedBank fills a memory bank with enough tagged questions for a full
// session at every difficulty. Correct option is always A.
func seedBank(t *testing.T, bank qbank.Store) {
	t.Helper()
	topics := []string{"Mechanics", "Optics", "Thermodynamics"}
	for _, diff := range qbank.DifficultyPool {
		for i := 0; i < 12; i++ {
			q := qbank.Question{
				ID:            qbank.NewID(),
				Exam:          qbank.ExamJEE,
				Subject:       testSubject,
				TopicTag:      topics[i%len(topics)],
				Difficulty:    diff,
				Text:          fmt.Sprintf("%s question %d at %s", topics[i%len(topics)], i, diff),
				OptionA:       "right",
				OptionB:       "wrong",
				OptionC:       "wrong",
				OptionD:       "wrong",
				CorrectOption: "A",
				Explanation:   "The first option follows from the definition.",
				EstimatedTime: 60,
			}
			if err := bank.AddQuestion(context.Background(), q); err != nil {
				t.Fatalf("AddQuestion() error = %v", err)
			}
		}
	}
}

func newTestEngine(t *testing.T) (*arena.Engine, *arena.MemoryStore) {
	t.Helper()
	bank := qbank.NewMemoryStore()
	seedBank(t, bank)
	store := arena.NewMemoryStore()
	return arena.NewEngine(arena.EngineConfig{Store: store, Bank: bank}), store
}

func answersFor(questions []qbank.Question, correct int) []arena.SubmittedAnswer {
	out := make([]arena.SubmittedAnswer, len(questions))
	for i, q := range questions {
		selected := "B"
		if i < correct {
			selected = q.CorrectOption
		}
		out[i] = arena.SubmittedAnswer{QuestionID: q.ID, SelectedOption: selected}
	}
	return out
}

func TestStartDaily(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	attempt, questions, err := engine.StartDaily(ctx, testStudent, qbank.ExamJEE, testSubject)
	if err != nil {
		t.Fatalf("StartDaily() error = %v", err)
	}
	if len(questions) != 10 {
		t.Errorf("session has %d questions, want 10", len(questions))
	}
	if attempt.DifficultyStart != qbank.Medium {
		t.Errorf("first session difficulty = %v, want Medium", attempt.DifficultyStart)
	}
	if attempt.Status != arena.StatusOngoing {
		t.Errorf("attempt status = %v, want ongoing", attempt.Status)
	}

	// Second daily the same day is gated even before submission.
	if _, _, err := engine.StartDaily(ctx, testStudent, qbank.ExamJEE, testSubject); !errors.Is(err, arena.ErrDailyAlreadyDone) {
		t.Errorf("second daily error = %v, want ErrDailyAlreadyDone", err)
	}
}

func TestStartDaily_InvalidProfile(t *testing.T) {
	engine, _ := newTestEngine(t)
	if _, _, err := engine.StartDaily(context.Background(), testStudent, "SAT", testSubject); !errors.Is(err, arena.ErrInvalidProfile) {
		t.Errorf("invalid exam error = %v, want ErrInvalidProfile", err)
	}
	if _, _, err := engine.StartDaily(context.Background(), testStudent, qbank.ExamJEE, "History"); !errors.Is(err, arena.ErrInvalidProfile) {
		t.Errorf("invalid subject error = %v, want ErrInvalidProfile", err)
	}
}

func TestStartMock_Limit(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		attempt, questions, err := engine.StartMock(ctx, testStudent, qbank.ExamJEE, testSubject)
		if err != nil {
			t.Fatalf("StartMock() #%d error = %v", i+1, err)
		}
		if _, err := engine.CompleteAttempt(ctx, attempt.ID, answersFor(questions, 8)); err != nil {
			t.Fatalf("CompleteAttempt() #%d error = %v", i+1, err)
		}
	}

	if _, _, err := engine.StartMock(ctx, testStudent, qbank.ExamJEE, testSubject); !errors.Is(err, arena.ErrMockLimitReached) {
		t.Errorf("fourth mock error = %v, want ErrMockLimitReached", err)
	}
}

func TestStartBossFight_Gate(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	if _, _, err := engine.StartBossFight(ctx, testStudent, qbank.ExamJEE, testSubject); !errors.Is(err, arena.ErrBossLocked) {
		t.Fatalf("locked boss error = %v, want ErrBossLocked", err)
	}

	for i := 0; i < 3; i++ {
		attempt, questions, err := engine.StartMock(ctx, testStudent, qbank.ExamJEE, testSubject)
		if err != nil {
			t.Fatalf("StartMock() error = %v", err)
		}
		if _, err := engine.CompleteAttempt(ctx, attempt.ID, answersFor(questions, 9)); err != nil {
			t.Fatalf("CompleteAttempt() error = %v", err)
		}
	}

	attempt, questions, err := engine.StartBossFight(ctx, testStudent, qbank.ExamJEE, testSubject)
	if err != nil {
		t.Fatalf("unlocked boss error = %v", err)
	}
	if attempt.DifficultyStart != qbank.Hard {
		t.Errorf("boss difficulty = %v, want Hard", attempt.DifficultyStart)
	}
	for _, q := range questions {
		if q.Difficulty != qbank.Hard {
			t.Errorf("boss question difficulty = %v, want Hard", q.Difficulty)
		}
	}
}

func TestCompleteAttempt(t *testing.T) {
	engine, store := newTestEngine(t)
	ctx := context.Background()

	attempt, questions, err := engine.StartDaily(ctx, testStudent, qbank.ExamJEE, testSubject)
	if err != nil {
		t.Fatalf("StartDaily() error = %v", err)
	}

	result, err := engine.CompleteAttempt(ctx, attempt.ID, answersFor(questions, 7))
	if err != nil {
		t.Fatalf("CompleteAttempt() error = %v", err)
	}

	if result.Attempt.Score != 7 {
		t.Errorf("score = %d, want 7", result.Attempt.Score)
	}
	if result.Attempt.AccuracyPercent != 70 {
		t.Errorf("accuracy = %v, want 70", result.Attempt.AccuracyPercent)
	}
	if result.XPEarned != 120 {
		t.Errorf("xp = %d, want 120", result.XPEarned)
	}
	if result.Attempt.Status != arena.StatusCompleted {
		t.Errorf("status = %v, want completed", result.Attempt.Status)
	}
	if result.Attempt.DifficultyEnd == "" {
		t.Error("difficulty_end not set on completion")
	}
	if result.ReadinessScore <= 0 || result.ReadinessScore > 100 {
		t.Errorf("readiness = %v, want within (0,100]", result.ReadinessScore)
	}

	// Answers are snapshotted with question text.
	answers, err := store.AnswersForAttempt(ctx, attempt.ID)
	if err != nil {
		t.Fatalf("AnswersForAttempt() error = %v", err)
	}
	if len(answers) != 10 {
		t.Fatalf("stored %d answers, want 10", len(answers))
	}
	for _, a := range answers {
		if a.QuestionText == "" || a.CorrectOption == "" {
			t.Errorf("answer %s missing snapshot fields", a.QuestionID)
		}
	}

	// Mastery exists for every tagged topic in the set.
	mastery, err := store.MasteryForSubject(ctx, testStudent, qbank.ExamJEE, testSubject)
	if err != nil {
		t.Fatalf("MasteryForSubject() error = %v", err)
	}
	if len(mastery) == 0 {
		t.Error("no mastery rows after completion")
	}

	// First attempt unlocks FIRST_BLOOD.
	found := false
	for _, a := range result.NewAchievements {
		if a.Code == "FIRST_BLOOD" {
			found = true
		}
	}
	if !found {
		t.Errorf("achievements %v missing FIRST_BLOOD", result.NewAchievements)
	}

	// Rank status reflects quiz plus achievement XP.
	rank, err := engine.Profile(ctx, testStudent)
	if err != nil {
		t.Fatalf("Profile() error = %v", err)
	}
	if rank.XPTotal < int64(result.XPEarned) {
		t.Errorf("xp_total = %d, want at least %d", rank.XPTotal, result.XPEarned)
	}
	if rank.StreakDays != 1 {
		t.Errorf("streak = %d, want 1", rank.StreakDays)
	}
	if rank.RankName == "" {
		t.Error("rank name not set")
	}

	// Resubmission is rejected.
	if _, err := engine.CompleteAttempt(ctx, attempt.ID, answersFor(questions, 7)); !errors.Is(err, arena.ErrAttemptClosed) {
		t.Errorf("resubmission error = %v, want ErrAttemptClosed", err)
	}
}

func TestCompleteAttempt_Validation(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	attempt, questions, err := engine.StartDaily(ctx, testStudent, qbank.ExamJEE, testSubject)
	if err != nil {
		t.Fatalf("StartDaily() error = %v", err)
	}

	if _, err := engine.CompleteAttempt(ctx, "missing", answersFor(questions, 5)); !errors.Is(err, arena.ErrAttemptNotFound) {
		t.Errorf("unknown attempt error = %v, want ErrAttemptNotFound", err)
	}
	if _, err := engine.CompleteAttempt(ctx, attempt.ID, nil); !errors.Is(err, arena.ErrNoAnswers) {
		t.Errorf("empty submission error = %v, want ErrNoAnswers", err)
	}
	if _, err := engine.CompleteAttempt(ctx, attempt.ID, answersFor(questions[:5], 3)); !errors.Is(err, arena.ErrAnswerMismatch) {
		t.Errorf("short submission error = %v, want ErrAnswerMismatch", err)
	}

	rogue := answersFor(questions, 5)
	rogue[0].QuestionID = "not-in-set"
	if _, err := engine.CompleteAttempt(ctx, attempt.ID, rogue); !errors.Is(err, arena.ErrUnknownQuestion) {
		t.Errorf("rogue question error = %v, want ErrUnknownQuestion", err)
	}

	// Answering the same question twice cannot inflate the score.
	doubled := answersFor(questions, 10)
	doubled[9].QuestionID = doubled[0].QuestionID
	if _, err := engine.CompleteAttempt(ctx, attempt.ID, doubled); !errors.Is(err, arena.ErrAnswerMismatch) {
		t.Errorf("duplicate answer error = %v, want ErrAnswerMismatch", err)
	}

	// Failed validations leave the attempt open.
	if _, err := engine.CompleteAttempt(ctx, attempt.ID, answersFor(questions, 5)); err != nil {
		t.Errorf("valid submission after rejects error = %v", err)
	}
}

func TestCompleteAttempt_PoorScoreCreatesPlan(t *testing.T) {
	engine, store := newTestEngine(t)
	ctx := context.Background()

	attempt, questions, err := engine.StartDaily(ctx, testStudent, qbank.ExamJEE, testSubject)
	if err != nil {
		t.Fatalf("StartDaily() error = %v", err)
	}
	if _, err := engine.CompleteAttempt(ctx, attempt.ID, answersFor(questions, 2)); err != nil {
		t.Fatalf("CompleteAttempt() error = %v", err)
	}

	plan, err := engine.LatestRevisionPlan(ctx, testStudent)
	if err != nil {
		t.Fatalf("LatestRevisionPlan() error = %v", err)
	}
	if plan == nil {
		t.Fatal("no revision plan after sub-40% attempt")
	}
	if plan.AttemptID != attempt.ID {
		t.Errorf("plan attempt = %s, want %s", plan.AttemptID, attempt.ID)
	}
	if plan.MistakeSummary == "" || plan.RevisionNotes == "" {
		t.Error("plan missing summary or notes")
	}
	if len(plan.TopicSuggestions) == 0 {
		t.Error("plan has no topic suggestions")
	}
	for _, s := range plan.TopicSuggestions {
		want := "MEDIUM"
		if s.MistakeCount >= 2 {
			want = "HIGH"
		}
		if s.Priority != want {
			t.Errorf("topic %s priority = %s, want %s", s.Topic, s.Priority, want)
		}
	}
	// Readiness before the first attempt is zero.
	if plan.ReadinessBefore != 0 {
		t.Errorf("readiness_before = %v, want 0", plan.ReadinessBefore)
	}

	// Practice questions never repeat the attempt's own set.
	attemptSet := make(map[string]bool)
	for _, q := range questions {
		attemptSet[q.ID] = true
	}
	for _, p := range plan.PracticeQuestions {
		if attemptSet[p.QuestionID] {
			t.Errorf("practice question %s was already in the attempt", p.QuestionID)
		}
	}

	// Coaching notes exist per wrong topic.
	notes, err := store.NotesForAttempt(ctx, attempt.ID)
	if err != nil {
		t.Fatalf("NotesForAttempt() error = %v", err)
	}
	if len(notes) == 0 {
		t.Error("no coaching notes after wrong answers")
	}
	seen := make(map[string]bool)
	for _, n := range notes {
		if seen[n.TopicTag] {
			t.Errorf("duplicate note for topic %s", n.TopicTag)
		}
		seen[n.TopicTag] = true
		if n.MemoryTrick == "" || n.QuickFix == "" {
			t.Errorf("note for %s missing trick or quick fix", n.TopicTag)
		}
	}
}

func TestCompleteAttempt_PerfectScoreNoPlan(t *testing.T) {
	engine, store := newTestEngine(t)
	ctx := context.Background()

	attempt, questions, err := engine.StartDaily(ctx, testStudent, qbank.ExamJEE, testSubject)
	if err != nil {
		t.Fatalf("StartDaily() error = %v", err)
	}
	result, err := engine.CompleteAttempt(ctx, attempt.ID, answersFor(questions, 10))
	if err != nil {
		t.Fatalf("CompleteAttempt() error = %v", err)
	}

	plan, err := engine.LatestRevisionPlan(ctx, testStudent)
	if err != nil {
		t.Fatalf("LatestRevisionPlan() error = %v", err)
	}
	if plan != nil {
		t.Error("revision plan created for a clean attempt")
	}
	notes, err := store.NotesForAttempt(ctx, attempt.ID)
	if err != nil {
		t.Fatalf("NotesForAttempt() error = %v", err)
	}
	if len(notes) != 0 {
		t.Errorf("coaching notes created with no wrong answers: %d", len(notes))
	}

	found := false
	for _, a := range result.NewAchievements {
		if a.Code == "PERFECT_10" {
			found = true
		}
	}
	if !found {
		t.Errorf("achievements %v missing PERFECT_10", result.NewAchievements)
	}
}

func TestMarkEnrichedOnce(t *testing.T) {
	store := arena.NewMemoryStore()
	ctx := context.Background()

	a := &arena.Attempt{ID: "a1", StudentID: testStudent, Status: arena.StatusOngoing}
	if err := store.CreateAttempt(ctx, a); err != nil {
		t.Fatalf("CreateAttempt() error = %v", err)
	}

	won, err := store.MarkEnriched(ctx, "a1")
	if err != nil || !won {
		t.Fatalf("first MarkEnriched() = %v, %v, want true, nil", won, err)
	}
	won, err = store.MarkEnriched(ctx, "a1")
	if err != nil || won {
		t.Fatalf("second MarkEnriched() = %v, %v, want false, nil", won, err)
	}
	if _, err := store.MarkEnriched(ctx, "missing"); !errors.Is(err, arena.ErrAttemptNotFound) {
		t.Errorf("missing attempt error = %v, want ErrAttemptNotFound", err)
	}
}

func TestWeakTopicsDriveSelection(t *testing.T) {
	bank := qbank.NewMemoryStore()
	seedBank(t, bank)
	store := arena.NewMemoryStore()
	engine := arena.NewEngine(arena.EngineConfig{Store: store, Bank: bank})
	ctx := context.Background()

	if err := store.UpsertMastery(ctx, arena.TopicMastery{
		StudentID: testStudent, Exam: qbank.ExamJEE, Subject: testSubject,
		TopicTag: "Optics", MasteryScore: 20, WeakFlag: true,
	}); err != nil {
		t.Fatalf("UpsertMastery() error = %v", err)
	}

	_, questions, err := engine.StartMock(ctx, testStudent, qbank.ExamJEE, testSubject)
	if err != nil {
		t.Fatalf("StartMock() error = %v", err)
	}
	weak := 0
	for _, q := range questions {
		if q.TopicTag == "Optics" {
			weak++
		}
	}
	if weak == 0 {
		t.Error("session ignores the weak topic")
	}
}

func TestReadiness_WindowsLastTenAttempts(t *testing.T) {
	engine, store := newTestEngine(t)
	ctx := context.Background()

	base := time.Now().Add(-40 * 24 * time.Hour)
	addCompleted := func(i int, score int) {
		a := arena.Attempt{
			ID:                 fmt.Sprintf("attempt-%02d", i),
			StudentID:          testStudent,
			Exam:               qbank.ExamJEE,
			Subject:            testSubject,
			Type:               arena.AttemptDaily,
			DifficultyStart:    qbank.Medium,
			DifficultyEnd:      qbank.Medium,
			Status:             arena.StatusCompleted,
			Score:              score,
			TotalQuestions:     10,
			AccuracyPercent:    float64(score) * 10,
			AvgTimePerQuestion: 45,
			UpdatedAt:          base.Add(time.Duration(i) * 24 * time.Hour),
		}
		if err := store.CreateAttempt(ctx, &a); err != nil {
			t.Fatalf("CreateAttempt() error = %v", err)
		}
	}

	// Five early failures followed by ten perfect runs. Only the ten
	// most recent attempts may feed the readiness score.
	for i := 0; i < 5; i++ {
		addCompleted(i, 2)
	}
	for i := 5; i < 15; i++ {
		addCompleted(i, 10)
	}

	got, err := engine.Readiness(ctx, testStudent, qbank.ExamJEE, testSubject)
	if err != nil {
		t.Fatalf("Readiness() error = %v", err)
	}

	lastTen, err := store.RecentAttempts(ctx, testStudent, qbank.ExamJEE, testSubject, 10)
	if err != nil {
		t.Fatalf("RecentAttempts() error = %v", err)
	}
	if len(lastTen) != 10 {
		t.Fatalf("RecentAttempts() returned %d attempts, want 10", len(lastTen))
	}
	if want := arena.ComputeReadiness(lastTen); got != want {
		t.Errorf("Readiness() = %v, want %v over the last ten attempts", got, want)
	}

	all, err := store.RecentAttempts(ctx, testStudent, qbank.ExamJEE, testSubject, 0)
	if err != nil {
		t.Fatalf("RecentAttempts() error = %v", err)
	}
	if stale := arena.ComputeReadiness(all); got <= stale {
		t.Errorf("Readiness() = %v still dragged down by aged-out failures (full history = %v)", got, stale)
	}
}
