package leaderboard

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Student identifies a display name and email for leaderboard rows.
type Student struct {
	ID    string
	Name  string
	Email string
}

// Submission is one graded class quiz result feeding the standings.
type Submission struct {
	QuizID      string
	StudentID   string
	Score       int
	Total       int
	SubmittedAt time.Time
}

// Store persists standings and the submission data they derive from.
type Store interface {
	ClassesForStudent(ctx context.Context, studentID string) ([]string, error)
	SubmissionStats(ctx context.Context, classID string) ([]StudentStats, error)
	TotalQuizzes(ctx context.Context, classID string) (int, error)
	// ReplaceClassScores swaps a class's standings in one shot.
	ReplaceClassScores(ctx context.Context, classID string, scores []Score) error
	// ClassScores returns a class's ranked rows, top positions first.
	// A limit of 0 means no cap.
	ClassScores(ctx context.Context, classID string, limit int) ([]Score, error)
	GlobalScores(ctx context.Context, limit int) ([]Score, error)
	GetStudent(ctx context.Context, studentID string) (*Student, error)
}

// MemoryStore is an in-memory Store for tests and local runs.
type MemoryStore struct {
	mu          sync.RWMutex
	students    map[string]Student
	enrollments map[string][]string // classID -> studentIDs
	quizzes     map[string][]string // classID -> quizIDs
	submissions []Submission
	scores      map[string][]Score // classID -> ranked rows
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		students:    make(map[string]Student),
		enrollments: make(map[string][]string),
		quizzes:     make(map[string][]string),
		scores:      make(map[string][]Score),
	}
}

// AddStudent registers a student for display lookups.
func (s *MemoryStore) AddStudent(st Student) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.students[st.ID] = st
}

// Enroll adds a student to a class.
func (s *MemoryStore) Enroll(classID, studentID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enrollments[classID] = append(s.enrollments[classID], studentID)
}

// AddQuiz registers a class quiz.
func (s *MemoryStore) AddQuiz(classID, quizID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quizzes[classID] = append(s.quizzes[classID], quizID)
}

// AddSubmission records a graded quiz result.
func (s *MemoryStore) AddSubmission(sub Submission) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.submissions = append(s.submissions, sub)
}

func (s *MemoryStore) ClassesForStudent(_ context.Context, studentID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []string
	for classID, students := range s.enrollments {
		for _, id := range students {
			if id == studentID {
				out = append(out, classID)
				break
			}
		}
	}
	sort.Strings(out)
	return out, nil
}

func (s *MemoryStore) SubmissionStats(_ context.Context, classID string) ([]StudentStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	classQuizzes := make(map[string]bool)
	for _, id := range s.quizzes[classID] {
		classQuizzes[id] = true
	}
	enrolled := make(map[string]bool)
	for _, id := range s.enrollments[classID] {
		enrolled[id] = true
	}

	type agg struct {
		pctSum  float64
		done    int
		correct int
		total   int
	}
	byStudent := make(map[string]*agg)
	var order []string
	for _, sub := range s.submissions {
		if !classQuizzes[sub.QuizID] || !enrolled[sub.StudentID] {
			continue
		}
		a, ok := byStudent[sub.StudentID]
		if !ok {
			a = &agg{}
			byStudent[sub.StudentID] = a
			order = append(order, sub.StudentID)
		}
		if sub.Total > 0 {
			a.pctSum += float64(sub.Score) / float64(sub.Total) * 100
		}
		a.done++
		a.correct += sub.Score
		a.total += sub.Total
	}

	out := make([]StudentStats, 0, len(order))
	for _, id := range order {
		a := byStudent[id]
		out = append(out, StudentStats{
			StudentID:      id,
			AvgScore:       a.pctSum / float64(a.done),
			QuizzesDone:    a.done,
			TotalCorrect:   a.correct,
			TotalQuestions: a.total,
		})
	}
	return out, nil
}

func (s *MemoryStore) TotalQuizzes(_ context.Context, classID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.quizzes[classID]), nil
}

func (s *MemoryStore) ReplaceClassScores(_ context.Context, classID string, scores []Score) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]Score, len(scores))
	copy(cp, scores)
	s.scores[classID] = cp
	return nil
}

func (s *MemoryStore) ClassScores(_ context.Context, classID string, limit int) ([]Score, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Score
	for _, sc := range s.scores[classID] {
		if sc.QuizzesDone > 0 {
			out = append(out, sc)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) GlobalScores(_ context.Context, limit int) ([]Score, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Score
	for _, scores := range s.scores {
		for _, sc := range scores {
			if sc.QuizzesDone > 0 {
				out = append(out, sc)
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CompositeScore > out[j].CompositeScore
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) GetStudent(_ context.Context, studentID string) (*Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.students[studentID]
	if !ok {
		return nil, nil
	}
	return &st, nil
}
