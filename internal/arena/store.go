package arena

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/examforge/arena/internal/qbank"
)

// Store persists attempts and every derived artifact of the enrichment
// pipeline. Implementations must be safe for concurrent use.
type Store interface {
	CreateAttempt(ctx context.Context, a *Attempt) error
	GetAttempt(ctx context.Context, id string) (*Attempt, error)
	FinalizeAttempt(ctx context.Context, a *Attempt) error
	// MarkEnriched flips the attempt's enrichment flag and reports
	// whether this call won the flip. A false result means another
	// submission already ran the pipeline.
	MarkEnriched(ctx context.Context, attemptID string) (bool, error)
	RecentAttempts(ctx context.Context, studentID string, exam qbank.Exam, subject string, limit int) ([]Attempt, error)
	CountAttempts(ctx context.Context, studentID string, exam qbank.Exam, subject string, typ AttemptType) (int, error)
	DailyDoneOn(ctx context.Context, studentID string, day time.Time) (bool, error)

	AddAnswers(ctx context.Context, answers []AnswerRecord) error
	AnswersForAttempt(ctx context.Context, attemptID string) ([]AnswerRecord, error)

	GetMastery(ctx context.Context, studentID string, exam qbank.Exam, subject, topic string) (*TopicMastery, error)
	UpsertMastery(ctx context.Context, m TopicMastery) error
	WeakTopics(ctx context.Context, studentID string, exam qbank.Exam, subject string) ([]string, error)
	MasteryForSubject(ctx context.Context, studentID string, exam qbank.Exam, subject string) ([]TopicMastery, error)

	GetRankStatus(ctx context.Context, studentID string) (*RankStatus, error)
	SaveRankStatus(ctx context.Context, r *RankStatus) error
	AppendXP(ctx context.Context, e XPEntry) error

	ListAchievements(ctx context.Context, studentID string) ([]Achievement, error)
	AddAchievement(ctx context.Context, a Achievement) error

	AddAINotes(ctx context.Context, notes []AINote) error
	NotesForAttempt(ctx context.Context, attemptID string) ([]AINote, error)

	SavePlan(ctx context.Context, p RevisionPlan) error
	HasPlan(ctx context.Context, studentID, attemptID string) (bool, error)
	LatestPlan(ctx context.Context, studentID string) (*RevisionPlan, error)
}

// MemoryStore is an in-memory Store for tests and local runs.
type MemoryStore struct {
	mu           sync.RWMutex
	attempts     map[string]*Attempt
	answers      map[string][]AnswerRecord
	mastery      map[string]TopicMastery
	ranks        map[string]*RankStatus
	xpLog        []XPEntry
	achievements map[string][]Achievement
	notes        map[string][]AINote
	plans        []RevisionPlan
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		attempts:     make(map[string]*Attempt),
		answers:      make(map[string][]AnswerRecord),
		mastery:      make(map[string]TopicMastery),
		ranks:        make(map[string]*RankStatus),
		achievements: make(map[string][]Achievement),
		notes:        make(map[string][]AINote),
	}
}

func masteryKey(studentID string, exam qbank.Exam, subject, topic string) string {
	return strings.Join([]string{studentID, string(exam), subject, topic}, "|")
}

func (s *MemoryStore) CreateAttempt(_ context.Context, a *Attempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *a
	s.attempts[a.ID] = &cp
	return nil
}

func (s *MemoryStore) GetAttempt(_ context.Context, id string) (*Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.attempts[id]
	if !ok {
		return nil, ErrAttemptNotFound
	}
	cp := *a
	return &cp, nil
}

func (s *MemoryStore) FinalizeAttempt(_ context.Context, a *Attempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.attempts[a.ID]
	if !ok {
		return ErrAttemptNotFound
	}
	if stored.Status == StatusCompleted {
		return ErrAttemptClosed
	}
	cp := *a
	cp.Enriched = stored.Enriched
	s.attempts[a.ID] = &cp
	return nil
}

func (s *MemoryStore) MarkEnriched(_ context.Context, attemptID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.attempts[attemptID]
	if !ok {
		return false, ErrAttemptNotFound
	}
	if a.Enriched {
		return false, nil
	}
	a.Enriched = true
	return true, nil
}

func (s *MemoryStore) RecentAttempts(_ context.Context, studentID string, exam qbank.Exam, subject string, limit int) ([]Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Attempt
	for _, a := range s.attempts {
		if a.StudentID == studentID && a.Exam == exam && a.Subject == subject && a.Status == StatusCompleted {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) CountAttempts(_ context.Context, studentID string, exam qbank.Exam, subject string, typ AttemptType) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, a := range s.attempts {
		if a.StudentID == studentID && a.Exam == exam && a.Subject == subject && a.Type == typ && a.Status == StatusCompleted {
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) DailyDoneOn(_ context.Context, studentID string, day time.Time) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	y, m, d := day.Date()
	for _, a := range s.attempts {
		if a.StudentID != studentID || a.Type != AttemptDaily {
			continue
		}
		ay, am, ad := a.CreatedAt.Date()
		if ay == y && am == m && ad == d {
			return true, nil
		}
	}
	return false, nil
}

func (s *MemoryStore) AddAnswers(_ context.Context, answers []AnswerRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range answers {
		s.answers[a.AttemptID] = append(s.answers[a.AttemptID], a)
	}
	return nil
}

func (s *MemoryStore) AnswersForAttempt(_ context.Context, attemptID string) ([]AnswerRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]AnswerRecord, len(s.answers[attemptID]))
	copy(out, s.answers[attemptID])
	return out, nil
}

func (s *MemoryStore) GetMastery(_ context.Context, studentID string, exam qbank.Exam, subject, topic string) (*TopicMastery, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.mastery[masteryKey(studentID, exam, subject, topic)]
	if !ok {
		return nil, nil
	}
	cp := m
	return &cp, nil
}

func (s *MemoryStore) UpsertMastery(_ context.Context, m TopicMastery) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mastery[masteryKey(m.StudentID, m.Exam, m.Subject, m.TopicTag)] = m
	return nil
}

func (s *MemoryStore) WeakTopics(_ context.Context, studentID string, exam qbank.Exam, subject string) ([]string, error) {
	all, err := s.MasteryForSubject(nil, studentID, exam, subject)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, m := range all {
		if m.WeakFlag {
			out = append(out, m.TopicTag)
		}
	}
	return out, nil
}

func (s *MemoryStore) MasteryForSubject(_ context.Context, studentID string, exam qbank.Exam, subject string) ([]TopicMastery, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []TopicMastery
	for _, m := range s.mastery {
		if m.StudentID == studentID && m.Exam == exam && m.Subject == subject {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MasteryScore < out[j].MasteryScore })
	return out, nil
}

func (s *MemoryStore) GetRankStatus(_ context.Context, studentID string) (*RankStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.ranks[studentID]
	if !ok {
		return nil, nil
	}
	cp := *r
	return &cp, nil
}

func (s *MemoryStore) SaveRankStatus(_ context.Context, r *RankStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *r
	s.ranks[r.StudentID] = &cp
	return nil
}

func (s *MemoryStore) AppendXP(_ context.Context, e XPEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.xpLog = append(s.xpLog, e)
	return nil
}

func (s *MemoryStore) ListAchievements(_ context.Context, studentID string) ([]Achievement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Achievement, len(s.achievements[studentID]))
	copy(out, s.achievements[studentID])
	return out, nil
}

func (s *MemoryStore) AddAchievement(_ context.Context, a Achievement) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, owned := range s.achievements[a.StudentID] {
		if owned.Code == a.Code {
			return nil
		}
	}
	s.achievements[a.StudentID] = append(s.achievements[a.StudentID], a)
	return nil
}

func (s *MemoryStore) AddAINotes(_ context.Context, notes []AINote) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range notes {
		s.notes[n.AttemptID] = append(s.notes[n.AttemptID], n)
	}
	return nil
}

func (s *MemoryStore) NotesForAttempt(_ context.Context, attemptID string) ([]AINote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]AINote, len(s.notes[attemptID]))
	copy(out, s.notes[attemptID])
	return out, nil
}

func (s *MemoryStore) SavePlan(_ context.Context, p RevisionPlan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.plans {
		if existing.StudentID == p.StudentID && existing.AttemptID == p.AttemptID {
			return nil
		}
	}
	s.plans = append(s.plans, p)
	return nil
}

func (s *MemoryStore) HasPlan(_ context.Context, studentID, attemptID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.plans {
		if p.StudentID == studentID && p.AttemptID == attemptID {
			return true, nil
		}
	}
	return false, nil
}

func (s *MemoryStore) LatestPlan(_ context.Context, studentID string) (*RevisionPlan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var latest *RevisionPlan
	for i := range s.plans {
		p := &s.plans[i]
		if p.StudentID != studentID {
			continue
		}
		if latest == nil || p.CreatedAt.After(latest.CreatedAt) {
			latest = p
		}
	}
	if latest == nil {
		return nil, nil
	}
	cp := *latest
	return &cp, nil
}
