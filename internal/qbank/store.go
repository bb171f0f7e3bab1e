package qbank

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"
)

// Filter narrows a question fetch. Zero values match everything.
type Filter struct {
	Topic      string
	Topics     []string // matches any of these tags when non-empty
	Difficulty Difficulty
}

// Store is the read/write interface to the question bank. Question
// selection is random within the filter, so repeated fetches vary.
type Store interface {
	AddQuestion(ctx context.Context, q Question) error
	GetQuestion(ctx context.Context, id string) (Question, error)
	FetchQuestions(ctx context.Context, exam Exam, subject string, f Filter, limit int, excludeIDs []string) ([]Question, error)
	CountQuestions(ctx context.Context, exam Exam, subject string) (int, error)
}

// MemoryStore is an in-memory Store implementation for tests and dev.
type MemoryStore struct {
	questions map[string]Question
	mu        sync.RWMutex
	rng       *rand.Rand
}

// NewMemoryStore creates a new in-memory question store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		questions: make(map[string]Question),
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (s *MemoryStore) AddQuestion(_ context.Context, q Question) error {
	if err := q.Validate(); err != nil {
		return err
	}
	if q.ID == "" {
		q.ID = NewID()
	}
	if q.CreatedAt.IsZero() {
		q.CreatedAt = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.questions[q.ID]; exists {
		return fmt.Errorf("question already exists: %s", q.ID)
	}
	s.questions[q.ID] = q
	return nil
}

func (s *MemoryStore) GetQuestion(_ context.Context, id string) (Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q, ok := s.questions[id]
	if !ok {
		return Question{}, fmt.Errorf("question not found: %s", id)
	}
	return q, nil
}

func (s *MemoryStore) FetchQuestions(_ context.Context, exam Exam, subject string, f Filter, limit int, excludeIDs []string) ([]Question, error) {
	excluded := make(map[string]bool, len(excludeIDs))
	for _, id := range excludeIDs {
		excluded[id] = true
	}

	s.mu.RLock()
	var matched []Question
	for _, q := range s.questions {
		if q.Exam != exam || q.Subject != subject || excluded[q.ID] {
			continue
		}
		if f.Topic != "" && q.TopicTag != f.Topic {
			continue
		}
		if len(f.Topics) > 0 && !containsTag(f.Topics, q.TopicTag) {
			continue
		}
		if f.Difficulty != "" && q.Difficulty != f.Difficulty {
			continue
		}
		matched = append(matched, q)
	}
	s.mu.RUnlock()

	s.mu.Lock()
	s.rng.Shuffle(len(matched), func(i, j int) {
		matched[i], matched[j] = matched[j], matched[i]
	})
	s.mu.Unlock()

	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

func (s *MemoryStore) CountQuestions(_ context.Context, exam Exam, subject string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, q := range s.questions {
		if q.Exam == exam && q.Subject == subject {
			count++
		}
	}
	return count, nil
}

func containsTag(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}
