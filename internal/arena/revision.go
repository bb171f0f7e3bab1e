package arena

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/examforge/arena/internal/qbank"
)

// Revision plan limits.
const (
	planTriggerMocks      = 3
	planTriggerAccuracy   = 40.0
	mistakesPerTopic      = 3
	explanationsPerTopic  = 2
	practicePerTopic      = 3
	highPriorityThreshold = 2
	aiNotesTimeout        = 20 * time.Second
)

// memoryTricks maps topics to fixed recall aids. Topics outside the
// table get a generic prompt built from the question's explanation.
var memoryTricks = map[string]string{
	"Mechanics":        "FBD first: draw the Free Body Diagram before touching any equation.",
	"Thermodynamics":   "Remember GRowth: Gibbs negative means the Reaction goes.",
	"Electrostatics":   "Like charges repel, field lines never cross.",
	"Optics":           "Real images invert, virtual images stay upright.",
	"Atomic Structure": "s-p-d-f fills by n+l: lower sum fills first.",
	"Chemical Bonding": "Electronegativity difference above 1.7 means ionic.",
	"Cell Biology":     "Mitochondria make ATP, ribosomes make protein.",
	"Genetics":         "Dominant masks, recessive hides, cross to reveal.",
	"Calculus":         "Differentiate the outside, then multiply by the inside's derivative.",
	"Algebra":          "Whatever you do to one side, do to the other.",
}

func memoryTrick(topic, explanation string) string {
	if trick, ok := memoryTricks[topic]; ok {
		return trick
	}
	return fmt.Sprintf("Focus on understanding the core concept: %s...", truncate(explanation, 80))
}

// generateCoaching writes per-topic AI notes for every wrong answer and
// creates a revision plan when the attempt qualifies.
func (e *Engine) generateCoaching(ctx context.Context, attempt *Attempt, records []AnswerRecord, readinessBefore float64) error {
	var wrong []AnswerRecord
	for _, r := range records {
		if !r.Correct {
			wrong = append(wrong, r)
		}
	}
	if len(wrong) == 0 {
		return nil
	}

	if err := e.store.AddAINotes(ctx, buildNotes(attempt, wrong, e.now())); err != nil {
		return fmt.Errorf("saving coaching notes: %w", err)
	}

	mocks, err := e.store.CountAttempts(ctx, attempt.StudentID, attempt.Exam, attempt.Subject, AttemptMock)
	if err != nil {
		return fmt.Errorf("counting mocks: %w", err)
	}
	if mocks < planTriggerMocks && attempt.AccuracyPercent >= planTriggerAccuracy {
		return nil
	}

	exists, err := e.store.HasPlan(ctx, attempt.StudentID, attempt.ID)
	if err != nil {
		return fmt.Errorf("checking existing plan: %w", err)
	}
	if exists {
		return nil
	}

	plan, err := e.buildPlan(ctx, attempt, wrong, readinessBefore)
	if err != nil {
		return err
	}
	if err := e.store.SavePlan(ctx, *plan); err != nil {
		return fmt.Errorf("saving plan: %w", err)
	}
	return nil
}

// buildNotes produces one note per wrong topic. The first wrong answer
// of each topic supplies the quick fix.
func buildNotes(attempt *Attempt, wrong []AnswerRecord, now time.Time) []AINote {
	seen := make(map[string]bool)
	var notes []AINote
	for _, r := range wrong {
		topic := r.TopicTag
		if topic == "" {
			topic = "General"
		}
		if seen[topic] {
			continue
		}
		seen[topic] = true
		notes = append(notes, AINote{
			StudentID: attempt.StudentID,
			AttemptID: attempt.ID,
			TopicTag:  topic,
			MistakeSummary: fmt.Sprintf("You picked %s on %q but the answer is %s.",
				r.SelectedOption, truncate(r.QuestionText, 100), r.CorrectOption),
			QuickFix:    fmt.Sprintf("Correct answer: %s. %s", r.CorrectOption, truncate(r.Explanation, 150)),
			MemoryTrick: memoryTrick(topic, r.Explanation),
			CreatedAt:   now,
		})
	}
	return notes
}

func (e *Engine) buildPlan(ctx context.Context, attempt *Attempt, wrong []AnswerRecord, readinessBefore float64) (*RevisionPlan, error) {
	byTopic := make(map[string][]AnswerRecord)
	var topics []string
	for _, r := range wrong {
		topic := r.TopicTag
		if topic == "" {
			topic = "General"
		}
		if _, ok := byTopic[topic]; !ok {
			topics = append(topics, topic)
		}
		byTopic[topic] = append(byTopic[topic], r)
	}
	sort.Slice(topics, func(i, j int) bool {
		if len(byTopic[topics[i]]) != len(byTopic[topics[j]]) {
			return len(byTopic[topics[i]]) > len(byTopic[topics[j]])
		}
		return topics[i] < topics[j]
	})

	var summary strings.Builder
	for _, topic := range topics {
		records := byTopic[topic]
		fmt.Fprintf(&summary, "%s (%d mistakes):\n", topic, len(records))
		for i, r := range records {
			if i >= mistakesPerTopic {
				break
			}
			fmt.Fprintf(&summary, "  - %s\n", truncate(r.QuestionText, 100))
		}
	}

	suggestions := make([]TopicSuggestion, 0, len(topics))
	for _, topic := range topics {
		priority := "MEDIUM"
		if len(byTopic[topic]) >= highPriorityThreshold {
			priority = "HIGH"
		}
		suggestions = append(suggestions, TopicSuggestion{
			Topic:        topic,
			MistakeCount: len(byTopic[topic]),
			Priority:     priority,
		})
	}

	practice := e.pickPracticeQuestions(ctx, attempt, topics)

	plan := &RevisionPlan{
		StudentID:         attempt.StudentID,
		AttemptID:         attempt.ID,
		Exam:              attempt.Exam,
		Subject:           attempt.Subject,
		MistakeSummary:    summary.String(),
		RevisionNotes:     e.revisionNotes(ctx, attempt, topics, byTopic),
		PracticeQuestions: practice,
		TopicSuggestions:  suggestions,
		ReadinessBefore:   readinessBefore,
		CreatedAt:         e.now(),
	}
	return plan, nil
}

// pickPracticeQuestions pulls fresh questions from the weak topics,
// never repeating the attempt's own set. Bank errors just shrink the
// practice list.
func (e *Engine) pickPracticeQuestions(ctx context.Context, attempt *Attempt, topics []string) []PracticeQuestion {
	var practice []PracticeQuestion
	for _, topic := range topics {
		qs, err := e.bank.FetchQuestions(ctx, attempt.Exam, attempt.Subject,
			qbank.Filter{Topic: topic}, practicePerTopic, attempt.QuestionIDs)
		if err != nil {
			e.logger.Warn("practice question fetch failed", "topic", topic, "error", err)
			continue
		}
		for _, q := range qs {
			practice = append(practice, PracticeQuestion{
				QuestionID: q.ID,
				Question:   q.Text,
				Options: map[string]string{
					"A": q.OptionA, "B": q.OptionB, "C": q.OptionC, "D": q.OptionD,
				},
				Correct:     q.CorrectOption,
				Explanation: q.Explanation,
				Topic:       q.TopicTag,
			})
		}
	}
	return practice
}

// revisionNotes builds the prose study notes. A configured AI client
// can rewrite them; any failure falls back to the deterministic text.
func (e *Engine) revisionNotes(ctx context.Context, attempt *Attempt, topics []string, byTopic map[string][]AnswerRecord) string {
	var notes strings.Builder
	for _, topic := range topics {
		fmt.Fprintf(&notes, "## %s\n", topic)
		for i, r := range byTopic[topic] {
			if i >= explanationsPerTopic {
				break
			}
			if r.Explanation != "" {
				fmt.Fprintf(&notes, "- %s\n", truncate(r.Explanation, 150))
			}
		}
		fmt.Fprintf(&notes, "- Remember: %s\n", memoryTrick(topic, firstExplanation(byTopic[topic])))
	}
	fallback := notes.String()

	if e.ai == nil {
		return fallback
	}
	prompt := fmt.Sprintf(
		"Rewrite these revision notes for a student preparing for %s %s. Keep every topic heading, stay under 300 words, and keep the memory tricks verbatim:\n\n%s",
		attempt.Exam, attempt.Subject, fallback)
	aiCtx, cancel := context.WithTimeout(ctx, aiNotesTimeout)
	defer cancel()
	text, err := e.ai.Complete(aiCtx, prompt)
	if err != nil || strings.TrimSpace(text) == "" {
		if err != nil {
			e.logger.Warn("ai revision notes failed, using fallback", "error", err)
		}
		return fallback
	}
	return text
}

func firstExplanation(records []AnswerRecord) string {
	for _, r := range records {
		if r.Explanation != "" {
			return r.Explanation
		}
	}
	return ""
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
