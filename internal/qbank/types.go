// Package qbank stores tagged multiple-choice questions keyed by
// exam, subject, topic and difficulty.
package qbank

import (
	"crypto/rand"
	"fmt"
	"time"
)

// Exam is a supported competitive exam.
type Exam string

const (
	ExamJEE  Exam = "JEE"
	ExamNEET Exam = "NEET"
	ExamOJEE Exam = "OJEE"
	ExamUPSC Exam = "UPSC"
)

// Valid reports whether the exam is one of the supported values.
func (e Exam) Valid() bool {
	switch e {
	case ExamJEE, ExamNEET, ExamOJEE, ExamUPSC:
		return true
	}
	return false
}

// Difficulty is a question or attempt difficulty band.
type Difficulty string

const (
	Easy   Difficulty = "Easy"
	Medium Difficulty = "Medium"
	Hard   Difficulty = "Hard"
)

// DifficultyPool is every difficulty questions are banked at.
var DifficultyPool = []Difficulty{Easy, Medium, Hard}

// Valid reports whether the difficulty is a banked value.
func (d Difficulty) Valid() bool {
	switch d {
	case Easy, Medium, Hard:
		return true
	}
	return false
}

// ExamSubjects maps each exam to its valid subjects.
var ExamSubjects = map[Exam][]string{
	ExamJEE:  {"Physics", "Chemistry", "Mathematics"},
	ExamNEET: {"Physics", "Chemistry", "Biology"},
	ExamOJEE: {"Physics", "Chemistry", "Mathematics", "Biology", "Logical Reasoning"},
	ExamUPSC: {"General Studies", "Indian Polity", "Indian History", "Geography", "Economy", "Environment", "Current Affairs"},
}

// ValidSubject reports whether subject belongs to exam.
func ValidSubject(exam Exam, subject string) bool {
	for _, s := range ExamSubjects[exam] {
		if s == subject {
			return true
		}
	}
	return false
}

// Question is one banked multiple-choice question. Immutable once created.
type Question struct {
	ID            string     `json:"id"`
	Exam          Exam       `json:"exam"`
	Subject       string     `json:"subject"`
	TopicTag      string     `json:"topic_tag"`
	Difficulty    Difficulty `json:"difficulty"`
	Text          string     `json:"text"`
	OptionA       string     `json:"option_a"`
	OptionB       string     `json:"option_b"`
	OptionC       string     `json:"option_c"`
	OptionD       string     `json:"option_d"`
	CorrectOption string     `json:"correct_option"` // "A".."D"
	Explanation   string     `json:"explanation"`
	EstimatedTime int        `json:"estimated_time"` // seconds
	SourceTag     string     `json:"source_tag"`     // SEED, FALLBACK, IMPORT
	CreatedAt     time.Time  `json:"created_at"`
}

// Option returns the text of the given option letter.
func (q Question) Option(letter string) string {
	switch letter {
	case "A":
		return q.OptionA
	case "B":
		return q.OptionB
	case "C":
		return q.OptionC
	case "D":
		return q.OptionD
	}
	return ""
}

// Validate checks the question is complete enough to serve.
func (q Question) Validate() error {
	if !q.Exam.Valid() {
		return fmt.Errorf("invalid exam: %q", q.Exam)
	}
	if !ValidSubject(q.Exam, q.Subject) {
		return fmt.Errorf("invalid subject %q for %s", q.Subject, q.Exam)
	}
	if !q.Difficulty.Valid() {
		return fmt.Errorf("invalid difficulty: %q", q.Difficulty)
	}
	if q.Text == "" {
		return fmt.Errorf("question text is required")
	}
	if q.OptionA == "" || q.OptionB == "" || q.OptionC == "" || q.OptionD == "" {
		return fmt.Errorf("all four options are required")
	}
	switch q.CorrectOption {
	case "A", "B", "C", "D":
	default:
		return fmt.Errorf("correct option must be A..D, got %q", q.CorrectOption)
	}
	return nil
}

// NewID returns a random hex identifier.
func NewID() string {
	b := make([]byte, 16)
	rand.Read(b)
	return fmt.Sprintf("%x", b)
}
