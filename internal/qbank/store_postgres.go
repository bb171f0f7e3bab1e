package qbank

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const dbTimeout = 5 * time.Second

// PostgresStore is a PostgreSQL-backed Store implementation.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a PostgreSQL-backed question store.
func NewPostgresStore(pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) AddQuestion(ctx context.Context, q Question) error {
	if err := q.Validate(); err != nil {
		return err
	}
	if q.ID == "" {
		q.ID = NewID()
	}
	if q.CreatedAt.IsZero() {
		q.CreatedAt = time.Now()
	}

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO arena_questions
		 (id, exam, subject, topic_tag, difficulty, question_text,
		  option_a, option_b, option_c, option_d, correct_option,
		  explanation, estimated_time, source_tag, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`,
		q.ID, string(q.Exam), q.Subject, q.TopicTag, string(q.Difficulty), q.Text,
		q.OptionA, q.OptionB, q.OptionC, q.OptionD, q.CorrectOption,
		q.Explanation, q.EstimatedTime, q.SourceTag, q.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert question: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetQuestion(ctx context.Context, id string) (Question, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	row := s.pool.QueryRow(ctx,
		`SELECT id, exam, subject, topic_tag, difficulty, question_text,
		        option_a, option_b, option_c, option_d, correct_option,
		        explanation, estimated_time, source_tag, created_at
		 FROM arena_questions WHERE id = $1`,
		id,
	)

	q, err := scanQuestion(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Question{}, fmt.Errorf("question not found: %s", id)
	}
	if err != nil {
		return Question{}, fmt.Errorf("get question: %w", err)
	}
	return q, nil
}

func (s *PostgresStore) FetchQuestions(ctx context.Context, exam Exam, subject string, f Filter, limit int, excludeIDs []string) ([]Question, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	query := `SELECT id, exam, subject, topic_tag, difficulty, question_text,
	                 option_a, option_b, option_c, option_d, correct_option,
	                 explanation, estimated_time, source_tag, created_at
	          FROM arena_questions
	          WHERE exam = $1 AND subject = $2`
	args := []any{string(exam), subject}

	if f.Topic != "" {
		args = append(args, f.Topic)
		query += fmt.Sprintf(" AND topic_tag = $%d", len(args))
	}
	if len(f.Topics) > 0 {
		args = append(args, f.Topics)
		query += fmt.Sprintf(" AND topic_tag = ANY($%d)", len(args))
	}
	if f.Difficulty != "" {
		args = append(args, string(f.Difficulty))
		query += fmt.Sprintf(" AND difficulty = $%d", len(args))
	}
	if len(excludeIDs) > 0 {
		args = append(args, excludeIDs)
		query += fmt.Sprintf(" AND id <> ALL($%d)", len(args))
	}

	query += " ORDER BY RANDOM()"
	if limit > 0 {
		args = append(args, limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query questions: %w", err)
	}
	defer rows.Close()

	var questions []Question
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate questions: %w", err)
	}
	return questions, nil
}

func (s *PostgresStore) CountQuestions(ctx context.Context, exam Exam, subject string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var count int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM arena_questions WHERE exam = $1 AND subject = $2`,
		string(exam), subject,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count questions: %w", err)
	}
	return count, nil
}

func scanQuestion(row pgx.Row) (Question, error) {
	var q Question
	var exam, difficulty string
	err := row.Scan(
		&q.ID, &exam, &q.Subject, &q.TopicTag, &difficulty, &q.Text,
		&q.OptionA, &q.OptionB, &q.OptionC, &q.OptionD, &q.CorrectOption,
		&q.Explanation, &q.EstimatedTime, &q.SourceTag, &q.CreatedAt,
	)
	if err != nil {
		return Question{}, err
	}
	q.Exam = Exam(exam)
	q.Difficulty = Difficulty(difficulty)
	return q, nil
}
