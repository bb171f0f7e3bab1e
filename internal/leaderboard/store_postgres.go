package leaderboard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/examforge/arena/internal/platform/database"
)

const dbTimeout = 5 * time.Second

// PostgresStore implements Store on PostgreSQL.
type PostgresStore struct {
	db *database.DB
}

// NewPostgresStore wraps db as a leaderboard Store.
func NewPostgresStore(db *database.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) ClassesForStudent(ctx context.Context, studentID string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := s.db.Pool.Query(ctx, `
		SELECT class_id FROM enrollments WHERE student_id = $1 ORDER BY class_id`,
		studentID)
	if err != nil {
		return nil, fmt.Errorf("querying enrollments: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var classID string
		if err := rows.Scan(&classID); err != nil {
			return nil, fmt.Errorf("scanning class id: %w", err)
		}
		out = append(out, classID)
	}
	return out, rows.Err()
}

func (s *PostgresStore) SubmissionStats(ctx context.Context, classID string) ([]StudentStats, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := s.db.Pool.Query(ctx, `
		SELECT qs.student_id,
		       AVG(qs.score::float / NULLIF(qs.total, 0) * 100),
		       COUNT(*),
		       SUM(qs.score),
		       SUM(qs.total)
		FROM quiz_submissions qs
		JOIN class_quizzes cq ON cq.id = qs.quiz_id
		JOIN enrollments e ON e.class_id = cq.class_id AND e.student_id = qs.student_id
		WHERE cq.class_id = $1
		GROUP BY qs.student_id
		ORDER BY qs.student_id`, classID)
	if err != nil {
		return nil, fmt.Errorf("aggregating submissions: %w", err)
	}
	defer rows.Close()

	var out []StudentStats
	for rows.Next() {
		var st StudentStats
		var avg *float64
		if err := rows.Scan(&st.StudentID, &avg, &st.QuizzesDone,
			&st.TotalCorrect, &st.TotalQuestions); err != nil {
			return nil, fmt.Errorf("scanning stats: %w", err)
		}
		if avg != nil {
			st.AvgScore = *avg
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

func (s *PostgresStore) TotalQuizzes(ctx context.Context, classID string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var n int
	err := s.db.Pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM class_quizzes WHERE class_id = $1`, classID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting quizzes: %w", err)
	}
	return n, nil
}

// ReplaceClassScores deletes and rewrites a class's rows in one
// transaction so readers never observe a partial board.
func (s *PostgresStore) ReplaceClassScores(ctx context.Context, classID string, scores []Score) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	tx, err := s.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`DELETE FROM leaderboard_scores WHERE class_id = $1`, classID); err != nil {
		return fmt.Errorf("clearing scores: %w", err)
	}
	for _, sc := range scores {
		if _, err := tx.Exec(ctx, `
			INSERT INTO leaderboard_scores
				(student_id, class_id, avg_score, quizzes_done, total_correct,
				 total_questions, efficiency, composite_score, rank_position, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			sc.StudentID, sc.ClassID, sc.AvgScore, sc.QuizzesDone,
			sc.TotalCorrect, sc.TotalQuestions, sc.Efficiency,
			sc.CompositeScore, sc.RankPosition, sc.UpdatedAt); err != nil {
			return fmt.Errorf("inserting score for %s: %w", sc.StudentID, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing scores: %w", err)
	}
	return nil
}

func (s *PostgresStore) ClassScores(ctx context.Context, classID string, limit int) ([]Score, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := s.db.Pool.Query(ctx, `
		SELECT student_id, class_id, avg_score, quizzes_done, total_correct,
		       total_questions, efficiency, composite_score, rank_position, updated_at
		FROM leaderboard_scores
		WHERE class_id = $1 AND quizzes_done > 0
		ORDER BY rank_position
		LIMIT NULLIF($2, 0)`, classID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying class scores: %w", err)
	}
	defer rows.Close()
	return scanScores(rows)
}

func (s *PostgresStore) GlobalScores(ctx context.Context, limit int) ([]Score, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	query := `
		SELECT student_id, class_id, avg_score, quizzes_done, total_correct,
		       total_questions, efficiency, composite_score, rank_position, updated_at
		FROM leaderboard_scores
		WHERE quizzes_done > 0
		ORDER BY composite_score DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT $1"
		args = append(args, limit)
	}

	rows, err := s.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying global scores: %w", err)
	}
	defer rows.Close()
	return scanScores(rows)
}

func scanScores(rows pgx.Rows) ([]Score, error) {
	var out []Score
	for rows.Next() {
		var sc Score
		if err := rows.Scan(&sc.StudentID, &sc.ClassID, &sc.AvgScore,
			&sc.QuizzesDone, &sc.TotalCorrect, &sc.TotalQuestions,
			&sc.Efficiency, &sc.CompositeScore, &sc.RankPosition,
			&sc.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning score: %w", err)
		}
		out = append(out, sc)
	}
	return out, rows.Err()
}

func (s *PostgresStore) GetStudent(ctx context.Context, studentID string) (*Student, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var st Student
	err := s.db.Pool.QueryRow(ctx,
		`SELECT id, name, email FROM students WHERE id = $1`, studentID).
		Scan(&st.ID, &st.Name, &st.Email)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying student: %w", err)
	}
	return &st, nil
}
