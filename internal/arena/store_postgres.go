package arena

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/examforge/arena/internal/platform/database"
	"github.com/examforge/arena/internal/qbank"
)

const dbTimeout = 5 * time.Second

// PostgresStore implements Store on PostgreSQL.
type PostgresStore struct {
	db *database.DB
}

// NewPostgresStore wraps db as an arena Store.
func NewPostgresStore(db *database.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) CreateAttempt(ctx context.Context, a *Attempt) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	_, err := s.db.Pool.Exec(ctx, `
		INSERT INTO arena_attempts
			(id, student_id, exam, subject, attempt_type, difficulty_start,
			 total_questions, question_ids, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		a.ID, a.StudentID, string(a.Exam), a.Subject, string(a.Type),
		string(a.DifficultyStart), a.TotalQuestions, a.QuestionIDs,
		string(a.Status), a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("inserting attempt: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetAttempt(ctx context.Context, id string) (*Attempt, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	row := s.db.Pool.QueryRow(ctx, `
		SELECT id, student_id, exam, subject, attempt_type, difficulty_start,
		       difficulty_end, status, score, total_questions, accuracy_percent,
		       avg_time_per_q, time_taken_total, xp_earned, question_ids,
		       current_index, enriched, created_at, updated_at
		FROM arena_attempts WHERE id = $1`, id)
	return scanAttempt(row)
}

func scanAttempt(row pgx.Row) (*Attempt, error) {
	var a Attempt
	var exam, typ, diffStart, diffEnd, status string
	err := row.Scan(&a.ID, &a.StudentID, &exam, &a.Subject, &typ, &diffStart,
		&diffEnd, &status, &a.Score, &a.TotalQuestions, &a.AccuracyPercent,
		&a.AvgTimePerQuestion, &a.TimeTakenTotal, &a.XPEarned, &a.QuestionIDs,
		&a.CurrentIndex, &a.Enriched, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrAttemptNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning attempt: %w", err)
	}
	a.Exam = qbank.Exam(exam)
	a.Type = AttemptType(typ)
	a.DifficultyStart = qbank.Difficulty(diffStart)
	a.DifficultyEnd = qbank.Difficulty(diffEnd)
	a.Status = Status(status)
	return &a, nil
}

func (s *PostgresStore) FinalizeAttempt(ctx context.Context, a *Attempt) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	tag, err := s.db.Pool.Exec(ctx, `
		UPDATE arena_attempts
		SET status = $2, score = $3, accuracy_percent = $4, avg_time_per_q = $5,
		    time_taken_total = $6, xp_earned = $7, difficulty_end = $8,
		    current_index = $9, updated_at = $10
		WHERE id = $1 AND status = 'ongoing'`,
		a.ID, string(a.Status), a.Score, a.AccuracyPercent, a.AvgTimePerQuestion,
		a.TimeTakenTotal, a.XPEarned, string(a.DifficultyEnd), a.CurrentIndex,
		a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("finalizing attempt: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAttemptClosed
	}
	return nil
}

func (s *PostgresStore) MarkEnriched(ctx context.Context, attemptID string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	tag, err := s.db.Pool.Exec(ctx, `
		UPDATE arena_attempts SET enriched = TRUE
		WHERE id = $1 AND enriched = FALSE`, attemptID)
	if err != nil {
		return false, fmt.Errorf("marking attempt enriched: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PostgresStore) RecentAttempts(ctx context.Context, studentID string, exam qbank.Exam, subject string, limit int) ([]Attempt, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	query := `
		SELECT id, student_id, exam, subject, attempt_type, difficulty_start,
		       difficulty_end, status, score, total_questions, accuracy_percent,
		       avg_time_per_q, time_taken_total, xp_earned, question_ids,
		       current_index, enriched, created_at, updated_at
		FROM arena_attempts
		WHERE student_id = $1 AND exam = $2 AND subject = $3 AND status = 'completed'
		ORDER BY updated_at DESC`
	args := []any{studentID, string(exam), subject}
	if limit > 0 {
		query += " LIMIT $4"
		args = append(args, limit)
	}

	rows, err := s.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying attempts: %w", err)
	}
	defer rows.Close()

	var out []Attempt
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func (s *PostgresStore) CountAttempts(ctx context.Context, studentID string, exam qbank.Exam, subject string, typ AttemptType) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var n int
	err := s.db.Pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM arena_attempts
		WHERE student_id = $1 AND exam = $2 AND subject = $3
		  AND attempt_type = $4 AND status = 'completed'`,
		studentID, string(exam), subject, string(typ)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting attempts: %w", err)
	}
	return n, nil
}

func (s *PostgresStore) DailyDoneOn(ctx context.Context, studentID string, day time.Time) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var exists bool
	err := s.db.Pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM arena_attempts
			WHERE student_id = $1 AND attempt_type = 'daily'
			  AND created_at >= $2 AND created_at < $3
		)`, studentID, dayOf(day), dayOf(day).AddDate(0, 0, 1)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking daily attempt: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) AddAnswers(ctx context.Context, answers []AnswerRecord) error {
	if len(answers) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	batch := &pgx.Batch{}
	for _, a := range answers {
		batch.Queue(`
			INSERT INTO arena_attempt_answers
				(attempt_id, question_id, selected_option, is_correct,
				 question_text, correct_option, explanation, topic_tag)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			a.AttemptID, a.QuestionID, a.SelectedOption, a.Correct,
			a.QuestionText, a.CorrectOption, a.Explanation, a.TopicTag)
	}
	if err := s.db.Pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("inserting answers: %w", err)
	}
	return nil
}

func (s *PostgresStore) AnswersForAttempt(ctx context.Context, attemptID string) ([]AnswerRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := s.db.Pool.Query(ctx, `
		SELECT attempt_id, question_id, selected_option, is_correct,
		       question_text, correct_option, explanation, topic_tag
		FROM arena_attempt_answers WHERE attempt_id = $1 ORDER BY id`, attemptID)
	if err != nil {
		return nil, fmt.Errorf("querying answers: %w", err)
	}
	defer rows.Close()

	var out []AnswerRecord
	for rows.Next() {
		var a AnswerRecord
		if err := rows.Scan(&a.AttemptID, &a.QuestionID, &a.SelectedOption,
			&a.Correct, &a.QuestionText, &a.CorrectOption, &a.Explanation,
			&a.TopicTag); err != nil {
			return nil, fmt.Errorf("scanning answer: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *PostgresStore) GetMastery(ctx context.Context, studentID string, exam qbank.Exam, subject, topic string) (*TopicMastery, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var m TopicMastery
	var examStr string
	err := s.db.Pool.QueryRow(ctx, `
		SELECT student_id, exam, subject, topic_tag, mastery_score, weak_flag, updated_at
		FROM arena_topic_mastery
		WHERE student_id = $1 AND exam = $2 AND subject = $3 AND topic_tag = $4`,
		studentID, string(exam), subject, topic).
		Scan(&m.StudentID, &examStr, &m.Subject, &m.TopicTag, &m.MasteryScore,
			&m.WeakFlag, &m.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying mastery: %w", err)
	}
	m.Exam = qbank.Exam(examStr)
	return &m, nil
}

func (s *PostgresStore) UpsertMastery(ctx context.Context, m TopicMastery) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	_, err := s.db.Pool.Exec(ctx, `
		INSERT INTO arena_topic_mastery
			(student_id, exam, subject, topic_tag, mastery_score, weak_flag, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (student_id, exam, subject, topic_tag)
		DO UPDATE SET mastery_score = EXCLUDED.mastery_score,
		              weak_flag = EXCLUDED.weak_flag,
		              updated_at = EXCLUDED.updated_at`,
		m.StudentID, string(m.Exam), m.Subject, m.TopicTag, m.MasteryScore,
		m.WeakFlag, m.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upserting mastery: %w", err)
	}
	return nil
}

func (s *PostgresStore) WeakTopics(ctx context.Context, studentID string, exam qbank.Exam, subject string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := s.db.Pool.Query(ctx, `
		SELECT topic_tag FROM arena_topic_mastery
		WHERE student_id = $1 AND exam = $2 AND subject = $3 AND weak_flag
		ORDER BY mastery_score ASC`, studentID, string(exam), subject)
	if err != nil {
		return nil, fmt.Errorf("querying weak topics: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var topic string
		if err := rows.Scan(&topic); err != nil {
			return nil, fmt.Errorf("scanning weak topic: %w", err)
		}
		out = append(out, topic)
	}
	return out, rows.Err()
}

func (s *PostgresStore) MasteryForSubject(ctx context.Context, studentID string, exam qbank.Exam, subject string) ([]TopicMastery, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := s.db.Pool.Query(ctx, `
		SELECT student_id, exam, subject, topic_tag, mastery_score, weak_flag, updated_at
		FROM arena_topic_mastery
		WHERE student_id = $1 AND exam = $2 AND subject = $3
		ORDER BY mastery_score ASC`, studentID, string(exam), subject)
	if err != nil {
		return nil, fmt.Errorf("querying mastery: %w", err)
	}
	defer rows.Close()

	var out []TopicMastery
	for rows.Next() {
		var m TopicMastery
		var examStr string
		if err := rows.Scan(&m.StudentID, &examStr, &m.Subject, &m.TopicTag,
			&m.MasteryScore, &m.WeakFlag, &m.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning mastery: %w", err)
		}
		m.Exam = qbank.Exam(examStr)
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *PostgresStore) GetRankStatus(ctx context.Context, studentID string) (*RankStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var r RankStatus
	err := s.db.Pool.QueryRow(ctx, `
		SELECT student_id, xp_total, streak_days, rank_name, readiness_score,
		       last_daily_date, updated_at
		FROM arena_rank_status WHERE student_id = $1`, studentID).
		Scan(&r.StudentID, &r.XPTotal, &r.StreakDays, &r.RankName,
			&r.ReadinessScore, &r.LastDailyDate, &r.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying rank status: %w", err)
	}
	return &r, nil
}

func (s *PostgresStore) SaveRankStatus(ctx context.Context, r *RankStatus) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	_, err := s.db.Pool.Exec(ctx, `
		INSERT INTO arena_rank_status
			(student_id, xp_total, streak_days, rank_name, readiness_score,
			 last_daily_date, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (student_id)
		DO UPDATE SET xp_total = EXCLUDED.xp_total,
		              streak_days = EXCLUDED.streak_days,
		              rank_name = EXCLUDED.rank_name,
		              readiness_score = EXCLUDED.readiness_score,
		              last_daily_date = EXCLUDED.last_daily_date,
		              updated_at = EXCLUDED.updated_at`,
		r.StudentID, r.XPTotal, r.StreakDays, r.RankName, r.ReadinessScore,
		r.LastDailyDate, r.UpdatedAt)
	if err != nil {
		return fmt.Errorf("saving rank status: %w", err)
	}
	return nil
}

func (s *PostgresStore) AppendXP(ctx context.Context, e XPEntry) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	_, err := s.db.Pool.Exec(ctx, `
		INSERT INTO arena_xp_log (student_id, amount, source, description, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		e.StudentID, e.Amount, e.Source, e.Description, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("appending xp entry: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListAchievements(ctx context.Context, studentID string) ([]Achievement, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := s.db.Pool.Query(ctx, `
		SELECT student_id, code, title, description, icon, unlocked_at
		FROM arena_achievements WHERE student_id = $1 ORDER BY unlocked_at`, studentID)
	if err != nil {
		return nil, fmt.Errorf("querying achievements: %w", err)
	}
	defer rows.Close()

	var out []Achievement
	for rows.Next() {
		var a Achievement
		if err := rows.Scan(&a.StudentID, &a.Code, &a.Title, &a.Description,
			&a.Icon, &a.UnlockedAt); err != nil {
			return nil, fmt.Errorf("scanning achievement: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *PostgresStore) AddAchievement(ctx context.Context, a Achievement) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	_, err := s.db.Pool.Exec(ctx, `
		INSERT INTO arena_achievements (student_id, code, title, description, icon, unlocked_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (student_id, code) DO NOTHING`,
		a.StudentID, a.Code, a.Title, a.Description, a.Icon, a.UnlockedAt)
	if err != nil {
		return fmt.Errorf("inserting achievement: %w", err)
	}
	return nil
}

func (s *PostgresStore) AddAINotes(ctx context.Context, notes []AINote) error {
	if len(notes) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	batch := &pgx.Batch{}
	for _, n := range notes {
		batch.Queue(`
			INSERT INTO arena_ai_notes
				(student_id, attempt_id, topic_tag, mistake_summary, quick_fix,
				 memory_trick, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			n.StudentID, n.AttemptID, n.TopicTag, n.MistakeSummary, n.QuickFix,
			n.MemoryTrick, n.CreatedAt)
	}
	if err := s.db.Pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("inserting coaching notes: %w", err)
	}
	return nil
}

func (s *PostgresStore) NotesForAttempt(ctx context.Context, attemptID string) ([]AINote, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := s.db.Pool.Query(ctx, `
		SELECT student_id, attempt_id, topic_tag, mistake_summary, quick_fix,
		       memory_trick, created_at
		FROM arena_ai_notes WHERE attempt_id = $1 ORDER BY id`, attemptID)
	if err != nil {
		return nil, fmt.Errorf("querying coaching notes: %w", err)
	}
	defer rows.Close()

	var out []AINote
	for rows.Next() {
		var n AINote
		if err := rows.Scan(&n.StudentID, &n.AttemptID, &n.TopicTag,
			&n.MistakeSummary, &n.QuickFix, &n.MemoryTrick, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning coaching note: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (s *PostgresStore) SavePlan(ctx context.Context, p RevisionPlan) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	practice, err := json.Marshal(p.PracticeQuestions)
	if err != nil {
		return fmt.Errorf("encoding practice questions: %w", err)
	}
	suggestions, err := json.Marshal(p.TopicSuggestions)
	if err != nil {
		return fmt.Errorf("encoding topic suggestions: %w", err)
	}

	_, err = s.db.Pool.Exec(ctx, `
		INSERT INTO arena_revision_plans
			(student_id, attempt_id, exam, subject, mistake_summary,
			 revision_notes, practice_questions, topic_suggestions,
			 readiness_before, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (student_id, attempt_id) DO NOTHING`,
		p.StudentID, p.AttemptID, string(p.Exam), p.Subject, p.MistakeSummary,
		p.RevisionNotes, practice, suggestions, p.ReadinessBefore, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting revision plan: %w", err)
	}
	return nil
}

func (s *PostgresStore) HasPlan(ctx context.Context, studentID, attemptID string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var exists bool
	err := s.db.Pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM arena_revision_plans
			WHERE student_id = $1 AND attempt_id = $2
		)`, studentID, attemptID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking revision plan: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) LatestPlan(ctx context.Context, studentID string) (*RevisionPlan, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var p RevisionPlan
	var examStr string
	var practice, suggestions []byte
	err := s.db.Pool.QueryRow(ctx, `
		SELECT student_id, attempt_id, exam, subject, mistake_summary,
		       revision_notes, practice_questions, topic_suggestions,
		       readiness_before, created_at
		FROM arena_revision_plans
		WHERE student_id = $1
		ORDER BY created_at DESC LIMIT 1`, studentID).
		Scan(&p.StudentID, &p.AttemptID, &examStr, &p.Subject, &p.MistakeSummary,
			&p.RevisionNotes, &practice, &suggestions, &p.ReadinessBefore, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying revision plan: %w", err)
	}
	p.Exam = qbank.Exam(examStr)
	if err := json.Unmarshal(practice, &p.PracticeQuestions); err != nil {
		return nil, fmt.Errorf("decoding practice questions: %w", err)
	}
	if err := json.Unmarshal(suggestions, &p.TopicSuggestions); err != nil {
		return nil, fmt.Errorf("decoding topic suggestions: %w", err)
	}
	return &p, nil
}
