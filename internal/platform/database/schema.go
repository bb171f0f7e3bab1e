package database

import (
	"context"
	"fmt"
)

// The schema is fixed and versioned with the binary. No runtime column
// detection: every store assumes exactly these tables.
const schemaDDL = `
CREATE TABLE IF NOT EXISTS arena_questions (
	id              TEXT PRIMARY KEY,
	exam            TEXT NOT NULL,
	subject         TEXT NOT NULL,
	topic_tag       TEXT NOT NULL DEFAULT '',
	difficulty      TEXT NOT NULL,
	question_text   TEXT NOT NULL,
	option_a        TEXT NOT NULL,
	option_b        TEXT NOT NULL,
	option_c        TEXT NOT NULL,
	option_d        TEXT NOT NULL,
	correct_option  TEXT NOT NULL,
	explanation     TEXT NOT NULL DEFAULT '',
	estimated_time  INT NOT NULL DEFAULT 60,
	source_tag      TEXT NOT NULL DEFAULT '',
	created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_questions_bank
	ON arena_questions (exam, subject, topic_tag, difficulty);

CREATE TABLE IF NOT EXISTS arena_attempts (
	id               TEXT PRIMARY KEY,
	student_id       TEXT NOT NULL,
	exam             TEXT NOT NULL,
	subject          TEXT NOT NULL,
	attempt_type     TEXT NOT NULL,
	difficulty_start TEXT NOT NULL,
	difficulty_end   TEXT NOT NULL DEFAULT '',
	status           TEXT NOT NULL DEFAULT 'ongoing',
	score            INT NOT NULL DEFAULT 0,
	total_questions  INT NOT NULL DEFAULT 0,
	accuracy_percent DOUBLE PRECISION NOT NULL DEFAULT 0,
	avg_time_per_q   DOUBLE PRECISION NOT NULL DEFAULT 0,
	time_taken_total INT NOT NULL DEFAULT 0,
	xp_earned        INT NOT NULL DEFAULT 0,
	question_ids     TEXT[] NOT NULL DEFAULT '{}',
	current_index    INT NOT NULL DEFAULT 0,
	enriched         BOOLEAN NOT NULL DEFAULT FALSE,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_attempts_student
	ON arena_attempts (student_id, exam, subject, status, created_at DESC);

CREATE TABLE IF NOT EXISTS arena_attempt_answers (
	id              BIGSERIAL PRIMARY KEY,
	attempt_id      TEXT NOT NULL REFERENCES arena_attempts(id),
	question_id     TEXT NOT NULL,
	selected_option TEXT NOT NULL,
	is_correct      BOOLEAN NOT NULL,
	question_text   TEXT NOT NULL DEFAULT '',
	correct_option  TEXT NOT NULL DEFAULT '',
	explanation     TEXT NOT NULL DEFAULT '',
	topic_tag       TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_answers_attempt ON arena_attempt_answers (attempt_id);

CREATE TABLE IF NOT EXISTS arena_topic_mastery (
	student_id    TEXT NOT NULL,
	exam          TEXT NOT NULL,
	subject       TEXT NOT NULL,
	topic_tag     TEXT NOT NULL,
	mastery_score DOUBLE PRECISION NOT NULL,
	weak_flag     BOOLEAN NOT NULL,
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (student_id, exam, subject, topic_tag)
);

CREATE TABLE IF NOT EXISTS arena_rank_status (
	student_id      TEXT PRIMARY KEY,
	xp_total        BIGINT NOT NULL DEFAULT 0,
	streak_days     INT NOT NULL DEFAULT 0,
	rank_name       TEXT NOT NULL DEFAULT 'Bronze',
	readiness_score DOUBLE PRECISION NOT NULL DEFAULT 0,
	last_daily_date DATE,
	updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS arena_xp_log (
	id          BIGSERIAL PRIMARY KEY,
	student_id  TEXT NOT NULL,
	amount      INT NOT NULL,
	source      TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_xp_log_student ON arena_xp_log (student_id);

CREATE TABLE IF NOT EXISTS arena_achievements (
	student_id  TEXT NOT NULL,
	code        TEXT NOT NULL,
	title       TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	icon        TEXT NOT NULL DEFAULT '',
	unlocked_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (student_id, code)
);

CREATE TABLE IF NOT EXISTS arena_ai_notes (
	id              BIGSERIAL PRIMARY KEY,
	student_id      TEXT NOT NULL,
	attempt_id      TEXT NOT NULL,
	topic_tag       TEXT NOT NULL,
	mistake_summary TEXT NOT NULL,
	quick_fix       TEXT NOT NULL,
	memory_trick    TEXT NOT NULL,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_ai_notes_attempt ON arena_ai_notes (attempt_id);

CREATE TABLE IF NOT EXISTS arena_revision_plans (
	student_id         TEXT NOT NULL,
	attempt_id         TEXT NOT NULL,
	exam               TEXT NOT NULL,
	subject            TEXT NOT NULL,
	mistake_summary    TEXT NOT NULL,
	revision_notes     TEXT NOT NULL,
	practice_questions JSONB NOT NULL DEFAULT '[]',
	topic_suggestions  JSONB NOT NULL DEFAULT '[]',
	readiness_before   DOUBLE PRECISION NOT NULL DEFAULT 0,
	created_at         TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (student_id, attempt_id)
);

CREATE TABLE IF NOT EXISTS enrollments (
	class_id   TEXT NOT NULL,
	student_id TEXT NOT NULL,
	PRIMARY KEY (class_id, student_id)
);

CREATE TABLE IF NOT EXISTS class_quizzes (
	id       TEXT PRIMARY KEY,
	class_id TEXT NOT NULL,
	title    TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_class_quizzes ON class_quizzes (class_id);

CREATE TABLE IF NOT EXISTS quiz_submissions (
	id           BIGSERIAL PRIMARY KEY,
	quiz_id      TEXT NOT NULL REFERENCES class_quizzes(id),
	student_id   TEXT NOT NULL,
	score        INT NOT NULL,
	total        INT NOT NULL,
	submitted_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_submissions_student ON quiz_submissions (student_id);

CREATE TABLE IF NOT EXISTS leaderboard_scores (
	student_id      TEXT NOT NULL,
	class_id        TEXT NOT NULL,
	avg_score       DOUBLE PRECISION NOT NULL,
	quizzes_done    INT NOT NULL,
	total_correct   INT NOT NULL,
	total_questions INT NOT NULL,
	efficiency      DOUBLE PRECISION NOT NULL,
	composite_score DOUBLE PRECISION NOT NULL,
	rank_position   INT NOT NULL,
	updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (student_id, class_id)
);

CREATE TABLE IF NOT EXISTS students (
	id    TEXT PRIMARY KEY,
	name  TEXT NOT NULL DEFAULT '',
	email TEXT NOT NULL DEFAULT ''
);
`

// ApplySchema creates all arena tables if they do not exist.
func (db *DB) ApplySchema(ctx context.Context) error {
	if _, err := db.Pool.Exec(ctx, schemaDDL); err != nil {
		return fmt.Errorf("applying schema: %w", err)
	}
	return nil
}
