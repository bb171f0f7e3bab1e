package leaderboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/examforge/arena/internal/platform/cache"
)

const cacheKeyPrefix = "leaderboard:class:"

// Engine recomputes and serves standings. A cache is optional; without
// one every read hits the store.
type Engine struct {
	store  Store
	cache  *cache.Cache
	ttl    time.Duration
	logger *slog.Logger
	now    func() time.Time
}

// EngineConfig carries Engine dependencies.
type EngineConfig struct {
	Store    Store
	Cache    *cache.Cache
	CacheTTL time.Duration
	Logger   *slog.Logger
}

// NewEngine creates an Engine from cfg.
func NewEngine(cfg EngineConfig) *Engine {
	e := &Engine{
		store:  cfg.Store,
		cache:  cfg.Cache,
		ttl:    cfg.CacheTTL,
		logger: cfg.Logger,
		now:    time.Now,
	}
	if e.store == nil {
		e.store = NewMemoryStore()
	}
	if e.ttl <= 0 {
		e.ttl = 5 * time.Minute
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	return e
}

// RecalculateClass rebuilds a class's standings from its submissions
// and replaces the stored rows in one shot.
func (e *Engine) RecalculateClass(ctx context.Context, classID string) error {
	stats, err := e.store.SubmissionStats(ctx, classID)
	if err != nil {
		return fmt.Errorf("aggregating submissions for class %s: %w", classID, err)
	}
	total, err := e.store.TotalQuizzes(ctx, classID)
	if err != nil {
		return fmt.Errorf("counting quizzes for class %s: %w", classID, err)
	}

	scores := ComputeScores(classID, stats, total, e.now())
	if err := e.store.ReplaceClassScores(ctx, classID, scores); err != nil {
		return fmt.Errorf("replacing scores for class %s: %w", classID, err)
	}

	if e.cache != nil {
		// Cached reads are keyed by limit as well, so drop them all.
		if err := e.cache.InvalidatePrefix(ctx, cacheKeyPrefix+classID+":"); err != nil {
			e.logger.Warn("leaderboard cache invalidation failed", "class_id", classID, "error", err)
		}
	}
	return nil
}

// RecalculateForStudent rebuilds every class the student belongs to.
func (e *Engine) RecalculateForStudent(ctx context.Context, studentID string) error {
	classes, err := e.store.ClassesForStudent(ctx, studentID)
	if err != nil {
		return fmt.Errorf("listing classes for student %s: %w", studentID, err)
	}
	for _, classID := range classes {
		if err := e.RecalculateClass(ctx, classID); err != nil {
			return err
		}
	}
	return nil
}

// GetClassLeaderboard returns the class's top rows up to limit, best
// rank first. A limit of 0 returns the whole class. Students with no
// completed quizzes never appear.
func (e *Engine) GetClassLeaderboard(ctx context.Context, classID string, limit int) ([]Row, error) {
	key := fmt.Sprintf("%s%s:%d", cacheKeyPrefix, classID, limit)
	if e.cache != nil {
		var cached []Row
		err := e.cache.GetJSON(ctx, key, &cached)
		if err == nil {
			return cached, nil
		}
		if !errors.Is(err, cache.ErrMiss) {
			e.logger.Warn("leaderboard cache read failed", "class_id", classID, "error", err)
		}
	}

	scores, err := e.store.ClassScores(ctx, classID, limit)
	if err != nil {
		return nil, fmt.Errorf("loading scores for class %s: %w", classID, err)
	}
	rows, err := e.project(ctx, scores, false)
	if err != nil {
		return nil, err
	}

	if e.cache != nil {
		if err := e.cache.SetJSON(ctx, key, rows, e.ttl); err != nil {
			e.logger.Warn("leaderboard cache write failed", "class_id", classID, "error", err)
		}
	}
	return rows, nil
}

// GetGlobalLeaderboard returns the top rows across all classes,
// re-ranked globally.
func (e *Engine) GetGlobalLeaderboard(ctx context.Context, limit int) ([]Row, error) {
	scores, err := e.store.GlobalScores(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("loading global scores: %w", err)
	}
	return e.project(ctx, scores, true)
}

// project joins scores with student identity and masks emails. With
// rerank set, positions are reassigned from the slice order.
func (e *Engine) project(ctx context.Context, scores []Score, rerank bool) ([]Row, error) {
	rows := make([]Row, 0, len(scores))
	for i, sc := range scores {
		rank := sc.RankPosition
		if rerank {
			rank = i + 1
		}
		row := Row{
			RankPosition:   rank,
			StudentID:      sc.StudentID,
			AvgScore:       sc.AvgScore,
			QuizzesDone:    sc.QuizzesDone,
			Efficiency:     sc.Efficiency,
			CompositeScore: sc.CompositeScore,
			Badge:          Badge(rank),
		}
		student, err := e.store.GetStudent(ctx, sc.StudentID)
		if err != nil {
			return nil, fmt.Errorf("loading student %s: %w", sc.StudentID, err)
		}
		if student != nil {
			row.StudentName = student.Name
			row.MaskedEmail = MaskEmail(student.Email)
		}
		rows = append(rows, row)
	}
	return rows, nil
}
