package qbank_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/examforge/arena/internal/qbank"
)

const seedYAML = `exam: JEE
subject: Physics
topics:
  - tag: Mechanics
    questions:
      - text: "A block slides down a frictionless 30° incline. Its acceleration is:"
        option_a: "4.9 m/s²"
        option_b: "9.8 m/s²"
        option_c: "2.45 m/s²"
        option_d: "7.35 m/s²"
        correct: A
        explanation: "a = g sin θ = 9.8 × 0.5"
        estimated_time: 60
      - text: "Centripetal acceleration at 20 m/s on a 50 m circle is:"
        option_a: "8 m/s²"
        option_b: "4 m/s²"
        option_c: "10 m/s²"
        option_d: "2 m/s²"
        correct: A
        explanation: "a = v²/r"
`

func writeSeedDir(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "jee_physics.yaml"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestSeeder_SeedIfNeeded(t *testing.T) {
	store := qbank.NewMemoryStore()
	seeder, err := qbank.NewSeeder(store, writeSeedDir(t, seedYAML))
	if err != nil {
		t.Fatalf("NewSeeder() error = %v", err)
	}

	if err := seeder.SeedIfNeeded(context.Background(), qbank.ExamJEE, "Physics"); err != nil {
		t.Fatalf("SeedIfNeeded() error = %v", err)
	}

	count, _ := store.CountQuestions(context.Background(), qbank.ExamJEE, "Physics")
	// 2 seed questions × 3 difficulties plus generated fallback coverage.
	if count < 6 {
		t.Errorf("count = %d, want at least 6 seeded questions", count)
	}

	// Seed questions must exist at every difficulty.
	for _, diff := range qbank.DifficultyPool {
		got, err := store.FetchQuestions(context.Background(), qbank.ExamJEE, "Physics",
			qbank.Filter{Topic: "Mechanics", Difficulty: diff}, 10, nil)
		if err != nil {
			t.Fatalf("FetchQuestions() error = %v", err)
		}
		if len(got) == 0 {
			t.Errorf("no Mechanics questions at difficulty %s", diff)
		}
	}
}

func TestSeeder_SkipsWhenAlreadySeeded(t *testing.T) {
	store := qbank.NewMemoryStore()
	seeder, err := qbank.NewSeeder(store, writeSeedDir(t, seedYAML))
	if err != nil {
		t.Fatalf("NewSeeder() error = %v", err)
	}

	if err := seeder.SeedIfNeeded(context.Background(), qbank.ExamJEE, "Physics"); err != nil {
		t.Fatalf("SeedIfNeeded() error = %v", err)
	}
	before, _ := store.CountQuestions(context.Background(), qbank.ExamJEE, "Physics")

	if err := seeder.SeedIfNeeded(context.Background(), qbank.ExamJEE, "Physics"); err != nil {
		t.Fatalf("second SeedIfNeeded() error = %v", err)
	}
	after, _ := store.CountQuestions(context.Background(), qbank.ExamJEE, "Physics")

	if after != before {
		t.Errorf("reseeding grew the bank: %d -> %d", before, after)
	}
}

func TestSeeder_FallbackWithoutSeedFiles(t *testing.T) {
	store := qbank.NewMemoryStore()
	seeder, err := qbank.NewSeeder(store, t.TempDir())
	if err != nil {
		t.Fatalf("NewSeeder() error = %v", err)
	}

	if err := seeder.SeedIfNeeded(context.Background(), qbank.ExamNEET, "Biology"); err != nil {
		t.Fatalf("SeedIfNeeded() error = %v", err)
	}

	count, _ := store.CountQuestions(context.Background(), qbank.ExamNEET, "Biology")
	// 5 fallback topics × 3 difficulties × 3 questions.
	if count != 45 {
		t.Errorf("fallback count = %d, want 45", count)
	}
}

func TestSeeder_IgnoresInvalidYAML(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "broken.yaml"), []byte(":::not yaml"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := qbank.NewSeeder(qbank.NewMemoryStore(), dir); err != nil {
		t.Errorf("NewSeeder() should skip invalid YAML, got error = %v", err)
	}
}
