package leaderboard_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/examforge/arena/internal/leaderboard"
)

func TestExportClassXLSX(t *testing.T) {
	store := newPopulatedStore()
	engine := leaderboard.NewEngine(leaderboard.EngineConfig{Store: store})
	ctx := context.Background()

	if err := engine.RecalculateClass(ctx, "class-1"); err != nil {
		t.Fatalf("RecalculateClass() error = %v", err)
	}

	data, err := engine.ExportClassXLSX(ctx, "class-1")
	if err != nil {
		t.Fatalf("ExportClassXLSX() error = %v", err)
	}
	if len(data) == 0 {
		t.Fatal("empty workbook")
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("OpenReader() error = %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows("Leaderboard")
	if err != nil {
		t.Fatalf("GetRows() error = %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("got %d sheet rows, want header plus 2", len(rows))
	}
	if rows[0][0] != "Rank" || rows[0][1] != "Student" {
		t.Errorf("header = %v, want Rank, Student, ...", rows[0])
	}
	if rows[1][1] != "Asha" {
		t.Errorf("first data row student = %q, want Asha", rows[1][1])
	}
	if rows[1][2] != "a***@school.edu" {
		t.Errorf("exported email = %q, want masked", rows[1][2])
	}
}
