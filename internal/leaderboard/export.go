package leaderboard

import (
	"bytes"
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const exportSheet = "Leaderboard"

var exportHeaders = []string{
	"Rank", "Student", "Email", "Avg Score %", "Quizzes Done",
	"Efficiency %", "Composite Score",
}

// ExportClassXLSX renders a class's standings as a spreadsheet for
// teachers. Emails stay masked in the export too.
func (e *Engine) ExportClassXLSX(ctx context.Context, classID string) ([]byte, error) {
	rows, err := e.GetClassLeaderboard(ctx, classID, 0)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet, err := f.NewSheet(exportSheet)
	if err != nil {
		return nil, fmt.Errorf("creating sheet: %w", err)
	}
	f.SetActiveSheet(sheet)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("removing default sheet: %w", err)
	}

	for col, h := range exportHeaders {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, fmt.Errorf("header cell: %w", err)
		}
		if err := f.SetCellValue(exportSheet, cell, h); err != nil {
			return nil, fmt.Errorf("writing header %q: %w", h, err)
		}
	}

	printer := message.NewPrinter(language.English)
	for i, row := range rows {
		values := []any{
			row.RankPosition,
			row.StudentName,
			row.MaskedEmail,
			printer.Sprintf("%.1f", row.AvgScore),
			row.QuizzesDone,
			printer.Sprintf("%.1f", row.Efficiency),
			printer.Sprintf("%.2f", row.CompositeScore),
		}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				return nil, fmt.Errorf("data cell: %w", err)
			}
			if err := f.SetCellValue(exportSheet, cell, v); err != nil {
				return nil, fmt.Errorf("writing row %d: %w", i+1, err)
			}
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("encoding workbook: %w", err)
	}
	return buf.Bytes(), nil
}
