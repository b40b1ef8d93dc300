package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jonboulle/clockwork"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// ── export module errors ──

var (
	ErrExportNoRuns       = errors.New("no run reports to export")
	ErrExportGenerateFail = errors.New("failed to generate Excel file")
)

// ExportService exports run history as .xlsx
type ExportService interface {
	// ExportRuns returns the workbook and a suggested file name.
	ExportRuns(ctx context.Context, pipeline string, limit int) (*bytes.Buffer, string, error)
}

type exportService struct {
	reporter RunReporter
	clock    clockwork.Clock
	logger   *zap.Logger
}

// NewExportService creates an ExportService.
func NewExportService(reporter RunReporter, clock clockwork.Clock, logger *zap.Logger) ExportService {
	return &exportService{reporter: reporter, clock: clock, logger: logger}
}

// runColumns counter columns in sheet order; keys match the RunCounts JSON names
var runColumns = []string{
	"years_archived", "years_activated", "semesters_archived", "semesters_activated",
	"orgs_reset", "councils_reset", "snapshots_purged", "notifications_cleaned",
	"reminders_checked", "reminders_sent", "reminders_skipped_duplicate",
	"reminders_skipped_compliant", "reminders_failed", "emails_sent", "emails_failed",
}

// ═══════════════════════════════════════════════════════════
// ExportRuns
// ═══════════════════════════════════════════════════════════
//
// One sheet "Runs": run id, pipeline, status, start, finish, one column per counter,
// then errors joined by newlines.

func (s *exportService) ExportRuns(ctx context.Context, pipeline string, limit int) (*bytes.Buffer, string, error) {
	if limit <= 0 {
		limit = 200
	}
	runs, err := s.reporter.Recent(ctx, pipeline, limit)
	if err != nil {
		s.logger.Error("load run history failed", zap.Error(err))
		return nil, "", err
	}
	if len(runs) == 0 {
		return nil, "", ErrExportNoRuns
	}

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Runs"
	idx, _ := f.NewSheet(sheetName)
	f.SetActiveSheet(idx)
	_ = f.DeleteSheet("Sheet1")

	headers := append([]string{"Run ID", "Pipeline", "Status", "Started", "Finished"}, runColumns...)
	headers = append(headers, "Errors")

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"1F6F3F"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	failedStyle, _ := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"F8D7DA"}, Pattern: 1},
	})

	for col, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		_ = f.SetCellValue(sheetName, cell, h)
	}
	lastCol, _ := excelize.ColumnNumberToName(len(headers))
	_ = f.SetCellStyle(sheetName, "A1", lastCol+"1", headerStyle)

	for i, run := range runs {
		row := i + 2
		values := []any{run.RunID, run.Pipeline, run.Status, run.StartedAt, run.FinishedAt}
		counts := countsMap(run.Counts)
		for _, c := range runColumns {
			values = append(values, counts[c])
		}
		values = append(values, strings.Join(run.Errors, "\n"))

		cell, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetSheetRow(sheetName, cell, &values); err != nil {
			s.logger.Error("write export row failed", zap.Error(err))
			return nil, "", ErrExportGenerateFail
		}
		if run.Status == "failed" {
			_ = f.SetCellStyle(sheetName, fmt.Sprintf("A%d", row), fmt.Sprintf("%s%d", lastCol, row), failedStyle)
		}
	}

	_ = f.SetColWidth(sheetName, "A", "A", 38)
	_ = f.SetColWidth(sheetName, "B", "E", 22)
	_ = f.SetPanes(sheetName, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})

	buf, err := f.WriteToBuffer()
	if err != nil {
		s.logger.Error("write workbook failed", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	name := "all"
	if pipeline != "" {
		name = pipeline
	}
	filename := fmt.Sprintf("saoms-runs-%s-%s.xlsx", name, s.clock.Now().UTC().Format("20060102-150405"))
	return buf, filename, nil
}
