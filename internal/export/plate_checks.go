// Package export renders plate checks as spreadsheets.
package export

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/Douglasgls/zona-verde-api/internal/domain"
)

const plateCheckSheet = "Plate checks"

var plateCheckHeaders = []string{
	"Checked At (UTC)",
	"Spot",
	"Reference Plate",
	"Detected Plate",
	"OCR Confidence",
	"Similarity (%)",
	"Matched",
	"Image Path",
}

type PlateCheckExporter struct {
	logger *zap.Logger
}

func NewPlateCheckExporter(logger *zap.Logger) *PlateCheckExporter {
	return &PlateCheckExporter{logger: logger.Named("export")}
}

// XLSX returns a workbook with one row per check, in the given order.
func (e *PlateCheckExporter) XLSX(checks []domain.PlateCheck) ([]byte, error) {
	start := time.Now()

	f := excelize.NewFile()
	defer f.Close()

	// Rename the default sheet instead of adding a second one.
	if err := f.SetSheetName(f.GetSheetName(0), plateCheckSheet); err != nil {
		return nil, fmt.Errorf("xlsx sheet: %w", err)
	}

	for i, h := range plateCheckHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(plateCheckSheet, cell, h)
	}

	for i, c := range checks {
		row := i + 2
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(plateCheckSheet, cell, v)
		}

		write(1, c.CreatedAt.UTC().Format("2006-01-02 15:04:05"))
		write(2, c.SpotCode)
		write(3, c.ReferencePlate.String)
		write(4, c.DetectedPlate.String)
		write(5, c.OCRConfidence)
		write(6, c.SimilarityPercent)
		if c.Matched {
			write(7, "yes")
		} else {
			write(7, "no")
		}
		write(8, c.ImagePath)
	}

	_ = f.SetColWidth(plateCheckSheet, "A", "A", 20)
	_ = f.SetColWidth(plateCheckSheet, "B", "B", 10)
	_ = f.SetColWidth(plateCheckSheet, "C", "D", 16)
	_ = f.SetColWidth(plateCheckSheet, "E", "G", 14)
	_ = f.SetColWidth(plateCheckSheet, "H", "H", 48)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	e.logger.Info("plate checks exported", zap.Int("rows", len(checks)), zap.Duration("took", time.Since(start)))
	return buf.Bytes(), nil
}
