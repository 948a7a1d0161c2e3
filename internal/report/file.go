package report

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/pkordes/fln-schedule/internal/domain"
)

// SheetName is the worksheet the xlsx sink writes to.
const SheetName = "Schedule"

// FileSink writes a table to the path it is given. The format follows the
// file extension: .xlsx or .csv. The parent folder is created if absent.
type FileSink struct{}

// NewFileSink constructs a FileSink.
func NewFileSink() *FileSink {
	return &FileSink{}
}

// Write encodes table to path, replacing any existing file.
// No cleanup of a partially written file is attempted on error.
func (s *FileSink) Write(ctx context.Context, table domain.ScheduleTable, path string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("report.FileSink.Write: %w", err)
	}

	var write func(domain.ScheduleTable, string) error
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".xlsx":
		write = writeXLSX
	case ".csv":
		write = writeCSV
	default:
		return fmt.Errorf("report.FileSink.Write: unsupported file type %q", ext)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("report.FileSink.Write: create folder: %w", err)
	}
	if err := write(table, path); err != nil {
		return fmt.Errorf("report.FileSink.Write: %w", err)
	}
	return nil
}

func writeCSV(table domain.ScheduleTable, path string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return EncodeCSV(f, table.Rows)
}

// EncodeCSV writes a header row followed by rows to w in column order.
// Absent JSON values are written as empty fields.
func EncodeCSV(w io.Writer, rows []domain.ScheduleRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(domain.Columns()); err != nil {
		return err
	}
	for _, r := range rows {
		if err := cw.Write(rowStrings(r)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeXLSX(table domain.ScheduleTable, path string) (err error) {
	f := excelize.NewFile()
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return err
	}
	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}

	sw, err := f.NewStreamWriter(SheetName)
	if err != nil {
		return err
	}

	cols := domain.Columns()
	header := make([]any, len(cols))
	for i, c := range cols {
		header[i] = excelize.Cell{StyleID: headerStyle, Value: c}
	}
	if err := sw.SetRow("A1", header); err != nil {
		return err
	}

	for i, r := range table.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, rowValues(r)); err != nil {
			return err
		}
	}
	if err := sw.Flush(); err != nil {
		return err
	}
	return f.SaveAs(path)
}
