// Package export writes the store tables to a spreadsheet, one sheet per
// table, header row first, rows in table-scan order.
package export

import (
	"context"
	"fmt"
	"io"

	"github.com/aretw0/intake/pkg/ports"
	"github.com/xuri/excelize/v2"
)

const defaultSheet = "Sheet1"

// WriteWorkbook dumps every table of store as an xlsx workbook to w.
func WriteWorkbook(ctx context.Context, store ports.ReportStore, w io.Writer) error {
	tables, err := store.Dump(ctx)
	if err != nil {
		return fmt.Errorf("dump tables: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	for i, table := range tables {
		idx, err := f.NewSheet(table.Name)
		if err != nil {
			return fmt.Errorf("sheet %s: %w", table.Name, err)
		}
		if i == 0 {
			f.SetActiveSheet(idx)
		}

		header := table.Header
		if err := f.SetSheetRow(table.Name, "A1", &header); err != nil {
			return fmt.Errorf("sheet %s header: %w", table.Name, err)
		}
		for r, row := range table.Rows {
			cell, err := excelize.CoordinatesToCellName(1, r+2)
			if err != nil {
				return err
			}
			values := row
			if err := f.SetSheetRow(table.Name, cell, &values); err != nil {
				return fmt.Errorf("sheet %s row %d: %w", table.Name, r+1, err)
			}
		}
		if len(header) > 0 {
			last, err := excelize.ColumnNumberToName(len(header))
			if err != nil {
				return err
			}
			if err := f.SetColWidth(table.Name, "A", last, 18); err != nil {
				return err
			}
		}
	}

	if len(tables) > 0 {
		if err := f.DeleteSheet(defaultSheet); err != nil {
			return fmt.Errorf("drop default sheet: %w", err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
