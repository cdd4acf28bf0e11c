package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

const sheetName = "SalesOrders"

// writeXLSX renders the table on one sheet, highlighting flagged cells.
func writeXLSX(w io.Writer, t Table) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	index, err := f.GetSheetIndex(sheetName)
	if err != nil {
		return err
	}
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}
	reviewStyle, err := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#FFF2CC"}},
	})
	if err != nil {
		return fmt.Errorf("review style: %w", err)
	}

	if err := setRow(f, 1, t.Header); err != nil {
		return err
	}
	first, _ := excelize.CoordinatesToCellName(1, 1)
	last, _ := excelize.CoordinatesToCellName(len(t.Header), 1)
	_ = f.SetCellStyle(sheetName, first, last, headerStyle)

	for i, r := range t.Rows {
		rowNum := i + 2
		if err := setRow(f, rowNum, r.Cells); err != nil {
			return err
		}
		for col, flagged := range r.Flagged {
			if !flagged {
				continue
			}
			cell, _ := excelize.CoordinatesToCellName(col+1, rowNum)
			_ = f.SetCellStyle(sheetName, cell, cell, reviewStyle)
		}
	}

	for col, name := range t.Header {
		letter, _ := excelize.ColumnNumberToName(col + 1)
		_ = f.SetColWidth(sheetName, letter, letter, columnWidth(name))
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return fmt.Errorf("xlsx write: %w", err)
	}
	_, err = buf.WriteTo(w)
	return err
}

// setRow writes values as text so amounts keep their exact decimal form.
func setRow(f *excelize.File, row int, values []string) error {
	cell, _ := excelize.CoordinatesToCellName(1, row)
	vals := make([]interface{}, len(values))
	for i, v := range values {
		vals[i] = v
	}
	if err := f.SetSheetRow(sheetName, cell, &vals); err != nil {
		return fmt.Errorf("row %d: %w", row, err)
	}
	return nil
}

func columnWidth(name string) float64 {
	switch name {
	case "description", "customer_address", "vendor_address", "ship_to_address", "comments", "source_file", "review_fields":
		return 40
	case "customer_name", "vendor_name", "ship_to_name":
		return 28
	}
	return 14
}
