package parser

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/mhan0505/student-management-system/internal/dataset"
)

type xlsxReader struct{}

func (xlsxReader) CanRead(path string) bool {
	return hasExt(path, ".xlsx", ".xlsm")
}

// Read loads one sheet. The first non-empty row is the header.
func (xlsxReader) Read(path string, opt Options) (*dataset.Dataset, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheet, err := pickSheet(f.GetSheetList(), opt.SheetName, opt.SheetIndex)
	if err != nil {
		return nil, err
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	for len(rows) > 0 && blank(rows[0]) {
		rows = rows[1:]
	}
	if len(rows) == 0 {
		return dataset.New(), nil
	}
	var body [][]string
	for _, r := range rows[1:] {
		if !blank(r) {
			body = append(body, r)
		}
	}
	return dataset.FromRecords(rows[0], body, opt.Schema)
}

func pickSheet(sheets []string, name string, index int) (string, error) {
	if len(sheets) == 0 {
		return "", fmt.Errorf("workbook has no sheets")
	}
	if name != "" {
		for _, s := range sheets {
			if strings.EqualFold(s, name) {
				return s, nil
			}
		}
		return "", fmt.Errorf("sheet %q not found (have %s)", name, strings.Join(sheets, ", "))
	}
	if index <= 0 {
		return sheets[0], nil
	}
	if index > len(sheets) {
		return "", fmt.Errorf("sheet index %d out of range (1-%d)", index, len(sheets))
	}
	return sheets[index-1], nil
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
