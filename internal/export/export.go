// Package export writes datasets and pipeline results to CSV, XLSX and JSON.
package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/mhan0505/student-management-system/internal/analysis"
	"github.com/mhan0505/student-management-system/internal/dataset"
	"github.com/mhan0505/student-management-system/internal/utils"
)

// CSVOptions configures CSV writing behavior.
type CSVOptions struct {
	BOMPrefix bool // Add UTF-8 BOM for Excel compatibility
	Delimiter rune
}

// WriteCSV writes the dataset with a header row and atomically replaces path.
func WriteCSV(path string, d *dataset.Dataset, opt CSVOptions) error {
	var buf bytes.Buffer
	if opt.BOMPrefix {
		buf.Write([]byte{0xEF, 0xBB, 0xBF})
	}
	w := csv.NewWriter(&buf)
	if opt.Delimiter != 0 {
		w.Comma = opt.Delimiter
	}
	for i, rec := range d.Records() {
		if err := w.Write(rec); err != nil {
			return fmt.Errorf("write record %d: %w", i, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return utils.SafeWriteFile(path, buf.Bytes())
}

// Sheet names used by WriteWorkbook.
const (
	SheetEnriched   = "enriched"
	SheetSummary    = "summary"
	SheetTopK       = "top_k"
	SheetImputation = "imputation"
	outlierPrefix   = "outliers_"
)

// OutlierSheet names the sheet holding the outliers of col.
func OutlierSheet(col string) string {
	name := outlierPrefix + col
	if len(name) > 31 {
		name = name[:31]
	}
	return name
}

// WriteWorkbook stores a pipeline result as one workbook with a sheet per
// table.
func WriteWorkbook(path string, res *analysis.Result) error {
	f := excelize.NewFile()
	defer f.Close()

	first := f.GetSheetName(0)
	if err := f.SetSheetName(first, SheetEnriched); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := writeSheet(f, SheetEnriched, res.Enriched); err != nil {
		return err
	}
	sheets := []struct {
		name string
		d    *dataset.Dataset
	}{
		{SheetSummary, res.Summary.Dataset()},
		{SheetTopK, res.TopK},
	}
	for _, s := range res.Outliers {
		sheets = append(sheets, struct {
			name string
			d    *dataset.Dataset
		}{OutlierSheet(s.Bounds.Column), s.Rows})
	}
	sheets = append(sheets, struct {
		name string
		d    *dataset.Dataset
	}{SheetImputation, imputationTable(res.Imputation)})

	for _, s := range sheets {
		if _, err := f.NewSheet(s.name); err != nil {
			return fmt.Errorf("add sheet %s: %w", s.name, err)
		}
		if err := writeSheet(f, s.name, s.d); err != nil {
			return err
		}
	}
	f.SetActiveSheet(0)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return fmt.Errorf("encode workbook: %w", err)
	}
	return utils.SafeWriteFile(path, buf.Bytes())
}

func writeSheet(f *excelize.File, sheet string, d *dataset.Dataset) error {
	if d == nil {
		return nil
	}
	cols := d.Columns()
	for i, name := range cols {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, name); err != nil {
			return fmt.Errorf("sheet %s: %w", sheet, err)
		}
	}
	for row := 0; row < d.Len(); row++ {
		for i, c := range cols {
			v := d.Get(row, c).Interface()
			if v == nil {
				continue
			}
			cell, _ := excelize.CoordinatesToCellName(i+1, row+2)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return fmt.Errorf("sheet %s: %w", sheet, err)
			}
		}
	}
	return nil
}

func imputationTable(rep analysis.ImputationReport) *dataset.Dataset {
	d := dataset.New("column", "group_by", "missing", "filled")
	for _, c := range rep {
		_ = d.Append(dataset.Str(c.Column), dataset.Str(c.GroupBy),
			dataset.Num(float64(c.Missing)), dataset.Num(float64(c.Filled)))
	}
	return d
}

// WriteJSON stores the whole result as indented JSON.
func WriteJSON(path string, res *analysis.Result) error {
	b, err := utils.PrettyJSON(res)
	if err != nil {
		return err
	}
	return utils.SafeWriteFile(path, b)
}

// WriteResult picks the format from the extension of path: .csv writes the
// enriched dataset, .xlsx the full workbook and .json the full result.
func WriteResult(path string, res *analysis.Result) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return WriteCSV(path, res.Enriched, CSVOptions{BOMPrefix: true})
	case ".tsv":
		return WriteCSV(path, res.Enriched, CSVOptions{BOMPrefix: true, Delimiter: '\t'})
	case ".xlsx":
		return WriteWorkbook(path, res)
	case ".json":
		return WriteJSON(path, res)
	}
	return fmt.Errorf("unsupported export format %q (use .csv, .tsv, .xlsx or .json)", filepath.Ext(path))
}
