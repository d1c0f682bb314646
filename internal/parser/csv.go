package parser

import (
	"bytes"
	"fmt"
	"os"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"github.com/mhan0505/student-management-system/internal/dataset"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

type csvReader struct{}

func (csvReader) CanRead(path string) bool {
	return hasExt(path, ".csv", ".tsv")
}

// Read loads the file through a string-typed dataframe and applies the schema
// afterwards, so parse failures carry the offending row and column.
func (csvReader) Read(path string, opt Options) (*dataset.Dataset, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	raw = bytes.TrimPrefix(raw, utf8BOM)
	if len(bytes.TrimSpace(raw)) == 0 {
		return dataset.New(), nil
	}
	delim := opt.Delimiter
	if delim == 0 {
		delim = ','
		if hasExt(path, ".tsv") {
			delim = '\t'
		}
	}
	df := dataframe.ReadCSV(bytes.NewReader(raw),
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.WithDelimiter(delim),
	)
	if df.Err != nil {
		return nil, fmt.Errorf("parse csv: %w", df.Err)
	}
	return fromFrame(df, opt.Schema)
}

// fromFrame converts a string dataframe into a typed dataset.
func fromFrame(df dataframe.DataFrame, schema dataset.Schema) (*dataset.Dataset, error) {
	recs := df.Records()
	if len(recs) == 0 {
		return dataset.New(), nil
	}
	return dataset.FromRecords(recs[0], recs[1:], schema)
}
