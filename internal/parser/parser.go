// Package parser turns student record files into typed datasets.
package parser

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mhan0505/student-management-system/internal/dataset"
	"github.com/mhan0505/student-management-system/internal/student"
)

// Options tunes how a file is read.
type Options struct {
	// Schema types the columns; nil means student.Schema().
	Schema dataset.Schema
	// SheetName selects a workbook sheet; it wins over SheetIndex.
	SheetName string
	// SheetIndex is 1-based; 0 means the first sheet.
	SheetIndex int
	// Delimiter for CSV. If 0, it is derived from the extension.
	Delimiter rune
}

// Reader loads one file format.
type Reader interface {
	CanRead(path string) bool
	Read(path string, opt Options) (*dataset.Dataset, error)
}

var registry []Reader

// Register adds a reader implementation to the registry.
func Register(r Reader) {
	registry = append(registry, r)
}

// ErrUnsupported indicates no reader handles the file extension.
var ErrUnsupported = errors.New("unsupported file format")

// ReadFile selects a reader based on the file name and returns the typed dataset.
func ReadFile(path string, opt Options) (*dataset.Dataset, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("open %s: %w", filepath.Base(path), err)
	}
	if opt.Schema == nil {
		opt.Schema = student.Schema()
	}
	for _, r := range registry {
		if r.CanRead(path) {
			d, err := r.Read(path, opt)
			if err != nil {
				return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
			}
			return d, nil
		}
	}
	return nil, fmt.Errorf("%s: %w", filepath.Base(path), ErrUnsupported)
}

// Supported reports whether some registered reader accepts path.
func Supported(path string) bool {
	for _, r := range registry {
		if r.CanRead(path) {
			return true
		}
	}
	return false
}

func hasExt(path string, exts ...string) bool {
	name := strings.ToLower(path)
	for _, e := range exts {
		if strings.HasSuffix(name, e) {
			return true
		}
	}
	return false
}

func init() {
	Register(csvReader{})
	Register(xlsxReader{})
}
