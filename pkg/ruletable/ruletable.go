// Package ruletable reads tabular supplier-rule data from CSV or XLSX files
// into rows keyed by column header.
package ruletable

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Format identifies a table encoding.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// FormatFromName picks the format from a file extension.
func FormatFromName(name string) (Format, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		return FormatCSV, nil
	case ".xlsx":
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("unsupported rule table format %q: must be .csv or .xlsx", filepath.Ext(name))
	}
}

// Load reads the rule table at path.
func Load(path string) ([]map[string]string, error) {
	format, err := FormatFromName(path)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open rule table: %w", err)
	}
	defer func() {
		_ = file.Close()
	}()
	return Read(file, format)
}

// Read parses a rule table. Header cells are trimmed; blank header columns
// and fully blank rows are skipped. Short rows leave missing cells empty.
func Read(r io.Reader, format Format) ([]map[string]string, error) {
	var (
		headers []string
		rows    [][]string
		err     error
	)
	switch format {
	case FormatCSV:
		headers, rows, err = parseCSV(r)
	case FormatXLSX:
		headers, rows, err = parseExcel(r)
	default:
		return nil, fmt.Errorf("unsupported rule table format %q", format)
	}
	if err != nil {
		return nil, err
	}
	return toRecords(headers, rows), nil
}

func parseCSV(r io.Reader) ([]string, [][]string, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	all, err := reader.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse CSV: %w", err)
	}
	if len(all) == 0 {
		return nil, nil, fmt.Errorf("rule table has no header row")
	}
	return all[0], all[1:], nil
}

func parseExcel(r io.Reader) ([]string, [][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	sheet := f.GetSheetName(0)
	all, err := f.GetRows(sheet)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	if len(all) == 0 {
		return nil, nil, fmt.Errorf("rule table has no header row")
	}
	return all[0], all[1:], nil
}

func toRecords(headers []string, rows [][]string) []map[string]string {
	trimmed := make([]string, len(headers))
	for i, h := range headers {
		trimmed[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}

	records := make([]map[string]string, 0, len(rows))
	for _, row := range rows {
		record := make(map[string]string, len(trimmed))
		blank := true
		for i, header := range trimmed {
			if header == "" {
				continue
			}
			value := ""
			if i < len(row) {
				value = strings.TrimSpace(row[i])
			}
			if value != "" {
				blank = false
			}
			record[header] = value
		}
		if !blank {
			records = append(records, record)
		}
	}
	return records
}
