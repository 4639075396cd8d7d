package excel

import (
	"compress/gzip"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"allday/internal"

	"github.com/xuri/excelize/v2"
)

// File types understood by DataReader
const (
	FileTypeCSV   = "csv"
	FileTypeCSVGz = "csv.gz"
	FileTypeXLSX  = "xlsx"
)

// DataReader reads snapshot tables from CSV, gzipped CSV or Excel files
type DataReader struct {
	filePath string
	fileType string
	logger   *internal.Logger
}

// FileTypeOf picks the reader format from a file name
func FileTypeOf(name string) string {
	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(lower, ".csv.gz"):
		return FileTypeCSVGz
	case filepath.Ext(lower) == ".csv":
		return FileTypeCSV
	default:
		return FileTypeXLSX
	}
}

// NewDataReader creates a reader for a local file
func NewDataReader(filePath string, logger *internal.Logger) *DataReader {
	return &DataReader{
		filePath: filePath,
		fileType: FileTypeOf(filePath),
		logger:   logger.WithComponent("reader"),
	}
}

// ReadData reads the file into a sheet
func (r *DataReader) ReadData() (*ExcelData, error) {
	r.logger.Debug("reading %s file %s", r.fileType, r.filePath)

	if _, err := os.Stat(r.filePath); os.IsNotExist(err) {
		return nil, fmt.Errorf("%s file not found: %s", strings.ToUpper(r.fileType), r.filePath)
	}

	if r.fileType == FileTypeXLSX {
		f, err := excelize.OpenFile(r.filePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open Excel file: %w", err)
		}
		defer f.Close()
		return r.readWorkbook(f)
	}

	file, err := os.Open(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()
	return r.ReadFrom(file)
}

// ReadFrom reads an already opened stream of the reader's file type, e.g.
// an object body fetched from S3
func (r *DataReader) ReadFrom(src io.Reader) (*ExcelData, error) {
	switch r.fileType {
	case FileTypeXLSX:
		f, err := excelize.OpenReader(src)
		if err != nil {
			return nil, fmt.Errorf("failed to open Excel stream: %w", err)
		}
		defer f.Close()
		return r.readWorkbook(f)
	case FileTypeCSVGz:
		gz, err := gzip.NewReader(src)
		if err != nil {
			return nil, fmt.Errorf("failed to open gzip stream: %w", err)
		}
		defer gz.Close()
		return r.readCSV(gz)
	default:
		return r.readCSV(src)
	}
}

// readWorkbook reads the first sheet of a workbook
func (r *DataReader) readWorkbook(f *excelize.File) (*ExcelData, error) {
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("Excel file has no sheets")
	}

	readStart := time.Now()
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", sheets[0], err)
	}
	r.logger.Debug("%s read in %.2fms (%d rows)", sheets[0], float64(time.Since(readStart).Nanoseconds())/1e6, len(rows))

	if len(rows) < 1 {
		return nil, fmt.Errorf("Excel file must have a header row")
	}
	return r.processRows(rows)
}

func (r *DataReader) readCSV(src io.Reader) (*ExcelData, error) {
	reader := csv.NewReader(src)
	reader.FieldsPerRecord = -1

	readStart := time.Now()
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	r.logger.Debug("CSV read in %.2fms (%d rows)", float64(time.Since(readStart).Nanoseconds())/1e6, len(rows))

	if len(rows) < 1 {
		return nil, fmt.Errorf("CSV file must have a header row")
	}
	return r.processRows(rows)
}

// processRows converts raw string rows into ExcelData. A header-only file
// is an empty table, not an error.
func (r *DataReader) processRows(rows [][]string) (*ExcelData, error) {
	headerRow := rows[0]
	headers := make([]string, len(headerRow))
	for i, header := range headerRow {
		headers[i] = strings.TrimSpace(strings.TrimPrefix(header, "\ufeff"))
	}

	dataRows := make([]RawRowData, 0, len(rows)-1)
	for i := 1; i < len(rows); i++ {
		row := rows[i]
		rowData := make(RawRowData, len(headers))
		for j, cell := range row {
			if j < len(headers) {
				rowData[headers[j]] = strings.TrimSpace(cell)
			}
		}
		dataRows = append(dataRows, rowData)
	}

	r.logger.Debug("%s processed (%d columns, %d rows)", strings.ToUpper(r.fileType), len(headers), len(dataRows))

	return &ExcelData{
		Headers: headers,
		Rows:    dataRows,
	}, nil
}

// DetectColumn returns the first candidate header present in the sheet.
// Exports disagree on casing, so the match ignores case.
func DetectColumn(data *ExcelData, candidates ...string) (string, bool) {
	for _, c := range candidates {
		for _, h := range data.Headers {
			if strings.EqualFold(h, c) {
				return h, true
			}
		}
	}
	return "", false
}
