package coefficients

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// ErrMissingTable 필수 계수 테이블 파일 없음
var ErrMissingTable = errors.New("required coefficient table missing")

// TableError 테이블 로드/파싱 실패 (설정 에러, 치명적)
type TableError struct {
	Table string
	Path  string
	Line  int // 0 = 파일 단위 에러
	Err   error
}

func (e *TableError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s (%s:%d): %v", e.Table, e.Path, e.Line, e.Err)
	}
	return fmt.Sprintf("%s (%s): %v", e.Table, e.Path, e.Err)
}

func (e *TableError) Unwrap() error {
	return e.Err
}

// row 헤더 이름으로 셀에 접근
type row struct {
	line   int
	fields map[string]string
}

func (r row) str(col string) string {
	return strings.TrimSpace(r.fields[col])
}

func (r row) number(col string) (float64, error) {
	v := r.str(col)
	if v == "" {
		return 0, fmt.Errorf("column %q is empty", col)
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("column %q: %w", col, err)
	}
	return f, nil
}

// optFloat returns nil for an absent or empty column
func (r row) optNumber(col string) (*float64, error) {
	if r.str(col) == "" {
		return nil, nil
	}
	f, err := r.number(col)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func (r row) integer(col string) (int, error) {
	v := r.str(col)
	if v == "" {
		return 0, fmt.Errorf("column %q is empty", col)
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("column %q: %w", col, err)
	}
	return n, nil
}

func (r row) optInteger(col string) (*int, error) {
	if r.str(col) == "" {
		return nil, nil
	}
	n, err := r.integer(col)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func (r row) flag(col string) (bool, error) {
	v := strings.ToLower(r.str(col))
	switch v {
	case "", "0", "false", "no", "n":
		return false, nil
	case "1", "true", "yes", "y":
		return true, nil
	}
	return false, fmt.Errorf("column %q: invalid boolean %q", col, v)
}

// readTable reads a header-first CSV file. '#' 로 시작하는 줄은 주석
func readTable(table, path string, required []string) ([]row, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &TableError{Table: table, Path: path, Err: ErrMissingTable}
		}
		return nil, &TableError{Table: table, Path: path, Err: err}
	}
	defer f.Close()

	rows, err := parseTable(f, required)
	if err != nil {
		var te *TableError
		if errors.As(err, &te) {
			te.Table, te.Path = table, path
			return nil, te
		}
		return nil, &TableError{Table: table, Path: path, Err: err}
	}
	return rows, nil
}

func parseTable(r io.Reader, required []string) ([]row, error) {
	cr := csv.NewReader(r)
	cr.Comment = '#'
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty table: header row required")
		}
		return nil, err
	}
	for i := range header {
		header[i] = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff")))
	}

	present := make(map[string]bool, len(header))
	for _, h := range header {
		present[h] = true
	}
	for _, col := range required {
		if !present[col] {
			return nil, fmt.Errorf("missing column %q", col)
		}
	}

	var rows []row
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		line, _ := cr.FieldPos(0)
		if len(rec) > len(header) {
			return nil, &TableError{Line: line, Err: fmt.Errorf("%d fields, header has %d", len(rec), len(header))}
		}

		fields := make(map[string]string, len(header))
		for i, v := range rec {
			fields[header[i]] = v
		}
		rows = append(rows, row{line: line, fields: fields})
	}

	if len(rows) == 0 {
		return nil, errors.New("table has no data rows")
	}
	return rows, nil
}
