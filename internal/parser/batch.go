package parser

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"rolmap/internal/model"
)

// Options 批量解析选项
type Options struct {
	ZeroCoordinates ZeroCoordinatePolicy
}

// Parse 从字节流解析工作簿
func Parse(r io.Reader, opts Options) (*Result, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	defer f.Close()
	return ParseWorkbook(f, opts)
}

// ParseBytes 从内存中的文件内容解析
func ParseBytes(data []byte, opts Options) (*Result, error) {
	return Parse(bytes.NewReader(data), opts)
}

// ParseWorkbook 解析工作簿的第一个 Sheet
// 表头缺列、行数不足或没有任何有效记录时返回文件级错误；
// 单行问题只进入跳过日志，不影响后续行。
func ParseWorkbook(f *excelize.File, opts Options) (*Result, error) {
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: el libro no contiene hojas", ErrUnreadable)
	}
	sheetName := sheets[0]

	rows, err := f.GetRows(sheetName, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	if len(rows) < 2 {
		return nil, ErrTooFewRows
	}

	headers := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		headers[i] = NormalizeHeader(h)
	}

	validation := ValidateColumns(headers)
	if !validation.Valid {
		return nil, &MissingColumnsError{Missing: validation.MissingColumns}
	}

	index := NewHeaderIndex(headers)
	validator := Validator{ZeroCoordinates: opts.ZeroCoordinates}

	result := &Result{
		SheetName: sheetName,
		Headers:   headers,
		TotalRows: len(rows) - 1,
		Records:   make([]*model.Property, 0, len(rows)-1),
		Skipped:   []model.SkipEntry{},
	}

	for i := 1; i < len(rows); i++ {
		row := rows[i]
		if isBlankRow(row) {
			continue
		}

		candidate := NormalizeRow(row, index)
		candidate.Row = i + 1

		record, err := validator.Validate(candidate)
		if err != nil {
			result.Skipped = append(result.Skipped, model.SkipEntry{
				Row:        candidate.Row,
				RollNumber: candidate.Property.RollNumber,
				Reason:     err.Error(),
			})
			continue
		}
		result.Records = append(result.Records, record)
		result.Rows = append(result.Rows, candidate.Row)
	}

	if len(result.Records) == 0 {
		return result, ErrNoValidRecords
	}
	return result, nil
}

// IsFileLevel 判断错误是否为文件级错误
func IsFileLevel(err error) bool {
	return errors.Is(err, ErrInvalidFileType) ||
		errors.Is(err, ErrUnreadable) ||
		errors.Is(err, ErrTooFewRows) ||
		errors.Is(err, ErrMissingColumns) ||
		errors.Is(err, ErrNoValidRecords)
}
