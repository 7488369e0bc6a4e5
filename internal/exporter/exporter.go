package exporter

import (
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"

	"rolmap/internal/model"
	"rolmap/internal/parser"
)

const (
	// DefaultFilename 默认下载文件名
	DefaultFilename = "propiedades_arica.xlsx"
	// SheetName 导出工作表名
	SheetName = "Propiedades"
)

// Options 导出选项
type Options struct {
	IncludeImage bool                // 追加 Imagen 列
	Progress     func(ProgressEvent) // 可选进度回调
}

// Headers 导出列（导入所需的全部列 + 可选列）
func Headers(opts Options) []string {
	headers := append([]string{}, parser.RequiredColumns...)
	headers = append(headers, parser.ColPostalCode)
	if opts.IncludeImage {
		headers = append(headers, parser.ColImage)
	}
	return headers
}

// MapLink 生成坐标对应的 Google Maps 链接
func MapLink(lat, lng float64) string {
	return "https://www.google.com/maps?q=" +
		strconv.FormatFloat(lat, 'f', -1, 64) + "," +
		strconv.FormatFloat(lng, 'f', -1, 64)
}

// Exporter Excel 导出器
type Exporter struct{}

// NewExporter 创建导出器
func NewExporter() *Exporter {
	return &Exporter{}
}

// Export 导出记录到 Excel；导出文件可直接再次导入
func (e *Exporter) Export(props []*model.Property, opts Options) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	progress := newProgressReporter(opts.Progress)
	progress.report(0, StageHeaders)

	// 设置表头
	headers := Headers(opts)
	header := make([]interface{}, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("write header: %w", err)
	}

	// 设置表头样式
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#E2E8F0"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("create header style: %w", err)
	}
	if err := f.SetRowStyle(SheetName, 1, 1, headerStyle); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("set header style: %w", err)
	}

	// 写入数据
	total := len(props)
	for i, p := range props {
		row := []interface{}{
			p.RollNumber,
			p.Address,
			p.Use,
			p.OwnerName,
			p.OwnerTaxID,
			p.LandArea,
			p.ConstructionArea,
			p.LandValuation,
			p.ConstructionValuation,
			p.LandValuation + p.ConstructionValuation,
			p.ExemptValuation,
			p.TaxableValuation,
			p.Latitude,
			p.Longitude,
			MapLink(p.Latitude, p.Longitude),
			p.PostalCode,
		}
		if opts.IncludeImage {
			row = append(row, p.ImageURL)
		}

		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("write row %d: %w", i+2, err)
		}

		if (i+1)%500 == 0 {
			progress.rows(i+1, total)
		}
	}

	// 设置列宽
	_ = f.SetColWidth(SheetName, "A", "A", 24)
	_ = f.SetColWidth(SheetName, "B", "B", 36)
	_ = f.SetColWidth(SheetName, "C", "E", 22)
	_ = f.SetColWidth(SheetName, "F", "N", 16)
	_ = f.SetColWidth(SheetName, "O", "O", 48)

	progress.report(100, StageDone)
	return f, nil
}

// WriteTo 导出并写入 w
func (e *Exporter) WriteTo(w io.Writer, props []*model.Property, opts Options) error {
	f, err := e.Export(props, opts)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
