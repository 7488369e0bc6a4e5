// Package testutil 测试共用的工作簿构造工具，仅供 _test.go 使用
package testutil

import (
	"fmt"
	"testing"

	"github.com/xuri/excelize/v2"
)

// Headers 完整的导入表头（15 个必需列 + 邮编）
func Headers() []string {
	return []string{
		"Número de ROL de Avalúo",
		"Dirección",
		"Destino del bien raíz",
		"Registrado a Nombre de",
		"RUT registrado",
		"SUPERFICIE TERRENO",
		"SUPERFICIE CONSTRUCCIONES",
		"AVALÚO TERRENO PROPIO",
		"AVALÚO CONSTRUCCIONES",
		"AVALÚO TOTAL",
		"AVALÚO EXENTO DE IMPUESTO",
		"AVALÚO AFECTO A IMPUESTO",
		"Latitud",
		"Longitud",
		"Google Maps",
		"Código Postal",
	}
}

// HeadersWithout 去掉指定列后的表头
func HeadersWithout(drop ...string) []string {
	skip := map[string]bool{}
	for _, d := range drop {
		skip[d] = true
	}
	var out []string
	for _, h := range Headers() {
		if !skip[h] {
			out = append(out, h)
		}
	}
	return out
}

// Row 按 Headers() 顺序构造一行有效数据
func Row(rol, address string, lat, lng float64) []interface{} {
	return []interface{}{
		rol,
		address,
		"HABITACIONAL",
		"Juan Pérez",
		"12.345.678-9",
		250.5,
		120,
		30000000,
		45000000,
		1, // 错误的总估价，导入时应被重算
		0,
		75000000,
		lat,
		lng,
		fmt.Sprintf("https://www.google.com/maps?q=%g,%g", lat, lng),
		"1000000",
	}
}

// ValidRows 生成 n 行互不重复的有效数据
func ValidRows(n int) [][]interface{} {
	rows := make([][]interface{}, 0, n)
	for i := 0; i < n; i++ {
		rows = append(rows, Row(
			fmt.Sprintf("%03d-%03d", 100+i, i+1),
			fmt.Sprintf("Calle %d", i+1),
			-18.47+float64(i)*0.001,
			-70.31-float64(i)*0.001,
		))
	}
	return rows
}

// BuildWorkbook 生成仅含一个 Sheet 的 xlsx 文件内容
func BuildWorkbook(t testing.TB, headers []string, rows [][]interface{}) []byte {
	t.Helper()

	f := excelize.NewFile()
	t.Cleanup(func() { _ = f.Close() })

	sheet := f.GetSheetName(0)
	header := make([]interface{}, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		t.Fatalf("SetSheetRow header failed: %v", err)
	}

	for i, row := range rows {
		r := row
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(sheet, cell, &r); err != nil {
			t.Fatalf("SetSheetRow %d failed: %v", i+2, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("WriteToBuffer failed: %v", err)
	}
	return buf.Bytes()
}
