package parser

import (
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// NormalizeHeader 规范化表头：NFC 归一化并去除首尾空白
// 大小写与重音保持原样，列名匹配仍是精确匹配
func NormalizeHeader(name string) string {
	name = strings.TrimSpace(name)
	name = strings.Trim(name, "\ufeff\u00a0")
	return norm.NFC.String(name)
}

// ParseNumber 解析数值单元格，返回值与是否存在
// 支持千分位点（1.234.567）、小数逗号（-18,4783）、货币符号与空白；无法解析视为不存在
func ParseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	s = strings.NewReplacer("$", "", " ", "", "\u00a0", "", "_", "").Replace(s)
	if s == "" {
		return 0, false
	}

	dots := strings.Count(s, ".")
	commas := strings.Count(s, ",")

	switch {
	case dots > 0 && commas > 0:
		// 最后出现的分隔符为小数点
		if strings.LastIndex(s, ",") > strings.LastIndex(s, ".") {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case commas > 1:
		s = strings.ReplaceAll(s, ",", "")
	case commas == 1:
		// 智利格式：单个逗号为小数点
		s = strings.Replace(s, ",", ".", 1)
	case dots > 1:
		s = strings.ReplaceAll(s, ".", "")
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// numberOrZero 显式的默认值步骤：不存在时取 0
func numberOrZero(v float64, ok bool) float64 {
	if !ok {
		return 0
	}
	return v
}

// isBlankRow 整行均为空白
func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
