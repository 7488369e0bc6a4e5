package parser

// ColumnValidation 表头校验结果
type ColumnValidation struct {
	Valid          bool     `json:"valid"`
	MissingColumns []string `json:"missingColumns"`
}

// ValidateColumns 按列名成员关系校验必需列，与列顺序、多余列无关
func ValidateColumns(headers []string) ColumnValidation {
	present := make(map[string]struct{}, len(headers))
	for _, h := range headers {
		present[NormalizeHeader(h)] = struct{}{}
	}

	missing := []string{}
	for _, col := range RequiredColumns {
		if _, ok := present[col]; !ok {
			missing = append(missing, col)
		}
	}

	return ColumnValidation{
		Valid:          len(missing) == 0,
		MissingColumns: missing,
	}
}

// HeaderIndex 列名 -> 列索引
type HeaderIndex map[string]int

// NewHeaderIndex 由表头行构建索引；重复列名取第一次出现
func NewHeaderIndex(headers []string) HeaderIndex {
	idx := make(HeaderIndex, len(headers))
	for i, h := range headers {
		name := NormalizeHeader(h)
		if name == "" {
			continue
		}
		if _, exists := idx[name]; !exists {
			idx[name] = i
		}
	}
	return idx
}

// Cell 按列名取单元格，列不存在或行过短时返回空串
func (h HeaderIndex) Cell(row []string, column string) string {
	i, ok := h[column]
	if !ok || i >= len(row) {
		return ""
	}
	return row[i]
}
