package parser

import (
	"strings"

	"github.com/google/uuid"

	"rolmap/internal/model"
)

// newID 身份键生成器（测试可替换）
var newID = uuid.NewString

// Candidate 规范化后、校验前的候选记录
type Candidate struct {
	Row      int // 1 基行号
	Property *model.Property

	// 经纬度是否在输入中出现（区分“缺失”与“为 0”）
	LatitudeSet  bool
	LongitudeSet bool

	// 负数测量值所在列
	negative []string
}

// NormalizeRow 将一行原始单元格转换为统一口径记录
// 字段按列名定位；字符串缺省为空串，数值解析失败或缺失取 0。不会失败。
func NormalizeRow(row []string, index HeaderIndex) *Candidate {
	str := func(col string) string {
		return strings.TrimSpace(index.Cell(row, col))
	}

	c := &Candidate{}
	num := func(col string) float64 {
		v, ok := ParseNumber(index.Cell(row, col))
		if ok && v < 0 {
			c.negative = append(c.negative, col)
		}
		return numberOrZero(v, ok)
	}

	lat, latOK := ParseNumber(index.Cell(row, ColLatitude))
	lng, lngOK := ParseNumber(index.Cell(row, ColLongitude))

	p := &model.Property{
		ID:                    newID(),
		RollNumber:            str(ColRollNumber),
		Address:               str(ColAddress),
		Use:                   str(ColUse),
		OwnerName:             str(ColOwnerName),
		OwnerTaxID:            str(ColOwnerTaxID),
		PostalCode:            str(ColPostalCode),
		ImageURL:              str(ColImage),
		LandArea:              num(ColLandArea),
		ConstructionArea:      num(ColConstructionArea),
		LandValuation:         num(ColLandValuation),
		ConstructionValuation: num(ColConstructionValuation),
		ExemptValuation:       num(ColExemptValuation),
		TaxableValuation:      num(ColTaxableValuation),
		Latitude:              numberOrZero(lat, latOK),
		Longitude:             numberOrZero(lng, lngOK),
	}
	// AVALÚO TOTAL 列不参与：总估价始终由土地+建筑重算
	p.Recompute()

	c.Property = p
	c.LatitudeSet = latOK
	c.LongitudeSet = lngOK
	return c
}
