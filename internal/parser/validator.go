package parser

import (
	"fmt"
	"strings"

	"rolmap/internal/model"
)

// ZeroCoordinatePolicy 坐标恰为 0 时的处理策略
type ZeroCoordinatePolicy string

const (
	// ZeroIsMissing 0 视为“未提供”并拒绝（市政模板中 0 表示空白，默认）
	ZeroIsMissing ZeroCoordinatePolicy = "missing"
	// ZeroIsValid 0 是合法坐标（赤道/本初子午线）
	ZeroIsValid ZeroCoordinatePolicy = "valid"
)

// ParseZeroCoordinatePolicy 解析配置值，空串取默认
func ParseZeroCoordinatePolicy(s string) (ZeroCoordinatePolicy, error) {
	switch ZeroCoordinatePolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", ZeroIsMissing:
		return ZeroIsMissing, nil
	case ZeroIsValid:
		return ZeroIsValid, nil
	}
	return "", fmt.Errorf("unknown zero coordinate policy %q", s)
}

// RejectError 记录被拒绝的原因
type RejectError struct {
	Field  string
	Reason string
}

func (e *RejectError) Error() string {
	return e.Reason
}

// Validator 记录级业务校验
type Validator struct {
	ZeroCoordinates ZeroCoordinatePolicy
}

// Validate 校验候选记录：ROL、地址必填，经纬度必填且在范围内，测量值非负
func (v Validator) Validate(c *Candidate) (*model.Property, error) {
	p := c.Property
	if p.RollNumber == "" {
		return nil, &RejectError{Field: ColRollNumber, Reason: "ROL faltante"}
	}
	if p.Address == "" {
		return nil, &RejectError{Field: ColAddress, Reason: "dirección faltante"}
	}
	if err := v.checkCoordinate(ColLatitude, "latitud", p.Latitude, c.LatitudeSet, 90); err != nil {
		return nil, err
	}
	if err := v.checkCoordinate(ColLongitude, "longitud", p.Longitude, c.LongitudeSet, 180); err != nil {
		return nil, err
	}
	if len(c.negative) > 0 {
		return nil, &RejectError{
			Field:  c.negative[0],
			Reason: fmt.Sprintf("valor negativo en %s", strings.Join(c.negative, ", ")),
		}
	}

	p.Recompute()
	return p, nil
}

func (v Validator) checkCoordinate(field, label string, value float64, present bool, limit float64) error {
	if !present {
		return &RejectError{Field: field, Reason: fmt.Sprintf("coordenadas inválidas: %s ausente", label)}
	}
	if value == 0 && v.ZeroCoordinates != ZeroIsValid {
		return &RejectError{Field: field, Reason: fmt.Sprintf("coordenadas inválidas: %s igual a 0", label)}
	}
	if value < -limit || value > limit {
		return &RejectError{
			Field:  field,
			Reason: fmt.Sprintf("coordenadas inválidas: %s %g fuera de rango [-%g, %g]", label, value, limit, limit),
		}
	}
	return nil
}

// ValidateProperty 对表单提交的完整记录做同样的校验
// latSet/lngSet 表示经纬度是否实际提供，未提供时按缺失处理（与零值策略无关）
func (v Validator) ValidateProperty(p *model.Property, latSet, lngSet bool) error {
	c := &Candidate{Property: p, LatitudeSet: latSet, LongitudeSet: lngSet}
	measures := []struct {
		col string
		val float64
	}{
		{ColLandArea, p.LandArea},
		{ColConstructionArea, p.ConstructionArea},
		{ColLandValuation, p.LandValuation},
		{ColConstructionValuation, p.ConstructionValuation},
		{ColExemptValuation, p.ExemptValuation},
		{ColTaxableValuation, p.TaxableValuation},
	}
	for _, m := range measures {
		if m.val < 0 {
			c.negative = append(c.negative, m.col)
		}
	}
	_, err := v.Validate(c)
	return err
}
