// Package stats 估价统计（管理面板）
package stats

import (
	"sort"

	"github.com/dustin/go-humanize"

	"rolmap/internal/model"
)

// TopUses 用途分布保留的条数
const TopUses = 8

// UnspecifiedUse 用途为空时的分组名
const UnspecifiedUse = "Sin especificar"

// ValuationRange 估价区间
type ValuationRange struct {
	Label string  `json:"label"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max,omitempty"` // 0 表示无上限
	Count int     `json:"count"`
}

// UseCount 用途计数
type UseCount struct {
	Use   string `json:"use"`
	Count int    `json:"count"`
}

// Summary 统计结果
type Summary struct {
	TotalProperties       int              `json:"totalProperties"`
	TotalValuation        float64          `json:"totalValuation"`
	AverageValuation      float64          `json:"averageValuation"`
	TotalLandArea         float64          `json:"totalLandArea"`
	TotalConstructionArea float64          `json:"totalConstructionArea"`
	Uses                  []UseCount       `json:"uses"`
	Ranges                []ValuationRange `json:"ranges"`

	// 展示用格式化值（智利格式千分位）
	Formatted map[string]string `json:"formatted"`
}

func newRanges() []ValuationRange {
	return []ValuationRange{
		{Label: "Bajo (< $50M)", Min: 0, Max: 50000000},
		{Label: "Medio ($50M - $100M)", Min: 50000000, Max: 100000000},
		{Label: "Alto ($100M - $200M)", Min: 100000000, Max: 200000000},
		{Label: "Premium (> $200M)", Min: 200000000},
	}
}

// Compute 计算统计，纯函数
func Compute(props []*model.Property) Summary {
	s := Summary{
		TotalProperties: len(props),
		Ranges:          newRanges(),
	}

	uses := map[string]int{}
	for _, p := range props {
		total := p.LandValuation + p.ConstructionValuation
		s.TotalValuation += total
		s.TotalLandArea += p.LandArea
		s.TotalConstructionArea += p.ConstructionArea

		use := p.Use
		if use == "" {
			use = UnspecifiedUse
		}
		uses[use]++

		for i := range s.Ranges {
			r := &s.Ranges[i]
			if total >= r.Min && (r.Max == 0 || total < r.Max) {
				r.Count++
				break
			}
		}
	}
	if len(props) > 0 {
		s.AverageValuation = s.TotalValuation / float64(len(props))
	}

	s.Uses = make([]UseCount, 0, len(uses))
	for u, n := range uses {
		s.Uses = append(s.Uses, UseCount{Use: u, Count: n})
	}
	sort.Slice(s.Uses, func(i, j int) bool {
		if s.Uses[i].Count != s.Uses[j].Count {
			return s.Uses[i].Count > s.Uses[j].Count
		}
		return s.Uses[i].Use < s.Uses[j].Use
	})
	if len(s.Uses) > TopUses {
		s.Uses = s.Uses[:TopUses]
	}

	s.Formatted = map[string]string{
		"totalProperties":       FormatCount(s.TotalProperties),
		"totalValuation":        FormatPesos(s.TotalValuation),
		"averageValuation":      FormatPesos(s.AverageValuation),
		"totalLandArea":         FormatArea(s.TotalLandArea),
		"totalConstructionArea": FormatArea(s.TotalConstructionArea),
	}
	return s
}

// FormatPesos 金额：$1.234.568
func FormatPesos(v float64) string {
	if v < 0 {
		return "-$" + humanize.FormatFloat("#.###,", -v)
	}
	return "$" + humanize.FormatFloat("#.###,", v)
}

// FormatArea 面积：1.234,5 m²
func FormatArea(v float64) string {
	return humanize.FormatFloat("#.###,#", v) + " m²"
}

// FormatCount 计数：12.345
func FormatCount(n int) string {
	return humanize.FormatInteger("#.###,", n)
}
