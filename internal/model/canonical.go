package model

import (
	"strings"
	"time"
)

// Property 统一口径的不动产估价记录（解析、对账、导出共用）
type Property struct {
	ID         string `json:"id"`         // 系统生成的身份键，创建后不再变化
	RollNumber string `json:"rollNumber"` // 估价 ROL 号（自然键）

	Address    string `json:"address"`
	Use        string `json:"use"` // 不动产用途分类
	OwnerName  string `json:"ownerName"`
	OwnerTaxID string `json:"ownerTaxId"` // RUT
	PostalCode string `json:"postalCode,omitempty"`
	ImageURL   string `json:"imageUrl,omitempty"` // 外链或 data URI

	LandArea         float64 `json:"landArea"`
	ConstructionArea float64 `json:"constructionArea"`

	LandValuation         float64 `json:"landValuation"`
	ConstructionValuation float64 `json:"constructionValuation"`
	TotalValuation        float64 `json:"totalValuation"` // 派生值，见 Recompute
	ExemptValuation       float64 `json:"exemptValuation"`
	TaxableValuation      float64 `json:"taxableValuation"`

	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Recompute 重算派生字段：总估价 = 土地估价 + 建筑估价
func (p *Property) Recompute() {
	p.TotalValuation = p.LandValuation + p.ConstructionValuation
}

// Clone 返回记录的浅拷贝（所有字段均为值类型）
func (p *Property) Clone() *Property {
	if p == nil {
		return nil
	}
	cp := *p
	return &cp
}

// ApplyFrom 用 src 的可写字段覆盖当前记录，保留身份键与创建时间
func (p *Property) ApplyFrom(src *Property) {
	p.RollNumber = src.RollNumber
	p.Address = src.Address
	p.Use = src.Use
	p.OwnerName = src.OwnerName
	p.OwnerTaxID = src.OwnerTaxID
	p.PostalCode = src.PostalCode
	if src.ImageURL != "" {
		p.ImageURL = src.ImageURL
	}
	p.LandArea = src.LandArea
	p.ConstructionArea = src.ConstructionArea
	p.LandValuation = src.LandValuation
	p.ConstructionValuation = src.ConstructionValuation
	p.ExemptValuation = src.ExemptValuation
	p.TaxableValuation = src.TaxableValuation
	p.Latitude = src.Latitude
	p.Longitude = src.Longitude
	p.Recompute()
}

// SearchFilters 列表/检索过滤条件
type SearchFilters struct {
	RollNumber   string   `json:"rol,omitempty"`       // 子串匹配
	Address      string   `json:"direccion,omitempty"` // 不区分大小写子串匹配
	Use          string   `json:"use,omitempty"`       // 精确匹配
	MinValuation *float64 `json:"avaluoMin,omitempty"`
	MaxValuation *float64 `json:"avaluoMax,omitempty"`
}

// Empty 是否未设置任何条件
func (f SearchFilters) Empty() bool {
	return f.RollNumber == "" && f.Address == "" && f.Use == "" &&
		f.MinValuation == nil && f.MaxValuation == nil
}

// Match 判断记录是否满足全部条件
func (f SearchFilters) Match(p *Property) bool {
	if f.RollNumber != "" && !strings.Contains(p.RollNumber, f.RollNumber) {
		return false
	}
	if f.Address != "" && !strings.Contains(strings.ToLower(p.Address), strings.ToLower(f.Address)) {
		return false
	}
	if f.Use != "" && p.Use != f.Use {
		return false
	}
	if f.MinValuation != nil && p.TotalValuation < *f.MinValuation {
		return false
	}
	if f.MaxValuation != nil && p.TotalValuation > *f.MaxValuation {
		return false
	}
	return true
}
