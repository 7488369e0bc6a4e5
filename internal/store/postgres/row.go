package postgres

import (
	"encoding/json"
	"time"

	"rolmap/internal/model"
)

// coordinates 远端 jsonb 坐标 {lat, lng}
type coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// row 远端 properties 表的行结构
//
// title/location 存地址，type 存用途，price 存总估价，area 存土地面积，
// 其余估价字段使用独立列。字段别名只在本文件内转换。
type row struct {
	ID                    string
	RollNumber            string
	Title                 string
	Type                  string
	Price                 float64
	Location              string
	Area                  float64
	Coordinates           []byte
	ImageURL              string
	Features              []byte
	Status                string
	OwnerName             string
	OwnerTaxID            string
	PostalCode            string
	ConstructionArea      float64
	LandValuation         float64
	ConstructionValuation float64
	ExemptValuation       float64
	TaxableValuation      float64
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

const statusActive = "active"

// toRow 领域记录 -> 远端行
func toRow(p *model.Property) (*row, error) {
	coords, err := json.Marshal(coordinates{Lat: p.Latitude, Lng: p.Longitude})
	if err != nil {
		return nil, err
	}
	return &row{
		ID:                    p.ID,
		RollNumber:            p.RollNumber,
		Title:                 p.Address,
		Type:                  p.Use,
		Price:                 p.LandValuation + p.ConstructionValuation,
		Location:              p.Address,
		Area:                  p.LandArea,
		Coordinates:           coords,
		ImageURL:              p.ImageURL,
		Features:              []byte("[]"),
		Status:                statusActive,
		OwnerName:             p.OwnerName,
		OwnerTaxID:            p.OwnerTaxID,
		PostalCode:            p.PostalCode,
		ConstructionArea:      p.ConstructionArea,
		LandValuation:         p.LandValuation,
		ConstructionValuation: p.ConstructionValuation,
		ExemptValuation:       p.ExemptValuation,
		TaxableValuation:      p.TaxableValuation,
		CreatedAt:             p.CreatedAt,
		UpdatedAt:             p.UpdatedAt,
	}, nil
}

// fromRow 远端行 -> 领域记录；坐标缺失时保持 0（由校验层判定）
func fromRow(r *row) (*model.Property, error) {
	var c coordinates
	if len(r.Coordinates) > 0 && string(r.Coordinates) != "null" {
		if err := json.Unmarshal(r.Coordinates, &c); err != nil {
			return nil, err
		}
	}

	address := r.Location
	if address == "" {
		address = r.Title
	}

	p := &model.Property{
		ID:                    r.ID,
		RollNumber:            r.RollNumber,
		Address:               address,
		Use:                   r.Type,
		OwnerName:             r.OwnerName,
		OwnerTaxID:            r.OwnerTaxID,
		PostalCode:            r.PostalCode,
		ImageURL:              r.ImageURL,
		LandArea:              r.Area,
		ConstructionArea:      r.ConstructionArea,
		LandValuation:         r.LandValuation,
		ConstructionValuation: r.ConstructionValuation,
		ExemptValuation:       r.ExemptValuation,
		TaxableValuation:      r.TaxableValuation,
		Latitude:              c.Lat,
		Longitude:             c.Lng,
		CreatedAt:             r.CreatedAt,
		UpdatedAt:             r.UpdatedAt,
	}
	p.Recompute()
	return p, nil
}
