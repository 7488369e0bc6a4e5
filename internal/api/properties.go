package api

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"rolmap/internal/model"
	"rolmap/internal/parser"
	"rolmap/internal/state"
	"rolmap/internal/store"
)

// SearchLimit 搜索栏最多返回的条数
const SearchLimit = 10

type listPropertiesResponse struct {
	Items    []*model.Property `json:"items"`
	Total    int               `json:"total"`
	Page     int               `json:"page"`
	PageSize int               `json:"pageSize"`
}

// PropertyInput 表单提交的记录；PATCH 时只覆盖非空字段
type PropertyInput struct {
	RollNumber            *string  `json:"rollNumber"`
	Address               *string  `json:"address"`
	Use                   *string  `json:"use"`
	OwnerName             *string  `json:"ownerName"`
	OwnerTaxID            *string  `json:"ownerTaxId"`
	PostalCode            *string  `json:"postalCode"`
	ImageURL              *string  `json:"imageUrl"`
	LandArea              *float64 `json:"landArea"`
	ConstructionArea      *float64 `json:"constructionArea"`
	LandValuation         *float64 `json:"landValuation"`
	ConstructionValuation *float64 `json:"constructionValuation"`
	ExemptValuation       *float64 `json:"exemptValuation"`
	TaxableValuation      *float64 `json:"taxableValuation"`
	Latitude              *float64 `json:"latitude"`
	Longitude             *float64 `json:"longitude"`
}

func (in PropertyInput) applyTo(p *model.Property) {
	setString := func(dst *string, v *string) {
		if v != nil {
			*dst = strings.TrimSpace(*v)
		}
	}
	setFloat := func(dst *float64, v *float64) {
		if v != nil {
			*dst = *v
		}
	}
	setString(&p.RollNumber, in.RollNumber)
	setString(&p.Address, in.Address)
	setString(&p.Use, in.Use)
	setString(&p.OwnerName, in.OwnerName)
	setString(&p.OwnerTaxID, in.OwnerTaxID)
	setString(&p.PostalCode, in.PostalCode)
	setString(&p.ImageURL, in.ImageURL)
	setFloat(&p.LandArea, in.LandArea)
	setFloat(&p.ConstructionArea, in.ConstructionArea)
	setFloat(&p.LandValuation, in.LandValuation)
	setFloat(&p.ConstructionValuation, in.ConstructionValuation)
	setFloat(&p.ExemptValuation, in.ExemptValuation)
	setFloat(&p.TaxableValuation, in.TaxableValuation)
	setFloat(&p.Latitude, in.Latitude)
	setFloat(&p.Longitude, in.Longitude)
	p.Recompute()
}

// validate 表单校验：ROL、地址、所有人必填，其余沿用导入校验规则
func (h *Handler) validate(p *model.Property, latSet, lngSet bool) error {
	if p.OwnerName == "" {
		return &parser.RejectError{Field: parser.ColOwnerName, Reason: "propietario faltante"}
	}
	return h.validator.ValidateProperty(p, latSet, lngSet)
}

// ListProperties 分页查询记录
// GET /api/properties
func (h *Handler) ListProperties(c *gin.Context) {
	filters, err := filtersFromQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	keyword := strings.ToLower(strings.TrimSpace(c.Query("keyword")))

	page := parseIntWithDefault(c.Query("page"), 1)
	pageSize := parseIntWithDefault(c.Query("pageSize"), 100)
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 100
	}
	if pageSize > 1000 {
		pageSize = 1000
	}

	// SQLite 后端且无关键字时直接在数据库分页
	if searcher, ok := h.records.(Searcher); ok && keyword == "" {
		items, total, err := searcher.Search(c.Request.Context(), store.QueryOptions{
			Filters: filters,
			Limit:   pageSize,
			Offset:  (page - 1) * pageSize,
		})
		if err != nil {
			h.respondStoreError(c, err)
			return
		}
		c.JSON(http.StatusOK, listPropertiesResponse{Items: items, Total: total, Page: page, PageSize: pageSize})
		return
	}

	items := h.state.Properties(filters)
	if keyword != "" {
		kept := items[:0]
		for _, p := range items {
			if strings.Contains(strings.ToLower(p.RollNumber), keyword) ||
				strings.Contains(strings.ToLower(p.Address), keyword) ||
				strings.Contains(strings.ToLower(p.OwnerName), keyword) {
				kept = append(kept, p)
			}
		}
		items = kept
	}

	total := len(items)
	start := (page - 1) * pageSize
	if start > total {
		start = total
	}
	end := start + pageSize
	if end > total {
		end = total
	}

	c.JSON(http.StatusOK, listPropertiesResponse{
		Items:    items[start:end],
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	})
}

// SearchProperties 搜索栏：按地址或 ROL 子串查找，最多 SearchLimit 条
// GET /api/properties/search?q=&by=direccion|rol
func (h *Handler) SearchProperties(c *gin.Context) {
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		c.JSON(http.StatusOK, gin.H{"items": []*model.Property{}})
		return
	}

	var filters model.SearchFilters
	switch c.DefaultQuery("by", "direccion") {
	case "direccion":
		filters.Address = q
	case "rol":
		filters.RollNumber = q
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "criterio de búsqueda inválido"})
		return
	}

	items := h.state.Properties(filters)
	if len(items) > SearchLimit {
		items = items[:SearchLimit]
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// GetProperty 获取记录详情
// GET /api/properties/:id
func (h *Handler) GetProperty(c *gin.Context) {
	p, err := h.records.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// CreateProperty 表单新建记录
// POST /api/properties
func (h *Handler) CreateProperty(c *gin.Context) {
	var in PropertyInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "datos del formulario inválidos"})
		return
	}

	p := &model.Property{}
	in.applyTo(p)
	if err := h.validate(p, in.Latitude != nil, in.Longitude != nil); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	p.ID = uuid.NewString()

	ctx := c.Request.Context()
	id, err := h.records.Create(ctx, p)
	if err != nil {
		h.respondStoreError(c, err)
		return
	}
	created, err := h.records.Get(ctx, id)
	if err != nil {
		h.respondStoreError(c, err)
		return
	}
	h.state.Dispatch(state.Action{Kind: state.AddProperty, Property: created})
	c.JSON(http.StatusCreated, created)
}

// UpdateProperty 编辑记录
// PATCH /api/properties/:id
func (h *Handler) UpdateProperty(c *gin.Context) {
	var in PropertyInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "datos del formulario inválidos"})
		return
	}

	ctx := c.Request.Context()
	id := c.Param("id")
	p, err := h.records.Get(ctx, id)
	if err != nil {
		h.respondStoreError(c, err)
		return
	}
	// 已存储的记录必然带有坐标
	in.applyTo(p)
	if err := h.validate(p, true, true); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	p.UpdatedAt = time.Now()

	if err := h.records.Update(ctx, id, p); err != nil {
		h.respondStoreError(c, err)
		return
	}
	updated, err := h.records.Get(ctx, id)
	if err != nil {
		h.respondStoreError(c, err)
		return
	}
	h.state.Dispatch(state.Action{Kind: state.UpdateProperty, Property: updated})
	c.JSON(http.StatusOK, updated)
}

// DeleteProperty 删除记录
// DELETE /api/properties/:id
func (h *Handler) DeleteProperty(c *gin.Context) {
	id := c.Param("id")
	if err := h.records.Delete(c.Request.Context(), id); err != nil {
		h.respondStoreError(c, err)
		return
	}
	h.state.Dispatch(state.Action{Kind: state.DeleteProperty, ID: id})
	c.Status(http.StatusNoContent)
}

// ClearProperties 清空全部记录与本地缓存
// DELETE /api/properties
func (h *Handler) ClearProperties(c *gin.Context) {
	ctx := c.Request.Context()
	n, err := h.records.Count(ctx)
	if err != nil {
		h.respondStoreError(c, err)
		return
	}
	if err := h.records.Clear(ctx); err != nil {
		h.respondStoreError(c, err)
		return
	}
	h.state.Dispatch(state.Action{Kind: state.ClearAll})
	if h.local != nil {
		if err := h.local.SetConfig(ctx, store.ConfigSelectedProperty, ""); err != nil {
			log.Printf("[api] 清除选中记录失败: %v", err)
		}
	}
	h.metrics.SetStored(0)
	log.Printf("[api] 已清空 %d 条记录", n)
	c.JSON(http.StatusOK, gin.H{"removed": n})
}

// SelectProperty 记录地图上选中的记录
// POST /api/properties/:id/select
func (h *Handler) SelectProperty(c *gin.Context) {
	ctx := c.Request.Context()
	p, err := h.records.Get(ctx, c.Param("id"))
	if err != nil {
		h.respondStoreError(c, err)
		return
	}
	st := h.state.Dispatch(state.Action{Kind: state.SelectProperty, Property: p})
	if h.local != nil {
		if err := h.local.SetConfig(ctx, store.ConfigSelectedProperty, p.ID); err != nil {
			log.Printf("[api] 保存选中记录失败: %v", err)
		}
	}
	c.JSON(http.StatusOK, st.Selected)
}

func (h *Handler) respondStoreError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, model.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": model.ErrNotFound.Error()})
	case errors.Is(err, model.ErrDuplicateRollNumber):
		c.JSON(http.StatusConflict, gin.H{"error": model.ErrDuplicateRollNumber.Error()})
	default:
		log.Printf("[api] %s %s: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "error interno del almacenamiento"})
	}
}

func filtersFromQuery(c *gin.Context) (model.SearchFilters, error) {
	f := model.SearchFilters{
		RollNumber: strings.TrimSpace(c.Query("rol")),
		Address:    strings.TrimSpace(c.Query("direccion")),
		Use:        strings.TrimSpace(c.Query("use")),
	}
	for _, q := range []struct {
		key string
		dst **float64
	}{
		{"minValuation", &f.MinValuation},
		{"maxValuation", &f.MaxValuation},
	} {
		raw := strings.TrimSpace(c.Query(q.key))
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return f, errors.New("filtro de avalúo inválido: " + q.key)
		}
		*q.dst = &v
	}
	return f, nil
}

func parseIntWithDefault(s string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return def
	}
	return n
}
