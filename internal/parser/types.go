package parser

import (
	"errors"
	"fmt"
	"strings"

	"rolmap/internal/model"
)

// 表头列名（导入与导出共用，须与市政模板逐字一致）
const (
	ColRollNumber            = "Número de ROL de Avalúo"
	ColAddress               = "Dirección"
	ColUse                   = "Destino del bien raíz"
	ColOwnerName             = "Registrado a Nombre de"
	ColOwnerTaxID            = "RUT registrado"
	ColLandArea              = "SUPERFICIE TERRENO"
	ColConstructionArea      = "SUPERFICIE CONSTRUCCIONES"
	ColLandValuation         = "AVALÚO TERRENO PROPIO"
	ColConstructionValuation = "AVALÚO CONSTRUCCIONES"
	ColTotalValuation        = "AVALÚO TOTAL"
	ColExemptValuation       = "AVALÚO EXENTO DE IMPUESTO"
	ColTaxableValuation      = "AVALÚO AFECTO A IMPUESTO"
	ColLatitude              = "Latitud"
	ColLongitude             = "Longitud"
	ColMapLink               = "Google Maps"

	// 可选列
	ColPostalCode = "Código Postal"
	ColImage      = "Imagen"
)

// RequiredColumns 必需列（顺序即缺失列报告顺序）
var RequiredColumns = []string{
	ColRollNumber,
	ColAddress,
	ColUse,
	ColOwnerName,
	ColOwnerTaxID,
	ColLandArea,
	ColConstructionArea,
	ColLandValuation,
	ColConstructionValuation,
	ColTotalValuation,
	ColExemptValuation,
	ColTaxableValuation,
	ColLatitude,
	ColLongitude,
	ColMapLink,
}

// 文件级错误：任何一个都会中止整个导入，不写入任何数据
var (
	ErrInvalidFileType = errors.New("Tipo de archivo no válido. Solo se permiten archivos .xlsx y .xls")
	ErrUnreadable      = errors.New("Error al leer el archivo")
	ErrTooFewRows      = errors.New("El archivo Excel debe contener al menos una fila de encabezados y una fila de datos")
	ErrMissingColumns  = errors.New("faltan columnas requeridas")
	ErrNoValidRecords  = errors.New("No se pudieron procesar propiedades válidas del archivo")
)

// MissingColumnsError 表头缺少必需列
type MissingColumnsError struct {
	Missing []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("Faltan las siguientes columnas requeridas: %s", strings.Join(e.Missing, ", "))
}

// Is 使 errors.Is(err, ErrMissingColumns) 成立
func (e *MissingColumnsError) Is(target error) bool {
	return target == ErrMissingColumns
}

// Result 批量解析结果
type Result struct {
	SheetName string            `json:"sheetName"`
	Headers   []string          `json:"headers"`
	TotalRows int               `json:"totalRows"` // 数据行数（不含表头，含空行）
	Records   []*model.Property `json:"-"`
	Rows      []int             `json:"-"` // 与 Records 一一对应的源文件行号
	Skipped   []model.SkipEntry `json:"skipped"`
}

// Accepted 通过校验的记录数
func (r *Result) Accepted() int {
	return len(r.Records)
}
