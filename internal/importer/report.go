package importer

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"rolmap/internal/model"
)

// DefaultMaxDetails 用户消息中默认展示的错误明细条数
const DefaultMaxDetails = 5

// ImportReport 单次导入的完整报告
type ImportReport struct {
	Filename  string                `json:"filename"`
	FileHash  string                `json:"fileHash"`
	Mode      model.ImportMode      `json:"mode"`
	SheetName string                `json:"sheetName"`
	TotalRows int                   `json:"totalRows"`
	Accepted  int                   `json:"accepted"`
	Skipped   []model.SkipEntry     `json:"skipped"`
	Summary   *model.BatchSummary   `json:"summary"`
	Outcomes  []model.ImportOutcome `json:"outcomes"`
	Removed   int                   `json:"removed"`   // 替换模式下丢弃的旧记录数
	Duplicate bool                  `json:"duplicate"` // 相同内容此前已导入过
	LogID     int64                 `json:"logId,omitempty"`
	Duration  time.Duration         `json:"duration"`
}

// Status 导入结果状态
func (r *ImportReport) Status() string {
	if r.Summary == nil {
		return statusFailed
	}
	if r.Summary.ErrorCount() > 0 {
		return statusPartial
	}
	return statusSuccess
}

// mergeOutcomes 合并解析阶段跳过的行与对账结果，按行号排序
func mergeOutcomes(skipped []model.SkipEntry, outcomes []model.ImportOutcome) []model.ImportOutcome {
	out := make([]model.ImportOutcome, 0, len(skipped)+len(outcomes))
	for _, s := range skipped {
		out = append(out, model.ImportOutcome{
			Row:        s.Row,
			Kind:       model.OutcomeSkippedInvalid,
			RollNumber: s.RollNumber,
			Reason:     s.Reason,
		})
	}
	out = append(out, outcomes...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Row < out[j].Row })
	return out
}

// Message 面向用户的结束消息：计数 + 前 maxDetails 条错误明细
func (r *ImportReport) Message(maxDetails int) string {
	if maxDetails <= 0 {
		maxDetails = DefaultMaxDetails
	}
	if r.Summary == nil {
		return "La importación no se completó."
	}

	var b strings.Builder
	if r.Mode == model.ModeReplace {
		fmt.Fprintf(&b, "Se reemplazaron todas las propiedades: %d propiedades cargadas", r.Summary.Created+r.Summary.Updated)
		if r.Removed > 0 {
			fmt.Fprintf(&b, " (%d registros anteriores eliminados)", r.Removed)
		}
		b.WriteString(".")
	} else {
		fmt.Fprintf(&b, "Importación completada: %d propiedades nuevas, %d actualizadas.", r.Summary.Created, r.Summary.Updated)
	}

	details := make([]string, 0, len(r.Skipped)+r.Summary.ErrorCount())
	for _, s := range r.Skipped {
		details = append(details, fmt.Sprintf("Fila %d: %s", s.Row, s.Reason))
	}
	for _, e := range r.Summary.Errors {
		details = append(details, fmt.Sprintf("ROL %s: %s", e.RollNumber, e.Error))
	}
	if len(details) == 0 {
		return b.String()
	}

	fmt.Fprintf(&b, "\n%d filas con errores:", len(details))
	shown := details
	if len(shown) > maxDetails {
		shown = shown[:maxDetails]
	}
	for _, d := range shown {
		b.WriteString("\n- ")
		b.WriteString(d)
	}
	if rest := len(details) - len(shown); rest > 0 {
		fmt.Fprintf(&b, "\n... y %d errores más", rest)
	}
	return b.String()
}
