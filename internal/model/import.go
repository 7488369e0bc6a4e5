package model

// OutcomeKind 单行导入结果类型
type OutcomeKind string

const (
	OutcomeCreated        OutcomeKind = "created"
	OutcomeUpdated        OutcomeKind = "updated"
	OutcomeSkippedInvalid OutcomeKind = "skipped_invalid"
	OutcomeFailed         OutcomeKind = "failed" // 存储层失败（对账阶段）
)

// ImportOutcome 每个被处理行的结果
type ImportOutcome struct {
	Row        int         `json:"row"` // 表格中的 1 基行号
	Kind       OutcomeKind `json:"kind"`
	RollNumber string      `json:"rol"`
	Reason     string      `json:"reason,omitempty"`
}

// SkipEntry 解析阶段被跳过的行
type SkipEntry struct {
	Row        int    `json:"row"` // 1 基行号（表头为第 1 行）
	RollNumber string `json:"rol"`
	Reason     string `json:"reason"`
}

// BatchError 对账阶段单条记录失败
type BatchError struct {
	Index      int    `json:"index"` // 批次内 1 基序号
	RollNumber string `json:"rol"`
	Error      string `json:"error"`
}

// BatchSummary 对账汇总
type BatchSummary struct {
	Created int          `json:"created"`
	Updated int          `json:"updated"`
	Errors  []BatchError `json:"errors"`
}

// ErrorCount 失败条数
func (s *BatchSummary) ErrorCount() int {
	return len(s.Errors)
}

// Total created + updated + errors，应等于进入对账阶段的记录数
func (s *BatchSummary) Total() int {
	return s.Created + s.Updated + len(s.Errors)
}

// ImportMode 对账模式
type ImportMode string

const (
	// ModeUpdate 按 ROL 合并：存在则更新，不存在则新建，未出现在文件中的记录保持不变
	ModeUpdate ImportMode = "update"
	// ModeReplace 丢弃全部现有记录并以本批次替换。文件中没有的旧记录将永久丢失。
	ModeReplace ImportMode = "replace"
)

// ParseImportMode 解析模式字符串，未知值返回 false
func ParseImportMode(s string) (ImportMode, bool) {
	switch ImportMode(s) {
	case ModeUpdate, "":
		return ModeUpdate, true
	case ModeReplace:
		return ModeReplace, true
	}
	return "", false
}
