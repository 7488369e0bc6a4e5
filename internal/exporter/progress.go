package exporter

// 导出阶段
const (
	StageHeaders = "encabezados"
	StageRows    = "datos"
	StageDone    = "completado"
)

// ProgressEvent 导出进度事件
type ProgressEvent struct {
	Percent int    `json:"percent"`
	Stage   string `json:"stage"`
}

// progressReporter 把行进度换算成百分比，百分比不变时不重复回调
type progressReporter struct {
	fn   func(ProgressEvent)
	last int
}

func newProgressReporter(fn func(ProgressEvent)) *progressReporter {
	return &progressReporter{fn: fn, last: -1}
}

func (r *progressReporter) report(percent int, stage string) {
	if r.fn == nil {
		return
	}
	percent = min(max(percent, 0), 100)
	if percent == r.last && stage == StageRows {
		return
	}
	r.last = percent
	r.fn(ProgressEvent{Percent: percent, Stage: stage})
}

// rows 第 done 行（共 total 行）写完
func (r *progressReporter) rows(done, total int) {
	if total <= 0 {
		return
	}
	r.report(done*100/total, StageRows)
}
