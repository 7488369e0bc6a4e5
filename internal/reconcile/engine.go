package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"rolmap/internal/model"
)

// ErrReplaceNotConfirmed 替换模式会删除的记录数超过阈值且未确认
var ErrReplaceNotConfirmed = errors.New("el modo reemplazar eliminará los registros existentes; se requiere confirmación")

// Options 对账选项
type Options struct {
	Mode model.ImportMode

	// 替换模式保护：存储中记录数大于 ReplaceThreshold（>0 时生效）且未确认则拒绝执行
	ReplaceThreshold int
	ConfirmReplace   bool
}

// Result 对账结果
type Result struct {
	Summary  *model.BatchSummary   `json:"summary"`
	Outcomes []model.ImportOutcome `json:"outcomes"`
	Removed  int                   `json:"removed"` // 替换模式下被丢弃的旧记录数
}

// Engine 对账引擎：把一批已校验记录合并到记录存储
type Engine struct {
	store RecordStore
	now   func() time.Time
}

// NewEngine 创建对账引擎
func NewEngine(store RecordStore) *Engine {
	return &Engine{
		store: store,
		now:   time.Now,
	}
}

// Reconcile 按模式执行对账
//
// Update 模式逐条顺序处理，单条失败不影响后续；Replace 模式丢弃全部现有记录，
// 文件中未出现的旧记录会永久丢失。
// rows 为每条记录在源文件中的行号（可为 nil），只用于结果报告。
func (e *Engine) Reconcile(ctx context.Context, batch []*model.Property, rows []int, opts Options) (*Result, error) {
	switch opts.Mode {
	case model.ModeReplace:
		return e.replace(ctx, batch, rows, opts)
	case model.ModeUpdate, "":
		return e.update(ctx, batch, rows)
	default:
		return nil, fmt.Errorf("unknown import mode %q", opts.Mode)
	}
}

// replace 替换模式：不做逐条查找，直接整体替换
func (e *Engine) replace(ctx context.Context, batch []*model.Property, rows []int, opts Options) (*Result, error) {
	existing, err := e.store.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count existing records: %w", err)
	}
	if opts.ReplaceThreshold > 0 && existing > opts.ReplaceThreshold && !opts.ConfirmReplace {
		return nil, fmt.Errorf("%w (%d registros)", ErrReplaceNotConfirmed, existing)
	}

	res := &Result{
		Summary:  &model.BatchSummary{Errors: []model.BatchError{}},
		Outcomes: make([]model.ImportOutcome, 0, len(batch)),
		Removed:  existing,
	}

	// 同一 ROL 在文件中出现多次时保留最后一次，维持自然键唯一
	now := e.now()
	position := make(map[string]int, len(batch))
	installed := make([]*model.Property, 0, len(batch))
	for i, p := range batch {
		rec := p.Clone()
		if rec.ID == "" {
			rec.ID = uuid.NewString()
		}
		rec.Recompute()
		rec.CreatedAt, rec.UpdatedAt = now, now

		kind := model.OutcomeCreated
		if pos, dup := position[rec.RollNumber]; dup {
			rec.ID = installed[pos].ID
			installed[pos] = rec
			kind = model.OutcomeUpdated
			res.Summary.Updated++
		} else {
			position[rec.RollNumber] = len(installed)
			installed = append(installed, rec)
			res.Summary.Created++
		}
		res.Outcomes = append(res.Outcomes, model.ImportOutcome{
			Row:        rowOf(rows, i),
			Kind:       kind,
			RollNumber: rec.RollNumber,
		})
	}

	if err := e.store.ReplaceAll(ctx, installed); err != nil {
		return nil, fmt.Errorf("replace records: %w", err)
	}

	log.Printf("[reconcile] replace: %d records installed, %d previous records discarded", len(installed), existing)
	return res, nil
}

// update 更新模式：按 ROL 查找，存在则更新（保留身份键），否则新建
func (e *Engine) update(ctx context.Context, batch []*model.Property, rows []int) (*Result, error) {
	res := &Result{
		Summary:  &model.BatchSummary{Errors: []model.BatchError{}},
		Outcomes: make([]model.ImportOutcome, 0, len(batch)),
	}

	for i, p := range batch {
		if err := ctx.Err(); err != nil {
			// 剩余记录全部计为失败，保持计数守恒
			for j := i; j < len(batch); j++ {
				e.recordFailure(res, j, rowOf(rows, j), batch[j].RollNumber, err)
			}
			return res, err
		}

		kind, err := e.upsertOne(ctx, p)
		if err != nil {
			e.recordFailure(res, i, rowOf(rows, i), p.RollNumber, err)
			continue
		}

		if kind == model.OutcomeCreated {
			res.Summary.Created++
		} else {
			res.Summary.Updated++
		}
		res.Outcomes = append(res.Outcomes, model.ImportOutcome{
			Row:        rowOf(rows, i),
			Kind:       kind,
			RollNumber: p.RollNumber,
		})
	}

	log.Printf("[reconcile] update: created=%d updated=%d errors=%d",
		res.Summary.Created, res.Summary.Updated, res.Summary.ErrorCount())
	return res, nil
}

// upsertOne 单条记录：查找 -> 更新或新建
func (e *Engine) upsertOne(ctx context.Context, p *model.Property) (model.OutcomeKind, error) {
	existing, err := e.store.FindByRollNumber(ctx, p.RollNumber)
	if err != nil {
		return "", fmt.Errorf("buscar ROL: %w", err)
	}

	now := e.now()
	if existing != nil {
		updated := existing.Clone()
		updated.ApplyFrom(p)
		updated.UpdatedAt = now
		if err := e.store.Update(ctx, existing.ID, updated); err != nil {
			return "", fmt.Errorf("actualizar: %w", err)
		}
		return model.OutcomeUpdated, nil
	}

	rec := p.Clone()
	rec.ID = uuid.NewString()
	rec.Recompute()
	rec.CreatedAt, rec.UpdatedAt = now, now
	if _, err := e.store.Create(ctx, rec); err != nil {
		return "", fmt.Errorf("crear: %w", err)
	}
	return model.OutcomeCreated, nil
}

func (e *Engine) recordFailure(res *Result, i, row int, rol string, err error) {
	res.Summary.Errors = append(res.Summary.Errors, model.BatchError{
		Index:      i + 1,
		RollNumber: rol,
		Error:      err.Error(),
	})
	res.Outcomes = append(res.Outcomes, model.ImportOutcome{
		Row:        row,
		Kind:       model.OutcomeFailed,
		RollNumber: rol,
		Reason:     err.Error(),
	})
}

func rowOf(rows []int, i int) int {
	if i < len(rows) {
		return rows[i]
	}
	return i + 1
}
