package reconcile

import (
	"context"

	"rolmap/internal/model"
)

// RecordStore 对账引擎依赖的记录存储（本地 SQLite、内存或远端 Postgres）
// 所有方法都可能失败；Update 模式下任何失败只计入单条记录错误。
type RecordStore interface {
	GetAll(ctx context.Context) ([]*model.Property, error)
	// Create 写入新记录并返回身份键；p.ID 为空时由存储生成
	Create(ctx context.Context, p *model.Property) (string, error)
	// Update 覆盖 id 对应记录的可写字段
	Update(ctx context.Context, id string, p *model.Property) error
	Delete(ctx context.Context, id string) error
	// FindByRollNumber 按自然键精确查找（区分大小写），不存在时返回 nil, nil
	FindByRollNumber(ctx context.Context, rol string) (*model.Property, error)
	// ReplaceAll 原子地以 props 替换全部记录
	ReplaceAll(ctx context.Context, props []*model.Property) error
	// Clear 删除全部记录
	Clear(ctx context.Context) error
	Count(ctx context.Context) (int, error)
}
