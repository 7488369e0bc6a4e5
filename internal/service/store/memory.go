package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"rolmap/internal/model"
)

// FailFunc 故障注入钩子：返回非 nil 时对应操作失败
type FailFunc func(op, rol string) error

// MemoryStore 内存记录存储，按 ROL 维护唯一索引
type MemoryStore struct {
	props  map[string]*model.Property // id -> record
	byRol  map[string]string          // rol -> id
	order  []string                   // 插入顺序
	failOn FailFunc
	mu     sync.RWMutex
}

// NewMemoryStore 创建内存存储
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		props: make(map[string]*model.Property),
		byRol: make(map[string]string),
	}
}

// FailOn 设置故障注入（测试用）
func (s *MemoryStore) FailOn(fn FailFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failOn = fn
}

func (s *MemoryStore) fail(op, rol string) error {
	if s.failOn == nil {
		return nil
	}
	return s.failOn(op, rol)
}

// GetAll 按插入顺序返回全部记录的副本
func (s *MemoryStore) GetAll(ctx context.Context) ([]*model.Property, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.fail("getAll", ""); err != nil {
		return nil, err
	}

	result := make([]*model.Property, 0, len(s.order))
	for _, id := range s.order {
		result = append(result, s.props[id].Clone())
	}
	return result, nil
}

// Get 获取单条记录
func (s *MemoryStore) Get(ctx context.Context, id string) (*model.Property, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.props[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	return p.Clone(), nil
}

// Create 新建记录
func (s *MemoryStore) Create(ctx context.Context, p *model.Property) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fail("create", p.RollNumber); err != nil {
		return "", err
	}
	if _, dup := s.byRol[p.RollNumber]; dup {
		return "", fmt.Errorf("%w: %s", model.ErrDuplicateRollNumber, p.RollNumber)
	}

	rec := p.Clone()
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if _, exists := s.props[rec.ID]; exists {
		return "", fmt.Errorf("duplicate id %s", rec.ID)
	}
	rec.Recompute()

	s.props[rec.ID] = rec
	s.byRol[rec.RollNumber] = rec.ID
	s.order = append(s.order, rec.ID)
	return rec.ID, nil
}

// Update 覆盖记录；ROL 变更时校验唯一性
func (s *MemoryStore) Update(ctx context.Context, id string, p *model.Property) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fail("update", p.RollNumber); err != nil {
		return err
	}

	current, ok := s.props[id]
	if !ok {
		return model.ErrNotFound
	}
	if owner, taken := s.byRol[p.RollNumber]; taken && owner != id {
		return fmt.Errorf("%w: %s", model.ErrDuplicateRollNumber, p.RollNumber)
	}

	rec := p.Clone()
	rec.ID = id
	rec.CreatedAt = current.CreatedAt
	rec.Recompute()

	delete(s.byRol, current.RollNumber)
	s.props[id] = rec
	s.byRol[rec.RollNumber] = id
	return nil
}

// Delete 删除记录
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.props[id]
	if !ok {
		return model.ErrNotFound
	}
	if err := s.fail("delete", current.RollNumber); err != nil {
		return err
	}

	delete(s.props, id)
	delete(s.byRol, current.RollNumber)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// FindByRollNumber 按 ROL 精确查找
func (s *MemoryStore) FindByRollNumber(ctx context.Context, rol string) (*model.Property, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.fail("find", rol); err != nil {
		return nil, err
	}

	id, ok := s.byRol[rol]
	if !ok {
		return nil, nil
	}
	return s.props[id].Clone(), nil
}

// ReplaceAll 以 props 替换全部记录
func (s *MemoryStore) ReplaceAll(ctx context.Context, props []*model.Property) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fail("replaceAll", ""); err != nil {
		return err
	}

	next := make(map[string]*model.Property, len(props))
	byRol := make(map[string]string, len(props))
	order := make([]string, 0, len(props))
	for _, p := range props {
		rec := p.Clone()
		if rec.ID == "" {
			rec.ID = uuid.NewString()
		}
		if _, dup := byRol[rec.RollNumber]; dup {
			return fmt.Errorf("%w: %s", model.ErrDuplicateRollNumber, rec.RollNumber)
		}
		rec.Recompute()
		next[rec.ID] = rec
		byRol[rec.RollNumber] = rec.ID
		order = append(order, rec.ID)
	}

	s.props, s.byRol, s.order = next, byRol, order
	return nil
}

// Clear 清空所有记录
func (s *MemoryStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.props = make(map[string]*model.Property)
	s.byRol = make(map[string]string)
	s.order = nil
	return nil
}

// Count 获取记录数量
func (s *MemoryStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.props), nil
}

// RollNumbers 返回排序后的全部 ROL（测试断言用）
func (s *MemoryStore) RollNumbers() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.byRol))
	for rol := range s.byRol {
		out = append(out, rol)
	}
	sort.Strings(out)
	return out
}
