package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"rolmap/internal/model"
)

// CacheFileName 记录快照缓存文件名
const CacheFileName = "arica-properties.json"

// Store 应用状态容器
type Store struct {
	state     State
	cachePath string // 为空时不落盘
	mu        sync.RWMutex
}

// NewStore 创建状态容器；cachePath 非空时尝试从快照恢复记录列表
func NewStore(cachePath string) *Store {
	s := &Store{
		state:     State{Properties: []*model.Property{}},
		cachePath: cachePath,
	}
	if cachePath != "" {
		if props, err := loadSnapshot(cachePath); err != nil {
			log.Printf("[state] 忽略无法读取的快照 %s: %v", cachePath, err)
		} else if props != nil {
			s.state.Properties = props
		}
	}
	return s
}

// Dispatch 应用动作并在记录变化后刷新快照
func (s *Store) Dispatch(a Action) State {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = Reduce(s.state, a)

	switch a.Kind {
	case SetProperties, AddProperty, UpdateProperty, DeleteProperty:
		if err := s.writeSnapshot(); err != nil {
			log.Printf("[state] 写入快照失败: %v", err)
		}
	case ClearAll:
		if err := s.removeSnapshot(); err != nil {
			log.Printf("[state] 删除快照失败: %v", err)
		}
	}
	return s.snapshotLocked()
}

// Snapshot 返回当前状态的副本
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// Properties 按条件过滤后的记录副本
func (s *Store) Properties(f model.SearchFilters) []*model.Property {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []*model.Property{}
	for _, p := range s.state.Properties {
		if f.Match(p) {
			out = append(out, p.Clone())
		}
	}
	return out
}

func (s *Store) snapshotLocked() State {
	cp := s.state
	cp.Properties = cloneAll(s.state.Properties)
	cp.Selected = s.state.Selected.Clone()
	if s.state.User != nil {
		u := *s.state.User
		cp.User = &u
	}
	return cp
}

func (s *Store) writeSnapshot() error {
	if s.cachePath == "" {
		return nil
	}
	data, err := json.Marshal(s.state.Properties)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.cachePath), 0755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	tmp := s.cachePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return os.Rename(tmp, s.cachePath)
}

func (s *Store) removeSnapshot() error {
	if s.cachePath == "" {
		return nil
	}
	if err := os.Remove(s.cachePath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func loadSnapshot(path string) ([]*model.Property, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var props []*model.Property
	if err := json.Unmarshal(data, &props); err != nil {
		return nil, err
	}
	if props == nil {
		props = []*model.Property{}
	}
	return props, nil
}
