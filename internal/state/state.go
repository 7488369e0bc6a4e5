// Package state 应用状态：记录列表、当前选中、当前用户，只能通过 Dispatch 修改
package state

import (
	"rolmap/internal/model"
)

// ActionKind 动作类型
type ActionKind string

const (
	SetProperties  ActionKind = "SET_PROPERTIES"
	AddProperty    ActionKind = "ADD_PROPERTY"
	UpdateProperty ActionKind = "UPDATE_PROPERTY"
	DeleteProperty ActionKind = "DELETE_PROPERTY"
	SelectProperty ActionKind = "SELECT_PROPERTY"
	SetUser        ActionKind = "SET_USER"
	SetLoading     ActionKind = "SET_LOADING"
	SetError       ActionKind = "SET_ERROR"
	ClearAll       ActionKind = "CLEAR_ALL"
)

// Action 状态变更动作；按 Kind 使用对应字段
type Action struct {
	Kind       ActionKind
	Properties []*model.Property // SetProperties
	Property   *model.Property   // AddProperty / UpdateProperty / SelectProperty(nil 表示取消选中)
	ID         string            // DeleteProperty
	User       *model.User       // SetUser
	Loading    bool              // SetLoading
	Error      string            // SetError
}

// State 应用状态快照
type State struct {
	Properties []*model.Property `json:"properties"`
	Selected   *model.Property   `json:"selected,omitempty"`
	User       *model.User       `json:"user,omitempty"`
	Loading    bool              `json:"loading"`
	Error      string            `json:"error,omitempty"`
}

// Reduce 纯函数：根据动作返回新状态，不修改输入
func Reduce(s State, a Action) State {
	switch a.Kind {
	case SetProperties:
		s.Properties = cloneAll(a.Properties)
		s.Selected = reselect(s.Selected, s.Properties)
		s.Loading = false
	case AddProperty:
		if a.Property == nil {
			return s
		}
		s.Properties = append(cloneAll(s.Properties), a.Property.Clone())
	case UpdateProperty:
		if a.Property == nil {
			return s
		}
		next := cloneAll(s.Properties)
		for i, p := range next {
			if p.ID == a.Property.ID {
				next[i] = a.Property.Clone()
			}
		}
		s.Properties = next
		s.Selected = reselect(s.Selected, next)
	case DeleteProperty:
		next := make([]*model.Property, 0, len(s.Properties))
		for _, p := range s.Properties {
			if p.ID != a.ID {
				next = append(next, p.Clone())
			}
		}
		s.Properties = next
		if s.Selected != nil && s.Selected.ID == a.ID {
			s.Selected = nil
		}
	case SelectProperty:
		s.Selected = a.Property.Clone()
	case SetUser:
		if a.User == nil {
			s.User = nil
		} else {
			u := *a.User
			s.User = &u
		}
	case SetLoading:
		s.Loading = a.Loading
	case SetError:
		s.Error = a.Error
		s.Loading = false
	case ClearAll:
		s.Properties = []*model.Property{}
		s.Selected = nil
	}
	return s
}

func cloneAll(props []*model.Property) []*model.Property {
	out := make([]*model.Property, 0, len(props))
	for _, p := range props {
		out = append(out, p.Clone())
	}
	return out
}

// reselect 选中记录刷新为列表中的最新版本，已删除则清空
func reselect(selected *model.Property, props []*model.Property) *model.Property {
	if selected == nil {
		return nil
	}
	for _, p := range props {
		if p.ID == selected.ID {
			return p.Clone()
		}
	}
	return nil
}
