package model

// Role 用户角色
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleReadOnly Role = "readonly"
)

// User 当前会话用户（由外部认证层提供）
type User struct {
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

// CanModify 是否允许写操作
func (u *User) CanModify() bool {
	return u != nil && u.Role == RoleAdmin
}

// CanView 是否允许查看
func (u *User) CanView() bool {
	return u != nil && (u.Role == RoleAdmin || u.Role == RoleReadOnly)
}
