package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"rolmap/internal/model"
	"rolmap/internal/state"
)

// 外部认证层通过请求头传入当前用户
const (
	HeaderUserEmail = "X-User-Email"
	HeaderUserRole  = "X-User-Role"

	userKey = "rolmap.user"
)

// authenticate 读取当前用户；未登录时不设置
func (h *Handler) authenticate(c *gin.Context) {
	email := strings.TrimSpace(c.GetHeader(HeaderUserEmail))
	if email == "" {
		c.Next()
		return
	}

	role := model.RoleReadOnly
	if model.Role(strings.ToLower(c.GetHeader(HeaderUserRole))) == model.RoleAdmin || h.cfg.IsAdminEmail(email) {
		role = model.RoleAdmin
	}
	c.Set(userKey, &model.User{Email: email, Role: role})
	c.Next()
}

func currentUser(c *gin.Context) *model.User {
	v, ok := c.Get(userKey)
	if !ok {
		return nil
	}
	u, _ := v.(*model.User)
	return u
}

func requireViewer(c *gin.Context) {
	if !currentUser(c).CanView() {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "debe iniciar sesión"})
		return
	}
	c.Next()
}

func requireAdmin(c *gin.Context) {
	u := currentUser(c)
	if u == nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "debe iniciar sesión"})
		return
	}
	if !u.CanModify() {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "se requieren permisos de administrador"})
		return
	}
	c.Next()
}

// GetSession 返回当前用户并记入应用状态
// GET /api/me
func (h *Handler) GetSession(c *gin.Context) {
	u := currentUser(c)
	h.state.Dispatch(state.Action{Kind: state.SetUser, User: u})
	c.JSON(http.StatusOK, u)
}
