package middleware

import (
	"strings"

	"lms/pkg/identity"
	"lms/pkg/jwt"
	"lms/pkg/response"

	"github.com/gin-gonic/gin"
)

// AuthMiddleware 权限中间件
//
// 会话令牌由身份提供方签发，这里只校验并取出账号ID；
// 角色检查每次实时查提供方，不做本地缓存，避免管理员改角色后读到旧值。
type AuthMiddleware struct {
	idp      identity.Client
	sessions *jwt.SessionManager
}

func NewAuthMiddleware(idp identity.Client) *AuthMiddleware {
	return &AuthMiddleware{
		idp:      idp,
		sessions: jwt.GetSessionManager(),
	}
}

// RequireLogin 要求携带有效会话令牌
func (m *AuthMiddleware) RequireLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Unauthorized(c, "请先登录")
			c.Abort()
			return
		}

		// 检查Bearer格式
		if !strings.HasPrefix(authHeader, "Bearer ") {
			response.Unauthorized(c, "认证头格式错误")
			c.Abort()
			return
		}

		tokenString := authHeader[7:] // 去掉 "Bearer "

		claims, err := m.sessions.VerifyToken(tokenString)
		if err != nil {
			response.Unauthorized(c, "Token无效或已过期")
			c.Abort()
			return
		}

		c.Set("account_id", claims.AccountID())

		c.Next()
	}
}

// RequireRole 要求调用者当前持有指定角色
//
// 角色按精确匹配比较：admin不会隐式通过educator检查，需要两种
// 角色的路由按顺序叠加各自的守卫。提供方查不到角色（不可达）时
// 返回上游错误，与权限不足明确区分。
func (m *AuthMiddleware) RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		accountID, exists := c.Get("account_id")
		if !exists {
			response.Unauthorized(c, "请先登录")
			c.Abort()
			return
		}

		account, err := m.idp.GetAccount(accountID.(string))
		if err != nil {
			response.UpstreamError(c, "角色查询失败")
			c.Abort()
			return
		}

		if account.Role != role {
			response.Forbidden(c, "权限不足：需要 "+role+" 角色")
			c.Abort()
			return
		}

		c.Next()
	}
}

// GetAccountID 从上下文取当前登录账号ID
func GetAccountID(c *gin.Context) string {
	if accountID, exists := c.Get("account_id"); exists {
		return accountID.(string)
	}
	return ""
}
