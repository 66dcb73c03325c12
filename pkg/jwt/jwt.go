package jwt

import (
	"errors"
	"lms/pkg/config"
	"sync"

	"github.com/golang-jwt/jwt/v5"
)

// SessionClaims 会话令牌声明（由身份提供方签发）
type SessionClaims struct {
	SessionID string `json:"sid,omitempty"`
	jwt.RegisteredClaims
}

// AccountID 令牌对应的账号ID
func (c *SessionClaims) AccountID() string {
	return c.Subject
}

// SessionManager 会话令牌校验器
//
// 凭证验证由身份提供方负责，本服务只校验其签发的会话令牌，
// 不签发新令牌。
type SessionManager struct {
	verifyKey string
}

// NewSessionManager 创建会话令牌校验器
func NewSessionManager(verifyKey string) *SessionManager {
	return &SessionManager{
		verifyKey: verifyKey,
	}
}

// VerifyToken 校验会话令牌，返回声明
func (manager *SessionManager) VerifyToken(tokenString string) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(
		tokenString,
		&SessionClaims{},
		func(token *jwt.Token) (interface{}, error) {
			// 验证签名方法
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("意外的签名方法")
			}
			return []byte(manager.verifyKey), nil
		},
	)

	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok {
		return nil, errors.New("无法解析token声明")
	}

	if claims.Subject == "" {
		return nil, errors.New("令牌缺少账号标识")
	}

	return claims, nil
}

// 单例实现
var (
	defaultManager *SessionManager
	once           sync.Once
)

// GetSessionManager 获取全局会话校验器实例
func GetSessionManager() *SessionManager {
	once.Do(func() {
		cfg := config.GetConfig()
		defaultManager = NewSessionManager(cfg.Identity.SessionKey)
	})
	return defaultManager
}
