package store

import (
	"errors"
	"time"
)

// InvitationToken 邀请令牌
type InvitationToken struct {
	Token     string    `json:"token"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	Used      bool      `json:"used"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired 是否已过期（按当前时间实时计算，不落库）
func (t *InvitationToken) Expired() bool {
	return time.Now().After(t.ExpiresAt)
}

// 哨兵错误
var (
	ErrTokenNotFound = errors.New("邀请不存在")
	ErrTokenUsed     = errors.New("邀请已被使用")
	ErrTokenExpired  = errors.New("邀请已过期")
)

// TokenStore 邀请令牌存储接口
//
// Consume 必须是原子的检查并置位操作：同一令牌的并发兑换
// 至多有一个调用成功，其余返回 ErrTokenUsed。
// 过期在读取和消费时惰性判断，不依赖后台清扫。
type TokenStore interface {
	// Put 写入令牌
	Put(token *InvitationToken) error
	// Get 按令牌读取原始记录，缺失时返回 ErrTokenNotFound，不改状态
	Get(token string) (*InvitationToken, error)
	// Consume 原子地校验并标记令牌已使用
	Consume(token string) (*InvitationToken, error)
	// Delete 删除令牌，缺失时返回 ErrTokenNotFound
	Delete(token string) error
	// List 列出全部令牌
	List() ([]*InvitationToken, error)
}
