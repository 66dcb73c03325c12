package identity

import (
	"errors"
	"strings"
	"time"
)

// 角色常量（角色只存在身份提供方侧，本地不落库）
const (
	RoleStudent  = "student"
	RoleEducator = "educator"
	RoleAdmin    = "admin"
)

// ValidRole 检查角色是否合法
func ValidRole(role string) bool {
	switch role {
	case RoleStudent, RoleEducator, RoleAdmin:
		return true
	}
	return false
}

// 哨兵错误
var (
	ErrNotFound   = errors.New("账号不存在")
	ErrEmailTaken = errors.New("该邮箱已被注册")
)

// Account 身份提供方侧的账号记录
type Account struct {
	ID            string     `json:"id"`
	Email         string     `json:"email"`
	EmailVerified bool       `json:"email_verified"`
	FirstName     string     `json:"first_name"`
	LastName      string     `json:"last_name"`
	AvatarURL     string     `json:"avatar_url"`
	Role          string     `json:"role"`
	LastSignInAt  *time.Time `json:"last_sign_in_at,omitempty"`
}

// DisplayName 拼接显示名
func (a *Account) DisplayName() string {
	name := strings.TrimSpace(a.FirstName + " " + a.LastName)
	if name == "" {
		return "User"
	}
	return name
}

// CreateAccountParams 创建账号参数
type CreateAccountParams struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Role      string
}

// Client 身份提供方客户端接口
//
// 身份提供方是账号和角色的权威数据源，凭证校验和角色存储都在其侧完成，
// 本服务只通过该接口消费能力。
type Client interface {
	// GetAccount 查询账号，不存在时返回 ErrNotFound
	GetAccount(accountID string) (*Account, error)
	// CreateAccount 创建账号，邮箱已注册时返回 ErrEmailTaken
	CreateAccount(params CreateAccountParams) (*Account, error)
	// SetRole 设置账号角色
	SetRole(accountID, role string) error
	// DeleteAccount 删除账号，不存在时返回 ErrNotFound
	DeleteAccount(accountID string) error
}
