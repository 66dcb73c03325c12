package identity

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// 账号生命周期事件类型
const (
	EventAccountCreated = "user.created"
	EventAccountUpdated = "user.updated"
	EventAccountDeleted = "user.deleted"
)

// ErrVerificationFailed Webhook签名验证失败
var ErrVerificationFailed = errors.New("webhook签名验证失败")

// Event 身份提供方推送的生命周期事件
type Event struct {
	Type string       `json:"type"`
	Data EventAccount `json:"data"`
}

// EventAccount 事件载荷中的账号数据
type EventAccount struct {
	ID             string         `json:"id"`
	FirstName      string         `json:"first_name"`
	LastName       string         `json:"last_name"`
	ImageURL       string         `json:"image_url"`
	EmailAddresses []EventEmail   `json:"email_addresses"`
	PublicMetadata EventRoleField `json:"public_metadata"`
}

// EventEmail 事件载荷中的邮箱项
type EventEmail struct {
	EmailAddress string `json:"email_address"`
}

// EventRoleField 事件载荷中的角色元数据
type EventRoleField struct {
	Role string `json:"role"`
}

// PrimaryEmail 取第一个邮箱
func (d *EventAccount) PrimaryEmail() string {
	if len(d.EmailAddresses) > 0 {
		return d.EmailAddresses[0].EmailAddress
	}
	return ""
}

// DisplayName 拼接显示名
func (d *EventAccount) DisplayName() string {
	name := strings.TrimSpace(d.FirstName + " " + d.LastName)
	if name == "" {
		return "User"
	}
	return name
}

// 允许的消息时间偏差，防止重放过旧的消息
const signatureTolerance = 5 * time.Minute

// WebhookVerifier Webhook签名验证器
//
// 验证提供方推送消息的HMAC-SHA256签名（svix线上格式）：
// 签名内容为 "{消息ID}.{时间戳}.{原始报文}"。
type WebhookVerifier struct {
	secret []byte

	// 便于测试注入时钟
	now func() time.Time
}

// NewWebhookVerifier 创建验证器，secret为提供方下发的 whsec_ 前缀密钥
func NewWebhookVerifier(secret string) (*WebhookVerifier, error) {
	trimmed := strings.TrimPrefix(secret, "whsec_")
	if trimmed == "" {
		return nil, errors.New("webhook密钥不能为空")
	}

	key, err := base64.StdEncoding.DecodeString(trimmed)
	if err != nil {
		return nil, fmt.Errorf("webhook密钥格式错误: %v", err)
	}

	return &WebhookVerifier{
		secret: key,
		now:    time.Now,
	}, nil
}

// Verify 验证签名并解析事件
//
// 签名验证是处理任何事件的前提，验证失败的消息不进入类型分发，
// 也不触碰任何本地状态。
func (v *WebhookVerifier) Verify(payload []byte, headers http.Header) (*Event, error) {
	msgID := headers.Get("svix-id")
	msgTimestamp := headers.Get("svix-timestamp")
	msgSignature := headers.Get("svix-signature")

	if msgID == "" || msgTimestamp == "" || msgSignature == "" {
		return nil, ErrVerificationFailed
	}

	// 检查时间戳偏差
	ts, err := strconv.ParseInt(msgTimestamp, 10, 64)
	if err != nil {
		return nil, ErrVerificationFailed
	}
	sentAt := time.Unix(ts, 0)
	now := v.now()
	if sentAt.Before(now.Add(-signatureTolerance)) || sentAt.After(now.Add(signatureTolerance)) {
		return nil, ErrVerificationFailed
	}

	// 计算期望签名
	mac := hmac.New(sha256.New, v.secret)
	mac.Write([]byte(msgID))
	mac.Write([]byte("."))
	mac.Write([]byte(msgTimestamp))
	mac.Write([]byte("."))
	mac.Write(payload)
	expected := mac.Sum(nil)

	// 签名头为空格分隔的多个 "v1,<base64>" 项
	verified := false
	for _, entry := range strings.Split(msgSignature, " ") {
		parts := strings.SplitN(entry, ",", 2)
		if len(parts) != 2 || parts[0] != "v1" {
			continue
		}
		sig, err := base64.StdEncoding.DecodeString(parts[1])
		if err != nil {
			continue
		}
		if hmac.Equal(sig, expected) {
			verified = true
			break
		}
	}

	if !verified {
		return nil, ErrVerificationFailed
	}

	var event Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, fmt.Errorf("解析事件载荷失败: %v", err)
	}

	return &event, nil
}
