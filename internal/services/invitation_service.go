package services

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"lms/internal/models"
	"lms/pkg/config"
	apperrors "lms/pkg/errors"
	"lms/pkg/identity"
	"lms/pkg/logger"
	"lms/pkg/store"

	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// InvitationService 邀请服务
//
// 管理单次使用的邀请令牌，并在兑换时编排账号创建：
// 先消费令牌，再到身份提供方建号，最后写入本地投影。
type InvitationService struct {
	db     *gorm.DB
	tokens store.TokenStore
	idp    identity.Client
	log    *logrus.Logger

	frontendURL     string
	defaultTTLHours int
}

// NewInvitationService 创建邀请服务
func NewInvitationService(db *gorm.DB, tokens store.TokenStore, idp identity.Client) *InvitationService {
	cfg := config.GetConfig()
	return &InvitationService{
		db:              db,
		tokens:          tokens,
		idp:             idp,
		log:             logger.GetLogger(),
		frontendURL:     cfg.Invite.FrontendURL,
		defaultTTLHours: cfg.Invite.DefaultTTLHours,
	}
}

// InvitationView 管理端邀请视图
type InvitationView struct {
	Token      string    `json:"token"`
	Email      string    `json:"email"`
	Role       string    `json:"role"`
	Used       bool      `json:"used"`
	Expired    bool      `json:"expired"`
	CreatedAt  time.Time `json:"created_at"`
	ExpiresAt  time.Time `json:"expires_at"`
	InviteLink string    `json:"invite_link"`
}

// Generate 签发邀请令牌
//
// 同一邮箱允许存在多个有效邀请，每个都可独立兑换一次。
func (s *InvitationService) Generate(email, role string, ttlHours int) (*store.InvitationToken, error) {
	if email == "" {
		return nil, apperrors.BadRequest("邮箱不能为空")
	}

	if role == "" {
		role = identity.RoleStudent
	}
	if !identity.ValidRole(role) {
		return nil, apperrors.BadRequest("角色不合法，必须是 student、educator 或 admin")
	}

	if ttlHours <= 0 {
		ttlHours = s.defaultTTLHours
	}

	token, err := generateToken()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	invitation := &store.InvitationToken{
		Token:     token,
		Email:     email,
		Role:      role,
		Used:      false,
		CreatedAt: now,
		ExpiresAt: now.Add(time.Duration(ttlHours) * time.Hour),
	}

	if err := s.tokens.Put(invitation); err != nil {
		s.log.Errorf("写入邀请令牌失败: %v", err)
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"email": email,
		"role":  role,
	}).Info("邀请令牌已签发")

	return invitation, nil
}

// InviteLink 拼接邀请链接
func (s *InvitationService) InviteLink(token string) string {
	return s.frontendURL + "/accept-invite/" + token
}

// Verify 校验邀请令牌（只读，不改状态）
func (s *InvitationService) Verify(token string) (*store.InvitationToken, error) {
	invitation, err := s.tokens.Get(token)
	if err != nil {
		return nil, translateTokenError(err)
	}

	if invitation.Used {
		return nil, apperrors.Conflict("该邀请已被使用")
	}
	if invitation.Expired() {
		return nil, apperrors.Expired("该邀请已过期")
	}

	return invitation, nil
}

// Accept 兑换邀请并创建账号
//
// 副作用顺序固定：先消费令牌，再到身份提供方建号，最后写本地投影。
// 提供方报邮箱已存在时令牌不回退，需要管理员重新签发。
func (s *InvitationService) Accept(token, password, firstName, lastName string) (string, error) {
	invitation, err := s.tokens.Consume(token)
	if err != nil {
		return "", translateTokenError(err)
	}

	if password == "" || firstName == "" {
		return "", apperrors.BadRequest("密码和名字不能为空")
	}

	account, err := s.createAccount(invitation.Email, password, firstName, lastName, invitation.Role)
	if err != nil {
		return "", err
	}

	s.log.WithFields(logrus.Fields{
		"account_id": account.ID,
		"email":      invitation.Email,
		"role":       invitation.Role,
	}).Info("邀请兑换成功，账号已创建")

	return account.ID, nil
}

// DirectCreate 管理员直接创建账号（不经过邀请）
func (s *InvitationService) DirectCreate(email, password, firstName, lastName, role string) (*identity.Account, error) {
	if email == "" || password == "" || firstName == "" {
		return nil, apperrors.BadRequest("邮箱、密码和名字不能为空")
	}

	if role == "" {
		role = identity.RoleStudent
	}
	if !identity.ValidRole(role) {
		return nil, apperrors.BadRequest("角色不合法，必须是 student、educator 或 admin")
	}

	account, err := s.createAccount(email, password, firstName, lastName, role)
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"account_id": account.ID,
		"email":      email,
		"role":       role,
	}).Info("管理员直接创建账号成功")

	return account, nil
}

// createAccount 提供方建号并写本地投影
//
// 提供方是必须先成功的权威步骤，本地投影随后落库。
func (s *InvitationService) createAccount(email, password, firstName, lastName, role string) (*identity.Account, error) {
	account, err := s.idp.CreateAccount(identity.CreateAccountParams{
		Email:     email,
		Password:  password,
		FirstName: firstName,
		LastName:  lastName,
		Role:      role,
	})
	if err != nil {
		if errors.Is(err, identity.ErrEmailTaken) {
			return nil, apperrors.Conflict("该邮箱已有账号")
		}
		s.log.Errorf("身份提供方创建账号失败: %v", err)
		return nil, apperrors.Upstream("身份提供方创建账号失败")
	}

	projection := &models.Account{
		ID:          account.ID,
		Email:       email,
		Name:        account.DisplayName(),
		AvatarURL:   account.AvatarURL,
		Enrollments: datatypes.JSON([]byte("[]")),
	}

	if err := s.db.Create(projection).Error; err != nil {
		s.log.Errorf("写入本地账号投影失败: %v", err)
		return nil, err
	}

	return account, nil
}

// List 管理端邀请列表，expired按当前时间派生
func (s *InvitationService) List() ([]*InvitationView, error) {
	tokens, err := s.tokens.List()
	if err != nil {
		return nil, err
	}

	views := make([]*InvitationView, 0, len(tokens))
	for _, t := range tokens {
		views = append(views, &InvitationView{
			Token:      t.Token,
			Email:      t.Email,
			Role:       t.Role,
			Used:       t.Used,
			Expired:    t.Expired(),
			CreatedAt:  t.CreatedAt,
			ExpiresAt:  t.ExpiresAt,
			InviteLink: s.InviteLink(t.Token),
		})
	}
	return views, nil
}

// Revoke 撤销邀请（不论是否已消费或过期）
func (s *InvitationService) Revoke(token string) error {
	if err := s.tokens.Delete(token); err != nil {
		return translateTokenError(err)
	}

	s.log.WithField("token", token).Info("邀请已撤销")
	return nil
}

// CleanupExpired 清理已过期的邀请令牌
//
// 只做存储卫生，正确性不依赖该清理：过期在读取和消费时惰性判断。
func (s *InvitationService) CleanupExpired() (int, error) {
	tokens, err := s.tokens.List()
	if err != nil {
		return 0, err
	}

	cleaned := 0
	for _, t := range tokens {
		if !t.Expired() {
			continue
		}
		if err := s.tokens.Delete(t.Token); err != nil {
			continue
		}
		cleaned++
	}
	return cleaned, nil
}

// generateToken 生成256位随机令牌
func generateToken() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

// translateTokenError 存储层哨兵错误转业务错误
func translateTokenError(err error) error {
	switch {
	case errors.Is(err, store.ErrTokenNotFound):
		return apperrors.NotFound("邀请不存在")
	case errors.Is(err, store.ErrTokenUsed):
		return apperrors.Conflict("该邀请已被使用")
	case errors.Is(err, store.ErrTokenExpired):
		return apperrors.Expired("该邀请已过期")
	}
	return err
}
