package services

import (
	"errors"
	"time"

	"lms/internal/models"
	apperrors "lms/pkg/errors"
	"lms/pkg/identity"
	"lms/pkg/logger"
	"lms/pkg/pagination"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// AccountService 账号管理服务
//
// 本地只持有资料投影，角色、邮箱验证状态等以身份提供方为准，
// 查询时按需补充。
type AccountService struct {
	db  *gorm.DB
	idp identity.Client
	log *logrus.Logger
}

// NewAccountService 创建账号管理服务
func NewAccountService(db *gorm.DB, idp identity.Client) *AccountService {
	return &AccountService{
		db:  db,
		idp: idp,
		log: logger.GetLogger(),
	}
}

// AccountView 管理端账号视图（本地投影+提供方补充信息）
type AccountView struct {
	models.Account
	Role          string     `json:"role"`
	EmailVerified bool       `json:"email_verified"`
	LastSignInAt  *time.Time `json:"last_sign_in_at,omitempty"`
}

// List 分页查询账号列表
//
// 每条记录尽力向提供方补充角色等信息，失败降级为裸投影。
func (s *AccountService) List(params *pagination.PageParams) ([]*AccountView, int64, error) {
	var total int64
	if err := s.db.Model(&models.Account{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var accounts []models.Account
	if err := s.db.Order("created_at DESC").
		Offset(params.GetOffset()).
		Limit(params.GetLimit()).
		Find(&accounts).Error; err != nil {
		return nil, 0, err
	}

	views := make([]*AccountView, 0, len(accounts))
	for _, account := range accounts {
		view := &AccountView{
			Account: account,
			Role:    identity.RoleStudent,
		}
		if remote, err := s.idp.GetAccount(account.ID); err == nil {
			if remote.Role != "" {
				view.Role = remote.Role
			}
			view.EmailVerified = remote.EmailVerified
			view.LastSignInAt = remote.LastSignInAt
		}
		views = append(views, view)
	}
	return views, total, nil
}

// Get 查询本地账号投影
func (s *AccountService) Get(accountID string) (*models.Account, error) {
	var account models.Account
	if err := s.db.First(&account, "id = ?", accountID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("账号不存在")
		}
		return nil, err
	}
	return &account, nil
}

// Delete 删除账号
//
// 先删提供方（权威侧），成功后再删本地投影；提供方侧已不存在时
// 容忍并继续清理本地。
func (s *AccountService) Delete(accountID string) error {
	if err := s.idp.DeleteAccount(accountID); err != nil {
		if !errors.Is(err, identity.ErrNotFound) {
			s.log.Errorf("身份提供方删除账号失败: %v", err)
			return apperrors.Upstream("身份提供方删除账号失败")
		}
		s.log.WithField("account_id", accountID).Warn("提供方侧账号不存在，仅清理本地投影")
	}

	if err := s.db.Delete(&models.Account{}, "id = ?", accountID).Error; err != nil {
		return err
	}

	s.log.WithField("account_id", accountID).Info("账号已删除")
	return nil
}

// UpdateRole 修改账号角色（只改提供方，本地不存角色）
func (s *AccountService) UpdateRole(accountID, role string) error {
	if !identity.ValidRole(role) {
		return apperrors.BadRequest("角色不合法，必须是 student、educator 或 admin")
	}

	if err := s.idp.SetRole(accountID, role); err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			return apperrors.NotFound("账号不存在")
		}
		s.log.Errorf("更新提供方角色失败: %v", err)
		return apperrors.Upstream("更新身份提供方角色失败")
	}

	s.log.WithFields(logrus.Fields{
		"account_id": accountID,
		"role":       role,
	}).Info("账号角色已更新")

	return nil
}
