package services

import (
	"lms/internal/models"
	"lms/pkg/identity"
	"lms/pkg/logger"

	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AccountSyncService 账号同步服务
//
// 把身份提供方推送的生命周期事件落到本地投影。事件按至少一次、
// 无序到达处理：所有分支都幂等，updated早于created到达只记日志跳过。
type AccountSyncService struct {
	db  *gorm.DB
	idp identity.Client
	log *logrus.Logger
}

// NewAccountSyncService 创建账号同步服务
func NewAccountSyncService(db *gorm.DB, idp identity.Client) *AccountSyncService {
	return &AccountSyncService{
		db:  db,
		idp: idp,
		log: logger.GetLogger(),
	}
}

// Apply 应用单个生命周期事件
//
// 调用方必须已完成签名验证，未验证的报文不允许进入这里。
func (s *AccountSyncService) Apply(event *identity.Event) error {
	switch event.Type {
	case identity.EventAccountCreated:
		return s.applyCreated(&event.Data)
	case identity.EventAccountUpdated:
		return s.applyUpdated(&event.Data)
	case identity.EventAccountDeleted:
		return s.applyDeleted(&event.Data)
	default:
		// 未知事件类型接受并忽略，兼容提供方新增的事件
		s.log.WithField("type", event.Type).Info("忽略未知的事件类型")
		return nil
	}
}

func (s *AccountSyncService) applyCreated(data *identity.EventAccount) error {
	var count int64
	if err := s.db.Model(&models.Account{}).Where("id = ?", data.ID).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		// 重复投递，按已处理成功返回
		s.log.WithField("account_id", data.ID).Info("账号投影已存在，跳过创建")
		return nil
	}

	account := &models.Account{
		ID:          data.ID,
		Email:       data.PrimaryEmail(),
		Name:        data.DisplayName(),
		AvatarURL:   data.ImageURL,
		Enrollments: datatypes.JSON([]byte("[]")),
	}

	if err := s.db.Create(account).Error; err != nil {
		s.log.Errorf("创建账号投影失败: %v", err)
		return err
	}

	// 事件未带角色时在提供方侧补默认角色，失败只记日志不阻断
	if data.PublicMetadata.Role == "" {
		if err := s.idp.SetRole(data.ID, identity.RoleStudent); err != nil {
			s.log.WithFields(logrus.Fields{
				"account_id": data.ID,
			}).Warnf("设置默认角色失败: %v", err)
		}
	}

	s.log.WithField("account_id", data.ID).Info("账号投影已创建")
	return nil
}

func (s *AccountSyncService) applyUpdated(data *identity.EventAccount) error {
	result := s.db.Model(&models.Account{}).Where("id = ?", data.ID).
		Updates(map[string]interface{}{
			"email":      data.PrimaryEmail(),
			"name":       data.DisplayName(),
			"avatar_url": data.ImageURL,
		})
	if result.Error != nil {
		s.log.Errorf("更新账号投影失败: %v", result.Error)
		return result.Error
	}

	if result.RowsAffected == 0 {
		// updated可能早于created到达，容忍缺失
		s.log.WithField("account_id", data.ID).Warn("账号投影不存在，跳过更新")
		return nil
	}

	s.log.WithField("account_id", data.ID).Info("账号投影已更新")
	return nil
}

func (s *AccountSyncService) applyDeleted(data *identity.EventAccount) error {
	result := s.db.Delete(&models.Account{}, "id = ?", data.ID)
	if result.Error != nil {
		s.log.Errorf("删除账号投影失败: %v", result.Error)
		return result.Error
	}

	if result.RowsAffected == 0 {
		s.log.WithField("account_id", data.ID).Warn("账号投影不存在，跳过删除")
		return nil
	}

	s.log.WithField("account_id", data.ID).Info("账号投影已删除")
	return nil
}
