package services

import (
	"lms/pkg/logger"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// TokenCleanupService 邀请令牌清理调度器
//
// 周期性删除已过期的邀请令牌。纯存储卫生，业务正确性不依赖它：
// 过期判断始终在读取和消费路径上惰性完成。
type TokenCleanupService struct {
	invitations *InvitationService
	cron        *cron.Cron
	log         *logrus.Logger
}

// NewTokenCleanupService 创建令牌清理调度器
func NewTokenCleanupService(invitations *InvitationService) *TokenCleanupService {
	return &TokenCleanupService{
		invitations: invitations,
		cron:        cron.New(),
		log:         logger.GetLogger(),
	}
}

// Start 启动调度器
func (s *TokenCleanupService) Start() error {
	_, err := s.cron.AddFunc("@hourly", func() {
		cleaned, err := s.invitations.CleanupExpired()
		if err != nil {
			s.log.Errorf("清理过期邀请失败: %v", err)
			return
		}
		if cleaned > 0 {
			s.log.Infof("清理过期邀请 %d 条", cleaned)
		}
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	s.log.Info("邀请令牌清理调度器已启动")
	return nil
}

// Stop 停止调度器
func (s *TokenCleanupService) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
	s.log.Info("邀请令牌清理调度器已停止")
}
