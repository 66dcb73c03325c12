package services

import (
	"errors"
	"fmt"
	"time"

	"lms/internal/models"
	apperrors "lms/pkg/errors"
	"lms/pkg/identity"
	"lms/pkg/logger"
	"lms/pkg/pagination"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// EducatorRequestService 讲师申请服务
//
// 每个账号的申请走 pending → approved / rejected 状态机，
// 两个终态都不可再变，记录保留作审计。
type EducatorRequestService struct {
	db  *gorm.DB
	idp identity.Client
	log *logrus.Logger
}

// NewEducatorRequestService 创建讲师申请服务
func NewEducatorRequestService(db *gorm.DB, idp identity.Client) *EducatorRequestService {
	return &EducatorRequestService{
		db:  db,
		idp: idp,
		log: logger.GetLogger(),
	}
}

// RequestAccountInfo 申请人资料（尽力而为的补充信息）
type RequestAccountInfo struct {
	Name      string `json:"name"`
	Email     string `json:"email,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// EducatorRequestView 申请列表视图
type EducatorRequestView struct {
	models.EducatorRequest
	AccountInfo *RequestAccountInfo `json:"account_info,omitempty"`
}

// Submit 提交讲师申请
func (s *EducatorRequestService) Submit(accountID, reason string) (*models.EducatorRequest, error) {
	// 已有待审批申请则拒绝
	var pendingCount int64
	if err := s.db.Model(&models.EducatorRequest{}).
		Where("account_id = ? AND status = ?", accountID, models.RequestStatusPending).
		Count(&pendingCount).Error; err != nil {
		return nil, err
	}
	if pendingCount > 0 {
		return nil, apperrors.Conflict("已有待审批的讲师申请")
	}

	// 当前角色以提供方为准
	account, err := s.idp.GetAccount(accountID)
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			return nil, apperrors.NotFound("账号不存在")
		}
		s.log.Errorf("查询账号角色失败: %v", err)
		return nil, apperrors.Upstream("查询账号角色失败")
	}
	if account.Role == identity.RoleEducator || account.Role == identity.RoleAdmin {
		return nil, apperrors.Conflict("当前角色已具备讲师权限")
	}

	if reason == "" {
		reason = "申请成为讲师"
	}

	request := &models.EducatorRequest{
		AccountID:   accountID,
		Reason:      reason,
		Status:      models.RequestStatusPending,
		RequestedAt: time.Now(),
	}

	if err := s.db.Create(request).Error; err != nil {
		s.log.Errorf("创建讲师申请失败: %v", err)
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"account_id": accountID,
		"request_id": request.ID,
	}).Info("讲师申请已提交")

	return request, nil
}

// ListByStatus 按状态查询申请列表
//
// 每条记录尽力补充申请人资料，补充失败降级为裸记录，不影响整体返回。
func (s *EducatorRequestService) ListByStatus(status string, params *pagination.PageParams) ([]*EducatorRequestView, int64, error) {
	query := s.db.Model(&models.EducatorRequest{})
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var requests []models.EducatorRequest
	if err := query.Order("requested_at DESC").
		Offset(params.GetOffset()).
		Limit(params.GetLimit()).
		Find(&requests).Error; err != nil {
		return nil, 0, err
	}

	views := make([]*EducatorRequestView, 0, len(requests))
	for _, request := range requests {
		views = append(views, &EducatorRequestView{
			EducatorRequest: request,
			AccountInfo:     s.enrichAccount(request.AccountID),
		})
	}
	return views, total, nil
}

// enrichAccount 补充申请人资料，任何失败都返回已拿到的部分
func (s *EducatorRequestService) enrichAccount(accountID string) *RequestAccountInfo {
	info := &RequestAccountInfo{Name: "Unknown"}

	var local models.Account
	if err := s.db.First(&local, "id = ?", accountID).Error; err == nil {
		info.Name = local.Name
		info.AvatarURL = local.AvatarURL
	}

	if account, err := s.idp.GetAccount(accountID); err == nil {
		info.Email = account.Email
	}

	return info
}

// Approve 审批通过
//
// 在事务内先以 status=pending 为条件抢占记录，再更新提供方角色；
// 提供方更新失败则整体回滚，申请保持pending。并发审批同一申请
// 至多一个成功，其余报告当前状态。
func (s *EducatorRequestService) Approve(requestID uint, reviewerID string) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var request models.EducatorRequest
		if err := tx.First(&request, requestID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.NotFound("申请不存在")
			}
			return err
		}

		now := time.Now()
		result := tx.Model(&models.EducatorRequest{}).
			Where("id = ? AND status = ?", requestID, models.RequestStatusPending).
			Updates(map[string]interface{}{
				"status":      models.RequestStatusApproved,
				"reviewed_at": now,
				"reviewed_by": reviewerID,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			tx.First(&request, requestID)
			return apperrors.Conflict(fmt.Sprintf("申请已处理，当前状态: %s", request.Status))
		}

		// 提供方角色更新是权威副作用，失败则回滚申请状态
		if err := s.idp.SetRole(request.AccountID, identity.RoleEducator); err != nil {
			s.log.Errorf("更新提供方角色失败: %v", err)
			return apperrors.Upstream("更新身份提供方角色失败")
		}

		s.log.WithFields(logrus.Fields{
			"request_id":  requestID,
			"account_id":  request.AccountID,
			"reviewed_by": reviewerID,
		}).Info("讲师申请已通过")

		return nil
	})

	return err
}

// Reject 审批驳回（不触碰提供方）
func (s *EducatorRequestService) Reject(requestID uint, reviewerID, reason string) error {
	if reason == "" {
		reason = "未提供原因"
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		var request models.EducatorRequest
		if err := tx.First(&request, requestID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.NotFound("申请不存在")
			}
			return err
		}

		now := time.Now()
		result := tx.Model(&models.EducatorRequest{}).
			Where("id = ? AND status = ?", requestID, models.RequestStatusPending).
			Updates(map[string]interface{}{
				"status":           models.RequestStatusRejected,
				"reviewed_at":      now,
				"reviewed_by":      reviewerID,
				"rejection_reason": reason,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			tx.First(&request, requestID)
			return apperrors.Conflict(fmt.Sprintf("申请已处理，当前状态: %s", request.Status))
		}

		s.log.WithFields(logrus.Fields{
			"request_id":  requestID,
			"account_id":  request.AccountID,
			"reviewed_by": reviewerID,
		}).Info("讲师申请已驳回")

		return nil
	})
}

// StatusFor 查询账号最新一条申请，没有时返回nil
func (s *EducatorRequestService) StatusFor(accountID string) (*models.EducatorRequest, error) {
	var request models.EducatorRequest
	err := s.db.Where("account_id = ?", accountID).
		Order("requested_at DESC").
		First(&request).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &request, nil
}
