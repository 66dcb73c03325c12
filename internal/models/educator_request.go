package models

import (
	"time"
)

// EducatorRequest 讲师角色申请
//
// 记录只增不删，保留审批痕迹。同一账号至多存在一条pending申请，
// 由部分唯一索引兜底。
type EducatorRequest struct {
	ID              uint       `json:"id" gorm:"primarykey"`
	AccountID       string     `json:"account_id" gorm:"size:64;not null;index;uniqueIndex:idx_pending_account,where:status = 'pending'"`
	Reason          string     `json:"reason" gorm:"size:500"`
	Status          string     `json:"status" gorm:"size:20;not null;default:'pending';index"`
	RequestedAt     time.Time  `json:"requested_at" gorm:"not null;index"`
	ReviewedAt      *time.Time `json:"reviewed_at,omitempty"`
	ReviewedBy      *string    `json:"reviewed_by,omitempty" gorm:"size:64"`
	RejectionReason string     `json:"rejection_reason,omitempty" gorm:"size:500"`
}

// TableName 表名
func (EducatorRequest) TableName() string {
	return "educator_requests"
}

// 申请状态常量
const (
	RequestStatusPending  = "pending"
	RequestStatusApproved = "approved"
	RequestStatusRejected = "rejected"
)

// IsPending 是否待审批
func (r *EducatorRequest) IsPending() bool {
	return r.Status == RequestStatusPending
}
