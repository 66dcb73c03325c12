package models

import (
	"time"

	"gorm.io/datatypes"
)

// Account 本地账号投影
//
// 身份提供方是账号标识和角色的权威数据源，这里只缓存资料字段，
// 角色永远不落在本地，按需向提供方查询。
type Account struct {
	ID          string         `json:"id" gorm:"primarykey;size:64"`
	Email       string         `json:"email" gorm:"size:200;index"`
	Name        string         `json:"name" gorm:"size:200"`
	AvatarURL   string         `json:"avatar_url" gorm:"size:500"`
	Enrollments datatypes.JSON `json:"enrollments"` // 已加入的课程ID列表
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// TableName 表名
func (Account) TableName() string {
	return "accounts"
}
