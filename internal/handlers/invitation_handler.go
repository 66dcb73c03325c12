package handlers

import (
	"lms/internal/services"
	"lms/pkg/response"

	"github.com/gin-gonic/gin"
)

// GenerateInvitationRequest 签发邀请请求
type GenerateInvitationRequest struct {
	Email          string `json:"email" binding:"required,email"`
	Role           string `json:"role" binding:"omitempty,role"`
	ExpiresInHours int    `json:"expires_in_hours"`
}

// AcceptInvitationRequest 兑换邀请请求
//
// 字段缺失的校验放在服务层，令牌消费在先的顺序由服务保证。
type AcceptInvitationRequest struct {
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type InvitationHandler struct {
	service *services.InvitationService
}

func NewInvitationHandler(service *services.InvitationService) *InvitationHandler {
	return &InvitationHandler{
		service: service,
	}
}

// Generate 签发邀请（管理员）
func (h *InvitationHandler) Generate(c *gin.Context) {
	var req GenerateInvitationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误")
		return
	}

	invitation, err := h.service.Generate(req.Email, req.Role, req.ExpiresInHours)
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.SuccessWithMessage(c, "邀请已创建", gin.H{
		"invite_link": h.service.InviteLink(invitation.Token),
		"expires_at":  invitation.ExpiresAt,
	})
}

// Verify 校验邀请（公开接口，只读）
func (h *InvitationHandler) Verify(c *gin.Context) {
	token := c.Param("token")

	invitation, err := h.service.Verify(token)
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.Success(c, gin.H{
		"email": invitation.Email,
		"role":  invitation.Role,
	})
}

// Accept 兑换邀请并创建账号（公开接口）
func (h *InvitationHandler) Accept(c *gin.Context) {
	token := c.Param("token")

	var req AcceptInvitationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误")
		return
	}

	accountID, err := h.service.Accept(token, req.Password, req.FirstName, req.LastName)
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.SuccessWithMessage(c, "账号创建成功，现在可以登录", gin.H{
		"account_id": accountID,
	})
}

// List 邀请列表（管理员）
func (h *InvitationHandler) List(c *gin.Context) {
	invitations, err := h.service.List()
	if err != nil {
		response.ServerError(c, "查询邀请列表失败")
		return
	}

	response.Success(c, gin.H{
		"invitations": invitations,
		"count":       len(invitations),
	})
}

// Revoke 撤销邀请（管理员）
func (h *InvitationHandler) Revoke(c *gin.Context) {
	token := c.Param("token")

	if err := h.service.Revoke(token); err != nil {
		response.HandleError(c, err)
		return
	}

	response.SuccessWithMessage(c, "邀请已撤销", nil)
}
