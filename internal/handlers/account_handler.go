package handlers

import (
	"lms/internal/middleware"
	"lms/internal/services"
	"lms/pkg/pagination"
	"lms/pkg/response"

	"github.com/gin-gonic/gin"
)

// CreateAccountRequest 管理员直接创建账号请求
type CreateAccountRequest struct {
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=8"`
	FirstName string `json:"first_name" binding:"required"`
	LastName  string `json:"last_name"`
	Role      string `json:"role" binding:"omitempty,role"`
}

// UpdateRoleRequest 修改角色请求
type UpdateRoleRequest struct {
	Role string `json:"role" binding:"required,role"`
}

type AccountHandler struct {
	accounts    *services.AccountService
	invitations *services.InvitationService
}

func NewAccountHandler(accounts *services.AccountService, invitations *services.InvitationService) *AccountHandler {
	return &AccountHandler{
		accounts:    accounts,
		invitations: invitations,
	}
}

// Create 直接创建账号（管理员，不经过邀请流程）
func (h *AccountHandler) Create(c *gin.Context) {
	var req CreateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误: "+err.Error())
		return
	}

	account, err := h.invitations.DirectCreate(req.Email, req.Password, req.FirstName, req.LastName, req.Role)
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.SuccessWithMessage(c, "账号创建成功", gin.H{
		"account_id": account.ID,
		"email":      account.Email,
	})
}

// List 账号列表（管理员，合并身份服务信息）
func (h *AccountHandler) List(c *gin.Context) {
	pageParams := pagination.ParsePageParams(c)

	accounts, total, err := h.accounts.List(pageParams)
	if err != nil {
		response.ServerError(c, "查询账号列表失败")
		return
	}

	response.SuccessWithPage(c, accounts, pagination.NewPageInfo(pageParams.Page, pageParams.PageSize, total))
}

// Me 当前登录账号信息
func (h *AccountHandler) Me(c *gin.Context) {
	accountID := middleware.GetAccountID(c)

	account, err := h.accounts.Get(accountID)
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.Success(c, account)
}

// Delete 删除账号（管理员，先删身份服务再删本地）
func (h *AccountHandler) Delete(c *gin.Context) {
	accountID := c.Param("id")

	if err := h.accounts.Delete(accountID); err != nil {
		response.HandleError(c, err)
		return
	}

	response.SuccessWithMessage(c, "账号已删除", nil)
}

// UpdateRole 修改账号角色（管理员）
func (h *AccountHandler) UpdateRole(c *gin.Context) {
	accountID := c.Param("id")

	var req UpdateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误")
		return
	}

	if err := h.accounts.UpdateRole(accountID, req.Role); err != nil {
		response.HandleError(c, err)
		return
	}

	response.SuccessWithMessage(c, "角色已更新", gin.H{
		"account_id": accountID,
		"role":       req.Role,
	})
}
