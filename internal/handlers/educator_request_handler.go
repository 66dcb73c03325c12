package handlers

import (
	"errors"
	"io"
	"strconv"

	"lms/internal/middleware"
	"lms/internal/services"
	"lms/pkg/pagination"
	"lms/pkg/response"

	"github.com/gin-gonic/gin"
)

// SubmitEducatorRequest 提交讲师申请请求
type SubmitEducatorRequest struct {
	Reason string `json:"reason"`
}

// RejectEducatorRequest 驳回讲师申请请求
type RejectEducatorRequest struct {
	Reason string `json:"reason"`
}

type EducatorRequestHandler struct {
	service *services.EducatorRequestService
}

func NewEducatorRequestHandler(service *services.EducatorRequestService) *EducatorRequestHandler {
	return &EducatorRequestHandler{
		service: service,
	}
}

// Submit 提交讲师申请（登录用户）
func (h *EducatorRequestHandler) Submit(c *gin.Context) {
	accountID := middleware.GetAccountID(c)

	// 理由可选，允许空请求体
	var req SubmitEducatorRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.BadRequest(c, "参数错误")
		return
	}

	request, err := h.service.Submit(accountID, req.Reason)
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.SuccessWithMessage(c, "讲师申请已提交，等待管理员审批", gin.H{
		"request_id": request.ID,
	})
}

// MyStatus 查询自己最新一条申请状态（登录用户）
func (h *EducatorRequestHandler) MyStatus(c *gin.Context) {
	accountID := middleware.GetAccountID(c)

	request, err := h.service.StatusFor(accountID)
	if err != nil {
		response.ServerError(c, "查询申请状态失败")
		return
	}

	if request == nil {
		response.Success(c, gin.H{
			"has_request": false,
		})
		return
	}

	response.Success(c, gin.H{
		"has_request":      true,
		"status":           request.Status,
		"requested_at":     request.RequestedAt,
		"reviewed_at":      request.ReviewedAt,
		"rejection_reason": request.RejectionReason,
	})
}

// List 申请列表（管理员，支持按状态筛选）
func (h *EducatorRequestHandler) List(c *gin.Context) {
	pageParams := pagination.ParsePageParams(c)
	status := c.Query("status")

	requests, total, err := h.service.ListByStatus(status, pageParams)
	if err != nil {
		response.ServerError(c, "查询申请列表失败")
		return
	}

	response.SuccessWithPage(c, requests, pagination.NewPageInfo(pageParams.Page, pageParams.PageSize, total))
}

// Approve 审批通过（管理员）
func (h *EducatorRequestHandler) Approve(c *gin.Context) {
	requestID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "ID格式错误")
		return
	}

	reviewerID := middleware.GetAccountID(c)

	if err := h.service.Approve(uint(requestID), reviewerID); err != nil {
		response.HandleError(c, err)
		return
	}

	response.SuccessWithMessage(c, "申请已通过，用户已成为讲师", nil)
}

// Reject 审批驳回（管理员）
func (h *EducatorRequestHandler) Reject(c *gin.Context) {
	requestID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "ID格式错误")
		return
	}

	// 驳回理由可选，允许空请求体
	var req RejectEducatorRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.BadRequest(c, "参数错误")
		return
	}

	reviewerID := middleware.GetAccountID(c)

	if err := h.service.Reject(uint(requestID), reviewerID, req.Reason); err != nil {
		response.HandleError(c, err)
		return
	}

	response.SuccessWithMessage(c, "申请已驳回", nil)
}
