package handlers

import (
	"net/http"

	"lms/internal/services"
	"lms/pkg/identity"
	"lms/pkg/logger"

	"github.com/gin-gonic/gin"
)

// WebhookHandler 接收身份提供方推送的账号生命周期事件
//
// 提供方根据HTTP状态码决定是否重试，因此这里直接返回原始状态码，
// 不走统一响应封装。
type WebhookHandler struct {
	verifier *identity.WebhookVerifier
	sync     *services.AccountSyncService
}

func NewWebhookHandler(verifier *identity.WebhookVerifier, sync *services.AccountSyncService) *WebhookHandler {
	return &WebhookHandler{
		verifier: verifier,
		sync:     sync,
	}
}

// HandleIdentityEvent 验签后分发账号事件
func (h *WebhookHandler) HandleIdentityEvent(c *gin.Context) {
	log := logger.GetLogger()

	// 未配置密钥时拒绝处理，提供方会稍后重试
	if h.verifier == nil {
		log.Error("Webhook密钥未配置，拒绝处理事件")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "webhook not configured"})
		return
	}

	payload, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "read body failed"})
		return
	}

	// 验签失败的消息不触碰任何本地状态
	event, err := h.verifier.Verify(payload, c.Request.Header)
	if err != nil {
		log.Warnf("Webhook验签失败: %v", err)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "signature verification failed"})
		return
	}

	if err := h.sync.Apply(event); err != nil {
		log.Errorf("处理账号事件失败 [%s]: %v", event.Type, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "event processing failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}
