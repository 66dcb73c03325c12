package router

import (
	"time"

	"lms/internal/database"
	"lms/internal/handlers"
	"lms/internal/middleware"
	"lms/internal/services"
	"lms/pkg/config"
	"lms/pkg/identity"
	"lms/pkg/logger"
	"lms/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// SetupRouter 设置路由
func SetupRouter() *gin.Engine {
	registerValidations()

	router := gin.New()

	// 中间件
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.ErrorHandler())
	router.Use(middleware.SetupCORS())

	// 注册路由
	registerRoutes(router)
	return router
}

// 注册自定义参数校验规则
func registerValidations() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterValidation("role", func(fl validator.FieldLevel) bool {
			return identity.ValidRole(fl.Field().String())
		})
	}
}

// 注册所有路由
func registerRoutes(router *gin.Engine) {
	cfg := config.GetConfig()
	db := database.GetDB()
	tokens := database.GetTokenStore()

	idp := identity.NewHTTPClient(cfg.Identity.BaseURL, cfg.Identity.SecretKey,
		time.Duration(cfg.Identity.Timeout)*time.Second)

	auth := middleware.NewAuthMiddleware(idp)

	invitationService := services.NewInvitationService(db, tokens, idp)
	accountService := services.NewAccountService(db, idp)
	educatorService := services.NewEducatorRequestService(db, idp)
	syncService := services.NewAccountSyncService(db, idp)

	// 验证器创建失败时保留nil，由handler拒绝事件并让提供方重试
	verifier, err := identity.NewWebhookVerifier(cfg.Identity.WebhookSecret)
	if err != nil {
		logger.GetLogger().Warnf("Webhook验证器初始化失败: %v", err)
	}

	// API路由组
	api := router.Group("/api/v1")
	{
		// 健康检查接口
		api.GET("/health", healthCheck)
		api.GET("/ping", ping)

		// 身份提供方Webhook（签名验证，不走会话认证）
		webhookHandler := handlers.NewWebhookHandler(verifier, syncService)
		api.POST("/webhooks/identity", webhookHandler.HandleIdentityEvent)

		// 邀请路由
		invitationHandler := handlers.NewInvitationHandler(invitationService)
		invitations := api.Group("/invitations")
		{
			// 被邀请人侧（无需登录）
			invitations.GET("/verify/:token", invitationHandler.Verify)  // 校验邀请令牌
			invitations.POST("/accept/:token", invitationHandler.Accept) // 接受邀请并开户

			// 管理员侧
			invitations.POST("", auth.RequireLogin(), auth.RequireRole(identity.RoleAdmin), invitationHandler.Generate)
			invitations.GET("", auth.RequireLogin(), auth.RequireRole(identity.RoleAdmin), invitationHandler.List)
			invitations.DELETE("/:token", auth.RequireLogin(), auth.RequireRole(identity.RoleAdmin), invitationHandler.Revoke)
		}

		// 账号路由（管理员）
		accountHandler := handlers.NewAccountHandler(accountService, invitationService)
		accounts := api.Group("/users")
		{
			accounts.GET("/me", auth.RequireLogin(), accountHandler.Me)

			accounts.POST("", auth.RequireLogin(), auth.RequireRole(identity.RoleAdmin), accountHandler.Create)
			accounts.GET("", auth.RequireLogin(), auth.RequireRole(identity.RoleAdmin), accountHandler.List)
			accounts.DELETE("/:id", auth.RequireLogin(), auth.RequireRole(identity.RoleAdmin), accountHandler.Delete)
			accounts.PATCH("/:id/role", auth.RequireLogin(), auth.RequireRole(identity.RoleAdmin), accountHandler.UpdateRole)
		}

		// 讲师申请路由
		educatorHandler := handlers.NewEducatorRequestHandler(educatorService)
		educatorRequests := api.Group("/educator-requests")
		{
			// 申请人侧（只需登录）
			educatorRequests.POST("", auth.RequireLogin(), educatorHandler.Submit)
			educatorRequests.GET("/status", auth.RequireLogin(), educatorHandler.MyStatus)

			// 管理员侧
			educatorRequests.GET("", auth.RequireLogin(), auth.RequireRole(identity.RoleAdmin), educatorHandler.List)
			educatorRequests.PATCH("/:id/approve", auth.RequireLogin(), auth.RequireRole(identity.RoleAdmin), educatorHandler.Approve)
			educatorRequests.PATCH("/:id/reject", auth.RequireLogin(), auth.RequireRole(identity.RoleAdmin), educatorHandler.Reject)
		}
	}
}

// 健康检查
func healthCheck(c *gin.Context) {
	response.Success(c, gin.H{
		"status":  "ok",
		"service": "lms",
	})
}

// ping接口
func ping(c *gin.Context) {
	response.Success(c, gin.H{
		"message": "pong",
	})
}
