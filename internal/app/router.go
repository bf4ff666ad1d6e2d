package app

import (
	"splitbill_backend/docs"
	"splitbill_backend/internal/config"
	"splitbill_backend/internal/middleware"
	"splitbill_backend/internal/util"
	"splitbill_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, repos *repositories, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())
	router.NoRoute(util.NotFound)

	// 1. 公共路由(无需登录)
	a.registerPublicRoutes(router, c, cfg)

	// 2. 需要授权的路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg), middleware.ActivityMiddleware(repos.user))
	{
		a.registerProfileRoutes(authGroup, c)
		a.registerFriendRoutes(authGroup, c)
		a.registerGroupRoutes(authGroup, c)
		a.registerPaymentRoutes(authGroup, c)
		a.registerBillRoutes(authGroup, c)
	}
}

func (a *App) registerPublicRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.POST("/register", c.auth.Register)
		public.POST("/login", c.auth.Login)
		public.POST("/logout", c.auth.Logout)
		// 已登录时预览中会标注是否已是成员
		public.GET("/invitations/:token", middleware.TryAuthMiddleware(cfg), c.group.PreviewInvitation)
	}
}

func (a *App) registerProfileRoutes(r *gin.RouterGroup, c *controllers) {
	r.GET("/profile", c.auth.GetProfile)
	r.PUT("/profile", c.auth.UpdateProfile)
	r.PUT("/profile/password", c.auth.ChangePassword)
}

func (a *App) registerFriendRoutes(r *gin.RouterGroup, c *controllers) {
	friends := r.Group("/friends")
	{
		friends.GET("", c.friend.ListFriends)
		friends.POST("/add", c.friend.AddFriend)
		friends.GET("/requests", c.friend.ListRequests)
		friends.PUT("/requests", c.friend.RespondToRequest)
		friends.GET("/search", c.friend.Search)
		friends.DELETE("/:id", c.friend.RemoveFriend)
	}
}

func (a *App) registerGroupRoutes(r *gin.RouterGroup, c *controllers) {
	groups := r.Group("/groups")
	{
		groups.POST("", c.group.CreateGroup)
		groups.GET("", c.group.ListGroups)
		groups.GET("/:id", c.group.GetGroup)
		groups.PUT("/:id/settings", c.group.UpdateSettings)
		groups.DELETE("/:id/settings", c.group.DeleteGroup)
		groups.POST("/:id/invitations", c.group.CreateInvitation)
		groups.DELETE("/:id/members/:userId", c.group.RemoveMember)
		groups.PUT("/:id/members/:userId/role", c.group.UpdateMemberRole)
	}

	r.POST("/invitations/:token/accept", c.group.AcceptInvitation)
}

func (a *App) registerPaymentRoutes(r *gin.RouterGroup, c *controllers) {
	payments := r.Group("/payments")
	{
		payments.POST("/requests", c.paymentRequest.CreateRequest)
		payments.GET("/requests", c.paymentRequest.ListRequests)
		payments.GET("/requests/:id", c.paymentRequest.GetRequest)
		payments.PUT("/requests/:id", c.paymentRequest.UpdateRequest)
		payments.GET("/summary", c.paymentRequest.Summary)
	}
}

func (a *App) registerBillRoutes(r *gin.RouterGroup, c *controllers) {
	bills := r.Group("/bills")
	{
		bills.POST("", c.bill.CreateBill)
		bills.GET("", c.bill.ListBills)
		bills.GET("/:id", c.bill.GetBill)
		bills.PUT("/:id/items/:itemId/assignees", c.bill.SetAssignees)
		bills.POST("/:id/receipt", c.bill.UploadReceipt)
		bills.POST("/:id/requests", c.bill.RequestPayments)
	}
}
