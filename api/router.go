package api

import (
	"net/http"

	authhandler "github.com/Surya-Chinnathambi/FashionChat/api/handlers/auth"
	chathandler "github.com/Surya-Chinnathambi/FashionChat/api/handlers/chat"
	producthandler "github.com/Surya-Chinnathambi/FashionChat/api/handlers/products"
	"github.com/Surya-Chinnathambi/FashionChat/internal/auth"
	"github.com/Surya-Chinnathambi/FashionChat/internal/chat"
	"github.com/Surya-Chinnathambi/FashionChat/internal/config"
	"github.com/Surya-Chinnathambi/FashionChat/internal/infra/queue"
	"github.com/Surya-Chinnathambi/FashionChat/internal/metrics"
	"github.com/Surya-Chinnathambi/FashionChat/internal/products"
	"github.com/Surya-Chinnathambi/FashionChat/internal/search"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

// AppContainer 汇总路由所需的全部依赖
type AppContainer struct {
	Config        *config.Config
	DB            *gorm.DB
	JWTService    *auth.JWTService
	ProductRepo   *products.Repository
	SearchService *search.Service
	ChatService   *chat.Service
	Queue         queue.Client // 可为 nil
}

// SetupRouter 装配全部路由与中间件
func SetupRouter(app *AppContainer) *gin.Engine {
	gin.SetMode(app.Config.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger())
	r.Use(CORS())
	r.Use(metrics.PrometheusMiddleware())

	// 系统端点
	r.GET("/health", healthCheck)
	r.GET("/ready", readinessCheck(app.DB))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authRequired := auth.Middleware(app.JWTService)
	authOptional := auth.OptionalMiddleware(app.JWTService)

	// 认证
	authHandler := authhandler.NewAuthHandler(app.JWTService, app.DB)
	authGroup := r.Group("/auth")
	{
		authGroup.POST("/register", authHandler.Register)
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/logout", authRequired, authHandler.Logout)
		authGroup.GET("/me", authRequired, authHandler.Me)
	}

	// 商品
	productHandler := producthandler.NewProductHandler(app.ProductRepo, app.SearchService, app.Queue)
	productGroup := r.Group("/products")
	{
		productGroup.GET("", productHandler.List)
		productGroup.GET("/search", productHandler.Search)
		productGroup.GET("/search/stats", productHandler.SearchStats)
		productGroup.GET("/categories/list", productHandler.Categories)
		productGroup.GET("/brands/list", productHandler.Brands)
		productGroup.GET("/:id", productHandler.Get)

		productGroup.POST("", authRequired, productHandler.Create)
		productGroup.PUT("/:id", authRequired, productHandler.Update)
		productGroup.DELETE("/:id", authRequired, productHandler.Delete)
	}

	// 对话
	chatHandler := chathandler.NewChatHandler(app.ChatService, app.DB)
	chatGroup := r.Group("/chat")
	{
		chatGroup.POST("/message", authOptional, chatHandler.SendMessage)
		chatGroup.GET("/history/:session_id", chatHandler.History)
		chatGroup.GET("/sessions", authRequired, chatHandler.Sessions)
	}

	return r
}

// healthCheck 健康检查
// @Summary 服务健康检查
// @Tags System
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "FashionChat",
	})
}

// readinessCheck 就绪检查，包含数据库连通性
// @Summary 服务就绪检查
// @Tags System
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 503 {object} map[string]string
// @Router /ready [get]
func readinessCheck(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "not_ready",
				"reason": "database connection error",
			})
			return
		}
		if err := sqlDB.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "not_ready",
				"reason": "database ping failed",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	}
}
