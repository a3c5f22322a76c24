package api

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"chatyar/config"
	"chatyar/services"
)

// Server سرور HTTP و تمام سرویس‌های پشت آن
type Server struct {
	db         *gorm.DB
	engine     *gin.Engine
	httpServer *http.Server

	auth     *services.AuthService
	users    *services.UserService
	otp      *services.OTPService
	chat     *services.ChatService
	stream   *services.StreamService
	edit     *services.EditService
	admit    *services.AdmissionService
	files    *services.FileService
	subs     *services.SubscriptionService
	usage    *services.UsageService
	quota    *services.QuotaService
	payment  *services.PaymentService
	settings *services.SettingsService
	limits   *services.LimitMessageService
}

// Deps سرویس‌های لازم برای ساخت سرور
type Deps struct {
	DB       *gorm.DB
	Auth     *services.AuthService
	Users    *services.UserService
	OTP      *services.OTPService
	Chat     *services.ChatService
	Stream   *services.StreamService
	Edit     *services.EditService
	Admit    *services.AdmissionService
	Files    *services.FileService
	Subs     *services.SubscriptionService
	Usage    *services.UsageService
	Quota    *services.QuotaService
	Payment  *services.PaymentService
	Settings *services.SettingsService
	Limits   *services.LimitMessageService
}

// NewServer راه‌اندازی موتور gin و تعریف مسیرها
func NewServer(deps Deps) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		db:       deps.DB,
		auth:     deps.Auth,
		users:    deps.Users,
		otp:      deps.OTP,
		chat:     deps.Chat,
		stream:   deps.Stream,
		edit:     deps.Edit,
		admit:    deps.Admit,
		files:    deps.Files,
		subs:     deps.Subs,
		usage:    deps.Usage,
		quota:    deps.Quota,
		payment:  deps.Payment,
		settings: deps.Settings,
		limits:   deps.Limits,
	}

	s.engine = gin.New()
	s.engine.Use(gin.Logger())
	s.engine.Use(gin.Recovery())
	s.engine.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf(":%d", config.AppConfig.APIPort),
		Handler: s.engine,
	}

	return s
}

// StartServer شروع سرور
func (s *Server) StartServer() error {
	log.Printf("🚀 API سرور در پورت %d شروع شد", config.AppConfig.APIPort)
	return s.httpServer.ListenAndServe()
}

// StopServer متوقف کردن سرور
func (s *Server) StopServer(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) setupRoutes() {
	s.engine.GET("/health", s.healthCheck)

	// Public routes
	public := s.engine.Group("/api/v1")
	{
		public.POST("/auth/otp/request", s.requestOTP)
		public.POST("/auth/otp/verify", s.verifyOTP)
		public.POST("/auth/admin/login", s.adminLogin)
		public.GET("/payment/callback", s.paymentCallback)
	}

	// Protected routes
	protected := s.engine.Group("/api/v1")
	protected.Use(s.userAuthMiddleware())
	{
		protected.GET("/user/profile", s.getProfile)
		protected.GET("/user/usage", s.getUsage)

		protected.GET("/models", s.listModels)
		protected.GET("/plans", s.listPlans)
		protected.GET("/plans/:id/quote", s.getUpgradeQuote)
		protected.POST("/payment/request", s.requestPayment)

		protected.POST("/files", s.uploadFile)

		protected.POST("/sessions", s.createSession)
		protected.GET("/sessions", s.listSessions)
		protected.GET("/sessions/:id/messages", s.getSessionMessages)
		protected.PUT("/sessions/:id/model", s.setSessionModel)
		protected.PUT("/sessions/:id/title", s.setSessionTitle)
		protected.POST("/sessions/:id/messages", s.sendMessage)
		protected.PUT("/sessions/:id/messages/:uuid", s.editMessage)
	}

	// Admin routes
	admin := s.engine.Group("/api/v1/admin")
	admin.Use(s.adminAuthMiddleware())
	{
		admin.GET("/settings", s.adminGetSettings)
		admin.PUT("/settings", s.adminUpdateSettings)
		admin.PUT("/limit-messages", s.adminSetLimitMessage)
		admin.POST("/subscriptions/expire", s.adminExpireSubscriptions)
	}
}

// healthCheck بررسی سلامت سرور
func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now(),
	})
}
