package main

import (
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"chatyar/api"
	"chatyar/config"
	"chatyar/database"
	"chatyar/services"
)

func init() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("🔧 شروع راه‌اندازی برنامه...")
}

func main() {
	// بارگذاری تنظیمات
	if err := config.LoadConfig(); err != nil {
		log.Fatalf("❌ خطا در بارگذاری تنظیمات: %v", err)
	}
	log.Println("✅ تنظیمات بارگذاری شدند")

	// اطمینان از وجود دایرکتوری‌ها
	os.MkdirAll("./data", 0755)
	os.MkdirAll(config.AppConfig.UploadPath, 0755)

	// شروع دیتابیس
	if err := database.InitDatabase(config.AppConfig.DatabasePath); err != nil {
		log.Fatalf("❌ خطا در راه‌اندازی دیتابیس: %v", err)
	}
	defer database.CloseDatabase()
	log.Println("✅ دیتابیس شروع شد")

	db := database.GetDB()
	cfg := config.AppConfig

	// ساخت سرویس‌ها
	counter := services.NewTokenCounterService()
	usage := services.NewUsageService(db)
	limits := services.NewLimitMessageService(db)
	settings, err := services.NewSettingsService(db)
	if err != nil {
		log.Fatalf("❌ خطا در بارگذاری تنظیمات سراسری: %v", err)
	}
	subs := services.NewSubscriptionService(db, usage)
	quota := services.NewQuotaService(db, usage, limits)
	media := services.NewMediaQuotaService(db, settings, limits)
	admit := services.NewAdmissionService(subs, quota, media, limits)
	users := services.NewUserService(db, subs)
	auth := &services.AuthService{}
	sms := services.NewSMSService(cfg.SMSEndpoint, cfg.SMSAPIKey, cfg.SMSFromNumber)
	otp := services.NewOTPService(db, sms)
	ai := services.NewAIService(cfg.AIAPIEndpoint, cfg.AIAPIKey)
	chat := services.NewChatService(db, counter)
	title := services.NewTitleService(db, chat, ai, quota, usage, counter)
	stream := services.NewStreamService(chat, usage, media, counter, ai, title)
	edit := services.NewEditService(db, chat, admit, stream)
	files := services.NewFileService(db, cfg.UploadPath)
	payment := services.NewPaymentService(db, subs, cfg.PaymentEndpoint, cfg.PaymentMerchant, cfg.CallbackURL)

	server := api.NewServer(api.Deps{
		DB:       db,
		Auth:     auth,
		Users:    users,
		OTP:      otp,
		Chat:     chat,
		Stream:   stream,
		Edit:     edit,
		Admit:    admit,
		Files:    files,
		Subs:     subs,
		Usage:    usage,
		Quota:    quota,
		Payment:  payment,
		Settings: settings,
		Limits:   limits,
	})
	log.Printf("✅ API سرور تنظیم شد - پورت %d", cfg.APIPort)

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	var wg sync.WaitGroup

	// شروع API سرور
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := server.StartServer(); err != nil {
			log.Printf("❌ خطا در سرور API: %v", err)
		}
	}()

	// انقضای اشتراک‌های سررسیده
	stopExpiry := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		startExpiryCron(subs, stopExpiry)
	}()

	// منتظر بماند برای shutdown
	<-sigChan
	log.Println("\n🛑 سیگنال shutdown دریافت شد...")

	close(stopExpiry)

	if err := server.StopServer(30 * time.Second); err != nil {
		log.Printf("❌ خطا در متوقف کردن API سرور: %v", err)
	}

	if err := database.CloseDatabase(); err != nil {
		log.Printf("❌ خطا در بستن دیتابیس: %v", err)
	}

	log.Println("✅ برنامه با موفقیت بسته شد")
	wg.Wait()
}

// startExpiryCron بررسی دوره‌ای اشتراک‌های سررسیده
func startExpiryCron(subs *services.SubscriptionService, stop <-chan struct{}) {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := subs.ExpireDue(); err != nil {
				log.Printf("❌ خطا در انقضای اشتراک‌ها: %v", err)
			}
		}
	}
}
