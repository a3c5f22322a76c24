package services

import (
	"net/http"
	"strings"

	"gorm.io/gorm"

	"chatyar/database"
)

// LimitKind نوع پایدار خطای محدودیت
type LimitKind string

const (
	KindTokenLimit           LimitKind = "token_limit"
	KindMessageLimit         LimitKind = "message_limit"
	KindDailyLimit           LimitKind = "daily_limit"
	KindWeeklyLimit          LimitKind = "weekly_limit"
	KindMonthlyLimit         LimitKind = "monthly_limit"
	KindFileUploadLimit      LimitKind = "file_upload_limit"
	KindImageGenLimit        LimitKind = "image_generation_limit"
	KindSubscriptionRequired LimitKind = "subscription_required"
	KindModelAccessDenied    LimitKind = "model_access_denied"
	KindGeneralLimit         LimitKind = "general_limit"
	// جایگاه این نوع نگه داشته شده ولی مسیر اعمال ندارد
	KindOpenRouterCostLimit LimitKind = "openrouter_cost_limit"
)

// StatusForKind نگاشت نوع محدودیت به کد HTTP
func StatusForKind(kind LimitKind) int {
	switch kind {
	case KindModelAccessDenied, KindSubscriptionRequired:
		return http.StatusForbidden
	case "":
		return http.StatusOK
	}
	return http.StatusTooManyRequests
}

// horizonLabels برچسب فارسی هر بازه
var horizonLabels = map[Horizon]string{
	HorizonHour:       "ساعتی",
	HorizonThreeHour:  "سه ساعته",
	HorizonTwelveHour: "دوازده ساعته",
	HorizonDay:        "روزانه",
	HorizonWeek:       "هفتگی",
	HorizonMonth:      "ماهانه",
}

// horizonKind نوع خطای هر بازه؛ بازه‌های لغزان ساعتی نوع مستقل ندارند
func horizonKind(h Horizon, tokens bool) LimitKind {
	switch h {
	case HorizonDay:
		return KindDailyLimit
	case HorizonWeek:
		return KindWeeklyLimit
	case HorizonMonth:
		return KindMonthlyLimit
	}
	if tokens {
		return KindTokenLimit
	}
	return KindMessageLimit
}

// متن‌های پیش‌فرض؛ جدول limitation_messages در صورت وجود جایگزین می‌شود
var defaultLimitMessages = map[LimitKind]string{
	KindTokenLimit:           "سقف توکن {بازه} شما به پایان رسیده است. لطفاً بعداً دوباره تلاش کنید.",
	KindMessageLimit:         "سقف پیام {بازه} شما به پایان رسیده است. لطفاً بعداً دوباره تلاش کنید.",
	KindDailyLimit:           "سقف مصرف روزانه شما به پایان رسیده است. فردا دوباره تلاش کنید.",
	KindWeeklyLimit:          "سقف مصرف هفتگی شما به پایان رسیده است.",
	KindMonthlyLimit:         "سقف مصرف ماهانه شما به پایان رسیده است.",
	KindFileUploadLimit:      "محدودیت آپلود فایل: {جزئیات}",
	KindImageGenLimit:        "سقف تولید تصویر {بازه} شما به پایان رسیده است.",
	KindSubscriptionRequired: "برای استفاده از این امکان به اشتراک فعال نیاز دارید.",
	KindModelAccessDenied:    "پلن فعلی شما به این مدل دسترسی ندارد. برای استفاده پلن خود را ارتقا دهید.",
	KindGeneralLimit:         "محدودیت مصرف برای حساب شما اعمال شده است.",
	KindOpenRouterCostLimit:  "سقف هزینه سرویس بالادست به پایان رسیده است.",
}

// پیام‌های ویژه که قالبشان با نوع عمومی فرق دارد
const (
	msgLifetimeTokens     = "سقف توکن اشتراک شما به پایان رسیده است. برای ادامه، پلن خود را ارتقا دهید."
	msgLifetimeFreeTokens = "سقف توکن رایگان اشتراک شما به پایان رسیده است."
	msgInsufficientBudget = "بودجه باقیمانده توکن شما برای این درخواست کافی نیست."
	msgMonthlyFreeModel   = "سقف مصرف ماهانه مدل‌های رایگان شما به پایان رسیده است."
)

// LimitMessageService متن پیام‌های محدودیت را از دیتابیس یا پیش‌فرض‌ها می‌خواند
type LimitMessageService struct {
	db *gorm.DB
}

func NewLimitMessageService(db *gorm.DB) *LimitMessageService {
	return &LimitMessageService{db: db}
}

// MessageFor متن پیام یک نوع محدودیت؛ اگر override تنظیم نشده باشد
// متن داده‌شده (یا پیش‌فرض نوع) برگردانده می‌شود تا هیچ شاخه‌ای بی‌پیام نماند
func (s *LimitMessageService) MessageFor(kind LimitKind, fallback string) string {
	if fallback == "" {
		fallback = defaultLimitMessages[kind]
	}

	var row database.LimitationMessage
	if err := s.db.Where("limit_type = ?", string(kind)).First(&row).Error; err != nil {
		return fallback
	}
	if strings.TrimSpace(row.Message) == "" {
		return fallback
	}
	return row.Message
}

// HorizonMessage پیام محدودیت بازه‌ای با جایگذاری برچسب بازه
func (s *LimitMessageService) HorizonMessage(kind LimitKind, h Horizon) string {
	msg := s.MessageFor(kind, "")
	return strings.ReplaceAll(msg, "{بازه}", horizonLabels[h])
}

// FileMessage پیام محدودیت فایل با جایگذاری جزئیات
func (s *LimitMessageService) FileMessage(detail string) string {
	msg := s.MessageFor(KindFileUploadLimit, "")
	return strings.ReplaceAll(msg, "{جزئیات}", detail)
}

// SetOverride ثبت یا به‌روزرسانی متن سفارشی
func (s *LimitMessageService) SetOverride(kind LimitKind, message string) error {
	var row database.LimitationMessage
	if err := s.db.Where("limit_type = ?", string(kind)).First(&row).Error; err == gorm.ErrRecordNotFound {
		return s.db.Create(&database.LimitationMessage{
			LimitType: string(kind),
			Message:   message,
		}).Error
	} else if err != nil {
		return err
	}

	row.Message = message
	return s.db.Save(&row).Error
}
