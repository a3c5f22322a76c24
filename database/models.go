package database

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// User مدل کاربر
type User struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	PhoneNumber string    `gorm:"uniqueIndex" json:"phone_number"`
	FullName    string    `json:"full_name"`
	IsAdmin     bool      `gorm:"default:false" json:"is_admin"`
	IsActive    bool      `gorm:"default:true" json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	Subscriptions []Subscription
	ChatSessions  []ChatSession
}

// Plan مدل پلن اشتراک؛ قالب سهمیه‌های چندبازه‌ای
type Plan struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	Name         string          `gorm:"uniqueIndex" json:"name"`
	Description  string          `gorm:"type:text" json:"description"`
	Price        decimal.Decimal `gorm:"type:decimal(12,2)" json:"price"` // تومان
	DurationDays int             `gorm:"default:30" json:"duration_days"`
	IsActive     bool            `gorm:"default:true" json:"is_active"`

	// سقف‌های عمری؛ صفر یعنی نامحدود
	MaxTokens     int64 `gorm:"default:0" json:"max_tokens"`
	MaxTokensFree int64 `gorm:"default:0" json:"max_tokens_free"`

	// سقف‌های بازه‌ای؛ صفر یعنی نامحدود
	HourlyMaxMessages     int64 `gorm:"default:0" json:"hourly_max_messages"`
	HourlyMaxTokens       int64 `gorm:"default:0" json:"hourly_max_tokens"`
	ThreeHourMaxMessages  int64 `gorm:"default:0" json:"three_hour_max_messages"`
	ThreeHourMaxTokens    int64 `gorm:"default:0" json:"three_hour_max_tokens"`
	TwelveHourMaxMessages int64 `gorm:"default:0" json:"twelve_hour_max_messages"`
	TwelveHourMaxTokens   int64 `gorm:"default:0" json:"twelve_hour_max_tokens"`
	DailyMaxMessages      int64 `gorm:"default:0" json:"daily_max_messages"`
	DailyMaxTokens        int64 `gorm:"default:0" json:"daily_max_tokens"`
	WeeklyMaxMessages     int64 `gorm:"default:0" json:"weekly_max_messages"`
	WeeklyMaxTokens       int64 `gorm:"default:0" json:"weekly_max_tokens"`
	MonthlyMaxMessages    int64 `gorm:"default:0" json:"monthly_max_messages"`
	MonthlyMaxTokens      int64 `gorm:"default:0" json:"monthly_max_tokens"`

	// سهمیه ماهانه مدل‌های رایگان
	MonthlyFreeModelMessages int64 `gorm:"default:0" json:"monthly_free_model_messages"`
	MonthlyFreeModelTokens   int64 `gorm:"default:0" json:"monthly_free_model_tokens"`

	// سقف تولید تصویر
	DailyImageLimit   int64 `gorm:"default:0" json:"daily_image_limit"`
	WeeklyImageLimit  int64 `gorm:"default:0" json:"weekly_image_limit"`
	MonthlyImageLimit int64 `gorm:"default:0" json:"monthly_image_limit"`

	// سیاست آپلود فایل مختص پلن؛ صفر یا خالی یعنی ارث‌بری از تنظیمات سراسری
	MaxFileSizeMB      int    `gorm:"default:0" json:"max_file_size_mb"`
	MaxFilesPerMessage int    `gorm:"default:0" json:"max_files_per_message"`
	AllowedExtensions  string `gorm:"type:text" json:"allowed_extensions"` // با کاما جدا شده
	DailyFileLimit     int64  `gorm:"default:0" json:"daily_file_limit"`
	WeeklyFileLimit    int64  `gorm:"default:0" json:"weekly_file_limit"`
	MonthlyFileLimit   int64  `gorm:"default:0" json:"monthly_file_limit"`
	SessionFileLimit   int64  `gorm:"default:0" json:"session_file_limit"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Subscription مدل اشتراک کاربر
type Subscription struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	UserID    uint       `gorm:"index" json:"user_id"`
	PlanID    uint       `gorm:"index" json:"plan_id"`
	StartDate time.Time  `json:"start_date"`
	EndDate   *time.Time `json:"end_date"` // null برای پلن‌های بدون انقضا
	IsActive  bool       `gorm:"default:true;index" json:"is_active"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`

	User User
	Plan Plan
}

// AIModel مدل هوش مصنوعی قابل استفاده
type AIModel struct {
	ID                  uint            `gorm:"primaryKey" json:"id"`
	ModelID             string          `gorm:"uniqueIndex" json:"model_id"`
	Name                string          `json:"name"`
	ModelType           string          `gorm:"default:'text'" json:"model_type"` // text یا image
	IsFree              bool            `gorm:"default:false" json:"is_free"`
	IsActive            bool            `gorm:"default:true" json:"is_active"`
	TokenCostMultiplier decimal.Decimal `gorm:"type:decimal(8,3);default:1" json:"token_cost_multiplier"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

// ModelAccessPolicy دسترسی پلن به مدل
type ModelAccessPolicy struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	AIModelID uint      `gorm:"uniqueIndex:idx_model_plan" json:"ai_model_id"`
	PlanID    uint      `gorm:"uniqueIndex:idx_model_plan" json:"plan_id"`
	CreatedAt time.Time `json:"created_at"`

	AIModel AIModel
	Plan    Plan
}

// ChatSession مدل جلسه گفتگو
type ChatSession struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UserID     uint      `gorm:"index" json:"user_id"`
	AIModelID  uint      `json:"ai_model_id"`
	BotPersona string    `json:"bot_persona"`
	Title      string    `json:"title"`
	IsActive   bool      `gorm:"default:true" json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	User     User
	AIModel  AIModel
	Messages []ChatMessage
}

// ChatMessage مدل پیام گفتگو
type ChatMessage struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	UUID          string     `gorm:"uniqueIndex" json:"uuid"`
	ChatSessionID uint       `gorm:"index" json:"chat_session_id"`
	Role          string     `json:"role"` // user یا assistant یا system
	Content       string     `gorm:"type:text" json:"content"`
	TokenCount    int64      `gorm:"default:0" json:"token_count"` // پس از ایجاد تغییر نمی‌کند
	Disabled      bool       `gorm:"default:false;index" json:"disabled"`
	ImageURLs     string     `gorm:"type:text" json:"image_urls"` // JSON آرایه
	EditedAt      *time.Time `json:"edited_at"`
	CreatedAt     time.Time  `gorm:"index" json:"created_at"`

	ChatSession ChatSession
	Files       []ChatMessageFile
}

// UploadedFile مدل فایل آپلودشده
type UploadedFile struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"index" json:"user_id"`
	Filename  string    `json:"filename"`
	Path      string    `json:"path"`
	SizeBytes int64     `json:"size_bytes"`
	Extension string    `json:"extension"`
	MimeType  string    `json:"mime_type"`
	CreatedAt time.Time `json:"created_at"`

	User User
}

// ChatMessageFile اتصال پیام به فایل با حفظ ترتیب
type ChatMessageFile struct {
	ID             uint `gorm:"primaryKey" json:"id"`
	ChatMessageID  uint `gorm:"uniqueIndex:idx_msg_file" json:"chat_message_id"`
	UploadedFileID uint `gorm:"uniqueIndex:idx_msg_file" json:"uploaded_file_id"`
	SortOrder      int  `gorm:"default:0" json:"sort_order"`

	UploadedFile UploadedFile
}

// ChatSessionUsage مصرف تجمعی هر جلسه؛ مرجع سقف‌های عمری
type ChatSessionUsage struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	ChatSessionID uint            `gorm:"uniqueIndex:idx_session_user_plan" json:"chat_session_id"`
	UserID        uint            `gorm:"uniqueIndex:idx_session_user_plan;index" json:"user_id"`
	PlanID        uint            `gorm:"uniqueIndex:idx_session_user_plan" json:"plan_id"`
	TokensPaid    decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"tokens_paid"`
	TokensFree    decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"tokens_free"`
	IsFreeModel   bool            `gorm:"default:false" json:"is_free_model"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// UsageEvent رویداد مصرف؛ مرجع پرس‌وجوهای بازه‌ای
type UsageEvent struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	UserID       uint      `gorm:"index:idx_usage_user_plan_time" json:"user_id"`
	PlanID       uint      `gorm:"index:idx_usage_user_plan_time" json:"plan_id"`
	OccurredAt   time.Time `gorm:"index:idx_usage_user_plan_time" json:"occurred_at"`
	Messages     int64     `gorm:"default:0" json:"messages"`
	Tokens       int64     `gorm:"default:0" json:"tokens"`
	FreeMessages int64     `gorm:"default:0" json:"free_messages"`
	FreeTokens   int64     `gorm:"default:0" json:"free_tokens"`
}

// ImageGenerationUsage شمارنده تولید تصویر با ریست دوره‌ای
type ImageGenerationUsage struct {
	ID                 uint      `gorm:"primaryKey" json:"id"`
	UserID             uint      `gorm:"uniqueIndex:idx_img_user_plan" json:"user_id"`
	PlanID             uint      `gorm:"uniqueIndex:idx_img_user_plan" json:"plan_id"`
	DailyCount         int64     `gorm:"default:0" json:"daily_count"`
	WeeklyCount        int64     `gorm:"default:0" json:"weekly_count"`
	MonthlyCount       int64     `gorm:"default:0" json:"monthly_count"`
	DailyPeriodStart   time.Time `json:"daily_period_start"`
	WeeklyPeriodStart  time.Time `json:"weekly_period_start"`
	MonthlyPeriodStart time.Time `json:"monthly_period_start"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// FileUploadUsage شمارنده آپلود فایل با ریست دوره‌ای
type FileUploadUsage struct {
	ID                 uint      `gorm:"primaryKey" json:"id"`
	UserID             uint      `gorm:"uniqueIndex:idx_file_user_plan" json:"user_id"`
	PlanID             uint      `gorm:"uniqueIndex:idx_file_user_plan" json:"plan_id"`
	DailyCount         int64     `gorm:"default:0" json:"daily_count"`
	WeeklyCount        int64     `gorm:"default:0" json:"weekly_count"`
	MonthlyCount       int64     `gorm:"default:0" json:"monthly_count"`
	SessionFilesCount  int64     `gorm:"default:0" json:"session_files_count"`
	DailyPeriodStart   time.Time `json:"daily_period_start"`
	WeeklyPeriodStart  time.Time `json:"weekly_period_start"`
	MonthlyPeriodStart time.Time `json:"monthly_period_start"`
	SessionPeriodStart time.Time `json:"session_period_start"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// DefaultPlanSetting پلن پیش‌فرض ثبت‌نام و پلن جایگزین انقضا
type DefaultPlanSetting struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	SettingType string    `gorm:"uniqueIndex" json:"setting_type"` // new_user_default یا expired_fallback
	PlanID      uint      `json:"plan_id"`
	UpdatedAt   time.Time `json:"updated_at"`

	Plan Plan
}

// LimitationMessage متن قابل‌تنظیم پیام‌های محدودیت
type LimitationMessage struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	LimitType string    `gorm:"uniqueIndex" json:"limit_type"`
	Message   string    `gorm:"type:text" json:"message"`
	UpdatedAt time.Time `json:"updated_at"`
}

// GlobalSettings تنظیمات سراسری؛ تک‌رکوردی
type GlobalSettings struct {
	ID                 uint      `gorm:"primaryKey" json:"id"`
	MaxFileSizeMB      int       `gorm:"default:10" json:"max_file_size_mb"`
	MaxFilesPerMessage int       `gorm:"default:5" json:"max_files_per_message"`
	AllowedExtensions  string    `gorm:"type:text" json:"allowed_extensions"` // با کاما جدا شده
	PageSize           int       `gorm:"default:20" json:"page_size"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// OTPCode کد یکبارمصرف ورود
type OTPCode struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	PhoneNumber string    `gorm:"index" json:"phone_number"`
	Code        string    `json:"code"`
	ExpiresAt   time.Time `json:"expires_at"`
	Used        bool      `gorm:"default:false" json:"used"`
	CreatedAt   time.Time `json:"created_at"`
}

// FinancialTransaction تراکنش مالی درگاه
type FinancialTransaction struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	UserID    uint            `gorm:"index" json:"user_id"`
	PlanID    uint            `json:"plan_id"`
	Amount    decimal.Decimal `gorm:"type:decimal(14,2)" json:"amount"` // تومان
	TrackID   string          `gorm:"index" json:"track_id"`
	RefNumber string          `json:"ref_number"`
	Status    string          `gorm:"default:'pending'" json:"status"` // pending یا completed یا failed
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// BeforeSave هوک قبل از ذخیره
func (u *User) BeforeSave(tx *gorm.DB) error {
	u.UpdatedAt = time.Now()
	return nil
}

// TableName نام جدول
func (User) TableName() string {
	return "users"
}

func (Plan) TableName() string {
	return "plans"
}

func (Subscription) TableName() string {
	return "subscriptions"
}

func (AIModel) TableName() string {
	return "ai_models"
}

func (ModelAccessPolicy) TableName() string {
	return "model_access_policies"
}

func (ChatSession) TableName() string {
	return "chat_sessions"
}

func (ChatMessage) TableName() string {
	return "chat_messages"
}

func (UploadedFile) TableName() string {
	return "uploaded_files"
}

func (ChatMessageFile) TableName() string {
	return "chat_message_files"
}

func (ChatSessionUsage) TableName() string {
	return "chat_session_usage"
}

func (UsageEvent) TableName() string {
	return "usage_events"
}

func (ImageGenerationUsage) TableName() string {
	return "image_generation_usage"
}

func (FileUploadUsage) TableName() string {
	return "file_upload_usage"
}

func (DefaultPlanSetting) TableName() string {
	return "default_plan_settings"
}

func (LimitationMessage) TableName() string {
	return "limitation_messages"
}

func (GlobalSettings) TableName() string {
	return "global_settings"
}

func (OTPCode) TableName() string {
	return "otp_codes"
}

func (FinancialTransaction) TableName() string {
	return "financial_transactions"
}
