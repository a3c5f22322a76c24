package database

// انواع تنظیم پلن پیش‌فرض
const (
	SettingNewUserDefault  = "new_user_default"
	SettingExpiredFallback = "expired_fallback"
)

// انواع مدل
const (
	ModelTypeText  = "text"
	ModelTypeImage = "image"
)

// نقش‌های پیام
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// وضعیت‌های تراکنش
const (
	TxPending   = "pending"
	TxCompleted = "completed"
	TxFailed    = "failed"
)
