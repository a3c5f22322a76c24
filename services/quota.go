package services

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"chatyar/database"
)

// DefaultProspectiveTokens تخمین پیش‌فرض هزینه یک نوبت در لحظه پذیرش
const DefaultProspectiveTokens int64 = 100

// QuotaService ارزیابی سهمیه؛ در هر فراخوانی از دیتابیس می‌خواند
// و هیچ عددی را در حافظه کش نمی‌کند
type QuotaService struct {
	db       *gorm.DB
	usage    *UsageService
	messages *LimitMessageService
}

func NewQuotaService(db *gorm.DB, usage *UsageService, messages *LimitMessageService) *QuotaService {
	return &QuotaService{db: db, usage: usage, messages: messages}
}

// CheckResult نتیجه ارزیابی سهمیه
type CheckResult struct {
	OK      bool
	Kind    LimitKind
	Message string
}

func allowed() CheckResult {
	return CheckResult{OK: true}
}

func denied(kind LimitKind, message string) CheckResult {
	return CheckResult{OK: false, Kind: kind, Message: message}
}

// HasModelAccess دسترسی پلن به مدل؛ مدل‌های رایگان برای همه آزادند
func (s *QuotaService) HasModelAccess(plan *database.Plan, model *database.AIModel) bool {
	if model.IsFree {
		return true
	}

	var count int64
	s.db.Model(&database.ModelAccessPolicy{}).
		Where("ai_model_id = ? AND plan_id = ?", model.ID, plan.ID).
		Count(&count)
	return count > 0
}

// ComprehensiveCheck بررسی جامع سهمیه پیش از ارسال به سرویس بالادست.
// ترتیب بررسی‌ها ثابت است چون متن خطای هر شاخه متفاوت است.
func (s *QuotaService) ComprehensiveCheck(user *database.User, plan *database.Plan, model *database.AIModel, prospectiveTokens int64) CheckResult {
	if prospectiveTokens <= 0 {
		prospectiveTokens = DefaultProspectiveTokens
	}

	// ۱) دسترسی به مدل
	if !s.HasModelAccess(plan, model) {
		return denied(KindModelAccessDenied, s.messages.MessageFor(KindModelAccessDenied, ""))
	}

	now := time.Now()

	if model.IsFree {
		return s.checkFreeModel(user, plan, now)
	}
	return s.checkPaidModel(user, plan, prospectiveTokens, now)
}

// checkFreeModel شاخه مدل‌های رایگان؛ فقط استخر رایگان را می‌سنجد
func (s *QuotaService) checkFreeModel(user *database.User, plan *database.Plan, now time.Time) CheckResult {
	// ۲-الف) سقف عمری استخر رایگان
	if plan.MaxTokensFree > 0 {
		_, lifetimeFree, err := s.usage.LifetimeTotals(user.ID, plan.ID)
		if err != nil {
			return denied(KindGeneralLimit, s.messages.MessageFor(KindGeneralLimit, ""))
		}
		if lifetimeFree.Cmp(decimal.NewFromInt(plan.MaxTokensFree)) >= 0 {
			return denied(KindTokenLimit, s.messages.MessageFor(KindTokenLimit, msgLifetimeFreeTokens))
		}
	}

	// ۲-ب) سقف توکن هر بازه فقط با شمارنده‌های رایگان
	for _, h := range allHorizons {
		_, maxTokens := planHorizonCaps(plan, h)
		if maxTokens <= 0 {
			continue
		}
		_, freeTokens, err := s.usage.WindowFreeTotals(user.ID, plan.ID, HorizonStart(h, now), now)
		if err != nil {
			return denied(KindGeneralLimit, s.messages.MessageFor(KindGeneralLimit, ""))
		}
		if freeTokens >= maxTokens {
			return denied(horizonKind(h, true), s.messages.HorizonMessage(horizonKind(h, true), h))
		}
	}

	// ۲-ج) سهمیه ماهانه مخصوص مدل‌های رایگان
	if plan.MonthlyFreeModelMessages > 0 || plan.MonthlyFreeModelTokens > 0 {
		freeMessages, freeTokens, err := s.usage.WindowFreeTotals(user.ID, plan.ID, StartOfMonth(now), now)
		if err != nil {
			return denied(KindGeneralLimit, s.messages.MessageFor(KindGeneralLimit, ""))
		}
		if plan.MonthlyFreeModelMessages > 0 && freeMessages >= plan.MonthlyFreeModelMessages {
			return denied(KindMonthlyLimit, s.messages.MessageFor(KindMonthlyLimit, msgMonthlyFreeModel))
		}
		if plan.MonthlyFreeModelTokens > 0 && freeTokens >= plan.MonthlyFreeModelTokens {
			return denied(KindMonthlyLimit, s.messages.MessageFor(KindMonthlyLimit, msgMonthlyFreeModel))
		}
	}

	return allowed()
}

// checkPaidModel شاخه مدل‌های پولی؛ بازه‌ها با جمع پولی و رایگان سنجیده می‌شوند
func (s *QuotaService) checkPaidModel(user *database.User, plan *database.Plan, prospectiveTokens int64, now time.Time) CheckResult {
	var lifetimePaid decimal.Decimal
	if plan.MaxTokens > 0 {
		var err error
		lifetimePaid, _, err = s.usage.LifetimeTotals(user.ID, plan.ID)
		if err != nil {
			return denied(KindGeneralLimit, s.messages.MessageFor(KindGeneralLimit, ""))
		}

		// ۳) سقف عمری استخر پولی
		if lifetimePaid.Cmp(decimal.NewFromInt(plan.MaxTokens)) >= 0 {
			return denied(KindTokenLimit, s.messages.MessageFor(KindTokenLimit, msgLifetimeTokens))
		}
	}

	// بررسی بازه‌ها؛ اول تعداد پیام بعد توکن
	for _, h := range allHorizons {
		maxMessages, maxTokens := planHorizonCaps(plan, h)
		if maxMessages <= 0 && maxTokens <= 0 {
			continue
		}

		messages, tokens, err := s.usage.WindowTotals(user.ID, plan.ID, HorizonStart(h, now), now)
		if err != nil {
			return denied(KindGeneralLimit, s.messages.MessageFor(KindGeneralLimit, ""))
		}
		if maxMessages > 0 && messages >= maxMessages {
			return denied(horizonKind(h, false), s.messages.HorizonMessage(horizonKind(h, false), h))
		}
		if maxTokens > 0 && tokens >= maxTokens {
			return denied(horizonKind(h, true), s.messages.HorizonMessage(horizonKind(h, true), h))
		}
	}

	// ۴) کفایت بودجه برای هزینه تخمینی همین نوبت
	if plan.MaxTokens > 0 {
		remaining := decimal.NewFromInt(plan.MaxTokens).Sub(lifetimePaid)
		if remaining.Cmp(decimal.NewFromInt(prospectiveTokens)) < 0 {
			return denied(KindTokenLimit, s.messages.MessageFor(KindTokenLimit, msgInsufficientBudget))
		}
	}

	return allowed()
}

// planHorizonCaps سقف پیام و توکن پلن برای یک بازه؛ صفر یعنی نامحدود
func planHorizonCaps(plan *database.Plan, h Horizon) (int64, int64) {
	switch h {
	case HorizonHour:
		return plan.HourlyMaxMessages, plan.HourlyMaxTokens
	case HorizonThreeHour:
		return plan.ThreeHourMaxMessages, plan.ThreeHourMaxTokens
	case HorizonTwelveHour:
		return plan.TwelveHourMaxMessages, plan.TwelveHourMaxTokens
	case HorizonDay:
		return plan.DailyMaxMessages, plan.DailyMaxTokens
	case HorizonWeek:
		return plan.WeeklyMaxMessages, plan.WeeklyMaxTokens
	case HorizonMonth:
		return plan.MonthlyMaxMessages, plan.MonthlyMaxTokens
	}
	return 0, 0
}
