package services

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"chatyar/database"
	"chatyar/utils"
)

// fallbackTokenCap سقف فرضی پلن‌های بدون سقف در محاسبه اعتبار باقیمانده
const fallbackTokenCap int64 = 1_000_000

// SubscriptionService چرخه عمر اشتراک: پلن پیش‌فرض، انقضا، پرداخت و ارتقا
type SubscriptionService struct {
	db    *gorm.DB
	usage *UsageService
}

func NewSubscriptionService(db *gorm.DB, usage *UsageService) *SubscriptionService {
	return &SubscriptionService{db: db, usage: usage}
}

// AssignDefaultPlan اختصاص پلن پیش‌فرض هنگام ثبت‌نام؛ اگر اشتراک
// فعالی وجود داشته باشد کاری نمی‌کند
func (s *SubscriptionService) AssignDefaultPlan(userID uint) (*database.Subscription, error) {
	var existing database.Subscription
	err := s.db.Where("user_id = ? AND is_active = ?", userID, true).First(&existing).Error
	if err == nil {
		return &existing, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, fmt.Errorf("خطا در خواندن اشتراک: %w", err)
	}

	plan, err := s.defaultPlan(database.SettingNewUserDefault)
	if err != nil {
		return nil, err
	}

	return s.createSubscription(userID, plan)
}

// CurrentPlan پلن مؤثر کاربر؛ انقضای سررسیدشده همین‌جا به صورت تنبل اعمال می‌شود
func (s *SubscriptionService) CurrentPlan(userID uint) (*database.Plan, *database.Subscription, error) {
	var sub database.Subscription
	err := s.db.Preload("Plan").
		Where("user_id = ? AND is_active = ?", userID, true).
		Order("created_at DESC").
		First(&sub).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("خطا در خواندن اشتراک: %w", err)
	}

	if sub.EndDate != nil && !sub.EndDate.After(time.Now()) {
		newSub, err := s.expireSubscription(&sub)
		if err != nil {
			return nil, nil, err
		}
		var plan database.Plan
		if err := s.db.First(&plan, newSub.PlanID).Error; err != nil {
			return nil, nil, fmt.Errorf("خطا در خواندن پلن: %w", err)
		}
		return &plan, newSub, nil
	}

	return &sub.Plan, &sub, nil
}

// ExpireDue غیرفعال‌سازی تمام اشتراک‌های سررسیدشده و اختصاص پلن جایگزین؛
// idempotent است و می‌تواند زمان‌بندی‌شده اجرا شود
func (s *SubscriptionService) ExpireDue() error {
	var due []database.Subscription
	now := time.Now()

	if err := s.db.Where("is_active = ? AND end_date IS NOT NULL AND end_date <= ?", true, now).
		Find(&due).Error; err != nil {
		return fmt.Errorf("خطا در یافتن اشتراک‌های سررسیدشده: %w", err)
	}

	for i := range due {
		if _, err := s.expireSubscription(&due[i]); err != nil {
			utils.LogError("subscription", fmt.Sprintf("انقضای اشتراک %d", due[i].ID), err)
			continue
		}
	}

	if len(due) > 0 {
		utils.LogInfo("subscription", fmt.Sprintf("%d اشتراک منقضی شد", len(due)))
	}
	return nil
}

// expireSubscription غیرفعال‌سازی یک اشتراک و ساخت اشتراک جایگزین
func (s *SubscriptionService) expireSubscription(sub *database.Subscription) (*database.Subscription, error) {
	sub.IsActive = false
	if err := s.db.Save(sub).Error; err != nil {
		return nil, fmt.Errorf("خطا در غیرفعال‌سازی اشتراک: %w", err)
	}

	fallback, err := s.defaultPlan(database.SettingExpiredFallback)
	if err != nil {
		return nil, err
	}

	newSub, err := s.createSubscription(sub.UserID, fallback)
	if err != nil {
		return nil, err
	}

	if err := s.usage.ResetCounters(sub.UserID, fallback.ID); err != nil {
		return nil, err
	}

	return newSub, nil
}

// HandlePaymentSuccess فعال‌سازی پلن خریداری‌شده پس از تایید درگاه
func (s *SubscriptionService) HandlePaymentSuccess(userID, planID uint, txID uint, refNumber string) error {
	var plan database.Plan
	if err := s.db.First(&plan, planID).Error; err != nil {
		return fmt.Errorf("پلن یافت نشد: %w", err)
	}

	// اشتراک‌های فعال قبلی کنار گذاشته می‌شوند
	if err := s.db.Model(&database.Subscription{}).
		Where("user_id = ? AND is_active = ?", userID, true).
		Update("is_active", false).Error; err != nil {
		return fmt.Errorf("خطا در غیرفعال‌سازی اشتراک قبلی: %w", err)
	}

	if _, err := s.createSubscription(userID, &plan); err != nil {
		return err
	}

	if err := s.usage.ResetCounters(userID, plan.ID); err != nil {
		return err
	}

	if err := s.db.Model(&database.FinancialTransaction{}).
		Where("id = ?", txID).
		Updates(map[string]interface{}{
			"status":     database.TxCompleted,
			"ref_number": refNumber,
		}).Error; err != nil {
		return fmt.Errorf("خطا در تکمیل تراکنش: %w", err)
	}

	utils.LogSuccess("subscription", fmt.Sprintf("پلن %s برای کاربر %d فعال شد", plan.Name, userID))
	return nil
}

// ResidualCredit اعتبار باقیمانده اشتراک جاری بر اساس روز و توکن مصرف‌نشده.
// کل عبارت با اعشار ثابت در یک مرحله ارزیابی می‌شود تا رندینگ کنترل شود.
func (s *SubscriptionService) ResidualCredit(sub *database.Subscription, plan *database.Plan) (decimal.Decimal, error) {
	if sub == nil || plan == nil || plan.Price.IsZero() || plan.DurationDays <= 0 {
		return decimal.Zero, nil
	}

	tokenCap := plan.MaxTokens
	if tokenCap <= 0 {
		tokenCap = fallbackTokenCap
	}

	remainingDays := decimal.Zero
	if sub.EndDate != nil {
		hours := sub.EndDate.Sub(time.Now()).Hours()
		if hours > 0 {
			remainingDays = decimal.NewFromFloat(hours / 24)
		}
	}

	lifetimePaid, _, err := s.usage.LifetimeTotals(sub.UserID, plan.ID)
	if err != nil {
		return decimal.Zero, err
	}

	remainingTokens := decimal.NewFromInt(tokenCap).Sub(lifetimePaid)
	if remainingTokens.IsNegative() {
		remainingTokens = decimal.Zero
	}

	// residual = r_d × r_t × price / (duration × cap)
	residual := remainingDays.Mul(remainingTokens).Mul(plan.Price).
		Div(decimal.NewFromInt(int64(plan.DurationDays)).Mul(decimal.NewFromInt(tokenCap)))

	return residual, nil
}

// UpgradeQuote اعتبار باقیمانده و مبلغ قابل پرداخت برای ارتقا به پلن جدید
func (s *SubscriptionService) UpgradeQuote(userID uint, newPlan *database.Plan) (decimal.Decimal, decimal.Decimal, error) {
	plan, sub, err := s.CurrentPlan(userID)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}

	residual := decimal.Zero
	if plan != nil {
		residual, err = s.ResidualCredit(sub, plan)
		if err != nil {
			return decimal.Zero, decimal.Zero, err
		}
	}

	amount := newPlan.Price.Sub(residual)
	if amount.IsNegative() {
		amount = decimal.Zero
	}

	return residual, amount, nil
}

func (s *SubscriptionService) defaultPlan(settingType string) (*database.Plan, error) {
	var setting database.DefaultPlanSetting
	if err := s.db.Preload("Plan").Where("setting_type = ?", settingType).First(&setting).Error; err != nil {
		return nil, fmt.Errorf("تنظیم پلن پیش‌فرض %s یافت نشد: %w", settingType, err)
	}
	return &setting.Plan, nil
}

func (s *SubscriptionService) createSubscription(userID uint, plan *database.Plan) (*database.Subscription, error) {
	now := time.Now()
	sub := database.Subscription{
		UserID:    userID,
		PlanID:    plan.ID,
		StartDate: now,
		IsActive:  true,
	}

	// پلن‌های رایگان تاریخ پایان ندارند
	if !plan.Price.IsZero() {
		end := now.AddDate(0, 0, plan.DurationDays)
		sub.EndDate = &end
	}

	if err := s.db.Create(&sub).Error; err != nil {
		return nil, fmt.Errorf("خطا در ایجاد اشتراک: %w", err)
	}
	return &sub, nil
}
