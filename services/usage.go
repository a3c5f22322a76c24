package services

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"chatyar/database"
)

// UsageService دفتر مصرف؛ رویدادهای افزایشی برای پرس‌وجوی بازه‌ای
// و جمع هر جلسه برای سقف‌های عمری
type UsageService struct {
	db *gorm.DB
}

func NewUsageService(db *gorm.DB) *UsageService {
	return &UsageService{db: db}
}

// Append ثبت یک رویداد مصرف در لحظه جاری
func (s *UsageService) Append(userID, planID uint, messages, tokens int64, isFreeModel bool) error {
	return s.AppendAt(userID, planID, time.Now(), messages, tokens, isFreeModel)
}

// AppendAt ثبت رویداد مصرف؛ هر رویداد فقط یکی از دو جفت شمارنده را پر می‌کند
func (s *UsageService) AppendAt(userID, planID uint, at time.Time, messages, tokens int64, isFreeModel bool) error {
	event := database.UsageEvent{
		UserID:     userID,
		PlanID:     planID,
		OccurredAt: at,
	}

	if isFreeModel {
		event.FreeMessages = messages
		event.FreeTokens = tokens
	} else {
		event.Messages = messages
		event.Tokens = tokens
	}

	if err := s.db.Create(&event).Error; err != nil {
		return fmt.Errorf("خطا در ثبت رویداد مصرف: %w", err)
	}
	return nil
}

// WindowTotals جمع پیام و توکن (پولی + رایگان) در بازه [start, end]
func (s *UsageService) WindowTotals(userID, planID uint, start, end time.Time) (int64, int64, error) {
	var result struct {
		Messages int64
		Tokens   int64
	}

	err := s.db.Model(&database.UsageEvent{}).
		Select("COALESCE(SUM(messages + free_messages), 0) as messages, COALESCE(SUM(tokens + free_tokens), 0) as tokens").
		Where("user_id = ? AND plan_id = ? AND occurred_at BETWEEN ? AND ?", userID, planID, start, end).
		Scan(&result).Error

	if err != nil {
		return 0, 0, fmt.Errorf("خطا در جمع مصرف بازه: %w", err)
	}
	return result.Messages, result.Tokens, nil
}

// WindowFreeTotals جمع شمارنده‌های رایگان در بازه [start, end]
func (s *UsageService) WindowFreeTotals(userID, planID uint, start, end time.Time) (int64, int64, error) {
	var result struct {
		Messages int64
		Tokens   int64
	}

	err := s.db.Model(&database.UsageEvent{}).
		Select("COALESCE(SUM(free_messages), 0) as messages, COALESCE(SUM(free_tokens), 0) as tokens").
		Where("user_id = ? AND plan_id = ? AND occurred_at BETWEEN ? AND ?", userID, planID, start, end).
		Scan(&result).Error

	if err != nil {
		return 0, 0, fmt.Errorf("خطا در جمع مصرف رایگان بازه: %w", err)
	}
	return result.Messages, result.Tokens, nil
}

// LifetimeTotals جمع عمری توکن پولی و رایگان از روی chat_session_usage؛
// رویدادها فقط مرجع بازه‌ای‌اند و اینجا استفاده نمی‌شوند
func (s *UsageService) LifetimeTotals(userID, planID uint) (decimal.Decimal, decimal.Decimal, error) {
	var rows []database.ChatSessionUsage
	if err := s.db.Where("user_id = ? AND plan_id = ?", userID, planID).Find(&rows).Error; err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("خطا در جمع مصرف عمری: %w", err)
	}

	paid := decimal.Zero
	free := decimal.Zero
	for _, row := range rows {
		paid = paid.Add(row.TokensPaid)
		free = free.Add(row.TokensFree)
	}
	return paid, free, nil
}

// ResetCounters صفر کردن شمارنده‌های تمام رویدادها (با حفظ ردیف‌ها)
// و حذف ردیف‌های مصرف جلسه؛ پس از پرداخت، ارتقا و انقضا صدا زده می‌شود
func (s *UsageService) ResetCounters(userID, planID uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&database.UsageEvent{}).
			Where("user_id = ? AND plan_id = ?", userID, planID).
			Updates(map[string]interface{}{
				"messages":      0,
				"tokens":        0,
				"free_messages": 0,
				"free_tokens":   0,
			}).Error; err != nil {
			return fmt.Errorf("خطا در صفر کردن رویدادها: %w", err)
		}

		if err := tx.Where("user_id = ? AND plan_id = ?", userID, planID).
			Delete(&database.ChatSessionUsage{}).Error; err != nil {
			return fmt.Errorf("خطا در حذف مصرف جلسات: %w", err)
		}
		return nil
	})
}

// CommitSession افزایش اتمی جمع جلسه روی کلید (جلسه، کاربر، پلن).
// ضریب هزینه مدل فقط روی استخر پولی اعمال می‌شود؛ استخر رایگان خام می‌ماند.
func (s *UsageService) CommitSession(sessionID, userID, planID uint, totalTokens int64, isFreeModel bool, costMultiplier decimal.Decimal) error {
	paidInc := decimal.Zero
	freeInc := decimal.Zero

	if isFreeModel {
		freeInc = decimal.NewFromInt(totalTokens)
	} else {
		if costMultiplier.IsZero() {
			costMultiplier = decimal.NewFromInt(1)
		}
		paidInc = decimal.NewFromInt(totalTokens).Mul(costMultiplier)
	}

	usage := database.ChatSessionUsage{
		ChatSessionID: sessionID,
		UserID:        userID,
		PlanID:        planID,
		TokensPaid:    paidInc,
		TokensFree:    freeInc,
		IsFreeModel:   isFreeModel,
	}

	err := s.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "chat_session_id"},
			{Name: "user_id"},
			{Name: "plan_id"},
		},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"tokens_paid":   gorm.Expr("tokens_paid + ?", paidInc),
			"tokens_free":   gorm.Expr("tokens_free + ?", freeInc),
			"is_free_model": isFreeModel,
			"updated_at":    time.Now(),
		}),
	}).Create(&usage).Error

	if err != nil {
		return fmt.Errorf("خطا در ثبت مصرف جلسه: %w", err)
	}
	return nil
}
