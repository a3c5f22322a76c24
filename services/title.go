package services

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"chatyar/database"
	"chatyar/utils"
)

// TitleService تولید خودکار عنوان جلسه از اولین پیام کاربر
type TitleService struct {
	db      *gorm.DB
	chat    *ChatService
	ai      *AIService
	quota   *QuotaService
	usage   *UsageService
	counter *TokenCounterService
}

func NewTitleService(db *gorm.DB, chat *ChatService, ai *AIService, quota *QuotaService, usage *UsageService, counter *TokenCounterService) *TitleService {
	return &TitleService{db: db, chat: chat, ai: ai, quota: quota, usage: usage, counter: counter}
}

// GenerateIfNeeded تولید عنوان وقتی جلسه هنوز عنوان ندارد و دقیقاً
// یک پیام فعال کاربر دارد؛ در غیر این صورت بدون اثر
func (s *TitleService) GenerateIfNeeded(ctx context.Context, user *database.User, session *database.ChatSession, plan *database.Plan) error {
	var current database.ChatSession
	if err := s.db.First(&current, session.ID).Error; err != nil {
		return fmt.Errorf("جلسه یافت نشد: %w", err)
	}

	if current.Title != "" && current.Title != DefaultSessionTitle {
		return nil
	}

	count, err := s.chat.EnabledUserMessageCount(session.ID)
	if err != nil || count != 1 {
		return err
	}

	var firstMessage database.ChatMessage
	if err := s.db.Where("chat_session_id = ? AND role = ? AND disabled = ?", session.ID, database.RoleUser, false).
		Order("created_at ASC").
		First(&firstMessage).Error; err != nil {
		return fmt.Errorf("پیام اول یافت نشد: %w", err)
	}

	title := s.generateTitle(ctx, user, session, plan, firstMessage.Content)
	if title == "" {
		title = FallbackTitle(firstMessage.Content)
	}

	return s.chat.SetSessionTitle(session.ID, title)
}

// generateTitle فراخوانی یک‌ضرب بالادست؛ در شکست رشته خالی برمی‌گرداند
func (s *TitleService) generateTitle(ctx context.Context, user *database.User, session *database.ChatSession, plan *database.Plan, firstMessage string) string {
	model := s.pickModel(session, plan)
	if model == nil {
		return ""
	}

	prompt := fmt.Sprintf("برای پیام زیر یک عنوان کوتاه و توصیفی حداکثر ۵ کلمه‌ای بساز و فقط خود عنوان را بنویس:\n%s", firstMessage)

	content, usage, err := s.ai.Complete(ctx, model.ModelID, []ChatRequestMessage{
		{Role: database.RoleUser, Content: prompt},
	}, 30)
	if err != nil {
		utils.LogError("title", "فراخوانی بالادست", err)
		return ""
	}

	// هزینه تولید عنوان از مسیر عادی دفتر مصرف حساب می‌شود
	var totalTokens int64
	if usage != nil {
		totalTokens = usage.TotalTokens
	} else {
		totalTokens = s.counter.Count(prompt) + s.counter.Count(content)
	}
	if err := s.usage.Append(user.ID, plan.ID, 0, totalTokens, model.IsFree); err != nil {
		utils.LogError("title", "ثبت مصرف عنوان", err)
	}
	if err := s.usage.CommitSession(session.ID, user.ID, plan.ID, totalTokens, model.IsFree, model.TokenCostMultiplier); err != nil {
		utils.LogError("title", "ثبت مصرف جلسه", err)
	}

	return SanitizeTitle(content)
}

// pickModel انتخاب مدل: مدل جاری جلسه اگر متنی و مجاز باشد،
// بعد مدل متنی رایگان فعال، بعد هر مدل متنی فعال
func (s *TitleService) pickModel(session *database.ChatSession, plan *database.Plan) *database.AIModel {
	var current database.AIModel
	if err := s.db.First(&current, session.AIModelID).Error; err == nil {
		if current.ModelType == database.ModelTypeText && current.IsActive && s.quota.HasModelAccess(plan, &current) {
			return &current
		}
	}

	var freeModel database.AIModel
	if err := s.db.Where("model_type = ? AND is_free = ? AND is_active = ?", database.ModelTypeText, true, true).
		First(&freeModel).Error; err == nil {
		return &freeModel
	}

	var anyModel database.AIModel
	if err := s.db.Where("model_type = ? AND is_active = ?", database.ModelTypeText, true).
		First(&anyModel).Error; err == nil {
		return &anyModel
	}

	return nil
}

// SanitizeTitle پاک‌سازی پاسخ بالادست: حذف گیومه‌ها و برش تا ۵۰ نویسه
func SanitizeTitle(raw string) string {
	title := strings.TrimSpace(raw)
	title = strings.Trim(title, "\"'«»“”")
	title = strings.TrimSpace(title)
	if title == "" {
		return ""
	}
	return utils.TruncateRunes(title, 50)
}

// کلیدواژه‌های تشخیص نوع پیام برای عنوان جایگزین
var (
	questionWords = []string{"آیا", "چرا", "چگونه", "چطور", "چیست", "کدام", "کجا", "کی", "؟", "?"}
	codeWords     = []string{"کد", "برنامه", "تابع", "خطا", "باگ", "کامپایل", "python", "golang", "javascript", "sql", "api"}
	helpWords     = []string{"کمک", "راهنمایی", "لطفا", "لطفاً"}
)

// FallbackTitle عنوان قطعی بدون بالادست: پیشوند بر اساس محتوای پیام
// به‌علاوه سه واژه اول، برش تا ۴۵ نویسه
func FallbackTitle(firstMessage string) string {
	lower := strings.ToLower(firstMessage)

	prefix := "گفتگو درباره "
	switch {
	case containsAny(lower, questionWords):
		prefix = "سوال درباره "
	case containsAny(lower, codeWords):
		prefix = "کمک برنامه‌نویسی "
	case containsAny(lower, helpWords):
		prefix = "درخواست کمک "
	}

	words := strings.Fields(firstMessage)
	if len(words) > 3 {
		words = words[:3]
	}

	return utils.TruncateRunes(prefix+strings.Join(words, " "), 45)
}

func containsAny(s string, keywords []string) bool {
	for _, keyword := range keywords {
		if strings.Contains(s, keyword) {
			return true
		}
	}
	return false
}
