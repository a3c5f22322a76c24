package services

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"chatyar/database"
)

// سربار ثابت پیام سیستم در تخمین هزینه بازتولید
const editPromptOverhead int64 = 50

// EditService ویرایش پیام کاربر و بازتولید پاسخ دستیار
type EditService struct {
	db        *gorm.DB
	chat      *ChatService
	admission *AdmissionService
	stream    *StreamService
}

func NewEditService(db *gorm.DB, chat *ChatService, admission *AdmissionService, stream *StreamService) *EditService {
	return &EditService{db: db, chat: chat, admission: admission, stream: stream}
}

// EditMessage ویرایش یک پیام کاربر: به‌روزرسانی محتوا، غیرفعال‌سازی
// پیام‌های بعدی و بازتولید پاسخ از روی پیشوند فعال تاریخچه.
// تاریخچه قبلاً صورتحساب‌شده دوباره شارژ نمی‌شود.
func (s *EditService) EditMessage(ctx context.Context, user *database.User, sessionID uint, messageUUID, newContent string, emit EmitFunc) (*AdmissionResult, error) {
	session, err := s.chat.GetSession(sessionID, user.ID)
	if err != nil {
		return nil, err
	}

	var target database.ChatMessage
	if err := s.db.Where("uuid = ? AND chat_session_id = ?", messageUUID, session.ID).
		First(&target).Error; err != nil {
		return nil, fmt.Errorf("پیام یافت نشد: %w", err)
	}
	if target.Role != database.RoleUser {
		return nil, fmt.Errorf("فقط پیام‌های کاربر قابل ویرایش هستند")
	}

	var model database.AIModel
	if err := s.db.First(&model, session.AIModelID).Error; err != nil {
		return nil, fmt.Errorf("مدل جلسه یافت نشد: %w", err)
	}

	// پذیرش کامل با مدل جاری جلسه
	result := s.admission.ValidateAll(user, &model, nil, false)
	if !result.OK {
		return &result, nil
	}

	now := time.Now()
	if err := s.db.Model(&database.ChatMessage{}).
		Where("id = ?", target.ID).
		Updates(map[string]interface{}{
			"content":   newContent,
			"edited_at": now,
		}).Error; err != nil {
		return nil, fmt.Errorf("خطا در به‌روزرسانی پیام: %w", err)
	}
	target.Content = newContent
	target.EditedAt = &now

	// همه پیام‌های بعد از هدف از زمینه و تاریخچه خارج می‌شوند
	if err := s.chat.DisableAfter(session.ID, target.CreatedAt); err != nil {
		return nil, err
	}

	err = s.stream.StreamChatTurn(ctx, user, session, result.Plan, &model, &target, false, editPromptOverhead, emit)
	if err != nil {
		return nil, err
	}

	return &result, nil
}
