package services

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"mime"
	"os"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"chatyar/database"
	"chatyar/utils"
)

// DefaultSessionTitle عنوان پیش‌فرض جلسه تا وقتی عنوان خودکار ساخته شود
const DefaultSessionTitle = "گفتگوی جدید"

// ChatService مدیریت جلسات و پیام‌های گفتگو
type ChatService struct {
	db      *gorm.DB
	counter *TokenCounterService
}

func NewChatService(db *gorm.DB, counter *TokenCounterService) *ChatService {
	return &ChatService{db: db, counter: counter}
}

// CreateSession ایجاد جلسه جدید با مدل انتخابی
func (s *ChatService) CreateSession(userID, modelID uint, persona string) (*database.ChatSession, error) {
	session := database.ChatSession{
		UserID:     userID,
		AIModelID:  modelID,
		BotPersona: persona,
		Title:      DefaultSessionTitle,
		IsActive:   true,
	}

	if err := s.db.Create(&session).Error; err != nil {
		return nil, fmt.Errorf("خطا در ایجاد جلسه: %w", err)
	}
	return &session, nil
}

// GetSession خواندن جلسه متعلق به کاربر
func (s *ChatService) GetSession(sessionID, userID uint) (*database.ChatSession, error) {
	var session database.ChatSession
	if err := s.db.Preload("AIModel").
		Where("id = ? AND user_id = ?", sessionID, userID).
		First(&session).Error; err != nil {
		return nil, fmt.Errorf("جلسه یافت نشد: %w", err)
	}
	return &session, nil
}

// ListSessions فهرست جلسات کاربر با صفحه‌بندی
func (s *ChatService) ListSessions(userID uint, page, limit int) ([]database.ChatSession, int64, error) {
	var sessions []database.ChatSession
	var total int64

	s.db.Model(&database.ChatSession{}).Where("user_id = ? AND is_active = ?", userID, true).Count(&total)
	err := s.db.Where("user_id = ? AND is_active = ?", userID, true).
		Order("updated_at DESC").
		Limit(limit).Offset((page - 1) * limit).
		Find(&sessions).Error

	return sessions, total, err
}

// SetSessionModel تغییر مدل جاری جلسه
func (s *ChatService) SetSessionModel(sessionID, modelID uint) error {
	return s.db.Model(&database.ChatSession{}).
		Where("id = ?", sessionID).
		Update("ai_model_id", modelID).Error
}

// SetSessionTitle ثبت عنوان جلسه
func (s *ChatService) SetSessionTitle(sessionID uint, title string) error {
	return s.db.Model(&database.ChatSession{}).
		Where("id = ?", sessionID).
		Update("title", title).Error
}

// History پیام‌های فعال جلسه به ترتیب زمان؛ پیام‌های disabled
// نه در تاریخچه می‌آیند نه در زمینه بالادست
func (s *ChatService) History(sessionID uint) ([]database.ChatMessage, error) {
	var messages []database.ChatMessage
	err := s.db.Preload("Files.UploadedFile").
		Where("chat_session_id = ? AND disabled = ?", sessionID, false).
		Order("created_at ASC").
		Find(&messages).Error
	if err != nil {
		return nil, fmt.Errorf("خطا در خواندن تاریخچه: %w", err)
	}
	return messages, nil
}

// AddUserMessage ثبت پیام کاربر؛ token_count در لحظه ایجاد منجمد می‌شود
func (s *ChatService) AddUserMessage(sessionID uint, content string, fileIDs []uint) (*database.ChatMessage, error) {
	message := database.ChatMessage{
		UUID:          uuid.NewString(),
		ChatSessionID: sessionID,
		Role:          database.RoleUser,
		Content:       content,
		TokenCount:    s.counter.Count(content),
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&message).Error; err != nil {
			return err
		}
		for i, fileID := range fileIDs {
			link := database.ChatMessageFile{
				ChatMessageID:  message.ID,
				UploadedFileID: fileID,
				SortOrder:      i,
			}
			if err := tx.Create(&link).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("خطا در ثبت پیام کاربر: %w", err)
	}
	return &message, nil
}

// AddAssistantMessage ثبت پیام دستیار پس از اتمام جریان
func (s *ChatService) AddAssistantMessage(sessionID uint, content string, tokenCount int64, imageURLs []string) (*database.ChatMessage, error) {
	var urlsJSON string
	if len(imageURLs) > 0 {
		raw, err := json.Marshal(imageURLs)
		if err == nil {
			urlsJSON = string(raw)
		}
	}

	message := database.ChatMessage{
		UUID:          uuid.NewString(),
		ChatSessionID: sessionID,
		Role:          database.RoleAssistant,
		Content:       content,
		TokenCount:    tokenCount,
		ImageURLs:     urlsJSON,
	}

	if err := s.db.Create(&message).Error; err != nil {
		return nil, fmt.Errorf("خطا در ثبت پیام دستیار: %w", err)
	}
	return &message, nil
}

// DisableAfter غیرفعال‌سازی تمام پیام‌های جلسه که بعد از لحظه داده‌شده ایجاد شده‌اند
func (s *ChatService) DisableAfter(sessionID uint, after time.Time) error {
	err := s.db.Model(&database.ChatMessage{}).
		Where("chat_session_id = ? AND created_at > ?", sessionID, after).
		Update("disabled", true).Error
	if err != nil {
		return fmt.Errorf("خطا در غیرفعال‌سازی پیام‌ها: %w", err)
	}
	return nil
}

// EnabledUserMessageCount تعداد پیام‌های فعال کاربر در جلسه
func (s *ChatService) EnabledUserMessageCount(sessionID uint) (int64, error) {
	var count int64
	err := s.db.Model(&database.ChatMessage{}).
		Where("chat_session_id = ? AND role = ? AND disabled = ?", sessionID, database.RoleUser, false).
		Count(&count).Error
	return count, err
}

// MessageFileCount تعداد فایل‌های پیوست یک پیام
func (s *ChatService) MessageFileCount(messageID uint) (int64, error) {
	var count int64
	err := s.db.Model(&database.ChatMessageFile{}).
		Where("chat_message_id = ?", messageID).
		Count(&count).Error
	return count, err
}

// BuildUpstreamMessages ساخت پیام‌های درخواست بالادست از تاریخچه فعال.
// پیام‌های دارای فایل به فهرست بخش‌ها با آدرس data: تبدیل می‌شوند.
func (s *ChatService) BuildUpstreamMessages(session *database.ChatSession, history []database.ChatMessage) []ChatRequestMessage {
	messages := make([]ChatRequestMessage, 0, len(history)+1)

	if session.BotPersona != "" {
		messages = append(messages, ChatRequestMessage{
			Role:    database.RoleSystem,
			Content: session.BotPersona,
		})
	}

	for _, msg := range history {
		if len(msg.Files) == 0 {
			messages = append(messages, ChatRequestMessage{
				Role:    msg.Role,
				Content: msg.Content,
			})
			continue
		}

		parts := []ContentPart{{Type: "text", Text: msg.Content}}
		for _, link := range msg.Files {
			part, err := s.filePart(&link.UploadedFile)
			if err != nil {
				utils.LogError("chat", fmt.Sprintf("خواندن فایل %s", link.UploadedFile.Filename), err)
				continue
			}
			parts = append(parts, part)
		}

		messages = append(messages, ChatRequestMessage{
			Role:    msg.Role,
			Content: parts,
		})
	}

	return messages
}

// filePart تبدیل فایل آپلودشده به بخش پیام با آدرس data:
func (s *ChatService) filePart(file *database.UploadedFile) (ContentPart, error) {
	raw, err := os.ReadFile(file.Path)
	if err != nil {
		return ContentPart{}, err
	}

	mimeType := file.MimeType
	if mimeType == "" {
		mimeType = mime.TypeByExtension(file.Extension)
	}
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	dataURL := fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(raw))
	return ContentPart{
		Type:     "image_url",
		ImageURL: &ImageURL{URL: dataURL},
	}, nil
}
