package services

import (
	"context"
	"fmt"
	"io"

	"chatyar/database"
	"chatyar/utils"
)

// StreamEvent رویداد قابل ارسال به کلاینت حین جریان
type StreamEvent struct {
	Type   string      `json:"type"` // text یا images
	Text   string      `json:"text,omitempty"`
	Images []ImageItem `json:"images,omitempty"`
}

// EmitFunc ارسال یک رویداد به کلاینت؛ خطا یعنی قطع اتصال کلاینت
type EmitFunc func(event StreamEvent) error

// StreamService پراکسی جریانی: درخواست را به بالادست می‌فرستد،
// بلوک‌های نشانگر را جدا می‌کند و در پایان مصرف را ثبت می‌کند
type StreamService struct {
	chat    *ChatService
	usage   *UsageService
	media   *MediaQuotaService
	counter *TokenCounterService
	ai      *AIService
	title   *TitleService
}

func NewStreamService(chat *ChatService, usage *UsageService, media *MediaQuotaService, counter *TokenCounterService, ai *AIService, title *TitleService) *StreamService {
	return &StreamService{
		chat:    chat,
		usage:   usage,
		media:   media,
		counter: counter,
		ai:      ai,
		title:   title,
	}
}

// assistantDraft پیام در حال ساخت دستیار؛ نهایی‌سازی آن در defer تضمین
// می‌کند ثبت پیام و مصرف در هر مسیر خروج اجرا شود
type assistantDraft struct {
	content     string
	imageURLs   []string
	usage       *UsageData
	promptExtra int64
	finalized   bool
}

// StreamChatTurn اجرای یک نوبت گفتگو. پیام کاربر باید از قبل ثبت شده باشد.
// در قطع اتصال کلاینت جریان بالادست رها نمی‌شود و مصرف از دست نمی‌رود.
func (s *StreamService) StreamChatTurn(ctx context.Context, user *database.User, session *database.ChatSession, plan *database.Plan, model *database.AIModel, userMessage *database.ChatMessage, wantsImage bool, promptExtra int64, emit EmitFunc) error {
	history, err := s.chat.History(session.ID)
	if err != nil {
		return err
	}

	request := ChatRequest{
		Model:    model.ModelID,
		Messages: s.chat.BuildUpstreamMessages(session, history),
	}
	if wantsImage {
		request.Modalities = []string{"image", "text"}
	}

	// جریان بالادست به زمینه کلاینت گره نمی‌خورد؛ لغو زمینه وسط جریان
	// بلوک مصرف انتهایی را از دست می‌داد. خطای قبل از اولین بایت خطای
	// سرور است و چیزی ثبت نمی‌شود
	body, err := s.ai.StreamChat(context.WithoutCancel(ctx), request)
	if err != nil {
		return err
	}
	defer body.Close()

	draft := &assistantDraft{promptExtra: promptExtra}
	defer s.finalize(draft, user, session, plan, model, userMessage, wantsImage)

	parser := NewMarkerParser()
	buf := make([]byte, 4096)
	clientGone := false
	var streamErr error

	for {
		n, readErr := body.Read(buf)
		if n > 0 {
			result := parser.Feed(buf[:n])

			if result.Text != "" {
				draft.content += result.Text
				if !clientGone {
					if err := emit(StreamEvent{Type: "text", Text: result.Text}); err != nil {
						clientGone = true
					}
				}
			}

			// تصاویر بلافاصله ارسال می‌شوند تا کلاینت رندر جزئی داشته باشد
			for _, images := range result.Images {
				for _, img := range images.Images {
					if img.URL != "" {
						draft.imageURLs = append(draft.imageURLs, img.URL)
					}
				}
				if !clientGone {
					if err := emit(StreamEvent{Type: "images", Images: images.Images}); err != nil {
						clientGone = true
					}
				}
			}
		}

		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			// خطای میانه جریان؛ محتوای جزئی همچنان ثبت می‌شود
			streamErr = fmt.Errorf("خطا در میانه جریان: %w", readErr)
			break
		}
	}

	draft.content += parser.Flush()
	draft.usage = parser.Usage()

	return streamErr
}

// finalize ثبت پیام دستیار و مصرف؛ در هر مسیر خروج اجرا می‌شود
func (s *StreamService) finalize(draft *assistantDraft, user *database.User, session *database.ChatSession, plan *database.Plan, model *database.AIModel, userMessage *database.ChatMessage, wantsImage bool) {
	if draft.finalized {
		return
	}
	draft.finalized = true

	if draft.content == "" && len(draft.imageURLs) == 0 {
		return
	}

	// مصرف گزارش‌شده بالادست مرجع است؛ وگرنه بازشماری محلی
	var completionTokens, totalTokens int64
	if draft.usage != nil {
		completionTokens = draft.usage.CompletionTokens
		totalTokens = draft.usage.TotalTokens
	} else {
		promptTokens := s.counter.Count(userMessage.Content) + draft.promptExtra
		completionTokens = s.counter.Count(draft.content)
		totalTokens = promptTokens + completionTokens
	}

	if _, err := s.chat.AddAssistantMessage(session.ID, draft.content, completionTokens, draft.imageURLs); err != nil {
		utils.LogError("stream", "ثبت پیام دستیار", err)
	}

	// جفت پیام کاربر و دستیار؛ دو پیام در یک رویداد
	if err := s.usage.Append(user.ID, plan.ID, 2, totalTokens, model.IsFree); err != nil {
		utils.LogError("stream", "ثبت رویداد مصرف", err)
	}

	if err := s.usage.CommitSession(session.ID, user.ID, plan.ID, totalTokens, model.IsFree, model.TokenCostMultiplier); err != nil {
		utils.LogError("stream", "ثبت مصرف جلسه", err)
	}

	if wantsImage && len(draft.imageURLs) > 0 {
		if err := s.media.IncrementImage(user.ID, plan.ID); err != nil {
			utils.LogError("stream", "افزایش شمارنده تصویر", err)
		}
	}

	// شمارنده فایل فقط برای نوبت تازه؛ پیوست‌های پیام ویرایش‌شده
	// در نوبت اول شمرده شده‌اند
	if userMessage.EditedAt == nil {
		if n, err := s.chat.MessageFileCount(userMessage.ID); err != nil {
			utils.LogError("stream", "شمارش فایل‌های پیام", err)
		} else if n > 0 {
			if err := s.media.IncrementFiles(user.ID, plan.ID, int(n)); err != nil {
				utils.LogError("stream", "افزایش شمارنده فایل", err)
			}
		}
	}

	if s.title != nil {
		if err := s.title.GenerateIfNeeded(context.Background(), user, session, plan); err != nil {
			utils.LogError("stream", "تولید عنوان", err)
		}
	}
}
