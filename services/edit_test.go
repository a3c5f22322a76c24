package services

import (
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"chatyar/database"
)

type editFixture struct {
	db      *gorm.DB
	chat    *ChatService
	edit    *EditService
	user    *database.User
	plan    *database.Plan
	model   *database.AIModel
	session *database.ChatSession
}

func newEditFixture(t *testing.T, upstream *httptest.Server) *editFixture {
	t.Helper()
	db := newTestDB(t)

	counter := NewTokenCounterService()
	usage := NewUsageService(db)
	limits := NewLimitMessageService(db)
	settings, err := NewSettingsService(db)
	require.NoError(t, err)
	media := NewMediaQuotaService(db, settings, limits)
	subs := NewSubscriptionService(db, usage)
	quota := NewQuotaService(db, usage, limits)
	admit := NewAdmissionService(subs, quota, media, limits)
	chat := NewChatService(db, counter)
	ai := NewAIService(upstream.URL, "test-key")
	stream := NewStreamService(chat, usage, media, counter, ai, nil)
	edit := NewEditService(db, chat, admit, stream)

	user := makeUser(t, db, "09126000001")
	plan := makePlan(t, db, database.Plan{Name: "پایه", MaxTokens: 100000})
	makeSubscription(t, db, user.ID, plan, nil)
	model := makeTextModel(t, db, "edit-test", false, 1)
	grantModelAccess(t, db, model, plan)

	session, err := chat.CreateSession(user.ID, model.ID, "")
	require.NoError(t, err)

	return &editFixture{db: db, chat: chat, edit: edit, user: user, plan: plan, model: model, session: session}
}

func TestEditMessageRegeneratesFromPrefix(t *testing.T) {
	upstream := sseUpstream(t, []string{
		`{"choices":[{"delta":{"content":"پاسخ جدید"}}]}`,
		`{"choices":[],"usage":{"prompt_tokens":3,"completion_tokens":2,"total_tokens":5}}`,
	})
	defer upstream.Close()

	f := newEditFixture(t, upstream)

	target, err := f.chat.AddUserMessage(f.session.ID, "پیام اصلی", nil)
	require.NoError(t, err)
	originalTokens := target.TokenCount
	require.NoError(t, f.db.Model(&database.ChatMessage{}).Where("id = ?", target.ID).
		Update("created_at", time.Now().Add(-time.Minute)).Error)

	_, err = f.chat.AddAssistantMessage(f.session.ID, "پاسخ قدیمی", 4, nil)
	require.NoError(t, err)

	result, err := f.edit.EditMessage(context.Background(), f.user, f.session.ID, target.UUID, "پیام ویرایش‌شده",
		func(StreamEvent) error { return nil })
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.True(t, result.OK)

	// محتوا عوض شده ولی شمارش منجمد مانده است
	var after database.ChatMessage
	require.NoError(t, f.db.First(&after, target.ID).Error)
	assert.Equal(t, "پیام ویرایش‌شده", after.Content)
	assert.Equal(t, originalTokens, after.TokenCount)
	assert.NotNil(t, after.EditedAt)

	// پاسخ قدیمی از تاریخچه خارج و پاسخ جدید اضافه شده است
	history, err := f.chat.History(f.session.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "پیام ویرایش‌شده", history[0].Content)
	assert.Equal(t, "پاسخ جدید", history[1].Content)
}

func TestEditMessageTwiceSameContentSameDisabledSet(t *testing.T) {
	upstream := sseUpstream(t, []string{
		`{"choices":[{"delta":{"content":"پاسخ"}}]}`,
		`{"choices":[],"usage":{"prompt_tokens":2,"completion_tokens":1,"total_tokens":3}}`,
	})
	defer upstream.Close()

	f := newEditFixture(t, upstream)

	backdate := func(id uint, minutes int) {
		require.NoError(t, f.db.Model(&database.ChatMessage{}).Where("id = ?", id).
			Update("created_at", time.Now().Add(-time.Duration(minutes)*time.Minute)).Error)
	}

	target, err := f.chat.AddUserMessage(f.session.ID, "پیام اول", nil)
	require.NoError(t, err)
	backdate(target.ID, 4)
	reply1, err := f.chat.AddAssistantMessage(f.session.ID, "پاسخ اول", 2, nil)
	require.NoError(t, err)
	backdate(reply1.ID, 3)
	second, err := f.chat.AddUserMessage(f.session.ID, "پیام دوم", nil)
	require.NoError(t, err)
	backdate(second.ID, 2)
	reply2, err := f.chat.AddAssistantMessage(f.session.ID, "پاسخ دوم", 2, nil)
	require.NoError(t, err)
	backdate(reply2.ID, 1)

	originals := []uint{reply1.ID, second.ID, reply2.ID}
	disabledOriginals := func() []uint {
		var ids []uint
		require.NoError(t, f.db.Model(&database.ChatMessage{}).
			Where("id IN ? AND disabled = ?", originals, true).
			Order("id ASC").Pluck("id", &ids).Error)
		return ids
	}

	emit := func(StreamEvent) error { return nil }

	result, err := f.edit.EditMessage(context.Background(), f.user, f.session.ID, target.UUID, "پیام ویرایش‌شده", emit)
	require.NoError(t, err)
	require.True(t, result.OK)
	afterFirst := disabledOriginals()
	assert.Equal(t, originals, afterFirst)

	result, err = f.edit.EditMessage(context.Background(), f.user, f.session.ID, target.UUID, "پیام ویرایش‌شده", emit)
	require.NoError(t, err)
	require.True(t, result.OK)

	// ویرایش دوم با همان محتوا مجموعه غیرفعال پیام‌های اولیه را تغییر نمی‌دهد
	assert.Equal(t, afterFirst, disabledOriginals())

	var after database.ChatMessage
	require.NoError(t, f.db.First(&after, target.ID).Error)
	assert.Equal(t, "پیام ویرایش‌شده", after.Content)

	// تاریخچه فعال فقط پیام ویرایش‌شده و آخرین پاسخ بازتولیدشده است
	history, err := f.chat.History(f.session.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, target.ID, history[0].ID)
	assert.Equal(t, "پاسخ", history[1].Content)
}

func TestEditMessageOnlyUserMessages(t *testing.T) {
	upstream := sseUpstream(t, nil)
	defer upstream.Close()

	f := newEditFixture(t, upstream)

	assistant, err := f.chat.AddAssistantMessage(f.session.ID, "پاسخ", 1, nil)
	require.NoError(t, err)

	_, err = f.edit.EditMessage(context.Background(), f.user, f.session.ID, assistant.UUID, "جدید",
		func(StreamEvent) error { return nil })
	assert.Error(t, err)
}

func TestEditMessageUnknownUUID(t *testing.T) {
	upstream := sseUpstream(t, nil)
	defer upstream.Close()

	f := newEditFixture(t, upstream)

	_, err := f.edit.EditMessage(context.Background(), f.user, f.session.ID, "ناموجود", "جدید",
		func(StreamEvent) error { return nil })
	assert.Error(t, err)
}

func TestEditMessageDoesNotRecountAttachedFiles(t *testing.T) {
	upstream := sseUpstream(t, []string{
		`{"choices":[{"delta":{"content":"پاسخ"}}]}`,
		`{"choices":[],"usage":{"prompt_tokens":2,"completion_tokens":1,"total_tokens":3}}`,
	})
	defer upstream.Close()

	f := newEditFixture(t, upstream)

	path := filepath.Join(t.TempDir(), "یادداشت.txt")
	require.NoError(t, os.WriteFile(path, []byte("متن یادداشت"), 0o644))
	file := database.UploadedFile{
		UserID:    f.user.ID,
		Filename:  "یادداشت.txt",
		Path:      path,
		SizeBytes: 11,
		Extension: ".txt",
		MimeType:  "text/plain",
	}
	require.NoError(t, f.db.Create(&file).Error)

	target, err := f.chat.AddUserMessage(f.session.ID, "پیام با فایل", []uint{file.ID})
	require.NoError(t, err)
	require.NoError(t, f.db.Model(&database.ChatMessage{}).Where("id = ?", target.ID).
		Update("created_at", time.Now().Add(-time.Minute)).Error)

	// شمارش نوبت اول پیش از ویرایش انجام شده است
	media := NewMediaQuotaService(f.db, mustSettings(t, f.db), NewLimitMessageService(f.db))
	require.NoError(t, media.IncrementFiles(f.user.ID, f.plan.ID, 1))

	result, err := f.edit.EditMessage(context.Background(), f.user, f.session.ID, target.UUID, "پیام ویرایش‌شده",
		func(StreamEvent) error { return nil })
	require.NoError(t, err)
	require.True(t, result.OK)

	// بازتولید پس از ویرایش پیوست‌ها را دوباره نمی‌شمارد
	var fileUsage database.FileUploadUsage
	require.NoError(t, f.db.Where("user_id = ?", f.user.ID).First(&fileUsage).Error)
	assert.Equal(t, int64(1), fileUsage.DailyCount)
}

func TestEditMessageDeniedWhenQuotaExhausted(t *testing.T) {
	upstream := sseUpstream(t, nil)
	defer upstream.Close()

	f := newEditFixture(t, upstream)

	target, err := f.chat.AddUserMessage(f.session.ID, "پیام", nil)
	require.NoError(t, err)

	// سقف عمری را پر می‌کنیم تا پذیرش رد شود
	usage := NewUsageService(f.db)
	require.NoError(t, usage.CommitSession(f.session.ID, f.user.ID, f.plan.ID, f.plan.MaxTokens, false, decimal.NewFromInt(1)))

	result, err := f.edit.EditMessage(context.Background(), f.user, f.session.ID, target.UUID, "جدید",
		func(StreamEvent) error { return nil })
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.False(t, result.OK)
	assert.Equal(t, KindTokenLimit, result.Kind)

	// در رد شدن پذیرش هیچ تغییری روی پیام اعمال نمی‌شود
	var after database.ChatMessage
	require.NoError(t, f.db.First(&after, target.ID).Error)
	assert.Equal(t, "پیام", after.Content)
	assert.Nil(t, after.EditedAt)
}
