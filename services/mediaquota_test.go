package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"chatyar/database"
)

func mediaFixture(t *testing.T) (*MediaQuotaService, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	settings, err := NewSettingsService(db)
	require.NoError(t, err)
	return NewMediaQuotaService(db, settings, NewLimitMessageService(db)), db
}

func TestCheckImageDailyCap(t *testing.T) {
	media, db := mediaFixture(t)
	user := makeUser(t, db, "09122000001")
	plan := makePlan(t, db, database.Plan{Name: "پایه", DailyImageLimit: 2})

	result, err := media.CheckImage(user, plan)
	require.NoError(t, err)
	assert.True(t, result.OK)

	require.NoError(t, media.IncrementImage(user.ID, plan.ID))
	require.NoError(t, media.IncrementImage(user.ID, plan.ID))

	result, err = media.CheckImage(user, plan)
	require.NoError(t, err)
	assert.False(t, result.OK)
	assert.Equal(t, KindImageGenLimit, result.Kind)
	assert.Contains(t, result.Message, "روزانه")
}

func TestCheckImageRolloverResetsExpiredPeriod(t *testing.T) {
	media, db := mediaFixture(t)
	user := makeUser(t, db, "09122000002")
	plan := makePlan(t, db, database.Plan{Name: "پایه", DailyImageLimit: 2})

	require.NoError(t, media.IncrementImage(user.ID, plan.ID))
	require.NoError(t, media.IncrementImage(user.ID, plan.ID))

	// دوره روزانه را به دیروز برمی‌گردانیم؛ بررسی بعدی باید صفرش کند
	require.NoError(t, db.Model(&database.ImageGenerationUsage{}).
		Where("user_id = ?", user.ID).
		Update("daily_period_start", StartOfDay(time.Now()).AddDate(0, 0, -1)).Error)

	result, err := media.CheckImage(user, plan)
	require.NoError(t, err)
	assert.True(t, result.OK)

	var usage database.ImageGenerationUsage
	require.NoError(t, db.Where("user_id = ?", user.ID).First(&usage).Error)
	assert.Zero(t, usage.DailyCount)
	// شمارنده هفتگی دست نمی‌خورد
	assert.Equal(t, int64(2), usage.WeeklyCount)
}

func TestCheckImageZeroLimitUnlimited(t *testing.T) {
	media, db := mediaFixture(t)
	user := makeUser(t, db, "09122000003")
	plan := makePlan(t, db, database.Plan{Name: "نامحدود"})

	for i := 0; i < 5; i++ {
		require.NoError(t, media.IncrementImage(user.ID, plan.ID))
	}

	result, err := media.CheckImage(user, plan)
	require.NoError(t, err)
	assert.True(t, result.OK)
}

func TestValidateFilesGlobalSizeLimit(t *testing.T) {
	media, db := mediaFixture(t)
	user := makeUser(t, db, "09122000004")
	plan := makePlan(t, db, database.Plan{Name: "پایه"})

	// سقف سراسری seed شده ۱۰ مگابایت است
	files := []FileInfo{{Filename: "بزرگ.pdf", SizeBytes: 11 * 1024 * 1024}}
	result, err := media.ValidateFiles(user, plan, files)
	require.NoError(t, err)
	assert.False(t, result.OK)
	assert.Equal(t, KindFileUploadLimit, result.Kind)
	assert.Contains(t, result.Message, "بزرگ.pdf")
}

func TestValidateFilesGlobalExtension(t *testing.T) {
	media, db := mediaFixture(t)
	user := makeUser(t, db, "09122000005")
	plan := makePlan(t, db, database.Plan{Name: "پایه"})

	result, err := media.ValidateFiles(user, plan, []FileInfo{{Filename: "script.exe", SizeBytes: 10}})
	require.NoError(t, err)
	assert.False(t, result.OK)
	assert.Contains(t, result.Message, "script.exe")

	result, err = media.ValidateFiles(user, plan, []FileInfo{{Filename: "سند.pdf", SizeBytes: 10}})
	require.NoError(t, err)
	assert.True(t, result.OK)
}

func TestValidateFilesPlanStricterThanGlobal(t *testing.T) {
	media, db := mediaFixture(t)
	user := makeUser(t, db, "09122000006")
	plan := makePlan(t, db, database.Plan{
		Name:               "محدود",
		MaxFilesPerMessage: 1,
	})

	files := []FileInfo{
		{Filename: "a.txt", SizeBytes: 10},
		{Filename: "b.txt", SizeBytes: 10},
	}
	result, err := media.ValidateFiles(user, plan, files)
	require.NoError(t, err)
	assert.False(t, result.OK)
	assert.Equal(t, KindFileUploadLimit, result.Kind)
}

func TestValidateFilesDailyWindowCount(t *testing.T) {
	media, db := mediaFixture(t)
	user := makeUser(t, db, "09122000007")
	plan := makePlan(t, db, database.Plan{Name: "پایه", DailyFileLimit: 3})

	require.NoError(t, media.IncrementFiles(user.ID, plan.ID, 2))

	// دو فایل دیگر از سقف سه‌تایی عبور می‌کند
	files := []FileInfo{
		{Filename: "a.txt", SizeBytes: 10},
		{Filename: "b.txt", SizeBytes: 10},
	}
	result, err := media.ValidateFiles(user, plan, files)
	require.NoError(t, err)
	assert.False(t, result.OK)

	// یک فایل هنوز جا دارد
	result, err = media.ValidateFiles(user, plan, files[:1])
	require.NoError(t, err)
	assert.True(t, result.OK)
}

func TestValidateFilesEmptyListAllowed(t *testing.T) {
	media, db := mediaFixture(t)
	user := makeUser(t, db, "09122000008")
	plan := makePlan(t, db, database.Plan{Name: "پایه"})

	result, err := media.ValidateFiles(user, plan, nil)
	require.NoError(t, err)
	assert.True(t, result.OK)
}
