package services

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"chatyar/database"
)

func admissionFixture(t *testing.T) (*AdmissionService, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)

	usage := NewUsageService(db)
	limits := NewLimitMessageService(db)
	settings, err := NewSettingsService(db)
	require.NoError(t, err)
	media := NewMediaQuotaService(db, settings, limits)
	subs := NewSubscriptionService(db, usage)
	quota := NewQuotaService(db, usage, limits)

	return NewAdmissionService(subs, quota, media, limits), db
}

func TestValidateAllWithoutSubscription(t *testing.T) {
	admit, db := admissionFixture(t)
	user := makeUser(t, db, "09128000001")

	model := makeTextModel(t, db, "admit-model", true, 1)

	result := admit.ValidateAll(user, model, nil, false)
	assert.False(t, result.OK)
	assert.Equal(t, KindSubscriptionRequired, result.Kind)
	assert.Equal(t, http.StatusForbidden, result.Status)
	assert.Nil(t, result.Plan)
}

func TestValidateAllHappyPath(t *testing.T) {
	admit, db := admissionFixture(t)
	user := makeUser(t, db, "09128000002")
	plan := makePlan(t, db, database.Plan{Name: "پذیرش", MaxTokens: 1000})
	makeSubscription(t, db, user.ID, plan, nil)
	model := makeTextModel(t, db, "admit-free", true, 1)

	result := admit.ValidateAll(user, model, nil, false)
	assert.True(t, result.OK)
	require.NotNil(t, result.Plan)
	assert.Equal(t, plan.ID, result.Plan.ID)
}

func TestValidateAllModelAccessBeforeQuota(t *testing.T) {
	admit, db := admissionFixture(t)
	user := makeUser(t, db, "09128000003")
	plan := makePlan(t, db, database.Plan{Name: "بی‌دسترسی", MaxTokens: 1000})
	makeSubscription(t, db, user.ID, plan, nil)

	// مدل پولی بدون رکورد دسترسی برای این پلن
	model := makeTextModel(t, db, "admit-paid", false, 2)

	result := admit.ValidateAll(user, model, nil, false)
	assert.False(t, result.OK)
	assert.Equal(t, KindModelAccessDenied, result.Kind)
	assert.Equal(t, http.StatusForbidden, result.Status)
}

func TestValidateAllFileRejection(t *testing.T) {
	admit, db := admissionFixture(t)
	user := makeUser(t, db, "09128000004")
	plan := makePlan(t, db, database.Plan{Name: "فایل‌دار", MaxTokens: 1000})
	makeSubscription(t, db, user.ID, plan, nil)
	model := makeTextModel(t, db, "admit-files", true, 1)

	files := []FileInfo{{Filename: "بدافزار.exe", SizeBytes: 1024}}
	result := admit.ValidateAll(user, model, files, false)
	assert.False(t, result.OK)
	assert.Equal(t, KindFileUploadLimit, result.Kind)
	assert.Equal(t, http.StatusTooManyRequests, result.Status)
}

func TestValidateAllImageQuota(t *testing.T) {
	admit, db := admissionFixture(t)
	user := makeUser(t, db, "09128000005")
	plan := makePlan(t, db, database.Plan{Name: "تصویرساز", MaxTokens: 1000, DailyImageLimit: 1})
	makeSubscription(t, db, user.ID, plan, nil)
	model := makeTextModel(t, db, "admit-image", true, 1)

	media := NewMediaQuotaService(db, mustSettings(t, db), NewLimitMessageService(db))
	require.NoError(t, media.IncrementImage(user.ID, plan.ID))

	result := admit.ValidateAll(user, model, nil, true)
	assert.False(t, result.OK)
	assert.Equal(t, KindImageGenLimit, result.Kind)

	// بدون درخواست تصویر همان کاربر پذیرفته می‌شود
	result = admit.ValidateAll(user, model, nil, false)
	assert.True(t, result.OK)
}

func mustSettings(t *testing.T, db *gorm.DB) *SettingsService {
	t.Helper()
	settings, err := NewSettingsService(db)
	require.NoError(t, err)
	return settings
}
