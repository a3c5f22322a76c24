package services

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"chatyar/database"
	"chatyar/utils"
)

// MediaQuotaService سهمیه تولید تصویر و آپلود فایل با شمارنده‌های
// خودریست‌شونده در مرز هر دوره
type MediaQuotaService struct {
	db       *gorm.DB
	settings *SettingsService
	messages *LimitMessageService
}

func NewMediaQuotaService(db *gorm.DB, settings *SettingsService, messages *LimitMessageService) *MediaQuotaService {
	return &MediaQuotaService{db: db, settings: settings, messages: messages}
}

// FileInfo مشخصات فایل ارسالی برای اعتبارسنجی
type FileInfo struct {
	Filename  string
	SizeBytes int64
}

// CheckImage بررسی سهمیه تولید تصویر؛ قبل از هر مقایسه شمارنده‌های
// دوره‌های سپری‌شده صفر می‌شوند
func (s *MediaQuotaService) CheckImage(user *database.User, plan *database.Plan) (CheckResult, error) {
	now := time.Now()

	usage, err := s.getOrCreateImageUsage(user.ID, plan.ID, now)
	if err != nil {
		return CheckResult{}, err
	}

	s.rolloverImage(usage, now)
	if err := s.db.Save(usage).Error; err != nil {
		return CheckResult{}, fmt.Errorf("خطا در ذخیره شمارنده تصویر: %w", err)
	}

	type imageCap struct {
		horizon Horizon
		limit   int64
		count   int64
	}
	caps := []imageCap{
		{HorizonDay, plan.DailyImageLimit, usage.DailyCount},
		{HorizonWeek, plan.WeeklyImageLimit, usage.WeeklyCount},
		{HorizonMonth, plan.MonthlyImageLimit, usage.MonthlyCount},
	}

	for _, c := range caps {
		if c.limit > 0 && c.count >= c.limit {
			return denied(KindImageGenLimit, s.messages.HorizonMessage(KindImageGenLimit, c.horizon)), nil
		}
	}

	return allowed(), nil
}

// IncrementImage افزایش هر سه شمارنده پس از تولید موفق تصویر
func (s *MediaQuotaService) IncrementImage(userID, planID uint) error {
	now := time.Now()

	usage, err := s.getOrCreateImageUsage(userID, planID, now)
	if err != nil {
		return err
	}

	s.rolloverImage(usage, now)
	usage.DailyCount++
	usage.WeeklyCount++
	usage.MonthlyCount++

	if err := s.db.Save(usage).Error; err != nil {
		return fmt.Errorf("خطا در افزایش شمارنده تصویر: %w", err)
	}
	return nil
}

func (s *MediaQuotaService) getOrCreateImageUsage(userID, planID uint, now time.Time) (*database.ImageGenerationUsage, error) {
	var usage database.ImageGenerationUsage
	err := s.db.Where("user_id = ? AND plan_id = ?", userID, planID).First(&usage).Error
	if err == gorm.ErrRecordNotFound {
		usage = database.ImageGenerationUsage{
			UserID:             userID,
			PlanID:             planID,
			DailyPeriodStart:   StartOfDay(now),
			WeeklyPeriodStart:  StartOfWeek(now),
			MonthlyPeriodStart: StartOfMonth(now),
		}
		if err := s.db.Create(&usage).Error; err != nil {
			return nil, fmt.Errorf("خطا در ایجاد شمارنده تصویر: %w", err)
		}
		return &usage, nil
	}
	if err != nil {
		return nil, fmt.Errorf("خطا در خواندن شمارنده تصویر: %w", err)
	}
	return &usage, nil
}

// rolloverImage صفر کردن شمارنده هر دوره‌ای که مرزش رد شده است
func (s *MediaQuotaService) rolloverImage(usage *database.ImageGenerationUsage, now time.Time) {
	if day := StartOfDay(now); day.After(usage.DailyPeriodStart) {
		usage.DailyCount = 0
		usage.DailyPeriodStart = day
	}
	if week := StartOfWeek(now); week.After(usage.WeeklyPeriodStart) {
		usage.WeeklyCount = 0
		usage.WeeklyPeriodStart = week
	}
	if month := StartOfMonth(now); month.After(usage.MonthlyPeriodStart) {
		usage.MonthlyCount = 0
		usage.MonthlyPeriodStart = month
	}
}

// ValidateFiles اعتبارسنجی فایل‌های یک پیام؛ اول سیاست سراسری
// بعد سیاست سخت‌گیرانه‌تر پلن
func (s *MediaQuotaService) ValidateFiles(user *database.User, plan *database.Plan, files []FileInfo) (CheckResult, error) {
	if len(files) == 0 {
		return allowed(), nil
	}

	// سیاست سراسری؛ یک بار در هر درخواست خوانده می‌شود
	global := s.settings.Current()
	globalExts := utils.ParseExtensionSet(global.AllowedExtensions)

	if global.MaxFilesPerMessage > 0 && len(files) > global.MaxFilesPerMessage {
		detail := fmt.Sprintf("حداکثر %d فایل در هر پیام مجاز است", global.MaxFilesPerMessage)
		return denied(KindFileUploadLimit, s.messages.FileMessage(detail)), nil
	}

	for _, f := range files {
		if global.MaxFileSizeMB > 0 && f.SizeBytes > int64(global.MaxFileSizeMB)*1024*1024 {
			detail := fmt.Sprintf("حجم فایل %s بیش از %d مگابایت است", f.Filename, global.MaxFileSizeMB)
			return denied(KindFileUploadLimit, s.messages.FileMessage(detail)), nil
		}
		if len(globalExts) > 0 && !globalExts[utils.FileExtension(f.Filename)] {
			detail := fmt.Sprintf("پسوند فایل %s مجاز نیست", f.Filename)
			return denied(KindFileUploadLimit, s.messages.FileMessage(detail)), nil
		}
	}

	// سیاست پلن
	if plan.MaxFilesPerMessage > 0 && len(files) > plan.MaxFilesPerMessage {
		detail := fmt.Sprintf("پلن شما حداکثر %d فایل در هر پیام اجازه می‌دهد", plan.MaxFilesPerMessage)
		return denied(KindFileUploadLimit, s.messages.FileMessage(detail)), nil
	}

	planExts := utils.ParseExtensionSet(plan.AllowedExtensions)
	for _, f := range files {
		if plan.MaxFileSizeMB > 0 && f.SizeBytes > int64(plan.MaxFileSizeMB)*1024*1024 {
			detail := fmt.Sprintf("حجم فایل %s بیش از %d مگابایت مجاز پلن شماست", f.Filename, plan.MaxFileSizeMB)
			return denied(KindFileUploadLimit, s.messages.FileMessage(detail)), nil
		}
		if len(planExts) > 0 && !planExts[utils.FileExtension(f.Filename)] {
			detail := fmt.Sprintf("پسوند فایل %s در پلن شما مجاز نیست", f.Filename)
			return denied(KindFileUploadLimit, s.messages.FileMessage(detail)), nil
		}
	}

	// شمارنده‌های بازه‌ای آپلود
	now := time.Now()
	usage, err := s.getOrCreateFileUsage(user.ID, plan.ID, now)
	if err != nil {
		return CheckResult{}, err
	}

	s.rolloverFiles(usage, now)
	if err := s.db.Save(usage).Error; err != nil {
		return CheckResult{}, fmt.Errorf("خطا در ذخیره شمارنده فایل: %w", err)
	}

	n := int64(len(files))
	type fileCap struct {
		limit  int64
		count  int64
		detail string
	}
	caps := []fileCap{
		{plan.DailyFileLimit, usage.DailyCount, "سقف آپلود روزانه شما به پایان رسیده است"},
		{plan.WeeklyFileLimit, usage.WeeklyCount, "سقف آپلود هفتگی شما به پایان رسیده است"},
		{plan.MonthlyFileLimit, usage.MonthlyCount, "سقف آپلود ماهانه شما به پایان رسیده است"},
		{plan.SessionFileLimit, usage.SessionFilesCount, "سقف آپلود این دوره شما به پایان رسیده است"},
	}
	for _, c := range caps {
		if c.limit > 0 && c.count+n > c.limit {
			return denied(KindFileUploadLimit, s.messages.FileMessage(c.detail)), nil
		}
	}

	return allowed(), nil
}

// IncrementFiles افزایش شمارنده‌های آپلود پس از ثبت موفق پیام
func (s *MediaQuotaService) IncrementFiles(userID, planID uint, count int) error {
	if count <= 0 {
		return nil
	}

	now := time.Now()
	usage, err := s.getOrCreateFileUsage(userID, planID, now)
	if err != nil {
		return err
	}

	s.rolloverFiles(usage, now)
	usage.DailyCount += int64(count)
	usage.WeeklyCount += int64(count)
	usage.MonthlyCount += int64(count)
	usage.SessionFilesCount += int64(count)

	if err := s.db.Save(usage).Error; err != nil {
		return fmt.Errorf("خطا در افزایش شمارنده فایل: %w", err)
	}
	return nil
}

func (s *MediaQuotaService) getOrCreateFileUsage(userID, planID uint, now time.Time) (*database.FileUploadUsage, error) {
	var usage database.FileUploadUsage
	err := s.db.Where("user_id = ? AND plan_id = ?", userID, planID).First(&usage).Error
	if err == gorm.ErrRecordNotFound {
		usage = database.FileUploadUsage{
			UserID:             userID,
			PlanID:             planID,
			DailyPeriodStart:   StartOfDay(now),
			WeeklyPeriodStart:  StartOfWeek(now),
			MonthlyPeriodStart: StartOfMonth(now),
			SessionPeriodStart: StartOfDay(now),
		}
		if err := s.db.Create(&usage).Error; err != nil {
			return nil, fmt.Errorf("خطا در ایجاد شمارنده فایل: %w", err)
		}
		return &usage, nil
	}
	if err != nil {
		return nil, fmt.Errorf("خطا در خواندن شمارنده فایل: %w", err)
	}
	return &usage, nil
}

func (s *MediaQuotaService) rolloverFiles(usage *database.FileUploadUsage, now time.Time) {
	if day := StartOfDay(now); day.After(usage.DailyPeriodStart) {
		usage.DailyCount = 0
		usage.DailyPeriodStart = day
	}
	if week := StartOfWeek(now); week.After(usage.WeeklyPeriodStart) {
		usage.WeeklyCount = 0
		usage.WeeklyPeriodStart = week
	}
	if month := StartOfMonth(now); month.After(usage.MonthlyPeriodStart) {
		usage.MonthlyCount = 0
		usage.MonthlyPeriodStart = month
	}
	if day := StartOfDay(now); day.After(usage.SessionPeriodStart) {
		usage.SessionFilesCount = 0
		usage.SessionPeriodStart = day
	}
}
