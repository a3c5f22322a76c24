package database

import (
	"log"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// RunMigrations ترتیب migration مهم است: ابتدا پلن، سپس کاربر و اشتراک و مدل‌ها
func RunMigrations(db *gorm.DB) error {
	log.Println("🔄 شروع Migration جداول...")

	models := []interface{}{
		&Plan{},
		&User{},
		&Subscription{},
		&AIModel{},
		&ModelAccessPolicy{},
		&ChatSession{},
		&ChatMessage{},
		&UploadedFile{},
		&ChatMessageFile{},
		&UsageEvent{},
		&ChatSessionUsage{},
		&ImageGenerationUsage{},
		&FileUploadUsage{},
		&DefaultPlanSetting{},
		&LimitationMessage{},
		&GlobalSettings{},
		&OTPCode{},
		&FinancialTransaction{},
	}

	for _, model := range models {
		if err := db.AutoMigrate(model); err != nil {
			return err
		}
	}
	log.Println("✅ جداول ایجاد شدند")

	seedDefaults(db)

	log.Println("✅ Migration با موفقیت انجام شد")
	return nil
}

func seedDefaults(db *gorm.DB) {
	// پلن رایگان پیش‌فرض
	var freePlan Plan
	if err := db.Where("name = ?", "رایگان").First(&freePlan).Error; err == gorm.ErrRecordNotFound {
		freePlan = Plan{
			Name:                     "رایگان",
			Description:              "پلن پیش‌فرض کاربران جدید",
			Price:                    decimal.Zero,
			DurationDays:             30,
			MaxTokensFree:            100000,
			HourlyMaxMessages:        10,
			HourlyMaxTokens:          5000,
			DailyMaxMessages:         50,
			DailyMaxTokens:           20000,
			MonthlyFreeModelMessages: 500,
			MonthlyFreeModelTokens:   100000,
			DailyImageLimit:          2,
			WeeklyImageLimit:         5,
			MonthlyImageLimit:        10,
			IsActive:                 true,
		}
		db.Create(&freePlan)
		log.Println("✅ پلن رایگان ایجاد شد")
	}

	// تنظیمات پلن پیش‌فرض
	for _, settingType := range []string{SettingNewUserDefault, SettingExpiredFallback} {
		var existing DefaultPlanSetting
		if err := db.Where("setting_type = ?", settingType).First(&existing).Error; err == gorm.ErrRecordNotFound {
			db.Create(&DefaultPlanSetting{
				SettingType: settingType,
				PlanID:      freePlan.ID,
			})
		}
	}

	// تنظیمات سراسری تک‌رکوردی
	var settings GlobalSettings
	if err := db.First(&settings).Error; err == gorm.ErrRecordNotFound {
		db.Create(&GlobalSettings{
			MaxFileSizeMB:      10,
			MaxFilesPerMessage: 5,
			AllowedExtensions:  ".txt,.pdf,.md,.csv,.json,.png,.jpg,.jpeg",
			PageSize:           20,
		})
	}

	// مدل‌های پیش‌فرض
	defaultModels := []AIModel{
		{ModelID: "gpt-3.5-turbo", Name: "GPT-3.5 Turbo", ModelType: ModelTypeText, IsFree: true, IsActive: true, TokenCostMultiplier: decimal.NewFromInt(1)},
		{ModelID: "gpt-4o", Name: "GPT-4o", ModelType: ModelTypeText, IsFree: false, IsActive: true, TokenCostMultiplier: decimal.NewFromInt(3)},
		{ModelID: "dall-e-3", Name: "DALL-E 3", ModelType: ModelTypeImage, IsFree: false, IsActive: true, TokenCostMultiplier: decimal.NewFromInt(1)},
	}
	for _, m := range defaultModels {
		var existing AIModel
		if err := db.Where("model_id = ?", m.ModelID).First(&existing).Error; err == gorm.ErrRecordNotFound {
			db.Create(&m)
		}
	}
}
