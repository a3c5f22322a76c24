package services

import (
	"fmt"
	"sync/atomic"

	"gorm.io/gorm"

	"chatyar/database"
)

// SettingsService تنظیمات سراسری را به صورت snapshot نگه می‌دارد؛
// هنگام نوشتن بازخوانی می‌شود و هیچ‌وقت حین درخواست جهش پیدا نمی‌کند
type SettingsService struct {
	db      *gorm.DB
	current atomic.Value // *database.GlobalSettings
}

func NewSettingsService(db *gorm.DB) (*SettingsService, error) {
	s := &SettingsService{db: db}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload بازخوانی snapshot از دیتابیس
func (s *SettingsService) Reload() error {
	var settings database.GlobalSettings
	if err := s.db.First(&settings).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			settings = database.GlobalSettings{
				MaxFileSizeMB:      10,
				MaxFilesPerMessage: 5,
				AllowedExtensions:  ".txt,.pdf,.md,.csv,.json,.png,.jpg,.jpeg",
				PageSize:           20,
			}
			if err := s.db.Create(&settings).Error; err != nil {
				return fmt.Errorf("خطا در ایجاد تنظیمات سراسری: %w", err)
			}
		} else {
			return fmt.Errorf("خطا در خواندن تنظیمات سراسری: %w", err)
		}
	}

	s.current.Store(&settings)
	return nil
}

// Current یک کپی از snapshot جاری
func (s *SettingsService) Current() database.GlobalSettings {
	return *s.current.Load().(*database.GlobalSettings)
}

// Update ذخیره تنظیمات جدید و بازخوانی snapshot
func (s *SettingsService) Update(settings database.GlobalSettings) error {
	existing := s.Current()
	settings.ID = existing.ID

	if err := s.db.Save(&settings).Error; err != nil {
		return fmt.Errorf("خطا در ذخیره تنظیمات سراسری: %w", err)
	}
	return s.Reload()
}
