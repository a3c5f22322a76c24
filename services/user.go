package services

import (
	"fmt"

	"gorm.io/gorm"

	"chatyar/database"
	"chatyar/utils"
)

// UserService مدیریت کاربران؛ کلید هویت شماره موبایل است
type UserService struct {
	db   *gorm.DB
	subs *SubscriptionService
}

func NewUserService(db *gorm.DB, subs *SubscriptionService) *UserService {
	return &UserService{db: db, subs: subs}
}

// GetOrCreateByPhone یافتن یا ساخت کاربر؛ کاربر جدید بلافاصله
// پلن پیش‌فرض ثبت‌نام را می‌گیرد
func (s *UserService) GetOrCreateByPhone(phone string) (*database.User, error) {
	phone = utils.NormalizePhoneNumber(phone)
	if !utils.ValidatePhoneNumber(phone) {
		return nil, fmt.Errorf("شماره تلفن نامعتبر است")
	}

	var user database.User
	err := s.db.Where("phone_number = ?", phone).First(&user).Error
	if err == nil {
		return &user, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, fmt.Errorf("خطا در خواندن کاربر: %w", err)
	}

	user = database.User{
		PhoneNumber: phone,
		IsActive:    true,
	}
	if err := s.db.Create(&user).Error; err != nil {
		return nil, fmt.Errorf("خطا در ثبت‌نام: %w", err)
	}

	if _, err := s.subs.AssignDefaultPlan(user.ID); err != nil {
		return nil, err
	}

	utils.LogSuccess("user", fmt.Sprintf("کاربر جدید با شماره %s ثبت شد", phone))
	return &user, nil
}

// GetByID خواندن کاربر با شناسه
func (s *UserService) GetByID(id uint) (*database.User, error) {
	var user database.User
	if err := s.db.First(&user, id).Error; err != nil {
		return nil, fmt.Errorf("کاربر یافت نشد: %w", err)
	}
	return &user, nil
}

// GetByPhone خواندن کاربر با شماره موبایل
func (s *UserService) GetByPhone(phone string) (*database.User, error) {
	var user database.User
	if err := s.db.Where("phone_number = ?", utils.NormalizePhoneNumber(phone)).First(&user).Error; err != nil {
		return nil, fmt.Errorf("کاربر یافت نشد: %w", err)
	}
	return &user, nil
}
