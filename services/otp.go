package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"chatyar/database"
	"chatyar/utils"
)

const otpTTL = 5 * time.Minute

// OTPService مدیریت صدور و تایید کد یکبارمصرف ورود
type OTPService struct {
	db  *gorm.DB
	sms *SMSService
}

func NewOTPService(db *gorm.DB, sms *SMSService) *OTPService {
	return &OTPService{db: db, sms: sms}
}

// Request صدور کد جدید و ارسال پیامکی؛ کدهای فعال قبلی همان شماره باطل می‌شوند
func (s *OTPService) Request(ctx context.Context, phone string) error {
	normalized := utils.NormalizePhoneNumber(phone)
	if !utils.ValidatePhoneNumber(normalized) {
		return errors.New("شماره تلفن نامعتبر است")
	}

	code, err := utils.GenerateOTPCode()
	if err != nil {
		return fmt.Errorf("خطا در تولید کد تایید: %w", err)
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&database.OTPCode{}).
			Where("phone_number = ? AND used = ?", normalized, false).
			Update("used", true).Error; err != nil {
			return err
		}

		record := database.OTPCode{
			PhoneNumber: normalized,
			Code:        code,
			ExpiresAt:   time.Now().Add(otpTTL),
		}
		return tx.Create(&record).Error
	})
	if err != nil {
		return fmt.Errorf("خطا در ثبت کد تایید: %w", err)
	}

	if err := s.sms.SendOTP(ctx, normalized, code); err != nil {
		utils.LogError("otp", "ارسال پیامک کد تایید", err)
		return err
	}

	utils.LogInfo("otp", fmt.Sprintf("کد تایید برای %s ارسال شد", normalized))
	return nil
}

// Verify بررسی کد؛ هر کد فقط یک بار قابل استفاده است
func (s *OTPService) Verify(phone, code string) (bool, error) {
	normalized := utils.NormalizePhoneNumber(phone)
	code = utils.NormalizeDigits(code)

	var record database.OTPCode
	err := s.db.Where("phone_number = ? AND code = ? AND used = ?", normalized, code, false).
		Order("created_at DESC").
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("خطا در بررسی کد تایید: %w", err)
	}

	if time.Now().After(record.ExpiresAt) {
		return false, nil
	}

	if err := s.db.Model(&record).Update("used", true).Error; err != nil {
		return false, fmt.Errorf("خطا در ابطال کد تایید: %w", err)
	}

	return true, nil
}
