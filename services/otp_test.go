package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatyar/database"
)

// smsGateway درگاه پیامک ساختگی که درخواست‌ها را ضبط می‌کند
func smsGateway(t *testing.T, status bool, captured *[]map[string]interface{}) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if captured != nil {
			*captured = append(*captured, body)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"meta": map[string]interface{}{"status": status, "message": "ok"},
		})
	}))
}

func TestOTPRequestStoresCodeAndSendsPattern(t *testing.T) {
	db := newTestDB(t)

	var captured []map[string]interface{}
	gateway := smsGateway(t, true, &captured)
	defer gateway.Close()

	otp := NewOTPService(db, NewSMSService(gateway.URL, "test-key", "3000"))

	require.NoError(t, otp.Request(context.Background(), "+98912 345 6789"))

	var record database.OTPCode
	require.NoError(t, db.Where("phone_number = ?", "09123456789").First(&record).Error)
	assert.Len(t, record.Code, 6)
	assert.False(t, record.Used)
	assert.WithinDuration(t, time.Now().Add(5*time.Minute), record.ExpiresAt, 5*time.Second)

	require.Len(t, captured, 1)
	assert.Equal(t, "pattern", captured[0]["sending_type"])
	assert.Equal(t, "3000", captured[0]["from_number"])
}

func TestOTPRequestInvalidatesPreviousCodes(t *testing.T) {
	db := newTestDB(t)
	gateway := smsGateway(t, true, nil)
	defer gateway.Close()

	otp := NewOTPService(db, NewSMSService(gateway.URL, "test-key", "3000"))

	require.NoError(t, otp.Request(context.Background(), "09123456789"))
	require.NoError(t, otp.Request(context.Background(), "09123456789"))

	var unused int64
	require.NoError(t, db.Model(&database.OTPCode{}).
		Where("phone_number = ? AND used = ?", "09123456789", false).
		Count(&unused).Error)
	assert.Equal(t, int64(1), unused)
}

func TestOTPRequestRejectsInvalidPhone(t *testing.T) {
	db := newTestDB(t)
	gateway := smsGateway(t, true, nil)
	defer gateway.Close()

	otp := NewOTPService(db, NewSMSService(gateway.URL, "test-key", "3000"))

	assert.Error(t, otp.Request(context.Background(), "12345"))
}

func TestOTPRequestGatewayFailure(t *testing.T) {
	db := newTestDB(t)
	gateway := smsGateway(t, false, nil)
	defer gateway.Close()

	otp := NewOTPService(db, NewSMSService(gateway.URL, "test-key", "3000"))

	err := otp.Request(context.Background(), "09123456789")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "سامانه پیامکی")
}

func TestOTPVerifySingleUse(t *testing.T) {
	db := newTestDB(t)
	otp := NewOTPService(db, nil)

	record := database.OTPCode{
		PhoneNumber: "09123456789",
		Code:        "123456",
		ExpiresAt:   time.Now().Add(5 * time.Minute),
	}
	require.NoError(t, db.Create(&record).Error)

	ok, err := otp.Verify("09123456789", "123456")
	require.NoError(t, err)
	assert.True(t, ok)

	// همان کد بار دوم پذیرفته نمی‌شود
	ok, err = otp.Verify("09123456789", "123456")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestOTPVerifyNormalizesPersianDigits(t *testing.T) {
	db := newTestDB(t)
	otp := NewOTPService(db, nil)

	record := database.OTPCode{
		PhoneNumber: "09123456789",
		Code:        "123456",
		ExpiresAt:   time.Now().Add(5 * time.Minute),
	}
	require.NoError(t, db.Create(&record).Error)

	ok, err := otp.Verify("۰۹۱۲۳۴۵۶۷۸۹", "۱۲۳۴۵۶")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestOTPVerifyExpiredCode(t *testing.T) {
	db := newTestDB(t)
	otp := NewOTPService(db, nil)

	record := database.OTPCode{
		PhoneNumber: "09123456789",
		Code:        "123456",
		ExpiresAt:   time.Now().Add(-time.Minute),
	}
	require.NoError(t, db.Create(&record).Error)

	ok, err := otp.Verify("09123456789", "123456")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestOTPVerifyWrongCode(t *testing.T) {
	db := newTestDB(t)
	otp := NewOTPService(db, nil)

	ok, err := otp.Verify("09123456789", "000000")
	require.NoError(t, err)
	assert.False(t, ok)
}
