package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// SMSService کلاینت سامانه پیامکی برای ارسال کد یکبارمصرف
type SMSService struct {
	endpoint   string
	apiKey     string
	fromNumber string
	client     *http.Client
}

func NewSMSService(endpoint, apiKey, fromNumber string) *SMSService {
	return &SMSService{
		endpoint:   endpoint,
		apiKey:     apiKey,
		fromNumber: fromNumber,
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

type smsRequest struct {
	SendingType string            `json:"sending_type"`
	FromNumber  string            `json:"from_number"`
	Code        string            `json:"code"`
	Recipients  []string          `json:"recipients"`
	Params      map[string]string `json:"params"`
}

type smsResponse struct {
	Meta struct {
		Status  bool   `json:"status"`
		Message string `json:"message"`
	} `json:"meta"`
}

// SendOTP ارسال الگوی کد تایید؛ یک تلاش، خطای درگاه عیناً برگردانده می‌شود
func (s *SMSService) SendOTP(ctx context.Context, phone, otpCode string) error {
	payload := smsRequest{
		SendingType: "pattern",
		FromNumber:  s.fromNumber,
		Code:        otpCode,
		Recipients:  []string{phone},
		Params:      map[string]string{"code": otpCode},
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("خطا در ساخت درخواست پیامک: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("خطا در ایجاد درخواست پیامک: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("خطا در ارسال پیامک: %w", err)
	}
	defer resp.Body.Close()

	var parsed smsResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return fmt.Errorf("خطا در تجزیه پاسخ پیامک: %w", err)
	}

	// موفقیت فقط وقتی کد ۲۰۰ و وضعیت بدنه درست باشد
	if resp.StatusCode != http.StatusOK || !parsed.Meta.Status {
		return fmt.Errorf("خطای سامانه پیامکی: کد %d, پیام: %s", resp.StatusCode, parsed.Meta.Message)
	}

	return nil
}
