package services

import (
	"log"

	"github.com/pkoukk/tiktoken-go"
)

// TokenCounterService شمارش قطعی توکن متن با انکودر cl100k_base
type TokenCounterService struct {
	encoder *tiktoken.Tiktoken
}

func NewTokenCounterService() *TokenCounterService {
	encoder, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		// بدون انکودر از تخمین طول متن استفاده می‌شود
		log.Printf("⚠️ انکودر cl100k_base در دسترس نیست، تخمین طول متن فعال شد: %v", err)
		return &TokenCounterService{}
	}
	return &TokenCounterService{encoder: encoder}
}

// Count تعداد توکن‌های یک متن؛ هر ورودی حداقل ۱ شمرده می‌شود
func (s *TokenCounterService) Count(text string) int64 {
	if s.encoder == nil {
		return fallbackCount(text)
	}
	n := int64(len(s.encoder.Encode(text, nil, nil)))
	if n < 1 {
		n = 1
	}
	return n
}

// CountParts شمارش بخش‌های متنی یک پیام ساخت‌یافته؛ هزینه تصویر صفر است
// و مصرف واقعی تصویر را پاسخ usage خود سرویس بالادست گزارش می‌دهد
func (s *TokenCounterService) CountParts(parts []ContentPart) int64 {
	var total int64
	for _, part := range parts {
		if part.Type == "text" {
			total += s.Count(part.Text)
		}
	}
	return total
}

// fallbackCount تخمین یک توکن به ازای هر ۴ بایت
func fallbackCount(text string) int64 {
	n := int64(len(text)) / 4
	if n < 1 {
		n = 1
	}
	return n
}
