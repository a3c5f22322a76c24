package utils

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

// digitMapper ارقام فارسی و عربی را به لاتین تبدیل می‌کند
var digitMapper = runes.Map(func(r rune) rune {
	switch {
	case r >= '۰' && r <= '۹': // ارقام فارسی
		return '0' + (r - '۰')
	case r >= '٠' && r <= '٩': // ارقام عربی
		return '0' + (r - '٠')
	case r == 'ي':
		return 'ی'
	case r == 'ك':
		return 'ک'
	}
	return r
})

// NormalizeDigits یکسان‌سازی ارقام و حروف عربی ورودی کاربر
func NormalizeDigits(s string) string {
	out, _, err := transform.String(digitMapper, s)
	if err != nil {
		return s
	}
	return out
}

// TruncateRunes برش امن رشته روی مرز رون با افزودن سه‌نقطه
func TruncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	r := []rune(s)
	return strings.TrimSpace(string(r[:max])) + "…"
}
