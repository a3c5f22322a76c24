package utils

import (
	"path/filepath"
	"regexp"
	"strings"
)

// ValidatePhoneNumber اعتبارسنجی شماره موبایل ایرانی
func ValidatePhoneNumber(phone string) bool {
	phone = strings.ReplaceAll(phone, " ", "")
	phone = strings.ReplaceAll(phone, "-", "")

	patterns := []string{
		`^09\d{9}$`,    // 09xxxxxxxxx
		`^\+989\d{9}$`, // +989xxxxxxxxx
		`^989\d{9}$`,   // 989xxxxxxxxx
	}

	for _, pattern := range patterns {
		if matched, _ := regexp.MatchString(pattern, phone); matched {
			return true
		}
	}

	return false
}

// NormalizePhoneNumber تبدیل شماره به قالب 09xxxxxxxxx
func NormalizePhoneNumber(phone string) string {
	phone = NormalizeDigits(phone)
	phone = strings.ReplaceAll(phone, " ", "")
	phone = strings.ReplaceAll(phone, "-", "")

	if strings.HasPrefix(phone, "+98") {
		phone = "0" + phone[3:]
	} else if strings.HasPrefix(phone, "98") && len(phone) == 12 {
		phone = "0" + phone[2:]
	}

	return phone
}

// ParseExtensionSet تبدیل رشته پسوندهای مجاز به مجموعه
func ParseExtensionSet(csv string) map[string]bool {
	set := make(map[string]bool)
	for _, ext := range strings.Split(csv, ",") {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		set[ext] = true
	}
	return set
}

// FileExtension پسوند فایل با حروف کوچک
func FileExtension(filename string) string {
	return strings.ToLower(filepath.Ext(filename))
}
