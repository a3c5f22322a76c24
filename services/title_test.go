package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeTitle(t *testing.T) {
	assert.Equal(t, "عنوان ساده", SanitizeTitle("  عنوان ساده  "))
	assert.Equal(t, "عنوان", SanitizeTitle(`"عنوان"`))
	assert.Equal(t, "عنوان", SanitizeTitle("«عنوان»"))
	assert.Equal(t, "", SanitizeTitle("  «»  "))
}

func TestSanitizeTitleTruncates(t *testing.T) {
	long := strings.Repeat("واژه ", 30)
	title := SanitizeTitle(long)
	assert.LessOrEqual(t, len([]rune(title)), 51)
	assert.True(t, strings.HasSuffix(title, "…"))
}

func TestFallbackTitleQuestion(t *testing.T) {
	title := FallbackTitle("چطور می‌توانم در پایتخت ثبت‌نام کنم؟")
	assert.True(t, strings.HasPrefix(title, "سوال درباره "))
	assert.Contains(t, title, "چطور")
}

func TestFallbackTitleCode(t *testing.T) {
	title := FallbackTitle("این کد من خطا می‌دهد لطفا بررسی کن")
	assert.True(t, strings.HasPrefix(title, "کمک برنامه‌نویسی "))
}

func TestFallbackTitleHelp(t *testing.T) {
	title := FallbackTitle("به راهنمایی شما نیاز دارم")
	assert.True(t, strings.HasPrefix(title, "درخواست کمک "))
}

func TestFallbackTitleGeneric(t *testing.T) {
	title := FallbackTitle("امروز هوا خیلی خوب بود و رفتم پارک")
	assert.True(t, strings.HasPrefix(title, "گفتگو درباره "))
	// فقط سه واژه اول پیام در عنوان می‌آید
	assert.Contains(t, title, "امروز هوا خیلی")
	assert.NotContains(t, title, "پارک")
}

func TestFallbackTitleMaxLength(t *testing.T) {
	title := FallbackTitle(strings.Repeat("کلمه‌طولانی", 20))
	assert.LessOrEqual(t, len([]rune(title)), 46)
}
