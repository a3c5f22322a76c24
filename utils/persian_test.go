package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeDigits(t *testing.T) {
	assert.Equal(t, "0912345", NormalizeDigits("۰۹۱۲۳۴۵"))
	assert.Equal(t, "0912345", NormalizeDigits("٠٩١٢٣٤٥"))
	assert.Equal(t, "ک09ی", NormalizeDigits("ك۰۹ي"))
	assert.Equal(t, "hello 123", NormalizeDigits("hello 123"))
	assert.Equal(t, "", NormalizeDigits(""))
}

func TestNormalizeDigitsMixed(t *testing.T) {
	assert.Equal(t, "کد شما 123456 است", NormalizeDigits("کد شما ۱۲۳۴۵۶ است"))
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "سلام", TruncateRunes("سلام", 10))
	assert.Equal(t, "سلام", TruncateRunes("سلام", 4))

	out := TruncateRunes("سلام دنیای بزرگ", 7)
	assert.Equal(t, "سلام دن…", out)

	// فاصله انتهایی پیش از سه‌نقطه حذف می‌شود
	out = TruncateRunes("سلام دنیا", 5)
	assert.Equal(t, "سلام…", out)
}
