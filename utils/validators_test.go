package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidatePhoneNumber(t *testing.T) {
	valid := []string{
		"09123456789",
		"+989123456789",
		"989123456789",
		"0912 345 6789",
		"0912-345-6789",
	}
	for _, phone := range valid {
		assert.True(t, ValidatePhoneNumber(phone), phone)
	}

	invalid := []string{
		"",
		"0912345678",    // کوتاه
		"091234567890",  // بلند
		"08123456789",   // پیش‌شماره اشتباه
		"9123456789",
		"+98912345678a",
	}
	for _, phone := range invalid {
		assert.False(t, ValidatePhoneNumber(phone), phone)
	}
}

func TestNormalizePhoneNumber(t *testing.T) {
	assert.Equal(t, "09123456789", NormalizePhoneNumber("+989123456789"))
	assert.Equal(t, "09123456789", NormalizePhoneNumber("989123456789"))
	assert.Equal(t, "09123456789", NormalizePhoneNumber("0912 345-6789"))
	assert.Equal(t, "09123456789", NormalizePhoneNumber("۰۹۱۲۳۴۵۶۷۸۹"))
	assert.Equal(t, "09123456789", NormalizePhoneNumber("09123456789"))
}

func TestParseExtensionSet(t *testing.T) {
	set := ParseExtensionSet(".txt, .PDF ,md,, .jpg")
	assert.True(t, set[".txt"])
	assert.True(t, set[".pdf"])
	assert.True(t, set[".md"])
	assert.True(t, set[".jpg"])
	assert.False(t, set[".exe"])
	assert.Len(t, set, 4)

	assert.Empty(t, ParseExtensionSet(""))
}

func TestFileExtension(t *testing.T) {
	assert.Equal(t, ".pdf", FileExtension("گزارش.PDF"))
	assert.Equal(t, ".txt", FileExtension("a.b.txt"))
	assert.Equal(t, "", FileExtension("README"))
}
