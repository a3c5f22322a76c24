package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"chatyar/config"
)

func TestHorizonStartSlidingWindows(t *testing.T) {
	config.SetLocation(time.UTC)
	now := time.Date(2025, 3, 10, 14, 30, 0, 0, time.UTC)

	assert.Equal(t, now.Add(-time.Hour), HorizonStart(HorizonHour, now))
	assert.Equal(t, now.Add(-3*time.Hour), HorizonStart(HorizonThreeHour, now))
	assert.Equal(t, now.Add(-12*time.Hour), HorizonStart(HorizonTwelveHour, now))
}

func TestStartOfDay(t *testing.T) {
	config.SetLocation(time.UTC)
	now := time.Date(2025, 3, 10, 23, 59, 59, 0, time.UTC)

	assert.Equal(t, time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), StartOfDay(now))
}

func TestStartOfWeekIsMonday(t *testing.T) {
	config.SetLocation(time.UTC)

	// شنبه ۲۰۲۵/۰۳/۱۵؛ دوشنبه همان هفته ۲۰۲۵/۰۳/۱۰ است
	saturday := time.Date(2025, 3, 15, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), StartOfWeek(saturday))

	// خود دوشنبه باید به نیمه‌شب همان روز برگردد
	monday := time.Date(2025, 3, 10, 18, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), StartOfWeek(monday))

	// یکشنبه به دوشنبه هفته قبل برمی‌گردد
	sunday := time.Date(2025, 3, 16, 1, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), StartOfWeek(sunday))
}

func TestStartOfMonth(t *testing.T) {
	config.SetLocation(time.UTC)
	now := time.Date(2025, 3, 31, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), StartOfMonth(now))
}

func TestHorizonStartRespectsConfiguredTimezone(t *testing.T) {
	tehran, err := time.LoadLocation("Asia/Tehran")
	if err != nil {
		t.Skip("منطقه زمانی Asia/Tehran در دسترس نیست")
	}
	config.SetLocation(tehran)
	defer config.SetLocation(time.UTC)

	// ساعت ۲۲:۰۰ UTC یعنی بعد از نیمه‌شب تهران؛ مرز روز باید مرز تهران باشد
	now := time.Date(2025, 3, 10, 22, 0, 0, 0, time.UTC)
	start := StartOfDay(now)

	assert.Equal(t, tehran.String(), start.Location().String())
	assert.Equal(t, 11, start.Day())
	assert.Equal(t, 0, start.Hour())
}

func TestAllHorizonsOrder(t *testing.T) {
	expected := []Horizon{HorizonHour, HorizonThreeHour, HorizonTwelveHour, HorizonDay, HorizonWeek, HorizonMonth}
	assert.Equal(t, expected, AllHorizons())
}
