package services

import (
	"time"

	"chatyar/config"
)

// Horizon بازه زمانی سهمیه
type Horizon string

const (
	HorizonHour       Horizon = "hourly"
	HorizonThreeHour  Horizon = "three_hour"
	HorizonTwelveHour Horizon = "twelve_hour"
	HorizonDay        Horizon = "daily"
	HorizonWeek       Horizon = "weekly"
	HorizonMonth      Horizon = "monthly"
)

// allHorizons ترتیب ثابت بررسی بازه‌ها
var allHorizons = []Horizon{
	HorizonHour,
	HorizonThreeHour,
	HorizonTwelveHour,
	HorizonDay,
	HorizonWeek,
	HorizonMonth,
}

// AllHorizons ترتیب بررسی بازه‌ها از کوتاه به بلند
func AllHorizons() []Horizon {
	return allHorizons
}

// HorizonStart ابتدای بازه نسبت به لحظه داده‌شده در منطقه زمانی سرور.
// بازه‌های ساعتی لغزان هستند؛ روز و هفته و ماه از مرز تقویمی شروع می‌شوند.
func HorizonStart(h Horizon, now time.Time) time.Time {
	now = now.In(config.Location())

	switch h {
	case HorizonHour:
		return now.Add(-time.Hour)
	case HorizonThreeHour:
		return now.Add(-3 * time.Hour)
	case HorizonTwelveHour:
		return now.Add(-12 * time.Hour)
	case HorizonDay:
		return StartOfDay(now)
	case HorizonWeek:
		return StartOfWeek(now)
	case HorizonMonth:
		return StartOfMonth(now)
	}
	return now
}

// StartOfDay نیمه‌شب امروز در منطقه زمانی سرور
func StartOfDay(now time.Time) time.Time {
	now = now.In(config.Location())
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
}

// StartOfWeek دوشنبه ۰۰:۰۰ هفته جاری (هفته ISO)
func StartOfWeek(now time.Time) time.Time {
	day := StartOfDay(now)
	weekday := int(day.Weekday())
	// یکشنبه در Go صفر است؛ فاصله تا دوشنبه را حساب می‌کنیم
	offset := (weekday + 6) % 7
	return day.AddDate(0, 0, -offset)
}

// StartOfMonth اول ماه میلادی جاری
func StartOfMonth(now time.Time) time.Time {
	now = now.In(config.Location())
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
}
