package database

import (
	"fmt"
	"log"
	"strings"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// InitDatabase اتصال به دیتابیس، تنظیم pragmaهای sqlite و اجرای migrationها.
// WAL اجازه می‌دهد خواندن‌های همزمان کنار تک‌نویسنده ادامه پیدا کنند.
func InitDatabase(databasePath string) error {
	log.Printf("🔌 اتصال به دیتابیس: %s\n", databasePath)

	dsn := databasePath
	if !strings.Contains(dsn, "?") {
		dsn += "?_journal_mode=WAL&_busy_timeout=5000"
	}

	var err error
	DB, err = gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return fmt.Errorf("خطا در اتصال به دیتابیس: %w", err)
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return fmt.Errorf("خطا در دریافت DB instance: %w", err)
	}

	// sqlite یک نویسنده دارد؛ اتصال‌های زیاد فقط قفل می‌خورند
	sqlDB.SetMaxIdleConns(4)
	sqlDB.SetMaxOpenConns(8)

	if err := RunMigrations(DB); err != nil {
		return fmt.Errorf("خطا در migration: %w", err)
	}

	log.Println("✅ دیتابیس با موفقیت مقداردهی شد")
	return nil
}

func GetDB() *gorm.DB {
	return DB
}

func CloseDatabase() error {
	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
