package services

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"chatyar/config"
	"chatyar/database"
)

// newTestDB دیتابیس حافظه‌ای مستقل برای هر تست با migration و seed کامل
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	config.SetLocation(time.UTC)

	name := strings.ReplaceAll(t.Name(), "/", "_")
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, database.RunMigrations(db))
	return db
}

func makeUser(t *testing.T, db *gorm.DB, phone string) *database.User {
	t.Helper()
	user := database.User{PhoneNumber: phone, IsActive: true}
	require.NoError(t, db.Create(&user).Error)
	return &user
}

func makePlan(t *testing.T, db *gorm.DB, plan database.Plan) *database.Plan {
	t.Helper()
	plan.IsActive = true
	require.NoError(t, db.Create(&plan).Error)
	return &plan
}

func makeTextModel(t *testing.T, db *gorm.DB, modelID string, isFree bool, multiplier int64) *database.AIModel {
	t.Helper()
	model := database.AIModel{
		ModelID:             modelID,
		Name:                modelID,
		ModelType:           database.ModelTypeText,
		IsFree:              isFree,
		IsActive:            true,
		TokenCostMultiplier: decimal.NewFromInt(multiplier),
	}
	require.NoError(t, db.Create(&model).Error)
	return &model
}

func grantModelAccess(t *testing.T, db *gorm.DB, model *database.AIModel, plan *database.Plan) {
	t.Helper()
	require.NoError(t, db.Create(&database.ModelAccessPolicy{
		AIModelID: model.ID,
		PlanID:    plan.ID,
	}).Error)
}

func makeSubscription(t *testing.T, db *gorm.DB, userID uint, plan *database.Plan, endDate *time.Time) *database.Subscription {
	t.Helper()
	sub := database.Subscription{
		UserID:   userID,
		PlanID:   plan.ID,
		EndDate:  endDate,
		IsActive: true,
	}
	require.NoError(t, db.Create(&sub).Error)
	return &sub
}

func timePtr(tm time.Time) *time.Time {
	return &tm
}
