// Package dbtest opens throwaway SQLite databases for tests.
package dbtest

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/JonasLeetTheWay/eventreg-go/internal/auth"
	"github.com/JonasLeetTheWay/eventreg-go/internal/database"
	"github.com/JonasLeetTheWay/eventreg-go/internal/models"
)

// Open returns a migrated in-memory database private to the test.
func Open(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := database.OpenSQLite(dsn, &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, models.Migrate(db))

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// Password is the plain password of every fixture user.
const Password = "secret1"

var (
	hashOnce sync.Once
	hashed   string
)

func CreateUser(t testing.TB, db *gorm.DB, name string, role models.Role) models.User {
	t.Helper()

	hashOnce.Do(func() {
		var err error
		hashed, err = auth.HashPassword(Password)
		if err != nil {
			panic(err)
		}
	})
	user := models.User{
		Name:     name,
		Email:    fmt.Sprintf("%s-%s@example.com", name, uuid.NewString()[:8]),
		Password: hashed,
		Role:     role,
	}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func CreateCategory(t testing.TB, db *gorm.DB, name string) models.Category {
	t.Helper()

	category := models.Category{Name: name}
	require.NoError(t, db.Create(&category).Error)
	return category
}

// CreateEvent stores an event dated a week from now.
func CreateEvent(t testing.TB, db *gorm.DB, organizer models.User, category models.Category, capacity int, price float64) models.Event {
	t.Helper()

	event := models.Event{
		Title:       "Event " + uuid.NewString()[:8],
		Description: "Test event",
		Date:        time.Now().AddDate(0, 0, 7),
		Time:        "10:00 AM",
		Location:    "Test Hall",
		Capacity:    capacity,
		Price:       price,
		CategoryID:  category.ID,
		OrganizerID: organizer.ID,
	}
	require.NoError(t, db.Create(&event).Error)
	return event
}

func Principal(u models.User) auth.Principal {
	return auth.Principal{UserID: u.ID, Role: u.Role, Name: u.Name, Email: u.Email}
}
