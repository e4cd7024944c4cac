package database

import (
	"fmt"
	"log"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/FelixDorner/LinkCard/app/models"
	"github.com/FelixDorner/LinkCard/internal/pkg/env"
)

const maxRetries = 5
const retryDelay = 5 * time.Second

var DB *gorm.DB

// databaseCredentials prefers the privileged service account and falls back to
// the restricted application account when it is not configured. The fallback
// keeps the app running under misconfiguration but loses write privileges on
// billing tables, so it is logged loudly.
func databaseCredentials() (user, password string) {
	user = env.GetEnv("DB_SERVICE_USER", "")
	password = env.GetEnv("DB_SERVICE_PASSWORD", "")
	if user != "" {
		return user, password
	}
	log.Printf("Warning: DB_SERVICE_USER not set, falling back to restricted DB_USER credentials")
	return env.GetEnv("DB_USER", ""), env.GetEnv("DB_PASSWORD", "")
}

func SetupDatabase() {
	var err error
	user, password := databaseCredentials()
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		user,
		password,
		env.GetEnv("DB_HOST", "127.0.0.1"),
		env.GetEnv("DB_PORT", "3306"),
		env.GetEnv("DB_NAME", ""),
	)

	for i := 0; i < maxRetries; i++ {
		DB, err = gorm.Open(mysql.New(mysql.Config{
			DSN:                       dsn,
			DefaultStringSize:         256,
			DisableDatetimePrecision:  true,
			DontSupportRenameIndex:    true,
			DontSupportRenameColumn:   true,
			SkipInitializeWithVersion: false,
		}), &gorm.Config{})
		if err == nil {
			DB.AutoMigrate(
				&models.User{},
				&models.Card{},
				&models.CardView{},
				&models.Subscription{},
				&models.BillingWebhookEvent{},
			)

			return
		}

		log.Printf("Failed to connect to database (try %d/%d): %v", i+1, maxRetries, err)
		if i < maxRetries-1 {
			log.Printf("Retrying in %v...", retryDelay)
			time.Sleep(retryDelay)
		}
	}

	if err != nil {
		panic(err)
	}
}

// GetDB returns the shared database handle
func GetDB() *gorm.DB {
	return DB
}

// SetDB replaces the shared handle. Used by tests.
func SetDB(db *gorm.DB) {
	DB = db
}
