// seed-admin creates or updates the admin console account.
//
// Usage (from backend directory):
//
//	DB_USER=... DB_PASSWORD=... DB_HOST=... DB_PORT=... DB_NAME=... go run ./cmd/seed-admin
//
// Override the defaults with ADMIN_EMAIL / ADMIN_PASSWORD env vars.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/ktirsdata/ntr_backend/config"
	"github.com/ktirsdata/ntr_backend/models"
	"github.com/ktirsdata/ntr_backend/utils"
	"gorm.io/gorm"
)

const (
	defaultAdminEmail    = "admin@ktirs.gov.ng"
	defaultAdminPassword = "ChangeMe!2024"
	adminName            = "Revenue Admin"
)

func main() {
	ctx := context.Background()
	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil). Set DB_* env vars.")
		os.Exit(1)
	}

	models.MigrateTable()

	adminEmail := os.Getenv("ADMIN_EMAIL")
	if adminEmail == "" {
		adminEmail = defaultAdminEmail
	}
	adminPassword := os.Getenv("ADMIN_PASSWORD")
	if adminPassword == "" {
		adminPassword = defaultAdminPassword
	}

	// Model history hooks require actor fields in context.
	ctx = utils.SetUserIdInContext(ctx, 1)
	ctx = utils.SetUserNameInContext(ctx, "Seed")
	ctx = utils.SetIsAdminInContext(ctx, true)

	hashed, err := utils.HashPassword(adminPassword)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to hash password: %v\n", err)
		os.Exit(1)
	}
	hashedStr := string(hashed)

	var existing models.Profile
	err = db.WithContext(ctx).Model(&models.Profile{}).Where("email = ?", adminEmail).First(&existing).Error
	if err != nil {
		if err != gorm.ErrRecordNotFound {
			fmt.Fprintf(os.Stderr, "failed to lookup profile: %v\n", err)
			os.Exit(1)
		}
		// Create new admin account
		p := models.Profile{
			Email:    adminEmail,
			FullName: adminName,
			Password: hashedStr,
			Role:     models.GlobalRoleAdmin,
			IsActive: utils.NewTrue(),
		}
		if err := db.WithContext(ctx).Create(&p).Error; err != nil {
			fmt.Fprintf(os.Stderr, "failed to create admin account: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Created admin account: email=%q\n", adminEmail)
		return
	}

	// Update existing account: ensure password and admin role
	if err := db.WithContext(ctx).Model(&models.Profile{}).Where("email = ?", adminEmail).Updates(map[string]any{
		"password":  hashedStr,
		"full_name": adminName,
		"is_active": utils.NewTrue(),
		"role":      models.GlobalRoleAdmin,
	}).Error; err != nil {
		fmt.Fprintf(os.Stderr, "failed to update admin account: %v\n", err)
		os.Exit(1)
	}
	_ = existing.RemoveInstanceRedis()
	fmt.Printf("Updated admin account: email=%q\n", adminEmail)
}
