// seed-admin creates or updates the ops console admin user for a tenant.
//
// Usage:
//   DB_USER=... DB_PASSWORD=... DB_HOST=... DB_PORT=... DB_NAME=... \
//     go run ./cmd/seed-admin --tenant-id=<tenant> [--password=<pw>]
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/fynanpro/finance_backend/config"
	"github.com/fynanpro/finance_backend/models"
	"github.com/fynanpro/finance_backend/utils"
	"gorm.io/gorm"
)

const (
	adminUsername = "financeAdmin"
	adminName     = "Finance Admin"
)

func main() {
	tenantId := flag.String("tenant-id", "", "Required: tenant id")
	password := flag.String("password", "", "Admin password (default: generated prompt value must be set)")
	flag.Parse()

	if strings.TrimSpace(*tenantId) == "" {
		fmt.Fprintln(os.Stderr, "--tenant-id is required")
		os.Exit(2)
	}
	if strings.TrimSpace(*password) == "" {
		fmt.Fprintln(os.Stderr, "--password is required")
		os.Exit(2)
	}

	ctx := context.Background()
	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil). Set DB_* env vars.")
		os.Exit(1)
	}

	hashed, err := utils.HashPassword(*password)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to hash password: %v\n", err)
		os.Exit(1)
	}
	hashedStr := string(hashed)

	var existing models.User
	err = db.WithContext(ctx).Model(&models.User{}).
		Where("tenant_id = ? AND username = ?", *tenantId, adminUsername).
		First(&existing).Error
	if err != nil {
		if err != gorm.ErrRecordNotFound {
			fmt.Fprintf(os.Stderr, "failed to lookup user: %v\n", err)
			os.Exit(1)
		}
		u := models.User{
			TenantId: strings.TrimSpace(*tenantId),
			Username: adminUsername,
			Name:     adminName,
			Password: hashedStr,
			IsActive: utils.NewTrue(),
			Role:     models.UserRoleAdmin,
		}
		if err := db.WithContext(ctx).Create(&u).Error; err != nil {
			fmt.Fprintf(os.Stderr, "failed to create admin user: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Created admin user: username=%q tenant_id=%q\n", adminUsername, *tenantId)
		return
	}

	if err := db.WithContext(ctx).Model(&models.User{}).
		Where("tenant_id = ? AND username = ?", *tenantId, adminUsername).
		Updates(map[string]any{
			"password":  hashedStr,
			"name":      adminName,
			"is_active": utils.NewTrue(),
			"role":      models.UserRoleAdmin,
		}).Error; err != nil {
		fmt.Fprintf(os.Stderr, "failed to update admin user: %v\n", err)
		os.Exit(1)
	}
	_ = existing.RemoveInstanceRedis()
	fmt.Printf("Updated admin user: username=%q tenant_id=%q\n", adminUsername, *tenantId)
}
