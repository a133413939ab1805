package main

import (
	"log"
	"os"
	"strings"

	"github.com/titof2710/Loto-sub000/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var db *gorm.DB

func initDB() {
	var err error
	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		log.Fatal("DB_DSN is not set. This project requires a Postgres DSN in DB_DSN.")
	}
	db, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect postgres database:", err)
	}
	// Control schema migrations with env DB_AUTO_MIGRATE (default true). Any permission errors will be logged and ignored.
	shouldMigrate := true
	if v := os.Getenv("DB_AUTO_MIGRATE"); v != "" {
		lv := strings.ToLower(v)
		if lv == "false" || lv == "0" || lv == "no" {
			shouldMigrate = false
		}
	}
	// Ensure the roles master table exists first and seed it so users FK can be applied safely.
	if shouldMigrate {
		if err := db.AutoMigrate(&models.Role{}); err != nil {
			log.Printf("migration warning (roles): %v", err)
		}
	}
	// seed master roles immediately
	roles := []models.Role{{Name: "administrator", Description: "full access"}, {Name: "user", Description: "regular user"}}
	for _, r := range roles {
		var cnt int64
		db.Model(&models.Role{}).Where("name = ?", r.Name).Count(&cnt)
		if cnt == 0 {
			db.Create(&r)
		}
	}

	// Now migrate the rest (users will get FK to roles)
	if shouldMigrate {
		// Migrate models individually so a failure on one doesn't block others
		if err := db.AutoMigrate(&models.User{}); err != nil {
			log.Printf("migration warning (users): %v", err)
		}
		if err := db.AutoMigrate(&models.Planche{}); err != nil {
			log.Printf("migration warning (planches): %v", err)
		}
		if err := db.AutoMigrate(&models.Carton{}); err != nil {
			log.Printf("migration warning (cartons): %v", err)
		}
		if err := db.AutoMigrate(&models.Partie{}); err != nil {
			log.Printf("migration warning (parties): %v", err)
		}
		if err := db.AutoMigrate(&models.WinRecord{}); err != nil {
			log.Printf("migration warning (win_records): %v", err)
		}
		if err := db.AutoMigrate(&models.Tirage{}); err != nil {
			log.Printf("migration warning (tirages): %v", err)
		}
		if err := db.AutoMigrate(&models.RefreshToken{}); err != nil {
			log.Printf("migration warning (refresh_tokens): %v", err)
		}
	}

	seedDB()
}

func seedDB() {
	// Ensure master roles exist
	roles := []models.Role{{Name: "administrator", Description: "full access"}, {Name: "user", Description: "regular user"}}
	for _, r := range roles {
		var cnt int64
		db.Model(&models.Role{}).Where("name = ?", r.Name).Count(&cnt)
		if cnt == 0 {
			db.Create(&r)
		}
	}

	// Check if admin user exists
	var count int64
	db.Model(&models.User{}).Where("username = ?", "admin").Count(&count)
	if count == 0 {
		// find administrator role id
		var role models.Role
		if err := db.Where("name = ?", "administrator").First(&role).Error; err != nil {
			log.Printf("failed to find administrator role: %v", err)
		}
		// Seed admin user
		rid := role.ID
		admin := models.User{
			Username: "admin",
			RoleID:   &rid,
		}
		hashedPassword, _ := bcrypt.GenerateFromPassword([]byte("admin123"), bcrypt.DefaultCost)
		admin.HashedPassword = hashedPassword
		db.Create(&admin)
		log.Println("Seeded admin user: username=admin, password=admin123")
	}
	// Ensure scan directories exist
	ensureScanBase()
}

// ensureScanBase creates the base scan directory and its inbox.
func ensureScanBase() {
	base := scanBaseDir()
	if err := os.MkdirAll(base, 0755); err != nil {
		log.Printf("failed to create scan base dir %s: %v", base, err)
	}
	inbox := scanInboxDir()
	if err := os.MkdirAll(inbox, 0755); err != nil {
		log.Printf("failed to create scan inbox dir %s: %v", inbox, err)
	}
}

// scanBaseDir returns the base directory for uploaded planche photos (configurable via SCAN_BASE env)
func scanBaseDir() string {
	if v := os.Getenv("SCAN_BASE"); v != "" {
		return v
	}
	return "scans"
}

// scanInboxDir returns the directory the planche watcher observes (configurable via SCAN_INBOX env)
func scanInboxDir() string {
	if v := os.Getenv("SCAN_INBOX"); v != "" {
		return v
	}
	return "scans/inbox"
}
