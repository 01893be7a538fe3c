package database

import (
	"errors"
	"fmt"

	config "github.com/fixlify/homeservices-api/configs"
	"github.com/fixlify/homeservices-api/models"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func Connect(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		PrepareStmt:                              false,
		SkipDefaultTransaction:                   true,
		DisableForeignKeyConstraintWhenMigrating: true,
		DisableNestedTransaction:                 true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Service{},
		&models.Booking{},
		&models.Payment{},
	)
}

// Seed provisions the admin account and a starter service catalog so a fresh
// deployment is immediately usable.
func Seed(db *gorm.DB, cfg *config.AppConfig, log *logrus.Logger) error {
	if cfg.AdminEmail != "" && cfg.AdminPassword != "" {
		if err := seedAdmin(db, cfg, log); err != nil {
			return err
		}
	}
	return seedServices(db, cfg, log)
}

func seedAdmin(db *gorm.DB, cfg *config.AppConfig, log *logrus.Logger) error {
	var count int64
	if err := db.Model(&models.User{}).Where("email = ?", cfg.AdminEmail).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check for admin user: %w", err)
	}
	if count > 0 {
		return nil
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(cfg.AdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}

	admin := models.User{
		FullName: cfg.AdminFullName,
		Email:    cfg.AdminEmail,
		Password: string(hashed),
		Role:     "admin",
	}
	if err := db.Create(&admin).Error; err != nil {
		return fmt.Errorf("failed to seed admin user: %w", err)
	}
	log.Info("admin user seeded")
	return nil
}

func seedServices(db *gorm.DB, cfg *config.AppConfig, log *logrus.Logger) error {
	catalog := []models.Service{
		{Name: "Pipe & Faucet Repair", Category: "plumbing", PriceCents: 50000},
		{Name: "Drain Unblocking", Category: "plumbing", PriceCents: 65000},
		{Name: "Deep Home Cleaning", Category: "cleaning", PriceCents: 80000},
		{Name: "Standard Home Cleaning", Category: "cleaning", PriceCents: 45000},
		{Name: "Wiring & Socket Repair", Category: "electrical", PriceCents: 55000},
		{Name: "AC Service & Repair", Category: "appliances", PriceCents: 90000},
	}

	for _, svc := range catalog {
		var existing models.Service
		err := db.Where("name = ?", svc.Name).First(&existing).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		svc.Currency = cfg.Currency
		svc.IsActive = true
		if err := db.Create(&svc).Error; err != nil {
			return fmt.Errorf("failed to seed service %q: %w", svc.Name, err)
		}
	}
	log.Info("service catalog seeded")
	return nil
}
