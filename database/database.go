package database

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"pg-hostel/models"
)

var DB *gorm.DB

// Open opens a gorm connection for driver "sqlite" or "postgres".
func Open(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch strings.ToLower(driver) {
	case "", "sqlite":
		dialector = sqlite.Open(dsn)
	case "postgres", "postgresql":
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Warn),
		DisableForeignKeyConstraintWhenMigrating: true,
		TranslateError:                           true,
	})
	if err != nil {
		return nil, err
	}

	if dialector.Name() == "sqlite" {
		// one writer avoids "database is locked" under concurrent requests
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}
	return db, nil
}

// Migrate creates or updates every table.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Tenant{},
		&models.Room{},
		&models.RoomOperation{},
		&models.Bill{},
		&models.RentProof{},
		&models.PastTenant{},
		&models.Complaint{},
		&models.Notice{},
	)
}

// InitDatabase opens the database, stores it in DB and migrates the schema.
func InitDatabase(driver, dsn string, log *zap.Logger) error {
	var err error
	DB, err = Open(driver, dsn)
	if err != nil {
		return err
	}

	if err := Migrate(DB); err != nil {
		return err
	}

	log.Info("database initialised", zap.String("driver", driver))
	return nil
}

// SeedAdmin creates the administrator account when none exists.
func SeedAdmin(db *gorm.DB, username, password string, log *zap.Logger) error {
	var adminCount int64
	if err := db.Model(&models.User{}).Where("identity = ?", models.IdentityAdministrator).Count(&adminCount).Error; err != nil {
		return err
	}
	if adminCount > 0 {
		return nil
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}
	admin := models.User{
		Username: username,
		Password: string(hashed),
		Identity: models.IdentityAdministrator,
	}
	if err := db.Create(&admin).Error; err != nil {
		return err
	}
	log.Info("created default administrator", zap.String("username", username))
	return nil
}
