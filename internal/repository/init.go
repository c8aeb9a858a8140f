package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/openstay/reservstack/config"
	"github.com/openstay/reservstack/internal/models"
)

type Repositories struct {
	ReservationRepository        ReservationRepository
	TenantMailSettingsRepository TenantMailSettingsRepository
	BranchRepository             BranchRepository
}

func InitRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		ReservationRepository:        NewReservationRepository(db),
		TenantMailSettingsRepository: NewTenantMailSettingsRepository(db),
		BranchRepository:             NewBranchRepository(db),
	}
}

func MigrateDB(dbConfig *config.DatabaseConfig, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}

	sqlDB.SetMaxOpenConns(5)

	err = db.AutoMigrate(
		&models.Reservation{},
		&models.TenantMailSettings{},
		&models.Branch{},
	)

	sqlDB.Close()

	sqlDB, _ = db.DB()
	sqlDB.SetMaxIdleConns(dbConfig.MaxIdleConn)
	sqlDB.SetMaxOpenConns(dbConfig.MaxConn)
	sqlDB.SetConnMaxLifetime(time.Duration(dbConfig.ConnMaxLifetime) * time.Minute)

	return err
}
