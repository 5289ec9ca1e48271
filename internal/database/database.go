package database

import (
	"errors"
	"fmt"
	"log"

	"github.com/yukikurage/employee-admin-api/internal/config"
	"github.com/yukikurage/employee-admin-api/internal/models"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// Connect opens the database selected by cfg.DBDriver
func Connect(cfg *config.Config) error {
	dialector, err := dialectorFor(cfg)
	if err != nil {
		return err
	}

	DB, err = gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Info),
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	log.Printf("Database connection established (%s)", cfg.DBDriver)
	return nil
}

func dialectorFor(cfg *config.Config) (gorm.Dialector, error) {
	switch cfg.DBDriver {
	case "mysql", "":
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
			cfg.DBUser,
			cfg.DBPassword,
			cfg.DBHost,
			cfg.DBPort,
			cfg.DBName,
		)
		return mysql.Open(dsn), nil
	case "postgres":
		dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
			cfg.DBHost,
			cfg.DBPort,
			cfg.DBUser,
			cfg.DBPassword,
			cfg.DBName,
		)
		return postgres.Open(dsn), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.DBDriver)
	}
}

// Migrate runs every migration against the global connection
func Migrate() error {
	if DB == nil {
		return errors.New("database not connected")
	}
	return MigrateDatabase(DB)
}

// MigrateModels creates the schema and seeds the lookup tables
func MigrateModels(db *gorm.DB) error {
	log.Println("Running database migrations...")
	err := db.AutoMigrate(
		&models.RoleRecord{},
		&models.ProjectStatusRecord{},
		&models.User{},
		&models.Project{},
		&models.ProjectMember{},
		&models.Task{},
	)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	if err := SeedLookups(db); err != nil {
		return err
	}
	log.Println("Database migrations completed")
	return nil
}

// SeedLookups inserts the role and project status rows if missing
func SeedLookups(db *gorm.DB) error {
	roles := make([]models.RoleRecord, 0, len(models.AllRoles()))
	for _, r := range models.AllRoles() {
		roles = append(roles, models.RoleRecord{ID: r, Name: r.String()})
	}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&roles).Error; err != nil {
		return fmt.Errorf("failed to seed roles: %w", err)
	}

	statuses := make([]models.ProjectStatusRecord, 0, len(models.AllProjectStatuses()))
	for _, s := range models.AllProjectStatuses() {
		statuses = append(statuses, models.ProjectStatusRecord{ID: s, Name: s.String()})
	}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&statuses).Error; err != nil {
		return fmt.Errorf("failed to seed project statuses: %w", err)
	}
	return nil
}

func GetDB() *gorm.DB {
	return DB
}

// SetDB sets the database instance (used for testing)
func SetDB(db *gorm.DB) {
	DB = db
}
