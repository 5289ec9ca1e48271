package database

import (
	"fmt"
	"log"

	"gorm.io/gorm"
)

// AddIndexes adds the composite indexes used by the open-task and membership
// lookups. Only PostgreSQL is handled; other dialects rely on the model indexes.
func AddIndexes(db *gorm.DB) error {
	if db.Dialector.Name() != "postgres" {
		return nil
	}

	indexes := []struct {
		table   string
		name    string
		columns string
	}{
		// Open-task checks per project and per appointee
		{"tasks", "idx_tasks_project_open", "project_id, is_completed"},
		{"tasks", "idx_tasks_appointee_open", "appointee_employee_id, is_completed"},

		// Membership listing per user
		{"project_members", "idx_project_members_user_project", "user_id, project_id"},

		// Role filtered listing of active users
		{"users", "idx_users_role_deleted", "role_id, deleted_at"},
	}

	for _, idx := range indexes {
		var count int64
		err := db.Raw(`
			SELECT COUNT(*)
			FROM pg_indexes
			WHERE tablename = ? AND indexname = ?
		`, idx.table, idx.name).Scan(&count).Error

		if err != nil {
			return fmt.Errorf("failed to check index %s: %w", idx.name, err)
		}

		if count > 0 {
			log.Printf("Index %s already exists, skipping", idx.name)
			continue
		}

		sql := fmt.Sprintf("CREATE INDEX %s ON %s (%s)", idx.name, idx.table, idx.columns)
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("failed to create index %s: %w", idx.name, err)
		}

		log.Printf("Created index %s on %s(%s)", idx.name, idx.table, idx.columns)
	}

	return nil
}

// MigrateDatabase runs the schema migration followed by the index migration
func MigrateDatabase(db *gorm.DB) error {
	if err := MigrateModels(db); err != nil {
		return err
	}

	if err := AddIndexes(db); err != nil {
		return fmt.Errorf("failed to add indexes: %w", err)
	}

	return nil
}
