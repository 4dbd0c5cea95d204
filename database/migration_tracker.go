package database

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

const migrationsTableName = "schema_migrations"

// migration именованное изменение схемы, применяемое один раз
type migration struct {
	name  string
	apply func(*sql.Tx) error
}

// ensureMigrationTable создает таблицу schema_migrations при необходимости.
func ensureMigrationTable(db *sql.DB) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			name TEXT PRIMARY KEY,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`, migrationsTableName)

	if _, err := db.Exec(query); err != nil {
		return fmt.Errorf("failed to ensure %s table: %w", migrationsTableName, err)
	}
	return nil
}

// isMigrationApplied проверяет, была ли уже применена миграция.
func isMigrationApplied(db *sql.DB, name string) (bool, error) {
	var appliedAt sql.NullTime
	query := fmt.Sprintf(`SELECT applied_at FROM %s WHERE name = ?`, migrationsTableName)
	err := db.QueryRow(query, name).Scan(&appliedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("failed to check migration %s: %w", name, err)
	}

	return appliedAt.Valid, nil
}

// applyMigrations применяет еще не примененные миграции по порядку.
// Каждая миграция и отметка о ней выполняются в одной транзакции.
func applyMigrations(db *sql.DB, migrations []migration) error {
	if err := ensureMigrationTable(db); err != nil {
		return err
	}

	for _, m := range migrations {
		applied, err := isMigrationApplied(db, m.name)
		if err != nil {
			return err
		}
		if applied {
			slog.Debug("[Migrations] Skipping, already applied", "migration", m.name)
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("failed to begin migration %s: %w", m.name, err)
		}

		if err := m.apply(tx); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %s failed: %w", m.name, err)
		}

		query := fmt.Sprintf(`INSERT INTO %s(name, applied_at) VALUES(?, ?)`, migrationsTableName)
		if _, err := tx.Exec(query, m.name, time.Now()); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to mark migration %s as applied: %w", m.name, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %s: %w", m.name, err)
		}

		slog.Info("[Migrations] Applied", "migration", m.name)
	}

	return nil
}
