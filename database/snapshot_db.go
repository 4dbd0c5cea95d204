package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// DBConfig конфигурация пула соединений
type DBConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// SnapshotDB обертка над локальным хранилищем срезов (rqmData.db)
type SnapshotDB struct {
	conn *sql.DB
	path string
}

// NewSnapshotDB открывает хранилище срезов с настройками по умолчанию
func NewSnapshotDB(dbPath string) (*SnapshotDB, error) {
	return NewSnapshotDBWithConfig(dbPath, DBConfig{})
}

// isInMemoryDB определяет, что путь относится к in-memory SQLite
func isInMemoryDB(dbPath string) bool {
	if dbPath == ":memory:" {
		return true
	}
	return strings.HasPrefix(dbPath, "file:") && strings.Contains(dbPath, "mode=memory")
}

// NewSnapshotDBWithConfig открывает хранилище срезов с конфигурацией пула.
// Схема не создается: вызывающий код обязан вызвать EnsureSchema.
func NewSnapshotDBWithConfig(dbPath string, config DBConfig) (*SnapshotDB, error) {
	conn, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot database: %w", err)
	}

	if config.MaxOpenConns > 0 {
		conn.SetMaxOpenConns(config.MaxOpenConns)
	} else {
		// Запись идет из одного потока, читатели API не требуют большого пула
		conn.SetMaxOpenConns(4)
	}

	if config.MaxIdleConns > 0 {
		conn.SetMaxIdleConns(config.MaxIdleConns)
	} else {
		conn.SetMaxIdleConns(2)
	}

	if config.ConnMaxLifetime > 0 {
		conn.SetConnMaxLifetime(config.ConnMaxLifetime)
	} else {
		conn.SetConnMaxLifetime(5 * time.Minute)
	}

	// Для in-memory SQLite требуется ровно одно бессрочное соединение,
	// иначе новое соединение получит пустую БД без таблиц.
	if isInMemoryDB(dbPath) {
		conn.SetMaxOpenConns(1)
		conn.SetMaxIdleConns(1)
		conn.SetConnMaxLifetime(0)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping snapshot database: %w", err)
	}

	return &SnapshotDB{conn: conn, path: dbPath}, nil
}

// Close закрывает подключение к хранилищу
func (db *SnapshotDB) Close() error {
	return db.conn.Close()
}

// Path путь к файлу хранилища
func (db *SnapshotDB) Path() string {
	return db.path
}

// GetDB возвращает указатель на sql.DB для прямого доступа
func (db *SnapshotDB) GetDB() *sql.DB {
	return db.conn
}

// BackupTo записывает согласованную копию хранилища в новый файл (VACUUM INTO).
// Файл назначения не должен существовать.
func (db *SnapshotDB) BackupTo(ctx context.Context, destPath string) error {
	if _, err := db.conn.ExecContext(ctx, `VACUUM INTO ?`, destPath); err != nil {
		return fmt.Errorf("failed to back up snapshot database to %s: %w", destPath, err)
	}
	return nil
}
