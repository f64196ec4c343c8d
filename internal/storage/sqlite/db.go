package sqlite

import (
	"context"
	"errors"
	"fmt"

	gormsqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DB владеет gorm-подключением к файлу SQLite.
type DB struct {
	gorm *gorm.DB
}

// Open открывает базу по пути (":memory:" для тестов) и приводит схему к моделям через AutoMigrate.
func Open(ctx context.Context, path string) (*DB, error) {
	if path == "" {
		return nil, errors.New("sqlite path is empty")
	}

	gdb, err := gorm.Open(gormsqlite.Open(path), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("get sqlite handle: %w", err)
	}
	// SQLite допускает одного писателя; ":memory:" к тому же живёт только в одном соединении.
	sqlDB.SetMaxOpenConns(1)

	if err := gdb.WithContext(ctx).AutoMigrate(&storeModel{}, &productModel{}, &orderModel{}, &outboxModel{}); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("migrate sqlite schema: %w", err)
	}

	return &DB{gorm: gdb}, nil
}

// Ping проверяет доступность базы.
func (d *DB) Ping(ctx context.Context) error {
	if d == nil || d.gorm == nil {
		return errors.New("sqlite database is not initialized")
	}
	sqlDB, err := d.gorm.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close закрывает подключение.
func (d *DB) Close() error {
	if d == nil || d.gorm == nil {
		return nil
	}
	sqlDB, err := d.gorm.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
