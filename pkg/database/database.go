package database

import (
	"fmt"
	"log"
	"olp_backend/internal/config"
	"olp_backend/internal/model"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func InitDB(cfg *config.DatabaseConfig, mode string, migrate bool) (*gorm.DB, error) {
	logLevel := logger.Warn
	if mode == "debug" {
		logLevel = logger.Info
	}

	db, err := gorm.Open(dialector(cfg), &gorm.Config{
		Logger:         logger.Default.LogMode(logLevel),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if cfg.Driver == "sqlite" {
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(50)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(time.Hour)

	log.Println("Database connection established")

	// release 模式默认跳过迁移，除非显式指定 -migrate
	if mode != "release" || migrate {
		if err := Migrate(db); err != nil {
			return nil, err
		}
		log.Println("Database migration completed")
	}

	return db, nil
}

// dialector picks the driver; sqlite treats DBName as a file path and is meant for local runs.
func dialector(cfg *config.DatabaseConfig) gorm.Dialector {
	if cfg.Driver == "sqlite" {
		return sqlite.Open(cfg.DBName + "?_busy_timeout=5000")
	}
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=%t&loc=Local",
		cfg.User,
		cfg.Password,
		cfg.Host,
		cfg.Port,
		cfg.DBName,
		cfg.Charset,
		cfg.ParseTime,
	)
	return mysql.Open(dsn)
}

// Migrate creates or updates every table owned by the quiz engine.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.Quiz{},
		&model.Question{},
		&model.Answer{},
		&model.QuizAttempt{},
		&model.QuizAttemptAnswer{},
	)
}
