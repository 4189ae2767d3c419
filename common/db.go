package common

import (
	"log"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func ConnectDb(cfg *Config) *gorm.DB {
	var dialector gorm.Dialector
	switch cfg.DBDriver {
	case "postgres":
		log.Println("attemptConnectDb: using postgres")
		dialector = postgres.Open(cfg.DatabaseURL)
	default:
		log.Println("attemptConnectDb: sqlite_db:", cfg.SqliteFile)
		dialector = sqlite.Open(cfg.SqliteFile)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		TranslateError:                           true,
	})
	if err != nil {
		log.Println("Error opening db: " + err.Error())
		return nil
	}
	log.Println("opened", cfg.DBDriver, "db")
	return db
}
