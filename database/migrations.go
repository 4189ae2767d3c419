package database

import (
	"log"

	"yatube/models"

	"gorm.io/gorm"
)

// Tables lists every entity managed by RunMigrations, in dependency order.
var Tables = []interface{}{
	&models.User{},
	&models.Group{},
	&models.Post{},
	&models.Comment{},
	&models.Follow{},
}

func RunMigrations(db *gorm.DB) error {
	log.Println("Running database migrations...")

	if err := db.AutoMigrate(Tables...); err != nil {
		log.Printf("Error running migrations: %v", err)
		return err
	}

	log.Println("Migrations completed successfully")
	return nil
}
