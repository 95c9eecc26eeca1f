package cmd

import (
	"fmt"
	"log"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	gormPostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"

	projectDatamodel "github.com/gestionviaticos/viaticos/internal/core/datamodel/project"
	userDatamodel "github.com/gestionviaticos/viaticos/internal/core/datamodel/user"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with sample data",
	Long:  `Seed the database with sample data for development and testing purposes.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(".")
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		sqlDB, err := initDB(cfg.Database)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}
		db, err := gorm.Open(gormPostgres.New(gormPostgres.Config{Conn: sqlDB.DB}), &gorm.Config{})
		if err != nil {
			log.Fatalf("failed to init orm: %v", err)
		}

		if clearData {
			for _, table := range []string{"bank_movements", "invoice_items", "invoices", "expenses", "allocations", "projects", "users"} {
				if err := db.Exec("DELETE FROM " + table).Error; err != nil {
					log.Fatalf("failed to clear %s: %v", table, err)
				}
			}
			fmt.Println("Cleared existing data")
		}

		password := "cambiame1234"
		hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)

		users := []userDatamodel.User{
			{
				ID:                 "seed-admin",
				Name:               "Marta Admin",
				Email:              "marta@example.com",
				PasswordHash:       string(hash),
				Role:               userDatamodel.RoleAdmin,
				IsActive:           true,
				MustChangePassword: true,
			},
			{
				ID:                 "seed-prof-1",
				Name:               "Diego Rojas",
				Email:              "diego@example.com",
				PasswordHash:       string(hash),
				Role:               userDatamodel.RoleProfessional,
				IsActive:           true,
				MustChangePassword: true,
			},
			{
				ID:                 "seed-prof-2",
				Name:               "Carla Ibanez",
				Email:              "carla@example.com",
				PasswordHash:       string(hash),
				Role:               userDatamodel.RoleProfessional,
				IsActive:           true,
				MustChangePassword: true,
			},
		}

		for i := range users {
			var count int64
			db.Model(&userDatamodel.User{}).Where("email = ?", users[i].Email).Count(&count)
			if count > 0 {
				fmt.Println("user already exists:", users[i].Email)
				continue
			}
			if err := db.Create(&users[i]).Error; err != nil {
				log.Fatalf("failed to seed user %s: %v", users[i].Email, err)
			}
			fmt.Println("Seeded user:", users[i].Email)
		}

		projects := []projectDatamodel.Project{
			{Name: "Planta Norte", Client: "Minera Andina", Code: "PN-" + time.Now().Format("2006"), Type: projectDatamodel.TypeStandard, Status: projectDatamodel.StatusActive},
			{Name: "Oficina Central", Client: "Interno", Code: "OC-001", Recurring: true, Type: projectDatamodel.TypeStandard, Status: projectDatamodel.StatusActive},
			{Name: "Caja Chica", Client: "Interno", Code: "CC-001", Recurring: true, Type: projectDatamodel.TypePettyCash, Status: projectDatamodel.StatusActive},
		}

		for i := range projects {
			var count int64
			db.Model(&projectDatamodel.Project{}).Where("name = ?", projects[i].Name).Count(&count)
			if count > 0 {
				fmt.Println("project already exists:", projects[i].Name)
				continue
			}
			if err := db.Create(&projects[i]).Error; err != nil {
				log.Fatalf("failed to seed project %s: %v", projects[i].Name, err)
			}
			fmt.Println("Seeded project:", projects[i].Name)
		}

		fmt.Println("Seeding done. Default password:", password)
	},
}
