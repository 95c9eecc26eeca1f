package cmd

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"
	gormPostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/gestionviaticos/viaticos/internal/core/events"
	"github.com/gestionviaticos/viaticos/internal/ledger"
	ledgerPostgres "github.com/gestionviaticos/viaticos/internal/ledger/postgres"
	"github.com/gestionviaticos/viaticos/pkg/logger"
)

// repairCmd recomputes every cached user balance from the raw allocation and
// expense history. Safe to run at any time; a clean ledger reports no drift.
var repairCmd = &cobra.Command{
	Use:   "repair",
	Short: "Recompute cached balances from the raw records",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(".")
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		logger.Init(os.Getenv("APP_ENV"))
		lg := logger.L()

		sqlDB, err := initDB(cfg.Database)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}
		db, err := gorm.Open(gormPostgres.New(gormPostgres.Config{Conn: sqlDB.DB}), &gorm.Config{})
		if err != nil {
			log.Fatalf("failed to init orm: %v", err)
		}

		service := ledger.NewService(ledgerPostgres.NewStore(db), events.NewBus(lg), lg)

		report, err := service.Repair(context.Background())
		if err != nil {
			log.Fatalf("repair failed: %v", err)
		}

		fmt.Printf("scanned %d users, %d drifted\n", report.UsersScanned, len(report.Drifted))
		for _, drift := range report.Drifted {
			fmt.Printf("  %s (%s): %d -> %d\n", drift.UserID, drift.Email, drift.OldBalance, drift.NewBalance)
		}
	},
}
