package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/gravadigital/bienestar-api/internal/config"
	"github.com/gravadigital/bienestar-api/internal/logger"
	"github.com/gravadigital/bienestar-api/internal/storage/migrations"
	"github.com/gravadigital/bienestar-api/internal/storage/postgres"
)

func main() {
	cfg := config.Load()

	logger.Initialize(cfg.Server.LogLevel)
	log := logger.Migration()

	rollback := flag.Bool("rollback", false, "Rollback the last migration")
	status := flag.Bool("status", false, "List applied migrations")
	analyze := flag.Bool("analyze", false, "Print table and index statistics")
	flag.Parse()

	log.Info("Starting migration process", "rollback", *rollback, "status", *status)

	db, err := postgres.Connect(cfg)
	if err != nil {
		log.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}

	switch {
	case *analyze:
		report, err := postgres.NewDiagnostics(db).Analyze(context.Background())
		if err != nil {
			log.Error("Database analysis failed", "error", err)
			os.Exit(1)
		}
		out, _ := json.MarshalIndent(report, "", "  ")
		fmt.Println(string(out))
		return
	case *status:
		applied, err := migrations.Applied(db)
		if err != nil {
			log.Error("Failed to read migration status", "error", err)
			os.Exit(1)
		}
		known := migrations.GetMigrations()
		fmt.Printf("%d of %d migrations applied\n", len(applied), len(known))
		for _, m := range applied {
			fmt.Printf("  [x] %s %s\n", m.ID, m.Name)
		}
		for _, m := range known[min(len(applied), len(known)):] {
			fmt.Printf("  [ ] %s %s\n", m.ID, m.Name)
		}
		return
	case *rollback:
		log.Info("Rolling back migrations...")
		if err := migrations.RollbackMigration(db); err != nil {
			log.Error("Migration rollback failed", "error", err)
			os.Exit(1)
		}
		log.Info("Migration rollback completed successfully")
	default:
		log.Info("Running migrations...")
		if err := migrations.RunMigrations(db); err != nil {
			log.Error("Migration failed", "error", err)
			os.Exit(1)
		}
		log.Info("Migrations completed successfully")
	}

	fmt.Println("Migration process completed!")
}
