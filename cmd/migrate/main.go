package main

import (
	"flag"
	"fmt"
	"log"

	"volrv/internal/config"
	"volrv/internal/database"
)

func main() {
	var (
		configPath     = flag.String("config", "configs/config.yaml", "path to the config file")
		migrationsPath = flag.String("path", "migrations", "path to migration files")
		up             = flag.Bool("up", false, "apply all pending migrations")
		down           = flag.Bool("down", false, "roll back all migrations")
		steps          = flag.Int("steps", 0, "apply n migrations (negative rolls back)")
		version        = flag.Bool("version", false, "print the current schema version")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	db, err := database.Connect(cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()

	migrator, err := database.NewMigrator(db, *migrationsPath)
	if err != nil {
		log.Fatalf("failed to create migrator: %v", err)
	}
	defer migrator.Close()

	switch {
	case *up:
		if err := migrator.Up(); err != nil {
			log.Fatalf("migration up failed: %v", err)
		}
		fmt.Println("migrations applied")
	case *down:
		if err := migrator.Down(); err != nil {
			log.Fatalf("migration down failed: %v", err)
		}
		fmt.Println("migrations rolled back")
	case *steps != 0:
		if err := migrator.Steps(*steps); err != nil {
			log.Fatalf("migration steps failed: %v", err)
		}
		fmt.Printf("applied %d migration steps\n", *steps)
	case *version:
		v, dirty, err := migrator.Version()
		if err != nil {
			log.Fatalf("failed to read version: %v", err)
		}
		fmt.Printf("schema version: %d (dirty=%v)\n", v, dirty)
	default:
		flag.Usage()
	}
}
