package main

import (
	"context"
	"flag"
	"log"

	"tubequiz/database"
	"tubequiz/internal/config"
	internaldb "tubequiz/internal/database"
	"tubequiz/internal/logger"

	"go.uber.org/zap"
)

func main() {
	direction := flag.String("direction", "up", "migration direction: up or down")
	steps := flag.Int("steps", 1, "number of migrations to roll back with -direction down (0 = all)")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if err := logger.Initialize(cfg.Logger); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	l := logger.Get()
	defer logger.Sync()

	db, err := internaldb.NewSQLXOracleDB(cfg)
	if err != nil {
		l.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	migrator, err := internaldb.NewMigrator(db, database.Migrations, database.MigrationsDir)
	if err != nil {
		l.Fatal("Failed to load migrations", zap.Error(err))
	}
	defer migrator.Close()

	ctx := context.Background()
	switch *direction {
	case "up":
		n, err := migrator.Up(ctx)
		if err != nil {
			l.Fatal("Failed to run migrations", zap.Int("applied", n), zap.Error(err))
		}
		l.Info("Migrations applied", zap.Int("count", n))
	case "down":
		n, err := migrator.Down(ctx, *steps)
		if err != nil {
			l.Fatal("Failed to roll back migrations", zap.Int("rolled_back", n), zap.Error(err))
		}
		l.Info("Migrations rolled back", zap.Int("count", n))
	default:
		l.Fatal("Unknown migration direction", zap.String("direction", *direction))
	}
}
