package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"accounts/internal/config"
	"accounts/internal/domain/models"
	"accounts/internal/storage"
	"accounts/internal/storage/mongodb"
	"accounts/internal/storage/sqlite"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite3"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	var configPath, migrationsPath string
	var seedDemo bool
	flag.StringVar(&configPath, "config", "", "path to config file (or use CONFIG_PATH env)")
	flag.StringVar(&migrationsPath, "migrations", "migrations", "path to SQL migrations (sqlite backend)")
	flag.BoolVar(&seedDemo, "seed", false, "seed a demo account into the database")
	flag.Parse()

	if configPath == "" {
		configPath = os.Getenv("CONFIG_PATH")
	}

	cfg := config.LoadConfig(configPath)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var store interface {
		SaveUser(ctx context.Context, account *models.Account) (string, error)
		Close(ctx context.Context) error
	}

	switch cfg.Storage.Backend {
	case "sqlite":
		log.Println("Applying SQLite migrations...")

		m, err := migrate.New(
			"file://"+migrationsPath,
			"sqlite3://"+cfg.Storage.SQLite.Path,
		)
		if err != nil {
			log.Fatalf("failed to init migrator: %v", err)
		}
		if err := m.Up(); err != nil {
			if errors.Is(err, migrate.ErrNoChange) {
				log.Println("No new migrations to apply")
			} else {
				log.Fatalf("failed to apply migrations: %v", err)
			}
		}

		s, err := sqlite.New(cfg.Storage.SQLite.Path)
		if err != nil {
			log.Fatalf("failed to open sqlite storage: %v", err)
		}
		store = s
	default:
		log.Println("Connecting to MongoDB...")

		s, err := mongodb.New(ctx, cfg.Storage.Mongo.URI, cfg.Storage.Mongo.Database)
		if err != nil {
			log.Fatalf("failed to connect to mongodb: %v", err)
		}
		store = s

		log.Println("MongoDB connected, indexes created successfully")
	}
	defer store.Close(ctx)

	if seedDemo {
		log.Println("Seeding demo account...")

		passHash, err := bcrypt.GenerateFromPassword([]byte("demo-password-change-me"), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("failed to hash demo password: %v", err)
		}

		_, err = store.SaveUser(ctx, &models.Account{
			Username: "demo",
			Email:    "demo@example.com",
			FullName: "Demo Account",
			PassHash: passHash,
		})
		if err != nil && !errors.Is(err, storage.ErrUserAlreadyExists) {
			log.Fatalf("failed to seed demo account: %v", err)
		}
		log.Println("Demo account seeded (username=demo)")
	}

	fmt.Println("Database initialization completed successfully")
}
