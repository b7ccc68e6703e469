// Package main 数据库迁移与演示账户初始化
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"

	"shape-forge-api/internal/config"
	"shape-forge-api/internal/domain/service"
	"shape-forge-api/internal/migration"
	"shape-forge-api/internal/wire"
)

func main() {
	_ = godotenv.Load()

	skipSeed := flag.Bool("skip-seed", false, "only run migrations")
	down := flag.Bool("down", false, "roll back the latest migration")
	force := flag.Int("force", -1, "force the migration version to clear a dirty state, then exit")
	flag.Parse()

	fmt.Println("Starting system bootstrap...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx := context.Background()

	// 1. 执行迁移
	m, err := migration.New(migration.Config{DatabaseURL: cfg.Database.Postgres.URL()})
	if err != nil {
		log.Fatalf("failed to init migrator: %v", err)
	}
	switch {
	case *force >= 0:
		err = m.Force(ctx, *force)
	case *down:
		err = m.Down(ctx)
	default:
		err = m.Up(ctx)
	}
	if err != nil {
		_ = m.Close()
		log.Fatalf("migration failed: %v", err)
	}
	if statuses, err := m.Status(ctx); err == nil {
		for _, s := range statuses {
			fmt.Println(statusLine(s))
		}
	}
	_ = m.Close()

	if *force >= 0 || *down || *skipSeed {
		fmt.Println("Bootstrap completed successfully.")
		return
	}

	// 2. 创建演示账户
	app, cleanup, err := wire.InitializeBootstrap(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to initialize data layer: %v", err)
	}
	defer cleanup()

	demoEmail := os.Getenv("BOOTSTRAP_DEMO_EMAIL")
	if demoEmail == "" {
		demoEmail = "demo@shapeforge.dev"
	}
	demoSubject := os.Getenv("BOOTSTRAP_DEMO_SUBJECT")
	if demoSubject == "" {
		demoSubject = "demo-user"
	}

	user, created, err := app.Accounts.EnsureUser(ctx, &service.Identity{
		Subject: demoSubject,
		Email:   demoEmail,
		Name:    "Demo User",
	})
	if err != nil {
		log.Fatalf("failed to create demo user: %v", err)
	}
	if created {
		fmt.Printf("Demo user created: %s (%s) with %d signup credits\n", user.ID, user.Email, cfg.Billing.SignupBonus)
	} else {
		fmt.Printf("Demo user %s already exists.\n", user.Email)
	}

	fmt.Println("Bootstrap completed successfully.")
}

func statusLine(s migration.Status) string {
	state := "pending"
	if s.Applied {
		state = "applied"
	}
	if s.Dirty {
		state = "dirty"
	}
	return fmt.Sprintf("  %06d %-30s %s", s.Version, s.Name, state)
}
