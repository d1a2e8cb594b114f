// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/millwardesque/parkbench/internal/config"
	"github.com/millwardesque/parkbench/internal/cron"
	"github.com/millwardesque/parkbench/internal/database"
	"github.com/millwardesque/parkbench/internal/events"
	"github.com/millwardesque/parkbench/internal/repository"
	"github.com/millwardesque/parkbench/internal/roster"
	"github.com/millwardesque/parkbench/internal/server"
	"github.com/millwardesque/parkbench/internal/services/checkin"
)

// seedParks are the locations created by the seed command.
var seedParks = []struct {
	name     string
	nickname string
}{
	{"Christie Pits Park", "Christie Pits"},
	{"Dufferin Grove Park", "Dufferin Grove"},
	{"Trinity Bellwoods Park", "Trinity Bellwoods"},
	{"High Park", ""},
	{"Sorauren Avenue Park", "Sorauren"},
}

func main() {
	cmd := &cli.Command{
		Name:   "parkbench",
		Usage:  "Park check-in service for parents and their visitors",
		Flags:  config.Flags(),
		Action: server.Run,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Start the web application (default)",
				Action: server.Run,
			},
			{
				Name:   "seed",
				Usage:  "Create the default set of parks",
				Action: runSeed,
			},
			{
				Name:   "cron",
				Usage:  "Run the maintenance jobs once and exit",
				Action: runCron,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

// runSeed inserts the default parks. Already-seeded databases are left
// untouched.
func runSeed(ctx context.Context, cmd *cli.Command) error {
	repo, cleanup, err := openRepository(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	existing, err := repo.Locations(ctx)
	if err != nil {
		return fmt.Errorf("load locations: %w", err)
	}
	if len(existing) > 0 {
		fmt.Printf("database already has %d parks, nothing to do\n", len(existing))
		return nil
	}

	for _, park := range seedParks {
		var nickname *string
		if park.nickname != "" {
			nickname = &park.nickname
		}
		if _, err := repo.CreateLocation(ctx, park.name, nickname); err != nil {
			return fmt.Errorf("create park %q: %w", park.name, err)
		}
		fmt.Printf("created park %s\n", park.name)
	}

	// A pre-verified demo account for local development.
	user, err := repo.CreateUserWithVisitors(ctx, "Demo Parent", "demo@example.com", []string{"Ana", "Ben"})
	if err != nil {
		return fmt.Errorf("create demo user: %w", err)
	}
	if err := repo.MarkEmailVerified(ctx, user.ID, time.Now().UTC()); err != nil {
		return fmt.Errorf("verify demo user: %w", err)
	}
	fmt.Printf("created demo user %s with visitors Ana, Ben\n", user.Email)
	return nil
}

// runCron runs a single maintenance pass, for cron-style deployments that
// prefer an external scheduler over the in-process loop.
func runCron(ctx context.Context, cmd *cli.Command) error {
	repo, cleanup, err := openRepository(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	broadcaster := events.NewBroadcaster()
	cache := roster.New(repo.ActiveRoster, time.Duration(cmd.Int("roster-ttl"))*time.Second)
	engine := checkin.NewEngine(repo, cache, broadcaster)

	runner := cron.NewRunner(repo, engine, 0)
	runner.RunOnce(ctx)
	return nil
}

func openRepository(cmd *cli.Command) (*repository.Repository, func(), error) {
	cfg := config.NewFromCLI(cmd)

	db, err := database.Open(cfg.Database.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}

	cleanup := func() {
		if err := db.Close(); err != nil {
			slog.Error("failed to close database", "error", err)
		}
	}
	return repository.New(db), cleanup, nil
}
