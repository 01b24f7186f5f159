package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"teamcal/internal/auth"
	"teamcal/internal/config"
	"teamcal/internal/domain"
	"teamcal/internal/httpserver"
	"teamcal/internal/logging"
)

func main() {
	var (
		username    string
		password    string
		displayName string
	)
	flag.StringVar(&username, "username", "", "Admin username (required)")
	flag.StringVar(&password, "password", "", "Admin password (required)")
	flag.StringVar(&displayName, "display", "", "Display name (optional; defaults to username)")
	flag.Parse()

	if username == "" || password == "" {
		fmt.Fprintln(os.Stderr, "usage: teamcal-bootstrap -username <name> -password <secret> [-display <name>]")
		os.Exit(2)
	}
	if displayName == "" {
		displayName = username
	}

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.Component(logging.New(cfg.LogLevel), "bootstrap")

	store, err := httpserver.OpenStore(cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "storage init: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	hash, err := auth.HashPassword(password)
	if err != nil {
		fmt.Fprintf(os.Stderr, "password: %v\n", err)
		os.Exit(1)
	}

	u := &domain.User{
		ID:           uuid.NewString(),
		Username:     username,
		DisplayName:  displayName,
		PasswordHash: hash,
		Roles:        []domain.Role{domain.RoleAdmin},
	}
	if err := u.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid user: %v\n", err)
		os.Exit(1)
	}
	if err := store.CreateUser(context.Background(), u); err != nil {
		fmt.Fprintf(os.Stderr, "create user: %v\n", err)
		os.Exit(1)
	}

	logger.Info().Str("username", username).Msg("admin created")
	fmt.Printf("Created admin user %s\n", username)
}
