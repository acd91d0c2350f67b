// Command createuser provisions staff logins. Customers register themselves through the API.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/clarotec/orders-api/internal/auth"
	"github.com/clarotec/orders-api/internal/config"
	"github.com/clarotec/orders-api/internal/database"
	"github.com/clarotec/orders-api/internal/domain"
	"github.com/clarotec/orders-api/internal/logger"
	"github.com/clarotec/orders-api/internal/repository"
	"github.com/clarotec/orders-api/internal/service"
	"go.uber.org/zap"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("createuser", flag.ContinueOnError)
	email := fs.String("email", "", "login email")
	password := fs.String("password", "", "initial password")
	firstName := fs.String("first-name", "", "first name")
	lastName := fs.String("last-name", "", "last name")
	role := fs.String("role", string(domain.RoleSales), "sales, dispatcher, admin or management")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *email == "" || *password == "" {
		return fmt.Errorf("usage: createuser -email <email> -password <password> [-role sales]")
	}

	ctx := context.Background()
	basicCfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	log, err := logger.New(&basicCfg.Logging, &basicCfg.App)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	cfg, err := config.LoadWithSecrets(ctx, log)
	if err != nil {
		return fmt.Errorf("failed to load secrets: %w", err)
	}

	db, err := database.NewDatabase(&cfg.Database, log)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	users := service.NewUserService(repository.NewUserRepository(db), auth.NewTokenManager(&cfg.Auth), &cfg.Auth, log)
	user, err := users.CreateUser(ctx, *email, *password, *firstName, *lastName, domain.UserRole(*role))
	if err != nil {
		return err
	}

	log.Info("User created", zap.Uint("user_id", user.ID), zap.String("email", user.Email), zap.String("role", string(user.Role)))
	return nil
}
