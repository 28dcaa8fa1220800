package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/Clark-Hu/store-ratings/db/migrations"
	"github.com/Clark-Hu/store-ratings/internal/auth"
	"github.com/Clark-Hu/store-ratings/internal/config"
	"github.com/Clark-Hu/store-ratings/internal/domain"
	"github.com/Clark-Hu/store-ratings/internal/platform/logger"
	"github.com/Clark-Hu/store-ratings/internal/repository"
	"github.com/Clark-Hu/store-ratings/internal/service"
	"github.com/Clark-Hu/store-ratings/internal/store"
)

const adminName = "System Administrator User"

type options struct {
	seed       bool
	printToken bool
	timeout    time.Duration
}

func main() {
	var opts options
	flag.BoolVar(&opts.seed, "seed-admin", true, "create the default administrator when missing")
	flag.BoolVar(&opts.printToken, "print-token", false, "print a signed bearer token for the administrator")
	flag.DurationVar(&opts.timeout, "timeout", 30*time.Second, "overall deadline")
	flag.Parse()

	if err := run(opts); err != nil {
		log.Fatalf("migrate: %v", err)
	}
}

func run(opts options) error {
	config.LoadDotenv()
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}

	zl := logger.New(cfg.LogLevel, cfg.LogFormat).Named("migrate")
	defer func() { _ = zl.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), opts.timeout)
	defer cancel()

	st, err := store.New(ctx, cfg.DBURL, store.Options{ApplicationName: "store-ratings-migrate", MaxConns: 2, Logger: zl})
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer st.Close()

	applied, err := migrations.Apply(ctx, st.Pool(), zl)
	if err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	zl.Info("schema up to date", zap.Int("applied", len(applied)))

	if !opts.seed {
		return nil
	}
	if err := seedAdmin(ctx, cfg, repository.New(st), zl, opts.printToken); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	return nil
}

func seedAdmin(ctx context.Context, cfg config.Config, repo *repository.Repository, zl *zap.Logger, printToken bool) error {
	email, err := domain.NormalizeEmail(cfg.AdminEmail)
	if err != nil {
		return err
	}
	if err := domain.ValidatePassword(cfg.AdminPassword); err != nil {
		return fmt.Errorf("ADMIN_PASSWORD: %w", err)
	}
	hash, err := service.HashPassword(cfg.AdminPassword, service.PasswordCost)
	if err != nil {
		return err
	}

	created, err := repo.Users.EnsureAdmin(ctx, repository.UserCreateParams{
		Name:         adminName,
		Email:        email,
		PasswordHash: hash,
	})
	if err != nil {
		return err
	}
	zl.Info("administrator ready", zap.String("email", email), zap.Bool("created", created))

	if !printToken {
		return nil
	}
	admin, err := repo.Users.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if admin.Role != domain.RoleAdmin {
		return fmt.Errorf("user %s exists with role %s", email, admin.Role)
	}
	token, err := auth.NewIssuer(cfg.JWTSecret, time.Duration(cfg.JWTTTLHours)*time.Hour).Sign(auth.Identity{UserID: admin.ID, Role: admin.Role})
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(os.Stdout, token)
	return err
}
