package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"therapist-booking/internal/db"
	"therapist-booking/internal/domain"
	"therapist-booking/internal/repository"
	"therapist-booking/internal/service"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cmd := &cli.Command{
		Name:  "tokenpurge",
		Usage: "Delete expired verification, reset and doctor registration tokens",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Postgres connection string",
				Sources:  cli.EnvVars("DATABASE_URL"),
				Required: true,
			},
			&cli.DurationFlag{
				Name:  "grace",
				Usage: "keep tokens that expired less than this long ago",
				Value: 0,
			},
			&cli.StringSliceFlag{
				Name:  "purpose",
				Usage: "purpose to purge (email_verification, password_reset, doctor_registration); repeatable, all when omitted",
			},
		},
		Action: run,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	purposes, err := parsePurposes(cmd.StringSlice("purpose"))
	if err != nil {
		return err
	}
	grace := cmd.Duration("grace")
	if grace < 0 {
		return fmt.Errorf("grace must not be negative")
	}

	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()

	pool, err := db.NewPool(ctx, cmd.String("database-url"))
	if err != nil {
		return err
	}
	defer pool.Close()

	before := time.Now().UTC().Add(-grace)
	purger := service.NewTokenPurger(logger, repository.NewPgTokenRepository(pool))
	removed, err := purger.Purge(ctx, before, purposes...)
	if err != nil {
		return err
	}

	var total int64
	for _, n := range removed {
		total += n
	}
	logger.Info("token purge finished", zap.Int64("removed", total), zap.Time("before", before))
	return nil
}

func parsePurposes(values []string) ([]domain.Purpose, error) {
	purposes := make([]domain.Purpose, 0, len(values))
	for _, v := range values {
		p := domain.Purpose(v)
		if !p.Valid() {
			return nil, fmt.Errorf("unknown purpose %q", v)
		}
		purposes = append(purposes, p)
	}
	return purposes, nil
}
