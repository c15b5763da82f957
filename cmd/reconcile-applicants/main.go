package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"time"

	"github.com/noah-isme/placement-engine/internal/repository"
	"github.com/noah-isme/placement-engine/internal/service"
	"github.com/noah-isme/placement-engine/pkg/cache"
	"github.com/noah-isme/placement-engine/pkg/config"
	"github.com/noah-isme/placement-engine/pkg/database"
	"github.com/noah-isme/placement-engine/pkg/logger"
)

func main() {
	var (
		dryRun  bool
		timeout time.Duration
	)
	flag.BoolVar(&dryRun, "dry-run", false, "Report drift without writing repairs")
	flag.DurationVar(&timeout, "timeout", 5*time.Minute, "Overall run timeout")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect database", "error", err)
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, cached projections will expire on their own", "error", err)
		redisClient = nil
	}

	students := repository.NewStudentRepository(db)
	jobs := repository.NewJobRepository(db)
	cacheSvc := service.NewCacheService(repository.NewCacheRepository(redisClient, logr), nil, cfg.Placement.ProjectionCacheTTL, logr, redisClient != nil)
	projections := service.NewProjectionService(students, jobs, cacheSvc, cfg.Placement.ProjectionCacheTTL, logr)

	report, err := service.NewReconcileService(students, jobs, projections, logr).Run(ctx, dryRun)
	if err != nil {
		logr.Sugar().Fatalw("reconciliation failed", "error", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		log.Fatalf("failed to write report: %v", err)
	}
	logr.Sugar().Infow("reconciliation finished",
		"dry_run", report.DryRun,
		"drift", len(report.Drift),
		"repaired", report.Repaired,
		"unresolvable", report.Unresolvable,
	)
}
