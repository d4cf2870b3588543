package main

import (
	"context"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/hyuon7877/onesquare-sub001/internal/config"
	"github.com/hyuon7877/onesquare-sub001/internal/database"
	"github.com/hyuon7877/onesquare-sub001/internal/logger"
	"github.com/hyuon7877/onesquare-sub001/internal/security"
	"github.com/hyuon7877/onesquare-sub001/internal/server"
	"github.com/hyuon7877/onesquare-sub001/internal/store"
	"github.com/hyuon7877/onesquare-sub001/internal/version"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// Setup logging with rotation
	logDir := filepath.Join(filepath.Dir(cfg.DatabasePath), "logs")
	_ = os.MkdirAll(logDir, 0o755)
	rotator := &lumberjack.Logger{
		Filename:   filepath.Join(logDir, "gateway.log"),
		MaxSize:    10, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
		Compress:   true,
	}
	logger.Init(cfg.Environment == "development", io.MultiWriter(os.Stdout, rotator))

	db, err := database.Open(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}

	// One-off CLI: generate a threat report for the last 24h and exit.
	if len(os.Args) > 1 && os.Args[1] == "report" {
		monitor := security.NewMonitor(db, cfg.Security.MonitorSchedule)
		report, err := monitor.RunReport(time.Now())
		if err != nil {
			log.Fatalf("run report: %v", err)
		}
		log.Printf("report %s: %d events, %d blocked, %d critical", report.Day, report.Total, report.Blocked, report.Critical)
		return
	}

	var st store.Store
	if cfg.RedisAddr != "" {
		st = store.NewRedisStore(redis.NewClient(&redis.Options{Addr: cfg.RedisAddr}))
		logger.Log().WithField("addr", cfg.RedisAddr).Info("using redis shared store")
	} else {
		st = store.NewMemoryStore()
		logger.Log().Warn("using in-memory store; counters are not shared across workers")
	}

	srv, err := server.New(db, st, cfg)
	if err != nil {
		log.Fatalf("build server: %v", err)
	}

	monitor := security.NewMonitor(db, cfg.Security.MonitorSchedule)
	if err := monitor.Start(); err != nil {
		log.Fatalf("start threat monitor: %v", err)
	}
	defer monitor.Stop()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger.WithFields(map[string]interface{}{
		"version": version.Full(),
		"port":    cfg.HTTPPort,
	}).Infof("starting %s", version.Name)

	if err := srv.Run(ctx); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
