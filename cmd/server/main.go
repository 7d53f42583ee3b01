package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/voltdrop/internal/app"
	"github.com/voltdrop/internal/config"
	"github.com/voltdrop/internal/logger"
	"github.com/voltdrop/internal/models"

	"github.com/gin-gonic/gin"
)

const minSecretLength = 32

var weakSecretMarkers = []string{"change-me", "change-in-production", "your-secret-key", "voltdrop-dev"}

func main() {
	mode := flag.String("mode", app.ModeAll, "启动模式: all | api | worker")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logger.S().Fatalw("config_load_failed", "error", err)
	}
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	log := logger.S()
	release := cfg.Server.Mode == "release"
	if release {
		gin.SetMode(gin.ReleaseMode)
	}
	fmt.Printf("voltdrop fulfillment · mode=%s · suppliers=%s\n", *mode, strings.Join(configuredSuppliers(cfg), ","))

	if isWeakSecret(cfg.JWT.SecretKey) {
		if release {
			log.Fatalw("jwt_secret_weak", "min_length", minSecretLength)
		}
		log.Warnw("jwt_secret_weak_dev_only", "min_length", minSecretLength)
	}
	if strings.TrimSpace(cfg.Fulfillment.WebhookSecret) == "" {
		log.Warnw("supplier_webhook_secret_missing_all_callbacks_rejected")
	}

	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}); err != nil {
		log.Fatalw("database_open_failed", "driver", cfg.Database.Driver, "error", err)
	}
	if err := models.AutoMigrate(); err != nil {
		log.Fatalw("database_migrate_failed", "error", err)
	}

	err = models.InitDefaultAdmin(os.Getenv("VD_DEFAULT_ADMIN_USERNAME"), os.Getenv("VD_DEFAULT_ADMIN_PASSWORD"), release)
	switch {
	case errors.Is(err, models.ErrDefaultPasswordInRelease):
		log.Warnw("default_admin_skipped", "reason", "VD_DEFAULT_ADMIN_PASSWORD not set")
	case err != nil:
		log.Warnw("default_admin_init_failed", "error", err)
	}

	if err := app.Run(app.Options{
		Config:  cfg,
		Logger:  log,
		Signals: []os.Signal{syscall.SIGINT, syscall.SIGTERM},
		Mode:    *mode,
	}); err != nil {
		log.Fatalw("app_run_failed", "error", err)
	}
}

func configuredSuppliers(cfg *config.Config) []string {
	var names []string
	if cfg.Supplier.BigBuy.Enabled {
		names = append(names, "bigbuy")
	}
	if cfg.Supplier.CJ.Enabled {
		names = append(names, "cj")
	}
	if cfg.Supplier.Sandbox.Enabled {
		names = append(names, "sandbox")
	}
	return names
}

func isWeakSecret(secret string) bool {
	if len(secret) < minSecretLength {
		return true
	}
	normalized := strings.ToLower(secret)
	for _, marker := range weakSecretMarkers {
		if strings.Contains(normalized, marker) {
			return true
		}
	}
	return false
}
