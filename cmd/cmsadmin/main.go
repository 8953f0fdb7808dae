// Сервер административной панели djofo: локальная база sqlite, прокси к API djofo и сессии редактора.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/djofo/cmsadmin/internal/cmsadmin"
	"github.com/djofo/cmsadmin/internal/cmsadmin/config"
	"github.com/djofo/cmsadmin/internal/cmsadmin/gormlogger"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormLog "gorm.io/gorm/logger"
)

var version string = "DEV"

// Пример запуска: go run main.go --trace
func main() {
	paramQueries := flag.Bool("paramQueries", true, "Mask queries params in log")
	trace := flag.Bool("trace", false, "Verbose logs and sql trace")
	flag.Parse()

	PrintBanner()

	if *trace {
		slog.SetLogLoggerLevel(slog.LevelDebug)
	}

	// Set prod log format
	if version != "DEV" {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{})))
	}

	cfg, err := config.ReadConfig()
	if err != nil {
		slog.Error("Read config", "err", err)
		os.Exit(1)
	}

	slog.Info("Djofo CMS admin start.", "api", cfg.APIURL.String())

	gormLogger := gormlogger.NewGormLogger(slog.Default(), time.Second, *paramQueries)
	db, err := gorm.Open(sqlite.Open(cfg.DatabasePath+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"), &gorm.Config{
		TranslateError: true,
		Logger:         gormLogger,
	})
	if err != nil {
		slog.Error("Fail init DB connection", "err", err)
		os.Exit(1)
	}
	if *trace {
		db.Logger = gormLogger.LogMode(gormLog.Info)
	}

	// sqlite пишет одним соединением
	sqlDB, err := db.DB()
	if err != nil {
		slog.Error("Fail set settings to conn pool", "err", err)
		os.Exit(1)
	}
	sqlDB.SetMaxOpenConns(1)

	cmsadmin.Server(db, cfg, version)
}

func PrintBanner() {
	banner := `
     _  _       __
  __| |(_) ___ / _| ___
 / _  || |/ _ \ |_ / _ \
| (_| || | (_) |  _| (_) |
 \__,_|/ |\___/|_|  \___/ %s
     |__/  CMS admin
----------------------------
`
	colorReset := "\033[0m"
	colorYellow := "\033[33m"

	formattedVersion := version
	if version == "DEV" {
		formattedVersion = colorYellow + version + colorReset
	}

	fmt.Printf(banner, formattedVersion)
}
