package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sanamente/catalogd/config"
	"github.com/sanamente/catalogd/internal/api"
	"github.com/sanamente/catalogd/internal/app"
	"github.com/sanamente/catalogd/internal/webserver"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	h        = flag.Bool("h", false, "help usage")
	showVer  = flag.Bool("v", false, "show version")
	confFile = flag.String("c", "catalogd.yml", "config file")
	initDB   = flag.Bool("initdb", false, "drop and recreate all tables, caution!!!")
)

var (
	BuildVersion string
	ReleaseDate  string
)

func printVersion() {
	fmt.Printf("catalogd version: %s, release: %s\n", BuildVersion, ReleaseDate)
}

func main() {
	flag.Parse()
	if *h {
		flag.Usage()
		os.Exit(0)
	}
	if *showVer {
		printVersion()
		os.Exit(0)
	}

	_ = godotenv.Load()
	cfg := config.LoadConfig(*confFile)

	application := app.NewApplication(cfg)
	if err := application.Init(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "application init failed: %s\n", err.Error())
		os.Exit(1)
	}
	defer application.Release()

	if *initDB {
		application.DropAll()
		if err := application.MigrateDB(); err != nil {
			zap.S().Fatalf("initdb failed: %s", err.Error())
		}
		zap.S().Info("database initialized")
		return
	}

	webserver.Init(cfg, application.Auth())
	api.Init(api.Deps{
		Store:   application.Store(),
		Catalog: application.Catalog(),
		Auth:    application.Auth(),
	})

	g, ctx := errgroup.WithContext(context.Background())

	g.Go(func() error {
		zap.S().Infof("starting web server on %s:%d", cfg.Web.Host, cfg.Web.Port)
		return webserver.Start()
	})

	g.Go(func() error {
		sigc := make(chan os.Signal, 1)
		signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
		select {
		case sig := <-sigc:
			zap.S().Infof("received signal %s, shutting down", sig)
		case <-ctx.Done():
			return ctx.Err()
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return webserver.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		zap.S().Errorf("server exited: %s", err.Error())
	}
}
