package main

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/covalenthq/lumberjack"
	"github.com/gin-gonic/gin"
	_ "github.com/joho/godotenv/autoload"

	"villabook/internal/app"
	"villabook/internal/config"
	"villabook/internal/database"
)

func initLogger(path string) {
	if path == "" {
		return
	}
	w := io.MultiWriter(os.Stdout, &lumberjack.Logger{
		Filename:   path,
		MaxSize:    100,
		MaxBackups: 5,
		MaxAge:     30,
		Compress:   true,
	})
	log.SetOutput(w)
	gin.DefaultWriter = w
	gin.DefaultErrorWriter = w
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	initLogger(cfg.LogFile)
	if cfg.IsProd() {
		gin.SetMode(gin.ReleaseMode)
	}

	a, err := app.New(cfg)
	if err != nil {
		log.Fatalf("startup: %v", err)
	}
	defer a.Close()

	if !database.IsPostgres(cfg.DatabaseURL) {
		if err := database.Migrate(a.DB); err != nil {
			log.Fatalf("migrate: %v", err)
		}
	}

	if cfg.Jobs.Enabled {
		if err := a.Jobs.Start(); err != nil {
			log.Fatalf("scheduler: %v", err)
		}
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           a.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("level=info msg=listening addr=%s env=%s", cfg.HTTPAddr, cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("level=info msg=shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("level=error msg=forced shutdown err=%v", err)
	}
}
