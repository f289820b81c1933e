package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"talkio/config"
	"talkio/internal/cache"
	"talkio/internal/client"
	"talkio/internal/storage"
	"talkio/pkg/logger"
)

func main() {
	cfg := config.LoadConfig()

	lg := logger.New(cfg.AppMode)
	logger.SetGlobalLogger(lg)

	var hist *cache.Cache
	if cfg.CacheDSN != "" {
		c, err := cache.Open(cfg.CacheDSN)
		if err != nil {
			log.Fatalf("Failed to open history cache: %v", err)
		}
		hist = c
		defer hist.Close()
	}

	var blobs *storage.Client
	if cfg.S3Bucket != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		c, err := storage.NewClient(ctx, storage.S3Config{
			Region:     cfg.S3Region,
			Bucket:     cfg.S3Bucket,
			AccessKey:  cfg.S3AccessKey,
			SecretKey:  cfg.S3SecretKey,
			Endpoint:   cfg.S3Endpoint,
			PresignTTL: time.Duration(cfg.S3PresignTTL) * time.Second,
		})
		cancel()
		if err != nil {
			log.Fatalf("Failed to set up attachment store: %v", err)
		}
		blobs = c
	}

	sess := client.NewSession(cfg, lg, hist, blobs)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	err := sess.Connect(ctx)
	cancel()
	if err != nil {
		log.Fatalf("Failed to connect session: %v", err)
	}
	lg.Infof("session connected as %s (%s)", sess.User().Name, sess.User().ID)
	lg.Infof("mirroring %d conversations", sess.Store().Len())

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	lg.Infof("shutting down")
	sess.Disconnect()
}
