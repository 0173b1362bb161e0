package main

import (
	"log"
	"time"

	"github.com/gin-gonic/gin"

	"flightreview/internal/config"
	"flightreview/internal/database"
	"flightreview/internal/domain/auth"
	"flightreview/internal/domain/browse"
	"flightreview/internal/domain/editentry"
	"flightreview/internal/domain/ingest"
	"flightreview/internal/domain/logrecord"
	"flightreview/internal/middleware"
	"flightreview/internal/overview"
	"flightreview/internal/pkg/session"
	"flightreview/internal/storage"
	"flightreview/internal/ulog"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal(err)
	}
	if err := db.AutoMigrate(&logrecord.LogRecord{}, &logrecord.VehicleRecord{}); err != nil {
		log.Fatal(err)
	}

	store, err := storage.New(cfg.StorageDir)
	if err != nil {
		log.Fatal(err)
	}

	repo := logrecord.NewRepository(db)

	// Overview image rendering runs elsewhere; the scheduler only keeps
	// the queue and makes sure a failure never reaches an uploader.
	overviewGen := overview.New(func(logID string) error {
		log.Printf("overview: log %s queued for generation into %s", logID, cfg.OverviewDir)
		return nil
	}, 64)
	defer overviewGen.Close()

	pipeline := ingest.NewPipeline(repo, store, ingest.ParserFunc(ulog.ParseFile), overviewGen)

	sessions := session.New(cfg.SessionSecret, 24*time.Hour)
	authHandler := auth.NewHandler(cfg.UploadPasswordHash, sessions, cfg.CookieName)

	r := gin.New()
	r.Use(gin.Logger(), middleware.ErrorLogger(), middleware.CORS())

	auth.RegisterRoutes(r, authHandler)
	browse.RegisterRoutes(r, browse.NewHandler(repo))
	editentry.RegisterRoutes(r, editentry.NewHandler(repo, store))

	protected := r.Group("/", authHandler.RequireLogin())
	ingest.RegisterRoutes(r, protected, ingest.NewHandler(pipeline, cfg, store.Dir()))

	if err := r.Run(cfg.ListenAddr); err != nil {
		log.Fatal(err)
	}
}
