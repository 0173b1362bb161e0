// Command bulkupload admits every native log file found under a local
// directory, using the same pipeline as the upload endpoints, then exits.
package main

import (
	"context"
	"flag"
	"log"
	"os"

	"flightreview/internal/config"
	"flightreview/internal/database"
	"flightreview/internal/domain/ingest"
	"flightreview/internal/domain/logrecord"
	"flightreview/internal/storage"
	"flightreview/internal/ulog"
)

func main() {
	dir := flag.String("dir", "", "directory of log files to admit")
	deleteAfter := flag.Bool("delete-after", false, "delete source files after successful admission")
	flag.Parse()

	if *dir == "" {
		flag.Usage()
		os.Exit(2)
	}

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

	pipeline := ingest.NewPipeline(
		logrecord.NewRepository(db),
		store,
		ingest.ParserFunc(ulog.ParseFile),
		nil, // no overview generation from the CLI
	)

	res, err := pipeline.AdmitDirectory(context.Background(), *dir, ingest.DefaultMeta(), *deleteAfter)
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("bulk upload finished: %d admitted, %d skipped, %d failed",
		len(res.Admitted), res.Skipped, res.Failed)
	if res.Failed > 0 {
		os.Exit(1)
	}
}
