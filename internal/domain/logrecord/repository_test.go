package logrecord

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	gormsqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	_ "modernc.org/sqlite"
)

func setupRepo(t *testing.T) Repository {
	t.Helper()
	dsn := fmt.Sprintf("file:logrecord_%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(
		gormsqlite.New(gormsqlite.Config{DriverName: "sqlite", DSN: dsn}),
		&gorm.Config{Logger: logger.Default.LogMode(logger.Silent)},
	)
	if err != nil {
		t.Fatalf("failed to open sqlite db: %v", err)
	}
	if err := db.AutoMigrate(&LogRecord{}, &VehicleRecord{}); err != nil {
		t.Fatalf("failed to migrate db: %v", err)
	}
	return NewRepository(db)
}

func TestLogCRUD(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	rec := &LogRecord{
		ID:               "log-1",
		OriginalFilename: "flight.ulg",
		Date:             time.Now(),
		Source:           SourceWebUI,
		Public:           1,
		Token:            "deadbeefdeadbeefdeadbeefdeadbeef",
	}
	if err := repo.CreateLog(ctx, rec); err != nil {
		t.Fatal(err)
	}

	exists, err := repo.LogExists(ctx, "log-1")
	if err != nil {
		t.Fatal(err)
	}
	if !exists {
		t.Fatal("log should exist")
	}
	exists, err = repo.LogExists(ctx, "log-2")
	if err != nil {
		t.Fatal(err)
	}
	if exists {
		t.Fatal("log-2 should not exist")
	}

	got, err := repo.GetLog(ctx, "log-1")
	if err != nil {
		t.Fatal(err)
	}
	if got.OriginalFilename != "flight.ulg" {
		t.Fatalf("filename = %q", got.OriginalFilename)
	}

	if err := repo.DeleteLog(ctx, "log-1"); err != nil {
		t.Fatal(err)
	}
	if err := repo.DeleteLog(ctx, "log-1"); !errors.Is(err, ErrLogNotFound) {
		t.Fatalf("second delete: got %v", err)
	}
	if _, err := repo.GetLog(ctx, "log-1"); !errors.Is(err, ErrLogNotFound) {
		t.Fatalf("get after delete: got %v", err)
	}
}

func TestListPublicLogsFiltersPrivate(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	base := time.Now()
	for i, public := range []int{1, 0, 1} {
		rec := &LogRecord{
			ID:     fmt.Sprintf("log-%d", i),
			Date:   base.Add(time.Duration(i) * time.Minute),
			Public: public,
		}
		if err := repo.CreateLog(ctx, rec); err != nil {
			t.Fatal(err)
		}
	}

	recs, err := repo.ListPublicLogs(ctx, 10, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 2 {
		t.Fatalf("public logs = %d, want 2", len(recs))
	}
	// Newest first.
	if recs[0].ID != "log-2" {
		t.Fatalf("first listed = %s, want log-2", recs[0].ID)
	}

	total, err := repo.CountLogs(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if total != 3 {
		t.Fatalf("count = %d, want 3", total)
	}
}

func TestUpsertVehicleReplacesRow(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	if err := repo.UpsertVehicle(ctx, &VehicleRecord{
		UUID: "HW-1", LatestLogID: "log-1", Name: "Quad", FlightTime: 120,
	}); err != nil {
		t.Fatal(err)
	}
	if err := repo.UpsertVehicle(ctx, &VehicleRecord{
		UUID: "HW-1", LatestLogID: "log-2", Name: "Quad II", FlightTime: 300,
	}); err != nil {
		t.Fatal(err)
	}

	v, err := repo.GetVehicle(ctx, "HW-1")
	if err != nil {
		t.Fatal(err)
	}
	if v.LatestLogID != "log-2" || v.Name != "Quad II" || v.FlightTime != 300 {
		t.Fatalf("vehicle after upsert = %+v", v)
	}

	if _, err := repo.GetVehicle(ctx, "HW-9"); !errors.Is(err, ErrVehicleNotFound) {
		t.Fatalf("missing vehicle: got %v", err)
	}
}
