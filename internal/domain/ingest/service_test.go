package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	gormsqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	_ "modernc.org/sqlite"

	"flightreview/internal/domain/logrecord"
	"flightreview/internal/storage"
	"flightreview/internal/ulog"
	"flightreview/internal/ulog/ulogtest"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:ingest_%s?mode=memory&cache=shared",
		strings.NewReplacer("/", "_", "#", "_").Replace(t.Name()))
	db, err := gorm.Open(
		gormsqlite.New(gormsqlite.Config{DriverName: "sqlite", DSN: dsn}),
		&gorm.Config{Logger: logger.Default.LogMode(logger.Silent)},
	)
	if err != nil {
		t.Fatalf("failed to open sqlite db: %v", err)
	}
	if err := db.AutoMigrate(&logrecord.LogRecord{}, &logrecord.VehicleRecord{}); err != nil {
		t.Fatalf("failed to migrate db: %v", err)
	}
	return db
}

// recordingScheduler captures scheduled overview generations.
type recordingScheduler struct {
	mu  sync.Mutex
	ids []string
}

func (r *recordingScheduler) Schedule(logID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids = append(r.ids, logID)
}

func setupPipeline(t *testing.T) (*Pipeline, logrecord.Repository, *storage.Store, *recordingScheduler) {
	t.Helper()
	repo := logrecord.NewRepository(setupTestDB(t))
	store, err := storage.New(filepath.Join(t.TempDir(), "logs"))
	if err != nil {
		t.Fatal(err)
	}
	sched := &recordingScheduler{}
	return NewPipeline(repo, store, ParserFunc(ulog.ParseFile), sched), repo, store, sched
}

// writeULog materializes a synthetic log file and returns its path.
func writeULog(t *testing.T, dir string, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func validULog(uuid string) []byte {
	b := ulogtest.New(500).FlagBits()
	if uuid != "" {
		b.Info("sys_uuid", uuid)
	}
	return b.Data(0, 1_000_000).Data(0, 31_000_000).Bytes()
}

func TestAdmitSingle(t *testing.T) {
	p, repo, store, sched := setupPipeline(t)
	path := writeULog(t, t.TempDir(), "flight.ulg", validULog("HW-1234"))

	meta := DefaultMeta()
	meta.Source = logrecord.SourceWebUI
	meta.Description = "first flight"

	id, err := p.AdmitSingle(context.Background(), NewDiskFile(path, "flight.ulg"), meta)
	if err != nil {
		t.Fatal(err)
	}
	if id == "" {
		t.Fatal("empty identifier")
	}
	if !store.Exists(id) {
		t.Fatal("persisted file missing")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatal("source file was not consumed by the move")
	}

	rec, err := repo.GetLog(context.Background(), id)
	if err != nil {
		t.Fatal(err)
	}
	if rec.OriginalFilename != "flight.ulg" {
		t.Fatalf("original filename = %q", rec.OriginalFilename)
	}
	if rec.Public != 1 {
		t.Fatalf("public = %d", rec.Public)
	}
	if rec.Description != "first flight" {
		t.Fatalf("description = %q", rec.Description)
	}
	if len(rec.Token) != 32 {
		t.Fatalf("token length = %d, want 32 hex chars", len(rec.Token))
	}

	v, err := repo.GetVehicle(context.Background(), "HW-1234")
	if err != nil {
		t.Fatal(err)
	}
	if v.LatestLogID != id {
		t.Fatalf("latest log = %q, want %q", v.LatestLogID, id)
	}
	if v.FlightTime != 30 {
		t.Fatalf("flight time = %v, want 30s", v.FlightTime)
	}

	if len(sched.ids) != 1 || sched.ids[0] != id {
		t.Fatalf("overview scheduled for %v, want [%s]", sched.ids, id)
	}
}

func TestAdmitSingleCorruptLeavesOrphan(t *testing.T) {
	p, repo, store, _ := setupPipeline(t)
	truncated := ulogtest.New(0).FlagBits().Info("sys_uuid", "HW").Truncated(3)
	path := writeULog(t, t.TempDir(), "broken.ulg", truncated)

	_, err := p.AdmitSingle(context.Background(), NewDiskFile(path, "broken.ulg"), DefaultMeta())
	if !errors.Is(err, ErrCorruptLog) {
		t.Fatalf("expected ErrCorruptLog, got %v", err)
	}

	// The relocate step is irreversible: the file stays as an orphan and
	// no row exists.
	entries, _ := os.ReadDir(store.Dir())
	if len(entries) != 1 {
		t.Fatalf("expected 1 orphan file, found %d entries", len(entries))
	}
	count, err := repo.CountLogs(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Fatalf("log count = %d, want 0", count)
	}
}

func TestAdmitSingleCISkipsParse(t *testing.T) {
	p, repo, _, _ := setupPipeline(t)
	// Corrupt beyond the magic; CI uploads skip parsing entirely.
	path := writeULog(t, t.TempDir(), "ci.ulg", ulogtest.New(0).Truncated(4))

	meta := DefaultMeta()
	meta.Source = logrecord.SourceCI
	id, err := p.AdmitSingle(context.Background(), NewDiskFile(path, "ci.ulg"), meta)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := repo.GetLog(context.Background(), id); err != nil {
		t.Fatal(err)
	}
}

func TestVehicleNamePreservedOnUpsert(t *testing.T) {
	p, repo, _, _ := setupPipeline(t)
	dir := t.TempDir()
	ctx := context.Background()

	meta := DefaultMeta()
	meta.VehicleName = "Test Quad"
	if _, err := p.AdmitSingle(ctx, NewDiskFile(writeULog(t, dir, "a.ulg", validULog("HW-X")), "a.ulg"), meta); err != nil {
		t.Fatal(err)
	}

	// Second admission with no explicit name keeps the prior one.
	id2, err := p.AdmitSingle(ctx, NewDiskFile(writeULog(t, dir, "b.ulg", validULog("HW-X")), "b.ulg"), DefaultMeta())
	if err != nil {
		t.Fatal(err)
	}
	v, err := repo.GetVehicle(ctx, "HW-X")
	if err != nil {
		t.Fatal(err)
	}
	if v.Name != "Test Quad" {
		t.Fatalf("vehicle name = %q, want preserved %q", v.Name, "Test Quad")
	}
	if v.LatestLogID != id2 {
		t.Fatalf("latest log = %q, want %q", v.LatestLogID, id2)
	}

	// An explicit new name replaces it.
	meta.VehicleName = "Renamed"
	if _, err := p.AdmitSingle(ctx, NewDiskFile(writeULog(t, dir, "c.ulg", validULog("HW-X")), "c.ulg"), meta); err != nil {
		t.Fatal(err)
	}
	v, err = repo.GetVehicle(ctx, "HW-X")
	if err != nil {
		t.Fatal(err)
	}
	if v.Name != "Renamed" {
		t.Fatalf("vehicle name = %q, want %q", v.Name, "Renamed")
	}
}

func TestAllocateIDRetriesOnCollision(t *testing.T) {
	p, repo, _, _ := setupPipeline(t)
	ctx := context.Background()

	taken := "00000000-0000-4000-8000-000000000001"
	free := "00000000-0000-4000-8000-000000000002"
	if err := repo.CreateLog(ctx, &logrecord.LogRecord{ID: taken}); err != nil {
		t.Fatal(err)
	}

	calls := 0
	p.newID = func() string {
		calls++
		if calls == 1 {
			return taken
		}
		return free
	}
	id, err := p.allocateID(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if id != free {
		t.Fatalf("allocated %q, want %q", id, free)
	}
	if calls != 2 {
		t.Fatalf("generator called %d times, want 2", calls)
	}
}

func TestAllocateIDExhaustion(t *testing.T) {
	p, repo, _, _ := setupPipeline(t)
	ctx := context.Background()

	taken := "00000000-0000-4000-8000-00000000000f"
	if err := repo.CreateLog(ctx, &logrecord.LogRecord{ID: taken}); err != nil {
		t.Fatal(err)
	}
	p.newID = func() string { return taken }

	if _, err := p.allocateID(ctx); !errors.Is(err, ErrIdentifierExhausted) {
		t.Fatalf("expected ErrIdentifierExhausted, got %v", err)
	}
}

func TestAllocateIDConcurrent(t *testing.T) {
	p, _, _, _ := setupPipeline(t)
	ctx := context.Background()

	const n = 16
	ids := make(chan string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, err := p.allocateID(ctx)
			if err != nil {
				t.Errorf("allocate: %v", err)
				return
			}
			ids <- id
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[string]bool)
	for id := range ids {
		if seen[id] {
			t.Fatalf("identifier %s allocated twice", id)
		}
		seen[id] = true
	}
}
