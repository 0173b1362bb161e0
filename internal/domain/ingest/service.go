package ingest

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"flightreview/internal/domain/logrecord"
	"flightreview/internal/storage"
	"flightreview/internal/ulog"
)

// maxIDAttempts caps the identifier collision-retry loop. Collisions of
// 128-bit random identifiers are astronomically unlikely; hitting this cap
// means the storage layer is broken.
const maxIDAttempts = 10

// Parser extracts metadata from a persisted native log file.
type Parser interface {
	Parse(path string) (*ulog.Meta, error)
}

// ParserFunc adapts a function to the Parser interface.
type ParserFunc func(path string) (*ulog.Meta, error)

func (f ParserFunc) Parse(path string) (*ulog.Meta, error) { return f(path) }

// OverviewScheduler triggers derived display data generation. Best-effort
// and asynchronous; admission never depends on it.
type OverviewScheduler interface {
	Schedule(logID string)
}

// Pipeline drives log admission: allocate an identifier, relocate the
// uploaded bytes into managed storage, parse metadata, write the primary
// record, update the vehicle index, schedule derived data.
type Pipeline struct {
	repo     logrecord.Repository
	store    *storage.Store
	parser   Parser
	overview OverviewScheduler

	// newID is swappable for tests that force collisions.
	newID func() string
}

func NewPipeline(repo logrecord.Repository, store *storage.Store, parser Parser, overview OverviewScheduler) *Pipeline {
	return &Pipeline{
		repo:     repo,
		store:    store,
		parser:   parser,
		overview: overview,
		newID:    func() string { return uuid.New().String() },
	}
}

// AdmitSingle turns one uploaded file into a persisted file plus database
// rows and returns the new log identifier.
//
// The relocation into managed storage is the irreversible step: a parse
// failure after it leaves the relocated file on disk as an orphan for
// later inspection rather than attempting a destructive rollback.
func (p *Pipeline) AdmitSingle(ctx context.Context, file UploadedFile, meta UploadMeta) (string, error) {
	id, err := p.allocateID(ctx)
	if err != nil {
		return "", err
	}

	dest := p.store.LogPath(id)
	log.Printf("ingest: moving uploaded file to %s", dest)
	if err := file.MoveTo(dest); err != nil {
		return "", fmt.Errorf("relocate upload for log %s: %w", id, err)
	}

	var logMeta *ulog.Meta
	if meta.Source != logrecord.SourceCI {
		logMeta, err = p.parser.Parse(dest)
		if err != nil {
			if errors.Is(err, ulog.ErrCorrupt) {
				return "", fmt.Errorf("%w: %v", ErrCorruptLog, err)
			}
			return "", fmt.Errorf("parse log %s: %w", id, err)
		}
	}

	token, err := newToken()
	if err != nil {
		return "", err
	}

	rec := &logrecord.LogRecord{
		ID:               id,
		Title:            meta.Title,
		Description:      meta.Description,
		OriginalFilename: file.Filename(),
		Date:             time.Now(),
		AllowForAnalysis: boolToInt(meta.AllowForAnalysis),
		Obfuscated:       boolToInt(meta.Obfuscated),
		Source:           meta.Source,
		Email:            meta.Email,
		WindSpeed:        meta.WindSpeed,
		Rating:           meta.Rating,
		Feedback:         meta.Feedback,
		Type:             meta.Type,
		VideoURL:         meta.VideoURL,
		ErrorLabels:      meta.ErrorLabels,
		Public:           boolToInt(meta.Public),
		Token:            token,
	}
	if err := p.repo.CreateLog(ctx, rec); err != nil {
		return "", fmt.Errorf("insert log record %s: %w", id, err)
	}

	// The vehicle index is a best-effort secondary write: its failure is
	// logged but never rolls back the committed log record.
	if logMeta != nil && logMeta.VehicleUUID() != "" {
		if err := p.updateVehicle(ctx, logMeta, id, meta.VehicleName); err != nil {
			log.Printf("ingest: vehicle update failed for log %s: %v", id, err)
		}
	}

	if p.overview != nil {
		p.overview.Schedule(id)
	}
	return id, nil
}

// updateVehicle replaces the vehicle row for the log's hardware id,
// keeping the previous display name when the uploader supplied none.
func (p *Pipeline) updateVehicle(ctx context.Context, logMeta *ulog.Meta, logID, vehicleName string) error {
	v := &logrecord.VehicleRecord{
		UUID:        logMeta.VehicleUUID(),
		LatestLogID: logID,
		Name:        vehicleName,
		FlightTime:  logMeta.FlightTime.Seconds(),
	}
	if v.Name == "" {
		prev, err := p.repo.GetVehicle(ctx, v.UUID)
		if err == nil {
			v.Name = prev.Name
		} else if !errors.Is(err, logrecord.ErrVehicleNotFound) {
			return err
		}
	}
	return p.repo.UpsertVehicle(ctx, v)
}

func (p *Pipeline) allocateID(ctx context.Context) (string, error) {
	for i := 0; i < maxIDAttempts; i++ {
		id := p.newID()
		exists, err := p.repo.LogExists(ctx, id)
		if err != nil {
			return "", fmt.Errorf("probe identifier %s: %w", id, err)
		}
		if exists || p.store.Exists(id) {
			log.Printf("ingest: identifier collision on %s, retrying", id)
			continue
		}
		return id, nil
	}
	return "", ErrIdentifierExhausted
}

// newToken generates the revocation token: 128 random bits, hex encoded.
func newToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
