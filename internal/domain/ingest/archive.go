package ingest

import (
	"context"
	"fmt"
	"io"
	"log"
	"path/filepath"

	"github.com/klauspost/compress/zip"
)

// AdmitArchive iterates the entries of a zip archive and admits every
// native-log entry through the same per-file path as a single upload.
// Entries with other extensions are skipped with a log line; archives
// inside the archive are not expanded.
//
// The first failing entry aborts the remainder. Entries admitted before
// the failure stay committed and are returned alongside the error, so the
// caller can report partial progress.
func (p *Pipeline) AdmitArchive(ctx context.Context, ra io.ReaderAt, size int64, meta UploadMeta) ([]string, error) {
	zr, err := zip.NewReader(ra, size)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}

	var admitted []string
	for _, entry := range zr.File {
		if entry.FileInfo().IsDir() {
			continue
		}
		if !acceptedLogExtension(filepath.Ext(entry.Name)) {
			log.Printf("ingest: skipping non-log archive entry %s", entry.Name)
			continue
		}
		id, err := p.admitArchiveEntry(ctx, entry, meta)
		if err != nil {
			return admitted, fmt.Errorf("archive entry %s: %w", entry.Name, err)
		}
		admitted = append(admitted, id)
	}
	return admitted, nil
}

// admitArchiveEntry extracts one entry to a scratch file inside the
// managed directory, then relocates it by rename through the normal
// admission path.
func (p *Pipeline) admitArchiveEntry(ctx context.Context, entry *zip.File, meta UploadMeta) (string, error) {
	src, err := entry.Open()
	if err != nil {
		return "", fmt.Errorf("open: %w", err)
	}
	defer src.Close()

	tmp, err := p.store.TempFile()
	if err != nil {
		return "", fmt.Errorf("scratch file: %w", err)
	}
	if _, err := io.Copy(tmp, src); err != nil {
		tmp.Close()
		extracted := NewDiskFile(tmp.Name(), "")
		extracted.Discard()
		return "", fmt.Errorf("extract: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("extract: %w", err)
	}

	file := NewDiskFile(tmp.Name(), displayName(entry.Name))
	id, err := p.AdmitSingle(ctx, file, meta)
	if err != nil {
		file.Discard()
		return "", err
	}
	return id, nil
}
