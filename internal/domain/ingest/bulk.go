package ingest

import (
	"context"
	"io/fs"
	"log"
	"os"
	"path/filepath"
)

// BulkResult reports one directory admission run.
type BulkResult struct {
	Admitted []string // identifiers of admitted logs
	Skipped  int      // files without a log extension
	Failed   int      // files that errored, logged and passed over
}

// AdmitDirectory walks dir and admits every native log file it finds,
// each as an isolated AdmitSingle call with the given metadata. A failing
// file is logged and does not stop the run. With deleteAfter set, source
// files are removed only after their admission succeeded.
func (p *Pipeline) AdmitDirectory(ctx context.Context, dir string, meta UploadMeta, deleteAfter bool) (*BulkResult, error) {
	res := &BulkResult{}
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if !acceptedLogExtension(filepath.Ext(path)) {
			log.Printf("ingest: skipping non-log file %s", path)
			res.Skipped++
			return nil
		}

		id, err := p.AdmitSingle(ctx, NewPreservedDiskFile(path, displayName(path)), meta)
		if err != nil {
			log.Printf("ingest: bulk admission failed for %s: %v", path, err)
			res.Failed++
			return nil
		}
		res.Admitted = append(res.Admitted, id)
		log.Printf("/plot_app?log=%s", id)

		if deleteAfter {
			log.Printf("ingest: deleting ingested source %s", path)
			if err := os.Remove(path); err != nil {
				log.Printf("ingest: could not delete %s: %v", path, err)
			}
		}
		return nil
	})
	if err != nil {
		return res, err
	}
	return res, nil
}
