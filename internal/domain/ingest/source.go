package ingest

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// UploadedFile is the capability set the pipeline needs from an upload,
// regardless of where the bytes came from. Multipart parts implement it
// directly; DiskFile adapts files already on the local filesystem (bulk
// admission and archive extraction).
type UploadedFile interface {
	// Filename is the client-declared name, used for display only.
	Filename() string

	// Peek returns the first n bytes without consuming the payload.
	Peek(n int) ([]byte, error)

	// MoveTo relocates the payload to the managed storage path.
	MoveTo(path string) error
}

// DiskFile adapts a file already on disk to the UploadedFile interface.
type DiskFile struct {
	path     string
	name     string
	preserve bool
}

// NewDiskFile wraps a local file whose bytes are consumed by admission:
// MoveTo renames it away. Used for archive entries extracted to scratch
// files.
func NewDiskFile(path, displayName string) *DiskFile {
	return &DiskFile{path: path, name: displayName}
}

// NewPreservedDiskFile wraps a local file that must stay in place: MoveTo
// copies. Used by bulk directory admission, where deleting the source is
// the caller's decision.
func NewPreservedDiskFile(path, displayName string) *DiskFile {
	return &DiskFile{path: path, name: displayName, preserve: true}
}

func (d *DiskFile) Filename() string { return d.name }

// Path returns the current on-disk location of the file.
func (d *DiskFile) Path() string { return d.path }

func (d *DiskFile) Peek(n int) ([]byte, error) {
	f, err := os.Open(d.path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	buf := make([]byte, n)
	if _, err := io.ReadFull(f, buf); err != nil {
		return nil, fmt.Errorf("short read on %s: %w", d.path, err)
	}
	return buf, nil
}

func (d *DiskFile) MoveTo(path string) error {
	if d.preserve {
		return copyFile(d.path, path)
	}
	if err := os.Rename(d.path, path); err != nil {
		if err := copyFile(d.path, path); err != nil {
			return err
		}
		os.Remove(d.path)
	}
	d.path = path
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	return out.Close()
}

// Discard removes the wrapped file if it still exists at its original
// location. Used to clean up scratch extractions on failure.
func (d *DiskFile) Discard() {
	os.Remove(d.path)
}

// displayName trims a path down to its base name for storage in the
// OriginalFilename column.
func displayName(path string) string {
	return filepath.Base(path)
}
