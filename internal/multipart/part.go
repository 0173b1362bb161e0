package multipart

import (
	"bytes"
	"fmt"
	"io"
	"net/textproto"
	"os"
)

// Part is one decoded section of a multipart body: a form field or an
// uploaded file. Bytes accumulate in memory and spill to a temp file once
// they exceed the spill limit, so callers must not assume memory residency.
type Part struct {
	name     string
	filename string
	header   textproto.MIMEHeader

	mem      []byte
	file     *os.File
	size     int64
	complete bool
	released bool
	moved    bool

	spillLimit int
	tmpDir     string
}

func newPart(name, filename string, header textproto.MIMEHeader, spillLimit int, tmpDir string) *Part {
	return &Part{
		name:       name,
		filename:   filename,
		header:     header,
		spillLimit: spillLimit,
		tmpDir:     tmpDir,
	}
}

// Name returns the form field name of the part.
func (p *Part) Name() string { return p.name }

// Filename returns the client-declared filename, empty for plain fields.
func (p *Part) Filename() string { return p.filename }

// Header returns the part's MIME headers.
func (p *Part) Header() textproto.MIMEHeader { return p.header }

// Size returns the number of payload bytes received so far.
func (p *Part) Size() int64 { return p.size }

// Complete reports whether the part's terminating boundary was seen.
func (p *Part) Complete() bool { return p.complete }

// DiskBacked reports whether the payload has spilled to a temp file.
func (p *Part) DiskBacked() bool { return p.file != nil }

func (p *Part) write(b []byte) error {
	if p.complete {
		return fmt.Errorf("multipart: write to completed part %q", p.name)
	}
	if p.file != nil {
		n, err := p.file.Write(b)
		p.size += int64(n)
		return err
	}
	p.mem = append(p.mem, b...)
	p.size = int64(len(p.mem))
	if p.spillLimit > 0 && len(p.mem) > p.spillLimit {
		return p.spill()
	}
	return nil
}

func (p *Part) spill() error {
	f, err := os.CreateTemp(p.tmpDir, "part-*.tmp")
	if err != nil {
		return fmt.Errorf("multipart: spill part %q: %w", p.name, err)
	}
	if _, err := f.Write(p.mem); err != nil {
		f.Close()
		os.Remove(f.Name())
		return fmt.Errorf("multipart: spill part %q: %w", p.name, err)
	}
	p.file = f
	p.mem = nil
	return nil
}

func (p *Part) finalize() {
	p.complete = true
}

// Peek returns the first n payload bytes without disturbing the payload for
// a later MoveTo or Open. Returns ErrInsufficientData when the part is
// complete with fewer than n bytes, ErrPartNotComplete when bytes are still
// arriving and n are not yet available.
func (p *Part) Peek(n int) ([]byte, error) {
	if int64(n) > p.size {
		if p.complete {
			return nil, ErrInsufficientData
		}
		return nil, ErrPartNotComplete
	}
	if p.file != nil {
		buf := make([]byte, n)
		if _, err := p.file.ReadAt(buf, 0); err != nil && err != io.EOF {
			return nil, fmt.Errorf("multipart: peek part %q: %w", p.name, err)
		}
		return buf, nil
	}
	out := make([]byte, n)
	copy(out, p.mem[:n])
	return out, nil
}

// Value returns the full payload of a completed part as a byte slice.
// Intended for form fields, which are small by construction.
func (p *Part) Value() ([]byte, error) {
	if !p.complete {
		return nil, ErrPartNotComplete
	}
	if p.file != nil {
		buf := make([]byte, p.size)
		if _, err := p.file.ReadAt(buf, 0); err != nil && err != io.EOF {
			return nil, fmt.Errorf("multipart: read part %q: %w", p.name, err)
		}
		return buf, nil
	}
	return p.mem, nil
}

// String returns the payload as a string, empty on any error.
func (p *Part) String() string {
	b, err := p.Value()
	if err != nil {
		return ""
	}
	return string(b)
}

// Open exposes the completed payload for random access, as needed for zip
// iteration. The returned ReaderAt stays valid until Release.
func (p *Part) Open() (io.ReaderAt, int64, error) {
	if !p.complete {
		return nil, 0, ErrPartNotComplete
	}
	if p.file != nil {
		return p.file, p.size, nil
	}
	return bytes.NewReader(p.mem), p.size, nil
}

// MoveTo relocates the completed payload to path. Disk-backed parts are
// renamed (atomic on the same filesystem, copy fallback across devices);
// memory-backed parts are written out. After a successful move the temp
// backing no longer belongs to the part and Release leaves it alone.
func (p *Part) MoveTo(path string) error {
	if !p.complete {
		return ErrPartNotComplete
	}
	if p.moved {
		return fmt.Errorf("multipart: part %q already moved", p.name)
	}
	if p.file != nil {
		name := p.file.Name()
		if err := p.file.Close(); err != nil {
			return fmt.Errorf("multipart: move part %q: %w", p.name, err)
		}
		if err := os.Rename(name, path); err != nil {
			// Rename fails across filesystems; fall back to a copy.
			if err := copyFile(name, path); err != nil {
				return fmt.Errorf("multipart: move part %q: %w", p.name, err)
			}
			os.Remove(name)
		}
		p.file = nil
	} else {
		if err := os.WriteFile(path, p.mem, 0o644); err != nil {
			return fmt.Errorf("multipart: move part %q: %w", p.name, err)
		}
		p.mem = nil
	}
	p.moved = true
	return nil
}

// Release frees the part's backing storage. Safe to call more than once and
// required on every exit path so temp files never outlive the request.
func (p *Part) Release() {
	if p.released {
		return
	}
	p.released = true
	if p.file != nil {
		name := p.file.Name()
		p.file.Close()
		os.Remove(name)
		p.file = nil
	}
	p.mem = nil
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
