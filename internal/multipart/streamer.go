// Package multipart implements incremental parsing of multipart/form-data
// request bodies. Bytes are pushed in as they arrive on the wire and parts
// are assembled with bounded memory: only the unresolved suffix of the
// stream is buffered between pushes, and large file parts spill to disk.
package multipart

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"mime"
	"net/textproto"
)

var (
	// ErrMalformedMultipart marks a body that does not follow the
	// multipart framing: missing boundary, unparsable part headers, or
	// garbage between parts.
	ErrMalformedMultipart = errors.New("multipart: malformed body")

	// ErrIncompleteBody marks a body that ended before the final
	// boundary marker, e.g. a client disconnect.
	ErrIncompleteBody = errors.New("multipart: body ended before final boundary")

	// ErrPayloadTooLarge marks a body exceeding the configured maximum.
	ErrPayloadTooLarge = errors.New("multipart: payload too large")

	// ErrPartNotComplete is returned for operations that need a
	// finalized part while bytes are still streaming in.
	ErrPartNotComplete = errors.New("multipart: part not complete")

	// ErrInsufficientData is returned by Peek when a completed part
	// holds fewer bytes than requested.
	ErrInsufficientData = errors.New("multipart: insufficient data")
)

const maxPartHeaderBytes = 16 << 10

type streamerState int

const (
	statePreamble streamerState = iota
	stateBoundaryTail
	stateHeaders
	stateBody
	stateDone
)

// Streamer reassembles a multipart body from arbitrarily-sized chunks.
// Feed it with DataReceived as bytes arrive, then call DataComplete once
// the body is fully received. ReleaseParts must run on every exit path.
type Streamer struct {
	dashBoundary []byte // "--boundary", opens the body
	delimiter    []byte // "\r\n--boundary", terminates each part

	buf      []byte
	state    streamerState
	parts    []*Part
	current  *Part
	received int64

	maxSize    int64
	spillLimit int
	tmpDir     string
}

// NewStreamer creates a streamer for the given boundary token. maxSize
// bounds the total body size (0 means unbounded); spillLimit is the
// per-part in-memory threshold; tmpDir receives spill files ("" uses the
// system temp dir).
func NewStreamer(boundary string, maxSize int64, spillLimit int, tmpDir string) (*Streamer, error) {
	if boundary == "" {
		return nil, fmt.Errorf("%w: empty boundary", ErrMalformedMultipart)
	}
	return &Streamer{
		dashBoundary: []byte("--" + boundary),
		delimiter:    []byte("\r\n--" + boundary),
		maxSize:      maxSize,
		spillLimit:   spillLimit,
		tmpDir:       tmpDir,
	}, nil
}

// DataReceived consumes the next chunk of the request body. Chunk
// boundaries carry no meaning: splits inside boundary markers or part
// headers are handled by buffering the unresolved suffix.
func (s *Streamer) DataReceived(chunk []byte) error {
	s.received += int64(len(chunk))
	if s.maxSize > 0 && s.received > s.maxSize {
		return fmt.Errorf("%w: %d bytes exceeds limit of %d", ErrPayloadTooLarge, s.received, s.maxSize)
	}
	s.buf = append(s.buf, chunk...)
	return s.process()
}

// DataComplete signals the end of the body. It fails with
// ErrIncompleteBody unless the final boundary marker was seen.
func (s *Streamer) DataComplete() error {
	if s.state != stateDone {
		return ErrIncompleteBody
	}
	return nil
}

// Parts returns all parts decoded so far, in stream order.
func (s *Streamer) Parts() []*Part { return s.parts }

// PartByName returns the first part with the given field name, nil if none.
func (s *Streamer) PartByName(name string) *Part {
	for _, p := range s.parts {
		if p.name == name {
			return p
		}
	}
	return nil
}

// FormValue returns the payload of the named field as a string, "" if the
// field is absent.
func (s *Streamer) FormValue(name string) string {
	p := s.PartByName(name)
	if p == nil {
		return ""
	}
	return p.String()
}

// Received returns the total number of body bytes consumed so far.
func (s *Streamer) Received() int64 { return s.received }

// ReleaseParts frees every part's backing storage. Idempotent.
func (s *Streamer) ReleaseParts() {
	for _, p := range s.parts {
		p.Release()
	}
}

func (s *Streamer) process() error {
	for {
		switch s.state {
		case statePreamble:
			idx := bytes.Index(s.buf, s.dashBoundary)
			if idx < 0 {
				// Keep only the suffix that could still open a
				// boundary split across chunks.
				if keep := len(s.dashBoundary) - 1; len(s.buf) > keep {
					s.buf = append(s.buf[:0], s.buf[len(s.buf)-keep:]...)
				}
				return nil
			}
			s.buf = s.buf[idx+len(s.dashBoundary):]
			s.state = stateBoundaryTail

		case stateBoundaryTail:
			if len(s.buf) < 2 {
				return nil
			}
			switch {
			case s.buf[0] == '-' && s.buf[1] == '-':
				s.buf = nil
				s.state = stateDone
			case s.buf[0] == '\r' && s.buf[1] == '\n':
				s.buf = s.buf[2:]
				s.state = stateHeaders
			default:
				return fmt.Errorf("%w: unexpected bytes after boundary", ErrMalformedMultipart)
			}

		case stateHeaders:
			idx := bytes.Index(s.buf, []byte("\r\n\r\n"))
			if idx < 0 {
				if len(s.buf) > maxPartHeaderBytes {
					return fmt.Errorf("%w: part header block too large", ErrMalformedMultipart)
				}
				return nil
			}
			part, err := s.openPart(s.buf[:idx+4])
			if err != nil {
				return err
			}
			s.parts = append(s.parts, part)
			s.current = part
			s.buf = s.buf[idx+4:]
			s.state = stateBody

		case stateBody:
			idx := bytes.Index(s.buf, s.delimiter)
			if idx < 0 {
				// Everything except a possible delimiter prefix is
				// settled body data; forward it and keep the tail.
				if safe := len(s.buf) - (len(s.delimiter) - 1); safe > 0 {
					if err := s.current.write(s.buf[:safe]); err != nil {
						return err
					}
					s.buf = append(s.buf[:0], s.buf[safe:]...)
				}
				return nil
			}
			if err := s.current.write(s.buf[:idx]); err != nil {
				return err
			}
			s.current.finalize()
			s.current = nil
			s.buf = s.buf[idx+len(s.delimiter):]
			s.state = stateBoundaryTail

		case stateDone:
			// Ignore any epilogue the client sends after the final
			// boundary.
			s.buf = nil
			return nil
		}
	}
}

func (s *Streamer) openPart(headerBlock []byte) (*Part, error) {
	tp := textproto.NewReader(bufio.NewReader(bytes.NewReader(headerBlock)))
	header, err := tp.ReadMIMEHeader()
	if err != nil {
		return nil, fmt.Errorf("%w: bad part headers: %v", ErrMalformedMultipart, err)
	}
	disposition, params, err := mime.ParseMediaType(header.Get("Content-Disposition"))
	if err != nil || disposition != "form-data" {
		return nil, fmt.Errorf("%w: missing form-data content disposition", ErrMalformedMultipart)
	}
	name := params["name"]
	if name == "" {
		return nil, fmt.Errorf("%w: unnamed part", ErrMalformedMultipart)
	}
	return newPart(name, params["filename"], header, s.spillLimit, s.tmpDir), nil
}
